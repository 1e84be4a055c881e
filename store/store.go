// Package store defines the persistent store interface for location entries.
// Implementations live in subpackages: dsstore (go-datastore with an
// in-memory R-tree), pgstore (PostgreSQL), and esstore (Elasticsearch).
package store

import (
	"context"
	"errors"

	"github.com/headStarter-Travel-app/travelAppBackend/model"
)

// ErrNotFound is returned by Update when no entry has the given ID.
var ErrNotFound = errors.New("entry not found")

// Query selects entries. Zero-valued fields do not filter.
type Query struct {
	// Bounds selects entries whose coordinates lie inside the box, edges
	// inclusive.
	Bounds *model.BoundingBox
	// AddressKey selects the entry with this normalized address.
	AddressKey string
	// Category selects entries in this category.
	Category string
	// Limit is the maximum number of entries returned. 0 means no limit.
	Limit int
}

// Store is a keyed document store of location entries.
type Store interface {
	// Get returns the entry with the given ID. Found is false, with a nil
	// error, if no such entry exists.
	Get(ctx context.Context, id string) (entry model.LocationEntry, found bool, err error)
	// Query returns all entries matching q in no particular order.
	Query(ctx context.Context, q Query) ([]model.LocationEntry, error)
	// Put stores a new entry. The entry's ID must be set.
	Put(ctx context.Context, entry model.LocationEntry) error
	// Update overwrites the entry with the same ID.
	Update(ctx context.Context, entry model.LocationEntry) error
	Close() error
}

// Match reports whether e satisfies the filters in q, ignoring Limit.
func (q Query) Match(e model.LocationEntry) bool {
	if q.Bounds != nil && !q.Bounds.Contains(e.Point()) {
		return false
	}
	if q.AddressKey != "" && e.AddressKey() != q.AddressKey {
		return false
	}
	if q.Category != "" && e.Category != q.Category {
		return false
	}
	return true
}
