// Package dsstore implements store.Store on top of a go-datastore.
//
// Each entry is a JSON document under /locations/<id>. A secondary key under
// /address/<multihash of normalized address> maps an address to the ID of
// the entry holding it. Bounds queries are answered from an in-memory R-tree
// that is rebuilt from the datastore when the store is opened.
package dsstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/headStarter-Travel-app/travelAppBackend/model"
	"github.com/headStarter-Travel-app/travelAppBackend/store"
	"github.com/ipfs/go-datastore"
	"github.com/ipfs/go-datastore/query"
	dssync "github.com/ipfs/go-datastore/sync"
	logging "github.com/ipfs/go-log/v2"
	"github.com/mr-tron/base58"
	"github.com/multiformats/go-multihash"
)

var log = logging.Logger("dsstore")

const (
	locationPrefix = "/locations"
	addressPrefix  = "/address"
)

// Store is a store.Store backed by a datastore.Datastore.
type Store struct {
	ds    datastore.Datastore
	index *spatialIndex
	// writeMu keeps the document, its address key, and the spatial index
	// consistent with each other.
	writeMu sync.Mutex
}

var _ store.Store = (*Store)(nil)

// New opens a Store over ds and indexes any entries already in it.
func New(ctx context.Context, ds datastore.Datastore) (*Store, error) {
	s := &Store{
		ds:    ds,
		index: newSpatialIndex(),
	}
	if err := s.loadIndex(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// NewMemory returns a Store backed by a thread-safe in-memory map.
func NewMemory() *Store {
	return &Store{
		ds:    dssync.MutexWrap(datastore.NewMapDatastore()),
		index: newSpatialIndex(),
	}
}

func (s *Store) loadIndex(ctx context.Context) error {
	results, err := s.ds.Query(ctx, query.Query{Prefix: locationPrefix})
	if err != nil {
		return fmt.Errorf("cannot query locations: %w", err)
	}
	defer results.Close()

	for r := range results.Next() {
		if r.Error != nil {
			return fmt.Errorf("cannot read location: %w", r.Error)
		}
		var e model.LocationEntry
		if err = json.Unmarshal(r.Value, &e); err != nil {
			log.Errorw("Skipping undecodable location", "key", r.Key, "err", err)
			continue
		}
		s.index.put(e.ID, e.Point())
	}
	log.Infow("Loaded spatial index", "entries", s.index.len())
	return nil
}

func (s *Store) Get(ctx context.Context, id string) (model.LocationEntry, bool, error) {
	data, err := s.ds.Get(ctx, locationKey(id))
	if err != nil {
		if errors.Is(err, datastore.ErrNotFound) {
			return model.LocationEntry{}, false, nil
		}
		return model.LocationEntry{}, false, err
	}
	var e model.LocationEntry
	if err = json.Unmarshal(data, &e); err != nil {
		return model.LocationEntry{}, false, fmt.Errorf("cannot decode location %s: %w", id, err)
	}
	return e, true, nil
}

func (s *Store) Query(ctx context.Context, q store.Query) ([]model.LocationEntry, error) {
	switch {
	case q.AddressKey != "":
		return s.queryAddress(ctx, q)
	case q.Bounds != nil:
		return s.queryBounds(ctx, q)
	}

	results, err := s.ds.Query(ctx, query.Query{
		Prefix:  locationPrefix,
		Filters: []query.Filter{entryFilter{q}},
		Limit:   q.Limit,
	})
	if err != nil {
		return nil, err
	}
	ents, err := results.Rest()
	if err != nil {
		return nil, err
	}
	entries := make([]model.LocationEntry, 0, len(ents))
	for _, ent := range ents {
		var e model.LocationEntry
		if err = json.Unmarshal(ent.Value, &e); err != nil {
			return nil, fmt.Errorf("cannot decode location %s: %w", ent.Key, err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func (s *Store) queryAddress(ctx context.Context, q store.Query) ([]model.LocationEntry, error) {
	id, found, err := s.lookupAddress(ctx, q.AddressKey)
	if err != nil || !found {
		return nil, err
	}
	e, found, err := s.Get(ctx, id)
	if err != nil || !found {
		return nil, err
	}
	if !q.Match(e) {
		return nil, nil
	}
	return []model.LocationEntry{e}, nil
}

func (s *Store) queryBounds(ctx context.Context, q store.Query) ([]model.LocationEntry, error) {
	ids, err := s.index.search(*q.Bounds)
	if err != nil {
		return nil, err
	}
	var entries []model.LocationEntry
	for _, id := range ids {
		e, found, err := s.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		if !found || !q.Match(e) {
			continue
		}
		entries = append(entries, e)
		if q.Limit != 0 && len(entries) == q.Limit {
			break
		}
	}
	return entries, nil
}

func (s *Store) Put(ctx context.Context, e model.LocationEntry) error {
	if e.ID == "" {
		return errors.New("entry has no id")
	}
	data, err := json.Marshal(&e)
	if err != nil {
		return err
	}
	addrKey, err := addressKey(e.AddressKey())
	if err != nil {
		return err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err = s.ds.Put(ctx, locationKey(e.ID), data); err != nil {
		return err
	}
	if err = s.ds.Put(ctx, addrKey, []byte(e.ID)); err != nil {
		return err
	}
	s.index.put(e.ID, e.Point())
	return nil
}

func (s *Store) Update(ctx context.Context, e model.LocationEntry) error {
	data, err := json.Marshal(&e)
	if err != nil {
		return err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	old, found, err := s.Get(ctx, e.ID)
	if err != nil {
		return err
	}
	if !found {
		return store.ErrNotFound
	}
	if err = s.ds.Put(ctx, locationKey(e.ID), data); err != nil {
		return err
	}
	if oldKey, newKey := old.AddressKey(), e.AddressKey(); oldKey != newKey {
		dsKey, err := addressKey(oldKey)
		if err != nil {
			return err
		}
		if err = s.ds.Delete(ctx, dsKey); err != nil {
			return err
		}
		if dsKey, err = addressKey(newKey); err != nil {
			return err
		}
		if err = s.ds.Put(ctx, dsKey, []byte(e.ID)); err != nil {
			return err
		}
	}
	s.index.put(e.ID, e.Point())
	return nil
}

func (s *Store) Close() error {
	return s.ds.Close()
}

func (s *Store) lookupAddress(ctx context.Context, key string) (string, bool, error) {
	dsKey, err := addressKey(key)
	if err != nil {
		return "", false, err
	}
	id, err := s.ds.Get(ctx, dsKey)
	if err != nil {
		if errors.Is(err, datastore.ErrNotFound) {
			return "", false, nil
		}
		return "", false, err
	}
	return string(id), true, nil
}

func locationKey(id string) datastore.Key {
	return datastore.NewKey(locationPrefix).ChildString(id)
}

// addressKey hashes the normalized address so that keys stay short and free
// of path separators.
func addressKey(key string) (datastore.Key, error) {
	mh, err := multihash.Sum([]byte(key), multihash.SHA2_256, -1)
	if err != nil {
		return datastore.Key{}, err
	}
	return datastore.NewKey(addressPrefix).ChildString(base58.Encode(mh)), nil
}

// entryFilter applies a store.Query to raw datastore entries.
type entryFilter struct {
	q store.Query
}

func (f entryFilter) Filter(ent query.Entry) bool {
	var e model.LocationEntry
	if err := json.Unmarshal(ent.Value, &e); err != nil {
		return false
	}
	return f.q.Match(e)
}
