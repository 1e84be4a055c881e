package geocache

import (
	"context"
	"errors"

	"github.com/benbjohnson/clock"
	"github.com/headStarter-Travel-app/travelAppBackend/apierror"
	"github.com/headStarter-Travel-app/travelAppBackend/model"
	"github.com/headStarter-Travel-app/travelAppBackend/store"
	logging "github.com/ipfs/go-log/v2"
)

var log = logging.Logger("geocache")

// GeoCache stores location entries deduplicated by normalized address and
// answers bounding-box queries.
type GeoCache struct {
	store  store.Store
	locks  *keyLocks
	clock  clock.Clock
	margin float64
	newID  func() string
}

// New creates a GeoCache over the given store.
func New(st store.Store, options ...Option) (*GeoCache, error) {
	if st == nil {
		return nil, errors.New("nil store")
	}
	opts, err := getOpts(options)
	if err != nil {
		return nil, err
	}
	return &GeoCache{
		store:  st,
		locks:  newKeyLocks(),
		clock:  opts.clock,
		margin: opts.margin,
		newID:  opts.newID,
	}, nil
}

// Margin returns the half-width, in degrees, of the box QueryNear searches.
func (c *GeoCache) Margin() float64 {
	return c.margin
}

// Upsert stores entry, or overwrites the stored entry with the same
// normalized address, and returns the ID of the stored entry. The entry's own
// ID is ignored.
func (c *GeoCache) Upsert(ctx context.Context, entry model.LocationEntry) (string, error) {
	if err := entry.Validate(); err != nil {
		return "", err
	}
	key := entry.AddressKey()

	unlock, err := c.locks.lock(ctx, key)
	if err != nil {
		return "", err
	}
	defer unlock()

	existing, found, err := c.findByKey(ctx, key)
	if err != nil {
		return "", apierror.Store(err)
	}

	entry.Normalize()
	entry.UpdatedAt = c.clock.Now().UTC()

	if found {
		entry.ID = existing.ID
		if err = c.store.Update(ctx, entry); err != nil {
			return "", apierror.Store(err)
		}
		log.Debugw("Updated location", "id", entry.ID, "address", key)
		return entry.ID, nil
	}

	entry.ID = c.newID()
	if err = c.store.Put(ctx, entry); err != nil {
		return "", apierror.Store(err)
	}
	log.Debugw("Stored new location", "id", entry.ID, "address", key)
	return entry.ID, nil
}

// Query returns all entries inside bbox, edges inclusive, in no particular
// order. An empty result is a miss.
func (c *GeoCache) Query(ctx context.Context, bbox model.BoundingBox) ([]model.LocationEntry, error) {
	if err := bbox.Validate(); err != nil {
		return nil, err
	}
	entries, err := c.store.Query(ctx, store.Query{Bounds: &bbox})
	if err != nil {
		return nil, apierror.Store(err)
	}
	return entries, nil
}

// QueryNear returns all entries inside the box extending the cache margin
// from origin.
func (c *GeoCache) QueryNear(ctx context.Context, origin model.Point) ([]model.LocationEntry, error) {
	if err := origin.Validate(); err != nil {
		return nil, err
	}
	return c.Query(ctx, model.NewBoundingBox(origin, c.margin))
}

// Get returns the entry with the given ID.
func (c *GeoCache) Get(ctx context.Context, id string) (model.LocationEntry, bool, error) {
	e, found, err := c.store.Get(ctx, id)
	if err != nil {
		return model.LocationEntry{}, false, apierror.Store(err)
	}
	return e, found, nil
}

// FindByAddress returns the entry whose normalized address matches address.
func (c *GeoCache) FindByAddress(ctx context.Context, address string) (model.LocationEntry, bool, error) {
	key := model.NormalizeAddress(address)
	if key == "" {
		return model.LocationEntry{}, false, apierror.Validation("empty address")
	}
	e, found, err := c.findByKey(ctx, key)
	if err != nil {
		return model.LocationEntry{}, false, apierror.Store(err)
	}
	return e, found, nil
}

func (c *GeoCache) findByKey(ctx context.Context, key string) (model.LocationEntry, bool, error) {
	entries, err := c.store.Query(ctx, store.Query{AddressKey: key, Limit: 1})
	if err != nil || len(entries) == 0 {
		return model.LocationEntry{}, false, err
	}
	return entries[0], true, nil
}
