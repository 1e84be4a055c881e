// Package esstore implements store.Store on an Elasticsearch index.
package esstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/headStarter-Travel-app/travelAppBackend/model"
	"github.com/headStarter-Travel-app/travelAppBackend/store"
	logging "github.com/ipfs/go-log/v2"
	"github.com/olivere/elastic/v7"
)

var log = logging.Logger("esstore")

// DefaultIndex is the index used when none is configured.
const DefaultIndex = "locations"

// maxResults bounds queries that do not set a limit. It matches the default
// index.max_result_window.
const maxResults = 10000

const mapping = `{
	"mappings": {
		"properties": {
			"id":          {"type": "keyword"},
			"name":        {"type": "text"},
			"category":    {"type": "keyword"},
			"latitude":    {"type": "double"},
			"longitude":   {"type": "double"},
			"location":    {"type": "geo_point"},
			"address":     {"type": "text"},
			"address_key": {"type": "keyword"},
			"url":         {"type": "keyword", "index": false},
			"rating":      {"type": "float"},
			"hours":       {"type": "keyword", "index": false},
			"photos":      {"type": "keyword", "index": false},
			"updatedAt":   {"type": "date"}
		}
	}
}`

// document is the indexed form of a LocationEntry.
type document struct {
	model.LocationEntry
	AddressKey string            `json:"address_key"`
	Location   *elastic.GeoPoint `json:"location"`
}

func newDocument(e model.LocationEntry) document {
	return document{
		LocationEntry: e,
		AddressKey:    e.AddressKey(),
		Location:      elastic.GeoPointFromLatLon(e.Latitude, e.Longitude),
	}
}

// Store is a store.Store backed by an Elasticsearch index.
type Store struct {
	client *elastic.Client
	index  string
}

var _ store.Store = (*Store)(nil)

// Open connects to the cluster at url and creates index if it does not exist.
func Open(ctx context.Context, url, index string, options ...elastic.ClientOptionFunc) (*Store, error) {
	options = append([]elastic.ClientOptionFunc{elastic.SetURL(url), elastic.SetSniff(false)}, options...)
	client, err := elastic.NewClient(options...)
	if err != nil {
		return nil, fmt.Errorf("cannot create elasticsearch client: %w", err)
	}
	s, err := New(client, index)
	if err != nil {
		return nil, err
	}
	if err = s.ensureIndex(ctx); err != nil {
		client.Stop()
		return nil, err
	}
	return s, nil
}

// New returns a Store using an existing client. The index is not created.
func New(client *elastic.Client, index string) (*Store, error) {
	if client == nil {
		return nil, errors.New("nil elasticsearch client")
	}
	if index == "" {
		index = DefaultIndex
	}
	return &Store{
		client: client,
		index:  index,
	}, nil
}

func (s *Store) ensureIndex(ctx context.Context) error {
	exists, err := s.client.IndexExists(s.index).Do(ctx)
	if err != nil {
		return fmt.Errorf("cannot check index %s: %w", s.index, err)
	}
	if exists {
		return nil
	}
	created, err := s.client.CreateIndex(s.index).BodyString(mapping).Do(ctx)
	if err != nil {
		return fmt.Errorf("cannot create index %s: %w", s.index, err)
	}
	if !created.Acknowledged {
		log.Warnw("Index creation not acknowledged", "index", s.index)
	}
	log.Infow("Created index", "index", s.index)
	return nil
}

func (s *Store) Get(ctx context.Context, id string) (model.LocationEntry, bool, error) {
	res, err := s.client.Get().Index(s.index).Id(id).Do(ctx)
	if err != nil {
		if elastic.IsNotFound(err) {
			return model.LocationEntry{}, false, nil
		}
		return model.LocationEntry{}, false, err
	}
	if !res.Found {
		return model.LocationEntry{}, false, nil
	}
	var doc document
	if err = json.Unmarshal(res.Source, &doc); err != nil {
		return model.LocationEntry{}, false, fmt.Errorf("cannot decode location %s: %w", id, err)
	}
	doc.LocationEntry.Normalize()
	return doc.LocationEntry, true, nil
}

func (s *Store) Query(ctx context.Context, q store.Query) ([]model.LocationEntry, error) {
	size := q.Limit
	if size == 0 {
		size = maxResults
	}
	res, err := s.client.Search().
		Index(s.index).
		Query(buildQuery(q)).
		Size(size).
		Do(ctx)
	if err != nil {
		return nil, err
	}
	if res.Hits == nil {
		return nil, nil
	}
	entries := make([]model.LocationEntry, 0, len(res.Hits.Hits))
	for _, hit := range res.Hits.Hits {
		var doc document
		if err = json.Unmarshal(hit.Source, &doc); err != nil {
			log.Errorw("Skipping undecodable hit", "id", hit.Id, "err", err)
			continue
		}
		doc.LocationEntry.Normalize()
		entries = append(entries, doc.LocationEntry)
	}
	return entries, nil
}

func buildQuery(q store.Query) elastic.Query {
	var filters []elastic.Query
	if q.Bounds != nil {
		b := q.Bounds.Widen(model.EdgeTolerance)
		filters = append(filters,
			elastic.NewRangeQuery("latitude").Gte(b.LatMin).Lte(b.LatMax),
			elastic.NewRangeQuery("longitude").Gte(b.LonMin).Lte(b.LonMax))
	}
	if q.AddressKey != "" {
		filters = append(filters, elastic.NewTermQuery("address_key", q.AddressKey))
	}
	if q.Category != "" {
		filters = append(filters, elastic.NewTermQuery("category", q.Category))
	}
	if len(filters) == 0 {
		return elastic.NewMatchAllQuery()
	}
	return elastic.NewBoolQuery().Filter(filters...)
}

func (s *Store) Put(ctx context.Context, e model.LocationEntry) error {
	if e.ID == "" {
		return errors.New("entry has no id")
	}
	_, err := s.client.Index().
		Index(s.index).
		Id(e.ID).
		BodyJson(newDocument(e)).
		Refresh("wait_for").
		Do(ctx)
	return err
}

func (s *Store) Update(ctx context.Context, e model.LocationEntry) error {
	_, err := s.client.Update().
		Index(s.index).
		Id(e.ID).
		Doc(newDocument(e)).
		Refresh("wait_for").
		Do(ctx)
	if err != nil {
		if elastic.IsNotFound(err) {
			return store.ErrNotFound
		}
		return err
	}
	return nil
}

func (s *Store) Close() error {
	s.client.Stop()
	return nil
}
