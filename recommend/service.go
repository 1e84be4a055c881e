// Package recommend answers recommendation requests from the location cache,
// falling back to the external providers when the cache has nothing nearby.
package recommend

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/headStarter-Travel-app/travelAppBackend/aggregator"
	"github.com/headStarter-Travel-app/travelAppBackend/apierror"
	"github.com/headStarter-Travel-app/travelAppBackend/model"
	"github.com/headStarter-Travel-app/travelAppBackend/ranker"
	"github.com/headStarter-Travel-app/travelAppBackend/token"
	logging "github.com/ipfs/go-log/v2"
)

var log = logging.Logger("recommend")

// Cache is the part of the location cache used by Service.
type Cache interface {
	Upsert(ctx context.Context, entry model.LocationEntry) (string, error)
	QueryNear(ctx context.Context, origin model.Point) ([]model.LocationEntry, error)
	FindByAddress(ctx context.Context, address string) (model.LocationEntry, bool, error)
}

// Fetcher collects entries from external providers.
type Fetcher interface {
	Fetch(ctx context.Context, req model.AggregationRequest) ([]model.LocationEntry, []aggregator.Failure, error)
}

// TokenSource is the provider credential, as held by token.Manager.
type TokenSource interface {
	Get(ctx context.Context) (string, error)
	State() token.State
	ExpiresAt() time.Time
}

// PlaceFinder looks up a single place by free text.
type PlaceFinder interface {
	FindPlace(ctx context.Context, text string) (model.LocationEntry, bool, error)
}

// Result is the answer to a recommendation request.
type Result struct {
	Candidates []model.Candidate
	// Failures lists categories that could not be searched. It is only set
	// when the providers were queried.
	Failures []aggregator.Failure
	// Cached is true if the candidates came from the cache without querying
	// any provider.
	Cached bool
}

// TokenStatus describes the provider credential without revealing it.
type TokenStatus struct {
	State     string    `json:"state"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Service implements the recommendation operations.
type Service struct {
	cache      Cache
	fetcher    Fetcher
	tokens     TokenSource
	finder     PlaceFinder
	categories []string
	topK       int
}

// New creates a Service that reads from cache and fills it using fetcher.
func New(cache Cache, fetcher Fetcher, options ...Option) (*Service, error) {
	if cache == nil {
		return nil, errors.New("nil cache")
	}
	if fetcher == nil {
		return nil, errors.New("nil fetcher")
	}
	opts, err := getOpts(options)
	if err != nil {
		return nil, err
	}
	return &Service{
		cache:      cache,
		fetcher:    fetcher,
		tokens:     opts.tokens,
		finder:     opts.finder,
		categories: opts.categories,
		topK:       opts.topK,
	}, nil
}

// QueryOrCollectRecommendations returns places near origin in the given
// categories, nearest first. Cached entries are used when any are found in
// the box around origin. Otherwise the providers are searched and their
// results stored. If neither yields anything, a not found error is returned.
func (s *Service) QueryOrCollectRecommendations(ctx context.Context, origin model.Point, categories []string) (Result, error) {
	return s.collect(ctx, origin, categories, s.topK)
}

// RecommendationsNear is QueryOrCollectRecommendations returning at most topK
// candidates. A topK of zero or less uses the service default.
func (s *Service) RecommendationsNear(ctx context.Context, origin model.Point, categories []string, topK int) (Result, error) {
	if topK <= 0 {
		topK = s.topK
	}
	return s.collect(ctx, origin, categories, topK)
}

func (s *Service) collect(ctx context.Context, origin model.Point, categories []string, topK int) (Result, error) {
	if err := origin.Validate(); err != nil {
		return Result{}, err
	}
	categories = cleanCategories(categories)
	if len(categories) == 0 {
		categories = s.categories
	}

	cached, err := s.cache.QueryNear(ctx, origin)
	if err != nil {
		return Result{}, err
	}
	cached = inCategories(cached, categories)
	if len(cached) != 0 {
		log.Debugw("Cache hit", "lat", origin.Lat, "lon", origin.Lon, "count", len(cached))
		return Result{
			Candidates: ranker.Rank(cached, origin, topK),
			Cached:     true,
		}, nil
	}

	log.Infow("Cache miss, searching providers", "lat", origin.Lat, "lon", origin.Lon, "categories", categories)
	entries, failures, err := s.fetcher.Fetch(ctx, model.AggregationRequest{
		Origin:     origin,
		Categories: categories,
	})
	if err != nil {
		return Result{}, err
	}
	if len(entries) == 0 {
		if len(failures) != 0 {
			log.Warnw("No recommendations found", "err", aggregator.JoinFailures(failures))
		}
		return Result{Failures: failures}, apierror.NotFound("no places found near %v,%v", origin.Lat, origin.Lon)
	}
	return Result{
		Candidates: ranker.Rank(entries, origin, topK),
		Failures:   failures,
	}, nil
}

// RankByOrigin orders entries by distance from origin. A topK of zero or
// less returns all of them.
func (s *Service) RankByOrigin(entries []model.LocationEntry, origin model.Point, topK int) []model.Candidate {
	return ranker.Rank(entries, origin, topK)
}

// ProximityRecommendations returns recommendations around the centroid of a
// group of points. Interests replace the default categories when given. A
// topK of zero or less uses the service default.
func (s *Service) ProximityRecommendations(ctx context.Context, points []model.Point, interests []string, topK int) (model.Point, Result, error) {
	center, err := ranker.Centroid(points)
	if err != nil {
		return model.Point{}, Result{}, err
	}
	if topK <= 0 {
		topK = s.topK
	}
	res, err := s.collect(ctx, center, interests, topK)
	return center, res, err
}

// PlaceDetails returns the stored entry for a place, looking it up with the
// place finder and storing it when the address is not yet cached.
func (s *Service) PlaceDetails(ctx context.Context, name, address string) (model.LocationEntry, error) {
	name = strings.TrimSpace(name)
	address = strings.TrimSpace(address)
	if name == "" && address == "" {
		return model.LocationEntry{}, apierror.Validation("name or address required")
	}
	if address != "" {
		e, found, err := s.cache.FindByAddress(ctx, address)
		if err != nil {
			return model.LocationEntry{}, err
		}
		if found {
			return e, nil
		}
	}
	if s.finder == nil {
		return model.LocationEntry{}, apierror.NotFound("no details for %q", strings.TrimSpace(name+" "+address))
	}

	text := strings.TrimSpace(name + " " + address)
	e, found, err := s.finder.FindPlace(ctx, text)
	if err != nil {
		return model.LocationEntry{}, apierror.Provider(err)
	}
	if !found {
		return model.LocationEntry{}, apierror.NotFound("no place matches %q", text)
	}
	// Store under the address the caller asked for so the next lookup hits.
	if address != "" {
		e.Address = address
	}
	if e.Name == "" {
		e.Name = name
	}
	id, err := s.cache.Upsert(ctx, e)
	if err != nil {
		return model.LocationEntry{}, err
	}
	e.ID = id
	e.Normalize()
	return e, nil
}

// CurrentToken returns the provider credential.
func (s *Service) CurrentToken(ctx context.Context) (string, error) {
	if s.tokens == nil {
		return "", apierror.Auth(errors.New("no credential configured"))
	}
	return s.tokens.Get(ctx)
}

// TokenStatus reports the state of the provider credential.
func (s *Service) TokenStatus() TokenStatus {
	if s.tokens == nil {
		return TokenStatus{State: token.Empty.String()}
	}
	return TokenStatus{
		State:     s.tokens.State().String(),
		ExpiresAt: s.tokens.ExpiresAt(),
	}
}

func cleanCategories(categories []string) []string {
	out := make([]string, 0, len(categories))
	for _, c := range categories {
		if c = strings.TrimSpace(c); c != "" {
			out = append(out, c)
		}
	}
	return out
}

func inCategories(entries []model.LocationEntry, categories []string) []model.LocationEntry {
	want := make(map[string]struct{}, len(categories))
	for _, c := range categories {
		want[c] = struct{}{}
	}
	out := entries[:0]
	for _, e := range entries {
		if _, ok := want[e.Category]; ok {
			out = append(out, e)
		}
	}
	return out
}
