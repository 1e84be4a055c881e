// Package aggregator collects places for several categories from external
// providers at once, deduplicates them, and writes them to the cache.
package aggregator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/headStarter-Travel-app/travelAppBackend/apierror"
	"github.com/headStarter-Travel-app/travelAppBackend/model"
	"github.com/headStarter-Travel-app/travelAppBackend/provider"
	logging "github.com/ipfs/go-log/v2"
	"golang.org/x/sync/errgroup"
)

var log = logging.Logger("aggregator")

var errNoProvider = errors.New("no provider for category")

// Cache receives every entry the aggregator returns.
type Cache interface {
	Upsert(ctx context.Context, entry model.LocationEntry) (string, error)
}

// Failure describes a category whose provider call did not succeed.
type Failure struct {
	Category string `json:"category"`
	Provider string `json:"provider,omitempty"`
	Err      error  `json:"-"`
}

func (f Failure) Error() string {
	if f.Provider == "" {
		return fmt.Sprintf("%s: %s", f.Category, f.Err)
	}
	return fmt.Sprintf("%s (%s): %s", f.Category, f.Provider, f.Err)
}

func (f Failure) Unwrap() error {
	return f.Err
}

// JoinFailures combines failures into one error, or returns nil if there
// are none.
func JoinFailures(failures []Failure) error {
	var errs error
	for _, f := range failures {
		errs = multierror.Append(errs, f)
	}
	return errs
}

// Aggregator fans out provider searches over a fixed pool of workers.
type Aggregator struct {
	cache       Cache
	fallback    provider.Provider
	byCategory  map[string]provider.Provider
	workers     int
	callTimeout time.Duration
	deadline    time.Duration
	resultLimit int
}

// New creates an Aggregator that writes results to cache.
func New(cache Cache, options ...Option) (*Aggregator, error) {
	if cache == nil {
		return nil, errors.New("nil cache")
	}
	opts, err := getOpts(options)
	if err != nil {
		return nil, err
	}
	if opts.fallback == nil && len(opts.byCategory) == 0 {
		return nil, errors.New("no providers configured")
	}
	return &Aggregator{
		cache:       cache,
		fallback:    opts.fallback,
		byCategory:  opts.byCategory,
		workers:     opts.workers,
		callTimeout: opts.callTimeout,
		deadline:    opts.deadline,
		resultLimit: opts.resultLimit,
	}, nil
}

type searchResult struct {
	entries []model.LocationEntry
	err     error
}

// Fetch searches every requested category near the request origin.
//
// A category whose provider fails or times out is reported as a Failure and
// does not affect the others. Results are merged in category order, and an
// entry whose normalized address was already seen is dropped. Every returned
// entry has been upserted into the cache and carries its cache ID. An error
// is returned only for invalid input, a cache failure, or cancellation of
// ctx.
func (a *Aggregator) Fetch(ctx context.Context, req model.AggregationRequest) ([]model.LocationEntry, []Failure, error) {
	if err := req.Origin.Validate(); err != nil {
		return nil, nil, err
	}
	cats := uniqueCategories(req.Categories)
	if len(cats) == 0 {
		return nil, nil, nil
	}

	fetchCtx, cancel := context.WithTimeout(ctx, a.deadline)
	defer cancel()

	results := make([]searchResult, len(cats))
	names := make([]string, len(cats))
	// A slot is held until the provider call returns, even after its worker
	// has given up on it.
	slots := make(chan struct{}, a.workers)

	var group errgroup.Group
	group.SetLimit(a.workers)
	for i, cat := range cats {
		p := a.providerFor(cat)
		if p == nil {
			results[i].err = errNoProvider
			continue
		}
		names[i] = p.Name()
		i, cat := i, cat
		group.Go(func() error {
			results[i] = a.search(fetchCtx, slots, p, provider.Query{
				Text:   cat,
				Origin: req.Origin,
				Limit:  a.resultLimit,
			})
			return nil
		})
	}
	_ = group.Wait()

	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	var failures []Failure
	var merged []model.LocationEntry
	seen := make(map[string]struct{})
	for i, cat := range cats {
		res := results[i]
		if res.err != nil {
			failures = append(failures, Failure{
				Category: cat,
				Provider: names[i],
				Err:      apierror.Provider(res.err),
			})
			continue
		}
		for _, e := range res.entries {
			key := e.AddressKey()
			if key == "" {
				log.Debugw("Dropping result without address", "name", e.Name, "category", cat)
				continue
			}
			if err := e.Point().Validate(); err != nil {
				log.Debugw("Dropping result with invalid coordinates", "name", e.Name, "err", err)
				continue
			}
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			if e.Category == "" {
				e.Category = cat
			}
			e.Normalize()
			merged = append(merged, e)
		}
	}

	for i := range merged {
		id, err := a.cache.Upsert(ctx, merged[i])
		if err != nil {
			return nil, failures, fmt.Errorf("cannot store aggregated location: %w", err)
		}
		merged[i].ID = id
	}

	if len(failures) != 0 {
		log.Warnw("Some categories failed", "failed", len(failures), "categories", len(cats), "err", JoinFailures(failures))
	}
	log.Debugw("Aggregated locations", "count", len(merged), "categories", len(cats))
	return merged, failures, nil
}

// search calls p, and returns when the call finishes or ctx is done,
// whichever comes first. The call runs only once a slot is free, and releases
// the slot when p.Search returns, so a provider that ignores cancellation
// still counts against the worker limit.
func (a *Aggregator) search(ctx context.Context, slots chan struct{}, p provider.Provider, q provider.Query) searchResult {
	if err := ctx.Err(); err != nil {
		return searchResult{err: err}
	}
	select {
	case slots <- struct{}{}:
	case <-ctx.Done():
		return searchResult{err: ctx.Err()}
	}
	ctx, cancel := context.WithTimeout(ctx, a.callTimeout)
	defer cancel()

	done := make(chan searchResult, 1)
	go func() {
		defer func() { <-slots }()
		entries, err := p.Search(ctx, q)
		done <- searchResult{entries: entries, err: err}
	}()

	select {
	case res := <-done:
		return res
	case <-ctx.Done():
		return searchResult{err: ctx.Err()}
	}
}

func (a *Aggregator) providerFor(category string) provider.Provider {
	if p, ok := a.byCategory[category]; ok {
		return p
	}
	return a.fallback
}

func uniqueCategories(categories []string) []string {
	seen := make(map[string]struct{}, len(categories))
	out := make([]string, 0, len(categories))
	for _, c := range categories {
		if c == "" {
			continue
		}
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	return out
}
