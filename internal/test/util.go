package test

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/headStarter-Travel-app/travelAppBackend/model"
	"github.com/headStarter-Travel-app/travelAppBackend/provider"
)

var globalSeed atomic.Int64

// RandomEntries returns n entries with distinct addresses, scattered within
// spread degrees of origin.
func RandomEntries(n int, origin model.Point, spread float64) []model.LocationEntry {
	rng := rand.New(rand.NewSource(globalSeed.Add(1)))

	entries := make([]model.LocationEntry, n)
	for i := 0; i < n; i++ {
		seq := rng.Int63()
		entries[i] = model.LocationEntry{
			Name:      fmt.Sprintf("Place %d", seq),
			Category:  "food",
			Latitude:  origin.Lat + (rng.Float64()*2-1)*spread,
			Longitude: origin.Lon + (rng.Float64()*2-1)*spread,
			Address:   fmt.Sprintf("%d Random Ave", seq),
			Rating:    float64(rng.Intn(50)) / 10,
			Hours:     []string{},
			Photos:    []string{},
		}
	}
	return entries
}

// MockProvider is a provider.Provider whose results are set per query text.
type MockProvider struct {
	ProviderName string
	// Delay is how long each Search waits before answering. The wait ends
	// early, with the context error, if the context is done.
	Delay time.Duration

	calls   atomic.Int32
	active  atomic.Int32
	maxSeen atomic.Int32

	mu      sync.Mutex
	results map[string][]model.LocationEntry
	errs    map[string]error
	delays  map[string]time.Duration
	queries []provider.Query
}

var _ provider.Provider = (*MockProvider)(nil)

func NewMockProvider(name string) *MockProvider {
	return &MockProvider{
		ProviderName: name,
		results:      make(map[string][]model.LocationEntry),
		errs:         make(map[string]error),
		delays:       make(map[string]time.Duration),
	}
}

// SetResults sets the entries returned for text.
func (m *MockProvider) SetResults(text string, entries ...model.LocationEntry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results[text] = entries
}

// SetError makes searches for text fail with err.
func (m *MockProvider) SetError(text string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errs[text] = err
}

// SetDelay makes searches for text wait d before answering.
func (m *MockProvider) SetDelay(text string, d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delays[text] = d
}

func (m *MockProvider) Name() string {
	return m.ProviderName
}

func (m *MockProvider) Search(ctx context.Context, q provider.Query) ([]model.LocationEntry, error) {
	m.calls.Add(1)
	n := m.active.Add(1)
	defer m.active.Add(-1)
	for {
		seen := m.maxSeen.Load()
		if n <= seen || m.maxSeen.CompareAndSwap(seen, n) {
			break
		}
	}

	m.mu.Lock()
	m.queries = append(m.queries, q)
	delay, ok := m.delays[q.Text]
	if !ok {
		delay = m.Delay
	}
	entries := m.results[q.Text]
	err := m.errs[q.Text]
	m.mu.Unlock()

	if delay != 0 {
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	out := make([]model.LocationEntry, len(entries))
	for i, e := range entries {
		e.Category = q.Text
		out[i] = e
	}
	return out, nil
}

// Calls returns the number of Search calls made.
func (m *MockProvider) Calls() int {
	return int(m.calls.Load())
}

// MaxConcurrent returns the largest number of Search calls seen running at
// the same time.
func (m *MockProvider) MaxConcurrent() int {
	return int(m.maxSeen.Load())
}

// Queries returns the queries received so far.
func (m *MockProvider) Queries() []provider.Query {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]provider.Query(nil), m.queries...)
}

// Entry returns an entry with the given name and address at lat, lon.
func Entry(name, address string, lat, lon float64) model.LocationEntry {
	return model.LocationEntry{
		Name:      name,
		Address:   address,
		Latitude:  lat,
		Longitude: lon,
		Hours:     []string{},
		Photos:    []string{},
	}
}
