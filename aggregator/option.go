package aggregator

import (
	"errors"
	"fmt"
	"time"

	"github.com/headStarter-Travel-app/travelAppBackend/provider"
)

const (
	defaultWorkers     = 4
	defaultCallTimeout = 10 * time.Second
	defaultDeadline    = 30 * time.Second
	defaultResultLimit = 5
)

type config struct {
	fallback    provider.Provider
	byCategory  map[string]provider.Provider
	workers     int
	callTimeout time.Duration
	deadline    time.Duration
	resultLimit int
}

// Option is a function that sets a value in a config.
type Option func(*config) error

// getOpts creates a config and applies Options to it.
func getOpts(opts []Option) (config, error) {
	cfg := config{
		byCategory:  make(map[string]provider.Provider),
		workers:     defaultWorkers,
		callTimeout: defaultCallTimeout,
		deadline:    defaultDeadline,
		resultLimit: defaultResultLimit,
	}
	for i, opt := range opts {
		if err := opt(&cfg); err != nil {
			return config{}, fmt.Errorf("option %d failed: %s", i, err)
		}
	}
	return cfg, nil
}

// WithProvider sets the provider queried for categories that have no
// provider of their own.
func WithProvider(p provider.Provider) Option {
	return func(cfg *config) error {
		if p == nil {
			return errors.New("nil provider")
		}
		cfg.fallback = p
		return nil
	}
}

// WithCategoryProvider routes searches for category to p.
func WithCategoryProvider(category string, p provider.Provider) Option {
	return func(cfg *config) error {
		if p == nil {
			return errors.New("nil provider")
		}
		cfg.byCategory[category] = p
		return nil
	}
}

// WithWorkers sets the maximum number of provider calls made at once.
//
// Default is 4.
func WithWorkers(n int) Option {
	return func(cfg *config) error {
		if n < 1 {
			return errors.New("workers must be at least 1")
		}
		cfg.workers = n
		return nil
	}
}

// WithCallTimeout sets the time allowed for each provider call.
//
// Default is 10 seconds.
func WithCallTimeout(d time.Duration) Option {
	return func(cfg *config) error {
		if d <= 0 {
			return errors.New("call timeout must be positive")
		}
		cfg.callTimeout = d
		return nil
	}
}

// WithDeadline sets the time allowed for all provider calls of one request.
// Calls still running or waiting for a worker when it passes are abandoned.
//
// Default is 30 seconds.
func WithDeadline(d time.Duration) Option {
	return func(cfg *config) error {
		if d <= 0 {
			return errors.New("deadline must be positive")
		}
		cfg.deadline = d
		return nil
	}
}

// WithResultLimit sets the number of results requested per category.
//
// Default is 5.
func WithResultLimit(n int) Option {
	return func(cfg *config) error {
		if n < 1 {
			return errors.New("result limit must be at least 1")
		}
		cfg.resultLimit = n
		return nil
	}
}
