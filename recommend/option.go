package recommend

import (
	"errors"
	"fmt"
)

// DefaultTopK is the number of candidates returned when a request does not
// set a limit.
const DefaultTopK = 20

// DefaultCategories are searched when a request names none.
var DefaultCategories = []string{"food", "entertainment", "nature/park"}

type config struct {
	categories []string
	topK       int
	tokens     TokenSource
	finder     PlaceFinder
}

// Option is a function that sets a value in a config.
type Option func(*config) error

// getOpts creates a config and applies Options to it.
func getOpts(opts []Option) (config, error) {
	cfg := config{
		categories: DefaultCategories,
		topK:       DefaultTopK,
	}
	for i, opt := range opts {
		if err := opt(&cfg); err != nil {
			return config{}, fmt.Errorf("option %d failed: %s", i, err)
		}
	}
	return cfg, nil
}

// WithDefaultCategories sets the categories searched when a request names
// none.
func WithDefaultCategories(categories ...string) Option {
	return func(cfg *config) error {
		if len(categories) == 0 {
			return errors.New("at least one default category required")
		}
		cfg.categories = append([]string(nil), categories...)
		return nil
	}
}

// WithTopK sets the default number of candidates returned.
//
// Default is 20.
func WithTopK(k int) Option {
	return func(cfg *config) error {
		if k < 1 {
			return errors.New("topK must be at least 1")
		}
		cfg.topK = k
		return nil
	}
}

// WithTokenSource sets the credential manager reported by CurrentToken and
// TokenStatus.
func WithTokenSource(ts TokenSource) Option {
	return func(cfg *config) error {
		cfg.tokens = ts
		return nil
	}
}

// WithPlaceFinder sets the provider used for place details lookups.
func WithPlaceFinder(f PlaceFinder) Option {
	return func(cfg *config) error {
		cfg.finder = f
		return nil
	}
}
