package geocache

import (
	"errors"
	"fmt"
	"math"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"github.com/headStarter-Travel-app/travelAppBackend/model"
)

type config struct {
	clock  clock.Clock
	margin float64
	newID  func() string
}

// Option is a function that sets a value in a config.
type Option func(*config) error

// getOpts creates a config and applies Options to it.
func getOpts(opts []Option) (config, error) {
	cfg := config{
		clock:  clock.New(),
		margin: model.DefaultMargin,
		newID:  uuid.NewString,
	}
	for i, opt := range opts {
		if err := opt(&cfg); err != nil {
			return config{}, fmt.Errorf("option %d failed: %s", i, err)
		}
	}
	return cfg, nil
}

// WithClock sets the clock used to stamp entries when they are written.
func WithClock(c clock.Clock) Option {
	return func(cfg *config) error {
		if c != nil {
			cfg.clock = c
		}
		return nil
	}
}

// WithMargin sets the half-width, in degrees, of the bounding box searched
// by QueryNear.
//
// Default is 0.05.
func WithMargin(margin float64) Option {
	return func(cfg *config) error {
		if margin < 0 || math.IsNaN(margin) {
			return errors.New("margin must be a non-negative number")
		}
		cfg.margin = margin
		return nil
	}
}

// WithIDGenerator sets the function that generates IDs for new entries.
//
// Default generates random UUIDs.
func WithIDGenerator(newID func() string) Option {
	return func(cfg *config) error {
		if newID == nil {
			return errors.New("nil id generator")
		}
		cfg.newID = newID
		return nil
	}
}
