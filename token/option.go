package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/benbjohnson/clock"
)

const (
	// DefaultRefreshInterval is how often the scheduler renews the token.
	DefaultRefreshInterval = 7 * 24 * time.Hour

	defaultRefreshTimeout = 30 * time.Second
	defaultExpiryLeeway   = time.Minute
	defaultFailureBackoff = time.Minute
)

type config struct {
	clock          clock.Clock
	interval       time.Duration
	refreshTimeout time.Duration
	leeway         time.Duration
	backoff        time.Duration
	initial        *Token
}

// Option is a function that sets a value in a config.
type Option func(*config) error

// getOpts creates a config and applies Options to it.
func getOpts(opts []Option) (config, error) {
	cfg := config{
		clock:          clock.New(),
		interval:       DefaultRefreshInterval,
		refreshTimeout: defaultRefreshTimeout,
		leeway:         defaultExpiryLeeway,
		backoff:        defaultFailureBackoff,
	}
	for i, opt := range opts {
		if err := opt(&cfg); err != nil {
			return config{}, fmt.Errorf("option %d failed: %s", i, err)
		}
	}
	return cfg, nil
}

// WithClock sets the clock used for expiry checks and the refresh schedule.
func WithClock(c clock.Clock) Option {
	return func(cfg *config) error {
		if c != nil {
			cfg.clock = c
		}
		return nil
	}
}

// WithRefreshInterval sets the interval between scheduled refreshes.
//
// Default is 7 days.
func WithRefreshInterval(interval time.Duration) Option {
	return func(cfg *config) error {
		if interval <= 0 {
			return errors.New("refresh interval must be positive")
		}
		cfg.interval = interval
		return nil
	}
}

// WithRefreshTimeout sets the time allowed for one call to the issuer.
//
// Default is 30 seconds.
func WithRefreshTimeout(timeout time.Duration) Option {
	return func(cfg *config) error {
		if timeout <= 0 {
			return errors.New("refresh timeout must be positive")
		}
		cfg.refreshTimeout = timeout
		return nil
	}
}

// WithExpiryLeeway treats a token as expired this long before its expiry
// time, so that a token is never handed out just as it lapses.
//
// Default is 1 minute.
func WithExpiryLeeway(leeway time.Duration) Option {
	return func(cfg *config) error {
		cfg.leeway = leeway
		return nil
	}
}

// WithFailureBackoff sets how long after a failed refresh the last token is
// served as-is before another refresh is attempted.
//
// Default is 1 minute.
func WithFailureBackoff(backoff time.Duration) Option {
	return func(cfg *config) error {
		cfg.backoff = backoff
		return nil
	}
}

// WithInitialToken seeds the manager with a token, such as a development
// token taken from the environment. A zero expiresAt means the token does
// not expire on its own and is replaced at the next scheduled refresh.
func WithInitialToken(value string, expiresAt time.Time) Option {
	return func(cfg *config) error {
		if value == "" {
			return errors.New("empty initial token")
		}
		cfg.initial = &Token{Value: value, ExpiresAt: expiresAt}
		return nil
	}
}
