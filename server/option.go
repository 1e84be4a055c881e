package server

import (
	"errors"
	"fmt"
	"time"
)

const (
	defaultReadTimeout  = 30 * time.Second
	defaultWriteTimeout = 60 * time.Second
	defaultMaxLimit     = 100
)

type config struct {
	readTimeout  time.Duration
	writeTimeout time.Duration
	maxLimit     int
	debug        bool
}

// Option is a function that sets a value in a config.
type Option func(*config) error

// getOpts creates a config and applies Options to it.
func getOpts(opts []Option) (config, error) {
	cfg := config{
		readTimeout:  defaultReadTimeout,
		writeTimeout: defaultWriteTimeout,
		maxLimit:     defaultMaxLimit,
	}
	for i, opt := range opts {
		if err := opt(&cfg); err != nil {
			return config{}, fmt.Errorf("option %d failed: %s", i, err)
		}
	}
	return cfg, nil
}

// WithReadTimeout sets the HTTP server read timeout.
func WithReadTimeout(d time.Duration) Option {
	return func(cfg *config) error {
		cfg.readTimeout = d
		return nil
	}
}

// WithWriteTimeout sets the HTTP server write timeout. It must leave room for
// a request that searches the providers.
func WithWriteTimeout(d time.Duration) Option {
	return func(cfg *config) error {
		cfg.writeTimeout = d
		return nil
	}
}

// WithMaxLimit sets the largest number of recommendations a request may ask
// for.
//
// Default is 100.
func WithMaxLimit(n int) Option {
	return func(cfg *config) error {
		if n < 1 {
			return errors.New("max limit must be at least 1")
		}
		cfg.maxLimit = n
		return nil
	}
}

// WithDebug puts gin in debug mode, which logs every route and request.
func WithDebug(debug bool) Option {
	return func(cfg *config) error {
		cfg.debug = debug
		return nil
	}
}
