package provider

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

const (
	defaultTimeout      = 10 * time.Second
	defaultLimit        = 5
	defaultRetryWaitMin = 1 * time.Second
	defaultRetryWaitMax = 10 * time.Second
)

// Config holds the settings shared by provider adapters.
type Config struct {
	BaseURL      string
	HTTPClient   *http.Client
	Timeout      time.Duration
	Limit        int
	RetryMax     int
	RetryWaitMin time.Duration
	RetryWaitMax time.Duration
	Header       http.Header
}

// Option is a function that sets a value in a Config.
type Option func(*Config) error

// GetOpts creates a Config with the given base URL as default and applies
// Options to it.
func GetOpts(baseURL string, opts []Option) (Config, error) {
	cfg := Config{
		BaseURL:      baseURL,
		Timeout:      defaultTimeout,
		Limit:        defaultLimit,
		RetryWaitMin: defaultRetryWaitMin,
		RetryWaitMax: defaultRetryWaitMax,
	}
	for i, opt := range opts {
		if err := opt(&cfg); err != nil {
			return Config{}, fmt.Errorf("option %d failed: %s", i, err)
		}
	}
	return cfg, nil
}

// WithBaseURL sets the scheme and host that requests are sent to.
func WithBaseURL(baseURL string) Option {
	return func(cfg *Config) error {
		u, err := url.Parse(baseURL)
		if err != nil {
			return err
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return fmt.Errorf("url must have http or https scheme: %s", baseURL)
		}
		cfg.BaseURL = baseURL
		return nil
	}
}

// WithClient sets the underlying http client. Its timeout is replaced by the
// value of WithTimeout.
func WithClient(c *http.Client) Option {
	return func(cfg *Config) error {
		if c != nil {
			cfg.HTTPClient = c
		}
		return nil
	}
}

// WithTimeout sets the timeout for one HTTP request, including any retries.
//
// Default is 10 seconds.
func WithTimeout(timeout time.Duration) Option {
	return func(cfg *Config) error {
		cfg.Timeout = timeout
		return nil
	}
}

// WithLimit sets the number of results requested when a query does not set
// one.
//
// Default is 5.
func WithLimit(n int) Option {
	return func(cfg *Config) error {
		if n < 1 {
			return errors.New("limit must be at least 1")
		}
		cfg.Limit = n
		return nil
	}
}

// WithRetry enables retrying failed requests up to retryMax times, waiting
// between waitMin and waitMax between attempts. A retryMax of 0 disables
// retries.
//
// Default is no retries.
func WithRetry(retryMax int, waitMin, waitMax time.Duration) Option {
	return func(cfg *Config) error {
		if retryMax < 0 {
			return errors.New("retry max must not be negative")
		}
		if waitMin > waitMax {
			return errors.New("retry wait min greater than max")
		}
		cfg.RetryMax = retryMax
		cfg.RetryWaitMin = waitMin
		cfg.RetryWaitMax = waitMax
		return nil
	}
}

// WithHeader adds a header sent with every request.
func WithHeader(key, value string) Option {
	return func(cfg *Config) error {
		if cfg.Header == nil {
			cfg.Header = make(http.Header)
		}
		cfg.Header.Add(key, value)
		return nil
	}
}

// NewHTTPClient returns the client adapters use to send requests. When
// retries are enabled it wraps a retrying client.
func (cfg Config) NewHTTPClient() *http.Client {
	var cli http.Client
	if cfg.HTTPClient != nil {
		cli = *cfg.HTTPClient
	}
	cli.Timeout = cfg.Timeout
	httpClient := &cli

	if cfg.RetryMax != 0 {
		rclient := &retryablehttp.Client{
			HTTPClient:   httpClient,
			RetryWaitMin: cfg.RetryWaitMin,
			RetryWaitMax: cfg.RetryWaitMax,
			RetryMax:     cfg.RetryMax,
			CheckRetry:   retryablehttp.DefaultRetryPolicy,
			Backoff:      retryablehttp.DefaultBackoff,
		}
		httpClient = rclient.StandardClient()
	}
	return httpClient
}

// ParseBaseURL parses the configured base URL.
func (cfg Config) ParseBaseURL() (*url.URL, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("no base url")
	}
	return url.Parse(cfg.BaseURL)
}

// AddHeaders adds the configured headers to req.
func (cfg Config) AddHeaders(req *http.Request) {
	for key, vals := range cfg.Header {
		for _, val := range vals {
			req.Header.Add(key, val)
		}
	}
}
