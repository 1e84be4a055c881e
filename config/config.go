// Package config loads the proxilink server configuration from PROXI_*
// environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
)

// Store backends.
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
	StoreElastic  = "elastic"
)

// Config is the server configuration.
type Config struct {
	// ListenAddr is the HTTP listen address.
	ListenAddr string

	// Store selects the persistent store: memory, postgres, or elastic.
	Store        string
	PostgresDSN  string
	ElasticURL   string
	ElasticIndex string

	// Apple Maps credentials used to mint access tokens.
	AppleTeamID  string
	AppleKeyID   string
	AppleKeyFile string
	AppleBaseURL string

	GoogleAPIKey  string
	GoogleBaseURL string

	Margin      float64
	TopK        int
	Categories  []string
	Workers     int
	ResultLimit int
	CallTimeout time.Duration
	Deadline    time.Duration
	RetryMax    int

	RefreshInterval time.Duration

	// Dev enables development mode, in which TokenTemp seeds the token
	// manager.
	Dev       bool
	TokenTemp string
}

// Load reads the configuration from the environment, applying defaults for
// unset variables, and validates it.
func Load() (Config, error) {
	var errs error
	cfg := Config{
		ListenAddr:    getEnvOrDefault("PROXI_LISTEN_ADDR", ":8000"),
		Store:         getEnvOrDefault("PROXI_STORE", StoreMemory),
		PostgresDSN:   os.Getenv("PROXI_POSTGRES_DSN"),
		ElasticURL:    getEnvOrDefault("PROXI_ELASTIC_URL", "http://localhost:9200"),
		ElasticIndex:  getEnvOrDefault("PROXI_ELASTIC_INDEX", "locations"),
		AppleTeamID:   os.Getenv("PROXI_APPLE_TEAM_ID"),
		AppleKeyID:    os.Getenv("PROXI_APPLE_KEY_ID"),
		AppleKeyFile:  os.Getenv("PROXI_APPLE_KEY_FILE"),
		AppleBaseURL:  os.Getenv("PROXI_APPLE_BASE_URL"),
		GoogleAPIKey:  os.Getenv("PROXI_GOOGLE_API_KEY"),
		GoogleBaseURL: os.Getenv("PROXI_GOOGLE_BASE_URL"),
		Categories:    splitList(getEnvOrDefault("PROXI_CATEGORIES", "food,entertainment,nature/park")),
		TokenTemp:     os.Getenv("PROXI_TOKEN_TEMP"),
	}

	var err error
	if cfg.Margin, err = getFloat("PROXI_MARGIN", 0.05); err != nil {
		errs = multierror.Append(errs, err)
	}
	if cfg.TopK, err = getInt("PROXI_TOP_K", 20); err != nil {
		errs = multierror.Append(errs, err)
	}
	if cfg.Workers, err = getInt("PROXI_WORKERS", 4); err != nil {
		errs = multierror.Append(errs, err)
	}
	if cfg.ResultLimit, err = getInt("PROXI_RESULT_LIMIT", 5); err != nil {
		errs = multierror.Append(errs, err)
	}
	if cfg.RetryMax, err = getInt("PROXI_RETRY_MAX", 0); err != nil {
		errs = multierror.Append(errs, err)
	}
	if cfg.CallTimeout, err = getDuration("PROXI_CALL_TIMEOUT", 10*time.Second); err != nil {
		errs = multierror.Append(errs, err)
	}
	if cfg.Deadline, err = getDuration("PROXI_DEADLINE", 30*time.Second); err != nil {
		errs = multierror.Append(errs, err)
	}
	if cfg.RefreshInterval, err = getDuration("PROXI_TOKEN_REFRESH", 7*24*time.Hour); err != nil {
		errs = multierror.Append(errs, err)
	}
	if cfg.Dev, err = getBool("PROXI_DEV"); err != nil {
		errs = multierror.Append(errs, err)
	}
	if errs != nil {
		return Config{}, errs
	}
	if err = cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// AppleConfigured reports whether Apple Maps credentials are set.
func (c Config) AppleConfigured() bool {
	return c.AppleTeamID != "" && c.AppleKeyID != "" && c.AppleKeyFile != ""
}

// DevToken returns the development token and true when development mode
// supplies one.
func (c Config) DevToken() (string, bool) {
	if c.Dev && c.TokenTemp != "" {
		return c.TokenTemp, true
	}
	return "", false
}

// Validate checks that the configuration is usable, and returns every
// problem found.
func (c Config) Validate() error {
	var errs error
	switch c.Store {
	case StoreMemory:
	case StorePostgres:
		if c.PostgresDSN == "" {
			errs = multierror.Append(errs, errors.New("PROXI_POSTGRES_DSN required for postgres store"))
		}
	case StoreElastic:
		if c.ElasticURL == "" {
			errs = multierror.Append(errs, errors.New("PROXI_ELASTIC_URL required for elastic store"))
		}
	default:
		errs = multierror.Append(errs, fmt.Errorf("unknown store %q", c.Store))
	}

	if c.Margin < 0 {
		errs = multierror.Append(errs, errors.New("margin must not be negative"))
	}
	if c.TopK < 1 {
		errs = multierror.Append(errs, errors.New("top k must be at least 1"))
	}
	if c.Workers < 1 {
		errs = multierror.Append(errs, errors.New("workers must be at least 1"))
	}
	if c.ResultLimit < 1 {
		errs = multierror.Append(errs, errors.New("result limit must be at least 1"))
	}
	if c.RetryMax < 0 {
		errs = multierror.Append(errs, errors.New("retry max must not be negative"))
	}
	if c.CallTimeout <= 0 || c.Deadline <= 0 || c.RefreshInterval <= 0 {
		errs = multierror.Append(errs, errors.New("timeouts and intervals must be positive"))
	}
	if len(c.Categories) == 0 {
		errs = multierror.Append(errs, errors.New("at least one category required"))
	}

	_, dev := c.DevToken()
	if !c.AppleConfigured() && !dev && c.GoogleAPIKey == "" {
		errs = multierror.Append(errs, errors.New("no place provider configured: set Apple Maps credentials, PROXI_DEV with PROXI_TOKEN_TEMP, or PROXI_GOOGLE_API_KEY"))
	}
	return errs
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getInt(key string, defaultVal int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getFloat(key string, defaultVal float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return f, nil
}

func getDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func getBool(key string) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}

func splitList(s string) []string {
	var out []string
	for _, v := range strings.Split(s, ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
