package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/headStarter-Travel-app/travelAppBackend/aggregator"
	"github.com/headStarter-Travel-app/travelAppBackend/config"
	"github.com/headStarter-Travel-app/travelAppBackend/provider"
	"github.com/headStarter-Travel-app/travelAppBackend/provider/applemaps"
	"github.com/headStarter-Travel-app/travelAppBackend/provider/googleplaces"
	"github.com/headStarter-Travel-app/travelAppBackend/recommend"
	"github.com/headStarter-Travel-app/travelAppBackend/store"
	"github.com/headStarter-Travel-app/travelAppBackend/store/dsstore"
	"github.com/headStarter-Travel-app/travelAppBackend/store/esstore"
	"github.com/headStarter-Travel-app/travelAppBackend/store/pgstore"
	"github.com/headStarter-Travel-app/travelAppBackend/token"
)

var errNoAppleCredentials = errors.New("apple maps credentials not configured")

func openStore(ctx context.Context, cfg config.Config) (store.Store, error) {
	switch cfg.Store {
	case config.StorePostgres:
		return pgstore.Open(cfg.PostgresDSN)
	case config.StoreElastic:
		return esstore.Open(ctx, cfg.ElasticURL, cfg.ElasticIndex)
	}
	return dsstore.NewMemory(), nil
}

func providerOptions(cfg config.Config, baseURL string) []provider.Option {
	var opts []provider.Option
	if cfg.CallTimeout != 0 {
		opts = append(opts, provider.WithTimeout(cfg.CallTimeout))
	}
	if cfg.ResultLimit != 0 {
		opts = append(opts, provider.WithLimit(cfg.ResultLimit))
	}
	if cfg.RetryMax != 0 {
		opts = append(opts, provider.WithRetry(cfg.RetryMax, time.Second, 10*time.Second))
	}
	if baseURL != "" {
		opts = append(opts, provider.WithBaseURL(baseURL))
	}
	return opts
}

// newIssuer returns the Apple Maps token issuer, or an issuer that always
// fails if no credentials are configured.
func newIssuer(cfg config.Config) (token.Issuer, error) {
	if !cfg.AppleConfigured() {
		return token.IssuerFunc(func(context.Context) (token.Token, error) {
			return token.Token{}, errNoAppleCredentials
		}), nil
	}
	keyPEM, err := os.ReadFile(cfg.AppleKeyFile)
	if err != nil {
		return nil, fmt.Errorf("cannot read apple maps key: %w", err)
	}
	return applemaps.NewIssuer(cfg.AppleTeamID, cfg.AppleKeyID, keyPEM, providerOptions(cfg, cfg.AppleBaseURL)...)
}

func newTokenManager(cfg config.Config) (*token.Manager, error) {
	issuer, err := newIssuer(cfg)
	if err != nil {
		return nil, err
	}
	opts := []token.Option{token.WithRefreshInterval(cfg.RefreshInterval)}
	if tok, ok := cfg.DevToken(); ok {
		log.Warn("Development mode: using token from PROXI_TOKEN_TEMP")
		opts = append(opts, token.WithInitialToken(tok, time.Time{}))
	}
	return token.New(issuer, opts...)
}

// newAggregator routes searches to Apple Maps when it can obtain a token,
// and otherwise to Google Places.
func newAggregator(cfg config.Config, cache aggregator.Cache, tokens provider.TokenSource, places *googleplaces.Client) (*aggregator.Aggregator, error) {
	opts := []aggregator.Option{
		aggregator.WithWorkers(cfg.Workers),
		aggregator.WithCallTimeout(cfg.CallTimeout),
		aggregator.WithDeadline(cfg.Deadline),
		aggregator.WithResultLimit(cfg.ResultLimit),
	}
	_, dev := cfg.DevToken()
	switch {
	case cfg.AppleConfigured() || dev:
		maps, err := applemaps.New(tokens, providerOptions(cfg, cfg.AppleBaseURL)...)
		if err != nil {
			return nil, err
		}
		opts = append(opts, aggregator.WithProvider(maps))
	case places != nil:
		opts = append(opts, aggregator.WithProvider(places))
	}
	return aggregator.New(cache, opts...)
}

func newPlaces(cfg config.Config) (*googleplaces.Client, error) {
	if cfg.GoogleAPIKey == "" {
		return nil, nil
	}
	return googleplaces.New(cfg.GoogleAPIKey, providerOptions(cfg, cfg.GoogleBaseURL)...)
}

func serviceOptions(cfg config.Config, tokens *token.Manager, places *googleplaces.Client) []recommend.Option {
	opts := []recommend.Option{
		recommend.WithDefaultCategories(cfg.Categories...),
		recommend.WithTopK(cfg.TopK),
		recommend.WithTokenSource(tokens),
	}
	if places != nil {
		opts = append(opts, recommend.WithPlaceFinder(places))
	}
	return opts
}
