package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/headStarter-Travel-app/travelAppBackend/config"
	"github.com/headStarter-Travel-app/travelAppBackend/geocache"
	"github.com/headStarter-Travel-app/travelAppBackend/recommend"
	"github.com/headStarter-Travel-app/travelAppBackend/server"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 15 * time.Second

var (
	listenAddr string
	storeKind  string
	debugHTTP  bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the recommendation HTTP server",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&listenAddr, "listen", "", "HTTP listen address, overrides PROXI_LISTEN_ADDR")
	serveCmd.Flags().StringVar(&storeKind, "store", "", "Store backend (memory, postgres, elastic), overrides PROXI_STORE")
	serveCmd.Flags().BoolVar(&debugHTTP, "debug-http", false, "Log every HTTP route and request")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := openStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("cannot open %s store: %w", cfg.Store, err)
	}
	defer st.Close()

	cache, err := geocache.New(st, geocache.WithMargin(cfg.Margin))
	if err != nil {
		return err
	}

	tokens, err := newTokenManager(cfg)
	if err != nil {
		return err
	}
	places, err := newPlaces(cfg)
	if err != nil {
		return err
	}
	agg, err := newAggregator(cfg, cache, tokens, places)
	if err != nil {
		return err
	}
	svc, err := recommend.New(cache, agg, serviceOptions(cfg, tokens, places)...)
	if err != nil {
		return err
	}
	srv, err := server.New(cfg.ListenAddr, svc, server.WithDebug(debugHTTP))
	if err != nil {
		return err
	}

	if err = tokens.Start(); err != nil {
		return err
	}
	defer tokens.Stop()

	events, cancelEvents := tokens.OnRefresh()
	defer cancelEvents()
	go func() {
		for event := range events {
			if event.Err != nil {
				log.Errorw("Token refresh failed", "scheduled", event.Scheduled, "err", event.Err)
				continue
			}
			log.Infow("Token refreshed", "scheduled", event.Scheduled, "expiresAt", event.ExpiresAt)
		}
	}()

	if err = srv.Start(); err != nil {
		return err
	}
	log.Infow("Server started", "addr", srv.Addr(), "store", cfg.Store)

	<-ctx.Done()
	log.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func loadConfig() (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, fmt.Errorf("invalid configuration: %w", err)
	}
	if listenAddr != "" {
		cfg.ListenAddr = listenAddr
	}
	if storeKind != "" {
		cfg.Store = storeKind
		if err = cfg.Validate(); err != nil {
			return config.Config{}, fmt.Errorf("invalid configuration: %w", err)
		}
	}
	return cfg, nil
}
