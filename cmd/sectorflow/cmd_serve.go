package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/rewired-gh/sectorflow/internal/cache"
	"github.com/rewired-gh/sectorflow/internal/config"
	"github.com/rewired-gh/sectorflow/internal/feed"
	"github.com/rewired-gh/sectorflow/internal/logger"
	"github.com/rewired-gh/sectorflow/internal/market"
	"github.com/rewired-gh/sectorflow/internal/metrics"
	"github.com/rewired-gh/sectorflow/internal/monitor"
	"github.com/rewired-gh/sectorflow/internal/pulse"
	"github.com/rewired-gh/sectorflow/internal/scheduler"
	"github.com/rewired-gh/sectorflow/internal/server"
	"github.com/rewired-gh/sectorflow/internal/storage"
	"github.com/rewired-gh/sectorflow/internal/stooq"
	"github.com/rewired-gh/sectorflow/internal/telegram"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and the digest scheduler",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	reg := metrics.NewRegistry()

	gen, err := newGenerator(cfg)
	if err != nil {
		return err
	}

	store, err := storage.Open(cfg.Storage.DBPath, cfg.Storage.MaxSnapshots)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("Failed to close storage: %v", err)
		}
	}()

	marketSvc, closeCache := newMarketService(cmd.Context(), cfg, reg)
	defer closeCache()

	// Setup graceful shutdown
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Scheduler.Enabled {
		job, err := newDigestJob(cfg, gen, store, reg)
		if err != nil {
			return err
		}
		sched := scheduler.New(logger.Get())
		if err := sched.AddJob(cfg.Scheduler.DigestSpec, job); err != nil {
			return fmt.Errorf("failed to schedule digest: %w", err)
		}
		sched.Start()
		defer sched.Stop()
		logger.Info("Digest scheduled (%s)", cfg.Scheduler.DigestSpec)
	} else {
		logger.Debug("Digest scheduler disabled")
	}

	srv := server.New(server.Config{
		Addr:         cfg.Server.Addr,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		CORSOrigins:  cfg.Server.CORSOrigins,
		Log:          logger.Get(),
		Feed:         gen,
		Market:       marketSvc,
		Pulse:        pulse.NewService(marketSvc, gen.Universe()),
		History:      store,
		Metrics:      reg,
	})

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received, cleaning up...")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server failed: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server shutdown: %w", err)
	}
	logger.Info("Service stopped")
	return nil
}

func newGenerator(cfg *config.Config) (*feed.Generator, error) {
	gen, err := feed.NewGenerator(feed.DefaultUniverse(), feed.ParamsFromConfig(cfg.Feed))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize feed generator: %w", err)
	}
	return gen, nil
}

// newMarketService wires the stooq client and the optional redis cache.
// The returned func closes the cache connection.
func newMarketService(ctx context.Context, cfg *config.Config, reg *metrics.Registry) (*market.Service, func()) {
	opts := []market.Option{market.WithMetrics(reg)}
	closeCache := func() {}

	if cfg.Cache.Enabled {
		rc := cache.NewRedis(cfg.Cache)
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		if err := rc.Ping(pingCtx); err != nil {
			logger.Warn("Redis cache unreachable at %s, lookups will miss: %v", cfg.Cache.Addr, err)
		} else {
			logger.Info("Redis cache connected at %s", cfg.Cache.Addr)
		}
		cancel()
		opts = append(opts, market.WithCache(rc))
		closeCache = func() {
			if err := rc.Close(); err != nil {
				logger.Error("Failed to close redis cache: %v", err)
			}
		}
	} else {
		logger.Debug("Return cache disabled")
	}

	return market.NewService(stooq.NewClient(cfg.Market), cfg.Market, opts...), closeCache
}

// newDigestJob builds the archive-compare-notify job. Telegram is optional.
func newDigestJob(cfg *config.Config, gen *feed.Generator, store *storage.Store, reg *metrics.Registry) (*scheduler.DigestJob, error) {
	job := &scheduler.DigestJob{
		Feed:     gen,
		Archive:  store,
		Comparer: monitor.New(store),
		Metrics:  reg,
	}

	if cfg.Telegram.Enabled {
		tg, err := telegram.NewClient(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Telegram.MaxRetries, cfg.Telegram.RetryDelayBase)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Telegram client: %w", err)
		}
		job.Notifier = tg
		logger.Info("Telegram client initialized successfully")
	} else {
		logger.Debug("Telegram notifications disabled")
	}
	return job, nil
}
