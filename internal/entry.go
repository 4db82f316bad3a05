// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/starford/raido/internal/changeset"
	"github.com/starford/raido/internal/mapper"
	"github.com/starford/raido/internal/mcpserver"
	"github.com/starford/raido/internal/reconcile"
	"github.com/starford/raido/internal/state"
	"github.com/starford/raido/internal/storage"
	"github.com/starford/raido/internal/store"
)

// Run starts the application with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app := &application{}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return fmt.Errorf("config is required")
	}

	cfg := app.config

	// Initialize structured JSON logger.
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("corpus_path", cfg.Corpus.Path),
		slog.String("state_path", cfg.State.Path),
		slog.String("store_base_url", cfg.Store.BaseURL),
		slog.String("collection_id", cfg.Store.CollectionID),
		slog.String("log_level", cfg.App.LogLevel.String()))

	// Initialize corpus storage.
	corpus, err := storage.NewFS(cfg.Corpus.Path)
	if err != nil {
		return fmt.Errorf("init storage: %w", err)
	}

	// Initialize sync-state database.
	db, err := state.Open(cfg.State.Path)
	if err != nil {
		return fmt.Errorf("init state db: %w", err)
	}
	defer db.Close()

	// Store client: injected fake or the real HTTP binding, sharing one
	// rate limiter across every call.
	client := app.client
	if client == nil {
		limiter := store.NewLimiter(cfg.Store.RatePerSec, cfg.Store.Burst)
		client = store.NewHTTPClient(cfg.Store.BaseURL, cfg.Store.Token, cfg.Store.CollectionID, limiter)
	}

	m := mapper.New(mapper.DefaultSchema())
	engine := reconcile.NewEngine(client, logger,
		reconcile.WithRetry(cfg.Sync.MaxAttempts, time.Duration(cfg.Sync.InitialBackoffMS)*time.Millisecond),
		reconcile.WithDryRun(app.modes.DryRun),
	)
	runner := reconcile.NewRunner(reconcile.RunnerConfig{
		Corpus:      corpus,
		States:      db,
		Mapper:      m,
		Engine:      engine,
		Logger:      logger,
		Concurrency: cfg.Sync.Concurrency,
		IDKey:       mapper.DefaultSchema().IDSource,
		DryRun:      app.modes.DryRun,
	})

	if app.modes.MCP {
		logger.Info("Serving MCP tools on stdio")
		return mcpserver.New(corpus, db, m, runner).ServeStdio()
	}

	mode := changeset.Delta
	if app.modes.All {
		mode = changeset.All
	}
	csOpts := changeset.Options{Explicit: app.modes.Paths}

	if !app.modes.Watch {
		summary, err := runner.Run(ctx, mode, csOpts)
		if err != nil {
			return err
		}
		if summary.Failed() {
			return fmt.Errorf("sync finished with %d failed document(s)", summary.Failures)
		}
		return nil
	}

	return runWatch(ctx, cfg, logger, runner, mode, csOpts)
}

// runWatch performs an initial pass, then stays resident re-running delta
// passes on debounced corpus changes until a signal or ctx cancellation.
// Per-pass failures are logged, not fatal: the next change gets another try.
func runWatch(ctx context.Context, cfg *Config, logger *slog.Logger, runner *reconcile.Runner, mode changeset.Mode, csOpts changeset.Options) error {
	g, gCtx := errgroup.WithContext(ctx)

	// One pass at a time; the watcher only ever queues delta passes.
	var passMu sync.Mutex
	pass := func(m changeset.Mode, o changeset.Options) {
		passMu.Lock()
		defer passMu.Unlock()
		if _, err := runner.Run(gCtx, m, o); err != nil {
			logger.Error("watch: sync pass failed", slog.String("error", err.Error()))
		}
	}

	pass(mode, csOpts)

	g.Go(func() error {
		return state.Watch(gCtx, cfg.Corpus.Path, logger, func() {
			pass(changeset.Delta, changeset.Options{})
		})
	})

	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
			return context.Canceled
		case <-gCtx.Done():
			return nil
		}
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Watcher stopped")
	return nil
}
