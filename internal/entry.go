// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/ansuz/internal/api"
	"github.com/starford/ansuz/internal/export"
	"github.com/starford/ansuz/internal/ingest"
	"github.com/starford/ansuz/internal/mcpserver"
	"github.com/starford/ansuz/internal/metrics"
	"github.com/starford/ansuz/internal/noteservice"
	"github.com/starford/ansuz/internal/parser"
	"github.com/starford/ansuz/internal/sse"
)

func (app *application) init() (*Config, *slog.Logger, error) {
	if app.config == nil {
		return nil, nil, fmt.Errorf("config is required")
	}
	cfg := app.config

	// Initialize structured JSON logger.
	logger := slog.New(slog.NewJSONHandler(app.logOutput, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.Any("roots", cfg.Corpus.Roots),
		slog.String("extension", cfg.Corpus.Extension),
		slog.Int("workers", cfg.Corpus.Workers),
		slog.String("resolver", cfg.Graph.Resolver),
		slog.Bool("watch", cfg.Watch.Enabled),
		slog.String("log_level", cfg.App.LogLevel.String()))

	return cfg, logger, nil
}

func newPipeline(cfg *Config, logger *slog.Logger, observer ingest.Observer) *ingest.Pipeline {
	opts := []ingest.Option{
		ingest.WithExtension(cfg.Corpus.Extension),
		ingest.WithWorkers(cfg.Corpus.Workers),
		ingest.WithJournalSegment(cfg.Corpus.JournalSegment),
		ingest.WithGraphBuilder(cfg.Graph.Builder()),
	}
	if observer != nil {
		opts = append(opts, ingest.WithObserver(observer))
	}
	return ingest.NewPipeline(cfg.Corpus.Roots, logger, opts...)
}

// Run starts the HTTP server with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app := newApplication(opts)
	cfg, logger, err := app.init()
	if err != nil {
		return err
	}

	m := metrics.New()
	cache := ingest.NewCache(newPipeline(cfg, logger, m))

	// Build the first snapshot before accepting requests.
	if _, err := cache.Snapshot(ctx); err != nil {
		logger.Warn("initial ingest failed", slog.String("error", err.Error()))
	}

	// SSE broker.
	broker := sse.NewBroker(sse.DefaultStaleThrottle)
	defer broker.Close()

	svc := noteservice.NewService(cache)
	handler := api.NewHandler(svc, api.WithRefreshHook(func(s *ingest.Snapshot) {
		broker.PublishRebuilt(s.Generation, s.Stats.Notes)
	}))
	apiRouter := api.NewRouter(handler, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if cache.Current() == nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"no snapshot"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Handle("/metrics", m.Handler())

	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	if cfg.Watch.Enabled {
		g.Go(func() error {
			return ingest.Watch(gCtx, ingest.WatchConfig{
				Roots:     cfg.Corpus.Roots,
				Extension: cfg.Corpus.Extension,
				Debounce:  cfg.Watch.Debounce,
				OnChange: func(kind, path string) {
					broker.PublishNoteChange(sse.NoteChange{Kind: kind, Path: path, ID: parser.EncodeID(path)})
				},
				OnSettled: cache.Invalidate,
			}, logger)
		})
	}

	// Start HTTP server.
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		// Stop the watcher too.
		return errShutdown
	})

	if err := g.Wait(); err != nil && !errors.Is(err, errShutdown) {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// errShutdown cancels the errgroup context once the HTTP server is down.
var errShutdown = errors.New("shutdown")

// RunExport builds one snapshot and writes it to path in the given format.
// Empty arguments fall back to the export section of the configuration.
func RunExport(ctx context.Context, path, format string, opts ...Option) error {
	app := newApplication(opts)
	cfg, logger, err := app.init()
	if err != nil {
		return err
	}
	if path == "" {
		path = cfg.Export.Path
	}
	if format == "" {
		format = cfg.Export.Format
	}
	f, err := export.ParseFormat(format)
	if err != nil {
		return err
	}

	snap, err := newPipeline(cfg, logger, nil).Build(ctx)
	if err != nil {
		return fmt.Errorf("ingest: %w", err)
	}
	if err := export.Write(snap, f, path); err != nil {
		return err
	}

	logger.Info("Snapshot exported",
		slog.String("path", path),
		slog.String("format", string(f)),
		slog.String("generation", snap.Generation),
		slog.Int("notes", snap.Stats.Notes),
		slog.Int("journal", snap.Stats.Journal),
		slog.Int("edges", snap.Stats.Edges))
	return nil
}

// RunMCP serves the MCP tools over stdio. Logs must not go to stdout here;
// callers pass WithLogOutput(os.Stderr).
func RunMCP(ctx context.Context, opts ...Option) error {
	app := newApplication(opts)
	cfg, logger, err := app.init()
	if err != nil {
		return err
	}

	cache := ingest.NewCache(newPipeline(cfg, logger, nil))
	if _, err := cache.Snapshot(ctx); err != nil {
		logger.Warn("initial ingest failed", slog.String("error", err.Error()))
	}

	if cfg.Watch.Enabled {
		watchCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		go func() {
			err := ingest.Watch(watchCtx, ingest.WatchConfig{
				Roots:     cfg.Corpus.Roots,
				Extension: cfg.Corpus.Extension,
				Debounce:  cfg.Watch.Debounce,
				OnSettled: cache.Invalidate,
			}, logger)
			if err != nil {
				logger.Warn("watcher failed", slog.String("error", err.Error()))
			}
		}()
	}

	srv := mcpserver.New(noteservice.NewService(cache), app.version)
	logger.Info("MCP server starting on stdio")
	if err := srv.ServeStdio(); err != nil {
		return fmt.Errorf("mcp: %w", err)
	}
	return nil
}
