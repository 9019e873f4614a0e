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

	"github.com/starford/gebo/internal/mcpserver"
	"github.com/starford/gebo/internal/search"
	"github.com/starford/gebo/internal/snippetservice"
	"github.com/starford/gebo/internal/sse"
	"github.com/starford/gebo/internal/store"
	"github.com/starford/gebo/internal/userservice"
	"github.com/starford/gebo/internal/web"
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
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("index_path", cfg.Index.Path),
		slog.String("auth_mode", cfg.Auth.Mode),
		slog.String("log_level", cfg.App.LogLevel.String()))

	// The index client is built once and injected into both the sync
	// adapter and the query path.
	idx, err := search.OpenBleve(cfg.Index.Path)
	if err != nil {
		return fmt.Errorf("init search index: %w", err)
	}
	defer idx.Close()

	syncer, err := search.NewSyncer(idx, search.DefaultFields)
	if err != nil {
		return fmt.Errorf("init sync adapter: %w", err)
	}

	// The record store carries the sync adapter as an explicit collaborator:
	// every committed mutation is projected into the index before the
	// caller gets control back.
	st, err := store.Open(cfg.SQLite.Path, syncer)
	if err != nil {
		return fmt.Errorf("init record store: %w", err)
	}
	defer st.Close()

	// SSE broker for snippet lifecycle events.
	broker := sse.NewBroker()
	defer broker.Close()

	// Services and page handlers.
	snippets := snippetservice.NewService(st, idx, cfg.Search.ResultLimit, broker)
	users := userservice.NewService(st)
	handler, err := web.NewHandler(snippets, users, cfg.Session.Secret, cfg.Auth.AuthEnabled())
	if err != nil {
		return fmt.Errorf("init web handler: %w", err)
	}

	// Build chi router.
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints.
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Mount("/", web.NewRouter(handler, broker))

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	g, gCtx := errgroup.WithContext(ctx)

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

		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// Reindex rebuilds the search index from the record store: every document is
// removed, then every snippet re-projected. This is the reconciliation path
// after an index outage left the store and the index diverged.
func Reindex(_ context.Context, cfg *Config) error {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))

	idx, err := search.OpenBleve(cfg.Index.Path)
	if err != nil {
		return fmt.Errorf("init search index: %w", err)
	}
	defer idx.Close()

	syncer, err := search.NewSyncer(idx, search.DefaultFields)
	if err != nil {
		return fmt.Errorf("init sync adapter: %w", err)
	}

	// No hook here: the reindex reads the store, it never mutates it.
	st, err := store.Open(cfg.SQLite.Path, nil)
	if err != nil {
		return fmt.Errorf("init record store: %w", err)
	}
	defer st.Close()

	return syncer.Reindex(st, logger)
}

// ServeMCP exposes the snippet tools over MCP stdio transport.
func ServeMCP(cfg *Config) error {
	idx, err := search.OpenBleve(cfg.Index.Path)
	if err != nil {
		return fmt.Errorf("init search index: %w", err)
	}
	defer idx.Close()

	syncer, err := search.NewSyncer(idx, search.DefaultFields)
	if err != nil {
		return fmt.Errorf("init sync adapter: %w", err)
	}

	st, err := store.Open(cfg.SQLite.Path, syncer)
	if err != nil {
		return fmt.Errorf("init record store: %w", err)
	}
	defer st.Close()

	snippets := snippetservice.NewService(st, idx, cfg.Search.ResultLimit, nil)
	return mcpserver.New(snippets).ServeStdio()
}

// AddUser creates an account from the command line.
func AddUser(ctx context.Context, cfg *Config, username, password, confirm string) error {
	st, err := store.Open(cfg.SQLite.Path, nil)
	if err != nil {
		return fmt.Errorf("init record store: %w", err)
	}
	defer st.Close()

	u, err := userservice.NewService(st).Register(ctx, username, password, confirm)
	if err != nil {
		return err
	}
	fmt.Printf("Created user %s (id %d)\n", u.Username, u.ID)
	return nil
}
