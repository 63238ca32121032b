// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/iplantc/decat/internal/api"
	"github.com/iplantc/decat/internal/appservice"
	"github.com/iplantc/decat/internal/auth"
	"github.com/iplantc/decat/internal/catalog"
	"github.com/iplantc/decat/internal/mcpserver"
	"github.com/iplantc/decat/internal/seed"
	"github.com/iplantc/decat/internal/sse"
	"github.com/iplantc/decat/internal/storage"
)

// Version is stamped at build time.
var Version = "dev"

func newApplication(opts []Option) (*application, error) {
	app := &application{logOutput: os.Stdout, stdout: os.Stdout}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	return app, nil
}

func (a *application) logger() *slog.Logger {
	logger := slog.New(slog.NewJSONHandler(a.logOutput, &slog.HandlerOptions{
		Level: a.config.App.LogLevel,
	}))
	slog.SetDefault(logger)
	return logger
}

// openCatalog prepares the seed directory and the SQLite catalog, then
// applies the seed if it changed since the last run. A missing seed file
// leaves whatever the database already holds.
func openCatalog(cfg *Config, logger *slog.Logger) (storage.Provider, *catalog.DB, error) {
	if err := os.MkdirAll(cfg.Catalog.Dir(), 0o755); err != nil {
		return nil, nil, fmt.Errorf("create catalog dir: %w", err)
	}
	store, err := storage.NewFS(cfg.Catalog.Dir())
	if err != nil {
		return nil, nil, fmt.Errorf("init storage: %w", err)
	}

	db, err := catalog.Open(cfg.SQLite.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("init catalog: %w", err)
	}

	if _, err := catalog.Sync(db, store, cfg.Catalog.File(), logger); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			logger.Warn("seed file not found", slog.String("seed_path", cfg.Catalog.SeedPath))
		} else {
			logger.Warn("initial sync failed", slog.String("error", err.Error()))
		}
	}
	return store, db, nil
}

func authConfig(cfg *AuthConfig) (api.AuthConfig, error) {
	out := api.AuthConfig{Mode: cfg.Mode, Token: cfg.Token}
	if cfg.Mode == api.AuthJWT {
		v, err := auth.LoadVerifier(cfg.PublicKeyPath, cfg.Issuer)
		if err != nil {
			return out, err
		}
		out.Verifier = v
	}
	return out, nil
}

func healthHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

// Run starts the HTTP server with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config
	logger := app.logger()

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("seed_path", cfg.Catalog.SeedPath),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("auth_mode", cfg.Auth.Mode),
		slog.String("log_level", cfg.App.LogLevel.String()))

	store, db, err := openCatalog(cfg, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	authCfg, err := authConfig(&cfg.Auth)
	if err != nil {
		return fmt.Errorf("init auth: %w", err)
	}

	broker := sse.NewBroker(cfg.Events.TreeThrottle)
	defer broker.Close()

	svc := appservice.NewService(db, cfg.Workspace.workspace(), logger, appservice.WithEvents(broker))
	if err := svc.Reload(ctx); err != nil {
		logger.Warn("initial tree load failed", slog.String("error", err.Error()))
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", healthHandler)
	r.Get("/health/ready", healthHandler)

	r.Mount("/api", api.NewRouter(svc, authCfg, broker))

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gCtx := errgroup.WithContext(ctx)

	if cfg.Catalog.Watch {
		g.Go(func() error {
			err := catalog.Watch(gCtx, db, store, cfg.Catalog.File(), logger, func() {
				if err := svc.Reload(gCtx); err != nil {
					logger.Error("tree reload failed", slog.String("error", err.Error()))
				}
			})
			if err != nil {
				return fmt.Errorf("seed watcher: %w", err)
			}
			return nil
		})
	}

	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

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

		// SSE streams end when their channels close.
		broker.Close()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}
		return context.Canceled
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// ServeMCP serves the catalog over MCP on stdin/stdout. Logs go to
// the configured log output, which must not be stdout.
func ServeMCP(ctx context.Context, opts ...Option) error {
	app, err := newApplication(append([]Option{WithLogOutput(os.Stderr)}, opts...))
	if err != nil {
		return err
	}
	cfg := app.config
	logger := app.logger()

	_, db, err := openCatalog(cfg, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	svc := appservice.NewService(db, cfg.Workspace.workspace(), logger)
	if err := svc.Reload(ctx); err != nil {
		return fmt.Errorf("load category tree: %w", err)
	}

	logger.Info("MCP server starting", slog.String("version", Version))
	return mcpserver.New(svc, Version).ServeStdio()
}

// Export writes the current catalog, including runtime favorites and
// copies, as a seed document. An empty output goes to stdout; otherwise the
// file is replaced atomically, so exporting over the watched seed triggers
// exactly one reload.
func Export(_ context.Context, output string, opts ...Option) error {
	app, err := newApplication(append([]Option{WithLogOutput(os.Stderr)}, opts...))
	if err != nil {
		return err
	}
	logger := app.logger()

	db, err := catalog.Open(app.config.SQLite.Path)
	if err != nil {
		return fmt.Errorf("init catalog: %w", err)
	}
	defer db.Close()

	doc, err := db.Export()
	if err != nil {
		return fmt.Errorf("export catalog: %w", err)
	}
	data, err := seed.Marshal(doc)
	if err != nil {
		return err
	}

	if output == "" {
		_, err = app.stdout.Write(data)
		return err
	}
	store, err := storage.NewFS(filepath.Dir(output))
	if err != nil {
		return err
	}
	if err := store.Write(filepath.Base(output), data); err != nil {
		return err
	}
	logger.Info("catalog exported", slog.String("output", output), slog.Int("apps", len(doc.Apps)))
	return nil
}
