package application

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/stratis-storage/go-dbus-client-gen/internal/api"
	"github.com/stratis-storage/go-dbus-client-gen/internal/config"
	"github.com/stratis-storage/go-dbus-client-gen/internal/introspect"
	"github.com/stratis-storage/go-dbus-client-gen/internal/storage"
)

// App encapsulates the bridge dependencies and HTTP server.
type App struct {
	fetcher api.Fetcher
	store   *storage.SnapshotStore
	specs   *introspect.Registry
	handler *api.Handler
	router  http.Handler
	logger  *zap.Logger
	server  *http.Server
}

// New initializes the application with all dependencies from the provided
// configuration. The fetcher is supplied by the caller so the bridge can run
// against a live bus client or a stub.
func New(cfg config.Config, fetcher api.Fetcher, logger *zap.Logger) (*App, error) {
	store := storage.NewSnapshotStore()

	specs := introspect.NewRegistry()
	if cfg.SpecDir != "" {
		if err := specs.LoadDir(cfg.SpecDir); err != nil {
			return nil, fmt.Errorf("failed to load interface specifications: %w", err)
		}
	}

	handler := api.NewHandler(fetcher, store, specs)
	router := api.NewRouter(handler, logger,
		api.WithLogging(cfg.EnableRequestLogging),
		api.WithRateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst),
	)

	addr := cfg.Port
	if !strings.Contains(addr, ":") {
		addr = ":" + addr
	}

	server := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
	}

	return &App{
		fetcher: fetcher,
		store:   store,
		specs:   specs,
		handler: handler,
		router:  router,
		logger:  logger,
		server:  server,
	}, nil
}

// Prime fetches the initial managed-objects snapshot so the first requests
// do not observe an empty tree.
func (a *App) Prime(ctx context.Context) error {
	objects, err := a.fetcher.GetManagedObjects(ctx)
	if err != nil {
		return fmt.Errorf("initial managed objects fetch: %w", err)
	}
	a.store.Replace(objects)
	a.logger.Info("snapshot primed", zap.Int("objects", a.store.Len()))
	return nil
}

// Start starts the HTTP server in a goroutine and logs the listening address.
func (a *App) Start() error {
	go func() {
		a.logger.Info("server listening", zap.String("addr", a.server.Addr))
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Fatal("server error", zap.Error(err))
		}
	}()
	return nil
}

// Server returns the HTTP server instance for shutdown handling.
func (a *App) Server() *http.Server {
	return a.server
}

// Router returns the HTTP handler, primarily for tests.
func (a *App) Router() http.Handler {
	return a.router
}

// Store returns the snapshot store.
func (a *App) Store() *storage.SnapshotStore {
	return a.store
}
