// Package cli wires the engine's collaborators behind the command
// surface: configuration, logging, persistence, use cases, the session
// registry and the HTTP host.
package cli

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/quadpane/quadpane/internal/application/usecase"
	"github.com/quadpane/quadpane/internal/compositor"
	"github.com/quadpane/quadpane/internal/config"
	"github.com/quadpane/quadpane/internal/connector"
	"github.com/quadpane/quadpane/internal/domain/build"
	"github.com/quadpane/quadpane/internal/domain/repository"
	"github.com/quadpane/quadpane/internal/infrastructure/favicon"
	"github.com/quadpane/quadpane/internal/infrastructure/httpd"
	"github.com/quadpane/quadpane/internal/infrastructure/persistence/sqlite"
	"github.com/quadpane/quadpane/internal/logging"
)

// maintenanceInterval is how often the history retention policy and the
// favicon cache pruning run while serving.
const maintenanceInterval = time.Hour

// Options carries command-line overrides applied on top of the loaded
// configuration.
type Options struct {
	ConfigFile string
	Addr       string
	DBPath     string
}

// App holds the wired collaborators shared by the serve and inspect
// commands.
type App struct {
	Manager   *config.Manager
	BuildInfo build.Info
	Registry  *compositor.Registry
	History   repository.HistoryRepository
	Favicons  *favicon.Service
	Server    *httpd.Server

	ctx context.Context
	db  *sql.DB
}

// NewApp loads configuration, opens the database and wires the engine.
func NewApp(opts Options) (*App, error) {
	mgr, err := config.NewManagerWithFile(opts.ConfigFile)
	if err != nil {
		return nil, fmt.Errorf("create config manager: %w", err)
	}
	if err := mgr.Load(); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	cfg := mgr.Get()

	logger := logging.New(logging.Config{
		Level:      logging.ParseLevel(cfg.Logging.Level),
		Format:     cfg.Logging.Format,
		TimeFormat: "15:04:05",
	})
	ctx := logging.WithContext(context.Background(), logger)

	dbPath := cfg.Database.Path
	if opts.DBPath != "" {
		dbPath = opts.DBPath
	}
	db, err := sqlite.NewConnection(ctx, dbPath, cfg.Database.BusyTimeout())
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	history := sqlite.NewHistoryRepository(db)
	favicons := favicon.NewService(sqlite.NewFaviconCacheRepository(db), favicon.Options{
		FetchTimeout: cfg.Favicons.FetchTimeout(),
		CacheTTL:     cfg.Favicons.CacheTTL(),
	})

	registry := compositor.NewRegistry(compositor.RegistryOptions{
		Editor:        usecase.NewEditLayoutUseCase(func() string { return uuid.NewString() }),
		Resize:        usecase.NewResizeLayoutUseCase(),
		Recorder:      usecase.NewRecordVisitUseCase(history),
		Favicons:      favicons,
		Shortcuts:     func() connector.ShortcutMap { return mgr.Get().Shortcuts.ShortcutMap() },
		StateDebounce: cfg.State.Debounce(),
	})

	addr := cfg.Server.Addr
	if opts.Addr != "" {
		addr = opts.Addr
	}
	server := httpd.NewServer(addr, httpd.NewHandler(registry, history, mgr.Get))

	return &App{
		Manager:  mgr,
		Registry: registry,
		History:  history,
		Favicons: favicons,
		Server:   server,
		ctx:      ctx,
		db:       db,
	}, nil
}

// Context returns the application context carrying the logger.
func (a *App) Context() context.Context { return a.ctx }

// Serve runs the HTTP host until ctx is canceled, alongside the config
// watcher and periodic maintenance. Shutdown closes sessions first so
// debounced state encoders flush and event streams end before the
// listener stops accepting.
func (a *App) Serve(ctx context.Context) error {
	log := logging.FromContext(a.ctx)

	if err := a.Server.Start(a.ctx); err != nil {
		return fmt.Errorf("start server: %w", err)
	}

	if err := a.Manager.Watch(); err != nil {
		log.Warn().Err(err).Msg("config watch unavailable")
	}
	a.Manager.OnConfigChange(func(*config.Config) {
		log.Info().Msg("configuration reloaded")
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return a.maintenanceLoop(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx := context.WithoutCancel(a.ctx)
		a.Registry.CloseAll(shutdownCtx)
		return a.Server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func (a *App) maintenanceLoop(ctx context.Context) error {
	ticker := time.NewTicker(maintenanceInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			a.runMaintenance()
		}
	}
}

// runMaintenance applies the history retention policy and drops stale
// favicon cache rows. Failures are logged; the next tick retries.
func (a *App) runMaintenance() {
	log := logging.FromContext(a.ctx)
	cfg := a.Manager.Get()

	if days := cfg.History.RetentionDays; days > 0 {
		cutoff := time.Now().AddDate(0, 0, -days)
		if err := a.History.DeleteOlderThan(a.ctx, cutoff); err != nil {
			log.Warn().Err(err).Msg("history retention sweep failed")
		}
	}
	if max := cfg.History.MaxEntries; max > 0 {
		if err := a.History.TrimOverflow(a.ctx, max); err != nil {
			log.Warn().Err(err).Msg("history overflow trim failed")
		}
	}
	if err := a.Favicons.Prune(a.ctx); err != nil {
		log.Warn().Err(err).Msg("favicon cache prune failed")
	}
}

// Close releases the app's resources. Safe to call after Serve has
// already shut the server down.
func (a *App) Close() error {
	a.Registry.CloseAll(context.WithoutCancel(a.ctx))
	if a.db != nil {
		return a.db.Close()
	}
	return nil
}
