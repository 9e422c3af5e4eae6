package app

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/charpstar/pipeline-backend/internal/data/db"
	apphttp "github.com/charpstar/pipeline-backend/internal/http"
	"github.com/charpstar/pipeline-backend/internal/observability"
	"github.com/charpstar/pipeline-backend/internal/platform/envutil"
	"github.com/charpstar/pipeline-backend/internal/platform/logger"
)

type App struct {
	Log      *logger.Logger
	DB       *gorm.DB
	Server   *apphttp.Server
	Cfg      Config
	Repos    Repos
	Clients  Clients
	Services Services
	Metrics  *observability.Metrics

	pg           *db.PostgresService
	otelShutdown func(context.Context) error
	cancel       context.CancelFunc
}

// New loads config and wires every dependency. Nothing runs until Start.
func New(ctx context.Context) (*App, error) {
	log, err := logger.New(envutil.String("LOG_MODE", "development"))
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	a, err := build(ctx, log)
	if err != nil {
		log.Sync()
		return nil, err
	}
	return a, nil
}

// NewForTooling wires the app with a caller-owned logger. pipelinectl uses it
// and never calls Start or Run.
func NewForTooling(ctx context.Context, log *logger.Logger) (*App, error) {
	return build(ctx, log)
}

func build(ctx context.Context, log *logger.Logger) (*App, error) {
	log.Info("Loading configuration...")
	cfg, err := LoadConfig(log)
	if err != nil {
		return nil, err
	}

	metrics := observability.Init(log)
	otelShutdown := observability.InitOTel(ctx, log, observability.OtelConfig{
		ServiceName: cfg.ServiceName,
		Environment: cfg.Environment,
		Version:     envutil.String("APP_VERSION", ""),
	})

	pg, err := db.NewPostgresServiceWithDSN(log, cfg.PostgresDSN)
	if err != nil {
		_ = otelShutdown(ctx)
		return nil, fmt.Errorf("init postgres: %w", err)
	}
	if envutil.Bool("POSTGRES_AUTOMIGRATE", true) {
		if err := pg.AutoMigrateAll(); err != nil {
			_ = pg.Close()
			_ = otelShutdown(ctx)
			return nil, fmt.Errorf("postgres automigrate: %w", err)
		}
	}
	theDB := pg.DB()

	reposet := wireRepos(theDB, log)
	clients, err := wireClients(ctx, log, cfg)
	if err != nil {
		_ = pg.Close()
		_ = otelShutdown(ctx)
		return nil, err
	}
	serviceset, err := wireServices(theDB, log, cfg, reposet, clients, metrics)
	if err != nil {
		clients.Close()
		_ = pg.Close()
		_ = otelShutdown(ctx)
		return nil, err
	}

	return &App{
		Log:          log,
		DB:           theDB,
		Server:       wireServer(theDB, log, cfg, serviceset, metrics),
		Cfg:          cfg,
		Repos:        reposet,
		Clients:      clients,
		Services:     serviceset,
		Metrics:      metrics,
		pg:           pg,
		otelShutdown: otelShutdown,
	}, nil
}

// Start launches the side-effect executor: the Temporal worker when one is
// configured, otherwise the local poll loops.
func (a *App) Start() error {
	if a == nil || a.cancel != nil {
		return nil
	}
	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel

	if a.Services.TemporalWorker != nil {
		if err := a.Services.TemporalWorker.Start(ctx); err != nil {
			return fmt.Errorf("start temporal worker: %w", err)
		}
		return nil
	}
	if a.Services.Worker != nil {
		a.Services.Worker.Start(ctx)
	}
	return nil
}

func (a *App) Run() error {
	if a == nil || a.Server == nil {
		return fmt.Errorf("app not initialized")
	}
	a.Log.Info("Server listening", "addr", a.Cfg.Addr())
	return a.Server.Run(a.Cfg.Addr())
}

// Close stops the HTTP server, waits for queued dispatches and worker loops,
// then releases clients and the database pool.
func (a *App) Close(ctx context.Context) {
	if a == nil {
		return
	}
	if a.Server != nil {
		if err := a.Server.Shutdown(ctx); err != nil {
			a.Log.Warn("HTTP shutdown failed", "error", err)
		}
	}
	if a.Services.Dispatcher != nil {
		a.Services.Dispatcher.Wait()
	}
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
		if a.Services.TemporalWorker == nil && a.Services.Worker != nil {
			a.Services.Worker.Wait()
		}
	}
	a.Clients.Close()
	if a.pg != nil {
		if err := a.pg.Close(); err != nil {
			a.Log.Warn("Postgres close failed", "error", err)
		}
	}
	if a.otelShutdown != nil {
		_ = a.otelShutdown(ctx)
	}
	a.Log.Sync()
}
