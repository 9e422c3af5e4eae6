package app

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/charpstar/pipeline-backend/internal/data/aggregates"
	"github.com/charpstar/pipeline-backend/internal/jobs/handlers"
	"github.com/charpstar/pipeline-backend/internal/jobs/worker"
	"github.com/charpstar/pipeline-backend/internal/observability"
	"github.com/charpstar/pipeline-backend/internal/platform/logger"
	"github.com/charpstar/pipeline-backend/internal/services"
	"github.com/charpstar/pipeline-backend/internal/temporalx/sideeffect"
	"github.com/charpstar/pipeline-backend/internal/temporalx/temporalworker"
)

type Services struct {
	Auth       services.AuthService
	Roles      services.RoleResolver
	Rollup     services.RollupService
	Cleanup    services.CleanupService
	Catalog    services.CatalogService
	Transition services.TransitionService
	Bulk       services.BulkService
	QATransfer services.QATransferService

	Dispatcher *services.OutboxDispatcher
	Worker     *worker.Worker
	// TemporalWorker is set when side effects run as Temporal workflows; the
	// local poll loops are not started in that mode.
	TemporalWorker *temporalworker.Runner
}

func wireServices(db *gorm.DB, log *logger.Logger, cfg Config, r Repos, c Clients, metrics *observability.Metrics) (Services, error) {
	log.Info("Wiring services...")

	deps := aggregates.BaseDeps{
		DB:    db,
		Log:   log,
		Hooks: aggregates.NewObservabilityHooks(metrics),
	}

	registry, err := handlers.NewRegistry(log, r.ActivityLog, r.Notification, c.Bus)
	if err != nil {
		return Services{}, fmt.Errorf("side effect registry: %w", err)
	}
	sideWorker := worker.NewWorker(log, r.SideEffect, registry, metrics, worker.Config{
		Concurrency: cfg.WorkerConcurrency,
		MaxAttempts: cfg.SideEffectMaxAttempts,
		RetryDelay:  cfg.SideEffectRetryDelay,
	})

	var starter services.TaskStarter
	var runner *temporalworker.Runner
	if c.Temporal != nil {
		s, err := sideeffect.NewStarter(c.Temporal, cfg.Temporal.TaskQueue)
		if err != nil {
			return Services{}, err
		}
		runner, err = temporalworker.NewRunner(log, c.Temporal, cfg.Temporal, sideWorker)
		if err != nil {
			return Services{}, err
		}
		starter = s
	}
	dispatcher := services.NewOutboxDispatcher(log, r.SideEffect, metrics, starter)

	rollup := services.NewRollupService(deps, log, r.List, r.Assignment, metrics, cfg.RollupMaxAttempts)
	cleanup := services.NewCleanupService(deps, log, r.List, r.Assignment, metrics)
	catalog := services.NewCatalogService(log, r.Asset, r.CatalogAsset, c.GLBStore(), metrics, cfg.BulkChunkSize)

	return Services{
		Auth:       services.NewAuthService(log, cfg.JWTSecretKey),
		Roles:      services.NewRoleResolver(r.Profile),
		Rollup:     rollup,
		Cleanup:    cleanup,
		Catalog:    catalog,
		Transition: services.NewTransitionService(deps, log, r.Profile, r.Asset, r.Assignment, r.StatusHistory, rollup, cleanup, catalog, dispatcher),
		Bulk: services.NewBulkService(deps, log, r.Profile, r.Asset, r.Assignment, r.StatusHistory,
			rollup, cleanup, catalog, dispatcher, metrics, cfg.BulkChunkSize),
		QATransfer:     services.NewQATransferService(deps, log, r.Profile, r.List, r.Assignment, r.QAAllocation, cleanup, dispatcher),
		Dispatcher:     dispatcher,
		Worker:         sideWorker,
		TemporalWorker: runner,
	}, nil
}
