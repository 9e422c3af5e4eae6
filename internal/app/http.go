package app

import (
	"context"

	"gorm.io/gorm"

	apphttp "github.com/charpstar/pipeline-backend/internal/http"
	httpH "github.com/charpstar/pipeline-backend/internal/http/handlers"
	httpMW "github.com/charpstar/pipeline-backend/internal/http/middleware"
	"github.com/charpstar/pipeline-backend/internal/observability"
	"github.com/charpstar/pipeline-backend/internal/platform/logger"
)

func wireServer(db *gorm.DB, log *logger.Logger, cfg Config, svc Services, metrics *observability.Metrics) *apphttp.Server {
	log.Info("Wiring HTTP server...")
	return apphttp.NewServer(apphttp.RouterConfig{
		Log:            log,
		Metrics:        metrics,
		CORSOrigins:    cfg.CORSAllowedOrigins,
		ServiceName:    cfg.ServiceName,
		AuthMiddleware: httpMW.NewAuthMiddleware(log, svc.Auth, svc.Roles),
		AssetHandler: httpH.NewAssetHandlerWithDeps(httpH.AssetHandlerDeps{
			Log:        log,
			Transition: svc.Transition,
			Bulk:       svc.Bulk,
			Catalog:    svc.Catalog,
		}),
		AllocationListHandler: httpH.NewAllocationListHandlerWithDeps(httpH.AllocationListHandlerDeps{
			Log:        log,
			QATransfer: svc.QATransfer,
			Rollup:     svc.Rollup,
		}),
		AdminHandler:  httpH.NewAdminHandler(log, svc.Cleanup),
		HealthHandler: httpH.NewHealthHandler(dbPinger(db)),
	})
}

func dbPinger(db *gorm.DB) httpH.Pinger {
	return func(ctx context.Context) error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.PingContext(ctx)
	}
}
