package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	types "github.com/charpstar/pipeline-backend/internal/domain"
	httpH "github.com/charpstar/pipeline-backend/internal/http/handlers"
	httpMW "github.com/charpstar/pipeline-backend/internal/http/middleware"
	"github.com/charpstar/pipeline-backend/internal/observability"
	"github.com/charpstar/pipeline-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log            *logger.Logger
	Metrics        *observability.Metrics
	CORSOrigins    []string
	ServiceName    string
	AuthMiddleware *httpMW.AuthMiddleware

	AssetHandler          *httpH.AssetHandler
	AllocationListHandler *httpH.AllocationListHandler
	AdminHandler          *httpH.AdminHandler
	HealthHandler         *httpH.HealthHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.ServiceName != "" {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.Metrics(cfg.Metrics))
	r.Use(httpMW.CORS(cfg.CORSOrigins))

	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}
	if cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapH(cfg.Metrics.Handler()))
	}

	api := r.Group("/api")
	if cfg.AuthMiddleware != nil {
		api.Use(cfg.AuthMiddleware.RequireAuth())
	} else {
		api.Use(func(c *gin.Context) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized", "code": "unauthorized"})
		})
	}

	if h := cfg.AssetHandler; h != nil {
		api.POST("/assets/complete", h.Complete)
		api.POST("/assets/bulk-complete", h.BulkComplete)
		if cfg.AuthMiddleware != nil {
			api.POST("/assets/transfer-approved", cfg.AuthMiddleware.RequireRole(types.RoleAdmin), h.TransferApproved)
		}
	}

	if h := cfg.AllocationListHandler; h != nil {
		api.POST("/allocation-lists/refresh-completion", h.RefreshCompletion)
		api.POST("/allocation-lists/:listId/transfer-qa", h.TransferQA)
		api.POST("/allocation-lists/:listId/qa", h.AssignQA)
		api.DELETE("/allocation-lists/:listId/qa", h.RemoveQA)
	}

	if h := cfg.AdminHandler; h != nil && cfg.AuthMiddleware != nil {
		admin := api.Group("/admin", cfg.AuthMiddleware.RequireRole(types.RoleAdmin))
		admin.POST("/cleanup-allocation-lists", h.SweepAllocationLists)
		admin.GET("/cleanup-allocation-lists", h.OrphanReport)
	}

	return r
}
