package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/charpstar/pipeline-backend/internal/http/response"
	"github.com/charpstar/pipeline-backend/internal/platform/logger"
	"github.com/charpstar/pipeline-backend/internal/services"
)

type AdminHandler struct {
	log     *logger.Logger
	cleanup services.CleanupService
}

func NewAdminHandler(log *logger.Logger, cleanup services.CleanupService) *AdminHandler {
	return &AdminHandler{log: log.With("handler", "AdminHandler"), cleanup: cleanup}
}

// POST /api/admin/cleanup-allocation-lists
func (h *AdminHandler) SweepAllocationLists(c *gin.Context) {
	res, err := h.cleanup.SweepAll(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		response.RespondError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"success": true, "result": res})
}

// GET /api/admin/cleanup-allocation-lists
func (h *AdminHandler) OrphanReport(c *gin.Context) {
	res, err := h.cleanup.FindOrphans(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		response.RespondError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"success": true, "result": res})
}
