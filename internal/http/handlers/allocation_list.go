package handlers

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	domainagg "github.com/charpstar/pipeline-backend/internal/domain/aggregates"
	"github.com/charpstar/pipeline-backend/internal/http/response"
	"github.com/charpstar/pipeline-backend/internal/platform/ctxutil"
	"github.com/charpstar/pipeline-backend/internal/platform/logger"
	"github.com/charpstar/pipeline-backend/internal/services"
)

type AllocationListHandlerDeps struct {
	Log        *logger.Logger
	QATransfer services.QATransferService
	Rollup     services.RollupService
}

type AllocationListHandler struct {
	log        *logger.Logger
	qaTransfer services.QATransferService
	rollup     services.RollupService
}

func NewAllocationListHandlerWithDeps(deps AllocationListHandlerDeps) *AllocationListHandler {
	log := deps.Log
	if log == nil {
		log = logger.Nop()
	}
	return &AllocationListHandler{
		log:        log.With("handler", "AllocationListHandler"),
		qaTransfer: deps.QATransfer,
		rollup:     deps.Rollup,
	}
}

type transferQARequest struct {
	NewQAID string `json:"newQaId"`
}

// POST /api/allocation-lists/:listId/transfer-qa
func (h *AllocationListHandler) TransferQA(c *gin.Context) {
	listID, ok := listIDParam(c, "allocation_list.transfer_qa")
	if !ok {
		return
	}
	var req transferQARequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, domainagg.Validation("allocation_list.transfer_qa", "Invalid JSON body"))
		return
	}
	res, err := h.qaTransfer.Transfer(c.Request.Context(), listID, ctxutil.ActorID(c.Request.Context()), parseID(req.NewQAID))
	if err != nil {
		_ = c.Error(err)
		response.RespondError(c, err)
		return
	}
	if res.Noop {
		response.RespondOK(c, gin.H{"success": true, "message": res.Message})
		return
	}
	response.RespondOK(c, gin.H{"success": true, "transferredAssetCount": res.TransferredAssetCount})
}

type assignQARequest struct {
	QAID string `json:"qaId"`
}

// POST /api/allocation-lists/:listId/qa
func (h *AllocationListHandler) AssignQA(c *gin.Context) {
	listID, ok := listIDParam(c, "allocation_list.assign_qa")
	if !ok {
		return
	}
	var req assignQARequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, domainagg.Validation("allocation_list.assign_qa", "Invalid JSON body"))
		return
	}
	res, err := h.qaTransfer.AssignQA(c.Request.Context(), listID, ctxutil.ActorID(c.Request.Context()), parseID(req.QAID))
	if err != nil {
		_ = c.Error(err)
		response.RespondError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"success": true, "assignedAssetCount": res.AssignedAssetCount})
}

// DELETE /api/allocation-lists/:listId/qa
func (h *AllocationListHandler) RemoveQA(c *gin.Context) {
	listID, ok := listIDParam(c, "allocation_list.remove_qa")
	if !ok {
		return
	}
	res, err := h.qaTransfer.RemoveQA(c.Request.Context(), listID, ctxutil.ActorID(c.Request.Context()))
	if err != nil {
		_ = c.Error(err)
		response.RespondError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"success": true, "removedCount": res.RemovedCount})
}

// POST /api/allocation-lists/refresh-completion
func (h *AllocationListHandler) RefreshCompletion(c *gin.Context) {
	res, err := h.rollup.RefreshAll(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		response.RespondError(c, err)
		return
	}
	response.RespondOK(c, gin.H{
		"success": true,
		"checked": res.Checked,
		"updated": res.Updated,
		"message": fmt.Sprintf("Updated %d allocation list(s)", res.Updated),
	})
}

func listIDParam(c *gin.Context, op string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("listId"))
	if err != nil {
		response.RespondError(c, domainagg.Validation(op, "Invalid allocation list id"))
		return uuid.Nil, false
	}
	return id, true
}
