package handlers

import (
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	types "github.com/charpstar/pipeline-backend/internal/domain"
	domainagg "github.com/charpstar/pipeline-backend/internal/domain/aggregates"
	"github.com/charpstar/pipeline-backend/internal/http/response"
	"github.com/charpstar/pipeline-backend/internal/platform/ctxutil"
	"github.com/charpstar/pipeline-backend/internal/platform/logger"
	"github.com/charpstar/pipeline-backend/internal/services"
)

type AssetHandlerDeps struct {
	Log        *logger.Logger
	Transition services.TransitionService
	Bulk       services.BulkService
	Catalog    services.CatalogService
}

type AssetHandler struct {
	log        *logger.Logger
	transition services.TransitionService
	bulk       services.BulkService
	catalog    services.CatalogService
}

func NewAssetHandlerWithDeps(deps AssetHandlerDeps) *AssetHandler {
	log := deps.Log
	if log == nil {
		log = logger.Nop()
	}
	return &AssetHandler{
		log:        log.With("handler", "AssetHandler"),
		transition: deps.Transition,
		bulk:       deps.Bulk,
		catalog:    deps.Catalog,
	}
}

type completeRequest struct {
	AssetID       string `json:"assetId"`
	Status        string `json:"status"`
	RevisionCount *int   `json:"revisionCount"`
}

// POST /api/assets/complete
func (h *AssetHandler) Complete(c *gin.Context) {
	var req completeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, domainagg.Validation("asset.transition", "Invalid JSON body"))
		return
	}
	res, err := h.transition.Transition(c.Request.Context(), services.TransitionInput{
		AssetID:       parseID(req.AssetID),
		Status:        types.AssetStatus(strings.TrimSpace(req.Status)),
		RevisionCount: req.RevisionCount,
		ActorID:       ctxutil.ActorID(c.Request.Context()),
	})
	if err != nil {
		_ = c.Error(err)
		response.RespondError(c, err)
		return
	}
	response.RespondOK(c, gin.H{
		"message":                "Asset status updated successfully",
		"allocationListApproved": res.AllocationListApproved,
		"allocationListId":       res.AllocationListID,
		"revisionCount":          res.RevisionCount,
	})
}

type bulkCompleteRequest struct {
	AssetIDs      []string `json:"assetIds"`
	Status        string   `json:"status"`
	RevisionCount *int     `json:"revisionCount"`
	Atomic        *bool    `json:"atomic"`
}

// POST /api/assets/bulk-complete
func (h *AssetHandler) BulkComplete(c *gin.Context) {
	var req bulkCompleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, domainagg.Validation("asset.bulk_transition", "Invalid JSON body"))
		return
	}
	ids, bad := parseIDs(req.AssetIDs)
	if bad != "" {
		response.RespondError(c, domainagg.Validation("asset.bulk_transition", fmt.Sprintf("Invalid asset id %q", bad)))
		return
	}
	res, err := h.bulk.ApplyBulk(c.Request.Context(), services.BulkInput{
		AssetIDs:      ids,
		Status:        types.AssetStatus(strings.TrimSpace(req.Status)),
		RevisionCount: req.RevisionCount,
		ActorID:       ctxutil.ActorID(c.Request.Context()),
		Atomic:        req.Atomic,
	})
	if err != nil {
		_ = c.Error(err)
		if res != nil && res.ChunksTotal > 0 {
			response.RespondErrorWith(c, err, gin.H{
				"success":         false,
				"partial":         res.Partial,
				"updatedCount":    res.UpdatedCount,
				"chunksCommitted": res.ChunksCommitted,
				"chunksTotal":     res.ChunksTotal,
			})
			return
		}
		response.RespondError(c, err)
		return
	}
	response.RespondOK(c, gin.H{
		"success":         true,
		"message":         res.Message,
		"transferred":     res.Transferred,
		"updatedCount":    res.UpdatedCount,
		"chunksCommitted": res.ChunksCommitted,
		"chunksTotal":     res.ChunksTotal,
		"partial":         res.Partial,
	})
}

type transferApprovedRequest struct {
	AssetID  string   `json:"assetId"`
	AssetIDs []string `json:"assetIds"`
}

// POST /api/assets/transfer-approved (admin)
func (h *AssetHandler) TransferApproved(c *gin.Context) {
	var req transferApprovedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, domainagg.Validation("catalog.transfer", "Invalid JSON body"))
		return
	}
	raw := req.AssetIDs
	if req.AssetID != "" {
		raw = append(raw, req.AssetID)
	}
	ids, bad := parseIDs(raw)
	if bad != "" || len(ids) == 0 {
		response.RespondError(c, domainagg.Validation("catalog.transfer", "Missing required field: assetId"))
		return
	}
	res, err := h.catalog.TransferApproved(c.Request.Context(), ids)
	if err != nil {
		_ = c.Error(err)
		response.RespondError(c, err)
		return
	}
	if res.Candidates == 0 {
		response.RespondError(c, domainagg.NotFound("catalog.transfer", "Asset not found or not approved by client"))
		return
	}
	response.RespondOK(c, gin.H{
		"success": true,
		"message": fmt.Sprintf("Transferred %d asset(s) to the catalog", res.Inserted),
		"result":  res,
	})
}

func parseID(raw string) uuid.UUID {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return uuid.Nil
	}
	return id
}

// parseIDs returns the first unparsable entry when any id is malformed.
func parseIDs(raw []string) ([]uuid.UUID, string) {
	out := make([]uuid.UUID, 0, len(raw))
	for _, r := range raw {
		id, err := uuid.Parse(strings.TrimSpace(r))
		if err != nil {
			return nil, r
		}
		out = append(out, id)
	}
	return out, ""
}
