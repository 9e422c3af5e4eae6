package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/charpstar/pipeline-backend/internal/data/repos"
	types "github.com/charpstar/pipeline-backend/internal/domain"
	"github.com/charpstar/pipeline-backend/internal/domain/jobs"
	"github.com/charpstar/pipeline-backend/internal/platform/dbctx"
	"github.com/charpstar/pipeline-backend/internal/platform/logger"
)

// modelerIndex maps assets to their modeler assignments.
type modelerIndex struct {
	usersByAsset map[uuid.UUID][]uuid.UUID
	listsByAsset map[uuid.UUID][]uuid.UUID
	lists        []uuid.UUID
}

func loadModelerIndex(ctx context.Context, assignments repos.AssetAssignmentRepo, assetIDs []uuid.UUID, chunkSize int) (*modelerIndex, error) {
	idx := &modelerIndex{
		usersByAsset: map[uuid.UUID][]uuid.UUID{},
		listsByAsset: map[uuid.UUID][]uuid.UUID{},
	}
	seenList := map[uuid.UUID]struct{}{}
	for _, chunk := range Chunk(assetIDs, chunkSize) {
		rows, err := assignments.ListByAssets(dbctx.Context{Ctx: ctx}, chunk, types.AssignmentRoleModeler)
		if err != nil {
			return nil, err
		}
		for _, row := range rows {
			idx.usersByAsset[row.AssetID] = append(idx.usersByAsset[row.AssetID], row.UserID)
			if row.AllocationListID == nil || *row.AllocationListID == uuid.Nil {
				continue
			}
			listID := *row.AllocationListID
			idx.listsByAsset[row.AssetID] = append(idx.listsByAsset[row.AssetID], listID)
			if _, ok := seenList[listID]; !ok {
				seenList[listID] = struct{}{}
				idx.lists = append(idx.lists, listID)
			}
		}
	}
	return idx, nil
}

type assetChange struct {
	Asset          *types.Asset
	PreviousStatus types.AssetStatus
	RevisionNumber *int
}

// statusEffects builds the activity log and notification effects for a batch
// of assets moved to status.
func statusEffects(
	ctx context.Context,
	log *logger.Logger,
	assignments repos.AssetAssignmentRepo,
	actorID uuid.UUID,
	status types.AssetStatus,
	changes []assetChange,
	idx *modelerIndex,
) []SideEffect {
	effects := make([]SideEffect, 0, len(changes)*2)
	var actor *uuid.UUID
	if actorID != uuid.Nil {
		actor = &actorID
	}
	for _, c := range changes {
		meta := map[string]any{
			"assetId":    c.Asset.ID,
			"prevStatus": c.PreviousStatus,
			"newStatus":  status,
		}
		if c.RevisionNumber != nil {
			meta["revisionCount"] = *c.RevisionNumber
		}
		effects = append(effects, ActivityEffect(types.ActivityPayload{
			UserID:       actor,
			Action:       "asset_status_updated",
			Type:         "update",
			ResourceType: "asset",
			ResourceID:   c.Asset.ID,
			Description:  fmt.Sprintf("Asset status updated from %s to %s", c.PreviousStatus, status),
			Metadata:     meta,
		}))
	}
	if idx == nil {
		return effects
	}

	switch status {
	case types.StatusRevisions, types.StatusApproved, types.StatusApprovedByClient:
		for _, c := range changes {
			recipients := idx.usersByAsset[c.Asset.ID]
			if len(recipients) == 0 {
				continue
			}
			name := c.Asset.DisplayName()
			p := types.NotificationPayload{
				RecipientIDs: recipients,
				AssetIDs:     []uuid.UUID{c.Asset.ID},
				Metadata:     map[string]any{"status": status, "client": c.Asset.Client},
			}
			if status == types.StatusRevisions {
				p.Type = jobs.NotificationRevisionRequested
				p.Title = "Revision Required - " + name
				p.Message = fmt.Sprintf("%s has been sent back for revisions.", name)
				if c.RevisionNumber != nil {
					p.Metadata["revisionNumber"] = *c.RevisionNumber
				}
			} else {
				p.Type = jobs.NotificationAssetCompleted
				p.Title = "Asset Completed - " + name
				p.Message = fmt.Sprintf("%s has been approved.", name)
			}
			effects = append(effects, NotificationEffect(p))
		}
	case types.StatusDeliveredByArtist:
		byList := map[uuid.UUID][]*types.Asset{}
		for _, c := range changes {
			for _, listID := range idx.listsByAsset[c.Asset.ID] {
				byList[listID] = append(byList[listID], c.Asset)
			}
		}
		for _, listID := range idx.lists {
			delivered := byList[listID]
			if len(delivered) == 0 {
				continue
			}
			rows, err := assignments.ListProvisionalQA(dbctx.Context{Ctx: ctx}, listID)
			if err != nil {
				log.Warn("qa recipient lookup failed", "list_id", listID, "error", err)
				continue
			}
			recipients := distinctUsers(rows)
			if len(recipients) == 0 {
				continue
			}
			effects = append(effects, NotificationEffect(qaReviewPayload(listID, recipients, delivered)))
		}
	case types.StatusPending, types.StatusInProduction:
	}
	return effects
}

func qaReviewPayload(listID uuid.UUID, recipients []uuid.UUID, assets []*types.Asset) types.NotificationPayload {
	ids := make([]uuid.UUID, 0, len(assets))
	for _, a := range assets {
		ids = append(ids, a.ID)
	}
	title := fmt.Sprintf("Ready for QA Review - %d assets", len(assets))
	if len(assets) == 1 {
		title = "Ready for QA Review - " + assets[0].DisplayName()
	}
	return types.NotificationPayload{
		RecipientIDs: recipients,
		Type:         jobs.NotificationQAReview,
		Title:        title,
		Message:      fmt.Sprintf("%d asset(s) are waiting for QA review.", len(assets)),
		AssetIDs:     ids,
		Metadata:     map[string]any{"allocationListId": listID},
	}
}

func distinctUsers(rows []*types.AssetAssignment) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.UserID)
	}
	return dedupeIDs(ids)
}
