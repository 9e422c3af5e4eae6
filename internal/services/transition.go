package services

import (
	"context"

	"github.com/google/uuid"

	"github.com/charpstar/pipeline-backend/internal/data/aggregates"
	"github.com/charpstar/pipeline-backend/internal/data/repos"
	types "github.com/charpstar/pipeline-backend/internal/domain"
	domainagg "github.com/charpstar/pipeline-backend/internal/domain/aggregates"
	"github.com/charpstar/pipeline-backend/internal/platform/dbctx"
	"github.com/charpstar/pipeline-backend/internal/platform/logger"
)

type TransitionInput struct {
	AssetID       uuid.UUID
	Status        types.AssetStatus
	RevisionCount *int
	ActorID       uuid.UUID
}

type TransitionResult struct {
	AllocationListApproved bool       `json:"allocationListApproved"`
	AllocationListID       *uuid.UUID `json:"allocationListId,omitempty"`
	RevisionCount          *int       `json:"revisionCount,omitempty"`
}

type TransitionService interface {
	Transition(ctx context.Context, in TransitionInput) (*TransitionResult, error)
}

type transitionService struct {
	deps        aggregates.BaseDeps
	log         *logger.Logger
	profiles    repos.ProfileRepo
	assets      repos.AssetRepo
	assignments repos.AssetAssignmentRepo
	history     repos.AssetStatusHistoryRepo
	rollup      RollupService
	cleanup     CleanupService
	catalog     CatalogService
	dispatch    SideEffectDispatcher
}

func NewTransitionService(
	deps aggregates.BaseDeps,
	baseLog *logger.Logger,
	profiles repos.ProfileRepo,
	assets repos.AssetRepo,
	assignments repos.AssetAssignmentRepo,
	history repos.AssetStatusHistoryRepo,
	rollup RollupService,
	cleanup CleanupService,
	catalog CatalogService,
	dispatch SideEffectDispatcher,
) TransitionService {
	if dispatch == nil {
		dispatch = NopDispatcher()
	}
	return &transitionService{
		deps:        deps.WithDefaults(),
		log:         baseLog.With("service", "TransitionService"),
		profiles:    profiles,
		assets:      assets,
		assignments: assignments,
		history:     history,
		rollup:      rollup,
		cleanup:     cleanup,
		catalog:     catalog,
		dispatch:    dispatch,
	}
}

const opTransition = "asset.transition"

func (s *transitionService) Transition(ctx context.Context, in TransitionInput) (*TransitionResult, error) {
	if in.AssetID == uuid.Nil || in.Status == "" {
		return nil, domainagg.Validation(opTransition, "Missing required fields: assetId, status")
	}
	status, err := types.ParseAssetStatus(string(in.Status))
	if err != nil {
		return nil, domainagg.Validation(opTransition, err.Error())
	}
	role, err := resolveRole(ctx, s.profiles, opTransition, in.ActorID)
	if err != nil {
		return nil, err
	}
	if !types.CanTransitionTo(role, status) {
		return nil, domainagg.Forbidden(opTransition, "Forbidden")
	}

	var change assetChange
	err = aggregates.ExecuteWrite(ctx, s.deps, opTransition, func(dbc dbctx.Context) error {
		asset, err := s.assets.GetByID(dbc, in.AssetID)
		if err != nil {
			return err
		}
		if asset == nil {
			return domainagg.NotFound(opTransition, "Asset not found")
		}
		change = assetChange{Asset: asset, PreviousStatus: asset.Status}
		if status == types.StatusRevisions {
			tracked, err := s.history.MaxRevisionNumbers(dbc, []uuid.UUID{asset.ID})
			if err != nil {
				return err
			}
			n := nextRevisionNumber(asset, tracked, in.RevisionCount)
			change.RevisionNumber = &n
		}
		if err := s.assets.UpdateStatus(dbc, asset.ID, status, change.RevisionNumber); err != nil {
			return err
		}
		return s.history.Create(dbc, []*types.AssetStatusHistory{historyRow(change, status, in.ActorID)})
	})
	if err != nil {
		return nil, err
	}
	change.Asset.Status = status
	if change.RevisionNumber != nil {
		change.Asset.RevisionCount = *change.RevisionNumber
	}

	out := &TransitionResult{RevisionCount: change.RevisionNumber}
	idx, err := loadModelerIndex(ctx, s.assignments, []uuid.UUID{in.AssetID}, DefaultChunkSize)
	if err != nil {
		s.log.Warn("modeler assignment lookup failed", "asset_id", in.AssetID, "error", err)
	}
	if idx != nil && len(idx.lists) > 0 {
		results := s.rollup.RecomputeMany(ctx, idx.lists)
		first := idx.lists[0]
		out.AllocationListID = &first
		if res, ok := results[first]; ok {
			out.AllocationListApproved = res.Approved && res.Changed
		}
		s.cleanup.CleanupMany(ctx, idx.lists)
	}

	if status == types.StatusApprovedByClient && s.catalog != nil {
		if _, err := s.catalog.TransferApproved(ctx, []uuid.UUID{in.AssetID}); err != nil {
			s.log.Warn("catalog transfer failed", "asset_id", in.AssetID, "error", err)
		}
	}

	s.dispatch.Dispatch(ctx, statusEffects(ctx, s.log, s.assignments, in.ActorID, status, []assetChange{change}, idx)...)
	return out, nil
}

func historyRow(c assetChange, status types.AssetStatus, actorID uuid.UUID) *types.AssetStatusHistory {
	row := &types.AssetStatusHistory{
		ID:             uuid.New(),
		AssetID:        c.Asset.ID,
		PreviousStatus: c.PreviousStatus,
		NewStatus:      status,
		ActionType:     types.ActionTypeFor(status),
	}
	if status == types.StatusRevisions {
		row.RevisionNumber = c.RevisionNumber
	}
	if actorID != uuid.Nil {
		id := actorID
		row.ChangedBy = &id
	}
	return row
}
