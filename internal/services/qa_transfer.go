package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/charpstar/pipeline-backend/internal/data/aggregates"
	"github.com/charpstar/pipeline-backend/internal/data/repos"
	types "github.com/charpstar/pipeline-backend/internal/domain"
	domainagg "github.com/charpstar/pipeline-backend/internal/domain/aggregates"
	"github.com/charpstar/pipeline-backend/internal/domain/jobs"
	"github.com/charpstar/pipeline-backend/internal/platform/dbctx"
	"github.com/charpstar/pipeline-backend/internal/platform/logger"
)

const (
	msgNotAssigned     = "You are not assigned to this allocation list and cannot transfer it."
	msgAlreadyAssigned = "Allocation list is already assigned to the selected QA."
	msgNoAssets        = "No assets found for this allocation list. Transfer cannot be completed."
	msgListNotFound    = "Allocation list not found"
)

type QATransferResult struct {
	TransferredAssetCount int    `json:"transferredAssetCount"`
	Noop                  bool   `json:"noop"`
	Message               string `json:"message,omitempty"`
}

type QAAssignResult struct {
	AssignedAssetCount int `json:"assignedAssetCount"`
}

type QARemoveResult struct {
	RemovedCount int64 `json:"removedCount"`
}

type QATransferService interface {
	Transfer(ctx context.Context, listID, actorID, newQAID uuid.UUID) (*QATransferResult, error)
	// AssignQA is the admin override creating provisional QA rows for every
	// modeler asset in the list.
	AssignQA(ctx context.Context, listID, actorID, qaID uuid.UUID) (*QAAssignResult, error)
	RemoveQA(ctx context.Context, listID, actorID uuid.UUID) (*QARemoveResult, error)
}

type qaTransferService struct {
	deps          aggregates.BaseDeps
	log           *logger.Logger
	profiles      repos.ProfileRepo
	lists         repos.AllocationListRepo
	assignments   repos.AssetAssignmentRepo
	qaAllocations repos.QAAllocationRepo
	cleanup       CleanupService
	dispatch      SideEffectDispatcher
	now           func() time.Time
}

func NewQATransferService(
	deps aggregates.BaseDeps,
	baseLog *logger.Logger,
	profiles repos.ProfileRepo,
	lists repos.AllocationListRepo,
	assignments repos.AssetAssignmentRepo,
	qaAllocations repos.QAAllocationRepo,
	cleanup CleanupService,
	dispatch SideEffectDispatcher,
) QATransferService {
	if dispatch == nil {
		dispatch = NopDispatcher()
	}
	return &qaTransferService{
		deps:          deps.WithDefaults(),
		log:           baseLog.With("service", "QATransferService"),
		profiles:      profiles,
		lists:         lists,
		assignments:   assignments,
		qaAllocations: qaAllocations,
		cleanup:       cleanup,
		dispatch:      dispatch,
		now:           time.Now,
	}
}

const (
	opQATransfer = "allocation_list.transfer_qa"
	opQAAssign   = "allocation_list.assign_qa"
	opQARemove   = "allocation_list.remove_qa"
)

func (s *qaTransferService) Transfer(ctx context.Context, listID, actorID, newQAID uuid.UUID) (*QATransferResult, error) {
	role, err := resolveRole(ctx, s.profiles, opQATransfer, actorID)
	if err != nil {
		return nil, err
	}
	if role != types.RoleQA {
		return nil, domainagg.Forbidden(opQATransfer, "QA access required")
	}
	if listID == uuid.Nil {
		return nil, domainagg.Validation(opQATransfer, "Missing allocation list id")
	}
	if err := s.requireQAProfile(ctx, opQATransfer, newQAID, "Missing newQaId in request body"); err != nil {
		return nil, err
	}

	dbc := dbctx.Context{Ctx: ctx}
	list, err := s.lists.GetByID(dbc, listID)
	if err != nil {
		return nil, aggregates.MapError(opQATransfer, err)
	}
	if list == nil {
		return nil, domainagg.NotFound(opQATransfer, msgListNotFound)
	}

	provisional, err := s.assignments.ListProvisionalQA(dbc, listID)
	if err != nil {
		return nil, aggregates.MapError(opQATransfer, err)
	}

	var assetIDs []uuid.UUID
	if len(provisional) > 0 {
		current := distinctUsers(provisional)
		if !containsID(current, actorID) {
			return nil, domainagg.Forbidden(opQATransfer, msgNotAssigned)
		}
		if len(current) == 1 && current[0] == newQAID {
			return &QATransferResult{Noop: true, Message: msgAlreadyAssigned}, nil
		}
		for _, row := range provisional {
			assetIDs = append(assetIDs, row.AssetID)
		}
	} else {
		if list.UserID == uuid.Nil {
			return nil, domainagg.EmptyTransfer(opQATransfer, "This allocation list is not associated with a modeler and cannot be transferred.")
		}
		linked, err := s.qaAllocations.Exists(dbc, actorID, list.UserID)
		if err != nil {
			return nil, aggregates.MapError(opQATransfer, err)
		}
		if !linked {
			return nil, domainagg.Forbidden(opQATransfer, msgNotAssigned)
		}
		modelerRows, err := s.assignments.ListByList(dbc, listID, types.AssignmentRoleModeler)
		if err != nil {
			return nil, aggregates.MapError(opQATransfer, err)
		}
		for _, row := range modelerRows {
			assetIDs = append(assetIDs, row.AssetID)
		}
	}
	assetIDs = dedupeIDs(assetIDs)
	if len(assetIDs) == 0 {
		return nil, domainagg.EmptyTransfer(opQATransfer, msgNoAssets)
	}

	if err := s.replaceProvisionalQA(ctx, opQATransfer, listID, actorID, newQAID, assetIDs); err != nil {
		return nil, err
	}
	s.log.Info("allocation list transferred", "list_id", listID, "actor_id", actorID, "new_qa_id", newQAID, "assets", len(assetIDs))

	s.cleanup.CleanupMany(ctx, []uuid.UUID{listID})
	s.dispatch.Dispatch(ctx,
		NotificationEffect(types.NotificationPayload{
			RecipientIDs: []uuid.UUID{newQAID},
			Type:         jobs.NotificationQAReview,
			Title:        "Allocation List Transferred - " + list.Name,
			Message:      "An allocation list has been transferred to you for QA review.",
			AssetIDs:     assetIDs,
			Metadata:     map[string]any{"allocationListId": listID, "transferredBy": actorID},
		}),
		ActivityEffect(types.ActivityPayload{
			UserID:       &actorID,
			Action:       "allocation_list_qa_transferred",
			Type:         "update",
			ResourceType: "allocation_list",
			ResourceID:   listID,
			Description:  "Allocation list transferred to another QA",
			Metadata:     map[string]any{"newQaId": newQAID, "assetCount": len(assetIDs)},
		}),
	)
	return &QATransferResult{TransferredAssetCount: len(assetIDs)}, nil
}

func (s *qaTransferService) AssignQA(ctx context.Context, listID, actorID, qaID uuid.UUID) (*QAAssignResult, error) {
	if err := s.requireAdmin(ctx, opQAAssign, actorID); err != nil {
		return nil, err
	}
	if listID == uuid.Nil {
		return nil, domainagg.Validation(opQAAssign, "Missing allocation list id")
	}
	if err := s.requireQAProfile(ctx, opQAAssign, qaID, "Missing qaId in request body"); err != nil {
		return nil, err
	}
	dbc := dbctx.Context{Ctx: ctx}
	list, err := s.lists.GetByID(dbc, listID)
	if err != nil {
		return nil, aggregates.MapError(opQAAssign, err)
	}
	if list == nil {
		return nil, domainagg.NotFound(opQAAssign, msgListNotFound)
	}
	rows, err := s.assignments.ListByList(dbc, listID, types.AssignmentRoleModeler)
	if err != nil {
		return nil, aggregates.MapError(opQAAssign, err)
	}
	assetIDs := make([]uuid.UUID, 0, len(rows))
	for _, r := range rows {
		assetIDs = append(assetIDs, r.AssetID)
	}
	assetIDs = dedupeIDs(assetIDs)
	if len(assetIDs) == 0 {
		return nil, domainagg.EmptyTransfer(opQAAssign, "This allocation list has no assets")
	}
	if err := s.replaceProvisionalQA(ctx, opQAAssign, listID, actorID, qaID, assetIDs); err != nil {
		return nil, err
	}
	s.dispatch.Dispatch(ctx, NotificationEffect(types.NotificationPayload{
		RecipientIDs: []uuid.UUID{qaID},
		Type:         jobs.NotificationQAReview,
		Title:        "Allocation List Assigned - " + list.Name,
		Message:      "An allocation list has been assigned to you for QA review.",
		AssetIDs:     assetIDs,
		Metadata:     map[string]any{"allocationListId": listID, "assignedBy": actorID},
	}))
	return &QAAssignResult{AssignedAssetCount: len(assetIDs)}, nil
}

func (s *qaTransferService) RemoveQA(ctx context.Context, listID, actorID uuid.UUID) (*QARemoveResult, error) {
	if err := s.requireAdmin(ctx, opQARemove, actorID); err != nil {
		return nil, err
	}
	if listID == uuid.Nil {
		return nil, domainagg.Validation(opQARemove, "Missing allocation list id")
	}
	out := &QARemoveResult{}
	err := aggregates.ExecuteWrite(ctx, s.deps, opQARemove, func(dbc dbctx.Context) error {
		list, err := s.lists.GetByID(dbc, listID)
		if err != nil {
			return err
		}
		if list == nil {
			return domainagg.NotFound(opQARemove, msgListNotFound)
		}
		n, err := s.assignments.DeleteProvisionalQA(dbc, listID)
		if err != nil {
			return err
		}
		out.RemovedCount = n
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.cleanup.CleanupMany(ctx, []uuid.UUID{listID})
	return out, nil
}

// replaceProvisionalQA swaps the list's provisional QA rows for one row per
// asset owned by qaID, in a single transaction.
func (s *qaTransferService) replaceProvisionalQA(ctx context.Context, op string, listID, actorID, qaID uuid.UUID, assetIDs []uuid.UUID) error {
	return aggregates.ExecuteWrite(ctx, s.deps, op, func(dbc dbctx.Context) error {
		if _, err := s.assignments.DeleteProvisionalQA(dbc, listID); err != nil {
			return err
		}
		now := s.now().UTC()
		assignedBy := actorID
		list := listID
		rows := make([]*types.AssetAssignment, 0, len(assetIDs))
		for _, assetID := range assetIDs {
			rows = append(rows, &types.AssetAssignment{
				ID:               uuid.New(),
				AssetID:          assetID,
				UserID:           qaID,
				Role:             types.AssignmentRoleQA,
				AllocationListID: &list,
				IsProvisional:    true,
				Status:           "pending",
				AssignedBy:       &assignedBy,
				StartTime:        &now,
			})
		}
		_, err := s.assignments.Create(dbc, rows)
		return err
	})
}

func (s *qaTransferService) requireAdmin(ctx context.Context, op string, actorID uuid.UUID) error {
	role, err := resolveRole(ctx, s.profiles, op, actorID)
	if err != nil {
		return err
	}
	if role != types.RoleAdmin {
		return domainagg.Forbidden(op, "Admin access required")
	}
	return nil
}

func (s *qaTransferService) requireQAProfile(ctx context.Context, op string, userID uuid.UUID, missingMsg string) error {
	if userID == uuid.Nil {
		return domainagg.Validation(op, missingMsg)
	}
	profile, err := s.profiles.GetByID(dbctx.Context{Ctx: ctx}, userID)
	if err != nil {
		return aggregates.MapError(op, err)
	}
	if profile == nil {
		return domainagg.Validation(op, "Selected user is not a QA")
	}
	if role, err := types.ParseRole(profile.Role); err != nil || role != types.RoleQA {
		return domainagg.Validation(op, "Selected user is not a QA")
	}
	return nil
}

func containsID(ids []uuid.UUID, id uuid.UUID) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
