package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/charpstar/pipeline-backend/internal/data/aggregates"
	"github.com/charpstar/pipeline-backend/internal/data/repos"
	types "github.com/charpstar/pipeline-backend/internal/domain"
	domainagg "github.com/charpstar/pipeline-backend/internal/domain/aggregates"
	"github.com/charpstar/pipeline-backend/internal/observability"
	"github.com/charpstar/pipeline-backend/internal/platform/dbctx"
	"github.com/charpstar/pipeline-backend/internal/platform/logger"
)

const DefaultRollupMaxAttempts = 3

type RollupResult struct {
	ListID   uuid.UUID `json:"listId"`
	Approved bool      `json:"approved"`
	Changed  bool      `json:"changed"`
}

type RefreshResult struct {
	Checked int `json:"checked"`
	Updated int `json:"updated"`
	Failed  int `json:"failed"`
}

type RollupService interface {
	// Recompute re-derives the list status from its modeler assets.
	Recompute(ctx context.Context, listID uuid.UUID) (*RollupResult, error)
	// RecomputeMany recomputes each list and logs failures instead of returning them.
	RecomputeMany(ctx context.Context, listIDs []uuid.UUID) map[uuid.UUID]*RollupResult
	RefreshAll(ctx context.Context) (*RefreshResult, error)
}

type rollupService struct {
	deps        aggregates.BaseDeps
	log         *logger.Logger
	lists       repos.AllocationListRepo
	assignments repos.AssetAssignmentRepo
	metrics     *observability.Metrics
	maxAttempts int
	now         func() time.Time
}

func NewRollupService(
	deps aggregates.BaseDeps,
	baseLog *logger.Logger,
	lists repos.AllocationListRepo,
	assignments repos.AssetAssignmentRepo,
	metrics *observability.Metrics,
	maxAttempts int,
) RollupService {
	if maxAttempts < 1 {
		maxAttempts = DefaultRollupMaxAttempts
	}
	return &rollupService{
		deps:        deps.WithDefaults(),
		log:         baseLog.With("service", "RollupService"),
		lists:       lists,
		assignments: assignments,
		metrics:     metrics,
		maxAttempts: maxAttempts,
		now:         time.Now,
	}
}

const opRollup = "allocation_list.rollup"

func (s *rollupService) Recompute(ctx context.Context, listID uuid.UUID) (*RollupResult, error) {
	if listID == uuid.Nil {
		return nil, domainagg.Validation(opRollup, "missing allocation list id")
	}
	var out *RollupResult
	err := aggregates.RetryOnConflict(ctx, s.deps.Hooks, opRollup, s.maxAttempts, func(attempt int) error {
		return aggregates.ExecuteWrite(ctx, s.deps, opRollup, func(dbc dbctx.Context) error {
			res, err := s.recomputeOnce(dbc, listID)
			if err != nil {
				return err
			}
			out = res
			return nil
		})
	})
	switch {
	case err != nil && domainagg.IsCode(err, domainagg.CodeConflict):
		s.metrics.IncRollup("conflict")
		s.log.Warn("rollup gave up after concurrent updates", "list_id", listID, "attempts", s.maxAttempts)
	case err != nil:
		s.metrics.IncRollup("error")
	case out.Changed:
		s.metrics.IncRollup("changed")
	default:
		s.metrics.IncRollup("unchanged")
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *rollupService) recomputeOnce(dbc dbctx.Context, listID uuid.UUID) (*RollupResult, error) {
	list, err := s.lists.GetByID(dbc, listID)
	if err != nil {
		return nil, err
	}
	if list == nil {
		return nil, domainagg.NotFound(opRollup, "Allocation list not found")
	}
	statuses, err := s.assignments.ListAssetStatuses(dbc, listID, types.AssignmentRoleModeler)
	if err != nil {
		return nil, err
	}
	allApproved := allStatusesApproved(statuses)
	res := &RollupResult{ListID: listID, Approved: list.Status == types.ListStatusApproved}

	var updates map[string]interface{}
	switch {
	case allApproved && list.Status != types.ListStatusApproved:
		updates = map[string]interface{}{
			"status":      types.ListStatusApproved,
			"approved_at": s.now().UTC(),
			"updated_at":  s.now().UTC(),
		}
		res.Approved = true
	case !allApproved && list.Status == types.ListStatusApproved:
		updates = map[string]interface{}{
			"status":      types.ListStatusInProgress,
			"approved_at": nil,
			"updated_at":  s.now().UTC(),
		}
		res.Approved = false
	default:
		return res, nil
	}
	ok, err := s.lists.UpdateByVersion(dbc, listID, list.Version, updates)
	if err != nil {
		return nil, err
	}
	if err := aggregates.RequireCASSuccess(ok, "allocation list changed concurrently"); err != nil {
		return nil, err
	}
	res.Changed = true
	return res, nil
}

// A list with no modeler assets is never approved; an assignment whose asset
// row is missing reports "" and blocks approval.
func allStatusesApproved(statuses []types.AssetStatus) bool {
	if len(statuses) == 0 {
		return false
	}
	for _, st := range statuses {
		if !st.IsApproved() {
			return false
		}
	}
	return true
}

func (s *rollupService) RecomputeMany(ctx context.Context, listIDs []uuid.UUID) map[uuid.UUID]*RollupResult {
	out := make(map[uuid.UUID]*RollupResult, len(listIDs))
	for _, id := range dedupeIDs(listIDs) {
		res, err := s.Recompute(ctx, id)
		if err != nil {
			s.log.Warn("rollup recompute failed", "list_id", id, "error", err)
			continue
		}
		out[id] = res
	}
	return out
}

func (s *rollupService) RefreshAll(ctx context.Context) (*RefreshResult, error) {
	lists, err := s.lists.ListAll(dbctx.Context{Ctx: ctx})
	if err != nil {
		return nil, aggregates.MapError("allocation_list.refresh", err)
	}
	out := &RefreshResult{}
	for _, l := range lists {
		out.Checked++
		res, err := s.Recompute(ctx, l.ID)
		if err != nil {
			out.Failed++
			s.log.Warn("refresh recompute failed", "list_id", l.ID, "error", err)
			continue
		}
		if res.Changed {
			out.Updated++
		}
	}
	s.log.Info("allocation list refresh complete", "checked", out.Checked, "updated", out.Updated, "failed", out.Failed)
	return out, nil
}
