package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/charpstar/pipeline-backend/internal/data/aggregates"
	"github.com/charpstar/pipeline-backend/internal/data/repos"
	types "github.com/charpstar/pipeline-backend/internal/domain"
	"github.com/charpstar/pipeline-backend/internal/observability"
	"github.com/charpstar/pipeline-backend/internal/platform/dbctx"
	"github.com/charpstar/pipeline-backend/internal/platform/logger"
)

const reasonNoAssets = "No assets assigned"

type CleanupResult struct {
	ListID  uuid.UUID `json:"listId"`
	Deleted bool      `json:"deleted"`
	Reason  string    `json:"reason"`
}

type DeletedList struct {
	ID     uuid.UUID `json:"id"`
	Name   string    `json:"name"`
	Reason string    `json:"reason"`
}

type SweepError struct {
	ID    uuid.UUID `json:"id"`
	Error string    `json:"error"`
}

type SweepResult struct {
	DeletedCount   int           `json:"deletedCount"`
	RemainingCount int           `json:"remainingCount"`
	DeletedLists   []DeletedList `json:"deletedLists"`
	Errors         []SweepError  `json:"errors"`
}

type ListReport struct {
	ID         uuid.UUID            `json:"id"`
	Name       string               `json:"name"`
	UserID     uuid.UUID            `json:"user_id"`
	Role       types.AssignmentRole `json:"role"`
	CreatedAt  time.Time            `json:"created_at"`
	Deadline   *time.Time           `json:"deadline,omitempty"`
	Bonus      float64              `json:"bonus"`
	AssetCount int64                `json:"assetCount"`
	Status     string               `json:"status"`
}

type OrphanReport struct {
	OrphanedLists []ListReport `json:"orphanedLists"`
	ActiveLists   []ListReport `json:"activeLists"`
	OrphanedCount int          `json:"orphanedCount"`
	ActiveCount   int          `json:"activeCount"`
	TotalLists    int          `json:"totalLists"`
}

type CleanupService interface {
	CleanupIfEmpty(ctx context.Context, listID uuid.UUID) (*CleanupResult, error)
	// CleanupMany runs CleanupIfEmpty for each list and logs failures.
	CleanupMany(ctx context.Context, listIDs []uuid.UUID)
	SweepAll(ctx context.Context) (*SweepResult, error)
	FindOrphans(ctx context.Context) (*OrphanReport, error)
}

type cleanupService struct {
	deps        aggregates.BaseDeps
	log         *logger.Logger
	lists       repos.AllocationListRepo
	assignments repos.AssetAssignmentRepo
	metrics     *observability.Metrics
}

func NewCleanupService(
	deps aggregates.BaseDeps,
	baseLog *logger.Logger,
	lists repos.AllocationListRepo,
	assignments repos.AssetAssignmentRepo,
	metrics *observability.Metrics,
) CleanupService {
	return &cleanupService{
		deps:        deps.WithDefaults(),
		log:         baseLog.With("service", "CleanupService"),
		lists:       lists,
		assignments: assignments,
		metrics:     metrics,
	}
}

const opCleanup = "allocation_list.cleanup"

func (s *cleanupService) CleanupIfEmpty(ctx context.Context, listID uuid.UUID) (*CleanupResult, error) {
	out := &CleanupResult{ListID: listID}
	err := aggregates.ExecuteWrite(ctx, s.deps, opCleanup, func(dbc dbctx.Context) error {
		n, err := s.assignments.CountByList(dbc, listID)
		if err != nil {
			return err
		}
		if n > 0 {
			out.Reason = fmt.Sprintf("%d assets still assigned", n)
			return nil
		}
		// The delete re-checks emptiness so a concurrent assignment keeps the list.
		deleted, err := s.lists.DeleteIfEmpty(dbc, listID)
		if err != nil {
			return err
		}
		out.Deleted = deleted
		if deleted {
			out.Reason = reasonNoAssets
		} else {
			out.Reason = "List not deleted"
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if out.Deleted {
		s.metrics.AddCleanupDeleted(1)
		s.log.Info("deleted empty allocation list", "list_id", listID)
	}
	return out, nil
}

func (s *cleanupService) CleanupMany(ctx context.Context, listIDs []uuid.UUID) {
	for _, id := range dedupeIDs(listIDs) {
		if _, err := s.CleanupIfEmpty(ctx, id); err != nil {
			s.log.Warn("allocation list cleanup failed", "list_id", id, "error", err)
		}
	}
}

func (s *cleanupService) SweepAll(ctx context.Context) (*SweepResult, error) {
	lists, err := s.lists.ListAll(dbctx.Context{Ctx: ctx})
	if err != nil {
		return nil, aggregates.MapError("allocation_list.sweep", err)
	}
	out := &SweepResult{DeletedLists: []DeletedList{}, Errors: []SweepError{}}
	for _, l := range lists {
		res, err := s.CleanupIfEmpty(ctx, l.ID)
		if err != nil {
			out.Errors = append(out.Errors, SweepError{ID: l.ID, Error: fmt.Sprintf("Error processing: %v", err)})
			continue
		}
		if res.Deleted {
			out.DeletedCount++
			name := l.Name
			if name == "" {
				name = l.ID.String()
			}
			out.DeletedLists = append(out.DeletedLists, DeletedList{ID: l.ID, Name: name, Reason: res.Reason})
			continue
		}
		out.RemainingCount++
	}
	s.log.Info("allocation list sweep complete", "deleted", out.DeletedCount, "remaining", out.RemainingCount, "errors", len(out.Errors))
	return out, nil
}

func (s *cleanupService) FindOrphans(ctx context.Context) (*OrphanReport, error) {
	dbc := dbctx.Context{Ctx: ctx}
	lists, err := s.lists.ListAll(dbc)
	if err != nil {
		return nil, aggregates.MapError("allocation_list.orphans", err)
	}
	ids := make([]uuid.UUID, 0, len(lists))
	for _, l := range lists {
		ids = append(ids, l.ID)
	}
	counts, err := s.assignments.CountByLists(dbc, ids)
	if err != nil {
		return nil, aggregates.MapError("allocation_list.orphans", err)
	}
	out := &OrphanReport{OrphanedLists: []ListReport{}, ActiveLists: []ListReport{}, TotalLists: len(lists)}
	for _, l := range lists {
		r := ListReport{
			ID:         l.ID,
			Name:       l.Name,
			UserID:     l.UserID,
			Role:       l.Role,
			CreatedAt:  l.CreatedAt,
			Deadline:   l.Deadline,
			Bonus:      l.Bonus,
			AssetCount: counts[l.ID],
		}
		if r.AssetCount == 0 {
			r.Status = "orphaned"
			out.OrphanedLists = append(out.OrphanedLists, r)
			continue
		}
		r.Status = "active"
		out.ActiveLists = append(out.ActiveLists, r)
	}
	out.OrphanedCount = len(out.OrphanedLists)
	out.ActiveCount = len(out.ActiveLists)
	return out, nil
}
