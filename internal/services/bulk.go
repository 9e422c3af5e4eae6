package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/charpstar/pipeline-backend/internal/data/aggregates"
	"github.com/charpstar/pipeline-backend/internal/data/repos"
	types "github.com/charpstar/pipeline-backend/internal/domain"
	domainagg "github.com/charpstar/pipeline-backend/internal/domain/aggregates"
	"github.com/charpstar/pipeline-backend/internal/observability"
	"github.com/charpstar/pipeline-backend/internal/platform/dbctx"
	"github.com/charpstar/pipeline-backend/internal/platform/logger"
)

type BulkInput struct {
	AssetIDs      []uuid.UUID
	Status        types.AssetStatus
	RevisionCount *int
	ActorID       uuid.UUID
	// Atomic defaults to true: every chunk commits or none does.
	Atomic *bool
}

type BulkResult struct {
	UpdatedCount    int64  `json:"updatedCount"`
	ChunksCommitted int    `json:"chunksCommitted"`
	ChunksTotal     int    `json:"chunksTotal"`
	Partial         bool   `json:"partial"`
	Transferred     bool   `json:"transferred"`
	Message         string `json:"message"`
}

type BulkService interface {
	ApplyBulk(ctx context.Context, in BulkInput) (*BulkResult, error)
}

type bulkService struct {
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
	metrics     *observability.Metrics
	chunkSize   int
}

func NewBulkService(
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
	metrics *observability.Metrics,
	chunkSize int,
) BulkService {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if dispatch == nil {
		dispatch = NopDispatcher()
	}
	return &bulkService{
		deps:        deps.WithDefaults(),
		log:         baseLog.With("service", "BulkService"),
		profiles:    profiles,
		assets:      assets,
		assignments: assignments,
		history:     history,
		rollup:      rollup,
		cleanup:     cleanup,
		catalog:     catalog,
		dispatch:    dispatch,
		metrics:     metrics,
		chunkSize:   chunkSize,
	}
}

const opBulk = "asset.bulk_transition"

// bulkChunk is one write unit: the ids, the pre-write snapshot and the
// per-asset revision numbers for a revisions target.
type bulkChunk struct {
	ids       []uuid.UUID
	changes   []assetChange
	revisions map[uuid.UUID]int
}

func (s *bulkService) ApplyBulk(ctx context.Context, in BulkInput) (*BulkResult, error) {
	ids := dedupeIDs(in.AssetIDs)
	if len(ids) == 0 || in.Status == "" {
		return nil, domainagg.Validation(opBulk, "Missing required fields: assetIds (array), status")
	}
	status, err := types.ParseAssetStatus(string(in.Status))
	if err != nil {
		return nil, domainagg.Validation(opBulk, err.Error())
	}
	role, err := resolveRole(ctx, s.profiles, opBulk, in.ActorID)
	if err != nil {
		return nil, err
	}
	if !types.CanTransitionTo(role, status) {
		return nil, domainagg.Forbidden(opBulk, "Forbidden")
	}

	chunks, err := s.prepare(ctx, ids, status, in.RevisionCount)
	if err != nil {
		return nil, err
	}
	out := &BulkResult{ChunksTotal: len(chunks)}
	atomic := in.Atomic == nil || *in.Atomic

	var committed []bulkChunk
	if atomic {
		var updated int64
		err = aggregates.ExecuteWrite(ctx, s.deps, opBulk, func(dbc dbctx.Context) error {
			updated = 0
			for _, c := range chunks {
				n, err := s.writeChunk(dbc, c, status, in.ActorID)
				if err != nil {
					return err
				}
				updated += n
			}
			return nil
		})
		if err == nil {
			committed = chunks
			out.UpdatedCount = updated
		}
	} else {
		for _, c := range chunks {
			var n int64
			werr := aggregates.ExecuteWrite(ctx, s.deps, opBulk, func(dbc dbctx.Context) error {
				var err error
				n, err = s.writeChunk(dbc, c, status, in.ActorID)
				return err
			})
			if werr != nil {
				err = werr
				break
			}
			committed = append(committed, c)
			out.UpdatedCount += n
		}
	}
	out.ChunksCommitted = len(committed)
	for range committed {
		s.metrics.IncBulkChunk("committed")
	}
	if err != nil {
		s.metrics.IncBulkChunk("failed")
		out.Partial = out.ChunksCommitted > 0
		s.log.Warn("bulk transition failed",
			"status", status,
			"chunks_committed", out.ChunksCommitted,
			"chunks_total", out.ChunksTotal,
			"atomic", atomic,
			"error", err,
		)
		if len(committed) > 0 {
			s.afterWrite(ctx, committed, status, in.ActorID)
		}
		return out, err
	}

	s.afterWrite(ctx, committed, status, in.ActorID)
	out.Transferred = status == types.StatusApprovedByClient
	out.Message = fmt.Sprintf("Successfully updated %d asset(s)", len(ids))
	return out, nil
}

func (s *bulkService) prepare(ctx context.Context, ids []uuid.UUID, status types.AssetStatus, explicit *int) ([]bulkChunk, error) {
	dbc := dbctx.Context{Ctx: ctx}
	out := make([]bulkChunk, 0, (len(ids)+s.chunkSize-1)/s.chunkSize)
	for _, part := range Chunk(ids, s.chunkSize) {
		assets, err := s.assets.GetByIDs(dbc, part)
		if err != nil {
			return nil, aggregates.MapError(opBulk, err)
		}
		byID := make(map[uuid.UUID]*types.Asset, len(assets))
		for _, a := range assets {
			byID[a.ID] = a
		}
		var tracked map[uuid.UUID]int
		if status == types.StatusRevisions {
			tracked, err = s.history.MaxRevisionNumbers(dbc, part)
			if err != nil {
				return nil, aggregates.MapError(opBulk, err)
			}
		}
		c := bulkChunk{ids: part}
		for _, id := range part {
			a, ok := byID[id]
			if !ok {
				continue
			}
			change := assetChange{Asset: a, PreviousStatus: a.Status}
			if status == types.StatusRevisions {
				if c.revisions == nil {
					c.revisions = map[uuid.UUID]int{}
				}
				n := nextRevisionNumber(a, tracked, explicit)
				c.revisions[id] = n
				change.RevisionNumber = &n
			}
			c.changes = append(c.changes, change)
		}
		out = append(out, c)
	}
	return out, nil
}

// writeChunk issues exactly one asset update for the chunk plus its history rows.
func (s *bulkService) writeChunk(dbc dbctx.Context, c bulkChunk, status types.AssetStatus, actorID uuid.UUID) (int64, error) {
	n, err := s.assets.UpdateStatusChunk(dbc, c.ids, status, c.revisions)
	if err != nil {
		return 0, err
	}
	rows := make([]*types.AssetStatusHistory, 0, len(c.changes))
	for _, ch := range c.changes {
		rows = append(rows, historyRow(ch, status, actorID))
	}
	if err := s.history.Create(dbc, rows); err != nil {
		return 0, err
	}
	return n, nil
}

func (s *bulkService) afterWrite(ctx context.Context, committed []bulkChunk, status types.AssetStatus, actorID uuid.UUID) {
	var ids []uuid.UUID
	var changes []assetChange
	for _, c := range committed {
		ids = append(ids, c.ids...)
		for _, ch := range c.changes {
			ch.Asset.Status = status
			if ch.RevisionNumber != nil {
				ch.Asset.RevisionCount = *ch.RevisionNumber
			}
			changes = append(changes, ch)
		}
	}

	idx, err := loadModelerIndex(ctx, s.assignments, ids, s.chunkSize)
	if err != nil {
		s.log.Warn("modeler assignment lookup failed", "count", len(ids), "error", err)
	}
	if idx != nil && len(idx.lists) > 0 {
		s.rollup.RecomputeMany(ctx, idx.lists)
		s.cleanup.CleanupMany(ctx, idx.lists)
	}

	if status == types.StatusApprovedByClient && s.catalog != nil {
		if _, err := s.catalog.TransferApproved(ctx, ids); err != nil {
			s.log.Warn("catalog transfer failed", "count", len(ids), "error", err)
		}
	}

	s.dispatch.Dispatch(ctx, statusEffects(ctx, s.log, s.assignments, actorID, status, changes, idx)...)
}
