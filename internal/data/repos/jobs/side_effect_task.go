package jobs

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/charpstar/pipeline-backend/internal/domain"
	"github.com/charpstar/pipeline-backend/internal/domain/jobs"
	"github.com/charpstar/pipeline-backend/internal/platform/dbctx"
	"github.com/charpstar/pipeline-backend/internal/platform/logger"
)

type SideEffectTaskRepo interface {
	Create(dbc dbctx.Context, tasks []*types.SideEffectTask) ([]*types.SideEffectTask, error)
	GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.SideEffectTask, error)
	ClaimNextRunnable(dbc dbctx.Context, maxAttempts int, retryDelay time.Duration, staleRunning time.Duration) (*types.SideEffectTask, error)
	MarkSucceeded(dbc dbctx.Context, id uuid.UUID) error
	// MarkFailed records the failure; dead moves the task out of the runnable set.
	MarkFailed(dbc dbctx.Context, id uuid.UUID, msg string, dead bool) error
	ListDead(dbc dbctx.Context, limit int) ([]*types.SideEffectTask, error)
}

type sideEffectTaskRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSideEffectTaskRepo(db *gorm.DB, baseLog *logger.Logger) SideEffectTaskRepo {
	return &sideEffectTaskRepo{
		db:  db,
		log: baseLog.With("repo", "SideEffectTaskRepo"),
	}
}

func (r *sideEffectTaskRepo) Create(dbc dbctx.Context, tasks []*types.SideEffectTask) ([]*types.SideEffectTask, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(tasks) == 0 {
		return []*types.SideEffectTask{}, nil
	}
	if err := transaction.WithContext(dbc.Ctx).Create(&tasks).Error; err != nil {
		return nil, err
	}
	return tasks, nil
}

func (r *sideEffectTaskRepo) GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.SideEffectTask, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.SideEffectTask
	if len(ids) == 0 {
		return out, nil
	}
	if err := transaction.WithContext(dbc.Ctx).
		Where("id IN ?", ids).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *sideEffectTaskRepo) ClaimNextRunnable(dbc dbctx.Context, maxAttempts int, retryDelay time.Duration, staleRunning time.Duration) (*types.SideEffectTask, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	now := time.Now()
	retryCutoff := now.Add(-retryDelay)
	staleCutoff := now.Add(-staleRunning)
	var claimed *types.SideEffectTask
	err := transaction.WithContext(dbc.Ctx).Transaction(func(txx *gorm.DB) error {
		var task types.SideEffectTask
		q := txx.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
			Where(`
        (
          status = ?
          OR (
            status = ?
            AND attempts < ?
            AND (last_error_at IS NULL OR last_error_at < ?)
          )
          OR (
            status = ?
            AND locked_at IS NOT NULL
            AND locked_at < ?
          )
        )
      `, jobs.TaskStatusQueued, jobs.TaskStatusFailed, maxAttempts, retryCutoff, jobs.TaskStatusRunning, staleCutoff).
			Order("created_at ASC")
		qErr := q.First(&task).Error
		if errors.Is(qErr, gorm.ErrRecordNotFound) {
			return nil
		}
		if qErr != nil {
			return qErr
		}
		uErr := txx.Model(&types.SideEffectTask{}).
			Where("id = ?", task.ID).
			Updates(map[string]interface{}{
				"status":     jobs.TaskStatusRunning,
				"attempts":   gorm.Expr("attempts + 1"),
				"locked_at":  now,
				"updated_at": now,
			}).Error
		if uErr != nil {
			return uErr
		}
		task.Status = jobs.TaskStatusRunning
		task.Attempts++
		task.LockedAt = &now
		claimed = &task
		return nil
	})
	if err != nil {
		return nil, err
	}
	return claimed, nil
}

func (r *sideEffectTaskRepo) MarkSucceeded(dbc dbctx.Context, id uuid.UUID) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil
	}
	return transaction.WithContext(dbc.Ctx).
		Model(&types.SideEffectTask{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":     jobs.TaskStatusSucceeded,
			"error":      "",
			"locked_at":  nil,
			"updated_at": time.Now(),
		}).Error
}

func (r *sideEffectTaskRepo) MarkFailed(dbc dbctx.Context, id uuid.UUID, msg string, dead bool) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil
	}
	status := jobs.TaskStatusFailed
	if dead {
		status = jobs.TaskStatusDead
	}
	now := time.Now()
	return transaction.WithContext(dbc.Ctx).
		Model(&types.SideEffectTask{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":        status,
			"error":         msg,
			"locked_at":     nil,
			"last_error_at": now,
			"updated_at":    now,
		}).Error
}

func (r *sideEffectTaskRepo) ListDead(dbc dbctx.Context, limit int) ([]*types.SideEffectTask, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if limit <= 0 {
		limit = 100
	}
	out := []*types.SideEffectTask{}
	if err := transaction.WithContext(dbc.Ctx).
		Where("status = ?", jobs.TaskStatusDead).
		Order("updated_at DESC").
		Limit(limit).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
