package services

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/charpstar/pipeline-backend/internal/data/repos"
	types "github.com/charpstar/pipeline-backend/internal/domain"
	"github.com/charpstar/pipeline-backend/internal/domain/jobs"
	"github.com/charpstar/pipeline-backend/internal/observability"
	"github.com/charpstar/pipeline-backend/internal/platform/dbctx"
	"github.com/charpstar/pipeline-backend/internal/platform/logger"
)

// SideEffect is one unit of best-effort work queued after a primary write.
type SideEffect struct {
	Kind    string
	Payload any
}

func ActivityEffect(p types.ActivityPayload) SideEffect {
	return SideEffect{Kind: jobs.TaskKindActivityLog, Payload: p}
}

func NotificationEffect(p types.NotificationPayload) SideEffect {
	return SideEffect{Kind: jobs.TaskKindNotification, Payload: p}
}

// SideEffectDispatcher never blocks and never reports failure to the caller.
type SideEffectDispatcher interface {
	Dispatch(ctx context.Context, effects ...SideEffect)
}

// TaskStarter hands persisted tasks to an external executor instead of the
// local worker pool.
type TaskStarter interface {
	StartTask(ctx context.Context, taskID uuid.UUID) error
}

type OutboxDispatcher struct {
	log     *logger.Logger
	repo    repos.SideEffectTaskRepo
	metrics *observability.Metrics
	starter TaskStarter
	wg      sync.WaitGroup
}

func NewOutboxDispatcher(baseLog *logger.Logger, repo repos.SideEffectTaskRepo, metrics *observability.Metrics, starter TaskStarter) *OutboxDispatcher {
	return &OutboxDispatcher{
		log:     baseLog.With("service", "SideEffectDispatcher"),
		repo:    repo,
		metrics: metrics,
		starter: starter,
	}
}

func (d *OutboxDispatcher) Dispatch(ctx context.Context, effects ...SideEffect) {
	if d == nil || len(effects) == 0 {
		return
	}
	bg := context.WithoutCancel(ctx)
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				d.log.Error("side effect dispatch panic", "panic", r)
			}
		}()
		d.persist(bg, effects)
	}()
}

// Wait blocks until every in-flight Dispatch has persisted its tasks.
func (d *OutboxDispatcher) Wait() {
	if d == nil {
		return
	}
	d.wg.Wait()
}

func (d *OutboxDispatcher) persist(ctx context.Context, effects []SideEffect) {
	tasks := make([]*types.SideEffectTask, 0, len(effects))
	for _, e := range effects {
		raw, err := json.Marshal(e.Payload)
		if err != nil {
			d.metrics.IncSideEffect(e.Kind, "encode_failed")
			d.log.Warn("side effect payload encode failed", "kind", e.Kind, "error", err)
			continue
		}
		tasks = append(tasks, &types.SideEffectTask{
			ID:      uuid.New(),
			Kind:    e.Kind,
			Payload: datatypes.JSON(raw),
			Status:  jobs.TaskStatusQueued,
		})
	}
	if len(tasks) == 0 {
		return
	}
	if _, err := d.repo.Create(dbctx.Context{Ctx: ctx}, tasks); err != nil {
		for _, t := range tasks {
			d.metrics.IncSideEffect(t.Kind, "enqueue_failed")
		}
		d.log.Warn("side effect enqueue failed", "count", len(tasks), "error", err)
		return
	}
	for _, t := range tasks {
		d.metrics.IncSideEffect(t.Kind, jobs.TaskStatusQueued)
		if d.starter == nil {
			continue
		}
		if err := d.starter.StartTask(ctx, t.ID); err != nil {
			d.log.Warn("side effect start failed", "task_id", t.ID, "kind", t.Kind, "error", err)
		}
	}
}

type nopDispatcher struct{}

func (nopDispatcher) Dispatch(context.Context, ...SideEffect) {}

// NopDispatcher drops every effect; used by maintenance commands.
func NopDispatcher() SideEffectDispatcher { return nopDispatcher{} }
