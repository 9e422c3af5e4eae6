package worker

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	types "github.com/charpstar/pipeline-backend/internal/domain"
	"github.com/charpstar/pipeline-backend/internal/domain/jobs"
	"github.com/charpstar/pipeline-backend/internal/jobs/runtime"
	"github.com/charpstar/pipeline-backend/internal/observability"
	"github.com/charpstar/pipeline-backend/internal/platform/dbctx"
	"github.com/charpstar/pipeline-backend/internal/platform/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

type memTaskRepo struct {
	mu    sync.Mutex
	tasks []*types.SideEffectTask
}

func (r *memTaskRepo) add(kind string) uuid.UUID {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := uuid.New()
	r.tasks = append(r.tasks, &types.SideEffectTask{ID: id, Kind: kind, Payload: []byte(`{}`), Status: jobs.TaskStatusQueued})
	return id
}

func (r *memTaskRepo) get(id uuid.UUID) types.SideEffectTask {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.tasks {
		if t.ID == id {
			return *t
		}
	}
	return types.SideEffectTask{}
}

func (r *memTaskRepo) Create(_ dbctx.Context, rows []*types.SideEffectTask) ([]*types.SideEffectTask, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tasks = append(r.tasks, rows...)
	return rows, nil
}

func (r *memTaskRepo) GetByIDs(_ dbctx.Context, ids []uuid.UUID) ([]*types.SideEffectTask, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []*types.SideEffectTask{}
	for _, t := range r.tasks {
		for _, id := range ids {
			if t.ID == id {
				c := *t
				out = append(out, &c)
			}
		}
	}
	return out, nil
}

// ClaimNextRunnable mirrors the Postgres repo: failed rows wait out retryDelay
// measured from LastErrorAt.
func (r *memTaskRepo) ClaimNextRunnable(_ dbctx.Context, maxAttempts int, retryDelay time.Duration, _ time.Duration) (*types.SideEffectTask, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cutoff := time.Now().Add(-retryDelay)
	for _, t := range r.tasks {
		retryable := t.Status == jobs.TaskStatusFailed && t.Attempts < maxAttempts &&
			(t.LastErrorAt == nil || !t.LastErrorAt.After(cutoff))
		if t.Status != jobs.TaskStatusQueued && !retryable {
			continue
		}
		t.Status = jobs.TaskStatusRunning
		t.Attempts++
		c := *t
		return &c, nil
	}
	return nil, nil
}

func (r *memTaskRepo) MarkSucceeded(_ dbctx.Context, id uuid.UUID) error {
	return r.set(id, jobs.TaskStatusSucceeded, "")
}

func (r *memTaskRepo) MarkFailed(_ dbctx.Context, id uuid.UUID, msg string, dead bool) error {
	if dead {
		return r.set(id, jobs.TaskStatusDead, msg)
	}
	return r.set(id, jobs.TaskStatusFailed, msg)
}

func (r *memTaskRepo) set(id uuid.UUID, status, msg string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.tasks {
		if t.ID == id {
			t.Status = status
			t.Error = msg
			if msg != "" {
				now := time.Now()
				t.LastErrorAt = &now
			}
		}
	}
	return nil
}

func (r *memTaskRepo) ListDead(_ dbctx.Context, _ int) ([]*types.SideEffectTask, error) {
	return nil, nil
}

type stubHandler struct {
	kind  string
	err   error
	panic bool
	runs  int
}

func (h *stubHandler) Kind() string { return h.kind }

func (h *stubHandler) Run(*runtime.Context) error {
	h.runs++
	if h.panic {
		panic("boom")
	}
	return h.err
}

func newTestWorker(t *testing.T, repo *memTaskRepo, metrics *observability.Metrics, hs ...runtime.Handler) *Worker {
	t.Helper()
	return newTestWorkerWithConfig(t, repo, metrics, Config{MaxAttempts: 5}, hs...)
}

func newTestWorkerWithConfig(t *testing.T, repo *memTaskRepo, metrics *observability.Metrics, cfg Config, hs ...runtime.Handler) *Worker {
	t.Helper()
	reg := runtime.NewRegistry()
	for _, h := range hs {
		if err := reg.Register(h); err != nil {
			t.Fatalf("Register: %v", err)
		}
	}
	return NewWorker(logger.Nop(), repo, reg, metrics, cfg)
}

func drain(t *testing.T, w *Worker) int {
	t.Helper()
	n := 0
	for {
		ran, err := w.RunOnce(context.Background())
		if err != nil {
			t.Fatalf("RunOnce: %v", err)
		}
		if !ran {
			return n
		}
		n++
	}
}

func TestWorkerMarksSuccess(t *testing.T) {
	repo := &memTaskRepo{}
	h := &stubHandler{kind: jobs.TaskKindActivityLog}
	w := newTestWorker(t, repo, nil, h)
	id := repo.add(jobs.TaskKindActivityLog)

	if n := drain(t, w); n != 1 {
		t.Fatalf("runs: want=1 got=%d", n)
	}
	if got := repo.get(id); got.Status != jobs.TaskStatusSucceeded || got.Attempts != 1 {
		t.Fatalf("task: %+v", got)
	}
}

func TestWorkerDeadLettersAfterMaxAttempts(t *testing.T) {
	repo := &memTaskRepo{}
	reg := prometheus.NewRegistry()
	metrics := observability.New(reg)
	h := &stubHandler{kind: jobs.TaskKindNotification, err: errors.New("smtp down")}
	w := newTestWorkerWithConfig(t, repo, metrics, Config{MaxAttempts: 5, RetryDelay: time.Nanosecond}, h)
	id := repo.add(jobs.TaskKindNotification)

	if n := drain(t, w); n != 5 {
		t.Fatalf("attempts: want=5 got=%d", n)
	}
	got := repo.get(id)
	if got.Status != jobs.TaskStatusDead || got.Error != "smtp down" {
		t.Fatalf("task: %+v", got)
	}
	want := `
# HELP pipeline_side_effect_dead_letters_total Side-effect tasks that exhausted their attempts.
# TYPE pipeline_side_effect_dead_letters_total counter
pipeline_side_effect_dead_letters_total{kind="notification"} 1
`
	if err := testutil.GatherAndCompare(reg, strings.NewReader(want), "pipeline_side_effect_dead_letters_total"); err != nil {
		t.Fatalf("dead letter metric: %v", err)
	}
}

func TestWorkerRecoversHandlerPanicAndMissingHandler(t *testing.T) {
	repo := &memTaskRepo{}
	w := newTestWorker(t, repo, nil, &stubHandler{kind: jobs.TaskKindActivityLog, panic: true})
	panicky := repo.add(jobs.TaskKindActivityLog)
	orphan := repo.add("unknown_kind")

	if _, err := w.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if _, err := w.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if got := repo.get(panicky); got.Status != jobs.TaskStatusFailed || got.Error != "panic: boom" {
		t.Fatalf("panicking task: %+v", got)
	}
	if got := repo.get(orphan); got.Status != jobs.TaskStatusFailed || got.Attempts != 1 {
		t.Fatalf("task without handler: %+v", got)
	}
}

func TestWorkerHoldsFailedTaskUntilRetryDelay(t *testing.T) {
	repo := &memTaskRepo{}
	h := &stubHandler{kind: jobs.TaskKindNotification, err: errors.New("bus down")}
	w := newTestWorker(t, repo, nil, h)
	id := repo.add(jobs.TaskKindNotification)

	if n := drain(t, w); n != 1 {
		t.Fatalf("runs inside retry delay: want=1 got=%d", n)
	}
	got := repo.get(id)
	if got.Status != jobs.TaskStatusFailed || got.LastErrorAt == nil {
		t.Fatalf("task: %+v", got)
	}

	past := time.Now().Add(-time.Hour)
	repo.mu.Lock()
	repo.tasks[0].LastErrorAt = &past
	repo.mu.Unlock()
	if ran, err := w.RunOnce(context.Background()); err != nil || !ran {
		t.Fatalf("retry after delay: ran=%v err=%v", ran, err)
	}
	if got := repo.get(id); got.Attempts != 2 {
		t.Fatalf("attempts: want=2 got=%d", got.Attempts)
	}
}

func TestWorkerLoopStopsOnCancel(t *testing.T) {
	repo := &memTaskRepo{}
	h := &stubHandler{kind: jobs.TaskKindActivityLog}
	reg := runtime.NewRegistry()
	_ = reg.Register(h)
	w := NewWorker(logger.Nop(), repo, reg, nil, Config{Concurrency: 2, PollInterval: 5 * time.Millisecond})
	id := repo.add(jobs.TaskKindActivityLog)

	ctx, cancel := context.WithCancel(context.Background())
	w.Start(ctx)
	deadline := time.Now().Add(2 * time.Second)
	for repo.get(id).Status != jobs.TaskStatusSucceeded {
		if time.Now().After(deadline) {
			cancel()
			t.Fatalf("task not processed")
		}
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	w.Wait()
}

func TestRunByID(t *testing.T) {
	repo := &memTaskRepo{}
	w := newTestWorker(t, repo, nil, &stubHandler{kind: jobs.TaskKindActivityLog})
	id := repo.add(jobs.TaskKindActivityLog)

	task, err := w.RunByID(context.Background(), id)
	if err != nil || task.ID != id {
		t.Fatalf("RunByID: %v", err)
	}
	if _, err := w.RunByID(context.Background(), uuid.New()); err == nil {
		t.Fatalf("expected not found")
	}
}
