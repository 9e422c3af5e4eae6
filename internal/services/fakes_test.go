package services

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/charpstar/pipeline-backend/internal/data/aggregates"
	"github.com/charpstar/pipeline-backend/internal/data/repos"
	types "github.com/charpstar/pipeline-backend/internal/domain"
	"github.com/charpstar/pipeline-backend/internal/domain/jobs"
	"github.com/charpstar/pipeline-backend/internal/platform/dbctx"
	"github.com/charpstar/pipeline-backend/internal/platform/logger"
)

var errInjected = errors.New("injected failure")

// memStore is an in-memory stand-in for the pipeline tables.
type memStore struct {
	mu sync.Mutex

	profiles    map[uuid.UUID]types.Profile
	assets      map[uuid.UUID]types.Asset
	assignments []types.AssetAssignment
	lists       map[uuid.UUID]types.AllocationList
	listOrder   []uuid.UUID
	qaPairs     map[[2]uuid.UUID]bool
	history     []types.AssetStatusHistory
	catalog     map[string]types.CatalogAsset
	tasks       []types.SideEffectTask

	chunkUpdates  int
	failChunkCall int
	casLosses     int
	failListAll   bool
}

func newMemStore() *memStore {
	return &memStore{
		profiles: map[uuid.UUID]types.Profile{},
		assets:   map[uuid.UUID]types.Asset{},
		lists:    map[uuid.UUID]types.AllocationList{},
		qaPairs:  map[[2]uuid.UUID]bool{},
		catalog:  map[string]types.CatalogAsset{},
	}
}

type memSnapshot struct {
	assets      map[uuid.UUID]types.Asset
	assignments []types.AssetAssignment
	lists       map[uuid.UUID]types.AllocationList
	listOrder   []uuid.UUID
	history     []types.AssetStatusHistory
}

func (s *memStore) snapshot() memSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := memSnapshot{
		assets:      make(map[uuid.UUID]types.Asset, len(s.assets)),
		assignments: append([]types.AssetAssignment(nil), s.assignments...),
		lists:       make(map[uuid.UUID]types.AllocationList, len(s.lists)),
		listOrder:   append([]uuid.UUID(nil), s.listOrder...),
		history:     append([]types.AssetStatusHistory(nil), s.history...),
	}
	for k, v := range s.assets {
		snap.assets[k] = v
	}
	for k, v := range s.lists {
		snap.lists[k] = v
	}
	return snap
}

func (s *memStore) restore(snap memSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.assets = snap.assets
	s.assignments = snap.assignments
	s.lists = snap.lists
	s.listOrder = snap.listOrder
	s.history = snap.history
}

// memTxRunner rolls the store back when the body fails.
type memTxRunner struct {
	store *memStore
}

func (r memTxRunner) InTx(ctx context.Context, fn func(dbc dbctx.Context) error) error {
	snap := r.store.snapshot()
	if err := fn(dbctx.Context{Ctx: ctx}); err != nil {
		r.store.restore(snap)
		return err
	}
	return nil
}

// seed helpers

func (s *memStore) addProfile(role types.Role) uuid.UUID {
	id := uuid.New()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[id] = types.Profile{ID: id, Role: string(role)}
	return id
}

func (s *memStore) addAsset(status types.AssetStatus, mutate ...func(a *types.Asset)) uuid.UUID {
	a := types.Asset{ID: uuid.New(), Status: status, Client: "acme", ArticleID: uuid.NewString()[:8], ProductName: "Chair"}
	for _, m := range mutate {
		m(&a)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.assets[a.ID] = a
	return a.ID
}

func (s *memStore) addList(userID uuid.UUID, status types.AllocationListStatus) uuid.UUID {
	id := uuid.New()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lists[id] = types.AllocationList{
		ID:        id,
		Name:      "Batch " + id.String()[:4],
		UserID:    userID,
		Role:      types.AssignmentRoleModeler,
		Status:    status,
		CreatedAt: time.Now(),
	}
	s.listOrder = append(s.listOrder, id)
	return id
}

func (s *memStore) assign(assetID, userID, listID uuid.UUID, role types.AssignmentRole, provisional bool) {
	l := listID
	s.mu.Lock()
	defer s.mu.Unlock()
	s.assignments = append(s.assignments, types.AssetAssignment{
		ID:               uuid.New(),
		AssetID:          assetID,
		UserID:           userID,
		Role:             role,
		AllocationListID: &l,
		IsProvisional:    provisional,
	})
}

func (s *memStore) asset(id uuid.UUID) types.Asset {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.assets[id]
}

func (s *memStore) list(id uuid.UUID) (types.AllocationList, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.lists[id]
	return l, ok
}

func (s *memStore) historyFor(assetID uuid.UUID) []types.AssetStatusHistory {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []types.AssetStatusHistory
	for _, h := range s.history {
		if h.AssetID == assetID {
			out = append(out, h)
		}
	}
	return out
}

func (s *memStore) provisionalQA(listID uuid.UUID) []types.AssetAssignment {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []types.AssetAssignment
	for _, a := range s.assignments {
		if a.Role == types.AssignmentRoleQA && a.IsProvisional && a.AllocationListID != nil && *a.AllocationListID == listID {
			out = append(out, a)
		}
	}
	return out
}

// profiles

type memProfiles struct{ s *memStore }

var _ repos.ProfileRepo = memProfiles{}

func (r memProfiles) Create(_ dbctx.Context, rows []*types.Profile) ([]*types.Profile, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, p := range rows {
		r.s.profiles[p.ID] = *p
	}
	return rows, nil
}

func (r memProfiles) GetByID(_ dbctx.Context, id uuid.UUID) (*types.Profile, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.profiles[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

// assets

type memAssets struct{ s *memStore }

var _ repos.AssetRepo = memAssets{}

func (r memAssets) GetByID(_ dbctx.Context, id uuid.UUID) (*types.Asset, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a, ok := r.s.assets[id]
	if !ok {
		return nil, nil
	}
	return &a, nil
}

func (r memAssets) GetByIDs(_ dbctx.Context, ids []uuid.UUID) ([]*types.Asset, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []*types.Asset{}
	for _, id := range ids {
		if a, ok := r.s.assets[id]; ok {
			a := a
			out = append(out, &a)
		}
	}
	return out, nil
}

func (r memAssets) UpdateStatus(_ dbctx.Context, id uuid.UUID, status types.AssetStatus, revisionCount *int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a, ok := r.s.assets[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	a.Status = status
	if revisionCount != nil {
		a.RevisionCount = *revisionCount
	}
	r.s.assets[id] = a
	return nil
}

func (r memAssets) UpdateStatusChunk(_ dbctx.Context, ids []uuid.UUID, status types.AssetStatus, revisionCounts map[uuid.UUID]int) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.chunkUpdates++
	if r.s.failChunkCall > 0 && r.s.chunkUpdates == r.s.failChunkCall {
		return 0, errInjected
	}
	var n int64
	for _, id := range ids {
		a, ok := r.s.assets[id]
		if !ok {
			continue
		}
		a.Status = status
		if rc, ok := revisionCounts[id]; ok {
			a.RevisionCount = rc
		}
		r.s.assets[id] = a
		n++
	}
	return n, nil
}

func (r memAssets) ListTransferable(_ dbctx.Context, ids []uuid.UUID) ([]*types.Asset, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []*types.Asset{}
	for _, id := range ids {
		a, ok := r.s.assets[id]
		if ok && a.Status == types.StatusApprovedByClient && !a.Transferred {
			a := a
			out = append(out, &a)
		}
	}
	return out, nil
}

func (r memAssets) MarkTransferred(_ dbctx.Context, ids []uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, id := range ids {
		if a, ok := r.s.assets[id]; ok {
			a.Transferred = true
			r.s.assets[id] = a
		}
	}
	return nil
}

// assignments

type memAssignments struct{ s *memStore }

var _ repos.AssetAssignmentRepo = memAssignments{}

func inList(a types.AssetAssignment, listID uuid.UUID) bool {
	return a.AllocationListID != nil && *a.AllocationListID == listID
}

func (r memAssignments) Create(_ dbctx.Context, rows []*types.AssetAssignment) ([]*types.AssetAssignment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, row := range rows {
		r.s.assignments = append(r.s.assignments, *row)
	}
	return rows, nil
}

func (r memAssignments) ListByList(_ dbctx.Context, listID uuid.UUID, role types.AssignmentRole) ([]*types.AssetAssignment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []*types.AssetAssignment{}
	for _, a := range r.s.assignments {
		if inList(a, listID) && a.Role == role {
			a := a
			out = append(out, &a)
		}
	}
	return out, nil
}

func (r memAssignments) ListProvisionalQA(_ dbctx.Context, listID uuid.UUID) ([]*types.AssetAssignment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []*types.AssetAssignment{}
	for _, a := range r.s.assignments {
		if inList(a, listID) && a.Role == types.AssignmentRoleQA && a.IsProvisional {
			a := a
			out = append(out, &a)
		}
	}
	return out, nil
}

func (r memAssignments) ListByAssets(_ dbctx.Context, assetIDs []uuid.UUID, role types.AssignmentRole) ([]*types.AssetAssignment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	want := map[uuid.UUID]bool{}
	for _, id := range assetIDs {
		want[id] = true
	}
	out := []*types.AssetAssignment{}
	for _, a := range r.s.assignments {
		if want[a.AssetID] && a.Role == role {
			a := a
			out = append(out, &a)
		}
	}
	return out, nil
}

func (r memAssignments) ListAssetStatuses(_ dbctx.Context, listID uuid.UUID, role types.AssignmentRole) ([]types.AssetStatus, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []types.AssetStatus{}
	for _, a := range r.s.assignments {
		if !inList(a, listID) || a.Role != role {
			continue
		}
		asset, ok := r.s.assets[a.AssetID]
		if !ok {
			out = append(out, "")
			continue
		}
		out = append(out, asset.Status)
	}
	return out, nil
}

func (r memAssignments) CountByList(_ dbctx.Context, listID uuid.UUID) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for _, a := range r.s.assignments {
		if inList(a, listID) {
			n++
		}
	}
	return n, nil
}

func (r memAssignments) CountByLists(dbc dbctx.Context, listIDs []uuid.UUID) (map[uuid.UUID]int64, error) {
	out := make(map[uuid.UUID]int64, len(listIDs))
	for _, id := range listIDs {
		n, _ := r.CountByList(dbc, id)
		out[id] = n
	}
	return out, nil
}

func (r memAssignments) DeleteProvisionalQA(_ dbctx.Context, listID uuid.UUID) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	kept := r.s.assignments[:0:0]
	var n int64
	for _, a := range r.s.assignments {
		if inList(a, listID) && a.Role == types.AssignmentRoleQA && a.IsProvisional {
			n++
			continue
		}
		kept = append(kept, a)
	}
	r.s.assignments = kept
	return n, nil
}

// allocation lists

type memLists struct{ s *memStore }

var _ repos.AllocationListRepo = memLists{}

func (r memLists) Create(_ dbctx.Context, rows []*types.AllocationList) ([]*types.AllocationList, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, l := range rows {
		r.s.lists[l.ID] = *l
		r.s.listOrder = append(r.s.listOrder, l.ID)
	}
	return rows, nil
}

func (r memLists) GetByID(_ dbctx.Context, id uuid.UUID) (*types.AllocationList, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	l, ok := r.s.lists[id]
	if !ok {
		return nil, nil
	}
	return &l, nil
}

func (r memLists) ListAll(_ dbctx.Context) ([]*types.AllocationList, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.failListAll {
		return nil, errInjected
	}
	out := []*types.AllocationList{}
	for _, id := range r.s.listOrder {
		if l, ok := r.s.lists[id]; ok {
			l := l
			out = append(out, &l)
		}
	}
	return out, nil
}

// UpdateByVersion simulates a concurrent writer winning the race while
// casLosses is positive.
func (r memLists) UpdateByVersion(_ dbctx.Context, id uuid.UUID, expectedVersion int, updates map[string]interface{}) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	l, ok := r.s.lists[id]
	if !ok {
		return false, nil
	}
	if r.s.casLosses > 0 {
		r.s.casLosses--
		l.Version++
		r.s.lists[id] = l
		return false, nil
	}
	if l.Version != expectedVersion {
		return false, nil
	}
	if st, ok := updates["status"]; ok {
		l.Status = st.(types.AllocationListStatus)
	}
	if v, ok := updates["approved_at"]; ok {
		if t, isTime := v.(time.Time); isTime {
			l.ApprovedAt = &t
		} else {
			l.ApprovedAt = nil
		}
	}
	l.Version++
	r.s.lists[id] = l
	return true, nil
}

func (r memLists) DeleteIfEmpty(_ dbctx.Context, id uuid.UUID) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.lists[id]; !ok {
		return false, nil
	}
	for _, a := range r.s.assignments {
		if inList(a, id) {
			return false, nil
		}
	}
	delete(r.s.lists, id)
	return true, nil
}

// qa allocations

type memQAAllocations struct{ s *memStore }

var _ repos.QAAllocationRepo = memQAAllocations{}

func (r memQAAllocations) Create(_ dbctx.Context, rows []*types.QAAllocation) ([]*types.QAAllocation, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, row := range rows {
		r.s.qaPairs[[2]uuid.UUID{row.QAID, row.ModelerID}] = true
	}
	return rows, nil
}

func (r memQAAllocations) Exists(_ dbctx.Context, qaID, modelerID uuid.UUID) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.qaPairs[[2]uuid.UUID{qaID, modelerID}], nil
}

// status history

type memHistory struct{ s *memStore }

var _ repos.AssetStatusHistoryRepo = memHistory{}

func (r memHistory) Create(_ dbctx.Context, rows []*types.AssetStatusHistory) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, row := range rows {
		r.s.history = append(r.s.history, *row)
	}
	return nil
}

func (r memHistory) MaxRevisionNumbers(_ dbctx.Context, assetIDs []uuid.UUID) (map[uuid.UUID]int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	want := map[uuid.UUID]bool{}
	for _, id := range assetIDs {
		want[id] = true
	}
	out := map[uuid.UUID]int{}
	for _, h := range r.s.history {
		if !want[h.AssetID] || h.ActionType != types.ActionRevision || h.RevisionNumber == nil {
			continue
		}
		if cur, ok := out[h.AssetID]; !ok || *h.RevisionNumber > cur {
			out[h.AssetID] = *h.RevisionNumber
		}
	}
	return out, nil
}

// catalog

type memCatalog struct{ s *memStore }

var _ repos.CatalogAssetRepo = memCatalog{}

func catalogKey(client, articleID string) string { return client + "|" + articleID }

func (r memCatalog) InsertIgnoreDuplicates(_ dbctx.Context, rows []*types.CatalogAsset) ([]uuid.UUID, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, row := range rows {
		k := catalogKey(row.Client, row.ArticleID)
		if _, ok := r.s.catalog[k]; ok {
			continue
		}
		r.s.catalog[k] = *row
	}
	var owned []uuid.UUID
	for _, row := range rows {
		if r.s.catalog[catalogKey(row.Client, row.ArticleID)].SourceAssetID == row.SourceAssetID {
			owned = append(owned, row.SourceAssetID)
		}
	}
	return owned, nil
}

func (r memCatalog) UpdateGLBLink(_ dbctx.Context, sourceAssetID uuid.UUID, link string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for k, row := range r.s.catalog {
		if row.SourceAssetID == sourceAssetID {
			row.GLBLink = link
			r.s.catalog[k] = row
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

// side effect tasks

type memTasks struct {
	s       *memStore
	failAll bool
}

var _ repos.SideEffectTaskRepo = (*memTasks)(nil)

func (r *memTasks) Create(_ dbctx.Context, rows []*types.SideEffectTask) ([]*types.SideEffectTask, error) {
	if r.failAll {
		return nil, errInjected
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, t := range rows {
		r.s.tasks = append(r.s.tasks, *t)
	}
	return rows, nil
}

func (r *memTasks) GetByIDs(_ dbctx.Context, ids []uuid.UUID) ([]*types.SideEffectTask, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	want := map[uuid.UUID]bool{}
	for _, id := range ids {
		want[id] = true
	}
	out := []*types.SideEffectTask{}
	for _, t := range r.s.tasks {
		if want[t.ID] {
			t := t
			out = append(out, &t)
		}
	}
	return out, nil
}

func (r *memTasks) ClaimNextRunnable(_ dbctx.Context, _ int, _ time.Duration, _ time.Duration) (*types.SideEffectTask, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for i := range r.s.tasks {
		if r.s.tasks[i].Status == jobs.TaskStatusQueued {
			r.s.tasks[i].Status = jobs.TaskStatusRunning
			r.s.tasks[i].Attempts++
			t := r.s.tasks[i]
			return &t, nil
		}
	}
	return nil, nil
}

func (r *memTasks) MarkSucceeded(_ dbctx.Context, id uuid.UUID) error {
	return r.setStatus(id, jobs.TaskStatusSucceeded, "")
}

func (r *memTasks) MarkFailed(_ dbctx.Context, id uuid.UUID, msg string, dead bool) error {
	if dead {
		return r.setStatus(id, jobs.TaskStatusDead, msg)
	}
	return r.setStatus(id, jobs.TaskStatusFailed, msg)
}

func (r *memTasks) setStatus(id uuid.UUID, status, msg string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for i := range r.s.tasks {
		if r.s.tasks[i].ID == id {
			r.s.tasks[i].Status = status
			r.s.tasks[i].Error = msg
		}
	}
	return nil
}

func (r *memTasks) ListDead(_ dbctx.Context, _ int) ([]*types.SideEffectTask, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []*types.SideEffectTask{}
	for _, t := range r.s.tasks {
		if t.Status == jobs.TaskStatusDead {
			t := t
			out = append(out, &t)
		}
	}
	return out, nil
}

func (s *memStore) taskKinds() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.tasks))
	for _, t := range s.tasks {
		out = append(out, t.Kind)
	}
	sort.Strings(out)
	return out
}

// recordingDispatcher keeps every effect in memory.
type recordingDispatcher struct {
	mu      sync.Mutex
	effects []SideEffect
}

func (d *recordingDispatcher) Dispatch(_ context.Context, effects ...SideEffect) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.effects = append(d.effects, effects...)
}

func (d *recordingDispatcher) notifications(kind string) []types.NotificationPayload {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []types.NotificationPayload
	for _, e := range d.effects {
		p, ok := e.Payload.(types.NotificationPayload)
		if ok && (kind == "" || p.Type == kind) {
			out = append(out, p)
		}
	}
	return out
}

func (d *recordingDispatcher) activities() []types.ActivityPayload {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []types.ActivityPayload
	for _, e := range d.effects {
		if p, ok := e.Payload.(types.ActivityPayload); ok {
			out = append(out, p)
		}
	}
	return out
}

// fakeGLBStore records copies; keys under failPrefix fail.
type fakeGLBStore struct {
	mu         sync.Mutex
	copies     map[string]string
	failPrefix string
}

func (f *fakeGLBStore) CopyObject(_ context.Context, srcKey, dstKey string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failPrefix != "" && len(srcKey) >= len(f.failPrefix) && srcKey[:len(f.failPrefix)] == f.failPrefix {
		return errInjected
	}
	if f.copies == nil {
		f.copies = map[string]string{}
	}
	f.copies[dstKey] = srcKey
	return nil
}

func (f *fakeGLBStore) KeyFromURL(rawURL string) (string, bool) {
	const prefix = "https://cdn.test/"
	if len(rawURL) <= len(prefix) || rawURL[:len(prefix)] != prefix {
		return "", false
	}
	return rawURL[len(prefix):], true
}

func (f *fakeGLBStore) PublicURL(key string) string { return "https://cdn.test/" + key }

// fixture wires every service over one memStore.
type fixture struct {
	store      *memStore
	dispatch   *recordingDispatcher
	glb        *fakeGLBStore
	rollup     RollupService
	cleanup    CleanupService
	catalog    CatalogService
	transition TransitionService
	bulk       BulkService
	qa         QATransferService
}

func newFixture(chunkSize int) *fixture {
	store := newMemStore()
	log := logger.Nop()
	deps := aggregates.BaseDeps{Runner: memTxRunner{store: store}, Log: log}
	f := &fixture{store: store, dispatch: &recordingDispatcher{}, glb: &fakeGLBStore{}}

	profiles := memProfiles{s: store}
	assets := memAssets{s: store}
	assignments := memAssignments{s: store}
	lists := memLists{s: store}
	history := memHistory{s: store}

	f.rollup = NewRollupService(deps, log, lists, assignments, nil, DefaultRollupMaxAttempts)
	f.cleanup = NewCleanupService(deps, log, lists, assignments, nil)
	f.catalog = NewCatalogService(log, assets, memCatalog{s: store}, f.glb, nil, chunkSize)
	f.transition = NewTransitionService(deps, log, profiles, assets, assignments, history, f.rollup, f.cleanup, f.catalog, f.dispatch)
	f.bulk = NewBulkService(deps, log, profiles, assets, assignments, history, f.rollup, f.cleanup, f.catalog, f.dispatch, nil, chunkSize)
	f.qa = NewQATransferService(deps, log, profiles, lists, assignments, memQAAllocations{s: store}, f.cleanup, f.dispatch)
	return f
}
