package services

import (
	"context"
	"testing"

	"github.com/google/uuid"

	types "github.com/charpstar/pipeline-backend/internal/domain"
	domainagg "github.com/charpstar/pipeline-backend/internal/domain/aggregates"
	"github.com/charpstar/pipeline-backend/internal/domain/jobs"
)

type qaScene struct {
	f       *fixture
	modeler uuid.UUID
	from    uuid.UUID
	to      uuid.UUID
	list    uuid.UUID
	assets  []uuid.UUID
}

func newQAScene(t *testing.T, withProvisional bool) *qaScene {
	t.Helper()
	f := newFixture(0)
	sc := &qaScene{
		f:       f,
		modeler: f.store.addProfile(types.RoleModeler),
		from:    f.store.addProfile(types.RoleQA),
		to:      f.store.addProfile(types.RoleQA),
	}
	sc.list = f.store.addList(sc.modeler, types.ListStatusInProgress)
	for i := 0; i < 3; i++ {
		id := f.store.addAsset(types.StatusDeliveredByArtist)
		sc.assets = append(sc.assets, id)
		f.store.assign(id, sc.modeler, sc.list, types.AssignmentRoleModeler, false)
		if withProvisional {
			f.store.assign(id, sc.from, sc.list, types.AssignmentRoleQA, true)
		}
	}
	return sc
}

func TestTransferMovesProvisionalRows(t *testing.T) {
	sc := newQAScene(t, true)
	ctx := context.Background()

	res, err := sc.f.qa.Transfer(ctx, sc.list, sc.from, sc.to)
	if err != nil {
		t.Fatalf("Transfer: %v", err)
	}
	if res.TransferredAssetCount != 3 || res.Noop {
		t.Fatalf("result: %+v", res)
	}
	rows := sc.f.store.provisionalQA(sc.list)
	if len(rows) != 3 {
		t.Fatalf("provisional rows: want=3 got=%d", len(rows))
	}
	for _, r := range rows {
		if r.UserID != sc.to || r.AssignedBy == nil || *r.AssignedBy != sc.from || r.StartTime == nil {
			t.Fatalf("row not reassigned: %+v", r)
		}
	}
	if notes := sc.f.dispatch.notifications(jobs.NotificationQAReview); len(notes) != 1 || notes[0].RecipientIDs[0] != sc.to {
		t.Fatalf("notification: %+v", notes)
	}

	again, err := sc.f.qa.Transfer(ctx, sc.list, sc.to, sc.to)
	if err != nil {
		t.Fatalf("repeat Transfer: %v", err)
	}
	if !again.Noop || again.Message != msgAlreadyAssigned {
		t.Fatalf("repeat transfer should be a no-op: %+v", again)
	}
	if got := len(sc.f.store.provisionalQA(sc.list)); got != 3 {
		t.Fatalf("no-op must keep rows, got %d", got)
	}
}

func TestTransferByNonHolderIsForbidden(t *testing.T) {
	sc := newQAScene(t, true)
	outsider := sc.f.store.addProfile(types.RoleQA)

	_, err := sc.f.qa.Transfer(context.Background(), sc.list, outsider, sc.to)
	if !domainagg.IsCode(err, domainagg.CodeForbidden) || domainagg.MessageOf(err) != msgNotAssigned {
		t.Fatalf("want not-assigned forbidden, got %v", err)
	}
	for _, r := range sc.f.store.provisionalQA(sc.list) {
		if r.UserID != sc.from {
			t.Fatalf("rows must be untouched")
		}
	}
}

func TestTransferFallsBackToQAAllocation(t *testing.T) {
	sc := newQAScene(t, false)
	ctx := context.Background()

	if _, err := sc.f.qa.Transfer(ctx, sc.list, sc.from, sc.to); !domainagg.IsCode(err, domainagg.CodeForbidden) {
		t.Fatalf("unlinked qa: want forbidden, got %v", err)
	}

	sc.f.store.qaPairs[[2]uuid.UUID{sc.from, sc.modeler}] = true
	res, err := sc.f.qa.Transfer(ctx, sc.list, sc.from, sc.to)
	if err != nil {
		t.Fatalf("Transfer: %v", err)
	}
	if res.TransferredAssetCount != 3 {
		t.Fatalf("result: %+v", res)
	}
}

func TestTransferEmptyList(t *testing.T) {
	f := newFixture(0)
	modeler := f.store.addProfile(types.RoleModeler)
	from := f.store.addProfile(types.RoleQA)
	to := f.store.addProfile(types.RoleQA)
	list := f.store.addList(modeler, types.ListStatusInProgress)
	f.store.qaPairs[[2]uuid.UUID{from, modeler}] = true

	_, err := f.qa.Transfer(context.Background(), list, from, to)
	if !domainagg.IsCode(err, domainagg.CodeEmptyTransfer) {
		t.Fatalf("want empty_transfer, got %v", err)
	}
}

func TestTransferValidatesActorsAndTarget(t *testing.T) {
	sc := newQAScene(t, true)
	ctx := context.Background()

	if _, err := sc.f.qa.Transfer(ctx, sc.list, sc.modeler, sc.to); !domainagg.IsCode(err, domainagg.CodeForbidden) || domainagg.MessageOf(err) != "QA access required" {
		t.Fatalf("modeler actor: %v", err)
	}
	if _, err := sc.f.qa.Transfer(ctx, sc.list, sc.from, uuid.Nil); !domainagg.IsCode(err, domainagg.CodeValidation) {
		t.Fatalf("missing target: %v", err)
	}
	if _, err := sc.f.qa.Transfer(ctx, sc.list, sc.from, sc.modeler); !domainagg.IsCode(err, domainagg.CodeValidation) || domainagg.MessageOf(err) != "Selected user is not a QA" {
		t.Fatalf("non-qa target: %v", err)
	}
	if _, err := sc.f.qa.Transfer(ctx, uuid.New(), sc.from, sc.to); !domainagg.IsCode(err, domainagg.CodeNotFound) {
		t.Fatalf("missing list: %v", err)
	}
}

func TestAdminAssignAndRemoveQA(t *testing.T) {
	sc := newQAScene(t, true)
	ctx := context.Background()
	admin := sc.f.store.addProfile(types.RoleAdmin)

	if _, err := sc.f.qa.AssignQA(ctx, sc.list, sc.from, sc.to); !domainagg.IsCode(err, domainagg.CodeForbidden) {
		t.Fatalf("non-admin assign: %v", err)
	}
	res, err := sc.f.qa.AssignQA(ctx, sc.list, admin, sc.to)
	if err != nil {
		t.Fatalf("AssignQA: %v", err)
	}
	if res.AssignedAssetCount != 3 {
		t.Fatalf("assigned: %+v", res)
	}
	for _, r := range sc.f.store.provisionalQA(sc.list) {
		if r.UserID != sc.to {
			t.Fatalf("assign must replace previous qa rows: %+v", r)
		}
	}

	removed, err := sc.f.qa.RemoveQA(ctx, sc.list, admin)
	if err != nil {
		t.Fatalf("RemoveQA: %v", err)
	}
	if removed.RemovedCount != 3 || len(sc.f.store.provisionalQA(sc.list)) != 0 {
		t.Fatalf("remove: %+v", removed)
	}
	if _, ok := sc.f.store.list(sc.list); !ok {
		t.Fatalf("list with modeler rows must survive cleanup")
	}
}
