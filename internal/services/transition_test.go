package services

import (
	"context"
	"testing"

	"github.com/google/uuid"

	types "github.com/charpstar/pipeline-backend/internal/domain"
	domainagg "github.com/charpstar/pipeline-backend/internal/domain/aggregates"
	"github.com/charpstar/pipeline-backend/internal/domain/jobs"
)

func intPtr(v int) *int { return &v }

func TestTransitionRejectsBadInput(t *testing.T) {
	f := newFixture(0)
	ctx := context.Background()
	asset := f.store.addAsset(types.StatusPending)
	admin := f.store.addProfile(types.RoleAdmin)

	cases := []struct {
		name string
		in   TransitionInput
		code domainagg.ErrorCode
	}{
		{"missing asset id", TransitionInput{Status: types.StatusApproved, ActorID: admin}, domainagg.CodeValidation},
		{"unknown status", TransitionInput{AssetID: asset, Status: "done", ActorID: admin}, domainagg.CodeValidation},
		{"no actor", TransitionInput{AssetID: asset, Status: types.StatusApproved}, domainagg.CodeUnauthorized},
		{"no profile", TransitionInput{AssetID: asset, Status: types.StatusApproved, ActorID: uuid.New()}, domainagg.CodeForbidden},
		{"missing asset", TransitionInput{AssetID: uuid.New(), Status: types.StatusApproved, ActorID: admin}, domainagg.CodeNotFound},
	}
	for _, tc := range cases {
		_, err := f.transition.Transition(ctx, tc.in)
		if !domainagg.IsCode(err, tc.code) {
			t.Fatalf("%s: want %s, got %v", tc.name, tc.code, err)
		}
	}
	if got := f.store.asset(asset).Status; got != types.StatusPending {
		t.Fatalf("rejected transitions must not write, status=%s", got)
	}
}

func TestTransitionClientSignOffIsRoleGated(t *testing.T) {
	f := newFixture(0)
	ctx := context.Background()
	asset := f.store.addAsset(types.StatusApproved)
	qa := f.store.addProfile(types.RoleQA)

	_, err := f.transition.Transition(ctx, TransitionInput{AssetID: asset, Status: types.StatusApprovedByClient, ActorID: qa})
	if !domainagg.IsCode(err, domainagg.CodeForbidden) {
		t.Fatalf("qa sign-off: want forbidden, got %v", err)
	}
	if len(f.store.historyFor(asset)) != 0 {
		t.Fatalf("forbidden transition wrote history")
	}
}

func TestTransitionToRevisionsUsesTrackedHistory(t *testing.T) {
	f := newFixture(0)
	ctx := context.Background()
	modeler := f.store.addProfile(types.RoleModeler)
	qa := f.store.addProfile(types.RoleQA)
	list := f.store.addList(modeler, types.ListStatusApproved)
	asset := f.store.addAsset(types.StatusApproved, func(a *types.Asset) { a.RevisionCount = 1 })
	f.store.assign(asset, modeler, list, types.AssignmentRoleModeler, false)
	f.store.history = append(f.store.history, types.AssetStatusHistory{
		ID: uuid.New(), AssetID: asset, NewStatus: types.StatusRevisions, ActionType: types.ActionRevision, RevisionNumber: intPtr(2),
	})

	res, err := f.transition.Transition(ctx, TransitionInput{AssetID: asset, Status: types.StatusRevisions, RevisionCount: intPtr(9), ActorID: qa})
	if err != nil {
		t.Fatalf("Transition: %v", err)
	}
	if res.RevisionCount == nil || *res.RevisionCount != 3 {
		t.Fatalf("revision count: want=3 got=%v", res.RevisionCount)
	}
	if got := f.store.asset(asset); got.Status != types.StatusRevisions || got.RevisionCount != 3 {
		t.Fatalf("asset not updated: %+v", got)
	}
	rows := f.store.historyFor(asset)
	last := rows[len(rows)-1]
	if last.ActionType != types.ActionRevision || last.RevisionNumber == nil || *last.RevisionNumber != 3 {
		t.Fatalf("history row: %+v", last)
	}
	if last.PreviousStatus != types.StatusApproved || last.ChangedBy == nil || *last.ChangedBy != qa {
		t.Fatalf("history row missing context: %+v", last)
	}

	if res.AllocationListApproved {
		t.Fatalf("list must not be approved")
	}
	if l, _ := f.store.list(list); l.Status != types.ListStatusInProgress {
		t.Fatalf("list should revert, got %s", l.Status)
	}
	notes := f.dispatch.notifications(jobs.NotificationRevisionRequested)
	if len(notes) != 1 || len(notes[0].RecipientIDs) != 1 || notes[0].RecipientIDs[0] != modeler {
		t.Fatalf("revision notification: %+v", notes)
	}
	if notes[0].Title != "Revision Required - Chair" {
		t.Fatalf("title: %q", notes[0].Title)
	}
	if len(f.dispatch.activities()) != 1 {
		t.Fatalf("want one activity effect")
	}
}

func TestTransitionExplicitRevisionCountWithoutHistory(t *testing.T) {
	f := newFixture(0)
	qa := f.store.addProfile(types.RoleQA)
	asset := f.store.addAsset(types.StatusDeliveredByArtist)

	res, err := f.transition.Transition(context.Background(), TransitionInput{AssetID: asset, Status: types.StatusRevisions, RevisionCount: intPtr(4), ActorID: qa})
	if err != nil {
		t.Fatalf("Transition: %v", err)
	}
	if *res.RevisionCount != 5 {
		t.Fatalf("want 5, got %d", *res.RevisionCount)
	}
	if res.AllocationListID != nil {
		t.Fatalf("unassigned asset has no list")
	}
}

func TestTransitionReportsOnlyNewListApproval(t *testing.T) {
	f := newFixture(0)
	ctx := context.Background()
	modeler := f.store.addProfile(types.RoleModeler)
	qa := f.store.addProfile(types.RoleQA)
	list := f.store.addList(modeler, types.ListStatusApproved)
	done := f.store.addAsset(types.StatusApproved)
	again := f.store.addAsset(types.StatusDeliveredByArtist)
	f.store.assign(done, modeler, list, types.AssignmentRoleModeler, false)
	f.store.assign(again, modeler, list, types.AssignmentRoleModeler, false)

	res, err := f.transition.Transition(ctx, TransitionInput{AssetID: again, Status: types.StatusApproved, ActorID: qa})
	if err != nil {
		t.Fatalf("Transition: %v", err)
	}
	if res.AllocationListApproved {
		t.Fatalf("list was already approved, want allocationListApproved=false: %+v", res)
	}
	if res.AllocationListID == nil || *res.AllocationListID != list {
		t.Fatalf("list id: %+v", res)
	}
	if got, _ := f.store.list(list); got.Status != types.ListStatusApproved {
		t.Fatalf("list status: %s", got.Status)
	}
}

func TestTransitionApprovingLastAssetApprovesList(t *testing.T) {
	f := newFixture(0)
	ctx := context.Background()
	modeler := f.store.addProfile(types.RoleModeler)
	qa := f.store.addProfile(types.RoleQA)
	list := f.store.addList(modeler, types.ListStatusInProgress)
	done := f.store.addAsset(types.StatusApprovedByClient)
	last := f.store.addAsset(types.StatusDeliveredByArtist)
	f.store.assign(done, modeler, list, types.AssignmentRoleModeler, false)
	f.store.assign(last, modeler, list, types.AssignmentRoleModeler, false)

	res, err := f.transition.Transition(ctx, TransitionInput{AssetID: last, Status: types.StatusApproved, ActorID: qa})
	if err != nil {
		t.Fatalf("Transition: %v", err)
	}
	if !res.AllocationListApproved || res.AllocationListID == nil || *res.AllocationListID != list {
		t.Fatalf("want list approved, got %+v", res)
	}
	if res.RevisionCount != nil {
		t.Fatalf("approval carries no revision count")
	}
	if got := f.dispatch.notifications(jobs.NotificationAssetCompleted); len(got) != 1 {
		t.Fatalf("asset completed notifications: %d", len(got))
	}
	if rows := f.store.historyFor(last); len(rows) != 1 || rows[0].ActionType != types.ActionApproval {
		t.Fatalf("history: %+v", rows)
	}
}

func TestTransitionDeliveredNotifiesProvisionalQA(t *testing.T) {
	f := newFixture(0)
	modeler := f.store.addProfile(types.RoleModeler)
	qa := f.store.addProfile(types.RoleQA)
	list := f.store.addList(modeler, types.ListStatusInProgress)
	asset := f.store.addAsset(types.StatusInProduction)
	f.store.assign(asset, modeler, list, types.AssignmentRoleModeler, false)
	f.store.assign(asset, qa, list, types.AssignmentRoleQA, true)

	if _, err := f.transition.Transition(context.Background(), TransitionInput{AssetID: asset, Status: types.StatusDeliveredByArtist, ActorID: modeler}); err != nil {
		t.Fatalf("Transition: %v", err)
	}
	notes := f.dispatch.notifications(jobs.NotificationQAReview)
	if len(notes) != 1 || notes[0].RecipientIDs[0] != qa {
		t.Fatalf("qa review notification: %+v", notes)
	}
	if notes[0].Metadata["allocationListId"] != list {
		t.Fatalf("metadata: %+v", notes[0].Metadata)
	}
}

func TestTransitionClientApprovalTransfersToCatalog(t *testing.T) {
	f := newFixture(0)
	client := f.store.addProfile(types.RoleClient)
	asset := f.store.addAsset(types.StatusApproved, func(a *types.Asset) {
		a.ArticleID = "A-100"
		a.GLBLink = "https://cdn.test/uploads/a100.glb"
	})

	if _, err := f.transition.Transition(context.Background(), TransitionInput{AssetID: asset, Status: types.StatusApprovedByClient, ActorID: client}); err != nil {
		t.Fatalf("Transition: %v", err)
	}
	if !f.store.asset(asset).Transferred {
		t.Fatalf("asset should be marked transferred")
	}
	row, ok := f.store.catalog[catalogKey("acme", "A-100")]
	if !ok {
		t.Fatalf("catalog row missing")
	}
	if row.GLBLink != "https://cdn.test/acme/Android/A-100.glb" {
		t.Fatalf("glb link not relocated: %q", row.GLBLink)
	}
}
