package production

import "testing"

func TestParseAssetStatus(t *testing.T) {
	for _, s := range AllStatuses() {
		got, err := ParseAssetStatus(string(s))
		if err != nil || got != s {
			t.Fatalf("ParseAssetStatus(%q): got=%q err=%v", s, got, err)
		}
	}
	if _, err := ParseAssetStatus("done"); err == nil {
		t.Fatalf("expected error for unknown status")
	}
}

func TestParseRoleNormalizesCase(t *testing.T) {
	got, err := ParseRole(" QA ")
	if err != nil || got != RoleQA {
		t.Fatalf("ParseRole: got=%q err=%v", got, err)
	}
	if _, err := ParseRole("owner"); err == nil {
		t.Fatalf("expected error for unknown role")
	}
}

func TestCanTransitionToClientSignOff(t *testing.T) {
	allowed := map[Role]bool{
		RoleClient:     true,
		RoleAdmin:      true,
		RoleQA:         false,
		RoleModeler:    false,
		RoleProduction: false,
	}
	for role, want := range allowed {
		if got := CanTransitionTo(role, StatusApprovedByClient); got != want {
			t.Fatalf("role %s approved_by_client: want=%v got=%v", role, want, got)
		}
	}
	for _, s := range AllStatuses() {
		if s == StatusApprovedByClient {
			continue
		}
		if !CanTransitionTo(RoleModeler, s) {
			t.Fatalf("modeler should reach %s", s)
		}
	}
	if CanTransitionTo(Role("ghost"), StatusPending) {
		t.Fatalf("unknown role must be denied")
	}
}

func TestIsApproved(t *testing.T) {
	if !StatusApproved.IsApproved() || !StatusApprovedByClient.IsApproved() {
		t.Fatalf("approved statuses")
	}
	if StatusRevisions.IsApproved() || StatusDeliveredByArtist.IsApproved() {
		t.Fatalf("non approved statuses")
	}
}
