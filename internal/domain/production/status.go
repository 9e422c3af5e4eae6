package production

import (
	"fmt"
	"strings"
)

// AssetStatus is the closed set of lifecycle states an asset moves through.
type AssetStatus string

const (
	StatusPending           AssetStatus = "pending"
	StatusInProduction      AssetStatus = "in_production"
	StatusDeliveredByArtist AssetStatus = "delivered_by_artist"
	StatusRevisions         AssetStatus = "revisions"
	StatusApproved          AssetStatus = "approved"
	StatusApprovedByClient  AssetStatus = "approved_by_client"
)

var allStatuses = []AssetStatus{
	StatusPending,
	StatusInProduction,
	StatusDeliveredByArtist,
	StatusRevisions,
	StatusApproved,
	StatusApprovedByClient,
}

func AllStatuses() []AssetStatus {
	return append([]AssetStatus(nil), allStatuses...)
}

func ParseAssetStatus(raw string) (AssetStatus, error) {
	s := AssetStatus(strings.TrimSpace(raw))
	switch s {
	case StatusPending, StatusInProduction, StatusDeliveredByArtist, StatusRevisions, StatusApproved, StatusApprovedByClient:
		return s, nil
	}
	return "", fmt.Errorf("invalid status %q", raw)
}

// IsApproved reports whether the status counts toward allocation list approval.
func (s AssetStatus) IsApproved() bool {
	switch s {
	case StatusApproved, StatusApprovedByClient:
		return true
	case StatusPending, StatusInProduction, StatusDeliveredByArtist, StatusRevisions:
		return false
	}
	return false
}

func (s AssetStatus) IsTerminal() bool { return s == StatusApprovedByClient }

func (s AssetStatus) String() string { return string(s) }

// Role is the closed set of actor roles.
type Role string

const (
	RoleClient     Role = "client"
	RoleAdmin      Role = "admin"
	RoleQA         Role = "qa"
	RoleModeler    Role = "modeler"
	RoleProduction Role = "production"
)

func ParseRole(raw string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(raw)))
	switch r {
	case RoleClient, RoleAdmin, RoleQA, RoleModeler, RoleProduction:
		return r, nil
	}
	return "", fmt.Errorf("invalid role %q", raw)
}

func (r Role) String() string { return string(r) }

// CanTransitionTo is the authorization table for status changes. Only the
// client sign-off is role gated; finer UI gating happens elsewhere.
func CanTransitionTo(role Role, target AssetStatus) bool {
	switch target {
	case StatusApprovedByClient:
		switch role {
		case RoleClient, RoleAdmin:
			return true
		case RoleQA, RoleModeler, RoleProduction:
			return false
		}
		return false
	case StatusPending, StatusInProduction, StatusDeliveredByArtist, StatusRevisions, StatusApproved:
		switch role {
		case RoleClient, RoleAdmin, RoleQA, RoleModeler, RoleProduction:
			return true
		}
		return false
	}
	return false
}

// AssignmentRole distinguishes the two kinds of asset assignment.
type AssignmentRole string

const (
	AssignmentRoleModeler AssignmentRole = "modeler"
	AssignmentRoleQA      AssignmentRole = "qa"
)

const (
	AssignmentStatusPending  = "pending"
	AssignmentStatusAccepted = "accepted"
	AssignmentStatusDeclined = "declined"
)

// AllocationListStatus is the rollup state of a list.
type AllocationListStatus string

const (
	ListStatusInProgress AllocationListStatus = "in_progress"
	ListStatusApproved   AllocationListStatus = "approved"
)
