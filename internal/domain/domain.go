package domain

import (
	"github.com/charpstar/pipeline-backend/internal/domain/jobs"
	"github.com/charpstar/pipeline-backend/internal/domain/production"
	"github.com/charpstar/pipeline-backend/internal/domain/user"
)

type AssetStatus = production.AssetStatus
type Role = production.Role
type AssignmentRole = production.AssignmentRole
type AllocationListStatus = production.AllocationListStatus

const (
	StatusPending           = production.StatusPending
	StatusInProduction      = production.StatusInProduction
	StatusDeliveredByArtist = production.StatusDeliveredByArtist
	StatusRevisions         = production.StatusRevisions
	StatusApproved          = production.StatusApproved
	StatusApprovedByClient  = production.StatusApprovedByClient

	RoleClient     = production.RoleClient
	RoleAdmin      = production.RoleAdmin
	RoleQA         = production.RoleQA
	RoleModeler    = production.RoleModeler
	RoleProduction = production.RoleProduction

	AssignmentRoleModeler = production.AssignmentRoleModeler
	AssignmentRoleQA      = production.AssignmentRoleQA

	ListStatusInProgress = production.ListStatusInProgress
	ListStatusApproved   = production.ListStatusApproved

	ActionStatusChange   = production.ActionStatusChange
	ActionRevision       = production.ActionRevision
	ActionApproval       = production.ActionApproval
	ActionClientApproval = production.ActionClientApproval
)

var (
	ParseAssetStatus = production.ParseAssetStatus
	ParseRole        = production.ParseRole
	CanTransitionTo  = production.CanTransitionTo
	ActionTypeFor    = production.ActionTypeFor
)

type Asset = production.Asset
type AssetAssignment = production.AssetAssignment
type AllocationList = production.AllocationList
type QAAllocation = production.QAAllocation
type AssetStatusHistory = production.AssetStatusHistory
type CatalogAsset = production.CatalogAsset

type Profile = user.Profile

type SideEffectTask = jobs.SideEffectTask
type ActivityLog = jobs.ActivityLog
type Notification = jobs.Notification

type ActivityPayload = jobs.ActivityPayload
type NotificationPayload = jobs.NotificationPayload
