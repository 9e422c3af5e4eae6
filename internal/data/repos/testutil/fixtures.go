package testutil

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/charpstar/pipeline-backend/internal/domain"
)

func SeedProfile(tb testing.TB, ctx context.Context, tx *gorm.DB, role types.Role) *types.Profile {
	tb.Helper()
	p := &types.Profile{
		ID:   uuid.New(),
		Role: string(role),
	}
	if err := tx.WithContext(ctx).Create(p).Error; err != nil {
		tb.Fatalf("seed profile: %v", err)
	}
	return p
}

func SeedAsset(tb testing.TB, ctx context.Context, tx *gorm.DB, client string, status types.AssetStatus) *types.Asset {
	tb.Helper()
	a := &types.Asset{
		ID:          uuid.New(),
		Status:      status,
		Client:      client,
		ArticleID:   "ART-" + uuid.NewString()[:8],
		ProductName: "Chair",
	}
	if err := tx.WithContext(ctx).Create(a).Error; err != nil {
		tb.Fatalf("seed asset: %v", err)
	}
	return a
}

func SeedAllocationList(tb testing.TB, ctx context.Context, tx *gorm.DB, userID uuid.UUID, role types.AssignmentRole) *types.AllocationList {
	tb.Helper()
	l := &types.AllocationList{
		ID:     uuid.New(),
		Name:   "Allocation 1",
		Number: 1,
		UserID: userID,
		Role:   role,
		Status: types.ListStatusInProgress,
	}
	if err := tx.WithContext(ctx).Create(l).Error; err != nil {
		tb.Fatalf("seed allocation list: %v", err)
	}
	return l
}

func SeedAssignment(tb testing.TB, ctx context.Context, tx *gorm.DB, assetID, userID uuid.UUID, role types.AssignmentRole, listID *uuid.UUID, provisional bool) *types.AssetAssignment {
	tb.Helper()
	a := &types.AssetAssignment{
		ID:               uuid.New(),
		AssetID:          assetID,
		UserID:           userID,
		Role:             role,
		AllocationListID: listID,
		IsProvisional:    provisional,
		Status:           "accepted",
	}
	if err := tx.WithContext(ctx).Create(a).Error; err != nil {
		tb.Fatalf("seed assignment: %v", err)
	}
	return a
}

func PtrUUID(id uuid.UUID) *uuid.UUID { return &id }
