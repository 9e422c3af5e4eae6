package db

import (
	"fmt"

	types "github.com/charpstar/pipeline-backend/internal/domain"
	"gorm.io/gorm"
)

func AutoMigrateAll(db *gorm.DB) error {
	if err := db.AutoMigrate(
		// =========================
		// Identity
		// =========================
		&types.Profile{},

		// =========================
		// Production pipeline
		// =========================
		&types.Asset{},
		&types.AllocationList{},
		&types.AssetAssignment{},
		&types.QAAllocation{},
		&types.AssetStatusHistory{},

		// =========================
		// Public catalog
		// =========================
		&types.CatalogAsset{},

		// =========================
		// Side effects (outbox + sinks)
		// =========================
		&types.SideEffectTask{},
		&types.ActivityLog{},
		&types.Notification{},
	); err != nil {
		return fmt.Errorf("automigrate: %w", err)
	}
	return ensureIndexes(db)
}

func ensureIndexes(db *gorm.DB) error {
	stmts := []string{
		`CREATE INDEX IF NOT EXISTS idx_asset_assignments_list_role ON asset_assignments (allocation_list_id, role)`,
		`CREATE INDEX IF NOT EXISTS idx_asset_assignments_list_provisional_qa ON asset_assignments (allocation_list_id) WHERE role = 'qa' AND is_provisional`,
		`CREATE INDEX IF NOT EXISTS idx_side_effect_task_runnable ON side_effect_task (status, created_at) WHERE status IN ('queued','failed','running')`,
	}
	for _, stmt := range stmts {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("ensure index: %w", err)
		}
	}
	return nil
}
