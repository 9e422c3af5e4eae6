package repos

import (
	"gorm.io/gorm"

	"github.com/charpstar/pipeline-backend/internal/data/repos/jobs"
	"github.com/charpstar/pipeline-backend/internal/data/repos/production"
	"github.com/charpstar/pipeline-backend/internal/data/repos/user"
	"github.com/charpstar/pipeline-backend/internal/platform/logger"
)

type ProfileRepo = user.ProfileRepo

type AssetRepo = production.AssetRepo
type AssetAssignmentRepo = production.AssetAssignmentRepo
type AllocationListRepo = production.AllocationListRepo
type QAAllocationRepo = production.QAAllocationRepo
type AssetStatusHistoryRepo = production.AssetStatusHistoryRepo
type CatalogAssetRepo = production.CatalogAssetRepo

type SideEffectTaskRepo = jobs.SideEffectTaskRepo
type ActivityLogRepo = jobs.ActivityLogRepo
type NotificationRepo = jobs.NotificationRepo

func NewProfileRepo(db *gorm.DB, baseLog *logger.Logger) ProfileRepo {
	return user.NewProfileRepo(db, baseLog)
}

func NewAssetRepo(db *gorm.DB, baseLog *logger.Logger) AssetRepo {
	return production.NewAssetRepo(db, baseLog)
}
func NewAssetAssignmentRepo(db *gorm.DB, baseLog *logger.Logger) AssetAssignmentRepo {
	return production.NewAssetAssignmentRepo(db, baseLog)
}
func NewAllocationListRepo(db *gorm.DB, baseLog *logger.Logger) AllocationListRepo {
	return production.NewAllocationListRepo(db, baseLog)
}
func NewQAAllocationRepo(db *gorm.DB, baseLog *logger.Logger) QAAllocationRepo {
	return production.NewQAAllocationRepo(db, baseLog)
}
func NewAssetStatusHistoryRepo(db *gorm.DB, baseLog *logger.Logger) AssetStatusHistoryRepo {
	return production.NewAssetStatusHistoryRepo(db, baseLog)
}
func NewCatalogAssetRepo(db *gorm.DB, baseLog *logger.Logger) CatalogAssetRepo {
	return production.NewCatalogAssetRepo(db, baseLog)
}

func NewSideEffectTaskRepo(db *gorm.DB, baseLog *logger.Logger) SideEffectTaskRepo {
	return jobs.NewSideEffectTaskRepo(db, baseLog)
}
func NewActivityLogRepo(db *gorm.DB, baseLog *logger.Logger) ActivityLogRepo {
	return jobs.NewActivityLogRepo(db, baseLog)
}
func NewNotificationRepo(db *gorm.DB, baseLog *logger.Logger) NotificationRepo {
	return jobs.NewNotificationRepo(db, baseLog)
}
