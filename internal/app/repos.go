package app

import (
	"gorm.io/gorm"

	"github.com/charpstar/pipeline-backend/internal/data/repos"
	"github.com/charpstar/pipeline-backend/internal/platform/logger"
)

type Repos struct {
	Profile       repos.ProfileRepo
	Asset         repos.AssetRepo
	Assignment    repos.AssetAssignmentRepo
	List          repos.AllocationListRepo
	QAAllocation  repos.QAAllocationRepo
	StatusHistory repos.AssetStatusHistoryRepo
	CatalogAsset  repos.CatalogAssetRepo
	SideEffect    repos.SideEffectTaskRepo
	ActivityLog   repos.ActivityLogRepo
	Notification  repos.NotificationRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		Profile:       repos.NewProfileRepo(db, log),
		Asset:         repos.NewAssetRepo(db, log),
		Assignment:    repos.NewAssetAssignmentRepo(db, log),
		List:          repos.NewAllocationListRepo(db, log),
		QAAllocation:  repos.NewQAAllocationRepo(db, log),
		StatusHistory: repos.NewAssetStatusHistoryRepo(db, log),
		CatalogAsset:  repos.NewCatalogAssetRepo(db, log),
		SideEffect:    repos.NewSideEffectTaskRepo(db, log),
		ActivityLog:   repos.NewActivityLogRepo(db, log),
		Notification:  repos.NewNotificationRepo(db, log),
	}
}
