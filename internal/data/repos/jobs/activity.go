package jobs

import (
	"gorm.io/gorm"

	types "github.com/charpstar/pipeline-backend/internal/domain"
	"github.com/charpstar/pipeline-backend/internal/platform/dbctx"
	"github.com/charpstar/pipeline-backend/internal/platform/logger"
)

type ActivityLogRepo interface {
	Create(dbc dbctx.Context, rows []*types.ActivityLog) error
}

type activityLogRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewActivityLogRepo(db *gorm.DB, baseLog *logger.Logger) ActivityLogRepo {
	return &activityLogRepo{db: db, log: baseLog.With("repo", "ActivityLogRepo")}
}

func (r *activityLogRepo) Create(dbc dbctx.Context, rows []*types.ActivityLog) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(rows) == 0 {
		return nil
	}
	return transaction.WithContext(dbc.Ctx).Create(&rows).Error
}

type NotificationRepo interface {
	Create(dbc dbctx.Context, rows []*types.Notification) error
}

type notificationRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewNotificationRepo(db *gorm.DB, baseLog *logger.Logger) NotificationRepo {
	return &notificationRepo{db: db, log: baseLog.With("repo", "NotificationRepo")}
}

func (r *notificationRepo) Create(dbc dbctx.Context, rows []*types.Notification) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(rows) == 0 {
		return nil
	}
	return transaction.WithContext(dbc.Ctx).Create(&rows).Error
}
