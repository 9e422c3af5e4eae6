package handlers

import (
	"github.com/charpstar/pipeline-backend/internal/data/repos"
	"github.com/charpstar/pipeline-backend/internal/jobs/runtime"
	"github.com/charpstar/pipeline-backend/internal/platform/logger"
	"github.com/charpstar/pipeline-backend/internal/realtime/bus"
)

// NewRegistry registers every side-effect handler.
func NewRegistry(baseLog *logger.Logger, activity repos.ActivityLogRepo, notifications repos.NotificationRepo, b bus.Bus) (*runtime.Registry, error) {
	reg := runtime.NewRegistry()
	if err := reg.Register(NewActivityLogHandler(activity)); err != nil {
		return nil, err
	}
	if err := reg.Register(NewNotificationHandler(baseLog, notifications, b)); err != nil {
		return nil, err
	}
	return reg, nil
}
