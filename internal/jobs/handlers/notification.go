package handlers

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/charpstar/pipeline-backend/internal/data/repos"
	types "github.com/charpstar/pipeline-backend/internal/domain"
	"github.com/charpstar/pipeline-backend/internal/domain/jobs"
	"github.com/charpstar/pipeline-backend/internal/jobs/runtime"
	"github.com/charpstar/pipeline-backend/internal/platform/dbctx"
	"github.com/charpstar/pipeline-backend/internal/platform/logger"
	"github.com/charpstar/pipeline-backend/internal/realtime"
	"github.com/charpstar/pipeline-backend/internal/realtime/bus"
)

// NotificationHandler stores one notification per recipient and pushes each
// onto the realtime bus. Publish failures are logged; the rows are the
// source of truth.
type NotificationHandler struct {
	log  *logger.Logger
	repo repos.NotificationRepo
	bus  bus.Bus
}

func NewNotificationHandler(baseLog *logger.Logger, repo repos.NotificationRepo, b bus.Bus) *NotificationHandler {
	if b == nil {
		b = bus.Nop()
	}
	return &NotificationHandler{
		log:  baseLog.With("component", "NotificationHandler"),
		repo: repo,
		bus:  b,
	}
}

func (h *NotificationHandler) Kind() string { return jobs.TaskKindNotification }

func (h *NotificationHandler) Run(c *runtime.Context) error {
	var p types.NotificationPayload
	if err := c.Decode(&p); err != nil {
		return err
	}
	if p.Type == "" || p.Title == "" {
		return fmt.Errorf("notification payload missing type or title")
	}
	assetIDs := encodeJSON(p.AssetIDs)
	meta := encodeJSON(p.Metadata)

	seen := map[uuid.UUID]struct{}{}
	rows := make([]*types.Notification, 0, len(p.RecipientIDs))
	for _, id := range p.RecipientIDs {
		if id == uuid.Nil {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		rows = append(rows, &types.Notification{
			ID:          uuid.New(),
			RecipientID: id,
			Type:        p.Type,
			Title:       p.Title,
			Message:     p.Message,
			AssetIDs:    assetIDs,
			Metadata:    meta,
		})
	}
	if len(rows) == 0 {
		return nil
	}
	if err := h.repo.Create(dbctx.Context{Ctx: c.Ctx}, rows); err != nil {
		return err
	}

	for _, n := range rows {
		msg, err := realtime.NewMessage(realtime.UserChannel(n.RecipientID), realtime.EventNotificationCreated, n)
		if err != nil {
			h.log.Warn("notification encode failed", "notification_id", n.ID, "error", err)
			continue
		}
		if err := h.bus.Publish(c.Ctx, msg); err != nil {
			h.log.Warn("notification publish failed", "notification_id", n.ID, "recipient_id", n.RecipientID, "error", err)
		}
	}
	return nil
}
