package handlers

import (
	"encoding/json"
	"fmt"

	"gorm.io/datatypes"

	"github.com/charpstar/pipeline-backend/internal/data/repos"
	types "github.com/charpstar/pipeline-backend/internal/domain"
	"github.com/charpstar/pipeline-backend/internal/domain/jobs"
	"github.com/charpstar/pipeline-backend/internal/jobs/runtime"
	"github.com/charpstar/pipeline-backend/internal/platform/dbctx"
)

type ActivityLogHandler struct {
	repo repos.ActivityLogRepo
}

func NewActivityLogHandler(repo repos.ActivityLogRepo) *ActivityLogHandler {
	return &ActivityLogHandler{repo: repo}
}

func (h *ActivityLogHandler) Kind() string { return jobs.TaskKindActivityLog }

func (h *ActivityLogHandler) Run(c *runtime.Context) error {
	var p types.ActivityPayload
	if err := c.Decode(&p); err != nil {
		return err
	}
	if p.Action == "" || p.ResourceType == "" {
		return fmt.Errorf("activity payload missing action or resource type")
	}
	row := &types.ActivityLog{
		UserID:       p.UserID,
		Action:       p.Action,
		Type:         p.Type,
		ResourceType: p.ResourceType,
		ResourceID:   p.ResourceID,
		Description:  p.Description,
		Metadata:     encodeJSON(p.Metadata),
	}
	return h.repo.Create(dbctx.Context{Ctx: c.Ctx}, []*types.ActivityLog{row})
}

func encodeJSON(v any) datatypes.JSON {
	if v == nil {
		return nil
	}
	raw, err := json.Marshal(v)
	if err != nil || string(raw) == "null" {
		return nil
	}
	return datatypes.JSON(raw)
}
