package services

import (
	"context"

	"github.com/google/uuid"

	"github.com/charpstar/pipeline-backend/internal/data/repos"
	types "github.com/charpstar/pipeline-backend/internal/domain"
	domainagg "github.com/charpstar/pipeline-backend/internal/domain/aggregates"
	"github.com/charpstar/pipeline-backend/internal/platform/dbctx"
)

// resolveRole loads the actor's role from profiles. The role is never taken
// from the request.
func resolveRole(ctx context.Context, profiles repos.ProfileRepo, op string, actorID uuid.UUID) (types.Role, error) {
	if actorID == uuid.Nil {
		return "", domainagg.Unauthorized(op, "Unauthorized")
	}
	profile, err := profiles.GetByID(dbctx.Context{Ctx: ctx}, actorID)
	if err != nil {
		return "", domainagg.Wrap(domainagg.CodeInternal, op, err)
	}
	if profile == nil {
		return "", domainagg.Forbidden(op, "Profile not found")
	}
	role, err := types.ParseRole(profile.Role)
	if err != nil {
		return "", domainagg.Forbidden(op, "Forbidden")
	}
	return role, nil
}

// RoleResolver exposes the profile role lookup to transport layers that gate
// whole route groups.
type RoleResolver interface {
	ActorRole(ctx context.Context, actorID uuid.UUID) (types.Role, error)
}

type roleResolver struct {
	profiles repos.ProfileRepo
}

func NewRoleResolver(profiles repos.ProfileRepo) RoleResolver {
	return &roleResolver{profiles: profiles}
}

func (r *roleResolver) ActorRole(ctx context.Context, actorID uuid.UUID) (types.Role, error) {
	return resolveRole(ctx, r.profiles, "actor.role", actorID)
}
