package services

import (
	"github.com/google/uuid"

	types "github.com/charpstar/pipeline-backend/internal/domain"
)

// nextRevisionNumber picks the revision_count for an asset entering revisions.
// The tracked history maximum wins; an explicit count is only used when the
// asset has no revision history. The result never falls below current+1.
func nextRevisionNumber(asset *types.Asset, tracked map[uuid.UUID]int, explicit *int) int {
	floor := 1
	if asset != nil {
		floor = asset.RevisionCount + 1
	}
	next := floor
	if asset != nil {
		if max, ok := tracked[asset.ID]; ok {
			next = max + 1
		} else if explicit != nil && *explicit >= 0 {
			next = *explicit + 1
		}
	}
	if next < floor {
		next = floor
	}
	return next
}
