package services

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"gorm.io/datatypes"

	"github.com/charpstar/pipeline-backend/internal/data/aggregates"
	"github.com/charpstar/pipeline-backend/internal/data/repos"
	types "github.com/charpstar/pipeline-backend/internal/domain"
	"github.com/charpstar/pipeline-backend/internal/observability"
	"github.com/charpstar/pipeline-backend/internal/platform/dbctx"
	"github.com/charpstar/pipeline-backend/internal/platform/logger"
)

const glbCopyConcurrency = 5

// GLBStore relocates model files inside the catalog bucket.
type GLBStore interface {
	CopyObject(ctx context.Context, srcKey, dstKey string) error
	KeyFromURL(rawURL string) (string, bool)
	PublicURL(key string) string
}

type CatalogTransferResult struct {
	Candidates  int `json:"candidates"`
	Inserted    int `json:"inserted"`
	Skipped     int `json:"skipped"`
	GLBCopied   int `json:"glbCopied"`
	GLBFailed   int `json:"glbFailed"`
	Transferred int `json:"transferred"`
}

type CatalogService interface {
	// TransferApproved copies approved_by_client assets that are not yet
	// transferred into the public catalog and marks them transferred.
	TransferApproved(ctx context.Context, assetIDs []uuid.UUID) (*CatalogTransferResult, error)
}

type catalogService struct {
	log       *logger.Logger
	assets    repos.AssetRepo
	catalog   repos.CatalogAssetRepo
	store     GLBStore
	metrics   *observability.Metrics
	chunkSize int
}

func NewCatalogService(
	baseLog *logger.Logger,
	assets repos.AssetRepo,
	catalog repos.CatalogAssetRepo,
	store GLBStore,
	metrics *observability.Metrics,
	chunkSize int,
) CatalogService {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return &catalogService{
		log:       baseLog.With("service", "CatalogService"),
		assets:    assets,
		catalog:   catalog,
		store:     store,
		metrics:   metrics,
		chunkSize: chunkSize,
	}
}

const opCatalog = "catalog.transfer"

func (s *catalogService) TransferApproved(ctx context.Context, assetIDs []uuid.UUID) (*CatalogTransferResult, error) {
	dbc := dbctx.Context{Ctx: ctx}
	out := &CatalogTransferResult{}
	var candidates []*types.Asset
	for _, chunk := range Chunk(dedupeIDs(assetIDs), s.chunkSize) {
		rows, err := s.assets.ListTransferable(dbc, chunk)
		if err != nil {
			return out, aggregates.MapError(opCatalog, err)
		}
		candidates = append(candidates, rows...)
	}
	out.Candidates = len(candidates)
	if len(candidates) == 0 {
		return out, nil
	}

	owned := make([]*types.Asset, 0, len(candidates))
	for _, chunk := range Chunk(candidates, s.chunkSize) {
		rows := make([]*types.CatalogAsset, 0, len(chunk))
		for _, a := range chunk {
			rows = append(rows, catalogRowFor(a))
		}
		ownerIDs, err := s.catalog.InsertIgnoreDuplicates(dbc, rows)
		if err != nil {
			s.metrics.AddCatalogTransfer("insert", "error", len(rows))
			return out, aggregates.MapError(opCatalog, err)
		}
		owners := make(map[uuid.UUID]struct{}, len(ownerIDs))
		for _, id := range ownerIDs {
			owners[id] = struct{}{}
		}
		for _, a := range chunk {
			if _, ok := owners[a.ID]; ok {
				owned = append(owned, a)
			}
		}
		out.Inserted += len(owners)
		out.Skipped += len(rows) - len(owners)
	}
	s.metrics.AddCatalogTransfer("insert", "inserted", out.Inserted)
	s.metrics.AddCatalogTransfer("insert", "duplicate", out.Skipped)

	// Skipped rows belong to another asset; their model file stays put.
	s.relocateGLBs(ctx, owned, out)

	ids := make([]uuid.UUID, 0, len(candidates))
	for _, a := range candidates {
		ids = append(ids, a.ID)
	}
	for _, chunk := range Chunk(ids, s.chunkSize) {
		if err := s.assets.MarkTransferred(dbc, chunk); err != nil {
			s.log.Warn("mark transferred failed", "count", len(chunk), "error", err)
			continue
		}
		out.Transferred += len(chunk)
	}
	s.metrics.AddCatalogTransfer("mark", "transferred", out.Transferred)
	s.log.Info("catalog transfer complete",
		"candidates", out.Candidates,
		"inserted", out.Inserted,
		"skipped", out.Skipped,
		"glb_copied", out.GLBCopied,
		"glb_failed", out.GLBFailed,
	)
	return out, nil
}

// relocateGLBs copies each model into <client>/Android/<article>.glb and points
// the catalog row at the new file. Failures are counted, never returned.
func (s *catalogService) relocateGLBs(ctx context.Context, assets []*types.Asset, out *CatalogTransferResult) {
	if s.store == nil {
		return
	}
	var mu sync.Mutex
	record := func(ok bool) {
		mu.Lock()
		defer mu.Unlock()
		if ok {
			out.GLBCopied++
		} else {
			out.GLBFailed++
		}
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(glbCopyConcurrency)
	for _, a := range assets {
		a := a
		if strings.TrimSpace(a.GLBLink) == "" || strings.TrimSpace(a.ArticleID) == "" {
			continue
		}
		g.Go(func() error {
			srcKey, ok := s.store.KeyFromURL(a.GLBLink)
			if !ok {
				s.log.Warn("glb link outside catalog bucket", "asset_id", a.ID, "glb_link", a.GLBLink)
				record(false)
				return nil
			}
			dstKey := androidGLBKey(a.Client, a.ArticleID)
			if err := s.store.CopyObject(gctx, srcKey, dstKey); err != nil {
				s.log.Warn("glb copy failed", "asset_id", a.ID, "dst", dstKey, "error", err)
				record(false)
				return nil
			}
			if err := s.catalog.UpdateGLBLink(dbctx.Context{Ctx: gctx}, a.ID, s.store.PublicURL(dstKey)); err != nil {
				s.log.Warn("glb link update failed", "asset_id", a.ID, "error", err)
				record(false)
				return nil
			}
			record(true)
			return nil
		})
	}
	_ = g.Wait()
	s.metrics.AddCatalogTransfer("glb", "copied", out.GLBCopied)
	s.metrics.AddCatalogTransfer("glb", "failed", out.GLBFailed)
}

func catalogRowFor(a *types.Asset) *types.CatalogAsset {
	articleIDs, _ := json.Marshal(normalizeArticleIDs(a.ArticleID, a.ArticleIDs))
	return &types.CatalogAsset{
		ArticleID:     a.ArticleID,
		Client:        a.Client,
		ArticleIDs:    datatypes.JSON(articleIDs),
		ProductName:   a.ProductName,
		ProductLink:   a.ProductLink,
		GLBLink:       a.GLBLink,
		Category:      a.Category,
		Subcategory:   a.Subcategory,
		Tags:          a.Tags,
		PreviewImage:  firstPreviewImage(a.PreviewImages),
		GLBStatus:     "completed",
		Active:        normalizeActive(a.Active),
		SourceAssetID: a.ID,
	}
}

var unsafeClientChars = regexp.MustCompile(`[^a-zA-Z0-9._-]`)

func androidGLBKey(client, articleID string) string {
	return fmt.Sprintf("%s/Android/%s.glb", unsafeClientChars.ReplaceAllString(client, "_"), strings.TrimSpace(articleID))
}

// normalizeActive maps loose truthy/falsy spellings to "yes"/"no"; unknown
// values count as active.
func normalizeActive(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "false", "0", "no", "off", "inactive":
		return "no"
	default:
		return "yes"
	}
}

var articleIDSeparators = regexp.MustCompile(`[\s,;]+`)

// normalizeArticleIDs returns the primary article id followed by every extra
// id, trimmed and de-duplicated in first-seen order. raw may hold a JSON array,
// a JSON string, or a delimited list.
func normalizeArticleIDs(primary string, raw datatypes.JSON) []string {
	out := []string{}
	seen := map[string]struct{}{}
	push := func(v string) {
		v = strings.TrimSpace(v)
		if v == "" {
			return
		}
		if _, ok := seen[v]; ok {
			return
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	push(primary)
	if len(raw) == 0 {
		return out
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		for _, v := range list {
			push(v)
		}
		return out
	}
	var single string
	if err := json.Unmarshal(raw, &single); err == nil {
		if err := json.Unmarshal([]byte(single), &list); err == nil {
			for _, v := range list {
				push(v)
			}
			return out
		}
		for _, v := range articleIDSeparators.Split(single, -1) {
			push(v)
		}
	}
	return out
}

func firstPreviewImage(raw datatypes.JSON) string {
	if len(raw) == 0 {
		return ""
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		if len(list) > 0 {
			return list[0]
		}
		return ""
	}
	var single string
	if err := json.Unmarshal(raw, &single); err == nil {
		return single
	}
	return ""
}
