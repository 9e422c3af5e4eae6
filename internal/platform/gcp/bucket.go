package gcp

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"github.com/charpstar/pipeline-backend/internal/platform/logger"
)

const gcsHost = "storage.googleapis.com"

// CatalogBucket relocates model files inside the catalog bucket and maps
// between object keys and the public URLs stored on asset rows.
type CatalogBucket struct {
	log       *logger.Logger
	client    *storage.Client
	name      string
	cdnDomain string
	storage   StorageConfig
}

// OpenCatalogBucket dials storage in the mode chosen by OBJECT_STORAGE_MODE
// variables and binds it to bucket name.
func OpenCatalogBucket(ctx context.Context, log *logger.Logger, name, cdnDomain string) (*CatalogBucket, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("missing catalog bucket name")
	}
	cfg, err := ResolveStorageConfigFromEnv()
	if err != nil {
		return nil, err
	}
	client, err := newStorageClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	return NewCatalogBucket(log, client, name, cdnDomain, cfg), nil
}

func NewCatalogBucket(log *logger.Logger, client *storage.Client, name, cdnDomain string, cfg StorageConfig) *CatalogBucket {
	b := &CatalogBucket{
		log:       log.With("service", "CatalogBucket"),
		client:    client,
		name:      name,
		cdnDomain: strings.Trim(strings.TrimPrefix(strings.TrimPrefix(cdnDomain, "https://"), "http://"), "/"),
		storage:   cfg,
	}
	b.log.Info("Catalog bucket ready", "bucket", name, "cdn_domain", b.cdnDomain, "mode", cfg.Mode)
	return b
}

func newStorageClient(ctx context.Context, cfg StorageConfig) (*storage.Client, error) {
	if cfg.IsEmulator() {
		_ = os.Setenv("STORAGE_EMULATOR_HOST", cfg.EmulatorHost)
		return storage.NewClient(ctx, option.WithoutAuthentication(), option.WithEndpoint(cfg.EmulatorHost+"/storage/v1/"))
	}
	opts := append(ClientOptionsFromEnv(), option.WithScopes(storage.ScopeReadWrite))
	return storage.NewClient(ctx, opts...)
}

func (b *CatalogBucket) CopyObject(ctx context.Context, srcKey, dstKey string) error {
	if srcKey == dstKey {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	bkt := b.client.Bucket(b.name)
	copier := bkt.Object(dstKey).CopierFrom(bkt.Object(srcKey))
	if ct := contentTypeForKey(dstKey); ct != "" {
		copier.ContentType = ct
	}
	if _, err := copier.Run(ctx); err != nil {
		return fmt.Errorf("copy gs://%s/%s to %s: %w", b.name, srcKey, dstKey, err)
	}
	return nil
}

// PublicURL prefers the CDN domain, then the emulator or public base, then
// the plain GCS host.
func (b *CatalogBucket) PublicURL(key string) string {
	key = strings.TrimLeft(strings.TrimSpace(key), "/")
	switch {
	case b.cdnDomain != "":
		return fmt.Sprintf("https://%s/%s", b.cdnDomain, key)
	case b.storage.IsEmulator():
		base := b.storage.PublicBaseURL
		if base == "" {
			base = b.storage.EmulatorHost
		}
		return fmt.Sprintf("%s/storage/v1/b/%s/o/%s?alt=media", base, url.PathEscape(b.name), url.PathEscape(key))
	case b.storage.PublicBaseURL != "":
		return fmt.Sprintf("%s/%s/%s", b.storage.PublicBaseURL, b.name, key)
	default:
		return fmt.Sprintf("https://%s/%s/%s", gcsHost, b.name, key)
	}
}

// KeyFromURL extracts the object key from any URL form PublicURL can produce,
// plus gs:// and virtual-hosted GCS URLs. It reports false for URLs that point
// outside this bucket.
func (b *CatalogBucket) KeyFromURL(rawURL string) (string, bool) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || u.Host == "" {
		return "", false
	}
	path := strings.TrimLeft(u.Path, "/")

	if u.Scheme == "gs" {
		return nonEmpty(path, u.Host == b.name)
	}
	if b.cdnDomain != "" && strings.EqualFold(u.Host, b.cdnDomain) {
		return nonEmpty(path, true)
	}
	if strings.EqualFold(u.Host, b.name+"."+gcsHost) {
		return nonEmpty(path, true)
	}
	if media := "storage/v1/b/" + b.name + "/o/"; strings.HasPrefix(path, media) {
		return nonEmpty(strings.TrimPrefix(path, media), true)
	}
	if strings.EqualFold(u.Host, gcsHost) || b.matchesBase(u) {
		rest, ok := strings.CutPrefix(path, b.name+"/")
		return nonEmpty(rest, ok)
	}
	return "", false
}

func (b *CatalogBucket) matchesBase(u *url.URL) bool {
	for _, base := range []string{b.storage.PublicBaseURL, b.storage.EmulatorHost} {
		if base == "" {
			continue
		}
		if bu, err := url.Parse(base); err == nil && strings.EqualFold(bu.Host, u.Host) {
			return true
		}
	}
	return false
}

func nonEmpty(key string, ok bool) (string, bool) {
	if !ok || key == "" {
		return "", false
	}
	return key, true
}

func (b *CatalogBucket) Close() error {
	if b == nil || b.client == nil {
		return nil
	}
	return b.client.Close()
}

func contentTypeForKey(key string) string {
	switch {
	case strings.HasSuffix(strings.ToLower(key), ".glb"):
		return "model/gltf-binary"
	case strings.HasSuffix(strings.ToLower(key), ".gltf"):
		return "model/gltf+json"
	case strings.HasSuffix(strings.ToLower(key), ".usdz"):
		return "model/vnd.usdz+zip"
	default:
		return ""
	}
}
