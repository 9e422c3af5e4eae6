package app

import (
	"context"
	"fmt"

	temporalsdkclient "go.temporal.io/sdk/client"

	"github.com/charpstar/pipeline-backend/internal/platform/gcp"
	"github.com/charpstar/pipeline-backend/internal/platform/logger"
	"github.com/charpstar/pipeline-backend/internal/realtime/bus"
	"github.com/charpstar/pipeline-backend/internal/services"
	"github.com/charpstar/pipeline-backend/internal/temporalx"
)

// Clients holds connections to external systems. Any of them may be absent.
type Clients struct {
	Bus      bus.Bus
	Bucket   *gcp.CatalogBucket
	Temporal temporalsdkclient.Client
}

func wireClients(ctx context.Context, log *logger.Logger, cfg Config) (Clients, error) {
	log.Info("Wiring clients...")
	var out Clients

	b, err := bus.New(log, cfg.BusConfig())
	if err != nil {
		return out, fmt.Errorf("init bus: %w", err)
	}
	out.Bus = b

	if cfg.CatalogBucket != "" {
		bucket, err := gcp.OpenCatalogBucket(ctx, log, cfg.CatalogBucket, cfg.CatalogCDNDomain)
		if err != nil {
			out.Close()
			return Clients{}, fmt.Errorf("init catalog bucket: %w", err)
		}
		out.Bucket = bucket
	} else {
		log.Warn("CATALOG_GCS_BUCKET_NAME not set; GLB relocation disabled")
	}

	if cfg.Temporal.Enabled() {
		tc, err := temporalx.NewClient(log, cfg.Temporal)
		if err != nil {
			out.Close()
			return Clients{}, fmt.Errorf("init temporal: %w", err)
		}
		out.Temporal = tc
	}
	return out, nil
}

// GLBStore returns the bucket as a services.GLBStore, or a nil interface
// when no bucket is configured.
func (c Clients) GLBStore() services.GLBStore {
	if c.Bucket == nil {
		return nil
	}
	return c.Bucket
}

func (c Clients) Close() {
	if c.Bus != nil {
		_ = c.Bus.Close()
	}
	if c.Bucket != nil {
		_ = c.Bucket.Close()
	}
	if c.Temporal != nil {
		c.Temporal.Close()
	}
}
