package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"github.com/charpstar/pipeline-backend/internal/app"
	"github.com/charpstar/pipeline-backend/internal/data/repos"
	"github.com/charpstar/pipeline-backend/internal/platform/envutil"
	"github.com/charpstar/pipeline-backend/internal/platform/logger"
	"github.com/charpstar/pipeline-backend/internal/services"
)

// toolDeps is the slice of the application the commands operate on.
type toolDeps struct {
	Cleanup services.CleanupService
	Rollup  services.RollupService
	Tasks   repos.SideEffectTaskRepo
	LockDir string
}

type commandContext struct {
	configFlag *string
	load       func(ctx context.Context) (*toolDeps, func(), error)
}

func newCommandContext(configFlag *string) *commandContext {
	cc := &commandContext{configFlag: configFlag}
	cc.load = cc.loadApp
	return cc
}

func (cc *commandContext) loadApp(ctx context.Context) (*toolDeps, func(), error) {
	if cc.configFlag != nil && *cc.configFlag != "" {
		if err := os.Setenv("PIPELINE_CONFIG_FILE", *cc.configFlag); err != nil {
			return nil, nil, err
		}
	}
	log, err := logger.New(envutil.String("LOG_MODE", "cli"))
	if err != nil {
		return nil, nil, fmt.Errorf("init logger: %w", err)
	}
	a, err := app.NewForTooling(ctx, log)
	if err != nil {
		log.Sync()
		return nil, nil, err
	}
	deps := &toolDeps{
		Cleanup: a.Services.Cleanup,
		Rollup:  a.Services.Rollup,
		Tasks:   a.Repos.SideEffect,
		LockDir: a.Cfg.LockDir,
	}
	return deps, func() { a.Close(context.Background()) }, nil
}

// withLock runs fn while holding an exclusive file lock named after the
// command. A second holder gets an error instead of waiting.
func withLock(lockDir, name string, fn func() error) error {
	if lockDir == "" {
		lockDir = os.TempDir()
	}
	if err := os.MkdirAll(lockDir, 0o755); err != nil {
		return fmt.Errorf("create lock dir: %w", err)
	}
	lock := flock.New(filepath.Join(lockDir, "pipelinectl-"+name+".lock"))
	ok, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return fmt.Errorf("another %s is already running (lock %s)", name, lock.Path())
	}
	defer func() { _ = lock.Unlock() }()
	return fn()
}
