package gcp

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/charpstar/pipeline-backend/internal/platform/envutil"
)

type StorageMode string

const (
	StorageModeGCS         StorageMode = "gcs"
	StorageModeGCSEmulator StorageMode = "gcs_emulator"
)

// StorageConfig selects between real GCS and a fake-gcs emulator.
type StorageConfig struct {
	Mode          StorageMode
	EmulatorHost  string
	PublicBaseURL string
}

func (c StorageConfig) IsEmulator() bool { return c.Mode == StorageModeGCSEmulator }

// ResolveStorageConfigFromEnv reads OBJECT_STORAGE_MODE. An unset mode falls
// back to the emulator whenever STORAGE_EMULATOR_HOST is present.
func ResolveStorageConfigFromEnv() (StorageConfig, error) {
	cfg := StorageConfig{
		EmulatorHost:  strings.TrimRight(envutil.String("STORAGE_EMULATOR_HOST", ""), "/"),
		PublicBaseURL: strings.TrimRight(envutil.String("OBJECT_STORAGE_PUBLIC_BASE_URL", ""), "/"),
	}
	raw := envutil.String("OBJECT_STORAGE_MODE", "")
	switch StorageMode(strings.ToLower(raw)) {
	case "":
		cfg.Mode = StorageModeGCS
		if cfg.EmulatorHost != "" {
			cfg.Mode = StorageModeGCSEmulator
		}
	case StorageModeGCS:
		cfg.Mode = StorageModeGCS
	case StorageModeGCSEmulator:
		cfg.Mode = StorageModeGCSEmulator
	default:
		return cfg, fmt.Errorf("invalid OBJECT_STORAGE_MODE=%q (allowed: %q, %q)", raw, StorageModeGCS, StorageModeGCSEmulator)
	}
	return cfg, cfg.Validate()
}

func (c StorageConfig) Validate() error {
	switch c.Mode {
	case StorageModeGCS:
	case StorageModeGCSEmulator:
		if c.EmulatorHost == "" {
			return fmt.Errorf("OBJECT_STORAGE_MODE=%q requires STORAGE_EMULATOR_HOST", StorageModeGCSEmulator)
		}
		if !isAbsoluteURL(c.EmulatorHost) {
			return fmt.Errorf("invalid STORAGE_EMULATOR_HOST=%q; expected absolute URL like http://fake-gcs:4443", c.EmulatorHost)
		}
	default:
		return fmt.Errorf("invalid storage mode %q", c.Mode)
	}
	if c.PublicBaseURL != "" && !isAbsoluteURL(c.PublicBaseURL) {
		return fmt.Errorf("invalid OBJECT_STORAGE_PUBLIC_BASE_URL=%q", c.PublicBaseURL)
	}
	return nil
}

func isAbsoluteURL(raw string) bool {
	u, err := url.Parse(raw)
	return err == nil && u.Scheme != "" && u.Host != ""
}
