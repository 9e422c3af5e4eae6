package app

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/charpstar/pipeline-backend/internal/data/db"
	"github.com/charpstar/pipeline-backend/internal/platform/envutil"
	"github.com/charpstar/pipeline-backend/internal/platform/logger"
	"github.com/charpstar/pipeline-backend/internal/realtime/bus"
	"github.com/charpstar/pipeline-backend/internal/temporalx"
)

// Config is the process configuration. Values come from the optional YAML
// file named by PIPELINE_CONFIG_FILE; environment variables override it.
type Config struct {
	Port         string `yaml:"port"`
	PostgresDSN  string `yaml:"postgres_dsn"`
	JWTSecretKey string `yaml:"jwt_secret_key"`
	ServiceName  string `yaml:"service_name"`
	Environment  string `yaml:"environment"`

	BusDriver    string `yaml:"bus_driver"`
	RedisAddr    string `yaml:"redis_addr"`
	RedisChannel string `yaml:"redis_channel"`
	NATSURL      string `yaml:"nats_url"`
	NATSSubject  string `yaml:"nats_subject"`

	CatalogBucket    string `yaml:"catalog_gcs_bucket_name"`
	CatalogCDNDomain string `yaml:"catalog_cdn_domain"`

	WorkerConcurrency     int           `yaml:"worker_concurrency"`
	SideEffectMaxAttempts int           `yaml:"side_effect_max_attempts"`
	SideEffectRetryDelay  time.Duration `yaml:"side_effect_retry_delay"`
	BulkChunkSize         int           `yaml:"bulk_chunk_size"`
	RollupMaxAttempts     int           `yaml:"rollup_max_attempts"`

	CORSAllowedOrigins []string `yaml:"cors_allowed_origins"`
	LockDir            string   `yaml:"lock_dir"`
	TemporalAddress    string   `yaml:"temporal_address"`

	Temporal temporalx.Config `yaml:"-"`
}

func defaultConfig() Config {
	return Config{
		Port:                  "8080",
		ServiceName:           "pipeline-backend",
		Environment:           "development",
		WorkerConcurrency:     4,
		SideEffectMaxAttempts: 5,
		SideEffectRetryDelay:  30 * time.Second,
		BulkChunkSize:         100,
		RollupMaxAttempts:     3,
		CORSAllowedOrigins:    []string{"http://localhost:3000"},
		LockDir:               os.TempDir(),
	}
}

// LoadConfig reads the overlay file (if any) and then the environment.
func LoadConfig(log *logger.Logger) (Config, error) {
	cfg := defaultConfig()
	if path := envutil.String("PIPELINE_CONFIG_FILE", ""); path != "" {
		if err := loadConfigFile(path, &cfg); err != nil {
			return Config{}, err
		}
		if log != nil {
			log.Info("Loaded config file", "path", path)
		}
	}
	applyEnv(&cfg)
	if cfg.PostgresDSN == "" {
		cfg.PostgresDSN = db.DSN()
	}

	cfg.Temporal = temporalx.LoadConfig()
	if cfg.Temporal.Address == "" {
		cfg.Temporal.Address = cfg.TemporalAddress
	}
	cfg.Temporal.WorkerConcurrency = cfg.WorkerConcurrency
	return cfg, nil
}

func loadConfigFile(path string, cfg *Config) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config) {
	cfg.Port = envutil.String("PORT", cfg.Port)
	cfg.PostgresDSN = envutil.String("POSTGRES_DSN", cfg.PostgresDSN)
	cfg.JWTSecretKey = envutil.String("JWT_SECRET_KEY", cfg.JWTSecretKey)
	cfg.ServiceName = envutil.String("OTEL_SERVICE_NAME", cfg.ServiceName)
	cfg.Environment = envutil.String("APP_ENV", cfg.Environment)

	cfg.BusDriver = envutil.String("BUS_DRIVER", cfg.BusDriver)
	cfg.RedisAddr = envutil.String("REDIS_ADDR", cfg.RedisAddr)
	cfg.RedisChannel = envutil.String("REDIS_CHANNEL", cfg.RedisChannel)
	cfg.NATSURL = envutil.String("NATS_URL", cfg.NATSURL)
	cfg.NATSSubject = envutil.String("NATS_SUBJECT", cfg.NATSSubject)

	cfg.CatalogBucket = envutil.String("CATALOG_GCS_BUCKET_NAME", cfg.CatalogBucket)
	cfg.CatalogCDNDomain = envutil.String("CATALOG_CDN_DOMAIN", cfg.CatalogCDNDomain)

	cfg.WorkerConcurrency = envutil.Int("WORKER_CONCURRENCY", cfg.WorkerConcurrency)
	cfg.SideEffectMaxAttempts = envutil.Int("SIDE_EFFECT_MAX_ATTEMPTS", cfg.SideEffectMaxAttempts)
	cfg.SideEffectRetryDelay = envutil.Duration("SIDE_EFFECT_RETRY_DELAY", cfg.SideEffectRetryDelay)
	cfg.BulkChunkSize = envutil.Int("BULK_CHUNK_SIZE", cfg.BulkChunkSize)
	cfg.RollupMaxAttempts = envutil.Int("ROLLUP_MAX_ATTEMPTS", cfg.RollupMaxAttempts)

	cfg.CORSAllowedOrigins = envutil.List("CORS_ALLOWED_ORIGINS", cfg.CORSAllowedOrigins)
	cfg.LockDir = envutil.String("LOCK_DIR", cfg.LockDir)
	cfg.TemporalAddress = envutil.String("TEMPORAL_ADDRESS", cfg.TemporalAddress)
}

func (c Config) BusConfig() bus.Config {
	return bus.Config{
		Driver:       c.BusDriver,
		RedisAddr:    c.RedisAddr,
		RedisChannel: c.RedisChannel,
		NATSURL:      c.NATSURL,
		NATSSubject:  c.NATSSubject,
	}
}

// Addr is the listen address for the HTTP server.
func (c Config) Addr() string {
	port := strings.TrimPrefix(strings.TrimSpace(c.Port), ":")
	if port == "" {
		port = "8080"
	}
	return ":" + port
}
