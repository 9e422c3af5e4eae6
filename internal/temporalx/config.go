package temporalx

import (
	"time"

	"github.com/charpstar/pipeline-backend/internal/platform/envutil"
)

const defaultQueue = "pipeline-side-effects"

type Config struct {
	Address   string
	Namespace string
	TaskQueue string

	ClientCertPath string
	ClientKeyPath  string
	ClientCAPath   string

	DialTimeout       time.Duration
	DialMaxWait       time.Duration
	AutoRegister      bool
	RetentionDays     int
	WorkerConcurrency int
}

// Enabled reports whether a Temporal frontend is configured.
func (c Config) Enabled() bool { return c.Address != "" }

func (c Config) hasTLS() bool {
	return c.ClientCertPath != "" || c.ClientKeyPath != "" || c.ClientCAPath != ""
}

func LoadConfig() Config {
	return Config{
		Address:   envutil.String("TEMPORAL_ADDRESS", ""),
		Namespace: envutil.String("TEMPORAL_NAMESPACE", "pipeline"),
		TaskQueue: envutil.String("TEMPORAL_TASK_QUEUE", defaultQueue),

		ClientCertPath: envutil.String("TEMPORAL_CLIENT_CERT_PATH", ""),
		ClientKeyPath:  envutil.String("TEMPORAL_CLIENT_KEY_PATH", ""),
		ClientCAPath:   envutil.String("TEMPORAL_CLIENT_CA_PATH", ""),

		DialTimeout:       envutil.Duration("TEMPORAL_DIAL_TIMEOUT", 5*time.Second),
		DialMaxWait:       envutil.Duration("TEMPORAL_DIAL_MAX_WAIT", 60*time.Second),
		AutoRegister:      envutil.Bool("TEMPORAL_AUTO_REGISTER_NAMESPACE", false),
		RetentionDays:     envutil.Int("TEMPORAL_NAMESPACE_RETENTION_DAYS", 7),
		WorkerConcurrency: envutil.Int("WORKER_CONCURRENCY", 4),
	}
}
