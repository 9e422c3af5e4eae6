package temporalx

import (
	"testing"
	"time"

	"github.com/charpstar/pipeline-backend/internal/platform/logger"
)

func TestBackoffCaps(t *testing.T) {
	cases := []struct {
		attempt int
		want    time.Duration
	}{
		{1, 250 * time.Millisecond},
		{2, 500 * time.Millisecond},
		{4, 2 * time.Second},
		{6, 5 * time.Second},
		{30, 5 * time.Second},
	}
	for _, tc := range cases {
		if got := Backoff(250*time.Millisecond, 5*time.Second, tc.attempt); got != tc.want {
			t.Fatalf("attempt %d: want=%s got=%s", tc.attempt, tc.want, got)
		}
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("TEMPORAL_ADDRESS", "")
	t.Setenv("TEMPORAL_TASK_QUEUE", "")
	cfg := LoadConfig()
	if cfg.Enabled() {
		t.Fatalf("expected disabled without address")
	}
	if cfg.TaskQueue != defaultQueue || cfg.Namespace != "pipeline" {
		t.Fatalf("defaults: %+v", cfg)
	}

	c, err := NewClient(logger.Nop(), cfg)
	if err != nil || c != nil {
		t.Fatalf("disabled client: c=%v err=%v", c, err)
	}
}

func TestTLSRequiresCertAndKey(t *testing.T) {
	_, err := loadTLSConfig(Config{ClientCAPath: "/tmp/ca.pem"})
	if err == nil {
		t.Fatalf("expected error without cert and key")
	}
}
