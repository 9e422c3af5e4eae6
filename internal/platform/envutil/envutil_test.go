package envutil

import (
	"testing"
	"time"
)

func TestDurationAcceptsSecondsAndGoSyntax(t *testing.T) {
	t.Setenv("X_DELAY", "45")
	if got := Duration("X_DELAY", time.Second); got != 45*time.Second {
		t.Fatalf("bare seconds: got=%s", got)
	}
	t.Setenv("X_DELAY", "2m")
	if got := Duration("X_DELAY", time.Second); got != 2*time.Minute {
		t.Fatalf("go duration: got=%s", got)
	}
	t.Setenv("X_DELAY", "soon")
	if got := Duration("X_DELAY", time.Second); got != time.Second {
		t.Fatalf("fallback: got=%s", got)
	}
}

func TestBoolAndList(t *testing.T) {
	t.Setenv("X_FLAG", "off")
	if Bool("X_FLAG", true) {
		t.Fatalf("expected false")
	}
	t.Setenv("X_LIST", " a, ,b ")
	got := List("X_LIST", nil)
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Fatalf("list: %v", got)
	}
	if Int("X_MISSING_INT", 7) != 7 {
		t.Fatalf("int default")
	}
}
