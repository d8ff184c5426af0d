package macro

import (
	"testing"
	"time"
)

func TestParseTimer(t *testing.T) {
	spec, err := ParseTimer("name=ping interval=30s repeat=5 /ctcp %C% PING")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if spec.Name != "ping" || spec.Interval != 30*time.Second || spec.Repeat != 5 {
		t.Fatalf("unexpected spec: %+v", spec)
	}
	if spec.Command != "/ctcp %C% PING" {
		t.Fatalf("unexpected command: %q", spec.Command)
	}
	if spec.ID.String() == "" {
		t.Fatal("expected a non-empty id")
	}
}

func TestParseTimerMillisecondInterval(t *testing.T) {
	spec, err := ParseTimer("name=t interval=5000 /echo hi")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if spec.Interval != 5*time.Second {
		t.Fatalf("expected 5s, got %v", spec.Interval)
	}
}

func TestParseTimerMissingFields(t *testing.T) {
	_, err := ParseTimer("name=t /echo hi")
	merr, ok := err.(*Error)
	if !ok || merr.Kind != InsufficientParameters {
		t.Fatalf("expected InsufficientParameters, got %v", err)
	}
}
