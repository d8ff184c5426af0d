package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestSetConnectionStateOneHot(t *testing.T) {
	states := []string{"connecting", "registered", "retrying"}
	SetConnectionState("freenode", states, "registered")

	if v := testutil.ToFloat64(ConnectionState.WithLabelValues("freenode", "registered")); v != 1 {
		t.Fatalf("expected registered=1, got %v", v)
	}
	if v := testutil.ToFloat64(ConnectionState.WithLabelValues("freenode", "connecting")); v != 0 {
		t.Fatalf("expected connecting=0, got %v", v)
	}
}

func TestFloodDropsCounter(t *testing.T) {
	before := testutil.ToFloat64(FloodDropsTotal.WithLabelValues("efnet"))
	FloodDropsTotal.WithLabelValues("efnet").Inc()
	after := testutil.ToFloat64(FloodDropsTotal.WithLabelValues("efnet"))
	if after != before+1 {
		t.Fatalf("expected counter to increment by 1, got %v -> %v", before, after)
	}
}
