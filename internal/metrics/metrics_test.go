package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestChatMetricsObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewChatMetrics(reg)
	m.ObserveInbound("text", "processed")
	m.ObserveOutbound("button_menu", "sent", 0.2)
	m.ObserveOutbound("button_menu", "failed", 0.1)
	m.ObserveBooking("created")
	m.ObservePruned(3)

	if got := testutil.ToFloat64(m.outboundTotal.WithLabelValues("button_menu", "failed")); got != 1 {
		t.Fatalf("failed sends = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.prunedTotal); got != 3 {
		t.Fatalf("pruned = %v, want 3", got)
	}
}

func TestChatMetricsNilSafe(t *testing.T) {
	var m *ChatMetrics
	m.ObserveInbound("text", "processed")
	m.ObserveResolution("trigger")
	m.ObserveOutbound("text", "sent", 0.1)
	m.ObserveBooking("arrived")
	m.ObservePruned(1)
}
