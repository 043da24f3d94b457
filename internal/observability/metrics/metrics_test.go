package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestConversationCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewConversation(reg)

	m.ObserveTurn("book")
	m.ObserveTurn("book")
	m.ObserveTurn("")
	m.ObserveFallback()
	m.ObserveAction("book", "success")
	m.ObserveOracleLatency(0.25)

	if got := testutil.ToFloat64(m.turnsTotal.WithLabelValues("book")); got != 2 {
		t.Fatalf("expected 2 book turns, got %v", got)
	}
	if got := testutil.ToFloat64(m.turnsTotal.WithLabelValues("unknown")); got != 1 {
		t.Fatalf("expected empty intent counted as unknown, got %v", got)
	}
	if got := testutil.ToFloat64(m.fallbackTotal); got != 1 {
		t.Fatalf("expected 1 fallback, got %v", got)
	}
	if got := testutil.ToFloat64(m.actionsTotal.WithLabelValues("book", "success")); got != 1 {
		t.Fatalf("expected 1 successful book action, got %v", got)
	}
}

func TestNilConversationIsSafe(t *testing.T) {
	var m *Conversation
	m.ObserveTurn("book")
	m.ObserveFallback()
	m.ObserveAction("cancel", "error")
	m.ObserveOracleLatency(1)
}
