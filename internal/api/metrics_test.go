package api

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetrics_Register(t *testing.T) {
	m := NewMetrics()
	reg := prometheus.NewRegistry()
	if err := m.Register(reg); err != nil {
		t.Fatalf("registration failed: %v", err)
	}
	if err := m.Register(reg); err == nil {
		t.Error("expected duplicate registration to fail")
	}
}

func TestMetrics_Counters(t *testing.T) {
	m := NewMetrics()

	m.IncGamesStarted("daily", "free")
	m.IncGamesStarted("daily", "free")
	m.IncGuessesScored()
	m.IncDailySubmissions(true)
	m.IncDailySubmissions(false)
	m.IncLimitDenied("anon")
	m.IncLimitFailOpen()
	m.IncInvalidSessions()
	m.IncDuplicateEntries()

	if got := testutil.ToFloat64(m.gamesStarted.WithLabelValues("daily", "free")); got != 2 {
		t.Errorf("gamesStarted = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.guessesScored); got != 1 {
		t.Errorf("guessesScored = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.dailySubmissions.WithLabelValues("true")); got != 1 {
		t.Errorf("registered submissions = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.dailySubmissions.WithLabelValues("false")); got != 1 {
		t.Errorf("anonymous submissions = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.limitDenied.WithLabelValues("anon")); got != 1 {
		t.Errorf("limitDenied = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.limitFailOpen); got != 1 {
		t.Errorf("limitFailOpen = %v, want 1", got)
	}
}

func TestMetrics_Collectors(t *testing.T) {
	if got := len(NewMetrics().Collectors()); got != 7 {
		t.Errorf("expected 7 collectors, got %d", got)
	}
}
