package api

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metric names as constants for consistency.
const (
	MetricGamesStarted      = "games_started_total"
	MetricGuessesScored     = "guesses_scored_total"
	MetricDailySubmissions  = "daily_submissions_total"
	MetricLimitDenied       = "game_limit_denied_total"
	MetricLimitFailOpen     = "game_limit_fail_open_total"
	MetricInvalidSessions   = "invalid_session_tokens_total"
	MetricDuplicateEntries  = "duplicate_daily_submissions_total"
)

// Metrics contains Prometheus metrics for the game protocol.
// All operations are thread-safe.
type Metrics struct {
	gamesStarted     *prometheus.CounterVec
	guessesScored    prometheus.Counter
	dailySubmissions *prometheus.CounterVec
	limitDenied      *prometheus.CounterVec
	limitFailOpen    prometheus.Counter
	invalidSessions  prometheus.Counter
	duplicateEntries prometheus.Counter
}

// NewMetrics creates a Metrics instance with all collectors
// initialized. Call Register to attach them to a registry.
func NewMetrics() *Metrics {
	return &Metrics{
		gamesStarted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricGamesStarted,
				Help: "Total number of games started, by mode and tier",
			},
			[]string{"mode", "tier"},
		),
		guessesScored: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: MetricGuessesScored,
				Help: "Total number of round guesses scored",
			},
		),
		dailySubmissions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricDailySubmissions,
				Help: "Total number of daily challenge submissions, by registration status",
			},
			[]string{"registered"},
		),
		limitDenied: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricLimitDenied,
				Help: "Total number of game starts denied by the daily allowance, by tier",
			},
			[]string{"tier"},
		),
		limitFailOpen: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: MetricLimitFailOpen,
				Help: "Total number of limit checks that failed open because the counter store was unavailable",
			},
		),
		invalidSessions: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: MetricInvalidSessions,
				Help: "Total number of rejected session tokens",
			},
		),
		duplicateEntries: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: MetricDuplicateEntries,
				Help: "Total number of rejected duplicate daily submissions",
			},
		),
	}
}

// Register registers all metrics with the given registry.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	for _, c := range m.Collectors() {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// IncGamesStarted counts a successful game start.
func (m *Metrics) IncGamesStarted(mode, tier string) {
	m.gamesStarted.WithLabelValues(mode, tier).Inc()
}

// IncGuessesScored counts one scored round guess.
func (m *Metrics) IncGuessesScored() {
	m.guessesScored.Inc()
}

// IncDailySubmissions counts an accepted daily challenge submission.
func (m *Metrics) IncDailySubmissions(registered bool) {
	label := "false"
	if registered {
		label = "true"
	}
	m.dailySubmissions.WithLabelValues(label).Inc()
}

// IncLimitDenied counts a denied game start.
func (m *Metrics) IncLimitDenied(tier string) {
	m.limitDenied.WithLabelValues(tier).Inc()
}

// IncLimitFailOpen counts a fail-open limit check.
func (m *Metrics) IncLimitFailOpen() {
	m.limitFailOpen.Inc()
}

// IncInvalidSessions counts a rejected session token.
func (m *Metrics) IncInvalidSessions() {
	m.invalidSessions.Inc()
}

// IncDuplicateEntries counts a rejected duplicate submission.
func (m *Metrics) IncDuplicateEntries() {
	m.duplicateEntries.Inc()
}

// Collectors returns all Prometheus collectors for testing.
func (m *Metrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.gamesStarted,
		m.guessesScored,
		m.dailySubmissions,
		m.limitDenied,
		m.limitFailOpen,
		m.invalidSessions,
		m.duplicateEntries,
	}
}
