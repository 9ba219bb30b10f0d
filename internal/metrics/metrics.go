// Package metrics provides centralized Prometheus metrics registry for the
// competition engine.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "fop_engine"

// Global registry instance
var (
	registry *prometheus.Registry
	once     sync.Once
)

// Counter metrics
var (
	FOPEventsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "fop_events_total",
		Help:      "Field-of-play events handled, by platform and event",
	}, []string{"platform", "event"})
	FOPEventsIgnoredTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "fop_events_ignored_total",
		Help:      "Field-of-play events ignored because they did not apply in the current state",
	}, []string{"platform", "event"})
	DecisionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "decisions_total",
		Help:      "Recorded lifts by platform and outcome",
	}, []string{"platform", "outcome"})
	NotificationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "notifications_total",
		Help:      "Operator actions rejected with a notification",
	}, []string{"platform"})
	RankingRefreshesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "ranking_refreshes_total",
		Help:      "Global ranking recomputations",
	})
	ScoreboardPublishTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "scoreboard_publish_total",
		Help:      "Remote scoreboard publish attempts by status",
	}, []string{"status"})
)

// Gauge metrics
var (
	FOPState = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "fop_state",
		Help:      "Current state of each field of play (0 inactive .. 4 break)",
	}, []string{"platform"})
	DisplayClients = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "display_clients",
		Help:      "Connected display clients per platform",
	}, []string{"platform"})
	RankedAthletes = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "ranked_athletes",
		Help:      "Athletes included in the last global ranking",
	})
	RankingCacheHitRatio = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "ranking_cache_hit_ratio",
		Help:      "Hit ratio of the cached global ranking",
	})
)

// Histogram metrics
var (
	FOPEventDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "fop_event_duration_seconds",
		Help:      "Time to apply a field-of-play event, fan-out excluded",
		Buckets:   []float64{.0005, .001, .0025, .005, .01, .025, .05, .1},
	}, []string{"platform"})
	RankingRefreshDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "ranking_refresh_duration_seconds",
		Help:      "Duration of global ranking computation in seconds",
		Buckets:   prometheus.DefBuckets,
	})
)

// InitRegistry initializes the global Prometheus registry.
func InitRegistry() *prometheus.Registry {
	once.Do(func() {
		registry = prometheus.NewRegistry()

		registry.MustRegister(FOPEventsTotal)
		registry.MustRegister(FOPEventsIgnoredTotal)
		registry.MustRegister(DecisionsTotal)
		registry.MustRegister(NotificationsTotal)
		registry.MustRegister(RankingRefreshesTotal)
		registry.MustRegister(ScoreboardPublishTotal)

		registry.MustRegister(FOPState)
		registry.MustRegister(DisplayClients)
		registry.MustRegister(RankedAthletes)
		registry.MustRegister(RankingCacheHitRatio)

		registry.MustRegister(FOPEventDuration)
		registry.MustRegister(RankingRefreshDuration)
	})
	return registry
}

// GetRegistry returns the global Prometheus registry.
func GetRegistry() *prometheus.Registry {
	if registry == nil {
		return InitRegistry()
	}
	return registry
}

// Handler returns the Prometheus HTTP handler.
func Handler() http.Handler {
	return promhttp.HandlerFor(GetRegistry(), promhttp.HandlerOpts{})
}

// RecordFOPEvent records a handled event and how long it took.
func RecordFOPEvent(platform, event string, durationSeconds float64) {
	FOPEventsTotal.WithLabelValues(platform, event).Inc()
	FOPEventDuration.WithLabelValues(platform).Observe(durationSeconds)
}

// RecordIgnoredEvent records an event dropped by the state machine.
func RecordIgnoredEvent(platform, event string) {
	FOPEventsIgnoredTotal.WithLabelValues(platform, event).Inc()
}

// RecordDecision records a lift outcome.
func RecordDecision(platform string, good bool) {
	outcome := "no_lift"
	if good {
		outcome = "good_lift"
	}
	DecisionsTotal.WithLabelValues(platform, outcome).Inc()
}

// RecordNotification records a rejected operator action.
func RecordNotification(platform string) {
	NotificationsTotal.WithLabelValues(platform).Inc()
}

// UpdateFOPState sets the state gauge of a platform.
func UpdateFOPState(platform string, state int) {
	FOPState.WithLabelValues(platform).Set(float64(state))
}

// UpdateDisplayClients sets the connected display count of a platform.
func UpdateDisplayClients(platform string, count int) {
	DisplayClients.WithLabelValues(platform).Set(float64(count))
}

// RecordRankingRefresh records a global ranking computation.
func RecordRankingRefresh(athletes int, durationSeconds float64) {
	RankingRefreshesTotal.Inc()
	RankedAthletes.Set(float64(athletes))
	RankingRefreshDuration.Observe(durationSeconds)
}

// UpdateRankingCacheHitRatio sets the ranking cache hit ratio.
func UpdateRankingCacheHitRatio(ratio float64) {
	RankingCacheHitRatio.Set(ratio)
}

// RecordScoreboardPublish records a publish attempt outcome.
func RecordScoreboardPublish(status string) {
	ScoreboardPublishTotal.WithLabelValues(status).Inc()
}
