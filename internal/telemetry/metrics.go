package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the NowGo API.
type Metrics struct {
	RouteTotal        *prometheus.CounterVec
	RouteSavings      *prometheus.HistogramVec
	EstimatedCostUSD  *prometheus.CounterVec
	RequestDurationMs *prometheus.HistogramVec
	RateLimitHits     *prometheus.CounterVec
	FilterActionTotal *prometheus.CounterVec
}

// NewMetrics creates the metrics and registers them with reg. A nil reg
// means the default registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)

	return &Metrics{
		RouteTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "nowgo_route_total",
			Help: "Total routing decisions, by outcome.",
		}, []string{"complexity", "model", "preference", "status"}),

		RouteSavings: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "nowgo_route_savings_percent",
			Help:    "Estimated savings versus the most expensive model, in percent.",
			Buckets: []float64{0, 25, 50, 75, 90, 95, 99, 100},
		}, []string{"model"}),

		EstimatedCostUSD: f.NewCounterVec(prometheus.CounterOpts{
			Name: "nowgo_estimated_cost_usd_total",
			Help: "Sum of estimated per-query cost in USD.",
		}, []string{"model"}),

		RequestDurationMs: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "nowgo_request_duration_ms",
			Help:    "HTTP request duration in milliseconds.",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		}, []string{"endpoint"}),

		RateLimitHits: f.NewCounterVec(prometheus.CounterOpts{
			Name: "nowgo_rate_limit_hits_total",
			Help: "Requests rejected by a rate limit or quota.",
		}, []string{"dimension"}),

		FilterActionTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "nowgo_filter_action_total",
			Help: "Total filter actions taken.",
		}, []string{"filter", "action"}),
	}
}

// RouteLabels holds the values recorded for one routing decision.
type RouteLabels struct {
	Complexity string
	Model      string
	Preference string
	Status     string
	Savings    int
	CostUSD    float64
}

// RecordRoute records a routing decision. Savings and cost are only
// observed for successful decisions.
func (m *Metrics) RecordRoute(labels RouteLabels) {
	m.RouteTotal.WithLabelValues(labels.Complexity, labels.Model, labels.Preference, labels.Status).Inc()
	if labels.Status != "ok" {
		return
	}
	m.RouteSavings.WithLabelValues(labels.Model).Observe(float64(labels.Savings))
	if labels.CostUSD > 0 {
		m.EstimatedCostUSD.WithLabelValues(labels.Model).Add(labels.CostUSD)
	}
}

func (m *Metrics) RecordRequestDuration(endpoint string, ms float64) {
	m.RequestDurationMs.WithLabelValues(endpoint).Observe(ms)
}

// RecordRateLimitHit counts a rejection; dimension is "rpm" or "quota".
func (m *Metrics) RecordRateLimitHit(dimension string) {
	m.RateLimitHits.WithLabelValues(dimension).Inc()
}

// RecordFilterAction records a filter action metric.
func (m *Metrics) RecordFilterAction(filter, action string) {
	m.FilterActionTotal.WithLabelValues(filter, action).Inc()
}
