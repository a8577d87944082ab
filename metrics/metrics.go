// Package metrics exposes Prometheus collectors for the HTTP server, the
// interaction dataset pipeline and risk scoring:
//   - http_request_total, http_request_duration_seconds, http_request_in_flight
//   - rate_limiter_buckets_total
//   - dataset_build_duration_seconds, dataset_rows, dataset_match_rate
//   - risk_scores_total, ai_report_results_total
//
// Everything is registered with the default registry on package init.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	HTTPRequestTotals = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_request_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"method", "path"},
	)

	HTTPRequestInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_request_in_flight",
			Help: "Current in-flight requests",
		},
	)

	RateLimiterBucketsTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "rate_limiter_buckets_total",
			Help: "Total number of rate limiter buckets (IPs seen in last ~5 minutes)",
		},
	)

	DatasetBuildDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dataset_build_duration_seconds",
			Help:    "Interaction dataset build time",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1200},
		},
		[]string{"result"},
	)

	DatasetRows = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "dataset_rows",
			Help: "Rows in the currently served interaction dataset",
		},
	)

	DatasetMatchRate = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "dataset_match_rate",
			Help: "Share of dataset pairs with at least one side effect",
		},
	)

	RiskScoresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "risk_scores_total",
			Help: "Risk scores computed, by policy and level",
		},
		[]string{"policy", "level"},
	)

	AIReportResultsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ai_report_results_total",
			Help: "Generated report outcomes",
		},
		[]string{"result"},
	)
)

func init() {
	prometheus.MustRegister(HTTPRequestTotals)
	prometheus.MustRegister(HTTPRequestDuration)
	prometheus.MustRegister(HTTPRequestInFlight)
	prometheus.MustRegister(RateLimiterBucketsTotal)
	prometheus.MustRegister(DatasetBuildDuration)
	prometheus.MustRegister(DatasetRows)
	prometheus.MustRegister(DatasetMatchRate)
	prometheus.MustRegister(RiskScoresTotal)
	prometheus.MustRegister(AIReportResultsTotal)
}

func RecordRiskScore(policy, level string) {
	RiskScoresTotal.WithLabelValues(policy, level).Inc()
}

func RecordReportResult(result string) {
	AIReportResultsTotal.WithLabelValues(result).Inc()
}

// RecordDatasetBuild observes a build. Row and match-rate gauges only move
// on success.
func RecordDatasetBuild(duration time.Duration, rows int, matchRate float64, err error) {
	if err != nil {
		DatasetBuildDuration.WithLabelValues("error").Observe(duration.Seconds())
		return
	}
	DatasetBuildDuration.WithLabelValues("success").Observe(duration.Seconds())
	DatasetRows.Set(float64(rows))
	DatasetMatchRate.Set(matchRate)
}
