package metrics

import (
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for moodwave
type Metrics struct {
	// Pipeline metrics
	ObservationsAppended prometheus.Counter
	TrainingDecisions    *prometheus.CounterVec
	TrainingDuration     prometheus.Histogram
	Forecasts            *prometheus.CounterVec
	ForecastHorizon      prometheus.Histogram

	// Store metrics
	StoreErrors  *prometheus.CounterVec
	BreakerState *prometheus.GaugeVec

	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

var (
	metricsOnce   sync.Once
	sharedMetrics *Metrics
)

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics() *Metrics {
	metricsOnce.Do(func() {
		sharedMetrics = &Metrics{
			ObservationsAppended: promauto.NewCounter(
				prometheus.CounterOpts{
					Name: "moodwave_observations_appended_total",
					Help: "Total number of observations appended",
				},
			),
			TrainingDecisions: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "moodwave_training_decisions_total",
					Help: "Retraining decisions by outcome",
				},
				[]string{"decision"},
			),
			TrainingDuration: promauto.NewHistogram(
				prometheus.HistogramOpts{
					Name:    "moodwave_training_duration_seconds",
					Help:    "Time spent fitting a model",
					Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12), // 0.5ms to 1s
				},
			),
			Forecasts: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "moodwave_forecasts_total",
					Help: "Forecast requests by status",
				},
				[]string{"status"},
			),
			ForecastHorizon: promauto.NewHistogram(
				prometheus.HistogramOpts{
					Name:    "moodwave_forecast_horizon_days",
					Help:    "Requested forecast horizon in days",
					Buckets: []float64{1, 3, 7, 14, 30, 90, 365},
				},
			),

			StoreErrors: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "moodwave_store_errors_total",
					Help: "Persistence failures by operation",
				},
				[]string{"op"},
			),
			BreakerState: promauto.NewGaugeVec(
				prometheus.GaugeOpts{
					Name: "moodwave_store_breaker_state",
					Help: "Store circuit breaker state (0 closed, 1 half-open, 2 open)",
				},
				[]string{"name"},
			),

			HTTPRequestsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "moodwave_http_requests_total",
					Help: "Total number of HTTP requests",
				},
				[]string{"method", "path", "status"},
			),
			HTTPRequestDuration: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "moodwave_http_request_duration_seconds",
					Help:    "HTTP request duration in seconds",
					Buckets: prometheus.DefBuckets,
				},
				[]string{"method", "path"},
			),
		}
	})

	return sharedMetrics
}

// RecordTrainingDecision records one retraining decision and, for fits, how long it took
func (m *Metrics) RecordTrainingDecision(decision string, seconds float64) {
	m.TrainingDecisions.WithLabelValues(decision).Inc()
	if seconds > 0 {
		m.TrainingDuration.Observe(seconds)
	}
}

// RecordForecast records a forecast request
func (m *Metrics) RecordForecast(status string, horizon int) {
	m.Forecasts.WithLabelValues(status).Inc()
	m.ForecastHorizon.Observe(float64(horizon))
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, path string, status int, duration float64) {
	m.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration)
}
