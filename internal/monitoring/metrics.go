// Package monitoring exposes Prometheus instruments for the API, the
// prediction path and the remote estimator.
package monitoring

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/recifedata/crimecast/internal/model"
	"github.com/recifedata/crimecast/internal/resilience"
)

// Metrics owns a private registry so tests can build as many as they like.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	requests     *prometheus.CounterVec
	latency      *prometheus.HistogramVec
	predictions  *prometheus.CounterVec
	batchDropped *prometheus.CounterVec
	estimator    prometheus.Histogram
	breaker      prometheus.Gauge
	registry     *prometheus.Registry
}

// New registers every instrument on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "crimecast_http_requests_total",
			Help: "HTTP requests by route and status.",
		}, []string{"method", "route", "status"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "crimecast_http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		predictions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "crimecast_predictions_total",
			Help: "Predictions by outcome.",
		}, []string{"outcome"}),
		batchDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "crimecast_batch_dropped_total",
			Help: "Batch items dropped by error kind.",
		}, []string{"kind"}),
		estimator: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "crimecast_estimator_duration_seconds",
			Help:    "Estimator call latency.",
			Buckets: []float64{.001, .005, .01, .05, .1, .25, .5, 1, 2.5},
		}),
		breaker: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "crimecast_estimator_breaker_state",
			Help: "Remote estimator breaker state (0 closed, 1 open, 2 half-open).",
		}),
		registry: prometheus.NewRegistry(),
	}
	m.registry.MustRegister(m.requests, m.latency, m.predictions, m.batchDropped, m.estimator, m.breaker)
	return m
}

// Handler serves the exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// ObserveRequest records one served request. route is the pattern, not
// the raw path, to keep label cardinality bounded.
func (m *Metrics) ObserveRequest(method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.latency.WithLabelValues(method, route).Observe(d.Seconds())
}

// ObservePrediction counts a prediction outcome; err nil counts as "ok".
func (m *Metrics) ObservePrediction(err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = string(model.KindOf(err))
	}
	m.predictions.WithLabelValues(outcome).Inc()
}

// ObserveBatchDrop counts a batch item dropped for err.
func (m *Metrics) ObserveBatchDrop(err error) {
	if m == nil {
		return
	}
	m.batchDropped.WithLabelValues(string(model.KindOf(err))).Inc()
}

// ObserveEstimator records the latency of one estimator call.
func (m *Metrics) ObserveEstimator(d time.Duration) {
	if m == nil {
		return
	}
	m.estimator.Observe(d.Seconds())
}

// BreakerChanged tracks the remote estimator breaker. Its signature fits
// resilience.BreakerConfig.OnChange.
func (m *Metrics) BreakerChanged(_, to resilience.State) {
	if m == nil {
		return
	}
	m.breaker.Set(float64(to))
}
