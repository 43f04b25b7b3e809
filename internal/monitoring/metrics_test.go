package monitoring

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/recifedata/crimecast/internal/model"
	"github.com/recifedata/crimecast/internal/resilience"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	return string(body)
}

func TestMetrics_Exposition(t *testing.T) {
	m := New()
	m.ObserveRequest(http.MethodGet, "/ranking", 200, 15*time.Millisecond)
	m.ObservePrediction(nil)
	m.ObservePrediction(model.NewUnknownNeighborhood("X", nil))
	m.ObserveBatchDrop(&model.PredictionFailedError{Neighborhood: "Recife", Err: errors.New("boom")})
	m.ObserveEstimator(3 * time.Millisecond)
	m.BreakerChanged(resilience.StateClosed, resilience.StateOpen)

	body := scrape(t, m)
	assert.Contains(t, body, `crimecast_http_requests_total{method="GET",route="/ranking",status="200"} 1`)
	assert.Contains(t, body, `crimecast_predictions_total{outcome="ok"} 1`)
	assert.Contains(t, body, `crimecast_predictions_total{outcome="unknown_entity"} 1`)
	assert.Contains(t, body, `crimecast_batch_dropped_total{kind="prediction_failed"} 1`)
	assert.Contains(t, body, `crimecast_estimator_duration_seconds_count 1`)
	assert.Contains(t, body, `crimecast_estimator_breaker_state 1`)
}

func TestMetrics_IndependentRegistries(t *testing.T) {
	a, b := New(), New()
	a.ObservePrediction(nil)
	assert.NotContains(t, scrape(t, b), `crimecast_predictions_total{outcome="ok"}`)
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveRequest("GET", "/", 200, time.Second)
		m.ObservePrediction(nil)
		m.ObserveBatchDrop(errors.New("x"))
		m.ObserveEstimator(time.Second)
		m.BreakerChanged(resilience.StateOpen, resilience.StateClosed)
	})
}
