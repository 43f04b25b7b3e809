package estimator

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/recifedata/crimecast/internal/features"
	"github.com/recifedata/crimecast/internal/resilience"
)

// HTTPOptions configures an HTTPEstimator.
type HTTPOptions struct {
	BaseURL    string
	Timeout    time.Duration
	RatePerSec float64
	Burst      int
	Breaker    resilience.BreakerConfig
	Client     *http.Client
}

// HTTPEstimator delegates predictions to a remote model server. Calls are
// rate limited and pass through a circuit breaker; failures are not
// retried.
type HTTPEstimator struct {
	base    string
	client  *http.Client
	limiter *rate.Limiter
	breaker *resilience.Breaker
}

type predictResponse struct {
	Prediction *float64 `json:"prediction"`
}

// NewHTTP builds an HTTPEstimator. Transient failures trip the breaker
// unless opts.Breaker.Trips says otherwise.
func NewHTTP(opts HTTPOptions) (*HTTPEstimator, error) {
	base := strings.TrimRight(opts.BaseURL, "/")
	if base == "" {
		return nil, eris.New("estimator: model url is required")
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Second
	}
	if opts.RatePerSec <= 0 {
		opts.RatePerSec = 20
	}
	if opts.Burst <= 0 {
		opts.Burst = int(opts.RatePerSec) + 1
	}
	if opts.Breaker.Trips == nil {
		opts.Breaker.Trips = resilience.IsTransient
	}
	client := opts.Client
	if client == nil {
		client = &http.Client{Timeout: opts.Timeout}
	}
	return &HTTPEstimator{
		base:    base,
		client:  client,
		limiter: rate.NewLimiter(rate.Limit(opts.RatePerSec), opts.Burst),
		breaker: resilience.NewBreaker(opts.Breaker),
	}, nil
}

// Name reports the remote endpoint.
func (e *HTTPEstimator) Name() string { return "http:" + e.base }

// BreakerState exposes the breaker for health reporting.
func (e *HTTPEstimator) BreakerState() resilience.State { return e.breaker.State() }

// Predict posts v to {base}/predict.
func (e *HTTPEstimator) Predict(ctx context.Context, v features.Vector) (float64, error) {
	if err := e.limiter.Wait(ctx); err != nil {
		return 0, eris.Wrap(err, "estimator: rate limiter wait")
	}
	return resilience.Call(ctx, e.breaker, func(ctx context.Context) (float64, error) {
		return e.post(ctx, v)
	})
}

func (e *HTTPEstimator) post(ctx context.Context, v features.Vector) (float64, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return 0, eris.Wrap(err, "estimator: marshal features")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.base+"/predict", bytes.NewReader(body))
	if err != nil {
		return 0, eris.Wrap(err, "estimator: create request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return 0, eris.Wrap(err, "estimator: send request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		err := eris.Errorf("estimator: model server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
		zap.L().Warn("model server error",
			zap.String("url", e.base),
			zap.Int("status", resp.StatusCode),
		)
		if resilience.TransientStatus(resp.StatusCode) {
			return 0, resilience.NewTransientError(err, resp.StatusCode)
		}
		return 0, err
	}

	var out predictResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return 0, eris.Wrap(err, "estimator: decode response")
	}
	if out.Prediction == nil {
		return 0, eris.New("estimator: response has no prediction")
	}
	return *out.Prediction, nil
}
