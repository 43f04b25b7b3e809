package prediction

import (
	"cmp"
	"context"
	"slices"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/recifedata/crimecast/internal/model"
	"github.com/recifedata/crimecast/internal/monitoring"
)

// DefaultMaxConcurrency bounds batch fan-out when no limit is configured.
const DefaultMaxConcurrency = 8

// Predictor is the part of Service the orchestrator needs.
type Predictor interface {
	Predict(ctx context.Context, pc model.PredictionContext) (*model.PredictionResult, error)
	Neighborhoods() []string
}

// Outcome is the result of one batch item before the policy is applied.
type Outcome struct {
	Context model.PredictionContext
	Result  *model.PredictionResult
	Err     error
}

// Policy reduces item outcomes to the served predictions.
type Policy func(outcomes []Outcome) []model.PredictionResult

// KeepSuccesses drops every failed item and keeps the rest. A batch never
// fails because one of its items did.
func KeepSuccesses(outcomes []Outcome) []model.PredictionResult {
	out := make([]model.PredictionResult, 0, len(outcomes))
	for _, o := range outcomes {
		if o.Err == nil && o.Result != nil {
			out = append(out, *o.Result)
		}
	}
	return out
}

// BatchRequest asks for one period across many neighborhoods. An empty
// Neighborhoods list means every known neighborhood. The auxiliary fields
// apply to every item.
type BatchRequest struct {
	Year          int      `json:"year"`
	Month         int      `json:"month"`
	Neighborhoods []string `json:"neighborhoods,omitempty"`
	Victims       *float64 `json:"victims,omitempty"`
	Suspects      *float64 `json:"suspects,omitempty"`
	Weapon        *string  `json:"weapon,omitempty"`
}

// BatchResult is the served outcome of a batch.
type BatchResult struct {
	RunID          string                   `json:"run_id"`
	Period         string                   `json:"period,omitempty"`
	Requested      int                      `json:"requested"`
	Analyzed       int                      `json:"analyzed"`
	Dropped        int                      `json:"dropped"`
	Predictions    []model.PredictionResult `json:"predictions"`
	Top            *model.PredictionResult  `json:"top"`
	TotalPredicted float64                  `json:"total_predicted"`
}

// Orchestrator runs many predictions concurrently.
type Orchestrator struct {
	svc     Predictor
	limit   int
	policy  Policy
	metrics *monitoring.Metrics
}

// NewOrchestrator builds an Orchestrator applying KeepSuccesses.
// maxConcurrency <= 0 takes DefaultMaxConcurrency.
func NewOrchestrator(svc Predictor, maxConcurrency int, metrics *monitoring.Metrics) *Orchestrator {
	if maxConcurrency <= 0 {
		maxConcurrency = DefaultMaxConcurrency
	}
	return &Orchestrator{svc: svc, limit: maxConcurrency, policy: KeepSuccesses, metrics: metrics}
}

// PredictPeriod validates the period and predicts it for every requested
// neighborhood. Only the period can fail the whole batch.
func (o *Orchestrator) PredictPeriod(ctx context.Context, req BatchRequest) (*BatchResult, error) {
	if err := ValidatePeriod(req.Year, req.Month); err != nil {
		return nil, err
	}
	names := req.Neighborhoods
	if len(names) == 0 {
		names = o.svc.Neighborhoods()
	}
	items := make([]model.PredictionContext, len(names))
	for i, n := range names {
		items[i] = model.PredictionContext{
			Neighborhood: n,
			Year:         req.Year,
			Month:        req.Month,
			Victims:      req.Victims,
			Suspects:     req.Suspects,
			Weapon:       req.Weapon,
		}
	}
	res := o.PredictMany(ctx, items)
	res.Period = model.Period(req.Year, req.Month)
	return res, nil
}

// PredictMany predicts every item, applies the policy and sorts the
// survivors by predicted count descending, then by name.
func (o *Orchestrator) PredictMany(ctx context.Context, items []model.PredictionContext) *BatchResult {
	runID := uuid.NewString()
	log := zap.L().With(zap.String("run_id", runID))

	outcomes := make([]Outcome, len(items))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.limit)
	for i, pc := range items {
		g.Go(func() error {
			res, err := o.svc.Predict(gctx, pc)
			outcomes[i] = Outcome{Context: pc, Result: res, Err: err}
			return nil // one item never aborts the batch
		})
	}
	_ = g.Wait()

	for _, oc := range outcomes {
		if oc.Err != nil {
			log.Warn("batch item dropped",
				zap.String("neighborhood", oc.Context.Neighborhood),
				zap.String("kind", string(model.KindOf(oc.Err))),
				zap.Error(oc.Err),
			)
			o.metrics.ObserveBatchDrop(oc.Err)
		}
	}

	preds := o.policy(outcomes)
	slices.SortFunc(preds, func(a, b model.PredictionResult) int {
		if c := cmp.Compare(b.PredictedCount, a.PredictedCount); c != 0 {
			return c
		}
		return model.CompareNames(a.Neighborhood, b.Neighborhood)
	})

	res := &BatchResult{
		RunID:       runID,
		Requested:   len(items),
		Analyzed:    len(preds),
		Dropped:     len(items) - len(preds),
		Predictions: preds,
	}
	var total float64
	for _, p := range preds {
		total += p.PredictedCount
	}
	res.TotalPredicted = round2(total)
	if len(preds) > 0 {
		top := preds[0]
		res.Top = &top
	}

	log.Info("batch complete",
		zap.Int("requested", res.Requested),
		zap.Int("analyzed", res.Analyzed),
		zap.Int("dropped", res.Dropped),
	)
	return res
}
