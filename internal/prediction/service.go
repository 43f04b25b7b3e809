// Package prediction serves monthly trafficking forecasts for a
// neighborhood and fans batches of them out concurrently.
package prediction

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/recifedata/crimecast/internal/aggregate"
	"github.com/recifedata/crimecast/internal/estimator"
	"github.com/recifedata/crimecast/internal/features"
	"github.com/recifedata/crimecast/internal/model"
	"github.com/recifedata/crimecast/internal/monitoring"
	"github.com/recifedata/crimecast/internal/risk"
)

// Service turns a PredictionContext into a PredictionResult. It only reads
// the aggregate table, so one Service is shared by every request.
type Service struct {
	table   *aggregate.Table
	est     estimator.Estimator
	metrics *monitoring.Metrics
}

// Meta describes the served model.
type Meta struct {
	Model         string   `json:"model"`
	Target        string   `json:"target"`
	Features      []string `json:"features"`
	Neighborhoods []string `json:"neighborhoods"`
}

// NewService wires a Service. metrics may be nil.
func NewService(table *aggregate.Table, est estimator.Estimator, metrics *monitoring.Metrics) (*Service, error) {
	if table == nil {
		return nil, eris.New("prediction: aggregate table is required")
	}
	if est == nil {
		return nil, eris.New("prediction: estimator is required")
	}
	return &Service{table: table, est: est, metrics: metrics}, nil
}

// Neighborhoods returns every neighborhood the service can predict for.
func (s *Service) Neighborhoods() []string { return s.table.Neighborhoods() }

// Meta reports the estimator, its target and features, and the known
// neighborhoods.
func (s *Service) Meta() Meta {
	return Meta{
		Model:         s.est.Name(),
		Target:        estimator.Target,
		Features:      features.Names(),
		Neighborhoods: s.table.Neighborhoods(),
	}
}

// Predict validates pc, builds its feature vector and asks the estimator.
// The neighborhood is checked before the period, so an unknown name is
// reported even when the period is also invalid.
func (s *Service) Predict(ctx context.Context, pc model.PredictionContext) (*model.PredictionResult, error) {
	res, err := s.predict(ctx, pc)
	s.metrics.ObservePrediction(err)
	return res, err
}

func (s *Service) predict(ctx context.Context, pc model.PredictionContext) (*model.PredictionResult, error) {
	if strings.TrimSpace(pc.Neighborhood) == "" {
		return nil, model.NewMissingField("neighborhood")
	}
	name, ok := s.table.Resolve(pc.Neighborhood)
	if !ok {
		return nil, model.NewUnknownNeighborhood(pc.Neighborhood, s.table.Neighborhoods())
	}
	if err := ValidatePeriod(pc.Year, pc.Month); err != nil {
		return nil, err
	}
	season, err := features.SeasonOf(pc.Month)
	if err != nil {
		return nil, err
	}

	v := features.Vector{
		Neighborhood: name,
		Year:         pc.Year,
		Month:        pc.Month,
		Lags:         features.Lags(s.table.Series(name), pc.Year, pc.Month, features.DefaultLagCount),
		Victims:      valueOr(pc.Victims, 1),
		Suspects:     valueOr(pc.Suspects, 1),
		Weapon:       model.DefaultWeapon,
		Season:       season,
	}
	if pc.Weapon != nil && strings.TrimSpace(*pc.Weapon) != "" {
		v.Weapon = strings.TrimSpace(*pc.Weapon)
	}

	start := time.Now()
	raw, err := s.est.Predict(ctx, v)
	s.metrics.ObserveEstimator(time.Since(start))
	if err != nil {
		zap.L().Warn("estimator failed",
			zap.String("estimator", s.est.Name()),
			zap.String("neighborhood", name),
			zap.Int("year", pc.Year),
			zap.Int("month", pc.Month),
			zap.Error(err),
		)
		return nil, &model.PredictionFailedError{Neighborhood: name, Err: err}
	}
	if math.IsNaN(raw) || math.IsInf(raw, 0) {
		return nil, &model.PredictionFailedError{Neighborhood: name, Err: eris.Errorf("estimator returned %v", raw)}
	}

	predicted := max(raw, 0)
	level, color := risk.Classify(predicted)
	return &model.PredictionResult{
		Neighborhood:   name,
		Period:         model.Period(pc.Year, pc.Month),
		Year:           pc.Year,
		Month:          pc.Month,
		PredictedCount: round2(predicted),
		RiskLevel:      level,
		AlertColor:     color,
		Features: model.FeatureEcho{
			History: v.Echo(),
			Context: model.ContextEcho{
				Victims:  v.Victims,
				Suspects: v.Suspects,
				Weapon:   v.Weapon,
				Season:   season,
			},
		},
		Recommendation: risk.PredictionRecommendation(level, predicted),
	}, nil
}

// ValidatePeriod checks year and month against the served range.
func ValidatePeriod(year, month int) error {
	if year < model.MinYear || year > model.MaxYear {
		return model.NewOutOfRange("year", year, model.MinYear, model.MaxYear)
	}
	if month < model.MinMonth || month > model.MaxMonth {
		return model.NewOutOfRange("month", month, model.MinMonth, model.MaxMonth)
	}
	return nil
}

func valueOr(p *float64, def float64) float64 {
	if p == nil {
		return def
	}
	return *p
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
