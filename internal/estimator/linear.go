package estimator

import (
	"context"
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/recifedata/crimecast/internal/features"
	"github.com/recifedata/crimecast/internal/model"
)

// LinearArtifact is the serialized form of a LinearEstimator: a regressor
// over the numeric features plus one-hot effects for the categorical ones.
type LinearArtifact struct {
	Name         string             `yaml:"name"`
	Intercept    float64            `yaml:"intercept"`
	Coefficients map[string]float64 `yaml:"coefficients"`
	Neighborhood map[string]float64 `yaml:"neighborhood"`
	Weapon       map[string]float64 `yaml:"weapon"`
	Season       map[string]float64 `yaml:"season"`
}

// LinearEstimator evaluates a LinearArtifact. Category levels absent from
// the artifact contribute nothing.
type LinearEstimator struct {
	name         string
	intercept    float64
	coefficients map[string]float64
	neighborhood map[string]float64
	weapon       map[string]float64
	season       map[string]float64
}

// LoadLinear reads a LinearArtifact from a YAML file.
func LoadLinear(path string) (*LinearEstimator, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "estimator: read artifact %s", path)
	}
	var a LinearArtifact
	if err := yaml.Unmarshal(data, &a); err != nil {
		return nil, eris.Wrapf(err, "estimator: parse artifact %s", path)
	}
	return NewLinear(a)
}

// NewLinear validates a and builds the estimator.
func NewLinear(a LinearArtifact) (*LinearEstimator, error) {
	known := make(map[string]bool)
	for _, n := range features.Names() {
		known[n] = true
	}
	for name := range a.Coefficients {
		if !known[name] {
			return nil, eris.Errorf("estimator: unknown feature %q in coefficients", name)
		}
	}
	if a.Name == "" {
		a.Name = "linear"
	}
	return &LinearEstimator{
		name:         a.Name,
		intercept:    a.Intercept,
		coefficients: a.Coefficients,
		neighborhood: foldKeys(a.Neighborhood),
		weapon:       foldKeys(a.Weapon),
		season:       foldKeys(a.Season),
	}, nil
}

func foldKeys(m map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(m))
	for k, v := range m {
		out[model.FoldName(k)] = v
	}
	return out
}

// Name identifies the artifact.
func (e *LinearEstimator) Name() string { return e.name }

// Predict returns the raw linear score. It may be negative; callers clamp.
func (e *LinearEstimator) Predict(ctx context.Context, v features.Vector) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, eris.Wrap(err, "estimator: linear predict")
	}
	y := e.intercept
	for name, x := range v.Numeric() {
		y += e.coefficients[name] * x
	}
	y += e.neighborhood[model.FoldName(v.Neighborhood)]
	y += e.weapon[model.FoldName(v.Weapon)]
	y += e.season[model.FoldName(string(v.Season))]
	return y, nil
}
