package estimator

import (
	"context"
	"math"
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/recifedata/crimecast/internal/model"
)

// CentroidArtifact is a fitted k-means model: the standard scaler applied
// before clustering and one centroid per cluster in scaled space.
type CentroidArtifact struct {
	Name         string         `yaml:"name"`
	Mean         []float64      `yaml:"mean"`
	Scale        []float64      `yaml:"scale"`
	Centroids    [][]float64    `yaml:"centroids"`
	Descriptions map[int]string `yaml:"descriptions"`
}

// CentroidModel assigns vectors to the nearest centroid.
type CentroidModel struct {
	a CentroidArtifact
}

// LoadCentroid reads a CentroidArtifact from a YAML file.
func LoadCentroid(path string) (*CentroidModel, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "estimator: read cluster model %s", path)
	}
	var a CentroidArtifact
	if err := yaml.Unmarshal(data, &a); err != nil {
		return nil, eris.Wrapf(err, "estimator: parse cluster model %s", path)
	}
	return NewCentroid(a)
}

// NewCentroid validates the artifact dimensions.
func NewCentroid(a CentroidArtifact) (*CentroidModel, error) {
	dim := len(model.AttributeNames)
	if len(a.Centroids) == 0 {
		return nil, eris.New("estimator: cluster model has no centroids")
	}
	if a.Mean == nil {
		a.Mean = make([]float64, dim)
	}
	if a.Scale == nil {
		a.Scale = make([]float64, dim)
		for i := range a.Scale {
			a.Scale[i] = 1
		}
	}
	if len(a.Mean) != dim || len(a.Scale) != dim {
		return nil, eris.Errorf("estimator: scaler has %d/%d values, want %d", len(a.Mean), len(a.Scale), dim)
	}
	for i, c := range a.Centroids {
		if len(c) != dim {
			return nil, eris.Errorf("estimator: centroid %d has %d values, want %d", i, len(c), dim)
		}
	}
	if a.Name == "" {
		a.Name = "kmeans"
	}
	return &CentroidModel{a: a}, nil
}

// Name identifies the artifact.
func (m *CentroidModel) Name() string { return m.a.Name }

// Clusters returns the number of clusters.
func (m *CentroidModel) Clusters() int { return len(m.a.Centroids) }

// Describe returns the stored description of a cluster, or "".
func (m *CentroidModel) Describe(cluster int) string { return m.a.Descriptions[cluster] }

// Assign scales v and returns the index of the closest centroid. Ties go
// to the lower index.
func (m *CentroidModel) Assign(ctx context.Context, v model.AttributeVector) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, eris.Wrap(err, "estimator: assign")
	}
	x := v.Values()
	for i := range x {
		scale := m.a.Scale[i]
		if scale == 0 {
			scale = 1
		}
		x[i] = (x[i] - m.a.Mean[i]) / scale
	}

	best, bestDist := 0, math.Inf(1)
	for i, c := range m.a.Centroids {
		d := 0.0
		for j := range c {
			diff := x[j] - c[j]
			d += diff * diff
		}
		if d < bestDist {
			best, bestDist = i, d
		}
	}
	return best, nil
}
