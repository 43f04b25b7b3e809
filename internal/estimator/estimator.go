// Package estimator provides the learned components behind predictions and
// cluster assignment. Both are loaded explicitly at startup; nothing here is
// global.
package estimator

import (
	"context"

	"github.com/recifedata/crimecast/internal/features"
	"github.com/recifedata/crimecast/internal/model"
)

// Estimator predicts the trafficking count for one neighborhood-month.
type Estimator interface {
	Predict(ctx context.Context, v features.Vector) (float64, error)
	Name() string
}

// ClusterModel assigns an attribute vector to a cluster id.
type ClusterModel interface {
	Assign(ctx context.Context, v model.AttributeVector) (int, error)
	Name() string
}

// Describer is implemented by cluster models that carry a description per
// cluster.
type Describer interface {
	Describe(cluster int) string
}

// Target names what the estimators predict.
const Target = "monthly_trafficking_count"
