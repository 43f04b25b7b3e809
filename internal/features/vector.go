package features

import (
	"fmt"

	"github.com/recifedata/crimecast/internal/model"
)

// Vector is the full input of one estimator call.
type Vector struct {
	Neighborhood string       `json:"neighborhood"`
	Year         int          `json:"year"`
	Month        int          `json:"month"`
	Lags         []int        `json:"lags"`
	Victims      float64      `json:"victims"`
	Suspects     float64      `json:"suspects"`
	Weapon       string       `json:"weapon"`
	Season       model.Season `json:"season"`
}

// Names returns the ordered feature names an estimator consumes.
func Names() []string {
	names := []string{"neighborhood", "year", "month"}
	for i := 1; i <= DefaultLagCount; i++ {
		names = append(names, fmt.Sprintf("lag%d", i))
	}
	return append(names, "victims", "suspects", "weapon", "season")
}

// Numeric returns the numeric features keyed by name. Categorical
// features (neighborhood, weapon, season) are left to the estimator.
func (v Vector) Numeric() map[string]float64 {
	out := map[string]float64{
		"year":     float64(v.Year),
		"month":    float64(v.Month),
		"victims":  v.Victims,
		"suspects": v.Suspects,
	}
	for i, lag := range v.Lags {
		out[fmt.Sprintf("lag%d", i+1)] = float64(lag)
	}
	return out
}

// Echo reports the lag history the vector was built from.
func (v Vector) Echo() model.HistoryEcho {
	lag := func(i int) int {
		if i < len(v.Lags) {
			return v.Lags[i]
		}
		return 0
	}
	return model.HistoryEcho{
		Lags:           append([]int(nil), v.Lags...),
		PreviousMonth:  lag(0),
		TwoMonthsAgo:   lag(1),
		ThreeMonthsAgo: lag(2),
		MeanLast6:      round2(MeanOf(v.Lags)),
	}
}
