// Package features builds the estimator inputs from the aggregate table.
package features

import (
	"math"
	"slices"

	"github.com/recifedata/crimecast/internal/model"
)

// DefaultLagCount is the number of lag features the estimators expect.
const DefaultLagCount = 6

// Lags returns the counts of the n most recent months strictly before
// (year, month), most recent first, padded with zeros up to n. Gaps in the
// history are not filled: lag k is the k-th most recent month that has an
// aggregate, not necessarily k months back. Input order does not matter.
func Lags(series []model.MonthlyAggregate, year, month, n int) []int {
	if n <= 0 {
		return []int{}
	}

	prior := make([]model.MonthlyAggregate, 0, len(series))
	for _, r := range series {
		if r.Before(year, month) {
			prior = append(prior, r)
		}
	}
	slices.SortFunc(prior, func(a, b model.MonthlyAggregate) int {
		if a.Year != b.Year {
			return b.Year - a.Year
		}
		return b.Month - a.Month
	})

	lags := make([]int, n)
	for i := 0; i < n && i < len(prior); i++ {
		lags[i] = prior[i].Count
	}
	return lags
}

// MeanOf returns the arithmetic mean of lags, or 0 for an empty slice.
func MeanOf(lags []int) float64 {
	if len(lags) == 0 {
		return 0
	}
	sum := 0
	for _, v := range lags {
		sum += v
	}
	return float64(sum) / float64(len(lags))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
