package aggregate

import (
	"math"

	"github.com/recifedata/crimecast/internal/model"
)

// DefaultHistoryLimit is the window used when a caller gives no limit.
const DefaultHistoryLimit = 12

// Trend labels.
const (
	TrendIncreasing = "increasing"
	TrendDecreasing = "decreasing"
)

// HistoryPoint is one month of a neighborhood's history.
type HistoryPoint struct {
	Year   int    `json:"year"`
	Month  int    `json:"month"`
	Period string `json:"period"`
	Count  int    `json:"count"`
}

// HistoryStats summarizes a history window.
type HistoryStats struct {
	Mean  float64 `json:"mean"`
	Max   int     `json:"max"`
	Min   int     `json:"min"`
	Trend string  `json:"trend"`
}

// HistorySummary is the last months of a neighborhood with summary stats.
type HistorySummary struct {
	Neighborhood string         `json:"neighborhood"`
	TotalRecords int            `json:"total_records"`
	History      []HistoryPoint `json:"history"`
	Stats        HistoryStats   `json:"stats"`
}

// History returns the last limit aggregates of a neighborhood in
// chronological order. The trend is increasing when the most recent count
// exceeds the earliest count of the window.
func (t *Table) History(neighborhood string, limit int) (*HistorySummary, error) {
	canonical, ok := t.Resolve(neighborhood)
	if !ok {
		return nil, model.NewUnknownNeighborhood(neighborhood, t.Neighborhoods())
	}
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}

	series := t.series[canonical]
	if len(series) > limit {
		series = series[len(series)-limit:]
	}

	summary := &HistorySummary{
		Neighborhood: canonical,
		TotalRecords: len(series),
		History:      make([]HistoryPoint, 0, len(series)),
		Stats:        HistoryStats{Trend: TrendDecreasing},
	}
	if len(series) == 0 {
		return summary, nil
	}

	sum := 0
	summary.Stats.Max = series[0].Count
	summary.Stats.Min = series[0].Count
	for _, r := range series {
		summary.History = append(summary.History, HistoryPoint{
			Year:   r.Year,
			Month:  r.Month,
			Period: model.Period(r.Year, r.Month),
			Count:  r.Count,
		})
		sum += r.Count
		summary.Stats.Max = max(summary.Stats.Max, r.Count)
		summary.Stats.Min = min(summary.Stats.Min, r.Count)
	}
	summary.Stats.Mean = round2(float64(sum) / float64(len(series)))
	if series[len(series)-1].Count > series[0].Count {
		summary.Stats.Trend = TrendIncreasing
	}
	return summary, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
