// Package aggregate turns raw incident records into the per-neighborhood-month
// table every analytic view reads from.
package aggregate

import (
	"slices"
	"strings"

	"github.com/recifedata/crimecast/internal/model"
)

// DefaultCrimeKeywords select trafficking incidents in the precinct exports.
var DefaultCrimeKeywords = []string{"tráfico", "trafico", "trafficking"}

// CrimeFilter selects incidents whose crime type contains any keyword,
// compared case-insensitively.
type CrimeFilter struct {
	keywords []string
}

// NewCrimeFilter builds a filter from keywords. With no keywords it falls
// back to DefaultCrimeKeywords.
func NewCrimeFilter(keywords ...string) CrimeFilter {
	if len(keywords) == 0 {
		keywords = DefaultCrimeKeywords
	}
	folded := make([]string, 0, len(keywords))
	for _, k := range keywords {
		if k = model.FoldName(k); k != "" {
			folded = append(folded, k)
		}
	}
	return CrimeFilter{keywords: folded}
}

// Match reports whether crimeType passes the filter.
func (f CrimeFilter) Match(crimeType string) bool {
	ct := model.FoldName(crimeType)
	for _, k := range f.keywords {
		if strings.Contains(ct, k) {
			return true
		}
	}
	return false
}

type monthAcc struct {
	count       int
	victimsN    int
	victimsSum  float64
	suspectsN   int
	suspectsSum float64
}

// Aggregate groups the filtered records by (neighborhood, year, month).
// Mean victims and suspects are computed over the records carrying the
// attribute and default to 1 when none do. The result is sorted by
// (neighborhood, year, month) ascending; empty input yields an empty table.
func Aggregate(records []model.IncidentRecord, filter CrimeFilter) []model.MonthlyAggregate {
	groups := make(map[model.MonthKey]*monthAcc)
	names := make(spellings)
	for _, r := range records {
		if !keep(r, filter) {
			continue
		}
		key := model.MonthKey{
			Neighborhood: names.canonical(r.Neighborhood),
			Year:         r.OccurredAt.Year(),
			Month:        int(r.OccurredAt.Month()),
		}
		acc, ok := groups[key]
		if !ok {
			acc = &monthAcc{}
			groups[key] = acc
		}
		acc.count++
		if r.Victims != nil {
			acc.victimsN++
			acc.victimsSum += float64(*r.Victims)
		}
		if r.Suspects != nil {
			acc.suspectsN++
			acc.suspectsSum += float64(*r.Suspects)
		}
	}

	out := make([]model.MonthlyAggregate, 0, len(groups))
	for key, acc := range groups {
		out = append(out, model.MonthlyAggregate{
			Neighborhood: key.Neighborhood,
			Year:         key.Year,
			Month:        key.Month,
			Count:        acc.count,
			MeanVictims:  meanOrOne(acc.victimsSum, acc.victimsN),
			MeanSuspects: meanOrOne(acc.suspectsSum, acc.suspectsN),
		})
	}
	SortAggregates(out)
	return out
}

// keep reports whether Aggregate and Attributes count r. Undated records
// are dropped by both.
func keep(r model.IncidentRecord, filter CrimeFilter) bool {
	return strings.TrimSpace(r.Neighborhood) != "" && !r.OccurredAt.IsZero() && filter.Match(r.CrimeType)
}

// spellings maps a case-folded neighborhood name to the first spelling seen
// for it, so exports mixing "Boa Viagem" and "BOA VIAGEM" group together.
type spellings map[string]string

func (s spellings) canonical(name string) string {
	name = strings.TrimSpace(name)
	folded := model.FoldName(name)
	if c, ok := s[folded]; ok {
		return c
	}
	s[folded] = name
	return name
}

// SortAggregates orders rows by (neighborhood, year, month) ascending.
func SortAggregates(rows []model.MonthlyAggregate) {
	slices.SortFunc(rows, func(a, b model.MonthlyAggregate) int {
		if c := strings.Compare(a.Neighborhood, b.Neighborhood); c != 0 {
			return c
		}
		if a.Year != b.Year {
			return a.Year - b.Year
		}
		return a.Month - b.Month
	})
}

func meanOrOne(sum float64, n int) float64 {
	if n == 0 {
		return 1
	}
	return sum / float64(n)
}
