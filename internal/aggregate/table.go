package aggregate

import (
	"fmt"
	"slices"

	"github.com/rotisserie/eris"

	"github.com/recifedata/crimecast/internal/model"
)

// Table is the process-wide monthly aggregate table. It is built once and
// never mutated, so concurrent readers need no locking.
type Table struct {
	rows   []model.MonthlyAggregate
	series map[string][]model.MonthlyAggregate
	folded map[string]string
	names  []string
}

// NewTable validates rows and indexes them by neighborhood. It rejects
// duplicate keys, months outside 1..12, negative counts, and neighborhood
// names that collide once case-folded.
func NewTable(rows []model.MonthlyAggregate) (*Table, error) {
	t := &Table{
		rows:   slices.Clone(rows),
		series: make(map[string][]model.MonthlyAggregate),
		folded: make(map[string]string),
	}
	SortAggregates(t.rows)

	seen := make(map[model.MonthKey]struct{}, len(t.rows))
	for _, r := range t.rows {
		key := r.Key()
		if _, dup := seen[key]; dup {
			return nil, eris.Wrap(invalidTable(fmt.Sprintf("duplicate aggregate for %s", key)), "aggregate: new table")
		}
		seen[key] = struct{}{}

		if r.Month < model.MinMonth || r.Month > model.MaxMonth {
			return nil, eris.Wrap(invalidTable(fmt.Sprintf("month %d out of range for %s", r.Month, key)), "aggregate: new table")
		}
		if r.Count < 0 {
			return nil, eris.Wrap(invalidTable(fmt.Sprintf("negative count for %s", key)), "aggregate: new table")
		}

		f := model.FoldName(r.Neighborhood)
		if canonical, ok := t.folded[f]; ok && canonical != r.Neighborhood {
			return nil, eris.Wrap(invalidTable(fmt.Sprintf("neighborhoods %q and %q differ only by case", canonical, r.Neighborhood)), "aggregate: new table")
		}
		if _, ok := t.folded[f]; !ok {
			t.folded[f] = r.Neighborhood
			t.names = append(t.names, r.Neighborhood)
		}
		t.series[r.Neighborhood] = append(t.series[r.Neighborhood], r)
	}
	slices.SortFunc(t.names, model.CompareNames)
	return t, nil
}

func invalidTable(msg string) *model.ValidationError {
	return &model.ValidationError{Field: "monthly_aggregates", Reason: model.ReasonInvalid, Message: msg}
}

// Len returns the number of aggregates.
func (t *Table) Len() int { return len(t.rows) }

// Rows returns a copy of every aggregate sorted by (neighborhood, year, month).
func (t *Table) Rows() []model.MonthlyAggregate { return slices.Clone(t.rows) }

// Neighborhoods returns the known neighborhoods in alphabetical order.
func (t *Table) Neighborhoods() []string { return slices.Clone(t.names) }

// Resolve matches name case-insensitively and returns the stored spelling.
func (t *Table) Resolve(name string) (string, bool) {
	canonical, ok := t.folded[model.FoldName(name)]
	return canonical, ok
}

// Series returns the chronological aggregates of one neighborhood, matched
// exactly. The slice is a copy.
func (t *Table) Series(neighborhood string) []model.MonthlyAggregate {
	return slices.Clone(t.series[neighborhood])
}

// TotalOccurrences sums the monthly counts of every neighborhood.
func (t *Table) TotalOccurrences() map[string]int {
	totals := make(map[string]int, len(t.series))
	for name, rows := range t.series {
		sum := 0
		for _, r := range rows {
			sum += r.Count
		}
		totals[name] = sum
	}
	return totals
}
