// Package ranking orders neighborhoods by total occurrences.
package ranking

import (
	"slices"

	"github.com/recifedata/crimecast/internal/model"
)

// Entry is one ranked neighborhood.
type Entry struct {
	Position         int    `json:"position"`
	Neighborhood     string `json:"neighborhood"`
	TotalOccurrences int    `json:"total_occurrences"`
}

// Ranking is an immutable total order: occurrences descending, then name
// case-insensitively, then the raw name.
type Ranking struct {
	entries []Entry
	index   map[string]int
}

// New ranks totals, keyed by neighborhood.
func New(totals map[string]int) *Ranking {
	entries := make([]Entry, 0, len(totals))
	for name, n := range totals {
		entries = append(entries, Entry{Neighborhood: name, TotalOccurrences: n})
	}
	slices.SortFunc(entries, func(a, b Entry) int {
		if a.TotalOccurrences != b.TotalOccurrences {
			return b.TotalOccurrences - a.TotalOccurrences
		}
		return model.CompareNames(a.Neighborhood, b.Neighborhood)
	})

	index := make(map[string]int, len(entries))
	for i := range entries {
		entries[i].Position = i + 1
		f := model.FoldName(entries[i].Neighborhood)
		if _, dup := index[f]; !dup {
			index[f] = i
		}
	}
	return &Ranking{entries: entries, index: index}
}

// Len returns the population size.
func (r *Ranking) Len() int { return len(r.entries) }

// TopN returns the first limit entries. limit <= 0 yields an empty slice;
// a limit beyond the population yields everything.
func (r *Ranking) TopN(limit int) []Entry {
	if limit <= 0 {
		return []Entry{}
	}
	limit = min(limit, len(r.entries))
	return slices.Clone(r.entries[:limit])
}

// Position returns the 1-based rank of name, matched case-insensitively.
func (r *Ranking) Position(name string) (int, error) {
	i, ok := r.index[model.FoldName(name)]
	if !ok {
		roster := make([]string, len(r.entries))
		for j, e := range r.entries {
			roster[j] = e.Neighborhood
		}
		slices.SortFunc(roster, model.CompareNames)
		return 0, model.NewUnknownNeighborhood(name, roster)
	}
	return r.entries[i].Position, nil
}
