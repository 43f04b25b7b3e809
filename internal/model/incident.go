package model

import (
	"fmt"
	"time"
)

// IncidentRecord is a single raw police occurrence as exported by the
// precinct system. Auxiliary attributes are pointers because exports leave
// them blank more often than not.
type IncidentRecord struct {
	Neighborhood string    `json:"neighborhood"`
	OccurredAt   time.Time `json:"occurred_at"`
	CrimeType    string    `json:"crime_type"`
	Victims      *int      `json:"victims,omitempty"`
	Suspects     *int      `json:"suspects,omitempty"`
	Weapon       string    `json:"weapon,omitempty"`
	SuspectAge   *float64  `json:"suspect_age,omitempty"`
	Hour         *int      `json:"hour,omitempty"`
}

// HasWeapon reports whether the record names a weapon other than the
// "none" placeholders used by the exports.
func (r IncidentRecord) HasWeapon() bool {
	switch normalizeWeapon(r.Weapon) {
	case "", "none", "nenhum", "nenhuma", "sem arma", "não informado", "nao informado":
		return false
	}
	return true
}

// MonthKey identifies one neighborhood-month.
type MonthKey struct {
	Neighborhood string `json:"neighborhood"`
	Year         int    `json:"year"`
	Month        int    `json:"month"`
}

func (k MonthKey) String() string {
	return fmt.Sprintf("%s %02d/%d", k.Neighborhood, k.Month, k.Year)
}

// MonthlyAggregate is the per-neighborhood-month trafficking count with the
// mean auxiliary attributes of the incidents behind it.
type MonthlyAggregate struct {
	Neighborhood string  `json:"neighborhood" csv:"neighborhood"`
	Year         int     `json:"year" csv:"year"`
	Month        int     `json:"month" csv:"month"`
	Count        int     `json:"count" csv:"count"`
	MeanVictims  float64 `json:"mean_victims" csv:"mean_victims"`
	MeanSuspects float64 `json:"mean_suspects" csv:"mean_suspects"`
}

// Key returns the unique key of the aggregate.
func (a MonthlyAggregate) Key() MonthKey {
	return MonthKey{Neighborhood: a.Neighborhood, Year: a.Year, Month: a.Month}
}

// Before reports whether the aggregate falls strictly before year/month.
func (a MonthlyAggregate) Before(year, month int) bool {
	return a.Year < year || (a.Year == year && a.Month < month)
}

// Period formats a year/month pair the way every API payload does: "MM/YYYY".
func Period(year, month int) string {
	return fmt.Sprintf("%02d/%d", month, year)
}
