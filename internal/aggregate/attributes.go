package aggregate

import (
	"slices"
	"strings"

	"github.com/recifedata/crimecast/internal/model"
)

type attrAcc struct {
	count       int
	suspectsN   int
	suspectsSum float64
	victimsN    int
	victimsSum  float64
	weapons     int
	ageN        int
	ageSum      float64
	hourN       int
	hourSum     float64
}

// Attributes derives the clustering attributes of every neighborhood from
// the records Aggregate would count. Rows come back unassigned (cluster -1) and sorted
// by name; the cluster model fills the cluster in.
func Attributes(records []model.IncidentRecord, filter CrimeFilter) []model.ProfileRow {
	groups := make(map[string]*attrAcc)
	names := make(spellings)
	for _, r := range records {
		if !keep(r, filter) {
			continue
		}
		name := names.canonical(r.Neighborhood)
		acc, ok := groups[name]
		if !ok {
			acc = &attrAcc{}
			groups[name] = acc
		}
		acc.count++
		if r.Suspects != nil {
			acc.suspectsN++
			acc.suspectsSum += float64(*r.Suspects)
		}
		if r.Victims != nil {
			acc.victimsN++
			acc.victimsSum += float64(*r.Victims)
		}
		if r.HasWeapon() {
			acc.weapons++
		}
		if r.SuspectAge != nil {
			acc.ageN++
			acc.ageSum += *r.SuspectAge
		}
		hour := r.Hour
		if hour == nil {
			h := r.OccurredAt.Hour()
			hour = &h
		}
		if hour != nil {
			acc.hourN++
			acc.hourSum += float64(*hour)
		}
	}

	rows := make([]model.ProfileRow, 0, len(groups))
	for name, acc := range groups {
		rows = append(rows, model.ProfileRow{
			Neighborhood:   name,
			Cluster:        model.Unassigned,
			MeanSuspects:   meanOrOne(acc.suspectsSum, acc.suspectsN),
			MeanVictims:    meanOrOne(acc.victimsSum, acc.victimsN),
			WeaponFraction: float64(acc.weapons) / float64(acc.count),
			MeanSuspectAge: meanOrZero(acc.ageSum, acc.ageN),
			MeanHour:       meanOrZero(acc.hourSum, acc.hourN),
		})
	}
	slices.SortFunc(rows, func(a, b model.ProfileRow) int {
		return strings.Compare(a.Neighborhood, b.Neighborhood)
	})
	return rows
}

func meanOrZero(sum float64, n int) float64 {
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}
