package risk

import (
	"slices"

	"github.com/recifedata/crimecast/internal/model"
)

// Risk index weights and level cut-offs.
const (
	SuspectsWeight = 0.5
	WeaponWeight   = 0.3
	HourWeight     = 0.2

	ClusterHighThreshold   = 0.66
	ClusterMediumThreshold = 0.33
)

// RiskIndex combines normalized cluster attributes into a severity score in
// [0, 1].
func RiskIndex(suspectsNorm, weaponFraction, hourNorm float64) float64 {
	idx := SuspectsWeight*suspectsNorm + WeaponWeight*weaponFraction + HourWeight*hourNorm
	return min(max(idx, 0), 1)
}

// ClusterLevel buckets a risk index.
func ClusterLevel(index float64) model.RiskLevel {
	switch {
	case index >= ClusterHighThreshold:
		return model.RiskHigh
	case index >= ClusterMediumThreshold:
		return model.RiskMedium
	default:
		return model.RiskLow
	}
}

// ComputeClusterStats derives the risk index of every cluster present in
// rows. Mean suspects and mean hour are min-max normalized across clusters;
// with a single cluster or no spread they normalize to 0. Unassigned rows
// are ignored. The result is ordered by cluster id.
func ComputeClusterStats(rows []model.ProfileRow) []model.ClusterStats {
	type acc struct {
		n                       int
		suspects, weapon, hours float64
	}
	byCluster := make(map[int]*acc)
	for _, r := range rows {
		if r.Cluster < 0 {
			continue
		}
		a, ok := byCluster[r.Cluster]
		if !ok {
			a = &acc{}
			byCluster[r.Cluster] = a
		}
		a.n++
		a.suspects += r.MeanSuspects
		a.weapon += r.WeaponFraction
		a.hours += r.MeanHour
	}
	if len(byCluster) == 0 {
		return []model.ClusterStats{}
	}

	ids := make([]int, 0, len(byCluster))
	for id := range byCluster {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	suspects := make([]float64, len(ids))
	weapon := make([]float64, len(ids))
	hours := make([]float64, len(ids))
	for i, id := range ids {
		a := byCluster[id]
		n := float64(a.n)
		suspects[i] = a.suspects / n
		weapon[i] = a.weapon / n
		hours[i] = a.hours / n
	}
	suspects = minMax(suspects)
	hours = minMax(hours)

	out := make([]model.ClusterStats, len(ids))
	for i, id := range ids {
		idx := RiskIndex(suspects[i], weapon[i], hours[i])
		out[i] = model.ClusterStats{Cluster: id, RiskIndex: idx, RiskLevel: ClusterLevel(idx)}
	}
	return out
}

func minMax(vals []float64) []float64 {
	lo, hi := slices.Min(vals), slices.Max(vals)
	out := make([]float64, len(vals))
	if hi <= lo {
		return out
	}
	for i, v := range vals {
		out[i] = (v - lo) / (hi - lo)
	}
	return out
}
