package api

import (
	"math"

	"github.com/recifedata/crimecast/internal/model"
	"github.com/recifedata/crimecast/internal/profile"
)

// Views round the means for display and expose the weapon fraction as a
// percentage with one decimal.

type profileView struct {
	Neighborhood     string          `json:"neighborhood"`
	Cluster          int             `json:"cluster"`
	RiskLevel        model.RiskLevel `json:"risk_level"`
	MeanSuspects     float64         `json:"mean_suspects"`
	MeanVictims      float64         `json:"mean_victims"`
	WeaponPercent    float64         `json:"weapon_percent"`
	MeanSuspectAge   float64         `json:"mean_suspect_age"`
	MeanHour         float64         `json:"mean_hour"`
	TotalOccurrences *int            `json:"total_occurrences"`
}

func newProfileView(p model.NeighborhoodProfile) profileView {
	return profileView{
		Neighborhood:     p.Neighborhood,
		Cluster:          p.Cluster,
		RiskLevel:        p.RiskLevel,
		MeanSuspects:     round(p.MeanSuspects, 2),
		MeanVictims:      round(p.MeanVictims, 2),
		WeaponPercent:    percent(p.WeaponFraction),
		MeanSuspectAge:   round(p.MeanSuspectAge, 1),
		MeanHour:         round(p.MeanHour, 1),
		TotalOccurrences: p.TotalOccurrences,
	}
}

type clusterStatsView struct {
	MeanSuspects     float64 `json:"mean_suspects"`
	MeanVictims      float64 `json:"mean_victims"`
	WeaponPercent    float64 `json:"weapon_percent"`
	MeanSuspectAge   float64 `json:"mean_suspect_age"`
	MeanHour         float64 `json:"mean_hour"`
	TotalOccurrences int     `json:"total_occurrences"`
}

type clusterView struct {
	Cluster              int              `json:"cluster_id"`
	Description          string           `json:"description"`
	RiskLevel            model.RiskLevel  `json:"risk_level"`
	RiskIndex            float64          `json:"risk_index"`
	TotalNeighborhoods   int              `json:"total_neighborhoods"`
	Neighborhoods        []string         `json:"neighborhoods"`
	Stats                clusterStatsView `json:"stats"`
	CriticalNeighborhood string           `json:"critical_neighborhood"`
}

func newClusterView(c model.ClusterSummary) clusterView {
	members := c.Members
	if members == nil {
		members = []string{}
	}
	return clusterView{
		Cluster:            c.Cluster,
		Description:        c.Description,
		RiskLevel:          c.RiskLevel,
		RiskIndex:          round(c.RiskIndex, 3),
		TotalNeighborhoods: len(members),
		Neighborhoods:      members,
		Stats: clusterStatsView{
			MeanSuspects:     round(c.MeanSuspects, 2),
			MeanVictims:      round(c.MeanVictims, 2),
			WeaponPercent:    percent(c.WeaponFraction),
			MeanSuspectAge:   round(c.MeanSuspectAge, 1),
			MeanHour:         round(c.MeanHour, 1),
			TotalOccurrences: c.TotalOccurrences,
		},
		CriticalNeighborhood: c.CriticalNeighborhood,
	}
}

type rankingView struct {
	Position         int             `json:"position"`
	Neighborhood     string          `json:"neighborhood"`
	TotalOccurrences int             `json:"total_occurrences"`
	Cluster          int             `json:"cluster"`
	RiskLevel        model.RiskLevel `json:"risk_level"`
	MeanSuspects     float64         `json:"mean_suspects"`
	WeaponPercent    float64         `json:"weapon_percent"`
	MeanHour         float64         `json:"mean_hour"`
}

func newRankingView(r profile.Ranked) rankingView {
	return rankingView{
		Position:         r.Position,
		Neighborhood:     r.Neighborhood,
		TotalOccurrences: r.Occurrences(),
		Cluster:          r.Cluster,
		RiskLevel:        r.RiskLevel,
		MeanSuspects:     round(r.MeanSuspects, 2),
		WeaponPercent:    percent(r.WeaponFraction),
		MeanHour:         round(r.MeanHour, 1),
	}
}

type lookupView struct {
	profileView
	ClusterDescription string      `json:"cluster_description"`
	RankingPosition    int         `json:"ranking_position"`
	ClusterInfo        clusterView `json:"cluster_info"`
	Recommendation     string      `json:"recommendation"`
}

func newLookupView(l *profile.Lookup) lookupView {
	return lookupView{
		profileView:        newProfileView(l.Profile),
		ClusterDescription: l.Description,
		RankingPosition:    l.Rank,
		ClusterInfo:        newClusterView(l.Cluster),
		Recommendation:     l.Recommendation,
	}
}

type assignmentView struct {
	Cluster        int             `json:"cluster_id"`
	Description    string          `json:"description"`
	RiskLevel      model.RiskLevel `json:"risk_level,omitempty"`
	Recommendation string          `json:"recommendation,omitempty"`
	Summary        *clusterView    `json:"summary,omitempty"`
}

func newAssignmentView(a *profile.Assignment) assignmentView {
	v := assignmentView{
		Cluster:        a.Cluster,
		Description:    a.Description,
		RiskLevel:      a.RiskLevel,
		Recommendation: a.Recommendation,
	}
	if a.Summary != nil {
		cv := newClusterView(*a.Summary)
		v.Summary = &cv
	}
	return v
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

func percent(fraction float64) float64 {
	return round(fraction*100, 1)
}
