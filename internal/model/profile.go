package model

// Unassigned marks a profile row whose cluster has not been computed yet.
const Unassigned = -1

// AttributeVector is the per-neighborhood input of the clustering model.
type AttributeVector struct {
	MeanSuspects   float64 `json:"mean_suspects" validate:"gte=0"`
	MeanVictims    float64 `json:"mean_victims" validate:"gte=0"`
	WeaponFraction float64 `json:"weapon_fraction" validate:"gte=0,lte=1"`
	MeanSuspectAge float64 `json:"mean_suspect_age" validate:"gte=0"`
	MeanHour       float64 `json:"mean_hour" validate:"gte=0,lt=24"`
}

// Values returns the attributes in the order clustering artifacts expect.
func (v AttributeVector) Values() []float64 {
	return []float64{v.MeanSuspects, v.MeanVictims, v.WeaponFraction, v.MeanSuspectAge, v.MeanHour}
}

// AttributeNames lists the names matching AttributeVector.Values.
var AttributeNames = []string{"mean_suspects", "mean_victims", "weapon_fraction", "mean_suspect_age", "mean_hour"}

// ProfileRow is one row of the precomputed cluster assignment table.
type ProfileRow struct {
	Neighborhood   string  `json:"neighborhood" csv:"neighborhood"`
	Cluster        int     `json:"cluster" csv:"cluster"`
	MeanSuspects   float64 `json:"mean_suspects" csv:"mean_suspects"`
	MeanVictims    float64 `json:"mean_victims" csv:"mean_victims"`
	WeaponFraction float64 `json:"weapon_fraction" csv:"weapon_fraction"`
	MeanSuspectAge float64 `json:"mean_suspect_age" csv:"mean_suspect_age"`
	MeanHour       float64 `json:"mean_hour" csv:"mean_hour"`
}

// Attributes returns the clustering attributes of the row.
func (r ProfileRow) Attributes() AttributeVector {
	return AttributeVector{
		MeanSuspects:   r.MeanSuspects,
		MeanVictims:    r.MeanVictims,
		WeaponFraction: r.WeaponFraction,
		MeanSuspectAge: r.MeanSuspectAge,
		MeanHour:       r.MeanHour,
	}
}

// NeighborhoodProfile is the served view of a neighborhood: its cluster,
// the cluster's risk level, its own attributes and its occurrence total.
// TotalOccurrences stays nil when the aggregate table has no rows for it.
type NeighborhoodProfile struct {
	Neighborhood     string    `json:"neighborhood"`
	Cluster          int       `json:"cluster"`
	RiskLevel        RiskLevel `json:"risk_level"`
	MeanSuspects     float64   `json:"mean_suspects"`
	MeanVictims      float64   `json:"mean_victims"`
	WeaponFraction   float64   `json:"weapon_fraction"`
	MeanSuspectAge   float64   `json:"mean_suspect_age"`
	MeanHour         float64   `json:"mean_hour"`
	TotalOccurrences *int      `json:"total_occurrences"`
}

// Occurrences returns the occurrence total, treating a missing join as zero.
func (p NeighborhoodProfile) Occurrences() int {
	if p.TotalOccurrences == nil {
		return 0
	}
	return *p.TotalOccurrences
}

// ClusterStats carries the severity of one cluster.
type ClusterStats struct {
	Cluster   int       `json:"cluster" csv:"cluster"`
	RiskIndex float64   `json:"risk_index" csv:"risk_index"`
	RiskLevel RiskLevel `json:"risk_level" csv:"-"`
}

// ClusterSummary aggregates the members of one cluster.
type ClusterSummary struct {
	Cluster              int       `json:"cluster_id"`
	Description          string    `json:"description"`
	RiskLevel            RiskLevel `json:"risk_level"`
	RiskIndex            float64   `json:"risk_index"`
	Members              []string  `json:"neighborhoods"`
	MeanSuspects         float64   `json:"mean_suspects"`
	MeanVictims          float64   `json:"mean_victims"`
	WeaponFraction       float64   `json:"weapon_fraction"`
	MeanSuspectAge       float64   `json:"mean_suspect_age"`
	MeanHour             float64   `json:"mean_hour"`
	TotalOccurrences     int       `json:"total_occurrences"`
	CriticalNeighborhood string    `json:"critical_neighborhood"`
}
