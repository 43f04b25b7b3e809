// Package profile serves per-neighborhood cluster profiles, cluster
// summaries and the occurrence ranking.
package profile

import (
	"context"
	"fmt"
	"slices"
	"strconv"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/recifedata/crimecast/internal/aggregate"
	"github.com/recifedata/crimecast/internal/estimator"
	"github.com/recifedata/crimecast/internal/model"
	"github.com/recifedata/crimecast/internal/ranking"
	"github.com/recifedata/crimecast/internal/risk"
)

// DefaultDescriptions label the clusters of the reference four-cluster
// model. A cluster model that implements estimator.Describer overrides
// them.
var DefaultDescriptions = map[int]string{
	0: "Medium-risk profile: moderate suspects per occurrence, mostly at night",
	1: "Low-risk profile: fewest suspects per occurrence",
	2: "Low-risk profile: few suspects involved",
	3: "Medium-risk profile: most suspects per occurrence",
}

// NoDescription is reported for clusters without a description.
const NoDescription = "No description defined"

// Service answers profile queries from tables built once in NewService.
type Service struct {
	profiles  []model.NeighborhoodProfile
	byName    map[string]int
	stats     map[int]model.ClusterStats
	ids       []int
	summaries map[int]model.ClusterSummary
	ranking   *ranking.Ranking
	cm        estimator.ClusterModel
}

// Lookup is the full answer for one neighborhood.
type Lookup struct {
	Profile        model.NeighborhoodProfile `json:"profile"`
	Description    string                    `json:"cluster_description"`
	Rank           int                       `json:"rank"`
	Cluster        model.ClusterSummary      `json:"cluster"`
	Recommendation string                    `json:"recommendation"`
}

// Ranked is one row of the profile ranking.
type Ranked struct {
	Position int `json:"position"`
	model.NeighborhoodProfile
}

// Assignment is the cluster chosen for an ad-hoc attribute vector.
type Assignment struct {
	Cluster        int                   `json:"cluster"`
	Description    string                `json:"description"`
	RiskLevel      model.RiskLevel       `json:"risk_level,omitempty"`
	Recommendation string                `json:"recommendation,omitempty"`
	Summary        *model.ClusterSummary `json:"summary,omitempty"`
}

// NewService builds the profile tables. Rows left unassigned are assigned
// with cm; without cm they make the service unavailable. When stats is
// empty it is derived from the rows. table may be nil, in which case no
// neighborhood has an occurrence total.
func NewService(ctx context.Context, rows []model.ProfileRow, stats []model.ClusterStats, table *aggregate.Table, cm estimator.ClusterModel) (*Service, error) {
	rows = slices.Clone(rows)
	for i := range rows {
		if rows[i].Cluster >= 0 {
			continue
		}
		if cm == nil {
			return nil, &model.ResourceUnavailableError{
				Resource: "cluster model",
				Err:      eris.Errorf("profile: %q has no cluster and no cluster model is configured", rows[i].Neighborhood),
			}
		}
		id, err := cm.Assign(ctx, rows[i].Attributes())
		if err != nil {
			return nil, eris.Wrapf(err, "profile: assign %s", rows[i].Neighborhood)
		}
		rows[i].Cluster = id
	}
	slices.SortFunc(rows, func(a, b model.ProfileRow) int { return model.CompareNames(a.Neighborhood, b.Neighborhood) })

	if len(stats) == 0 {
		stats = risk.ComputeClusterStats(rows)
		zap.L().Debug("derived cluster stats", zap.Int("clusters", len(stats)))
	}
	s := &Service{
		byName:    make(map[string]int, len(rows)),
		stats:     make(map[int]model.ClusterStats, len(stats)),
		summaries: make(map[int]model.ClusterSummary),
		cm:        cm,
	}
	for _, st := range stats {
		if st.RiskLevel == "" {
			st.RiskLevel = risk.ClusterLevel(st.RiskIndex)
		}
		s.stats[st.Cluster] = st
	}

	var totals map[string]int
	if table != nil {
		totals = table.TotalOccurrences()
	}
	for _, r := range rows {
		f := model.FoldName(r.Neighborhood)
		if _, dup := s.byName[f]; dup {
			return nil, eris.Wrap(&model.ValidationError{
				Field:   "neighborhood_clusters",
				Reason:  model.ReasonInvalid,
				Message: fmt.Sprintf("neighborhood %q appears more than once", r.Neighborhood),
			}, "profile: new service")
		}
		st, ok := s.stats[r.Cluster]
		if !ok {
			return nil, eris.Wrap(&model.ValidationError{
				Field:   "cluster_stats",
				Reason:  model.ReasonInvalid,
				Message: fmt.Sprintf("no stats for cluster %d of %q", r.Cluster, r.Neighborhood),
			}, "profile: new service")
		}
		p := model.NeighborhoodProfile{
			Neighborhood:   r.Neighborhood,
			Cluster:        r.Cluster,
			RiskLevel:      st.RiskLevel,
			MeanSuspects:   r.MeanSuspects,
			MeanVictims:    r.MeanVictims,
			WeaponFraction: r.WeaponFraction,
			MeanSuspectAge: r.MeanSuspectAge,
			MeanHour:       r.MeanHour,
		}
		if table != nil {
			if name, ok := table.Resolve(r.Neighborhood); ok {
				n := totals[name]
				p.TotalOccurrences = &n
			}
		}
		s.byName[f] = len(s.profiles)
		s.profiles = append(s.profiles, p)
	}

	occ := make(map[string]int, len(s.profiles))
	for _, p := range s.profiles {
		occ[p.Neighborhood] = p.Occurrences()
	}
	s.ranking = ranking.New(occ)
	s.buildSummaries()
	return s, nil
}

func (s *Service) buildSummaries() {
	members := make(map[int][]model.NeighborhoodProfile)
	for _, p := range s.profiles {
		members[p.Cluster] = append(members[p.Cluster], p)
	}
	for id, ms := range members {
		s.ids = append(s.ids, id)
		st := s.stats[id]
		sum := model.ClusterSummary{
			Cluster:     id,
			Description: s.describe(id),
			RiskLevel:   st.RiskLevel,
			RiskIndex:   st.RiskIndex,
			Members:     make([]string, 0, len(ms)),
		}
		best := -1
		for _, p := range ms {
			sum.Members = append(sum.Members, p.Neighborhood)
			sum.MeanSuspects += p.MeanSuspects
			sum.MeanVictims += p.MeanVictims
			sum.WeaponFraction += p.WeaponFraction
			sum.MeanSuspectAge += p.MeanSuspectAge
			sum.MeanHour += p.MeanHour
			sum.TotalOccurrences += p.Occurrences()
			// members are in name order, so the first maximum wins ties
			if p.Occurrences() > best {
				best = p.Occurrences()
				sum.CriticalNeighborhood = p.Neighborhood
			}
		}
		n := float64(len(ms))
		sum.MeanSuspects /= n
		sum.MeanVictims /= n
		sum.WeaponFraction /= n
		sum.MeanSuspectAge /= n
		sum.MeanHour /= n
		s.summaries[id] = sum
	}
	slices.Sort(s.ids)
}

func (s *Service) describe(id int) string {
	if d, ok := s.cm.(estimator.Describer); ok {
		if text := d.Describe(id); text != "" {
			return text
		}
	}
	if text, ok := DefaultDescriptions[id]; ok {
		return text
	}
	return NoDescription
}

// Len returns the number of profiled neighborhoods.
func (s *Service) Len() int { return len(s.profiles) }

// Names returns the profiled neighborhoods in alphabetical order.
func (s *Service) Names() []string {
	names := make([]string, len(s.profiles))
	for i, p := range s.profiles {
		names[i] = p.Neighborhood
	}
	return names
}

// Profile looks a neighborhood up case-insensitively.
func (s *Service) Profile(name string) (model.NeighborhoodProfile, error) {
	i, ok := s.byName[model.FoldName(name)]
	if !ok {
		return model.NeighborhoodProfile{}, model.NewUnknownNeighborhood(name, s.Names())
	}
	return s.profiles[i], nil
}

// Rank returns the 1-based occurrence rank of a neighborhood.
func (s *Service) Rank(name string) (int, error) {
	if _, err := s.Profile(name); err != nil {
		return 0, err
	}
	return s.ranking.Position(name)
}

// ClusterSummary aggregates the members of one cluster.
func (s *Service) ClusterSummary(id int) (model.ClusterSummary, error) {
	sum, ok := s.summaries[id]
	if !ok {
		roster := make([]string, len(s.ids))
		for i, c := range s.ids {
			roster[i] = strconv.Itoa(c)
		}
		return model.ClusterSummary{}, &model.UnknownEntityError{Entity: "cluster", Name: strconv.Itoa(id), Roster: roster}
	}
	sum.Members = slices.Clone(sum.Members)
	return sum, nil
}

// Clusters returns every cluster summary ordered by id.
func (s *Service) Clusters() []model.ClusterSummary {
	out := make([]model.ClusterSummary, 0, len(s.ids))
	for _, id := range s.ids {
		sum, _ := s.ClusterSummary(id)
		out = append(out, sum)
	}
	return out
}

// ListAll returns every profile ordered by name.
func (s *Service) ListAll() []model.NeighborhoodProfile {
	return slices.Clone(s.profiles)
}

// Ranking returns the top limit profiles by occurrences.
func (s *Service) Ranking(limit int) []Ranked {
	top := s.ranking.TopN(limit)
	out := make([]Ranked, len(top))
	for i, e := range top {
		out[i] = Ranked{Position: e.Position, NeighborhoodProfile: s.profiles[s.byName[model.FoldName(e.Neighborhood)]]}
	}
	return out
}

// Lookup gathers everything known about a neighborhood.
func (s *Service) Lookup(name string) (*Lookup, error) {
	p, err := s.Profile(name)
	if err != nil {
		return nil, err
	}
	rank, err := s.ranking.Position(p.Neighborhood)
	if err != nil {
		return nil, err
	}
	sum, err := s.ClusterSummary(p.Cluster)
	if err != nil {
		return nil, err
	}
	return &Lookup{
		Profile:        p,
		Description:    sum.Description,
		Rank:           rank,
		Cluster:        sum,
		Recommendation: risk.ClusterRecommendation(p.RiskLevel, p.MeanSuspects),
	}, nil
}

// Assign classifies an attribute vector that is not in the table.
func (s *Service) Assign(ctx context.Context, v model.AttributeVector) (*Assignment, error) {
	if s.cm == nil {
		return nil, &model.ResourceUnavailableError{Resource: "cluster model", Err: eris.New("profile: no cluster model configured")}
	}
	id, err := s.cm.Assign(ctx, v)
	if err != nil {
		return nil, eris.Wrap(err, "profile: assign")
	}
	a := &Assignment{Cluster: id, Description: s.describe(id)}
	if st, ok := s.stats[id]; ok {
		a.RiskLevel = st.RiskLevel
		a.Recommendation = risk.ClusterRecommendation(st.RiskLevel, v.MeanSuspects)
	}
	if sum, err := s.ClusterSummary(id); err == nil {
		a.Summary = &sum
	}
	return a, nil
}
