package profile

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/recifedata/crimecast/internal/aggregate"
	"github.com/recifedata/crimecast/internal/model"
)

// thresholdModel puts vectors with at least two mean suspects in cluster 1.
type thresholdModel struct{ descriptions map[int]string }

func (thresholdModel) Name() string { return "threshold" }

func (m thresholdModel) Assign(_ context.Context, v model.AttributeVector) (int, error) {
	if v.MeanSuspects >= 2 {
		return 1, nil
	}
	return 0, nil
}

func (m thresholdModel) Describe(c int) string { return m.descriptions[c] }

func rows() []model.ProfileRow {
	return []model.ProfileRow{
		{Neighborhood: "Recife", Cluster: 0, MeanSuspects: 1.0, MeanVictims: 1.0, WeaponFraction: 0.1, MeanSuspectAge: 24, MeanHour: 14},
		{Neighborhood: "Boa Viagem", Cluster: 1, MeanSuspects: 2.5, MeanVictims: 1.2, WeaponFraction: 0.6, MeanSuspectAge: 22, MeanHour: 21},
		{Neighborhood: "Afogados", Cluster: 1, MeanSuspects: 3.5, MeanVictims: 1.0, WeaponFraction: 0.4, MeanSuspectAge: 26, MeanHour: 23},
		{Neighborhood: "Ibura", Cluster: 0, MeanSuspects: 1.2, MeanVictims: 1.0, WeaponFraction: 0.0, MeanSuspectAge: 30, MeanHour: 10},
	}
}

func stats() []model.ClusterStats {
	return []model.ClusterStats{{Cluster: 0, RiskIndex: 0.2}, {Cluster: 1, RiskIndex: 0.7}}
}

func table(t *testing.T) *aggregate.Table {
	t.Helper()
	a := func(name string, m, c int) model.MonthlyAggregate {
		return model.MonthlyAggregate{Neighborhood: name, Year: 2024, Month: m, Count: c, MeanVictims: 1, MeanSuspects: 1}
	}
	tbl, err := aggregate.NewTable([]model.MonthlyAggregate{
		a("Recife", 1, 10), a("Recife", 2, 5),
		a("Boa Viagem", 1, 20),
		a("Afogados", 1, 20),
	})
	require.NoError(t, err)
	return tbl
}

func newService(t *testing.T) *Service {
	t.Helper()
	s, err := NewService(context.Background(), rows(), stats(), table(t), nil)
	require.NoError(t, err)
	return s
}

func TestProfile_CaseInsensitive(t *testing.T) {
	t.Parallel()

	s := newService(t)
	a, err := s.Profile("Boa Viagem")
	require.NoError(t, err)
	b, err := s.Profile("boa viagem")
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Equal(t, model.RiskHigh, a.RiskLevel)
	require.NotNil(t, a.TotalOccurrences)
	assert.Equal(t, 20, *a.TotalOccurrences)
}

func TestProfile_Unknown(t *testing.T) {
	t.Parallel()

	_, err := newService(t).Profile("Atlantis")
	var ue *model.UnknownEntityError
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, []string{"Afogados", "Boa Viagem", "Ibura", "Recife"}, ue.Roster)
}

func TestProfile_MissingOccurrencesStayNil(t *testing.T) {
	t.Parallel()

	p, err := newService(t).Profile("Ibura")
	require.NoError(t, err)
	assert.Nil(t, p.TotalOccurrences)
	assert.Zero(t, p.Occurrences())
}

func TestRankAndRanking(t *testing.T) {
	t.Parallel()

	s := newService(t)
	for name, want := range map[string]int{"Afogados": 1, "boa viagem": 2, "Recife": 3, "Ibura": 4} {
		got, err := s.Rank(name)
		require.NoError(t, err)
		assert.Equal(t, want, got, name)
	}
	_, err := s.Rank("Atlantis")
	assert.Equal(t, model.KindUnknownEntity, model.KindOf(err))

	top := s.Ranking(2)
	require.Len(t, top, 2)
	assert.Equal(t, "Afogados", top[0].Neighborhood)
	assert.Equal(t, 2, top[1].Position)
	assert.Equal(t, 1, top[1].Cluster)
	assert.Empty(t, s.Ranking(0))
	assert.Len(t, s.Ranking(99), 4)
}

func TestClusterSummary_ReproducesMemberMeans(t *testing.T) {
	t.Parallel()

	s := newService(t)
	for _, id := range []int{0, 1} {
		sum, err := s.ClusterSummary(id)
		require.NoError(t, err)

		var n, suspects, victims, weapon, age, hour float64
		for _, r := range rows() {
			if r.Cluster != id {
				continue
			}
			n++
			suspects += r.MeanSuspects
			victims += r.MeanVictims
			weapon += r.WeaponFraction
			age += r.MeanSuspectAge
			hour += r.MeanHour
		}
		assert.InDelta(t, suspects/n, sum.MeanSuspects, 1e-9)
		assert.InDelta(t, victims/n, sum.MeanVictims, 1e-9)
		assert.InDelta(t, weapon/n, sum.WeaponFraction, 1e-9)
		assert.InDelta(t, age/n, sum.MeanSuspectAge, 1e-9)
		assert.InDelta(t, hour/n, sum.MeanHour, 1e-9)
		assert.Len(t, sum.Members, int(n))
	}
}

func TestClusterSummary_Critical(t *testing.T) {
	t.Parallel()

	s := newService(t)
	sum, err := s.ClusterSummary(1)
	require.NoError(t, err)
	assert.Equal(t, "Afogados", sum.CriticalNeighborhood, "tie at 20 resolves alphabetically")
	assert.Equal(t, 40, sum.TotalOccurrences)
	assert.Equal(t, []string{"Afogados", "Boa Viagem"}, sum.Members)
	assert.Equal(t, DefaultDescriptions[1], sum.Description)

	sum, err = s.ClusterSummary(0)
	require.NoError(t, err)
	assert.Equal(t, "Recife", sum.CriticalNeighborhood)
	assert.Equal(t, model.RiskLow, sum.RiskLevel)

	_, err = s.ClusterSummary(7)
	var ue *model.UnknownEntityError
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, []string{"0", "1"}, ue.Roster)
}

func TestClusters_And_ListAll(t *testing.T) {
	t.Parallel()

	s := newService(t)
	cs := s.Clusters()
	require.Len(t, cs, 2)
	assert.Equal(t, 0, cs[0].Cluster)
	assert.Equal(t, 1, cs[1].Cluster)

	all := s.ListAll()
	require.Len(t, all, 4)
	assert.Equal(t, "Afogados", all[0].Neighborhood)
	assert.Equal(t, "Recife", all[3].Neighborhood)
}

func TestLookup(t *testing.T) {
	t.Parallel()

	l, err := newService(t).Lookup("BOA VIAGEM")
	require.NoError(t, err)
	assert.Equal(t, "Boa Viagem", l.Profile.Neighborhood)
	assert.Equal(t, 2, l.Rank)
	assert.Equal(t, 1, l.Cluster.Cluster)
	assert.Equal(t, DefaultDescriptions[1], l.Description)
	assert.Contains(t, l.Recommendation, "MAXIMUM ALERT")

	_, err = newService(t).Lookup("nowhere")
	assert.Equal(t, model.KindUnknownEntity, model.KindOf(err))
}

func TestNewService_AssignsWithModel(t *testing.T) {
	t.Parallel()

	in := rows()
	in[0].Cluster = model.Unassigned
	in[1].Cluster = model.Unassigned
	cm := thresholdModel{descriptions: map[int]string{1: "Organized"}}

	s, err := NewService(context.Background(), in, nil, table(t), cm)
	require.NoError(t, err)

	p, err := s.Profile("Boa Viagem")
	require.NoError(t, err)
	assert.Equal(t, 1, p.Cluster)
	p, err = s.Profile("Recife")
	require.NoError(t, err)
	assert.Equal(t, 0, p.Cluster)

	sum, err := s.ClusterSummary(1)
	require.NoError(t, err)
	assert.Equal(t, "Organized", sum.Description)
	assert.Equal(t, DefaultDescriptions[0], s.Clusters()[0].Description)
}

func TestNewService_UnassignedWithoutModel(t *testing.T) {
	t.Parallel()

	in := rows()
	in[2].Cluster = model.Unassigned
	_, err := NewService(context.Background(), in, stats(), nil, nil)
	assert.Equal(t, model.KindResourceUnavailable, model.KindOf(err))
}

func TestNewService_Rejects(t *testing.T) {
	t.Parallel()

	dup := append(rows(), model.ProfileRow{Neighborhood: "RECIFE", Cluster: 0})
	_, err := NewService(context.Background(), dup, stats(), nil, nil)
	assert.Equal(t, model.KindValidation, model.KindOf(err))

	_, err = NewService(context.Background(), rows(), []model.ClusterStats{{Cluster: 0}}, nil, nil)
	assert.Equal(t, model.KindValidation, model.KindOf(err))
}

func TestAssign(t *testing.T) {
	t.Parallel()

	_, err := newService(t).Assign(context.Background(), model.AttributeVector{MeanSuspects: 3})
	assert.Equal(t, model.KindResourceUnavailable, model.KindOf(err))

	s, err := NewService(context.Background(), rows(), stats(), table(t), thresholdModel{})
	require.NoError(t, err)
	a, err := s.Assign(context.Background(), model.AttributeVector{MeanSuspects: 3})
	require.NoError(t, err)
	assert.Equal(t, 1, a.Cluster)
	assert.Equal(t, model.RiskHigh, a.RiskLevel)
	require.NotNil(t, a.Summary)
	assert.Equal(t, []string{"Afogados", "Boa Viagem"}, a.Summary.Members)
}
