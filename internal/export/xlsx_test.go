package export

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/recifedata/crimecast/internal/model"
	"github.com/recifedata/crimecast/internal/profile"
)

func intp(v int) *int { return &v }

func TestWriteXLSX(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "ranking.xlsx")
	report := Report{
		Ranking: []profile.Ranked{
			{Position: 1, NeighborhoodProfile: model.NeighborhoodProfile{
				Neighborhood: "Boa Viagem", Cluster: 3, RiskLevel: model.RiskHigh,
				MeanSuspects: 2.456, WeaponFraction: 0.3512, MeanHour: 20.44, TotalOccurrences: intp(42),
			}},
			{Position: 2, NeighborhoodProfile: model.NeighborhoodProfile{Neighborhood: "Ibura", RiskLevel: model.RiskLow}},
		},
		Clusters: []model.ClusterSummary{{
			Cluster: 3, Description: "organized", RiskLevel: model.RiskHigh, RiskIndex: 0.7123,
			Members: []string{"Afogados", "Boa Viagem"}, TotalOccurrences: 60, CriticalNeighborhood: "Boa Viagem",
		}},
	}
	require.NoError(t, WriteXLSX(path, report))

	f, err := xlsx.OpenFile(path)
	require.NoError(t, err)

	ranking := f.Sheet[RankingSheet]
	require.NotNil(t, ranking)
	require.Len(t, ranking.Rows, 3)
	assert.Equal(t, "Neighborhood", ranking.Rows[0].Cells[1].String())

	first := ranking.Rows[1].Cells
	assert.Equal(t, "Boa Viagem", first[1].String())
	total, err := first[2].Int()
	require.NoError(t, err)
	assert.Equal(t, 42, total)
	weapon, err := first[6].Float()
	require.NoError(t, err)
	assert.InDelta(t, 35.1, weapon, 1e-9)

	missing, err := ranking.Rows[2].Cells[2].Int()
	require.NoError(t, err)
	assert.Zero(t, missing, "unknown occurrences rank as zero")

	clusters := f.Sheet[ClustersSheet]
	require.NotNil(t, clusters)
	require.Len(t, clusters.Rows, 2)
	assert.Equal(t, "Afogados, Boa Viagem", clusters.Rows[1].Cells[7].String())
	idx, err := clusters.Rows[1].Cells[3].Float()
	require.NoError(t, err)
	assert.InDelta(t, 0.712, idx, 1e-9)
}

func TestWriteXLSX_EmptyReport(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "empty.xlsx")
	require.NoError(t, WriteXLSX(path, Report{}))

	f, err := xlsx.OpenFile(path)
	require.NoError(t, err)
	require.Len(t, f.Sheets, 2)
	assert.Len(t, f.Sheet[RankingSheet].Rows, 1)
}

func TestWriteXLSX_BadPath(t *testing.T) {
	t.Parallel()

	err := WriteXLSX(filepath.Join(t.TempDir(), "no", "such", "dir.xlsx"), Report{})
	assert.ErrorContains(t, err, "export: save")
}
