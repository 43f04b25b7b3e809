// Package export writes ranking and cluster reports as XLSX workbooks for
// the operations team.
package export

import (
	"math"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/recifedata/crimecast/internal/model"
	"github.com/recifedata/crimecast/internal/profile"
)

// Sheet names.
const (
	RankingSheet  = "Ranking"
	ClustersSheet = "Clusters"
)

var (
	rankingHeader = []string{"Position", "Neighborhood", "Total occurrences", "Cluster", "Risk level", "Mean suspects", "Weapon %", "Mean hour"}
	clusterHeader = []string{"Cluster", "Description", "Risk level", "Risk index", "Neighborhoods", "Total occurrences", "Critical neighborhood", "Members"}
)

// Report is the content of one workbook. Empty sections produce a sheet
// with only the header row.
type Report struct {
	Ranking  []profile.Ranked
	Clusters []model.ClusterSummary
}

// WriteXLSX saves r as a workbook at path.
func WriteXLSX(path string, r Report) error {
	f := xlsx.NewFile()

	sheet, err := f.AddSheet(RankingSheet)
	if err != nil {
		return eris.Wrap(err, "export: add ranking sheet")
	}
	addStrings(sheet.AddRow(), rankingHeader)
	for _, e := range r.Ranking {
		row := sheet.AddRow()
		row.AddCell().SetInt(e.Position)
		row.AddCell().SetString(e.Neighborhood)
		row.AddCell().SetInt(e.Occurrences())
		row.AddCell().SetInt(e.Cluster)
		row.AddCell().SetString(string(e.RiskLevel))
		row.AddCell().SetFloat(round(e.MeanSuspects, 2))
		row.AddCell().SetFloat(round(e.WeaponFraction*100, 1))
		row.AddCell().SetFloat(round(e.MeanHour, 1))
	}

	sheet, err = f.AddSheet(ClustersSheet)
	if err != nil {
		return eris.Wrap(err, "export: add clusters sheet")
	}
	addStrings(sheet.AddRow(), clusterHeader)
	for _, c := range r.Clusters {
		row := sheet.AddRow()
		row.AddCell().SetInt(c.Cluster)
		row.AddCell().SetString(c.Description)
		row.AddCell().SetString(string(c.RiskLevel))
		row.AddCell().SetFloat(round(c.RiskIndex, 3))
		row.AddCell().SetInt(len(c.Members))
		row.AddCell().SetInt(c.TotalOccurrences)
		row.AddCell().SetString(c.CriticalNeighborhood)
		row.AddCell().SetString(strings.Join(c.Members, ", "))
	}

	if err := f.Save(path); err != nil {
		return eris.Wrapf(err, "export: save %s", path)
	}
	return nil
}

func addStrings(row *xlsx.Row, values []string) {
	for _, v := range values {
		row.AddCell().SetString(v)
	}
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
