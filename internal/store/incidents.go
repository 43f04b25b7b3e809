package store

import (
	"context"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/recifedata/crimecast/internal/fetcher"
	"github.com/recifedata/crimecast/internal/model"
)

type column int

const (
	colNeighborhood column = iota
	colOccurredAt
	colYear
	colMonth
	colCrimeType
	colVictims
	colSuspects
	colWeapon
	colSuspectAge
	colHour
	numColumns
)

// headerAliases maps each column to the header spellings seen in the
// precinct exports and in the processed datasets. Headers are matched after
// case folding with spaces turned into underscores.
var headerAliases = [numColumns][]string{
	colNeighborhood: {"bairro", "neighborhood", "nome_bairro"},
	colOccurredAt:   {"data_ocorrencia", "data_ocorrência", "data", "data_hora", "occurred_at", "date"},
	colYear:         {"ano", "year"},
	colMonth:        {"mes", "mês", "month"},
	colCrimeType:    {"tipo_crime", "natureza", "crime_type"},
	colVictims:      {"quantidade_vitimas", "quantidade_vítimas", "vitimas", "vítimas", "victims"},
	colSuspects:     {"quantidade_suspeitos", "suspeitos", "suspects"},
	colWeapon:       {"arma_utilizada", "arma", "weapon"},
	colSuspectAge:   {"idade_suspeito", "idade", "suspect_age"},
	colHour:         {"hora", "hora_ocorrencia", "hour"},
}

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"02/01/2006 15:04:05",
	"02/01/2006 15:04",
	"02/01/2006",
}

// ReadIncidents loads raw incident records from a CSV or XLSX export. Rows
// whose date cannot be parsed are skipped and counted in the log.
func ReadIncidents(ctx context.Context, path string) ([]model.IncidentRecord, error) {
	headerCh := make(chan []string, 1)
	rowCh, errCh, err := fetcher.StreamFile(ctx, path, headerCh)
	if err != nil {
		return nil, err
	}

	var (
		idx     [numColumns]int
		out     []model.IncidentRecord
		skipped int
		line    = 1
		mapped  bool
	)
	for row := range rowCh {
		line++
		if !mapped {
			if idx, err = mapHeader(<-headerCh); err != nil {
				for range rowCh { //nolint:revive // drain
				}
				return nil, err
			}
			mapped = true
		}

		rec, ok := parseIncident(row, idx)
		if !ok {
			skipped++
			zap.L().Debug("skipping incident row", zap.String("path", path), zap.Int("line", line))
			continue
		}
		out = append(out, rec)
	}
	if err := <-errCh; err != nil {
		return nil, eris.Wrapf(err, "store: read incidents %s", path)
	}
	if !mapped {
		select {
		case header := <-headerCh:
			if _, err := mapHeader(header); err != nil {
				return nil, err
			}
		default:
		}
	}

	if skipped > 0 {
		zap.L().Warn("incident rows skipped", zap.String("path", path), zap.Int("skipped", skipped))
	}
	zap.L().Info("incidents loaded", zap.String("path", path), zap.Int("records", len(out)))
	return out, nil
}

func normalizeHeader(h string) string {
	return strings.ReplaceAll(model.FoldName(h), " ", "_")
}

func mapHeader(header []string) ([numColumns]int, error) {
	var idx [numColumns]int
	for c := range idx {
		idx[c] = -1
	}
	for i, h := range header {
		h = normalizeHeader(h)
		for c, aliases := range headerAliases {
			if idx[c] < 0 && containsFolded(aliases, h) {
				idx[c] = i
			}
		}
	}

	for _, c := range []column{colNeighborhood, colCrimeType} {
		if idx[c] < 0 {
			return idx, missingColumn(c)
		}
	}
	if idx[colOccurredAt] < 0 && (idx[colYear] < 0 || idx[colMonth] < 0) {
		return idx, missingColumn(colOccurredAt)
	}
	return idx, nil
}

func containsFolded(aliases []string, h string) bool {
	for _, a := range aliases {
		if model.FoldName(a) == h {
			return true
		}
	}
	return false
}

func missingColumn(c column) *model.ValidationError {
	v := model.NewMissingField(headerAliases[c][0])
	v.Message = "incident export has no " + headerAliases[c][0] + " column"
	v.Allowed = headerAliases[c]
	return v
}

func parseIncident(row []string, idx [numColumns]int) (model.IncidentRecord, bool) {
	get := func(c column) string {
		if i := idx[c]; i >= 0 && i < len(row) {
			return strings.TrimSpace(row[i])
		}
		return ""
	}

	rec := model.IncidentRecord{
		Neighborhood: get(colNeighborhood),
		CrimeType:    get(colCrimeType),
		Weapon:       get(colWeapon),
		Victims:      parseCount(get(colVictims)),
		Suspects:     parseCount(get(colSuspects)),
		SuspectAge:   parseDecimal(get(colSuspectAge)),
		Hour:         parseHour(get(colHour)),
	}

	if raw := get(colOccurredAt); raw != "" {
		t, ok := parseDate(raw)
		if !ok {
			return rec, false
		}
		rec.OccurredAt = t
	} else {
		year, yerr := strconv.Atoi(get(colYear))
		month, merr := strconv.Atoi(get(colMonth))
		if yerr != nil || merr != nil || month < 1 || month > 12 {
			return rec, false
		}
		rec.OccurredAt = time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	}
	return rec, true
}

func parseDate(s string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// parseDecimal accepts both "1.5" and the pt-BR "1,5".
func parseDecimal(s string) *float64 {
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(strings.Replace(s, ",", ".", 1), 64)
	if err != nil || math.IsNaN(v) || v < 0 {
		return nil
	}
	return &v
}

func parseCount(s string) *int {
	v := parseDecimal(s)
	if v == nil {
		return nil
	}
	n := int(math.Round(*v))
	return &n
}

// parseHour reads "14", "14h", "14:30" or "14:30:00".
func parseHour(s string) *int {
	if s == "" {
		return nil
	}
	s, _, _ = strings.Cut(strings.TrimSuffix(strings.ToLower(s), "h"), ":")
	h, err := strconv.Atoi(s)
	if err != nil || h < 0 || h > 23 {
		return nil
	}
	return &h
}
