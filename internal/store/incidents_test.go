package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/recifedata/crimecast/internal/model"
)

func TestReadIncidents_PortugueseExport(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, "ocorrencias.csv", "Bairro;Tipo Crime;Data Ocorrência;Quantidade Vítimas;Quantidade Suspeitos;Arma Utilizada;Idade Suspeito;Hora\n"+
		"Boa Viagem;Tráfico de Drogas;2025-10-03 21:15:00;1;2;Arma de Fogo;22,5;21h\n"+
		"Ibura;Roubo;05/10/2025;;;;;\n"+
		"Recife;Tráfico;not a date;1;1;;;\n")

	recs, err := ReadIncidents(context.Background(), filepath.Join(dir, "ocorrencias.csv"))
	require.NoError(t, err)
	require.Len(t, recs, 2, "unparseable date is skipped")

	bv := recs[0]
	assert.Equal(t, "Boa Viagem", bv.Neighborhood)
	assert.Equal(t, "Tráfico de Drogas", bv.CrimeType)
	assert.Equal(t, time.Date(2025, 10, 3, 21, 15, 0, 0, time.UTC), bv.OccurredAt)
	require.NotNil(t, bv.Victims)
	assert.Equal(t, 1, *bv.Victims)
	require.NotNil(t, bv.Suspects)
	assert.Equal(t, 2, *bv.Suspects)
	require.NotNil(t, bv.SuspectAge)
	assert.InDelta(t, 22.5, *bv.SuspectAge, 1e-9)
	require.NotNil(t, bv.Hour)
	assert.Equal(t, 21, *bv.Hour)
	assert.True(t, bv.HasWeapon())

	ib := recs[1]
	assert.Equal(t, time.Date(2025, 10, 5, 0, 0, 0, 0, time.UTC), ib.OccurredAt)
	assert.Nil(t, ib.Victims)
	assert.Nil(t, ib.Hour)
}

func TestReadIncidents_YearMonthColumns(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, "processed.csv", "bairro,tipo_crime,ano,mes\nRecife,Tráfico,2024,3\nRecife,Tráfico,2024,13\n")

	recs, err := ReadIncidents(context.Background(), filepath.Join(dir, "processed.csv"))
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), recs[0].OccurredAt)
}

func TestReadIncidents_MissingColumns(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, "a.csv", "bairro,data\nRecife,2024-01-01\n")
	_, err := ReadIncidents(context.Background(), filepath.Join(dir, "a.csv"))
	var ve *model.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "tipo_crime", ve.Field)
	assert.Contains(t, ve.Allowed, "crime_type")

	writeFile(t, dir, "b.csv", "neighborhood,crime_type,year\n")
	_, err = ReadIncidents(context.Background(), filepath.Join(dir, "b.csv"))
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "data_ocorrencia", ve.Field)
}

func TestReadIncidents_FileErrors(t *testing.T) {
	t.Parallel()

	_, err := ReadIncidents(context.Background(), "incidents.json")
	assert.ErrorContains(t, err, "unsupported file type")

	_, err = ReadIncidents(context.Background(), filepath.Join(t.TempDir(), "missing.csv"))
	assert.Error(t, err)
}

func TestParseHelpers(t *testing.T) {
	t.Parallel()

	for in, want := range map[string]int{"7": 7, "07h": 7, "23:59": 23, "00:00:00": 0} {
		got := parseHour(in)
		require.NotNil(t, got, in)
		assert.Equal(t, want, *got, in)
	}
	assert.Nil(t, parseHour("24"))
	assert.Nil(t, parseHour("noite"))

	n := parseCount("2.6")
	require.NotNil(t, n)
	assert.Equal(t, 3, *n)
	assert.Nil(t, parseCount("-1"))
	assert.Nil(t, parseDecimal(""))
}
