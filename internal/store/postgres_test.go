package store

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/recifedata/crimecast/internal/model"
)

// newMockPostgresSource creates a PostgresSource backed by pgxmock for unit testing.
func newMockPostgresSource(t *testing.T) (*PostgresSource, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	return &PostgresSource{pool: mock}, mock
}

func TestPostgresSource_LoadAggregates(t *testing.T) {
	s, mock := newMockPostgresSource(t)

	mock.ExpectQuery(`SELECT neighborhood, year, month, count, mean_victims, mean_suspects\s+FROM crimecast.monthly_aggregates`).
		WillReturnRows(pgxmock.NewRows(aggregateColumns).
			AddRow("Boa Viagem", 2025, 10, 4, 1.0, 2.0).
			AddRow("Ibura", 2025, 10, 2, 1.0, 1.0))

	aggs, err := s.LoadAggregates(context.Background())
	require.NoError(t, err)
	require.Len(t, aggs, 2)
	assert.Equal(t, model.MonthlyAggregate{Neighborhood: "Boa Viagem", Year: 2025, Month: 10, Count: 4, MeanVictims: 1, MeanSuspects: 2}, aggs[0])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSource_LoadProfileRows(t *testing.T) {
	s, mock := newMockPostgresSource(t)

	mock.ExpectQuery(`FROM crimecast.neighborhood_clusters ORDER BY neighborhood`).
		WillReturnRows(pgxmock.NewRows(profileColumns).
			AddRow("Recife", 0, 1.2, 1.0, 0.25, 26.0, 14.5))

	rows, err := s.LoadProfileRows(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Recife", rows[0].Neighborhood)
	assert.InDelta(t, 0.25, rows[0].WeaponFraction, 1e-9)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSource_LoadClusterStats(t *testing.T) {
	s, mock := newMockPostgresSource(t)

	mock.ExpectQuery(`SELECT cluster, risk_index FROM crimecast.cluster_stats`).
		WillReturnRows(pgxmock.NewRows(statsColumns))

	stats, err := s.LoadClusterStats(context.Background())
	require.NoError(t, err)
	assert.Nil(t, stats)

	mock.ExpectQuery(`SELECT cluster, risk_index FROM crimecast.cluster_stats`).
		WillReturnError(errors.New("relation does not exist"))
	_, err = s.LoadClusterStats(context.Background())
	assert.ErrorContains(t, err, "postgres: query cluster stats")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSource_Import(t *testing.T) {
	s, mock := newMockPostgresSource(t)
	in := sampleTables()

	mock.ExpectBegin()
	mock.ExpectExec(`CREATE TEMP TABLE "_stage_crimecast_monthly_aggregates"`).WillReturnResult(pgxmock.NewResult("CREATE TABLE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"_stage_crimecast_monthly_aggregates"}, aggregateColumns).WillReturnResult(3)
	mock.ExpectExec(`INSERT INTO "crimecast"."monthly_aggregates" .* ON CONFLICT \("neighborhood", "year", "month"\)`).
		WillReturnResult(pgxmock.NewResult("INSERT", 3))
	mock.ExpectCommit()

	mock.ExpectBegin()
	mock.ExpectExec(`CREATE TEMP TABLE "_stage_crimecast_neighborhood_clusters"`).WillReturnResult(pgxmock.NewResult("CREATE TABLE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"_stage_crimecast_neighborhood_clusters"}, profileColumns).WillReturnResult(2)
	mock.ExpectExec(`INSERT INTO "crimecast"."neighborhood_clusters" .* ON CONFLICT \("neighborhood"\)`).
		WillReturnResult(pgxmock.NewResult("INSERT", 2))
	mock.ExpectCommit()

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM "crimecast"."cluster_stats"`).WillReturnResult(pgxmock.NewResult("DELETE", 4))
	mock.ExpectCopyFrom(pgx.Identifier{"crimecast", "cluster_stats"}, statsColumns).WillReturnResult(2)
	mock.ExpectCommit()

	require.NoError(t, s.Import(context.Background(), in))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSource_ImportFailure(t *testing.T) {
	s, mock := newMockPostgresSource(t)

	mock.ExpectBegin().WillReturnError(errors.New("connection refused"))

	err := s.Import(context.Background(), Tables{Aggregates: sampleTables().Aggregates})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "postgres: import aggregates")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSource_Migrate(t *testing.T) {
	s, mock := newMockPostgresSource(t)

	mock.ExpectExec(`CREATE SCHEMA IF NOT EXISTS crimecast`).WillReturnResult(pgxmock.NewResult("CREATE", 0))
	require.NoError(t, s.Migrate(context.Background()))
	assert.NoError(t, s.Close())
	assert.NoError(t, mock.ExpectationsWereMet())
}
