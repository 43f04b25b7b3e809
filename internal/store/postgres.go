package store

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/recifedata/crimecast/internal/db"
	"github.com/recifedata/crimecast/internal/model"
)

// Postgres table names, schema-qualified.
const (
	pgAggregates = "crimecast.monthly_aggregates"
	pgProfiles   = "crimecast.neighborhood_clusters"
	pgStats      = "crimecast.cluster_stats"
)

var (
	aggregateColumns = []string{"neighborhood", "year", "month", "count", "mean_victims", "mean_suspects"}
	profileColumns   = []string{"neighborhood", "cluster", "mean_suspects", "mean_victims", "weapon_fraction", "mean_suspect_age", "mean_hour"}
	statsColumns     = []string{"cluster", "risk_index"}
)

// PostgresSource implements Importer on a pgx pool.
type PostgresSource struct {
	pool    db.Pool
	closeFn func()
}

// NewPostgres connects to url.
func NewPostgres(ctx context.Context, url string, maxConns int32) (*PostgresSource, error) {
	if url == "" {
		return nil, eris.New("postgres: empty database url")
	}
	pool, err := db.Connect(ctx, url, maxConns)
	if err != nil {
		return nil, err
	}
	return &PostgresSource{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE SCHEMA IF NOT EXISTS crimecast;

CREATE TABLE IF NOT EXISTS crimecast.monthly_aggregates (
	neighborhood  TEXT             NOT NULL,
	year          INTEGER          NOT NULL,
	month         INTEGER          NOT NULL CHECK (month BETWEEN 1 AND 12),
	count         INTEGER          NOT NULL CHECK (count >= 0),
	mean_victims  DOUBLE PRECISION NOT NULL DEFAULT 1,
	mean_suspects DOUBLE PRECISION NOT NULL DEFAULT 1,
	PRIMARY KEY (neighborhood, year, month)
);

CREATE TABLE IF NOT EXISTS crimecast.neighborhood_clusters (
	neighborhood     TEXT             PRIMARY KEY,
	cluster          INTEGER          NOT NULL DEFAULT -1,
	mean_suspects    DOUBLE PRECISION NOT NULL,
	mean_victims     DOUBLE PRECISION NOT NULL,
	weapon_fraction  DOUBLE PRECISION NOT NULL,
	mean_suspect_age DOUBLE PRECISION NOT NULL,
	mean_hour        DOUBLE PRECISION NOT NULL
);

CREATE TABLE IF NOT EXISTS crimecast.cluster_stats (
	cluster    INTEGER          PRIMARY KEY,
	risk_index DOUBLE PRECISION NOT NULL
);
`

// Migrate creates the schema and tables if they do not exist.
func (s *PostgresSource) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, postgresMigration); err != nil {
		return eris.Wrap(err, "postgres: migrate")
	}
	return nil
}

// Close releases the pool.
func (s *PostgresSource) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

// LoadAggregates implements Source.
func (s *PostgresSource) LoadAggregates(ctx context.Context) ([]model.MonthlyAggregate, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT neighborhood, year, month, count, mean_victims, mean_suspects
		 FROM crimecast.monthly_aggregates ORDER BY neighborhood, year, month`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: query aggregates")
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.MonthlyAggregate, error) {
		var a model.MonthlyAggregate
		err := row.Scan(&a.Neighborhood, &a.Year, &a.Month, &a.Count, &a.MeanVictims, &a.MeanSuspects)
		return a, err
	})
	if err != nil {
		return nil, eris.Wrap(err, "postgres: scan aggregates")
	}
	if out == nil {
		out = []model.MonthlyAggregate{}
	}
	return out, nil
}

// LoadProfileRows implements Source.
func (s *PostgresSource) LoadProfileRows(ctx context.Context) ([]model.ProfileRow, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT neighborhood, cluster, mean_suspects, mean_victims, weapon_fraction, mean_suspect_age, mean_hour
		 FROM crimecast.neighborhood_clusters ORDER BY neighborhood`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: query profiles")
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.ProfileRow, error) {
		var p model.ProfileRow
		err := row.Scan(&p.Neighborhood, &p.Cluster, &p.MeanSuspects, &p.MeanVictims,
			&p.WeaponFraction, &p.MeanSuspectAge, &p.MeanHour)
		return p, err
	})
	if err != nil {
		return nil, eris.Wrap(err, "postgres: scan profiles")
	}
	if out == nil {
		out = []model.ProfileRow{}
	}
	return out, nil
}

// LoadClusterStats implements Source. An empty table yields nil.
func (s *PostgresSource) LoadClusterStats(ctx context.Context) ([]model.ClusterStats, error) {
	rows, err := s.pool.Query(ctx, `SELECT cluster, risk_index FROM crimecast.cluster_stats ORDER BY cluster`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: query cluster stats")
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.ClusterStats, error) {
		var c model.ClusterStats
		err := row.Scan(&c.Cluster, &c.RiskIndex)
		return c, err
	})
	if err != nil {
		return nil, eris.Wrap(err, "postgres: scan cluster stats")
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out, nil
}

// Import upserts aggregates and profile rows on their natural keys and
// replaces the cluster stats wholesale, since a re-clustering can drop ids.
func (s *PostgresSource) Import(ctx context.Context, t Tables) error {
	if t.Aggregates != nil {
		rows := make([][]any, len(t.Aggregates))
		for i, a := range t.Aggregates {
			rows[i] = []any{a.Neighborhood, a.Year, a.Month, a.Count, a.MeanVictims, a.MeanSuspects}
		}
		n, err := db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
			Table:        pgAggregates,
			Columns:      aggregateColumns,
			ConflictKeys: []string{"neighborhood", "year", "month"},
		}, rows)
		if err != nil {
			return eris.Wrap(err, "postgres: import aggregates")
		}
		zap.L().Info("aggregates imported", zap.Int64("rows", n))
	}

	if t.Profiles != nil {
		rows := make([][]any, len(t.Profiles))
		for i, p := range t.Profiles {
			rows[i] = []any{p.Neighborhood, p.Cluster, p.MeanSuspects, p.MeanVictims, p.WeaponFraction, p.MeanSuspectAge, p.MeanHour}
		}
		n, err := db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
			Table:        pgProfiles,
			Columns:      profileColumns,
			ConflictKeys: []string{"neighborhood"},
		}, rows)
		if err != nil {
			return eris.Wrap(err, "postgres: import profiles")
		}
		zap.L().Info("profiles imported", zap.Int64("rows", n))
	}

	if t.Stats != nil {
		rows := make([][]any, len(t.Stats))
		for i, c := range t.Stats {
			rows[i] = []any{c.Cluster, c.RiskIndex}
		}
		n, err := db.ReplaceAll(ctx, s.pool, pgStats, statsColumns, rows)
		if err != nil {
			return eris.Wrap(err, "postgres: import cluster stats")
		}
		zap.L().Info("cluster stats imported", zap.Int64("rows", n))
	}
	return nil
}
