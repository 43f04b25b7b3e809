package store

import (
	"context"
	"database/sql"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/recifedata/crimecast/internal/model"
)

// SQLiteSource implements Importer using modernc.org/sqlite.
type SQLiteSource struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteSource, error) {
	if dsn == "" {
		return nil, eris.New("sqlite: empty database path")
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteSource{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS monthly_aggregates (
	neighborhood  TEXT    NOT NULL,
	year          INTEGER NOT NULL,
	month         INTEGER NOT NULL CHECK (month BETWEEN 1 AND 12),
	count         INTEGER NOT NULL CHECK (count >= 0),
	mean_victims  REAL    NOT NULL DEFAULT 1,
	mean_suspects REAL    NOT NULL DEFAULT 1,
	PRIMARY KEY (neighborhood, year, month)
);

CREATE TABLE IF NOT EXISTS neighborhood_clusters (
	neighborhood     TEXT    PRIMARY KEY,
	cluster          INTEGER NOT NULL DEFAULT -1,
	mean_suspects    REAL    NOT NULL,
	mean_victims     REAL    NOT NULL,
	weapon_fraction  REAL    NOT NULL,
	mean_suspect_age REAL    NOT NULL,
	mean_hour        REAL    NOT NULL
);

CREATE TABLE IF NOT EXISTS cluster_stats (
	cluster    INTEGER PRIMARY KEY,
	risk_index REAL    NOT NULL
);
`

// Migrate creates the tables if they do not exist.
func (s *SQLiteSource) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, sqliteMigration); err != nil {
		return eris.Wrap(err, "sqlite: migrate")
	}
	return nil
}

// Close closes the database.
func (s *SQLiteSource) Close() error {
	return s.db.Close()
}

// LoadAggregates implements Source.
func (s *SQLiteSource) LoadAggregates(ctx context.Context) ([]model.MonthlyAggregate, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT neighborhood, year, month, count, mean_victims, mean_suspects
		 FROM monthly_aggregates ORDER BY neighborhood, year, month`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: query aggregates")
	}
	defer rows.Close() //nolint:errcheck

	out := []model.MonthlyAggregate{}
	for rows.Next() {
		var a model.MonthlyAggregate
		if err := rows.Scan(&a.Neighborhood, &a.Year, &a.Month, &a.Count, &a.MeanVictims, &a.MeanSuspects); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan aggregate")
		}
		out = append(out, a)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate aggregates")
}

// LoadProfileRows implements Source.
func (s *SQLiteSource) LoadProfileRows(ctx context.Context) ([]model.ProfileRow, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT neighborhood, cluster, mean_suspects, mean_victims, weapon_fraction, mean_suspect_age, mean_hour
		 FROM neighborhood_clusters ORDER BY neighborhood`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: query profiles")
	}
	defer rows.Close() //nolint:errcheck

	out := []model.ProfileRow{}
	for rows.Next() {
		var p model.ProfileRow
		if err := rows.Scan(&p.Neighborhood, &p.Cluster, &p.MeanSuspects, &p.MeanVictims,
			&p.WeaponFraction, &p.MeanSuspectAge, &p.MeanHour); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan profile")
		}
		out = append(out, p)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate profiles")
}

// LoadClusterStats implements Source. An empty table yields nil.
func (s *SQLiteSource) LoadClusterStats(ctx context.Context) ([]model.ClusterStats, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT cluster, risk_index FROM cluster_stats ORDER BY cluster`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: query cluster stats")
	}
	defer rows.Close() //nolint:errcheck

	var out []model.ClusterStats
	for rows.Next() {
		var c model.ClusterStats
		if err := rows.Scan(&c.Cluster, &c.RiskIndex); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan cluster stats")
		}
		out = append(out, c)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate cluster stats")
}

// Import replaces the content of every non-nil table in t in a single
// transaction.
func (s *SQLiteSource) Import(ctx context.Context, t Tables) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin import")
	}
	defer tx.Rollback() //nolint:errcheck

	if t.Aggregates != nil {
		args := make([][]any, len(t.Aggregates))
		for i, a := range t.Aggregates {
			args[i] = []any{a.Neighborhood, a.Year, a.Month, a.Count, a.MeanVictims, a.MeanSuspects}
		}
		if err := replaceTable(ctx, tx, "monthly_aggregates",
			`INSERT INTO monthly_aggregates (neighborhood, year, month, count, mean_victims, mean_suspects) VALUES (?, ?, ?, ?, ?, ?)`,
			args); err != nil {
			return err
		}
	}
	if t.Profiles != nil {
		args := make([][]any, len(t.Profiles))
		for i, p := range t.Profiles {
			args[i] = []any{p.Neighborhood, p.Cluster, p.MeanSuspects, p.MeanVictims, p.WeaponFraction, p.MeanSuspectAge, p.MeanHour}
		}
		if err := replaceTable(ctx, tx, "neighborhood_clusters",
			`INSERT INTO neighborhood_clusters (neighborhood, cluster, mean_suspects, mean_victims, weapon_fraction, mean_suspect_age, mean_hour) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			args); err != nil {
			return err
		}
	}
	if t.Stats != nil {
		args := make([][]any, len(t.Stats))
		for i, c := range t.Stats {
			args[i] = []any{c.Cluster, c.RiskIndex}
		}
		if err := replaceTable(ctx, tx, "cluster_stats",
			`INSERT INTO cluster_stats (cluster, risk_index) VALUES (?, ?)`, args); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return eris.Wrap(err, "sqlite: commit import")
	}
	zap.L().Info("sqlite import complete",
		zap.Int("aggregates", len(t.Aggregates)),
		zap.Int("profiles", len(t.Profiles)),
		zap.Int("cluster_stats", len(t.Stats)),
	)
	return nil
}

func replaceTable(ctx context.Context, tx *sql.Tx, table, insert string, rows [][]any) error {
	if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
		return eris.Wrapf(err, "sqlite: clear %s", table)
	}
	stmt, err := tx.PrepareContext(ctx, insert)
	if err != nil {
		return eris.Wrapf(err, "sqlite: prepare %s insert", table)
	}
	defer stmt.Close() //nolint:errcheck

	for _, args := range rows {
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return eris.Wrapf(err, "sqlite: insert into %s", table)
		}
	}
	return nil
}
