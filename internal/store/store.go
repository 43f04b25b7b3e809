// Package store loads the precomputed tables the API serves from and, for
// the offline commands, writes them into SQLite or Postgres.
package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/recifedata/crimecast/internal/model"
)

// Supported drivers.
const (
	DriverCSV      = "csv"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Source reads the startup tables. Implementations are read-only after
// construction; the server never writes through them.
type Source interface {
	LoadAggregates(ctx context.Context) ([]model.MonthlyAggregate, error)
	LoadProfileRows(ctx context.Context) ([]model.ProfileRow, error)
	// LoadClusterStats returns nil, nil when the source carries no stats;
	// callers derive them from the profile rows.
	LoadClusterStats(ctx context.Context) ([]model.ClusterStats, error)
	Close() error
}

var (
	_ Source   = (*CSVSource)(nil)
	_ Importer = (*SQLiteSource)(nil)
	_ Importer = (*PostgresSource)(nil)
)

// Tables is a complete set of startup tables.
type Tables struct {
	Aggregates []model.MonthlyAggregate
	Profiles   []model.ProfileRow
	Stats      []model.ClusterStats
}

// Importer is a Source that can be (re)filled by the offline commands.
type Importer interface {
	Source
	Migrate(ctx context.Context) error
	Import(ctx context.Context, t Tables) error
}

// Options selects and configures a Source.
type Options struct {
	Driver      string
	Dir         string // csv
	Path        string // sqlite database file
	DatabaseURL string // postgres
	MaxConns    int32
}

// Open builds the Source for opts.Driver.
func Open(ctx context.Context, opts Options) (Source, error) {
	switch opts.Driver {
	case DriverCSV, "":
		return NewCSV(opts.Dir), nil
	case DriverSQLite, DriverPostgres:
		return OpenImporter(ctx, opts)
	default:
		return nil, eris.Errorf("store: unknown driver %q", opts.Driver)
	}
}

// OpenImporter builds a database-backed Source that accepts imports.
func OpenImporter(ctx context.Context, opts Options) (Importer, error) {
	switch opts.Driver {
	case DriverSQLite:
		s, err := NewSQLite(opts.Path)
		if err != nil {
			return nil, err
		}
		return s, nil
	case DriverPostgres:
		s, err := NewPostgres(ctx, opts.DatabaseURL, opts.MaxConns)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, eris.Errorf("store: driver %q does not support import", opts.Driver)
	}
}

// LoadAll reads every table from src.
func LoadAll(ctx context.Context, src Source) (*Tables, error) {
	aggs, err := src.LoadAggregates(ctx)
	if err != nil {
		return nil, err
	}
	profiles, err := src.LoadProfileRows(ctx)
	if err != nil {
		return nil, err
	}
	stats, err := src.LoadClusterStats(ctx)
	if err != nil {
		return nil, err
	}
	return &Tables{Aggregates: aggs, Profiles: profiles, Stats: stats}, nil
}
