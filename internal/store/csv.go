package store

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/recifedata/crimecast/internal/model"
)

// File names of the tables inside a CSV data directory.
const (
	AggregatesFile = "monthly_aggregates.csv"
	ProfilesFile   = "neighborhood_clusters.csv"
	StatsFile      = "cluster_stats.csv"
)

// CSVSource reads the tables from a directory of CSV files.
type CSVSource struct {
	dir string
}

// NewCSV returns a CSVSource rooted at dir.
func NewCSV(dir string) *CSVSource {
	return &CSVSource{dir: dir}
}

// LoadAggregates implements Source.
func (s *CSVSource) LoadAggregates(_ context.Context) ([]model.MonthlyAggregate, error) {
	return readTable[model.MonthlyAggregate](filepath.Join(s.dir, AggregatesFile))
}

// LoadProfileRows implements Source. Unassigned rows carry cluster -1.
func (s *CSVSource) LoadProfileRows(_ context.Context) ([]model.ProfileRow, error) {
	return readTable[model.ProfileRow](filepath.Join(s.dir, ProfilesFile))
}

// LoadClusterStats implements Source. The stats file is optional.
func (s *CSVSource) LoadClusterStats(_ context.Context) ([]model.ClusterStats, error) {
	path := filepath.Join(s.dir, StatsFile)
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		zap.L().Debug("no cluster stats file, stats will be derived", zap.String("dir", s.dir))
		return nil, nil
	}
	return readTable[model.ClusterStats](path)
}

// Close implements Source.
func (s *CSVSource) Close() error { return nil }

func readTable[T any](path string) ([]T, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "store: read %s", filepath.Base(path))
	}
	out := []T{}
	if len(bytes.TrimSpace(data)) == 0 {
		return out, nil
	}
	if err := csvutil.Unmarshal(data, &out); err != nil {
		return nil, eris.Wrapf(err, "store: decode %s", filepath.Base(path))
	}
	return out, nil
}

// WriteCSV writes t into dir using the CSVSource file names. Nil tables
// are skipped; empty ones produce a header-only file.
func WriteCSV(dir string, t Tables) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return eris.Wrapf(err, "store: create %s", dir)
	}
	if t.Aggregates != nil {
		if err := writeTable(filepath.Join(dir, AggregatesFile), t.Aggregates); err != nil {
			return err
		}
	}
	if t.Profiles != nil {
		if err := writeTable(filepath.Join(dir, ProfilesFile), t.Profiles); err != nil {
			return err
		}
	}
	if t.Stats != nil {
		if err := writeTable(filepath.Join(dir, StatsFile), t.Stats); err != nil {
			return err
		}
	}
	return nil
}

func writeTable[T any](path string, rows []T) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "store: create %s", filepath.Base(path))
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = eris.Wrapf(cerr, "store: close %s", filepath.Base(path))
		}
	}()

	w := csv.NewWriter(f)
	enc := csvutil.NewEncoder(w)
	if len(rows) == 0 {
		var zero T
		err = enc.EncodeHeader(zero)
	} else {
		err = enc.Encode(rows)
	}
	if err != nil {
		return eris.Wrapf(err, "store: encode %s", filepath.Base(path))
	}
	w.Flush()
	if err = w.Error(); err != nil {
		return eris.Wrapf(err, "store: write %s", filepath.Base(path))
	}
	return nil
}
