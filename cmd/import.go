package main

import (
	"context"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/recifedata/crimecast/internal/resilience"
	"github.com/recifedata/crimecast/internal/store"
)

var importFrom string

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Load CSV tables into the configured database",
	Long:  "Reads monthly_aggregates.csv, neighborhood_clusters.csv and the optional cluster_stats.csv from --from and writes them to the sqlite or postgres table source.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("import"); err != nil {
			return err
		}

		tables, err := store.LoadAll(ctx, store.NewCSV(importFrom))
		if err != nil {
			return eris.Wrap(err, "import: read csv tables")
		}

		backoff := resilience.DefaultBackoff()
		backoff.Attempts = cfg.Data.LoadRetries
		dst, err := resilience.Retry(ctx, backoff, "open import target", func(ctx context.Context) (store.Importer, error) {
			return store.OpenImporter(ctx, store.Options{
				Driver:      cfg.Data.Driver,
				Path:        cfg.Data.SQLitePath,
				DatabaseURL: cfg.Data.DatabaseURL,
				MaxConns:    cfg.Data.MaxConns,
			})
		})
		if err != nil {
			return eris.Wrap(err, "import: open target")
		}
		defer dst.Close() //nolint:errcheck

		if err := dst.Migrate(ctx); err != nil {
			return eris.Wrap(err, "import: migrate")
		}
		if err := dst.Import(ctx, *tables); err != nil {
			return eris.Wrap(err, "import")
		}

		zap.L().Info("import complete",
			zap.String("driver", cfg.Data.Driver),
			zap.String("from", importFrom),
			zap.Int("aggregates", len(tables.Aggregates)),
			zap.Int("profiles", len(tables.Profiles)),
			zap.Int("stats", len(tables.Stats)),
		)
		return nil
	},
}

func init() {
	importCmd.Flags().StringVar(&importFrom, "from", "", "directory holding the CSV tables (required)")
	_ = importCmd.MarkFlagRequired("from")
	rootCmd.AddCommand(importCmd)
}
