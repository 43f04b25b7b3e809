package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/recifedata/crimecast/internal/aggregate"
	"github.com/recifedata/crimecast/internal/estimator"
	"github.com/recifedata/crimecast/internal/risk"
	"github.com/recifedata/crimecast/internal/store"
)

var (
	aggregateIncidents string
	aggregateOut       string
	aggregateAssign    bool
)

var aggregateCmd = &cobra.Command{
	Use:   "aggregate",
	Short: "Build the monthly aggregate table from a raw incident export",
	Long:  "Reads a raw incident export (CSV or XLSX), keeps the configured crime types, and writes monthly_aggregates.csv. With --assign it also derives the neighborhood attributes, clusters them with the configured cluster model and writes neighborhood_clusters.csv and cluster_stats.csv.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("aggregate"); err != nil {
			return err
		}
		if aggregateAssign && cfg.Cluster.ModelPath == "" {
			return eris.New("cluster.model_path is required with --assign")
		}

		records, err := store.ReadIncidents(ctx, aggregateIncidents)
		if err != nil {
			return eris.Wrap(err, "aggregate: read incidents")
		}
		filter := aggregate.NewCrimeFilter(cfg.Data.CrimeKeywords...)

		tables := store.Tables{Aggregates: aggregate.Aggregate(records, filter)}
		if len(tables.Aggregates) == 0 {
			return eris.Errorf("aggregate: no incidents in %s match the crime filter", aggregateIncidents)
		}

		if aggregateAssign {
			cm, err := estimator.LoadCentroid(cfg.Cluster.ModelPath)
			if err != nil {
				return err
			}
			rows := aggregate.Attributes(records, filter)
			for i := range rows {
				id, err := cm.Assign(ctx, rows[i].Attributes())
				if err != nil {
					return eris.Wrapf(err, "aggregate: assign %s", rows[i].Neighborhood)
				}
				rows[i].Cluster = id
			}
			tables.Profiles = rows
			tables.Stats = risk.ComputeClusterStats(rows)
		}

		if err := store.WriteCSV(aggregateOut, tables); err != nil {
			return eris.Wrap(err, "aggregate: write tables")
		}

		zap.L().Info("aggregate complete",
			zap.Int("incidents", len(records)),
			zap.Int("aggregates", len(tables.Aggregates)),
			zap.Int("profiles", len(tables.Profiles)),
			zap.String("out", aggregateOut),
		)
		return nil
	},
}

func init() {
	aggregateCmd.Flags().StringVar(&aggregateIncidents, "incidents", "", "path to the raw incident export (required)")
	aggregateCmd.Flags().StringVar(&aggregateOut, "out", "", "output directory (required)")
	aggregateCmd.Flags().BoolVar(&aggregateAssign, "assign", false, "also cluster the neighborhoods with cluster.model_path")
	_ = aggregateCmd.MarkFlagRequired("incidents")
	_ = aggregateCmd.MarkFlagRequired("out")
	rootCmd.AddCommand(aggregateCmd)
}
