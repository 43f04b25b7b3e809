package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/recifedata/crimecast/internal/api"
	"github.com/recifedata/crimecast/internal/app"
	"github.com/recifedata/crimecast/internal/export"
)

var (
	rankLimit int
	rankXLSX  string
)

var rankCmd = &cobra.Command{
	Use:   "rank",
	Short: "Rank neighborhoods by total occurrences",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		svc, err := initServices(ctx, "rank", app.Options{})
		if err != nil {
			return err
		}
		defer svc.Close()

		if svc.Profiles == nil {
			return svc.Unavailable("neighborhood profiles", app.ComponentSource, app.ComponentClusterModel, app.ComponentProfiles)
		}

		ranking := svc.Profiles.Ranking(rankLimit)
		if rankXLSX == "" {
			return printJSON(cmd.OutOrStdout(), map[string]any{
				"total_analyzed": svc.Profiles.Len(),
				"ranking":        ranking,
			})
		}

		if err := export.WriteXLSX(rankXLSX, export.Report{
			Ranking:  ranking,
			Clusters: svc.Profiles.Clusters(),
		}); err != nil {
			return eris.Wrap(err, "rank: export")
		}
		zap.L().Info("ranking exported",
			zap.String("path", rankXLSX),
			zap.Int("rows", len(ranking)),
		)
		return nil
	},
}

func init() {
	rankCmd.Flags().IntVar(&rankLimit, "limit", api.DefaultRankingLimit, "number of neighborhoods to list")
	rankCmd.Flags().StringVar(&rankXLSX, "xlsx", "", "write the ranking and cluster summaries to this workbook instead of stdout")
	rootCmd.AddCommand(rankCmd)
}
