package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/recifedata/crimecast/internal/app"
	"github.com/recifedata/crimecast/internal/prediction"
)

var (
	batchYear          int
	batchMonth         int
	batchNeighborhoods []string
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Predict a month for many neighborhoods",
	Long:  "Predicts every known neighborhood (or the --neighborhoods subset) for a month. Unknown names are dropped and the results are sorted by predicted count.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		svc, err := initServices(ctx, "batch", app.Options{SkipProfiles: true})
		if err != nil {
			return err
		}
		defer svc.Close()

		if svc.Batch == nil {
			return svc.Unavailable("prediction model", app.ComponentSource, app.ComponentAggregates, app.ComponentEstimator)
		}

		res, err := svc.Batch.PredictPeriod(ctx, prediction.BatchRequest{
			Year:          batchYear,
			Month:         batchMonth,
			Neighborhoods: batchNeighborhoods,
		})
		if err != nil {
			return err
		}

		zap.L().Info("batch complete",
			zap.String("run_id", res.RunID),
			zap.Int("analyzed", res.Analyzed),
			zap.Int("dropped", res.Dropped),
		)
		return printJSON(cmd.OutOrStdout(), res)
	},
}

func init() {
	batchCmd.Flags().IntVar(&batchYear, "year", 0, "target year (required)")
	batchCmd.Flags().IntVar(&batchMonth, "month", 0, "target month, 1-12 (required)")
	batchCmd.Flags().StringSliceVar(&batchNeighborhoods, "neighborhoods", nil, "comma-separated neighborhoods (default all)")
	_ = batchCmd.MarkFlagRequired("year")
	_ = batchCmd.MarkFlagRequired("month")
	rootCmd.AddCommand(batchCmd)
}
