package main

import (
	"github.com/spf13/cobra"

	"github.com/recifedata/crimecast/internal/app"
	"github.com/recifedata/crimecast/internal/model"
)

var (
	predictNeighborhood string
	predictYear         int
	predictMonth        int
	predictVictims      float64
	predictSuspects     float64
	predictWeapon       string
)

var predictCmd = &cobra.Command{
	Use:   "predict",
	Short: "Predict one neighborhood's occurrences for a month",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		svc, err := initServices(ctx, "predict", app.Options{SkipProfiles: true})
		if err != nil {
			return err
		}
		defer svc.Close()

		if svc.Predictions == nil {
			return svc.Unavailable("prediction model", app.ComponentSource, app.ComponentAggregates, app.ComponentEstimator)
		}

		pc := model.PredictionContext{
			Neighborhood: predictNeighborhood,
			Year:         predictYear,
			Month:        predictMonth,
		}
		if cmd.Flags().Changed("victims") {
			pc.Victims = &predictVictims
		}
		if cmd.Flags().Changed("suspects") {
			pc.Suspects = &predictSuspects
		}
		if cmd.Flags().Changed("weapon") {
			pc.Weapon = &predictWeapon
		}

		res, err := svc.Predictions.Predict(ctx, pc)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), res)
	},
}

func init() {
	predictCmd.Flags().StringVar(&predictNeighborhood, "neighborhood", "", "neighborhood name (required)")
	predictCmd.Flags().IntVar(&predictYear, "year", 0, "target year (required)")
	predictCmd.Flags().IntVar(&predictMonth, "month", 0, "target month, 1-12 (required)")
	predictCmd.Flags().Float64Var(&predictVictims, "victims", 1, "expected victims per occurrence")
	predictCmd.Flags().Float64Var(&predictSuspects, "suspects", 1, "expected suspects per occurrence")
	predictCmd.Flags().StringVar(&predictWeapon, "weapon", model.DefaultWeapon, "expected weapon")
	_ = predictCmd.MarkFlagRequired("neighborhood")
	_ = predictCmd.MarkFlagRequired("year")
	_ = predictCmd.MarkFlagRequired("month")
	rootCmd.AddCommand(predictCmd)
}
