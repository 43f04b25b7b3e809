// Package risk holds the severity policies: the prediction classifier, the
// cluster risk index and the recommendation texts.
package risk

import "github.com/recifedata/crimecast/internal/model"

// Prediction thresholds. A count at or above a threshold falls in that
// level.
const (
	VeryHighThreshold = 10.0
	HighThreshold     = 5.0
	MediumThreshold   = 2.0
)

// Classify maps a predicted count to its level and alert color. Callers
// pass the exact clamped prediction, not the rounded display value.
func Classify(predicted float64) (model.RiskLevel, model.AlertColor) {
	switch {
	case predicted >= VeryHighThreshold:
		return model.RiskVeryHigh, model.ColorRed
	case predicted >= HighThreshold:
		return model.RiskHigh, model.ColorOrange
	case predicted >= MediumThreshold:
		return model.RiskMedium, model.ColorYellow
	default:
		return model.RiskLow, model.ColorGreen
	}
}
