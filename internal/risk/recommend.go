package risk

import (
	"fmt"

	"github.com/recifedata/crimecast/internal/model"
)

// OrganizedSuspectsThreshold is the mean suspect count from which a
// medium-risk cluster reads as organized trafficking.
const OrganizedSuspectsThreshold = 2.0

// ClusterRecommendation returns the operational guidance for a cluster
// risk level.
func ClusterRecommendation(level model.RiskLevel, meanSuspects float64) string {
	switch level {
	case model.RiskHigh, model.RiskVeryHigh:
		return "MAXIMUM ALERT: high-risk area with many suspects and armed occurrences. " +
			"Deploy visible policing, deepen investigations and start preventive actions immediately."
	case model.RiskMedium:
		if meanSuspects >= OrganizedSuspectsThreshold {
			return "REINFORCED MONITORING: medium-risk area with an organized trafficking profile (multiple suspects). " +
				"Keep constant surveillance and intelligence-led strategies."
		}
		return "MONITORING: medium-risk area. Keep regular surveillance and preventive actions against trafficking."
	default:
		return "REGULAR PATROL: low-risk area. Keep preventive patrols and community safety actions."
	}
}

// PredictionRecommendation returns the guidance for a predicted count.
func PredictionRecommendation(level model.RiskLevel, predicted float64) string {
	switch level {
	case model.RiskVeryHigh:
		return fmt.Sprintf("MAXIMUM ALERT: %.0f crimes forecast. Immediate action required: police reinforcement, specialized operations and 24h monitoring.", predicted)
	case model.RiskHigh:
		return fmt.Sprintf("ATTENTION: %.0f crimes forecast. Increase patrols and implement preventive actions.", predicted)
	case model.RiskMedium:
		return fmt.Sprintf("Monitoring required: %.0f crimes forecast. Keep constant surveillance.", predicted)
	default:
		return fmt.Sprintf("Low risk: %.0f crimes forecast. Keep regular patrols.", predicted)
	}
}
