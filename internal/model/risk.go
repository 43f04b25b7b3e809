package model

// RiskLevel is an ordinal severity bucket. Cluster risk uses Low..High;
// prediction risk adds VeryHigh on top.
type RiskLevel string

const (
	RiskLow      RiskLevel = "Low"
	RiskMedium   RiskLevel = "Medium"
	RiskHigh     RiskLevel = "High"
	RiskVeryHigh RiskLevel = "VeryHigh"
)

// Rank returns the ordinal position of the level (Low = 0). Unknown levels
// rank below Low.
func (l RiskLevel) Rank() int {
	switch l {
	case RiskLow:
		return 0
	case RiskMedium:
		return 1
	case RiskHigh:
		return 2
	case RiskVeryHigh:
		return 3
	default:
		return -1
	}
}

// AlertColor is the dashboard color paired with a prediction risk level.
type AlertColor string

const (
	ColorGreen  AlertColor = "green"
	ColorYellow AlertColor = "yellow"
	ColorOrange AlertColor = "orange"
	ColorRed    AlertColor = "red"
)

// Season is a calendar season in the Southern Hemisphere convention.
type Season string

const (
	SeasonSummer Season = "Summer"
	SeasonAutumn Season = "Autumn"
	SeasonWinter Season = "Winter"
	SeasonSpring Season = "Spring"
)
