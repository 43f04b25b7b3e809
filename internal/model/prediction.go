package model

// Bounds accepted for prediction periods.
const (
	MinYear  = 2020
	MaxYear  = 2030
	MinMonth = 1
	MaxMonth = 12
)

// PredictionContext is a prediction query. Nil auxiliary fields take the
// documented defaults (one victim, one suspect, weapon "None").
type PredictionContext struct {
	Neighborhood string   `json:"neighborhood"`
	Year         int      `json:"year"`
	Month        int      `json:"month"`
	Victims      *float64 `json:"victims,omitempty"`
	Suspects     *float64 `json:"suspects,omitempty"`
	Weapon       *string  `json:"weapon,omitempty"`
}

// HistoryEcho reports the lag features that fed a prediction.
type HistoryEcho struct {
	Lags           []int   `json:"lags"`
	PreviousMonth  int     `json:"previous_month"`
	TwoMonthsAgo   int     `json:"two_months_ago"`
	ThreeMonthsAgo int     `json:"three_months_ago"`
	MeanLast6      float64 `json:"mean_last_6"`
}

// ContextEcho reports the contextual features that fed a prediction.
type ContextEcho struct {
	Victims  float64 `json:"victims"`
	Suspects float64 `json:"suspects"`
	Weapon   string  `json:"weapon"`
	Season   Season  `json:"season"`
}

// FeatureEcho groups the echoed inputs of a prediction.
type FeatureEcho struct {
	History HistoryEcho `json:"history"`
	Context ContextEcho `json:"context"`
}

// PredictionResult is the served outcome of one prediction.
type PredictionResult struct {
	Neighborhood   string      `json:"neighborhood"`
	Period         string      `json:"period"`
	Year           int         `json:"year"`
	Month          int         `json:"month"`
	PredictedCount float64     `json:"predicted_count"`
	RiskLevel      RiskLevel   `json:"risk_level"`
	AlertColor     AlertColor  `json:"alert_color"`
	Features       FeatureEcho `json:"features"`
	Recommendation string      `json:"recommendation"`
}
