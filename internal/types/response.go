package types

// RouteResponse is returned by the routing endpoints.
type RouteResponse struct {
	RequestID          string        `json:"request_id"`
	Query              string        `json:"query"`
	Complexity         string        `json:"complexity"`
	Preference         string        `json:"preference"`
	SelectedModel      string        `json:"selected_model"`
	SavingsPercentage  int           `json:"savings_percentage"`
	EstimatedCost      float64       `json:"estimated_cost"`
	BaselineModel      string        `json:"baseline_model"`
	EstimatedLatencyMs int64         `json:"estimated_latency_ms"`
	Response           string        `json:"response"`
	Timestamp          string        `json:"timestamp"`
	FilterActions      FilterSummary `json:"filter_actions"`
}

type FilterSummary struct {
	Secrets FilterAction `json:"secrets"`
	Policy  FilterAction `json:"policy"`
}

type FilterAction struct {
	Action     string `json:"action"`
	Detections int    `json:"detections,omitempty"`
}

// Model is the public listing entry for a routable model.
type Model struct {
	Name         string  `json:"name"`
	Description  string  `json:"description"`
	CostPerQuery float64 `json:"cost_per_query"`
	QualityScore float64 `json:"quality_score"`
	SpeedScore   float64 `json:"speed_score"`
	MaxTokens    int     `json:"max_tokens,omitempty"`
}

// UsageStats summarizes a key's routing decisions over a period.
type UsageStats struct {
	TotalQueries      int64            `json:"total_queries"`
	TotalCost         float64          `json:"total_cost"`
	TotalSavings      float64          `json:"total_savings"`
	AvgResponseTimeMs float64          `json:"avg_response_time_ms"`
	QueriesByModel    map[string]int64 `json:"queries_by_model"`
	Period            string           `json:"period"`
	RequestsUsed      int64            `json:"requests_used"`
	RequestsLimit     *int             `json:"requests_limit,omitempty"`
}
