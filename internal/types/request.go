package types

import "time"

// RouteRequest is the internal representation of an incoming routing request.
// Decision fields are empty until the estimator has run.
type RouteRequest struct {
	// Identity (set by auth middleware)
	RequestID string `json:"request_id"`
	APIKeyID  string `json:"api_key_id"`
	UserID    string `json:"user_id"`
	Plan      string `json:"plan"`

	// Request content
	Query      string  `json:"query"`
	Preference string  `json:"preference,omitempty"`
	Priority   string  `json:"priority,omitempty"`
	MaxCost    float64 `json:"max_cost,omitempty"`

	// Decision
	Complexity    string `json:"-"`
	SelectedModel string `json:"-"`

	ReceivedAt time.Time `json:"-"`
}

// EffectivePreference returns Preference, falling back to the legacy Priority field.
func (r *RouteRequest) EffectivePreference() string {
	if r.Preference != "" {
		return r.Preference
	}
	return r.Priority
}
