package config

type PlansConfig struct {
	Plans []Plan `yaml:"plans"`
}

// Plan is a pricing tier. RequestsPerMonth seeds the quota of keys issued on it.
type Plan struct {
	ID               string   `yaml:"id" json:"id"`
	Name             string   `yaml:"name" json:"name"`
	PriceUSD         float64  `yaml:"price_usd" json:"price"`
	RequestsPerMonth int      `yaml:"requests_per_month" json:"requests_per_month"`
	RPMLimit         int      `yaml:"rpm_limit" json:"rpm_limit,omitempty"`
	Features         []string `yaml:"features" json:"features"`
	SupportLevel     string   `yaml:"support_level" json:"support_level"`
}

// Find returns the plan with the given id.
func (p *PlansConfig) Find(id string) (Plan, bool) {
	if p == nil {
		return Plan{}, false
	}
	for _, plan := range p.Plans {
		if plan.ID == id {
			return plan, true
		}
	}
	return Plan{}, false
}
