package config

import (
	"fmt"

	"github.com/nowgo-ai/nowgo-platform/internal/estimator"
)

// ModelsConfig is the routable model table and the keyword lists used for
// complexity classification.
type ModelsConfig struct {
	Models []ModelEntry `yaml:"models"`
	Terms  *TermsConfig `yaml:"terms,omitempty"`
}

type ModelEntry struct {
	Name         string  `yaml:"name"`
	Description  string  `yaml:"description"`
	CostPerQuery float64 `yaml:"cost_per_query"`
	QualityScore float64 `yaml:"quality_score"`
	SpeedScore   float64 `yaml:"speed_score"`
	MaxTokens    int     `yaml:"max_tokens"`
}

type TermsConfig struct {
	Complexity []string `yaml:"complexity"`
	Code       []string `yaml:"code"`
}

// Catalog builds the immutable estimator catalog from the configured models.
// An empty model list yields the built-in default table.
func (m *ModelsConfig) Catalog() (*estimator.Catalog, error) {
	if m == nil || len(m.Models) == 0 {
		return estimator.DefaultCatalog(), nil
	}
	profiles := make([]estimator.ModelProfile, 0, len(m.Models))
	for _, e := range m.Models {
		profiles = append(profiles, estimator.ModelProfile{
			ID:           e.Name,
			Description:  e.Description,
			CostPerQuery: e.CostPerQuery,
			QualityScore: e.QualityScore,
			SpeedScore:   e.SpeedScore,
			MaxTokens:    e.MaxTokens,
		})
	}
	c, err := estimator.NewCatalog(profiles)
	if err != nil {
		return nil, fmt.Errorf("build catalog: %w", err)
	}
	return c, nil
}

// EstimatorTerms returns the configured keyword lists, or nil to use the defaults.
func (m *ModelsConfig) EstimatorTerms() *estimator.Terms {
	if m == nil || m.Terms == nil {
		return nil
	}
	return &estimator.Terms{
		Complexity: m.Terms.Complexity,
		Code:       m.Terms.Code,
	}
}
