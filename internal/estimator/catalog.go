package estimator

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

// ErrInvalidCatalog is returned by NewCatalog for unusable model tables.
var ErrInvalidCatalog = errors.New("invalid model catalog")

// ModelProfile describes a routable model.
type ModelProfile struct {
	ID           string
	Description  string
	CostPerQuery float64
	QualityScore float64
	SpeedScore   float64
	MaxTokens    int
}

// Catalog is an immutable model table. Build it with NewCatalog; it is safe
// for concurrent use.
type Catalog struct {
	profiles map[string]ModelProfile
	byCost   []string

	cheapest      string
	balanced      string
	premium       string
	fastest       string
	mostExpensive string
}

// NewCatalog validates profiles and derives the selection tiers.
func NewCatalog(profiles []ModelProfile) (*Catalog, error) {
	if len(profiles) == 0 {
		return nil, fmt.Errorf("%w: no models", ErrInvalidCatalog)
	}

	c := &Catalog{profiles: make(map[string]ModelProfile, len(profiles))}
	for _, p := range profiles {
		if p.ID == "" {
			return nil, fmt.Errorf("%w: model with empty id", ErrInvalidCatalog)
		}
		if _, dup := c.profiles[p.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate model %q", ErrInvalidCatalog, p.ID)
		}
		if !(p.CostPerQuery > 0) || math.IsInf(p.CostPerQuery, 0) {
			return nil, fmt.Errorf("%w: model %q cost must be positive", ErrInvalidCatalog, p.ID)
		}
		if !inUnit(p.QualityScore) || !inUnit(p.SpeedScore) {
			return nil, fmt.Errorf("%w: model %q scores must be within [0,1]", ErrInvalidCatalog, p.ID)
		}
		c.profiles[p.ID] = p
		c.byCost = append(c.byCost, p.ID)
	}

	sort.Slice(c.byCost, func(i, j int) bool {
		a, b := c.profiles[c.byCost[i]], c.profiles[c.byCost[j]]
		if a.CostPerQuery != b.CostPerQuery {
			return a.CostPerQuery < b.CostPerQuery
		}
		return a.ID < b.ID
	})

	c.cheapest = c.byCost[0]
	c.mostExpensive = c.byCost[len(c.byCost)-1]
	c.balanced = c.byCost[(len(c.byCost)-1)/2]
	c.premium = c.pick(func(a, b ModelProfile) bool {
		if a.QualityScore != b.QualityScore {
			return a.QualityScore > b.QualityScore
		}
		return a.CostPerQuery > b.CostPerQuery
	})
	c.fastest = c.pick(func(a, b ModelProfile) bool {
		if a.SpeedScore != b.SpeedScore {
			return a.SpeedScore > b.SpeedScore
		}
		return a.CostPerQuery < b.CostPerQuery
	})
	return c, nil
}

// pick returns the first model in cost order for which better holds against
// every other model. Ties not broken by better fall back to cost order.
func (c *Catalog) pick(better func(a, b ModelProfile) bool) string {
	best := c.byCost[0]
	for _, id := range c.byCost[1:] {
		if better(c.profiles[id], c.profiles[best]) {
			best = id
		}
	}
	return best
}

func inUnit(v float64) bool {
	return v >= 0 && v <= 1
}

// DefaultCatalog returns the three-model demo table.
func DefaultCatalog() *Catalog {
	c, err := NewCatalog([]ModelProfile{
		{ID: "gpt-j", Description: "Fast and cost-effective for simple queries", CostPerQuery: 0.0002, QualityScore: 0.7, SpeedScore: 0.9, MaxTokens: 2048},
		{ID: "gpt-3.5", Description: "Balanced performance for most use cases", CostPerQuery: 0.002, QualityScore: 0.85, SpeedScore: 0.8, MaxTokens: 4096},
		{ID: "gpt-4", Description: "Highest quality for complex tasks", CostPerQuery: 0.06, QualityScore: 0.95, SpeedScore: 0.6, MaxTokens: 8192},
	})
	if err != nil {
		panic(err)
	}
	return c
}

// Get returns the profile for id.
func (c *Catalog) Get(id string) (ModelProfile, bool) {
	p, ok := c.profiles[id]
	return p, ok
}

// Models returns all profiles ordered by ascending cost.
func (c *Catalog) Models() []ModelProfile {
	out := make([]ModelProfile, 0, len(c.byCost))
	for _, id := range c.byCost {
		out = append(out, c.profiles[id])
	}
	return out
}

func (c *Catalog) Len() int { return len(c.byCost) }

func (c *Catalog) Cheapest() string      { return c.cheapest }
func (c *Catalog) Balanced() string      { return c.balanced }
func (c *Catalog) Premium() string       { return c.premium }
func (c *Catalog) Fastest() string       { return c.fastest }
func (c *Catalog) MostExpensive() string { return c.mostExpensive }

// SelectModel applies the routing policy. The first matching rule wins:
//  1. cost preference on a low-complexity query -> cheapest
//  2. quality preference or high complexity -> premium
//  3. speed preference -> fastest
//  4. anything else -> balanced
func (c *Catalog) SelectModel(complexity Complexity, pref Preference) string {
	switch {
	case pref == PreferCost && complexity == ComplexityLow:
		return c.cheapest
	case pref == PreferQuality || complexity == ComplexityHigh:
		return c.premium
	case pref == PreferSpeed:
		return c.fastest
	default:
		return c.balanced
	}
}

// EstimateSavings returns the whole-percent cost reduction of model relative
// to the most expensive model in the catalog, within [0,100]. Unknown models
// save nothing.
func (c *Catalog) EstimateSavings(model string) int {
	p, ok := c.profiles[model]
	if !ok {
		return 0
	}
	maxCost := c.profiles[c.mostExpensive].CostPerQuery
	pct := math.Round((maxCost - p.CostPerQuery) / maxCost * 100)
	switch {
	case pct < 0:
		return 0
	case pct > 100:
		return 100
	}
	return int(pct)
}

// Within returns the sub-catalog of models costing at most maxCost.
// ok is false when no model qualifies.
func (c *Catalog) Within(maxCost float64) (sub *Catalog, ok bool) {
	var kept []ModelProfile
	for _, id := range c.byCost {
		if p := c.profiles[id]; p.CostPerQuery <= maxCost {
			kept = append(kept, p)
		}
	}
	if len(kept) == 0 {
		return nil, false
	}
	if len(kept) == len(c.byCost) {
		return c, true
	}
	sub, err := NewCatalog(kept)
	if err != nil {
		return nil, false
	}
	return sub, true
}
