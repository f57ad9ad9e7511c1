// Package filter runs request checks before and after the routing decision.
package filter

import (
	"context"

	"github.com/nowgo-ai/nowgo-platform/internal/types"
)

// Action represents the filter decision.
type Action string

const (
	ActionPass  Action = "pass"
	ActionBlock Action = "block"
)

// Result is returned by each filter.
type Result struct {
	Action     Action
	FilterName string
	Message    string
	Detections int
}

// Filter is implemented by every request check.
type Filter interface {
	Name() string
	Enabled() bool
	ScanRequest(ctx context.Context, req *types.RouteRequest) Result
}

// Chain runs filters in order, stopping on the first Block.
type Chain struct {
	filters []Filter
}

func NewChain(filters ...Filter) *Chain {
	return &Chain{filters: filters}
}

// Run executes all enabled filters in order. It returns every result and the
// first blocking one, or nil if the request passed.
func (c *Chain) Run(ctx context.Context, req *types.RouteRequest) ([]Result, *Result) {
	if c == nil {
		return nil, nil
	}
	var results []Result
	for _, f := range c.filters {
		if !f.Enabled() {
			continue
		}
		r := f.ScanRequest(ctx, req)
		results = append(results, r)
		if r.Action == ActionBlock {
			return results, &r
		}
	}
	return results, nil
}

// Summarize folds chain results into the response summary. Filters that did
// not run are reported as "skipped".
func Summarize(results []Result) types.FilterSummary {
	summary := types.FilterSummary{
		Secrets: types.FilterAction{Action: "skipped"},
		Policy:  types.FilterAction{Action: "skipped"},
	}
	for _, r := range results {
		action := types.FilterAction{Action: string(r.Action), Detections: r.Detections}
		switch r.FilterName {
		case "secrets":
			summary.Secrets = action
		case "policy":
			summary.Policy = action
		}
	}
	return summary
}
