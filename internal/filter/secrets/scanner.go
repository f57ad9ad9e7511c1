// Package secrets blocks queries that carry credentials.
package secrets

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/nowgo-ai/nowgo-platform/internal/filter"
	"github.com/nowgo-ai/nowgo-platform/internal/types"
)

// Detection is one match of a Pattern in scanned text.
type Detection struct {
	PatternName string
	Start       int // byte offset
	End         int
}

// Scanner implements filter.Filter over the request query.
type Scanner struct {
	patterns []Pattern
	enabled  func() bool
}

// NewScanner creates a scanner with the default patterns. enabled is consulted
// on every request so config reloads take effect; nil means always on.
func NewScanner(enabled func() bool) *Scanner {
	if enabled == nil {
		enabled = func() bool { return true }
	}
	return &Scanner{patterns: DefaultPatterns(), enabled: enabled}
}

func (s *Scanner) Name() string  { return "secrets" }
func (s *Scanner) Enabled() bool { return s.enabled() }

// Scan returns every pattern match in text.
func (s *Scanner) Scan(text string) []Detection {
	var detections []Detection
	for _, p := range s.patterns {
		for _, loc := range p.Regex.FindAllStringIndex(text, -1) {
			detections = append(detections, Detection{PatternName: p.Name, Start: loc[0], End: loc[1]})
		}
	}
	return detections
}

// ScanRequest blocks the request if its query contains any credential.
func (s *Scanner) ScanRequest(_ context.Context, req *types.RouteRequest) filter.Result {
	detections := s.Scan(req.Query)
	if len(detections) == 0 {
		return filter.Result{Action: filter.ActionPass, FilterName: s.Name()}
	}
	return filter.Result{
		Action:     filter.ActionBlock,
		FilterName: s.Name(),
		Detections: len(detections),
		Message:    fmt.Sprintf("Query contains credentials (%s). Remove them and retry.", patternNames(detections)),
	}
}

func patternNames(detections []Detection) string {
	seen := map[string]bool{}
	var names []string
	for _, d := range detections {
		if !seen[d.PatternName] {
			seen[d.PatternName] = true
			names = append(names, d.PatternName)
		}
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}
