// Package estimator decides which model a query would be routed to and how
// much that saves compared to always using the most expensive model.
package estimator

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"sync"
	"time"
	"unicode/utf8"
)

const (
	defaultLatencyMin = 200 * time.Millisecond
	defaultLatencyMax = 1200 * time.Millisecond
)

// RoutingResult is the outcome of a single evaluation.
type RoutingResult struct {
	Query             string
	Complexity        Complexity
	Preference        Preference
	SelectedModel     string
	SavingsPercentage int
	EstimatedCost     float64
	BaselineModel     string
	BaselineCost      float64
	// EstimatedLatency is a placeholder, not a measurement.
	EstimatedLatency time.Duration
}

// Options configures an Estimator.
type Options struct {
	Catalog *Catalog
	Terms   *Terms

	// Latency bounds the placeholder latency. Nil means 200ms to 1200ms;
	// a zero range yields zero latency.
	Latency *LatencyRange
	// ProcessingDelay is the wait applied by Simulate before evaluating.
	ProcessingDelay time.Duration

	// Rand drives the latency placeholder. A time-seeded source is used when nil.
	Rand *rand.Rand
}

// LatencyRange is an inclusive range for the latency placeholder.
type LatencyRange struct {
	Min time.Duration
	Max time.Duration
}

// Estimator evaluates queries against a fixed catalog.
type Estimator struct {
	catalog    *Catalog
	classifier *Classifier

	latencyMin time.Duration
	latencyMax time.Duration
	delay      time.Duration

	mu  sync.Mutex
	rng *rand.Rand
}

// New builds an Estimator. A nil catalog means DefaultCatalog and nil terms
// mean DefaultTerms.
func New(opts Options) (*Estimator, error) {
	catalog := opts.Catalog
	if catalog == nil {
		catalog = DefaultCatalog()
	}
	terms := DefaultTerms()
	if opts.Terms != nil {
		terms = *opts.Terms
	}

	lo, hi := defaultLatencyMin, defaultLatencyMax
	if opts.Latency != nil {
		lo, hi = opts.Latency.Min, opts.Latency.Max
	}
	if lo < 0 || hi < lo {
		return nil, fmt.Errorf("%w: latency range [%s, %s]", ErrInvalidArgument, lo, hi)
	}
	if opts.ProcessingDelay < 0 {
		return nil, fmt.Errorf("%w: negative processing delay", ErrInvalidArgument)
	}

	rng := opts.Rand
	if rng == nil {
		seed := uint64(time.Now().UnixNano())
		rng = rand.New(rand.NewPCG(seed, seed>>1|1))
	}

	return &Estimator{
		catalog:    catalog,
		classifier: NewClassifier(terms),
		latencyMin: lo,
		latencyMax: hi,
		delay:      opts.ProcessingDelay,
		rng:        rng,
	}, nil
}

// Catalog returns the catalog the estimator routes over.
func (e *Estimator) Catalog() *Catalog { return e.catalog }

// EvalOption adjusts a single evaluation.
type EvalOption func(*evalSettings)

type evalSettings struct {
	maxCost float64
}

// WithMaxCost limits selection to models costing at most maxCost per query.
// Zero disables the limit.
func WithMaxCost(maxCost float64) EvalOption {
	return func(s *evalSettings) { s.maxCost = maxCost }
}

// Evaluate classifies query, selects a model and estimates savings.
// Everything except EstimatedLatency is deterministic for a given input.
func (e *Estimator) Evaluate(query string, pref Preference, opts ...EvalOption) (RoutingResult, error) {
	if !utf8.ValidString(query) {
		return RoutingResult{}, fmt.Errorf("%w: query is not valid UTF-8", ErrInvalidArgument)
	}
	if !pref.Valid() {
		return RoutingResult{}, fmt.Errorf("%w: unknown preference %q", ErrInvalidArgument, pref)
	}

	var s evalSettings
	for _, o := range opts {
		o(&s)
	}
	if s.maxCost < 0 || math.IsNaN(s.maxCost) {
		return RoutingResult{}, fmt.Errorf("%w: max cost must not be negative", ErrInvalidArgument)
	}

	complexity := e.classifier.Classify(query)

	candidates := e.catalog
	var model string
	if s.maxCost > 0 {
		if sub, ok := e.catalog.Within(s.maxCost); ok {
			candidates = sub
			model = candidates.SelectModel(complexity, pref)
		} else {
			model = e.catalog.Cheapest()
		}
	} else {
		model = candidates.SelectModel(complexity, pref)
	}

	profile, _ := e.catalog.Get(model)
	baseline, _ := e.catalog.Get(e.catalog.MostExpensive())

	return RoutingResult{
		Query:             query,
		Complexity:        complexity,
		Preference:        pref,
		SelectedModel:     model,
		SavingsPercentage: e.catalog.EstimateSavings(model),
		EstimatedCost:     profile.CostPerQuery,
		BaselineModel:     baseline.ID,
		BaselineCost:      baseline.CostPerQuery,
		EstimatedLatency:  e.latency(),
	}, nil
}

// Simulate waits for the configured processing delay and then evaluates.
// It returns ctx.Err() if ctx ends first.
func (e *Estimator) Simulate(ctx context.Context, query string, pref Preference, opts ...EvalOption) (RoutingResult, error) {
	if e.delay > 0 {
		timer := time.NewTimer(e.delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return RoutingResult{}, ctx.Err()
		case <-timer.C:
		}
	}
	return e.Evaluate(query, pref, opts...)
}

func (e *Estimator) latency() time.Duration {
	span := int64(e.latencyMax - e.latencyMin)
	if span == 0 {
		return e.latencyMin
	}
	e.mu.Lock()
	n := e.rng.Int64N(span + 1)
	e.mu.Unlock()
	return e.latencyMin + time.Duration(n)
}
