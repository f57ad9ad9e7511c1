package estimator

import (
	"context"
	"errors"
	"math/rand/v2"
	"testing"
	"time"
)

func newTestEstimator(t *testing.T, opts Options) *Estimator {
	t.Helper()
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewPCG(1, 2))
	}
	e, err := New(opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return e
}

func TestEvaluate_EmptyQuery(t *testing.T) {
	e := newTestEstimator(t, Options{})

	res, err := e.Evaluate("", PreferCost)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Complexity != ComplexityLow {
		t.Errorf("complexity = %s, want low", res.Complexity)
	}
	if res.SelectedModel != "gpt-j" {
		t.Errorf("selected = %s, want gpt-j", res.SelectedModel)
	}
	if res.SavingsPercentage != 100 {
		t.Errorf("savings = %d, want 100", res.SavingsPercentage)
	}
	if res.EstimatedCost != 0.0002 {
		t.Errorf("cost = %v, want 0.0002", res.EstimatedCost)
	}
	if res.BaselineModel != "gpt-4" || res.BaselineCost != 0.06 {
		t.Errorf("baseline = %s/%v, want gpt-4/0.06", res.BaselineModel, res.BaselineCost)
	}
}

func TestEvaluate_Scenarios(t *testing.T) {
	e := newTestEstimator(t, Options{})

	tests := []struct {
		name       string
		query      string
		pref       Preference
		complexity Complexity
		model      string
	}{
		{"algorithm three words", "sort algorithm question", PreferBalanced, ComplexityHigh, "gpt-4"},
		{"sixty plain words", words(60), PreferBalanced, ComplexityHigh, "gpt-4"},
		{"high beats cost", "write some code", PreferCost, ComplexityHigh, "gpt-4"},
		{"partial term stays low", "Explain quantum computing in detail", PreferCost, ComplexityLow, "gpt-j"},
		{"medium cost goes balanced", "a detailed summary", PreferCost, ComplexityMedium, "gpt-3.5"},
		{"quality on low", "hello", PreferQuality, ComplexityLow, "gpt-4"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := e.Evaluate(tt.query, tt.pref)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if res.Complexity != tt.complexity {
				t.Errorf("complexity = %s, want %s", res.Complexity, tt.complexity)
			}
			if res.SelectedModel != tt.model {
				t.Errorf("model = %s, want %s", res.SelectedModel, tt.model)
			}
		})
	}
}

func TestEvaluate_Idempotent(t *testing.T) {
	e := newTestEstimator(t, Options{})
	q := "Give me a comprehensive comparison"

	a, err := e.Evaluate(q, PreferBalanced)
	if err != nil {
		t.Fatal(err)
	}
	b, err := e.Evaluate(q, PreferBalanced)
	if err != nil {
		t.Fatal(err)
	}
	if a.Complexity != b.Complexity || a.SelectedModel != b.SelectedModel || a.SavingsPercentage != b.SavingsPercentage {
		t.Errorf("results differ: %+v vs %+v", a, b)
	}
}

func TestEvaluate_InvalidArguments(t *testing.T) {
	e := newTestEstimator(t, Options{})

	if _, err := e.Evaluate("hi", Preference("fast")); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("unknown preference: expected ErrInvalidArgument, got %v", err)
	}
	if _, err := e.Evaluate("hi", Preference("")); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("empty preference: expected ErrInvalidArgument, got %v", err)
	}
	if _, err := e.Evaluate("bad \xff bytes", PreferBalanced); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("invalid utf8: expected ErrInvalidArgument, got %v", err)
	}
	if _, err := e.Evaluate("hi", PreferBalanced, WithMaxCost(-1)); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("negative max cost: expected ErrInvalidArgument, got %v", err)
	}
}

func TestEvaluate_MaxCost(t *testing.T) {
	e := newTestEstimator(t, Options{})

	res, err := e.Evaluate("write code", PreferQuality, WithMaxCost(0.002))
	if err != nil {
		t.Fatal(err)
	}
	if res.SelectedModel != "gpt-3.5" {
		t.Errorf("selected = %s, want gpt-3.5 under 0.002 limit", res.SelectedModel)
	}
	if res.SavingsPercentage != 97 {
		t.Errorf("savings should be measured against full catalog, got %d", res.SavingsPercentage)
	}

	res, err = e.Evaluate("write code", PreferQuality, WithMaxCost(0.00001))
	if err != nil {
		t.Fatal(err)
	}
	if res.SelectedModel != "gpt-j" {
		t.Errorf("selected = %s, want cheapest fallback gpt-j", res.SelectedModel)
	}
}

func TestEvaluate_LatencyInRange(t *testing.T) {
	e := newTestEstimator(t, Options{Latency: &LatencyRange{Min: 100 * time.Millisecond, Max: 300 * time.Millisecond}})

	for i := 0; i < 50; i++ {
		res, err := e.Evaluate("hi", PreferBalanced)
		if err != nil {
			t.Fatal(err)
		}
		if res.EstimatedLatency < 100*time.Millisecond || res.EstimatedLatency > 300*time.Millisecond {
			t.Fatalf("latency %s out of range", res.EstimatedLatency)
		}
	}
}

func TestEvaluate_FixedLatency(t *testing.T) {
	e := newTestEstimator(t, Options{Latency: &LatencyRange{Min: 50 * time.Millisecond, Max: 50 * time.Millisecond}})
	res, _ := e.Evaluate("hi", PreferBalanced)
	if res.EstimatedLatency != 50*time.Millisecond {
		t.Errorf("latency = %s, want 50ms", res.EstimatedLatency)
	}
}

func TestEvaluate_ZeroLatency(t *testing.T) {
	e := newTestEstimator(t, Options{Latency: &LatencyRange{}})
	res, err := e.Evaluate("hi", PreferBalanced)
	if err != nil {
		t.Fatal(err)
	}
	if res.EstimatedLatency != 0 {
		t.Errorf("latency = %s, want 0", res.EstimatedLatency)
	}
}

func TestEvaluate_DefaultLatencyRange(t *testing.T) {
	e := newTestEstimator(t, Options{})
	for i := 0; i < 50; i++ {
		res, _ := e.Evaluate("hi", PreferBalanced)
		if res.EstimatedLatency < 200*time.Millisecond || res.EstimatedLatency > 1200*time.Millisecond {
			t.Fatalf("latency %s outside default range", res.EstimatedLatency)
		}
	}
}

func TestNew_InvalidOptions(t *testing.T) {
	if _, err := New(Options{Latency: &LatencyRange{Min: time.Second, Max: time.Millisecond}}); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("inverted range: expected ErrInvalidArgument, got %v", err)
	}
	if _, err := New(Options{ProcessingDelay: -time.Second}); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("negative delay: expected ErrInvalidArgument, got %v", err)
	}
}

func TestNew_CustomCatalog(t *testing.T) {
	c, err := NewCatalog([]ModelProfile{
		{ID: "small", CostPerQuery: 0.001, QualityScore: 0.5, SpeedScore: 0.9},
		{ID: "large", CostPerQuery: 0.01, QualityScore: 0.9, SpeedScore: 0.4},
	})
	if err != nil {
		t.Fatal(err)
	}
	e := newTestEstimator(t, Options{Catalog: c})

	res, err := e.Evaluate("", PreferCost)
	if err != nil {
		t.Fatal(err)
	}
	if res.SelectedModel != "small" {
		t.Errorf("selected = %s, want small", res.SelectedModel)
	}
	if res.SavingsPercentage != 90 {
		t.Errorf("savings = %d, want 90", res.SavingsPercentage)
	}
	if e.Catalog() != c {
		t.Error("expected injected catalog to be used")
	}
}

func TestSimulate_WaitsForDelay(t *testing.T) {
	e := newTestEstimator(t, Options{ProcessingDelay: 20 * time.Millisecond})

	start := time.Now()
	res, err := e.Simulate(context.Background(), "hello", PreferBalanced)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 20*time.Millisecond {
		t.Errorf("returned after %s, expected at least 20ms", elapsed)
	}
	if res.SelectedModel == "" {
		t.Error("expected a selected model")
	}
}

func TestSimulate_Cancelled(t *testing.T) {
	e := newTestEstimator(t, Options{ProcessingDelay: time.Minute})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := e.Simulate(ctx, "hello", PreferBalanced)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestParsePreference(t *testing.T) {
	tests := []struct {
		in      string
		want    Preference
		wantErr bool
	}{
		{"", PreferBalanced, false},
		{"cost", PreferCost, false},
		{"quality", PreferQuality, false},
		{"balanced", PreferBalanced, false},
		{"speed", PreferSpeed, false},
		{"Cost", "", true},
		{"cheap", "", true},
	}
	for _, tt := range tests {
		got, err := ParsePreference(tt.in)
		if tt.wantErr {
			if !errors.Is(err, ErrInvalidArgument) {
				t.Errorf("ParsePreference(%q) expected ErrInvalidArgument, got %v", tt.in, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParsePreference(%q) unexpected error: %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParsePreference(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}
