// Package policy evaluates routing decisions against OPA Rego policies.
package policy

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/open-policy-agent/opa/rego"

	"github.com/nowgo-ai/nowgo-platform/internal/config"
	"github.com/nowgo-ai/nowgo-platform/internal/filter"
	"github.com/nowgo-ai/nowgo-platform/internal/types"
)

const decisionQuery = "[data.nowgo.policy.allow, data.nowgo.policy.reason]"

// Input is the document policies see as `input`.
type Input struct {
	Key     KeyInput     `json:"key"`
	Request RequestInput `json:"request"`
	Time    TimeInput    `json:"time"`
}

type KeyInput struct {
	ID     string `json:"id"`
	UserID string `json:"user_id"`
	Plan   string `json:"plan"`
}

type RequestInput struct {
	Preference    string  `json:"preference"`
	Complexity    string  `json:"complexity"`
	SelectedModel string  `json:"selected_model"`
	MaxCost       float64 `json:"max_cost,omitempty"`
}

type TimeInput struct {
	Hour int    `json:"hour"`
	Day  string `json:"day"`
}

// Evaluator implements filter.Filter using OPA.
type Evaluator struct {
	mu       sync.RWMutex
	prepared *rego.PreparedEvalQuery
	cfg      func() config.PolicyFilterConfig
	now      func() time.Time
}

// NewEvaluator creates a policy evaluator. Call Load to compile policies.
func NewEvaluator(cfg func() config.PolicyFilterConfig) *Evaluator {
	return &Evaluator{cfg: cfg, now: time.Now}
}

func (e *Evaluator) Name() string  { return "policy" }
func (e *Evaluator) Enabled() bool { return e.cfg().Enabled }

// Load compiles every .rego file under the configured bundle path.
func (e *Evaluator) Load(ctx context.Context) error {
	path := e.cfg().BundlePath
	modules, err := LoadRegoFiles(path)
	if err != nil {
		return fmt.Errorf("load rego files: %w", err)
	}
	if len(modules) == 0 {
		slog.Warn("no rego files found", "path", path)
		return nil
	}
	if err := e.LoadFromModules(ctx, modules); err != nil {
		return err
	}
	slog.Info("opa policies loaded", "path", path, "modules", len(modules))
	return nil
}

// LoadFromModules compiles the given module sources, keyed by file name.
func (e *Evaluator) LoadFromModules(ctx context.Context, modules map[string]string) error {
	opts := []func(*rego.Rego){rego.Query(decisionQuery)}
	for name, src := range modules {
		opts = append(opts, rego.Module(name, src))
	}

	prepared, err := rego.New(opts...).PrepareForEval(ctx)
	if err != nil {
		return fmt.Errorf("prepare rego: %w", err)
	}

	e.mu.Lock()
	e.prepared = &prepared
	e.mu.Unlock()
	return nil
}

// Evaluate runs the loaded policy. Without a loaded policy every request is denied.
func (e *Evaluator) Evaluate(ctx context.Context, input Input) (bool, string, error) {
	e.mu.RLock()
	prepared := e.prepared
	e.mu.RUnlock()

	if prepared == nil {
		return false, "no policies loaded", nil
	}

	timeout := e.cfg().EvaluationTimeout
	if timeout <= 0 {
		timeout = 100 * time.Millisecond
	}
	evalCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	results, err := prepared.Eval(evalCtx, rego.EvalInput(input))
	if err != nil {
		return false, "", fmt.Errorf("evaluate policy: %w", err)
	}
	if len(results) == 0 || len(results[0].Expressions) == 0 {
		return false, "no policy result", nil
	}

	arr, ok := results[0].Expressions[0].Value.([]interface{})
	if !ok || len(arr) < 2 {
		return false, "unexpected policy result format", nil
	}

	allowed, _ := arr[0].(bool)
	reason, _ := arr[1].(string)
	return allowed, reason, nil
}

// ScanRequest implements filter.Filter. It expects the routing decision to
// be filled in on req.
func (e *Evaluator) ScanRequest(ctx context.Context, req *types.RouteRequest) filter.Result {
	now := e.now().UTC()
	input := Input{
		Key: KeyInput{ID: req.APIKeyID, UserID: req.UserID, Plan: req.Plan},
		Request: RequestInput{
			Preference:    req.EffectivePreference(),
			Complexity:    req.Complexity,
			SelectedModel: req.SelectedModel,
			MaxCost:       req.MaxCost,
		},
		Time: TimeInput{Hour: now.Hour(), Day: now.Weekday().String()},
	}

	allowed, reason, err := e.Evaluate(ctx, input)
	if err != nil {
		slog.Error("policy evaluation failed", "request_id", req.RequestID, "error", err)
		return filter.Result{
			Action:     filter.ActionBlock,
			FilterName: e.Name(),
			Message:    "Policy evaluation failed",
		}
	}
	if !allowed {
		return filter.Result{
			Action:     filter.ActionBlock,
			FilterName: e.Name(),
			Message:    "Request denied by policy: " + reason,
		}
	}
	return filter.Result{Action: filter.ActionPass, FilterName: e.Name()}
}
