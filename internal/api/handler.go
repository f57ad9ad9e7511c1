// Package api implements the NowGo HTTP endpoints.
package api

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/nowgo-ai/nowgo-platform/internal/config"
	"github.com/nowgo-ai/nowgo-platform/internal/estimator"
	"github.com/nowgo-ai/nowgo-platform/internal/filter"
	"github.com/nowgo-ai/nowgo-platform/internal/ratelimit"
	"github.com/nowgo-ai/nowgo-platform/internal/telemetry"
	"github.com/nowgo-ai/nowgo-platform/internal/usage"
)

// Deps are the collaborators of a Handler. Only Config and Estimator are
// required; everything else degrades to a no-op when nil.
type Deps struct {
	Config    func() *config.Config
	Plans     func() *config.PlansConfig
	Estimator *estimator.Estimator

	// PreFilters run on the raw query, PostFilters on the routing decision.
	PreFilters  *filter.Chain
	PostFilters *filter.Chain

	Usage   *usage.Recorder
	Quota   *ratelimit.QuotaTracker
	Metrics *telemetry.Metrics
}

// Handler holds dependencies for the API handlers.
type Handler struct {
	est atomic.Pointer[estimator.Estimator]

	cfg         func() *config.Config
	plans       func() *config.PlansConfig
	preFilters  *filter.Chain
	postFilters *filter.Chain
	usage       *usage.Recorder
	quota       *ratelimit.QuotaTracker
	metrics     *telemetry.Metrics

	now   func() time.Time
	newID func() string
}

func NewHandler(d Deps) *Handler {
	h := &Handler{
		cfg:         d.Config,
		plans:       d.Plans,
		preFilters:  d.PreFilters,
		postFilters: d.PostFilters,
		usage:       d.Usage,
		quota:       d.Quota,
		metrics:     d.Metrics,
		now:         time.Now,
		newID:       uuid.NewString,
	}
	if h.plans == nil {
		h.plans = func() *config.PlansConfig { return nil }
	}
	if h.usage == nil {
		h.usage = usage.NewRecorder(nil, nil, 0, nil)
	}
	if h.quota == nil {
		h.quota = ratelimit.NewQuotaTracker(nil)
	}
	h.est.Store(d.Estimator)
	return h
}

// SetEstimator swaps the estimator used by subsequent requests.
func (h *Handler) SetEstimator(e *estimator.Estimator) {
	h.est.Store(e)
}

func (h *Handler) estimator() *estimator.Estimator {
	return h.est.Load()
}

// BuildEstimator assembles an estimator from the service and catalog config.
func BuildEstimator(cfg *config.Config, models *config.ModelsConfig) (*estimator.Estimator, error) {
	catalog, err := models.Catalog()
	if err != nil {
		return nil, fmt.Errorf("build catalog: %w", err)
	}
	est, err := estimator.New(estimator.Options{
		Catalog:         catalog,
		Terms:           models.EstimatorTerms(),
		Latency:         &estimator.LatencyRange{Min: cfg.Routing.LatencyMin, Max: cfg.Routing.LatencyMax},
		ProcessingDelay: cfg.Routing.ProcessingDelay,
	})
	if err != nil {
		return nil, fmt.Errorf("build estimator: %w", err)
	}
	return est, nil
}
