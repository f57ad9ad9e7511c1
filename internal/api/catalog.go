package api

import (
	"net/http"

	"github.com/nowgo-ai/nowgo-platform/internal/config"
	"github.com/nowgo-ai/nowgo-platform/internal/httputil"
	"github.com/nowgo-ai/nowgo-platform/internal/types"
)

// ListModels handles GET /v1/models. Models are ordered by cost.
func (h *Handler) ListModels(w http.ResponseWriter, r *http.Request) {
	profiles := h.estimator().Catalog().Models()
	models := make([]types.Model, 0, len(profiles))
	for _, p := range profiles {
		models = append(models, types.Model{
			Name:         p.ID,
			Description:  p.Description,
			CostPerQuery: p.CostPerQuery,
			QualityScore: p.QualityScore,
			SpeedScore:   p.SpeedScore,
			MaxTokens:    p.MaxTokens,
		})
	}
	httputil.WriteJSON(w, map[string]any{"models": models})
}

// Pricing handles GET /v1/pricing. It needs no authentication.
func (h *Handler) Pricing(w http.ResponseWriter, r *http.Request) {
	plans := []config.Plan{}
	if cfg := h.plans(); cfg != nil {
		plans = append(plans, cfg.Plans...)
	}
	httputil.WriteJSON(w, plans)
}
