package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/nowgo-ai/nowgo-platform/internal/auth"
	"github.com/nowgo-ai/nowgo-platform/internal/estimator"
	"github.com/nowgo-ai/nowgo-platform/internal/filter"
	"github.com/nowgo-ai/nowgo-platform/internal/httputil"
	"github.com/nowgo-ai/nowgo-platform/internal/telemetry"
	"github.com/nowgo-ai/nowgo-platform/internal/types"
	"github.com/nowgo-ai/nowgo-platform/internal/usage"
)

const responseQueryRunes = 50

// Route handles POST /v1/route and its legacy alias POST /optimize.
func (h *Handler) Route(w http.ResponseWriter, r *http.Request) {
	reqID := w.Header().Get("X-Request-ID")
	receivedAt := h.now()

	authInfo, ok := auth.AuthFromContext(r.Context())
	if !ok {
		httputil.WriteAuthError(w, reqID, "Not authenticated")
		return
	}

	if limit := h.cfg().Routing.MaxQueryBytes; limit > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, limit)
	}
	defer r.Body.Close()

	var req types.RouteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			httputil.WriteBadRequestError(w, reqID, fmt.Sprintf("Request body exceeds %d bytes", tooLarge.Limit))
			return
		}
		httputil.WriteBadRequestError(w, reqID, "Invalid JSON: "+err.Error())
		return
	}

	pref, err := estimator.ParsePreference(req.EffectivePreference())
	if err != nil {
		httputil.WriteBadRequestError(w, reqID, err.Error())
		return
	}
	if req.MaxCost < 0 {
		httputil.WriteBadRequestError(w, reqID, "max_cost must not be negative")
		return
	}

	req.RequestID = reqID
	req.APIKeyID = authInfo.KeyID
	req.UserID = authInfo.UserID
	req.Plan = authInfo.Plan
	req.Preference = string(pref)
	req.ReceivedAt = receivedAt

	results, blocked := h.preFilters.Run(r.Context(), &req)
	if blocked != nil {
		h.rejectByFilter(w, &req, blocked)
		return
	}

	result, err := h.estimator().Simulate(r.Context(), req.Query, pref, estimator.WithMaxCost(req.MaxCost))
	if err != nil {
		if errors.Is(err, estimator.ErrInvalidArgument) {
			httputil.WriteBadRequestError(w, reqID, err.Error())
			return
		}
		if r.Context().Err() != nil {
			slog.Info("client went away during routing", "request_id", reqID, "key_id", authInfo.KeyID)
			return
		}
		slog.Error("routing failed", "request_id", reqID, "error", err)
		httputil.WriteInternalError(w, reqID, "Routing failed")
		return
	}

	req.Complexity = string(result.Complexity)
	req.SelectedModel = result.SelectedModel

	postResults, blocked := h.postFilters.Run(r.Context(), &req)
	results = append(results, postResults...)
	if blocked != nil {
		h.rejectByFilter(w, &req, blocked)
		return
	}

	now := h.now()
	resp := types.RouteResponse{
		RequestID:          reqID,
		Query:              req.Query,
		Complexity:         string(result.Complexity),
		Preference:         string(result.Preference),
		SelectedModel:      result.SelectedModel,
		SavingsPercentage:  result.SavingsPercentage,
		EstimatedCost:      result.EstimatedCost,
		BaselineModel:      result.BaselineModel,
		EstimatedLatencyMs: result.EstimatedLatency.Milliseconds(),
		Response:           mockResponse(result.Complexity, req.Query, result.SelectedModel),
		Timestamp:          now.UTC().Format(time.RFC3339),
		FilterActions:      filter.Summarize(results),
	}

	h.usage.Record(r.Context(), usage.Decision{
		ID:                h.newID(),
		KeyID:             authInfo.KeyID,
		UserID:            authInfo.UserID,
		Complexity:        resp.Complexity,
		Preference:        resp.Preference,
		SelectedModel:     resp.SelectedModel,
		Cost:              result.EstimatedCost,
		BaselineCost:      result.BaselineCost,
		SavingsPercentage: result.SavingsPercentage,
		LatencyMs:         resp.EstimatedLatencyMs,
		CreatedAt:         now,
	})

	slog.Info("query routed",
		"request_id", reqID,
		"key_id", authInfo.KeyID,
		"plan", authInfo.Plan,
		"query_len", len(req.Query),
		"complexity", resp.Complexity,
		"preference", resp.Preference,
		"selected_model", resp.SelectedModel,
		"savings_percentage", resp.SavingsPercentage,
		"estimated_cost_usd", resp.EstimatedCost,
		"duration_ms", now.Sub(receivedAt).Milliseconds(),
	)

	if h.metrics != nil {
		h.metrics.RecordRoute(telemetry.RouteLabels{
			Complexity: resp.Complexity,
			Model:      resp.SelectedModel,
			Preference: resp.Preference,
			Status:     "ok",
			Savings:    resp.SavingsPercentage,
			CostUSD:    resp.EstimatedCost,
		})
	}

	httputil.WriteJSON(w, resp)
}

func (h *Handler) rejectByFilter(w http.ResponseWriter, req *types.RouteRequest, blocked *filter.Result) {
	slog.Warn("request blocked by filter",
		"request_id", req.RequestID,
		"key_id", req.APIKeyID,
		"filter", blocked.FilterName,
		"detections", blocked.Detections,
		"selected_model", req.SelectedModel,
	)
	if h.metrics != nil {
		h.metrics.RecordFilterAction(blocked.FilterName, string(blocked.Action))
		h.metrics.RecordRoute(telemetry.RouteLabels{
			Complexity: req.Complexity,
			Model:      req.SelectedModel,
			Preference: req.Preference,
			Status:     blocked.FilterName + "_blocked",
		})
	}

	if blocked.FilterName == "policy" {
		httputil.WritePolicyDeniedError(w, req.RequestID, blocked.Message)
		return
	}
	httputil.WriteContentBlockedError(w, req.RequestID, blocked.Message)
}

// mockResponse stands in for a model answer. No model is called.
func mockResponse(c estimator.Complexity, query, model string) string {
	q := truncateRunes(query, responseQueryRunes)
	switch c {
	case estimator.ComplexityHigh:
		return fmt.Sprintf("This is a comprehensive analysis of your complex query: '%s...'. The system has automatically selected %s to ensure optimal quality while managing costs effectively.", q, model)
	case estimator.ComplexityLow:
		return fmt.Sprintf("Quick response: '%s...'. The system optimized for cost by selecting %s while maintaining adequate quality for this simple query.", q, model)
	default:
		return fmt.Sprintf("Here's a balanced response to your query: '%s...'. Using %s provides the right mix of quality and cost efficiency for this type of request.", q, model)
	}
}

func truncateRunes(s string, n int) string {
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
