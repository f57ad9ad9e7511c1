package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/nowgo-ai/nowgo-platform/internal/auth"
	"github.com/nowgo-ai/nowgo-platform/internal/httputil"
	"github.com/nowgo-ai/nowgo-platform/internal/types"
	"github.com/nowgo-ai/nowgo-platform/internal/usage"
)

// Usage handles GET /v1/usage: the caller's routing activity this month.
func (h *Handler) Usage(w http.ResponseWriter, r *http.Request) {
	reqID := w.Header().Get("X-Request-ID")

	authInfo, ok := auth.AuthFromContext(r.Context())
	if !ok {
		httputil.WriteAuthError(w, reqID, "Not authenticated")
		return
	}

	since := usage.MonthStart(h.now())
	stats, err := h.usage.Stats(r.Context(), authInfo.KeyID, since)
	if err != nil {
		if errors.Is(err, usage.ErrUnavailable) {
			httputil.WriteServiceUnavailableError(w, reqID, "Usage reporting is not available")
			return
		}
		slog.Error("usage stats failed", "request_id", reqID, "key_id", authInfo.KeyID, "error", err)
		httputil.WriteInternalError(w, reqID, "Failed to load usage")
		return
	}

	used, err := h.quota.Used(r.Context(), authInfo.KeyID)
	if err != nil {
		slog.Warn("quota read failed", "request_id", reqID, "key_id", authInfo.KeyID, "error", err)
	}

	byModel := stats.QueriesByModel
	if byModel == nil {
		byModel = map[string]int64{}
	}

	httputil.WriteJSON(w, types.UsageStats{
		TotalQueries:      stats.TotalQueries,
		TotalCost:         stats.TotalCost,
		TotalSavings:      stats.TotalSavings,
		AvgResponseTimeMs: stats.AvgLatencyMs,
		QueriesByModel:    byModel,
		Period:            since.Format("2006-01"),
		RequestsUsed:      used,
		RequestsLimit:     authInfo.MonthlyRequestLimit,
	})
}
