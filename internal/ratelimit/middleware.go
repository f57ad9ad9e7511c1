package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/nowgo-ai/nowgo-platform/internal/auth"
	"github.com/nowgo-ai/nowgo-platform/internal/httputil"
	"github.com/nowgo-ai/nowgo-platform/internal/telemetry"
)

const (
	headerRateLimitRequests          = "X-RateLimit-Limit-Requests"
	headerRateLimitRemainingRequests = "X-RateLimit-Remaining-Requests"
	headerRateLimitReset             = "X-RateLimit-Reset-Requests"
	headerQuotaLimit                 = "X-Quota-Limit"
	headerQuotaRemaining             = "X-Quota-Remaining"
	headerRetryAfter                 = "Retry-After"
)

// Middleware returns chi middleware that enforces a per-key requests-per-minute
// limit. Keys without their own limit get defaultRPM, read on every request.
func Middleware(limiter *Limiter, defaultRPM func() int, metrics *telemetry.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqID := w.Header().Get("X-Request-ID")

			authInfo, ok := auth.AuthFromContext(r.Context())
			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			rpm := defaultRPM()
			if authInfo.RPMLimit != nil {
				rpm = *authInfo.RPMLimit
			}

			result, err := limiter.Check(r.Context(), "rpm:"+authInfo.KeyID, int64(rpm), time.Minute)
			if err != nil {
				slog.Warn("rate limit check failed, allowing request",
					"request_id", reqID,
					"key_id", authInfo.KeyID,
					"error", err,
				)
			}

			w.Header().Set(headerRateLimitRequests, strconv.Itoa(rpm))
			w.Header().Set(headerRateLimitRemainingRequests, strconv.FormatInt(result.Remaining, 10))
			w.Header().Set(headerRateLimitReset, result.ResetAt.UTC().Format(time.RFC3339))

			if !result.Allowed {
				slog.Warn("rate limit exceeded",
					"request_id", reqID,
					"key_id", authInfo.KeyID,
					"dimension", "rpm",
					"limit", rpm,
				)
				if metrics != nil {
					metrics.RecordRateLimitHit("rpm")
				}
				w.Header().Set(headerRetryAfter, strconv.Itoa(int(result.RetryAfter.Seconds())))
				httputil.WriteRateLimitError(w, reqID,
					fmt.Sprintf("Rate limit exceeded: %d requests per minute. Retry after %s", rpm, result.ResetAt.UTC().Format(time.RFC3339)))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// QuotaReserver hands out and takes back monthly request slots.
type QuotaReserver interface {
	Reserve(ctx context.Context, keyID string, limit int64) (QuotaResult, error)
	Release(ctx context.Context, keyID, period string) error
}

// QuotaMiddleware enforces the key's monthly request limit. A slot is reserved
// before the handler runs and given back unless the handler answers with a
// 2xx status, so concurrent requests cannot overrun the limit.
func QuotaMiddleware(quota QuotaReserver, metrics *telemetry.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqID := w.Header().Get("X-Request-ID")

			authInfo, ok := auth.AuthFromContext(r.Context())
			if !ok || authInfo.MonthlyRequestLimit == nil {
				next.ServeHTTP(w, r)
				return
			}

			limit := int64(*authInfo.MonthlyRequestLimit)
			result, err := quota.Reserve(r.Context(), authInfo.KeyID, limit)
			reserved := err == nil
			if err != nil {
				slog.Warn("quota check failed, allowing request",
					"request_id", reqID,
					"key_id", authInfo.KeyID,
					"error", err,
				)
			}

			w.Header().Set(headerQuotaLimit, strconv.FormatInt(limit, 10))
			w.Header().Set(headerQuotaRemaining, strconv.FormatInt(max(limit-result.Used, 0), 10))

			if !result.Allowed {
				slog.Warn("monthly quota exceeded",
					"request_id", reqID,
					"key_id", authInfo.KeyID,
					"used", result.Used,
					"limit", limit,
				)
				if metrics != nil {
					metrics.RecordRateLimitHit("quota")
				}
				httputil.WriteQuotaExceededError(w, reqID,
					fmt.Sprintf("Monthly request limit reached: %d of %d. Resets %s", result.Used, limit, result.ResetAt.Format(time.RFC3339)))
				return
			}

			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			if reserved && (status < 200 || status >= 300) {
				// The client may be gone; the slot still has to come back.
				if err := quota.Release(context.WithoutCancel(r.Context()), authInfo.KeyID, result.Period); err != nil {
					slog.Warn("quota release failed",
						"request_id", reqID,
						"key_id", authInfo.KeyID,
						"error", err,
					)
				}
			}
		})
	}
}
