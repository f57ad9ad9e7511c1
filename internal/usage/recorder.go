package usage

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// ErrUnavailable is returned when usage storage is not configured.
var ErrUnavailable = errors.New("usage store unavailable")

// Recorder writes decisions in the background so storage latency never
// reaches the request path. Writes are skipped while the breaker is open.
type Recorder struct {
	store   Store
	breaker *Breaker
	timeout time.Duration
	logger  *slog.Logger

	wg sync.WaitGroup
}

// NewRecorder wraps store. A nil store yields a recorder that drops every
// decision and reports ErrUnavailable for stats.
func NewRecorder(store Store, breaker *Breaker, timeout time.Duration, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	if breaker == nil {
		breaker = NewBreaker(5, 15*time.Second)
	}
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	breaker.OnStateChange(func(from, to BreakerState) {
		logger.Warn("usage breaker state changed", "from", from.String(), "to", to.String())
	})
	return &Recorder{store: store, breaker: breaker, timeout: timeout, logger: logger}
}

// Record schedules d for storage. It returns immediately.
func (r *Recorder) Record(ctx context.Context, d Decision) {
	if r.store == nil {
		return
	}
	if !r.breaker.Allow() {
		r.logger.Debug("usage breaker open, dropping decision", "decision_id", d.ID)
		return
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()

		writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.timeout)
		defer cancel()

		if err := r.store.Record(writeCtx, d); err != nil {
			r.breaker.RecordFailure()
			r.logger.Error("usage record failed", "decision_id", d.ID, "key_id", d.KeyID, "error", err)
			return
		}
		r.breaker.RecordSuccess()
	}()
}

// Stats reads aggregated usage for keyID.
func (r *Recorder) Stats(ctx context.Context, keyID string, since time.Time) (Stats, error) {
	if r.store == nil {
		return Stats{}, ErrUnavailable
	}
	return r.store.Stats(ctx, keyID, since)
}

// Wait blocks until all scheduled writes have finished.
func (r *Recorder) Wait() {
	r.wg.Wait()
}

// MonthStart returns the first instant of t's month in UTC.
func MonthStart(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), 1, 0, 0, 0, 0, time.UTC)
}
