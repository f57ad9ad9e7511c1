package usage

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"
)

type fakeStore struct {
	mu        sync.Mutex
	decisions []Decision
	err       error
	stats     Stats
}

func (f *fakeStore) Record(_ context.Context, d Decision) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.decisions = append(f.decisions, d)
	return nil
}

func (f *fakeStore) Stats(_ context.Context, _ string, _ time.Time) (Stats, error) {
	return f.stats, f.err
}

func (f *fakeStore) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.decisions)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRecorder_RecordsDecision(t *testing.T) {
	store := &fakeStore{}
	r := NewRecorder(store, nil, time.Second, quietLogger())

	r.Record(context.Background(), Decision{ID: "d-1", KeyID: "key-1", SelectedModel: "gpt-j"})
	r.Wait()

	if store.count() != 1 {
		t.Fatalf("expected 1 decision, got %d", store.count())
	}
	if store.decisions[0].SelectedModel != "gpt-j" {
		t.Errorf("unexpected decision: %+v", store.decisions[0])
	}
}

func TestRecorder_SurvivesCancelledRequestContext(t *testing.T) {
	store := &fakeStore{}
	r := NewRecorder(store, nil, time.Second, quietLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r.Record(ctx, Decision{ID: "d-1", KeyID: "key-1"})
	r.Wait()

	if store.count() != 1 {
		t.Errorf("expected write to outlive request context, got %d decisions", store.count())
	}
}

func TestRecorder_BreakerOpensOnFailures(t *testing.T) {
	store := &fakeStore{err: errors.New("connection refused")}
	breaker := NewBreaker(2, time.Hour)
	r := NewRecorder(store, breaker, time.Second, quietLogger())

	for i := 0; i < 2; i++ {
		r.Record(context.Background(), Decision{ID: "d"})
		r.Wait()
	}
	if breaker.State() != StateOpen {
		t.Fatalf("expected breaker open, got %s", breaker.State())
	}

	store.mu.Lock()
	store.err = nil
	store.mu.Unlock()

	r.Record(context.Background(), Decision{ID: "dropped"})
	r.Wait()
	if store.count() != 0 {
		t.Errorf("expected decision to be dropped while breaker is open, got %d", store.count())
	}
}

func TestRecorder_NilStore(t *testing.T) {
	r := NewRecorder(nil, nil, 0, quietLogger())
	r.Record(context.Background(), Decision{ID: "d-1"})
	r.Wait()

	if _, err := r.Stats(context.Background(), "key-1", time.Now()); !errors.Is(err, ErrUnavailable) {
		t.Errorf("expected ErrUnavailable, got %v", err)
	}
}

func TestRecorder_Stats(t *testing.T) {
	store := &fakeStore{stats: Stats{TotalQueries: 3, QueriesByModel: map[string]int64{"gpt-j": 3}}}
	r := NewRecorder(store, nil, time.Second, quietLogger())

	stats, err := r.Stats(context.Background(), "key-1", time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.TotalQueries != 3 || stats.QueriesByModel["gpt-j"] != 3 {
		t.Errorf("unexpected stats: %+v", stats)
	}
}

func TestMonthStart(t *testing.T) {
	got := MonthStart(time.Date(2026, time.October, 17, 15, 4, 5, 0, time.UTC))
	want := time.Date(2026, time.October, 1, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("MonthStart = %s, want %s", got, want)
	}
}
