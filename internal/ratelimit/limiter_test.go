package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestLimiter_NilRedis_FailOpen(t *testing.T) {
	l := NewLimiter(nil)
	result, err := l.Check(context.Background(), "test:key", 60, time.Minute)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Allowed {
		t.Error("expected allowed when Redis is nil")
	}
	if result.Remaining != 59 {
		t.Errorf("expected remaining=59, got %d", result.Remaining)
	}
}

func TestLimiter_NilRedis_MultipleChecks(t *testing.T) {
	l := NewLimiter(nil)
	// Without Redis, every check passes (fail open)
	for i := 0; i < 100; i++ {
		result, _ := l.Check(context.Background(), "test:key", 10, time.Minute)
		if !result.Allowed {
			t.Fatalf("expected allowed on check %d", i)
		}
	}
}

func TestWindowResult_Allowed(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	res := windowResult(now, time.Minute, 10, 3, true, now.Add(-10*time.Second).UnixMicro())

	if !res.Allowed {
		t.Error("expected allowed")
	}
	if res.Remaining != 7 {
		t.Errorf("expected remaining=7, got %d", res.Remaining)
	}
	if want := now.Add(50 * time.Second); !res.ResetAt.Equal(want) {
		t.Errorf("expected reset at %s, got %s", want, res.ResetAt)
	}
	if res.RetryAfter != 0 {
		t.Errorf("expected no retry-after, got %s", res.RetryAfter)
	}
}

func TestWindowResult_Denied(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	res := windowResult(now, time.Minute, 5, 5, false, now.Add(-45*time.Second).UnixMicro())

	if res.Allowed {
		t.Error("expected denied")
	}
	if res.Remaining != 0 {
		t.Errorf("expected remaining=0, got %d", res.Remaining)
	}
	if res.RetryAfter != 15*time.Second {
		t.Errorf("expected retry-after 15s, got %s", res.RetryAfter)
	}
}

func TestWindowResult_MinimumRetryAfter(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	res := windowResult(now, time.Minute, 1, 1, false, now.Add(-time.Minute+time.Millisecond).UnixMicro())

	if res.RetryAfter != time.Second {
		t.Errorf("expected retry-after floor of 1s, got %s", res.RetryAfter)
	}
}
