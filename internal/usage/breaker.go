package usage

import (
	"sync"
	"time"
)

// BreakerState is the state of a Breaker.
type BreakerState int

const (
	StateClosed   BreakerState = iota // writes flow
	StateOpen                         // writes skipped
	StateHalfOpen                     // one probe write in flight
)

func (s BreakerState) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// Breaker stops usage writes after consecutive failures and lets a single
// probe through once the recovery interval has elapsed.
type Breaker struct {
	mu sync.Mutex

	state    BreakerState
	failures int
	openedAt time.Time
	probing  bool

	threshold     int
	probeInterval time.Duration
	now           func() time.Time
	onChange      func(from, to BreakerState)
}

// NewBreaker creates a closed breaker. A threshold below 1 is treated as 1.
func NewBreaker(threshold int, probeInterval time.Duration) *Breaker {
	if threshold < 1 {
		threshold = 1
	}
	return &Breaker{
		threshold:     threshold,
		probeInterval: probeInterval,
		now:           time.Now,
	}
}

// OnStateChange registers fn to be called (with the lock held) on every transition.
func (b *Breaker) OnStateChange(fn func(from, to BreakerState)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onChange = fn
}

func (b *Breaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.current()
}

// current moves OPEN to HALF_OPEN once the probe interval has elapsed.
// Must be called with mu held.
func (b *Breaker) current() BreakerState {
	if b.state == StateOpen && b.now().Sub(b.openedAt) >= b.probeInterval {
		b.transition(StateHalfOpen)
	}
	return b.state
}

func (b *Breaker) transition(to BreakerState) {
	from := b.state
	b.state = to
	if to == StateOpen {
		b.openedAt = b.now()
	}
	if to != StateHalfOpen {
		b.probing = false
	}
	if b.onChange != nil && from != to {
		b.onChange(from, to)
	}
}

// Allow reports whether a write may be attempted. In HALF_OPEN only the
// first caller gets through until its outcome is recorded.
func (b *Breaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.current() {
	case StateClosed:
		return true
	case StateHalfOpen:
		if b.probing {
			return false
		}
		b.probing = true
		return true
	default:
		return false
	}
}

func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures = 0
	if b.state != StateClosed {
		b.transition(StateClosed)
	}
}

func (b *Breaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures++
	switch b.state {
	case StateClosed:
		if b.failures >= b.threshold {
			b.transition(StateOpen)
		}
	case StateHalfOpen:
		b.transition(StateOpen)
	}
}
