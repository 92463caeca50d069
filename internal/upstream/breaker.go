package upstream

import (
	"errors"
	"sync"
	"time"
)

// ErrCircuitOpen is returned while the breaker rejects calls without
// touching the network.
var ErrCircuitOpen = errors.New("circuit breaker open")

type BreakerState int

const (
	StateClosed BreakerState = iota
	StateOpen
	StateHalfOpen
)

func (s BreakerState) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	}
	return "unknown"
}

type BreakerConfig struct {
	// FailureRatio opens the circuit once failures/total reaches it.
	FailureRatio float64
	// MinThroughput is the number of calls the sampling window must see
	// before the breaker may trip.
	MinThroughput int
	// SamplingWindow bounds the rolling failure window.
	SamplingWindow time.Duration
	// BreakDuration is how long an open circuit rejects calls before
	// allowing a half-open trial.
	BreakDuration time.Duration

	// OnStateChange, when set, observes every transition.
	OnStateChange func(from, to BreakerState)
}

// Breaker is a closed/open/half-open circuit breaker over a rolling failure
// window. All state is guarded by one mutex; concurrent recorders never lose
// updates.
type Breaker struct {
	mu  sync.Mutex
	cfg BreakerConfig
	now func() time.Time

	state         BreakerState
	windowStart   time.Time
	successes     int
	failures      int
	openedAt      time.Time
	trialInFlight bool
}

func NewBreaker(cfg BreakerConfig, now func() time.Time) *Breaker {
	if now == nil {
		now = time.Now
	}
	b := &Breaker{cfg: cfg, now: now}
	b.windowStart = now()
	return b
}

// Allow reports whether a call may proceed. In the open state it fails fast
// with ErrCircuitOpen until the break duration elapses, then admits a single
// half-open trial.
func (b *Breaker) Allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		return nil
	case StateOpen:
		if b.now().Sub(b.openedAt) < b.cfg.BreakDuration {
			return ErrCircuitOpen
		}
		b.transition(StateHalfOpen)
		b.trialInFlight = true
		return nil
	case StateHalfOpen:
		if b.trialInFlight {
			return ErrCircuitOpen
		}
		b.trialInFlight = true
		return nil
	}
	return nil
}

func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateHalfOpen:
		b.trialInFlight = false
		b.resetWindow()
		b.transition(StateClosed)
	case StateClosed:
		b.rollWindow()
		b.successes++
	}
}

func (b *Breaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateHalfOpen:
		b.trialInFlight = false
		b.openedAt = b.now()
		b.transition(StateOpen)
	case StateClosed:
		b.rollWindow()
		b.failures++

		total := b.successes + b.failures
		if total < b.cfg.MinThroughput {
			return
		}
		if float64(b.failures)/float64(total) >= b.cfg.FailureRatio {
			b.openedAt = b.now()
			b.transition(StateOpen)
		}
	}
}

func (b *Breaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// rollWindow discards stale counters once the sampling window has passed.
func (b *Breaker) rollWindow() {
	if b.now().Sub(b.windowStart) >= b.cfg.SamplingWindow {
		b.resetWindow()
	}
}

func (b *Breaker) resetWindow() {
	b.windowStart = b.now()
	b.successes = 0
	b.failures = 0
}

func (b *Breaker) transition(to BreakerState) {
	from := b.state
	b.state = to
	if b.cfg.OnStateChange != nil && from != to {
		b.cfg.OnStateChange(from, to)
	}
}
