// Package ratelimit implements the self-imposed per-second request
// budget applied before each remote submission. The budget is keyed to
// the wall-clock second, an approximation of the service's own
// per-second limit rather than a sliding window.
package ratelimit

import (
	"fmt"
	"sync"
	"time"

	"github.com/phpnexus/cwh/internal/metrics"
)

// State is the rolling one-second request budget.
type State struct {
	// Remaining is the number of submissions still allowed in the
	// current window.
	Remaining int

	// Window is the Unix second of the last recorded attempt.
	Window int64
}

// Advance computes the state after one submission attempt at now.
// pause reports whether the caller must block for a full second before
// proceeding. The returned state already accounts for the attempt: a
// window reset leaves ceiling-1 slots so that exactly ceiling attempts
// pass per wall-clock second.
func Advance(s State, ceiling int, now time.Time) (next State, pause bool) {
	sec := now.Unix()
	switch {
	case sec == s.Window && s.Remaining > 0:
		return State{Remaining: s.Remaining - 1, Window: sec}, false
	case sec == s.Window:
		return State{Remaining: ceiling - 1, Window: sec}, true
	default:
		return State{Remaining: ceiling - 1, Window: sec}, false
	}
}

// Limiter throttles submissions to a fixed number per wall-clock
// second. A ceiling of 0 disables throttling entirely. Limiter is safe
// for concurrent use.
type Limiter struct {
	ceiling int

	mu    sync.Mutex
	state State

	// Injectable for tests.
	now   func() time.Time
	sleep func(time.Duration)
}

// New creates a Limiter with the given requests-per-second ceiling.
// A negative ceiling is a configuration error.
func New(ceiling int) (*Limiter, error) {
	if ceiling < 0 {
		return nil, fmt.Errorf("requests-per-second ceiling must not be negative, got %d", ceiling)
	}
	return &Limiter{
		ceiling: ceiling,
		state:   State{Window: -1},
		now:     time.Now,
		sleep:   time.Sleep,
	}, nil
}

// Throttle blocks, when necessary, until the current submission attempt
// fits the budget. Called immediately before every remote submission.
func (l *Limiter) Throttle() {
	if l.ceiling == 0 {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	next, pause := Advance(l.state, l.ceiling, l.now())
	if pause {
		metrics.ThrottlePauses.Add(1)
		l.sleep(time.Second)
		next.Window = l.now().Unix()
	}
	l.state = next
}
