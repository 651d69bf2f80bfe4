package core

import "sync"

type LatchState int

const (
	LatchArmed LatchState = iota
	LatchConsumed
)

// Latch is a single-use trigger. The first Fire runs its callback; every
// later call is a no-op. There is no way to re-arm it.
type Latch struct {
	mu    sync.Mutex
	state LatchState
}

func NewLatch() *Latch {
	return &Latch{}
}

// Fire consumes the latch and runs fn (if non-nil) exactly once across all
// callers. It reports whether this call was the one that fired.
func (l *Latch) Fire(fn func()) bool {
	l.mu.Lock()
	if l.state == LatchConsumed {
		l.mu.Unlock()
		return false
	}
	l.state = LatchConsumed
	l.mu.Unlock()

	if fn != nil {
		fn()
	}
	return true
}

func (l *Latch) State() LatchState {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

func (l *Latch) Armed() bool {
	return l.State() == LatchArmed
}
