package guard

import (
	"sync"
	"time"
)

// state is the per-key timer state.
type state struct {
	lastExecuted time.Time
	throttled    bool
	resetTimer   *time.Timer

	debounceTimer *time.Timer
	waiter        chan bool
}

// Guard tracks debounce and throttle windows per key.
//
// Thread-safety: all methods are safe for concurrent use.
type Guard struct {
	mu   sync.Mutex
	keys map[string]*state
}

// New creates an empty guard.
func New() *Guard {
	return &Guard{
		keys: make(map[string]*state),
	}
}

// Debounce blocks until the key has been quiet for d and then returns true,
// unless a newer Debounce call for the same key arrives first, in which
// case this call returns false immediately when superseded.
//
// Only the most recent caller of a burst can resolve true; every superseded
// caller resolves false.
func (g *Guard) Debounce(key string, d time.Duration) bool {
	g.mu.Lock()
	st := g.state(key)

	// Cancel-and-replace: the prior timer never fires and the prior
	// waiter resolves false right away.
	if st.debounceTimer != nil {
		st.debounceTimer.Stop()
		st.debounceTimer = nil
	}
	if st.waiter != nil {
		st.waiter <- false
		st.waiter = nil
	}

	ch := make(chan bool, 1)
	st.waiter = ch
	st.debounceTimer = time.AfterFunc(d, func() {
		g.mu.Lock()
		// Resolve only if this timer is still the current one.
		if st.waiter == ch {
			st.waiter = nil
			st.debounceTimer = nil
			st.lastExecuted = time.Now()
			ch <- true
		}
		g.mu.Unlock()
	})
	g.mu.Unlock()

	return <-ch
}

// Throttle returns true if the key is outside its throttle window, starting
// a new window of length d; otherwise false. Overlapping calls share a
// single pending reset timer per key.
func (g *Guard) Throttle(key string, d time.Duration) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	st := g.state(key)
	if st.throttled {
		return false
	}

	st.throttled = true
	st.lastExecuted = time.Now()
	st.resetTimer = time.AfterFunc(d, func() {
		g.mu.Lock()
		st.throttled = false
		st.resetTimer = nil
		g.mu.Unlock()
	})
	return true
}

// Pending reports whether the key has a debounce caller waiting.
func (g *Guard) Pending(key string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	st, ok := g.keys[key]
	return ok && st.waiter != nil
}

// LastExecuted returns when the key last passed a guard check.
// The zero time means never.
func (g *Guard) LastExecuted(key string) time.Time {
	g.mu.Lock()
	defer g.mu.Unlock()

	st, ok := g.keys[key]
	if !ok {
		return time.Time{}
	}
	return st.lastExecuted
}

// Clear cancels the key's outstanding timers and resolves any pending
// debounce caller with false.
func (g *Guard) Clear(key string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	st, ok := g.keys[key]
	if !ok {
		return
	}
	g.clearLocked(st)
	delete(g.keys, key)
}

// ClearAll cancels every outstanding timer and resolves all pending
// debounce callers with false.
func (g *Guard) ClearAll() {
	g.mu.Lock()
	defer g.mu.Unlock()

	for _, st := range g.keys {
		g.clearLocked(st)
	}
	g.keys = make(map[string]*state)
}

func (g *Guard) clearLocked(st *state) {
	if st.debounceTimer != nil {
		st.debounceTimer.Stop()
		st.debounceTimer = nil
	}
	if st.waiter != nil {
		st.waiter <- false
		st.waiter = nil
	}
	if st.resetTimer != nil {
		st.resetTimer.Stop()
		st.resetTimer = nil
	}
	st.throttled = false
}

// state returns the key's state, creating it if needed. Caller holds mu.
func (g *Guard) state(key string) *state {
	st, ok := g.keys[key]
	if !ok {
		st = &state{}
		g.keys[key] = st
	}
	return st
}
