package actionpipe

import "sync"

// controlKind marks which steering call a handler made last, implementing
// the "last write wins" rule between Abort and Return.
type controlKind int

const (
	controlNone controlKind = iota
	controlAbort
	controlReturn
)

// runContext is the mutable shared state of one dispatch. It is created per
// dispatch and never shared across dispatches. All mutation funnels through
// Controller methods; strategies only poll the flags at handler boundaries.
type runContext struct {
	mu sync.Mutex

	action   string
	mode     ExecutionMode
	handlers []*Registration

	payload any

	aborted     bool
	abortReason string

	terminated     bool
	terminalResult any

	lastControl controlKind

	// raceDone is set in race mode when the first handler settles.
	raceDone   bool
	raceResult any
	raceErr    error

	jumpTarget    float64
	jumpRequested bool

	results []any
}

func newRunContext(action string, mode ExecutionMode, payload any, handlers []*Registration) *runContext {
	return &runContext{
		action:   action,
		mode:     mode,
		payload:  payload,
		handlers: handlers,
	}
}

// settled reports whether the run has been aborted, terminated, or (in race
// mode) decided. Strategies check this before invoking the next handler.
func (rc *runContext) settled() bool {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return rc.aborted || rc.terminated || rc.raceDone
}

func (rc *runContext) currentPayload() any {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return rc.payload
}

func (rc *runContext) abort(reason string) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	rc.aborted = true
	rc.abortReason = reason
	rc.lastControl = controlAbort
}

func (rc *runContext) terminate(v any) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	rc.terminated = true
	rc.terminalResult = v
	rc.lastControl = controlReturn
}

// settleRace records the first settlement in race mode. Later calls are
// no-ops.
func (rc *runContext) settleRace(result any, err error) bool {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	if rc.raceDone {
		return false
	}
	rc.raceDone = true
	rc.raceResult = result
	rc.raceErr = err
	return true
}

func (rc *runContext) requestJump(p float64) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	rc.jumpTarget = p
	rc.jumpRequested = true
}

func (rc *runContext) jump() (float64, bool) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return rc.jumpTarget, rc.jumpRequested
}

func (rc *runContext) clearJump() {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	rc.jumpRequested = false
}

// appendResult adds a value to the result sequence. Once the run has
// settled, parallel and race modes stop accepting results from non-blocking
// handlers; sequential appends are always accepted because the handler that
// produced the value was already awaited.
func (rc *runContext) appendResult(v any, blocking bool) bool {
	rc.mu.Lock()
	defer rc.mu.Unlock()

	closed := rc.aborted || rc.terminated || rc.raceDone
	if closed && rc.mode != ModeSequential && !blocking {
		return false
	}
	rc.results = append(rc.results, v)
	return true
}

// resultsSnapshot returns a copy of the results collected so far.
func (rc *runContext) resultsSnapshot() []any {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	if len(rc.results) == 0 {
		return nil
	}
	out := make([]any, len(rc.results))
	copy(out, rc.results)
	return out
}

// mergeLast replaces the last appended result with fn(prior, last).
// A panic inside fn leaves the result sequence unchanged.
func (rc *runContext) mergeLast(fn func(prior []any, last any) any) {
	rc.mu.Lock()
	defer rc.mu.Unlock()

	if len(rc.results) == 0 || fn == nil {
		return
	}

	last := rc.results[len(rc.results)-1]
	prior := make([]any, len(rc.results)-1)
	copy(prior, rc.results[:len(rc.results)-1])

	defer func() {
		_ = recover()
	}()
	rc.results[len(rc.results)-1] = fn(prior, last)
}

// replacePayload swaps the payload with fn(current). A panic inside fn
// retains the previous payload and is swallowed at this call site.
func (rc *runContext) replacePayload(fn func(any) any) {
	if fn == nil {
		return
	}

	rc.mu.Lock()
	defer rc.mu.Unlock()

	defer func() {
		_ = recover()
	}()
	rc.payload = fn(rc.payload)
}
