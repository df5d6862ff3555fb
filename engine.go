package actionpipe

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/actionpipe/actionpipe/guard"
)

// Engine is the dispatch facade tying the registry, guard, and execution
// strategies together. It is safe for concurrent use.
type Engine struct {
	registry *Registry
	guard    *guard.Guard

	mu          sync.RWMutex
	actionModes map[string]ExecutionMode
	defaultMode ExecutionMode

	defaultDebounce time.Duration
	defaultThrottle time.Duration

	logger   *slog.Logger
	recorder Recorder

	// Stats
	dispatches       atomic.Uint64
	blocked          atomic.Uint64
	handlersExecuted atomic.Uint64
	handlerErrors    atomic.Uint64
	handlerPanics    atomic.Uint64
}

// New creates an engine with the given options.
func New(opts ...Option) *Engine {
	e := &Engine{
		registry:    NewRegistry(),
		guard:       guard.New(),
		actionModes: make(map[string]ExecutionMode),
		defaultMode: ModeSequential,
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Register adds a handler to an action's pipeline and returns an idempotent
// unregister closure. A duplicate id for the same action is a no-op that
// returns an inert closure. A nil handler is also a no-op.
func (e *Engine) Register(action string, h Handler, cfg *HandlerConfig) UnregisterFunc {
	if h == nil {
		e.logger.Warn("ignoring nil handler registration", "action", action)
		return func() {}
	}
	reg := newRegistration(action, h, cfg)
	unregister := e.registry.Add(reg)
	e.logger.Debug("handler registered",
		"action", action, "handler", reg.ID, "priority", reg.Priority)
	return unregister
}

// Dispatch runs the action's pipeline fire-and-forget: all run diagnostics
// are swallowed. The returned error is non-nil only for configuration
// errors such as an unknown execution mode, reported before any handler
// runs. The context is the external cancellation token; it is checked
// before the run starts and at every handler boundary.
func (e *Engine) Dispatch(ctx context.Context, action string, payload any, opts *DispatchOptions) error {
	_, err := e.DispatchWithResult(ctx, action, payload, opts)
	return err
}

// DispatchWithResult runs the action's pipeline and returns the structured
// execution report. Handler errors never propagate as the returned error;
// they are always captured into the report. Dispatching an action with no
// registered handlers is a well-defined no-op returning a trivially
// successful report.
func (e *Engine) DispatchWithResult(ctx context.Context, action string, payload any, opts *DispatchOptions) (*ExecutionResult, error) {
	mode, err := e.resolveMode(action, opts)
	if err != nil {
		return nil, err
	}

	e.dispatches.Add(1)
	start := time.Now()
	res := &ExecutionResult{
		Action:    action,
		Mode:      mode,
		Execution: ExecutionStats{StartedAt: start},
	}

	if reason, blocked := e.checkGuards(ctx, action, opts); blocked {
		e.blocked.Add(1)
		res.Blocked = true
		res.BlockReason = reason
		e.finish(res, start)
		return res, nil
	}

	snapshot := e.registry.Snapshot(action)
	snapshot = applyFilter(snapshot, opts.filter())
	snapshot = applyConstraints(snapshot)

	if len(snapshot) == 0 {
		res.Success = true
		e.finish(res, start)
		return res, nil
	}

	rc := newRunContext(action, mode, payload, snapshot)

	runCtx := ctx
	if ro := opts.resultOptions(); ro != nil && ro.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, ro.Timeout)
		defer cancel()
	}

	e.logger.Debug("dispatching", "action", action, "mode", mode, "handlers", len(snapshot))

	var outcomes []HandlerOutcome
	switch mode {
	case ModeParallel:
		outcomes = e.runParallel(runCtx, rc)
	case ModeRace:
		outcomes = e.runRace(runCtx, rc)
	default:
		outcomes = e.runSequential(runCtx, rc)
	}

	e.cullOnce(action, snapshot, outcomes)
	e.assemble(res, rc, outcomes, opts.resultOptions())
	e.finish(res, start)
	return res, nil
}

// resolveMode applies the per-call > per-action > engine default hierarchy.
// An unknown per-call mode fails fast rather than producing a partial run.
func (e *Engine) resolveMode(action string, opts *DispatchOptions) (ExecutionMode, error) {
	if opts != nil && opts.ExecutionMode != "" {
		if !opts.ExecutionMode.valid() {
			return "", fmt.Errorf("%w: %q", ErrUnknownMode, opts.ExecutionMode)
		}
		return opts.ExecutionMode, nil
	}

	e.mu.RLock()
	defer e.mu.RUnlock()
	if mode, ok := e.actionModes[action]; ok {
		return mode, nil
	}
	return e.defaultMode, nil
}

// checkGuards consults the guard for call-level gating and the external
// cancellation token before the run starts.
func (e *Engine) checkGuards(ctx context.Context, action string, opts *DispatchOptions) (string, bool) {
	throttle := e.defaultThrottle
	debounce := e.defaultDebounce
	if opts != nil {
		if opts.Throttle > 0 {
			throttle = opts.Throttle
		}
		if opts.Debounce > 0 {
			debounce = opts.Debounce
		}
	}

	if throttle > 0 && !e.guard.Throttle(action, throttle) {
		return "throttled", true
	}
	if debounce > 0 && !e.guard.Debounce(action, debounce) {
		return "debounced", true
	}
	if err := ctx.Err(); err != nil {
		return "cancelled: " + err.Error(), true
	}
	return "", false
}

// cullOnce removes executed Once handlers from the live registry.
func (e *Engine) cullOnce(action string, snapshot []*Registration, outcomes []HandlerOutcome) {
	var executed map[*Registration]bool
	for i := range outcomes {
		if !outcomes[i].Executed {
			continue
		}
		if executed == nil {
			executed = make(map[*Registration]bool)
		}
		for _, reg := range snapshot {
			if reg.ID == outcomes[i].HandlerID {
				executed[reg] = true
				break
			}
		}
	}
	e.registry.RemoveOnce(action, executed)
}

// assemble folds the run state and per-handler outcomes into the report.
func (e *Engine) assemble(res *ExecutionResult, rc *runContext, outcomes []HandlerOutcome, ro *ResultOptions) {
	rc.mu.Lock()
	res.Aborted = rc.aborted
	res.AbortReason = rc.abortReason
	res.Terminated = rc.terminated
	res.TerminalResult = rc.terminalResult
	lastControl := rc.lastControl
	raceErr := rc.raceErr
	rc.mu.Unlock()

	res.Handlers = outcomes
	for i := range outcomes {
		out := &outcomes[i]
		switch {
		case out.Executed:
			res.Execution.HandlersExecuted++
		case out.Skipped:
			res.Execution.HandlersSkipped++
		}
		if out.Executed && out.Err != nil {
			res.Execution.HandlersFailed++
			res.Errors = append(res.Errors, HandlerError{
				HandlerID: out.HandlerID,
				Err:       out.Err,
				At:        time.Now(),
			})
			var pe *PanicError
			if errors.As(out.Err, &pe) {
				e.handlerPanics.Add(1)
			}
			e.handlerErrors.Add(1)
			e.logger.Warn("handler failed",
				"action", res.Action, "handler", out.HandlerID, "error", out.Err)
		}
	}
	e.handlersExecuted.Add(uint64(res.Execution.HandlersExecuted))

	if ro != nil && ro.Collect {
		res.Results = rc.resultsSnapshot()
		if ro.MaxResults > 0 && len(res.Results) > ro.MaxResults {
			res.Results = res.Results[:ro.MaxResults]
		}
	}
	res.Result, res.HasResult = reduceResult(rc, ro)

	// An abort makes the run unsuccessful unless a later Return overrode
	// it; both flags stay visible either way.
	abortAuthoritative := res.Aborted && lastControl != controlReturn
	res.Success = !abortAuthoritative && res.Execution.HandlersFailed == 0 && raceErr == nil
}

// finish stamps timing and reports observability events.
func (e *Engine) finish(res *ExecutionResult, start time.Time) {
	res.Execution.EndedAt = time.Now()
	res.Execution.Duration = res.Execution.EndedAt.Sub(start)

	if e.recorder == nil {
		return
	}
	status := "success"
	switch {
	case res.Blocked:
		status = "blocked"
	case res.Aborted:
		status = "aborted"
	case !res.Success:
		status = "failed"
	}
	e.recorder.RecordDispatch(res.Action, string(res.Mode), status, res.Execution.Duration)
	for i := range res.Errors {
		var pe *PanicError
		if errors.As(res.Errors[i].Err, &pe) {
			e.recorder.RecordHandlerPanic(res.Action)
			continue
		}
		e.recorder.RecordHandlerError(res.Action)
	}
}

// SetActionExecutionMode fixes the execution mode used for an action when a
// dispatch does not override it.
func (e *Engine) SetActionExecutionMode(action string, mode ExecutionMode) error {
	if !mode.valid() {
		return fmt.Errorf("%w: %q", ErrUnknownMode, mode)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.actionModes[action] = mode
	return nil
}

// ActionExecutionMode returns the configured mode for an action.
func (e *Engine) ActionExecutionMode(action string) (ExecutionMode, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	mode, ok := e.actionModes[action]
	return mode, ok
}

// RemoveActionExecutionMode drops an action's mode override.
func (e *Engine) RemoveActionExecutionMode(action string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.actionModes, action)
}

// SetDefaultMode changes the engine-wide default execution mode.
func (e *Engine) SetDefaultMode(mode ExecutionMode) error {
	if !mode.valid() {
		return fmt.Errorf("%w: %q", ErrUnknownMode, mode)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.defaultMode = mode
	return nil
}

// DefaultMode returns the engine-wide default execution mode.
func (e *Engine) DefaultMode() ExecutionMode {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.defaultMode
}

// SetGuardDefaults changes the debounce/throttle windows applied to every
// dispatch that does not specify its own.
func (e *Engine) SetGuardDefaults(debounce, throttle time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.defaultDebounce = debounce
	e.defaultThrottle = throttle
}

// Guard returns the engine's guard, shared with config watchers or callers
// that gate their own work.
func (e *Engine) Guard() *guard.Guard {
	return e.guard
}

// HasHandlers reports whether the action has any registered handlers.
func (e *Engine) HasHandlers(action string) bool {
	return e.registry.Has(action)
}

// HandlerCount returns the number of handlers registered for an action.
func (e *Engine) HandlerCount(action string) int {
	return e.registry.Count(action)
}

// TotalHandlerCount returns the number of handlers across all actions.
func (e *Engine) TotalHandlerCount() int {
	return e.registry.TotalCount()
}

// RegisteredActions returns all action names with handlers, sorted.
func (e *Engine) RegisteredActions() []string {
	return e.registry.Actions()
}

// ActionStats returns statistics for one action's pipeline.
func (e *Engine) ActionStats(action string) ActionStats {
	return e.registry.Stats(action)
}

// AllActionStats returns statistics for every registered action.
func (e *Engine) AllActionStats() map[string]ActionStats {
	return e.registry.AllStats()
}

// ClearAction drops the action's entire pipeline.
func (e *Engine) ClearAction(action string) {
	e.registry.ClearAction(action)
}

// ClearAll drops every pipeline and cancels outstanding guard timers.
func (e *Engine) ClearAll() {
	e.registry.ClearAll()
	e.guard.ClearAll()
}

// EngineStats contains cumulative engine counters.
type EngineStats struct {
	Dispatches       uint64
	Blocked          uint64
	HandlersExecuted uint64
	HandlerErrors    uint64
	HandlerPanics    uint64
}

// Stats returns cumulative engine counters. Values may be slightly
// inconsistent with each other while dispatches are in flight.
func (e *Engine) Stats() EngineStats {
	return EngineStats{
		Dispatches:       e.dispatches.Load(),
		Blocked:          e.blocked.Load(),
		HandlersExecuted: e.handlersExecuted.Load(),
		HandlerErrors:    e.handlerErrors.Load(),
		HandlerPanics:    e.handlerPanics.Load(),
	}
}
