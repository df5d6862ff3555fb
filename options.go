package actionpipe

import (
	"log/slog"
	"time"

	"github.com/actionpipe/actionpipe/guard"
)

// Recorder receives engine observability events. The metrics subpackage
// provides a Prometheus-backed implementation; the interface is kept here
// on plain strings so implementations need not import the engine.
type Recorder interface {
	// RecordDispatch is called once per completed dispatch with a
	// terminal status of "success", "aborted", "failed", or "blocked".
	RecordDispatch(action, mode, status string, d time.Duration)

	// RecordHandlerError is called for each handler failure.
	RecordHandlerError(action string)

	// RecordHandlerPanic is called for each recovered handler panic.
	RecordHandlerPanic(action string)
}

// Option configures an Engine.
type Option func(*Engine)

// WithDefaultMode sets the engine-wide default execution mode.
// Unknown modes are ignored, keeping sequential.
func WithDefaultMode(mode ExecutionMode) Option {
	return func(e *Engine) {
		if mode.valid() {
			e.defaultMode = mode
		}
	}
}

// WithLogger sets the structured logger used for dispatch lifecycle and
// handler failure logging. The default logger discards everything.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithRecorder attaches an observability recorder to the engine.
func WithRecorder(r Recorder) Option {
	return func(e *Engine) {
		e.recorder = r
	}
}

// WithGuard supplies a shared guard instance, letting multiple engines (or
// an engine and a config watcher) coordinate debounce/throttle keys.
func WithGuard(g *guard.Guard) Option {
	return func(e *Engine) {
		if g != nil {
			e.guard = g
		}
	}
}

// WithGuardDefaults sets debounce/throttle windows applied to every
// dispatch that does not specify its own. Zero disables either default.
func WithGuardDefaults(debounce, throttle time.Duration) Option {
	return func(e *Engine) {
		e.defaultDebounce = debounce
		e.defaultThrottle = throttle
	}
}

// DispatchOptions carries the per-call settings accepted by Dispatch and
// DispatchWithResult. A nil *DispatchOptions is a valid default.
type DispatchOptions struct {
	// ExecutionMode overrides the per-action and engine default modes
	// for this call. Empty keeps the resolved mode.
	ExecutionMode ExecutionMode

	// Debounce gates the whole dispatch behind a per-action debounce
	// window: the call proceeds only if no newer dispatch for the action
	// arrives within the window. Zero disables.
	Debounce time.Duration

	// Throttle allows at most one dispatch per action per window.
	// Zero disables.
	Throttle time.Duration

	// Filter narrows the snapshot before execution.
	Filter *DispatchFilter

	// Result configures result collection and reduction.
	Result *ResultOptions
}

func (o *DispatchOptions) resultOptions() *ResultOptions {
	if o == nil {
		return nil
	}
	return o.Result
}

func (o *DispatchOptions) filter() *DispatchFilter {
	if o == nil {
		return nil
	}
	return o.Filter
}
