package actionpipe

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Handler processes an action's payload during a dispatch.
//
// The returned value is the handler's result and is appended to the run's
// result sequence when non-nil. A non-nil error is recorded against the
// handler but does not stop the pipeline; only a Controller.Abort call does.
type Handler func(ctx context.Context, payload any, pc *Controller) (any, error)

// Condition is a predicate deciding whether a handler runs for a given
// payload. A handler whose condition returns false is skipped, not failed.
type Condition func(payload any) bool

// HandlerConfig carries the optional per-registration settings accepted by
// Register. Every field is independently optional; the zero value is a valid
// configuration.
type HandlerConfig struct {
	// Priority orders handlers within an action's pipeline; higher values
	// execute first. Ties preserve registration order. NaN sorts lowest.
	// Default 0.
	Priority float64

	// ID identifies the registration within its action. If empty, a UUID
	// is generated. Re-registering an existing id for the same action is
	// a no-op.
	ID string

	// Once removes the registration after it has executed one time in a
	// completed run.
	Once bool

	// Blocking keeps the handler's result visible in parallel and race
	// modes even after the run has been aborted or terminated. It has no
	// effect in sequential mode, where every handler is awaited anyway.
	Blocking bool

	// Condition gates execution per dispatch. Nil means always run.
	Condition Condition

	// Debounce delays this handler's execution until no dispatch has
	// reached it for the given window. Zero disables.
	Debounce time.Duration

	// Throttle allows this handler to execute at most once per window.
	// Zero disables.
	Throttle time.Duration

	// Tags, Category, Environment, and Feature classify the registration
	// for dispatch-time filtering.
	Tags        []string
	Category    string
	Environment string
	Feature     string

	// Timeout bounds a single handler invocation. The error is scoped to
	// the handler, not the run. Zero disables.
	Timeout time.Duration

	// Retries re-invokes the handler after an error, up to this many
	// additional attempts.
	Retries int

	// Dependencies lists handler ids that must be present in the same
	// dispatch snapshot for this handler to run.
	Dependencies []string

	// Conflicts lists handler ids whose presence earlier in the snapshot
	// excludes this handler from the run.
	Conflicts []string

	// Metadata is opaque caller data carried on the registration.
	Metadata map[string]any
}

// Registration is one handler's membership in an action's pipeline.
// It is immutable after insertion; identity is the (action, id) pair.
type Registration struct {
	Action       string
	ID           string
	Handler      Handler
	Priority     float64
	Once         bool
	Blocking     bool
	Condition    Condition
	Debounce     time.Duration
	Throttle     time.Duration
	Tags         []string
	Category     string
	Environment  string
	Feature      string
	Timeout      time.Duration
	Retries      int
	Dependencies []string
	Conflicts    []string
	Metadata     map[string]any
}

// newRegistration builds a Registration from a handler and its optional
// config, filling defaults.
func newRegistration(action string, h Handler, cfg *HandlerConfig) *Registration {
	if cfg == nil {
		cfg = &HandlerConfig{}
	}
	id := cfg.ID
	if id == "" {
		id = uuid.NewString()
	}
	return &Registration{
		Action:       action,
		ID:           id,
		Handler:      h,
		Priority:     cfg.Priority,
		Once:         cfg.Once,
		Blocking:     cfg.Blocking,
		Condition:    cfg.Condition,
		Debounce:     cfg.Debounce,
		Throttle:     cfg.Throttle,
		Tags:         cfg.Tags,
		Category:     cfg.Category,
		Environment:  cfg.Environment,
		Feature:      cfg.Feature,
		Timeout:      cfg.Timeout,
		Retries:      cfg.Retries,
		Dependencies: cfg.Dependencies,
		Conflicts:    cfg.Conflicts,
		Metadata:     cfg.Metadata,
	}
}

// HasTag reports whether the registration carries the given tag.
func (r *Registration) HasTag(tag string) bool {
	for _, t := range r.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// UnregisterFunc removes a registration from its pipeline. It is idempotent;
// calls after the first are no-ops. An in-flight dispatch holding a snapshot
// that includes the registration is unaffected.
type UnregisterFunc func()
