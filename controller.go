package actionpipe

// Controller is the capability object each handler invocation receives.
// It mediates all handler-to-engine communication for the dispatch that is
// currently running: aborting, terminating with a value, rewriting the
// payload, steering execution order, and emitting intermediate results.
//
// A Controller is constructed fresh for each handler call but closes over
// the run state shared by every handler in the same dispatch.
type Controller struct {
	rc  *runContext
	reg *Registration
}

// Action returns the name of the action being dispatched.
func (c *Controller) Action() string {
	return c.rc.action
}

// Mode returns the execution mode of the current run.
func (c *Controller) Mode() ExecutionMode {
	return c.rc.mode
}

// HandlerID returns the id of the registration being invoked.
func (c *Controller) HandlerID() string {
	return c.reg.ID
}

// Abort marks the run aborted and records the reason. In sequential mode no
// further handlers execute; in parallel and race modes already-launched
// handlers run to completion but their results are no longer accepted.
// Later Abort calls overwrite the reason.
func (c *Controller) Abort(reason string) {
	c.rc.abort(reason)
}

// Return terminates the run early with a terminal result. The terminal
// value short-circuits any configured result strategy. Later Return calls
// overwrite the value.
//
// A handler may call both Abort and Return; both flags stay set and the
// last call made determines which value is authoritative.
func (c *Controller) Return(v any) {
	c.rc.terminate(v)
}

// ModifyPayload replaces the run's payload with fn(current). The new
// payload is visible to handlers invoked afterwards in sequential mode; in
// parallel and race modes every handler receives the launch-time payload
// and never observes a sibling's rewrite. If fn panics, the previous
// payload is retained and the panic is swallowed.
func (c *Controller) ModifyPayload(fn func(current any) any) {
	c.rc.replacePayload(fn)
}

// Payload returns the payload as last modified.
func (c *Controller) Payload() any {
	return c.rc.currentPayload()
}

// JumpToPriority skips all remaining handlers whose priority is strictly
// greater than p; execution resumes at the first handler with priority ≤ p.
// Only sequential mode honors the jump.
func (c *Controller) JumpToPriority(p float64) {
	c.rc.requestJump(p)
}

// SetResult appends v to the run's result sequence, independent of the
// handler's own return value. Values set this way precede the handler's
// returned value in the sequence.
func (c *Controller) SetResult(v any) {
	c.rc.appendResult(v, c.reg.Blocking)
}

// Results returns a snapshot copy of the results collected so far. The
// current handler's not-yet-appended return value is not included.
func (c *Controller) Results() []any {
	return c.rc.resultsSnapshot()
}

// MergeResult replaces the last appended result with fn(priorResults,
// lastResult). It is a no-op when no results have been collected.
func (c *Controller) MergeResult(fn func(prior []any, last any) any) {
	c.rc.mergeLast(fn)
}
