// Package guard provides per-key debounce and throttle timing windows.
//
// The guard is independent of the pipeline engine: it is consulted before a
// dispatch (or any other guarded operation) is allowed to proceed, and
// serializes bursts of activity safely. Debounce groups rapid successive
// calls, letting only the final call of a burst through after a quiet
// period; throttle permits at most one call per interval.
//
// Each key holds at most one active timer of each kind. A new debounce call
// for a key cancels the prior timer and resolves the prior caller with
// false immediately, so no caller is ever left pending.
package guard
