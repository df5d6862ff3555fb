package actionpipe

import "time"

// ResultStrategy selects how the collected result sequence is reduced into
// the single reported value of a dispatch.
type ResultStrategy string

const (
	// StrategyFirst reports the first collected result.
	StrategyFirst ResultStrategy = "first"

	// StrategyLast reports the last collected result.
	StrategyLast ResultStrategy = "last"

	// StrategyAll reports the whole result sequence.
	StrategyAll ResultStrategy = "all"

	// StrategyMerge reports the output of the caller-supplied merger.
	StrategyMerge ResultStrategy = "merge"

	// StrategyCustom is an alias of StrategyMerge kept for callers that
	// distinguish built-in merging from fully custom reduction.
	StrategyCustom ResultStrategy = "custom"
)

// Merger reduces a result sequence to a single value for the merge and
// custom strategies.
type Merger func(results []any) any

// ResultOptions configures result collection for one dispatch.
type ResultOptions struct {
	// Collect enables collection of the raw result sequence into the
	// report. Reduction via Strategy works regardless.
	Collect bool

	// Strategy selects the reduction applied to the collected sequence.
	// Empty means no reduced result is computed.
	Strategy ResultStrategy

	// Merger is required by StrategyMerge and StrategyCustom.
	Merger Merger

	// MaxResults caps the slice handed to the merger (and the reported
	// sequence for StrategyAll). Zero means no cap.
	MaxResults int

	// Timeout bounds the whole run. Handlers still executing when it
	// expires are treated as cancelled.
	Timeout time.Duration
}

// HandlerOutcome is the per-handler record of one dispatch.
type HandlerOutcome struct {
	// HandlerID is the registration id.
	HandlerID string

	// Executed is true if the handler body was invoked.
	Executed bool

	// Skipped is true if the handler was bypassed (condition false, guard
	// denial, jump, or cancellation before invocation).
	Skipped bool

	// Duration is how long the invocation took, including retries.
	Duration time.Duration

	// Result is the handler's returned value, if any.
	Result any

	// Err is the handler's error, if any.
	Err error
}

// ExecutionStats aggregates a dispatch's execution metadata.
type ExecutionStats struct {
	HandlersExecuted int
	HandlersSkipped  int
	HandlersFailed   int

	StartedAt time.Time
	EndedAt   time.Time
	Duration  time.Duration
}

// ExecutionResult is the structured outcome of DispatchWithResult.
type ExecutionResult struct {
	// Action is the dispatched action name.
	Action string

	// Mode is the execution mode the run used.
	Mode ExecutionMode

	// Success is true when the run was not aborted, not blocked by the
	// guard, and no handler failed.
	Success bool

	// Aborted and AbortReason report a cooperative abort.
	Aborted     bool
	AbortReason string

	// Terminated and TerminalResult report an early Return.
	Terminated     bool
	TerminalResult any

	// Blocked and BlockReason report a guard rejection or a cancellation
	// before the run started. No handlers executed.
	Blocked     bool
	BlockReason string

	// Result is the reduced value per the configured strategy. HasResult
	// distinguishes a nil result from no result.
	Result    any
	HasResult bool

	// Results is the raw result sequence, populated when collection was
	// requested.
	Results []any

	// Handlers holds the per-handler outcome records in snapshot order.
	Handlers []HandlerOutcome

	// Errors lists handler failures keyed by handler id.
	Errors []HandlerError

	// Execution aggregates counts and timing.
	Execution ExecutionStats
}

// ErrorFor returns the recorded error for a handler id, or nil.
func (r *ExecutionResult) ErrorFor(handlerID string) error {
	for i := range r.Errors {
		if r.Errors[i].HandlerID == handlerID {
			return r.Errors[i].Err
		}
	}
	return nil
}

// reduceResult computes the reported value from the run state and result
// options. A terminal Return value short-circuits every strategy, and a
// race winner short-circuits everything but termination.
func reduceResult(rc *runContext, opts *ResultOptions) (any, bool) {
	rc.mu.Lock()
	terminated := rc.terminated
	terminal := rc.terminalResult
	raceDone := rc.raceDone
	raceResult := rc.raceResult
	raceErr := rc.raceErr
	results := rc.results
	rc.mu.Unlock()

	if terminated {
		return terminal, true
	}
	if rc.mode == ModeRace && raceDone {
		if raceErr != nil {
			return nil, false
		}
		return raceResult, true
	}

	if opts == nil || opts.Strategy == "" {
		return nil, false
	}

	capped := results
	if opts.MaxResults > 0 && len(capped) > opts.MaxResults {
		capped = capped[:opts.MaxResults]
	}

	switch opts.Strategy {
	case StrategyFirst:
		if len(capped) == 0 {
			return nil, false
		}
		return capped[0], true
	case StrategyLast:
		if len(capped) == 0 {
			return nil, false
		}
		return capped[len(capped)-1], true
	case StrategyAll:
		out := make([]any, len(capped))
		copy(out, capped)
		return out, true
	case StrategyMerge, StrategyCustom:
		if opts.Merger == nil {
			return nil, false
		}
		in := make([]any, len(capped))
		copy(in, capped)
		return opts.Merger(in), true
	default:
		return nil, false
	}
}
