package actionpipe

import "context"

// runSequential iterates the snapshot in order, awaiting each handler
// before starting the next. It honors jump requests and stops as soon as
// the run settles or the context is cancelled. Outcomes are returned in
// snapshot order; handlers never reached produce no outcome record.
func (e *Engine) runSequential(ctx context.Context, rc *runContext) []HandlerOutcome {
	outcomes := make([]HandlerOutcome, 0, len(rc.handlers))

	for _, reg := range rc.handlers {
		if rc.settled() || ctx.Err() != nil {
			break
		}

		if target, ok := rc.jump(); ok {
			if effectivePriority(reg.Priority) > target {
				outcomes = append(outcomes, HandlerOutcome{HandlerID: reg.ID, Skipped: true})
				continue
			}
			rc.clearJump()
		}

		out := e.invoke(ctx, rc, reg, rc.currentPayload())
		if out.Executed && out.Err == nil && out.Result != nil {
			rc.appendResult(out.Result, reg.Blocking)
		}
		outcomes = append(outcomes, out)
	}

	return outcomes
}
