package actionpipe

import "context"

// runRace behaves like parallel, but the first handler to actually execute
// and settle decides the run's terminal result or error. Already-launched
// siblings run to completion; their outcomes are recorded but never folded
// into the reported result.
func (e *Engine) runRace(ctx context.Context, rc *runContext) []HandlerOutcome {
	n := len(rc.handlers)
	type completion struct {
		index   int
		outcome HandlerOutcome
	}
	done := make(chan completion, n)

	// Same launch-time payload snapshot as parallel mode.
	payload := rc.currentPayload()
	for i, reg := range rc.handlers {
		go func(i int, reg *Registration) {
			done <- completion{i, e.invoke(ctx, rc, reg, payload)}
		}(i, reg)
	}

	outcomes := make([]HandlerOutcome, n)
	for range rc.handlers {
		c := <-done
		reg := rc.handlers[c.index]
		if c.outcome.Executed {
			if rc.settleRace(c.outcome.Result, c.outcome.Err) {
				if c.outcome.Err == nil && c.outcome.Result != nil {
					// Winner's value is accepted even though the
					// run is now settled.
					rc.appendResult(c.outcome.Result, true)
				}
			} else if c.outcome.Err == nil && c.outcome.Result != nil {
				rc.appendResult(c.outcome.Result, reg.Blocking)
			}
		}
		outcomes[c.index] = c.outcome
	}
	return outcomes
}
