package actionpipe

import "context"

// runParallel launches every snapshot handler at once and folds their
// outcomes in completion order. Once the run settles, completions from
// non-blocking handlers are no longer folded into the result sequence,
// though their outcome records are kept.
//
// The payload is snapshotted before launch; a sibling's ModifyPayload is
// never visible to handlers of the same run.
func (e *Engine) runParallel(ctx context.Context, rc *runContext) []HandlerOutcome {
	n := len(rc.handlers)
	type completion struct {
		index   int
		outcome HandlerOutcome
	}
	done := make(chan completion, n)

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
		if c.outcome.Executed && c.outcome.Err == nil && c.outcome.Result != nil {
			rc.appendResult(c.outcome.Result, reg.Blocking)
		}
		outcomes[c.index] = c.outcome
	}
	return outcomes
}
