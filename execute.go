package actionpipe

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"
)

// invoke runs a single handler with condition gating, per-handler guard
// checks, timeout, retries, and panic recovery. It never lets a handler
// failure escape; everything is folded into the outcome record.
//
// The payload argument is fixed by the strategy: sequential reads the
// current payload per handler so upstream rewrites are visible, while
// parallel and race pass the launch-time payload so siblings never observe
// each other's rewrites.
func (e *Engine) invoke(ctx context.Context, rc *runContext, reg *Registration, payload any) HandlerOutcome {
	out := HandlerOutcome{HandlerID: reg.ID}

	if ctx.Err() != nil {
		out.Skipped = true
		out.Err = ctx.Err()
		return out
	}

	if reg.Condition != nil && !reg.Condition(payload) {
		out.Skipped = true
		return out
	}

	if reg.Throttle > 0 && !e.guard.Throttle(guardKey(reg), reg.Throttle) {
		out.Skipped = true
		return out
	}
	if reg.Debounce > 0 && !e.guard.Debounce(guardKey(reg), reg.Debounce) {
		out.Skipped = true
		return out
	}

	start := time.Now()
	var result any
	var err error
	for attempt := 0; attempt <= reg.Retries; attempt++ {
		result, err = e.call(ctx, rc, reg, payload)
		if err == nil {
			break
		}
		if ctx.Err() != nil {
			break
		}
	}
	out.Duration = time.Since(start)
	out.Executed = true
	out.Result = result
	out.Err = err
	return out
}

// call performs one invocation attempt, racing the handler against its
// configured timeout.
func (e *Engine) call(ctx context.Context, rc *runContext, reg *Registration, payload any) (any, error) {
	pc := &Controller{rc: rc, reg: reg}

	if reg.Timeout <= 0 {
		return safeCall(ctx, reg, pc, payload)
	}

	tctx, cancel := context.WithTimeout(ctx, reg.Timeout)
	defer cancel()

	type settled struct {
		result any
		err    error
	}
	done := make(chan settled, 1)
	go func() {
		result, err := safeCall(tctx, reg, pc, payload)
		done <- settled{result, err}
	}()

	select {
	case s := <-done:
		return s.result, s.err
	case <-tctx.Done():
		// External cancellation also fires the derived context; report
		// it as such rather than as a handler timeout.
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("handler %s: %w", reg.ID, ErrHandlerTimeout)
	}
}

// safeCall invokes the handler body with panic recovery.
func safeCall(ctx context.Context, reg *Registration, pc *Controller, payload any) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = &PanicError{HandlerID: reg.ID, Value: r, Stack: debug.Stack()}
		}
	}()
	return reg.Handler(ctx, payload, pc)
}

// guardKey scopes a handler-level guard window to its registration.
func guardKey(reg *Registration) string {
	return reg.Action + ":" + reg.ID
}
