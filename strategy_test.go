package actionpipe_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/actionpipe/actionpipe"
)

// sleeping builds a handler that waits, then returns a value.
func sleeping(d time.Duration, v any) actionpipe.Handler {
	return func(ctx context.Context, payload any, pc *actionpipe.Controller) (any, error) {
		select {
		case <-time.After(d):
			return v, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

func parallelOpts() *actionpipe.DispatchOptions {
	return &actionpipe.DispatchOptions{
		ExecutionMode: actionpipe.ModeParallel,
		Result:        &actionpipe.ResultOptions{Collect: true},
	}
}

func raceOpts() *actionpipe.DispatchOptions {
	return &actionpipe.DispatchOptions{
		ExecutionMode: actionpipe.ModeRace,
		Result:        &actionpipe.ResultOptions{Collect: true},
	}
}

func TestParallelRunsAllHandlers(t *testing.T) {
	eng := actionpipe.New()

	var count atomic.Int32
	for i := 0; i < 5; i++ {
		eng.Register("X", func(ctx context.Context, payload any, pc *actionpipe.Controller) (any, error) {
			count.Add(1)
			return nil, nil
		}, nil)
	}

	res, err := eng.DispatchWithResult(context.Background(), "X", nil, parallelOpts())
	require.NoError(t, err)

	assert.Equal(t, int32(5), count.Load())
	assert.Equal(t, 5, res.Execution.HandlersExecuted)
	assert.True(t, res.Success)
}

func TestParallelResultsInCompletionOrder(t *testing.T) {
	eng := actionpipe.New()

	eng.Register("X", sleeping(90*time.Millisecond, "slow"), &actionpipe.HandlerConfig{Priority: 30})
	eng.Register("X", sleeping(10*time.Millisecond, "fast"), &actionpipe.HandlerConfig{Priority: 20})
	eng.Register("X", sleeping(50*time.Millisecond, "mid"), &actionpipe.HandlerConfig{Priority: 10})

	res, err := eng.DispatchWithResult(context.Background(), "X", nil, parallelOpts())
	require.NoError(t, err)

	assert.Equal(t, []any{"fast", "mid", "slow"}, res.Results)
	// Outcome records stay in snapshot (priority) order regardless.
	require.Len(t, res.Handlers, 3)
	assert.Equal(t, "slow", res.Handlers[0].Result)
	assert.Equal(t, "fast", res.Handlers[1].Result)
	assert.Equal(t, "mid", res.Handlers[2].Result)
}

func TestParallelAbortDropsNonBlockingResults(t *testing.T) {
	eng := actionpipe.New()

	eng.Register("X", func(ctx context.Context, payload any, pc *actionpipe.Controller) (any, error) {
		pc.Abort("stop accepting")
		return "aborter", nil
	}, &actionpipe.HandlerConfig{ID: "aborter"})
	eng.Register("X", sleeping(40*time.Millisecond, "late"), &actionpipe.HandlerConfig{ID: "late"})

	res, err := eng.DispatchWithResult(context.Background(), "X", nil, parallelOpts())
	require.NoError(t, err)

	assert.True(t, res.Aborted)
	// The late handler still ran to completion but its result was dropped.
	assert.Equal(t, 2, res.Execution.HandlersExecuted)
	assert.NotContains(t, res.Results, "late")
}

func TestParallelBlockingResultSurvivesAbort(t *testing.T) {
	eng := actionpipe.New()

	eng.Register("X", func(ctx context.Context, payload any, pc *actionpipe.Controller) (any, error) {
		pc.Abort("settled early")
		return nil, nil
	}, &actionpipe.HandlerConfig{ID: "aborter"})
	eng.Register("X", sleeping(40*time.Millisecond, "pinned"), &actionpipe.HandlerConfig{
		ID: "pinned", Blocking: true,
	})

	res, err := eng.DispatchWithResult(context.Background(), "X", nil, parallelOpts())
	require.NoError(t, err)

	assert.True(t, res.Aborted)
	assert.Contains(t, res.Results, "pinned")
}

func TestParallelSiblingsKeepLaunchTimePayload(t *testing.T) {
	eng := actionpipe.New()

	rewritten := make(chan struct{})
	eng.Register("X", func(ctx context.Context, payload any, pc *actionpipe.Controller) (any, error) {
		pc.ModifyPayload(func(any) any { return "rewritten" })
		close(rewritten)
		return nil, nil
	}, &actionpipe.HandlerConfig{ID: "writer"})

	var seen any
	eng.Register("X", func(ctx context.Context, payload any, pc *actionpipe.Controller) (any, error) {
		// Wait until the sibling's rewrite has landed before reading.
		<-rewritten
		seen = payload
		return nil, nil
	}, &actionpipe.HandlerConfig{ID: "reader"})

	res, err := eng.DispatchWithResult(context.Background(), "X", "original", parallelOpts())
	require.NoError(t, err)

	assert.Equal(t, "original", seen)
	assert.Equal(t, 2, res.Execution.HandlersExecuted)
}

func TestParallelConditionSeesLaunchTimePayload(t *testing.T) {
	eng := actionpipe.New()

	rewritten := make(chan struct{})
	eng.Register("X", func(ctx context.Context, payload any, pc *actionpipe.Controller) (any, error) {
		pc.ModifyPayload(func(any) any { return "rewritten" })
		close(rewritten)
		return nil, nil
	}, &actionpipe.HandlerConfig{ID: "writer"})

	eng.Register("X", returning("gated"), &actionpipe.HandlerConfig{
		ID: "gated",
		Condition: func(payload any) bool {
			<-rewritten
			return payload == "rewritten"
		},
	})

	res, err := eng.DispatchWithResult(context.Background(), "X", "original", parallelOpts())
	require.NoError(t, err)

	// The condition evaluated the launch-time payload and must not fire.
	assert.NotContains(t, res.Results, "gated")
	assert.Equal(t, 1, res.Execution.HandlersSkipped)
}

func TestParallelErrorIsolation(t *testing.T) {
	eng := actionpipe.New()

	boom := errors.New("boom")
	eng.Register("X", func(ctx context.Context, payload any, pc *actionpipe.Controller) (any, error) {
		return nil, boom
	}, &actionpipe.HandlerConfig{ID: "failing"})
	eng.Register("X", returning("ok"), &actionpipe.HandlerConfig{ID: "fine"})

	res, err := eng.DispatchWithResult(context.Background(), "X", nil, parallelOpts())
	require.NoError(t, err)

	assert.False(t, res.Success)
	assert.Equal(t, []any{"ok"}, res.Results)
	assert.ErrorIs(t, res.ErrorFor("failing"), boom)
}

func TestRaceFirstSettlementWins(t *testing.T) {
	eng := actionpipe.New()

	eng.Register("X", sleeping(80*time.Millisecond, "slow"), &actionpipe.HandlerConfig{ID: "slow"})
	eng.Register("X", sleeping(10*time.Millisecond, "fast"), &actionpipe.HandlerConfig{ID: "fast"})

	res, err := eng.DispatchWithResult(context.Background(), "X", nil, raceOpts())
	require.NoError(t, err)

	assert.True(t, res.Success)
	assert.True(t, res.HasResult)
	assert.Equal(t, "fast", res.Result)
	assert.Equal(t, []any{"fast"}, res.Results)
	// The slower handler still completed.
	assert.Equal(t, 2, res.Execution.HandlersExecuted)
}

func TestRaceWinnerErrorFailsRun(t *testing.T) {
	eng := actionpipe.New()

	boom := errors.New("winner failed")
	eng.Register("X", func(ctx context.Context, payload any, pc *actionpipe.Controller) (any, error) {
		return nil, boom
	}, &actionpipe.HandlerConfig{ID: "failing-winner"})
	eng.Register("X", sleeping(50*time.Millisecond, "late"), &actionpipe.HandlerConfig{ID: "late"})

	res, err := eng.DispatchWithResult(context.Background(), "X", nil, raceOpts())
	require.NoError(t, err)

	assert.False(t, res.Success)
	assert.False(t, res.HasResult)
	assert.ErrorIs(t, res.ErrorFor("failing-winner"), boom)
}

func TestRaceSkippedHandlerCannotWin(t *testing.T) {
	eng := actionpipe.New()

	eng.Register("X", returning("never"), &actionpipe.HandlerConfig{
		ID:        "gated",
		Condition: func(payload any) bool { return false },
	})
	eng.Register("X", sleeping(20*time.Millisecond, "winner"), &actionpipe.HandlerConfig{ID: "runner"})

	res, err := eng.DispatchWithResult(context.Background(), "X", nil, raceOpts())
	require.NoError(t, err)

	assert.Equal(t, "winner", res.Result)
	assert.Equal(t, 1, res.Execution.HandlersSkipped)
}

func TestRaceBlockingLoserResultKept(t *testing.T) {
	eng := actionpipe.New()

	eng.Register("X", sleeping(5*time.Millisecond, "winner"), &actionpipe.HandlerConfig{ID: "winner"})
	eng.Register("X", sleeping(40*time.Millisecond, "loser"), &actionpipe.HandlerConfig{
		ID: "loser", Blocking: true,
	})

	res, err := eng.DispatchWithResult(context.Background(), "X", nil, raceOpts())
	require.NoError(t, err)

	assert.Equal(t, "winner", res.Result)
	assert.ElementsMatch(t, []any{"winner", "loser"}, res.Results)
}

func TestRaceTerminalReturnBeatsWinnerValue(t *testing.T) {
	eng := actionpipe.New()

	eng.Register("X", func(ctx context.Context, payload any, pc *actionpipe.Controller) (any, error) {
		pc.Return("terminal")
		return "raw", nil
	}, &actionpipe.HandlerConfig{ID: "terminator"})

	res, err := eng.DispatchWithResult(context.Background(), "X", nil, raceOpts())
	require.NoError(t, err)

	assert.True(t, res.Terminated)
	assert.Equal(t, "terminal", res.Result)
}

func TestRunTimeoutCancelsOutstandingHandlers(t *testing.T) {
	eng := actionpipe.New()

	eng.Register("X", sleeping(500*time.Millisecond, "slow"), &actionpipe.HandlerConfig{ID: "slow"})
	eng.Register("X", sleeping(5*time.Millisecond, "fast"), &actionpipe.HandlerConfig{ID: "fast"})

	start := time.Now()
	res, err := eng.DispatchWithResult(context.Background(), "X", nil, &actionpipe.DispatchOptions{
		ExecutionMode: actionpipe.ModeParallel,
		Result:        &actionpipe.ResultOptions{Collect: true, Timeout: 60 * time.Millisecond},
	})
	require.NoError(t, err)

	assert.Less(t, time.Since(start), 400*time.Millisecond)
	assert.Equal(t, []any{"fast"}, res.Results)
	assert.ErrorIs(t, res.ErrorFor("slow"), context.DeadlineExceeded)
}
