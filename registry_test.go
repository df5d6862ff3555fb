package actionpipe_test

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/actionpipe/actionpipe"
)

func noopHandler(ctx context.Context, payload any, pc *actionpipe.Controller) (any, error) {
	return nil, nil
}

func TestRegistryCountAndHas(t *testing.T) {
	eng := actionpipe.New()

	assert.False(t, eng.HasHandlers("save"))
	assert.Equal(t, 0, eng.HandlerCount("save"))

	eng.Register("save", noopHandler, nil)
	eng.Register("save", noopHandler, nil)

	assert.True(t, eng.HasHandlers("save"))
	assert.Equal(t, 2, eng.HandlerCount("save"))
	assert.Equal(t, 2, eng.TotalHandlerCount())
}

func TestRegisterDuplicateIDIsNoop(t *testing.T) {
	eng := actionpipe.New()

	eng.Register("save", noopHandler, &actionpipe.HandlerConfig{ID: "h1"})
	inert := eng.Register("save", noopHandler, &actionpipe.HandlerConfig{ID: "h1"})

	assert.Equal(t, 1, eng.HandlerCount("save"))

	// The inert closure must not remove the original registration.
	inert()
	assert.Equal(t, 1, eng.HandlerCount("save"))
}

func TestUnregisterIsIdempotent(t *testing.T) {
	eng := actionpipe.New()

	unregister := eng.Register("save", noopHandler, &actionpipe.HandlerConfig{ID: "h1"})
	require.Equal(t, 1, eng.HandlerCount("save"))

	unregister()
	assert.Equal(t, 0, eng.HandlerCount("save"))

	// Re-register under the same id, then call the stale closure again:
	// the new registration must survive.
	eng.Register("save", noopHandler, &actionpipe.HandlerConfig{ID: "h1"})
	unregister()
	assert.Equal(t, 1, eng.HandlerCount("save"))
}

func TestRegisterNilHandlerIsNoop(t *testing.T) {
	eng := actionpipe.New()

	inert := eng.Register("save", nil, nil)
	inert()

	assert.Equal(t, 0, eng.HandlerCount("save"))
}

func TestClearActionAndClearAll(t *testing.T) {
	eng := actionpipe.New()

	eng.Register("a", noopHandler, nil)
	eng.Register("b", noopHandler, nil)

	eng.ClearAction("a")
	assert.False(t, eng.HasHandlers("a"))
	assert.True(t, eng.HasHandlers("b"))

	eng.ClearAll()
	assert.Equal(t, 0, eng.TotalHandlerCount())

	// Clearing with nothing registered is safe.
	eng.ClearAction("a")
	eng.ClearAll()
}

func TestRegisteredActionsSorted(t *testing.T) {
	eng := actionpipe.New()

	eng.Register("zeta", noopHandler, nil)
	eng.Register("alpha", noopHandler, nil)
	eng.Register("mid", noopHandler, nil)

	assert.Equal(t, []string{"alpha", "mid", "zeta"}, eng.RegisteredActions())
}

func TestActionStats(t *testing.T) {
	eng := actionpipe.New()

	eng.Register("save", noopHandler, &actionpipe.HandlerConfig{Priority: 30})
	eng.Register("save", noopHandler, &actionpipe.HandlerConfig{Priority: 10, Once: true})
	eng.Register("save", noopHandler, &actionpipe.HandlerConfig{Priority: 20})

	st := eng.ActionStats("save")
	assert.Equal(t, 3, st.HandlerCount)
	assert.Equal(t, 1, st.OnceCount)
	assert.Equal(t, 10.0, st.MinPriority)
	assert.Equal(t, 30.0, st.MaxPriority)
	assert.Equal(t, 20.0, st.MeanPriority)

	all := eng.AllActionStats()
	require.Contains(t, all, "save")
	assert.Equal(t, st, all["save"])
}

func TestNaNPriorityRegistersAndSortsLowest(t *testing.T) {
	eng := actionpipe.New()

	var order []string
	record := func(name string) actionpipe.Handler {
		return func(ctx context.Context, payload any, pc *actionpipe.Controller) (any, error) {
			order = append(order, name)
			return nil, nil
		}
	}

	eng.Register("x", record("nan"), &actionpipe.HandlerConfig{Priority: math.NaN()})
	eng.Register("x", record("neg"), &actionpipe.HandlerConfig{Priority: -5})
	eng.Register("x", record("inf"), &actionpipe.HandlerConfig{Priority: math.Inf(1)})

	_, err := eng.DispatchWithResult(context.Background(), "x", nil, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"inf", "neg", "nan"}, order)
}
