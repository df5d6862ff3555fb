package metrics_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/actionpipe/actionpipe"
	"github.com/actionpipe/actionpipe/metrics"
)

func TestCollectorRecordsDispatches(t *testing.T) {
	reg := prometheus.NewRegistry()
	col := metrics.NewCollector(reg)

	col.RecordDispatch("save", "sequential", "success", 5*time.Millisecond)
	col.RecordDispatch("save", "sequential", "success", 8*time.Millisecond)
	col.RecordDispatch("save", "sequential", "failed", time.Millisecond)

	expected := `
# HELP actionpipe_dispatches_total Completed dispatches by action, execution mode, and terminal status.
# TYPE actionpipe_dispatches_total counter
actionpipe_dispatches_total{action="save",mode="sequential",status="failed"} 1
actionpipe_dispatches_total{action="save",mode="sequential",status="success"} 2
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected),
		"actionpipe_dispatches_total"))
}

func TestCollectorRecordsHandlerFailures(t *testing.T) {
	reg := prometheus.NewRegistry()
	col := metrics.NewCollector(reg)

	col.RecordHandlerError("save")
	col.RecordHandlerError("save")
	col.RecordHandlerPanic("load")

	expected := `
# HELP actionpipe_handler_errors_total Handler errors recorded during dispatches.
# TYPE actionpipe_handler_errors_total counter
actionpipe_handler_errors_total{action="save"} 2
# HELP actionpipe_handler_panics_total Handler panics recovered during dispatches.
# TYPE actionpipe_handler_panics_total counter
actionpipe_handler_panics_total{action="load"} 1
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected),
		"actionpipe_handler_errors_total", "actionpipe_handler_panics_total"))
}

func TestEngineFeedsCollector(t *testing.T) {
	reg := prometheus.NewRegistry()
	col := metrics.NewCollector(reg)
	eng := actionpipe.New(actionpipe.WithRecorder(col))

	eng.Register("save", func(ctx context.Context, payload any, pc *actionpipe.Controller) (any, error) {
		return nil, nil
	}, nil)
	eng.Register("load", func(ctx context.Context, payload any, pc *actionpipe.Controller) (any, error) {
		return nil, errors.New("disk full")
	}, nil)
	eng.Register("boom", func(ctx context.Context, payload any, pc *actionpipe.Controller) (any, error) {
		panic("oops")
	}, nil)

	for _, action := range []string{"save", "load", "boom"} {
		_, err := eng.DispatchWithResult(context.Background(), action, nil, nil)
		require.NoError(t, err)
	}

	expected := `
# HELP actionpipe_dispatches_total Completed dispatches by action, execution mode, and terminal status.
# TYPE actionpipe_dispatches_total counter
actionpipe_dispatches_total{action="boom",mode="sequential",status="failed"} 1
actionpipe_dispatches_total{action="load",mode="sequential",status="failed"} 1
actionpipe_dispatches_total{action="save",mode="sequential",status="success"} 1
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected),
		"actionpipe_dispatches_total"))

	count, err := testutil.GatherAndCount(reg,
		"actionpipe_handler_errors_total", "actionpipe_handler_panics_total")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}
