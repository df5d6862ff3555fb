// Package actionpipe provides a typed, in-process action pipeline engine.
//
// Given a named action and a payload, the engine runs a priority-ordered set
// of registered handlers under one of several execution disciplines, lets
// handlers cooperatively steer the run, and reports a structured outcome.
// It is the dispatch core that UI bindings and other integration layers wrap.
//
// # Architecture
//
// The engine consists of several interconnected components:
//
//	                ┌──────────────────────────────────────────┐
//	                │                 Engine                    │
//	                │  - Handler registry (priority sorted)     │
//	                │  - Execution mode resolution              │
//	                │  - Guard gating (debounce/throttle)       │
//	                └──────────────────────────────────────────┘
//	                                  │
//	      ┌───────────────────────────┼───────────────────────────┐
//	      ▼                           ▼                           ▼
//	┌─────────────────┐     ┌─────────────────┐     ┌─────────────────┐
//	│    Registry     │     │   Strategies    │     │   Controller    │
//	│  - Sorted       │     │  - Sequential   │     │  - Abort/Return │
//	│    pipelines    │     │  - Parallel     │     │  - Payload      │
//	│  - Once culling │     │  - Race         │     │    rewrite      │
//	└─────────────────┘     └─────────────────┘     │  - Result emit  │
//	                                                └─────────────────┘
//
// # Execution Modes
//
// Handlers for an action run under one of three disciplines:
//
//   - Sequential: handlers run one at a time in descending priority order.
//     Each handler settles before the next starts.
//   - Parallel: all handlers launch at once; results are collected in
//     completion order.
//   - Race: the first handler to settle decides the run's result; later
//     completions are recorded but never folded into the reported result.
//
// The mode is resolved per dispatch: a per-call override wins over a
// per-action override, which wins over the engine default (sequential).
//
// # Pipelines and Snapshots
//
// Every dispatch operates on a snapshot of the action's pipeline taken
// atomically at dispatch start. Registering or unregistering handlers while
// a dispatch is in flight never affects that dispatch; changes appear only
// in the next one.
//
// # Handler Steering
//
// Each handler invocation receives a Controller closing over the shared run
// state. Through it a handler can abort the run, terminate it early with a
// value, rewrite the payload for downstream handlers, jump past a priority
// band, and emit or merge intermediate results.
//
// # Basic Usage
//
//	eng := actionpipe.New()
//
//	unregister := eng.Register("doc.save", func(ctx context.Context, payload any, pc *actionpipe.Controller) (any, error) {
//	    return "saved", nil
//	}, &actionpipe.HandlerConfig{Priority: 10})
//	defer unregister()
//
//	res, err := eng.DispatchWithResult(ctx, "doc.save", doc, &actionpipe.DispatchOptions{
//	    Result: &actionpipe.ResultOptions{Collect: true, Strategy: actionpipe.StrategyAll},
//	})
//
// Subpackages provide the debounce/throttle guard (guard), file-driven
// configuration with hot reload (config), Prometheus collectors (metrics),
// and JSON payload helpers (payload).
package actionpipe
