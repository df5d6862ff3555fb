package actionpipe

import (
	"math"
	"sort"
	"sync"
)

// Registry manages handler registrations organized by action name.
// Each action's pipeline is kept sorted by descending priority with stable
// ties. It is safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	pipelines map[string][]*Registration
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		pipelines: make(map[string][]*Registration),
	}
}

// Add inserts a registration into its action's pipeline and returns an
// idempotent unregister closure bound to that exact registration.
//
// If a registration with the same id already exists for the action, Add is
// a no-op and returns an inert closure, preventing silent duplicate
// execution.
func (r *Registry) Add(reg *Registration) UnregisterFunc {
	r.mu.Lock()
	defer r.mu.Unlock()

	pipeline := r.pipelines[reg.Action]
	for _, existing := range pipeline {
		if existing.ID == reg.ID {
			return func() {}
		}
	}

	pipeline = append(pipeline, reg)

	// Stable sort keeps registration order for equal priorities. NaN is
	// mapped to -Inf so the order stays total.
	sort.SliceStable(pipeline, func(i, j int) bool {
		return effectivePriority(pipeline[i].Priority) > effectivePriority(pipeline[j].Priority)
	})

	r.pipelines[reg.Action] = pipeline

	var once sync.Once
	return func() {
		once.Do(func() {
			r.remove(reg)
		})
	}
}

// remove deletes the exact registration, matched by id and identity, from
// the live pipeline. Snapshots already captured are unaffected.
func (r *Registry) remove(reg *Registration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	pipeline := r.pipelines[reg.Action]
	for i, existing := range pipeline {
		if existing == reg {
			r.pipelines[reg.Action] = append(pipeline[:i], pipeline[i+1:]...)
			break
		}
	}
	if len(r.pipelines[reg.Action]) == 0 {
		delete(r.pipelines, reg.Action)
	}
}

// Snapshot returns a copy of the action's pipeline in execution order.
// The copy is isolated from subsequent registry mutation.
func (r *Registry) Snapshot(action string) []*Registration {
	r.mu.RLock()
	defer r.mu.RUnlock()

	pipeline := r.pipelines[action]
	if len(pipeline) == 0 {
		return nil
	}
	snapshot := make([]*Registration, len(pipeline))
	copy(snapshot, pipeline)
	return snapshot
}

// RemoveOnce culls registrations flagged Once that appear in the executed
// set. Called against the live registry after a run completes.
func (r *Registry) RemoveOnce(action string, executed map[*Registration]bool) {
	if len(executed) == 0 {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	pipeline := r.pipelines[action]
	kept := pipeline[:0]
	for _, reg := range pipeline {
		if reg.Once && executed[reg] {
			continue
		}
		kept = append(kept, reg)
	}
	if len(kept) == 0 {
		delete(r.pipelines, action)
		return
	}
	r.pipelines[action] = kept
}

// Has reports whether the action has any registered handlers.
func (r *Registry) Has(action string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.pipelines[action]) > 0
}

// Count returns the number of handlers registered for an action.
func (r *Registry) Count(action string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.pipelines[action])
}

// TotalCount returns the number of handlers registered across all actions.
func (r *Registry) TotalCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	total := 0
	for _, pipeline := range r.pipelines {
		total += len(pipeline)
	}
	return total
}

// Actions returns all action names with registered handlers, sorted.
func (r *Registry) Actions() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.pipelines))
	for name := range r.pipelines {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ClearAction drops the action's entire pipeline.
// Safe to call when no handlers are registered.
func (r *Registry) ClearAction(action string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.pipelines, action)
}

// ClearAll drops every pipeline.
func (r *Registry) ClearAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pipelines = make(map[string][]*Registration)
}

// ActionStats summarizes one action's pipeline.
type ActionStats struct {
	// Action is the action name.
	Action string

	// HandlerCount is the number of registered handlers.
	HandlerCount int

	// OnceCount is the number of handlers flagged Once.
	OnceCount int

	// MinPriority, MaxPriority, and MeanPriority describe the priority
	// distribution. NaN priorities are counted as -Inf.
	MinPriority  float64
	MaxPriority  float64
	MeanPriority float64
}

// Stats returns statistics for one action's pipeline.
// The zero ActionStats is returned for unknown actions.
func (r *Registry) Stats(action string) ActionStats {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.statsLocked(action)
}

// AllStats returns statistics for every registered action.
func (r *Registry) AllStats() map[string]ActionStats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := make(map[string]ActionStats, len(r.pipelines))
	for action := range r.pipelines {
		stats[action] = r.statsLocked(action)
	}
	return stats
}

func (r *Registry) statsLocked(action string) ActionStats {
	pipeline := r.pipelines[action]
	st := ActionStats{Action: action, HandlerCount: len(pipeline)}
	if len(pipeline) == 0 {
		return st
	}

	st.MinPriority = math.Inf(1)
	st.MaxPriority = math.Inf(-1)
	sum := 0.0
	for _, reg := range pipeline {
		p := effectivePriority(reg.Priority)
		if p < st.MinPriority {
			st.MinPriority = p
		}
		if p > st.MaxPriority {
			st.MaxPriority = p
		}
		sum += p
		if reg.Once {
			st.OnceCount++
		}
	}
	st.MeanPriority = sum / float64(len(pipeline))
	return st
}
