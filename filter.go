package actionpipe

// DispatchFilter narrows the registry snapshot a dispatch executes.
// All set criteria must match; unset criteria are ignored.
type DispatchFilter struct {
	// Tags matches registrations carrying at least one of the tags.
	Tags []string

	// Category, Environment, and Feature match the corresponding
	// classification fields exactly.
	Category    string
	Environment string
	Feature     string

	// HandlerIDs restricts the snapshot to the listed ids.
	HandlerIDs []string

	// ExcludeTags removes registrations carrying any of the tags.
	ExcludeTags []string

	// ExcludeCategory removes registrations of the category.
	ExcludeCategory string

	// ExcludeHandlerIDs removes the listed ids.
	ExcludeHandlerIDs []string

	// Custom is an arbitrary predicate applied last.
	Custom func(*Registration) bool
}

// matches reports whether a registration passes the filter.
func (f *DispatchFilter) matches(reg *Registration) bool {
	if len(f.Tags) > 0 {
		found := false
		for _, tag := range f.Tags {
			if reg.HasTag(tag) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.Category != "" && reg.Category != f.Category {
		return false
	}
	if f.Environment != "" && reg.Environment != f.Environment {
		return false
	}
	if f.Feature != "" && reg.Feature != f.Feature {
		return false
	}
	if len(f.HandlerIDs) > 0 && !containsString(f.HandlerIDs, reg.ID) {
		return false
	}
	for _, tag := range f.ExcludeTags {
		if reg.HasTag(tag) {
			return false
		}
	}
	if f.ExcludeCategory != "" && reg.Category == f.ExcludeCategory {
		return false
	}
	if containsString(f.ExcludeHandlerIDs, reg.ID) {
		return false
	}
	if f.Custom != nil && !f.Custom(reg) {
		return false
	}
	return true
}

// applyFilter returns the snapshot entries passing the filter, preserving
// order. A nil filter keeps everything.
func applyFilter(snapshot []*Registration, f *DispatchFilter) []*Registration {
	if f == nil {
		return snapshot
	}
	kept := make([]*Registration, 0, len(snapshot))
	for _, reg := range snapshot {
		if f.matches(reg) {
			kept = append(kept, reg)
		}
	}
	return kept
}

// applyConstraints enforces dependency and conflict references against the
// filtered snapshot: a registration whose dependency id is absent is
// dropped, as is one whose conflict id appears earlier (higher priority) in
// the snapshot.
func applyConstraints(snapshot []*Registration) []*Registration {
	if len(snapshot) == 0 {
		return snapshot
	}

	present := make(map[string]bool, len(snapshot))
	for _, reg := range snapshot {
		present[reg.ID] = true
	}

	kept := make([]*Registration, 0, len(snapshot))
	seen := make(map[string]bool, len(snapshot))
outer:
	for _, reg := range snapshot {
		for _, dep := range reg.Dependencies {
			if !present[dep] {
				continue outer
			}
		}
		for _, conflict := range reg.Conflicts {
			if seen[conflict] {
				continue outer
			}
		}
		kept = append(kept, reg)
		seen[reg.ID] = true
	}
	return kept
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
