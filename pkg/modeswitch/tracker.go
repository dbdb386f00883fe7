package modeswitch

import "sort"

// nameSet is a set of controller names.
type nameSet map[string]struct{}

func newNameSet(names ...string) nameSet {
	s := make(nameSet, len(names))
	s.add(names...)
	return s
}

func (s nameSet) add(names ...string) {
	for _, n := range names {
		s[n] = struct{}{}
	}
}

func (s nameSet) has(name string) bool {
	_, ok := s[name]
	return ok
}

func (s nameSet) sorted() []string {
	out := make([]string, 0, len(s))
	for n := range s {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Tracker records which controllers are confirmed running.
//
// It is mutated only by the coordinator's approval operations. Fixed
// controllers are tracked once approved so that later proposals do not start
// them again, but they never show up in Active.
type Tracker struct {
	running nameSet
	fixed   nameSet
}

func newTracker(fixed []string) *Tracker {
	return &Tracker{
		running: newNameSet(),
		fixed:   newNameSet(fixed...),
	}
}

// IsRunning reports whether name has been confirmed started and not since
// confirmed stopped.
func (t *Tracker) IsRunning(name string) bool {
	return t.running.has(name)
}

// IsFixed reports whether name is one of the always-on controllers.
func (t *Tracker) IsFixed(name string) bool {
	return t.fixed.has(name)
}

// Active returns the running controllers, fixed controllers excluded, sorted.
func (t *Tracker) Active() []string {
	out := make([]string, 0, len(t.running))
	for n := range t.running {
		if !t.fixed.has(n) {
			out = append(out, n)
		}
	}
	sort.Strings(out)
	return out
}

// Fixed returns the fixed controllers, sorted.
func (t *Tracker) Fixed() []string {
	return t.fixed.sorted()
}

func (t *Tracker) markStarted(names []string) {
	t.running.add(names...)
}

func (t *Tracker) markStopped(names []string) {
	for _, n := range names {
		delete(t.running, n)
	}
}
