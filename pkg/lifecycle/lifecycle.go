package lifecycle

import (
	"context"
	"time"
)

// State represents the lifecycle state of a modeswitch node.
type State int

const (
	// StateUnconfigured: created, controller bindings may still change.
	StateUnconfigured State = iota
	// StateInactive: configured, no control loop running.
	StateInactive
	// StateActive: the control loop owns the coordinator.
	StateActive
	// StateFinalized: shut down. Terminal.
	StateFinalized
)

var stateNames = [...]string{
	StateUnconfigured: "unconfigured",
	StateInactive:     "inactive",
	StateActive:       "active",
	StateFinalized:    "finalized",
}

// String returns the state name used by the state machine, logs and status output.
func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "unknown"
}

// ParseState returns the state named name, or false if there is none.
func ParseState(name string) (State, bool) {
	for i, n := range stateNames {
		if n == name {
			return State(i), true
		}
	}
	return State(-1), false
}

// Transition names accepted by a Manager.
const (
	TransitionConfigure  = "configure"
	TransitionCleanup    = "cleanup"
	TransitionActivate   = "activate"
	TransitionDeactivate = "deactivate"
	TransitionShutdown   = "shutdown"
)

// EventEmitter is called when lifecycle state changes.
type EventEmitter interface {
	OnStateChange(previous, current State, reason string)
}

// Manager manages the lifecycle state machine for a node.
type Manager interface {
	// State returns the current lifecycle state.
	State() State

	// Can reports whether transition is allowed from the current state.
	Can(transition string) bool

	// Fire applies transition. It fails without side effects if the
	// transition is not allowed from the current state.
	Fire(ctx context.Context, transition, reason string) error

	// WaitWithTimeout waits for all workers to finish with a timeout.
	WaitWithTimeout(timeout time.Duration) error

	// AddWorker increments the worker count.
	AddWorker()

	// WorkerDone decrements the worker count.
	WorkerDone()
}
