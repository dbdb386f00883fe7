package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/looplab/fsm"

	"github.com/bft-labs/modeswitch/internal/domain"
	"github.com/bft-labs/modeswitch/internal/ports"
	"github.com/bft-labs/modeswitch/pkg/lifecycle"
)

// ShutdownTimeout is the maximum time to wait for graceful shutdown.
const ShutdownTimeout = 30 * time.Second

// State represents the lifecycle state of the node.
type State = lifecycle.State

const (
	StateUnconfigured = lifecycle.StateUnconfigured
	StateInactive     = lifecycle.StateInactive
	StateActive       = lifecycle.StateActive
	StateFinalized    = lifecycle.StateFinalized
)

func parseState(name string) State {
	s, _ := lifecycle.ParseState(name)
	return s
}

// Lifecycle events.
const (
	EventConfigure  = lifecycle.TransitionConfigure
	EventCleanup    = lifecycle.TransitionCleanup
	EventActivate   = lifecycle.TransitionActivate
	EventDeactivate = lifecycle.TransitionDeactivate
	EventShutdown   = lifecycle.TransitionShutdown
)

// Lifecycle manages the state machine for the node.
type Lifecycle struct {
	mu           sync.Mutex
	machine      *fsm.FSM
	cancel       context.CancelFunc
	wg           sync.WaitGroup
	logger       ports.Logger
	eventEmitter EventEmitter
}

var _ lifecycle.Manager = (*Lifecycle)(nil)

// EventEmitter is called when lifecycle state changes.
type EventEmitter = lifecycle.EventEmitter

// NewLifecycle creates a new lifecycle manager in the unconfigured state.
func NewLifecycle(logger ports.Logger, emitter EventEmitter) *Lifecycle {
	machine := fsm.NewFSM(
		StateUnconfigured.String(),
		fsm.Events{
			{Name: EventConfigure, Src: []string{StateUnconfigured.String()}, Dst: StateInactive.String()},
			{Name: EventCleanup, Src: []string{StateInactive.String()}, Dst: StateUnconfigured.String()},
			{Name: EventActivate, Src: []string{StateInactive.String()}, Dst: StateActive.String()},
			{Name: EventDeactivate, Src: []string{StateActive.String()}, Dst: StateInactive.String()},
			{Name: EventShutdown, Src: []string{
				StateUnconfigured.String(),
				StateInactive.String(),
				StateActive.String(),
			}, Dst: StateFinalized.String()},
		},
		fsm.Callbacks{},
	)

	return &Lifecycle{
		machine:      machine,
		logger:       logger,
		eventEmitter: emitter,
	}
}

// State returns the current lifecycle state.
func (l *Lifecycle) State() State {
	return parseState(l.machine.Current())
}

// Can reports whether event is allowed from the current state.
func (l *Lifecycle) Can(event string) bool {
	return l.machine.Can(event)
}

// Fire applies event. Returns domain.ErrInvalidTransition if the event is
// not allowed from the current state.
func (l *Lifecycle) Fire(ctx context.Context, event, reason string) error {
	l.mu.Lock()
	previous := l.State()
	if err := l.machine.Event(ctx, event); err != nil {
		l.mu.Unlock()
		return fmt.Errorf("%w: %s from %s: %v", domain.ErrInvalidTransition, event, previous, err)
	}
	current := l.State()
	l.mu.Unlock()

	// Emit event outside of lock
	if l.eventEmitter != nil {
		l.eventEmitter.OnStateChange(previous, current, reason)
	}

	l.logger.Info("state transition",
		ports.String("from", previous.String()),
		ports.String("to", current.String()),
		ports.String("event", event),
		ports.String("reason", reason),
	)

	return nil
}

// Check returns domain.ErrInvalidTransition if event is not allowed from the
// current state, without firing it.
func (l *Lifecycle) Check(event string) error {
	if l.Can(event) {
		return nil
	}
	return fmt.Errorf("%w: %s from %s", domain.ErrInvalidTransition, event, l.State())
}

// SetCancel stores the cancel function for the running workers.
func (l *Lifecycle) SetCancel(cancel context.CancelFunc) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cancel = cancel
}

// Cancel stops the running workers.
func (l *Lifecycle) Cancel() {
	l.mu.Lock()
	cancel := l.cancel
	l.cancel = nil
	l.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

// AddWorker increments the worker count.
func (l *Lifecycle) AddWorker() {
	l.wg.Add(1)
}

// WorkerDone decrements the worker count.
func (l *Lifecycle) WorkerDone() {
	l.wg.Done()
}

// WaitWithTimeout waits for all workers to finish with a timeout.
// Returns ErrShutdownTimeout if the timeout expires.
func (l *Lifecycle) WaitWithTimeout(timeout time.Duration) error {
	done := make(chan struct{})
	go func() {
		l.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		l.logger.Warn("shutdown timeout, forcing exit",
			ports.Duration("timeout", timeout),
		)
		return domain.ErrShutdownTimeout
	}
}
