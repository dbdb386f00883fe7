package app

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/bft-labs/modeswitch/internal/domain"
	"github.com/bft-labs/modeswitch/internal/ports"
)

// mockLogger implements ports.Logger for testing.
type mockLogger struct{}

func (mockLogger) Debug(msg string, fields ...ports.Field) {}
func (mockLogger) Info(msg string, fields ...ports.Field)  {}
func (mockLogger) Warn(msg string, fields ...ports.Field)  {}
func (mockLogger) Error(msg string, fields ...ports.Field) {}

// mockEmitter tracks state change events for testing.
type mockEmitter struct {
	mu     sync.Mutex
	events []stateChangeEvent
}

type stateChangeEvent struct {
	previous State
	current  State
	reason   string
}

func (m *mockEmitter) OnStateChange(previous, current State, reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, stateChangeEvent{previous, current, reason})
}

func (m *mockEmitter) Events() []stateChangeEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]stateChangeEvent{}, m.events...)
}

// lifecycleIn drives a fresh lifecycle to state through valid events.
func lifecycleIn(t *testing.T, state State) *Lifecycle {
	t.Helper()
	l := NewLifecycle(&mockLogger{}, nil)
	path := map[State][]string{
		StateUnconfigured: nil,
		StateInactive:     {EventConfigure},
		StateActive:       {EventConfigure, EventActivate},
		StateFinalized:    {EventShutdown},
	}
	for _, ev := range path[state] {
		if err := l.Fire(context.Background(), ev, "setup"); err != nil {
			t.Fatalf("setup %s: %v", ev, err)
		}
	}
	return l
}

func TestNewLifecycle(t *testing.T) {
	l := NewLifecycle(&mockLogger{}, nil)

	if l == nil {
		t.Fatal("NewLifecycle returned nil")
	}
	if l.State() != StateUnconfigured {
		t.Errorf("initial state = %v, want unconfigured", l.State())
	}
}

func TestState_String(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{StateUnconfigured, "unconfigured"},
		{StateInactive, "inactive"},
		{StateActive, "active"},
		{StateFinalized, "finalized"},
		{State(99), "unknown"},
	}

	for _, tt := range tests {
		got := tt.state.String()
		if got != tt.want {
			t.Errorf("State(%d).String() = %s, want %s", tt.state, got, tt.want)
		}
	}
}

func TestLifecycle_Fire_ValidTransitions(t *testing.T) {
	tests := []struct {
		name  string
		from  State
		event string
		to    State
	}{
		{"configure", StateUnconfigured, EventConfigure, StateInactive},
		{"cleanup", StateInactive, EventCleanup, StateUnconfigured},
		{"activate", StateInactive, EventActivate, StateActive},
		{"deactivate", StateActive, EventDeactivate, StateInactive},
		{"shutdown from unconfigured", StateUnconfigured, EventShutdown, StateFinalized},
		{"shutdown from inactive", StateInactive, EventShutdown, StateFinalized},
		{"shutdown from active", StateActive, EventShutdown, StateFinalized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := lifecycleIn(t, tt.from)

			if err := l.Fire(context.Background(), tt.event, "test"); err != nil {
				t.Fatalf("Fire(%s) error = %v", tt.event, err)
			}
			if l.State() != tt.to {
				t.Errorf("state = %v after %s, want %v", l.State(), tt.event, tt.to)
			}
		})
	}
}

func TestLifecycle_Fire_InvalidTransitions(t *testing.T) {
	tests := []struct {
		name  string
		from  State
		event string
	}{
		{"activate while unconfigured", StateUnconfigured, EventActivate},
		{"cleanup while unconfigured", StateUnconfigured, EventCleanup},
		{"configure while inactive", StateInactive, EventConfigure},
		{"deactivate while inactive", StateInactive, EventDeactivate},
		{"activate while active", StateActive, EventActivate},
		{"cleanup while active", StateActive, EventCleanup},
		{"configure while finalized", StateFinalized, EventConfigure},
		{"shutdown while finalized", StateFinalized, EventShutdown},
		{"unknown event", StateInactive, "explode"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := lifecycleIn(t, tt.from)

			if l.Can(tt.event) {
				t.Errorf("Can(%s) = true in %v", tt.event, tt.from)
			}
			if err := l.Check(tt.event); !errors.Is(err, domain.ErrInvalidTransition) {
				t.Errorf("Check(%s) = %v, want ErrInvalidTransition", tt.event, err)
			}

			err := l.Fire(context.Background(), tt.event, "test")
			if !errors.Is(err, domain.ErrInvalidTransition) {
				t.Errorf("Fire() error = %v, want ErrInvalidTransition", err)
			}
			// State should not change on invalid transition
			if l.State() != tt.from {
				t.Errorf("state changed to %v on invalid transition, want %v", l.State(), tt.from)
			}
		})
	}
}

func TestLifecycle_Fire_EmitsEvents(t *testing.T) {
	emitter := &mockEmitter{}
	l := NewLifecycle(&mockLogger{}, emitter)

	_ = l.Fire(context.Background(), EventConfigure, "configure test")
	_ = l.Fire(context.Background(), EventActivate, "activate test")
	_ = l.Fire(context.Background(), EventConfigure, "rejected")

	events := emitter.Events()
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}

	if events[0].previous != StateUnconfigured || events[0].current != StateInactive {
		t.Errorf("event 0: got %v->%v, want unconfigured->inactive", events[0].previous, events[0].current)
	}
	if events[1].previous != StateInactive || events[1].current != StateActive {
		t.Errorf("event 1: got %v->%v, want inactive->active", events[1].previous, events[1].current)
	}
	if events[1].reason != "activate test" {
		t.Errorf("event 1 reason = %q", events[1].reason)
	}
}

func TestLifecycle_SetCancel_And_Cancel(t *testing.T) {
	l := NewLifecycle(&mockLogger{}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	l.SetCancel(cancel)

	select {
	case <-ctx.Done():
		t.Error("context should not be canceled before Cancel()")
	default:
	}

	l.Cancel()

	select {
	case <-ctx.Done():
	default:
		t.Error("context should be canceled after Cancel()")
	}

	// Second cancel is a no-op.
	l.Cancel()
}

func TestLifecycle_WaitWithTimeout_Success(t *testing.T) {
	l := NewLifecycle(&mockLogger{}, nil)

	l.AddWorker()

	go func() {
		time.Sleep(10 * time.Millisecond)
		l.WorkerDone()
	}()

	if err := l.WaitWithTimeout(time.Second); err != nil {
		t.Errorf("WaitWithTimeout() = %v, want nil", err)
	}
}

func TestLifecycle_WaitWithTimeout_Timeout(t *testing.T) {
	l := NewLifecycle(&mockLogger{}, nil)

	l.AddWorker()

	err := l.WaitWithTimeout(10 * time.Millisecond)
	if !errors.Is(err, domain.ErrShutdownTimeout) {
		t.Errorf("WaitWithTimeout() = %v, want ErrShutdownTimeout", err)
	}

	l.WorkerDone()
}

func TestLifecycle_Concurrency(t *testing.T) {
	l := NewLifecycle(&mockLogger{}, nil)

	var wg sync.WaitGroup

	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_ = l.State()
				_ = l.Can(EventActivate)
			}
		}()
	}

	// Only one configure can win.
	var mu sync.Mutex
	wins := 0
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := l.Fire(context.Background(), EventConfigure, "test"); err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}

	wg.Wait()
	if wins != 1 {
		t.Errorf("configure succeeded %d times, want 1", wins)
	}
}
