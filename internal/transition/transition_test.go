package transition

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/bft-labs/modeswitch/pkg/log"
)

type recorder struct {
	calls []string
}

func (r *recorder) step(name string, forwardErr, reverseErr error) Step {
	return Step{
		Name: name,
		Forward: func(context.Context) error {
			r.calls = append(r.calls, "+"+name)
			return forwardErr
		},
		Reverse: func(context.Context) error {
			r.calls = append(r.calls, "-"+name)
			return reverseErr
		},
	}
}

func TestHandler_Run(t *testing.T) {
	r := &recorder{}
	h := New(log.NewNoopLogger(), r.step("a", nil, nil), r.step("b", nil, nil))

	if err := h.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !h.Done() {
		t.Error("Done() = false after successful run")
	}

	// Second run is a no-op.
	if err := h.Run(context.Background()); err != nil {
		t.Fatalf("second Run() error = %v", err)
	}
	if want := []string{"+a", "+b"}; !reflect.DeepEqual(r.calls, want) {
		t.Errorf("calls = %v, want %v", r.calls, want)
	}

	if err := h.Reverse(context.Background()); err != nil {
		t.Fatalf("Reverse() error = %v", err)
	}
	if want := []string{"+a", "+b", "-b", "-a"}; !reflect.DeepEqual(r.calls, want) {
		t.Errorf("calls = %v, want %v", r.calls, want)
	}
	if h.Done() {
		t.Error("Done() = true after Reverse")
	}
}

func TestHandler_RunFailureReversesCompleted(t *testing.T) {
	boom := errors.New("boom")
	r := &recorder{}
	h := New(log.NewNoopLogger(),
		r.step("a", nil, nil),
		r.step("b", nil, nil),
		r.step("c", boom, nil),
		r.step("d", nil, nil),
	)

	err := h.Run(context.Background())
	if !errors.Is(err, boom) {
		t.Fatalf("Run() error = %v, want boom", err)
	}
	if want := []string{"+a", "+b", "+c", "-b", "-a"}; !reflect.DeepEqual(r.calls, want) {
		t.Errorf("calls = %v, want %v", r.calls, want)
	}
	if h.Done() {
		t.Error("Done() = true after failed run")
	}
}

func TestHandler_ReverseErrorsAreJoined(t *testing.T) {
	boom := errors.New("boom")
	stuck := errors.New("stuck")
	r := &recorder{}
	h := New(log.NewNoopLogger(),
		r.step("a", nil, stuck),
		Step{Name: "no-reverse", Forward: func(context.Context) error { return nil }},
		r.step("c", boom, nil),
	)

	err := h.Run(context.Background())
	if !errors.Is(err, boom) || !errors.Is(err, stuck) {
		t.Fatalf("Run() error = %v, want both boom and stuck", err)
	}
	if want := []string{"+a", "+c", "-a"}; !reflect.DeepEqual(r.calls, want) {
		t.Errorf("calls = %v, want %v", r.calls, want)
	}
}

func TestHandler_Empty(t *testing.T) {
	h := New(log.NewNoopLogger())
	if err := h.Run(context.Background()); err != nil {
		t.Errorf("Run() error = %v", err)
	}
	if h.Done() {
		t.Error("empty handler should never report Done")
	}
}
