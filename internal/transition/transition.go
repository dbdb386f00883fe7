// Package transition runs ordered, reversible steps such as bringing a node
// up: switch to the initial mode, then start the control loop.
package transition

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/bft-labs/modeswitch/internal/ports"
)

// Step is one reversible unit of work. Reverse may be nil.
type Step struct {
	Name    string
	Forward func(ctx context.Context) error
	Reverse func(ctx context.Context) error
}

// Handler executes steps in order and undoes completed ones on failure.
type Handler struct {
	mu     sync.Mutex
	steps  []Step
	done   int
	logger ports.Logger
}

// New creates a handler for steps.
func New(logger ports.Logger, steps ...Step) *Handler {
	return &Handler{steps: steps, logger: logger}
}

// Run executes every step not yet done. If a step fails, the steps completed
// so far are reversed in reverse order and the error is returned. Calling
// Run again after a successful run is a no-op.
func (h *Handler) Run(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	for h.done < len(h.steps) {
		step := h.steps[h.done]
		if err := step.Forward(ctx); err != nil {
			h.logger.Warn("transition step failed, reversing",
				ports.String("step", step.Name),
				ports.Int("completed", h.done),
				ports.Err(err),
			)
			stepErr := fmt.Errorf("step %q: %w", step.Name, err)
			if rerr := h.reverseLocked(ctx); rerr != nil {
				return errors.Join(stepErr, rerr)
			}
			return stepErr
		}
		h.logger.Debug("transition step done", ports.String("step", step.Name))
		h.done++
	}
	return nil
}

// Reverse undoes every completed step in reverse order. Every reverse
// callback runs even if an earlier one fails; the errors are joined.
func (h *Handler) Reverse(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.reverseLocked(ctx)
}

func (h *Handler) reverseLocked(ctx context.Context) error {
	var errs []error
	for h.done > 0 {
		h.done--
		step := h.steps[h.done]
		if step.Reverse == nil {
			continue
		}
		if err := step.Reverse(ctx); err != nil {
			h.logger.Error("transition reverse failed",
				ports.String("step", step.Name),
				ports.Err(err),
			)
			errs = append(errs, fmt.Errorf("reverse %q: %w", step.Name, err))
		}
	}
	return errors.Join(errs...)
}

// Done reports whether every step has completed.
func (h *Handler) Done() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.steps) > 0 && h.done == len(h.steps)
}
