package app

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"

	"github.com/bft-labs/modeswitch/internal/domain"
	"github.com/bft-labs/modeswitch/internal/ports"
	"github.com/bft-labs/modeswitch/pkg/modeswitch"
)

// SwitcherConfig controls how hard the switcher tries to get a proposal
// confirmed by the controller manager.
type SwitcherConfig struct {
	// Retries is the number of additional manager calls after the first.
	Retries int

	RetryInitial time.Duration
	RetryMax     time.Duration
}

// SwitchEventEmitter is called after every switch attempt.
type SwitchEventEmitter interface {
	OnSwitch(result domain.SwitchResult)
}

// Switcher drives coordinator proposals through a controller manager and
// approves each half once the manager has confirmed all of it.
//
// The switcher does not lock the coordinator. Callers must ensure only one
// goroutine uses the coordinator at a time.
type Switcher struct {
	coord   *modeswitch.Coordinator
	manager ports.ControllerManager
	config  SwitcherConfig
	logger  ports.Logger
	emitter SwitchEventEmitter
	newID   func() string
}

// NewSwitcher creates a switcher. emitter may be nil.
func NewSwitcher(
	coord *modeswitch.Coordinator,
	manager ports.ControllerManager,
	config SwitcherConfig,
	logger ports.Logger,
	emitter SwitchEventEmitter,
) *Switcher {
	if config.Retries < 0 {
		config.Retries = 0
	}
	return &Switcher{
		coord:   coord,
		manager: manager,
		config:  config,
		logger:  logger,
		emitter: emitter,
		newID:   uuid.NewString,
	}
}

// Switch proposes a switch to mode and executes it.
func (s *Switcher) Switch(ctx context.Context, mode modeswitch.ControlMode) domain.SwitchResult {
	start := time.Now()
	plan, err := s.coord.ComputeSwitch(mode)
	if err != nil {
		result := domain.SwitchResult{
			RequestID: s.newID(),
			Mode:      mode,
			Outcome:   domain.OutcomeRejected,
			Err:       err,
		}
		return s.finish(result, start)
	}
	return s.execute(ctx, plan, start)
}

// DeactivateAll proposes stopping every non-fixed controller and executes it.
func (s *Switcher) DeactivateAll(ctx context.Context) domain.SwitchResult {
	start := time.Now()
	return s.execute(ctx, s.coord.ComputeFullDeactivation(), start)
}

func (s *Switcher) execute(ctx context.Context, plan modeswitch.Plan, start time.Time) domain.SwitchResult {
	result := domain.SwitchResult{
		RequestID: s.newID(),
		Mode:      plan.Mode,
		Plan:      plan,
	}
	if plan.Empty() {
		result.Outcome = domain.OutcomeApplied
		return s.finish(result, start)
	}

	toActivate := newPending(plan.Activate)
	toDeactivate := newPending(plan.Deactivate)
	confirmed := 0

	op := func() (struct{}, error) {
		result.Attempts++
		req := domain.SwitchRequest{
			ID:         result.RequestID,
			Activate:   toActivate.names(),
			Deactivate: toDeactivate.names(),
		}

		report, err := s.manager.SwitchControllers(ctx, req)
		if err != nil {
			s.logger.Warn("controller manager call failed",
				ports.String("request_id", result.RequestID),
				ports.Int("attempt", result.Attempts),
				ports.Err(err),
			)
			if errors.Is(err, domain.ErrManagerRejected) {
				return struct{}{}, backoff.Permanent(err)
			}
			return struct{}{}, err
		}

		confirmed += toDeactivate.confirm(report.Deactivated)
		confirmed += toActivate.confirm(report.Activated)

		if toActivate.empty() && toDeactivate.empty() {
			return struct{}{}, nil
		}
		return struct{}{}, unconfirmedError(toActivate, toDeactivate, report.Failed)
	}

	_, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(newRetryPolicy(s.config.RetryInitial, s.config.RetryMax)),
		backoff.WithMaxTries(uint(s.config.Retries+1)),
	)

	if toDeactivate.empty() {
		s.coord.ApproveDeactivation()
	}
	if toActivate.empty() {
		s.coord.ApproveActivation()
	}

	switch {
	case err == nil:
		result.Outcome = domain.OutcomeApplied
	case confirmed == 0:
		result.Outcome = domain.OutcomeRejected
		s.coord.Discard()
	default:
		result.Outcome = domain.OutcomeNeedsReconcile
		unconfirmed := append(toDeactivate.names(), toActivate.names()...)
		sort.Strings(unconfirmed)
		result.Unconfirmed = unconfirmed
	}
	result.Err = err
	return s.finish(result, start)
}

func (s *Switcher) finish(result domain.SwitchResult, start time.Time) domain.SwitchResult {
	result.Duration = time.Since(start)
	if result.Err != nil {
		result.Error = result.Err.Error()
	}

	fields := []ports.Field{
		ports.String("request_id", result.RequestID),
		ports.Stringer("mode", result.Mode),
		ports.String("outcome", result.Outcome.String()),
		ports.Strings("activate", result.Plan.Activate),
		ports.Strings("deactivate", result.Plan.Deactivate),
		ports.Int("attempts", result.Attempts),
		ports.Duration("duration", result.Duration),
	}
	switch result.Outcome {
	case domain.OutcomeApplied:
		s.logger.Info("controller switch applied", fields...)
	case domain.OutcomeNeedsReconcile:
		fields = append(fields, ports.Strings("unconfirmed", result.Unconfirmed), ports.Err(result.Err))
		s.logger.Error("controller switch incomplete", fields...)
	default:
		fields = append(fields, ports.Err(result.Err))
		s.logger.Warn("controller switch rejected", fields...)
	}

	if s.emitter != nil {
		s.emitter.OnSwitch(result)
	}
	return result
}

// pending is the set of controllers in one half still awaiting confirmation.
type pending map[string]struct{}

func newPending(names []string) pending {
	p := make(pending, len(names))
	for _, n := range names {
		p[n] = struct{}{}
	}
	return p
}

func (p pending) confirm(names []string) int {
	n := 0
	for _, name := range names {
		if _, ok := p[name]; ok {
			delete(p, name)
			n++
		}
	}
	return n
}

func (p pending) empty() bool {
	return len(p) == 0
}

func (p pending) names() []string {
	out := make([]string, 0, len(p))
	for n := range p {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

func unconfirmedError(activate, deactivate pending, failed map[string]string) error {
	var parts []string
	for _, name := range append(deactivate.names(), activate.names()...) {
		if reason, ok := failed[name]; ok {
			parts = append(parts, name+": "+reason)
		} else {
			parts = append(parts, name+": no confirmation")
		}
	}
	return fmt.Errorf("%d controllers unconfirmed (%s)", len(parts), strings.Join(parts, "; "))
}
