package modeswitch

import (
	"fmt"
	"strings"

	"github.com/bft-labs/modeswitch/pkg/log"
)

// Plan is a proposed controller switch. Activate and Deactivate are sorted
// and disjoint. Mode is ModeUnspecified for a full deactivation.
type Plan struct {
	Mode       ControlMode `json:"mode"`
	Activate   []string    `json:"activate"`
	Deactivate []string    `json:"deactivate"`
}

// Empty reports whether the plan changes nothing.
func (p Plan) Empty() bool {
	return len(p.Activate) == 0 && len(p.Deactivate) == 0
}

func (p Plan) clone() Plan {
	return Plan{
		Mode:       p.Mode,
		Activate:   copyNames(p.Activate),
		Deactivate: copyNames(p.Deactivate),
	}
}

func copyNames(names []string) []string {
	out := make([]string, len(names))
	copy(out, names)
	return out
}

// Phase describes where the coordinator is in the propose/approve cycle.
type Phase int

const (
	// PhaseIdle: nothing pending.
	PhaseIdle Phase = iota
	// PhaseProposed: a plan is pending and neither half has been approved.
	PhaseProposed
	// PhaseActivated: activation approved, deactivation still pending.
	PhaseActivated
	// PhaseDeactivated: deactivation approved, activation still pending.
	PhaseDeactivated
)

// String returns a human-readable representation of the phase.
func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "Idle"
	case PhaseProposed:
		return "Proposed"
	case PhaseActivated:
		return "Activated"
	case PhaseDeactivated:
		return "Deactivated"
	default:
		return "Unknown"
	}
}

// Config holds what the coordinator needs at construction.
type Config struct {
	// FixedControllers must be active in every mode.
	FixedControllers []string

	// Bindings are the initial role to controller name bindings.
	Bindings map[Role]string

	// Logger receives debug output for proposals and approvals. Optional.
	Logger log.Logger
}

// Coordinator computes which controllers to start and stop for a mode
// change and commits a proposal only when each half is approved.
//
// A Coordinator is not safe for concurrent use. It is meant to be owned by
// the single goroutine driving the control loop.
type Coordinator struct {
	registry *Registry
	tracker  *Tracker
	pending  Plan
	phase    Phase
	logger   log.Logger
}

// NewCoordinator creates a coordinator with nothing active and nothing pending.
func NewCoordinator(cfg Config) (*Coordinator, error) {
	fixed := make([]string, 0, len(cfg.FixedControllers))
	for i, name := range cfg.FixedControllers {
		name = strings.TrimSpace(name)
		if name == "" {
			return nil, fmt.Errorf("modeswitch: fixed controller %d has an empty name", i)
		}
		fixed = append(fixed, name)
	}

	registry := NewRegistry()
	for role, name := range cfg.Bindings {
		if err := registry.UpdateControllerName(role, name); err != nil {
			return nil, err
		}
	}

	logger := cfg.Logger
	if logger == nil {
		logger = log.NewNoopLogger()
	}

	return &Coordinator{
		registry: registry,
		tracker:  newTracker(fixed),
		logger:   logger,
	}, nil
}

// UpdateControllerName binds name to role. See Registry.UpdateControllerName.
func (c *Coordinator) UpdateControllerName(role Role, name string) error {
	if err := c.registry.UpdateControllerName(role, name); err != nil {
		return err
	}
	c.logger.Debug("controller name updated",
		log.String("role", role.String()),
		log.String("controller", name),
	)
	return nil
}

// ControllerName returns the name bound to role.
func (c *Coordinator) ControllerName(role Role) (string, bool) {
	return c.registry.ControllerName(role)
}

// Bindings returns a copy of the non-empty role bindings.
func (c *Coordinator) Bindings() map[Role]string {
	return c.registry.Bindings()
}

// ComputeSwitch proposes the controllers to activate and deactivate to reach
// mode. Controllers needed both before and after the switch appear in
// neither set. The proposal replaces any pending one; the active set is not
// touched. On error nothing changes.
func (c *Coordinator) ComputeSwitch(mode ControlMode) (Plan, error) {
	names, err := c.registry.Resolve(mode)
	if err != nil {
		return Plan{}, err
	}

	desired := newNameSet(names...)
	desired.add(c.tracker.Fixed()...)

	activate := newNameSet()
	for name := range desired {
		if !c.tracker.IsRunning(name) {
			activate.add(name)
		}
	}

	deactivate := newNameSet()
	for _, name := range c.tracker.Active() {
		if !desired.has(name) {
			deactivate.add(name)
		}
	}

	c.propose(Plan{
		Mode:       mode,
		Activate:   activate.sorted(),
		Deactivate: deactivate.sorted(),
	})
	return c.pending.clone(), nil
}

// ComputeFullDeactivation proposes stopping every active controller except
// the fixed ones. The proposal replaces any pending one.
func (c *Coordinator) ComputeFullDeactivation() Plan {
	c.propose(Plan{
		Mode:       ModeUnspecified,
		Activate:   []string{},
		Deactivate: c.tracker.Active(),
	})
	return c.pending.clone()
}

func (c *Coordinator) propose(p Plan) {
	if c.phase != PhaseIdle {
		c.logger.Debug("replacing unapproved proposal",
			log.String("phase", c.phase.String()),
			log.Strings("activate", c.pending.Activate),
			log.Strings("deactivate", c.pending.Deactivate),
		)
	}
	c.pending = p
	c.phase = PhaseProposed
	if p.Empty() {
		c.phase = PhaseIdle
	}
	c.logger.Debug("switch proposed",
		log.String("mode", p.Mode.String()),
		log.Strings("activate", p.Activate),
		log.Strings("deactivate", p.Deactivate),
	)
}

// ApproveActivation records that every controller in the pending activate
// set was started. No-op if nothing is pending.
func (c *Coordinator) ApproveActivation() {
	if len(c.pending.Activate) == 0 {
		return
	}
	c.tracker.markStarted(c.pending.Activate)
	c.logger.Debug("activation approved", log.Strings("controllers", c.pending.Activate))
	c.pending.Activate = []string{}
	c.settle(PhaseActivated)
}

// ApproveDeactivation records that every controller in the pending
// deactivate set was stopped. No-op if nothing is pending.
func (c *Coordinator) ApproveDeactivation() {
	if len(c.pending.Deactivate) == 0 {
		return
	}
	c.tracker.markStopped(c.pending.Deactivate)
	c.logger.Debug("deactivation approved", log.Strings("controllers", c.pending.Deactivate))
	c.pending.Deactivate = []string{}
	c.settle(PhaseDeactivated)
}

// settle moves to Idle once both halves are approved, otherwise to half.
func (c *Coordinator) settle(half Phase) {
	if c.pending.Empty() {
		c.phase = PhaseIdle
		return
	}
	c.phase = half
}

// Discard drops the pending proposal without touching the active set.
func (c *Coordinator) Discard() {
	if c.phase == PhaseIdle {
		return
	}
	c.logger.Debug("proposal discarded",
		log.Strings("activate", c.pending.Activate),
		log.Strings("deactivate", c.pending.Deactivate),
	)
	c.pending = Plan{Mode: c.pending.Mode}
	c.phase = PhaseIdle
}

// Active returns the running controllers, fixed controllers excluded.
func (c *Coordinator) Active() []string {
	return c.tracker.Active()
}

// Fixed returns the fixed controllers.
func (c *Coordinator) Fixed() []string {
	return c.tracker.Fixed()
}

// Pending returns a copy of the pending proposal.
func (c *Coordinator) Pending() Plan {
	return c.pending.clone()
}

// Phase returns the current phase of the propose/approve cycle.
func (c *Coordinator) Phase() Phase {
	return c.phase
}
