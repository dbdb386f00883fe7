package domain

import (
	"fmt"
	"time"

	"github.com/bft-labs/modeswitch/pkg/modeswitch"
)

// SwitchRequest is what a controller manager is asked to do in one call.
// Deactivate is processed before Activate.
type SwitchRequest struct {
	ID         string   `json:"request_id"`
	Activate   []string `json:"activate"`
	Deactivate []string `json:"deactivate"`
}

// Empty reports whether the request starts or stops nothing.
func (r SwitchRequest) Empty() bool {
	return len(r.Activate) == 0 && len(r.Deactivate) == 0
}

// SwitchReport is the controller manager's per-controller answer.
// A controller listed in neither Activated/Deactivated nor Failed is
// unconfirmed.
type SwitchReport struct {
	Activated   []string          `json:"activated"`
	Deactivated []string          `json:"deactivated"`
	Failed      map[string]string `json:"failed,omitempty"`
}

// Outcome classifies how a switch ended.
type Outcome int

const (
	// OutcomeApplied: both halves confirmed and approved.
	OutcomeApplied Outcome = iota
	// OutcomeRejected: nothing was confirmed; the proposal was discarded.
	OutcomeRejected
	// OutcomeNeedsReconcile: some controllers changed state but at least one
	// half could not be confirmed. The unconfirmed half stays pending.
	OutcomeNeedsReconcile
)

// String returns the label used in logs and metrics.
func (o Outcome) String() string {
	switch o {
	case OutcomeApplied:
		return "applied"
	case OutcomeRejected:
		return "rejected"
	case OutcomeNeedsReconcile:
		return "needs_reconcile"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (o Outcome) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (o *Outcome) UnmarshalText(text []byte) error {
	for _, c := range []Outcome{OutcomeApplied, OutcomeRejected, OutcomeNeedsReconcile} {
		if c.String() == string(text) {
			*o = c
			return nil
		}
	}
	return fmt.Errorf("unknown switch outcome %q", text)
}

// SwitchResult is the explicit result of driving one proposal through the
// controller manager.
type SwitchResult struct {
	RequestID   string                 `json:"request_id"`
	Mode        modeswitch.ControlMode `json:"mode"`
	Plan        modeswitch.Plan        `json:"plan"`
	Outcome     Outcome                `json:"outcome"`
	Unconfirmed []string               `json:"unconfirmed,omitempty"`
	Attempts    int                    `json:"attempts"`
	Duration    time.Duration          `json:"duration_ns"`
	Err         error                  `json:"-"`
	Error       string                 `json:"error,omitempty"`
}

// Applied reports whether the switch fully took effect.
func (r SwitchResult) Applied() bool {
	return r.Outcome == OutcomeApplied
}

// Snapshot is a point-in-time view of the node for diagnostics.
type Snapshot struct {
	Lifecycle  string                 `json:"lifecycle"`
	Mode       modeswitch.ControlMode `json:"mode"`
	Active     []string               `json:"active"`
	Fixed      []string               `json:"fixed"`
	Pending    modeswitch.Plan        `json:"pending"`
	Phase      string                 `json:"phase"`
	LastResult *SwitchResult          `json:"last_result,omitempty"`
	Ticks      uint64                 `json:"ticks"`
	UpdatedAt  time.Time              `json:"updated_at"`
}
