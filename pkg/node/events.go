package node

import (
	"github.com/bft-labs/modeswitch/internal/app"
	"github.com/bft-labs/modeswitch/internal/domain"
	"github.com/bft-labs/modeswitch/internal/metrics"
	"github.com/bft-labs/modeswitch/internal/ports"
	"github.com/bft-labs/modeswitch/pkg/lifecycle"
)

// StateChangeEvent is emitted on every lifecycle transition.
type StateChangeEvent struct {
	Previous lifecycle.State
	Current  lifecycle.State
	Reason   string
}

// EventHandler receives node events.
type EventHandler interface {
	OnStateChange(event StateChangeEvent)
	OnSwitch(result SwitchResult)
	OnSnapshot(snap Snapshot)
}

// BaseEventHandler implements EventHandler with no-ops. Embed it to handle
// only some events.
type BaseEventHandler struct{}

func (BaseEventHandler) OnStateChange(StateChangeEvent) {}
func (BaseEventHandler) OnSwitch(SwitchResult)          {}
func (BaseEventHandler) OnSnapshot(Snapshot)            {}

// eventEmitterWrapper fans internal events out to metrics, the status file
// and the user's handler.
type eventEmitterWrapper struct {
	handler EventHandler
	metrics *metrics.Metrics
	status  ports.StatusWriter
	logger  ports.Logger
}

var (
	_ app.EventEmitter       = (*eventEmitterWrapper)(nil)
	_ app.SwitchEventEmitter = (*eventEmitterWrapper)(nil)
	_ app.SnapshotEmitter    = (*eventEmitterWrapper)(nil)
)

func (e *eventEmitterWrapper) OnStateChange(previous, current app.State, reason string) {
	e.metrics.OnStateChange(previous, current, reason)
	if e.handler == nil {
		return
	}
	e.handler.OnStateChange(StateChangeEvent{
		Previous: previous,
		Current:  current,
		Reason:   reason,
	})
}

func (e *eventEmitterWrapper) OnSwitch(result domain.SwitchResult) {
	e.metrics.OnSwitch(result)
	if e.handler != nil {
		e.handler.OnSwitch(result)
	}
}

func (e *eventEmitterWrapper) OnSnapshot(snap domain.Snapshot) {
	e.metrics.OnSnapshot(snap)
	if e.status != nil {
		if err := e.status.WriteSnapshot(snap); err != nil {
			e.logger.Warn("failed to write status file", ports.Err(err))
		}
	}
	if e.handler != nil {
		e.handler.OnSnapshot(snap)
	}
}
