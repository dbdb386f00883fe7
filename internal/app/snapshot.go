package app

import (
	"time"

	"github.com/bft-labs/modeswitch/internal/domain"
	"github.com/bft-labs/modeswitch/pkg/modeswitch"
)

// SnapshotEmitter receives a fresh snapshot whenever the node changes.
type SnapshotEmitter interface {
	OnSnapshot(snap domain.Snapshot)
}

// BuildSnapshot captures coordinator state. It must be called from the
// goroutine that owns coord.
func BuildSnapshot(coord *modeswitch.Coordinator, lifecycle State, mode modeswitch.ControlMode, last *domain.SwitchResult, ticks uint64) domain.Snapshot {
	return domain.Snapshot{
		Lifecycle:  lifecycle.String(),
		Mode:       mode,
		Active:     coord.Active(),
		Fixed:      coord.Fixed(),
		Pending:    coord.Pending(),
		Phase:      coord.Phase().String(),
		LastResult: last,
		Ticks:      ticks,
		UpdatedAt:  time.Now().UTC(),
	}
}
