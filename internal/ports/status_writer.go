package ports

import "github.com/bft-labs/modeswitch/internal/domain"

// StatusWriter publishes node snapshots for operators.
// Writers are write-only; nothing is ever read back at startup.
type StatusWriter interface {
	WriteSnapshot(snap domain.Snapshot) error
}
