package ports

import (
	"context"

	"github.com/bft-labs/modeswitch/internal/domain"
)

// ControllerManager starts and stops controllers on behalf of the node.
//
// SwitchControllers processes req.Deactivate before req.Activate and reports
// per controller. A returned error means the call itself failed and nothing
// in the report can be trusted; per-controller failures are reported in
// SwitchReport.Failed with a nil error.
type ControllerManager interface {
	SwitchControllers(ctx context.Context, req domain.SwitchRequest) (domain.SwitchReport, error)
}
