package node_test

import (
	"context"
	"fmt"

	"github.com/bft-labs/modeswitch/pkg/modeswitch"
	"github.com/bft-labs/modeswitch/pkg/node"
)

// ExampleNew demonstrates how to embed a node in your application.
func ExampleNew() {
	cfg := node.Config{
		DryRun:           true,
		ControlMode:      modeswitch.ModeJointPosition,
		FixedControllers: []string{"joint_state_broadcaster"},
		Controllers: map[modeswitch.Role]string{
			modeswitch.RoleJointPosition:  "joint_position_controller",
			modeswitch.RoleJointImpedance: "joint_impedance_controller",
		},
	}

	n, err := node.New(cfg)
	if err != nil {
		fmt.Printf("failed to create node: %v\n", err)
		return
	}

	ctx := context.Background()
	if err := n.Start(ctx); err != nil {
		fmt.Printf("failed to start: %v\n", err)
		return
	}

	result, err := n.RequestMode(ctx, modeswitch.ModeJointImpedance)
	if err != nil {
		fmt.Printf("request failed: %v\n", err)
		return
	}
	fmt.Printf("%s: start %v, stop %v\n", result.Outcome, result.Plan.Activate, result.Plan.Deactivate)
	fmt.Printf("active: %v\n", n.Snapshot().Active)

	_ = n.Stop()
	fmt.Printf("status: %s\n", n.Status())

	// Output:
	// applied: start [joint_impedance_controller], stop []
	// active: [joint_impedance_controller joint_position_controller]
	// status: finalized
}

// Example_withEventHandler demonstrates how to receive node events.
func Example_withEventHandler() {
	cfg := node.Config{
		DryRun:      true,
		ControlMode: modeswitch.ModeTorque,
		Controllers: map[modeswitch.Role]string{
			modeswitch.RoleTorque: "torque_controller",
		},
	}

	n, err := node.New(cfg, node.WithEventHandler(&printingHandler{}))
	if err != nil {
		fmt.Printf("failed to create node: %v\n", err)
		return
	}

	_ = n.Configure(context.Background())
	_ = n.Shutdown(context.Background())

	// Output:
	// unconfigured -> inactive (Configure() called)
	// inactive -> finalized (Shutdown() called)
}

type printingHandler struct {
	node.BaseEventHandler
}

func (printingHandler) OnStateChange(event node.StateChangeEvent) {
	fmt.Printf("%s -> %s (%s)\n", event.Previous, event.Current, event.Reason)
}
