// Package node provides an embeddable control-mode switching node.
//
// A node owns a [modeswitch.Coordinator], talks to a controller manager
// that actually starts and stops controllers, and runs a fixed-rate control
// loop that serves mode change requests. It can be used through the
// modeswitch CLI or embedded as a library in other Go programs.
//
// # Basic Usage
//
//	cfg := node.Config{
//	    ManagerURL:       "http://127.0.0.1:7400",
//	    ControlMode:      modeswitch.ModeJointPosition,
//	    FixedControllers: []string{"joint_state_broadcaster"},
//	    Controllers: map[modeswitch.Role]string{
//	        modeswitch.RoleJointPosition:  "joint_position_controller",
//	        modeswitch.RoleJointImpedance: "joint_impedance_controller",
//	    },
//	}
//
//	n, err := node.New(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	if err := n.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer n.Stop()
//
//	result, err := n.RequestMode(ctx, modeswitch.ModeJointImpedance)
//
// # Lifecycle
//
// A node is created unconfigured. [Node.Configure] checks the controller
// bindings and initializes plugins, [Node.Activate] switches to the
// configured mode and starts the control loop, [Node.Deactivate] stops the
// loop and every non-fixed controller, and [Node.Shutdown] finalizes the
// node. [Node.Start] and [Node.Stop] wrap the common sequences.
//
// # Parameters
//
// [ParamControlMode] can be set in every state but finalized; while active,
// setting it switches controllers. The controller bindings,
// ControllerParam(role), can only change while the node is unconfigured or
// inactive.
//
// # Event Handling
//
// Implement [EventHandler], or embed [BaseEventHandler], and pass it via
// [WithEventHandler] to observe state changes, switch results and snapshots.
//
// # Version
//
// Current version: 1.0.0
// Minimum compatible version: 1.0.0
package node
