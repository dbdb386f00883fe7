// Package modeswitch computes controller switches for robot control-mode changes.
//
// A control mode (joint position, cartesian impedance, torque, ...) is realized
// by one or two controller roles. A [Registry] binds each role to a concrete
// controller name supplied by configuration, and the [Coordinator] turns a
// requested mode into a [Plan]: the controllers to start and the controllers
// to stop. Controllers needed before and after the switch are left running.
//
// # Two-phase approval
//
// A plan is only a proposal. The caller hands it to whatever actually starts
// and stops controllers and, once each half is confirmed, approves it:
//
//	plan, err := coord.ComputeSwitch(modeswitch.ModeJointImpedance)
//	if err != nil {
//	    return err // nothing changed
//	}
//	// ... start plan.Activate, stop plan.Deactivate ...
//	coord.ApproveActivation()
//	coord.ApproveDeactivation()
//
// The active set only ever reflects approved halves. There is no rollback:
// when a half fails the caller decides whether to retry, compensate or give
// up, and a new proposal simply replaces an unapproved one.
//
// # Concurrency
//
// A Coordinator holds no locks. It must be owned by a single goroutine,
// normally the control loop.
//
// # Version
//
// Current version: 1.0.0
// Minimum compatible version: 1.0.0
//
// See version.go for version constants that can be used programmatically.
package modeswitch
