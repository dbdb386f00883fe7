// Package modeswitch runs a controller-mode switching node.
//
// Example usage:
//
//	cfg := modeswitch.Config{
//	    ManagerURL:       "http://127.0.0.1:7400",
//	    ControlMode:      modeswitch.ModeJointImpedance,
//	    FixedControllers: []string{"joint_state_broadcaster"},
//	    Controllers: map[modeswitch.Role]string{
//	        modeswitch.RoleJointPosition:  "pos_ctrl",
//	        modeswitch.RoleJointImpedance: "imp_ctrl",
//	    },
//	}
//	if err := modeswitch.Run(ctx, cfg); err != nil {
//	    log.Fatal(err)
//	}
//
// Run is a convenience over pkg/node. Use node.New directly to request mode
// switches, observe events or install plugins.
package modeswitch

import (
	"context"
	"errors"

	"github.com/bft-labs/modeswitch/pkg/modeswitch"
	"github.com/bft-labs/modeswitch/pkg/node"
)

// Config holds the configuration for a node. See node.Config.
type Config = node.Config

// ControlMode selects which roles must have a running controller.
type ControlMode = modeswitch.ControlMode

// Role is a controller category.
type Role = modeswitch.Role

// Control modes.
const (
	ModeJointPosition      = modeswitch.ModeJointPosition
	ModeCartesianPosition  = modeswitch.ModeCartesianPosition
	ModeJointImpedance     = modeswitch.ModeJointImpedance
	ModeCartesianImpedance = modeswitch.ModeCartesianImpedance
	ModeTorque             = modeswitch.ModeTorque
	ModeWrench             = modeswitch.ModeWrench
)

// Roles.
const (
	RoleJointPosition      = modeswitch.RoleJointPosition
	RoleCartesianPosition  = modeswitch.RoleCartesianPosition
	RoleJointImpedance     = modeswitch.RoleJointImpedance
	RoleCartesianImpedance = modeswitch.RoleCartesianImpedance
	RoleTorque             = modeswitch.RoleTorque
	RoleWrench             = modeswitch.RoleWrench
)

// Run starts a node, switches to cfg.ControlMode and blocks until ctx is
// cancelled. The node is then deactivated and shut down.
func Run(ctx context.Context, cfg Config, opts ...node.Option) error {
	n, err := node.New(cfg, opts...)
	if err != nil {
		return err
	}

	if err := n.Start(ctx); err != nil {
		return errors.Join(err, n.Stop())
	}

	<-ctx.Done()
	return n.Stop()
}
