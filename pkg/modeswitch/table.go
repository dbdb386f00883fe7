package modeswitch

import (
	"fmt"
	"strings"
)

// Requirement lists the roles that must be active to realize a mode.
// Standard modes need one role; impedance modes need a standard role
// plus an impedance role.
type Requirement struct {
	Standard     Role
	Impedance    Role
	HasImpedance bool
}

// Roles returns the required roles, standard role first.
func (r Requirement) Roles() []Role {
	if r.HasImpedance {
		return []Role{r.Standard, r.Impedance}
	}
	return []Role{r.Standard}
}

// RequirementFor returns the roles required by mode. It is total over
// ControlMode: ModeUnspecified yields ErrUnspecifiedMode and values outside
// the enumeration yield ErrInvalidMode.
func RequirementFor(mode ControlMode) (Requirement, error) {
	switch mode {
	case ModeUnspecified:
		return Requirement{}, ErrUnspecifiedMode
	case ModeJointPosition:
		return Requirement{Standard: RoleJointPosition}, nil
	case ModeCartesianPosition:
		return Requirement{Standard: RoleCartesianPosition}, nil
	case ModeJointImpedance:
		return Requirement{Standard: RoleJointPosition, Impedance: RoleJointImpedance, HasImpedance: true}, nil
	case ModeCartesianImpedance:
		return Requirement{Standard: RoleCartesianPosition, Impedance: RoleCartesianImpedance, HasImpedance: true}, nil
	case ModeTorque:
		return Requirement{Standard: RoleTorque}, nil
	case ModeWrench:
		return Requirement{Standard: RoleWrench}, nil
	default:
		return Requirement{}, fmt.Errorf("%w: %s", ErrInvalidMode, mode)
	}
}

// Registry binds roles to concrete controller names.
//
// The mode table refers to roles, never to names, so a binding is seen by
// every mode slot referencing the role: the joint position controller is
// both the JointPosition controller and the standard half of JointImpedance.
type Registry struct {
	names [roleCount]string
}

// NewRegistry returns a registry with every role unbound.
func NewRegistry() *Registry {
	return &Registry{}
}

// UpdateControllerName binds name to role. A blank name unbinds the role,
// which makes every mode needing it fail to resolve.
func (r *Registry) UpdateControllerName(role Role, name string) error {
	if !role.valid() {
		return fmt.Errorf("%w: %s", ErrUnknownRole, role)
	}
	r.names[role] = strings.TrimSpace(name)
	return nil
}

// ControllerName returns the name bound to role and whether it is non-empty.
func (r *Registry) ControllerName(role Role) (string, bool) {
	if !role.valid() {
		return "", false
	}
	name := r.names[role]
	return name, name != ""
}

// Bindings returns a copy of all non-empty bindings.
func (r *Registry) Bindings() map[Role]string {
	out := make(map[Role]string, roleCount)
	for role, name := range r.names {
		if name != "" {
			out[Role(role)] = name
		}
	}
	return out
}

// Resolve returns the controller names required by mode, standard first.
// If both roles are bound to the same controller it is returned once.
func (r *Registry) Resolve(mode ControlMode) ([]string, error) {
	req, err := RequirementFor(mode)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, 2)
	for _, role := range req.Roles() {
		name, ok := r.ControllerName(role)
		if !ok {
			return nil, fmt.Errorf("%w: %s (required by %s)", ErrUnboundRole, role, mode)
		}
		if len(names) == 0 || names[0] != name {
			names = append(names, name)
		}
	}
	return names, nil
}
