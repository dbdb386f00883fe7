package modeswitch

import (
	"fmt"
	"strconv"
	"strings"
)

// ControlMode identifies a high-level operating mode of the robot.
// The numeric values are part of the external contract and must not change.
type ControlMode uint8

const (
	ModeUnspecified ControlMode = iota
	ModeJointPosition
	ModeCartesianPosition
	ModeJointImpedance
	ModeCartesianImpedance
	ModeTorque
	ModeWrench
)

var modeNames = [...]string{
	ModeUnspecified:        "unspecified",
	ModeJointPosition:      "joint_position",
	ModeCartesianPosition:  "cartesian_position",
	ModeJointImpedance:     "joint_impedance",
	ModeCartesianImpedance: "cartesian_impedance",
	ModeTorque:             "torque",
	ModeWrench:             "wrench",
}

// String returns the snake_case name of the mode.
func (m ControlMode) String() string {
	if int(m) < len(modeNames) {
		return modeNames[m]
	}
	return "ControlMode(" + strconv.Itoa(int(m)) + ")"
}

// MarshalText implements encoding.TextMarshaler.
func (m ControlMode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *ControlMode) UnmarshalText(text []byte) error {
	parsed, err := ParseControlMode(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// AllModes returns every realizable mode in enumeration order.
// ModeUnspecified is not included.
func AllModes() []ControlMode {
	return []ControlMode{
		ModeJointPosition,
		ModeCartesianPosition,
		ModeJointImpedance,
		ModeCartesianImpedance,
		ModeTorque,
		ModeWrench,
	}
}

// ParseControlMode accepts a mode name ("joint_impedance", "joint-impedance")
// or its numeric value ("3"). "unspecified" parses successfully; it is rejected
// later by ComputeSwitch.
func ParseControlMode(s string) (ControlMode, error) {
	key := normalizeName(s)
	for i, name := range modeNames {
		if key == name {
			return ControlMode(i), nil
		}
	}
	if n, err := strconv.ParseUint(key, 10, 8); err == nil && int(n) < len(modeNames) {
		return ControlMode(n), nil
	}
	return ModeUnspecified, fmt.Errorf("%w: %q", ErrInvalidMode, s)
}

// Role is an abstract controller category referenced by the mode table.
// A role is resolved to a concrete controller name through a Registry.
type Role uint8

const (
	RoleJointPosition Role = iota
	RoleCartesianPosition
	RoleJointImpedance
	RoleCartesianImpedance
	RoleTorque
	RoleWrench

	roleCount
)

var roleNames = [...]string{
	RoleJointPosition:      "joint_position",
	RoleCartesianPosition:  "cartesian_position",
	RoleJointImpedance:     "joint_impedance",
	RoleCartesianImpedance: "cartesian_impedance",
	RoleTorque:             "torque",
	RoleWrench:             "wrench",
}

// String returns the snake_case name of the role.
func (r Role) String() string {
	if r.valid() {
		return roleNames[r]
	}
	return "Role(" + strconv.Itoa(int(r)) + ")"
}

// MarshalText implements encoding.TextMarshaler.
func (r Role) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *Role) UnmarshalText(text []byte) error {
	parsed, err := ParseRole(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

func (r Role) valid() bool {
	return r < roleCount
}

// AllRoles returns every role in enumeration order.
func AllRoles() []Role {
	roles := make([]Role, 0, roleCount)
	for r := Role(0); r < roleCount; r++ {
		roles = append(roles, r)
	}
	return roles
}

// ParseRole accepts a role name with or without a "_controller" suffix.
func ParseRole(s string) (Role, error) {
	key := strings.TrimSuffix(normalizeName(s), "_controller")
	for i, name := range roleNames {
		if key == name {
			return Role(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownRole, s)
}

func normalizeName(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_")
}
