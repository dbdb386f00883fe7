package modeswitch

import "errors"

// Errors returned by the coordinator. Check them with errors.Is; returned
// errors wrap these with the offending mode or role.
var (
	// ErrInvalidMode is returned for a mode that has no entry in the mode table.
	ErrInvalidMode = errors.New("modeswitch: invalid control mode")

	// ErrUnspecifiedMode is returned when the placeholder mode is requested.
	ErrUnspecifiedMode = errors.New("modeswitch: unspecified control mode is not a valid target")

	// ErrUnboundRole is returned when a role required by the requested mode
	// has no controller name bound to it.
	ErrUnboundRole = errors.New("modeswitch: no controller bound to role")

	// ErrUnknownRole is returned when binding a name to a role outside the enumeration.
	ErrUnknownRole = errors.New("modeswitch: unknown controller role")
)
