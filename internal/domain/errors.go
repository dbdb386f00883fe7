package domain

import "errors"

// Domain errors represent error conditions of the modeswitch node.
// These errors are returned by the public API and can be checked with errors.Is.
var (
	// ErrAlreadyActive is returned when Activate() is called on an active node.
	ErrAlreadyActive = errors.New("modeswitch: already active")

	// ErrNotActive is returned when a mode is requested while the node is not active.
	ErrNotActive = errors.New("modeswitch: not active")

	// ErrInvalidTransition is returned when a lifecycle event is not allowed
	// from the current state.
	ErrInvalidTransition = errors.New("modeswitch: invalid lifecycle transition")

	// ErrShutdownTimeout is returned when graceful shutdown times out.
	ErrShutdownTimeout = errors.New("modeswitch: shutdown timeout")

	// ErrInvalidConfig is returned when configuration validation fails.
	ErrInvalidConfig = errors.New("modeswitch: invalid configuration")

	// ErrParameterLocked is returned when a parameter cannot be changed in
	// the current lifecycle state.
	ErrParameterLocked = errors.New("modeswitch: parameter locked in current state")

	// ErrUnknownParameter is returned when setting a parameter that is not declared.
	ErrUnknownParameter = errors.New("modeswitch: unknown parameter")

	// ErrManagerRejected is returned by controller managers that refuse a
	// switch request outright.
	ErrManagerRejected = errors.New("modeswitch: controller manager rejected switch")
)
