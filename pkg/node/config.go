package node

import (
	"fmt"
	"strings"
	"time"

	"github.com/bft-labs/modeswitch/internal/app"
	"github.com/bft-labs/modeswitch/internal/domain"
	"github.com/bft-labs/modeswitch/pkg/modeswitch"
)

// Config holds the configuration of a modeswitch node.
// Zero values are replaced by defaults in SetDefaults.
type Config struct {
	// ManagerURL is the base URL of the controller manager. Required unless
	// DryRun is set or a manager is injected with WithControllerManager.
	ManagerURL string

	// HTTPTimeout bounds a single controller manager call. Default: 5s.
	HTTPTimeout time.Duration

	// UpdateRate is the control loop frequency in Hz. Default: 100.
	UpdateRate float64

	// ControlMode is the mode switched to on activation.
	ControlMode modeswitch.ControlMode

	// FixedControllers are active in every mode.
	FixedControllers []string

	// Controllers binds roles to controller names.
	Controllers map[modeswitch.Role]string

	// SwitchRetries is the number of extra manager calls made for a switch
	// that is not fully confirmed. Nil means the default of 3; zero
	// disables retries.
	SwitchRetries *int

	RetryInitial time.Duration
	RetryMax     time.Duration

	// StatusDir receives status.json on every snapshot. Empty disables it.
	StatusDir string

	// MetricsAddr serves /metrics while the node is active. Empty disables it.
	MetricsAddr string

	// ConfigPath is the file the configuration was loaded from. It is
	// handed to plugins and otherwise unused.
	ConfigPath string

	// DryRun replaces the controller manager with an in-memory simulation.
	DryRun bool
}

// SetDefaults fills in zero values.
func (c *Config) SetDefaults() {
	if c.HTTPTimeout == 0 {
		c.HTTPTimeout = 5 * time.Second
	}
	if c.UpdateRate == 0 {
		c.UpdateRate = app.DefaultUpdateRate
	}
	if c.SwitchRetries == nil {
		retries := app.DefaultSwitchRetries
		c.SwitchRetries = &retries
	}
	if c.RetryInitial == 0 {
		c.RetryInitial = app.DefaultRetryInitial
	}
	if c.RetryMax == 0 {
		c.RetryMax = app.DefaultRetryMax
	}
	if c.Controllers == nil {
		c.Controllers = make(map[modeswitch.Role]string)
	}
}

// Validate checks the configuration. Call SetDefaults first.
func (c *Config) Validate() error {
	c.ManagerURL = strings.TrimRight(strings.TrimSpace(c.ManagerURL), "/")

	if c.HTTPTimeout < 0 {
		return fmt.Errorf("%w: http timeout must not be negative", domain.ErrInvalidConfig)
	}
	if c.UpdateRate < 0 {
		return fmt.Errorf("%w: update rate must be positive", domain.ErrInvalidConfig)
	}
	if c.SwitchRetries != nil && *c.SwitchRetries < 0 {
		return fmt.Errorf("%w: switch retries must not be negative", domain.ErrInvalidConfig)
	}
	if c.RetryMax < c.RetryInitial {
		return fmt.Errorf("%w: retry max %s is below retry initial %s", domain.ErrInvalidConfig, c.RetryMax, c.RetryInitial)
	}
	for role := range c.Controllers {
		if _, err := modeswitch.ParseRole(role.String()); err != nil {
			return fmt.Errorf("%w: %v", domain.ErrInvalidConfig, err)
		}
	}
	return nil
}
