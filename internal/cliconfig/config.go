package cliconfig

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bft-labs/modeswitch/internal/domain"
	"github.com/bft-labs/modeswitch/pkg/log"
	"github.com/bft-labs/modeswitch/pkg/modeswitch"
)

// DefaultManagerURL is the default controller manager endpoint.
const DefaultManagerURL = "http://127.0.0.1:7400"

// Config holds CLI configuration for modeswitch.
type Config struct {
	ManagerURL  string
	HTTPTimeout time.Duration

	// UpdateRate is the control loop frequency in Hz.
	UpdateRate float64

	ControlMode      modeswitch.ControlMode
	FixedControllers []string
	Controllers      map[modeswitch.Role]string

	SwitchRetries int
	RetryInitial  time.Duration
	RetryMax      time.Duration

	StatusDir   string
	MetricsAddr string
	LogLevel    string

	DryRun      bool
	WatchConfig bool
	Once        bool
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		ManagerURL:    DefaultManagerURL,
		HTTPTimeout:   5 * time.Second,
		UpdateRate:    100,
		Controllers:   make(map[modeswitch.Role]string),
		SwitchRetries: 3,
		RetryInitial:  50 * time.Millisecond,
		RetryMax:      time.Second,
		StatusDir:     DefaultStatusDir(),
		LogLevel:      "info",
	}
}

// Validate checks the configuration for errors and normalizes values.
func (c *Config) Validate() error {
	c.ManagerURL = strings.TrimRight(strings.TrimSpace(c.ManagerURL), "/")
	if c.ManagerURL == "" && !c.DryRun {
		return fmt.Errorf("%w: manager-url is required unless dry-run is set", domain.ErrInvalidConfig)
	}

	if c.HTTPTimeout <= 0 {
		return fmt.Errorf("%w: http timeout must be positive", domain.ErrInvalidConfig)
	}
	if c.UpdateRate <= 0 || c.UpdateRate > 10000 {
		return fmt.Errorf("%w: update-rate must be in (0, 10000] Hz, got %v", domain.ErrInvalidConfig, c.UpdateRate)
	}
	if c.SwitchRetries < 0 {
		return fmt.Errorf("%w: switch-retries must not be negative", domain.ErrInvalidConfig)
	}
	if c.RetryInitial <= 0 {
		return fmt.Errorf("%w: retry-initial must be positive", domain.ErrInvalidConfig)
	}
	if c.RetryMax < c.RetryInitial {
		return fmt.Errorf("%w: retry-max must be at least retry-initial", domain.ErrInvalidConfig)
	}

	for i, name := range c.FixedControllers {
		name = strings.TrimSpace(name)
		if name == "" {
			return fmt.Errorf("%w: fixed controller %d is empty", domain.ErrInvalidConfig, i)
		}
		c.FixedControllers[i] = name
	}

	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidConfig, err)
	}

	return nil
}

// configSetter helps apply configuration values while respecting flag precedence.
// It only applies values if the corresponding flag hasn't been explicitly set.
type configSetter struct {
	changed map[string]bool
}

// newConfigSetter creates a new setter with the given changed flags map.
func newConfigSetter(changed map[string]bool) *configSetter {
	return &configSetter{changed: changed}
}

// setString sets a string value if not empty and flag not changed.
func (s *configSetter) setString(flag, value string, dst *string) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value
}

// setStrings sets a list if not empty and flag not changed.
func (s *configSetter) setStrings(flag string, value []string, dst *[]string) {
	if len(value) == 0 || s.changed[flag] {
		return
	}
	*dst = append([]string(nil), value...)
}

// setIntPtr sets an int value from a pointer if not nil and flag not changed.
// Zero is a meaningful value, hence the pointer.
func (s *configSetter) setIntPtr(flag string, value *int, dst *int) {
	if value == nil || s.changed[flag] {
		return
	}
	*dst = *value
}

// setFloat sets a float64 value if positive and flag not changed.
func (s *configSetter) setFloat(flag string, value float64, dst *float64) {
	if value <= 0 || s.changed[flag] {
		return
	}
	*dst = value
}

// setDuration parses and sets a duration from string if valid and flag not changed.
func (s *configSetter) setDuration(flag, value string, dst *time.Duration) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = d
	return nil
}

// setBool sets a bool value from a pointer if not nil and flag not changed.
func (s *configSetter) setBool(flag string, value *bool, dst *bool) {
	if value == nil || s.changed[flag] {
		return
	}
	*dst = *value
}

// setMode parses and sets a control mode if not empty and flag not changed.
func (s *configSetter) setMode(flag, value string, dst *modeswitch.ControlMode) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	mode, err := modeswitch.ParseControlMode(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = mode
	return nil
}

// setController binds a controller name to a role unless the role was set
// by a --controller flag.
func (s *configSetter) setController(role modeswitch.Role, value string, dst map[modeswitch.Role]string) {
	if value == "" || s.changed[ControllerFlagKey(role)] {
		return
	}
	dst[role] = strings.TrimSpace(value)
}

// ControllerFlagKey is the changed-map key recording that --controller set role.
func ControllerFlagKey(role modeswitch.Role) string {
	return "controller." + role.String()
}

// setIntFromString parses a string to int and sets the destination if valid.
// Used for environment variables that come as strings.
func (s *configSetter) setIntFromString(flag, value string, dst *int) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = i
	return nil
}

// setFloatFromString parses a string to float64 and sets the destination if valid.
// Used for environment variables that come as strings.
func (s *configSetter) setFloatFromString(flag, value string, dst *float64) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	if f <= 0 {
		return nil
	}
	*dst = f
	return nil
}

// setBoolFromString parses a string to bool and sets the destination.
// Accepts "true", "1" as true, anything else as false.
// Used for environment variables that come as strings.
func (s *configSetter) setBoolFromString(flag, value string, dst *bool) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value == "true" || value == "1"
}

// splitList splits a comma-separated list, dropping blanks.
func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
