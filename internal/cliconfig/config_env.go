package cliconfig

import (
	"os"
	"strings"

	"github.com/bft-labs/modeswitch/pkg/modeswitch"
)

// EnvPrefix prefixes every environment variable read by ApplyEnvConfig.
const EnvPrefix = "MODESWITCH_"

// ApplyEnvConfig applies configuration from environment variables (MODESWITCH_*).
// It respects flags that have been explicitly set (changed map).
// Returns error if any environment variable has an invalid format.
//
// Controller bindings are read from MODESWITCH_CONTROLLER_<ROLE>, for example
// MODESWITCH_CONTROLLER_JOINT_IMPEDANCE.
func ApplyEnvConfig(cfg *Config, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("manager-url", os.Getenv(EnvPrefix+"MANAGER_URL"), &cfg.ManagerURL)
	s.setString("status-dir", os.Getenv(EnvPrefix+"STATUS_DIR"), &cfg.StatusDir)
	s.setString("metrics-addr", os.Getenv(EnvPrefix+"METRICS_ADDR"), &cfg.MetricsAddr)
	s.setString("log-level", os.Getenv(EnvPrefix+"LOG_LEVEL"), &cfg.LogLevel)
	s.setStrings("fixed", splitList(os.Getenv(EnvPrefix+"FIXED_CONTROLLERS")), &cfg.FixedControllers)

	if err := s.setDuration("timeout", os.Getenv(EnvPrefix+"HTTP_TIMEOUT"), &cfg.HTTPTimeout); err != nil {
		return err
	}
	if err := s.setDuration("retry-initial", os.Getenv(EnvPrefix+"RETRY_INITIAL"), &cfg.RetryInitial); err != nil {
		return err
	}
	if err := s.setDuration("retry-max", os.Getenv(EnvPrefix+"RETRY_MAX"), &cfg.RetryMax); err != nil {
		return err
	}
	if err := s.setMode("mode", os.Getenv(EnvPrefix+"CONTROL_MODE"), &cfg.ControlMode); err != nil {
		return err
	}

	if err := s.setFloatFromString("update-rate", os.Getenv(EnvPrefix+"UPDATE_RATE"), &cfg.UpdateRate); err != nil {
		return err
	}
	if err := s.setIntFromString("switch-retries", os.Getenv(EnvPrefix+"SWITCH_RETRIES"), &cfg.SwitchRetries); err != nil {
		return err
	}

	if cfg.Controllers == nil {
		cfg.Controllers = make(map[modeswitch.Role]string)
	}
	for _, role := range modeswitch.AllRoles() {
		key := EnvPrefix + "CONTROLLER_" + strings.ToUpper(role.String())
		s.setController(role, os.Getenv(key), cfg.Controllers)
	}

	s.setBoolFromString("dry-run", os.Getenv(EnvPrefix+"DRY_RUN"), &cfg.DryRun)
	s.setBoolFromString("watch-config", os.Getenv(EnvPrefix+"WATCH_CONFIG"), &cfg.WatchConfig)
	s.setBoolFromString("once", os.Getenv(EnvPrefix+"ONCE"), &cfg.Once)

	return nil
}
