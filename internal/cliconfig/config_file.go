package cliconfig

import (
	"fmt"
	"os"
	"path/filepath"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/bft-labs/modeswitch/pkg/modeswitch"
)

// FileConfig mirrors Config but uses strings for durations and modes to make TOML friendly.
type FileConfig struct {
	ManagerURL       string            `toml:"manager_url"`
	HTTPTimeout      string            `toml:"http_timeout"`
	UpdateRate       float64           `toml:"update_rate"`
	ControlMode      string            `toml:"control_mode"`
	FixedControllers []string          `toml:"fixed_controllers"`
	Controllers      map[string]string `toml:"controllers"`
	SwitchRetries    *int              `toml:"switch_retries"`
	RetryInitial     string            `toml:"retry_initial"`
	RetryMax         string            `toml:"retry_max"`
	StatusDir        string            `toml:"status_dir"`
	MetricsAddr      string            `toml:"metrics_addr"`
	LogLevel         string            `toml:"log_level"`
	DryRun           *bool             `toml:"dry_run"`
	WatchConfig      *bool             `toml:"watch_config"`
	Once             *bool             `toml:"once"`
}

// LoadFileConfig reads and parses a TOML config file from the given path.
func LoadFileConfig(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	if err := toml.Unmarshal(b, &fc); err != nil {
		return fc, err
	}
	return fc, nil
}

// DefaultConfigPath returns the default configuration file path.
// Returns ~/.modeswitch/config.toml if user home directory is accessible.
func DefaultConfigPath() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".modeswitch", "config.toml")
	}
	return ""
}

// DefaultStatusDir returns ~/.modeswitch, or "" (status file disabled) if
// the home directory is unknown.
func DefaultStatusDir() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".modeswitch")
	}
	return ""
}

// ControllerBindings parses the [controllers] table. Keys are role names,
// with or without a "_controller" suffix.
func (fc FileConfig) ControllerBindings() (map[modeswitch.Role]string, error) {
	out := make(map[modeswitch.Role]string, len(fc.Controllers))
	for key, name := range fc.Controllers {
		role, err := modeswitch.ParseRole(key)
		if err != nil {
			return nil, fmt.Errorf("controllers.%s: %w", key, err)
		}
		out[role] = name
	}
	return out, nil
}

// ApplyFileConfig applies configuration from a file to the Config struct.
// It respects flags that have been explicitly set (changed map).
func ApplyFileConfig(cfg *Config, fc FileConfig, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("manager-url", fc.ManagerURL, &cfg.ManagerURL)
	s.setString("status-dir", fc.StatusDir, &cfg.StatusDir)
	s.setString("metrics-addr", fc.MetricsAddr, &cfg.MetricsAddr)
	s.setString("log-level", fc.LogLevel, &cfg.LogLevel)
	s.setStrings("fixed", fc.FixedControllers, &cfg.FixedControllers)

	if err := s.setDuration("timeout", fc.HTTPTimeout, &cfg.HTTPTimeout); err != nil {
		return err
	}
	if err := s.setDuration("retry-initial", fc.RetryInitial, &cfg.RetryInitial); err != nil {
		return err
	}
	if err := s.setDuration("retry-max", fc.RetryMax, &cfg.RetryMax); err != nil {
		return err
	}
	if err := s.setMode("mode", fc.ControlMode, &cfg.ControlMode); err != nil {
		return err
	}

	s.setFloat("update-rate", fc.UpdateRate, &cfg.UpdateRate)
	s.setIntPtr("switch-retries", fc.SwitchRetries, &cfg.SwitchRetries)

	bindings, err := fc.ControllerBindings()
	if err != nil {
		return err
	}
	if cfg.Controllers == nil {
		cfg.Controllers = make(map[modeswitch.Role]string)
	}
	for role, name := range bindings {
		s.setController(role, name, cfg.Controllers)
	}

	s.setBool("dry-run", fc.DryRun, &cfg.DryRun)
	s.setBool("watch-config", fc.WatchConfig, &cfg.WatchConfig)
	s.setBool("once", fc.Once, &cfg.Once)

	return nil
}

// FileExists checks if a file exists at the given path.
func FileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}
