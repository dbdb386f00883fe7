package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"runtime/debug"
	"strings"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	pflag "github.com/spf13/pflag"

	"github.com/bft-labs/modeswitch/internal/cliconfig"
	"github.com/bft-labs/modeswitch/pkg/log"
	"github.com/bft-labs/modeswitch/pkg/modeswitch"
	"github.com/bft-labs/modeswitch/pkg/node"
	"github.com/bft-labs/modeswitch/plugins/configwatcher"
)

const helpDescription = `
Switch a robot's controllers between control modes.

modeswitch resolves a control mode (joint position, cartesian impedance,
torque, ...) to the controllers that realize it, asks the controller manager
to start and stop only what differs from what is already running, and
records a controller as active only once the manager confirms it.

Highlights:
  - Controllers shared by the old and new mode keep running.
  - Fixed controllers (state broadcasters) stay up in every mode.
  - Configure via file, env (MODESWITCH_*), or flags.
`

var exampleUsage = strings.TrimSpace(`
  modeswitch --mode joint_position --controller joint_position=jp_ctrl --fixed joint_state_broadcaster
  modeswitch --config $HOME/.modeswitch/config.toml --watch-config
  modeswitch plan --from joint_position --mode joint_impedance
  modeswitch status
`)

func getVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

// flagValues holds flags that need parsing before they reach the config.
type flagValues struct {
	cfgPath     string
	mode        string
	controllers map[string]string
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "modeswitch: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cfg := cliconfig.DefaultConfig()
	var fv flagValues

	root := &cobra.Command{
		Use:           "modeswitch",
		Short:         "Switch a robot's controllers between control modes",
		Long:          strings.TrimSpace(helpDescription),
		Example:       exampleUsage,
		Version:       fmt.Sprintf("%s %s/%s", getVersion(), runtime.GOOS, runtime.GOARCH),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgFile, err := loadConfig(cmd, &cfg, fv)
			if err != nil {
				return err
			}
			return run(cfg, cfgFile)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&fv.cfgPath, "config", "", "path to config file (default: $HOME/.modeswitch/config.toml)")
	flags.StringVar(&cfg.ManagerURL, "manager-url", cfg.ManagerURL, "controller manager base URL")
	flags.DurationVar(&cfg.HTTPTimeout, "timeout", cfg.HTTPTimeout, "controller manager request timeout")
	flags.StringVar(&fv.mode, "mode", "", "control mode to switch to on activation")
	flags.StringSliceVar(&cfg.FixedControllers, "fixed", cfg.FixedControllers, "controllers active in every mode (comma-separated)")
	flags.StringToStringVar(&fv.controllers, "controller", nil, "role=controller binding, repeatable (e.g. joint_impedance=imp_ctrl)")
	flags.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level (debug, info, warn, error)")

	runFlags := root.Flags()
	runFlags.Float64Var(&cfg.UpdateRate, "update-rate", cfg.UpdateRate, "control loop frequency in Hz")
	runFlags.IntVar(&cfg.SwitchRetries, "switch-retries", cfg.SwitchRetries, "extra manager calls for an unconfirmed switch")
	runFlags.DurationVar(&cfg.RetryInitial, "retry-initial", cfg.RetryInitial, "initial retry backoff")
	runFlags.DurationVar(&cfg.RetryMax, "retry-max", cfg.RetryMax, "maximum retry backoff")
	runFlags.StringVar(&cfg.StatusDir, "status-dir", cfg.StatusDir, "directory for status.json (empty disables it)")
	runFlags.StringVar(&cfg.MetricsAddr, "metrics-addr", cfg.MetricsAddr, "serve Prometheus metrics on this address while active")
	runFlags.BoolVar(&cfg.DryRun, "dry-run", cfg.DryRun, "simulate the controller manager")
	runFlags.BoolVar(&cfg.WatchConfig, "watch-config", cfg.WatchConfig, "apply control_mode and [controllers] changes from the config file")
	runFlags.BoolVar(&cfg.Once, "once", cfg.Once, "switch to the configured mode, deactivate and exit")

	root.AddCommand(
		newPlanCommand(&cfg, &fv),
		newModesCommand(&cfg, &fv),
		newStatusCommand(&cfg, &fv),
	)
	return root
}

// loadConfig applies file, environment and flag values in increasing
// precedence and validates the result. It returns the config file in use,
// or "" if there is none.
func loadConfig(cmd *cobra.Command, cfg *cliconfig.Config, fv flagValues) (string, error) {
	cfgFile := fv.cfgPath
	if cfgFile == "" {
		cfgFile = cliconfig.DefaultConfigPath()
	}

	changed := map[string]bool{}
	cmd.Flags().Visit(func(f *pflag.Flag) { changed[f.Name] = true })

	if fv.mode != "" {
		mode, err := modeswitch.ParseControlMode(fv.mode)
		if err != nil {
			return "", fmt.Errorf("--mode: %w", err)
		}
		cfg.ControlMode = mode
	}
	for key, name := range fv.controllers {
		role, err := modeswitch.ParseRole(key)
		if err != nil {
			return "", fmt.Errorf("--controller: %w", err)
		}
		cfg.Controllers[role] = strings.TrimSpace(name)
		changed[cliconfig.ControllerFlagKey(role)] = true
	}

	if cfgFile != "" && cliconfig.FileExists(cfgFile) {
		fc, err := cliconfig.LoadFileConfig(cfgFile)
		if err != nil {
			return "", fmt.Errorf("load config: %w", err)
		}
		if err := cliconfig.ApplyFileConfig(cfg, fc, changed); err != nil {
			return "", err
		}
	} else {
		cfgFile = ""
	}

	if err := cliconfig.ApplyEnvConfig(cfg, changed); err != nil {
		return "", err
	}

	if err := cfg.Validate(); err != nil {
		return "", err
	}
	return cfgFile, nil
}

func run(cfg cliconfig.Config, cfgFile string) error {
	zl, err := cliconfig.Logger(cfg.LogLevel)
	if err != nil {
		return err
	}
	logger := log.NewZerologAdapterWithLogger(zl)

	zl.Info().
		Str("manager_url", cfg.ManagerURL).
		Stringer("mode", cfg.ControlMode).
		Strs("fixed", cfg.FixedControllers).
		Interface("controllers", cfg.Controllers).
		Float64("update_rate", cfg.UpdateRate).
		Bool("dry_run", cfg.DryRun).
		Str("config", cfgFile).
		Msg("configuration")

	retries := cfg.SwitchRetries
	nodeCfg := node.Config{
		ManagerURL:       cfg.ManagerURL,
		HTTPTimeout:      cfg.HTTPTimeout,
		UpdateRate:       cfg.UpdateRate,
		ControlMode:      cfg.ControlMode,
		FixedControllers: cfg.FixedControllers,
		Controllers:      cfg.Controllers,
		SwitchRetries:    &retries,
		RetryInitial:     cfg.RetryInitial,
		RetryMax:         cfg.RetryMax,
		StatusDir:        cfg.StatusDir,
		MetricsAddr:      cfg.MetricsAddr,
		ConfigPath:       cfgFile,
		DryRun:           cfg.DryRun,
	}

	opts := []node.Option{node.WithLogger(logger)}
	if cfg.WatchConfig && cfgFile != "" {
		opts = append(opts, configwatcher.WithConfigWatcher(configwatcher.DefaultConfig()))
	}

	n, err := node.New(nodeCfg, opts...)
	if err != nil {
		return fmt.Errorf("create node: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := n.Start(ctx); err != nil {
		_ = n.Stop()
		return fmt.Errorf("start node: %w", err)
	}

	if !cfg.Once {
		<-ctx.Done()
		zl.Info().Msg("received signal, stopping...")
	}

	if err := n.Stop(); err != nil {
		return fmt.Errorf("stop node: %w", err)
	}
	return nil
}

// cliLogger is used by the subcommands, which only log failures.
func cliLogger(level string) zerolog.Logger {
	zl, err := cliconfig.Logger(level)
	if err != nil {
		return zerolog.Nop()
	}
	return zl
}
