package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/bft-labs/modeswitch/internal/adapters/fs"
	"github.com/bft-labs/modeswitch/internal/cliconfig"
	"github.com/bft-labs/modeswitch/pkg/log"
	"github.com/bft-labs/modeswitch/pkg/modeswitch"
)

func newPlanCommand(cfg *cliconfig.Config, fv *flagValues) *cobra.Command {
	var from string

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Print the controllers a mode switch would start and stop",
		Long: strings.TrimSpace(`
Compute the switch to --mode without talking to a controller manager.
With --from, the controllers of that mode (and the fixed controllers) are
assumed to be running already.`),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := loadConfig(cmd, cfg, *fv); err != nil {
				return err
			}

			coord, err := modeswitch.NewCoordinator(modeswitch.Config{
				FixedControllers: cfg.FixedControllers,
				Bindings:         cfg.Controllers,
				Logger:           log.NewZerologAdapterWithLogger(cliLogger(cfg.LogLevel)),
			})
			if err != nil {
				return err
			}

			if from != "" {
				mode, err := modeswitch.ParseControlMode(from)
				if err != nil {
					return fmt.Errorf("--from: %w", err)
				}
				if _, err := coord.ComputeSwitch(mode); err != nil {
					return fmt.Errorf("--from: %w", err)
				}
				coord.ApproveDeactivation()
				coord.ApproveActivation()
			}

			plan, err := coord.ComputeSwitch(cfg.ControlMode)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), plan)
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "mode assumed active before the switch (default: nothing running)")
	return cmd
}

func newModesCommand(cfg *cliconfig.Config, fv *flagValues) *cobra.Command {
	return &cobra.Command{
		Use:   "modes",
		Short: "List control modes and the controllers bound to them",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := loadConfig(cmd, cfg, *fv); err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "MODE\tID\tROLES\tCONTROLLERS")
			for _, mode := range modeswitch.AllModes() {
				req, err := modeswitch.RequirementFor(mode)
				if err != nil {
					return err
				}
				var roles, names []string
				for _, role := range req.Roles() {
					roles = append(roles, role.String())
					name, ok := cfg.Controllers[role]
					if !ok || name == "" {
						name = "<unbound>"
					}
					names = append(names, name)
				}
				fmt.Fprintf(tw, "%s\t%d\t%s\t%s\n", mode, mode, strings.Join(roles, ","), strings.Join(names, ","))
			}
			return tw.Flush()
		},
	}
}

func newStatusCommand(cfg *cliconfig.Config, fv *flagValues) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Print the last snapshot written by a running node",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := loadConfig(cmd, cfg, *fv); err != nil {
				return err
			}
			if cfg.StatusDir == "" {
				return fmt.Errorf("no status directory configured")
			}

			snap, err := fs.NewStatusFile(cfg.StatusDir).ReadSnapshot()
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), snap)
		},
	}

	cmd.Flags().StringVar(&cfg.StatusDir, "status-dir", cfg.StatusDir, "directory holding status.json")
	return cmd
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
