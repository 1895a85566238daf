package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"cfts/internal/config"
	"cfts/internal/launch"
	"cfts/internal/preflight"
)

func newLaunchCommand(ctx *commandContext) *cobra.Command {
	var dryRun bool
	var jsonOut bool
	var skipChecks bool

	cmd := &cobra.Command{
		Use:   "launch <settings.toml>",
		Short: "Resolve experiment settings and start the experiment",
		Long: "Resolve the paradigm, starship and calibration selections in a settings file\n" +
			"against the IO manifest and calibration stores, snapshot them into a new\n" +
			"session directory and run the configured experiment command.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, mgrs, err := ctx.managers()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			manifest, err := ctx.manifest()
			if err != nil {
				return err
			}
			path, err := config.ExpandPath(args[0])
			if err != nil {
				return err
			}
			settings, err := launch.LoadSettings(path)
			if err != nil {
				return err
			}

			plan, err := launch.Resolve(cmd.Context(), launch.Deps{
				Manifest:    manifest,
				Managers:    mgrs,
				SessionRoot: cfg.Experiment.SessionRoot,
			}, settings)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if dryRun {
				if jsonOut {
					return writeJSON(cmd, plan)
				}
				printPlan(out, plan)
				return nil
			}

			if !skipChecks {
				failed := preflight.Failed(preflight.RunAll(cmd.Context(), cfg, logger))
				if len(failed) > 0 {
					names := make([]string, 0, len(failed))
					for _, r := range failed {
						names = append(names, fmt.Sprintf("%s (%s)", r.Name, r.Detail))
					}
					return fmt.Errorf("preflight failed: %s; run `cfts check` for details", strings.Join(names, "; "))
				}
			}

			runner := launch.NewRunner(cfg, logger)
			runner.Stdout = out
			runner.Stderr = cmd.ErrOrStderr()
			return runner.Run(cmd.Context(), plan)
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Print the resolved plan without starting the experiment")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "With --dry-run, print the plan as JSON")
	cmd.Flags().BoolVar(&skipChecks, "skip-checks", false, "Start without running preflight checks")
	return cmd
}

func printPlan(out io.Writer, plan *launch.Plan) {
	rows := [][]string{
		{"Session", plan.SessionID},
		{"Paradigm", plan.Paradigm},
		{"Starship", fmt.Sprintf("%s (%s)", plan.Starship.ID, plan.Starship.Device)},
		{"Microphone channel", plan.Starship.Microphone.Name},
		{"Primary channel", plan.Starship.Primary.Name},
		{"Secondary channel", plan.Starship.Secondary.Name},
		{"Starship calibration", plan.StarshipCalibration.Key},
		{"Microphone calibration", plan.MicrophoneCalibration.Key},
		{"Session directory", plan.SessionDir},
	}
	fmt.Fprintln(out, renderTable([]string{"Field", "Value"}, rows, nil))
}
