package main

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"cfts/internal/config"
	"cfts/internal/logging"
	"cfts/internal/memr"
	"cfts/internal/session"
)

type batchFlags struct {
	config    string
	format    string
	exportWAV bool
	strict    bool
	logLevel  string
}

func newRootCommand() *cobra.Command {
	var flags batchFlags

	cmd := &cobra.Command{
		Use:   "cfts-memr [recording ...]",
		Short: "Summarize MEMR recordings as figures",
		Long: "Write stimulus train, elicitor PSD, probe waveform, probe PSD and MEMR figures\n" +
			"for each recording into a folder named after the recording, beside it.\n" +
			"Failed recordings are reported and skipped.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBatch(cmd, args, flags)
		},
	}

	cmd.Flags().StringVarP(&flags.config, "config", "c", "", "Configuration file path")
	cmd.Flags().StringVar(&flags.format, "format", "", "Figure format: pdf, png or svg (default from config)")
	cmd.Flags().BoolVar(&flags.exportWAV, "export-wav", false, "Also write the averaged stimulus train as WAV")
	cmd.Flags().BoolVar(&flags.strict, "strict", false, "Exit non-zero when any recording fails")
	cmd.Flags().StringVar(&flags.logLevel, "log-level", "", "Override the configured log level")
	return cmd
}

func runBatch(cmd *cobra.Command, args []string, flags batchFlags) error {
	cfg, _, _, err := config.Load(strings.TrimSpace(flags.config))
	if err != nil {
		return err
	}
	if level := strings.TrimSpace(flags.logLevel); level != "" {
		cfg.Logging.Level = level
	}
	if format := strings.TrimSpace(flags.format); format != "" {
		cfg.MEMR.FigureFormat = strings.ToLower(strings.TrimPrefix(format, "."))
		if err := cfg.Validate(); err != nil {
			return err
		}
	}
	if flags.exportWAV {
		cfg.MEMR.ExportWAV = true
	}

	logger, err := logging.NewFromConfig(cfg, "")
	if err != nil {
		return err
	}

	runID := uuid.NewString()
	ctx := session.WithRunID(cmd.Context(), runID)
	logger = logging.WithContext(ctx, logger)
	logger.Info("batch starting", logging.Int("recordings", len(args)))

	opts := memr.OptionsFromConfig(cfg, logger)
	outcomes := memr.RunBatch(ctx, args, opts)

	out := cmd.OutOrStdout()
	for _, o := range outcomes {
		fmt.Fprintln(out, outcomeLine(o))
	}
	if len(outcomes) > 0 {
		fmt.Fprintln(out, renderSummary(outcomes))
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	failed := len(outcomes) - memr.Tally(outcomes)[memr.KindOK]
	if flags.strict && failed > 0 {
		return fmt.Errorf("%d of %d recordings failed", failed, len(outcomes))
	}
	return nil
}

func outcomeLine(o memr.Outcome) string {
	if o.OK() {
		return fmt.Sprintf("ok      %s -> %s (%d figures)", o.Path, o.OutputDir, len(o.Figures))
	}
	reason := "unknown error"
	if o.Err != nil {
		reason = o.Err.Error()
	}
	var stageErr *memr.StageError
	if errors.As(o.Err, &stageErr) && stageErr.Err != nil {
		reason = stageErr.Err.Error()
	}
	return fmt.Sprintf("%-7s %s: %s", o.Kind, o.Path, reason)
}

func renderSummary(outcomes []memr.Outcome) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.Style().Format.Footer = text.FormatDefault
	tw.AppendHeader(table.Row{"Recording", "Result", "Figures", "Output"})
	for _, o := range outcomes {
		tw.AppendRow(table.Row{filepath.Base(o.Path), string(o.Kind), len(o.Figures), o.OutputDir})
	}
	counts := memr.Tally(outcomes)
	tw.AppendFooter(table.Row{"", fmt.Sprintf("%d ok", counts[memr.KindOK]), "", fmt.Sprintf("%d failed", len(outcomes)-counts[memr.KindOK])})
	return tw.Render()
}
