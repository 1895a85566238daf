package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"cfts/internal/config"
	"cfts/internal/recording"
)

func newRecordingCommand() *cobra.Command {
	recCmd := &cobra.Command{
		Use:   "recording",
		Short: "Import and inspect MEMR recordings",
	}
	recCmd.AddCommand(newRecordingImportCommand())
	recCmd.AddCommand(newRecordingInspectCommand())
	return recCmd
}

func newRecordingImportCommand() *cobra.Command {
	var sidecarPath string
	var outputPath string

	cmd := &cobra.Command{
		Use:         "import <epochs.wav>",
		Short:       "Build a recording file from a WAV export and its TOML sidecar",
		Args:        cobra.ExactArgs(1),
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			wavPath, err := config.ExpandPath(args[0])
			if err != nil {
				return err
			}
			sidecar := strings.TrimSpace(sidecarPath)
			if sidecar == "" {
				sidecar = recording.DefaultSidecarPath(wavPath)
			}
			dbPath := strings.TrimSpace(outputPath)
			if dbPath == "" {
				dbPath = strings.TrimSuffix(wavPath, ".wav") + ".db"
			}
			if err := recording.ImportWAV(cmd.Context(), wavPath, sidecar, dbPath); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote recording %s\n", dbPath)
			return nil
		},
	}
	cmd.Flags().StringVar(&sidecarPath, "sidecar", "", "Sidecar TOML (default: <wav stem>.toml)")
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Recording file to create (default: <wav stem>.db)")
	return cmd
}

func newRecordingInspectCommand() *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:         "inspect <recording.db>",
		Short:       "Summarize a recording file",
		Args:        cobra.ExactArgs(1),
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := config.ExpandPath(args[0])
			if err != nil {
				return err
			}
			file, err := recording.Open(cmd.Context(), path)
			if err != nil {
				return err
			}
			defer file.Close()
			summary, err := file.Summarize(cmd.Context())
			if err != nil {
				return err
			}
			if jsonOut {
				return writeJSON(cmd, summary)
			}

			out := cmd.OutOrStdout()
			rows := [][]string{
				{"Path", summary.Path},
				{"Source", summary.Source},
				{"Sample rate", fmt.Sprintf("%g Hz", summary.SampleRate)},
				{"Epochs", fmt.Sprintf("%d x %d samples", summary.Epochs, summary.EpochSamples)},
				{"Elicitor levels", formatLevels(summary.Levels)},
				{"Calibration", summary.Calibration},
				{"Calibration readable", yesNo(summary.CalibrationOK)},
			}
			fmt.Fprintln(out, renderTable([]string{"Field", "Value"}, rows, nil))

			names := make([]string, 0, len(summary.Settings))
			for name := range summary.Settings {
				names = append(names, name)
			}
			sort.Strings(names)
			settingRows := make([][]string, 0, len(names))
			for _, name := range names {
				settingRows = append(settingRows, []string{name, fmt.Sprintf("%g", summary.Settings[name])})
			}
			fmt.Fprintln(out, renderTable([]string{"Setting", "Value"}, settingRows, []columnAlignment{alignLeft, alignRight}))
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")
	return cmd
}

func formatLevels(levels []float64) string {
	parts := make([]string, 0, len(levels))
	for _, l := range levels {
		parts = append(parts, fmt.Sprintf("%g", l))
	}
	return strings.Join(parts, ", ")
}
