package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"cfts/internal/calibration"
)

func newCalibrationCommand(ctx *commandContext) *cobra.Command {
	calCmd := &cobra.Command{
		Use:   "calibration",
		Short: "Inspect starship and microphone calibrations",
	}
	calCmd.AddCommand(newCalibrationListCommand(ctx))
	calCmd.AddCommand(newCalibrationShowCommand(ctx))
	return calCmd
}

func newCalibrationListCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "list <starship|microphone>",
		Short: "List the calibration choices offered at launch",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, err := ctx.manager(args[0])
			if err != nil {
				return err
			}
			choices, err := mgr.ListChoices(cmd.Context())
			if err != nil {
				return err
			}
			if jsonOut {
				if choices == nil {
					choices = []calibration.Choice{}
				}
				return writeJSON(cmd, choices)
			}
			out := cmd.OutOrStdout()
			if len(choices) == 0 {
				fmt.Fprintf(out, "No %s calibrations found\n", mgr.Kind())
			} else {
				rows := make([][]string, 0, len(choices))
				for _, c := range choices {
					rows = append(rows, []string{c.Display, c.Key})
				}
				fmt.Fprintln(out, renderTable([]string{"Choice", "Key"}, rows, nil))
			}
			for _, src := range mgr.Sources() {
				dir := src.Dir
				if dir == "" {
					dir = "-"
				}
				fmt.Fprintf(out, "Loader %s reads %s\n", src.Loader, dir)
			}
			if extra := mgr.Unregistered(); len(extra) > 0 {
				fmt.Fprintf(out, "Also available: %s\n", strings.Join(extra, ", "))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")
	return cmd
}

type calibrationView struct {
	Key         string             `json:"key"`
	Kind        string             `json:"kind"`
	Attrs       calibration.Attrs  `json:"attrs"`
	Sensitivity map[string]float64 `json:"sensitivity_db,omitempty"`
}

func newCalibrationShowCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool
	var freqs []float64

	cmd := &cobra.Command{
		Use:   "show <starship|microphone> <key>",
		Short: "Load one calibration and print its sensitivity",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, err := ctx.manager(args[0])
			if err != nil {
				return err
			}
			cal, err := mgr.Load(cmd.Context(), args[1])
			if err != nil {
				return err
			}
			if len(freqs) == 0 {
				freqs = []float64{500, 1000, 2000, 4000, 8000, 16000}
			}
			sort.Float64s(freqs)
			sens := make([]float64, len(freqs))
			for i, f := range freqs {
				sens[i] = cal.Sensitivity(f)
			}

			view := calibrationView{
				Key:         args[1],
				Kind:        calibrationKind(cal),
				Attrs:       cal.Attrs(),
				Sensitivity: make(map[string]float64, len(freqs)),
			}
			for i, f := range freqs {
				view.Sensitivity[fmt.Sprintf("%g", f)] = sens[i]
			}
			if jsonOut {
				return writeJSON(cmd, view)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Key:    %s\n", view.Key)
			fmt.Fprintf(out, "Type:   %s\n", view.Kind)
			fmt.Fprintf(out, "Source: %s\n", view.Attrs.CalibrationFile)
			rows := make([][]string, 0, len(freqs))
			for i, f := range freqs {
				rows = append(rows, []string{fmt.Sprintf("%g", f), fmt.Sprintf("%.2f", sens[i])})
			}
			fmt.Fprintln(out, renderTable([]string{"Frequency (Hz)", "Sensitivity (dB)"}, rows, []columnAlignment{alignRight, alignRight}))
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")
	cmd.Flags().Float64SliceVar(&freqs, "freq", nil, "Frequencies to evaluate (Hz)")
	return cmd
}

func calibrationKind(cal calibration.Calibration) string {
	switch cal.(type) {
	case *calibration.FlatCalibration:
		return "flat"
	case *calibration.InterpCalibration:
		return "interpolated"
	default:
		return fmt.Sprintf("%T", cal)
	}
}
