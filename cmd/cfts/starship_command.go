package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"cfts/internal/hardware"
)

func newStarshipCommand(ctx *commandContext) *cobra.Command {
	starshipCmd := &cobra.Command{
		Use:   "starship",
		Short: "Inspect starships defined by the IO manifest",
	}
	starshipCmd.AddCommand(newStarshipListCommand(ctx))
	return starshipCmd
}

func newStarshipListCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List complete starships and their channels",
		RunE: func(cmd *cobra.Command, args []string) error {
			manifest, err := ctx.manifest()
			if err != nil {
				return err
			}
			starships, err := hardware.DescribeStarships(manifest)
			if err != nil {
				return err
			}
			if jsonOut {
				return writeJSON(cmd, starships)
			}
			rows := make([][]string, 0, len(starships))
			for _, s := range starships {
				rows = append(rows, []string{
					s.ID,
					s.Device,
					s.Microphone.Name,
					s.Primary.Name,
					s.Secondary.Name,
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"ID", "Device", "Microphone", "Primary", "Secondary"},
				rows,
				nil,
			))
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")
	return cmd
}
