package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"cfts/internal/config"
	"cfts/internal/hardware"
)

const sampleManifestRate = 100000.0

func newConfigCommand(ctx *commandContext) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration utilities",
	}

	configCmd.AddCommand(newConfigValidateCommand(ctx))
	configCmd.AddCommand(newConfigInitCommand())

	return configCmd
}

func newConfigInitCommand() *cobra.Command {
	var targetPath string
	var overwrite bool
	var starships []string
	var device string

	cmd := &cobra.Command{
		Use:         "init",
		Short:       "Create a sample configuration file",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			target := strings.TrimSpace(targetPath)
			if target == "" {
				defaultPath, err := config.DefaultConfigPath()
				if err != nil {
					return fmt.Errorf("determine default config path: %w", err)
				}
				target = defaultPath
			} else {
				expanded, err := config.ExpandPath(target)
				if err != nil {
					return fmt.Errorf("resolve config path: %w", err)
				}
				target = expanded
			}

			if !overwrite {
				if _, err := os.Stat(target); err == nil {
					return fmt.Errorf("config file already exists at %s (use --overwrite to replace it)", target)
				} else if !os.IsNotExist(err) {
					return fmt.Errorf("check config path: %w", err)
				}
			}

			if err := config.CreateSample(target); err != nil {
				return fmt.Errorf("create sample config: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Wrote sample configuration to %s\n", target)

			manifestPath := filepath.Join(filepath.Dir(target), config.SampleManifestName)
			created, err := hardware.CreateSampleManifest(manifestPath, device, sampleManifestRate, starships...)
			if err != nil {
				return fmt.Errorf("create io manifest: %w", err)
			}
			if created {
				fmt.Fprintf(out, "Wrote IO manifest for starship(s) %s to %s\n", strings.Join(starships, ", "), manifestPath)
			} else {
				fmt.Fprintf(out, "Kept existing IO manifest at %s\n", manifestPath)
			}
			fmt.Fprintln(out, "Set cal_root (or export CAL_ROOT) and check the manifest devices before launching.")
			return nil
		},
	}

	cmd.Flags().StringVarP(&targetPath, "path", "p", "", "Destination for the configuration file")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Overwrite existing configuration if present")
	cmd.Flags().StringSliceVar(&starships, "starship", []string{"A"}, "Starship IDs to define in the IO manifest stub")
	cmd.Flags().StringVar(&device, "device", "Dev1", "Acquisition device named in the IO manifest stub")
	return cmd
}

func newConfigValidateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:         "validate",
		Short:       "Validate configuration file",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, path, exists, err := config.Load(ctx.configPath())
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Config path: %s\n", path)
			if !exists {
				fmt.Fprintln(out, "Config file did not exist; defaults were used")
			}
			fmt.Fprintf(out, "Calibration root: %s\n", cfg.Paths.CalRoot)
			fmt.Fprintf(out, "IO manifest: %s\n", cfg.Hardware.IOManifest)
			if manifest, err := hardware.LoadManifest(cfg.Hardware.IOManifest); err != nil {
				fmt.Fprintf(out, "IO manifest not usable: %v\n", err)
			} else if starships, err := hardware.DescribeStarships(manifest); err != nil {
				fmt.Fprintf(out, "IO manifest incomplete: %v\n", err)
			} else {
				ids := make([]string, 0, len(starships))
				for _, s := range starships {
					ids = append(ids, s.ID)
				}
				fmt.Fprintf(out, "Starships: %s\n", strings.Join(ids, ", "))
			}
			fmt.Fprintln(out, "Configuration valid")
			return nil
		},
	}
}
