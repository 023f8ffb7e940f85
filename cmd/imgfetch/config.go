package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
	"imgfetch/pkg/config"
	"imgfetch/pkg/ui"
)

func newConfigCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage imgfetch configuration",
		Long:  `Create, view and validate imgfetch configuration files.`,
	}

	var force bool
	initCmd := &cobra.Command{
		Use:   "init [path]",
		Short: "Write a configuration file with the default settings",
		Long: `Write the default settings to a configuration file.

The format follows the extension: .toml writes TOML, anything else YAML.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			printer := ui.NewPrinter(cmd.OutOrStdout(), !opts.noColor)

			path := ".imgfetch.yaml"
			if len(args) > 0 {
				path = args[0]
			}

			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("config file already exists: %s (use --force to overwrite)", path)
			}

			if err := config.DefaultConfig().Save(path); err != nil {
				return err
			}

			printer.Success(fmt.Sprintf("Created config file: %s", path))
			return nil
		},
	}
	initCmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite an existing file")

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		Long:  `Show the configuration after merging defaults, file, environment and flags.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(opts.configFile, flagOverrides(cmd, opts))
			if err != nil {
				return err
			}

			data, err := yaml.Marshal(cfg)
			if err != nil {
				return fmt.Errorf("failed to marshal config: %w", err)
			}
			fmt.Fprint(cmd.OutOrStdout(), string(data))
			return nil
		},
	}

	validateCmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate the configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			printer := ui.NewPrinter(cmd.OutOrStdout(), !opts.noColor)

			cfg, err := config.Load(opts.configFile, flagOverrides(cmd, opts))
			if err != nil {
				printer.Error("Configuration is invalid", err)
				return errSilent
			}

			printer.Success("Configuration is valid")
			printer.Info("Output", cfg.Fetch.OutputDir)
			printer.Info("Manifest", cfg.ManifestPath())
			if cfg.RateLimit.RequestsPerMinute == 0 {
				printer.Warning("Rate limiting is disabled")
			}
			return nil
		},
	}

	cmd.AddCommand(initCmd, showCmd, validateCmd)
	return cmd
}
