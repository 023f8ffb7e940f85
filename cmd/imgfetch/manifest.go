package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
	"imgfetch/pkg/logger"
	"imgfetch/pkg/manifest"
	"imgfetch/pkg/ui"
)

func newManifestCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "manifest",
		Short: "Inspect the manifest of fetched images",
		Long:  `Inspect the manifest that records the fingerprint of every stored image.`,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "List the images recorded in the manifest",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}
			printer := ui.NewPrinter(cmd.OutOrStdout(), cfg.UI.Color)
			m := manifest.NewStore(cfg.ManifestPath(), logger.GetLogger()).Load()

			printer.Info("Manifest", cfg.ManifestPath())
			printer.Info("Images", fmt.Sprintf("%d", m.Len()))

			byName := make(map[string]string, len(m.Hashes))
			for hash, name := range m.Hashes {
				byName[name] = hash
			}
			for _, name := range m.Files {
				hash := byName[name]
				if len(hash) > 12 {
					hash = hash[:12]
				}
				fmt.Fprintf(cmd.OutOrStdout(), "  %-12s  %s\n", hash, name)
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "verify",
		Short: "Check the manifest against the output directory",
		Long: `Check that every hashed file is listed in the manifest and that every
listed file still exists in the output directory.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}
			printer := ui.NewPrinter(cmd.OutOrStdout(), cfg.UI.Color)
			m := manifest.NewStore(cfg.ManifestPath(), logger.GetLogger()).Load()

			ok := true
			if err := m.Verify(); err != nil {
				printer.Error("Manifest inconsistent", err)
				ok = false
			}

			missing := m.Missing(cfg.Fetch.OutputDir)
			sort.Strings(missing)
			for _, name := range missing {
				printer.Error("Missing file", name)
				ok = false
			}

			if !ok {
				return errSilent
			}
			printer.Success(fmt.Sprintf("Manifest OK: %d image(s) in %s", m.Len(), cfg.Fetch.OutputDir))
			return nil
		},
	})

	return cmd
}
