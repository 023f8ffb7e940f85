package main

import (
	"strings"

	"github.com/spf13/cobra"
	"imgfetch/pkg/fetcher"
	"imgfetch/pkg/ui"
)

func newFetchCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "fetch <url>...",
		Short: "Fetch one or more image URLs",
		Long: `Fetch each URL in order into the output directory.

URLs may be given as separate arguments or as one argument separated by
commas. Duplicates of images fetched earlier are detected by content and
skipped.`,
		Example: `  # Fetch two images
  imgfetch fetch https://example.com/a.jpg https://example.com/b.png

  # Comma separated, into a custom folder
  imgfetch fetch -o ./wallpapers "https://example.com/a.jpg,https://example.com/b.png"

  # Be extra gentle with a slow server
  imgfetch fetch --rate-limit 10 --max-attempts 3 https://example.com/a.jpg`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}
			printer := ui.NewPrinter(cmd.OutOrStdout(), cfg.UI.Color)

			urls := fetcher.ParseURLs(strings.Join(args, " "))
			if len(urls) == 0 {
				printer.NoInput()
				return nil
			}
			return runFetch(cmd.Context(), cfg, printer, urls)
		},
	}
}
