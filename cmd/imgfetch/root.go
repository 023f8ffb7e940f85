package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"
	"imgfetch/pkg/config"
	"imgfetch/pkg/fetcher"
	"imgfetch/pkg/logger"
	"imgfetch/pkg/ui"
)

var (
	// Version information
	version   = "1.0.0"
	gitCommit = "unknown"
	buildDate = "unknown"
)

// rootOptions holds the flags shared by every command
type rootOptions struct {
	configFile string
	logLevel   string
	noColor    bool
	verbose    bool

	outputDir   string
	maxBytes    int64
	timeout     time.Duration
	noProbe     bool
	rangeProbe  bool
	rateLimit   int
	maxAttempts int
}

// errSilent marks failures that were already reported to the user
var errSilent = errors.New("command failed")

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "imgfetch [flags]",
		Short: "Mindfully collect images from the web",
		Long: `imgfetch downloads images from a list of URLs into a local folder.

Every image is checked to really be an image, kept under a size cap and
fingerprinted with SHA-256 so the same picture is never stored twice, no
matter which URL it came from. A manifest in the output folder remembers
everything fetched so far.

Run without arguments to be prompted for URLs, or use 'imgfetch fetch'.`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildDate),
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInteractive(cmd, opts)
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVarP(&opts.configFile, "config", "c", "", "config file (default is ./.imgfetch.yaml or ~/.config/imgfetch/config.yaml)")
	flags.StringVar(&opts.logLevel, "log-level", "", "log level (debug, info, warn, error, disabled)")
	flags.BoolVar(&opts.noColor, "no-color", false, "disable colored output")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "log debug details to stderr")

	flags.StringVarP(&opts.outputDir, "output", "o", "", "output directory (default Fetched_Images)")
	flags.Int64Var(&opts.maxBytes, "max-bytes", 0, "size cap per image in bytes (default 15 MiB)")
	flags.DurationVar(&opts.timeout, "timeout", 0, "network timeout (default 15s)")
	flags.BoolVar(&opts.noProbe, "no-probe", false, "skip the metadata probe before downloading")
	flags.BoolVar(&opts.rangeProbe, "range-probe", false, "fall back to a one-byte range request when HEAD fails")
	flags.IntVar(&opts.rateLimit, "rate-limit", 0, "requests per minute, 0 disables limiting (default 60)")
	flags.IntVar(&opts.maxAttempts, "max-attempts", 0, "attempts per request for transient failures (default 1)")

	cmd.SetVersionTemplate(`imgfetch {{.Version}}
Go Version: ` + runtime.Version() + `
OS/Arch: ` + runtime.GOOS + `/` + runtime.GOARCH + `
`)
	cmd.CompletionOptions.DisableDefaultCmd = true

	cmd.AddCommand(newFetchCmd(opts))
	cmd.AddCommand(newManifestCmd(opts))
	cmd.AddCommand(newConfigCmd(opts))

	return cmd
}

// Execute runs the CLI and returns the process exit code
func Execute(ctx context.Context) int {
	cmd := newRootCmd()
	if err := cmd.ExecuteContext(ctx); err != nil {
		if !errors.Is(err, errSilent) {
			ui.NewPrinter(cmd.ErrOrStderr(), true).Error("Error", err)
		}
		return 1
	}
	return 0
}

// flagOverrides collects only the flags the user actually set
func flagOverrides(cmd *cobra.Command, opts *rootOptions) map[string]interface{} {
	overrides := make(map[string]interface{})
	changed := func(name string) bool {
		f := cmd.Flags().Lookup(name)
		return f != nil && f.Changed
	}

	if changed("output") {
		overrides["output"] = opts.outputDir
	}
	if changed("max-bytes") {
		overrides["max-bytes"] = opts.maxBytes
	}
	if changed("timeout") {
		overrides["timeout"] = opts.timeout
	}
	if changed("no-probe") {
		overrides["no-probe"] = opts.noProbe
	}
	if changed("range-probe") {
		overrides["range-probe"] = opts.rangeProbe
	}
	if changed("rate-limit") {
		overrides["rate-limit"] = opts.rateLimit
	}
	if changed("max-attempts") {
		overrides["max-attempts"] = opts.maxAttempts
	}
	if changed("no-color") {
		overrides["no-color"] = opts.noColor
	}
	if changed("log-level") {
		overrides["log-level"] = opts.logLevel
	}
	if opts.verbose {
		overrides["log-level"] = "debug"
	}
	return overrides
}

// loadConfig resolves the configuration and sets up logging
func loadConfig(cmd *cobra.Command, opts *rootOptions) (*config.Config, error) {
	cfg, err := config.Load(opts.configFile, flagOverrides(cmd, opts))
	if err != nil {
		return nil, err
	}
	if err := logger.Initialize(&cfg.Logging); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return cfg, nil
}

func runInteractive(cmd *cobra.Command, opts *rootOptions) error {
	cfg, err := loadConfig(cmd, opts)
	if err != nil {
		return err
	}
	printer := ui.NewPrinter(cmd.OutOrStdout(), cfg.UI.Color)

	printer.Banner()
	in := cmd.InOrStdin()
	if isTerminal(in) {
		printer.Prompt()
	}

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("failed to read URLs: %w", err)
	}

	urls := fetcher.ParseURLs(line)
	if len(urls) == 0 {
		printer.NoInput()
		return nil
	}

	return runFetch(cmd.Context(), cfg, printer, urls)
}

// runFetch processes urls and prints the closing lines. Per-URL failures
// do not fail the command.
func runFetch(ctx context.Context, cfg *config.Config, printer *ui.Printer, urls []string) error {
	f := fetcher.New(cfg, printer, logger.GetLogger())
	summary := f.Run(ctx, urls)

	if summary.Total() > 1 {
		printer.Summary(summary.Stored, summary.Duplicates, summary.Skipped, summary.Failed)
	}
	if summary.Interrupted {
		printer.Warning("Interrupted, remaining URLs were not fetched.")
	}
	printer.Closing()
	return nil
}

func isTerminal(r io.Reader) bool {
	f, ok := r.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
