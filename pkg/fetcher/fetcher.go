package fetcher

import (
	"context"
	"strings"
	"unicode"

	"imgfetch/pkg/config"
	"imgfetch/pkg/fetch"
	"imgfetch/pkg/logger"
	"imgfetch/pkg/manifest"
	"imgfetch/pkg/storage"
	"imgfetch/pkg/ui"
)

// Summary counts the outcomes of a run
type Summary struct {
	Stored      int
	Duplicates  int
	Skipped     int
	Failed      int
	Interrupted bool
	Attempts    []*fetch.Attempt
}

// Total returns the number of URLs attempted
func (s Summary) Total() int {
	return len(s.Attempts)
}

func (s *Summary) add(a *fetch.Attempt) {
	s.Attempts = append(s.Attempts, a)
	switch a.Outcome {
	case fetch.OutcomeStored:
		s.Stored++
	case fetch.OutcomeDuplicate:
		s.Duplicates++
	case fetch.OutcomeNotImage, fetch.OutcomeTooLarge:
		s.Skipped++
	default:
		s.Failed++
	}
}

// ParseURLs splits raw input on any mix of whitespace and commas
func ParseURLs(raw string) []string {
	return strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || unicode.IsSpace(r)
	})
}

// Fetcher runs the fetch pipeline over a list of URLs, one at a time
type Fetcher struct {
	pipeline *fetch.Pipeline
	store    *manifest.Store
	printer  *ui.Printer
	logger   logger.Logger
}

// New wires a Fetcher from the application settings
func New(cfg *config.Config, printer *ui.Printer, log logger.Logger, opts ...fetch.ClientOption) *Fetcher {
	if log == nil {
		log = logger.GetLogger()
	}

	client := fetch.NewClient(cfg, log, opts...)
	store := manifest.NewStore(cfg.ManifestPath(), log)
	pipeline := fetch.NewPipeline(
		client,
		fetch.NewProber(client, cfg.Probe, log),
		storage.NewResolver(cfg.Fetch.OutputDir),
		store,
		cfg.Fetch,
		log,
	)

	return &Fetcher{
		pipeline: pipeline,
		store:    store,
		printer:  printer,
		logger:   log,
	}
}

// Run loads the manifest once and fetches every URL against it. Per-URL
// outcomes never stop the loop; cancelling ctx does.
func (f *Fetcher) Run(ctx context.Context, urls []string) Summary {
	var summary Summary
	m := f.store.Load()

	f.logger.InfoWithFields("Fetch run started", map[string]interface{}{
		"urls":     len(urls),
		"manifest": f.store.Path(),
		"known":    m.Len(),
	})

	for _, url := range urls {
		if ctx.Err() != nil {
			summary.Interrupted = true
			break
		}

		a := f.pipeline.Fetch(ctx, url, m)
		summary.add(a)
		if f.printer != nil {
			f.printer.Outcome(a, f.pipeline.MaxBytes())
		}
	}

	f.logger.InfoWithFields("Fetch run finished", map[string]interface{}{
		"stored":      summary.Stored,
		"duplicates":  summary.Duplicates,
		"skipped":     summary.Skipped,
		"failed":      summary.Failed,
		"interrupted": summary.Interrupted,
	})
	return summary
}
