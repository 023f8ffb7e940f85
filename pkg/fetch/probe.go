package fetch

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"imgfetch/pkg/config"
	"imgfetch/pkg/logger"
)

// ProbeResult is the metadata a probe learned about a URL
type ProbeResult struct {
	// Conclusive is false when no strategy got a 2xx answer
	Conclusive  bool
	Strategy    string
	ContentType string
	// Length is the declared size in bytes, or -1 when unknown
	Length int64
}

// ProbeStrategy is one way of asking a server about a resource without
// downloading it.
type ProbeStrategy interface {
	Name() string
	Probe(ctx context.Context, c *Client, url string) (ProbeResult, error)
}

// HeadProbe asks with a HEAD request
type HeadProbe struct{}

func (HeadProbe) Name() string { return "head" }

func (HeadProbe) Probe(ctx context.Context, c *Client, url string) (ProbeResult, error) {
	resp, err := c.Probe(ctx, http.MethodHead, url, nil)
	if err != nil {
		return ProbeResult{}, err
	}
	defer resp.Body.Close()

	return ProbeResult{
		Conclusive:  true,
		ContentType: resp.Header.Get("Content-Type"),
		Length:      parseLength(resp.Header.Get("Content-Length")),
	}, nil
}

// RangeProbe asks for the first byte only, for servers that reject HEAD.
// The total size comes from Content-Range when the server honours the range.
type RangeProbe struct{}

func (RangeProbe) Name() string { return "range" }

func (RangeProbe) Probe(ctx context.Context, c *Client, url string) (ProbeResult, error) {
	header := http.Header{}
	header.Set("Range", "bytes=0-0")

	resp, err := c.Probe(ctx, http.MethodGet, url, header)
	if err != nil {
		return ProbeResult{}, err
	}
	defer resp.Body.Close()

	var length int64
	if resp.StatusCode == http.StatusPartialContent {
		length = parseContentRangeTotal(resp.Header.Get("Content-Range"))
	} else {
		length = parseLength(resp.Header.Get("Content-Length"))
	}

	return ProbeResult{
		Conclusive:  true,
		ContentType: resp.Header.Get("Content-Type"),
		Length:      length,
	}, nil
}

// Prober runs probe strategies in order until one answers
type Prober struct {
	client     *Client
	strategies []ProbeStrategy
	logger     logger.Logger
}

// NewProber builds the strategy list from the probe settings. A disabled
// probe has no strategies and is always inconclusive.
func NewProber(c *Client, cfg config.ProbeConfig, log logger.Logger) *Prober {
	if log == nil {
		log = logger.NewNopLogger()
	}

	var strategies []ProbeStrategy
	if cfg.Enabled {
		strategies = append(strategies, HeadProbe{})
		if cfg.RangeFallback {
			strategies = append(strategies, RangeProbe{})
		}
	}
	return &Prober{client: c, strategies: strategies, logger: log}
}

// Probe returns the first conclusive result, or an inconclusive one
func (p *Prober) Probe(ctx context.Context, url string) ProbeResult {
	for _, s := range p.strategies {
		res, err := s.Probe(ctx, p.client, url)
		if err != nil {
			p.logger.WithError(err).DebugWithFields("Probe strategy failed", map[string]interface{}{
				"strategy": s.Name(),
				"url":      url,
			})
			if ctx.Err() != nil {
				break
			}
			continue
		}
		res.Strategy = s.Name()
		return res
	}
	return ProbeResult{Length: -1}
}

func parseLength(v string) int64 {
	n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
	if err != nil || n < 0 {
		return -1
	}
	return n
}

// parseContentRangeTotal reads the total from "bytes 0-0/12345"
func parseContentRangeTotal(v string) int64 {
	_, total, found := strings.Cut(v, "/")
	if !found || total == "*" {
		return -1
	}
	return parseLength(total)
}
