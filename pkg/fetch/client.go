package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"imgfetch/pkg/config"
	errs "imgfetch/pkg/errors"
	"imgfetch/pkg/logger"
	"imgfetch/pkg/ratelimit"
	"imgfetch/pkg/retry"
)

// ErrIdleTimeout is returned when a server stops sending data for longer
// than the client timeout.
var ErrIdleTimeout = errors.New("no data received within timeout")

// Client performs the HTTP requests of a fetch run with a static
// User-Agent and Accept header.
type Client struct {
	httpClient *http.Client
	userAgent  string
	accept     string
	timeout    time.Duration
	retry      *retry.Config
	logger     logger.Logger
}

// ClientOption configures a Client
type ClientOption func(*clientOptions)

type clientOptions struct {
	transport http.RoundTripper
	limiter   ratelimit.Limiter
}

// WithTransport sets the base transport under the rate limiter
func WithTransport(rt http.RoundTripper) ClientOption {
	return func(o *clientOptions) {
		o.transport = rt
	}
}

// WithLimiter replaces the limiter built from the rate limit settings
func WithLimiter(l ratelimit.Limiter) ClientOption {
	return func(o *clientOptions) {
		o.limiter = l
	}
}

// NewClient creates a client from the application settings
func NewClient(cfg *config.Config, log logger.Logger, opts ...ClientOption) *Client {
	if log == nil {
		log = logger.GetLogger()
	}

	var o clientOptions
	for _, opt := range opts {
		opt(&o)
	}
	if o.limiter == nil {
		o.limiter = ratelimit.NewTokenBucket(cfg.RateLimit.RequestsPerMinute, cfg.RateLimit.Burst)
	}

	base := o.transport
	if base == nil {
		base = http.DefaultTransport
	}

	return &Client{
		httpClient: &http.Client{
			Transport: watchdogTransport{
				next: ratelimit.NewRoundTripper(o.limiter, log, watchdogTransport{next: base, arm: true}),
			},
		},
		userAgent: cfg.Fetch.UserAgent,
		accept:    cfg.Fetch.Accept,
		timeout:   cfg.Fetch.Timeout,
		retry:     retry.FromConfig(cfg.Retry, log),
		logger:    log,
	}
}

// Get issues a streaming GET, retried per the retry policy. The caller owns
// the returned body. Non-2xx responses are returned as status errors.
func (c *Client) Get(ctx context.Context, url string) (*http.Response, error) {
	return retry.DoWithResult(ctx, func(ctx context.Context) (*http.Response, error) {
		return c.do(ctx, http.MethodGet, url, nil)
	}, c.retry)
}

// Probe issues a single metadata request without retries
func (c *Client) Probe(ctx context.Context, method, url string, header http.Header) (*http.Response, error) {
	return c.do(ctx, method, url, header)
}

func (c *Client) do(ctx context.Context, method, url string, header http.Header) (*http.Response, error) {
	reqCtx, cancel := context.WithCancel(ctx)
	wd := newWatchdog(c.timeout, cancel)
	req, err := http.NewRequestWithContext(context.WithValue(reqCtx, watchdogKey{}, wd), method, url, nil)
	if err != nil {
		cancel()
		return nil, errs.Network(err)
	}
	for key, values := range header {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", c.accept)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		wd.pause()
		cancel()
		if wd.fired.Load() {
			err = wd.err()
		}
		c.logger.WithError(err).DebugWithFields("HTTP request failed", map[string]interface{}{
			"method": method,
			"url":    url,
		})
		return nil, errs.Network(err)
	}
	logger.LogRequest(c.logger, method, url, resp.StatusCode, time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		wd.pause()
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		cancel()
		statusErr := errs.Status(resp.StatusCode)
		statusErr.RetryAfter = parseRetryAfter(resp.Header.Get("Retry-After"), time.Now())
		return nil, statusErr
	}

	wd.arm()
	resp.Body = &watchdogBody{rc: resp.Body, wd: wd, cancel: cancel}
	return resp, nil
}

// watchdog cancels a request once the server has been silent for longer
// than timeout. It only runs while the request is on the wire: time spent
// waiting on the rate limiter is not counted.
type watchdog struct {
	timer   *time.Timer
	timeout time.Duration
	fired   atomic.Bool
}

type watchdogKey struct{}

func newWatchdog(timeout time.Duration, cancel context.CancelFunc) *watchdog {
	wd := &watchdog{timeout: timeout}
	wd.timer = time.AfterFunc(timeout, func() {
		wd.fired.Store(true)
		cancel()
	})
	wd.timer.Stop()
	return wd
}

func (wd *watchdog) arm()   { wd.timer.Reset(wd.timeout) }
func (wd *watchdog) pause() { wd.timer.Stop() }

func (wd *watchdog) err() error {
	return fmt.Errorf("%w (%s)", ErrIdleTimeout, wd.timeout)
}

// watchdogTransport pauses the request watchdog before the rate limiter
// and arms it once the request is handed to the network. Redirect hops
// pass through both again.
type watchdogTransport struct {
	next http.RoundTripper
	arm  bool
}

func (t watchdogTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	if wd, ok := r.Context().Value(watchdogKey{}).(*watchdog); ok {
		if t.arm {
			wd.arm()
		} else {
			wd.pause()
		}
	}
	return t.next.RoundTrip(r)
}

// watchdogBody re-arms the idle timer on every read and releases the
// request context on Close.
type watchdogBody struct {
	rc     io.ReadCloser
	wd     *watchdog
	cancel context.CancelFunc
}

func (b *watchdogBody) Read(p []byte) (int, error) {
	n, err := b.rc.Read(p)
	if err != nil && err != io.EOF {
		if b.wd.fired.Load() {
			err = b.wd.err()
		}
		return n, errs.Network(err)
	}
	b.wd.arm()
	return n, err
}

func (b *watchdogBody) Close() error {
	b.wd.pause()
	err := b.rc.Close()
	b.cancel()
	return err
}

// parseRetryAfter reads a Retry-After value given in seconds or as an HTTP
// date. Anything else yields zero.
func parseRetryAfter(v string, now time.Time) time.Duration {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil {
		if secs <= 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil && t.After(now) {
		return t.Sub(now)
	}
	return 0
}
