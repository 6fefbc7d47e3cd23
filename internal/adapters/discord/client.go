package discord

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	perr "discordsearch/internal/platform/errors"
	"discordsearch/internal/platform/logger"

	"golang.org/x/time/rate"
)

const (
	defaultUA           = "discord-search"
	defaultMaxErrors    = 5
	defaultErrorBackoff = 5 * time.Second
)

// maxBodyBytes caps a decoded page; 25 groups are far below it
var maxBodyBytes int64 = 8 << 20

// Options configures the Client
type Options struct {
	UserAgent string
	Token     string

	// Timeout bounds a single request; zero means no per-request timeout
	Timeout time.Duration

	// MaxErrors is the number of non-429 failures a session tolerates
	MaxErrors    int
	ErrorBackoff time.Duration

	// RPS paces requests client side; zero disables pacing
	RPS   float64
	Burst int
}

// Doer is the subset of *http.Client the Client needs
type Doer interface {
	Do(*http.Request) (*http.Response, error)
}

// Client executes search requests for one export session. It is not safe for
// concurrent use; a session issues one request at a time
type Client struct {
	http    Doer
	opts    Options
	now     func() time.Time
	sleep   func(context.Context, time.Duration) error
	limiter *rate.Limiter

	errors   int
	attempts int
}

// Option customizes a Client
type Option func(*Client)

// WithHTTP swaps the underlying http doer
func WithHTTP(d Doer) Option { return func(c *Client) { c.http = d } }

// WithSleep swaps the backoff sleeper
func WithSleep(fn func(context.Context, time.Duration) error) Option {
	return func(c *Client) { c.sleep = fn }
}

// WithClock swaps the clock used for latency
func WithClock(fn func() time.Time) Option { return func(c *Client) { c.now = fn } }

// NewClient creates a new Client with sane defaults
func NewClient(o Options, opts ...Option) *Client {
	if o.UserAgent == "" {
		o.UserAgent = defaultUA
	}
	if o.MaxErrors <= 0 {
		o.MaxErrors = defaultMaxErrors
	}
	if o.ErrorBackoff <= 0 {
		o.ErrorBackoff = defaultErrorBackoff
	}
	lim := rate.NewLimiter(rate.Inf, 1)
	if o.RPS > 0 {
		burst := o.Burst
		if burst <= 0 {
			burst = 1
		}
		lim = rate.NewLimiter(rate.Limit(o.RPS), burst)
	}
	c := &Client{
		http:    &http.Client{Timeout: o.Timeout},
		opts:    o,
		now:     time.Now,
		sleep:   sleepCtx,
		limiter: lim,
	}
	for _, fn := range opts {
		fn(c)
	}
	return c
}

// Errors returns the session error count
func (c *Client) Errors() int { return c.errors }

// Attempts returns the number of HTTP requests issued, retries included
func (c *Client) Attempts() int { return c.attempts }

// ResetSession restores the full error budget for a new session
func (c *Client) ResetSession() {
	c.errors = 0
	c.attempts = 0
}

// Search issues GET rawURL until it yields a page. Rate limited responses are
// retried after the advertised delay and never counted. Any other failure
// counts against the session budget; reaching it returns a Fatal error
func (c *Client) Search(ctx context.Context, rawURL string) (*SearchResult, error) {
	log := logger.C(ctx).With().Str("component", "discord").Logger()
	for {
		if err := ctx.Err(); err != nil {
			return nil, perr.Canceled(err)
		}
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, perr.Canceled(err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return nil, perr.Wrapf(err, perr.ErrorCodeValidation, "discord new request failed")
		}
		req.Header.Set("authorization", c.opts.Token)
		req.Header.Set("User-Agent", c.opts.UserAgent)
		req.Header.Set("Accept", "application/json")

		c.attempts++
		start := c.now()
		resp, err := c.http.Do(req)
		lat := c.now().Sub(start)

		if err != nil {
			if ctx.Err() != nil {
				return nil, perr.Canceled(ctx.Err())
			}
			if ferr := c.fail(ctx, &log, perr.Wrapf(err, perr.ErrorCodeUnavailable, "discord transport error")); ferr != nil {
				return nil, ferr
			}
			continue
		}

		log.Debug().
			Int("status", resp.StatusCode).
			Int("attempt", c.attempts).
			Dur("latency", lat).
			Msg("discord http response")

		switch resp.StatusCode {
		case http.StatusOK:
			out, err := decode(resp.Body)
			if err != nil {
				if ctx.Err() != nil {
					return nil, perr.Canceled(ctx.Err())
				}
				if ferr := c.fail(ctx, &log, err); ferr != nil {
					return nil, ferr
				}
				continue
			}
			return out, nil

		case http.StatusTooManyRequests:
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			_ = resp.Body.Close()
			wait, global, ok := parseRetryAfter(body, resp.Header)
			if !ok {
				wait = c.opts.ErrorBackoff
			}
			log.Warn().Dur("sleep", wait).Bool("global", global).Msg("discord rate limited backing off")
			if err := c.sleep(ctx, wait); err != nil {
				return nil, perr.Canceled(err)
			}
			continue

		default:
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
			_ = drainAndClose(resp.Body)
			se := &StatusError{Status: resp.StatusCode, Body: excerpt(body, 512)}
			if ferr := c.fail(ctx, &log, perr.Wrap(se, perr.ErrorCodeUnavailable, "discord search failed")); ferr != nil {
				return nil, ferr
			}
			continue
		}
	}
}

// fail records one counted failure. It returns a Fatal error once the budget
// is spent, otherwise sleeps the error backoff and returns nil
func (c *Client) fail(ctx context.Context, log *logger.Logger, cause error) error {
	c.errors++
	log.Error().Err(cause).
		Int("errors", c.errors).
		Int("max_errors", c.opts.MaxErrors).
		Msg("discord request counted against error budget")
	if c.errors >= c.opts.MaxErrors {
		return perr.Wrapf(cause, perr.ErrorCodeFatal, "max errors reached (%d)", c.opts.MaxErrors)
	}
	if err := c.sleep(ctx, c.opts.ErrorBackoff); err != nil {
		return perr.Canceled(err)
	}
	return nil
}

func decode(body io.ReadCloser) (*SearchResult, error) {
	defer func() { _ = body.Close() }()
	b, err := io.ReadAll(io.LimitReader(body, maxBodyBytes+1))
	if err != nil {
		return nil, perr.Wrapf(err, perr.ErrorCodeUnavailable, "discord read body failed")
	}
	if int64(len(b)) > maxBodyBytes {
		return nil, perr.JSONErrf("discord page body exceeds %d bytes", maxBodyBytes)
	}
	var out SearchResult
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, perr.Wrapf(err, perr.ErrorCodeJSON, "discord decode page failed")
	}
	return &out, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
