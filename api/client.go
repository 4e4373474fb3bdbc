package api

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/s0up4200/fetchr/apierror"
	"github.com/s0up4200/fetchr/jsonobj"
)

// Client issues GET requests against a JSON API
type Client struct {
	baseURL                string
	verbose                int
	maxConnectivityRetries int
	transport              Transport
	hook                   Hook
	logger                 zerolog.Logger
}

// NewClient creates a new Client. cfg.BaseURL may be empty when every
// request carries its own URL.
func NewClient(cfg Config, logger zerolog.Logger, opts ...Option) (*Client, error) {
	if cfg.BaseURL != "" {
		u, err := url.Parse(cfg.BaseURL)
		if err != nil {
			return nil, fmt.Errorf("invalid base URL: %w", err)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return nil, fmt.Errorf("invalid base URL %q: scheme must be http or https", cfg.BaseURL)
		}
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	options := clientOptions{}
	for _, opt := range opts {
		opt(&options)
	}

	transport := options.transport
	if transport == nil {
		transport = NewHTTPTransport(cfg, logger, options.httpClient)
	}

	return &Client{
		baseURL:                cfg.BaseURL,
		verbose:                cfg.Verbose,
		maxConnectivityRetries: max(cfg.MaxConnectivityRetries, 0),
		transport:              transport,
		hook:                   options.hook,
		logger:                 logger,
	}, nil
}

// BaseURL returns the URL endpoints are resolved against
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Do performs exactly one attempt. It never returns a Result with both or
// neither of Object and Err set.
func (c *Client) Do(ctx context.Context, req Request) Result {
	target := c.target(req)

	resp, err := c.transport.Get(ctx, target, req.Params.Values())
	if resp != nil {
		obj := jsonobj.Parse(resp.Body)
		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			c.vlog(VerboseErrors, zerolog.InfoLevel).Str("url", target).Int("status", resp.StatusCode).Msg("API Success")
			c.vlog(VerboseBodies, zerolog.InfoLevel).Msg("API Response: " + obj.Pretty())
			return Result{Object: obj}
		}

		c.vlog(VerboseErrors, zerolog.WarnLevel).Str("url", target).Int("status", resp.StatusCode).Msg("API Error")
		c.vlog(VerboseBodies, zerolog.WarnLevel).Msg("API Response: " + obj.Pretty())
		return Result{Err: apierror.FromResponse(resp.StatusCode, obj)}
	}

	if err != nil {
		c.vlog(VerboseErrors, zerolog.WarnLevel).Str("url", target).Err(err).Msg("API Error")
		return Result{Err: apierror.FromTransport(apierror.Classify(err))}
	}

	c.vlog(VerboseErrors, zerolog.WarnLevel).Str("url", target).Msg("API Unknown Error")
	return Result{Err: apierror.Unknown()}
}

// Fetch performs req asynchronously and streams one Result per attempt. After
// an error result the request is re-issued only when the error is a
// connectivity failure, a presentation hook is available and the user asks
// for it. The channel is closed when no further attempt will be made or ctx
// is done.
//
// Retries are unbounded unless Config.MaxConnectivityRetries is set: each one
// waits on the hook, so nothing loops without a user in it.
//
// Callers must drain the channel or cancel ctx; a reader that stops early on
// a context that is never done leaves the fetching goroutine blocked.
func (c *Client) Fetch(ctx context.Context, req Request) <-chan Result {
	out := make(chan Result)
	go func() {
		defer close(out)
		c.run(ctx, req, func(res Result) bool {
			select {
			case out <- res:
				return true
			case <-ctx.Done():
				return false
			}
		})
	}()
	return out
}

// Go performs req asynchronously and dispatches every attempt's outcome to
// h. Errors are always reported, connectivity errors included: to OnError
// when set, otherwise to the presentation hook or the log. The returned
// channel is closed once the last attempt has been dispatched.
func (c *Client) Go(ctx context.Context, req Request, h Handlers) <-chan struct{} {
	done := make(chan struct{})
	hook := c.hookFor(req)
	go func() {
		defer close(done)
		c.run(ctx, req, func(res Result) bool {
			c.dispatch(ctx, hook, h, res)
			return true
		})
	}()
	return done
}

// Get waits for the final outcome of req.
func (c *Client) Get(ctx context.Context, req Request) (*jsonobj.Object, error) {
	res := c.final(ctx, req)
	if res.Err != nil {
		return nil, res.Err
	}
	if res.Object == nil {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return nil, apierror.Unknown()
	}
	return res.Object, nil
}

// FetchAll fetches every request concurrently, at most limit at a time
// (unlimited when limit <= 0), and returns the final Results in request order.
func (c *Client) FetchAll(ctx context.Context, reqs []Request, limit int) []Result {
	results := make([]Result, len(reqs))
	if len(reqs) == 0 {
		return results
	}

	var g errgroup.Group
	if limit > 0 {
		g.SetLimit(limit)
	}

	for i, req := range reqs {
		g.Go(func() error {
			results[i] = c.final(ctx, req)
			return nil
		})
	}

	// Requests never fail the group; errors live in the Results
	_ = g.Wait()
	return results
}

// run drives the attempt loop. emit returning false stops it.
func (c *Client) run(ctx context.Context, req Request, emit func(Result) bool) {
	req.Params = req.Params.Clone()
	hook := c.hookFor(req)

	for attempt := 1; ; attempt++ {
		res := c.Do(ctx, req)
		res.Attempt = attempt
		if !emit(res) {
			return
		}
		if res.Err == nil || !c.offerRetry(ctx, hook, res.Err, attempt) {
			return
		}
		c.logger.Debug().Int("attempt", attempt+1).Str("endpoint", req.Endpoint).Msg("Retrying request after connectivity loss")
	}
}

// offerRetry decides whether a failed attempt is issued again
func (c *Client) offerRetry(ctx context.Context, hook Hook, err *apierror.Error, attempt int) bool {
	if !err.IsConnectivity() {
		return false
	}

	code, _ := err.StatusCode()
	c.vlog(VerboseErrors, zerolog.WarnLevel).Int("code", code).Msg("Not connected error code")

	if hook == nil {
		c.vlog(VerboseErrors, zerolog.ErrorLevel).Msg("Error: not connected.")
		return false
	}
	if c.maxConnectivityRetries > 0 && attempt > c.maxConnectivityRetries {
		c.logger.Warn().Int("max_retries", c.maxConnectivityRetries).Msg("Connectivity retry limit reached")
		return false
	}
	if ctx.Err() != nil {
		return false
	}
	return hook.PromptConnectivityRetry(ctx, err)
}

func (c *Client) dispatch(ctx context.Context, hook Hook, h Handlers, res Result) {
	if res.Err == nil {
		if h.OnSuccess != nil {
			h.OnSuccess(res.Object)
		}
		return
	}
	if h.OnError != nil {
		h.OnError(res.Err)
		return
	}
	c.report(ctx, hook, res.Err)
}

// ReportError sends err down the default reporting path for req: the
// presentation hook when there is one, the log otherwise. Go uses it for
// requests without an OnError handler.
func (c *Client) ReportError(ctx context.Context, req Request, err *apierror.Error) {
	c.report(ctx, c.hookFor(req), err)
}

func (c *Client) report(ctx context.Context, hook Hook, err *apierror.Error) {
	if hook != nil {
		hook.PresentError(ctx, err.Message())
		return
	}
	c.vlog(VerboseErrors, zerolog.ErrorLevel).Msg("Error: " + err.Message())
}

// final drains Fetch and returns the last Result
func (c *Client) final(ctx context.Context, req Request) Result {
	var last Result
	for res := range c.Fetch(ctx, req) {
		last = res
	}
	return last
}

func (c *Client) hookFor(req Request) Hook {
	if req.Hook != nil {
		return req.Hook
	}
	return c.hook
}

func (c *Client) target(req Request) string {
	base := c.baseURL
	if req.URL != "" {
		base = req.URL
	}
	if strings.HasSuffix(base, "/") && strings.HasPrefix(req.Endpoint, "/") {
		return base + req.Endpoint[1:]
	}
	return base + req.Endpoint
}

// vlog returns an event at lvl when verbosity permits, nil otherwise. zerolog
// treats a nil *Event as disabled.
func (c *Client) vlog(verbosity int, lvl zerolog.Level) *zerolog.Event {
	if verbosity > c.verbose {
		return nil
	}
	return c.logger.WithLevel(lvl)
}
