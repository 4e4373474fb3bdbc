package api

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/rs/zerolog"

	"github.com/s0up4200/fetchr/apierror"
)

// DefaultMaxRedirects matches net/http's own redirect limit
const DefaultMaxRedirects = 10

// HTTPTransport implements Transport on top of go-retryablehttp. Server-side
// retries (Config.RetryMax) are off by default; the only retry a Client
// performs otherwise is the user-driven connectivity retry.
type HTTPTransport struct {
	client    *retryablehttp.Client
	userAgent string
}

// NewHTTPTransport builds a transport from cfg. httpClient may be nil.
func NewHTTPTransport(cfg Config, logger zerolog.Logger, httpClient *http.Client) *HTTPTransport {
	rc := retryablehttp.NewClient()
	if httpClient != nil {
		rc.HTTPClient = httpClient
	} else {
		rc.HTTPClient.Timeout = cfg.Timeout
	}
	if rc.HTTPClient.CheckRedirect == nil {
		rc.HTTPClient.CheckRedirect = limitRedirects(DefaultMaxRedirects)
	}

	rc.RetryMax = max(cfg.RetryMax, 0)
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler
	rc.Logger = leveledLogger{logger: logger.With().Str("component", "transport").Logger()}

	return &HTTPTransport{
		client:    rc,
		userAgent: cfg.UserAgent,
	}
}

// Get implements Transport
func (t *HTTPTransport) Get(ctx context.Context, rawURL string, query url.Values) (*Response, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, err
	}
	if len(query) > 0 {
		q := u.Query()
		for key, vals := range query {
			for _, v := range vals {
				q.Add(key, v)
			}
		}
		u.RawQuery = q.Encode()
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if t.userAgent != "" {
		req.Header.Set("User-Agent", t.userAgent)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		if resp != nil {
			resp.Body.Close()
		}
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return &Response{StatusCode: resp.StatusCode, Body: body}, nil
}

// limitRedirects surfaces apierror.ErrTooManyRedirects so the failure can be
// classified. The message keeps net/http's wording, which retryablehttp
// treats as non-retryable.
func limitRedirects(limit int) func(*http.Request, []*http.Request) error {
	return func(_ *http.Request, via []*http.Request) error {
		if len(via) >= limit {
			return fmt.Errorf("%w: stopped after %d redirects", apierror.ErrTooManyRedirects, limit)
		}
		return nil
	}
}

// leveledLogger routes retryablehttp's logging into zerolog
type leveledLogger struct {
	logger zerolog.Logger
}

func (l leveledLogger) Error(msg string, keysAndValues ...interface{}) {
	l.logger.Error().Fields(keysAndValues).Msg(msg)
}

func (l leveledLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Info().Fields(keysAndValues).Msg(msg)
}

func (l leveledLogger) Debug(msg string, keysAndValues ...interface{}) {
	l.logger.Debug().Fields(keysAndValues).Msg(msg)
}

func (l leveledLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.logger.Warn().Fields(keysAndValues).Msg(msg)
}
