package api

import (
	"net/http"
	"time"
)

// Verbosity levels for the client's own request logging.
const (
	// VerboseSilent disables request logging
	VerboseSilent = 0
	// VerboseErrors logs success/error markers and unhandled errors
	VerboseErrors = 1
	// VerboseBodies also dumps every response body
	VerboseBodies = 3
)

// DefaultTimeout is the HTTP timeout used when Config.Timeout is zero
const DefaultTimeout = 30 * time.Second

// Config holds the settings shared by every request a Client makes.
type Config struct {
	// BaseURL is prepended to every endpoint
	BaseURL string
	// Verbose gates request logging, see the Verbose* constants
	Verbose int
	// Timeout bounds a single HTTP exchange
	Timeout time.Duration
	// RetryMax is the number of automatic transport retries (5xx, resets)
	RetryMax int
	// MaxConnectivityRetries caps prompted retries; 0 leaves it to the user
	MaxConnectivityRetries int
	// UserAgent is sent with every request when set
	UserAgent string
}

// Option configures a Client.
type Option func(*clientOptions)

// clientOptions holds configuration options for the Client.
type clientOptions struct {
	transport  Transport
	hook       Hook
	httpClient *http.Client
}

// WithTransport replaces the HTTP transport.
func WithTransport(t Transport) Option {
	return func(o *clientOptions) {
		o.transport = t
	}
}

// WithHook sets the default presentation hook. Requests may override it.
func WithHook(h Hook) Option {
	return func(o *clientOptions) {
		o.hook = h
	}
}

// WithHTTPClient sets the http.Client used by the default transport.
func WithHTTPClient(c *http.Client) Option {
	return func(o *clientOptions) {
		o.httpClient = c
	}
}
