package api

import (
	"context"
	"net/url"

	"github.com/s0up4200/fetchr/apierror"
	"github.com/s0up4200/fetchr/jsonobj"
)

// Fetcher defines the request operations of a Client
type Fetcher interface {
	// Do performs exactly one attempt
	Do(ctx context.Context, req Request) Result

	// Fetch streams one Result per attempt, retrying on connectivity loss
	// when the presentation hook asks for it
	Fetch(ctx context.Context, req Request) <-chan Result

	// Go dispatches results to callbacks; the returned channel closes when done
	Go(ctx context.Context, req Request, h Handlers) <-chan struct{}

	// Get waits for the final outcome
	Get(ctx context.Context, req Request) (*jsonobj.Object, error)
}

// Ensure Client implements Fetcher at compile time.
var _ Fetcher = (*Client)(nil)

// Transport performs a single GET exchange. It returns a Response whenever
// the server answered, whatever the status, and an error only when the
// exchange did not complete.
type Transport interface {
	Get(ctx context.Context, rawURL string, query url.Values) (*Response, error)
}

// Response is a completed HTTP exchange
type Response struct {
	StatusCode int
	Body       []byte
}

// Hook is the presentation surface used when a UI is available.
type Hook interface {
	// PromptConnectivityRetry tells the user the connection failed and
	// reports whether they want the request issued again.
	PromptConnectivityRetry(ctx context.Context, err *apierror.Error) bool

	// PresentError shows an error message that no caller handled.
	PresentError(ctx context.Context, message string)
}

// HookFuncs adapts plain functions to Hook. Nil fields decline the retry
// and drop the message.
type HookFuncs struct {
	Prompt  func(ctx context.Context, err *apierror.Error) bool
	Present func(ctx context.Context, message string)
}

// PromptConnectivityRetry implements Hook
func (h HookFuncs) PromptConnectivityRetry(ctx context.Context, err *apierror.Error) bool {
	if h.Prompt == nil {
		return false
	}
	return h.Prompt(ctx, err)
}

// PresentError implements Hook
func (h HookFuncs) PresentError(ctx context.Context, message string) {
	if h.Present != nil {
		h.Present(ctx, message)
	}
}
