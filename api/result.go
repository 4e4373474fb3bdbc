package api

import (
	"github.com/s0up4200/fetchr/apierror"
	"github.com/s0up4200/fetchr/jsonobj"
)

// Request is the intent of one fetch. It is copied by value, and a retry
// re-issues it unchanged.
type Request struct {
	// URL overrides the client's base URL when set
	URL string
	// Endpoint is appended to the base URL; empty means the base URL itself
	Endpoint string
	// Params are encoded into the query string
	Params Params
	// Hook overrides the client's presentation hook when set
	Hook Hook
}

// Result is the outcome of one attempt: exactly one of Object and Err is set.
type Result struct {
	Object  *jsonobj.Object
	Err     *apierror.Error
	Attempt int
}

// OK reports whether the attempt succeeded
func (r Result) OK() bool {
	return r.Err == nil && r.Object != nil
}

// Handlers are the callbacks used by Client.Go. Both are optional: a missing
// OnSuccess ignores the response, a missing OnError selects the default
// reporting path (the presentation hook, or the log).
type Handlers struct {
	OnSuccess func(obj *jsonobj.Object)
	OnError   func(err *apierror.Error)
}
