package apierror

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/s0up4200/fetchr/jsonobj"
)

// DefaultDetails is used whenever no better description is available.
const DefaultDetails = "Unexpected unknown error"

// Common errors
var (
	// ErrTooManyRedirects is returned by the transport's redirect policy
	ErrTooManyRedirects = errors.New("too many redirects")
	// ErrNoResponse indicates the exchange produced neither a response nor an error
	ErrNoResponse = errors.New("no response received")
)

// bodyFields is the order in which error bodies are searched for a message.
var bodyFields = []string{"fallback", "error", "detail", "status"}

// Kind classifies where an Error came from.
type Kind int

const (
	// KindUnknown means neither a response nor a transport error was available
	KindUnknown Kind = iota
	// KindTransport means the exchange never completed
	KindTransport
	// KindHTTP means the server answered with a non-2xx status
	KindHTTP
	// KindMessage is an error built from an explicit message
	KindMessage
)

// String returns the string representation of a Kind
func (k Kind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindHTTP:
		return "http"
	case KindMessage:
		return "message"
	default:
		return "unknown"
	}
}

// TransportError is a failure to complete an HTTP exchange, reduced to a
// numeric code and a human-readable description.
type TransportError struct {
	Code        Code
	Description string
	Err         error
}

// Error implements the error interface
func (e *TransportError) Error() string {
	return e.Description
}

// Unwrap returns the underlying network error
func (e *TransportError) Unwrap() error {
	return e.Err
}

// Error represents exactly one failed request. It is never modified after
// construction.
type Error struct {
	kind       Kind
	details    string
	statusCode int
	hasStatus  bool
	cause      error
}

// Unknown returns the degenerate error used when nothing else is known.
func Unknown() *Error {
	return &Error{kind: KindUnknown, details: DefaultDetails, cause: ErrNoResponse}
}

// New returns an error carrying an explicit message.
func New(details string) *Error {
	if details == "" {
		details = DefaultDetails
	}
	return &Error{kind: KindMessage, details: details}
}

// FromTransport builds an error from a transport failure. A nil failure
// yields Unknown().
func FromTransport(te *TransportError) *Error {
	if te == nil {
		return Unknown()
	}
	details := te.Description
	if details == "" {
		details = DefaultDetails
	}
	return &Error{
		kind:       KindTransport,
		details:    details,
		statusCode: int(te.Code),
		hasStatus:  true,
		cause:      te,
	}
}

// FromJSON builds an error from a response body. The first string among
// "fallback", "error", "detail" and "status" becomes the details, and an empty
// one yields DefaultDetails. A null body yields DefaultDetails; any other body
// is dumped as indented JSON.
func FromJSON(obj *jsonobj.Object) *Error {
	return &Error{kind: KindHTTP, details: detailsFromBody(obj)}
}

// FromResponse is FromJSON for a response that carried the given HTTP status.
func FromResponse(status int, obj *jsonobj.Object) *Error {
	e := FromJSON(obj)
	e.statusCode = status
	e.hasStatus = true
	return e
}

func detailsFromBody(obj *jsonobj.Object) string {
	for _, field := range bodyFields {
		if v, ok := obj.NullableString(field); ok {
			if v == "" {
				return DefaultDetails
			}
			return v
		}
	}
	if obj.IsNull() {
		return DefaultDetails
	}
	return obj.Pretty()
}

// Kind returns where the error came from
func (e *Error) Kind() Kind {
	return e.kind
}

// Details returns the human-readable description. It is never empty.
func (e *Error) Details() string {
	if e.details == "" {
		return DefaultDetails
	}
	return e.details
}

// StatusCode returns the transport code or HTTP status, if one is known.
func (e *Error) StatusCode() (int, bool) {
	return e.statusCode, e.hasStatus
}

// IsConnectivity reports whether the error means the network is unreachable.
func (e *Error) IsConnectivity() bool {
	return e.kind == KindTransport && e.hasStatus && IsConnectivityCode(e.statusCode)
}

// Message renders the error for display: details followed by the status
// code when there is one.
func (e *Error) Message() string {
	if !e.hasStatus {
		return e.Details()
	}
	return e.Details() + " " + strconv.Itoa(e.statusCode)
}

// Error implements the error interface
func (e *Error) Error() string {
	return e.Message()
}

// Unwrap returns the underlying transport error, if any
func (e *Error) Unwrap() error {
	return e.cause
}

// GoString keeps %#v output readable in logs and test failures
func (e *Error) GoString() string {
	if e.hasStatus {
		return fmt.Sprintf("apierror.Error{kind: %s, details: %q, status: %d}", e.kind, e.Details(), e.statusCode)
	}
	return fmt.Sprintf("apierror.Error{kind: %s, details: %q}", e.kind, e.Details())
}

// As extracts an *Error from err's chain.
func As(err error) (*Error, bool) {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}
