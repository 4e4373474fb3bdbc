// Package apierror normalizes every way a request can fail into one error
// shape.
//
// # Taxonomy
//
//   - KindTransport: the exchange never completed (DNS, timeout, refused or
//     dropped connection, TLS failure). Carries a Code.
//   - KindHTTP: the server answered with a non-2xx status. The message is
//     taken from the body (see FromJSON).
//   - KindUnknown: neither a response nor a transport error was available.
//   - KindMessage: an error built from an explicit message.
//
// All kinds expose Details (never empty) and an optional StatusCode.
//
// # Connectivity
//
// A fixed set of transport codes means "the network is unreachable" rather
// than "the server failed". IsConnectivity reports membership; callers use it
// to offer a retry, not to skip normal error reporting.
//
//	if apiErr, ok := apierror.As(err); ok && apiErr.IsConnectivity() {
//		// offer to retry
//	}
//
// Classify maps Go network errors (net.DNSError, syscall errnos, TLS and
// x509 errors, timeouts) onto the code space.
package apierror
