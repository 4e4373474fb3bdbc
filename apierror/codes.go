package apierror

import "strconv"

// Code is a transport-level failure code. Values follow the URL loading
// error code space (negative numbers), which keeps them disjoint from HTTP
// status codes carried by the same Error.
type Code int

const (
	CodeUnknown                       Code = -1
	CodeCancelled                     Code = -999
	CodeBadURL                        Code = -1000
	CodeTimedOut                      Code = -1001
	CodeCannotFindHost                Code = -1003
	CodeCannotConnectToHost           Code = -1004
	CodeNetworkConnectionLost         Code = -1005
	CodeDNSLookupFailed               Code = -1006
	CodeHTTPTooManyRedirects          Code = -1007
	CodeResourceUnavailable           Code = -1008
	CodeNotConnectedToInternet        Code = -1009
	CodeRedirectToNonExistentLocation Code = -1010
	CodeBadServerResponse             Code = -1011
	CodeInternationalRoamingOff       Code = -1018
	CodeCallIsActive                  Code = -1019
	CodeDataNotAllowed                Code = -1020
	CodeSecureConnectionFailed        Code = -1200
	CodeCannotLoadFromNetwork         Code = -2000
)

// connectivityCodes are failures that mean the network is unreachable rather
// than the server misbehaving.
var connectivityCodes = map[Code]struct{}{
	CodeNotConnectedToInternet:        {},
	CodeCannotConnectToHost:           {},
	CodeTimedOut:                      {},
	CodeCannotFindHost:                {},
	CodeNetworkConnectionLost:         {},
	CodeDataNotAllowed:                {},
	CodeDNSLookupFailed:               {},
	CodeHTTPTooManyRedirects:          {},
	CodeResourceUnavailable:           {},
	CodeRedirectToNonExistentLocation: {},
	CodeInternationalRoamingOff:       {},
	CodeCallIsActive:                  {},
	CodeSecureConnectionFailed:        {},
	CodeCannotLoadFromNetwork:         {},
}

// IsConnectivityCode reports whether code belongs to the connectivity-lost set.
func IsConnectivityCode(code int) bool {
	_, ok := connectivityCodes[Code(code)]
	return ok
}

// ConnectivityCodes returns the connectivity-lost set.
func ConnectivityCodes() []Code {
	codes := make([]Code, 0, len(connectivityCodes))
	for c := range connectivityCodes {
		codes = append(codes, c)
	}
	return codes
}

// String returns the code's name
func (c Code) String() string {
	switch c {
	case CodeUnknown:
		return "unknown"
	case CodeCancelled:
		return "cancelled"
	case CodeBadURL:
		return "bad-url"
	case CodeTimedOut:
		return "timed-out"
	case CodeCannotFindHost:
		return "host-not-found"
	case CodeCannotConnectToHost:
		return "cannot-connect"
	case CodeNetworkConnectionLost:
		return "connection-lost"
	case CodeDNSLookupFailed:
		return "dns-lookup-failed"
	case CodeHTTPTooManyRedirects:
		return "too-many-redirects"
	case CodeResourceUnavailable:
		return "resource-unavailable"
	case CodeNotConnectedToInternet:
		return "not-connected"
	case CodeRedirectToNonExistentLocation:
		return "redirect-to-nonexistent"
	case CodeBadServerResponse:
		return "bad-server-response"
	case CodeInternationalRoamingOff:
		return "roaming-off"
	case CodeCallIsActive:
		return "call-active"
	case CodeDataNotAllowed:
		return "data-not-allowed"
	case CodeSecureConnectionFailed:
		return "secure-connection-failed"
	case CodeCannotLoadFromNetwork:
		return "cannot-load-from-network"
	default:
		return "code(" + strconv.Itoa(int(c)) + ")"
	}
}
