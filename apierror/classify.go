package apierror

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"io"
	"net"
	"net/url"
	"strings"
	"syscall"
)

var descriptions = map[Code]string{
	CodeCancelled:              "The request was cancelled.",
	CodeBadURL:                 "The URL is not valid.",
	CodeTimedOut:               "The request timed out.",
	CodeCannotFindHost:         "A server with the specified hostname could not be found.",
	CodeCannotConnectToHost:    "Could not connect to the server.",
	CodeNetworkConnectionLost:  "The network connection was lost.",
	CodeDNSLookupFailed:        "The DNS lookup failed.",
	CodeHTTPTooManyRedirects:   "Too many HTTP redirects.",
	CodeNotConnectedToInternet: "The Internet connection appears to be offline.",
	CodeSecureConnectionFailed: "A TLS error occurred and a secure connection to the server cannot be made.",
}

// Classify reduces a Go transport error to a TransportError. It returns nil
// for a nil error.
func Classify(err error) *TransportError {
	if err == nil {
		return nil
	}

	var te *TransportError
	if errors.As(err, &te) {
		return te
	}

	code := classifyCode(err)
	desc, ok := descriptions[code]
	if !ok {
		desc = err.Error()
	}
	return &TransportError{Code: code, Description: desc, Err: err}
}

// classifyCode maps err onto a Code. Order matters: DNS failures also report
// Timeout(), and http.Client wraps everything in *url.Error.
func classifyCode(err error) Code {
	if errors.Is(err, context.Canceled) {
		return CodeCancelled
	}

	if errors.Is(err, ErrTooManyRedirects) {
		return CodeHTTPTooManyRedirects
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		if dnsErr.IsNotFound {
			return CodeCannotFindHost
		}
		return CodeDNSLookupFailed
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return CodeTimedOut
	}
	var timeout interface{ Timeout() bool }
	if errors.As(err, &timeout) && timeout.Timeout() {
		return CodeTimedOut
	}

	if isTLSError(err) {
		return CodeSecureConnectionFailed
	}

	switch {
	case errors.Is(err, syscall.ECONNREFUSED):
		return CodeCannotConnectToHost
	case errors.Is(err, syscall.ENETUNREACH),
		errors.Is(err, syscall.EHOSTUNREACH),
		errors.Is(err, syscall.ENETDOWN):
		return CodeNotConnectedToInternet
	case errors.Is(err, syscall.ECONNRESET),
		errors.Is(err, syscall.EPIPE),
		errors.Is(err, syscall.ECONNABORTED),
		errors.Is(err, io.ErrUnexpectedEOF),
		errors.Is(err, io.EOF):
		return CodeNetworkConnectionLost
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Op == "parse" {
		return CodeBadURL
	}
	if strings.Contains(err.Error(), "unsupported protocol scheme") {
		return CodeBadURL
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return CodeCannotConnectToHost
	}

	return CodeUnknown
}

func isTLSError(err error) bool {
	var (
		verifyErr    *tls.CertificateVerificationError
		recordErr    tls.RecordHeaderError
		alertErr     tls.AlertError
		authorityErr x509.UnknownAuthorityError
		hostErr      x509.HostnameError
		invalidErr   x509.CertificateInvalidError
	)
	return errors.As(err, &verifyErr) ||
		errors.As(err, &recordErr) ||
		errors.As(err, &alertErr) ||
		errors.As(err, &authorityErr) ||
		errors.As(err, &hostErr) ||
		errors.As(err, &invalidErr)
}
