package utils

import (
	"context"
	"errors"
	"net"
	"strings"
)

// --- Sentinel Errors for Categorization ---
var (
	ErrInvalidURL       = errors.New("invalid or disallowed URL")           // Syntactic failure or SSRF-blocked address
	ErrResolution       = errors.New("hostname resolution failed")          // DNS failure, treated as validation failure
	ErrSSLVerification  = errors.New("SSL certificate verification failed") // Handshake failure or ambiguous TLS error
	ErrNavigation       = errors.New("navigation returned no response")     // Browser goto produced no response object
	ErrFetch            = errors.New("page fetch failed")                   // Wraps per-URL HTTP failures in the static path
	ErrRobotsDisallowed = errors.New("disallowed by robots.txt")
	ErrRequestCreation  = errors.New("failed to create HTTP request")
	ErrParsing          = errors.New("parsing error") // Wraps HTML/URL parse errors
	ErrBrowser          = errors.New("browser error") // Wraps launch/connect/page failures

	// ErrDone is returned by DocumentIterator.Next once the sequence is exhausted.
	ErrDone = errors.New("no more documents")
)

// CategorizeError maps an error to a predefined category string for logging/metrics.
func CategorizeError(err error) string {
	if err == nil {
		return "None"
	}

	switch {
	case errors.Is(err, ErrDone):
		return "Done"
	case errors.Is(err, ErrInvalidURL):
		return "InvalidURL"
	case errors.Is(err, ErrResolution):
		return "DNSResolution"
	case errors.Is(err, ErrSSLVerification):
		return "SSLVerification"
	case errors.Is(err, ErrNavigation):
		return "Navigation"
	case errors.Is(err, ErrRobotsDisallowed):
		return "RobotsDisallowed"
	case errors.Is(err, ErrRequestCreation):
		return "RequestCreation"
	case errors.Is(err, ErrParsing):
		return "Parsing"
	case errors.Is(err, ErrBrowser):
		return "Browser"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "ContextCancelled"
	case errors.Is(err, ErrFetch):
		// Check for common network error substrings to subdivide fetch failures
		errMsg := err.Error()
		if strings.Contains(errMsg, "timeout") || strings.Contains(errMsg, "Timeout") || strings.Contains(errMsg, "deadline exceeded") {
			return "Fetch_NetworkTimeout"
		}
		if strings.Contains(errMsg, "connection refused") {
			return "Fetch_ConnectionRefused"
		}
		if strings.Contains(errMsg, "no such host") {
			return "Fetch_DNSLookup"
		}
		return "Fetch"
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "NetworkTimeout"
	}

	return "Unknown"
}
