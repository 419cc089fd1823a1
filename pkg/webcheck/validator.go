package webcheck

import (
	"context"
	"fmt"
	"net"
	"net/url"

	"github.com/sirupsen/logrus"

	"webfetch/pkg/utils"
)

// Validator performs syntactic URL validation plus an SSRF screen against
// private, loopback, link-local, and unspecified addresses.
type Validator struct {
	resolver   Resolver
	allowLocal func() bool
	log        *logrus.Entry
}

// NewValidator creates a Validator. resolver may be nil to use the system
// resolver. allowLocal is consulted on every Validate call (never cached), so
// an operator-tunable flag can be passed directly; nil means local fetches
// are disallowed.
func NewValidator(resolver Resolver, allowLocal func() bool, log *logrus.Entry) *Validator {
	if resolver == nil {
		resolver = NewNetResolver()
	}
	if allowLocal == nil {
		allowLocal = func() bool { return false }
	}
	return &Validator{
		resolver:   resolver,
		allowLocal: allowLocal,
		log:        log,
	}
}

// Validate checks a single URL. It returns an error wrapping
// utils.ErrInvalidURL when the URL is syntactically invalid or, when local
// fetch is disallowed, when any resolved address is private, loopback,
// link-local, or unspecified. DNS failures are returned as
// utils.ErrResolution (fail closed).
//
// The resolved address is checked here but not pinned for the later fetch,
// so this screen remains subject to DNS rebinding between validation and
// request time.
func (v *Validator) Validate(ctx context.Context, rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("%w: %q: %v", utils.ErrInvalidURL, rawURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: %q: unsupported scheme %q", utils.ErrInvalidURL, rawURL, u.Scheme)
	}
	host := u.Hostname()
	if host == "" {
		return fmt.Errorf("%w: %q: missing host", utils.ErrInvalidURL, rawURL)
	}

	// Read the toggle on every call: it is operator-configurable at runtime
	if v.allowLocal() {
		return nil
	}

	// IP literals need no DNS round trip
	if ip := net.ParseIP(host); ip != nil {
		if isDisallowedIP(ip) {
			return fmt.Errorf("%w: %q: address %s is not publicly routable", utils.ErrInvalidURL, rawURL, ip)
		}
		return nil
	}

	ipv4, ipv6, err := v.resolver.Resolve(ctx, host)
	if err != nil {
		return err
	}
	for _, ip := range append(ipv4, ipv6...) {
		if isDisallowedIP(ip) {
			return fmt.Errorf("%w: %q resolves to disallowed address %s", utils.ErrInvalidURL, rawURL, ip)
		}
	}
	return nil
}

// ValidateAll checks an ordered sequence of URLs, succeeding only if every
// element validates.
func (v *Validator) ValidateAll(ctx context.Context, urls []string) error {
	for _, u := range urls {
		if err := v.Validate(ctx, u); err != nil {
			return err
		}
	}
	return nil
}

// SafeFilter applies Validate to each URL independently, dropping URLs that
// fail. It preserves input order and never returns an error: bad URLs are
// skipped, not fatal. This is the entry point used by the loader factory.
func (v *Validator) SafeFilter(ctx context.Context, urls []string) []string {
	valid := make([]string, 0, len(urls))
	for _, u := range urls {
		if err := v.Validate(ctx, u); err != nil {
			v.log.WithFields(logrus.Fields{
				"url":        u,
				"error_type": utils.CategorizeError(err),
			}).Warnf("Dropping URL: %v", err)
			continue
		}
		valid = append(valid, u)
	}
	return valid
}

// isDisallowedIP reports whether fetching ip would reach a private or
// internal network. Covers RFC 1918, loopback, link-local (169.254.0.0/16,
// fe80::/10), IPv6 ULA (fc00::/7 via IsPrivate), and unspecified addresses.
func isDisallowedIP(ip net.IP) bool {
	return ip.IsPrivate() ||
		ip.IsLoopback() ||
		ip.IsLinkLocalUnicast() ||
		ip.IsLinkLocalMulticast() ||
		ip.IsUnspecified()
}
