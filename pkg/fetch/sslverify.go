package fetch

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

const defaultVerifyTimeout = 10 * time.Second

// SSLVerifier performs an out-of-band certificate check for HTTPS targets:
// a TLS handshake against the host using trusted roots, independent of the
// fetch that follows.
type SSLVerifier struct {
	rootCAs *x509.CertPool // nil means the system pool
	timeout time.Duration
	log     *logrus.Entry
}

// NewSSLVerifier creates an SSLVerifier using the system trust store.
func NewSSLVerifier(log *logrus.Entry) *SSLVerifier {
	return &SSLVerifier{
		timeout: defaultVerifyTimeout,
		log:     log,
	}
}

// Verify reports whether rawURL passes certificate verification. Non-HTTPS
// URLs pass trivially. Handshake failures return false, and any other
// connection error is logged and also treated as failure: an uncertain
// verification never permits a fetch.
func (v *SSLVerifier) Verify(ctx context.Context, rawURL string) bool {
	if !strings.HasPrefix(strings.ToLower(rawURL), "https://") {
		return true
	}

	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		v.log.Warnf("SSL verification failed for %s: unparseable URL", rawURL)
		return false
	}

	port := u.Port()
	if port == "" {
		port = "443"
	}

	dialer := &tls.Dialer{
		NetDialer: &net.Dialer{Timeout: v.timeout},
		Config: &tls.Config{
			RootCAs:    v.rootCAs,
			ServerName: u.Hostname(),
		},
	}

	dialCtx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	conn, err := dialer.DialContext(dialCtx, "tcp", net.JoinHostPort(u.Hostname(), port))
	if err != nil {
		if isTLSError(err) {
			v.log.WithField("url", rawURL).Debugf("TLS handshake failed: %v", err)
		} else {
			v.log.Warnf("SSL verification failed for %s: %v", rawURL, err)
		}
		return false
	}
	conn.Close()
	return true
}

// isTLSError distinguishes handshake/certificate failures from generic
// connection errors. Both fail verification; only the logging differs.
func isTLSError(err error) bool {
	var (
		certErr   *tls.CertificateVerificationError
		recordErr tls.RecordHeaderError
		authErr   x509.UnknownAuthorityError
		hostErr   x509.HostnameError
		validErr  x509.CertificateInvalidError
	)
	return errors.As(err, &certErr) ||
		errors.As(err, &recordErr) ||
		errors.As(err, &authErr) ||
		errors.As(err, &hostErr) ||
		errors.As(err, &validErr)
}
