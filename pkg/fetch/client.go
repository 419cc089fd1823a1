package fetch

import (
	"crypto/tls"
	"errors"
	"net"
	"net/http"
	"net/url"

	"github.com/sirupsen/logrus"

	"webfetch/pkg/config"
)

// NewClient creates the HTTP client used by the static strategy, based on the
// provided configuration. When verifySSL is false the client skips TLS
// certificate verification, matching the loader's verify_ssl setting.
func NewClient(cfg config.HTTPClientConfig, verifySSL bool, proxyServer string, log *logrus.Entry) *http.Client {
	dialer := &net.Dialer{
		Timeout:   cfg.DialerTimeout,
		KeepAlive: cfg.DialerKeepAlive,
	}

	transport := &http.Transport{
		Proxy:                  http.ProxyFromEnvironment,
		DialContext:            dialer.DialContext,
		ForceAttemptHTTP2:      true,
		MaxIdleConns:           cfg.MaxIdleConns,
		MaxIdleConnsPerHost:    cfg.MaxIdleConnsPerHost,
		IdleConnTimeout:        cfg.IdleConnTimeout,
		TLSHandshakeTimeout:    cfg.TLSHandshakeTimeout,
		MaxResponseHeaderBytes: 1 << 20, // 1MB max header size
	}

	if proxyServer != "" {
		if proxyURL, err := url.Parse(proxyServer); err == nil {
			transport.Proxy = http.ProxyURL(proxyURL)
		} else {
			log.Warnf("Ignoring unparseable proxy_server %q: %v", proxyServer, err)
		}
	}

	if !verifySSL {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}

	return &http.Client{
		Timeout:   cfg.Timeout,
		Transport: transport,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			// Default Go behavior is 10 redirects max
			if len(via) >= 10 {
				return errors.New("stopped after 10 redirects")
			}
			log.Debugf("Redirecting: %s -> %s (hop %d)", via[len(via)-1].URL, req.URL, len(via))
			return nil
		},
	}
}
