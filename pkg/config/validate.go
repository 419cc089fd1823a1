package config

import (
	"fmt"
	"strings"
	"time"
)

// Validate checks Config fields and applies sensible defaults.
// Returns collected warnings and any fatal error.
// Modifies receiver in place to apply defaults.
func (c *Config) Validate() (warnings []string, err error) {
	// Strategy
	switch c.Strategy {
	case "", StrategyStatic, StrategyRendered:
	default:
		warnings = append(warnings, fmt.Sprintf(
			"unknown strategy %q, falling back to %q", c.Strategy, StrategyStatic))
	}

	// RequestsPerSecond
	if c.RequestsPerSecond != nil && *c.RequestsPerSecond < 0 {
		return warnings, fmt.Errorf("requests_per_second cannot be negative: %v", *c.RequestsPerSecond)
	}

	// ContentFormat
	switch c.ContentFormat {
	case "", FormatText, FormatMarkdown:
	default:
		return warnings, fmt.Errorf("content_format must be %q or %q, got %q",
			FormatText, FormatMarkdown, c.ContentFormat)
	}

	// RemoteBrowserEndpoint
	if c.RemoteBrowserEndpoint != "" {
		if !strings.HasPrefix(c.RemoteBrowserEndpoint, "ws://") && !strings.HasPrefix(c.RemoteBrowserEndpoint, "wss://") {
			return warnings, fmt.Errorf("remote_browser_endpoint must be a ws:// or wss:// URI, got %q",
				c.RemoteBrowserEndpoint)
		}
		if c.Strategy != StrategyRendered {
			warnings = append(warnings, "remote_browser_endpoint is only used by the playwright strategy")
		}
	}

	// Headless/proxy are owned by the remote side when an endpoint is set
	if c.RemoteBrowserEndpoint != "" && (c.Headless != nil || c.ProxyServer != "") {
		warnings = append(warnings, "headless and proxy_server are ignored when remote_browser_endpoint is set")
	}

	if c.AllowLocalFetch {
		warnings = append(warnings, "allow_local_fetch is enabled: private and loopback addresses will be fetched")
	}

	// HTTP client defaults
	if c.HTTPClient.Timeout <= 0 {
		c.HTTPClient.Timeout = 30 * time.Second
	}
	if c.HTTPClient.MaxIdleConns <= 0 {
		c.HTTPClient.MaxIdleConns = 100
	}
	if c.HTTPClient.MaxIdleConnsPerHost <= 0 {
		c.HTTPClient.MaxIdleConnsPerHost = 4
	}
	if c.HTTPClient.IdleConnTimeout <= 0 {
		c.HTTPClient.IdleConnTimeout = 90 * time.Second
	}
	if c.HTTPClient.TLSHandshakeTimeout <= 0 {
		c.HTTPClient.TLSHandshakeTimeout = 10 * time.Second
	}
	if c.HTTPClient.DialerTimeout <= 0 {
		c.HTTPClient.DialerTimeout = 15 * time.Second
	}
	if c.HTTPClient.DialerKeepAlive <= 0 {
		c.HTTPClient.DialerKeepAlive = 30 * time.Second
	}

	if c.UserAgent == "" {
		c.UserAgent = "webfetch/1.0"
	}

	return warnings, nil
}
