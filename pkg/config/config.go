package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Loader strategy names. Unknown names fall back to the static strategy.
const (
	StrategyStatic   = "safe_web"
	StrategyRendered = "playwright"
)

// Content output formats for the static strategy.
const (
	FormatText     = "text"
	FormatMarkdown = "markdown"
)

// Config holds the web-fetch subsystem configuration. It is passed into the
// loader factory as an explicit snapshot rather than read from ambient global
// state, so fetch behavior stays deterministic and testable.
type Config struct {
	Strategy              string           `yaml:"strategy,omitempty"`                // "safe_web" (default) or "playwright"
	VerifySSL             *bool            `yaml:"verify_ssl,omitempty"`              // Default true
	RequestsPerSecond     *float64         `yaml:"requests_per_second,omitempty"`     // Default 2; explicit 0 disables rate limiting
	ContinueOnFailure     *bool            `yaml:"continue_on_failure,omitempty"`     // Default true; rendered strategy only
	AllowLocalFetch       bool             `yaml:"allow_local_fetch,omitempty"`       // Disables the private-address SSRF screen
	RemoteBrowserEndpoint string           `yaml:"remote_browser_endpoint,omitempty"` // ws:// endpoint of an already-running browser
	Headless              *bool            `yaml:"headless,omitempty"`                // Default true; local browser mode only
	ProxyServer           string           `yaml:"proxy_server,omitempty"`            // Local browser mode only
	UserAgent             string           `yaml:"user_agent,omitempty"`
	ContentFormat         string           `yaml:"content_format,omitempty"` // "text" (default) or "markdown"; static strategy only
	RespectRobots         bool             `yaml:"respect_robots,omitempty"` // Check robots.txt before each static fetch
	HTTPClient            HTTPClientConfig `yaml:"http_client,omitempty"`
}

// HTTPClientConfig holds settings for the static strategy's HTTP client
type HTTPClientConfig struct {
	Timeout             time.Duration `yaml:"timeout,omitempty"`                 // Overall request timeout
	MaxIdleConns        int           `yaml:"max_idle_conns,omitempty"`          // Max total idle connections
	MaxIdleConnsPerHost int           `yaml:"max_idle_conns_per_host,omitempty"` // Max idle connections per host
	IdleConnTimeout     time.Duration `yaml:"idle_conn_timeout,omitempty"`       // Timeout for idle connections
	TLSHandshakeTimeout time.Duration `yaml:"tls_handshake_timeout,omitempty"`   // Timeout for TLS handshake
	DialerTimeout       time.Duration `yaml:"dialer_timeout,omitempty"`          // Connection dial timeout
	DialerKeepAlive     time.Duration `yaml:"dialer_keep_alive,omitempty"`       // TCP keep-alive interval
}

// Load reads and parses a yaml config file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	return &cfg, nil
}

// EffectiveVerifySSL returns the SSL verification setting, defaulting to true.
func (c Config) EffectiveVerifySSL() bool {
	if c.VerifySSL != nil {
		return *c.VerifySSL
	}
	return true
}

// EffectiveRequestsPerSecond returns the target request rate, defaulting to 2.
// An explicit zero disables rate limiting entirely.
func (c Config) EffectiveRequestsPerSecond() float64 {
	if c.RequestsPerSecond != nil {
		return *c.RequestsPerSecond
	}
	return 2
}

// EffectiveContinueOnFailure returns the failure policy for the rendered
// strategy, defaulting to true (log and skip).
func (c Config) EffectiveContinueOnFailure() bool {
	if c.ContinueOnFailure != nil {
		return *c.ContinueOnFailure
	}
	return true
}

// EffectiveHeadless returns the local-browser headless setting, defaulting to
// true. Ignored entirely when a remote browser endpoint is configured.
func (c Config) EffectiveHeadless() bool {
	if c.Headless != nil {
		return *c.Headless
	}
	return true
}

// EffectiveContentFormat returns the static strategy output format,
// defaulting to plain text.
func (c Config) EffectiveContentFormat() string {
	if c.ContentFormat != "" {
		return c.ContentFormat
	}
	return FormatText
}
