package fetch

import (
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// Default values used when the corresponding Config field is zero.
const (
	DefaultRedirectLimit  = 5
	DefaultRetryLimit     = 6
	DefaultRetryBaseDelay = time.Second
	DefaultRetryMaxDelay  = 30 * time.Second
)

// Credentials holds a username and password for basic authentication.
type Credentials struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// Config controls how a Fetcher issues requests.
type Config struct {
	// UserAgent is sent as the User-Agent header when non-empty.
	UserAgent string

	// AcceptCookies merges Set-Cookie response headers into the cookie store.
	AcceptCookies bool

	// Cookies seeds the cookie store, in Cookie header syntax ("a=1; b=2").
	Cookies string

	// BasicAuth is sent as an Authorization header on every request.
	BasicAuth *Credentials

	// ProxyBasicAuth authenticates against the proxy.
	ProxyBasicAuth *Credentials

	// Proxy is the proxy URL. http, https, socks5 and socks5h are supported.
	Proxy string

	// ProxyHost and ProxyPort describe an HTTP proxy when Proxy is empty.
	ProxyHost string
	ProxyPort int

	// ReadTimeout bounds each request, body included. Zero means no limit.
	ReadTimeout time.Duration

	// RequestHeaders are added to every request.
	RequestHeaders map[string]string

	// RedirectLimit is the maximum number of redirects followed per fetch.
	RedirectLimit int

	// RetryLimit is the maximum number of attempts per request.
	RetryLimit int

	// RetryBaseDelay is the wait before the second attempt. Each further
	// wait doubles, up to RetryMaxDelay.
	RetryBaseDelay time.Duration
	RetryMaxDelay  time.Duration

	// RequestsPerSecond throttles requests across all workers. Zero means
	// unlimited.
	RequestsPerSecond float64

	// Debug receives trace messages. Panics inside it are ignored.
	Debug func(string)

	// Logger receives structured logs. Nil disables logging.
	Logger *slog.Logger

	// Transport replaces the default transport. Proxy settings are ignored
	// when it is set.
	Transport http.RoundTripper
}

// withDefaults returns a copy of c with zero limits replaced by defaults.
func (c Config) withDefaults() Config {
	if c.RedirectLimit <= 0 {
		c.RedirectLimit = DefaultRedirectLimit
	}
	if c.RetryLimit <= 0 {
		c.RetryLimit = DefaultRetryLimit
	}
	if c.RetryBaseDelay <= 0 {
		c.RetryBaseDelay = DefaultRetryBaseDelay
	}
	if c.RetryMaxDelay <= 0 {
		c.RetryMaxDelay = DefaultRetryMaxDelay
	}
	if c.RetryMaxDelay < c.RetryBaseDelay {
		c.RetryMaxDelay = c.RetryBaseDelay
	}
	return c
}

// proxyURL returns the configured proxy, or nil when none is set.
func (c Config) proxyURL() (*url.URL, error) {
	raw := c.Proxy
	if raw == "" && c.ProxyHost != "" {
		host := c.ProxyHost
		if c.ProxyPort > 0 {
			host = net.JoinHostPort(host, strconv.Itoa(c.ProxyPort))
		}
		raw = "http://" + host
	}
	if raw == "" {
		return nil, nil
	}
	return url.Parse(raw)
}
