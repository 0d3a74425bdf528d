package crawler

import (
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"github.com/nao1215/medusa/internal/fetch"
)

// Credentials holds a username and password for basic authentication.
type Credentials = fetch.Credentials

// Default configuration values.
const (
	DefaultThreads        = 4
	DefaultRedirectLimit  = fetch.DefaultRedirectLimit
	DefaultRetryLimit     = fetch.DefaultRetryLimit
	DefaultRetryBaseDelay = fetch.DefaultRetryBaseDelay
	DefaultRetryMaxDelay  = fetch.DefaultRetryMaxDelay
	DefaultUserAgent      = "Medusa/1.0"
)

// Config holds every crawl option.
//
// Design decision: We use one explicit struct instead of an options map
// because:
//  1. Typos become compile errors
//  2. Defaults live in one place (DefaultConfig)
//  3. Validate can check the whole configuration before any request is made
type Config struct {
	// Threads is the number of concurrent workers.
	Threads int

	// RedirectLimit is the maximum number of redirects followed per fetch.
	RedirectLimit int

	// RetryLimit is the maximum number of attempts per request.
	RetryLimit int

	// RetryBaseDelay is the wait before the first retry. Later waits double.
	RetryBaseDelay time.Duration

	// RetryMaxDelay caps the wait between retries.
	RetryMaxDelay time.Duration

	// UserAgent is sent with every request.
	UserAgent string

	// AcceptCookies stores cookies set by the server and sends them back.
	AcceptCookies bool

	// Cookies seeds the cookie store ("name=value; other=value").
	Cookies string

	// BasicAuth is sent as HTTP basic authentication on every request.
	BasicAuth *Credentials

	// ProxyBasicAuth authenticates against the proxy.
	ProxyBasicAuth *Credentials

	// Proxy is a proxy URL (http, https, socks5 or socks5h).
	Proxy string

	// ProxyHost and ProxyPort describe an HTTP proxy when Proxy is empty.
	ProxyHost string
	ProxyPort int

	// ReadTimeout bounds each request. Zero means no limit.
	ReadTimeout time.Duration

	// RequestHeaders are added to every request.
	RequestHeaders map[string]string

	// Delay is how long a worker pauses after each fetch.
	Delay time.Duration

	// DiscardPageBodies drops page bodies once links were extracted and the
	// page hooks ran.
	DiscardPageBodies bool

	// ObeyRobotsTxt skips links disallowed by the host's robots.txt.
	ObeyRobotsTxt bool

	// SkipQueryStrings skips links that carry a query string.
	SkipQueryStrings bool

	// DepthLimit stops link following below this depth. -1 means no limit.
	DepthLimit int

	// MaxPages caps the number of URLs scheduled for fetching. Zero means no
	// limit.
	MaxPages int

	// RequestsPerSecond throttles requests across all workers. Zero means
	// unlimited.
	RequestsPerSecond float64

	// SkipLinks are regular expressions matched against link paths; matching
	// links are not followed.
	SkipLinks []string

	// Debug receives fetch trace messages.
	Debug func(string)

	// Logger receives structured logs. Nil discards them.
	Logger *slog.Logger
}

// DefaultConfig returns the documented defaults.
func DefaultConfig() Config {
	return Config{
		Threads:        DefaultThreads,
		RedirectLimit:  DefaultRedirectLimit,
		RetryLimit:     DefaultRetryLimit,
		RetryBaseDelay: DefaultRetryBaseDelay,
		RetryMaxDelay:  DefaultRetryMaxDelay,
		UserAgent:      DefaultUserAgent,
		DepthLimit:     -1,
	}
}

// Validate checks the configuration and returns the first problem found.
func (c Config) Validate() error {
	switch {
	case c.Threads < 1:
		return ErrInvalidThreads
	case c.RedirectLimit < 1:
		return ErrInvalidRedirectLimit
	case c.RetryLimit < 1:
		return ErrInvalidRetryLimit
	case c.RetryBaseDelay <= 0 || c.RetryMaxDelay < c.RetryBaseDelay:
		return ErrInvalidRetryDelay
	case c.Delay < 0:
		return ErrInvalidDelay
	case c.ReadTimeout < 0:
		return ErrInvalidTimeout
	case c.DepthLimit < -1:
		return ErrInvalidDepthLimit
	case c.MaxPages < 0:
		return ErrInvalidMaxPages
	case c.RequestsPerSecond < 0:
		return ErrInvalidRate
	}
	_, err := c.skipPatterns()
	return err
}

// skipPatterns compiles SkipLinks.
func (c Config) skipPatterns() ([]*regexp.Regexp, error) {
	patterns := make([]*regexp.Regexp, 0, len(c.SkipLinks))
	for _, expr := range c.SkipLinks {
		re, err := regexp.Compile(expr)
		if err != nil {
			return nil, fmt.Errorf("%w %q: %w", ErrInvalidSkipPattern, expr, err)
		}
		patterns = append(patterns, re)
	}
	return patterns, nil
}

// fetchConfig returns the subset of the configuration used by the fetcher.
func (c Config) fetchConfig() fetch.Config {
	return fetch.Config{
		UserAgent:         c.UserAgent,
		AcceptCookies:     c.AcceptCookies,
		Cookies:           c.Cookies,
		BasicAuth:         c.BasicAuth,
		ProxyBasicAuth:    c.ProxyBasicAuth,
		Proxy:             c.Proxy,
		ProxyHost:         c.ProxyHost,
		ProxyPort:         c.ProxyPort,
		ReadTimeout:       c.ReadTimeout,
		RequestHeaders:    c.RequestHeaders,
		RedirectLimit:     c.RedirectLimit,
		RetryLimit:        c.RetryLimit,
		RetryBaseDelay:    c.RetryBaseDelay,
		RetryMaxDelay:     c.RetryMaxDelay,
		RequestsPerSecond: c.RequestsPerSecond,
		Debug:             c.Debug,
		Logger:            c.Logger,
	}
}
