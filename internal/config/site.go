package config

import (
	"maps"
	"net"
	"slices"
	"strings"
	"time"

	"github.com/nao1215/medusa/internal/crawler"
)

// SiteConfig holds crawl settings read from the configuration file.
// Zero values mean "not set" and leave the command's value untouched.
// Booleans and the depth limit are pointers because false and 0 are
// meaningful settings.
type SiteConfig struct {
	// Threads is the number of concurrent workers.
	Threads int `yaml:"threads,omitempty"`

	// Delay is the pause after each fetch, e.g. "500ms".
	Delay time.Duration `yaml:"delay,omitempty"`

	// ReadTimeout bounds each request, e.g. "3s".
	ReadTimeout time.Duration `yaml:"read_timeout,omitempty"`

	// UserAgent overrides the User-Agent header.
	UserAgent string `yaml:"user_agent,omitempty"`

	// Cookies seeds the cookie store.
	// Format: "name=value" or "name1=value1; name2=value2"
	Cookies string `yaml:"cookies,omitempty"`

	// AcceptCookies stores cookies set by the server and sends them back.
	AcceptCookies *bool `yaml:"accept_cookies,omitempty"`

	// Headers are custom HTTP headers to include in requests to this site.
	Headers map[string]string `yaml:"headers,omitempty"`

	// BasicAuth is sent as HTTP basic authentication.
	BasicAuth *crawler.Credentials `yaml:"basic_auth,omitempty"`

	// Proxy is a proxy URL (http, https, socks5 or socks5h).
	Proxy string `yaml:"proxy,omitempty"`

	// ProxyBasicAuth authenticates against the proxy.
	ProxyBasicAuth *crawler.Credentials `yaml:"proxy_basic_auth,omitempty"`

	// RedirectLimit is the maximum number of redirects followed per fetch.
	RedirectLimit int `yaml:"redirect_limit,omitempty"`

	// RetryLimit is the maximum number of attempts per request.
	RetryLimit int `yaml:"retry_limit,omitempty"`

	// RequestsPerSecond throttles requests across all workers.
	RequestsPerSecond float64 `yaml:"requests_per_second,omitempty"`

	// DepthLimit stops link following below this depth. -1 means no limit.
	DepthLimit *int `yaml:"depth_limit,omitempty"`

	// MaxPages caps the number of URLs scheduled for fetching.
	MaxPages int `yaml:"max_pages,omitempty"`

	// SkipLinks are regular expressions matched against link paths.
	// They are added to the command's patterns, never replacing them.
	SkipLinks []string `yaml:"skip_links,omitempty"`

	// SkipQueryStrings skips links that carry a query string.
	SkipQueryStrings *bool `yaml:"skip_query_strings,omitempty"`

	// ObeyRobotsTxt skips links disallowed by robots.txt.
	ObeyRobotsTxt *bool `yaml:"obey_robots_txt,omitempty"`

	// DiscardPageBodies drops page bodies after link extraction.
	DiscardPageBodies *bool `yaml:"discard_page_bodies,omitempty"`
}

// File represents the structure of the medusa configuration file.
type File struct {
	// Defaults is applied to every crawl.
	Defaults SiteConfig `yaml:"defaults,omitempty"`

	// Sites maps host names to settings that override Defaults.
	// Keys are host names without scheme (e.g., "example.com" or
	// "example.com:8080").
	Sites map[string]SiteConfig `yaml:"sites,omitempty"`
}

// GetSiteConfig returns the configuration for host.
// It merges the site-specific configuration over the defaults. A host with a
// port falls back to the entry for the bare host name.
func (cf *File) GetSiteConfig(host string) SiteConfig {
	result := cf.Defaults
	result.Headers = maps.Clone(cf.Defaults.Headers)
	result.SkipLinks = slices.Clone(cf.Defaults.SkipLinks)

	if site, ok := cf.lookup(host); ok {
		result.merge(site)
	}
	return result
}

// Apply overlays the settings for host onto cfg.
func (cf *File) Apply(host string, cfg *crawler.Config) {
	sc := cf.GetSiteConfig(host)
	sc.apply(cfg)
}

func (cf *File) lookup(host string) (SiteConfig, bool) {
	host = strings.ToLower(host)
	if site, ok := cf.Sites[host]; ok {
		return site, true
	}
	if name, _, err := net.SplitHostPort(host); err == nil {
		site, ok := cf.Sites[name]
		return site, ok
	}
	return SiteConfig{}, false
}

// merge copies every set field of o into s.
func (s *SiteConfig) merge(o SiteConfig) {
	if o.Threads != 0 {
		s.Threads = o.Threads
	}
	if o.Delay != 0 {
		s.Delay = o.Delay
	}
	if o.ReadTimeout != 0 {
		s.ReadTimeout = o.ReadTimeout
	}
	if o.UserAgent != "" {
		s.UserAgent = o.UserAgent
	}
	if o.Cookies != "" {
		s.Cookies = o.Cookies
	}
	if o.AcceptCookies != nil {
		s.AcceptCookies = o.AcceptCookies
	}
	if len(o.Headers) > 0 {
		if s.Headers == nil {
			s.Headers = make(map[string]string, len(o.Headers))
		}
		maps.Copy(s.Headers, o.Headers)
	}
	if o.BasicAuth != nil {
		s.BasicAuth = o.BasicAuth
	}
	if o.Proxy != "" {
		s.Proxy = o.Proxy
	}
	if o.ProxyBasicAuth != nil {
		s.ProxyBasicAuth = o.ProxyBasicAuth
	}
	if o.RedirectLimit != 0 {
		s.RedirectLimit = o.RedirectLimit
	}
	if o.RetryLimit != 0 {
		s.RetryLimit = o.RetryLimit
	}
	if o.RequestsPerSecond != 0 {
		s.RequestsPerSecond = o.RequestsPerSecond
	}
	if o.DepthLimit != nil {
		s.DepthLimit = o.DepthLimit
	}
	if o.MaxPages != 0 {
		s.MaxPages = o.MaxPages
	}
	s.SkipLinks = appendMissing(s.SkipLinks, o.SkipLinks...)
	if o.SkipQueryStrings != nil {
		s.SkipQueryStrings = o.SkipQueryStrings
	}
	if o.ObeyRobotsTxt != nil {
		s.ObeyRobotsTxt = o.ObeyRobotsTxt
	}
	if o.DiscardPageBodies != nil {
		s.DiscardPageBodies = o.DiscardPageBodies
	}
}

// apply copies every set field of s into cfg.
func (s SiteConfig) apply(cfg *crawler.Config) {
	if s.Threads != 0 {
		cfg.Threads = s.Threads
	}
	if s.Delay != 0 {
		cfg.Delay = s.Delay
	}
	if s.ReadTimeout != 0 {
		cfg.ReadTimeout = s.ReadTimeout
	}
	if s.UserAgent != "" {
		cfg.UserAgent = s.UserAgent
	}
	if s.Cookies != "" {
		cfg.Cookies = s.Cookies
	}
	if s.AcceptCookies != nil {
		cfg.AcceptCookies = *s.AcceptCookies
	}
	if len(s.Headers) > 0 {
		headers := maps.Clone(cfg.RequestHeaders)
		if headers == nil {
			headers = make(map[string]string, len(s.Headers))
		}
		maps.Copy(headers, s.Headers)
		cfg.RequestHeaders = headers
	}
	if s.BasicAuth != nil {
		cfg.BasicAuth = s.BasicAuth
	}
	if s.Proxy != "" {
		cfg.Proxy = s.Proxy
	}
	if s.ProxyBasicAuth != nil {
		cfg.ProxyBasicAuth = s.ProxyBasicAuth
	}
	if s.RedirectLimit != 0 {
		cfg.RedirectLimit = s.RedirectLimit
	}
	if s.RetryLimit != 0 {
		cfg.RetryLimit = s.RetryLimit
	}
	if s.RequestsPerSecond != 0 {
		cfg.RequestsPerSecond = s.RequestsPerSecond
	}
	if s.DepthLimit != nil {
		cfg.DepthLimit = *s.DepthLimit
	}
	if s.MaxPages != 0 {
		cfg.MaxPages = s.MaxPages
	}
	cfg.SkipLinks = appendMissing(slices.Clone(cfg.SkipLinks), s.SkipLinks...)
	if s.SkipQueryStrings != nil {
		cfg.SkipQueryStrings = *s.SkipQueryStrings
	}
	if s.ObeyRobotsTxt != nil {
		cfg.ObeyRobotsTxt = *s.ObeyRobotsTxt
	}
	if s.DiscardPageBodies != nil {
		cfg.DiscardPageBodies = *s.DiscardPageBodies
	}
}

func appendMissing(dst []string, values ...string) []string {
	for _, v := range values {
		if v != "" && !slices.Contains(dst, v) {
			dst = append(dst, v)
		}
	}
	return dst
}
