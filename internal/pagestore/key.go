package pagestore

import (
	"net"
	"net/url"
	"strings"

	"golang.org/x/net/idna"
)

// defaultPorts maps schemes to the port that is implied when none is given.
var defaultPorts = map[string]string{
	"http":  "80",
	"https": "443",
}

// Key returns the canonical string form of u used to index the store.
//
// The scheme and host are lower-cased, the host is converted to its ASCII
// (punycode) form, the default port and the fragment are dropped, and an
// empty path becomes "/". Everything else, including the query, is kept as is.
func Key(u *url.URL) string {
	if u == nil {
		return ""
	}
	c := *u
	c.Fragment = ""
	c.RawFragment = ""
	c.Scheme = strings.ToLower(c.Scheme)
	c.Host = canonicalHost(c.Scheme, c.Host)
	if c.Host != "" && c.Path == "" && c.Opaque == "" {
		c.Path = "/"
		c.RawPath = ""
	}
	return c.String()
}

func canonicalHost(scheme, host string) string {
	if host == "" {
		return ""
	}
	name, port := host, ""
	if h, p, err := net.SplitHostPort(host); err == nil {
		name, port = h, p
	}

	name = strings.ToLower(name)
	if ascii, err := idna.Lookup.ToASCII(name); err == nil {
		name = ascii
	}

	if port == "" || port == defaultPorts[scheme] {
		if strings.Contains(name, ":") {
			return "[" + name + "]"
		}
		return name
	}
	return net.JoinHostPort(name, port)
}

// SameHost reports whether a and b point at the same host. Case, IDNA
// encoding and default ports are ignored, so http://Example.com and
// https://example.com:443 are the same host.
func SameHost(a, b *url.URL) bool {
	if a == nil || b == nil {
		return false
	}
	return canonicalHost(strings.ToLower(a.Scheme), a.Host) ==
		canonicalHost(strings.ToLower(b.Scheme), b.Host)
}

// withScheme returns a copy of u using the given scheme.
func withScheme(u *url.URL, scheme string) *url.URL {
	c := *u
	c.Scheme = scheme
	return &c
}

// isWebScheme reports whether scheme is http or https, ignoring case.
func isWebScheme(scheme string) bool {
	s := strings.ToLower(scheme)
	return s == "http" || s == "https"
}
