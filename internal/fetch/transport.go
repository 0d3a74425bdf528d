package fetch

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/net/proxy"
)

// newTransport builds the round tripper used by a Fetcher.
//
// Design decision: We wrap the transport with a header injector rather than
// setting static headers on each request because the same injection then
// applies to requests issued by other components sharing the client, such as
// the robots.txt agent.
func newTransport(cfg Config) (http.RoundTripper, error) {
	base := cfg.Transport
	if base == nil {
		t, err := newProxyTransport(cfg)
		if err != nil {
			return nil, err
		}
		base = t
	}

	if len(cfg.RequestHeaders) == 0 && cfg.BasicAuth == nil {
		return base, nil
	}
	return &headerInjectingTransport{
		base:      base,
		headers:   cfg.RequestHeaders,
		basicAuth: cfg.BasicAuth,
	}, nil
}

// newProxyTransport clones http.DefaultTransport and routes it through the
// configured proxy, if any.
func newProxyTransport(cfg Config) (*http.Transport, error) {
	transport := http.DefaultTransport.(*http.Transport).Clone()

	proxyURL, err := cfg.proxyURL()
	if err != nil {
		return nil, fmt.Errorf("failed to parse proxy URL: %w", err)
	}
	if proxyURL == nil {
		return transport, nil
	}

	switch strings.ToLower(proxyURL.Scheme) {
	case "http", "https":
		if cfg.ProxyBasicAuth != nil {
			proxyURL.User = url.UserPassword(cfg.ProxyBasicAuth.Username, cfg.ProxyBasicAuth.Password)
		}
		// Transport derives Proxy-Authorization from the proxy URL user info.
		transport.Proxy = http.ProxyURL(proxyURL)

	case "socks5", "socks5h":
		var auth *proxy.Auth
		if cfg.ProxyBasicAuth != nil {
			auth = &proxy.Auth{User: cfg.ProxyBasicAuth.Username, Password: cfg.ProxyBasicAuth.Password}
		}
		dialer, err := proxy.SOCKS5("tcp", proxyURL.Host, auth, proxy.Direct)
		if err != nil {
			return nil, fmt.Errorf("failed to create SOCKS5 dialer: %w", err)
		}
		transport.Proxy = nil
		transport.DialContext = dialContext(dialer)

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedProxy, proxyURL.Scheme)
	}

	return transport, nil
}

// dialContext adapts a proxy.Dialer to the Transport.DialContext signature.
func dialContext(d proxy.Dialer) func(ctx context.Context, network, addr string) (net.Conn, error) {
	if cd, ok := d.(proxy.ContextDialer); ok {
		return cd.DialContext
	}
	return func(_ context.Context, network, addr string) (net.Conn, error) {
		return d.Dial(network, addr)
	}
}

// headerInjectingTransport wraps an http.RoundTripper to inject
// configured headers and credentials into every request.
type headerInjectingTransport struct {
	base      http.RoundTripper
	headers   map[string]string
	basicAuth *Credentials
}

// RoundTrip implements http.RoundTripper.
func (t *headerInjectingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	// Clone the request to avoid modifying the original
	clone := req.Clone(req.Context())

	for key, value := range t.headers {
		clone.Header.Set(key, value)
	}
	if t.basicAuth != nil {
		clone.SetBasicAuth(t.basicAuth.Username, t.basicAuth.Password)
	}

	return t.base.RoundTrip(clone)
}
