package linkextract

import (
	"bytes"
	"fmt"
	"io"
	"net/url"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/charset"

	"github.com/nao1215/medusa/internal/pagestore"
)

// ignoredSchemes are href prefixes that never point at a crawlable page.
var ignoredSchemes = []string{"javascript:", "mailto:", "tel:", "data:"}

// Parser extracts links from HTML content.
//
// Design decision: We use golang.org/x/net/html for parsing rather than
// regex because:
//  1. It correctly handles malformed HTML common on the web
//  2. <base> handling needs the document structure
//  3. Attribute values are unescaped for us
type Parser struct {
	// baseURL is the URL of the page being parsed.
	baseURL *url.URL

	// allHosts disables the same-host filter.
	allHosts bool
}

// Option configures a Parser.
type Option func(*Parser)

// WithAllHosts makes the parser keep links to other hosts as well.
func WithAllHosts() Option {
	return func(p *Parser) {
		p.allHosts = true
	}
}

// NewParser creates a parser that resolves links against baseURL.
func NewParser(baseURL *url.URL, opts ...Option) *Parser {
	p := &Parser{baseURL: baseURL}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Links decodes body according to contentType and returns its links.
func (p *Parser) Links(body []byte, contentType string) ([]*url.URL, error) {
	r, err := charset.NewReader(bytes.NewReader(body), contentType)
	if err != nil {
		return nil, fmt.Errorf("failed to decode body of %s: %w", p.baseURL, err)
	}
	return p.Parse(r)
}

// Parse parses UTF-8 HTML and returns the absolute links of every <a href>
// in document order. Fragments are removed, duplicates dropped, and unless
// WithAllHosts was given only links to the base URL's host are returned.
func (p *Parser) Parse(content io.Reader) ([]*url.URL, error) {
	doc, err := html.Parse(content)
	if err != nil {
		return nil, err
	}

	base := p.baseURL
	if href, ok := findBase(doc); ok {
		if u, err := p.baseURL.Parse(href); err == nil {
			base = u
		}
	}

	links := make([]*url.URL, 0)
	seen := make(map[string]bool)

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "a" {
			if u := resolve(base, getAttr(n, "href")); u != nil && p.keep(u) {
				if s := u.String(); !seen[s] {
					seen[s] = true
					links = append(links, u)
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return links, nil
}

// keep applies the scheme and host filters.
func (p *Parser) keep(u *url.URL) bool {
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	return p.allHosts || pagestore.SameHost(u, p.baseURL)
}

// resolve turns an href into an absolute URL without fragment, or nil.
func resolve(base *url.URL, href string) *url.URL {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") {
		return nil
	}
	lower := strings.ToLower(href)
	for _, scheme := range ignoredSchemes {
		if strings.HasPrefix(lower, scheme) {
			return nil
		}
	}

	ref, err := url.Parse(strings.ReplaceAll(href, " ", "%20"))
	if err != nil {
		return nil
	}
	u := base.ResolveReference(ref)
	u.Fragment = ""
	u.RawFragment = ""
	if u.Path == "" {
		u.Path = "/"
	}
	return u
}

// findBase returns the href of the first <base> element.
func findBase(n *html.Node) (string, bool) {
	if n.Type == html.ElementNode && n.Data == "base" {
		if href := getAttr(n, "href"); href != "" {
			return href, true
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if href, ok := findBase(c); ok {
			return href, true
		}
	}
	return "", false
}

// getAttr retrieves an attribute value from an HTML node.
func getAttr(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}
