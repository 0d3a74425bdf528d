package model

import (
	"net/http"
	"net/url"
	"strings"
	"time"
)

// PageState identifies which of the mutually exclusive states a Page is in.
type PageState int

const (
	// StatePlaceholder is a page reserved in the store before it was fetched.
	StatePlaceholder PageState = iota

	// StateFetched is a page for which a non-redirect HTTP response was received.
	// Responses with 4xx/5xx codes are fetched pages too; see ErrorStatus.
	StateFetched

	// StateRedirect is one intermediate hop of a redirect chain.
	StateRedirect

	// StateError is a page whose fetch failed before any response was read.
	StateError
)

// String returns a short name for the state.
func (s PageState) String() string {
	switch s {
	case StatePlaceholder:
		return "placeholder"
	case StateFetched:
		return "fetched"
	case StateRedirect:
		return "redirect"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// Page represents one fetched (or failed) HTTP resource plus the crawl
// metadata attached to it.
//
// Design decision: fetch failures are stored in Err instead of being returned
// as Go errors because:
//  1. Every stage after the fetcher (worker, orchestrator, page store) can
//     treat pages uniformly
//  2. A failed URL still occupies its slot in the graph, so it is not
//     re-enqueued
//  3. The completion callback can report failures alongside successes
type Page struct {
	// URL is the URL that was requested for this hop.
	URL *url.URL

	// Body is the raw response body. It is nil for placeholders, for error
	// pages and after DiscardBody.
	Body []byte

	// Headers contains the HTTP response headers.
	Headers http.Header

	// Code is the HTTP status code. Zero means no response was received.
	Code int

	// Referer is the page that linked here, nil for the crawl root.
	Referer *url.URL

	// RedirectTo is the Location target of a 3xx response, nil otherwise.
	RedirectTo *url.URL

	// ResponseTime is the latency of the request that produced this page.
	ResponseTime time.Duration

	// Links are the outbound same-host links in document order.
	// The orchestrator fills this in; the fetcher never does.
	Links []*url.URL

	// Visited is scratch state for breadth-first traversal.
	Visited bool

	// Err holds the failure for error pages.
	Err error

	// depth is the traversal depth; hasDepth distinguishes depth 0 from unset.
	depth    int
	hasDepth bool
}

// NewPlaceholder creates an unfetched page used to reserve a URL in the store.
func NewPlaceholder(u *url.URL) *Page {
	return &Page{URL: u}
}

// NewErrorPage creates a page for a fetch that failed without a response.
func NewErrorPage(u *url.URL, depth int, err error) *Page {
	p := &Page{URL: u, Err: err}
	p.SetDepth(depth)
	return p
}

// Depth returns the traversal depth and whether it is defined.
func (p *Page) Depth() (int, bool) {
	return p.depth, p.hasDepth
}

// DepthValue returns the depth, or -1 when it is undefined.
func (p *Page) DepthValue() int {
	if !p.hasDepth {
		return -1
	}
	return p.depth
}

// HasDepth reports whether a depth has been assigned.
func (p *Page) HasDepth() bool {
	return p.hasDepth
}

// SetDepth assigns the traversal depth.
func (p *Page) SetDepth(depth int) {
	p.depth = depth
	p.hasDepth = true
}

// ClearDepth makes the depth undefined again.
func (p *Page) ClearDepth() {
	p.depth = 0
	p.hasDepth = false
}

// Fetched reports whether an HTTP response was recorded for this page.
func (p *Page) Fetched() bool {
	return p.Code != 0
}

// Redirect reports whether this page is a redirect hop.
func (p *Page) Redirect() bool {
	return p.RedirectTo != nil
}

// Failed reports whether the fetch for this page failed.
func (p *Page) Failed() bool {
	return p.Err != nil
}

// Placeholder reports whether the page only reserves its URL.
func (p *Page) Placeholder() bool {
	return p.State() == StatePlaceholder
}

// ErrorStatus reports whether the server answered with a 4xx or 5xx code.
func (p *Page) ErrorStatus() bool {
	return p.Code >= http.StatusBadRequest
}

// State returns the single state this page is in.
// An error takes precedence, then a missing response, then a redirect target.
func (p *Page) State() PageState {
	switch {
	case p.Err != nil:
		return StateError
	case p.Code == 0:
		return StatePlaceholder
	case p.RedirectTo != nil:
		return StateRedirect
	default:
		return StateFetched
	}
}

// ContentType returns the Content-Type header without parameters.
func (p *Page) ContentType() string {
	ct := p.Headers.Get("Content-Type")
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = ct[:i]
	}
	return strings.ToLower(strings.TrimSpace(ct))
}

// IsHTML returns true if the page content type indicates HTML.
func (p *Page) IsHTML() bool {
	ct := p.ContentType()
	return ct == "text/html" || ct == "application/xhtml+xml"
}

// DiscardBody drops the response body to save memory.
func (p *Page) DiscardBody() {
	p.Body = nil
}

// String returns the page URL, or an empty string for a nil URL.
func (p *Page) String() string {
	if p.URL == nil {
		return ""
	}
	return p.URL.String()
}
