package fetch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/time/rate"

	"github.com/nao1215/medusa/internal/cookie"
	"github.com/nao1215/medusa/internal/model"
	"github.com/nao1215/medusa/internal/pagestore"
)

// Fetcher issues HTTP requests and turns responses into pages.
// A Fetcher is safe for concurrent use by multiple workers.
type Fetcher struct {
	cfg     Config
	client  *http.Client
	cookies *cookie.Store
	limiter *rate.Limiter
	logger  *slog.Logger
}

// New creates a Fetcher from cfg. Zero limits in cfg fall back to the
// package defaults.
func New(cfg Config) (*Fetcher, error) {
	cfg = cfg.withDefaults()

	transport, err := newTransport(cfg)
	if err != nil {
		return nil, err
	}

	f := &Fetcher{
		cfg: cfg,
		client: &http.Client{
			Transport: transport,
			Timeout:   cfg.ReadTimeout,
			// Redirects are followed by FetchPages so every hop is recorded.
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		cookies: cookie.New(cfg.Cookies),
		logger:  cfg.Logger,
	}
	if cfg.RequestsPerSecond > 0 {
		burst := int(cfg.RequestsPerSecond)
		if burst < 1 {
			burst = 1
		}
		f.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}
	if f.logger == nil {
		f.logger = slog.New(slog.DiscardHandler)
	}
	return f, nil
}

// Client returns the HTTP client used for page requests.
func (f *Fetcher) Client() *http.Client {
	return f.client
}

// Cookies returns the cookie store shared by every request.
func (f *Fetcher) Cookies() *cookie.Store {
	return f.cookies
}

// FetchPage fetches u and returns only the last page of its redirect chain.
func (f *Fetcher) FetchPage(ctx context.Context, u, referer *url.URL, depth int) *model.Page {
	pages := f.FetchPages(ctx, u, referer, depth)
	return pages[len(pages)-1]
}

// FetchPages fetches u and returns one page per hop of its redirect chain, in
// order. Every page carries depth.
//
// A redirect is followed only while its target is on the host of u and fewer
// than RedirectLimit redirects have been followed, so at most
// RedirectLimit+1 pages are returned. The result is never empty: a failure
// appends an error page for the URL that failed.
func (f *Fetcher) FetchPages(ctx context.Context, u, referer *url.URL, depth int) (pages []*model.Page) {
	loc := u
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("%w: %v", ErrUnexpected, r)
			f.trace("ERR %v", err)
			f.logger.Error("fetch panicked", "url", fmt.Sprint(loc), "panic", r)
			pages = append(pages, model.NewErrorPage(loc, depth, err))
		}
		f.trace("Finished fetch pages: %s %d", u, len(pages))
	}()

	f.trace("Fetching pages %s", u)
	if err := validateURL(u); err != nil {
		f.trace("ERR %v", err)
		return []*model.Page{model.NewErrorPage(u, depth, err)}
	}

	for followed := 0; ; followed++ {
		page, err := f.fetchHop(ctx, loc, referer)
		if err != nil {
			f.trace("ERR %v", err)
			f.logger.Debug("fetch failed", "url", loc.String(), "error", err)
			return append(pages, model.NewErrorPage(loc, depth, err))
		}
		page.SetDepth(depth)
		pages = append(pages, page)
		f.trace("get results: %d %s", page.Code, page)

		next := page.RedirectTo
		if next == nil || !sameHost(next, u) || followed >= f.cfg.RedirectLimit {
			return pages
		}
		loc = next
	}
}

// fetchHop performs one request, retrying transient failures.
func (f *Fetcher) fetchHop(ctx context.Context, loc, referer *url.URL) (*model.Page, error) {
	attempts := 0
	operation := func() (*model.Page, error) {
		attempts++
		page, err := f.do(ctx, loc, referer)
		if err != nil && !isTransient(err) {
			return nil, backoff.Permanent(err)
		}
		return page, err
	}
	notify := func(err error, wait time.Duration) {
		f.trace("Retrying #%d on url %s in %s because of: %v", attempts, loc, wait, err)
		f.logger.Debug("retrying request", "url", loc.String(), "attempt", attempts, "wait", wait, "error", err)
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(newBackOff(f.cfg.RetryBaseDelay, f.cfg.RetryMaxDelay), uint64(f.cfg.RetryLimit-1)),
		ctx,
	)
	page, err := backoff.RetryNotifyWithData(operation, policy, notify)
	if err == nil {
		return page, nil
	}
	if isTransient(err) && ctx.Err() == nil {
		f.logger.Warn("giving up on request", "url", loc.String(), "attempts", attempts, "error", err)
		return nil, fmt.Errorf("%w after %d attempts: %w", ErrRetriesExhausted, attempts, err)
	}
	return nil, err
}

// do sends a single GET request for loc and reads the full response.
func (f *Fetcher) do(ctx context.Context, loc, referer *url.URL) (*model.Page, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, loc.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if f.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", f.cfg.UserAgent)
	}
	if referer != nil {
		req.Header.Set("Referer", referer.String())
	}
	if f.sendCookies() {
		req.Header.Set("Cookie", f.cookies.String())
	}

	if f.limiter != nil {
		if err := f.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}
	}

	f.trace("GET %s", loc)
	start := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	elapsed := time.Since(start)
	f.trace("Returning response after %s", elapsed)

	if f.cfg.AcceptCookies {
		f.cookies.Merge(resp.Header.Values("Set-Cookie")...)
	}

	page := &model.Page{
		URL:          loc,
		Body:         body,
		Headers:      resp.Header,
		Code:         resp.StatusCode,
		Referer:      referer,
		ResponseTime: elapsed,
	}
	if isRedirect(resp.StatusCode) {
		if location := resp.Header.Get("Location"); location != "" {
			if target, err := loc.Parse(location); err == nil {
				page.RedirectTo = target
			}
		}
	}
	return page, nil
}

// sendCookies reports whether the Cookie header is attached. Cookies are sent
// when the store has any and they were either seeded or accepted.
func (f *Fetcher) sendCookies() bool {
	if f.cookies.Empty() {
		return false
	}
	return f.cfg.AcceptCookies || f.cfg.Cookies != ""
}

// trace forwards a message to the Debug callback, ignoring its panics.
func (f *Fetcher) trace(format string, args ...any) {
	if f.cfg.Debug == nil {
		return
	}
	defer func() {
		_ = recover()
	}()
	f.cfg.Debug(fmt.Sprintf(format, args...))
}

func validateURL(u *url.URL) error {
	if u == nil {
		return fmt.Errorf("%w: nil", ErrInvalidURL)
	}
	if !u.IsAbs() || u.Host == "" {
		return fmt.Errorf("%w: %q is not absolute", ErrInvalidURL, u.String())
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		return nil
	default:
		return fmt.Errorf("%w: unsupported scheme %q", ErrInvalidURL, u.Scheme)
	}
}

// sameHost reports whether target stays on the host of origin.
// A target without host is relative and therefore on the same host.
// Default ports and a switch between http and https do not leave the host.
func sameHost(target, origin *url.URL) bool {
	return target.Host == "" || pagestore.SameHost(target, origin)
}

func isRedirect(code int) bool {
	switch code {
	case http.StatusMovedPermanently, http.StatusFound, http.StatusSeeOther,
		http.StatusTemporaryRedirect, http.StatusPermanentRedirect:
		return true
	}
	return false
}
