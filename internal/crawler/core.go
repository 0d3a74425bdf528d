package crawler

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/medusa/internal/fetch"
	"github.com/nao1215/medusa/internal/linkextract"
	"github.com/nao1215/medusa/internal/model"
	"github.com/nao1215/medusa/internal/pagestore"
	"github.com/nao1215/medusa/internal/queue"
	"github.com/nao1215/medusa/internal/robots"
)

// patternHook is a page hook restricted to URLs matching a pattern.
type patternHook struct {
	pattern *regexp.Regexp
	fn      func(*model.Page)
}

// Core orchestrates one crawl. Register hooks before calling Run.
type Core struct {
	root    *url.URL
	cfg     Config
	logger  *slog.Logger
	fetcher PageFetcher
	robots  *robots.Agent
	store   *pagestore.Store

	links *queue.Queue[WorkItem]
	pages *queue.Queue[*model.Page]

	skipPatterns []*regexp.Regexp
	focus        func(*model.Page) []*url.URL
	everyPage    []func(*model.Page)
	pagesLike    []patternHook
	afterCrawl   []func(*pagestore.Store)

	// scheduled counts URLs pushed onto the link queue, root included.
	scheduled int
	ran       bool
}

// New creates a Core that will crawl from root with cfg.
func New(root *url.URL, cfg Config) (*Core, error) {
	if root == nil || !root.IsAbs() || root.Host == "" ||
		(!strings.EqualFold(root.Scheme, "http") && !strings.EqualFold(root.Scheme, "https")) {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRoot, root)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid crawl configuration: %w", err)
	}
	patterns, err := cfg.skipPatterns()
	if err != nil {
		return nil, err
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	fetcher, err := fetch.New(cfg.fetchConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to create fetcher: %w", err)
	}

	c := &Core{
		root:         root,
		cfg:          cfg,
		logger:       logger,
		fetcher:      fetcher,
		store:        pagestore.New(),
		links:        queue.New[WorkItem](),
		pages:        queue.New[*model.Page](),
		skipPatterns: patterns,
	}
	if cfg.ObeyRobotsTxt {
		// Same transport as the fetcher, but robots.txt redirects are followed.
		client := &http.Client{Transport: fetcher.Client().Transport, Timeout: cfg.ReadTimeout}
		c.robots = robots.NewAgent(client, cfg.UserAgent)
	}
	return c, nil
}

// Store returns the page store the crawl writes to.
func (c *Core) Store() *pagestore.Store {
	return c.store
}

// SkipLinksLike adds patterns matched against link paths; matching links are
// not followed.
func (c *Core) SkipLinksLike(patterns ...*regexp.Regexp) *Core {
	c.skipPatterns = append(c.skipPatterns, patterns...)
	return c
}

// FocusCrawl replaces the link list of every page with what fn returns
// before the follow filters run.
func (c *Core) FocusCrawl(fn func(*model.Page) []*url.URL) *Core {
	c.focus = fn
	return c
}

// OnEveryPage registers fn to run for every page the crawl produces.
func (c *Core) OnEveryPage(fn func(*model.Page)) *Core {
	c.everyPage = append(c.everyPage, fn)
	return c
}

// OnPagesLike registers fn to run for pages whose URL matches any pattern.
func (c *Core) OnPagesLike(fn func(*model.Page), patterns ...*regexp.Regexp) *Core {
	for _, re := range patterns {
		c.pagesLike = append(c.pagesLike, patternHook{pattern: re, fn: fn})
	}
	return c
}

// AfterCrawl registers fn to run with the page store once the crawl ended.
func (c *Core) AfterCrawl(fn func(*pagestore.Store)) *Core {
	c.afterCrawl = append(c.afterCrawl, fn)
	return c
}

// Run performs the crawl. It returns when every reachable page was fetched
// and processed, the workers have exited and the AfterCrawl hooks ran.
// ctx bounds the HTTP requests; cancelling it makes the remaining fetches fail
// fast, after which the crawl drains normally.
func (c *Core) Run(ctx context.Context) error {
	if c.ran {
		return ErrAlreadyRun
	}
	c.ran = true

	start := time.Now()
	c.logger.Info("crawl started", "root", c.root.String(), "threads", c.cfg.Threads)

	c.store.Touch(c.root)
	c.links.Push(WorkItem{URL: c.root, Depth: 0})
	c.scheduled = 1

	var g errgroup.Group
	for range c.cfg.Threads {
		w := NewWorker(c.links, c.pages, c.fetcher, c.cfg.Delay, c.logger)
		g.Go(func() error {
			return w.Run(ctx)
		})
	}

	for {
		if c.pages.Empty() && c.links.Empty() {
			c.logger.Debug("queues drained, waiting for idle workers",
				"idle", c.links.Waiting(), "threads", c.cfg.Threads)
			// Only this goroutine pushes links, so once every worker waits
			// on the empty link queue no more pages can arrive.
			if c.links.WaitForWaiters(c.cfg.Threads) && c.pages.Empty() {
				for range c.cfg.Threads {
					c.links.Push(StopItem)
				}
				break
			}
		}
		c.process(ctx, c.pages.Pop())
	}

	if err := g.Wait(); err != nil {
		return fmt.Errorf("worker failed: %w", err)
	}

	for _, fn := range c.afterCrawl {
		fn(c.store)
	}

	c.logger.Info("crawl finished", "root", c.root.String(), "pages", c.store.Len(), "duration", time.Since(start))
	return nil
}

// process handles one page popped from the page queue.
func (c *Core) process(ctx context.Context, page *model.Page) {
	// Redirect hops are never expanded by ShortestPaths, so their bodies
	// are not scanned.
	if !page.Redirect() && page.IsHTML() && len(page.Body) > 0 {
		links, err := linkextract.NewParser(page.URL).Links(page.Body, page.Headers.Get("Content-Type"))
		if err != nil {
			c.logger.Debug("failed to extract links", "url", page.String(), "error", err)
		}
		page.Links = links
	}

	c.runPageHooks(page)

	if c.cfg.DiscardPageBodies {
		page.DiscardBody()
	}

	follow := c.linksToFollow(ctx, page)
	for _, link := range follow {
		c.links.Push(WorkItem{URL: link, Referer: page.URL, Depth: page.DepthValue() + 1})
	}
	c.store.TouchKeys(follow)
	c.store.Set(page.URL, page)

	c.logger.Debug("page processed",
		"url", page.String(),
		"state", page.State().String(),
		"code", page.Code,
		"depth", page.DepthValue(),
		"links", len(page.Links),
		"enqueued", len(follow),
	)
}

func (c *Core) runPageHooks(page *model.Page) {
	for _, fn := range c.everyPage {
		fn(page)
	}
	if len(c.pagesLike) == 0 {
		return
	}
	u := page.String()
	for _, h := range c.pagesLike {
		if h.pattern.MatchString(u) {
			h.fn(page)
		}
	}
}

// linksToFollow returns the links of page that should be fetched next.
func (c *Core) linksToFollow(ctx context.Context, page *model.Page) []*url.URL {
	links := page.Links
	if c.focus != nil {
		links = c.focus(page)
	}
	if len(links) == 0 || c.tooDeep(page.DepthValue()) {
		return nil
	}

	follow := make([]*url.URL, 0, len(links))
	batch := make(map[string]bool)
	for _, link := range links {
		if c.cfg.MaxPages > 0 && c.scheduled >= c.cfg.MaxPages {
			break
		}
		if !c.visitLink(ctx, page, link) {
			continue
		}
		key := pagestore.Key(link)
		if batch[key] {
			continue
		}
		batch[key] = true
		follow = append(follow, link)
		c.scheduled++
	}
	return follow
}

// visitLink applies the per-link filters.
func (c *Core) visitLink(ctx context.Context, page *model.Page, link *url.URL) bool {
	switch {
	case link == nil || page.URL == nil:
		return false
	case !pagestore.SameHost(link, page.URL):
		return false
	case c.skipLink(link):
		return false
	case c.cfg.SkipQueryStrings && link.RawQuery != "":
		return false
	case c.store.HasPage(link):
		return false
	case c.robots != nil && !c.robots.Allowed(ctx, link):
		c.logger.Debug("disallowed by robots.txt", "url", link.String())
		return false
	}
	return true
}

func (c *Core) skipLink(link *url.URL) bool {
	for _, re := range c.skipPatterns {
		if re.MatchString(link.Path) {
			return true
		}
	}
	return false
}

// tooDeep reports whether links found at depth must not be followed.
func (c *Core) tooDeep(depth int) bool {
	return c.cfg.DepthLimit >= 0 && depth >= c.cfg.DepthLimit
}

// Crawl creates a Core for root, lets setup register hooks, runs it and
// returns the page store.
func Crawl(ctx context.Context, root *url.URL, cfg Config, setup func(*Core)) (*pagestore.Store, error) {
	c, err := New(root, cfg)
	if err != nil {
		return nil, err
	}
	if setup != nil {
		setup(c)
	}
	if err := c.Run(ctx); err != nil {
		return c.store, err
	}
	return c.store, nil
}
