package crawler

import (
	"context"
	"log/slog"
	"net/url"
	"time"

	"github.com/nao1215/medusa/internal/model"
	"github.com/nao1215/medusa/internal/queue"
)

// WorkItem is one URL scheduled for fetching.
type WorkItem struct {
	// URL is the URL to fetch.
	URL *url.URL

	// Referer is the page that linked to URL, nil for the root.
	Referer *url.URL

	// Depth is the depth the fetched pages are recorded at.
	Depth int

	stop bool
}

// StopItem tells the worker that receives it to exit.
var StopItem = WorkItem{stop: true}

// IsStop reports whether the item is the stop sentinel.
func (w WorkItem) IsStop() bool {
	return w.stop
}

// PageFetcher fetches a URL and returns one page per redirect hop.
// *fetch.Fetcher implements it.
type PageFetcher interface {
	FetchPages(ctx context.Context, u, referer *url.URL, depth int) []*model.Page
}

// Worker takes work items from the link queue, fetches them, and pushes the
// resulting pages onto the page queue.
type Worker struct {
	links   *queue.Queue[WorkItem]
	pages   *queue.Queue[*model.Page]
	fetcher PageFetcher
	delay   time.Duration
	logger  *slog.Logger
}

// NewWorker creates a worker. A nil logger discards logs.
func NewWorker(links *queue.Queue[WorkItem], pages *queue.Queue[*model.Page], fetcher PageFetcher, delay time.Duration, logger *slog.Logger) *Worker {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Worker{
		links:   links,
		pages:   pages,
		fetcher: fetcher,
		delay:   delay,
		logger:  logger,
	}
}

// Run processes work items until it receives StopItem.
// ctx is passed to every fetch; it does not stop the loop.
func (w *Worker) Run(ctx context.Context) error {
	for {
		item := w.links.Pop()
		if item.IsStop() {
			return nil
		}

		// The hops of one redirect chain reach the orchestrator back to back.
		pages := w.fetcher.FetchPages(ctx, item.URL, item.Referer, item.Depth)
		w.pages.PushAll(pages...)
		w.logger.Debug("fetched", "url", item.URL.String(), "depth", item.Depth, "pages", len(pages))

		if w.delay > 0 {
			sleep(ctx, w.delay)
		}
	}
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}
