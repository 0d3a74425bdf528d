// Package crawler runs a concurrent crawl and builds the page graph.
//
// # Architecture
//
// A crawl is coordinated by Core, the orchestrator, which owns the page store.
// Core feeds a link queue that a fixed pool of Workers consume. Each Worker
// fetches its URL (redirect hops included) and pushes the resulting pages
// onto a page queue, which Core drains:
//
//	Core -> link queue -> Worker -> fetch.Fetcher -> page queue -> Core -> pagestore.Store
//
// Core extracts the links of every page, runs the registered hooks, and
// enqueues the links that pass its filters at the next depth. When both queues
// are empty and every worker is blocked waiting for work, Core pushes one
// StopItem per worker and waits for the pool to exit.
//
// Design decision: Only the Core goroutine touches the page store. This means:
//  1. The store needs no locking
//  2. Deduplication (HasPage followed by Touch) cannot race
//  3. Hooks run sequentially and may keep state without synchronisation
//
// # Usage
//
//	store, err := crawler.Crawl(ctx, root, crawler.DefaultConfig(), func(c *crawler.Core) {
//		c.OnEveryPage(func(p *model.Page) { fmt.Println(p.URL) })
//	})
package crawler
