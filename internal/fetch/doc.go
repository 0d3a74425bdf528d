// Package fetch retrieves pages over HTTP for the crawler.
//
// A Fetcher follows redirects itself, one request per hop, so that every hop
// becomes its own model.Page. Transient network failures are retried with
// exponential backoff (github.com/cenkalti/backoff/v4), requests can be
// throttled with golang.org/x/time/rate, and cookies set by the server are
// shared by every request of the crawl through a cookie.Store.
//
// Design decision: FetchPages never returns an error. Failures become error
// pages (model.Page with Err set) because:
//  1. Workers push whatever they get onto the page queue without branching
//  2. A failed URL still occupies its node in the page graph
//  3. A panic inside one fetch cannot take down a worker goroutine
package fetch
