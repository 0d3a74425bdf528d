// Package robots decides whether a URL may be crawled according to the
// robots.txt of its host.
//
// Rules are parsed with github.com/temoto/robotstxt and cached per host for
// the lifetime of the Agent. Concurrent lookups for the same host share one
// robots.txt request through golang.org/x/sync/singleflight.
package robots
