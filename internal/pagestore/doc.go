// Package pagestore holds the pages discovered by a crawl, keyed by canonical
// URL, and computes single-source shortest paths over the link graph they
// form.
//
// The store is not synchronised. During a crawl only the orchestrator
// goroutine touches it; afterwards the completion hooks own it.
//
// Design decision: every URL that crosses the store boundary goes through
// Key. This means:
//  1. Scheme and host comparisons are case-insensitive everywhere
//  2. Internationalized hosts compare equal to their punycode form
//  3. Fragments and default ports never create duplicate nodes
package pagestore
