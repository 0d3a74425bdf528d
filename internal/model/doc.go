// Package model defines the core data structures shared across medusa.
//
// This package contains the following main types:
//   - Page: one fetched, failed, redirecting or reserved HTTP resource
//   - DepthReport: the per-depth summary of a finished crawl
//
// Design decision: We separate models into their own package to avoid circular
// dependencies. The fetcher, page store, crawler, report writers and database
// all need these types, so centralizing them prevents import cycles.
package model
