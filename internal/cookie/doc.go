// Package cookie implements the shared cookie jar used by every fetch of a
// crawl.
//
// The store is deliberately simpler than net/http/cookiejar: it keeps a single
// name to value map for the whole crawl, with no domain or path scoping, and
// renders it as one Cookie header value.
package cookie
