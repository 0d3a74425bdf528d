package fetch

import "errors"

// Fetch errors. They are stored in model.Page.Err rather than returned.
var (
	// ErrInvalidURL is recorded when the URL to fetch is nil, relative, or
	// uses a scheme other than http or https.
	ErrInvalidURL = errors.New("invalid URL")

	// ErrRetriesExhausted is recorded when a transient failure persisted
	// through every retry attempt.
	ErrRetriesExhausted = errors.New("retries exhausted")

	// ErrUnexpected is recorded when a fetch panicked.
	ErrUnexpected = errors.New("unexpected fetch failure")

	// ErrUnsupportedProxy is returned by New when the proxy scheme is not
	// http, https, socks5 or socks5h.
	ErrUnsupportedProxy = errors.New("unsupported proxy scheme")
)
