package crawler

import "errors"

// Configuration validation errors.
var (
	// ErrInvalidThreads is returned when Threads is less than 1.
	ErrInvalidThreads = errors.New("threads must be at least 1")

	// ErrInvalidRedirectLimit is returned when RedirectLimit is less than 1.
	ErrInvalidRedirectLimit = errors.New("redirect limit must be at least 1")

	// ErrInvalidRetryLimit is returned when RetryLimit is less than 1.
	ErrInvalidRetryLimit = errors.New("retry limit must be at least 1")

	// ErrInvalidRetryDelay is returned when the retry delays are negative or
	// the maximum is below the base delay.
	ErrInvalidRetryDelay = errors.New("retry delays must be positive and max must not be below base")

	// ErrInvalidDelay is returned when Delay is negative.
	ErrInvalidDelay = errors.New("delay cannot be negative")

	// ErrInvalidTimeout is returned when ReadTimeout is negative.
	ErrInvalidTimeout = errors.New("read timeout cannot be negative")

	// ErrInvalidDepthLimit is returned when DepthLimit is below -1.
	ErrInvalidDepthLimit = errors.New("depth limit must be -1 (unlimited) or greater")

	// ErrInvalidMaxPages is returned when MaxPages is negative.
	ErrInvalidMaxPages = errors.New("max pages cannot be negative")

	// ErrInvalidRate is returned when RequestsPerSecond is negative.
	ErrInvalidRate = errors.New("requests per second cannot be negative")

	// ErrInvalidSkipPattern is returned when a SkipLinks entry is not a valid
	// regular expression.
	ErrInvalidSkipPattern = errors.New("invalid skip pattern")
)

// Crawl errors.
var (
	// ErrInvalidRoot is returned when the root URL is not an absolute
	// http or https URL.
	ErrInvalidRoot = errors.New("root must be an absolute http or https URL")

	// ErrAlreadyRun is returned when Run is called more than once on a Core.
	ErrAlreadyRun = errors.New("crawl has already been run")
)
