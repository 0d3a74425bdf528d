package log

import (
	"context"
	"log/slog"
)

// TraceFunc adapts logger to the func(string) trace callback accepted by the
// fetcher. Messages are logged at Debug level under the "trace" message with
// the text in the "detail" attribute. It returns nil when logger is nil or
// Debug is disabled, so no trace strings are formatted for nothing.
func TraceFunc(logger *slog.Logger) func(string) {
	if logger == nil || !logger.Enabled(context.Background(), slog.LevelDebug) {
		return nil
	}
	return func(msg string) {
		logger.Debug("trace", "detail", msg)
	}
}
