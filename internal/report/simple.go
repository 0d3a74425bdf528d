package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/nao1215/medusa/internal/model"
)

// SimpleWriter outputs one "Depth: <n> Count: <count>" line per depth level,
// ascending by depth.
//
// Design decision: The default output carries nothing but the depth lines so
// that it can be piped into other tools. Totals and unreached pages are only
// printed with WithVerbose.
type SimpleWriter struct {
	baseWriter

	// verbose appends a summary and the unreached pages.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithVerbose enables the summary section.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs the report.
func (w *SimpleWriter) Write(report *model.DepthReport) (int, error) {
	var sb strings.Builder

	for _, d := range report.Depths {
		fmt.Fprintf(&sb, "Depth: %d Count: %d\n", d.Depth, d.Count)
	}

	if w.verbose {
		w.writeSummary(&sb, report)
	}

	return io.WriteString(w.output, sb.String())
}

// writeSummary writes totals and the unreached pages.
func (w *SimpleWriter) writeSummary(sb *strings.Builder, report *model.DepthReport) {
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	fmt.Fprintf(sb, "Root:            %s\n", report.Root)
	fmt.Fprintf(sb, "Pages:           %d\n", report.TotalPages)
	fmt.Fprintf(sb, "Reached:         %d\n", report.ReachedPages())
	fmt.Fprintf(sb, "Fetch errors:    %d\n", report.ErrorPages)
	fmt.Fprintf(sb, "Error statuses:  %d\n", report.ErrorStatuses)
	if report.Duration > 0 {
		fmt.Fprintf(sb, "Duration:        %s\n", report.Duration.Round(time.Millisecond))
	}

	if len(report.Unreached) > 0 {
		sb.WriteString("\nUnreached pages:\n")
		for _, u := range report.Unreached {
			fmt.Fprintf(sb, "  [-] %s\n", u)
		}
	}
}
