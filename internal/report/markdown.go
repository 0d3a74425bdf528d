package report

import (
	"io"
	"strconv"
	"time"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/nao1215/medusa/internal/model"
)

// maxUnreachedRows bounds the unreached list so a broken crawl does not
// produce a report with thousands of lines.
const maxUnreachedRows = 50

// MarkdownWriter outputs reports in Markdown format.
// This format is designed for documentation and sharing.
//
// Design decision: We use the nao1215/markdown library for fluent markdown
// generation which provides:
// 1. Type-safe markdown generation
// 2. Support for tables, lists, and code blocks
// 3. GitHub-flavored markdown alerts
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs the report in Markdown format.
func (w *MarkdownWriter) Write(report *model.DepthReport) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, report)
	w.writeDepths(md, report)
	w.writeUnreached(md, report)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// writeHeader writes the report header with crawl information.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, report *model.DepthReport) {
	md.H1("Page Depth Report")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Root", "`" + report.Root + "`"},
			{"Generated", report.GeneratedAt.Format("2006-01-02 15:04:05 MST")},
			{"Duration", report.Duration.Round(time.Millisecond).String()},
			{"Pages", strconv.Itoa(report.TotalPages)},
			{"Reached", strconv.Itoa(report.ReachedPages())},
			{"Max Depth", strconv.Itoa(report.MaxDepth())},
			{"Fetch Errors", strconv.Itoa(report.ErrorPages)},
			{"Error Statuses", strconv.Itoa(report.ErrorStatuses)},
		},
	})
	md.PlainText("")

	w.writeAlert(md, report)
}

// writeAlert writes an alert when part of the site could not be crawled.
func (w *MarkdownWriter) writeAlert(md *markdown.Markdown, report *model.DepthReport) {
	switch {
	case report.ReachedPages() == 0:
		md.Cautionf("The root %s could not be crawled.", report.Root)
	case report.ErrorPages > 0:
		md.Warningf(
			"%d page(s) could not be fetched. Depth counts may be incomplete.",
			report.ErrorPages,
		)
	case report.ErrorStatuses > 0:
		md.Importantf("%d page(s) answered with a 4xx or 5xx status.", report.ErrorStatuses)
	default:
		md.Tip("Every page was fetched successfully.")
	}
	md.PlainText("")
}

// writeDepths writes the per-depth table and its pie chart.
func (w *MarkdownWriter) writeDepths(md *markdown.Markdown, report *model.DepthReport) {
	md.H2("Pages per Depth")
	md.PlainText("")

	if len(report.Depths) == 0 {
		md.PlainText("No pages were reached.")
		md.PlainText("")
		return
	}

	rows := make([][]string, 0, len(report.Depths)+1)
	for _, d := range report.Depths {
		rows = append(rows, []string{strconv.Itoa(d.Depth), strconv.Itoa(d.Count)})
	}
	rows = append(rows, []string{"**Total**", "**" + strconv.Itoa(report.ReachedPages()) + "**"})

	md.Table(markdown.TableSet{
		Header: []string{"Depth", "Count"},
		Rows:   rows,
	})
	md.PlainText("")

	w.writePieChart(md, report)
}

// writePieChart writes a mermaid pie chart of the depth distribution.
func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, report *model.DepthReport) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Page Depth Distribution"),
		piechart.WithShowData(true),
	)

	for _, d := range report.Depths {
		if d.Count > 0 {
			chart.LabelAndIntValue("Depth "+strconv.Itoa(d.Depth), uint64(d.Count))
		}
	}

	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// writeUnreached lists pages with no path from the root.
func (w *MarkdownWriter) writeUnreached(md *markdown.Markdown, report *model.DepthReport) {
	if len(report.Unreached) == 0 {
		return
	}

	md.H2("Unreached Pages")
	md.PlainText("")

	urls := report.Unreached
	if len(urls) > maxUnreachedRows {
		urls = urls[:maxUnreachedRows]
	}
	items := make([]string, len(urls))
	for i, u := range urls {
		items[i] = "`" + u + "`"
	}
	md.BulletList(items...)
	md.PlainText("")

	if rest := len(report.Unreached) - len(urls); rest > 0 {
		md.PlainTextf("... and %d more", rest)
		md.PlainText("")
	}
}

// writeFooter writes the report footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by [medusa](https://github.com/nao1215/medusa)*")
}
