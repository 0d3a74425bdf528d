package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/medusa/internal/model"
)

// createTestReport creates a report with sample data for testing.
func createTestReport() *model.DepthReport {
	return &model.DepthReport{
		Root:          "http://example.com/",
		GeneratedAt:   time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		Duration:      1500 * time.Millisecond,
		TotalPages:    7,
		ErrorPages:    1,
		ErrorStatuses: 1,
		Depths: []model.DepthCount{
			{Depth: 0, Count: 1},
			{Depth: 1, Count: 3},
			{Depth: 2, Count: 2},
		},
		Unreached: []string{"http://example.com/orphan"},
	}
}

// TestSimpleWriter tests the depth line writer.
func TestSimpleWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes one line per depth", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		n, err := NewSimpleWriter(&buf).Write(createTestReport())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		expected := "Depth: 0 Count: 1\nDepth: 1 Count: 3\nDepth: 2 Count: 2\n"
		if buf.String() != expected {
			t.Errorf("expected %q, got %q", expected, buf.String())
		}
		if n != len(expected) {
			t.Errorf("expected %d bytes, got %d", len(expected), n)
		}
	})

	t.Run("empty report writes nothing", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf).Write(model.NewDepthReport("http://example.com/", nil)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if buf.Len() != 0 {
			t.Errorf("expected no output, got %q", buf.String())
		}
	})

	t.Run("verbose adds summary", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf, WithVerbose(true)).Write(createTestReport()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		if !strings.HasPrefix(output, "Depth: 0 Count: 1\n") {
			t.Error("expected depth lines first")
		}
		for _, want := range []string{"Root:", "Reached:         6", "Fetch errors:    1", "Duration:        1.5s", "[-] http://example.com/orphan"} {
			if !strings.Contains(output, want) {
				t.Errorf("expected output to contain %q", want)
			}
		}
	})
}

// TestJSONWriter tests the JSON report writer.
func TestJSONWriter(t *testing.T) {
	t.Parallel()

	t.Run("compact output", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewJSONWriter(&buf).Write(createTestReport()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		if strings.Count(output, "\n") != 1 {
			t.Errorf("expected a single line, got %q", output)
		}

		var decoded model.DepthReport
		if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if decoded.Root != "http://example.com/" {
			t.Errorf("expected root, got %q", decoded.Root)
		}
		if len(decoded.Depths) != 3 || decoded.Depths[1].Count != 3 {
			t.Errorf("unexpected depths %+v", decoded.Depths)
		}
	})

	t.Run("indented output", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewJSONWriter(&buf, WithIndent("", "\t")).Write(createTestReport()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(buf.String(), "\n\t\"root\"") {
			t.Errorf("expected tab indentation, got %q", buf.String())
		}
	})
}

// TestFullJSONWriter tests the metadata wrapper.
func TestFullJSONWriter(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	if _, err := NewFullJSONWriter(&buf, "1.2.3", WithPrettyPrint()).Write(createTestReport()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var decoded struct {
		Version  string            `json:"version"`
		MaxDepth int               `json:"max_depth"`
		Report   model.DepthReport `json:"report"`
	}
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if decoded.Version != "1.2.3" {
		t.Errorf("expected version 1.2.3, got %q", decoded.Version)
	}
	if decoded.MaxDepth != 2 {
		t.Errorf("expected max depth 2, got %d", decoded.MaxDepth)
	}
	if len(decoded.Report.Unreached) != 1 {
		t.Errorf("expected unreached list, got %v", decoded.Report.Unreached)
	}
}

// TestMarkdownWriter tests the Markdown report writer.
func TestMarkdownWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes sections", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewMarkdownWriter(&buf).Write(createTestReport()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		for _, want := range []string{
			"# Page Depth Report",
			"## Pages per Depth",
			"## Unreached Pages",
			"http://example.com/orphan",
			"```mermaid",
			"Page Depth Distribution",
			"Depth 1",
			"[!WARNING]",
			"github.com/nao1215/medusa",
		} {
			if !strings.Contains(output, want) {
				t.Errorf("expected output to contain %q", want)
			}
		}
	})

	t.Run("no pages reached", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewMarkdownWriter(&buf).Write(model.NewDepthReport("http://example.com/", nil)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		if !strings.Contains(output, "No pages were reached.") {
			t.Error("expected empty notice")
		}
		if !strings.Contains(output, "[!CAUTION]") {
			t.Error("expected caution alert")
		}
		if strings.Contains(output, "```mermaid") {
			t.Error("expected no pie chart without pages")
		}
	})

	t.Run("clean crawl", func(t *testing.T) {
		t.Parallel()

		report := createTestReport()
		report.ErrorPages = 0
		report.ErrorStatuses = 0
		report.Unreached = nil

		var buf bytes.Buffer
		if _, err := NewMarkdownWriter(&buf).Write(report); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		if !strings.Contains(output, "[!TIP]") {
			t.Error("expected tip alert")
		}
		if strings.Contains(output, "## Unreached Pages") {
			t.Error("expected no unreached section")
		}
	})

	t.Run("long unreached list is truncated", func(t *testing.T) {
		t.Parallel()

		report := createTestReport()
		report.Unreached = nil
		for i := range maxUnreachedRows + 5 {
			report.Unreached = append(report.Unreached, fmt.Sprintf("http://example.com/%03d", i))
		}

		var buf bytes.Buffer
		if _, err := NewMarkdownWriter(&buf).Write(report); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(buf.String(), "... and 5 more") {
			t.Error("expected truncation notice")
		}
	})
}

// failingWriter is a Writer that always fails.
type failingWriter struct{}

var errWriteFailed = errors.New("write failed")

func (failingWriter) Write(_ *model.DepthReport) (int, error) {
	return 0, errWriteFailed
}

// TestMultiWriter tests writing to several writers.
func TestMultiWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes to all writers", func(t *testing.T) {
		t.Parallel()

		var text, js bytes.Buffer
		m := NewMultiWriter(NewSimpleWriter(&text), NewJSONWriter(&js))

		n, err := m.Write(createTestReport())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if n != text.Len()+js.Len() {
			t.Errorf("expected %d bytes, got %d", text.Len()+js.Len(), n)
		}
		if text.Len() == 0 || js.Len() == 0 {
			t.Error("expected output in both writers")
		}
	})

	t.Run("stops on first error", func(t *testing.T) {
		t.Parallel()

		var after bytes.Buffer
		m := NewMultiWriter(failingWriter{}, NewSimpleWriter(&after))

		if _, err := m.Write(createTestReport()); !errors.Is(err, errWriteFailed) {
			t.Errorf("expected errWriteFailed, got %v", err)
		}
		if after.Len() != 0 {
			t.Error("expected later writers to be skipped")
		}
	})
}

// TestNewWriter tests writer selection by format.
func TestNewWriter(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		format  Format
		wantErr bool
	}{
		{"", false},
		{FormatText, false},
		{FormatJSON, false},
		{FormatMarkdown, false},
		{"yaml", true},
	}

	for _, tc := range testCases {
		t.Run(string(tc.format), func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer
			w, err := NewWriter(tc.format, &buf, "dev")
			if tc.wantErr {
				if !errors.Is(err, ErrUnknownFormat) {
					t.Errorf("expected ErrUnknownFormat, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if _, err := w.Write(createTestReport()); err != nil {
				t.Errorf("unexpected write error: %v", err)
			}
			if buf.Len() == 0 {
				t.Error("expected output")
			}
		})
	}
}
