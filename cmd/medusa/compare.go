package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/nao1215/markdown"
	"github.com/spf13/cobra"

	"github.com/nao1215/medusa/internal/database"
	"github.com/nao1215/medusa/internal/model"
)

// Constants for the direction of a change in reached pages.
const (
	changeGrew      = "grew"
	changeShrank    = "shrank"
	changeUnchanged = "unchanged"
)

// NewCompareCmd creates the compare command.
// This command compares two recorded pagedepth runs of the same root.
func NewCompareCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compare <url>",
		Short: "Compare recorded pagedepth runs of a site",
		Long: `Compare displays how the depth profile of a site changed between two runs.

It shows, per depth level, the page count of both runs and the difference,
as well as pages that became unreachable or reachable again.

The comparison requires at least two runs of the root URL in the history
database. Use 'medusa pagedepth --save' to record runs.

Examples:
  # Compare the latest two runs
  medusa compare https://example.com/

  # Compare the latest run with run 5
  medusa compare --with-run-id 5 https://example.com/

  # Output comparison in JSON format
  medusa compare --json https://example.com/`,
		Args: cobra.ExactArgs(1),
		RunE: runCompareCmd,
	}

	cmd.Flags().Int64P("with-run-id", "i", 0,
		"Compare with a specific run by ID (use 'medusa history' to see IDs)")
	cmd.Flags().BoolP("json", "j", false,
		"Output comparison result in JSON format")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output comparison result in Markdown format")
	addDBDirFlag(cmd)

	return cmd
}

// runCompareCmd executes the compare command.
func runCompareCmd(cmd *cobra.Command, args []string) error {
	root, err := parseRoot(args[0])
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	withRunID, err := flags.GetInt64("with-run-id")
	if err != nil {
		return err
	}
	jsonOutput, err := flags.GetBool("json")
	if err != nil {
		return err
	}
	markdownOutput, err := flags.GetBool("markdown")
	if err != nil {
		return err
	}
	if jsonOutput && markdownOutput {
		return errors.New("--json and --markdown cannot be used together")
	}
	dbDir, err := flags.GetString("db-dir")
	if err != nil {
		return err
	}

	db, err := openHistory(dbDir)
	if err != nil {
		return err
	}
	defer db.Close()

	result, err := loadComparison(cmd.Context(), db, root.String(), withRunID)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	switch {
	case jsonOutput:
		return outputComparisonJSON(out, result)
	case markdownOutput:
		return outputComparisonMarkdown(out, result)
	default:
		return outputComparisonText(out, result)
	}
}

// loadComparison selects the two runs to compare and compares them.
func loadComparison(ctx context.Context, db *database.CrawlDB, root string, withRunID int64) (*ComparisonResult, error) {
	runs, err := db.ListRuns(ctx, root)
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, fmt.Errorf("no runs found for %s", root)
	}
	if len(runs) < 2 && withRunID == 0 {
		return nil, fmt.Errorf("at least 2 runs are required for comparison (found %d)", len(runs))
	}

	current, err := db.GetRun(ctx, runs[0].ID)
	if err != nil {
		return nil, err
	}

	previousID := withRunID
	if previousID == 0 {
		previousID = runs[1].ID
	}
	if previousID == runs[0].ID {
		return nil, fmt.Errorf("run %d is the latest run; choose an older one", previousID)
	}

	previous, err := db.GetRun(ctx, previousID)
	if err != nil {
		return nil, err
	}
	if previous == nil {
		return nil, fmt.Errorf("run with ID %d not found", previousID)
	}
	if previous.Root != root {
		return nil, fmt.Errorf("run %d belongs to %s, not %s", previousID, previous.Root, root)
	}

	result := compareReports(previous, current)
	result.PreviousRun.ID = previousID
	result.CurrentRun.ID = runs[0].ID
	return result, nil
}

// ComparisonResult holds the result of comparing two runs.
type ComparisonResult struct {
	// Root is the URL both runs started from.
	Root string `json:"root"`

	// PreviousRun contains metadata about the older run.
	PreviousRun RunMetadata `json:"previous_run"`

	// CurrentRun contains metadata about the newer run.
	CurrentRun RunMetadata `json:"current_run"`

	// Depths lists every depth present in either run, ascending.
	Depths []DepthDelta `json:"depths"`

	// NewlyUnreached lists pages unreached now but not before.
	NewlyUnreached []string `json:"newly_unreached,omitempty"`

	// NowReached lists pages unreached before but not now.
	NowReached []string `json:"now_reached,omitempty"`

	// Direction is "grew", "shrank" or "unchanged".
	Direction string `json:"direction"`
}

// RunMetadata contains metadata about a run for comparison display.
type RunMetadata struct {
	ID           int64     `json:"id"`
	GeneratedAt  time.Time `json:"generated_at"`
	TotalPages   int       `json:"total_pages"`
	ReachedPages int       `json:"reached_pages"`
	MaxDepth     int       `json:"max_depth"`
	ErrorPages   int       `json:"error_pages"`
}

// DepthDelta is the page count of one depth in both runs.
type DepthDelta struct {
	Depth    int `json:"depth"`
	Previous int `json:"previous"`
	Current  int `json:"current"`
	Delta    int `json:"delta"`
}

func newRunMetadata(r *model.DepthReport) RunMetadata {
	return RunMetadata{
		GeneratedAt:  r.GeneratedAt,
		TotalPages:   r.TotalPages,
		ReachedPages: r.ReachedPages(),
		MaxDepth:     r.MaxDepth(),
		ErrorPages:   r.ErrorPages,
	}
}

// compareReports compares two reports of the same root.
func compareReports(previous, current *model.DepthReport) *ComparisonResult {
	result := &ComparisonResult{
		Root:        current.Root,
		PreviousRun: newRunMetadata(previous),
		CurrentRun:  newRunMetadata(current),
		Depths:      make([]DepthDelta, 0),
	}

	counts := make(map[int]*DepthDelta)
	for _, d := range previous.Depths {
		counts[d.Depth] = &DepthDelta{Depth: d.Depth, Previous: d.Count}
	}
	for _, d := range current.Depths {
		if dd, ok := counts[d.Depth]; ok {
			dd.Current = d.Count
			continue
		}
		counts[d.Depth] = &DepthDelta{Depth: d.Depth, Current: d.Count}
	}
	for _, dd := range counts {
		dd.Delta = dd.Current - dd.Previous
		result.Depths = append(result.Depths, *dd)
	}
	slices.SortFunc(result.Depths, func(a, b DepthDelta) int {
		return a.Depth - b.Depth
	})

	result.NewlyUnreached = difference(current.Unreached, previous.Unreached)
	result.NowReached = difference(previous.Unreached, current.Unreached)

	switch diff := result.CurrentRun.ReachedPages - result.PreviousRun.ReachedPages; {
	case diff > 0:
		result.Direction = changeGrew
	case diff < 0:
		result.Direction = changeShrank
	default:
		result.Direction = changeUnchanged
	}

	return result
}

// difference returns the sorted values of a missing from b.
func difference(a, b []string) []string {
	seen := make(map[string]struct{}, len(b))
	for _, v := range b {
		seen[v] = struct{}{}
	}
	var out []string
	for _, v := range a {
		if _, ok := seen[v]; !ok {
			out = append(out, v)
		}
	}
	slices.Sort(out)
	return out
}

// outputComparisonJSON outputs the comparison result in JSON format.
func outputComparisonJSON(w io.Writer, result *ComparisonResult) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(result)
}

// outputComparisonMarkdown outputs the comparison result in Markdown format.
func outputComparisonMarkdown(w io.Writer, result *ComparisonResult) error {
	md := markdown.NewMarkdown(w)

	md.H1("Run Comparison: " + result.Root)
	md.PlainText("")
	md.PlainTextf("**Site size:** %s", formatDirection(result.Direction))
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Metric", "Previous", "Current", "Change"},
		Rows: [][]string{
			{"Run", strconv.FormatInt(result.PreviousRun.ID, 10), strconv.FormatInt(result.CurrentRun.ID, 10), "-"},
			{
				"Date",
				result.PreviousRun.GeneratedAt.Format("2006-01-02 15:04"),
				result.CurrentRun.GeneratedAt.Format("2006-01-02 15:04"),
				"-",
			},
			metricRow("Reached", result.PreviousRun.ReachedPages, result.CurrentRun.ReachedPages),
			metricRow("Max Depth", result.PreviousRun.MaxDepth, result.CurrentRun.MaxDepth),
			metricRow("Fetch Errors", result.PreviousRun.ErrorPages, result.CurrentRun.ErrorPages),
		},
	})
	md.PlainText("")

	md.H2("Pages per Depth")
	md.PlainText("")
	rows := make([][]string, len(result.Depths))
	for i, d := range result.Depths {
		rows[i] = []string{strconv.Itoa(d.Depth), strconv.Itoa(d.Previous), strconv.Itoa(d.Current), formatDelta(d.Delta)}
	}
	md.Table(markdown.TableSet{
		Header: []string{"Depth", "Previous", "Current", "Change"},
		Rows:   rows,
	})
	md.PlainText("")

	if len(result.NewlyUnreached) > 0 {
		md.H2(fmt.Sprintf("Newly Unreached (%d)", len(result.NewlyUnreached)))
		md.PlainText("")
		md.BulletList(result.NewlyUnreached...)
		md.PlainText("")
	}
	if len(result.NowReached) > 0 {
		md.H2(fmt.Sprintf("Reached Again (%d)", len(result.NowReached)))
		md.PlainText("")
		md.BulletList(result.NowReached...)
		md.PlainText("")
	}

	return md.Build()
}

func metricRow(name string, previous, current int) []string {
	return []string{name, strconv.Itoa(previous), strconv.Itoa(current), formatDelta(current - previous)}
}

// outputComparisonText outputs the comparison result in human-readable text format.
func outputComparisonText(w io.Writer, result *ComparisonResult) error {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Run Comparison: %s\n", result.Root)
	sb.WriteString(strings.Repeat("=", 60))
	sb.WriteString("\n")

	fmt.Fprintf(&sb, "\nSite size: %s\n", formatDirection(result.Direction))
	fmt.Fprintf(&sb, "\nPrevious run: #%d %s\n", result.PreviousRun.ID, result.PreviousRun.GeneratedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&sb, "Current run:  #%d %s\n", result.CurrentRun.ID, result.CurrentRun.GeneratedAt.Format("2006-01-02 15:04:05"))

	sb.WriteString("\nPages per Depth:\n")
	fmt.Fprintf(&sb, "  %-10s  %-10s  %-10s  %-10s\n", "Depth", "Previous", "Current", "Change")
	sb.WriteString("  " + strings.Repeat("-", 45) + "\n")
	for _, d := range result.Depths {
		fmt.Fprintf(&sb, "  %-10d  %-10d  %-10d  %-10s\n", d.Depth, d.Previous, d.Current, formatDelta(d.Delta))
	}
	sb.WriteString("  " + strings.Repeat("-", 45) + "\n")
	fmt.Fprintf(&sb, "  %-10s  %-10d  %-10d  %-10s\n", "Total",
		result.PreviousRun.ReachedPages, result.CurrentRun.ReachedPages,
		formatDelta(result.CurrentRun.ReachedPages-result.PreviousRun.ReachedPages))

	if len(result.NewlyUnreached) > 0 {
		fmt.Fprintf(&sb, "\nNewly Unreached (%d):\n", len(result.NewlyUnreached))
		for _, u := range result.NewlyUnreached {
			fmt.Fprintf(&sb, "  [-] %s\n", u)
		}
	}
	if len(result.NowReached) > 0 {
		fmt.Fprintf(&sb, "\nReached Again (%d):\n", len(result.NowReached))
		for _, u := range result.NowReached {
			fmt.Fprintf(&sb, "  [+] %s\n", u)
		}
	}

	_, err := io.WriteString(w, sb.String())
	return err
}

// formatDirection formats the change direction for display.
func formatDirection(direction string) string {
	switch direction {
	case changeGrew:
		return "GREW (more pages reached)"
	case changeShrank:
		return "SHRANK (fewer pages reached)"
	default:
		return "UNCHANGED"
	}
}

// formatDelta formats a numeric delta with sign for display.
func formatDelta(delta int) string {
	if delta > 0 {
		return "+" + strconv.Itoa(delta)
	}
	return strconv.Itoa(delta)
}
