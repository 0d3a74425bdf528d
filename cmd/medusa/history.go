package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nao1215/medusa/internal/database"
)

// NewHistoryCmd creates the history command.
// This command lists pagedepth runs recorded with --save.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [url]",
		Short: "List recorded pagedepth runs",
		Long: `History lists the pagedepth runs stored in the history database.

Runs are recorded with 'medusa pagedepth --save'. Without arguments every run
is listed; with a URL only the runs of that root are shown.

Examples:
  # List all runs
  medusa history

  # List runs of one site
  medusa history https://example.com/

  # Show depth counts and pages of run 3
  medusa history --id 3 --pages

  # Delete run 3
  medusa history --delete 3`,
		Args: cobra.MaximumNArgs(1),
		RunE: runHistoryCmd,
	}

	cmd.Flags().Int64P("id", "i", 0,
		"Show the depth counts of a single run")
	cmd.Flags().BoolP("pages", "P", false,
		"With --id, also list the pages of the run")
	cmd.Flags().Int64("delete", 0,
		"Delete a run by ID")
	addDBDirFlag(cmd)

	return cmd
}

// runHistoryCmd executes the history command.
func runHistoryCmd(cmd *cobra.Command, args []string) error {
	var root string
	if len(args) == 1 {
		u, err := parseRoot(args[0])
		if err != nil {
			return err
		}
		root = u.String()
	}

	flags := cmd.Flags()
	dbDir, err := flags.GetString("db-dir")
	if err != nil {
		return err
	}
	id, err := flags.GetInt64("id")
	if err != nil {
		return err
	}
	showPages, err := flags.GetBool("pages")
	if err != nil {
		return err
	}
	deleteID, err := flags.GetInt64("delete")
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()

	db, err := openHistory(dbDir)
	if errors.Is(err, database.ErrDatabaseNotFound) {
		fmt.Fprintln(out, "No runs recorded yet.")
		fmt.Fprintln(out, "\nUse 'medusa pagedepth --save <url>' to record a run.")
		return nil
	}
	if err != nil {
		return err
	}
	defer db.Close()

	ctx := cmd.Context()

	switch {
	case deleteID > 0:
		return deleteRun(ctx, out, db, deleteID)
	case id > 0:
		return showRun(ctx, out, db, id, showPages)
	default:
		return listRuns(ctx, out, db, root)
	}
}

// openHistory opens an existing history database without creating one.
func openHistory(dbDir string) (*database.CrawlDB, error) {
	db, err := database.Open(dbDir, database.Options{CreateIfNotExists: false, EnableWAL: true})
	if err != nil {
		if errors.Is(err, database.ErrDatabaseNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}

// listRuns lists stored runs, optionally restricted to one root.
func listRuns(ctx context.Context, out io.Writer, db *database.CrawlDB, root string) error {
	runs, err := db.ListRuns(ctx, root)
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		if root != "" {
			fmt.Fprintf(out, "No runs found for %s\n", root)
		} else {
			fmt.Fprintln(out, "No runs found.")
		}
		return nil
	}

	fmt.Fprintf(out, "Recorded runs (%d):\n\n", len(runs))
	fmt.Fprintf(out, "  %-6s  %-20s  %-7s  %-9s  %-7s  %s\n", "ID", "Date", "Pages", "MaxDepth", "Errors", "Root")
	fmt.Fprintln(out, "  "+strings.Repeat("-", 78))

	for _, run := range runs {
		fmt.Fprintf(out, "  %-6d  %-20s  %-7d  %-9d  %-7d  %s\n",
			run.ID,
			run.GeneratedAt.Local().Format("2006-01-02 15:04:05"),
			run.TotalPages,
			run.MaxDepth,
			run.ErrorPages,
			run.Root,
		)
	}

	fmt.Fprintln(out, "\nUse 'medusa history --id <id>' to see the depth counts of a run.")
	fmt.Fprintln(out, "Use 'medusa compare <url>' to compare the latest two runs of a site.")
	return nil
}

// showRun prints the depth counts, and optionally the pages, of one run.
func showRun(ctx context.Context, out io.Writer, db *database.CrawlDB, id int64, showPages bool) error {
	run, err := db.GetRun(ctx, id)
	if err != nil {
		return err
	}
	if run == nil {
		return fmt.Errorf("run with ID %d not found", id)
	}

	fmt.Fprintf(out, "Run %d: %s (%s)\n\n", id, run.Root, run.GeneratedAt.Local().Format("2006-01-02 15:04:05"))

	counts, err := db.GetDepthCounts(ctx, id)
	if err != nil {
		return err
	}
	for _, d := range counts {
		fmt.Fprintf(out, "Depth: %d Count: %d\n", d.Depth, d.Count)
	}

	if !showPages {
		return nil
	}

	pages, err := db.GetRunPages(ctx, id)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "\nPages (%d):\n", len(pages))
	for _, p := range pages {
		depth := "-"
		if p.Depth >= 0 {
			depth = fmt.Sprint(p.Depth)
		}
		line := fmt.Sprintf("  [%s] %d %s", depth, p.StatusCode, p.URL)
		if p.Error != "" {
			line += " (" + p.Error + ")"
		}
		fmt.Fprintln(out, line)
	}
	return nil
}

// deleteRun removes one run.
func deleteRun(ctx context.Context, out io.Writer, db *database.CrawlDB, id int64) error {
	deleted, err := db.DeleteRun(ctx, id)
	if err != nil {
		return err
	}
	if !deleted {
		return fmt.Errorf("run with ID %d not found", id)
	}
	fmt.Fprintf(out, "Deleted run %d\n", id)
	return nil
}
