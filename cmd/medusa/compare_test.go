package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/medusa/internal/database"
	"github.com/nao1215/medusa/internal/model"
)

// TestDifference tests the set difference helper.
func TestDifference(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name     string
		a        []string
		b        []string
		expected []string
	}{
		{"both empty", nil, nil, nil},
		{"nothing removed", []string{"y", "x"}, nil, []string{"x", "y"}},
		{"common removed", []string{"c", "a", "b"}, []string{"b"}, []string{"a", "c"}},
		{"all removed", []string{"a"}, []string{"a", "z"}, nil},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got := difference(tc.a, tc.b)
			if !slices.Equal(got, tc.expected) {
				t.Errorf("expected %v, got %v", tc.expected, got)
			}
		})
	}
}

// TestCompareReports tests depth and unreached page deltas.
func TestCompareReports(t *testing.T) {
	t.Parallel()

	t.Run("site grew", func(t *testing.T) {
		t.Parallel()

		previous := testRunReport("http://a.example/", time.Now(),
			[]model.DepthCount{{Depth: 0, Count: 1}, {Depth: 1, Count: 2}},
			"http://a.example/gone", "http://a.example/old")
		current := testRunReport("http://a.example/", time.Now(),
			[]model.DepthCount{{Depth: 0, Count: 1}, {Depth: 1, Count: 3}, {Depth: 2, Count: 4}},
			"http://a.example/gone", "http://a.example/new")

		result := compareReports(previous, current)

		expected := []DepthDelta{
			{Depth: 0, Previous: 1, Current: 1, Delta: 0},
			{Depth: 1, Previous: 2, Current: 3, Delta: 1},
			{Depth: 2, Previous: 0, Current: 4, Delta: 4},
		}
		if !slices.Equal(result.Depths, expected) {
			t.Errorf("expected depths %+v, got %+v", expected, result.Depths)
		}
		if result.Direction != changeGrew {
			t.Errorf("expected %q, got %q", changeGrew, result.Direction)
		}
		if !slices.Equal(result.NewlyUnreached, []string{"http://a.example/new"}) {
			t.Errorf("unexpected newly unreached %v", result.NewlyUnreached)
		}
		if !slices.Equal(result.NowReached, []string{"http://a.example/old"}) {
			t.Errorf("unexpected now reached %v", result.NowReached)
		}
		if result.PreviousRun.ReachedPages != 3 || result.CurrentRun.ReachedPages != 8 {
			t.Errorf("unexpected reached pages %d and %d", result.PreviousRun.ReachedPages, result.CurrentRun.ReachedPages)
		}
		if result.CurrentRun.MaxDepth != 2 {
			t.Errorf("expected current max depth 2, got %d", result.CurrentRun.MaxDepth)
		}
	})

	t.Run("site shrank", func(t *testing.T) {
		t.Parallel()

		previous := testRunReport("http://a.example/", time.Now(),
			[]model.DepthCount{{Depth: 0, Count: 1}, {Depth: 1, Count: 2}})
		current := testRunReport("http://a.example/", time.Now(),
			[]model.DepthCount{{Depth: 0, Count: 1}})

		result := compareReports(previous, current)
		if result.Direction != changeShrank {
			t.Errorf("expected %q, got %q", changeShrank, result.Direction)
		}
		if len(result.Depths) != 2 || result.Depths[1].Delta != -2 {
			t.Errorf("unexpected depths %+v", result.Depths)
		}
	})

	t.Run("unchanged", func(t *testing.T) {
		t.Parallel()

		depths := []model.DepthCount{{Depth: 0, Count: 1}}
		result := compareReports(
			testRunReport("http://a.example/", time.Now(), depths),
			testRunReport("http://a.example/", time.Now(), depths),
		)
		if result.Direction != changeUnchanged {
			t.Errorf("expected %q, got %q", changeUnchanged, result.Direction)
		}
	})
}

// TestFormatDelta tests signed delta formatting.
func TestFormatDelta(t *testing.T) {
	t.Parallel()

	testCases := map[int]string{3: "+3", 0: "0", -2: "-2"}
	for delta, expected := range testCases {
		if got := formatDelta(delta); got != expected {
			t.Errorf("formatDelta(%d) = %q, want %q", delta, got, expected)
		}
	}
}

// TestCompareCmd tests the compare command against a seeded database.
func TestCompareCmd(t *testing.T) {
	t.Parallel()

	const root = "http://a.example/"

	seedTwoRuns := func(t *testing.T) string {
		t.Helper()

		dbDir := t.TempDir()
		base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
		seedRun(t, dbDir, testRunReport(root, base,
			[]model.DepthCount{{Depth: 0, Count: 1}, {Depth: 1, Count: 2}},
			"http://a.example/old"))
		seedRun(t, dbDir, testRunReport(root, base.Add(time.Hour),
			[]model.DepthCount{{Depth: 0, Count: 1}, {Depth: 1, Count: 5}}))
		return dbDir
	}

	t.Run("no database", func(t *testing.T) {
		t.Parallel()

		_, err := execute(t, "compare", "--db-dir", t.TempDir(), root)
		if !errors.Is(err, database.ErrDatabaseNotFound) {
			t.Errorf("expected ErrDatabaseNotFound, got %v", err)
		}
	})

	t.Run("requires two runs", func(t *testing.T) {
		t.Parallel()

		dbDir := t.TempDir()
		seedRun(t, dbDir, testRunReport(root, time.Now(), []model.DepthCount{{Depth: 0, Count: 1}}))

		_, err := execute(t, "compare", "--db-dir", dbDir, root)
		if err == nil || !strings.Contains(err.Error(), "at least 2 runs") {
			t.Errorf("expected two-run error, got %v", err)
		}
	})

	t.Run("text output", func(t *testing.T) {
		t.Parallel()

		out, err := execute(t, "compare", "--db-dir", seedTwoRuns(t), root)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		for _, want := range []string{
			"Run Comparison: " + root,
			"Site size: GREW",
			"Previous run: #1",
			"Current run:  #2",
			"Reached Again (1):",
			"[+] http://a.example/old",
		} {
			if !strings.Contains(out, want) {
				t.Errorf("expected output to contain %q, got %q", want, out)
			}
		}
	})

	t.Run("json output", func(t *testing.T) {
		t.Parallel()

		out, err := execute(t, "compare", "--db-dir", seedTwoRuns(t), "--json", root)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		var result ComparisonResult
		if err := json.NewDecoder(bytes.NewBufferString(out)).Decode(&result); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if result.PreviousRun.ID != 1 || result.CurrentRun.ID != 2 {
			t.Errorf("unexpected run IDs %d and %d", result.PreviousRun.ID, result.CurrentRun.ID)
		}
		if result.Direction != changeGrew {
			t.Errorf("expected %q, got %q", changeGrew, result.Direction)
		}
		if len(result.Depths) != 2 || result.Depths[1].Delta != 3 {
			t.Errorf("unexpected depths %+v", result.Depths)
		}
	})

	t.Run("markdown output", func(t *testing.T) {
		t.Parallel()

		out, err := execute(t, "compare", "--db-dir", seedTwoRuns(t), "--markdown", root)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		for _, want := range []string{"# Run Comparison: " + root, "## Pages per Depth", "+3", "## Reached Again (1)"} {
			if !strings.Contains(out, want) {
				t.Errorf("expected output to contain %q, got %q", want, out)
			}
		}
	})

	t.Run("with run id", func(t *testing.T) {
		t.Parallel()

		dbDir := seedTwoRuns(t)
		if _, err := execute(t, "compare", "--db-dir", dbDir, "-i", "1", root); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		if _, err := execute(t, "compare", "--db-dir", dbDir, "-i", "2", root); err == nil {
			t.Error("expected error when comparing the latest run with itself")
		}
		if _, err := execute(t, "compare", "--db-dir", dbDir, "-i", "9", root); err == nil {
			t.Error("expected error for a missing run")
		}
	})

	t.Run("conflicting formats", func(t *testing.T) {
		t.Parallel()

		if _, err := execute(t, "compare", "--db-dir", seedTwoRuns(t), "--json", "--markdown", root); err == nil {
			t.Error("expected error for --json with --markdown")
		}
	})
}
