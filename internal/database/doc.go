// Package database provides SQLite-based storage for medusa run history.
//
// This package implements the CrawlDB, which stores:
//   - One row per pagedepth run with its totals
//   - The page count of every depth level of a run
//   - The URL, status and depth of every page of a run
//
// Design decision: We use SQLite (via modernc.org/sqlite) instead of other
// databases because:
// 1. No external dependencies - the database is a single file
// 2. CGO-free implementation allows easy cross-compilation
// 3. Sufficient performance for our use case
// 4. WAL mode provides good concurrent read performance
package database
