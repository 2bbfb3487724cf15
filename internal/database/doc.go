// Package database provides the SQLite crawl history for sitecrawl.
//
// Every crawl run is stored with its outcome, the pages it saved and the
// failures it hit:
//   - runs: one row per crawl, keyed by the run UUID
//   - pages: one row per fetched page of a run, in visit order
//   - failures: one row per non-fatal error of a run
//
// CrawlDB implements crawler.Recorder, so the engine writes to it while the
// crawl is running and the history survives an interrupted crawl.
//
// Design decision: We use SQLite (via modernc.org/sqlite) instead of other
// databases because:
// 1. No external dependencies - the database is a single file
// 2. CGO-free implementation allows easy cross-compilation
// 3. Sufficient performance for our use case
// 4. WAL mode provides good concurrent read performance
package database
