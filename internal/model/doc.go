// Package model defines the core data structures shared by the crawler.
//
// This package contains the following main types:
//   - NormalizedURL: The canonical identity of a page (query and fragment removed)
//   - PageRecord: The persisted outcome of one successful crawl step
//   - PageFailure: A per-page error recorded without aborting the crawl
//   - CrawlReport: The result of one crawl run
//
// Design decision: We keep models in their own package because the crawler,
// store, database and report packages all need them, and centralizing them
// prevents import cycles.
package model
