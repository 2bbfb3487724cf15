// Package crawler runs a breadth-first crawl of one site.
//
// # Architecture
//
// The package is built around the Engine type. An Engine owns a FIFO
// Frontier and a VisitedSet, and drives each URL through the same steps:
//
//	fetch -> extract -> store (+ history) -> resolve links -> normalize
//	      -> policy -> visited check -> enqueue
//
// Every URL is pushed at most once because the visited-set insert is an
// atomic check-and-insert and only a successful insert leads to a push.
// The crawl ends when the frontier is empty or the context is cancelled.
//
// Design decision: Per-page errors never stop the crawl. A failed fetch or
// extraction is recorded in the CrawlReport and the next URL is taken.
// Only an invalid start URL or an output directory that cannot be created
// abort a run, because nothing useful can happen after those.
//
// # Concurrency
//
// With WithConcurrency(n) the engine takes up to n URLs from the head of
// the frontier, fetches them in parallel and then processes the results in
// the order they were dequeued. Network latency overlaps, but the visit
// order and the saved files are exactly those of a sequential crawl.
//
// BatchRunner crawls several sites at once, one Engine per site.
//
// # Usage
//
//	engine := crawler.New(startURL, fetcher, policy, store,
//		crawler.WithConcurrency(4),
//		crawler.WithLogger(logger),
//	)
//	report, err := engine.Crawl(ctx)
package crawler
