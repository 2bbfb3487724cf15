// Package fetcher retrieves pages over HTTP for the crawler.
//
// # Components
//
//   - HTTPFetcher: issues exactly one GET per Fetch call
//   - RetryFetcher: wraps any Fetcher with exponential backoff
//
// HTTPFetcher sends browser-like Accept headers, asks for compressed
// responses and decodes gzip, deflate and brotli bodies itself. Bodies are
// capped at a configurable size so a single huge page cannot exhaust memory.
//
// Every failure (transport error, non-2xx status, oversized or corrupt body)
// is returned as a *FetchError carrying the URL and status code. The crawler
// records it and moves on to the next URL.
//
// # Usage
//
//	f := fetcher.NewHTTPFetcher(nil, fetcher.WithTimeout(10*time.Second))
//	body, err := f.Fetch(ctx, "https://example.com/")
package fetcher
