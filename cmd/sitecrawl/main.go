// Package main provides the entry point for the sitecrawl CLI.
//
// sitecrawl crawls a website breadth-first from a start URL, follows the
// links a URL policy admits and saves the visible text of every page as a
// .txt file.
//
// Usage:
//
//	sitecrawl crawl <start-url>
//	sitecrawl crawl --site <name>
//	sitecrawl history [start-url]
//
// See --help for all available options.
package main

// main is the entry point for sitecrawl.
func main() {
	Execute()
}
