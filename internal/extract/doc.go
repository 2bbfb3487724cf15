// Package extract turns a fetched HTML page into plain text and a list of
// raw link targets.
//
// The body is decoded to UTF-8 first (from the Content-Type charset or a
// <meta charset> declaration), then parsed once with golang.org/x/net/html.
// The parser is permissive: malformed markup still produces a tree.
//
// Text extraction keeps visible text in document order. Content of script,
// style, noscript, template, svg and iframe elements is dropped. Block
// elements start new lines, whitespace inside a line is collapsed and blank
// lines are removed. The result is NFC-normalized.
//
// Link extraction returns every <a href> value as written in the page, in
// document order. Resolution against the page is the crawler's job.
package extract
