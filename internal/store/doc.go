// Package store writes extracted page text to a flat directory, one UTF-8
// .txt file per page.
//
// The file name is derived from the normalized URL alone, so re-crawling a
// site overwrites the previous copy of each page instead of piling up
// duplicates. Writes go through a temporary file and a rename so a reader
// never sees a half-written file.
package store
