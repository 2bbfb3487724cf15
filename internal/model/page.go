package model

import (
	"time"
)

// PageRecord is the persisted outcome of one successful crawl step.
// It is created once per fetched and extracted page and written once.
//
// Design decision: Text is excluded from JSON because reports and the
// history database only need to know where the text went, not the text
// itself. The text file on disk is the durable copy.
type PageRecord struct {
	// URL is the normalized URL of the page.
	URL NormalizedURL `json:"url"`

	// Title is the content of the <title> element, if any.
	Title string `json:"title,omitempty"`

	// Text is the extracted plain text.
	Text string `json:"-"`

	// FilePath is where the text was written. Empty if storage failed.
	FilePath string `json:"file_path,omitempty"`

	// Bytes is the size of the extracted text in bytes.
	Bytes int `json:"bytes"`

	// StatusCode is the HTTP status of the response.
	StatusCode int `json:"status_code"`

	// ContentType is the Content-Type header of the response.
	ContentType string `json:"content_type,omitempty"`

	// LinksFound is the number of href values found on the page.
	LinksFound int `json:"links_found"`

	// LinksQueued is the number of links that were admitted and were new.
	LinksQueued int `json:"links_queued"`

	// FetchedAt is when the response was received.
	FetchedAt time.Time `json:"fetched_at"`
}

// Stored reports whether the page text reached the page store.
func (p *PageRecord) Stored() bool {
	return p.FilePath != ""
}

// FailureStage identifies where in the per-URL loop a failure occurred.
type FailureStage string

const (
	// StageParse is a link that could not be resolved or normalized.
	StageParse FailureStage = "parse"
	// StageFetch is a network or HTTP status failure.
	StageFetch FailureStage = "fetch"
	// StageExtract is a failure to turn the body into text and links.
	StageExtract FailureStage = "extract"
	// StageStore is a failure to write the text file.
	StageStore FailureStage = "store"
	// StageRecord is a failure to write to the crawl history.
	StageRecord FailureStage = "record"
)

// PageFailure is a non-fatal error tied to one URL.
type PageFailure struct {
	// URL is the URL (or raw link) that failed.
	URL string `json:"url"`

	// Stage is where the failure happened.
	Stage FailureStage `json:"stage"`

	// Message is the error text.
	Message string `json:"message"`

	// Err is the original error, kept for errors.Is/As by callers.
	Err error `json:"-"`
}

// NewPageFailure builds a PageFailure from an error.
func NewPageFailure(rawURL string, stage FailureStage, err error) PageFailure {
	f := PageFailure{
		URL:   rawURL,
		Stage: stage,
		Err:   err,
	}
	if err != nil {
		f.Message = err.Error()
	}
	return f
}
