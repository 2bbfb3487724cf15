package model

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// ErrNotAbsoluteURL is returned when a URL has no scheme or no host.
var ErrNotAbsoluteURL = errors.New("url must be absolute (scheme and host required)")

// ParseError reports a URL that could not be parsed or normalized.
// The crawler skips the offending link and continues.
type ParseError struct {
	// URL is the raw input that failed.
	URL string
	// Err is the underlying cause.
	Err error
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	return fmt.Sprintf("parse url %q: %v", e.URL, e.Err)
}

// Unwrap returns the underlying cause.
func (e *ParseError) Unwrap() error {
	return e.Err
}

// NormalizedURL is the canonical string form of a URL with query and
// fragment removed. It is the identity key for the visited set and the
// page store.
//
// No path normalization is applied: "http://x.test/a" and "http://x.test/a/"
// are different pages.
type NormalizedURL string

// Normalize parses raw and rebuilds it without query and fragment.
// It is a pure function; normalizing a NormalizedURL returns it unchanged.
func Normalize(raw string) (NormalizedURL, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", &ParseError{URL: raw, Err: err}
	}
	if u.Scheme == "" || u.Host == "" {
		return "", &ParseError{URL: raw, Err: ErrNotAbsoluteURL}
	}

	u.RawQuery = ""
	u.ForceQuery = false
	u.Fragment = ""
	u.RawFragment = ""

	return NormalizedURL(u.String()), nil
}

// String returns the URL as a plain string.
func (n NormalizedURL) String() string {
	return string(n)
}

// Root returns the scheme and host of the URL followed by "/".
// Relative links found on a page are resolved against this root.
func (n NormalizedURL) Root() (*url.URL, error) {
	u, err := url.Parse(string(n))
	if err != nil {
		return nil, &ParseError{URL: string(n), Err: err}
	}
	return &url.URL{Scheme: u.Scheme, Host: u.Host, Path: "/"}, nil
}

// Host returns the host (with port, if any) of the URL.
// An unparsable value yields an empty string.
func (n NormalizedURL) Host() string {
	u, err := url.Parse(string(n))
	if err != nil {
		return ""
	}
	return u.Host
}
