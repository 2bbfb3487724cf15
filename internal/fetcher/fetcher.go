package fetcher

import (
	"compress/flate"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"net/http"
	"strings"
	"time"

	"github.com/andybalholm/brotli"

	"github.com/nao1215/sitecrawl/internal/model"
)

const (
	// DefaultUserAgent identifies the crawler to servers.
	DefaultUserAgent = "Mozilla/5.0 (compatible; sitecrawl/1.0; +https://github.com/nao1215/sitecrawl)"

	// DefaultTimeout is the per-request timeout.
	DefaultTimeout = 10 * time.Second

	// DefaultMaxBodySize is the largest decoded body accepted (10MB).
	DefaultMaxBodySize int64 = 10 * 1024 * 1024
)

// Fetcher retrieves one page.
// Implementations must respect context cancellation.
type Fetcher interface {
	Fetch(ctx context.Context, u model.NormalizedURL) (*RawBody, error)
}

// RawBody is a successful HTTP response with its decoded body.
type RawBody struct {
	// URL is the requested URL.
	URL model.NormalizedURL
	// FinalURL is the URL after redirects.
	FinalURL string
	// StatusCode is the HTTP status code (always 2xx).
	StatusCode int
	// ContentType is the Content-Type header, used for charset detection.
	ContentType string
	// Body is the decoded response body.
	Body []byte
	// FetchedAt is when the response was fully read.
	FetchedAt time.Time
}

// HTTPFetcher fetches pages with a shared http.Client.
//
// Design decision: HTTPFetcher sets Accept-Encoding itself and decodes the
// body, instead of relying on the transport's transparent gzip. The transport
// only handles gzip, and servers commonly answer with brotli when asked.
type HTTPFetcher struct {
	client      *http.Client
	userAgent   string
	timeout     time.Duration
	maxBodySize int64
	headers     map[string]string
	logger      *slog.Logger
}

// Option configures an HTTPFetcher.
type Option func(*HTTPFetcher)

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(f *HTTPFetcher) {
		if ua != "" {
			f.userAgent = ua
		}
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(f *HTTPFetcher) {
		if d > 0 {
			f.timeout = d
		}
	}
}

// WithMaxBodySize sets the largest decoded body accepted.
func WithMaxBodySize(size int64) Option {
	return func(f *HTTPFetcher) {
		if size > 0 {
			f.maxBodySize = size
		}
	}
}

// WithHeaders adds static request headers. They are applied after the
// defaults, so they can override Accept or Accept-Language.
func WithHeaders(headers map[string]string) Option {
	return func(f *HTTPFetcher) {
		maps.Copy(f.headers, headers)
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(f *HTTPFetcher) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// NewHTTPFetcher creates an HTTPFetcher. A nil client means a new
// http.Client with default transport settings.
func NewHTTPFetcher(client *http.Client, opts ...Option) *HTTPFetcher {
	if client == nil {
		client = &http.Client{}
	}
	f := &HTTPFetcher{
		client:      client,
		userAgent:   DefaultUserAgent,
		timeout:     DefaultTimeout,
		maxBodySize: DefaultMaxBodySize,
		headers:     make(map[string]string),
		logger:      slog.Default(),
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// Fetch issues a single GET for u.
// Any failure is returned as a *FetchError.
func (f *HTTPFetcher) Fetch(ctx context.Context, u model.NormalizedURL) (*RawBody, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, &FetchError{URL: u.String(), Err: fmt.Errorf("failed to create request: %w", err)}
	}

	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")
	req.Header.Set("Accept-Encoding", "gzip, deflate, br")
	for k, v := range f.headers {
		req.Header.Set(k, v)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &FetchError{URL: u.String(), Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Drain a little so the connection can be reused.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, &FetchError{URL: u.String(), StatusCode: resp.StatusCode, Err: ErrUnexpectedStatus}
	}

	body, err := f.readBody(resp)
	if err != nil {
		return nil, &FetchError{URL: u.String(), StatusCode: resp.StatusCode, Err: err}
	}

	finalURL := u.String()
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}

	f.logger.Debug("fetched page",
		"url", u.String(),
		"status", resp.StatusCode,
		"bytes", len(body),
		"content_encoding", resp.Header.Get("Content-Encoding"))

	return &RawBody{
		URL:         u,
		FinalURL:    finalURL,
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        body,
		FetchedAt:   time.Now(),
	}, nil
}

// readBody decodes the response body according to Content-Encoding and
// enforces the size limit on the decoded bytes.
func (f *HTTPFetcher) readBody(resp *http.Response) ([]byte, error) {
	var reader io.Reader = resp.Body

	encoding := strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Encoding")))
	switch encoding {
	case "gzip", "x-gzip":
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("gzip decode: %w", err)
		}
		defer gz.Close()
		reader = gz
	case "deflate":
		fl := flate.NewReader(resp.Body)
		defer fl.Close()
		reader = fl
	case "br":
		reader = brotli.NewReader(resp.Body)
	}

	body, err := io.ReadAll(io.LimitReader(reader, f.maxBodySize+1))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if int64(len(body)) > f.maxBodySize {
		return nil, fmt.Errorf("%w: %d bytes", ErrBodyTooLarge, f.maxBodySize)
	}
	return body, nil
}
