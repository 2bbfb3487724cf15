package store

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/nao1215/sitecrawl/internal/model"
)

const (
	// fileExt is appended to every stored page.
	fileExt = ".txt"

	// maxBaseLen is the longest file name (without extension) we produce.
	// Most filesystems cap names at 255 bytes.
	maxBaseLen = 200

	// hashLen is the number of hex characters of the SHA-256 suffix used
	// for shortened names.
	hashLen = 16
)

// StoreError reports a page that could not be written.
type StoreError struct {
	// URL is the page URL.
	URL string
	// Path is the target file path.
	Path string
	// Err is the underlying cause.
	Err error
}

// Error implements the error interface.
func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s to %s: %v", e.URL, e.Path, e.Err)
}

// Unwrap returns the underlying cause.
func (e *StoreError) Unwrap() error {
	return e.Err
}

// FileName maps a normalized URL to a file name:
// the scheme is stripped, path separators become "_", trailing "_" are
// trimmed and ".txt" is appended. Long names are cut and suffixed with a
// hash of the full name so distinct URLs keep distinct files.
func FileName(u model.NormalizedURL) string {
	s := u.String()
	s = strings.TrimPrefix(s, "https://")
	s = strings.TrimPrefix(s, "http://")
	s = strings.NewReplacer("/", "_", `\`, "_").Replace(s)
	s = strings.TrimRight(s, "_")

	if len(s) > maxBaseLen {
		sum := sha256.Sum256([]byte(s))
		cut := maxBaseLen - hashLen - 1
		for cut > 0 && !utf8.RuneStart(s[cut]) {
			cut--
		}
		s = s[:cut] + "_" + hex.EncodeToString(sum[:])[:hashLen]
	}

	return s + fileExt
}

// Store writes page text under a directory.
type Store struct {
	dir string
}

// New creates a Store rooted at dir. Call Prepare before Save.
func New(dir string) *Store {
	return &Store{dir: dir}
}

// Dir returns the output directory.
func (s *Store) Dir() string {
	return s.dir
}

// Prepare creates the output directory if it does not exist.
// A failure here means no page can be stored, so callers treat it as fatal.
func (s *Store) Prepare() error {
	if err := os.MkdirAll(s.dir, 0750); err != nil {
		return fmt.Errorf("failed to create output directory %s: %w", s.dir, err)
	}
	return nil
}

// Path returns the file path Save would use for u.
func (s *Store) Path(u model.NormalizedURL) string {
	return filepath.Join(s.dir, FileName(u))
}

// Save writes text for u and returns the file path.
// An existing file for the same URL is replaced.
func (s *Store) Save(u model.NormalizedURL, text string) (string, error) {
	path := s.Path(u)
	if err := writeFileAtomic(path, []byte(text)); err != nil {
		return "", &StoreError{URL: u.String(), Path: path, Err: err}
	}
	return path, nil
}

// writeFileAtomic writes data to a temporary file next to path and
// renames it into place.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".sitecrawl-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	cleanup := func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}

	if _, err := tmp.Write(data); err != nil {
		cleanup()
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Chmod(0644); err != nil {
		cleanup()
		return fmt.Errorf("failed to set file mode: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}
