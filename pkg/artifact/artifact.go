// Package artifact stages downloaded invoice bytes, validates that they
// really are a PDF, and atomically renames provisional files to their
// final canonical names.
package artifact

import (
	"bytes"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"
)

// pdfMagic is the file signature every valid artifact must open with.
const pdfMagic = "%PDF"

// excerptLimit caps how much decoded text a validation failure carries.
const excerptLimit = 300

// ValidationError means the downloaded content is not a PDF. Excerpt holds
// decoded text from the body (an HTML error page, a JSON error payload) so
// the failure can be diagnosed without re-running the unit.
type ValidationError struct {
	Excerpt string
}

func (e *ValidationError) Error() string {
	if e.Excerpt == "" {
		return "artifact content-type mismatch: not a PDF"
	}
	return fmt.Sprintf("artifact content-type mismatch: not a PDF: %s", e.Excerpt)
}

// Validate checks the PDF file signature. Non-PDF content is never
// silently accepted: the decoded text travels back in the error.
func Validate(data []byte) error {
	if len(data) >= len(pdfMagic) && string(data[:len(pdfMagic)]) == pdfMagic {
		return nil
	}
	return &ValidationError{Excerpt: DecodeBody(data)}
}

// DecodeBody turns a non-PDF response body into a short diagnostic string.
// HTML goes through readability first (it strips navigation chrome down to
// the message a human would see), then a plain DOM text walk; anything
// else is excerpted raw.
func DecodeBody(data []byte) string {
	text := strings.TrimSpace(string(data))
	if text == "" {
		return "(empty body)"
	}

	if strings.HasPrefix(text, "<") || strings.Contains(text, "<html") {
		pageURL, _ := url.Parse("https://portal.invalid/")
		parser := readability.NewParser()
		if article, err := parser.Parse(bytes.NewReader(data), pageURL); err == nil {
			if t := strings.TrimSpace(article.TextContent); t != "" {
				return excerpt(t)
			}
		}
		if doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data)); err == nil {
			if t := strings.TrimSpace(doc.Find("body").Text()); t != "" {
				return excerpt(t)
			}
		}
	}
	return excerpt(text)
}

func excerpt(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if len(s) > excerptLimit {
		return s[:excerptLimit] + "..."
	}
	return s
}

// Store manages the download directory: provisional staging and the final
// atomic rename.
type Store struct {
	dir string
}

// NewStore ensures the download directory exists.
func NewStore(dir string) (*Store, error) {
	if dir == "" {
		return nil, fmt.Errorf("download directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create download directory: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Dir returns the download directory path.
func (s *Store) Dir() string { return s.dir }

// Stage writes validated bytes to a provisional file. The name carries the
// vendor, account, and a timestamp so concurrent-looking leftovers from
// crashed runs never collide.
func (s *Store) Stage(vendorCode string, accountIndex int, data []byte) (string, error) {
	name := fmt.Sprintf("temp_%s_%d_%s.pdf",
		strings.ToLower(vendorCode), accountIndex, time.Now().Format("20060102150405"))
	path := filepath.Join(s.dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("stage artifact: %w", err)
	}
	return path, nil
}

// Finalize renames a staged artifact to its canonical name in one rename
// call, so observers of the download directory never see a half-written
// final file.
func (s *Store) Finalize(stagedPath, finalName string) (string, error) {
	finalPath := filepath.Join(s.dir, finalName)
	if err := os.Rename(stagedPath, finalPath); err != nil {
		return "", fmt.Errorf("finalize artifact: %w", err)
	}
	return finalPath, nil
}

// Discard removes a staged artifact that failed downstream processing.
func (s *Store) Discard(stagedPath string) {
	_ = os.Remove(stagedPath)
}
