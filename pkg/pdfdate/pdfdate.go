// Package pdfdate pulls the authoritative invoice date out of a PDF by
// restricting text extraction to a configured bounding region and parsing
// the result against the vendor's date layout.
package pdfdate

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/ledongthuc/pdf"

	"github.com/itc-ops/invoice-orchestrator/models"
)

// secondaryToken matches one 2-4 letter all-caps token flanked by spaces.
// Several vendors print a bilingual date line ("Nov NOV 12, 2025"); the
// duplicated secondary-language month abbreviation is noise.
var secondaryToken = regexp.MustCompile(` [A-Z]{2,4} `)

// spaces collapses whitespace runs left behind by extraction or stripping.
var spaces = regexp.MustCompile(`\s+`)

// Extractor parses dates out of region text. The zero value uses the
// default bilingual-token normalization; vendors whose layout is irregular
// enough set Normalize to their own rewrite.
type Extractor struct {
	Normalize func(string) string
}

// Extract opens the PDF, reads the text inside region on the first page,
// and parses it against layout (a Go reference layout). It reports false
// on any failure - unreadable file, empty region, unparsable text - and
// never panics or returns an error; the caller decides the fallback.
func (e *Extractor) Extract(pdfPath string, region models.Region, layout string) (time.Time, bool) {
	text, err := RegionText(pdfPath, region)
	if err != nil {
		return time.Time{}, false
	}
	return e.ParseText(text, layout)
}

// ParseText normalizes and parses already-extracted region text.
func (e *Extractor) ParseText(text, layout string) (time.Time, bool) {
	normalize := e.Normalize
	if normalize == nil {
		normalize = StripSecondaryToken
	}

	text = strings.TrimSpace(spaces.ReplaceAllString(text, " "))
	if text == "" {
		return time.Time{}, false
	}

	text = strings.TrimSpace(normalize(text))
	if text == "" {
		return time.Time{}, false
	}

	date, err := time.Parse(layout, text)
	if err != nil {
		return time.Time{}, false
	}
	return date, true
}

// StripSecondaryToken removes exactly one 2-4 letter all-caps token flanked
// by spaces. This is the generic bilingual-layout normalization; it is
// deliberately not vendor-aware.
func StripSecondaryToken(text string) string {
	loc := secondaryToken.FindStringIndex(" " + text + " ")
	if loc == nil {
		return text
	}
	// Indexes are relative to the padded string; map back and splice,
	// keeping a single space where the token was.
	padded := " " + text + " "
	stripped := padded[:loc[0]] + " " + padded[loc[1]:]
	return strings.TrimSpace(spaces.ReplaceAllString(stripped, " "))
}

// RegionText extracts the text on page 1 whose glyph origins fall inside
// region. Region coordinates are PDF points with the origin at the page's
// top-left, matching how regions are discovered with the bbox tool.
func RegionText(pdfPath string, region models.Region) (string, error) {
	f, r, err := pdf.Open(pdfPath)
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	if r.NumPage() < 1 {
		return "", fmt.Errorf("pdf has no pages")
	}
	page := r.Page(1)
	if page.V.IsNull() {
		return "", fmt.Errorf("pdf page 1 unreadable")
	}

	height := pageHeight(page)

	var inside []pdf.Text
	for _, t := range page.Content().Text {
		// Glyph Y origins are measured from the bottom edge.
		if region.Contains(t.X, height-t.Y) {
			inside = append(inside, t)
		}
	}
	return joinGlyphs(inside), nil
}

// lineTolerance absorbs sub-point baseline jitter between glyphs on the
// same visual line. Extraction rounds differently across renderers; exact
// Y equality would split one line into several.
const lineTolerance = 0.5

// joinGlyphs orders region glyphs top-to-bottom, left-to-right and joins
// them, inserting a space at line breaks and at horizontal gaps wider than
// a point.
func joinGlyphs(inside []pdf.Text) string {
	if len(inside) == 0 {
		return ""
	}

	sameLine := func(a, b float64) bool {
		d := a - b
		return d > -lineTolerance && d < lineTolerance
	}

	sort.SliceStable(inside, func(i, j int) bool {
		if !sameLine(inside[i].Y, inside[j].Y) {
			return inside[i].Y > inside[j].Y // higher on page first
		}
		return inside[i].X < inside[j].X
	})

	var b strings.Builder
	prevEnd := -1.0
	prevY := inside[0].Y
	for _, t := range inside {
		switch {
		case !sameLine(t.Y, prevY):
			b.WriteByte(' ')
		case prevEnd >= 0 && t.X-prevEnd > 1.0:
			b.WriteByte(' ')
		}
		b.WriteString(t.S)
		prevEnd = t.X + t.W
		prevY = t.Y
	}
	return strings.TrimSpace(b.String())
}

// pageHeight reads the media box height, defaulting to US letter when the
// box is missing or degenerate.
func pageHeight(page pdf.Page) float64 {
	box := page.V.Key("MediaBox")
	if box.IsNull() || box.Len() < 4 {
		return 792
	}
	h := box.Index(3).Float64() - box.Index(1).Float64()
	if h <= 0 {
		return 792
	}
	return h
}
