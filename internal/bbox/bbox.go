// Package bbox inspects the first page of an invoice PDF and lists every
// text fragment with its bounding box, flagging fragments that parse as
// dates. Operators run it once per vendor to calibrate the date region in
// the config file.
package bbox

import (
	"fmt"
	"sort"
	"strings"

	"github.com/araddon/dateparse"
	"github.com/ledongthuc/pdf"

	"github.com/itc-ops/invoice-orchestrator/models"
)

// Fragment is one positioned run of text on the page, in top-left origin
// coordinates matching the config file's region convention.
type Fragment struct {
	Text   string
	Region models.Region
	IsDate bool
}

// Scan reads the first page and groups its glyphs into fragments. Glyphs
// on the same line closer than the gap threshold join one fragment.
func Scan(pdfPath string) ([]Fragment, error) {
	f, reader, err := pdf.Open(pdfPath)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", pdfPath, err)
	}
	defer f.Close()

	if reader.NumPage() < 1 {
		return nil, fmt.Errorf("%s has no pages", pdfPath)
	}
	page := reader.Page(1)
	if page.V.IsNull() {
		return nil, fmt.Errorf("%s: first page unreadable", pdfPath)
	}
	height := pageHeight(page)

	texts := page.Content().Text
	sort.Slice(texts, func(i, j int) bool {
		if !sameLine(texts[i].Y, texts[j].Y) {
			return texts[i].Y > texts[j].Y
		}
		return texts[i].X < texts[j].X
	})

	var (
		frags []Fragment
		cur   strings.Builder
		reg   models.Region
		lastX float64
		lastY float64
		open  bool
	)

	flush := func() {
		if !open {
			return
		}
		text := strings.TrimSpace(cur.String())
		if text != "" {
			frags = append(frags, Fragment{
				Text:   text,
				Region: reg,
				IsDate: looksLikeDate(text),
			})
		}
		cur.Reset()
		open = false
	}

	const wordGap = 12.0
	for _, t := range texts {
		topY := height - t.Y
		if open && (!sameLine(t.Y, lastY) || t.X-lastX > wordGap) {
			flush()
		}
		if !open {
			reg = models.Region{X0: t.X, Y0: topY, X1: t.X, Y1: topY}
			open = true
		}
		cur.WriteString(t.S)
		if t.X < reg.X0 {
			reg.X0 = t.X
		}
		if t.X+t.W > reg.X1 {
			reg.X1 = t.X + t.W
		}
		if topY < reg.Y0 {
			reg.Y0 = topY
		}
		if topY > reg.Y1 {
			reg.Y1 = topY
		}
		lastX = t.X + t.W
		lastY = t.Y
	}
	flush()

	return frags, nil
}

// lineTolerance absorbs sub-point baseline jitter between glyphs on the
// same visual line.
const lineTolerance = 0.5

func sameLine(a, b float64) bool {
	d := a - b
	return d > -lineTolerance && d < lineTolerance
}

// Suggest pads a fragment's box by a couple of points in every direction
// so font jitter between invoices stays inside the region.
func Suggest(f Fragment) models.Region {
	const pad = 2.0
	r := f.Region
	return models.Region{
		X0: max(0, r.X0-pad),
		Y0: max(0, r.Y0-pad),
		X1: r.X1 + pad,
		Y1: r.Y1 + pad,
	}
}

// Report renders the scan for the terminal: every fragment with its box,
// date candidates marked and given a ready-to-paste region suggestion.
func Report(frags []Fragment) string {
	var b strings.Builder
	for _, f := range frags {
		mark := "    "
		if f.IsDate {
			mark = "DATE"
		}
		fmt.Fprintf(&b, "%s  [%6.1f %6.1f %6.1f %6.1f]  %s\n",
			mark, f.Region.X0, f.Region.Y0, f.Region.X1, f.Region.Y1, f.Text)
	}

	dated := false
	for _, f := range frags {
		if !f.IsDate {
			continue
		}
		if !dated {
			b.WriteString("\nDate candidates (paste into date_region):\n")
			dated = true
		}
		s := Suggest(f)
		fmt.Fprintf(&b, "  %q -> {x0: %.0f, y0: %.0f, x1: %.0f, y1: %.0f}\n",
			f.Text, s.X0, s.Y0, s.X1, s.Y1)
	}
	return b.String()
}

// looksLikeDate accepts fragments a lenient parser reads as a date, but
// rejects bare numbers that parse only because they resemble timestamps.
func looksLikeDate(text string) bool {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return false
	}
	hasLetter := strings.ContainsFunc(trimmed, func(r rune) bool {
		return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
	})
	hasSeparator := strings.ContainsAny(trimmed, "/-,.")
	if !hasLetter && !hasSeparator {
		return false
	}
	_, err := dateparse.ParseAny(trimmed)
	return err == nil
}

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
