package bbox

import (
	"strings"
	"testing"

	"github.com/itc-ops/invoice-orchestrator/models"
)

func TestLooksLikeDate(t *testing.T) {
	cases := []struct {
		text string
		want bool
	}{
		{"Dec 15, 2025", true},
		{"15-Dec-2025", true},
		{"2025-12-15", true},
		{"December 15, 2025", true},
		{"Amount Due", false},
		{"", false},
		{"   ", false},
		{"1234567890", false},
		{"68050", false},
		{"$142.17", false},
	}
	for _, tc := range cases {
		if got := looksLikeDate(tc.text); got != tc.want {
			t.Errorf("looksLikeDate(%q) = %v, want %v", tc.text, got, tc.want)
		}
	}
}

func TestSuggestPadsRegion(t *testing.T) {
	f := Fragment{Region: models.Region{X0: 120, Y0: 46, X1: 166, Y1: 52}}
	got := Suggest(f)
	want := models.Region{X0: 118, Y0: 44, X1: 168, Y1: 54}
	if got != want {
		t.Fatalf("Suggest() = %+v, want %+v", got, want)
	}
}

func TestSuggestClampsAtOrigin(t *testing.T) {
	f := Fragment{Region: models.Region{X0: 1, Y0: 0, X1: 40, Y1: 10}}
	got := Suggest(f)
	if got.X0 < 0 || got.Y0 < 0 {
		t.Fatalf("Suggest() = %+v, went negative", got)
	}
}

func TestReportMarksDateCandidates(t *testing.T) {
	frags := []Fragment{
		{Text: "Amount Due", Region: models.Region{X0: 10, Y0: 10, X1: 80, Y1: 20}},
		{Text: "Dec 15, 2025", Region: models.Region{X0: 120, Y0: 46, X1: 166, Y1: 52}, IsDate: true},
	}
	out := Report(frags)

	if !strings.Contains(out, "DATE") {
		t.Error("report does not mark the date fragment")
	}
	if !strings.Contains(out, "Date candidates") {
		t.Error("report missing the candidate section")
	}
	if !strings.Contains(out, `"Dec 15, 2025" -> {x0: 118, y0: 44, x1: 168, y1: 54}`) {
		t.Errorf("report missing the region suggestion:\n%s", out)
	}
}

func TestReportWithoutDates(t *testing.T) {
	frags := []Fragment{
		{Text: "Amount Due", Region: models.Region{X0: 10, Y0: 10, X1: 80, Y1: 20}},
	}
	out := Report(frags)
	if strings.Contains(out, "Date candidates") {
		t.Error("report invented a candidate section with no dates")
	}
}

func TestScanMissingFile(t *testing.T) {
	if _, err := Scan("/nonexistent/invoice.pdf"); err == nil {
		t.Fatal("Scan() on a missing file succeeded, want error")
	}
}
