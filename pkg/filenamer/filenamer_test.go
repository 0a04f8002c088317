package filenamer

import (
	"testing"
	"time"
)

func TestName_Canonical(t *testing.T) {
	date := time.Date(2025, time.December, 15, 0, 0, 0, 0, time.UTC)

	got, err := Name("ROGE04", "7803", date, "68050-YYT-16-412")
	if err != nil {
		t.Fatalf("Name() error = %v", err)
	}

	want := "ROGE04_7803_15-Dec-2025_68050-YYT-16-412.pdf"
	if got != want {
		t.Errorf("Name() = %q, want %q", got, want)
	}
}

func TestName_Deterministic(t *testing.T) {
	date := time.Date(2025, time.November, 12, 0, 0, 0, 0, time.UTC)

	first, err := Name("HALI01", "6893", date, "68100-YHZ-11-412")
	if err != nil {
		t.Fatalf("Name() error = %v", err)
	}
	for i := 0; i < 5; i++ {
		again, err := Name("HALI01", "6893", date, "68100-YHZ-11-412")
		if err != nil {
			t.Fatalf("Name() repeat error = %v", err)
		}
		if again != first {
			t.Fatalf("Name() not deterministic: %q vs %q", again, first)
		}
	}
}

func TestName_DistinctInputsDistinctNames(t *testing.T) {
	date := time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC)
	later := date.AddDate(0, 0, 1)

	names := map[string]string{}
	cases := []struct {
		label              string
		vendor, suffix, gl string
		date               time.Time
	}{
		{"base", "MANI03", "7950", "68100-YWG-10-410", date},
		{"other vendor", "ENMA01", "7950", "68100-YWG-10-410", date},
		{"other suffix", "MANI03", "4193", "68100-YWG-10-410", date},
		{"other gl", "MANI03", "7950", "61202-YYC-11-412", date},
		{"other date", "MANI03", "7950", "68100-YWG-10-410", later},
	}
	for _, c := range cases {
		name, err := Name(c.vendor, c.suffix, c.date, c.gl)
		if err != nil {
			t.Fatalf("Name(%s) error = %v", c.label, err)
		}
		if prev, dup := names[name]; dup {
			t.Errorf("collision between %q and %q: both yield %q", prev, c.label, name)
		}
		names[name] = c.label
	}
}

func TestName_RejectsBadComponents(t *testing.T) {
	date := time.Date(2025, time.December, 15, 0, 0, 0, 0, time.UTC)

	cases := []struct {
		label              string
		vendor, suffix, gl string
	}{
		{"empty vendor", "", "7803", "68050-YYT-16-412"},
		{"empty suffix", "ROGE04", "", "68050-YYT-16-412"},
		{"empty gl", "ROGE04", "7803", ""},
		{"slash in suffix", "ROGE04", "78/03", "68050-YYT-16-412"},
		{"backslash in gl", "ROGE04", "7803", `68050\YYT`},
		{"non-ascii vendor", "ROGÉ04", "7803", "68050-YYT-16-412"},
	}
	for _, c := range cases {
		if _, err := Name(c.vendor, c.suffix, date, c.gl); err == nil {
			t.Errorf("Name(%s) succeeded, want error", c.label)
		}
	}
}

func TestName_RejectsZeroDate(t *testing.T) {
	if _, err := Name("ROGE04", "7803", time.Time{}, "68050-YYT-16-412"); err == nil {
		t.Error("Name() with zero date succeeded, want error")
	}
}
