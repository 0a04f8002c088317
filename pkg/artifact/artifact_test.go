package artifact

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestValidate_AcceptsPDF(t *testing.T) {
	if err := Validate([]byte("%PDF-1.7\n...")); err != nil {
		t.Errorf("Validate() error = %v, want nil", err)
	}
}

func TestValidate_RejectsNonPDF(t *testing.T) {
	cases := []struct {
		label string
		body  []byte
		want  string // substring expected in the excerpt
	}{
		{"html error page", []byte("<html><body><h1>Session expired</h1></body></html>"), "Session expired"},
		{"json error", []byte(`{"error":"unauthorized"}`), "unauthorized"},
		{"empty body", nil, "empty body"},
		{"truncated", []byte("%PD"), ""},
	}
	for _, c := range cases {
		err := Validate(c.body)
		if err == nil {
			t.Errorf("Validate(%s) = nil, want error", c.label)
			continue
		}
		var verr *ValidationError
		if !errors.As(err, &verr) {
			t.Errorf("Validate(%s) error type = %T, want *ValidationError", c.label, err)
			continue
		}
		if !strings.Contains(err.Error(), "content-type mismatch") {
			t.Errorf("Validate(%s) error %q missing content-type mismatch", c.label, err)
		}
		if c.want != "" && !strings.Contains(err.Error(), c.want) {
			t.Errorf("Validate(%s) error %q missing excerpt %q", c.label, err, c.want)
		}
	}
}

func TestStore_StageAndFinalize(t *testing.T) {
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}

	staged, err := store.Stage("ROGE04", 1, []byte("%PDF-1.4 payload"))
	if err != nil {
		t.Fatalf("Stage() error = %v", err)
	}
	if !strings.Contains(filepath.Base(staged), "temp_roge04_1_") {
		t.Errorf("Stage() name = %q, want temp_roge04_1_ prefix", filepath.Base(staged))
	}

	final, err := store.Finalize(staged, "ROGE04_7803_15-Dec-2025_68050-YYT-16-412.pdf")
	if err != nil {
		t.Fatalf("Finalize() error = %v", err)
	}

	if _, err := os.Stat(staged); !os.IsNotExist(err) {
		t.Error("staged file still exists after Finalize()")
	}
	data, err := os.ReadFile(final)
	if err != nil {
		t.Fatalf("read final artifact: %v", err)
	}
	if string(data) != "%PDF-1.4 payload" {
		t.Errorf("final artifact content = %q", data)
	}
}

func TestStore_Discard(t *testing.T) {
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	staged, err := store.Stage("HALI01", 0, []byte("not a pdf"))
	if err != nil {
		t.Fatalf("Stage() error = %v", err)
	}
	store.Discard(staged)
	if _, err := os.Stat(staged); !os.IsNotExist(err) {
		t.Error("staged file still exists after Discard()")
	}
}
