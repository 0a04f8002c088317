package runlog

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewWritesVendorPrefixedFile(t *testing.T) {
	dir := t.TempDir()

	log, closer, err := New("ROGE04", dir)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	log.Info("session opened")
	if err := closer.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir() error = %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("len(entries) = %d, want 1", len(entries))
	}
	name := entries[0].Name()
	if !strings.HasPrefix(name, "ROGE04_") || !strings.HasSuffix(name, ".log") {
		t.Errorf("log file name = %q, want ROGE04_*.log", name)
	}

	data, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	content := string(data)
	if !strings.Contains(content, "session opened") {
		t.Errorf("log file missing the message:\n%s", content)
	}
	if !strings.Contains(content, "vendor=ROGE04") {
		t.Errorf("log file missing the vendor field:\n%s", content)
	}
}

func TestNewCreatesLogsDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "logs")

	_, closer, err := New("HALI01", dir)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	closer.Close()

	if _, err := os.Stat(dir); err != nil {
		t.Fatalf("logs dir not created: %v", err)
	}
}

func TestDiscardNeverWrites(t *testing.T) {
	log := Discard()
	log.Error("dropped")
}
