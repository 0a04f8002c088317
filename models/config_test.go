package models

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const validConfig = `
download_dir: downloads
logs_dir: logs
headless: true
vendors:
  - env_prefix: ROGERS
    profile:
      vendor_code: ROGE04
      max_accounts: 4
      date_region: {x0: 118, y0: 44, x1: 168, y1: 54}
      date_layout: "Jan 2, 2006"
    accounts:
      - account_index: 0
        account_suffix: "7803"
        gl_code: 68050-YYT-16-412
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}

func TestLoadConfig(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, validConfig))
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.ListenAddr != ":8080" {
		t.Errorf("default ListenAddr = %q, want :8080", cfg.ListenAddr)
	}
	if len(cfg.Vendors) != 1 {
		t.Fatalf("len(Vendors) = %d, want 1", len(cfg.Vendors))
	}
	v := cfg.Vendors[0]
	if v.Profile.VendorCode != "ROGE04" {
		t.Errorf("vendor code = %q", v.Profile.VendorCode)
	}
	if v.Profile.DateRegion.IsZero() {
		t.Error("date region not parsed")
	}
	if v.Accounts[0].GLCode != "68050-YYT-16-412" {
		t.Errorf("gl code = %q", v.Accounts[0].GLCode)
	}
}

func TestLoadConfigRejectsDuplicateVendorCode(t *testing.T) {
	dup := validConfig + `  - env_prefix: ROGERS2
    profile:
      vendor_code: ROGE04
      max_accounts: 4
      date_layout: "Jan 2, 2006"
    accounts:
      - account_index: 0
        account_suffix: "1111"
        gl_code: 68050-YYT-16-999
`
	_, err := LoadConfig(writeConfig(t, dup))
	if err == nil || !strings.Contains(err.Error(), "duplicate vendor code") {
		t.Fatalf("LoadConfig() error = %v, want duplicate vendor code", err)
	}
}

func TestLoadConfigRejectsTooManyAccounts(t *testing.T) {
	over := strings.Replace(validConfig, "max_accounts: 4", "max_accounts: 1", 1)
	over += `      - account_index: 1
        account_suffix: "9911"
        gl_code: 68050-YYT-16-413
`
	_, err := LoadConfig(writeConfig(t, over))
	if err == nil || !strings.Contains(err.Error(), "max is 1") {
		t.Fatalf("LoadConfig() error = %v, want account cap violation", err)
	}
}

func TestLoadConfigRejectsShortVendorCode(t *testing.T) {
	bad := strings.Replace(validConfig, "ROGE04", "ROG", 1)
	if _, err := LoadConfig(writeConfig(t, bad)); err == nil {
		t.Fatal("LoadConfig() with 3-char vendor code succeeded, want error")
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("LoadConfig() on a missing file succeeded, want error")
	}
}

func TestResolveCredentials(t *testing.T) {
	t.Setenv("ROGERS_LOGIN_URL", "https://portal.example/login")
	t.Setenv("ROGERS_USERNAME", "ops")
	t.Setenv("ROGERS_PASSWORD", "hunter2")

	vc := VendorConfig{EnvPrefix: "rogers"}
	creds, err := vc.ResolveCredentials()
	if err != nil {
		t.Fatalf("ResolveCredentials() error = %v", err)
	}
	if creds.LoginURL != "https://portal.example/login" || creds.Username != "ops" {
		t.Errorf("creds = %+v", creds)
	}
}

func TestResolveCredentialsMissing(t *testing.T) {
	vc := VendorConfig{EnvPrefix: "NOSUCHVENDOR"}
	if _, err := vc.ResolveCredentials(); err == nil {
		t.Fatal("ResolveCredentials() without env vars succeeded, want error")
	}
}

func TestSMTPConfigured(t *testing.T) {
	if (SMTPConfig{}).Configured() {
		t.Error("empty smtp config reports configured")
	}
	full := SMTPConfig{Host: "smtp.example", From: "a@example", To: []string{"b@example"}}
	if !full.Configured() {
		t.Error("complete smtp config reports unconfigured")
	}
}
