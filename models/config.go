package models

import (
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// VendorConfig is one vendor's registry entry: its immutable profile plus
// the accounts it serves. Credentials are NOT stored here; they come from
// the environment under EnvPrefix (see ResolveCredentials).
type VendorConfig struct {
	Profile  VendorProfile     `yaml:"profile" validate:"required"`
	Accounts []AccountMetadata `yaml:"accounts" validate:"required,min=1,dive"`

	// EnvPrefix names the credential variables, e.g. "ROGERS" reads
	// ROGERS_LOGIN_URL, ROGERS_USERNAME, ROGERS_PASSWORD.
	EnvPrefix string `yaml:"env_prefix" validate:"required"`
}

// SMTPConfig configures the batch result email.
// The password comes from EMAIL_PASSWORD in the environment, never the file.
type SMTPConfig struct {
	Host     string   `yaml:"host"`
	Port     int      `yaml:"port"`
	Username string   `yaml:"username"`
	From     string   `yaml:"from"`
	To       []string `yaml:"to"`
}

// Config is the full runtime configuration.
type Config struct {
	DownloadDir string `yaml:"download_dir" validate:"required"`
	LogsDir     string `yaml:"logs_dir" validate:"required"`
	Headless    bool   `yaml:"headless"`
	ListenAddr  string `yaml:"listen_addr"`

	SMTP SMTPConfig `yaml:"smtp"`

	Vendors []VendorConfig `yaml:"vendors" validate:"required,min=1,dive"`
}

// Credentials is a vendor's portal login material, resolved from the
// environment at run time so secrets never live in the registry file.
type Credentials struct {
	LoginURL string
	Username string
	Password string
}

// LoadConfig reads the registry file, overlays .env if present, and
// validates the result. A missing .env is not an error; a malformed
// registry or a profile that fails validation is.
func LoadConfig(path string) (*Config, error) {
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if cfg.ListenAddr == "" {
		cfg.ListenAddr = ":8080"
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	seen := make(map[string]bool, len(cfg.Vendors))
	for _, v := range cfg.Vendors {
		code := v.Profile.VendorCode
		if seen[code] {
			return nil, fmt.Errorf("duplicate vendor code %q", code)
		}
		seen[code] = true
		if len(v.Accounts) > v.Profile.MaxAccounts {
			return nil, fmt.Errorf("vendor %s declares %d accounts, max is %d",
				code, len(v.Accounts), v.Profile.MaxAccounts)
		}
	}

	return &cfg, nil
}

// VendorByCode returns the registry entry for a vendor code.
func (c *Config) VendorByCode(code string) (VendorConfig, bool) {
	for _, v := range c.Vendors {
		if v.Profile.VendorCode == code {
			return v, true
		}
	}
	return VendorConfig{}, false
}

// ResolveCredentials reads a vendor's login material from the environment.
func (v VendorConfig) ResolveCredentials() (Credentials, error) {
	prefix := strings.ToUpper(v.EnvPrefix)
	creds := Credentials{
		LoginURL: os.Getenv(prefix + "_LOGIN_URL"),
		Username: os.Getenv(prefix + "_USERNAME"),
		Password: os.Getenv(prefix + "_PASSWORD"),
	}
	if creds.LoginURL == "" || creds.Username == "" || creds.Password == "" {
		return Credentials{}, fmt.Errorf("%s_LOGIN_URL, %s_USERNAME and %s_PASSWORD must be set",
			prefix, prefix, prefix)
	}
	return creds, nil
}

// EmailPassword returns the SMTP password from the environment.
func (s SMTPConfig) EmailPassword() string {
	return os.Getenv("EMAIL_PASSWORD")
}

// Configured reports whether enough SMTP settings exist to attempt a send.
func (s SMTPConfig) Configured() bool {
	return s.Host != "" && s.From != "" && len(s.To) > 0
}
