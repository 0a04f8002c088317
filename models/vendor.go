// Package models defines the shared value types for vendor profiles,
// accounts, download units, and outcomes.
package models

import (
	"fmt"
	"time"
)

// Region is a rectangle in PDF page coordinates, origin top-left.
// Units are PDF points (1/72 inch), matching the first page's media box.
type Region struct {
	X0 float64 `yaml:"x0"`
	Y0 float64 `yaml:"y0"`
	X1 float64 `yaml:"x1"`
	Y1 float64 `yaml:"y1"`
}

// Contains reports whether the point (x, y) falls inside the region.
func (r Region) Contains(x, y float64) bool {
	return x >= r.X0 && x <= r.X1 && y >= r.Y0 && y <= r.Y1
}

// IsZero reports whether the region was never configured.
func (r Region) IsZero() bool {
	return r.X0 == 0 && r.Y0 == 0 && r.X1 == 0 && r.Y1 == 0
}

// EngineConstraint pins a vendor to a specific browser engine or channel.
// ForceHeaded is for engines/channels that cannot render headless; it
// overrides the caller's headless preference.
type EngineConstraint struct {
	BrowserName string `yaml:"browser,omitempty"` // chromium, firefox, webkit; empty means chromium
	Channel     string `yaml:"channel,omitempty"` // e.g. msedge, chrome
	ForceHeaded bool   `yaml:"force_headed,omitempty"`
}

// Duration wraps time.Duration so "25s"-style values parse from YAML.
type Duration time.Duration

// UnmarshalYAML parses Go duration strings like "25s" or "1m30s".
func (d *Duration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var raw string
	if err := unmarshal(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// RecoveryPolicy controls the bot-detection recovery protocol for a vendor.
// MinPause/MaxPause bound the randomized cool-down between recovery and the
// single authenticate retry.
type RecoveryPolicy struct {
	Enabled  bool     `yaml:"enabled"`
	MinPause Duration `yaml:"min_pause"`
	MaxPause Duration `yaml:"max_pause"`
}

// VendorProfile is the immutable per-vendor registration record, shared by
// all of the vendor's accounts.
type VendorProfile struct {
	VendorCode  string `yaml:"vendor_code" validate:"required,len=6"`
	MaxAccounts int    `yaml:"max_accounts" validate:"required,gt=0"`

	// HasAccountPicker declares whether the portal presents an account
	// selector after login. Single-account vendors set this false and
	// workflows skip selection instead of probing the page for a control
	// that may simply be slow to render.
	HasAccountPicker bool `yaml:"has_account_picker"`

	DateRegion Region `yaml:"date_region"`

	// DateLayout is a Go reference layout, e.g. "Jan 2, 2006".
	DateLayout string `yaml:"date_layout" validate:"required"`

	Recovery RecoveryPolicy   `yaml:"recovery"`
	Engine   EngineConstraint `yaml:"engine"`
}

// AccountMetadata identifies one billing account within a vendor.
// Immutable; looked up by (VendorCode, AccountIndex).
type AccountMetadata struct {
	AccountIndex  int    `yaml:"account_index" validate:"gte=0"`
	AccountSuffix string `yaml:"account_suffix" validate:"required"`
	GLCode        string `yaml:"gl_code" validate:"required"`

	// DisplaySelector is the on-portal label that disambiguates this
	// account in a multi-account picker, e.g. "270 GOUDEY DR". Empty for
	// vendors without a picker.
	DisplaySelector string `yaml:"display_selector,omitempty"`
}

// DownloadUnit is the unit of work: one (vendor, account) attempt.
type DownloadUnit struct {
	VendorCode   string `json:"vendor"`
	AccountIndex int    `json:"account"`
}

func (u DownloadUnit) String() string {
	return fmt.Sprintf("%s#%d", u.VendorCode, u.AccountIndex)
}
