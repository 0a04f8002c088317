package vendors

import (
	"fmt"
	"sort"
	"strings"

	"github.com/itc-ops/invoice-orchestrator/models"
)

// Registry maps vendor codes to their workflow implementations.
type Registry struct {
	byCode map[string]Workflow
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{byCode: make(map[string]Workflow)}
}

// Register adds a workflow, rejecting duplicate vendor codes.
func (r *Registry) Register(w Workflow) error {
	code := w.Profile().VendorCode
	if _, dup := r.byCode[code]; dup {
		return fmt.Errorf("vendor %s already registered", code)
	}
	r.byCode[code] = w
	return nil
}

// Lookup returns the workflow for a vendor code.
func (r *Registry) Lookup(code string) (Workflow, bool) {
	w, ok := r.byCode[code]
	return w, ok
}

// Codes returns the registered vendor codes, sorted for stable iteration.
func (r *Registry) Codes() []string {
	codes := make([]string, 0, len(r.byCode))
	for code := range r.byCode {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// AllUnits expands the registry into the ordered batch of every account
// of every vendor.
func (r *Registry) AllUnits() []models.DownloadUnit {
	var units []models.DownloadUnit
	for _, code := range r.Codes() {
		w := r.byCode[code]
		for _, acct := range w.Accounts() {
			units = append(units, models.DownloadUnit{
				VendorCode:   code,
				AccountIndex: acct.AccountIndex,
			})
		}
	}
	return units
}

// Account resolves (vendorCode, accountIndex) to its metadata.
func (r *Registry) Account(code string, index int) (Workflow, models.AccountMetadata, error) {
	w, ok := r.byCode[code]
	if !ok {
		return nil, models.AccountMetadata{}, fmt.Errorf("unknown vendor %q", code)
	}
	for _, acct := range w.Accounts() {
		if acct.AccountIndex == index {
			return w, acct, nil
		}
	}
	return nil, models.AccountMetadata{}, fmt.Errorf("vendor %s has no account index %d", code, index)
}

// Build instantiates workflows for every configured vendor. Each entry's
// env prefix selects the implementation; credentials are resolved up
// front so a misconfigured vendor fails at bootstrap, not mid-batch.
func Build(cfg *models.Config) (*Registry, error) {
	reg := NewRegistry()
	for _, vc := range cfg.Vendors {
		creds, err := vc.ResolveCredentials()
		if err != nil {
			return nil, fmt.Errorf("vendor %s: %w", vc.Profile.VendorCode, err)
		}

		var w Workflow
		switch strings.ToLower(vc.EnvPrefix) {
		case "rogers":
			w = NewRogers(vc, creds)
		case "hwater":
			w = NewHalifaxWater(vc, creds)
		case "mhydro":
			w = NewManitobaHydro(vc, creds)
		case "enmax":
			w = NewEnmax(vc, creds)
		case "eastward":
			w = NewEastward(vc, creds)
		default:
			return nil, fmt.Errorf("no workflow implementation for %q", vc.EnvPrefix)
		}

		if err := reg.Register(w); err != nil {
			return nil, err
		}
	}
	return reg, nil
}
