package vendors

import (
	"fmt"

	"github.com/itc-ops/invoice-orchestrator/models"
)

// Eastward is registered so its account metadata stays in the registry,
// but the portal enforces two-factor authentication on every login and
// MFA automation is out of scope. Authenticate fails fast with a clear
// reason rather than opening a browser that will stall at the code
// prompt.
type Eastward struct {
	cfg   models.VendorConfig
	creds models.Credentials
}

// NewEastward builds the Eastward workflow.
func NewEastward(cfg models.VendorConfig, creds models.Credentials) *Eastward {
	return &Eastward{cfg: cfg, creds: creds}
}

func (e *Eastward) Profile() models.VendorProfile      { return e.cfg.Profile }
func (e *Eastward) Accounts() []models.AccountMetadata { return e.cfg.Accounts }
func (e *Eastward) LoginURL() string                   { return e.creds.LoginURL }

func (e *Eastward) Authenticate(s Browser, acct models.AccountMetadata) error {
	return fmt.Errorf("eastward portal enforces two-factor authentication; automation unavailable until codes are delivered to a mailbox the orchestrator can read")
}

func (e *Eastward) LocateInvoice(s Browser, acct models.AccountMetadata) error {
	return fmt.Errorf("eastward authentication unavailable")
}

func (e *Eastward) RetrieveInvoice(s Browser, acct models.AccountMetadata) (Retrieval, error) {
	return Retrieval{}, fmt.Errorf("eastward authentication unavailable")
}
