package vendors

import (
	"fmt"
	"time"

	"github.com/itc-ops/invoice-orchestrator/models"
	"github.com/itc-ops/invoice-orchestrator/pkg/artifact"
)

// Halifax Water runs a Mendix portal: account switching through a header
// dropdown, and invoices that open as a PDF document view in a new tab.
const (
	hwaterUsernameField   = `input[placeholder="Username"]`
	hwaterPasswordField   = `input[placeholder="Password"]`
	hwaterSignInButton    = "#mxui_widget_DataView_2 > div > div > div.mx-name-container88 > button"
	hwaterBillingMenu     = `a:has-text("Billing & Payments")`
	hwaterAccountDropdown = "button.dropdown-toggle.dropdown-button"
	hwaterSwitchConfirm   = `button:has-text("Switch")`
	hwaterAccountHeader   = "p.mx-name-layout-snippetCall1-snippetCall2-text16"
	hwaterBillButton      = "button.billbtn"
)

// HalifaxWater is the Halifax Water workflow.
type HalifaxWater struct {
	cfg   models.VendorConfig
	creds models.Credentials
}

// NewHalifaxWater builds the Halifax Water workflow.
func NewHalifaxWater(cfg models.VendorConfig, creds models.Credentials) *HalifaxWater {
	return &HalifaxWater{cfg: cfg, creds: creds}
}

func (h *HalifaxWater) Profile() models.VendorProfile      { return h.cfg.Profile }
func (h *HalifaxWater) Accounts() []models.AccountMetadata { return h.cfg.Accounts }
func (h *HalifaxWater) LoginURL() string                   { return h.creds.LoginURL }

func (h *HalifaxWater) Authenticate(s Browser, acct models.AccountMetadata) error {
	log := s.Log()
	log.Infof("signing in as %s", h.creds.Username)

	if err := s.Goto(h.creds.LoginURL, navTimeout); err != nil {
		return err
	}
	s.PauseBetween(1*time.Second, 3*time.Second)
	s.Capture("login_page")

	if err := s.WaitVisible(hwaterUsernameField, fieldTimeout); err != nil {
		return err
	}
	if err := s.TypeSlowly(hwaterUsernameField, h.creds.Username); err != nil {
		return err
	}
	if err := s.WaitVisible(hwaterPasswordField, fieldTimeout); err != nil {
		return err
	}
	if err := s.TypeSlowly(hwaterPasswordField, h.creds.Password); err != nil {
		return err
	}
	if err := s.Click(hwaterSignInButton); err != nil {
		return err
	}

	if err := s.WaitVisible(hwaterBillingMenu, postLoginWait); err != nil {
		return fmt.Errorf("billing menu never appeared after sign-in: %w", err)
	}
	s.Capture("after_login")
	log.Info("login successful")
	return nil
}

func (h *HalifaxWater) LocateInvoice(s Browser, acct models.AccountMetadata) error {
	log := s.Log()

	if h.cfg.Profile.HasAccountPicker {
		target := acct.DisplaySelector
		if target == "" {
			return fmt.Errorf("account %d has no display selector for the picker", acct.AccountIndex)
		}
		log.Infof("switching to account %q", target)

		if err := s.WaitVisible(hwaterAccountDropdown, fieldTimeout); err != nil {
			return err
		}
		if err := s.Click(hwaterAccountDropdown); err != nil {
			return err
		}
		if err := s.ClickByText(target); err != nil {
			return err
		}

		// A confirmation modal appears only when actually switching away
		// from the current account.
		if err := s.WaitVisible(hwaterSwitchConfirm, 5*time.Second); err == nil {
			if err := s.Click(hwaterSwitchConfirm); err != nil {
				return err
			}
		} else {
			log.Debug("no switch confirmation needed")
		}

		// The header must come back showing the account we asked for; a
		// mismatch is a failure, not something to push past.
		if err := s.WaitVisibleText(hwaterAccountHeader, target, 30*time.Second); err != nil {
			return fmt.Errorf("header never showed account %q: %w", target, err)
		}
		log.Infof("account switched to %q", target)
	}

	if err := s.WaitVisible(hwaterBillingMenu, postLoginWait); err != nil {
		return err
	}
	if err := s.Click(hwaterBillingMenu); err != nil {
		return err
	}
	s.Settle(3 * time.Second)
	s.Capture(fmt.Sprintf("billing_page_%d", acct.AccountIndex))

	if err := s.WaitVisible(hwaterBillButton, postLoginWait); err != nil {
		return fmt.Errorf("bill control not interactable: %w", err)
	}
	return nil
}

func (h *HalifaxWater) RetrieveInvoice(s Browser, acct models.AccountMetadata) (Retrieval, error) {
	log := s.Log()

	// The top bill button is the most recent invoice; it opens the PDF
	// as a document view in a new tab that must be fetched explicitly.
	pdfPage, err := s.ExpectNewPage(func() error {
		return s.Click(hwaterBillButton)
	}, 30*time.Second)
	if err != nil {
		return Retrieval{}, err
	}
	defer pdfPage.Close()

	pdfURL := pdfPage.URL()
	log.Infof("invoice document opened at %s", pdfURL)

	data, status, err := s.Fetch(pdfURL)
	if err != nil {
		return Retrieval{}, err
	}
	if status < 200 || status > 299 {
		return Retrieval{}, fmt.Errorf("invoice fetch returned HTTP %d: %s",
			status, artifact.DecodeBody(data))
	}

	log.Infof("fetched %d bytes", len(data))
	return Retrieval{Bytes: data, SuggestedName: fmt.Sprintf("hwater_%d.pdf", acct.AccountIndex)}, nil
}
