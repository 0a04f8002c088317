package vendors

import (
	"fmt"
	"strings"
	"time"

	"github.com/itc-ops/invoice-orchestrator/models"
)

// Rogers portal selectors, current as of the Angular shell deployed late
// 2025. The deep chained selectors are brittle but the portal exposes no
// stable ids for these controls.
const (
	rogersUsernameField  = "#ds-form-input-id-0"
	rogersContinueButton = "body > app-root > div > div > div > div > div > div > div > div > ng-component > form > div.text-center.signInButton > button"
	rogersPasswordField  = "#input_password"
	rogersSignInButton   = "#LoginForm > div.text-center.signInButton > button"
	rogersAccountModal   = "#ds-modal-container-0 > rss-account-selector"
	rogersAccountButtons = "#ds-modal-container-0 > rss-account-selector ds-modal div.ds-modal__body a"
	rogersViewBillLink   = `a[aria-label*="View bill for account number"]`
	rogersSavePDFButton  = "#mainContent rss-view-bill rss-save-bill button:nth-child(2)"
	rogersDownloadButton = "#ds-modal-container-1 rss-save-pdf-modal button.-primary"
)

// Rogers drives the Rogers business portal: password login behind a bot
// interstitial, an account picker modal, and a same-tab PDF download.
type Rogers struct {
	cfg   models.VendorConfig
	creds models.Credentials
}

// NewRogers builds the Rogers workflow.
func NewRogers(cfg models.VendorConfig, creds models.Credentials) *Rogers {
	return &Rogers{cfg: cfg, creds: creds}
}

func (r *Rogers) Profile() models.VendorProfile      { return r.cfg.Profile }
func (r *Rogers) Accounts() []models.AccountMetadata { return r.cfg.Accounts }
func (r *Rogers) LoginURL() string                   { return r.creds.LoginURL }

// rogersChallenged reports whether the page is the rc01 bot-mitigation
// interstitial, identified by URL marker or page text.
func rogersChallenged(pageURL, content string) bool {
	if strings.Contains(pageURL, "error=rc01") {
		return true
	}
	lower := strings.ToLower(content)
	return strings.Contains(lower, "rc01") || strings.Contains(lower, "something went wrong")
}

func (r *Rogers) Authenticate(s Browser, acct models.AccountMetadata) error {
	log := s.Log()
	log.Infof("signing in as %s", r.creds.Username)

	if err := s.Goto(r.creds.LoginURL, navTimeout); err != nil {
		return err
	}
	s.PauseBetween(1*time.Second, 3*time.Second)
	s.Capture("login_page")

	if err := s.WaitVisible(rogersUsernameField, fieldTimeout); err != nil {
		return err
	}
	if err := s.Fill(rogersUsernameField, ""); err != nil {
		return err
	}
	if err := s.TypeSlowly(rogersUsernameField, r.creds.Username); err != nil {
		return err
	}
	if err := s.Click(rogersContinueButton); err != nil {
		return err
	}
	s.Settle(3 * time.Second)

	// The interstitial appears after Continue, before the password step.
	content, err := s.Content()
	if err != nil {
		return err
	}
	if rogersChallenged(s.URL(), content) {
		return fmt.Errorf("rc01 interstitial after continue: %w", ErrChallengeDetected)
	}

	if err := s.WaitVisible(rogersPasswordField, fieldTimeout); err != nil {
		return err
	}
	if err := s.TypeSlowly(rogersPasswordField, r.creds.Password); err != nil {
		return err
	}
	if err := s.Click(rogersSignInButton); err != nil {
		return err
	}
	log.Info("sign-in submitted")

	// The account selector modal is the reliable post-login marker.
	if err := s.WaitVisible(rogersAccountModal, postLoginWait); err != nil {
		content, cerr := s.Content()
		if cerr == nil && rogersChallenged(s.URL(), content) {
			return fmt.Errorf("rc01 interstitial after sign-in: %w", ErrChallengeDetected)
		}
		return fmt.Errorf("account selector never appeared: %w", err)
	}
	s.Capture("after_login")
	log.Info("login successful")
	return nil
}

func (r *Rogers) LocateInvoice(s Browser, acct models.AccountMetadata) error {
	log := s.Log()
	log.Infof("selecting account #%d", acct.AccountIndex+1)

	if err := s.ClickNth(rogersAccountButtons, acct.AccountIndex); err != nil {
		return err
	}

	if err := s.WaitVisible(rogersViewBillLink, controlWait); err != nil {
		return err
	}
	// The view-bill link's label carries the account number; require the
	// suffix we expect so a mis-click on the picker cannot slip through.
	if err := s.WaitVisibleText(rogersViewBillLink, acct.AccountSuffix, fieldTimeout); err != nil {
		return fmt.Errorf("account page does not show account ending %s: %w", acct.AccountSuffix, err)
	}
	s.Capture(fmt.Sprintf("account_%d", acct.AccountIndex+1))

	if err := s.ScrollTo(rogersViewBillLink); err != nil {
		return err
	}
	if err := s.ClickForce(rogersViewBillLink); err != nil {
		return err
	}
	log.Info("opened bill page")

	if err := s.WaitVisible(rogersSavePDFButton, controlWait); err != nil {
		return fmt.Errorf("save-pdf control not interactable: %w", err)
	}
	s.Capture(fmt.Sprintf("bill_page_%d", acct.AccountIndex+1))
	return nil
}

func (r *Rogers) RetrieveInvoice(s Browser, acct models.AccountMetadata) (Retrieval, error) {
	log := s.Log()

	if err := s.ScrollTo(rogersSavePDFButton); err != nil {
		return Retrieval{}, err
	}
	if err := s.Click(rogersSavePDFButton); err != nil {
		return Retrieval{}, err
	}
	s.Settle(2 * time.Second)
	s.Capture(fmt.Sprintf("save_modal_%d", acct.AccountIndex+1))

	if err := s.WaitVisible(rogersDownloadButton, fieldTimeout); err != nil {
		return Retrieval{}, err
	}

	data, suggested, err := s.ExpectDownload(func() error {
		return s.Click(rogersDownloadButton)
	})
	if err != nil {
		return Retrieval{}, err
	}
	log.Infof("downloaded %d bytes (%s)", len(data), suggested)
	return Retrieval{Bytes: data, SuggestedName: suggested}, nil
}
