// Package vendors holds the per-vendor portal workflows. Each vendor
// implements the same three-phase capability contract against a browser
// session; everything shared (session lifecycle, screenshot-on-failure,
// recovery retry, artifact validation) lives in the orchestrator, never
// here.
package vendors

import (
	"errors"
	"time"

	"github.com/playwright-community/playwright-go"
	"github.com/sirupsen/logrus"

	"github.com/itc-ops/invoice-orchestrator/models"
	"github.com/itc-ops/invoice-orchestrator/pkg/session"
)

// ErrChallengeDetected is returned by Authenticate when the portal serves
// an anti-automation interstitial instead of the login flow. It is the
// only recoverable authentication outcome: the orchestrator runs the
// recovery protocol and retries Authenticate exactly once.
var ErrChallengeDetected = errors.New("bot challenge detected")

// Browser is the slice of a live session the workflows drive. Narrowing
// to an interface keeps workflows testable against a fake, the same way
// the recovery protocol consumes its Pager slice.
type Browser interface {
	Log() *logrus.Entry
	Goto(url string, timeout time.Duration) error
	URL() string
	Content() (string, error)
	Capture(label string) string

	WaitVisible(selector string, timeout time.Duration) error
	WaitVisibleText(selector, want string, timeout time.Duration) error
	Click(selector string) error
	ClickForce(selector string) error
	ClickNth(selector string, n int) error
	ClickByText(want string) error
	Fill(selector, value string) error
	TypeSlowly(selector, value string) error
	ScrollTo(selector string) error
	Settle(d time.Duration)
	PauseBetween(min, max time.Duration)

	ExpectDownload(trigger func() error) ([]byte, string, error)
	ExpectNewPage(trigger func() error, timeout time.Duration) (playwright.Page, error)
	Fetch(url string) ([]byte, int, error)
}

var _ Browser = (*session.Session)(nil)

// Retrieval is a successfully downloaded invoice, still provisional.
type Retrieval struct {
	Bytes         []byte
	SuggestedName string
}

// Workflow is the capability contract one vendor portal implements. The
// three phases run in order against a single session; any error is
// terminal for the unit (after the orchestrator's one allowed recovery
// retry on ErrChallengeDetected).
type Workflow interface {
	// Profile returns the vendor's immutable registration record.
	Profile() models.VendorProfile

	// Accounts returns the vendor's account metadata, ordered by index.
	Accounts() []models.AccountMetadata

	// LoginURL is the portal entry point the recovery protocol
	// re-navigates to.
	LoginURL() string

	// Authenticate signs in. It does not select an account; that is
	// LocateInvoice's job.
	Authenticate(s Browser, acct models.AccountMetadata) error

	// LocateInvoice selects the account when the portal has a picker,
	// verifies the page reflects that account, and leaves the retrieval
	// control interactable.
	LocateInvoice(s Browser, acct models.AccountMetadata) error

	// RetrieveInvoice pulls the invoice bytes, via a browser download or
	// an explicitly fetched document view.
	RetrieveInvoice(s Browser, acct models.AccountMetadata) (Retrieval, error)
}

// Shared interaction timeouts. Element-state waits carry these bounds so
// no phase can hang past them.
const (
	navTimeout    = 60 * time.Second
	fieldTimeout  = 10 * time.Second
	postLoginWait = 20 * time.Second
	controlWait   = 15 * time.Second
)
