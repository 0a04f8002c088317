// Package session owns one browser engine instance, one isolated browsing
// context, and one page for the duration of a single download unit. It has
// no vendor knowledge; workflows drive it through the interaction
// primitives below.
package session

import (
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/playwright-community/playwright-go"
	"github.com/sirupsen/logrus"

	"github.com/itc-ops/invoice-orchestrator/models"
)

// InitError means the browser engine or channel could not be launched.
// Fatal to the unit, not the batch.
type InitError struct {
	Engine string
	Err    error
}

func (e *InitError) Error() string {
	return fmt.Sprintf("session init: launch %s: %v", e.Engine, e.Err)
}

func (e *InitError) Unwrap() error { return e.Err }

// Options configures a session for one unit.
type Options struct {
	Headless bool
	Engine   models.EngineConstraint

	// DownloadDir receives provisional artifacts saved from browser
	// downloads. ShotsDir receives diagnostic screenshots.
	DownloadDir string
	ShotsDir    string

	// SlowMo inserts a per-action delay in the driver, mimicking the
	// pacing of a human operator. Zero disables it.
	SlowMo time.Duration
}

// Session is one engine + context + page. Not safe for concurrent use;
// a session belongs to exactly one unit on one goroutine.
type Session struct {
	log *logrus.Entry

	pw      *playwright.Playwright
	browser playwright.Browser
	ctx     playwright.BrowserContext
	page    playwright.Page

	downloadDir string
	shotsDir    string

	step  int
	shots []string
}

// settleCap bounds the discouraged fixed "page settled" wait. Element-state
// waits are the supported primitive; vendor pages keep background network
// traffic alive indefinitely, so network-idle style waits are not offered
// at all.
const settleCap = 5 * time.Second

// Open launches the engine and prepares an isolated context and page.
// A vendor engine constraint with ForceHeaded wins over opts.Headless.
func Open(opts Options, log *logrus.Entry) (*Session, error) {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}

	for _, dir := range []string{opts.DownloadDir, opts.ShotsDir} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create session directory %s: %w", dir, err)
		}
	}

	pw, err := playwright.Run()
	if err != nil {
		return nil, &InitError{Engine: "playwright driver", Err: err}
	}

	engineName := opts.Engine.BrowserName
	if engineName == "" {
		engineName = "chromium"
	}
	var engine playwright.BrowserType
	switch engineName {
	case "chromium":
		engine = pw.Chromium
	case "firefox":
		engine = pw.Firefox
	case "webkit":
		engine = pw.WebKit
	default:
		_ = pw.Stop()
		return nil, &InitError{Engine: engineName, Err: fmt.Errorf("unknown browser engine")}
	}

	headless := opts.Headless
	if opts.Engine.ForceHeaded && headless {
		log.Warnf("engine %s/%s cannot run headless, forcing headed mode",
			engineName, opts.Engine.Channel)
		headless = false
	}

	launch := playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(headless),
	}
	if opts.Engine.Channel != "" {
		launch.Channel = playwright.String(opts.Engine.Channel)
	}
	if opts.SlowMo > 0 {
		launch.SlowMo = playwright.Float(float64(opts.SlowMo.Milliseconds()))
	}

	browser, err := engine.Launch(launch)
	if err != nil {
		_ = pw.Stop()
		label := engineName
		if opts.Engine.Channel != "" {
			label = engineName + "/" + opts.Engine.Channel
		}
		return nil, &InitError{Engine: label, Err: err}
	}

	ctx, err := browser.NewContext(playwright.BrowserNewContextOptions{
		AcceptDownloads: playwright.Bool(true),
		Viewport:        &playwright.Size{Width: 1920, Height: 1080},
	})
	if err != nil {
		_ = browser.Close()
		_ = pw.Stop()
		return nil, &InitError{Engine: engineName, Err: fmt.Errorf("new context: %w", err)}
	}

	page, err := ctx.NewPage()
	if err != nil {
		_ = ctx.Close()
		_ = browser.Close()
		_ = pw.Stop()
		return nil, &InitError{Engine: engineName, Err: fmt.Errorf("new page: %w", err)}
	}

	log.Infof("browser launched (%s, headless=%t)", engineName, headless)

	return &Session{
		log:         log,
		pw:          pw,
		browser:     browser,
		ctx:         ctx,
		page:        page,
		downloadDir: opts.DownloadDir,
		shotsDir:    opts.ShotsDir,
	}, nil
}

// Close tears down page, context, browser, and driver. Safe to call more
// than once; every exit path of the owning workflow must reach it.
func (s *Session) Close() {
	if s.ctx != nil {
		_ = s.ctx.Close()
		s.ctx = nil
	}
	if s.browser != nil {
		_ = s.browser.Close()
		s.browser = nil
	}
	if s.pw != nil {
		_ = s.pw.Stop()
		s.pw = nil
	}
	s.log.Info("browser closed")
}

// Capture writes a diagnostic screenshot tagged with a monotonically
// increasing step counter, the label, and a timestamp. It never fails the
// caller: capture problems are logged and swallowed.
func (s *Session) Capture(label string) string {
	s.step++
	name := fmt.Sprintf("%02d_%s_%s.png", s.step, label, time.Now().Format("20060102_150405"))
	path := filepath.Join(s.shotsDir, name)
	if _, err := s.page.Screenshot(playwright.PageScreenshotOptions{
		Path: playwright.String(path),
	}); err != nil {
		s.log.Warnf("screenshot %s failed: %v", label, err)
		return ""
	}
	s.shots = append(s.shots, path)
	s.log.Debugf("screenshot saved: %s", name)
	return path
}

// Shots returns the capture paths in the order they were taken.
func (s *Session) Shots() []string { return s.shots }

// Goto navigates and waits for DOM content only. Full loads are not waited
// for; callers follow up with WaitVisible on the element they need.
func (s *Session) Goto(url string, timeout time.Duration) error {
	_, err := s.page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
		Timeout:   playwright.Float(float64(timeout.Milliseconds())),
	})
	if err != nil {
		return fmt.Errorf("goto %s: %w", url, err)
	}
	return nil
}

// WaitVisible blocks until the selector's element is visible or the
// timeout elapses. This is the supported "page ready" primitive.
func (s *Session) WaitVisible(selector string, timeout time.Duration) error {
	err := s.page.Locator(selector).First().WaitFor(playwright.LocatorWaitForOptions{
		State:   playwright.WaitForSelectorStateVisible,
		Timeout: playwright.Float(float64(timeout.Milliseconds())),
	})
	if err != nil {
		return fmt.Errorf("wait for %s: %w", selector, err)
	}
	return nil
}

// WaitVisibleText waits for an element matching selector whose text
// contains want. Used by workflows to verify the page reflects the
// selected account before retrieving anything.
func (s *Session) WaitVisibleText(selector, want string, timeout time.Duration) error {
	loc := s.page.Locator(selector).Filter(playwright.LocatorFilterOptions{
		HasText: want,
	})
	err := loc.First().WaitFor(playwright.LocatorWaitForOptions{
		State:   playwright.WaitForSelectorStateVisible,
		Timeout: playwright.Float(float64(timeout.Milliseconds())),
	})
	if err != nil {
		return fmt.Errorf("wait for %s containing %q: %w", selector, want, err)
	}
	return nil
}

// Click clicks the first element matching selector.
func (s *Session) Click(selector string) error {
	if err := s.page.Locator(selector).First().Click(); err != nil {
		return fmt.Errorf("click %s: %w", selector, err)
	}
	return nil
}

// ClickForce clicks without actionability checks, for controls that
// overlap decorative elements.
func (s *Session) ClickForce(selector string) error {
	err := s.page.Locator(selector).First().Click(playwright.LocatorClickOptions{
		Force: playwright.Bool(true),
	})
	if err != nil {
		return fmt.Errorf("force click %s: %w", selector, err)
	}
	return nil
}

// ClickNth clicks the nth (0-based) element matching selector.
func (s *Session) ClickNth(selector string, n int) error {
	if err := s.page.Locator(selector).Nth(n).Click(); err != nil {
		return fmt.Errorf("click %s[%d]: %w", selector, n, err)
	}
	return nil
}

// ClickByText clicks the first element whose text contains want.
func (s *Session) ClickByText(want string) error {
	loc := s.page.GetByText(want, playwright.PageGetByTextOptions{Exact: playwright.Bool(false)})
	if err := loc.First().Click(); err != nil {
		return fmt.Errorf("click text %q: %w", want, err)
	}
	return nil
}

// Fill clears the field and sets its value in one driver call.
func (s *Session) Fill(selector, value string) error {
	if err := s.page.Locator(selector).First().Fill(value); err != nil {
		return fmt.Errorf("fill %s: %w", selector, err)
	}
	return nil
}

// TypeSlowly presses the value key by key with a randomized inter-key
// delay, the way a person types.
func (s *Session) TypeSlowly(selector, value string) error {
	delay := float64(100 + rand.Intn(200))
	err := s.page.Locator(selector).First().PressSequentially(value,
		playwright.LocatorPressSequentiallyOptions{Delay: playwright.Float(delay)})
	if err != nil {
		return fmt.Errorf("type into %s: %w", selector, err)
	}
	return nil
}

// TypeKeyboard types into whatever element currently holds focus. Some
// portals land with focus already on the username field.
func (s *Session) TypeKeyboard(value string) error {
	delay := float64(100 + rand.Intn(200))
	err := s.page.Keyboard().Type(value, playwright.KeyboardTypeOptions{
		Delay: playwright.Float(delay),
	})
	if err != nil {
		return fmt.Errorf("keyboard type: %w", err)
	}
	return nil
}

// ScrollTo scrolls the first matching element into view.
func (s *Session) ScrollTo(selector string) error {
	if err := s.page.Locator(selector).First().ScrollIntoViewIfNeeded(); err != nil {
		return fmt.Errorf("scroll to %s: %w", selector, err)
	}
	return nil
}

// Settle pauses for a fixed duration, capped at settleCap. Discouraged:
// prefer WaitVisible on a concrete element. It exists for the few portal
// transitions that expose nothing waitable.
func (s *Session) Settle(d time.Duration) {
	if d > settleCap {
		s.log.Warnf("settle %v capped to %v", d, settleCap)
		d = settleCap
	}
	time.Sleep(d)
}

// PauseBetween sleeps for a random duration in [min, max].
func (s *Session) PauseBetween(min, max time.Duration) {
	if max <= min {
		time.Sleep(min)
		return
	}
	time.Sleep(min + time.Duration(rand.Int63n(int64(max-min))))
}

// URL returns the page's current address.
func (s *Session) URL() string { return s.page.URL() }

// Content returns the page's full HTML.
func (s *Session) Content() (string, error) {
	html, err := s.page.Content()
	if err != nil {
		return "", fmt.Errorf("page content: %w", err)
	}
	return html, nil
}

// ExpectDownload runs trigger, waits for the browser-initiated download it
// causes, stages the file under the download directory, and returns its
// bytes plus the portal's suggested filename.
func (s *Session) ExpectDownload(trigger func() error) ([]byte, string, error) {
	download, err := s.page.ExpectDownload(trigger)
	if err != nil {
		return nil, "", fmt.Errorf("expect download: %w", err)
	}
	staged := filepath.Join(s.downloadDir, fmt.Sprintf(".staged_%d", time.Now().UnixNano()))
	if err := download.SaveAs(staged); err != nil {
		return nil, "", fmt.Errorf("save download: %w", err)
	}
	defer os.Remove(staged)
	data, err := os.ReadFile(staged)
	if err != nil {
		return nil, "", fmt.Errorf("read download: %w", err)
	}
	return data, download.SuggestedFilename(), nil
}

// ExpectNewPage runs trigger and returns the page (tab) it opens, fully
// loaded.
func (s *Session) ExpectNewPage(trigger func() error, timeout time.Duration) (playwright.Page, error) {
	newPage, err := s.ctx.ExpectPage(trigger)
	if err != nil {
		return nil, fmt.Errorf("expect new page: %w", err)
	}
	err = newPage.WaitForLoadState(playwright.PageWaitForLoadStateOptions{
		State:   playwright.LoadStateLoad,
		Timeout: playwright.Float(float64(timeout.Milliseconds())),
	})
	if err != nil {
		return nil, fmt.Errorf("load new page: %w", err)
	}
	return newPage, nil
}

// Fetch retrieves a URL through the context's request facility, carrying
// the session's cookies. Used for new-tab document views that must be
// pulled explicitly rather than downloaded by the browser.
func (s *Session) Fetch(url string) ([]byte, int, error) {
	resp, err := s.ctx.Request().Get(url)
	if err != nil {
		return nil, 0, fmt.Errorf("fetch %s: %w", url, err)
	}
	body, err := resp.Body()
	if err != nil {
		return nil, resp.Status(), fmt.Errorf("fetch body %s: %w", url, err)
	}
	return body, resp.Status(), nil
}

// MoveMouse moves the pointer to (x, y).
func (s *Session) MoveMouse(x, y float64) {
	if err := s.page.Mouse().Move(x, y); err != nil {
		s.log.Debugf("mouse move: %v", err)
	}
}

// Wheel scrolls the page by dy.
func (s *Session) Wheel(dy float64) {
	if err := s.page.Mouse().Wheel(0, dy); err != nil {
		s.log.Debugf("mouse wheel: %v", err)
	}
}

// ClickAt clicks raw coordinates, bypassing element resolution.
func (s *Session) ClickAt(x, y float64) {
	if err := s.page.Mouse().Click(x, y); err != nil {
		s.log.Debugf("mouse click at (%.0f, %.0f): %v", x, y, err)
	}
}

// BoundingBox returns the first matching element's box, or an error if it
// is detached or invisible.
func (s *Session) BoundingBox(selector string) (x, y, w, h float64, err error) {
	box, err := s.page.Locator(selector).First().BoundingBox()
	if err != nil || box == nil {
		return 0, 0, 0, 0, fmt.Errorf("bounding box %s: element not visible", selector)
	}
	return box.X, box.Y, box.Width, box.Height, nil
}

// Log returns the session's logger for workflows that want to add fields.
func (s *Session) Log() *logrus.Entry { return s.log }
