// Package orchestrator drives one account at a time through its vendor
// workflow: session lifecycle, the single allowed recovery retry,
// screenshot-on-failure, artifact validation and naming, and guaranteed
// teardown. All unit failures stop here as structured outcomes; nothing
// raw ever reaches the batch driver.
package orchestrator

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/itc-ops/invoice-orchestrator/internal/history"
	"github.com/itc-ops/invoice-orchestrator/internal/vendors"
	"github.com/itc-ops/invoice-orchestrator/models"
	"github.com/itc-ops/invoice-orchestrator/pkg/artifact"
	"github.com/itc-ops/invoice-orchestrator/pkg/filenamer"
	"github.com/itc-ops/invoice-orchestrator/pkg/jobs"
	"github.com/itc-ops/invoice-orchestrator/pkg/pdfdate"
	"github.com/itc-ops/invoice-orchestrator/pkg/recovery"
	"github.com/itc-ops/invoice-orchestrator/pkg/runlog"
	"github.com/itc-ops/invoice-orchestrator/pkg/session"
)

// Notifier delivers the completed batch report. Implemented by
// internal/notify; nil disables delivery.
type Notifier interface {
	SendBatchReport(job *jobs.Job) error
}

// dateNormalizer is the override seam for vendors whose date region is
// too irregular for the generic bilingual-token strip.
type dateNormalizer interface {
	NormalizeDateText(s string) string
}

// unitSession is everything RunUnit needs from a live session: the
// workflow-facing browser surface plus the recovery interactions and
// teardown. *session.Session satisfies it.
type unitSession interface {
	vendors.Browser
	MoveMouse(x, y float64)
	Wheel(dy float64)
	Shots() []string
	Close()
}

var _ unitSession = (*session.Session)(nil)
var _ recovery.Pager = (unitSession)(nil)

// Orchestrator coordinates units and batches. One orchestration goroutine
// executes units strictly sequentially; the manager's snapshots are the
// only thing other goroutines touch.
type Orchestrator struct {
	cfg      *models.Config
	registry *vendors.Registry
	manager  *jobs.Manager
	store    *artifact.Store
	history  *history.Store // optional
	notifier Notifier       // optional

	// openSession launches the browser for one unit. Tests substitute a
	// fake to drive the phase pipeline without an engine.
	openSession func(opts session.Options, log *logrus.Entry) (unitSession, error)
}

// New wires an orchestrator. history and notifier may be nil.
func New(cfg *models.Config, registry *vendors.Registry, manager *jobs.Manager,
	store *artifact.Store, hist *history.Store, notifier Notifier) *Orchestrator {
	return &Orchestrator{
		cfg:      cfg,
		registry: registry,
		manager:  manager,
		store:    store,
		history:  hist,
		notifier: notifier,
		openSession: func(opts session.Options, log *logrus.Entry) (unitSession, error) {
			s, err := session.Open(opts, log)
			if err != nil {
				return nil, err
			}
			return s, nil
		},
	}
}

// Manager exposes the job manager for the polling layer.
func (o *Orchestrator) Manager() *jobs.Manager { return o.manager }

// Registry exposes the vendor registry for the listing layer.
func (o *Orchestrator) Registry() *vendors.Registry { return o.registry }

// RunUnit executes one (vendor, account) unit end to end and always
// returns an outcome: any phase failure short-circuits the rest, captures
// a diagnostic screenshot tagged with the failure point, and closes the
// session on the way out.
func (o *Orchestrator) RunUnit(w vendors.Workflow, acct models.AccountMetadata, headless bool) models.DownloadOutcome {
	profile := w.Profile()
	unit := models.DownloadUnit{VendorCode: profile.VendorCode, AccountIndex: acct.AccountIndex}
	started := time.Now()

	log, closer, err := runlog.New(profile.VendorCode, o.cfg.LogsDir)
	if err != nil {
		// No log file is no reason to skip the unit; fall back to the
		// process logger.
		log = logrus.WithField("vendor", profile.VendorCode)
	} else {
		defer closer.Close()
	}
	log = log.WithField("account", acct.AccountIndex)
	log.Infof("=== %s invoice download, account #%d ===", profile.VendorCode, acct.AccountIndex+1)

	sess, err := o.openSession(session.Options{
		Headless:    headless,
		Engine:      profile.Engine,
		DownloadDir: o.store.Dir(),
		ShotsDir:    o.cfg.LogsDir,
		SlowMo:      500 * time.Millisecond,
	}, log)
	if err != nil {
		log.Errorf("session init failed: %v", err)
		return models.DownloadOutcome{
			Unit:          unit,
			Status:        models.UnitFailed,
			FailureReason: err.Error(),
			StartedAt:     started,
			FinishedAt:    time.Now(),
		}
	}
	defer sess.Close()

	fail := func(phase string, cause error) models.DownloadOutcome {
		sess.Capture(fmt.Sprintf("error_%s_%s_%d", phase, profile.VendorCode, acct.AccountIndex))
		log.Errorf("%s failed: %v", phase, cause)
		return models.DownloadOutcome{
			Unit:          unit,
			Status:        models.UnitFailed,
			FailureReason: fmt.Sprintf("%s: %v", phase, cause),
			Screenshots:   sess.Shots(),
			StartedAt:     started,
			FinishedAt:    time.Now(),
		}
	}

	if err := o.authenticateWithRecovery(w, sess, acct, log); err != nil {
		return fail("authenticate", err)
	}
	if err := w.LocateInvoice(sess, acct); err != nil {
		return fail("locate", err)
	}
	ret, err := w.RetrieveInvoice(sess, acct)
	if err != nil {
		return fail("retrieve", err)
	}

	// Anything that is not a PDF is a failure with the decoded body in
	// the reason; an HTML error page must never get renamed into the
	// ledger as an invoice.
	if err := artifact.Validate(ret.Bytes); err != nil {
		return fail("validate", err)
	}

	staged, err := o.store.Stage(profile.VendorCode, acct.AccountIndex, ret.Bytes)
	if err != nil {
		return fail("stage", err)
	}

	extractor := pdfdate.Extractor{}
	if n, ok := w.(dateNormalizer); ok {
		extractor.Normalize = n.NormalizeDateText
	}

	var extractedPtr *time.Time
	invoiceDate, ok := extractor.Extract(staged, profile.DateRegion, profile.DateLayout)
	if ok {
		log.Infof("extracted invoice date %s", invoiceDate.Format("2006-01-02"))
		d := invoiceDate
		extractedPtr = &d
	} else {
		invoiceDate = time.Now()
		log.Warn("date extraction missed, falling back to current date")
		render := filepath.Join(o.cfg.LogsDir,
			fmt.Sprintf("date_miss_%s_%d.png", profile.VendorCode, acct.AccountIndex))
		if rerr := pdfdate.RenderFirstPage(staged, render); rerr != nil {
			log.Debugf("page render for recalibration failed: %v", rerr)
		} else {
			log.Infof("rendered first page for region recalibration: %s", render)
		}
	}

	finalName, err := filenamer.Name(profile.VendorCode, acct.AccountSuffix, invoiceDate, acct.GLCode)
	if err != nil {
		o.store.Discard(staged)
		return fail("name", err)
	}
	finalPath, err := o.store.Finalize(staged, finalName)
	if err != nil {
		o.store.Discard(staged)
		return fail("finalize", err)
	}

	log.Infof("saved %s", finalPath)
	return models.DownloadOutcome{
		Unit:          unit,
		Status:        models.UnitSuccess,
		ArtifactPath:  finalPath,
		ExtractedDate: extractedPtr,
		Screenshots:   sess.Shots(),
		StartedAt:     started,
		FinishedAt:    time.Now(),
	}
}

// authenticateWithRecovery runs the first authenticate attempt and, on a
// detected challenge, exactly one recovery cycle plus one retry. A second
// challenge, or any other failure, is terminal for the unit.
func (o *Orchestrator) authenticateWithRecovery(w vendors.Workflow, sess unitSession,
	acct models.AccountMetadata, log *logrus.Entry) error {

	err := w.Authenticate(sess, acct)
	if err == nil {
		return nil
	}
	if !errors.Is(err, vendors.ErrChallengeDetected) {
		return err
	}

	profile := w.Profile()
	if !profile.Recovery.Enabled {
		return fmt.Errorf("challenge detected and recovery disabled: %w", err)
	}

	protocol := recovery.New(profile.Recovery, log)
	if rerr := protocol.Run(sess, w.LoginURL()); rerr != nil {
		return fmt.Errorf("recovery failed: %w", rerr)
	}

	// One retry. If the portal challenges again we stop: pushing harder
	// is how accounts get banned.
	if err := w.Authenticate(sess, acct); err != nil {
		if errors.Is(err, vendors.ErrChallengeDetected) {
			return fmt.Errorf("challenge persisted after recovery, stopping to avoid a ban: %w", err)
		}
		return err
	}
	return nil
}
