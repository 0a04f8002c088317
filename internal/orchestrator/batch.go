package orchestrator

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/itc-ops/invoice-orchestrator/internal/vendors"
	"github.com/itc-ops/invoice-orchestrator/models"
	"github.com/itc-ops/invoice-orchestrator/pkg/jobs"
)

// StartBatch registers a new job for the given units. It surfaces
// jobs.ErrJobAlreadyRunning unchanged so the API layer can map it to a
// conflict. Execution happens in Run, which the caller schedules.
func (o *Orchestrator) StartBatch(mode jobs.Mode, units []models.DownloadUnit, recipientOverride string) (*jobs.Job, error) {
	for _, u := range units {
		if _, _, err := o.resolve(u); err != nil {
			return nil, err
		}
	}
	return o.manager.CreateJob(mode, units, recipientOverride)
}

// AllUnits lists every configured (vendor, account) pair in registry order.
func (o *Orchestrator) AllUnits() []models.DownloadUnit {
	return o.registry.AllUnits()
}

// Run executes every unit of a previously created job in order, records
// each outcome, and completes the job no matter what individual units do.
// Unit failures never abort the batch.
func (o *Orchestrator) Run(job *jobs.Job) {
	total := len(job.Units)
	for k, unit := range job.Units {
		if err := o.manager.SetCurrentUnit(job.ID, unit); err != nil {
			logrus.Errorf("job %s vanished mid-run: %v", job.ID, err)
			return
		}

		outcome := o.runResolved(unit)
		if err := o.manager.AppendOutcome(job.ID, outcome); err != nil {
			logrus.Errorf("recording outcome for %s: %v", unit, err)
		}

		status := "ok"
		if outcome.Failed() {
			status = "FAILED"
		}
		logrus.Infof("[%d/%d] %s %s", k+1, total, unit, status)

		if o.history != nil {
			if err := o.history.Record(outcome); err != nil {
				logrus.Warnf("history write for %s: %v", unit, err)
			}
		}
	}

	if err := o.manager.CompleteJob(job.ID); err != nil {
		logrus.Errorf("completing job %s: %v", job.ID, err)
		return
	}

	if o.notifier != nil {
		if done, ok := o.manager.Snapshot(job.ID); ok {
			if err := o.notifier.SendBatchReport(done); err != nil {
				logrus.Warnf("batch report delivery: %v", err)
			}
		}
	}
}

// runResolved looks the unit up in the registry and runs it. Resolution
// failures become failed outcomes like any other unit failure.
func (o *Orchestrator) runResolved(unit models.DownloadUnit) models.DownloadOutcome {
	w, acct, err := o.resolve(unit)
	if err != nil {
		now := time.Now()
		return models.DownloadOutcome{
			Unit:          unit,
			Status:        models.UnitFailed,
			FailureReason: err.Error(),
			StartedAt:     now,
			FinishedAt:    now,
		}
	}
	return o.RunUnit(w, acct, o.cfg.Headless)
}

func (o *Orchestrator) resolve(unit models.DownloadUnit) (vendors.Workflow, models.AccountMetadata, error) {
	return o.registry.Account(unit.VendorCode, unit.AccountIndex)
}
