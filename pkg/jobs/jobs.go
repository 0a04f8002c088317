// Package jobs tracks the one batch a process runs at a time. A single
// mutex serializes every state transition; status polling reads an
// immutable published snapshot and never takes the lock, so observers can
// poll at any cadence without slowing the orchestration thread.
package jobs

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/itc-ops/invoice-orchestrator/models"
)

// Mode selects what a batch covers.
type Mode string

const (
	ModeSingleUnit Mode = "single"
	ModeAllUnits   Mode = "all"
)

// State is a Job's lifecycle state. There is no pending state: a Job is
// Running from the moment it exists.
type State string

const (
	StateRunning   State = "running"
	StateCompleted State = "completed"
)

// Progress counts completed units against the batch total.
type Progress struct {
	Completed int `json:"completed"`
	Total     int `json:"total"`
}

// Job is the published, immutable snapshot of one batch. Every mutation
// replaces the whole snapshot, so a reader always sees a consistent view.
type Job struct {
	ID                string                   `json:"job_id"`
	Mode              Mode                     `json:"mode"`
	Units             []models.DownloadUnit    `json:"units"`
	RecipientOverride string                   `json:"recipient_override,omitempty"`
	State             State                    `json:"state"`
	Progress          Progress                 `json:"progress"`
	CurrentUnit       *models.DownloadUnit     `json:"current_unit,omitempty"`
	Outcomes          []models.DownloadOutcome `json:"outcomes"`
	CreatedAt         time.Time                `json:"created_at"`
	CompletedAt       *time.Time               `json:"completed_at,omitempty"`
}

// ErrJobAlreadyRunning enforces the one-Running-Job invariant at creation.
var ErrJobAlreadyRunning = errors.New("a job is already running")

// ErrUnknownJob is returned for mutations against an ID the manager never
// issued.
var ErrUnknownJob = errors.New("unknown job")

type record struct {
	job  Job // master copy, guarded by Manager.mu
	snap atomic.Pointer[Job]
}

func (r *record) publish() {
	copied := r.job
	copied.Units = append([]models.DownloadUnit(nil), r.job.Units...)
	copied.Outcomes = append([]models.DownloadOutcome(nil), r.job.Outcomes...)
	if r.job.CurrentUnit != nil {
		u := *r.job.CurrentUnit
		copied.CurrentUnit = &u
	}
	r.snap.Store(&copied)
}

// Manager owns every Job of the process lifetime. State is never
// persisted; a restart starts clean.
type Manager struct {
	mu      sync.Mutex
	records sync.Map // job ID -> *record; reads bypass mu
	active  string   // ID of the Running job, "" when none
}

// NewManager returns an empty manager.
func NewManager() *Manager { return &Manager{} }

// CreateJob registers a new Running batch. It fails with
// ErrJobAlreadyRunning while another Job is Running; exactly one Job may
// run system-wide at any instant.
func (m *Manager) CreateJob(mode Mode, units []models.DownloadUnit, recipientOverride string) (*Job, error) {
	if len(units) == 0 {
		return nil, errors.New("job needs at least one unit")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.active != "" {
		return nil, ErrJobAlreadyRunning
	}

	r := &record{job: Job{
		ID:                uuid.New().String(),
		Mode:              mode,
		Units:             append([]models.DownloadUnit(nil), units...),
		RecipientOverride: recipientOverride,
		State:             StateRunning,
		Progress:          Progress{Total: len(units)},
		Outcomes:          []models.DownloadOutcome{},
		CreatedAt:         time.Now(),
	}}
	r.publish()

	m.records.Store(r.job.ID, r)
	m.active = r.job.ID
	return r.snap.Load(), nil
}

// SetCurrentUnit marks the unit the orchestrator is about to execute.
func (m *Manager) SetCurrentUnit(jobID string, unit models.DownloadUnit) error {
	return m.mutate(jobID, func(j *Job) error {
		j.CurrentUnit = &unit
		return nil
	})
}

// AppendOutcome records one unit's result, advances progress, and clears
// the current unit. Progress can never exceed the batch total.
func (m *Manager) AppendOutcome(jobID string, outcome models.DownloadOutcome) error {
	return m.mutate(jobID, func(j *Job) error {
		if j.Progress.Completed >= j.Progress.Total {
			return fmt.Errorf("job %s already has %d of %d outcomes", j.ID, j.Progress.Completed, j.Progress.Total)
		}
		j.Outcomes = append(j.Outcomes, outcome)
		j.Progress.Completed = len(j.Outcomes)
		j.CurrentUnit = nil
		return nil
	})
}

// CompleteJob marks the batch terminal and releases the exclusivity lock,
// allowing the next CreateJob. The terminal publish and the release happen
// in one critical section: once a Completed snapshot is observable, the
// next CreateJob cannot be refused.
func (m *Manager) CompleteJob(jobID string) error {
	v, ok := m.records.Load(jobID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownJob, jobID)
	}
	r := v.(*record)

	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	r.job.State = StateCompleted
	r.job.CurrentUnit = nil
	r.job.CompletedAt = &now
	r.publish()

	if m.active == jobID {
		m.active = ""
	}
	return nil
}

func (m *Manager) mutate(jobID string, fn func(*Job) error) error {
	v, ok := m.records.Load(jobID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownJob, jobID)
	}
	r := v.(*record)

	m.mu.Lock()
	defer m.mu.Unlock()
	if err := fn(&r.job); err != nil {
		return err
	}
	r.publish()
	return nil
}

// Snapshot returns the job's latest published state without locking.
func (m *Manager) Snapshot(jobID string) (*Job, bool) {
	v, ok := m.records.Load(jobID)
	if !ok {
		return nil, false
	}
	return v.(*record).snap.Load(), true
}

// Active returns the Running job's snapshot, if any.
func (m *Manager) Active() (*Job, bool) {
	m.mu.Lock()
	id := m.active
	m.mu.Unlock()
	if id == "" {
		return nil, false
	}
	return m.Snapshot(id)
}
