// Package history keeps a sqlite audit log of download outcomes. It is
// strictly write-behind: Job state never reads from it, so restarts can
// never resurrect a batch.
package history

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/itc-ops/invoice-orchestrator/models"
)

const schema = `
PRAGMA journal_mode = WAL;
PRAGMA synchronous = NORMAL;

CREATE TABLE IF NOT EXISTS outcomes (
    outcome_id INTEGER PRIMARY KEY AUTOINCREMENT,
    vendor_code TEXT NOT NULL,
    account_index INTEGER NOT NULL,
    status TEXT NOT NULL,
    artifact_path TEXT,
    extracted_date TEXT,          -- RFC3339 date; empty when the fallback fired
    date_extracted INTEGER NOT NULL DEFAULT 0,
    failure_reason TEXT,
    screenshot_count INTEGER NOT NULL DEFAULT 0,
    started_at TIMESTAMP NOT NULL,
    finished_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_outcomes_vendor ON outcomes(vendor_code, account_index);
`

// Store is the audit log handle.
type Store struct {
	db *sql.DB
}

// Open opens or creates the history database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize history schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the database handle.
func (s *Store) Close() error { return s.db.Close() }

// Record appends one outcome row. Failures here are the caller's to log;
// an audit miss must never fail a unit that already succeeded.
func (s *Store) Record(o models.DownloadOutcome) error {
	var extracted string
	dateExtracted := 0
	if o.ExtractedDate != nil {
		extracted = o.ExtractedDate.Format("2006-01-02")
		dateExtracted = 1
	}
	_, err := s.db.Exec(`
		INSERT INTO outcomes
		(vendor_code, account_index, status, artifact_path, extracted_date,
		 date_extracted, failure_reason, screenshot_count, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		o.Unit.VendorCode, o.Unit.AccountIndex, string(o.Status), o.ArtifactPath,
		extracted, dateExtracted, o.FailureReason, len(o.Screenshots),
		o.StartedAt, o.FinishedAt)
	if err != nil {
		return fmt.Errorf("record outcome: %w", err)
	}
	return nil
}

// Entry is one audit row as read back for the history listing.
type Entry struct {
	VendorCode    string    `json:"vendor_code"`
	AccountIndex  int       `json:"account_index"`
	Status        string    `json:"status"`
	ArtifactPath  string    `json:"artifact_path,omitempty"`
	ExtractedDate string    `json:"extracted_date,omitempty"`
	DateExtracted bool      `json:"date_extracted"`
	FailureReason string    `json:"failure_reason,omitempty"`
	FinishedAt    time.Time `json:"finished_at"`
}

// Recent returns the newest rows, most recent first.
func (s *Store) Recent(limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(`
		SELECT vendor_code, account_index, status, COALESCE(artifact_path, ''),
		       COALESCE(extracted_date, ''), date_extracted,
		       COALESCE(failure_reason, ''), finished_at
		FROM outcomes ORDER BY outcome_id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var extracted int
		if err := rows.Scan(&e.VendorCode, &e.AccountIndex, &e.Status, &e.ArtifactPath,
			&e.ExtractedDate, &extracted, &e.FailureReason, &e.FinishedAt); err != nil {
			return nil, fmt.Errorf("scan history row: %w", err)
		}
		e.DateExtracted = extracted == 1
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
