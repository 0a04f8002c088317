package models

import "time"

// UnitStatus is the terminal status of one download unit.
type UnitStatus string

const (
	UnitSuccess UnitStatus = "success"
	UnitFailed  UnitStatus = "failed"
)

// DownloadOutcome records everything an operator needs to audit one unit
// without re-running it. Exactly one outcome exists per attempted unit.
type DownloadOutcome struct {
	Unit   DownloadUnit `json:"unit"`
	Status UnitStatus   `json:"status"`

	// ArtifactPath is the final renamed PDF; set only on success.
	ArtifactPath string `json:"artifact_path,omitempty"`

	// ExtractedDate is nil when the date region could not be parsed and
	// the current-date fallback was used for the filename. The fallback is
	// deliberately distinguishable from a true extraction.
	ExtractedDate *time.Time `json:"extracted_date,omitempty"`

	FailureReason string `json:"failure_reason,omitempty"`

	// Screenshots are diagnostic capture paths in the order they were taken.
	Screenshots []string `json:"screenshots,omitempty"`

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// Failed reports whether the unit ended in failure.
func (o DownloadOutcome) Failed() bool { return o.Status == UnitFailed }
