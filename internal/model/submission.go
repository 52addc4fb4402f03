package model

import "time"

// SubmissionOutcome is the terminal state of a report submission.
type SubmissionOutcome string

const (
	OutcomeSucceeded SubmissionOutcome = "succeeded"
	OutcomeFailed    SubmissionOutcome = "failed"
)

// SubmissionLog is an audit row written for every finished submission.
type SubmissionLog struct {
	ID           int64             `gorm:"primaryKey" json:"id"`
	OwnerID      string            `gorm:"index;size:128;not null" json:"ownerId"`
	ReportType   string            `gorm:"size:32;not null" json:"reportType"`
	ReportTitle  string            `gorm:"size:256;not null" json:"reportTitle"`
	TrackerCount int               `gorm:"not null" json:"trackerCount"`
	Outcome      SubmissionOutcome `gorm:"size:16;not null" json:"outcome"`
	Error        string            `gorm:"size:1024" json:"error,omitempty"`
	ReportID     *int64            `json:"reportId,omitempty"`
	CreatedAt    time.Time         `gorm:"not null;index" json:"createdAt"`
}
