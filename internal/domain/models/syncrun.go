// internal/domain/models/syncrun.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// SyncStatus is the state of a sync run.
type SyncStatus string

const (
	SyncRunning   SyncStatus = "running"
	SyncCompleted SyncStatus = "completed"
	SyncFailed    SyncStatus = "failed"
)

// ReasonCancelled is the failure reason of a run stopped by a cancel request.
const ReasonCancelled = "cancelled"

// Diagnostic severities.
const (
	SeverityError   = "error"
	SeverityWarning = "warning"
)

// MaxStoredDiagnostics caps SyncRun.Diagnostics. Counts are never capped.
const MaxStoredDiagnostics = 50

// SyncDiagnostic describes one problem met while ingesting a submission.
type SyncDiagnostic struct {
	SubmissionID string `bson:"submission_id,omitempty" json:"submission_id,omitempty"`
	Field        string `bson:"field,omitempty" json:"field,omitempty"`
	Severity     string `bson:"severity" json:"severity"`
	Cause        string `bson:"cause" json:"cause"`
}

// SyncCounts are the per-run tallies.
type SyncCounts struct {
	Fetched   int `bson:"fetched" json:"fetched"`
	New       int `bson:"new" json:"new"`
	Updated   int `bson:"updated" json:"updated"`
	Unchanged int `bson:"unchanged" json:"unchanged"`
	Errors    int `bson:"errors" json:"errors"`
	Warnings  int `bson:"warnings" json:"warnings"`
}

// SyncRun is the audit record of one ingestion batch. Once finalized it is
// never reopened.
type SyncRun struct {
	ID              primitive.ObjectID `bson:"_id"`
	CampaignID      primitive.ObjectID `bson:"campaign_id"`
	RunKey          string             `bson:"run_key"`
	Status          SyncStatus         `bson:"status"`
	StartedAt       time.Time          `bson:"started_at"`
	HeartbeatAt     time.Time          `bson:"heartbeat_at"`
	FinishedAt      *time.Time         `bson:"finished_at,omitempty"`
	Counts          SyncCounts         `bson:"counts"`
	Diagnostics     []SyncDiagnostic   `bson:"diagnostics,omitempty"`
	CancelRequested bool               `bson:"cancel_requested"`
	FailureReason   string             `bson:"failure_reason,omitempty"`
}
