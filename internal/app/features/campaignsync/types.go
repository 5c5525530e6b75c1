// internal/app/features/campaignsync/types.go
package campaignsync

import (
	"time"

	"github.com/dalemusser/surveytrack/internal/domain/models"
)

// runView is the public summary of a run. Per-record diagnostics stay in
// the database; callers see counts and the failure reason only.
type runView struct {
	ID              string            `json:"id"`
	CampaignID      string            `json:"campaign_id"`
	RunKey          string            `json:"run_key"`
	Status          models.SyncStatus `json:"status"`
	StartedAt       time.Time         `json:"started_at"`
	FinishedAt      *time.Time        `json:"finished_at,omitempty"`
	Counts          models.SyncCounts `json:"counts"`
	CancelRequested bool              `json:"cancel_requested"`
	FailureReason   string            `json:"failure_reason,omitempty"`
}

func toView(run models.SyncRun) runView {
	return runView{
		ID:              run.ID.Hex(),
		CampaignID:      run.CampaignID.Hex(),
		RunKey:          run.RunKey,
		Status:          run.Status,
		StartedAt:       run.StartedAt,
		FinishedAt:      run.FinishedAt,
		Counts:          run.Counts,
		CancelRequested: run.CancelRequested,
		FailureReason:   run.FailureReason,
	}
}
