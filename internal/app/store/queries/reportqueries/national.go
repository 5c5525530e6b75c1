package reportqueries

import (
	"context"

	surveystore "github.com/dalemusser/surveytrack/internal/app/store/surveys"
	"github.com/dalemusser/surveytrack/internal/app/system/readiness"
	"github.com/dalemusser/surveytrack/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// KeyRates are adoption percentages of the headline indicators.
type KeyRates struct {
	Policy         float64 `json:"policy_adoption_rate"`
	CaseManagement float64 `json:"cms_adoption_rate"`
	StaffTraining  float64 `json:"staff_training_rate"`
	ComputerAccess float64 `json:"computer_access_rate"`
}

// National is the campaign-wide progress summary.
type National struct {
	CampaignID         primitive.ObjectID `json:"campaign_id"`
	CampaignName       string             `json:"campaign_name"`
	TargetInstitutions int                `json:"target_institutions"`
	Total              int                `json:"total_surveys"`
	Completed          int                `json:"completed_surveys"`
	InProgress         int                `json:"in_progress_surveys"`
	Pending            int                `json:"pending_surveys"`
	// CompletionRate is completed surveys over the target, or over all
	// surveys when no target is set.
	CompletionRate float64   `json:"completion_rate"`
	Assessed       int       `json:"institutions_assessed"`
	AvgScore       *float64  `json:"avg_readiness_score"`
	KeyRates       *KeyRates `json:"readiness_indicators"`
}

// NationalSummary reports the campaign's status counts against its target
// together with headline readiness figures.
func NationalSummary(ctx context.Context, db *mongo.Database, campaign models.Campaign) (National, error) {
	byStatus, err := surveystore.New(db).CountByStatus(ctx, campaign.ID)
	if err != nil {
		return National{}, err
	}
	out := National{
		CampaignID:         campaign.ID,
		CampaignName:       campaign.Name,
		TargetInstitutions: campaign.TargetInstitutions,
		Completed:          int(byStatus[models.StatusCompleted]),
		InProgress:         int(byStatus[models.StatusInProgress]),
		Pending:            int(byStatus[models.StatusPending]),
	}
	out.Total = out.Completed + out.InProgress + out.Pending

	target := campaign.TargetInstitutions
	if target <= 0 {
		target = out.Total
	}
	out.CompletionRate = rate(out.Completed, target)

	rows, err := groupReadiness(ctx, db, campaign.ID, "")
	if err != nil {
		return National{}, err
	}
	if len(rows) > 0 && rows[0].Count > 0 {
		s := rows[0]
		out.Assessed = s.Count
		out.AvgScore = ptr(readiness.Round(s.Avg))
		out.KeyRates = &KeyRates{
			Policy:         pct(s.Policy, s.Count),
			CaseManagement: pct(s.CMS, s.Count),
			StaffTraining:  pct(s.Trained, s.Count),
			ComputerAccess: pct(s.Computers, s.Count),
		}
	}
	return out, nil
}
