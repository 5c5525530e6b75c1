package progress_test

import (
	"testing"
	"time"

	"github.com/dalemusser/surveytrack/internal/app/system/progress"
	"github.com/dalemusser/surveytrack/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestPlan(t *testing.T) {
	cid := primitive.NewObjectID()
	tests := []struct {
		name string
		tr   progress.Transition
		want []progress.Delta
	}{
		{
			name: "new completed survey",
			tr:   progress.Transition{CampaignID: cid, To: models.StatusCompleted, Date: "2024-03-01"},
			want: []progress.Delta{{CampaignID: cid, Date: "2024-03-01", Status: models.StatusCompleted, Change: 1}},
		},
		{
			name: "in progress to completed",
			tr:   progress.Transition{CampaignID: cid, From: models.StatusInProgress, To: models.StatusCompleted, Date: "2024-03-02", PrevDate: "2024-03-01"},
			want: []progress.Delta{
				{CampaignID: cid, Date: "2024-03-01", Status: models.StatusInProgress, Change: -1},
				{CampaignID: cid, Date: "2024-03-02", Status: models.StatusCompleted, Change: 1},
			},
		},
		{
			name: "rollback on same day",
			tr:   progress.Transition{CampaignID: cid, From: models.StatusCompleted, To: models.StatusInProgress, Date: "2024-03-01"},
			want: []progress.Delta{
				{CampaignID: cid, Date: "2024-03-01", Status: models.StatusCompleted, Change: -1},
				{CampaignID: cid, Date: "2024-03-01", Status: models.StatusInProgress, Change: 1},
			},
		},
		{
			name: "removal",
			tr:   progress.Transition{CampaignID: cid, From: models.StatusPending, Date: "2024-03-01"},
			want: []progress.Delta{{CampaignID: cid, Date: "2024-03-01", Status: models.StatusPending, Change: -1}},
		},
		{
			name: "no change",
			tr:   progress.Transition{CampaignID: cid, From: models.StatusCompleted, To: models.StatusCompleted, Date: "2024-03-01"},
			want: nil,
		},
		{
			name: "same status moved to another day",
			tr:   progress.Transition{CampaignID: cid, From: models.StatusCompleted, To: models.StatusCompleted, Date: "2024-03-05", PrevDate: "2024-03-01"},
			want: []progress.Delta{
				{CampaignID: cid, Date: "2024-03-01", Status: models.StatusCompleted, Change: -1},
				{CampaignID: cid, Date: "2024-03-05", Status: models.StatusCompleted, Change: 1},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := progress.Plan(tt.tr)
			if len(got) != len(tt.want) {
				t.Fatalf("got %d deltas %v, want %d", len(got), got, len(tt.want))
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("delta %d: got %+v, want %+v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

// Applying the planned deltas of any transition sequence keeps the counters
// equal to a recount of survey states.
func TestPlan_CountersMatchRecount(t *testing.T) {
	cid := primitive.NewObjectID()
	type state struct {
		status models.SurveyStatus
		date   string
	}
	surveys := map[int]state{}
	counters := map[string]int{}
	key := func(date string, s models.SurveyStatus) string { return date + "/" + string(s) }

	steps := []struct {
		survey int
		to     models.SurveyStatus
		date   string
	}{
		{1, models.StatusPending, "2024-03-01"},
		{2, models.StatusInProgress, "2024-03-01"},
		{1, models.StatusInProgress, "2024-03-02"},
		{1, models.StatusCompleted, "2024-03-03"},
		{2, models.StatusCompleted, "2024-03-03"},
		{1, models.StatusInProgress, "2024-03-04"},
		{3, models.StatusCompleted, "2024-03-04"},
		{2, "", "2024-03-05"},
		{1, models.StatusCompleted, "2024-03-05"},
	}
	for _, st := range steps {
		old := surveys[st.survey]
		for _, d := range progress.Plan(progress.Transition{
			CampaignID: cid, From: old.status, To: st.to, Date: st.date, PrevDate: old.date,
		}) {
			counters[key(d.Date, d.Status)] += d.Change
		}
		if st.to == "" {
			delete(surveys, st.survey)
		} else {
			surveys[st.survey] = state{st.to, st.date}
		}
	}

	recount := map[string]int{}
	for _, s := range surveys {
		recount[key(s.date, s.status)]++
	}
	for k, v := range counters {
		if v < 0 {
			t.Errorf("counter %s went negative: %d", k, v)
		}
		if v != recount[k] {
			t.Errorf("counter %s = %d, recount = %d", k, v, recount[k])
		}
	}
	for k, v := range recount {
		if counters[k] != v {
			t.Errorf("recount %s = %d, counter = %d", k, v, counters[k])
		}
	}
}

func TestClock_EffectiveDate(t *testing.T) {
	loc, err := time.LoadLocation("Africa/Windhoek")
	if err != nil {
		t.Skipf("zone data unavailable: %v", err)
	}
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	clock := progress.FixedClock(loc, now)

	// 23:30 UTC is already the next day in Windhoek (UTC+2).
	late := time.Date(2024, 3, 1, 23, 30, 0, 0, time.UTC)
	submitted := time.Date(2024, 2, 28, 8, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		s    models.Survey
		want string
	}{
		{"completed uses completion time", models.Survey{Status: models.StatusCompleted, CompletedAt: &late, SubmittedAt: &submitted}, "2024-03-02"},
		{"in progress uses submission time", models.Survey{Status: models.StatusInProgress, SubmittedAt: &submitted}, "2024-02-28"},
		{"planned uses today", models.Survey{Status: models.StatusPending}, "2024-03-10"},
	}
	for _, tt := range tests {
		if got := clock.EffectiveDate(tt.s); got != tt.want {
			t.Errorf("%s: got %s, want %s", tt.name, got, tt.want)
		}
	}
}
