package syncer

import (
	"context"
	"strings"
	"sync"
	"time"

	campaignstore "github.com/dalemusser/surveytrack/internal/app/store/campaigns"
	readinessstore "github.com/dalemusser/surveytrack/internal/app/store/readiness"
	surveystore "github.com/dalemusser/surveytrack/internal/app/store/surveys"
	syncrunstore "github.com/dalemusser/surveytrack/internal/app/store/syncruns"
	"github.com/dalemusser/surveytrack/internal/app/system/kobo"
	"github.com/dalemusser/surveytrack/internal/app/system/progress"
	"github.com/dalemusser/surveytrack/internal/app/system/readiness"
	"github.com/dalemusser/surveytrack/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type fakeCampaigns struct {
	byID map[primitive.ObjectID]models.Campaign
}

func (f *fakeCampaigns) GetByID(_ context.Context, id primitive.ObjectID) (models.Campaign, error) {
	c, ok := f.byID[id]
	if !ok {
		return models.Campaign{}, campaignstore.ErrNotFound
	}
	return c, nil
}

type fakeInstitutions struct {
	mu    sync.Mutex
	byKey map[string]models.Institution
}

func (f *fakeInstitutions) FindOrCreate(_ context.Context, inst models.Institution) (models.Institution, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := strings.ToLower(inst.Name) + "|" + inst.RegionCode
	if got, ok := f.byKey[key]; ok {
		return got, false, nil
	}
	inst.ID = primitive.NewObjectID()
	inst.NameCI = strings.ToLower(inst.Name)
	f.byKey[key] = inst
	return inst, true, nil
}

// fakeSurveys stores surveys in memory. beforeUpdate, when set, runs once
// ahead of the next Update, standing in for a concurrent writer.
type fakeSurveys struct {
	mu           sync.Mutex
	byID         map[primitive.ObjectID]models.Survey
	writes       int
	failFor      string
	beforeUpdate func(sv models.Survey)
}

func (f *fakeSurveys) GetByExternalID(_ context.Context, externalID string) (models.Survey, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, sv := range f.byID {
		if sv.ExternalSubmissionID != nil && *sv.ExternalSubmissionID == externalID {
			return sv, nil
		}
	}
	return models.Survey{}, surveystore.ErrNotFound
}

func (f *fakeSurveys) Create(_ context.Context, sv models.Survey) (models.Survey, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if sv.ExternalSubmissionID != nil && *sv.ExternalSubmissionID == f.failFor {
		return models.Survey{}, surveystore.ErrDuplicateSubmission
	}
	for _, cur := range f.byID {
		if cur.ExternalSubmissionID != nil && sv.ExternalSubmissionID != nil &&
			*cur.ExternalSubmissionID == *sv.ExternalSubmissionID {
			return models.Survey{}, surveystore.ErrDuplicateSubmission
		}
	}
	sv.ID = primitive.NewObjectID()
	sv.CreatedAt = time.Now().UTC()
	sv.UpdatedAt = sv.CreatedAt
	f.byID[sv.ID] = sv
	f.writes++
	return sv, nil
}

func (f *fakeSurveys) Update(_ context.Context, prev, sv models.Survey) (models.Survey, error) {
	f.mu.Lock()
	hook := f.beforeUpdate
	f.beforeUpdate = nil
	f.mu.Unlock()
	if hook != nil {
		hook(sv)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	cur, ok := f.byID[sv.ID]
	if !ok {
		return models.Survey{}, surveystore.ErrNotFound
	}
	if cur.Status != prev.Status || cur.ProgressDate != prev.ProgressDate {
		return models.Survey{}, surveystore.ErrConflict
	}
	f.byID[sv.ID] = sv
	f.writes++
	return sv, nil
}

// put replaces a stored survey directly, as another writer would.
func (f *fakeSurveys) put(sv models.Survey) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.byID[sv.ID] = sv
}

func (f *fakeSurveys) all() []models.Survey {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.Survey, 0, len(f.byID))
	for _, sv := range f.byID {
		out = append(out, sv)
	}
	return out
}

type fakeReadiness struct {
	mu       sync.Mutex
	bySurvey map[primitive.ObjectID]models.ReadinessRecord
	writes   int
}

func (f *fakeReadiness) GetBySurveyID(_ context.Context, surveyID primitive.ObjectID) (models.ReadinessRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.bySurvey[surveyID]
	if !ok {
		return models.ReadinessRecord{}, readinessstore.ErrNotFound
	}
	return rec, nil
}

func (f *fakeReadiness) Save(_ context.Context, rec models.ReadinessRecord) (models.ReadinessRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if cur, ok := f.bySurvey[rec.SurveyID]; ok {
		rec.ID = cur.ID
	} else {
		rec.ID = primitive.NewObjectID()
	}
	rec.ReadinessScore = readiness.Score(rec.Indicators)
	f.bySurvey[rec.SurveyID] = rec
	f.writes++
	return rec, nil
}

type counterKey struct {
	date   string
	status models.SurveyStatus
}

type fakeProgress struct {
	mu       sync.Mutex
	counters map[counterKey]int
	calls    int
	err      error
}

func (f *fakeProgress) RecordTransition(_ context.Context, t progress.Transition) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return 0, f.err
	}
	floored := 0
	for _, d := range progress.Plan(t) {
		k := counterKey{d.Date, d.Status}
		if f.counters[k]+d.Change < 0 {
			floored++
			continue
		}
		f.counters[k] += d.Change
	}
	return floored, nil
}

func (f *fakeProgress) total(status models.SurveyStatus) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for k, v := range f.counters {
		if k.status == status {
			n += v
		}
	}
	return n
}

type fakeRuns struct {
	mu   sync.Mutex
	runs []models.SyncRun
}

func (f *fakeRuns) Begin(_ context.Context, campaignID primitive.ObjectID) (models.SyncRun, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.runs {
		if r.CampaignID == campaignID && r.Status == models.SyncRunning {
			return models.SyncRun{}, syncrunstore.ErrAlreadyRunning
		}
	}
	now := time.Now().UTC()
	run := models.SyncRun{
		ID:          primitive.NewObjectID(),
		CampaignID:  campaignID,
		RunKey:      primitive.NewObjectID().Hex(),
		Status:      models.SyncRunning,
		StartedAt:   now,
		HeartbeatAt: now,
	}
	f.runs = append(f.runs, run)
	return run, nil
}

func (f *fakeRuns) find(pred func(models.SyncRun) bool) int {
	for i := len(f.runs) - 1; i >= 0; i-- {
		if pred(f.runs[i]) {
			return i
		}
	}
	return -1
}

func (f *fakeRuns) Heartbeat(_ context.Context, id primitive.ObjectID, counts models.SyncCounts) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if i := f.find(func(r models.SyncRun) bool { return r.ID == id }); i >= 0 {
		f.runs[i].Counts = counts
		f.runs[i].HeartbeatAt = time.Now().UTC()
	}
	return nil
}

func (f *fakeRuns) CancelRequested(_ context.Context, id primitive.ObjectID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.find(func(r models.SyncRun) bool { return r.ID == id })
	return i >= 0 && f.runs[i].CancelRequested, nil
}

func (f *fakeRuns) RequestCancel(_ context.Context, campaignID primitive.ObjectID) (models.SyncRun, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.find(func(r models.SyncRun) bool {
		return r.CampaignID == campaignID && r.Status == models.SyncRunning
	})
	if i < 0 {
		return models.SyncRun{}, syncrunstore.ErrNotFound
	}
	f.runs[i].CancelRequested = true
	return f.runs[i], nil
}

func (f *fakeRuns) Finish(_ context.Context, run models.SyncRun) (models.SyncRun, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.find(func(r models.SyncRun) bool { return r.ID == run.ID })
	if i < 0 {
		return models.SyncRun{}, syncrunstore.ErrNotFound
	}
	if f.runs[i].Status != models.SyncRunning {
		return models.SyncRun{}, syncrunstore.ErrFinalized
	}
	now := time.Now().UTC()
	run.FinishedAt = &now
	run.CancelRequested = f.runs[i].CancelRequested
	f.runs[i] = run
	return run, nil
}

func (f *fakeRuns) Latest(_ context.Context, campaignID primitive.ObjectID) (models.SyncRun, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.find(func(r models.SyncRun) bool { return r.CampaignID == campaignID })
	if i < 0 {
		return models.SyncRun{}, syncrunstore.ErrNotFound
	}
	return f.runs[i], nil
}

// fakeFeed serves pages of submissions. onFetch, when set, runs before each
// page is returned and may replace the result.
type fakeFeed struct {
	mu       sync.Mutex
	pageSize int
	subs     []map[string]any
	err      error
	fetches  int
	onFetch  func(ctx context.Context, start int) error
}

func (f *fakeFeed) FetchPage(ctx context.Context, _ string, start int) (kobo.Page, error) {
	f.mu.Lock()
	f.fetches++
	hook := f.onFetch
	f.mu.Unlock()
	if hook != nil {
		if err := hook(ctx, start); err != nil {
			return kobo.Page{}, err
		}
	}
	if f.err != nil {
		return kobo.Page{}, f.err
	}
	size := f.pageSize
	if size <= 0 {
		size = 2
	}
	end := min(start+size, len(f.subs))
	var page kobo.Page
	for _, fields := range f.subs[min(start, end):end] {
		id, _ := fields["_id"].(string)
		ts, _ := fields["_submission_time"].(string)
		page.Submissions = append(page.Submissions, kobo.Submission{ID: id, SubmittedAt: ts, Fields: fields})
	}
	page.Count = len(f.subs)
	page.HasMore = end < len(f.subs)
	page.Next = end
	return page, nil
}

func (f *fakeFeed) set(i int, key string, v any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subs[i][key] = v
}
