package syncer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	readinessstore "github.com/dalemusser/surveytrack/internal/app/store/readiness"
	surveystore "github.com/dalemusser/surveytrack/internal/app/store/surveys"
	"github.com/dalemusser/surveytrack/internal/app/system/fieldmap"
	"github.com/dalemusser/surveytrack/internal/app/system/kobo"
	"github.com/dalemusser/surveytrack/internal/app/system/progress"
	"github.com/dalemusser/surveytrack/internal/app/system/timeouts"
	"github.com/dalemusser/surveytrack/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// runState collects the tallies of one run. Workers share it.
//
// Errors and warnings are kept apart so warnings never crowd out the
// diagnostic of a failed record; errors take the stored slots first.
type runState struct {
	mu     sync.Mutex
	counts models.SyncCounts
	errs   []models.SyncDiagnostic
	warns  []models.SyncDiagnostic
}

func (s *runState) fetched(n int) {
	s.mu.Lock()
	s.counts.Fetched += n
	s.mu.Unlock()
}

func (s *runState) warn(submissionID string, d fieldmap.Diagnostic) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counts.Warnings++
	if len(s.warns) < models.MaxStoredDiagnostics {
		s.warns = append(s.warns, models.SyncDiagnostic{
			SubmissionID: submissionID,
			Field:        d.Field,
			Severity:     models.SeverityWarning,
			Cause:        d.Cause,
		})
	}
}

func (s *runState) fail(submissionID string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counts.Errors++
	if len(s.errs) < models.MaxStoredDiagnostics {
		s.errs = append(s.errs, models.SyncDiagnostic{
			SubmissionID: submissionID,
			Severity:     models.SeverityError,
			Cause:        err.Error(),
		})
	}
}

// abort records the reason a run ended early ahead of every other
// diagnostic. It is not counted as a record error.
func (s *runState) abort(reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d := models.SyncDiagnostic{Severity: models.SeverityError, Cause: reason}
	s.errs = append([]models.SyncDiagnostic{d}, s.errs...)
	if len(s.errs) > models.MaxStoredDiagnostics {
		s.errs = s.errs[:models.MaxStoredDiagnostics]
	}
}

func (s *runState) record(outcome string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch outcome {
	case outcomeNew:
		s.counts.New++
	case outcomeUpdated:
		s.counts.Updated++
	case outcomeUnchanged:
		s.counts.Unchanged++
	}
}

func (s *runState) snapshot() (models.SyncCounts, []models.SyncDiagnostic) {
	s.mu.Lock()
	defer s.mu.Unlock()
	room := min(models.MaxStoredDiagnostics-len(s.errs), len(s.warns))
	out := make([]models.SyncDiagnostic, 0, len(s.errs)+room)
	out = append(out, s.errs...)
	out = append(out, s.warns[:room]...)
	return s.counts, out
}

// execute pages through the feed and finalizes run. It always returns the
// run in its terminal state.
func (o *Orchestrator) execute(ctx context.Context, campaign models.Campaign, run models.SyncRun) models.SyncRun {
	rctx, cancel := context.WithCancel(ctx)
	o.register(campaign.ID, cancel)
	defer func() {
		o.unregister(campaign.ID)
		cancel()
	}()

	began := time.Now()
	o.metrics.started()

	st := &runState{}
	reason := o.pages(rctx, campaign, run, st)

	if reason == "" {
		run.Status = models.SyncCompleted
	} else {
		run.Status = models.SyncFailed
		run.FailureReason = reason
		st.abort(reason)
	}
	run.Counts, run.Diagnostics = st.snapshot()

	fctx, fcancel := context.WithTimeout(context.WithoutCancel(ctx), timeouts.Short())
	defer fcancel()
	final, err := o.stores.Runs.Finish(fctx, run)
	if err != nil {
		o.log.Error("sync finalize failed",
			zap.String("campaign_id", campaign.ID.Hex()),
			zap.String("run_key", run.RunKey),
			zap.Error(err))
		final = run
	} else {
		o.audit.SyncFinished(fctx, final)
	}
	o.metrics.finished(final, time.Since(began))

	o.log.Info("sync finished",
		zap.String("campaign_id", campaign.ID.Hex()),
		zap.String("run_key", final.RunKey),
		zap.String("status", string(final.Status)),
		zap.String("reason", final.FailureReason),
		zap.Int("fetched", final.Counts.Fetched),
		zap.Int("new", final.Counts.New),
		zap.Int("updated", final.Counts.Updated),
		zap.Int("unchanged", final.Counts.Unchanged),
		zap.Int("errors", final.Counts.Errors),
		zap.Int("warnings", final.Counts.Warnings),
		zap.Duration("took", time.Since(began)))
	return final
}

// pages runs the page loop. It returns the failure reason, or "" when the
// feed was exhausted.
func (o *Orchestrator) pages(ctx context.Context, campaign models.Campaign, run models.SyncRun, st *runState) string {
	start := 0
	for {
		if err := ctx.Err(); err != nil {
			return stopReason(err)
		}
		if o.cancelRequested(ctx, run) {
			return models.ReasonCancelled
		}

		page, err := o.fetch(ctx, campaign.ExternalFormID, start)
		if err != nil {
			if ctx.Err() != nil {
				return stopReason(ctx.Err())
			}
			if errors.Is(err, context.DeadlineExceeded) {
				return fmt.Sprintf("feed timeout: page at %d not received within %s", start, o.fetchTimeout())
			}
			return "feed: " + err.Error()
		}

		st.fetched(len(page.Submissions))
		o.processPage(ctx, campaign, page.Submissions, st)

		counts, _ := st.snapshot()
		hctx, hcancel := context.WithTimeout(context.WithoutCancel(ctx), timeouts.Short())
		if err := o.stores.Runs.Heartbeat(hctx, run.ID, counts); err != nil {
			o.log.Warn("sync heartbeat failed", zap.String("run_key", run.RunKey), zap.Error(err))
		}
		hcancel()

		if !page.HasMore || len(page.Submissions) == 0 {
			if err := ctx.Err(); err != nil {
				return stopReason(err)
			}
			return ""
		}
		next := start + len(page.Submissions)
		if page.Next > start {
			next = page.Next
		}
		start = next
	}
}

func stopReason(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "timeout: run deadline exceeded"
	}
	return models.ReasonCancelled
}

func (o *Orchestrator) fetch(ctx context.Context, formID string, start int) (kobo.Page, error) {
	fctx, cancel := context.WithTimeout(ctx, o.fetchTimeout())
	defer cancel()
	return o.feed.FetchPage(fctx, formID, start)
}

// cancelRequested reads the persisted flag so a cancel issued through
// another process is honoured.
func (o *Orchestrator) cancelRequested(ctx context.Context, run models.SyncRun) bool {
	cctx, cancel := context.WithTimeout(ctx, timeouts.Short())
	defer cancel()
	requested, err := o.stores.Runs.CancelRequested(cctx, run.ID)
	if err != nil {
		o.log.Warn("sync cancel check failed", zap.String("run_key", run.RunKey), zap.Error(err))
		return false
	}
	return requested
}

// processPage ingests one page with at most cfg.Workers submissions in
// flight. Submissions not yet started when ctx ends are skipped; started
// ones run to completion.
func (o *Orchestrator) processPage(ctx context.Context, campaign models.Campaign, subs []kobo.Submission, st *runState) {
	var g errgroup.Group
	g.SetLimit(o.cfg.Workers)
	for _, sub := range subs {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			o.process(ctx, campaign, sub, st)
			return nil
		})
	}
	_ = g.Wait()
}

func (o *Orchestrator) process(ctx context.Context, campaign models.Campaign, sub kobo.Submission, st *runState) {
	rec, err := o.resolver.Resolve(sub.Fields)
	id := rec.SubmissionID
	if id == "" {
		id = sub.ID
	}
	for _, d := range rec.Diagnostics {
		st.warn(id, d)
	}
	if err != nil {
		st.fail(id, err)
		o.metrics.submission(outcomeError)
		return
	}

	unlock := o.locks.Lock(rec.SubmissionID)
	defer unlock()

	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeouts.Medium())
	defer cancel()

	outcome, err := o.ingest(wctx, campaign, rec)
	for attempt := 1; errors.Is(err, surveystore.ErrConflict) && attempt <= maxConflictRetries; attempt++ {
		outcome, err = o.ingest(wctx, campaign, rec)
	}
	if err != nil {
		st.fail(id, err)
		o.metrics.submission(outcomeError)
		o.log.Debug("submission failed",
			zap.String("campaign_id", campaign.ID.Hex()),
			zap.String("submission_id", id),
			zap.Error(err))
		return
	}
	st.record(outcome)
	o.metrics.submission(outcome)
}

// maxConflictRetries bounds how often a submission is re-read after its
// survey was changed by a registry operation during ingest.
const maxConflictRetries = 3

// ingest writes one resolved submission and reports whether it was new,
// updated or unchanged.
func (o *Orchestrator) ingest(ctx context.Context, campaign models.Campaign, rec fieldmap.Record) (string, error) {
	inst, _, err := o.stores.Institutions.FindOrCreate(ctx, institutionFrom(rec.Institution))
	if err != nil {
		return "", fmt.Errorf("institution: %w", err)
	}

	existing, err := o.stores.Surveys.GetByExternalID(ctx, rec.SubmissionID)
	if errors.Is(err, surveystore.ErrNotFound) {
		return o.create(ctx, campaign, inst, rec)
	}
	if err != nil {
		return "", fmt.Errorf("survey lookup: %w", err)
	}
	if existing.CampaignID != campaign.ID {
		return "", fmt.Errorf("submission already belongs to campaign %s", existing.CampaignID.Hex())
	}
	return o.update(ctx, inst, existing, rec)
}

func (o *Orchestrator) create(ctx context.Context, campaign models.Campaign, inst models.Institution, rec fieldmap.Record) (string, error) {
	extID := rec.SubmissionID
	sv := models.Survey{
		CampaignID:           campaign.ID,
		InstitutionID:        inst.ID,
		Status:               rec.Status(),
		ExternalSubmissionID: &extID,
		SubmittedAt:          rec.SubmittedAt,
	}
	if sv.Status == models.StatusCompleted {
		sv.CompletedAt = o.completedAt(rec)
	}
	sv.ProgressDate = o.clock.EffectiveDate(sv)

	sv, err := o.stores.Surveys.Create(ctx, sv)
	if err != nil {
		return "", fmt.Errorf("survey create: %w", err)
	}
	if err := o.transition(ctx, sv.ID, progress.Transition{
		CampaignID: campaign.ID,
		To:         sv.Status,
		Date:       sv.ProgressDate,
	}); err != nil {
		return "", err
	}
	if _, err := o.stores.Readiness.Save(ctx, readinessFor(sv, inst, rec.Indicators)); err != nil {
		return "", fmt.Errorf("indicators: %w", err)
	}
	return outcomeNew, nil
}

// update applies rec to an existing survey. Status only moves forward; the
// progress date moves only with a status change.
func (o *Orchestrator) update(ctx context.Context, inst models.Institution, existing models.Survey, rec fieldmap.Record) (string, error) {
	next := existing
	surveyChanged := false

	if next.InstitutionID != inst.ID {
		next.InstitutionID = inst.ID
		surveyChanged = true
	}
	if !sameInstant(next.SubmittedAt, rec.SubmittedAt) && rec.SubmittedAt != nil {
		next.SubmittedAt = rec.SubmittedAt
		surveyChanged = true
	}
	if inferred := rec.Status(); inferred.Rank() > next.Status.Rank() {
		next.Status = inferred
	}
	statusChanged := next.Status != existing.Status
	if statusChanged {
		if next.Status == models.StatusCompleted && next.CompletedAt == nil {
			next.CompletedAt = o.completedAt(rec)
		}
		next.ProgressDate = o.clock.EffectiveDate(next)
	}

	indicatorsChanged := false
	cur, err := o.stores.Readiness.GetBySurveyID(ctx, existing.ID)
	switch {
	case errors.Is(err, readinessstore.ErrNotFound):
		indicatorsChanged = true
	case err != nil:
		return "", fmt.Errorf("indicators lookup: %w", err)
	default:
		indicatorsChanged = cur.InstitutionID != inst.ID ||
			cur.RegionCode != inst.RegionCode ||
			!sameIndicators(cur.Indicators, rec.Indicators)
	}

	if !surveyChanged && !statusChanged && !indicatorsChanged {
		return outcomeUnchanged, nil
	}

	if surveyChanged || statusChanged {
		if _, err := o.stores.Surveys.Update(ctx, existing, next); err != nil {
			return "", fmt.Errorf("survey update: %w", err)
		}
	}
	if statusChanged {
		if err := o.transition(ctx, existing.ID, progress.Transition{
			CampaignID: existing.CampaignID,
			From:       existing.Status,
			To:         next.Status,
			Date:       next.ProgressDate,
			PrevDate:   existing.ProgressDate,
		}); err != nil {
			return "", err
		}
	}
	if indicatorsChanged || surveyChanged {
		if _, err := o.stores.Readiness.Save(ctx, readinessFor(next, inst, rec.Indicators)); err != nil {
			return "", fmt.Errorf("indicators: %w", err)
		}
	}
	return outcomeUpdated, nil
}

// transition records a survey's status change with the counters. The
// survey is already written, so a failure here leaves counters behind the
// surveys; it is audited as drift for the next recount to repair.
func (o *Orchestrator) transition(ctx context.Context, surveyID primitive.ObjectID, t progress.Transition) error {
	floored, err := o.stores.Progress.RecordTransition(ctx, t)
	if err != nil {
		o.log.Error("progress transition not recorded",
			zap.String("campaign_id", t.CampaignID.Hex()),
			zap.String("survey_id", surveyID.Hex()),
			zap.String("to", string(t.To)),
			zap.Error(err))
		o.audit.TransitionNotRecorded(ctx, t.CampaignID, surveyID, t.From, t.To, t.Date, err)
		return fmt.Errorf("progress: %w", err)
	}
	if floored > 0 {
		o.log.Warn("progress counter already at zero",
			zap.String("campaign_id", t.CampaignID.Hex()),
			zap.String("from", string(t.From)),
			zap.String("prev_date", t.PrevDate),
			zap.Int("floored", floored))
	}
	return nil
}

func (o *Orchestrator) completedAt(rec fieldmap.Record) *time.Time {
	if rec.SubmittedAt != nil {
		t := *rec.SubmittedAt
		return &t
	}
	now := o.clock.Now().UTC()
	return &now
}

func institutionFrom(f fieldmap.InstitutionFields) models.Institution {
	return models.Institution{
		Name:          f.Name,
		Sector:        f.Sector,
		RegionCode:    f.RegionCode,
		Address:       f.Address,
		ContactPerson: f.ContactPerson,
		ContactEmail:  f.ContactEmail,
		ContactPhone:  f.ContactPhone,
		Latitude:      f.Latitude,
		Longitude:     f.Longitude,
	}
}

func readinessFor(sv models.Survey, inst models.Institution, in models.Indicators) models.ReadinessRecord {
	return models.ReadinessRecord{
		SurveyID:      sv.ID,
		CampaignID:    sv.CampaignID,
		InstitutionID: inst.ID,
		RegionCode:    inst.RegionCode,
		Indicators:    in,
	}
}

// sameInstant compares at the millisecond precision MongoDB stores.
func sameInstant(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Truncate(time.Millisecond).Equal(b.Truncate(time.Millisecond))
}

// sameIndicators compares the stored encoding, so a round trip through the
// database never reads as a change.
func sameIndicators(a, b models.Indicators) bool {
	ab, err := bson.Marshal(a)
	if err != nil {
		return false
	}
	bb, err := bson.Marshal(b)
	if err != nil {
		return false
	}
	return bytes.Equal(ab, bb)
}
