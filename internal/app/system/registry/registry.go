// Package registry holds the explicit, operator-driven changes to
// institutions and surveys: registration, cascading removal, planned
// surveys, status changes and indicator edits.
//
// Every operation that changes a survey's status records the transition
// with the progress store, so counters stay equal to a recount.
package registry

import (
	"context"
	"errors"
	"fmt"
	"strings"

	campaignstore "github.com/dalemusser/surveytrack/internal/app/store/campaigns"
	institutionstore "github.com/dalemusser/surveytrack/internal/app/store/institutions"
	progressstore "github.com/dalemusser/surveytrack/internal/app/store/progress"
	readinessstore "github.com/dalemusser/surveytrack/internal/app/store/readiness"
	regionstore "github.com/dalemusser/surveytrack/internal/app/store/regions"
	surveystore "github.com/dalemusser/surveytrack/internal/app/store/surveys"
	"github.com/dalemusser/surveytrack/internal/app/system/auditlog"
	"github.com/dalemusser/surveytrack/internal/app/system/progress"
	"github.com/dalemusser/surveytrack/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

var (
	ErrInvalidName    = errors.New("institution name is required")
	ErrUnknownRegion  = errors.New("unknown region")
	ErrAlreadyPlanned = errors.New("a planned survey already exists for this institution")
	ErrInvalidStatus  = surveystore.ErrInvalidStatus
	ErrConflict       = surveystore.ErrConflict

	ErrInvalidConnectivity = errors.New("unknown internet connectivity level")
)

// Service performs registry operations against MongoDB.
type Service struct {
	campaigns    *campaignstore.Store
	institutions *institutionstore.Store
	regions      *regionstore.Store
	surveys      *surveystore.Store
	readiness    *readinessstore.Store
	progress     *progressstore.Store

	clock *progress.Clock
	audit *auditlog.Logger
	log   *zap.Logger
}

// New wires a Service to db. audit may be nil.
func New(db *mongo.Database, clock *progress.Clock, audit *auditlog.Logger, logger *zap.Logger) *Service {
	return &Service{
		campaigns:    campaignstore.New(db),
		institutions: institutionstore.New(db),
		regions:      regionstore.New(db),
		surveys:      surveystore.New(db),
		readiness:    readinessstore.New(db),
		progress:     progressstore.New(db),
		clock:        clock,
		audit:        audit,
		log:          logger,
	}
}

// RegisterInstitution validates and creates an institution. The region code
// is matched case-insensitively against the seeded regions.
func (s *Service) RegisterInstitution(ctx context.Context, inst models.Institution) (models.Institution, error) {
	inst.Name = strings.TrimSpace(inst.Name)
	if inst.Name == "" {
		return models.Institution{}, ErrInvalidName
	}
	inst.RegionCode = strings.ToUpper(strings.TrimSpace(inst.RegionCode))
	if err := s.CheckRegion(ctx, inst.RegionCode); err != nil {
		return models.Institution{}, err
	}
	return s.institutions.Create(ctx, inst)
}

// CheckRegion returns ErrUnknownRegion unless code names a seeded region.
func (s *Service) CheckRegion(ctx context.Context, code string) error {
	if _, err := s.regions.GetByCode(ctx, code); err != nil {
		if errors.Is(err, regionstore.ErrNotFound) {
			return fmt.Errorf("%w: %q", ErrUnknownRegion, code)
		}
		return err
	}
	return nil
}

// RemovalSummary reports what RemoveInstitution deleted.
type RemovalSummary struct {
	Institution models.Institution `json:"institution"`
	Surveys     int                `json:"surveys"`
}

// RemoveInstitution deletes an institution together with its surveys and
// their indicator records, reversing each survey's progress count.
func (s *Service) RemoveInstitution(ctx context.Context, id primitive.ObjectID) (RemovalSummary, error) {
	inst, err := s.institutions.GetByID(ctx, id)
	if err != nil {
		return RemovalSummary{}, err
	}
	svs, err := s.surveys.ListByInstitution(ctx, id)
	if err != nil {
		return RemovalSummary{}, fmt.Errorf("list surveys: %w", err)
	}

	removed := 0
	for _, sv := range svs {
		if _, err := s.readiness.DeleteBySurveyID(ctx, sv.ID); err != nil {
			return RemovalSummary{}, fmt.Errorf("delete indicators of survey %s: %w", sv.ID.Hex(), err)
		}
		gone, err := s.surveys.Delete(ctx, sv.ID)
		if errors.Is(err, surveystore.ErrNotFound) {
			continue
		}
		if err != nil {
			return RemovalSummary{}, fmt.Errorf("delete survey %s: %w", sv.ID.Hex(), err)
		}
		removed++
		if err := s.record(ctx, gone.ID, progress.Transition{
			CampaignID: gone.CampaignID,
			From:       gone.Status,
			Date:       gone.ProgressDate,
		}); err != nil {
			return RemovalSummary{}, err
		}
	}

	if _, err := s.institutions.Delete(ctx, id); err != nil {
		return RemovalSummary{}, fmt.Errorf("delete institution: %w", err)
	}
	s.audit.InstitutionRemoved(ctx, inst, removed)
	return RemovalSummary{Institution: inst, Surveys: removed}, nil
}

// CreatePlannedSurvey adds a pending survey for an institution that has not
// submitted yet. It is counted as pending today.
func (s *Service) CreatePlannedSurvey(ctx context.Context, campaignID, institutionID primitive.ObjectID) (models.Survey, error) {
	if _, err := s.campaigns.GetByID(ctx, campaignID); err != nil {
		return models.Survey{}, err
	}
	if _, err := s.institutions.GetByID(ctx, institutionID); err != nil {
		return models.Survey{}, err
	}
	_, err := s.surveys.GetPlanned(ctx, campaignID, institutionID)
	if err == nil {
		return models.Survey{}, ErrAlreadyPlanned
	}
	if !errors.Is(err, surveystore.ErrNotFound) {
		return models.Survey{}, err
	}

	sv, err := s.surveys.Create(ctx, models.Survey{
		CampaignID:    campaignID,
		InstitutionID: institutionID,
		Status:        models.StatusPending,
		ProgressDate:  s.clock.Today(),
	})
	if err != nil {
		return models.Survey{}, err
	}
	if err := s.record(ctx, sv.ID, progress.Transition{
		CampaignID: campaignID,
		To:         sv.Status,
		Date:       sv.ProgressDate,
	}); err != nil {
		return models.Survey{}, err
	}
	return sv, nil
}

// ChangeStatus sets a survey's status. Unlike sync it may lower the status;
// a rollback clears the completion time and is audited. ErrConflict means
// the survey changed while this call ran; counters are left untouched.
func (s *Service) ChangeStatus(ctx context.Context, surveyID primitive.ObjectID, to models.SurveyStatus) (models.Survey, error) {
	if !to.Valid() {
		return models.Survey{}, ErrInvalidStatus
	}
	cur, err := s.surveys.GetByID(ctx, surveyID)
	if err != nil {
		return models.Survey{}, err
	}
	if cur.Status == to {
		return cur, nil
	}

	next := cur
	next.Status = to
	if to == models.StatusCompleted {
		if next.CompletedAt == nil {
			now := s.clock.Now().UTC()
			next.CompletedAt = &now
		}
	} else {
		next.CompletedAt = nil
	}
	next.ProgressDate = s.clock.EffectiveDate(next)

	next, err = s.surveys.Update(ctx, cur, next)
	if err != nil {
		return models.Survey{}, err
	}
	if err := s.record(ctx, cur.ID, progress.Transition{
		CampaignID: cur.CampaignID,
		From:       cur.Status,
		To:         next.Status,
		Date:       next.ProgressDate,
		PrevDate:   cur.ProgressDate,
	}); err != nil {
		return models.Survey{}, err
	}
	if to.Rank() < cur.Status.Rank() {
		s.audit.SurveyRolledBack(ctx, cur.CampaignID, cur.ID, cur.Status, to)
	}
	return next, nil
}

// EditIndicators replaces a survey's indicators. The score is recomputed by
// the readiness store.
func (s *Service) EditIndicators(ctx context.Context, surveyID primitive.ObjectID, in models.Indicators) (models.ReadinessRecord, error) {
	sv, err := s.surveys.GetByID(ctx, surveyID)
	if err != nil {
		return models.ReadinessRecord{}, err
	}
	inst, err := s.institutions.GetByID(ctx, sv.InstitutionID)
	if err != nil {
		return models.ReadinessRecord{}, err
	}
	if in.InternetConnectivity == "" {
		in.InternetConnectivity = models.ConnectivityNone
	}
	if !in.InternetConnectivity.Valid() {
		return models.ReadinessRecord{}, ErrInvalidConnectivity
	}
	return s.readiness.Save(ctx, models.ReadinessRecord{
		SurveyID:      sv.ID,
		CampaignID:    sv.CampaignID,
		InstitutionID: inst.ID,
		RegionCode:    inst.RegionCode,
		Indicators:    in,
	})
}

func (s *Service) record(ctx context.Context, surveyID primitive.ObjectID, t progress.Transition) error {
	floored, err := s.progress.RecordTransition(ctx, t)
	if err != nil {
		s.audit.TransitionNotRecorded(ctx, t.CampaignID, surveyID, t.From, t.To, t.Date, err)
		return fmt.Errorf("progress: %w", err)
	}
	if floored > 0 {
		s.log.Warn("progress counter already at zero",
			zap.String("campaign_id", t.CampaignID.Hex()),
			zap.String("from", string(t.From)),
			zap.Int("floored", floored))
	}
	return nil
}
