// internal/app/system/auditlog/logger.go
package auditlog

import (
	"context"
	"strconv"
	"time"

	"github.com/dalemusser/surveytrack/internal/app/store/audit"
	progressstore "github.com/dalemusser/surveytrack/internal/app/store/progress"
	"github.com/dalemusser/surveytrack/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Destinations for a category of audit events.
const (
	DestAll = "all" // MongoDB + zap
	DestDB  = "db"  // MongoDB only
	DestLog = "log" // zap only
	DestOff = "off" // disabled
)

// Config holds audit logging configuration.
type Config struct {
	// Sync controls logging for sync run and progress drift events.
	// Values: "all", "db", "log", "off"
	Sync string
	// Registry controls logging for explicit institution and survey changes.
	// Values: "all", "db", "log", "off"
	Registry string
}

// ValidDest reports whether v is an accepted destination value.
func ValidDest(v string) bool {
	switch v {
	case DestAll, DestDB, DestLog, DestOff:
		return true
	}
	return false
}

// Logger provides convenience methods for logging audit events.
// It logs to both MongoDB (via audit.Store) and structured logs (via zap).
type Logger struct {
	store  *audit.Store
	zapLog *zap.Logger
	config Config
}

// New creates a new audit Logger.
func New(store *audit.Store, zapLog *zap.Logger, config Config) *Logger {
	return &Logger{
		store:  store,
		zapLog: zapLog,
		config: config,
	}
}

// logToZap logs the event to zap with consistent structure.
func (l *Logger) logToZap(event audit.Event) {
	fields := []zap.Field{
		zap.Bool("audit", true),
		zap.String("category", event.Category),
		zap.String("event_type", event.EventType),
		zap.Bool("success", event.Success),
	}

	if event.CampaignID != nil {
		fields = append(fields, zap.String("campaign_id", event.CampaignID.Hex()))
	}
	if event.RunKey != "" {
		fields = append(fields, zap.String("run_key", event.RunKey))
	}
	if event.FailureReason != "" {
		fields = append(fields, zap.String("failure_reason", event.FailureReason))
	}
	for k, v := range event.Details {
		fields = append(fields, zap.String("detail_"+k, v))
	}

	if event.Success {
		l.zapLog.Info("audit event", fields...)
	} else {
		l.zapLog.Warn("audit event", fields...)
	}
}

// Log records an audit event based on configuration.
// If the logger is nil, this is a no-op (allows tests to use nil audit logger).
func (l *Logger) Log(ctx context.Context, event audit.Event) {
	if l == nil {
		return
	}

	var setting string
	switch event.Category {
	case audit.CategorySync, audit.CategoryProgress:
		setting = l.config.Sync
	case audit.CategoryRegistry:
		setting = l.config.Registry
	}
	if setting == "" {
		setting = DestAll
	}
	if setting == DestOff {
		return
	}

	if setting == DestAll || setting == DestLog {
		l.logToZap(event)
	}

	if (setting == DestAll || setting == DestDB) && l.store != nil {
		if err := l.store.Log(ctx, event); err != nil {
			l.zapLog.Error("failed to store audit event",
				zap.Error(err),
				zap.String("event_type", event.EventType),
			)
		}
	}
}

func countDetails(c models.SyncCounts) map[string]string {
	return map[string]string{
		"fetched":   strconv.Itoa(c.Fetched),
		"new":       strconv.Itoa(c.New),
		"updated":   strconv.Itoa(c.Updated),
		"unchanged": strconv.Itoa(c.Unchanged),
		"errors":    strconv.Itoa(c.Errors),
		"warnings":  strconv.Itoa(c.Warnings),
	}
}

// --- Sync Events ---

// SyncStarted logs the opening of a sync run.
func (l *Logger) SyncStarted(ctx context.Context, run models.SyncRun) {
	l.Log(ctx, audit.Event{
		Category:   audit.CategorySync,
		EventType:  audit.EventSyncStarted,
		CampaignID: &run.CampaignID,
		RunKey:     run.RunKey,
		Success:    true,
	})
}

// SyncFinished logs the terminal state of a sync run: completed, cancelled or failed.
func (l *Logger) SyncFinished(ctx context.Context, run models.SyncRun) {
	event := audit.Event{
		Category:      audit.CategorySync,
		EventType:     audit.EventSyncCompleted,
		CampaignID:    &run.CampaignID,
		RunKey:        run.RunKey,
		Success:       run.Status == models.SyncCompleted,
		FailureReason: run.FailureReason,
		Details:       countDetails(run.Counts),
	}
	if run.Status != models.SyncCompleted {
		event.EventType = audit.EventSyncFailed
		if run.FailureReason == models.ReasonCancelled {
			event.EventType = audit.EventSyncCancelled
		}
	}
	l.Log(ctx, event)
}

// SyncAbandoned logs a stale run finalized by the background sweep.
func (l *Logger) SyncAbandoned(ctx context.Context, run models.SyncRun) {
	l.Log(ctx, audit.Event{
		Category:      audit.CategorySync,
		EventType:     audit.EventSyncAbandoned,
		CampaignID:    &run.CampaignID,
		RunKey:        run.RunKey,
		Success:       false,
		FailureReason: run.FailureReason,
		Details: map[string]string{
			"heartbeat_at": run.HeartbeatAt.Format(time.RFC3339),
		},
	})
}

// --- Progress Events ---

// ProgressDrift logs a recount that found counters differing from the
// surveys, and their repair when it happened.
func (l *Logger) ProgressDrift(ctx context.Context, report progressstore.DriftReport) {
	if !report.HasDrift() {
		return
	}
	details := map[string]string{
		"days":    strconv.Itoa(report.Days),
		"entries": strconv.Itoa(len(report.Entries)),
	}
	first := report.Entries[0]
	details["first_date"] = first.Date
	details["first_field"] = first.Field
	details["first_stored"] = strconv.Itoa(first.Stored)
	details["first_actual"] = strconv.Itoa(first.Actual)

	l.Log(ctx, audit.Event{
		Category:   audit.CategoryProgress,
		EventType:  audit.EventProgressDrift,
		CampaignID: &report.CampaignID,
		Success:    false,
		Details:    details,
	})
	if report.Repaired {
		l.Log(ctx, audit.Event{
			Category:   audit.CategoryProgress,
			EventType:  audit.EventProgressRepaired,
			CampaignID: &report.CampaignID,
			Success:    true,
			Details:    map[string]string{"entries": details["entries"]},
		})
	}
}

// TransitionNotRecorded logs a survey write whose counter update failed.
// Counters disagree with the surveys until the next recount repairs them.
func (l *Logger) TransitionNotRecorded(ctx context.Context, campaignID, surveyID primitive.ObjectID, from, to models.SurveyStatus, date string, cause error) {
	details := map[string]string{
		"survey_id": surveyID.Hex(),
		"from":      string(from),
		"to":        string(to),
		"date":      date,
	}
	if cause != nil {
		details["error"] = cause.Error()
	}
	l.Log(ctx, audit.Event{
		Category:      audit.CategoryProgress,
		EventType:     audit.EventProgressDrift,
		CampaignID:    &campaignID,
		Success:       false,
		FailureReason: "transition not recorded",
		Details:       details,
	})
}

// --- Registry Events ---

// InstitutionRemoved logs the removal of an institution and its surveys.
func (l *Logger) InstitutionRemoved(ctx context.Context, inst models.Institution, surveys int) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryRegistry,
		EventType: audit.EventInstitutionRemoved,
		Success:   true,
		Details: map[string]string{
			"institution_id": inst.ID.Hex(),
			"name":           inst.Name,
			"region_code":    inst.RegionCode,
			"surveys":        strconv.Itoa(surveys),
		},
	})
}

// SurveyRolledBack logs an explicit status change that lowered a survey's status.
func (l *Logger) SurveyRolledBack(ctx context.Context, campaignID, surveyID primitive.ObjectID, from, to models.SurveyStatus) {
	l.Log(ctx, audit.Event{
		Category:   audit.CategoryRegistry,
		EventType:  audit.EventSurveyRolledBack,
		CampaignID: &campaignID,
		Success:    true,
		Details: map[string]string{
			"survey_id": surveyID.Hex(),
			"from":      string(from),
			"to":        string(to),
		},
	})
}
