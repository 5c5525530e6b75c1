// Package syncer ingests survey submissions from the external feed into
// surveys, indicator records and progress counters.
//
// One run per campaign pages through the feed, resolves each submission,
// and creates or updates the matching survey. Per-record failures are
// counted and recorded on the run; only feed failures, timeouts and
// cancellation end a run early. A second run over an unchanged feed writes
// nothing.
package syncer

import (
	"context"
	"errors"
	"sync"
	"time"

	campaignstore "github.com/dalemusser/surveytrack/internal/app/store/campaigns"
	syncrunstore "github.com/dalemusser/surveytrack/internal/app/store/syncruns"
	"github.com/dalemusser/surveytrack/internal/app/system/auditlog"
	"github.com/dalemusser/surveytrack/internal/app/system/fieldmap"
	"github.com/dalemusser/surveytrack/internal/app/system/kobo"
	"github.com/dalemusser/surveytrack/internal/app/system/progress"
	"github.com/dalemusser/surveytrack/internal/app/system/timeouts"
	"github.com/dalemusser/surveytrack/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

var (
	// ErrAlreadyRunning is returned when the campaign already has a running sync.
	ErrAlreadyRunning = syncrunstore.ErrAlreadyRunning
	// ErrCampaignNotFound is returned when the campaign does not exist.
	ErrCampaignNotFound = campaignstore.ErrNotFound
	// ErrCampaignMisconfigured is returned when the campaign has no external form.
	ErrCampaignMisconfigured = errors.New("campaign has no external form id")
	// ErrNoRuns is returned by Status when the campaign was never synced.
	ErrNoRuns = syncrunstore.ErrNotFound
	// ErrNotRunning is returned by Cancel when nothing is running.
	ErrNotRunning = errors.New("no sync is running for this campaign")
)

// Feed is the source of raw submissions.
type Feed interface {
	FetchPage(ctx context.Context, formID string, start int) (kobo.Page, error)
}

type Campaigns interface {
	GetByID(ctx context.Context, id primitive.ObjectID) (models.Campaign, error)
}

type Institutions interface {
	FindOrCreate(ctx context.Context, inst models.Institution) (models.Institution, bool, error)
}

type Surveys interface {
	GetByExternalID(ctx context.Context, externalID string) (models.Survey, error)
	Create(ctx context.Context, sv models.Survey) (models.Survey, error)
	// Update writes sv unless the stored survey no longer matches prev.
	Update(ctx context.Context, prev, sv models.Survey) (models.Survey, error)
}

type Readiness interface {
	GetBySurveyID(ctx context.Context, surveyID primitive.ObjectID) (models.ReadinessRecord, error)
	Save(ctx context.Context, rec models.ReadinessRecord) (models.ReadinessRecord, error)
}

type Progress interface {
	RecordTransition(ctx context.Context, t progress.Transition) (int, error)
}

type Runs interface {
	Begin(ctx context.Context, campaignID primitive.ObjectID) (models.SyncRun, error)
	Heartbeat(ctx context.Context, id primitive.ObjectID, counts models.SyncCounts) error
	CancelRequested(ctx context.Context, id primitive.ObjectID) (bool, error)
	RequestCancel(ctx context.Context, campaignID primitive.ObjectID) (models.SyncRun, error)
	Finish(ctx context.Context, run models.SyncRun) (models.SyncRun, error)
	Latest(ctx context.Context, campaignID primitive.ObjectID) (models.SyncRun, error)
}

// Stores groups the persistence the orchestrator writes through.
type Stores struct {
	Campaigns    Campaigns
	Institutions Institutions
	Surveys      Surveys
	Readiness    Readiness
	Progress     Progress
	Runs         Runs
}

// Config tunes a run.
type Config struct {
	// Workers bounds the submissions processed concurrently.
	Workers int
	// FetchTimeout bounds one page fetch; zero means timeouts.Feed().
	FetchTimeout time.Duration
}

// Orchestrator runs syncs. It is safe for concurrent use.
type Orchestrator struct {
	stores   Stores
	feed     Feed
	resolver *fieldmap.Resolver
	clock    *progress.Clock
	audit    *auditlog.Logger
	metrics  *Metrics
	log      *zap.Logger
	cfg      Config

	locks keyedMutex

	// base parents background runs; Close cancels it.
	base       context.Context
	cancelBase context.CancelFunc
	wg         sync.WaitGroup

	mu     sync.Mutex
	active map[primitive.ObjectID]context.CancelFunc
}

// New builds an Orchestrator. audit and metrics may be nil.
func New(stores Stores, feed Feed, resolver *fieldmap.Resolver, clock *progress.Clock, audit *auditlog.Logger, metrics *Metrics, logger *zap.Logger, cfg Config) *Orchestrator {
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if resolver == nil {
		resolver = fieldmap.NewDefault()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	base, cancel := context.WithCancel(context.Background())
	return &Orchestrator{
		stores:     stores,
		feed:       feed,
		resolver:   resolver,
		clock:      clock,
		audit:      audit,
		metrics:    metrics,
		log:        logger,
		cfg:        cfg,
		base:       base,
		cancelBase: cancel,
		active:     make(map[primitive.ObjectID]context.CancelFunc),
	}
}

func (o *Orchestrator) fetchTimeout() time.Duration {
	if o.cfg.FetchTimeout > 0 {
		return o.cfg.FetchTimeout
	}
	return timeouts.Feed()
}

// StartSync runs a sync for the campaign to completion and returns the
// finalized run. Per-record failures do not make it return an error; they
// are in the run's counts and diagnostics.
func (o *Orchestrator) StartSync(ctx context.Context, campaignID primitive.ObjectID) (models.SyncRun, error) {
	campaign, run, err := o.begin(ctx, campaignID)
	if err != nil {
		return models.SyncRun{}, err
	}
	return o.execute(ctx, campaign, run), nil
}

// StartAsync opens a run and executes it in the background. It returns the
// running record; poll Status for the outcome. The run outlives ctx and is
// stopped only by Cancel or Close.
func (o *Orchestrator) StartAsync(ctx context.Context, campaignID primitive.ObjectID) (models.SyncRun, error) {
	campaign, run, err := o.begin(ctx, campaignID)
	if err != nil {
		return models.SyncRun{}, err
	}
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		o.execute(o.base, campaign, run)
	}()
	return run, nil
}

func (o *Orchestrator) begin(ctx context.Context, campaignID primitive.ObjectID) (models.Campaign, models.SyncRun, error) {
	sctx, cancel := context.WithTimeout(ctx, timeouts.Short())
	defer cancel()

	campaign, err := o.stores.Campaigns.GetByID(sctx, campaignID)
	if err != nil {
		return models.Campaign{}, models.SyncRun{}, err
	}
	if campaign.ExternalFormID == "" {
		return models.Campaign{}, models.SyncRun{}, ErrCampaignMisconfigured
	}

	run, err := o.stores.Runs.Begin(sctx, campaignID)
	if err != nil {
		return models.Campaign{}, models.SyncRun{}, err
	}
	o.audit.SyncStarted(sctx, run)
	o.log.Info("sync started",
		zap.String("campaign_id", campaignID.Hex()),
		zap.String("run_key", run.RunKey),
		zap.String("form_id", campaign.ExternalFormID))
	return campaign, run, nil
}

// Status returns the campaign's most recent run.
func (o *Orchestrator) Status(ctx context.Context, campaignID primitive.ObjectID) (models.SyncRun, error) {
	return o.stores.Runs.Latest(ctx, campaignID)
}

// Cancel asks the campaign's running sync to stop. A run in this process
// stops at the next submission; a run in another process stops at its next
// page.
func (o *Orchestrator) Cancel(ctx context.Context, campaignID primitive.ObjectID) (models.SyncRun, error) {
	run, err := o.stores.Runs.RequestCancel(ctx, campaignID)
	if errors.Is(err, syncrunstore.ErrNotFound) {
		return models.SyncRun{}, ErrNotRunning
	}
	if err != nil {
		return models.SyncRun{}, err
	}

	o.mu.Lock()
	cancel, ok := o.active[campaignID]
	o.mu.Unlock()
	if ok {
		cancel()
	}
	o.log.Info("sync cancel requested",
		zap.String("campaign_id", campaignID.Hex()),
		zap.String("run_key", run.RunKey),
		zap.Bool("local", ok))
	return run, nil
}

// Close cancels background runs and waits for them to finalize.
func (o *Orchestrator) Close() {
	o.cancelBase()
	o.wg.Wait()
}

func (o *Orchestrator) register(campaignID primitive.ObjectID, cancel context.CancelFunc) {
	o.mu.Lock()
	o.active[campaignID] = cancel
	o.mu.Unlock()
}

func (o *Orchestrator) unregister(campaignID primitive.ObjectID) {
	o.mu.Lock()
	delete(o.active, campaignID)
	o.mu.Unlock()
}
