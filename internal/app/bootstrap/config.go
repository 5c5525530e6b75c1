// internal/app/bootstrap/config.go
package bootstrap

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/dalemusser/surveytrack/internal/app/system/auditlog"
	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.uber.org/zap"
)

// appConfigKeys defines the configuration keys for surveytrack.
// These are loaded via WAFFLE's config system with support for:
//   - Config files: mongo_uri, kobo_token, etc.
//   - Environment variables: SURVEYTRACK_MONGO_URI, SURVEYTRACK_KOBO_TOKEN, etc.
//   - Command-line flags: --mongo_uri, --kobo_token, etc.
var appConfigKeys = []config.AppKey{
	{Name: "mongo_uri", Default: "mongodb://localhost:27017", Desc: "MongoDB connection URI"},
	{Name: "mongo_database", Default: "surveytrack", Desc: "MongoDB database name"},
	{Name: "mongo_max_pool_size", Default: 100, Desc: "MongoDB max connection pool size (default: 100)"},
	{Name: "mongo_min_pool_size", Default: 10, Desc: "MongoDB min connection pool size (default: 10)"},

	// KoBo feed
	{Name: "kobo_base_url", Default: "https://kf.kobotoolbox.org", Desc: "KoBo API base URL"},
	{Name: "kobo_token", Default: "", Desc: "KoBo API token"},
	{Name: "kobo_page_size", Default: 100, Desc: "Submissions requested per page"},
	{Name: "kobo_max_retries", Default: 3, Desc: "Retries per page on rate limiting or server errors"},

	// Sync
	{Name: "sync_fetch_timeout", Default: "60s", Desc: "Timeout for one page fetch (e.g., 60s, 2m)"},
	{Name: "sync_workers", Default: 4, Desc: "Concurrent submission processors per sync run"},
	{Name: "sync_stale_after", Default: "30m", Desc: "Running syncs without a heartbeat for this long are abandoned"},
	{Name: "sync_trigger_limit", Default: 10, Desc: "Sync start/cancel requests per client and campaign per window (0 disables)"},
	{Name: "sync_trigger_window", Default: "1m", Desc: "Window for sync_trigger_limit"},

	// Progress
	{Name: "progress_time_zone", Default: "Africa/Windhoek", Desc: "IANA time zone for daily progress buckets"},
	{Name: "progress_reconcile_interval", Default: "6h", Desc: "Interval of the progress recount job (0 disables it)"},

	// Audit logging settings
	{Name: "audit_log_sync", Default: "all", Desc: "Sync event logging: 'all' (db+log), 'db', 'log', or 'off'"},
	{Name: "audit_log_registry", Default: "all", Desc: "Registry event logging: 'all' (db+log), 'db', 'log', or 'off'"},
}

// LoadConfig loads WAFFLE core config and app-specific config.
//
// It is called early in startup so that both WAFFLE and the app have
// access to configuration before any backends or handlers are built.
//
// WAFFLE's config.LoadWithAppConfig handles:
//   - Loading from .env files
//   - Loading from config.yaml/json/toml files
//   - Reading environment variables (WAFFLE_* for core, SURVEYTRACK_* for app)
//   - Parsing command-line flags
//   - Merging with precedence: flags > env > files > defaults
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, appValues, err := config.LoadWithAppConfig(logger, "SURVEYTRACK", appConfigKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}

	appCfg := AppConfig{
		MongoURI:         appValues.String("mongo_uri"),
		MongoDatabase:    appValues.String("mongo_database"),
		MongoMaxPoolSize: uint64(appValues.Int("mongo_max_pool_size")),
		MongoMinPoolSize: uint64(appValues.Int("mongo_min_pool_size")),

		// KoBo
		KoboBaseURL:    appValues.String("kobo_base_url"),
		KoboToken:      appValues.String("kobo_token"),
		KoboPageSize:   appValues.Int("kobo_page_size"),
		KoboMaxRetries: appValues.Int("kobo_max_retries"),

		// Sync
		SyncFetchTimeout: appValues.Duration("sync_fetch_timeout", 60*time.Second),
		SyncWorkers:      appValues.Int("sync_workers"),
		SyncStaleAfter:   appValues.Duration("sync_stale_after", 30*time.Minute),

		SyncTriggerLimit:  appValues.Int("sync_trigger_limit"),
		SyncTriggerWindow: appValues.Duration("sync_trigger_window", time.Minute),

		// Progress
		ProgressTimeZone:          appValues.String("progress_time_zone"),
		ProgressReconcileInterval: appValues.Duration("progress_reconcile_interval", 6*time.Hour),

		// Audit logging
		AuditLogSync:     appValues.String("audit_log_sync"),
		AuditLogRegistry: appValues.String("audit_log_registry"),
	}

	if appCfg.KoboToken == "" {
		logger.Warn("kobo_token is empty; feed requests will be unauthenticated")
	}

	return coreCfg, appCfg, nil
}

// ValidateConfig performs app-specific config validation.
//
// Return nil to accept the loaded config, or an error to abort startup.
// Every check runs so a misconfigured deployment reports all of its
// problems at once.
func ValidateConfig(coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) error {
	var errs []error

	if err := wafflemongo.ValidateURI(appCfg.MongoURI); err != nil {
		logger.Error("invalid MongoDB URI", zap.Error(err))
		errs = append(errs, fmt.Errorf("invalid MongoDB URI: %w", err))
	}
	if appCfg.MongoDatabase == "" {
		errs = append(errs, errors.New("mongo_database must be set"))
	}
	if appCfg.MongoMinPoolSize > appCfg.MongoMaxPoolSize {
		errs = append(errs, fmt.Errorf("mongo_min_pool_size (%d) exceeds mongo_max_pool_size (%d)",
			appCfg.MongoMinPoolSize, appCfg.MongoMaxPoolSize))
	}

	if u, err := url.Parse(appCfg.KoboBaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("kobo_base_url %q is not an absolute URL", appCfg.KoboBaseURL))
	}
	if appCfg.KoboPageSize < 1 {
		errs = append(errs, fmt.Errorf("kobo_page_size must be at least 1, got %d", appCfg.KoboPageSize))
	}
	if appCfg.KoboMaxRetries < 0 {
		errs = append(errs, fmt.Errorf("kobo_max_retries must not be negative, got %d", appCfg.KoboMaxRetries))
	}

	if appCfg.SyncWorkers < 1 {
		errs = append(errs, fmt.Errorf("sync_workers must be at least 1, got %d", appCfg.SyncWorkers))
	}
	if appCfg.SyncFetchTimeout <= 0 {
		errs = append(errs, errors.New("sync_fetch_timeout must be positive"))
	}
	if appCfg.SyncStaleAfter <= 0 {
		errs = append(errs, errors.New("sync_stale_after must be positive"))
	}
	if appCfg.SyncTriggerLimit < 0 {
		errs = append(errs, fmt.Errorf("sync_trigger_limit must not be negative, got %d", appCfg.SyncTriggerLimit))
	}
	if appCfg.SyncTriggerLimit > 0 && appCfg.SyncTriggerWindow <= 0 {
		errs = append(errs, errors.New("sync_trigger_window must be positive when sync_trigger_limit is set"))
	}

	if _, err := time.LoadLocation(appCfg.ProgressTimeZone); err != nil {
		errs = append(errs, fmt.Errorf("progress_time_zone %q: %w", appCfg.ProgressTimeZone, err))
	}
	if appCfg.ProgressReconcileInterval < 0 {
		errs = append(errs, errors.New("progress_reconcile_interval must not be negative"))
	}

	if !auditlog.ValidDest(appCfg.AuditLogSync) {
		errs = append(errs, fmt.Errorf("audit_log_sync %q must be one of all, db, log, off", appCfg.AuditLogSync))
	}
	if !auditlog.ValidDest(appCfg.AuditLogRegistry) {
		errs = append(errs, fmt.Errorf("audit_log_registry %q must be one of all, db, log, off", appCfg.AuditLogRegistry))
	}

	return errors.Join(errs...)
}
