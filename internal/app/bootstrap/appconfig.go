// internal/app/bootstrap/appconfig.go
package bootstrap

import "time"

// AppConfig holds service-specific configuration for this WAFFLE app.
//
// These values come from environment variables, configuration files, or
// command-line flags (loaded in LoadConfig). They represent *app-level*
// configuration, not WAFFLE core configuration.
//
// WAFFLE's CoreConfig handles framework-level settings like:
//   - HTTP/HTTPS ports and TLS configuration
//   - Logging level and format
//   - CORS settings
//   - Request body size limits
//
// AppConfig carries what is specific to surveytrack: the MongoDB
// connection, the KoBo feed, sync worker settings, the progress time zone
// and audit destinations.
type AppConfig struct {
	// MongoDB connection configuration
	MongoURI         string // MongoDB connection string (e.g., mongodb://localhost:27017)
	MongoDatabase    string // Database name within MongoDB
	MongoMaxPoolSize uint64
	MongoMinPoolSize uint64

	// KoBo feed
	KoboBaseURL    string // server root, e.g. https://kf.kobotoolbox.org
	KoboToken      string // API token; blank sends unauthenticated requests
	KoboPageSize   int    // submissions per page
	KoboMaxRetries int    // retries after the first attempt on 429/5xx

	// Sync orchestrator
	SyncFetchTimeout time.Duration // bound on one page fetch
	SyncWorkers      int           // concurrent submission processors per run
	SyncStaleAfter   time.Duration // running runs older than this are abandoned

	// Sync start and cancel requests allowed per client and campaign in
	// SyncTriggerWindow; 0 disables the limit.
	SyncTriggerLimit  int
	SyncTriggerWindow time.Duration

	// Progress
	ProgressTimeZone          string        // IANA zone used for day buckets
	ProgressReconcileInterval time.Duration // 0 disables the periodic recount

	// Audit logging: "all", "db", "log" or "off"
	AuditLogSync     string
	AuditLogRegistry string
}
