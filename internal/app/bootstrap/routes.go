// internal/app/bootstrap/routes.go
package bootstrap

import (
	"errors"
	"net/http"
	"time"

	auditlogfeature "github.com/dalemusser/surveytrack/internal/app/features/auditlog"
	campaignsfeature "github.com/dalemusser/surveytrack/internal/app/features/campaigns"
	campaignsyncfeature "github.com/dalemusser/surveytrack/internal/app/features/campaignsync"
	healthfeature "github.com/dalemusser/surveytrack/internal/app/features/health"
	institutionsfeature "github.com/dalemusser/surveytrack/internal/app/features/institutions"
	koboformsfeature "github.com/dalemusser/surveytrack/internal/app/features/koboforms"
	regionsfeature "github.com/dalemusser/surveytrack/internal/app/features/regions"
	reportsfeature "github.com/dalemusser/surveytrack/internal/app/features/reports"
	surveysfeature "github.com/dalemusser/surveytrack/internal/app/features/surveys"
	syncrunstore "github.com/dalemusser/surveytrack/internal/app/store/syncruns"
	"github.com/dalemusser/surveytrack/internal/app/system/ratelimit"
	"github.com/dalemusser/waffle/config"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// BuildHandler constructs the root HTTP handler (router) for this WAFFLE app.
//
// WAFFLE calls this after configuration, DB connections, schema setup, and
// any Startup hooks have completed. At this point you have access to:
//   - coreCfg: WAFFLE core configuration (ports, env, timeouts, etc.)
//   - appCfg: app-specific configuration defined in AppConfig
//   - deps: the MongoDB handles and the services built in Startup
//   - logger: the fully configured zap.Logger for this app
//
// surveytrack serves a JSON API: campaigns with their sync and report
// subresources, the institution registry with its regions, surveys, the
// KoBo form browser and the audit trail, plus /health and /metrics for
// operators.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	rt := deps.Runtime
	if rt == nil || rt.Orchestrator == nil || rt.Kobo == nil {
		return nil, errors.New("build handler: startup did not complete")
	}
	db := deps.MongoDatabase
	runs := syncrunstore.New(db)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(logger))

	healthHandler := healthfeature.NewHandler(deps.MongoClient, logger)
	r.Mount("/health", healthfeature.Routes(healthHandler))

	r.Handle("/metrics", promhttp.HandlerFor(rt.Metrics, promhttp.HandlerOpts{}))

	// Campaigns and the sync/report subresources under /campaigns/{id}.
	campaignsHandler := campaignsfeature.NewHandler(db, logger)
	syncHandler := campaignsyncfeature.NewHandler(rt.Orchestrator, runs, logger)
	reportsHandler := reportsfeature.NewHandler(db, rt.Clock, runs, rt.Audit, logger)
	var syncRoutes http.Handler = campaignsyncfeature.Routes(syncHandler)
	if appCfg.SyncTriggerLimit > 0 {
		limiter := ratelimit.New(appCfg.SyncTriggerLimit, appCfg.SyncTriggerWindow)
		syncRoutes = ratelimit.Middleware(limiter, syncTriggerKey, http.MethodPost)(syncRoutes)
	}
	r.Route("/campaigns", func(r chi.Router) {
		r.Mount("/{id}/sync", syncRoutes)
		r.Mount("/{id}/reports", reportsfeature.Routes(reportsHandler))
		r.Mount("/", campaignsfeature.Routes(campaignsHandler))
	})

	institutionsHandler := institutionsfeature.NewHandler(db, rt.Registry, logger)
	r.Mount("/institutions", institutionsfeature.Routes(institutionsHandler))

	regionsHandler := regionsfeature.NewHandler(db, logger)
	r.Mount("/regions", regionsfeature.Routes(regionsHandler))

	surveysHandler := surveysfeature.NewHandler(db, rt.Registry, logger)
	r.Mount("/surveys", surveysfeature.Routes(surveysHandler))

	koboHandler := koboformsfeature.NewHandler(rt.Kobo, logger)
	r.Mount("/kobo", koboformsfeature.Routes(koboHandler))

	auditHandler := auditlogfeature.NewHandler(db, rt.Clock, logger)
	r.Mount("/audit", auditlogfeature.Routes(auditHandler))

	return r, nil
}

// syncTriggerKey buckets sync start and cancel requests by client and
// campaign.
func syncTriggerKey(r *http.Request) string {
	return ratelimit.ClientIP(r) + "|" + chi.URLParam(r, "id")
}

// requestLogger logs one line per request with zap.
func requestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.Debug("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("took", time.Since(start)),
				zap.String("request_id", middleware.GetReqID(r.Context())))
		})
	}
}
