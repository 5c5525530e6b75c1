// internal/app/bootstrap/dbdeps.go
package bootstrap

import (
	"github.com/dalemusser/surveytrack/internal/app/system/auditlog"
	"github.com/dalemusser/surveytrack/internal/app/system/kobo"
	"github.com/dalemusser/surveytrack/internal/app/system/progress"
	"github.com/dalemusser/surveytrack/internal/app/system/registry"
	"github.com/dalemusser/surveytrack/internal/app/system/syncer"
	"github.com/dalemusser/surveytrack/internal/app/system/workers"
	"github.com/prometheus/client_golang/prometheus"
	"go.mongodb.org/mongo-driver/mongo"
)

// DBDeps holds database/back-end dependencies for the app.
//
// WAFFLE passes DBDeps by value to every hook after ConnectDB, so services
// built in Startup live behind the Runtime pointer where BuildHandler and
// Shutdown can see them.
type DBDeps struct {
	MongoClient   *mongo.Client
	MongoDatabase *mongo.Database
	Runtime       *Runtime
}

// Runtime holds the long-lived services assembled in Startup.
type Runtime struct {
	Clock        *progress.Clock
	Audit        *auditlog.Logger
	Kobo         *kobo.Client
	Registry     *registry.Service
	Orchestrator *syncer.Orchestrator
	Metrics      *prometheus.Registry
	Scheduler    *workers.Scheduler
}
