// internal/app/bootstrap/shutdown.go
package bootstrap

import (
	"context"

	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

// Shutdown stops background work, then disconnects MongoDB. In-flight sync
// runs are cancelled and their workers drained before the client closes.
func Shutdown(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	if rt := deps.Runtime; rt != nil {
		if rt.Scheduler != nil {
			logger.Info("stopping background jobs")
			rt.Scheduler.Stop()
		}
		if rt.Orchestrator != nil {
			logger.Info("cancelling running syncs")
			rt.Orchestrator.Close()
		}
	}
	if deps.MongoClient != nil {
		logger.Info("disconnecting MongoDB client")
		if err := deps.MongoClient.Disconnect(ctx); err != nil {
			logger.Error("MongoDB disconnect failed", zap.Error(err))
			return err
		}
	}
	return nil
}
