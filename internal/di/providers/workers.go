package providers

import (
	"context"
	"log/slog"
	"time"

	"github.com/samber/do/v2"

	"github.com/Sarcastic-Soul/blog-app/internal/logger"
	"github.com/Sarcastic-Soul/blog-app/internal/service"
)

// MaintenanceJob runs the server's periodic background tasks.
type MaintenanceJob struct {
	cancel context.CancelFunc
}

// Shutdown implements do.Shutdownable.
func (j *MaintenanceJob) Shutdown() error {
	j.cancel()
	return nil
}

// ProvideMaintenanceJob starts session cleanup and, when snapshots are
// enabled, front page warming.
func ProvideMaintenanceJob(i do.Injector) (*MaintenanceJob, error) {
	accounts := do.MustInvoke[*service.AccountService](i)
	content := do.MustInvoke[*service.ContentService](i)
	snapHandle := do.MustInvoke[*SnapshotHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	ctx, cancel := context.WithCancel(context.Background())
	jobLog := log.Component("maintenance")

	go every(ctx, jobLog, "session cleanup", sessionCleanupInterval, func(ctx context.Context) error {
		_, err := accounts.PurgeExpiredSessions(ctx)
		return err
	})

	if snapHandle.Cache != nil {
		go every(ctx, jobLog, "snapshot warm", snapshotWarmInterval, func(ctx context.Context) error {
			_, err := content.ListPublished(ctx, frontPageLimit, 0)
			return err
		})
	}

	log.Info("Maintenance jobs started",
		"session_cleanup", sessionCleanupInterval,
		"snapshot_warm", snapHandle.Cache != nil,
	)

	return &MaintenanceJob{cancel: cancel}, nil
}

// every runs task once immediately and then on each tick until ctx ends.
func every(ctx context.Context, log *slog.Logger, name string, interval time.Duration, task func(context.Context) error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if err := task(ctx); err != nil && ctx.Err() == nil {
			log.Warn("Background task failed", "task", name, "error", err)
		}
		select {
		case <-ticker.C:
		case <-ctx.Done():
			return
		}
	}
}
