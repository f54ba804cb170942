package providers

import (
	"context"
	"fmt"

	"github.com/samber/do/v2"

	"github.com/Sarcastic-Soul/blog-app/internal/config"
	"github.com/Sarcastic-Soul/blog-app/internal/logger"
	"github.com/Sarcastic-Soul/blog-app/internal/realtime"
	"github.com/Sarcastic-Soul/blog-app/internal/snapshot"
	"github.com/Sarcastic-Soul/blog-app/internal/store/sqlite"
)

// RealtimeHubHandle wraps the realtime hub with its context for lifecycle management.
type RealtimeHubHandle struct {
	*realtime.Hub
	cancel context.CancelFunc
}

// Shutdown implements do.Shutdownable.
func (h *RealtimeHubHandle) Shutdown() error {
	h.cancel()
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return h.Hub.Shutdown(ctx)
}

// ProvideRealtimeHub provides the websocket event hub.
func ProvideRealtimeHub(i do.Injector) (*RealtimeHubHandle, error) {
	log := do.MustInvoke[*logger.Logger](i)

	hub := realtime.NewHub(log.Component("realtime"))

	// Start in background
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Start(ctx)

	log.Info("Realtime hub started")

	return &RealtimeHubHandle{
		Hub:    hub,
		cancel: cancel,
	}, nil
}

// StoreHandle wraps the store with shutdown capability.
type StoreHandle struct {
	*sqlite.Store
}

// Shutdown implements do.Shutdownable.
func (h *StoreHandle) Shutdown() error {
	return h.Close()
}

// ProvideStore provides the SQLite document and identity store. Writes are
// published to the realtime hub.
func ProvideStore(i do.Injector) (*StoreHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	hubHandle := do.MustInvoke[*RealtimeHubHandle](i)

	dbPath := cfg.Storage.DatabasePath()
	db, err := sqlite.Open(dbPath, log.Component("store"))
	if err != nil {
		return nil, err
	}
	db.SetEmitter(hubHandle.Hub)

	log.Info("Database initialized", "path", dbPath)

	return &StoreHandle{Store: db}, nil
}

// SnapshotHandle wraps the snapshot cache with shutdown capability. Cache
// is nil when snapshots are disabled.
type SnapshotHandle struct {
	Cache *snapshot.Cache
}

// Shutdown implements do.Shutdownable.
func (h *SnapshotHandle) Shutdown() error {
	if h.Cache == nil {
		return nil
	}
	return h.Cache.Close()
}

// ProvideSnapshotCache provides the last-known-good read cache.
func ProvideSnapshotCache(i do.Injector) (*SnapshotHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	if !cfg.Content.SnapshotEnabled {
		log.Info("Snapshot cache disabled by configuration")
		return &SnapshotHandle{}, nil
	}

	cache, err := snapshot.Open(snapshot.Options{Dir: cfg.Storage.SnapshotPath()})
	if err != nil {
		return nil, fmt.Errorf("snapshot cache: %w", err)
	}

	log.Info("Snapshot cache initialized", "path", cfg.Storage.SnapshotPath())

	return &SnapshotHandle{Cache: cache}, nil
}
