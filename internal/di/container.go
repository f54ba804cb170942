// Package di provides dependency injection configuration for the blog server.
package di

import (
	"fmt"

	"github.com/samber/do/v2"

	"github.com/Sarcastic-Soul/blog-app/internal/auth"
	"github.com/Sarcastic-Soul/blog-app/internal/config"
	"github.com/Sarcastic-Soul/blog-app/internal/di/providers"
	"github.com/Sarcastic-Soul/blog-app/internal/logger"
	"github.com/Sarcastic-Soul/blog-app/internal/media/images"
	"github.com/Sarcastic-Soul/blog-app/internal/service"
)

// NewContainer creates and configures the DI container with all providers.
func NewContainer() *do.RootScope {
	injector := do.New()

	// Core infrastructure
	do.Provide(injector, providers.ProvideConfig)
	do.Provide(injector, providers.ProvideLogger)
	do.Provide(injector, providers.ProvideAuthKey)

	// Database layer
	do.Provide(injector, providers.ProvideRealtimeHub)
	do.Provide(injector, providers.ProvideStore)
	do.Provide(injector, providers.ProvideSnapshotCache)

	// Storage layer
	do.Provide(injector, providers.ProvideImageStorage)
	do.Provide(injector, providers.ProvideHeaderStore)

	// Search layer
	do.Provide(injector, providers.ProvideSearchIndex)
	do.Provide(injector, providers.ProvideSearchService)

	// Auth layer
	do.Provide(injector, providers.ProvideTokenService)
	do.Provide(injector, providers.ProvideGoogleOAuth)

	// Business services
	do.Provide(injector, providers.ProvideContentService)
	do.Provide(injector, providers.ProvideCommentService)
	do.Provide(injector, providers.ProvideAccountService)
	do.Provide(injector, providers.ProvideTeamService)
	do.Provide(injector, providers.ProvideMediaService)

	// Workers
	do.Provide(injector, providers.ProvideMaintenanceJob)

	// Server
	do.Provide(injector, providers.ProvideHTTPServer)

	return injector
}

// Bootstrap initializes all services and returns handles for lifecycle management.
// This triggers lazy initialization of all core services.
func Bootstrap(injector *do.RootScope) error {
	// Configuration errors are reported, not panicked.
	if _, err := do.Invoke[*config.Config](injector); err != nil {
		return err
	}

	// Invoke core services to trigger initialization
	_ = do.MustInvoke[*logger.Logger](injector)
	_ = do.MustInvoke[providers.AuthKey](injector)
	_ = do.MustInvoke[*providers.RealtimeHubHandle](injector)
	_ = do.MustInvoke[*providers.StoreHandle](injector)
	_ = do.MustInvoke[*providers.SnapshotHandle](injector)
	_ = do.MustInvoke[*images.Storage](injector)
	_ = do.MustInvoke[*images.HeaderStore](injector)
	_ = do.MustInvoke[*providers.SearchIndexHandle](injector)
	_ = do.MustInvoke[*service.SearchService](injector)
	_ = do.MustInvoke[*auth.TokenService](injector)

	// Business services
	_ = do.MustInvoke[*service.ContentService](injector)
	_ = do.MustInvoke[*service.CommentService](injector)
	_ = do.MustInvoke[*service.AccountService](injector)
	_ = do.MustInvoke[*service.TeamService](injector)
	_ = do.MustInvoke[*service.MediaService](injector)

	if err := providers.EnsureAdminTeam(injector); err != nil {
		return fmt.Errorf("ensure admin team: %w", err)
	}

	// Workers
	_ = do.MustInvoke[*providers.MaintenanceJob](injector)

	// Server
	_ = do.MustInvoke[*providers.HTTPServerHandle](injector)

	// Fill the search index on first run
	providers.TriggerSearchReindexIfNeeded(injector)

	return nil
}
