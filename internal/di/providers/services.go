package providers

import (
	"context"

	"github.com/samber/do/v2"

	"github.com/Sarcastic-Soul/blog-app/internal/auth"
	"github.com/Sarcastic-Soul/blog-app/internal/config"
	"github.com/Sarcastic-Soul/blog-app/internal/logger"
	"github.com/Sarcastic-Soul/blog-app/internal/media/images"
	"github.com/Sarcastic-Soul/blog-app/internal/service"
)

// adminTeamName is the display name of the admin team created at startup.
const adminTeamName = "Admins"

// ProvideContentService provides the content service.
func ProvideContentService(i do.Injector) (*service.ContentService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	snapHandle := do.MustInvoke[*SnapshotHandle](i)
	searchService := do.MustInvoke[*service.SearchService](i)
	log := do.MustInvoke[*logger.Logger](i)

	svc := service.NewContentService(storeHandle.Store, snapHandle.Cache, log.Logger)
	svc.SetReindexer(searchService)
	return svc, nil
}

// ProvideCommentService provides the comment service.
func ProvideCommentService(i do.Injector) (*service.CommentService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewCommentService(storeHandle.Store, log.Logger), nil
}

// ProvideAccountService provides the identity provider.
func ProvideAccountService(i do.Injector) (*service.AccountService, error) {
	cfg := do.MustInvoke[*config.Config](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	tokenService := do.MustInvoke[*auth.TokenService](i)
	google := do.MustInvoke[service.OAuthProvider](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewAccountService(storeHandle.Store, tokenService, google, service.AccountConfig{
		PublicURL:      cfg.Server.PublicURL,
		SessionTTL:     cfg.Auth.SessionTTL,
		OAuthSecretTTL: cfg.Auth.OAuthSecretTTL,
	}, log.Logger), nil
}

// ProvideTeamService provides the team service.
func ProvideTeamService(i do.Injector) (*service.TeamService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewTeamService(storeHandle.Store, log.Logger), nil
}

// ProvideMediaService provides the header image service.
func ProvideMediaService(i do.Injector) (*service.MediaService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	headers := do.MustInvoke[*images.HeaderStore](i)
	content := do.MustInvoke[*service.ContentService](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewMediaService(storeHandle.Store, headers, content, log.Logger), nil
}

// EnsureAdminTeam creates the configured admin team if it does not exist.
func EnsureAdminTeam(i do.Injector) error {
	cfg := do.MustInvoke[*config.Config](i)
	teams := do.MustInvoke[*service.TeamService](i)

	_, err := teams.EnsureTeam(context.Background(), cfg.Content.AdminTeamID, adminTeamName)
	return err
}
