package providers

import (
	"github.com/samber/do/v2"

	"github.com/Sarcastic-Soul/blog-app/internal/auth"
	"github.com/Sarcastic-Soul/blog-app/internal/config"
	"github.com/Sarcastic-Soul/blog-app/internal/logger"
	"github.com/Sarcastic-Soul/blog-app/internal/service"
)

// googleCallbackPath is where Google sends the browser back to.
const googleCallbackPath = "/api/v1/account/oauth/google/callback"

// AuthKey wraps the authentication key bytes.
type AuthKey []byte

// ProvideAuthKey loads or generates the session token key.
func ProvideAuthKey(i do.Injector) (AuthKey, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	key, err := auth.LoadOrGenerateKey(cfg.Storage.KeyPath())
	if err != nil {
		return nil, err
	}

	// Update config with the loaded key
	cfg.Auth.SessionKey = key

	log.Info("Authentication key loaded",
		"session_ttl", cfg.Auth.SessionTTL,
		"oauth_secret_ttl", cfg.Auth.OAuthSecretTTL,
	)

	return AuthKey(key), nil
}

// ProvideTokenService provides the PASETO token service.
func ProvideTokenService(i do.Injector) (*auth.TokenService, error) {
	authKey := do.MustInvoke[AuthKey](i)
	return auth.NewTokenService([]byte(authKey))
}

// ProvideGoogleOAuth provides the Google OAuth client. The provider is nil
// when no client credentials are configured, which disables Google login.
func ProvideGoogleOAuth(i do.Injector) (service.OAuthProvider, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	if !cfg.Google.Enabled() {
		log.Info("Google login disabled: GOOGLE_CLIENT_ID and GOOGLE_CLIENT_SECRET not set")
		return nil, nil
	}

	redirectURL := cfg.Server.PublicURL + googleCallbackPath
	log.Info("Google login enabled", "redirect_url", redirectURL)

	return auth.NewGoogleOAuth(cfg.Google.ClientID, cfg.Google.ClientSecret, redirectURL), nil
}
