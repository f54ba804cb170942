package client

import (
	"context"
	"net/http"
	"net/url"

	"github.com/Sarcastic-Soul/blog-app/internal/domain"
	domainerrors "github.com/Sarcastic-Soul/blog-app/internal/errors"
)

// ProviderGoogle names the Google OAuth flow.
const ProviderGoogle = domain.ProviderGoogle

type sessionResult struct {
	Token   string          `json:"token"`
	User    *domain.User    `json:"user"`
	Session *domain.Session `json:"session"`
}

// Register creates an email account. It does not sign in.
func (c *Client) Register(ctx context.Context, email, password, name string) (*domain.User, error) {
	var user domain.User
	body := map[string]string{"email": email, "password": password, "name": name}
	if err := c.do(ctx, http.MethodPost, "/api/v1/account", nil, body, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// Login signs in with email and password and stores the session token.
func (c *Client) Login(ctx context.Context, email, password string) (*domain.Session, error) {
	body := map[string]string{"email": email, "password": password}
	return c.openSession(ctx, "/api/v1/account/sessions/email", body)
}

// CreateSession exchanges the userId and secret from an OAuth redirect for a
// session and stores its token.
func (c *Client) CreateSession(ctx context.Context, userID, secret string) (*domain.Session, error) {
	body := map[string]string{"user_id": userID, "secret": secret}
	return c.openSession(ctx, "/api/v1/account/sessions/token", body)
}

func (c *Client) openSession(ctx context.Context, path string, body any) (*domain.Session, error) {
	var res sessionResult
	if err := c.do(ctx, http.MethodPost, path, nil, body, &res); err != nil {
		return nil, err
	}
	if res.Token == "" || res.Session == nil {
		return nil, domainerrors.Internal("server returned no session")
	}

	if err := c.tokens.Save(&StoredSession{
		Token:     res.Token,
		UserID:    res.Session.UserID,
		SessionID: res.Session.ID,
		ExpiresAt: res.Session.ExpiresAt,
	}); err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "save session")
	}
	return res.Session, nil
}

// GetAccount returns the current identity. An absent or expired session is
// an Unauthorized error.
func (c *Client) GetAccount(ctx context.Context) (*domain.Account, error) {
	var acct domain.Account
	if err := c.do(ctx, http.MethodGet, "/api/v1/account", nil, nil, &acct); err != nil {
		return nil, err
	}
	if acct.User == nil {
		return nil, domainerrors.Unauthorized("no active session")
	}
	return &acct, nil
}

// ListTeams returns the teams of the current user.
func (c *Client) ListTeams(ctx context.Context) ([]*domain.Team, error) {
	var res struct {
		Teams []*domain.Team `json:"teams"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/v1/account/teams", nil, nil, &res); err != nil {
		return nil, err
	}
	return res.Teams, nil
}

// ListSessions returns the current user's sessions.
func (c *Client) ListSessions(ctx context.Context) ([]*domain.Session, error) {
	var res struct {
		Sessions []*domain.Session `json:"sessions"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/v1/account/sessions", nil, nil, &res); err != nil {
		return nil, err
	}
	return res.Sessions, nil
}

// DeleteSession ends a session. Ending domain.CurrentSessionID also forgets
// the stored token, whether or not the server call succeeded.
func (c *Client) DeleteSession(ctx context.Context, sessionID string) error {
	err := c.do(ctx, http.MethodDelete, "/api/v1/account/sessions/"+url.PathEscape(sessionID), nil, nil, nil)
	if sessionID == domain.CurrentSessionID {
		if clearErr := c.tokens.Clear(); clearErr != nil {
			c.logger.Warn("failed to clear token file", "path", c.tokens.Path(), "error", clearErr)
		}
	}
	return err
}

// OAuthURL returns the URL that starts the provider's sign-in flow. The
// server redirects the browser there, then back to successURL with userId
// and secret, or to failureURL with error.
func (c *Client) OAuthURL(provider, successURL, failureURL string) (string, error) {
	if provider != ProviderGoogle {
		return "", domainerrors.Validationf("unsupported provider %q", provider)
	}
	if successURL == "" || failureURL == "" {
		return "", domainerrors.Validation("success and failure URLs are required")
	}
	query := url.Values{"success": {successURL}, "failure": {failureURL}}
	return c.endpoint("/api/v1/account/oauth/"+provider, query), nil
}
