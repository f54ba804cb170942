package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Sarcastic-Soul/blog-app/internal/auth"
	"github.com/Sarcastic-Soul/blog-app/internal/domain"
	domainerrors "github.com/Sarcastic-Soul/blog-app/internal/errors"
	"github.com/Sarcastic-Soul/blog-app/internal/id"
	"github.com/Sarcastic-Soul/blog-app/internal/store"
)

// OAuth callback error codes appended to the failure URL.
const (
	OAuthErrorDenied        = "access_denied"
	OAuthErrorExchange      = "exchange_failed"
	OAuthErrorUnverified    = "email_not_verified"
	OAuthErrorAccountFailed = "account_failed"
)

// touchInterval throttles last-seen writes for busy sessions.
const touchInterval = time.Minute

// OAuthProvider runs an external authorization code flow.
type OAuthProvider interface {
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (*auth.GoogleUser, error)
}

// AccountConfig holds identity provider settings.
type AccountConfig struct {
	// PublicURL is the server origin. OAuth return URLs must share it or
	// point at a loopback address.
	PublicURL      string
	SessionTTL     time.Duration
	OAuthSecretTTL time.Duration
	StateTTL       time.Duration
}

// AccountService is the identity provider: accounts, logins, OAuth hand-off
// and sessions.
type AccountService struct {
	store  store.IdentityStore
	tokens *auth.TokenService
	google OAuthProvider // nil when Google login is not configured
	cfg    AccountConfig
	logger *slog.Logger
	now    func() time.Time
}

// NewAccountService creates a new account service. google may be nil.
func NewAccountService(
	identities store.IdentityStore,
	tokens *auth.TokenService,
	google OAuthProvider,
	cfg AccountConfig,
	logger *slog.Logger,
) *AccountService {
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 30 * 24 * time.Hour
	}
	if cfg.OAuthSecretTTL <= 0 {
		cfg.OAuthSecretTTL = 10 * time.Minute
	}
	if cfg.StateTTL <= 0 {
		cfg.StateTTL = 10 * time.Minute
	}
	return &AccountService{
		store:  identities,
		tokens: tokens,
		google: google,
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
	}
}

// RegisterRequest contains account registration data.
type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,min=8,max=1024"`
	Name     string `json:"name" validate:"notblank,max=100"`
}

// LoginRequest contains email credentials.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// ClientInfo describes the client a session is created for.
type ClientInfo struct {
	IPAddress string
	UserAgent string
}

// SessionResult is a newly created session and its bearer token.
type SessionResult struct {
	Token   string          `json:"token"`
	User    *domain.User    `json:"user"`
	Session *domain.Session `json:"session"`
}

// Identity is the authenticated caller behind a token.
type Identity struct {
	User    *domain.User
	Session *domain.Session
}

// Register creates an email account.
func (s *AccountService) Register(ctx context.Context, req RegisterRequest) (*domain.User, error) {
	req.Email = strings.TrimSpace(req.Email)
	req.Name = strings.TrimSpace(req.Name)
	if err := validate.Validate(req); err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user, err := s.newUser(req.Email, req.Name)
	if err != nil {
		return nil, err
	}
	user.PasswordHash = hash

	if err := s.store.CreateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return nil, domainerrors.Conflict("an account with this email already exists")
		}
		return nil, translateStoreErr(err, "user not found")
	}

	s.logger.Info("account registered", "user_id", user.ID)
	return user, nil
}

// Login verifies email credentials and opens a session.
func (s *AccountService) Login(ctx context.Context, req LoginRequest, client ClientInfo) (*SessionResult, error) {
	req.Email = strings.TrimSpace(req.Email)
	if err := validate.Validate(req); err != nil {
		return nil, err
	}

	user, err := s.store.GetUserByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domainerrors.InvalidCredentials("invalid email or password")
		}
		return nil, translateStoreErr(err, "user not found")
	}
	if user.PasswordHash == "" {
		return nil, domainerrors.InvalidCredentials("invalid email or password")
	}

	ok, err := auth.VerifyPassword(user.PasswordHash, req.Password)
	if err != nil {
		return nil, fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		return nil, domainerrors.InvalidCredentials("invalid email or password")
	}

	return s.openSession(ctx, user, domain.ProviderEmail, client)
}

// OAuthURL starts an OAuth flow. The browser is sent to the returned URL and
// comes back to successURL or failureURL once the provider answers.
func (s *AccountService) OAuthURL(ctx context.Context, provider, successURL, failureURL string) (string, error) {
	if provider != domain.ProviderGoogle {
		return "", domainerrors.Validationf("unsupported oauth provider %q", provider)
	}
	if s.google == nil {
		return "", domainerrors.Unavailable("google sign-in is not configured", nil)
	}
	for _, u := range []string{successURL, failureURL} {
		if err := s.checkReturnURL(u); err != nil {
			return "", err
		}
	}

	state := &domain.OAuthState{
		State:      uuid.NewString(),
		Provider:   provider,
		SuccessURL: successURL,
		FailureURL: failureURL,
		ExpiresAt:  s.now().Add(s.cfg.StateTTL),
	}
	if err := s.store.SaveOAuthState(ctx, state); err != nil {
		return "", translateStoreErr(err, "oauth state not found")
	}

	return s.google.AuthCodeURL(state.State), nil
}

// HandleOAuthCallback finishes an OAuth flow and returns where to redirect
// the browser. Provider and account failures redirect to the failure URL;
// an error is returned only when the state is unknown, since then there is
// nowhere safe to send the browser.
func (s *AccountService) HandleOAuthCallback(ctx context.Context, state, code, providerErr string) (string, error) {
	st, err := s.store.ConsumeOAuthState(ctx, state)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", domainerrors.Validation("unknown or expired oauth state")
		}
		return "", translateStoreErr(err, "oauth state not found")
	}
	if !s.now().Before(st.ExpiresAt) {
		return "", domainerrors.Validation("unknown or expired oauth state")
	}

	fail := func(reason string) (string, error) {
		return withQuery(st.FailureURL, url.Values{"error": {reason}}), nil
	}

	if providerErr != "" {
		s.logger.Info("oauth sign-in declined", "provider", st.Provider, "error", providerErr)
		return fail(OAuthErrorDenied)
	}
	if s.google == nil {
		return fail(OAuthErrorExchange)
	}

	profile, err := s.google.Exchange(ctx, code)
	if err != nil {
		s.logger.Warn("oauth exchange failed", "provider", st.Provider, "error", err)
		return fail(OAuthErrorExchange)
	}
	if !profile.VerifiedEmail {
		return fail(OAuthErrorUnverified)
	}

	user, err := s.upsertGoogleUser(ctx, profile)
	if err != nil {
		s.logger.Warn("oauth account upsert failed", "error", err)
		return fail(OAuthErrorAccountFailed)
	}

	secret, err := s.mintSecret(ctx, user.ID)
	if err != nil {
		s.logger.Warn("oauth secret mint failed", "user_id", user.ID, "error", err)
		return fail(OAuthErrorAccountFailed)
	}

	return withQuery(st.SuccessURL, url.Values{"userId": {user.ID}, "secret": {secret}}), nil
}

// CreateSession exchanges the one-time OAuth secret for a session. A secret
// is consumed by the first attempt, successful or not.
func (s *AccountService) CreateSession(ctx context.Context, userID, secret string, client ClientInfo) (*SessionResult, error) {
	if userID == "" || secret == "" {
		return nil, domainerrors.Validation("userId and secret are required")
	}

	pending, err := s.store.ConsumeOAuthToken(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domainerrors.InvalidCredentials("invalid or expired secret")
		}
		return nil, translateStoreErr(err, "token not found")
	}
	if !s.now().Before(pending.ExpiresAt) || !auth.VerifySecret(pending.SecretHash, secret) {
		return nil, domainerrors.InvalidCredentials("invalid or expired secret")
	}

	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return nil, translateStoreErr(err, "user not found")
	}
	return s.openSession(ctx, user, domain.ProviderGoogle, client)
}

// GetAccount resolves a session token to the caller's identity.
func (s *AccountService) GetAccount(ctx context.Context, token string) (*Identity, error) {
	if token == "" {
		return nil, domainerrors.Unauthorized("not signed in")
	}

	claims, err := s.tokens.VerifySessionToken(token)
	if err != nil {
		return nil, domainerrors.Unauthorized("invalid session")
	}

	session, err := s.store.GetSession(ctx, claims.SessionID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domainerrors.Unauthorized("session ended")
		}
		return nil, translateStoreErr(err, "session not found")
	}

	now := s.now()
	if session.IsExpired(now) {
		if err := s.store.DeleteSession(ctx, session.ID); err != nil && !errors.Is(err, store.ErrNotFound) {
			s.logger.Warn("failed to delete expired session", "session_id", session.ID, "error", err)
		}
		return nil, domainerrors.Unauthorized("session expired")
	}

	user, err := s.store.GetUser(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domainerrors.Unauthorized("account no longer exists")
		}
		return nil, translateStoreErr(err, "user not found")
	}

	if now.Sub(session.LastSeenAt) > touchInterval {
		if err := s.store.TouchSession(ctx, session.ID, now); err != nil {
			s.logger.Debug("failed to touch session", "session_id", session.ID, "error", err)
		} else {
			session.LastSeenAt = now
		}
	}

	return &Identity{User: user, Session: session}, nil
}

// ListSessions returns the caller's sessions, the current one marked.
func (s *AccountService) ListSessions(ctx context.Context, caller *Identity) ([]*domain.Session, error) {
	sessions, err := s.store.ListUserSessions(ctx, caller.User.ID)
	if err != nil {
		return nil, translateStoreErr(err, "sessions not found")
	}
	for _, sess := range sessions {
		sess.Current = sess.ID == caller.Session.ID
	}
	return nonNil(sessions), nil
}

// DeleteSession ends one of the caller's sessions. The id "current" ends
// the session the caller is using.
func (s *AccountService) DeleteSession(ctx context.Context, caller *Identity, sessionID string) error {
	if sessionID == domain.CurrentSessionID {
		sessionID = caller.Session.ID
	}

	if sessionID != caller.Session.ID {
		sess, err := s.store.GetSession(ctx, sessionID)
		if err != nil {
			return translateStoreErr(err, "session not found")
		}
		if sess.UserID != caller.User.ID {
			return domainerrors.NotFound("session not found")
		}
	}

	if err := s.store.DeleteSession(ctx, sessionID); err != nil {
		return translateStoreErr(err, "session not found")
	}
	s.logger.Info("session ended", "user_id", caller.User.ID, "session_id", sessionID)
	return nil
}

// PurgeExpiredSessions deletes sessions past their expiry.
func (s *AccountService) PurgeExpiredSessions(ctx context.Context) (int, error) {
	n, err := s.store.DeleteExpiredSessions(ctx, s.now())
	if err != nil {
		return 0, translateStoreErr(err, "sessions not found")
	}
	if n > 0 {
		s.logger.Info("purged expired sessions", "count", n)
	}
	return n, nil
}

func (s *AccountService) newUser(email, name string) (*domain.User, error) {
	userID, err := id.Generate(id.PrefixUser)
	if err != nil {
		return nil, fmt.Errorf("generate user ID: %w", err)
	}
	now := s.now().UTC()
	return &domain.User{
		ID:        userID,
		Email:     email,
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (s *AccountService) openSession(ctx context.Context, user *domain.User, provider string, client ClientInfo) (*SessionResult, error) {
	sessionID, err := id.Generate(id.PrefixSession)
	if err != nil {
		return nil, fmt.Errorf("generate session ID: %w", err)
	}

	now := s.now().UTC()
	session := &domain.Session{
		ID:         sessionID,
		UserID:     user.ID,
		Provider:   provider,
		ExpiresAt:  now.Add(s.cfg.SessionTTL),
		CreatedAt:  now,
		LastSeenAt: now,
		IPAddress:  client.IPAddress,
		UserAgent:  client.UserAgent,
	}
	if err := s.store.CreateSession(ctx, session); err != nil {
		return nil, translateStoreErr(err, "user not found")
	}

	token, err := s.tokens.IssueSessionToken(user, session)
	if err != nil {
		return nil, fmt.Errorf("issue session token: %w", err)
	}

	s.logger.Info("session created", "user_id", user.ID, "session_id", session.ID, "provider", provider)
	return &SessionResult{Token: token, User: user, Session: session}, nil
}

// upsertGoogleUser finds the account for a Google profile, linking an
// existing email account on first Google sign-in.
func (s *AccountService) upsertGoogleUser(ctx context.Context, profile *auth.GoogleUser) (*domain.User, error) {
	user, err := s.store.GetUserByGoogleSubject(ctx, profile.ID)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	user, err = s.store.GetUserByEmail(ctx, profile.Email)
	switch {
	case err == nil:
		user.GoogleSubject = profile.ID
		if user.Name == "" {
			user.Name = profile.Name
		}
		user.UpdatedAt = s.now().UTC()
		if err := s.store.UpdateUser(ctx, user); err != nil {
			return nil, err
		}
		return user, nil
	case errors.Is(err, store.ErrNotFound):
		user, err = s.newUser(profile.Email, profile.Name)
		if err != nil {
			return nil, err
		}
		user.GoogleSubject = profile.ID
		if err := s.store.CreateUser(ctx, user); err != nil {
			return nil, err
		}
		s.logger.Info("account created from google profile", "user_id", user.ID)
		return user, nil
	default:
		return nil, err
	}
}

// mintSecret stores a fresh one-time secret for userID and returns it.
func (s *AccountService) mintSecret(ctx context.Context, userID string) (string, error) {
	secret, err := id.Secret()
	if err != nil {
		return "", err
	}
	hash, err := auth.HashSecret(secret)
	if err != nil {
		return "", err
	}
	now := s.now().UTC()
	err = s.store.SaveOAuthToken(ctx, &domain.OAuthToken{
		UserID:     userID,
		SecretHash: hash,
		ExpiresAt:  now.Add(s.cfg.OAuthSecretTTL),
		CreatedAt:  now,
	})
	if err != nil {
		return "", err
	}
	return secret, nil
}

// checkReturnURL accepts absolute URLs on the public origin, and http
// loopback URLs used by native clients.
func (s *AccountService) checkReturnURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return domainerrors.Validationf("return url %q must be absolute", raw)
	}

	if public, err := url.Parse(s.cfg.PublicURL); err == nil &&
		strings.EqualFold(u.Scheme, public.Scheme) && strings.EqualFold(u.Host, public.Host) {
		return nil
	}

	if u.Scheme == "http" {
		host := u.Hostname()
		if host == "localhost" {
			return nil
		}
		if ip := net.ParseIP(host); ip != nil && ip.IsLoopback() {
			return nil
		}
	}

	return domainerrors.Validationf("return url %q is not allowed", raw)
}

// withQuery appends values to a URL, keeping its existing query.
func withQuery(raw string, values url.Values) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	q := u.Query()
	for k, vs := range values {
		for _, v := range vs {
			q.Add(k, v)
		}
	}
	u.RawQuery = q.Encode()
	return u.String()
}
