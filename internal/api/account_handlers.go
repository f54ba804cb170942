package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/Sarcastic-Soul/blog-app/internal/domain"
	"github.com/Sarcastic-Soul/blog-app/internal/service"
)

func (s *Server) registerAccountRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID:   "register",
		Method:        http.MethodPost,
		Path:          "/api/v1/account",
		Summary:       "Register account",
		Description:   "Creates an email and password account",
		Tags:          []string{"Account"},
		DefaultStatus: http.StatusCreated,
	}, s.handleRegister)

	huma.Register(s.api, huma.Operation{
		OperationID:   "createEmailSession",
		Method:        http.MethodPost,
		Path:          "/api/v1/account/sessions/email",
		Summary:       "Email login",
		Description:   "Verifies email credentials and opens a session. The token is returned and set as a cookie.",
		Tags:          []string{"Account"},
		DefaultStatus: http.StatusCreated,
	}, s.handleEmailLogin)

	huma.Register(s.api, huma.Operation{
		OperationID:   "createTokenSession",
		Method:        http.MethodPost,
		Path:          "/api/v1/account/sessions/token",
		Summary:       "Exchange OAuth secret",
		Description:   "Exchanges the one-time userId and secret from an OAuth redirect for a session",
		Tags:          []string{"Account"},
		DefaultStatus: http.StatusCreated,
	}, s.handleTokenSession)

	huma.Register(s.api, huma.Operation{
		OperationID: "getAccount",
		Method:      http.MethodGet,
		Path:        "/api/v1/account",
		Summary:     "Current account",
		Description: "Returns the caller's account and session",
		Tags:        []string{"Account"},
		Security:    []map[string][]string{{"bearer": {}}, {"cookie": {}}},
	}, s.handleGetAccount)

	huma.Register(s.api, huma.Operation{
		OperationID: "listSessions",
		Method:      http.MethodGet,
		Path:        "/api/v1/account/sessions",
		Summary:     "List sessions",
		Tags:        []string{"Account"},
		Security:    []map[string][]string{{"bearer": {}}, {"cookie": {}}},
	}, s.handleListSessions)

	huma.Register(s.api, huma.Operation{
		OperationID:   "deleteSession",
		Method:        http.MethodDelete,
		Path:          "/api/v1/account/sessions/{id}",
		Summary:       "End session",
		Description:   "Ends one of the caller's sessions; the id \"current\" ends the calling session",
		Tags:          []string{"Account"},
		DefaultStatus: http.StatusNoContent,
		Security:      []map[string][]string{{"bearer": {}}, {"cookie": {}}},
	}, s.handleDeleteSession)

	huma.Register(s.api, huma.Operation{
		OperationID: "listTeams",
		Method:      http.MethodGet,
		Path:        "/api/v1/account/teams",
		Summary:     "List teams",
		Description: "Returns the teams the caller belongs to",
		Tags:        []string{"Account"},
		Security:    []map[string][]string{{"bearer": {}}, {"cookie": {}}},
	}, s.handleListTeams)

	huma.Register(s.api, huma.Operation{
		OperationID: "startGoogleOAuth",
		Method:      http.MethodGet,
		Path:        "/api/v1/account/oauth/google",
		Summary:     "Start Google sign-in",
		Description: "Redirects the browser to Google. The browser comes back to success or failure.",
		Tags:        []string{"Account"},
	}, s.handleStartGoogleOAuth)

	huma.Register(s.api, huma.Operation{
		OperationID: "googleOAuthCallback",
		Method:      http.MethodGet,
		Path:        "/api/v1/account/oauth/google/callback",
		Summary:     "Google sign-in callback",
		Tags:        []string{"Account"},
	}, s.handleGoogleOAuthCallback)
}

// === DTOs ===

// RegisterRequest is the request body for account registration.
type RegisterRequest struct {
	Email    string `json:"email" format:"email" maxLength:"254" doc:"Email address"`
	Password string `json:"password" minLength:"8" maxLength:"1024" doc:"Password"`
	Name     string `json:"name" minLength:"1" maxLength:"100" doc:"Display name"`
}

// RegisterInput wraps the register request for Huma.
type RegisterInput struct {
	Body RegisterRequest
}

// UserOutput wraps a user for Huma.
type UserOutput struct {
	Body *domain.User
}

// EmailLoginRequest is the request body for email login.
type EmailLoginRequest struct {
	Email    string `json:"email" maxLength:"254" doc:"Email address"`
	Password string `json:"password" maxLength:"1024" doc:"Password"`
}

// EmailLoginInput wraps the login request for Huma.
type EmailLoginInput struct {
	Body EmailLoginRequest
}

// TokenSessionRequest is the request body for the OAuth secret exchange.
type TokenSessionRequest struct {
	UserID string `json:"user_id" maxLength:"100" doc:"userId from the OAuth redirect"`
	Secret string `json:"secret" maxLength:"200" doc:"secret from the OAuth redirect"`
}

// TokenSessionInput wraps the exchange request for Huma.
type TokenSessionInput struct {
	Body TokenSessionRequest
}

// SessionOutput carries a new session, its token and the session cookie.
type SessionOutput struct {
	SetCookie http.Cookie `header:"Set-Cookie"`
	Body      *service.SessionResult
}

// AccountResponse is the caller's identity.
type AccountResponse struct {
	User    *domain.User    `json:"user" doc:"Account"`
	Session *domain.Session `json:"session" doc:"Session the request was made with"`
}

// AccountOutput wraps the account response for Huma.
type AccountOutput struct {
	Body AccountResponse
}

// SessionsResponse lists sessions.
type SessionsResponse struct {
	Sessions []*domain.Session `json:"sessions" doc:"Sessions, newest first"`
}

// SessionsOutput wraps sessions for Huma.
type SessionsOutput struct {
	Body SessionsResponse
}

// SessionIDInput selects a session.
type SessionIDInput struct {
	ID string `path:"id" doc:"Session ID or \"current\""`
}

// DeleteSessionOutput clears the cookie when the calling session ends.
type DeleteSessionOutput struct {
	SetCookie []http.Cookie `header:"Set-Cookie"`
}

// TeamsResponse lists teams.
type TeamsResponse struct {
	Teams []*domain.Team `json:"teams" doc:"Teams"`
}

// TeamsOutput wraps teams for Huma.
type TeamsOutput struct {
	Body TeamsResponse
}

// StartOAuthInput carries the return URLs.
type StartOAuthInput struct {
	Success string `query:"success" required:"true" doc:"Where to return after sign-in, with userId and secret"`
	Failure string `query:"failure" required:"true" doc:"Where to return when sign-in fails, with error"`
}

// OAuthCallbackInput is what the provider sends back.
type OAuthCallbackInput struct {
	State string `query:"state" doc:"Opaque state from the start of the flow"`
	Code  string `query:"code" doc:"Authorization code"`
	Error string `query:"error" doc:"Provider error, such as access_denied"`
}

// RedirectOutput sends the browser elsewhere.
type RedirectOutput struct {
	Status   int
	Location string `header:"Location"`
	Cache    string `header:"Cache-Control"`
}

// === Handlers ===

func (s *Server) handleRegister(ctx context.Context, input *RegisterInput) (*UserOutput, error) {
	user, err := s.services.Account.Register(ctx, service.RegisterRequest{
		Email:    input.Body.Email,
		Password: input.Body.Password,
		Name:     input.Body.Name,
	})
	if err != nil {
		return nil, err
	}
	return &UserOutput{Body: user}, nil
}

func (s *Server) handleEmailLogin(ctx context.Context, input *EmailLoginInput) (*SessionOutput, error) {
	if !s.allow(ctx, s.loginLimiter, "login") {
		return nil, rateLimited()
	}

	res, err := s.services.Account.Login(ctx, service.LoginRequest{
		Email:    input.Body.Email,
		Password: input.Body.Password,
	}, clientInfo(ctx))
	if err != nil {
		return nil, err
	}
	return s.sessionOutput(res), nil
}

func (s *Server) handleTokenSession(ctx context.Context, input *TokenSessionInput) (*SessionOutput, error) {
	if !s.allow(ctx, s.loginLimiter, "token") {
		return nil, rateLimited()
	}

	res, err := s.services.Account.CreateSession(ctx, input.Body.UserID, input.Body.Secret, clientInfo(ctx))
	if err != nil {
		return nil, err
	}
	return s.sessionOutput(res), nil
}

func (s *Server) handleGetAccount(ctx context.Context, _ *struct{}) (*AccountOutput, error) {
	caller, err := GetIdentity(ctx)
	if err != nil {
		return nil, err
	}
	return &AccountOutput{Body: AccountResponse{User: caller.User, Session: caller.Session}}, nil
}

func (s *Server) handleListSessions(ctx context.Context, _ *struct{}) (*SessionsOutput, error) {
	caller, err := GetIdentity(ctx)
	if err != nil {
		return nil, err
	}

	sessions, err := s.services.Account.ListSessions(ctx, caller)
	if err != nil {
		return nil, err
	}
	return &SessionsOutput{Body: SessionsResponse{Sessions: sessions}}, nil
}

func (s *Server) handleDeleteSession(ctx context.Context, input *SessionIDInput) (*DeleteSessionOutput, error) {
	caller, err := GetIdentity(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.services.Account.DeleteSession(ctx, caller, input.ID); err != nil {
		return nil, err
	}

	out := &DeleteSessionOutput{}
	if input.ID == domain.CurrentSessionID || input.ID == caller.Session.ID {
		out.SetCookie = []http.Cookie{s.sessionCookie("", time.Unix(0, 0))}
	}
	return out, nil
}

func (s *Server) handleListTeams(ctx context.Context, _ *struct{}) (*TeamsOutput, error) {
	caller, err := GetIdentity(ctx)
	if err != nil {
		return nil, err
	}

	teams, err := s.services.Team.ListTeamsForUser(ctx, caller.User.ID)
	if err != nil {
		return nil, err
	}
	return &TeamsOutput{Body: TeamsResponse{Teams: teams}}, nil
}

func (s *Server) handleStartGoogleOAuth(ctx context.Context, input *StartOAuthInput) (*RedirectOutput, error) {
	target, err := s.services.Account.OAuthURL(ctx, domain.ProviderGoogle, input.Success, input.Failure)
	if err != nil {
		return nil, err
	}
	return &RedirectOutput{Status: http.StatusFound, Location: target, Cache: CacheNoStore}, nil
}

func (s *Server) handleGoogleOAuthCallback(ctx context.Context, input *OAuthCallbackInput) (*RedirectOutput, error) {
	target, err := s.services.Account.HandleOAuthCallback(ctx, input.State, input.Code, input.Error)
	if err != nil {
		return nil, err
	}
	return &RedirectOutput{Status: http.StatusFound, Location: target, Cache: CacheNoStore}, nil
}

// === Helpers ===

func (s *Server) sessionOutput(res *service.SessionResult) *SessionOutput {
	return &SessionOutput{
		SetCookie: s.sessionCookie(res.Token, res.Session.ExpiresAt),
		Body:      res,
	}
}

// sessionCookie builds the session cookie. An empty token expires it.
func (s *Server) sessionCookie(token string, expires time.Time) http.Cookie {
	c := http.Cookie{
		Name:     SessionCookie,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   s.opts.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	}
	if token == "" {
		c.MaxAge = -1
	}
	return c
}
