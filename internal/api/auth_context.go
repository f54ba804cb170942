package api

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"

	domainerrors "github.com/Sarcastic-Soul/blog-app/internal/errors"
	"github.com/Sarcastic-Soul/blog-app/internal/service"
)

// ctxKey is the type for context keys to avoid collisions.
type ctxKey string

const (
	identityKey ctxKey = "identity"
	authErrKey  ctxKey = "authErr"
	tokenKey    ctxKey = "token"
	clientKey   ctxKey = "client"
)

// GetIdentity returns the authenticated caller from context.
// Returns 401 if the request carried no valid session, or 503 when the
// identity store could not be reached to check it.
func GetIdentity(ctx context.Context) (*service.Identity, error) {
	if id, ok := ctx.Value(identityKey).(*service.Identity); ok && id != nil {
		return id, nil
	}
	if err, ok := ctx.Value(authErrKey).(error); ok && errors.Is(err, domainerrors.ErrUnavailable) {
		return nil, err
	}
	return nil, domainerrors.Unauthorized("authentication required")
}

// optionalIdentity returns the caller when signed in, nil otherwise.
func optionalIdentity(ctx context.Context) *service.Identity {
	id, _ := ctx.Value(identityKey).(*service.Identity)
	return id
}

// RequireAdmin validates the caller is authenticated and a member of the
// admin team.
func (s *Server) RequireAdmin(ctx context.Context) (*service.Identity, error) {
	id, err := GetIdentity(ctx)
	if err != nil {
		return nil, err
	}

	ok, err := s.services.Team.IsMember(ctx, s.opts.AdminTeamID, id.User.ID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domainerrors.Forbidden("admin access required")
	}
	return id, nil
}

// isAdmin reports whether the caller, if any, is an admin. Lookup failures
// count as not an admin.
func (s *Server) isAdmin(ctx context.Context) bool {
	id := optionalIdentity(ctx)
	if id == nil {
		return false
	}
	ok, err := s.services.Team.IsMember(ctx, s.opts.AdminTeamID, id.User.ID)
	if err != nil {
		s.logger.Debug("admin check failed", "user_id", id.User.ID, "error", err)
		return false
	}
	return ok
}

// clientInfo returns the address and user agent of the request.
func clientInfo(ctx context.Context) service.ClientInfo {
	info, _ := ctx.Value(clientKey).(service.ClientInfo)
	return info
}

// sessionToken extracts the session token from the Authorization header,
// falling back to the session cookie.
func sessionToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		parts := strings.SplitN(h, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
		return ""
	}
	if c, err := r.Cookie(SessionCookie); err == nil {
		return c.Value
	}
	return ""
}

// remoteIP strips the port from RemoteAddr. chi's RealIP middleware has
// already applied X-Forwarded-For and X-Real-IP.
func remoteIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
