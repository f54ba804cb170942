package domain

import "time"

// Identity providers a session can originate from.
const (
	ProviderEmail  = "email"
	ProviderGoogle = "google"
)

// CurrentSessionID addresses the session making the request.
const CurrentSessionID = "current"

// User is an account known to the identity provider.
type User struct {
	ID            string    `json:"id"`
	Email         string    `json:"email"`
	Name          string    `json:"name"`
	PasswordHash  string    `json:"-"`
	GoogleSubject string    `json:"-"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Session is a login session.
type Session struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	Provider   string    `json:"provider"`
	ExpiresAt  time.Time `json:"expires_at"`
	CreatedAt  time.Time `json:"created_at"`
	LastSeenAt time.Time `json:"last_seen_at"`
	IPAddress  string    `json:"ip_address,omitempty"`
	UserAgent  string    `json:"user_agent,omitempty"`
	// Current marks the session a listing was requested with.
	Current bool `json:"current"`
}

// IsExpired reports whether the session is past its expiry at now.
func (s *Session) IsExpired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// Account is the identity behind a session token.
type Account struct {
	User    *User    `json:"user"`
	Session *Session `json:"session"`
}

// Team groups users. Membership in the admin team grants authoring.
type Team struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// Membership links a user to a team.
type Membership struct {
	TeamID    string    `json:"team_id"`
	UserID    string    `json:"user_id"`
	Roles     []string  `json:"roles"`
	CreatedAt time.Time `json:"created_at"`
}

// OAuthToken is a one-time credential minted at the end of an OAuth flow and
// exchanged by the client for a session.
type OAuthToken struct {
	UserID     string
	SecretHash string
	ExpiresAt  time.Time
	CreatedAt  time.Time
}

// OAuthState remembers where to send the browser once the provider answers.
type OAuthState struct {
	State      string
	Provider   string
	SuccessURL string
	FailureURL string
	ExpiresAt  time.Time
}
