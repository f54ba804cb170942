// Package store defines the persistence contracts of the blog: a document
// store for posts and comments, and an identity store for accounts,
// sessions and teams.
package store

import (
	"context"
	"time"

	"github.com/Sarcastic-Soul/blog-app/internal/domain"
)

// Counter names an incrementable post counter.
type Counter string

// Post counters.
const (
	CounterViews Counter = "views"
	CounterLikes Counter = "likes"
)

// PostStore is the document store for posts.
type PostStore interface {
	// QueryPosts returns the page selected by q and the number of posts
	// matching q's filters and search term.
	QueryPosts(ctx context.Context, q Query) (*domain.PostList, error)
	// CountPosts counts posts matching every filter.
	CountPosts(ctx context.Context, filters ...Filter) (int, error)
	GetPost(ctx context.Context, id string) (*domain.Post, error)
	CreatePost(ctx context.Context, p *domain.Post) error
	UpdatePost(ctx context.Context, p *domain.Post) error
	DeletePost(ctx context.Context, id string) error
	// IncrementPostCounter atomically adds one to a counter and returns the
	// post as written.
	IncrementPostCounter(ctx context.Context, id string, counter Counter) (*domain.Post, error)
	// ListPublishedTags returns the tags of up to limit published posts.
	ListPublishedTags(ctx context.Context, limit int) ([]string, error)
	// EachPost calls fn for every stored post. Used for reindexing.
	EachPost(ctx context.Context, fn func(*domain.Post) error) error
	SetHeaderImage(ctx context.Context, id, url, blurHash string) (*domain.Post, error)
}

// CommentStore is the document store for comments.
type CommentStore interface {
	CreateComment(ctx context.Context, c *domain.Comment) error
	GetComment(ctx context.Context, id string) (*domain.Comment, error)
	ListComments(ctx context.Context, postID string, approvedOnly bool) ([]*domain.Comment, error)
	ListPendingComments(ctx context.Context, limit int) ([]*domain.Comment, error)
	ApproveComment(ctx context.Context, id string) (*domain.Comment, error)
	DeleteComment(ctx context.Context, id string) error
}

// DocumentStore holds posts and their comments.
type DocumentStore interface {
	PostStore
	CommentStore
}

// IdentityStore persists accounts, sessions, teams and OAuth hand-off state.
type IdentityStore interface {
	CreateUser(ctx context.Context, u *domain.User) error
	GetUser(ctx context.Context, id string) (*domain.User, error)
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
	GetUserByGoogleSubject(ctx context.Context, subject string) (*domain.User, error)
	UpdateUser(ctx context.Context, u *domain.User) error

	CreateSession(ctx context.Context, s *domain.Session) error
	GetSession(ctx context.Context, id string) (*domain.Session, error)
	ListUserSessions(ctx context.Context, userID string) ([]*domain.Session, error)
	TouchSession(ctx context.Context, id string, at time.Time) error
	DeleteSession(ctx context.Context, id string) error
	DeleteExpiredSessions(ctx context.Context, now time.Time) (int, error)

	CreateTeam(ctx context.Context, t *domain.Team) error
	GetTeam(ctx context.Context, id string) (*domain.Team, error)
	AddMembership(ctx context.Context, m *domain.Membership) error
	ListUserTeams(ctx context.Context, userID string) ([]*domain.Team, error)
	IsTeamMember(ctx context.Context, teamID, userID string) (bool, error)

	SaveOAuthToken(ctx context.Context, t *domain.OAuthToken) error
	// ConsumeOAuthToken deletes and returns the user's pending token.
	ConsumeOAuthToken(ctx context.Context, userID string) (*domain.OAuthToken, error)
	SaveOAuthState(ctx context.Context, s *domain.OAuthState) error
	ConsumeOAuthState(ctx context.Context, state string) (*domain.OAuthState, error)
}

// SearchIndexer keeps a full-text index in step with post writes.
type SearchIndexer interface {
	IndexPost(ctx context.Context, p *domain.Post) error
	DeletePost(ctx context.Context, id string) error
}

// PostMatcher answers full-text queries with post IDs, best match first.
// A SearchIndexer that also implements PostMatcher serves Query.Search.
type PostMatcher interface {
	MatchPostIDs(ctx context.Context, term string, limit int) ([]string, error)
}

// NoopSearchIndexer is a no-op implementation for testing.
type NoopSearchIndexer struct{}

func (NoopSearchIndexer) IndexPost(context.Context, *domain.Post) error { return nil }
func (NoopSearchIndexer) DeletePost(context.Context, string) error      { return nil }

// NewNoopSearchIndexer creates a new no-op search indexer.
func NewNoopSearchIndexer() SearchIndexer { return NoopSearchIndexer{} }

// Event types published by the stores.
const (
	EventPostCreated    = "post.created"
	EventPostUpdated    = "post.updated"
	EventPostDeleted    = "post.deleted"
	EventSessionDeleted = "session.deleted"
)

// Event is a change notification. UserID scopes delivery to one user's
// connections; empty means broadcast.
type Event struct {
	Type   string `json:"type"`
	UserID string `json:"-"`
	Data   any    `json:"data,omitempty"`
}

// EventEmitter receives change notifications after successful writes.
type EventEmitter interface {
	Emit(e Event)
}

// NoopEmitter drops events.
type NoopEmitter struct{}

// Emit implements EventEmitter.
func (NoopEmitter) Emit(Event) {}

// NewNoopEmitter creates a new no-op emitter.
func NewNoopEmitter() EventEmitter { return NoopEmitter{} }
