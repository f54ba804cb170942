package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/Sarcastic-Soul/blog-app/internal/domain"
	"github.com/Sarcastic-Soul/blog-app/internal/store"
)

// SaveOAuthToken stores the user's pending one-time token, replacing any
// earlier one.
func (s *Store) SaveOAuthToken(ctx context.Context, t *domain.OAuthToken) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO oauth_tokens (user_id, secret_hash, expires_at, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			secret_hash = excluded.secret_hash,
			expires_at = excluded.expires_at,
			created_at = excluded.created_at`,
		t.UserID, t.SecretHash, formatTime(t.ExpiresAt), formatTime(t.CreatedAt))
	if err != nil {
		if isForeignKeyViolation(err) {
			return store.ErrNotFound.WithMessage("user not found")
		}
		return wrapErr(err)
	}
	return nil
}

// ConsumeOAuthToken deletes and returns the user's pending token, so a
// token can be exchanged at most once.
func (s *Store) ConsumeOAuthToken(ctx context.Context, userID string) (*domain.OAuthToken, error) {
	var (
		t         domain.OAuthToken
		expiresAt string
		createdAt string
	)
	err := s.db.QueryRowContext(ctx,
		`DELETE FROM oauth_tokens WHERE user_id = ? RETURNING user_id, secret_hash, expires_at, created_at`, userID).
		Scan(&t.UserID, &t.SecretHash, &expiresAt, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound.WithMessage("no pending token")
	}
	if err != nil {
		return nil, wrapErr(err)
	}
	if t.ExpiresAt, err = parseTime(expiresAt); err != nil {
		return nil, err
	}
	if t.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	return &t, nil
}

// SaveOAuthState records an in-flight OAuth redirect.
func (s *Store) SaveOAuthState(ctx context.Context, st *domain.OAuthState) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO oauth_states (state, provider, success_url, failure_url, expires_at)
		VALUES (?, ?, ?, ?, ?)`,
		st.State, st.Provider, st.SuccessURL, st.FailureURL, formatTime(st.ExpiresAt))
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrAlreadyExists.WithMessage("state already exists")
		}
		return wrapErr(err)
	}
	return nil
}

// ConsumeOAuthState deletes and returns an OAuth state.
func (s *Store) ConsumeOAuthState(ctx context.Context, state string) (*domain.OAuthState, error) {
	var (
		st        domain.OAuthState
		expiresAt string
	)
	err := s.db.QueryRowContext(ctx,
		`DELETE FROM oauth_states WHERE state = ? RETURNING state, provider, success_url, failure_url, expires_at`, state).
		Scan(&st.State, &st.Provider, &st.SuccessURL, &st.FailureURL, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound.WithMessage("unknown oauth state")
	}
	if err != nil {
		return nil, wrapErr(err)
	}
	if st.ExpiresAt, err = parseTime(expiresAt); err != nil {
		return nil, err
	}
	return &st, nil
}
