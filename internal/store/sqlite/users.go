package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/Sarcastic-Soul/blog-app/internal/domain"
	"github.com/Sarcastic-Soul/blog-app/internal/store"
)

// userColumns is the ordered list of columns selected in user queries.
// Must match the scan order in scanUser.
const userColumns = `id, email, name, password_hash, google_subject, created_at, updated_at`

// scanUser scans a sql.Row (or sql.Rows via its Scan method) into a domain.User.
func scanUser(scanner interface{ Scan(dest ...any) error }) (*domain.User, error) {
	var (
		u             domain.User
		passwordHash  sql.NullString
		googleSubject sql.NullString
		createdAt     string
		updatedAt     string
	)
	err := scanner.Scan(&u.ID, &u.Email, &u.Name, &passwordHash, &googleSubject, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	u.PasswordHash = passwordHash.String
	u.GoogleSubject = googleSubject.String
	if u.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if u.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &u, nil
}

// CreateUser inserts a new user.
// Returns store.ErrAlreadyExists if the email or Google subject is taken.
func (s *Store) CreateUser(ctx context.Context, u *domain.User) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, email, name, password_hash, google_subject, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		u.ID,
		strings.TrimSpace(u.Email),
		u.Name,
		nullString(u.PasswordHash),
		nullString(u.GoogleSubject),
		formatTime(u.CreatedAt),
		formatTime(u.UpdatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrAlreadyExists.WithMessage("user already exists")
		}
		return wrapErr(err)
	}
	return nil
}

// GetUser retrieves a user by ID.
func (s *Store) GetUser(ctx context.Context, id string) (*domain.User, error) {
	return s.getUserWhere(ctx, `id = ?`, id)
}

// GetUserByEmail retrieves a user by email, case-insensitively.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	return s.getUserWhere(ctx, `email = ?`, strings.TrimSpace(email))
}

// GetUserByGoogleSubject retrieves the user linked to a Google account.
func (s *Store) GetUserByGoogleSubject(ctx context.Context, subject string) (*domain.User, error) {
	return s.getUserWhere(ctx, `google_subject = ?`, subject)
}

func (s *Store) getUserWhere(ctx context.Context, cond string, arg any) (*domain.User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE `+cond, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound.WithMessage("user not found")
	}
	if err != nil {
		return nil, wrapErr(err)
	}
	return u, nil
}

// UpdateUser performs a full row update.
func (s *Store) UpdateUser(ctx context.Context, u *domain.User) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE users SET email = ?, name = ?, password_hash = ?, google_subject = ?, updated_at = ?
		WHERE id = ?`,
		strings.TrimSpace(u.Email),
		u.Name,
		nullString(u.PasswordHash),
		nullString(u.GoogleSubject),
		formatTime(u.UpdatedAt),
		u.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrAlreadyExists.WithMessage("email already in use")
		}
		return wrapErr(err)
	}
	if err := rowsAffected(result); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return store.ErrNotFound.WithMessage("user not found")
		}
		return err
	}
	return nil
}
