package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/Sarcastic-Soul/blog-app/internal/domain"
	"github.com/Sarcastic-Soul/blog-app/internal/store"
)

const commentColumns = `id, post_id, content, author_id, author_name, is_approved, created_at`

func scanComment(scanner interface{ Scan(dest ...any) error }) (*domain.Comment, error) {
	var (
		c          domain.Comment
		isApproved int
		createdAt  string
	)
	if err := scanner.Scan(&c.ID, &c.PostID, &c.Content, &c.AuthorID, &c.AuthorName, &isApproved, &createdAt); err != nil {
		return nil, err
	}
	c.IsApproved = isApproved != 0
	var err error
	if c.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	return &c, nil
}

// CreateComment inserts a comment. The post must exist.
func (s *Store) CreateComment(ctx context.Context, c *domain.Comment) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO comments (id, post_id, content, author_id, author_name, is_approved, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.PostID, c.Content, c.AuthorID, c.AuthorName, boolInt(c.IsApproved), formatTime(c.CreatedAt))
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrAlreadyExists.WithMessage("comment already exists")
		}
		if isForeignKeyViolation(err) {
			return store.ErrNotFound.WithMessage("post not found")
		}
		return wrapErr(err)
	}
	return nil
}

// GetComment retrieves a comment by ID.
func (s *Store) GetComment(ctx context.Context, id string) (*domain.Comment, error) {
	c, err := scanComment(s.db.QueryRowContext(ctx, `SELECT `+commentColumns+` FROM comments WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound.WithMessage("comment not found")
	}
	if err != nil {
		return nil, wrapErr(err)
	}
	return c, nil
}

// ListComments returns a post's comments, oldest first.
func (s *Store) ListComments(ctx context.Context, postID string, approvedOnly bool) ([]*domain.Comment, error) {
	query := `SELECT ` + commentColumns + ` FROM comments WHERE post_id = ?`
	if approvedOnly {
		query += ` AND is_approved = 1`
	}
	query += ` ORDER BY created_at ASC, id ASC`
	return s.queryComments(ctx, query, postID)
}

// ListPendingComments returns comments awaiting approval, oldest first.
func (s *Store) ListPendingComments(ctx context.Context, limit int) ([]*domain.Comment, error) {
	if limit <= 0 {
		limit = store.DefaultLimit
	}
	return s.queryComments(ctx,
		`SELECT `+commentColumns+` FROM comments WHERE is_approved = 0 ORDER BY created_at ASC, id ASC LIMIT ?`, limit)
}

func (s *Store) queryComments(ctx context.Context, query string, args ...any) ([]*domain.Comment, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrapErr(err)
	}
	defer rows.Close()

	comments := []*domain.Comment{}
	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			return nil, err
		}
		comments = append(comments, c)
	}
	return comments, wrapErr(rows.Err())
}

// ApproveComment marks a comment approved and returns it.
func (s *Store) ApproveComment(ctx context.Context, id string) (*domain.Comment, error) {
	result, err := s.db.ExecContext(ctx, `UPDATE comments SET is_approved = 1 WHERE id = ?`, id)
	if err != nil {
		return nil, wrapErr(err)
	}
	if err := rowsAffected(result); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, store.ErrNotFound.WithMessage("comment not found")
		}
		return nil, err
	}
	return s.GetComment(ctx, id)
}

// DeleteComment hard-deletes a comment.
func (s *Store) DeleteComment(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM comments WHERE id = ?`, id)
	if err != nil {
		return wrapErr(err)
	}
	if err := rowsAffected(result); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return store.ErrNotFound.WithMessage("comment not found")
		}
		return err
	}
	return nil
}
