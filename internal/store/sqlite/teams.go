package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/Sarcastic-Soul/blog-app/internal/domain"
	"github.com/Sarcastic-Soul/blog-app/internal/store"
)

// CreateTeam inserts a team.
// Returns store.ErrAlreadyExists if the ID is taken.
func (s *Store) CreateTeam(ctx context.Context, t *domain.Team) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO teams (id, name, created_at) VALUES (?, ?, ?)`,
		t.ID, t.Name, formatTime(t.CreatedAt))
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrAlreadyExists.WithMessage("team already exists")
		}
		return wrapErr(err)
	}
	return nil
}

// GetTeam retrieves a team by ID.
func (s *Store) GetTeam(ctx context.Context, id string) (*domain.Team, error) {
	var (
		t         domain.Team
		createdAt string
	)
	err := s.db.QueryRowContext(ctx, `SELECT id, name, created_at FROM teams WHERE id = ?`, id).
		Scan(&t.ID, &t.Name, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound.WithMessage("team not found")
	}
	if err != nil {
		return nil, wrapErr(err)
	}
	if t.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	return &t, nil
}

// AddMembership adds a user to a team.
// Returns store.ErrAlreadyExists if the user is already a member and
// store.ErrNotFound if the team or user is missing.
func (s *Store) AddMembership(ctx context.Context, m *domain.Membership) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO memberships (team_id, user_id, roles, created_at) VALUES (?, ?, ?, ?)`,
		m.TeamID, m.UserID, strings.Join(m.Roles, ","), formatTime(m.CreatedAt))
	if err != nil {
		if isUniqueViolation(err) || strings.Contains(err.Error(), "PRIMARY KEY") {
			return store.ErrAlreadyExists.WithMessage("already a member")
		}
		if isForeignKeyViolation(err) {
			return store.ErrNotFound.WithMessage("team or user not found")
		}
		return wrapErr(err)
	}
	return nil
}

// ListUserTeams returns the teams a user belongs to, ordered by name.
func (s *Store) ListUserTeams(ctx context.Context, userID string) ([]*domain.Team, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT t.id, t.name, t.created_at
		FROM teams t
		JOIN memberships m ON m.team_id = t.id
		WHERE m.user_id = ?
		ORDER BY t.name, t.id`, userID)
	if err != nil {
		return nil, wrapErr(err)
	}
	defer rows.Close()

	teams := []*domain.Team{}
	for rows.Next() {
		var (
			t         domain.Team
			createdAt string
		)
		if err := rows.Scan(&t.ID, &t.Name, &createdAt); err != nil {
			return nil, err
		}
		if t.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		teams = append(teams, &t)
	}
	return teams, wrapErr(rows.Err())
}

// IsTeamMember reports whether the user belongs to the team.
func (s *Store) IsTeamMember(ctx context.Context, teamID, userID string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM memberships WHERE team_id = ? AND user_id = ?`, teamID, userID).Scan(&n)
	if err != nil {
		return false, wrapErr(err)
	}
	return n > 0, nil
}
