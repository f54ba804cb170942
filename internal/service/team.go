package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/Sarcastic-Soul/blog-app/internal/domain"
	domainerrors "github.com/Sarcastic-Soul/blog-app/internal/errors"
	"github.com/Sarcastic-Soul/blog-app/internal/store"
)

// RoleOwner is the role given to members added by the admin tooling.
const RoleOwner = "owner"

// TeamService manages teams and memberships.
type TeamService struct {
	store  store.IdentityStore
	logger *slog.Logger
}

// NewTeamService creates a new team service.
func NewTeamService(identities store.IdentityStore, logger *slog.Logger) *TeamService {
	return &TeamService{store: identities, logger: logger}
}

// EnsureTeam returns the team with teamID, creating it when missing.
func (s *TeamService) EnsureTeam(ctx context.Context, teamID, name string) (*domain.Team, error) {
	team, err := s.store.GetTeam(ctx, teamID)
	if err == nil {
		return team, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, translateStoreErr(err, "team not found")
	}

	team = &domain.Team{ID: teamID, Name: name, CreatedAt: time.Now().UTC()}
	if err := s.store.CreateTeam(ctx, team); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			// Created concurrently.
			return s.GetTeam(ctx, teamID)
		}
		return nil, translateStoreErr(err, "team not found")
	}

	s.logger.Info("team created", "team_id", teamID, "name", name)
	return team, nil
}

// GetTeam returns the team with teamID.
func (s *TeamService) GetTeam(ctx context.Context, teamID string) (*domain.Team, error) {
	team, err := s.store.GetTeam(ctx, teamID)
	if err != nil {
		return nil, translateStoreErr(err, "team not found")
	}
	return team, nil
}

// AddMember adds the account with email to a team. An existing membership
// is a Conflict.
func (s *TeamService) AddMember(ctx context.Context, teamID, email string, roles ...string) (*domain.Membership, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, domainerrors.Validation("email is required")
	}

	user, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, translateStoreErr(err, "no account with email "+email)
	}

	if roles == nil {
		roles = []string{}
	}
	m := &domain.Membership{
		TeamID:    teamID,
		UserID:    user.ID,
		Roles:     roles,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.AddMembership(ctx, m); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return nil, domainerrors.Conflictf("%s is already a member of %s", email, teamID)
		}
		return nil, translateStoreErr(err, "team not found")
	}

	s.logger.Info("member added", "team_id", teamID, "user_id", user.ID)
	return m, nil
}

// ListTeamsForUser returns the teams userID belongs to.
func (s *TeamService) ListTeamsForUser(ctx context.Context, userID string) ([]*domain.Team, error) {
	teams, err := s.store.ListUserTeams(ctx, userID)
	if err != nil {
		return nil, translateStoreErr(err, "teams not found")
	}
	return nonNil(teams), nil
}

// IsMember reports whether userID belongs to teamID.
func (s *TeamService) IsMember(ctx context.Context, teamID, userID string) (bool, error) {
	ok, err := s.store.IsTeamMember(ctx, teamID, userID)
	if err != nil {
		return false, translateStoreErr(err, "team not found")
	}
	return ok, nil
}
