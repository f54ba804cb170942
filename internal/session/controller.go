// Package session tracks whether the quack user is signed in. A Controller
// asks the identity provider who the caller is, keeps the last answer, and
// tells subscribers when it changes. Refreshes come from explicit calls,
// from Trigger, and from the token file and signal watchers in this package.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/Sarcastic-Soul/blog-app/internal/domain"
	domainerrors "github.com/Sarcastic-Soul/blog-app/internal/errors"
)

// Callback query parameters set by the identity provider after OAuth.
const (
	ParamUserID = "userId"
	ParamSecret = "secret"
	ParamError  = "error"
)

// Defaults for Options.
const (
	DefaultPollInterval = 250 * time.Millisecond
	DefaultPollTimeout  = 10 * time.Second
)

// State is the authentication state.
type State int

// Authentication states.
const (
	StateUnknown State = iota
	StateAuthenticated
	StateAnonymous
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateAuthenticated:
		return "authenticated"
	case StateAnonymous:
		return "anonymous"
	default:
		return "unknown"
	}
}

// Snapshot is the controller's view of the session at one moment. Teams is
// empty, never nil, outside StateUnknown.
type Snapshot struct {
	State   State
	User    *domain.User
	Session *domain.Session
	Teams   []*domain.Team
}

// TeamIDs returns the IDs of the snapshot's teams.
func (s Snapshot) TeamIDs() []string {
	ids := make([]string, 0, len(s.Teams))
	for _, t := range s.Teams {
		ids = append(ids, t.ID)
	}
	return ids
}

func (s Snapshot) equal(o Snapshot) bool {
	if s.State != o.State || userID(s.User) != userID(o.User) {
		return false
	}
	return slices.Equal(s.TeamIDs(), o.TeamIDs())
}

func userID(u *domain.User) string {
	if u == nil {
		return ""
	}
	return u.ID
}

// Provider is the remote identity provider.
type Provider interface {
	GetAccount(ctx context.Context) (*domain.Account, error)
	ListTeams(ctx context.Context) ([]*domain.Team, error)
	ListSessions(ctx context.Context) ([]*domain.Session, error)
	CreateSession(ctx context.Context, userID, secret string) (*domain.Session, error)
	DeleteSession(ctx context.Context, sessionID string) error
	OAuthURL(provider, successURL, failureURL string) (string, error)
}

// Navigator hands the user over to target, typically a browser. It does not
// report back; the result arrives through Start.
type Navigator func(target string)

// URLReplacer receives the callback parameters left once the credentials
// have been removed.
type URLReplacer func(remaining url.Values)

// Options configures a Controller.
type Options struct {
	// AdminTeamID names the team whose members may author posts.
	AdminTeamID string
	// SuccessURL and FailureURL are where the provider returns after OAuth.
	SuccessURL string
	FailureURL string

	PollInterval time.Duration
	PollTimeout  time.Duration

	Navigate   Navigator
	ReplaceURL URLReplacer
}

// Controller holds the authentication state.
type Controller struct {
	provider Provider
	opts     Options
	logger   *slog.Logger

	mu   sync.RWMutex
	snap Snapshot
	// epoch advances on logout; checks begun in an older epoch are discarded.
	epoch uint64

	subMu sync.Mutex
	subs  map[int]chan Snapshot
	next  int

	group    singleflight.Group
	triggers chan string
}

// NewController creates a controller in StateUnknown.
func NewController(provider Provider, opts Options, logger *slog.Logger) *Controller {
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.PollTimeout <= 0 {
		opts.PollTimeout = DefaultPollTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		provider: provider,
		opts:     opts,
		logger:   logger,
		subs:     make(map[int]chan Snapshot),
		triggers: make(chan string, 1),
	}
}

// Start resolves the initial state. When callback carries a userId and
// secret from an OAuth redirect they are exchanged for a session first, and
// the controller waits for the provider to report it active.
func (c *Controller) Start(ctx context.Context, callback url.Values) Snapshot {
	userID, secret := callback.Get(ParamUserID), callback.Get(ParamSecret)
	if providerErr := callback.Get(ParamError); providerErr != "" {
		c.logger.Warn("sign-in failed at provider", "error", providerErr)
		c.stripCallback(callback)
	}
	if userID == "" || secret == "" {
		return c.Check(ctx)
	}

	_, err := c.provider.CreateSession(ctx, userID, secret)
	c.stripCallback(callback)
	if err != nil {
		c.logger.Warn("failed to create session from callback", "user_id", userID, "error", err)
		return c.setAnonymous()
	}
	c.logger.Info("session created from callback", "user_id", userID)

	if err := c.waitForSession(ctx); err != nil {
		c.logger.Warn("session not active yet", "timeout", c.opts.PollTimeout, "error", err)
	}
	return c.Check(ctx)
}

func (c *Controller) stripCallback(callback url.Values) {
	if c.opts.ReplaceURL == nil {
		return
	}
	remaining := url.Values{}
	for k, v := range callback {
		switch k {
		case ParamUserID, ParamSecret, ParamError:
		default:
			remaining[k] = v
		}
	}
	c.opts.ReplaceURL(remaining)
}

// waitForSession polls GetAccount until it succeeds or PollTimeout passes.
func (c *Controller) waitForSession(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.opts.PollTimeout)
	defer cancel()

	ticker := time.NewTicker(c.opts.PollInterval)
	defer ticker.Stop()

	for {
		_, err := c.provider.GetAccount(ctx)
		if err == nil {
			return nil
		}
		c.logger.Debug("waiting for session", "error", err)

		select {
		case <-ctx.Done():
			return fmt.Errorf("wait for session: %w", err)
		case <-ticker.C:
		}
	}
}

// Check asks the provider who the caller is. Concurrent calls share one
// request. A cancelled ctx returns the current state without waiting.
func (c *Controller) Check(ctx context.Context) Snapshot {
	ch := c.group.DoChan("check", func() (any, error) {
		return c.check(context.WithoutCancel(ctx)), nil
	})

	select {
	case res := <-ch:
		return res.Val.(Snapshot)
	case <-ctx.Done():
		return c.State()
	}
}

func (c *Controller) check(ctx context.Context) Snapshot {
	c.mu.RLock()
	epoch := c.epoch
	c.mu.RUnlock()

	acct, err := c.provider.GetAccount(ctx)
	if err != nil {
		if errors.Is(err, domainerrors.ErrUnauthorized) {
			c.logger.Debug("not signed in", "error", err)
			c.diagnoseSessions(ctx)
		} else {
			c.logger.Warn("account check failed", "error", err)
		}
		return c.setIn(epoch, anonymous())
	}

	teams, err := c.provider.ListTeams(ctx)
	if err != nil {
		c.logger.Warn("could not fetch teams", "user_id", acct.User.ID, "error", err)
		teams = nil
	}
	if teams == nil {
		teams = []*domain.Team{}
	}

	return c.setIn(epoch, Snapshot{
		State:   StateAuthenticated,
		User:    acct.User,
		Session: acct.Session,
		Teams:   teams,
	})
}

// diagnoseSessions logs whether sessions exist although the token was
// rejected, which points at a stale or unreadable token file.
func (c *Controller) diagnoseSessions(ctx context.Context) {
	sessions, err := c.provider.ListSessions(ctx)
	if err != nil {
		c.logger.Debug("could not list sessions", "error", err)
		return
	}
	if len(sessions) > 0 {
		c.logger.Debug("sessions exist but the token was rejected", "sessions", len(sessions))
	}
}

// ForceCheck lists sessions first and only checks the account when one
// exists.
func (c *Controller) ForceCheck(ctx context.Context) Snapshot {
	sessions, err := c.provider.ListSessions(ctx)
	if err != nil {
		c.logger.Debug("could not list sessions", "error", err)
		return c.setAnonymous()
	}
	if len(sessions) == 0 {
		return c.setAnonymous()
	}
	return c.Check(ctx)
}

// LoginWithGoogle sends the user to the provider's Google sign-in. The
// outcome arrives later through Start.
func (c *Controller) LoginWithGoogle(ctx context.Context) error {
	if c.opts.Navigate == nil {
		return errors.New("no navigator configured")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	target, err := c.provider.OAuthURL(domain.ProviderGoogle, c.opts.SuccessURL, c.opts.FailureURL)
	if err != nil {
		c.setAnonymous()
		return fmt.Errorf("start google sign-in: %w", err)
	}

	c.logger.Info("starting google sign-in")
	c.opts.Navigate(target)
	return nil
}

// Logout ends the current session. The state becomes anonymous even when
// the provider call fails; the error is returned for reporting.
func (c *Controller) Logout(ctx context.Context) error {
	err := c.provider.DeleteSession(ctx, domain.CurrentSessionID)

	c.group.Forget("check")
	c.mu.Lock()
	c.epoch++
	c.setLocked(anonymous())
	c.mu.Unlock()

	if err != nil {
		c.logger.Warn("logout failed at provider", "error", err)
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// Trigger asks Run to refresh. Triggers arriving while one is pending are
// merged into it.
func (c *Controller) Trigger(reason string) {
	select {
	case c.triggers <- reason:
	default:
		c.logger.Debug("refresh already pending", "reason", reason)
	}
}

// Run serves triggers until ctx is cancelled.
func (c *Controller) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case reason := <-c.triggers:
			c.logger.Debug("refreshing session", "reason", reason)
			c.Check(ctx)
		}
	}
}

// State returns the current snapshot.
func (c *Controller) State() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snap
}

// IsAdmin reports whether the signed-in user belongs to the admin team.
func (c *Controller) IsAdmin() bool {
	snap := c.State()
	if snap.State != StateAuthenticated || c.opts.AdminTeamID == "" {
		return false
	}
	return slices.Contains(snap.TeamIDs(), c.opts.AdminTeamID)
}

// Subscribe returns a channel that receives the snapshot after every
// change, and a function that ends the subscription. A slow subscriber
// only sees the latest snapshot.
func (c *Controller) Subscribe() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, 1)

	c.subMu.Lock()
	id := c.next
	c.next++
	c.subs[id] = ch
	c.subMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			c.subMu.Lock()
			delete(c.subs, id)
			c.subMu.Unlock()
		})
	}
}

func anonymous() Snapshot {
	return Snapshot{State: StateAnonymous, Teams: []*domain.Team{}}
}

func (c *Controller) setAnonymous() Snapshot {
	return c.set(anonymous())
}

func (c *Controller) set(s Snapshot) Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.setLocked(s)
}

// setIn applies s only if no logout happened since epoch was read.
func (c *Controller) setIn(epoch uint64, s Snapshot) Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.epoch != epoch {
		c.logger.Debug("dropping result of check started before logout")
		return c.snap
	}
	return c.setLocked(s)
}

func (c *Controller) setLocked(s Snapshot) Snapshot {
	prev := c.snap
	c.snap = s
	if !prev.equal(s) {
		c.logger.Info("session state changed", "from", prev.State.String(), "to", s.State.String(), "user_id", userID(s.User))
		c.publish(s)
	}
	return s
}

func (c *Controller) publish(s Snapshot) {
	c.subMu.Lock()
	defer c.subMu.Unlock()

	for _, ch := range c.subs {
		select {
		case ch <- s:
		default:
			// Replace the unread snapshot with the newer one.
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- s:
			default:
			}
		}
	}
}
