package session

import (
	"context"
	"io"
	"log/slog"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sarcastic-Soul/blog-app/internal/domain"
	domainerrors "github.com/Sarcastic-Soul/blog-app/internal/errors"
)

type fakeProvider struct {
	mu          sync.Mutex
	account     *domain.Account
	accountErr  error
	teams       []*domain.Team
	teamsErr    error
	sessions    []*domain.Session
	sessionsErr error
	createErr   error
	deleteErr   error
	oauthErr    error
	// pending makes GetAccount answer Unauthorized this many more times.
	pending int
	block   chan struct{}

	getCalls      atomic.Int32
	sessionsCalls atomic.Int32
	created       [][2]string
	deleted       []string
	oauthArgs     []string
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		account: &domain.Account{
			User:    &domain.User{ID: "usr-scrooge", Name: "Scrooge"},
			Session: &domain.Session{ID: "ses-1", UserID: "usr-scrooge", Current: true},
		},
		teams: []*domain.Team{{ID: "admins", Name: "Admins"}, {ID: "readers"}},
	}
}

func (f *fakeProvider) GetAccount(ctx context.Context) (*domain.Account, error) {
	f.getCalls.Add(1)
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pending > 0 {
		f.pending--
		return nil, domainerrors.Unauthorized("no active session")
	}
	if f.accountErr != nil {
		return nil, f.accountErr
	}
	return f.account, nil
}

func (f *fakeProvider) ListTeams(context.Context) ([]*domain.Team, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.teams, f.teamsErr
}

func (f *fakeProvider) ListSessions(context.Context) ([]*domain.Session, error) {
	f.sessionsCalls.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sessions, f.sessionsErr
}

func (f *fakeProvider) CreateSession(_ context.Context, userID, secret string) (*domain.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, [2]string{userID, secret})
	if f.createErr != nil {
		return nil, f.createErr
	}
	return &domain.Session{ID: "ses-new", UserID: userID}, nil
}

func (f *fakeProvider) DeleteSession(_ context.Context, sessionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, sessionID)
	return f.deleteErr
}

func (f *fakeProvider) OAuthURL(provider, successURL, failureURL string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.oauthArgs = []string{provider, successURL, failureURL}
	if f.oauthErr != nil {
		return "", f.oauthErr
	}
	q := url.Values{"success": {successURL}, "failure": {failureURL}}
	return "https://blog.example.com/api/v1/account/oauth/" + provider + "?" + q.Encode(), nil
}

func newTestController(p Provider, opts Options) *Controller {
	if opts.AdminTeamID == "" {
		opts.AdminTeamID = "admins"
	}
	if opts.PollInterval == 0 {
		opts.PollInterval = 5 * time.Millisecond
	}
	if opts.PollTimeout == 0 {
		opts.PollTimeout = time.Second
	}
	return NewController(p, opts, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestController_StartsUnknown(t *testing.T) {
	c := newTestController(newFakeProvider(), Options{})
	assert.Equal(t, StateUnknown, c.State().State)
	assert.False(t, c.IsAdmin())
}

func TestCheck_Authenticated(t *testing.T) {
	c := newTestController(newFakeProvider(), Options{})

	snap := c.Check(context.Background())
	assert.Equal(t, StateAuthenticated, snap.State)
	assert.Equal(t, "Scrooge", snap.User.Name)
	assert.Equal(t, "ses-1", snap.Session.ID)
	assert.Equal(t, []string{"admins", "readers"}, snap.TeamIDs())
	assert.True(t, c.IsAdmin())
}

func TestCheck_TeamsFailureStaysAuthenticated(t *testing.T) {
	p := newFakeProvider()
	p.teamsErr = domainerrors.Unavailable("teams unavailable", nil)
	c := newTestController(p, Options{})

	snap := c.Check(context.Background())
	assert.Equal(t, StateAuthenticated, snap.State)
	assert.NotNil(t, snap.Teams)
	assert.Empty(t, snap.Teams)
	assert.False(t, c.IsAdmin())
}

func TestCheck_UnauthorizedIsAnonymous(t *testing.T) {
	p := newFakeProvider()
	p.accountErr = domainerrors.Unauthorized("no active session")
	p.sessions = []*domain.Session{{ID: "ses-stale"}}
	c := newTestController(p, Options{})

	snap := c.Check(context.Background())
	assert.Equal(t, StateAnonymous, snap.State)
	assert.Nil(t, snap.User)
	assert.NotNil(t, snap.Teams)
	assert.Empty(t, snap.Teams)
	assert.Equal(t, int32(1), p.sessionsCalls.Load(), "401 lists sessions for diagnostics")
}

func TestCheck_UnavailableIsAnonymous(t *testing.T) {
	p := newFakeProvider()
	p.accountErr = domainerrors.Unavailable("server unreachable", nil)
	c := newTestController(p, Options{})

	assert.Equal(t, StateAnonymous, c.Check(context.Background()).State)
	assert.Zero(t, p.sessionsCalls.Load())
}

func TestCheck_AdminTeamMissing(t *testing.T) {
	p := newFakeProvider()
	p.teams = []*domain.Team{{ID: "readers"}}
	c := newTestController(p, Options{})

	c.Check(context.Background())
	assert.False(t, c.IsAdmin())
}

func TestCheck_CoalescesConcurrentCalls(t *testing.T) {
	p := newFakeProvider()
	p.block = make(chan struct{})
	c := newTestController(p, Options{})

	var wg sync.WaitGroup
	results := make([]Snapshot, 5)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = c.Check(context.Background())
		}()
	}

	require.Eventually(t, func() bool { return p.getCalls.Load() == 1 }, time.Second, time.Millisecond)
	// Let the other callers join the in-flight check.
	time.Sleep(50 * time.Millisecond)
	close(p.block)
	wg.Wait()

	assert.Equal(t, int32(1), p.getCalls.Load())
	for _, snap := range results {
		assert.Equal(t, StateAuthenticated, snap.State)
	}
}

func TestCheck_CancelledCallerDoesNotWait(t *testing.T) {
	p := newFakeProvider()
	p.block = make(chan struct{})
	defer close(p.block)
	c := newTestController(p, Options{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	snap := c.Check(ctx)
	assert.Equal(t, StateUnknown, snap.State)
}

func TestStart_WithCallback(t *testing.T) {
	p := newFakeProvider()
	p.pending = 2

	var remaining url.Values
	c := newTestController(p, Options{
		ReplaceURL: func(v url.Values) { remaining = v },
	})

	snap := c.Start(context.Background(), url.Values{
		ParamUserID: {"usr-scrooge"},
		ParamSecret: {"s3cret"},
		"next":      {"/posts"},
	})

	assert.Equal(t, StateAuthenticated, snap.State)
	assert.Equal(t, [][2]string{{"usr-scrooge", "s3cret"}}, p.created)
	assert.Equal(t, url.Values{"next": {"/posts"}}, remaining)
	// Two rejected polls, the successful poll, then the check.
	assert.Equal(t, int32(4), p.getCalls.Load())
}

func TestStart_ExchangeFailure(t *testing.T) {
	p := newFakeProvider()
	p.createErr = domainerrors.Unauthorized("invalid or expired secret")

	replaced := false
	c := newTestController(p, Options{ReplaceURL: func(url.Values) { replaced = true }})

	snap := c.Start(context.Background(), url.Values{ParamUserID: {"usr-1"}, ParamSecret: {"bad"}})
	assert.Equal(t, StateAnonymous, snap.State)
	assert.Empty(t, snap.Teams)
	assert.True(t, replaced, "credentials are stripped even when the exchange fails")
	assert.Zero(t, p.getCalls.Load())
}

func TestStart_WithoutCallback(t *testing.T) {
	p := newFakeProvider()
	c := newTestController(p, Options{ReplaceURL: func(url.Values) { t.Error("nothing to strip") }})

	snap := c.Start(context.Background(), nil)
	assert.Equal(t, StateAuthenticated, snap.State)
	assert.Empty(t, p.created)
	assert.Equal(t, int32(1), p.getCalls.Load())
}

func TestStart_ProviderError(t *testing.T) {
	p := newFakeProvider()
	p.accountErr = domainerrors.Unauthorized("no active session")

	var remaining url.Values
	c := newTestController(p, Options{ReplaceURL: func(v url.Values) { remaining = v }})

	snap := c.Start(context.Background(), url.Values{ParamError: {"access_denied"}})
	assert.Equal(t, StateAnonymous, snap.State)
	assert.Empty(t, remaining)
	assert.Empty(t, p.created)
}

func TestStart_SessionNeverActive(t *testing.T) {
	p := newFakeProvider()
	p.pending = 1 << 20
	c := newTestController(p, Options{PollTimeout: 30 * time.Millisecond})

	start := time.Now()
	snap := c.Start(context.Background(), url.Values{ParamUserID: {"usr-1"}, ParamSecret: {"s"}})

	assert.Equal(t, StateAnonymous, snap.State)
	assert.Less(t, time.Since(start), time.Second)
}

func TestForceCheck(t *testing.T) {
	p := newFakeProvider()
	c := newTestController(p, Options{})

	assert.Equal(t, StateAnonymous, c.ForceCheck(context.Background()).State)
	assert.Zero(t, p.getCalls.Load(), "no sessions, no account check")

	p.sessions = []*domain.Session{{ID: "ses-1"}}
	assert.Equal(t, StateAuthenticated, c.ForceCheck(context.Background()).State)

	p.sessionsErr = domainerrors.Unavailable("down", nil)
	assert.Equal(t, StateAnonymous, c.ForceCheck(context.Background()).State)
}

func TestLoginWithGoogle(t *testing.T) {
	p := newFakeProvider()

	var navigated string
	c := newTestController(p, Options{
		SuccessURL: "http://127.0.0.1:4567/callback",
		FailureURL: "http://127.0.0.1:4567/failed",
		Navigate:   func(target string) { navigated = target },
	})

	require.NoError(t, c.LoginWithGoogle(context.Background()))
	assert.Equal(t, []string{domain.ProviderGoogle, "http://127.0.0.1:4567/callback", "http://127.0.0.1:4567/failed"}, p.oauthArgs)

	u, err := url.Parse(navigated)
	require.NoError(t, err)
	assert.Equal(t, "/api/v1/account/oauth/google", u.Path)
	assert.Equal(t, StateUnknown, c.State().State, "the outcome arrives through Start")
}

func TestLoginWithGoogle_Failures(t *testing.T) {
	c := newTestController(newFakeProvider(), Options{})
	assert.Error(t, c.LoginWithGoogle(context.Background()), "no navigator")

	p := newFakeProvider()
	p.oauthErr = domainerrors.Validation("success and failure URLs are required")
	c = newTestController(p, Options{Navigate: func(string) { t.Error("must not navigate") }})

	err := c.LoginWithGoogle(context.Background())
	assert.ErrorIs(t, err, domainerrors.ErrValidation)
	assert.Equal(t, StateAnonymous, c.State().State)
}

func TestLogout_AlwaysAnonymous(t *testing.T) {
	p := newFakeProvider()
	c := newTestController(p, Options{})
	c.Check(context.Background())
	require.True(t, c.IsAdmin())

	p.deleteErr = domainerrors.Unavailable("server unreachable", nil)
	err := c.Logout(context.Background())

	assert.ErrorIs(t, err, domainerrors.ErrUnavailable)
	assert.Equal(t, StateAnonymous, c.State().State)
	assert.Empty(t, c.State().Teams)
	assert.False(t, c.IsAdmin())
	assert.Equal(t, []string{domain.CurrentSessionID}, p.deleted)

	p.deleteErr = nil
	assert.NoError(t, c.Logout(context.Background()))
}

func TestLogout_DiscardsInFlightCheck(t *testing.T) {
	p := newFakeProvider()
	p.block = make(chan struct{})
	c := newTestController(p, Options{})

	done := make(chan Snapshot, 1)
	go func() { done <- c.Check(context.Background()) }()
	require.Eventually(t, func() bool { return p.getCalls.Load() == 1 }, time.Second, time.Millisecond)

	require.NoError(t, c.Logout(context.Background()))
	assert.Equal(t, StateAnonymous, c.State().State)

	close(p.block)
	snap := <-done

	assert.Equal(t, StateAnonymous, snap.State)
	assert.Equal(t, StateAnonymous, c.State().State)
	assert.Nil(t, c.State().User)

	// Checks started after logout apply normally.
	assert.Equal(t, StateAuthenticated, c.Check(context.Background()).State)
}

func TestSubscribe_ReceivesChanges(t *testing.T) {
	p := newFakeProvider()
	c := newTestController(p, Options{})

	updates, unsubscribe := c.Subscribe()
	defer unsubscribe()

	c.Check(context.Background())
	select {
	case snap := <-updates:
		assert.Equal(t, StateAuthenticated, snap.State)
	case <-time.After(time.Second):
		t.Fatal("no update after sign-in")
	}

	// Same answer, no change.
	c.Check(context.Background())
	select {
	case snap := <-updates:
		t.Fatalf("unexpected update: %v", snap.State)
	case <-time.After(50 * time.Millisecond):
	}

	p.teams = []*domain.Team{{ID: "readers"}}
	c.Check(context.Background())
	select {
	case snap := <-updates:
		assert.Equal(t, []string{"readers"}, snap.TeamIDs())
	case <-time.After(time.Second):
		t.Fatal("no update after team change")
	}

	unsubscribe()
	require.NoError(t, c.Logout(context.Background()))
	select {
	case <-updates:
		t.Fatal("update after unsubscribe")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestSubscribe_SlowSubscriberSeesLatest(t *testing.T) {
	p := newFakeProvider()
	c := newTestController(p, Options{})

	updates, unsubscribe := c.Subscribe()
	defer unsubscribe()

	c.Check(context.Background())
	require.NoError(t, c.Logout(context.Background()))

	snap := <-updates
	assert.Equal(t, StateAnonymous, snap.State)
}

func TestTrigger_RunRefreshes(t *testing.T) {
	p := newFakeProvider()
	c := newTestController(p, Options{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		c.Run(ctx)
		close(done)
	}()

	c.Trigger(ReasonFocus)
	require.Eventually(t, func() bool {
		return c.State().State == StateAuthenticated
	}, time.Second, 5*time.Millisecond)

	p.mu.Lock()
	p.accountErr = domainerrors.Unauthorized("session deleted")
	p.mu.Unlock()

	c.Trigger(ReasonRealtime)
	require.Eventually(t, func() bool {
		return c.State().State == StateAnonymous
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not stop")
	}
}

func TestTrigger_MergesPending(t *testing.T) {
	c := newTestController(newFakeProvider(), Options{})

	// Nothing drains the queue, so only the first trigger is kept.
	c.Trigger(ReasonFocus)
	c.Trigger(ReasonTokenFile)
	c.Trigger(ReasonRealtime)

	assert.Len(t, c.triggers, 1)
	assert.Equal(t, ReasonFocus, <-c.triggers)
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "unknown", StateUnknown.String())
	assert.Equal(t, "authenticated", StateAuthenticated.String())
	assert.Equal(t, "anonymous", StateAnonymous.String())
}
