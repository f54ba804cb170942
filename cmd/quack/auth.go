package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/Sarcastic-Soul/blog-app/internal/session"
)

// googleLoginTimeout bounds how long login waits for the browser to return.
const googleLoginTimeout = 5 * time.Minute

// Loopback callback paths the provider redirects to.
const (
	callbackPath = "/callback"
	failurePath  = "/failed"
)

func (a *app) login(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	google := fs.Bool("google", false, "Sign in with Google in the browser")
	email := fs.String("email", "", "Account email")
	password := fs.String("password", "", "Account password")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}

	if *google {
		return a.loginGoogle(ctx)
	}
	if *email == "" || *password == "" {
		return errors.New("login needs -email and -password, or -google")
	}

	if _, err := a.client.Login(ctx, *email, *password); err != nil {
		return err
	}
	return a.whoami(ctx)
}

func (a *app) register(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("register", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	email := fs.String("email", "", "Account email")
	password := fs.String("password", "", "Account password")
	name := fs.String("name", "", "Display name")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}

	if _, err := a.client.Register(ctx, *email, *password, *name); err != nil {
		return err
	}
	if _, err := a.client.Login(ctx, *email, *password); err != nil {
		return err
	}
	return a.whoami(ctx)
}

// loginGoogle runs the OAuth flow through the browser. A loopback listener
// receives the redirect and its parameters are handed to the controller.
func (a *app) loginGoogle(ctx context.Context) error {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return fmt.Errorf("listen for callback: %w", err)
	}
	base := "http://" + ln.Addr().String()

	callbacks := make(chan url.Values, 1)
	srv := &http.Server{
		Handler:           callbackHandler(callbacks),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() { _ = srv.Serve(ln) }()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	ctrl := a.controller(session.Options{
		SuccessURL: base + callbackPath,
		FailureURL: base + failurePath,
		Navigate:   a.navigate,
	})
	if err := ctrl.LoginWithGoogle(ctx); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, googleLoginTimeout)
	defer cancel()

	var params url.Values
	select {
	case params = <-callbacks:
	case <-ctx.Done():
		return fmt.Errorf("waiting for google sign-in: %w", ctx.Err())
	}

	snap := ctrl.Start(ctx, params)
	if snap.State != session.StateAuthenticated {
		if reason := params.Get(session.ParamError); reason != "" {
			return fmt.Errorf("google sign-in failed: %s", reason)
		}
		return errors.New("google sign-in failed")
	}
	a.printSnapshot(snap)
	return nil
}

// callbackHandler answers the provider's redirect and forwards its query.
// Only the first redirect is kept.
func callbackHandler(callbacks chan<- url.Values) http.Handler {
	mux := http.NewServeMux()
	handle := func(msg string) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			select {
			case callbacks <- r.URL.Query():
			default:
			}
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			fmt.Fprintln(w, msg)
		}
	}
	mux.HandleFunc("GET "+callbackPath, handle("Signed in. You can close this window and return to quack."))
	mux.HandleFunc("GET "+failurePath, handle("Sign-in failed. Return to quack for details."))
	return mux
}

func (a *app) navigate(target string) {
	fmt.Fprintf(a.out, "Opening your browser to sign in:\n  %s\n", target)
	if err := a.openURL(target); err != nil {
		a.log.Warn("could not open a browser, open the URL above manually", "error", err)
	}
}

func (a *app) logout(ctx context.Context) error {
	ctrl := a.controller(session.Options{})
	if err := ctrl.Logout(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Signed out.")
	return nil
}

func (a *app) whoami(ctx context.Context) error {
	ctrl := a.controller(session.Options{})
	a.printSnapshot(ctrl.Start(ctx, nil))
	return nil
}

func (a *app) printSnapshot(snap session.Snapshot) {
	if snap.State != session.StateAuthenticated || snap.User == nil {
		fmt.Fprintln(a.out, "Not signed in.")
		return
	}

	fmt.Fprintf(a.out, "Signed in as %s <%s>\n", snap.User.Name, snap.User.Email)
	if snap.Session != nil {
		fmt.Fprintf(a.out, "  session %s, expires %s\n", snap.Session.ID, snap.Session.ExpiresAt.Local().Format(time.DateTime))
	}
	teams := snap.TeamIDs()
	if len(teams) > 0 {
		fmt.Fprintf(a.out, "  teams: %s\n", strings.Join(teams, ", "))
	}
	if slices.Contains(teams, a.cfg.AdminTeamID) {
		fmt.Fprintln(a.out, "  admin: yes")
	}
}
