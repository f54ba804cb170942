// Package main provides quack, a terminal client for the blog.
//
// Usage:
//
//	quack login [-google] [-email E -password P]
//	quack register -email E -password P -name N
//	quack logout | whoami | watch
//	quack posts [-limit N] [-offset N] [-tag T] [-q TERM]
//	quack tags
//	quack read [-excerpt] <slug>
//	quack like <slug>
//	quack comments <slug>
//	quack comment <slug> <text>
//
// The session is kept in a token file shared by every quack process, so
// signing in or out in one terminal is noticed by a running "quack watch".
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/Sarcastic-Soul/blog-app/internal/client"
	"github.com/Sarcastic-Soul/blog-app/internal/config"
	"github.com/Sarcastic-Soul/blog-app/internal/logger"
	"github.com/Sarcastic-Soul/blog-app/internal/session"
)

const usage = `usage: quack <command> [flags]

commands:
  login      sign in with email and password, or -google
  register   create an account and sign in
  logout     end the current session
  whoami     show the signed-in account
  watch      follow session and post changes until interrupted
  posts      list published posts
  tags       list tags
  read       show a post
  like       like a post
  comments   list approved comments on a post
  comment    add a comment to a post`

// errUsage marks a command line that could not be parsed.
var errUsage = errors.New(usage)

// app carries what every command needs.
type app struct {
	cfg    *config.ClientConfig
	client *client.Client
	log    *logger.Logger
	out    io.Writer
	// openURL hands a URL to the user's browser.
	openURL func(string) error
}

func main() {
	cfg, err := config.LoadClientConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "quack: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(logger.Config{
		Writer: os.Stderr,
		Format: "pretty",
		Level:  logger.ParseLevel(cfg.LogLevel),
	})

	c, err := client.New(client.Config{
		BaseURL:   cfg.ServerURL,
		TokenFile: cfg.TokenFile,
		Timeout:   cfg.Timeout,
	}, log.Component("client"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "quack: %v\n", err)
		os.Exit(1)
	}

	a := &app{cfg: cfg, client: c, log: log, out: os.Stdout, openURL: openBrowser}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.run(ctx, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "quack: %v\n", err)
		stop()
		os.Exit(1)
	}
}

func (a *app) run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errUsage
	}

	cmd, rest := args[0], args[1:]
	switch cmd {
	case "login":
		return a.login(ctx, rest)
	case "register":
		return a.register(ctx, rest)
	case "logout":
		return a.logout(ctx)
	case "whoami":
		return a.whoami(ctx)
	case "watch":
		return a.watch(ctx)
	case "posts":
		return a.posts(ctx, rest)
	case "tags":
		return a.tags(ctx)
	case "read":
		return a.read(ctx, rest)
	case "like":
		return a.like(ctx, rest)
	case "comments":
		return a.comments(ctx, rest)
	case "comment":
		return a.comment(ctx, rest)
	case "help", "-h", "--help":
		fmt.Fprintln(a.out, usage)
		return nil
	default:
		return fmt.Errorf("unknown command %q\n\n%s", cmd, usage)
	}
}

// controller builds a session controller backed by the API client.
func (a *app) controller(opts session.Options) *session.Controller {
	opts.AdminTeamID = a.cfg.AdminTeamID
	opts.PollTimeout = a.cfg.SessionWait
	return session.NewController(a.client, opts, a.log.Component("session"))
}
