// Package main provides administrative commands that run against the data
// directory while the server is stopped.
//
// Usage:
//
//	DATA_DIR=~/.quackblog go run ./cmd/admin add-admin <email>
//	DATA_DIR=~/.quackblog go run ./cmd/admin reindex
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/Sarcastic-Soul/blog-app/internal/config"
	domainerrors "github.com/Sarcastic-Soul/blog-app/internal/errors"
	"github.com/Sarcastic-Soul/blog-app/internal/logger"
	"github.com/Sarcastic-Soul/blog-app/internal/search"
	"github.com/Sarcastic-Soul/blog-app/internal/service"
	"github.com/Sarcastic-Soul/blog-app/internal/store/sqlite"
)

const usage = `usage:
  admin add-admin <email>   add an existing account to the admin team
  admin reindex             rebuild the search index from the database`

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, out io.Writer) error {
	if len(args) == 0 {
		return errors.New(usage)
	}

	cfg, err := config.LoadConfig(nil)
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	slogger := logger.Discard()

	db, err := sqlite.Open(cfg.Storage.DatabasePath(), slogger)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer db.Close()

	switch args[0] {
	case "add-admin":
		if len(args) != 2 {
			return errors.New(usage)
		}
		teams := service.NewTeamService(db, slogger)
		return addAdmin(ctx, teams, cfg.Content.AdminTeamID, args[1], out)

	case "reindex":
		index, err := search.NewSearchIndex(search.Options{DataPath: cfg.Storage.SearchPath(), Logger: slogger})
		if err != nil {
			return fmt.Errorf("open search index: %w", err)
		}
		defer index.Close()

		content := service.NewContentService(db, nil, slogger)
		content.SetReindexer(service.NewSearchService(index, db, slogger))
		n, err := content.Reindex(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Indexed %d posts\n", n)
		return nil

	default:
		return fmt.Errorf("unknown command %q\n%s", args[0], usage)
	}
}

// addAdmin grants the owner role on the admin team to the account with
// email. An existing membership counts as success.
func addAdmin(ctx context.Context, teams *service.TeamService, teamID, email string, out io.Writer) error {
	if _, err := teams.EnsureTeam(ctx, teamID, "Admins"); err != nil {
		return fmt.Errorf("ensure admin team: %w", err)
	}

	_, err := teams.AddMember(ctx, teamID, email, service.RoleOwner)
	switch {
	case err == nil:
		fmt.Fprintf(out, "Added %s to %s\n", email, teamID)
		return nil
	case errors.Is(err, domainerrors.ErrConflict):
		fmt.Fprintf(out, "%s is already in %s\n", email, teamID)
		return nil
	case errors.Is(err, domainerrors.ErrNotFound):
		return fmt.Errorf("%w (make sure the user has signed in at least once)", err)
	default:
		return err
	}
}
