package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/Sarcastic-Soul/blog-app/internal/domain"
)

func (a *app) posts(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("posts", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	limit := fs.Int("limit", 10, "Posts per page")
	offset := fs.Int("offset", 0, "Posts to skip")
	tag := fs.String("tag", "", "Only posts with this tag")
	query := fs.String("q", "", "Search term")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}

	var (
		list *domain.PostList
		err  error
	)
	switch {
	case *query != "":
		list, err = a.client.SearchPosts(ctx, *query)
	case *tag != "":
		list, err = a.client.ListPostsByTag(ctx, *tag)
	default:
		list, err = a.client.ListPosts(ctx, *limit, *offset)
	}
	if err != nil {
		return err
	}

	a.printPosts(list)
	return nil
}

func (a *app) printPosts(list *domain.PostList) {
	if len(list.Posts) == 0 {
		fmt.Fprintln(a.out, "No posts.")
		return
	}
	if list.Stale {
		fmt.Fprintln(a.out, "(server is serving cached results)")
	}

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SLUG\tTITLE\tTAGS\tREAD\tVIEWS\tLIKES")
	for _, p := range list.Posts {
		title := p.Title
		if !p.IsPublished {
			title += " [draft]"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d min\t%d\t%d\n",
			p.Slug, title, strings.Join(p.Tags, ","), p.ReadTime, p.Views, p.Likes)
	}
	_ = tw.Flush()

	if list.Total > len(list.Posts) {
		fmt.Fprintf(a.out, "\n%d of %d posts\n", len(list.Posts), list.Total)
	}
}

func (a *app) tags(ctx context.Context) error {
	tags, err := a.client.ListTags(ctx)
	if err != nil {
		return err
	}
	for _, t := range tags {
		fmt.Fprintln(a.out, t)
	}
	return nil
}

func (a *app) read(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("read", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	excerpt := fs.Bool("excerpt", false, "Print the excerpt instead of the full body")
	if err := fs.Parse(args); err != nil || fs.NArg() != 1 {
		return errUsage
	}
	slug := fs.Arg(0)

	p, err := a.client.GetPostBySlug(ctx, slug)
	if err != nil {
		return err
	}

	// View counting is best effort.
	if _, err := a.client.RecordView(ctx, p.ID); err != nil {
		a.log.Debug("view not recorded", "post_id", p.ID, "error", err)
	}

	fmt.Fprintf(a.out, "%s\n%s\n", p.Title, strings.Repeat("=", len([]rune(p.Title))))
	byline := fmt.Sprintf("by %s", p.AuthorName)
	if p.PublishDate != nil {
		byline += ", " + p.PublishDate.Local().Format(time.DateOnly)
	}
	fmt.Fprintf(a.out, "%s · %d min read\n", byline, p.ReadTime)
	if len(p.Tags) > 0 {
		fmt.Fprintf(a.out, "#%s\n", strings.Join(p.Tags, " #"))
	}
	fmt.Fprintln(a.out)

	if *excerpt {
		fmt.Fprintln(a.out, p.Excerpt)
		return nil
	}
	body, err := a.client.PostMarkdown(ctx, slug)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, strings.TrimSpace(string(body)))
	return nil
}

func (a *app) like(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errUsage
	}
	p, err := a.client.GetPostBySlug(ctx, args[0])
	if err != nil {
		return err
	}
	liked, err := a.client.Like(ctx, p.ID)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Liked %q (%d likes)\n", liked.Title, liked.Likes)
	return nil
}

func (a *app) comments(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errUsage
	}
	p, err := a.client.GetPostBySlug(ctx, args[0])
	if err != nil {
		return err
	}
	comments, err := a.client.ListComments(ctx, p.ID)
	if err != nil {
		return err
	}
	if len(comments) == 0 {
		fmt.Fprintln(a.out, "No comments yet.")
		return nil
	}
	for _, c := range comments {
		fmt.Fprintf(a.out, "%s (%s):\n  %s\n", c.AuthorName, c.CreatedAt.Local().Format(time.DateTime), c.Content)
	}
	return nil
}

func (a *app) comment(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return errUsage
	}
	text := strings.TrimSpace(strings.Join(args[1:], " "))
	if text == "" {
		return errors.New("comment text is empty")
	}

	p, err := a.client.GetPostBySlug(ctx, args[0])
	if err != nil {
		return err
	}
	if _, err := a.client.AddComment(ctx, p.ID, text); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Comment submitted for approval.")
	return nil
}
