package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Sarcastic-Soul/blog-app/internal/domain"
	domainerrors "github.com/Sarcastic-Soul/blog-app/internal/errors"
	"github.com/Sarcastic-Soul/blog-app/internal/id"
	"github.com/Sarcastic-Soul/blog-app/internal/richtext"
	"github.com/Sarcastic-Soul/blog-app/internal/snapshot"
	"github.com/Sarcastic-Soul/blog-app/internal/store"
	"github.com/Sarcastic-Soul/blog-app/internal/util"
)

// Content limits.
const (
	SearchLimit   = 50
	TagLimit      = 50
	TagScanLimit  = 1000
	ExcerptLength = 200
	MaxTitleLen   = 200
)

// Reindexer rebuilds the full-text index from the store.
type Reindexer interface {
	ReindexAll(ctx context.Context) (int, error)
}

// ContentService is the read and write façade over the document store.
//
// Listing and slug reads fall back to the snapshot cache when the store is
// unavailable. Writes always go to the store and fail when it is down.
type ContentService struct {
	store     store.DocumentStore
	snapshot  *snapshot.Cache // nil disables fallback
	reindexer Reindexer
	logger    *slog.Logger
	now       func() time.Time
}

// NewContentService creates a new content service. snap may be nil.
func NewContentService(docs store.DocumentStore, snap *snapshot.Cache, logger *slog.Logger) *ContentService {
	return &ContentService{
		store:    docs,
		snapshot: snap,
		logger:   logger,
		now:      time.Now,
	}
}

// SetReindexer sets the index rebuilt by Reindex.
func (s *ContentService) SetReindexer(r Reindexer) {
	s.reindexer = r
}

func publishedFilter() store.Filter {
	return store.Equal(store.FieldIsPublished, true)
}

// ListPublished returns a page of published posts, newest publish date first.
func (s *ContentService) ListPublished(ctx context.Context, limit, offset int) (*domain.PostList, error) {
	q := store.Query{
		Filters: []store.Filter{publishedFilter()},
		Order:   store.OrderDesc(store.FieldPublishDate),
		Limit:   limit,
		Offset:  offset,
	}
	q.Normalize()

	list, err := s.store.QueryPosts(ctx, q)
	if err != nil {
		if cached, ok := s.cachedPage(err, q.Limit, q.Offset); ok {
			return cached, nil
		}
		return nil, translateStoreErr(err, "posts not found")
	}

	s.remember("page", func(c *snapshot.Cache) error {
		if err := c.PutPage(q.Limit, q.Offset, list); err != nil {
			return err
		}
		for _, p := range list.Posts {
			if err := c.PutPost(p); err != nil {
				return err
			}
		}
		return nil
	})
	return list, nil
}

// ListAll returns a page of every post, drafts included, most recently
// modified first.
func (s *ContentService) ListAll(ctx context.Context, limit, offset int) (*domain.PostList, error) {
	list, err := s.store.QueryPosts(ctx, store.Query{
		Order:  store.OrderDesc(store.FieldLastModified),
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		return nil, translateStoreErr(err, "posts not found")
	}
	return list, nil
}

// Search runs a full-text query over title, excerpt and content. No match is
// an empty list, not an error.
func (s *ContentService) Search(ctx context.Context, term string, publishedOnly bool) (*domain.PostList, error) {
	q := store.Query{
		Search: strings.TrimSpace(term),
		Limit:  SearchLimit,
	}
	if publishedOnly {
		q.Filters = append(q.Filters, publishedFilter())
	}

	list, err := s.store.QueryPosts(ctx, q)
	if err != nil {
		return nil, translateStoreErr(err, "posts not found")
	}
	return list, nil
}

// ListByTag returns posts carrying tag, newest publish date first.
func (s *ContentService) ListByTag(ctx context.Context, tag string, publishedOnly bool) (*domain.PostList, error) {
	tag = util.NormalizeTag(tag)
	if tag == "" {
		return nil, domainerrors.Validation("tag is required")
	}

	q := store.Query{
		Filters: []store.Filter{store.Equal(store.FieldTags, tag)},
		Order:   store.OrderDesc(store.FieldPublishDate),
		Limit:   TagLimit,
	}
	if publishedOnly {
		q.Filters = append(q.Filters, publishedFilter())
	}

	list, err := s.store.QueryPosts(ctx, q)
	if err != nil {
		return nil, translateStoreErr(err, "posts not found")
	}
	return list, nil
}

// GetBySlug returns the post with slug.
func (s *ContentService) GetBySlug(ctx context.Context, slug string) (*domain.Post, error) {
	list, err := s.store.QueryPosts(ctx, store.Query{
		Filters: []store.Filter{store.Equal(store.FieldSlug, slug)},
		Limit:   1,
	})
	if err != nil {
		if cached, ok := s.cachedPost(err, slug); ok {
			return cached, nil
		}
		return nil, translateStoreErr(err, "post not found")
	}
	if len(list.Posts) == 0 {
		return nil, domainerrors.NotFoundf("post %q not found", slug)
	}

	p := list.Posts[0]
	if p.IsPublished {
		s.rememberPost(p)
	}
	return p, nil
}

// GetByID returns the post with id.
func (s *ContentService) GetByID(ctx context.Context, postID string) (*domain.Post, error) {
	p, err := s.store.GetPost(ctx, postID)
	if err != nil {
		return nil, translateStoreErr(err, "post not found")
	}
	return p, nil
}

// Create stores a new post written by the given author.
func (s *ContentService) Create(ctx context.Context, in domain.PostInput, authorID, authorName string) (*domain.Post, error) {
	title := strings.TrimSpace(in.Title)
	slug, err := slugFor(title)
	if err != nil {
		return nil, err
	}

	content := in.Content
	if content == nil {
		content = richtext.Doc()
	}

	excerpt := strings.TrimSpace(in.Excerpt)
	if excerpt == "" {
		excerpt = richtext.Excerpt(content, ExcerptLength)
	}

	postID, err := id.Generate(id.PrefixPost)
	if err != nil {
		return nil, fmt.Errorf("generate post ID: %w", err)
	}

	now := s.now().UTC()
	p := &domain.Post{
		ID:           postID,
		Slug:         slug,
		Title:        title,
		Excerpt:      excerpt,
		Content:      content,
		HeaderImage:  strings.TrimSpace(in.HeaderImage),
		Tags:         util.NormalizeTags(in.Tags),
		IsPublished:  in.IsPublished,
		LastModified: now,
		CreatedAt:    now,
		AuthorID:     authorID,
		AuthorName:   authorName,
		ReadTime:     richtext.EstimateReadTime(content),
	}
	if p.IsPublished {
		p.PublishDate = &now
	}

	if err := s.store.CreatePost(ctx, p); err != nil {
		return nil, translateStoreErr(err, "post not found")
	}

	s.forgetPages()
	s.logger.Info("post created", "post_id", p.ID, "slug", p.Slug, "published", p.IsPublished)
	return p, nil
}

// Update applies patch to the post with id. Derived fields follow their
// sources: the slug tracks the title and the read time tracks the content.
// The publish date is recorded on first publish and never reset.
func (s *ContentService) Update(ctx context.Context, postID string, patch domain.PostPatch) (*domain.Post, error) {
	p, err := s.store.GetPost(ctx, postID)
	if err != nil {
		return nil, translateStoreErr(err, "post not found")
	}
	oldSlug := p.Slug

	if patch.Title != nil {
		title := strings.TrimSpace(*patch.Title)
		slug, err := slugFor(title)
		if err != nil {
			return nil, err
		}
		p.Title = title
		p.Slug = slug
	}
	if patch.Excerpt != nil {
		p.Excerpt = strings.TrimSpace(*patch.Excerpt)
	}
	if patch.Content != nil {
		p.Content = patch.Content
		p.ReadTime = richtext.EstimateReadTime(patch.Content)
	}
	if patch.HeaderImage != nil {
		p.HeaderImage = strings.TrimSpace(*patch.HeaderImage)
	}
	if patch.Tags != nil {
		p.Tags = util.NormalizeTags(*patch.Tags)
	}

	now := s.now().UTC()
	if patch.IsPublished != nil {
		p.IsPublished = *patch.IsPublished
		if p.IsPublished && p.PublishDate == nil {
			p.PublishDate = &now
		}
	}
	p.LastModified = now

	if err := s.store.UpdatePost(ctx, p); err != nil {
		return nil, translateStoreErr(err, "post not found")
	}

	// Counters are not written by UpdatePost; reread so the result carries
	// any views or likes recorded since the read above.
	if fresh, err := s.store.GetPost(ctx, p.ID); err == nil {
		p = fresh
	}

	if p.Slug != oldSlug || !p.IsPublished {
		s.forget(oldSlug)
	}
	if p.IsPublished {
		s.rememberPost(p)
	}
	s.forgetPages()
	return p, nil
}

// Delete removes the post with id and its comments.
func (s *ContentService) Delete(ctx context.Context, postID string) error {
	p, err := s.store.GetPost(ctx, postID)
	if err != nil {
		return translateStoreErr(err, "post not found")
	}
	if err := s.store.DeletePost(ctx, postID); err != nil {
		return translateStoreErr(err, "post not found")
	}

	s.forget(p.Slug)
	s.forgetPages()
	s.logger.Info("post deleted", "post_id", postID, "slug", p.Slug)
	return nil
}

// IncrementViews records a view. It never fails: view tracking must not
// block reading, so a failed increment is logged and reported as not applied.
func (s *ContentService) IncrementViews(ctx context.Context, postID string) BestEffort[*domain.Post] {
	p, err := s.store.IncrementPostCounter(ctx, postID, store.CounterViews)
	if err != nil {
		s.logger.Warn("view not recorded", "post_id", postID, "error", err)
		return BestEffort[*domain.Post]{}
	}
	return applied(p)
}

// IncrementLikes records a like. Unlike views, failures are returned.
func (s *ContentService) IncrementLikes(ctx context.Context, postID string) (*domain.Post, error) {
	p, err := s.store.IncrementPostCounter(ctx, postID, store.CounterLikes)
	if err != nil {
		return nil, translateStoreErr(err, "post not found")
	}
	return p, nil
}

// ListAllTags returns the distinct tags of published posts, sorted.
func (s *ContentService) ListAllTags(ctx context.Context) ([]string, error) {
	tags, err := s.store.ListPublishedTags(ctx, TagScanLimit)
	if err != nil {
		return nil, translateStoreErr(err, "tags not found")
	}
	slices.Sort(tags)
	tags = slices.Compact(tags)
	if tags == nil {
		tags = []string{}
	}
	return tags, nil
}

// GetStats counts published posts, drafts and all posts concurrently.
func (s *ContentService) GetStats(ctx context.Context) (*domain.PostStats, error) {
	var stats domain.PostStats

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		n, err := s.store.CountPosts(gctx, store.Equal(store.FieldIsPublished, true))
		stats.Published = n
		return err
	})
	g.Go(func() error {
		n, err := s.store.CountPosts(gctx, store.Equal(store.FieldIsPublished, false))
		stats.Drafts = n
		return err
	})
	g.Go(func() error {
		n, err := s.store.CountPosts(gctx)
		stats.Total = n
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, translateStoreErr(err, "posts not found")
	}
	return &stats, nil
}

// ExportMarkdown renders the post with slug as a markdown document with a
// front matter header.
func (s *ContentService) ExportMarkdown(ctx context.Context, slug string) (string, error) {
	p, err := s.GetBySlug(ctx, slug)
	if err != nil {
		return "", err
	}

	body, err := richtext.ToMarkdown(p.Content)
	if err != nil {
		return "", domainerrors.Wrap(err, domainerrors.CodeInternal, "render markdown")
	}

	var b strings.Builder
	b.WriteString("---\n")
	fmt.Fprintf(&b, "title: %s\n", strconv.Quote(p.Title))
	fmt.Fprintf(&b, "slug: %s\n", p.Slug)
	if p.AuthorName != "" {
		fmt.Fprintf(&b, "author: %s\n", strconv.Quote(p.AuthorName))
	}
	if len(p.Tags) > 0 {
		quoted := make([]string, len(p.Tags))
		for i, t := range p.Tags {
			quoted[i] = strconv.Quote(t)
		}
		fmt.Fprintf(&b, "tags: [%s]\n", strings.Join(quoted, ", "))
	}
	if p.PublishDate != nil {
		fmt.Fprintf(&b, "date: %s\n", p.PublishDate.Format(time.RFC3339))
	}
	fmt.Fprintf(&b, "read_time: %d\n", p.ReadTime)
	b.WriteString("---\n\n")
	fmt.Fprintf(&b, "# %s\n\n", p.Title)
	b.WriteString(strings.TrimSpace(body))
	b.WriteString("\n")
	return b.String(), nil
}

// Reindex rebuilds the search index from the store.
func (s *ContentService) Reindex(ctx context.Context) (int, error) {
	if s.reindexer == nil {
		return 0, domainerrors.Unavailable("search index is not configured", nil)
	}
	return s.reindexer.ReindexAll(ctx)
}

// slugFor validates a title and derives its slug.
func slugFor(title string) (string, error) {
	if title == "" {
		return "", domainerrors.Validation("title is required")
	}
	if len([]rune(title)) > MaxTitleLen {
		return "", domainerrors.Validationf("title must not exceed %d characters", MaxTitleLen)
	}
	slug := util.Slugify(title)
	if slug == "" {
		return "", domainerrors.Validation("title must contain at least one letter or digit")
	}
	return slug, nil
}

// cachedPage serves a snapshot page when err says the store is unreachable.
func (s *ContentService) cachedPage(err error, limit, offset int) (*domain.PostList, bool) {
	if s.snapshot == nil || !errors.Is(err, store.ErrUnavailable) {
		return nil, false
	}
	list, capturedAt, cerr := s.snapshot.GetPage(limit, offset)
	if cerr != nil {
		if !errors.Is(cerr, snapshot.ErrMiss) {
			s.logger.Warn("snapshot read failed", "error", cerr)
		}
		return nil, false
	}
	s.logger.Warn("store unavailable, serving snapshot page",
		"limit", limit, "offset", offset, "captured_at", capturedAt, "error", err)
	return list, true
}

// cachedPost serves a snapshot post when err says the store is unreachable.
func (s *ContentService) cachedPost(err error, slug string) (*domain.Post, bool) {
	if s.snapshot == nil || !errors.Is(err, store.ErrUnavailable) {
		return nil, false
	}
	p, capturedAt, cerr := s.snapshot.GetPostBySlug(slug)
	if cerr != nil {
		if !errors.Is(cerr, snapshot.ErrMiss) {
			s.logger.Warn("snapshot read failed", "error", cerr)
		}
		return nil, false
	}
	s.logger.Warn("store unavailable, serving snapshot post",
		"slug", slug, "captured_at", capturedAt, "error", err)
	return p, true
}

// remember writes to the snapshot cache. Failures only cost the fallback.
func (s *ContentService) remember(what string, fn func(*snapshot.Cache) error) {
	if s.snapshot == nil {
		return
	}
	if err := fn(s.snapshot); err != nil {
		s.logger.Warn("snapshot write failed", "what", what, "error", err)
	}
}

func (s *ContentService) rememberPost(p *domain.Post) {
	s.remember("post", func(c *snapshot.Cache) error { return c.PutPost(p) })
}

func (s *ContentService) forget(slug string) {
	s.remember("forget", func(c *snapshot.Cache) error { return c.ForgetPost(slug) })
}

func (s *ContentService) forgetPages() {
	s.remember("forget pages", func(c *snapshot.Cache) error { return c.ForgetPages() })
}
