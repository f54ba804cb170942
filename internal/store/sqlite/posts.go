package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/Sarcastic-Soul/blog-app/internal/domain"
	"github.com/Sarcastic-Soul/blog-app/internal/richtext"
	"github.com/Sarcastic-Soul/blog-app/internal/store"
)

// postColumns is the ordered list of columns selected in post queries.
// Must match the scan order in scanPost.
const postColumns = `id, slug, title, excerpt, content, header_image, header_blurhash,
	is_published, publish_date, last_modified, created_at,
	author_id, author_name, read_time, views, likes`

// scanPost scans a sql.Row (or sql.Rows via its Scan method) into a domain.Post.
// Tags are loaded separately.
func scanPost(scanner interface{ Scan(dest ...any) error }) (*domain.Post, error) {
	var p domain.Post

	var (
		content        string
		headerBlurHash sql.NullString
		isPublished    int
		publishDate    sql.NullString
		lastModified   string
		createdAt      string
	)

	err := scanner.Scan(
		&p.ID,
		&p.Slug,
		&p.Title,
		&p.Excerpt,
		&content,
		&p.HeaderImage,
		&headerBlurHash,
		&isPublished,
		&publishDate,
		&lastModified,
		&createdAt,
		&p.AuthorID,
		&p.AuthorName,
		&p.ReadTime,
		&p.Views,
		&p.Likes,
	)
	if err != nil {
		return nil, err
	}

	p.Content, err = richtext.Parse([]byte(content))
	if err != nil {
		return nil, fmt.Errorf("post %s content: %w", p.ID, err)
	}
	p.IsPublished = isPublished != 0
	if headerBlurHash.Valid {
		p.HeaderBlurHash = headerBlurHash.String
	}
	if p.PublishDate, err = parseNullableTime(publishDate); err != nil {
		return nil, err
	}
	if p.LastModified, err = parseTime(lastModified); err != nil {
		return nil, err
	}
	if p.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	p.Tags = []string{}

	return &p, nil
}

// encodeContent returns the stored JSON and the plain text used by the
// fallback search.
func encodeContent(n *richtext.Node) (string, string, error) {
	if n == nil {
		n = richtext.Doc()
	}
	data, err := json.Marshal(n)
	if err != nil {
		return "", "", fmt.Errorf("encode content: %w", err)
	}
	return string(data), richtext.PlainText(n), nil
}

// whereClause renders filters and, for non-indexed searches, the LIKE fallback.
func whereClause(filters []store.Filter, likeTerm string) (string, []any) {
	var (
		conds []string
		args  []any
	)
	for _, f := range filters {
		switch f.Field {
		case store.FieldTags:
			conds = append(conds, `EXISTS (SELECT 1 FROM post_tags t WHERE t.post_id = posts.id AND t.tag = ?)`)
			args = append(args, f.Value)
		case store.FieldIsPublished:
			conds = append(conds, `is_published = ?`)
			args = append(args, boolInt(f.Value.(bool)))
		default:
			conds = append(conds, string(f.Field)+` = ?`)
			args = append(args, f.Value)
		}
	}
	if likeTerm != "" {
		pattern := "%" + escapeLike(likeTerm) + "%"
		conds = append(conds, `(title LIKE ? ESCAPE '\' OR excerpt LIKE ? ESCAPE '\' OR content_text LIKE ? ESCAPE '\')`)
		args = append(args, pattern, pattern, pattern)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// QueryPosts runs a structured query. With a search term and no explicit
// ordering, results follow the index's relevance ranking.
func (s *Store) QueryPosts(ctx context.Context, q store.Query) (*domain.PostList, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	rankByMatch := q.Search != "" && q.Order.Field == ""
	q.Normalize()

	filters := q.Filters
	likeTerm := ""
	var ranked []string

	if q.Search != "" {
		if matcher, ok := s.indexer().(store.PostMatcher); ok {
			ids, err := matcher.MatchPostIDs(ctx, q.Search, store.MaxLimit)
			if err != nil {
				return nil, fmt.Errorf("search index: %w", err)
			}
			if len(ids) == 0 {
				return &domain.PostList{Posts: []*domain.Post{}}, nil
			}
			ranked = ids
		} else {
			likeTerm = q.Search
			rankByMatch = false
		}
	}

	where, args := whereClause(filters, likeTerm)
	if ranked != nil {
		cond := `id IN (` + placeholders(len(ranked)) + `)`
		if where == "" {
			where = " WHERE " + cond
		} else {
			where += " AND " + cond
		}
		for _, id := range ranked {
			args = append(args, id)
		}
	}

	if rankByMatch {
		return s.queryRanked(ctx, where, args, ranked, q)
	}

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM posts`+where, args...).Scan(&total); err != nil {
		return nil, wrapErr(err)
	}

	dir := "ASC"
	if q.Order.Desc {
		dir = "DESC"
	}
	query := `SELECT ` + postColumns + ` FROM posts` + where +
		` ORDER BY ` + string(q.Order.Field) + ` ` + dir + `, created_at DESC, id ASC LIMIT ? OFFSET ?`

	posts, err := s.queryPostRows(ctx, query, append(args, q.Limit, q.Offset)...)
	if err != nil {
		return nil, err
	}
	return &domain.PostList{Posts: posts, Total: total}, nil
}

// queryRanked loads every filtered match and pages it in ranking order.
// The candidate set is bounded by store.MaxLimit.
func (s *Store) queryRanked(ctx context.Context, where string, args []any, ranked []string, q store.Query) (*domain.PostList, error) {
	posts, err := s.queryPostRows(ctx, `SELECT `+postColumns+` FROM posts`+where, args...)
	if err != nil {
		return nil, err
	}

	rank := make(map[string]int, len(ranked))
	for i, id := range ranked {
		rank[id] = i
	}
	sort.SliceStable(posts, func(i, j int) bool { return rank[posts[i].ID] < rank[posts[j].ID] })

	total := len(posts)
	start := min(q.Offset, total)
	end := min(start+q.Limit, total)
	return &domain.PostList{Posts: posts[start:end], Total: total}, nil
}

func (s *Store) queryPostRows(ctx context.Context, query string, args ...any) ([]*domain.Post, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrapErr(err)
	}
	defer rows.Close()

	posts := []*domain.Post{}
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr(err)
	}

	if err := s.loadTags(ctx, posts); err != nil {
		return nil, err
	}
	return posts, nil
}

// loadTags fills Tags for each post in stored order.
func (s *Store) loadTags(ctx context.Context, posts []*domain.Post) error {
	if len(posts) == 0 {
		return nil
	}

	byID := make(map[string]*domain.Post, len(posts))
	args := make([]any, 0, len(posts))
	for _, p := range posts {
		byID[p.ID] = p
		args = append(args, p.ID)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT post_id, tag FROM post_tags WHERE post_id IN (`+placeholders(len(args))+`) ORDER BY post_id, position`,
		args...)
	if err != nil {
		return wrapErr(err)
	}
	defer rows.Close()

	for rows.Next() {
		var postID, tag string
		if err := rows.Scan(&postID, &tag); err != nil {
			return err
		}
		if p, ok := byID[postID]; ok {
			p.Tags = append(p.Tags, tag)
		}
	}
	return wrapErr(rows.Err())
}

// CountPosts counts posts matching every filter.
func (s *Store) CountPosts(ctx context.Context, filters ...store.Filter) (int, error) {
	q := store.Query{Filters: filters}
	if err := q.Validate(); err != nil {
		return 0, err
	}
	where, args := whereClause(filters, "")

	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM posts`+where, args...).Scan(&n); err != nil {
		return 0, wrapErr(err)
	}
	return n, nil
}

// GetPost retrieves a post by ID.
// Returns store.ErrNotFound if the post does not exist.
func (s *Store) GetPost(ctx context.Context, id string) (*domain.Post, error) {
	return s.getPost(ctx, s.db, id)
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (s *Store) getPost(ctx context.Context, q queryer, id string) (*domain.Post, error) {
	row := q.QueryRowContext(ctx, `SELECT `+postColumns+` FROM posts WHERE id = ?`, id)

	p, err := scanPost(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound.WithMessage("post not found")
	}
	if err != nil {
		return nil, wrapErr(err)
	}

	rows, err := q.QueryContext(ctx, `SELECT tag FROM post_tags WHERE post_id = ? ORDER BY position`, id)
	if err != nil {
		return nil, wrapErr(err)
	}
	defer rows.Close()
	for rows.Next() {
		var tag string
		if err := rows.Scan(&tag); err != nil {
			return nil, err
		}
		p.Tags = append(p.Tags, tag)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr(err)
	}
	return p, nil
}

// CreatePost inserts a new post with its tags.
// Returns store.ErrAlreadyExists on a duplicate ID or slug.
func (s *Store) CreatePost(ctx context.Context, p *domain.Post) error {
	content, text, err := encodeContent(p.Content)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return wrapErr(err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO posts (
			id, slug, title, excerpt, content, content_text, header_image, header_blurhash,
			is_published, publish_date, last_modified, created_at,
			author_id, author_name, read_time, views, likes
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID,
		p.Slug,
		p.Title,
		p.Excerpt,
		content,
		text,
		p.HeaderImage,
		nullString(p.HeaderBlurHash),
		boolInt(p.IsPublished),
		nullTimeString(p.PublishDate),
		formatTime(p.LastModified),
		formatTime(p.CreatedAt),
		p.AuthorID,
		p.AuthorName,
		p.ReadTime,
		p.Views,
		p.Likes,
	)
	if err != nil {
		return postWriteErr(err)
	}

	if err := setTags(ctx, tx, p.ID, p.Tags); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return wrapErr(err)
	}

	s.afterPostWrite(ctx, store.EventPostCreated, p)
	return nil
}

// UpdatePost performs a full row update and replaces the tag set. Views and
// likes are left alone; only IncrementPostCounter changes them.
// Returns store.ErrNotFound if the post does not exist and
// store.ErrAlreadyExists if the new slug is taken.
func (s *Store) UpdatePost(ctx context.Context, p *domain.Post) error {
	content, text, err := encodeContent(p.Content)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return wrapErr(err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `
		UPDATE posts SET
			slug = ?,
			title = ?,
			excerpt = ?,
			content = ?,
			content_text = ?,
			header_image = ?,
			header_blurhash = ?,
			is_published = ?,
			publish_date = ?,
			last_modified = ?,
			read_time = ?
		WHERE id = ?`,
		p.Slug,
		p.Title,
		p.Excerpt,
		content,
		text,
		p.HeaderImage,
		nullString(p.HeaderBlurHash),
		boolInt(p.IsPublished),
		nullTimeString(p.PublishDate),
		formatTime(p.LastModified),
		p.ReadTime,
		p.ID,
	)
	if err != nil {
		return postWriteErr(err)
	}
	if err := rowsAffected(result); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return store.ErrNotFound.WithMessage("post not found")
		}
		return err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM post_tags WHERE post_id = ?`, p.ID); err != nil {
		return wrapErr(err)
	}
	if err := setTags(ctx, tx, p.ID, p.Tags); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return wrapErr(err)
	}

	s.afterPostWrite(ctx, store.EventPostUpdated, p)
	return nil
}

func setTags(ctx context.Context, tx *sql.Tx, postID string, tags []string) error {
	for i, tag := range tags {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO post_tags (post_id, tag, position) VALUES (?, ?, ?) ON CONFLICT DO NOTHING`,
			postID, tag, i); err != nil {
			return wrapErr(err)
		}
	}
	return nil
}

func postWriteErr(err error) error {
	if isUniqueViolation(err) {
		if strings.Contains(err.Error(), "posts.slug") {
			return store.ErrAlreadyExists.WithMessage("slug already in use")
		}
		return store.ErrAlreadyExists.WithMessage("post already exists")
	}
	return wrapErr(err)
}

// DeletePost hard-deletes a post; its tags and comments go with it.
// Returns store.ErrNotFound if the post does not exist.
func (s *Store) DeletePost(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM posts WHERE id = ?`, id)
	if err != nil {
		return wrapErr(err)
	}
	if err := rowsAffected(result); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return store.ErrNotFound.WithMessage("post not found")
		}
		return err
	}

	if err := s.indexer().DeletePost(ctx, id); err != nil {
		s.logger.Warn("failed to remove post from search index", "post_id", id, "error", err)
	}
	s.emit(store.Event{Type: store.EventPostDeleted, Data: map[string]string{"id": id}})
	return nil
}

// IncrementPostCounter adds one to a counter in a single statement, so
// concurrent increments never lose updates.
func (s *Store) IncrementPostCounter(ctx context.Context, id string, counter store.Counter) (*domain.Post, error) {
	var column string
	switch counter {
	case store.CounterViews:
		column = "views"
	case store.CounterLikes:
		column = "likes"
	default:
		return nil, store.ErrInvalidInput.WithMessage(fmt.Sprintf("unknown counter %q", counter))
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, wrapErr(err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `UPDATE posts SET `+column+` = `+column+` + 1 WHERE id = ?`, id)
	if err != nil {
		return nil, wrapErr(err)
	}
	if err := rowsAffected(result); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, store.ErrNotFound.WithMessage("post not found")
		}
		return nil, err
	}

	p, err := s.getPost(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, wrapErr(err)
	}
	return p, nil
}

// ListPublishedTags returns the tags of the limit most recently published posts.
func (s *Store) ListPublishedTags(ctx context.Context, limit int) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT t.tag FROM post_tags t
		JOIN (
			SELECT id FROM posts WHERE is_published = 1
			ORDER BY publish_date DESC LIMIT ?
		) p ON p.id = t.post_id`, limit)
	if err != nil {
		return nil, wrapErr(err)
	}
	defer rows.Close()

	var tags []string
	for rows.Next() {
		var tag string
		if err := rows.Scan(&tag); err != nil {
			return nil, err
		}
		tags = append(tags, tag)
	}
	return tags, wrapErr(rows.Err())
}

// EachPost calls fn for every post, oldest first.
func (s *Store) EachPost(ctx context.Context, fn func(*domain.Post) error) error {
	posts, err := s.queryPostRows(ctx, `SELECT `+postColumns+` FROM posts ORDER BY created_at ASC`)
	if err != nil {
		return err
	}
	for _, p := range posts {
		if err := fn(p); err != nil {
			return err
		}
	}
	return nil
}

// SetHeaderImage points the post at an uploaded header image.
func (s *Store) SetHeaderImage(ctx context.Context, id, url, blurHash string) (*domain.Post, error) {
	result, err := s.db.ExecContext(ctx,
		`UPDATE posts SET header_image = ?, header_blurhash = ?, last_modified = ? WHERE id = ?`,
		url, nullString(blurHash), formatTime(time.Now()), id)
	if err != nil {
		return nil, wrapErr(err)
	}
	if err := rowsAffected(result); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, store.ErrNotFound.WithMessage("post not found")
		}
		return nil, err
	}

	p, err := s.GetPost(ctx, id)
	if err != nil {
		return nil, err
	}
	s.afterPostWrite(ctx, store.EventPostUpdated, p)
	return p, nil
}

// afterPostWrite keeps the search index current and notifies listeners.
// Index failures are logged; the write itself already succeeded.
func (s *Store) afterPostWrite(ctx context.Context, eventType string, p *domain.Post) {
	if err := s.indexer().IndexPost(ctx, p); err != nil {
		s.logger.Warn("failed to index post", "post_id", p.ID, "error", err)
	}
	s.emit(store.Event{Type: eventType, Data: p})
}
