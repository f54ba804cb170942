package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Sarcastic-Soul/blog-app/internal/domain"
	"github.com/Sarcastic-Soul/blog-app/internal/search"
	"github.com/Sarcastic-Soul/blog-app/internal/store"
)

// SearchService bridges the search index with the post store. The store
// notifies it of writes through store.SearchIndexer and asks it for ranked
// matches through store.PostMatcher.
type SearchService struct {
	index  *search.SearchIndex
	posts  store.PostStore
	logger *slog.Logger
}

var (
	_ store.SearchIndexer = (*SearchService)(nil)
	_ store.PostMatcher   = (*SearchService)(nil)
	_ Reindexer           = (*SearchService)(nil)
)

// NewSearchService creates a new search service.
func NewSearchService(index *search.SearchIndex, posts store.PostStore, logger *slog.Logger) *SearchService {
	return &SearchService{
		index:  index,
		posts:  posts,
		logger: logger,
	}
}

// Search queries the index directly, with highlights when requested.
func (s *SearchService) Search(ctx context.Context, params search.SearchParams) (*search.SearchResult, error) {
	return s.index.Search(ctx, params)
}

// IndexPost indexes a single post. Called by the store after every write.
func (s *SearchService) IndexPost(_ context.Context, p *domain.Post) error {
	if err := s.index.IndexPost(search.PostToSearchDocument(p)); err != nil {
		return fmt.Errorf("index post: %w", err)
	}
	s.logger.Debug("indexed post", "id", p.ID, "slug", p.Slug)
	return nil
}

// DeletePost removes a post from the index.
func (s *SearchService) DeletePost(_ context.Context, postID string) error {
	return s.index.DeletePost(postID)
}

// MatchPostIDs returns the IDs of matching posts, best first.
func (s *SearchService) MatchPostIDs(ctx context.Context, term string, limit int) ([]string, error) {
	return s.index.MatchIDs(ctx, term, limit)
}

// ReindexAll drops the index and indexes every stored post.
func (s *SearchService) ReindexAll(ctx context.Context) (int, error) {
	start := time.Now()

	if err := s.index.Rebuild(); err != nil {
		return 0, fmt.Errorf("rebuild index: %w", err)
	}

	var docs []*search.PostDocument
	if err := s.posts.EachPost(ctx, func(p *domain.Post) error {
		docs = append(docs, search.PostToSearchDocument(p))
		return nil
	}); err != nil {
		return 0, translateStoreErr(err, "posts not found")
	}

	if err := s.index.IndexPosts(docs); err != nil {
		return 0, fmt.Errorf("index posts: %w", err)
	}

	s.logger.Info("search index rebuilt", "posts", len(docs), "duration", time.Since(start))
	return len(docs), nil
}

// EnsureIndexed reindexes when the index was created empty at startup, which
// happens on first run and after a mapping version change.
func (s *SearchService) EnsureIndexed(ctx context.Context) error {
	if !s.index.Created() {
		return nil
	}
	_, err := s.ReindexAll(ctx)
	return err
}

// DocumentCount returns the number of indexed posts.
func (s *SearchService) DocumentCount() (uint64, error) {
	return s.index.DocumentCount()
}
