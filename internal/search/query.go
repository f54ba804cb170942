package search

import (
	"context"
	"fmt"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"
)

// SearchParams configures a search query.
type SearchParams struct {
	Query         string // User's search query
	PublishedOnly bool
	Tag           string // Exact tag filter

	Limit  int
	Offset int

	Highlight bool
}

// DefaultSearchParams returns sensible defaults.
func DefaultSearchParams() SearchParams {
	return SearchParams{
		Limit:     50,
		Highlight: true,
	}
}

// SearchResult represents the search results.
type SearchResult struct {
	Query  string      `json:"query"`
	Total  uint64      `json:"total"`
	TookMs int64       `json:"took_ms"`
	Hits   []SearchHit `json:"hits"`
}

// SearchHit represents a single search result.
type SearchHit struct {
	ID         string            `json:"id"`
	Score      float64           `json:"score"`
	Slug       string            `json:"slug"`
	Title      string            `json:"title"`
	Highlights map[string]string `json:"highlights,omitempty"`
}

// Search executes a search query, best match first.
func (s *SearchIndex) Search(ctx context.Context, params SearchParams) (*SearchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if params.Limit <= 0 {
		params.Limit = DefaultSearchParams().Limit
	}

	req := bleve.NewSearchRequestOptions(buildSearchQuery(params), params.Limit, params.Offset, false)
	req.SortBy([]string{"-_score", "-publish_date"})
	req.Fields = []string{"slug", "title"}

	if params.Highlight {
		req.Highlight = bleve.NewHighlight()
		req.Highlight.AddField("title")
		req.Highlight.AddField("excerpt")
	}

	res, err := s.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("execute search: %w", err)
	}

	result := &SearchResult{
		Query:  params.Query,
		Total:  res.Total,
		TookMs: res.Took.Milliseconds(),
		Hits:   make([]SearchHit, 0, len(res.Hits)),
	}

	for _, hit := range res.Hits {
		h := SearchHit{ID: hit.ID, Score: hit.Score}
		if v, ok := hit.Fields["slug"].(string); ok {
			h.Slug = v
		}
		if v, ok := hit.Fields["title"].(string); ok {
			h.Title = v
		}
		if len(hit.Fragments) > 0 {
			h.Highlights = make(map[string]string)
			for field, fragments := range hit.Fragments {
				if len(fragments) > 0 {
					h.Highlights[field] = fragments[0]
				}
			}
		}
		result.Hits = append(result.Hits, h)
	}

	return result, nil
}

// MatchIDs returns the IDs of up to limit posts matching term, best first.
func (s *SearchIndex) MatchIDs(ctx context.Context, term string, limit int) ([]string, error) {
	res, err := s.Search(ctx, SearchParams{Query: term, Limit: limit})
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(res.Hits))
	for i, h := range res.Hits {
		ids[i] = h.ID
	}
	return ids, nil
}

// buildSearchQuery constructs the Bleve query from params.
//
// Title matches outrank excerpt matches, which outrank body matches. Fuzzy
// and prefix queries on the title tolerate typos and partial words.
func buildSearchQuery(params SearchParams) query.Query {
	var queries []query.Query

	if term := strings.TrimSpace(params.Query); term != "" {
		titleMatch := bleve.NewMatchQuery(term)
		titleMatch.SetField("title")
		titleMatch.SetBoost(3.0)

		excerptMatch := bleve.NewMatchQuery(term)
		excerptMatch.SetField("excerpt")
		excerptMatch.SetBoost(1.5)

		bodyMatch := bleve.NewMatchQuery(term)
		bodyMatch.SetField("body")

		tagMatch := bleve.NewTermQuery(strings.ToLower(term))
		tagMatch.SetField("tags")
		tagMatch.SetBoost(2.0)

		textQueries := []query.Query{titleMatch, excerptMatch, bodyMatch, tagMatch}

		fuzzyQuery := bleve.NewFuzzyQuery(strings.ToLower(term))
		fuzzyQuery.SetFuzziness(1)
		fuzzyQuery.SetField("title")
		fuzzyQuery.SetBoost(0.8)
		textQueries = append(textQueries, fuzzyQuery)

		// Prefix query for partial words (minimum 2 chars)
		if len(term) >= 2 {
			prefixQuery := bleve.NewPrefixQuery(strings.ToLower(term))
			prefixQuery.SetField("title")
			prefixQuery.SetBoost(0.5)
			textQueries = append(textQueries, prefixQuery)
		}

		queries = append(queries, bleve.NewDisjunctionQuery(textQueries...))
	}

	if params.PublishedOnly {
		pq := bleve.NewBoolFieldQuery(true)
		pq.SetField("published")
		queries = append(queries, pq)
	}

	if params.Tag != "" {
		tq := bleve.NewTermQuery(params.Tag)
		tq.SetField("tags")
		queries = append(queries, tq)
	}

	if len(queries) == 0 {
		return bleve.NewMatchAllQuery()
	}
	if len(queries) == 1 {
		return queries[0]
	}
	return bleve.NewConjunctionQuery(queries...)
}
