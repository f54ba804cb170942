package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/Sarcastic-Soul/blog-app/internal/domain"
	domainerrors "github.com/Sarcastic-Soul/blog-app/internal/errors"
	"github.com/Sarcastic-Soul/blog-app/internal/richtext"
)

func (s *Server) registerPostRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listPosts",
		Method:      http.MethodGet,
		Path:        "/api/v1/posts",
		Summary:     "List published posts",
		Description: "Returns published posts, newest first. Served from the snapshot cache when the database is unreachable.",
		Tags:        []string{"Posts"},
	}, s.handleListPosts)

	huma.Register(s.api, huma.Operation{
		OperationID: "listAllPosts",
		Method:      http.MethodGet,
		Path:        "/api/v1/posts/all",
		Summary:     "List all posts",
		Description: "Returns drafts and published posts, most recently modified first (admin only)",
		Tags:        []string{"Posts"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleListAllPosts)

	huma.Register(s.api, huma.Operation{
		OperationID: "searchPosts",
		Method:      http.MethodGet,
		Path:        "/api/v1/posts/search",
		Summary:     "Search posts",
		Description: "Full-text search over titles, excerpts, tags and content. Drafts are only searched for admins.",
		Tags:        []string{"Posts"},
	}, s.handleSearchPosts)

	huma.Register(s.api, huma.Operation{
		OperationID: "listTags",
		Method:      http.MethodGet,
		Path:        "/api/v1/posts/tags",
		Summary:     "List tags",
		Description: "Returns the distinct tags of published posts",
		Tags:        []string{"Posts"},
	}, s.handleListTags)

	huma.Register(s.api, huma.Operation{
		OperationID: "listPostsByTag",
		Method:      http.MethodGet,
		Path:        "/api/v1/posts/tags/{tag}",
		Summary:     "List posts by tag",
		Tags:        []string{"Posts"},
	}, s.handleListPostsByTag)

	huma.Register(s.api, huma.Operation{
		OperationID: "getPostStats",
		Method:      http.MethodGet,
		Path:        "/api/v1/posts/stats",
		Summary:     "Post statistics",
		Description: "Returns published, draft and total post counts (admin only)",
		Tags:        []string{"Posts"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleGetPostStats)

	huma.Register(s.api, huma.Operation{
		OperationID: "getPostBySlug",
		Method:      http.MethodGet,
		Path:        "/api/v1/posts/slug/{slug}",
		Summary:     "Get post by slug",
		Tags:        []string{"Posts"},
	}, s.handleGetPostBySlug)

	huma.Register(s.api, huma.Operation{
		OperationID: "exportPostMarkdown",
		Method:      http.MethodGet,
		Path:        "/api/v1/posts/slug/{slug}/markdown",
		Summary:     "Export post as markdown",
		Description: "Returns the post as a markdown document with front matter",
		Tags:        []string{"Posts"},
	}, s.handleExportMarkdown)

	huma.Register(s.api, huma.Operation{
		OperationID: "getPost",
		Method:      http.MethodGet,
		Path:        "/api/v1/posts/{id}",
		Summary:     "Get post",
		Tags:        []string{"Posts"},
	}, s.handleGetPost)

	huma.Register(s.api, huma.Operation{
		OperationID:   "createPost",
		Method:        http.MethodPost,
		Path:          "/api/v1/posts",
		Summary:       "Create post",
		Description:   "Creates a post authored by the caller (admin only)",
		Tags:          []string{"Posts"},
		DefaultStatus: http.StatusCreated,
		Security:      []map[string][]string{{"bearer": {}}},
	}, s.handleCreatePost)

	huma.Register(s.api, huma.Operation{
		OperationID: "updatePost",
		Method:      http.MethodPatch,
		Path:        "/api/v1/posts/{id}",
		Summary:     "Update post",
		Description: "Applies a partial update. Absent fields are left unchanged (admin only)",
		Tags:        []string{"Posts"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleUpdatePost)

	huma.Register(s.api, huma.Operation{
		OperationID:   "deletePost",
		Method:        http.MethodDelete,
		Path:          "/api/v1/posts/{id}",
		Summary:       "Delete post",
		Description:   "Deletes a post and its comments (admin only)",
		Tags:          []string{"Posts"},
		DefaultStatus: http.StatusNoContent,
		Security:      []map[string][]string{{"bearer": {}}},
	}, s.handleDeletePost)
}

// === DTOs ===

// PostResponse is a post as served over the API.
type PostResponse struct {
	ID             string     `json:"id" doc:"Post ID"`
	Slug           string     `json:"slug" doc:"URL slug"`
	Title          string     `json:"title" doc:"Title"`
	Excerpt        string     `json:"excerpt" doc:"Short summary"`
	Content        any        `json:"content" doc:"Rich text document tree"`
	HeaderImage    string     `json:"header_image" doc:"Header image URL"`
	HeaderBlurHash string     `json:"header_blurhash,omitempty" doc:"BlurHash placeholder of the header image"`
	Tags           []string   `json:"tags" doc:"Normalized tags"`
	IsPublished    bool       `json:"is_published" doc:"Whether readers can see the post"`
	PublishDate    *time.Time `json:"publish_date,omitempty" doc:"First publication time"`
	LastModified   time.Time  `json:"last_modified" doc:"Last write time"`
	CreatedAt      time.Time  `json:"created_at" doc:"Creation time"`
	AuthorID       string     `json:"author_id" doc:"Author user ID"`
	AuthorName     string     `json:"author_name" doc:"Author display name"`
	ReadTime       int        `json:"read_time" doc:"Estimated reading time in minutes"`
	Views          int64      `json:"views" doc:"View count"`
	Likes          int64      `json:"likes" doc:"Like count"`
}

// PostListResponse is a page of posts.
type PostListResponse struct {
	Posts []PostResponse `json:"posts" doc:"Posts on this page"`
	Total int            `json:"total" doc:"Posts matching the query"`
	Stale bool           `json:"stale,omitempty" doc:"Served from the snapshot cache"`
}

// PostOutput wraps a post for Huma.
type PostOutput struct {
	Body PostResponse
}

// PostListOutput wraps a page of posts for Huma.
type PostListOutput struct {
	Body PostListResponse
}

// ListPostsInput contains pagination parameters.
type ListPostsInput struct {
	Limit  int `query:"limit" minimum:"1" maximum:"100" default:"20" doc:"Page size"`
	Offset int `query:"offset" minimum:"0" doc:"Posts to skip"`
}

// SearchPostsInput contains search parameters.
type SearchPostsInput struct {
	Q         string `query:"q" maxLength:"200" doc:"Search terms; empty lists every post"`
	Published bool   `query:"published" default:"true" doc:"Only published posts (forced for non-admins)"`
}

// TagPostsInput selects posts by tag.
type TagPostsInput struct {
	Tag       string `path:"tag" doc:"Tag"`
	Published bool   `query:"published" default:"true" doc:"Only published posts (forced for non-admins)"`
}

// SlugInput selects a post by slug.
type SlugInput struct {
	Slug string `path:"slug" doc:"Post slug"`
}

// PostIDInput selects a post by ID.
type PostIDInput struct {
	ID string `path:"id" doc:"Post ID"`
}

// TagsResponse lists tags.
type TagsResponse struct {
	Tags []string `json:"tags" doc:"Distinct tags, sorted"`
}

// TagsOutput wraps tags for Huma.
type TagsOutput struct {
	Body TagsResponse
}

// StatsOutput wraps post statistics for Huma.
type StatsOutput struct {
	Body domain.PostStats
}

// MarkdownOutput is a raw markdown document.
type MarkdownOutput struct {
	ContentType        string `header:"Content-Type"`
	ContentDisposition string `header:"Content-Disposition"`
	Body               []byte
}

// CreatePostRequest is the request body for a new post.
type CreatePostRequest struct {
	Title       string   `json:"title" maxLength:"200" doc:"Title; the slug is derived from it"`
	Excerpt     string   `json:"excerpt,omitempty" maxLength:"500" doc:"Summary; derived from content when empty"`
	Content     any      `json:"content" doc:"Rich text document tree"`
	HeaderImage string   `json:"header_image,omitempty" maxLength:"2048" doc:"Header image URL"`
	Tags        []string `json:"tags,omitempty" maxItems:"20" doc:"Tags"`
	IsPublished bool     `json:"is_published,omitempty" doc:"Publish immediately"`
}

// CreatePostInput wraps the create request for Huma.
type CreatePostInput struct {
	Body CreatePostRequest
}

// UpdatePostRequest is a partial update. Absent fields are unchanged.
type UpdatePostRequest struct {
	Title       *string   `json:"title,omitempty" maxLength:"200" doc:"New title; re-derives the slug"`
	Excerpt     *string   `json:"excerpt,omitempty" maxLength:"500" doc:"New summary"`
	Content     any       `json:"content,omitempty" doc:"New document tree"`
	HeaderImage *string   `json:"header_image,omitempty" maxLength:"2048" doc:"New header image URL"`
	Tags        *[]string `json:"tags,omitempty" maxItems:"20" doc:"Replacement tags"`
	IsPublished *bool     `json:"is_published,omitempty" doc:"Publish or unpublish"`
}

// UpdatePostInput wraps the update request for Huma.
type UpdatePostInput struct {
	ID   string `path:"id" doc:"Post ID"`
	Body UpdatePostRequest
}

// === Handlers ===

func (s *Server) handleListPosts(ctx context.Context, input *ListPostsInput) (*PostListOutput, error) {
	list, err := s.services.Content.ListPublished(ctx, input.Limit, input.Offset)
	if err != nil {
		return nil, err
	}
	return &PostListOutput{Body: toPostListResponse(list)}, nil
}

func (s *Server) handleListAllPosts(ctx context.Context, input *ListPostsInput) (*PostListOutput, error) {
	if _, err := s.RequireAdmin(ctx); err != nil {
		return nil, err
	}

	list, err := s.services.Content.ListAll(ctx, input.Limit, input.Offset)
	if err != nil {
		return nil, err
	}
	return &PostListOutput{Body: toPostListResponse(list)}, nil
}

func (s *Server) handleSearchPosts(ctx context.Context, input *SearchPostsInput) (*PostListOutput, error) {
	publishedOnly := input.Published || !s.isAdmin(ctx)

	list, err := s.services.Content.Search(ctx, input.Q, publishedOnly)
	if err != nil {
		return nil, err
	}
	return &PostListOutput{Body: toPostListResponse(list)}, nil
}

func (s *Server) handleListTags(ctx context.Context, _ *struct{}) (*TagsOutput, error) {
	tags, err := s.services.Content.ListAllTags(ctx)
	if err != nil {
		return nil, err
	}
	return &TagsOutput{Body: TagsResponse{Tags: tags}}, nil
}

func (s *Server) handleListPostsByTag(ctx context.Context, input *TagPostsInput) (*PostListOutput, error) {
	publishedOnly := input.Published || !s.isAdmin(ctx)

	list, err := s.services.Content.ListByTag(ctx, input.Tag, publishedOnly)
	if err != nil {
		return nil, err
	}
	return &PostListOutput{Body: toPostListResponse(list)}, nil
}

func (s *Server) handleGetPostStats(ctx context.Context, _ *struct{}) (*StatsOutput, error) {
	if _, err := s.RequireAdmin(ctx); err != nil {
		return nil, err
	}

	stats, err := s.services.Content.GetStats(ctx)
	if err != nil {
		return nil, err
	}
	return &StatsOutput{Body: *stats}, nil
}

func (s *Server) handleGetPostBySlug(ctx context.Context, input *SlugInput) (*PostOutput, error) {
	p, err := s.services.Content.GetBySlug(ctx, input.Slug)
	if err != nil {
		return nil, err
	}
	if err := s.checkVisible(ctx, p); err != nil {
		return nil, err
	}
	return &PostOutput{Body: toPostResponse(p)}, nil
}

func (s *Server) handleExportMarkdown(ctx context.Context, input *SlugInput) (*MarkdownOutput, error) {
	p, err := s.services.Content.GetBySlug(ctx, input.Slug)
	if err != nil {
		return nil, err
	}
	if err := s.checkVisible(ctx, p); err != nil {
		return nil, err
	}

	doc, err := s.services.Content.ExportMarkdown(ctx, input.Slug)
	if err != nil {
		return nil, err
	}
	return &MarkdownOutput{
		ContentType:        "text/markdown; charset=utf-8",
		ContentDisposition: `attachment; filename="` + p.Slug + `.md"`,
		Body:               []byte(doc),
	}, nil
}

func (s *Server) handleGetPost(ctx context.Context, input *PostIDInput) (*PostOutput, error) {
	p, err := s.services.Content.GetByID(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	if err := s.checkVisible(ctx, p); err != nil {
		return nil, err
	}
	return &PostOutput{Body: toPostResponse(p)}, nil
}

func (s *Server) handleCreatePost(ctx context.Context, input *CreatePostInput) (*PostOutput, error) {
	caller, err := s.RequireAdmin(ctx)
	if err != nil {
		return nil, err
	}

	content, err := decodeContent(input.Body.Content)
	if err != nil {
		return nil, err
	}

	p, err := s.services.Content.Create(ctx, domain.PostInput{
		Title:       input.Body.Title,
		Excerpt:     input.Body.Excerpt,
		Content:     content,
		HeaderImage: input.Body.HeaderImage,
		Tags:        input.Body.Tags,
		IsPublished: input.Body.IsPublished,
	}, caller.User.ID, caller.User.Name)
	if err != nil {
		return nil, err
	}
	return &PostOutput{Body: toPostResponse(p)}, nil
}

func (s *Server) handleUpdatePost(ctx context.Context, input *UpdatePostInput) (*PostOutput, error) {
	if _, err := s.RequireAdmin(ctx); err != nil {
		return nil, err
	}

	content, err := decodeContent(input.Body.Content)
	if err != nil {
		return nil, err
	}

	p, err := s.services.Content.Update(ctx, input.ID, domain.PostPatch{
		Title:       input.Body.Title,
		Excerpt:     input.Body.Excerpt,
		Content:     content,
		HeaderImage: input.Body.HeaderImage,
		Tags:        input.Body.Tags,
		IsPublished: input.Body.IsPublished,
	})
	if err != nil {
		return nil, err
	}
	return &PostOutput{Body: toPostResponse(p)}, nil
}

func (s *Server) handleDeletePost(ctx context.Context, input *PostIDInput) (*struct{}, error) {
	if _, err := s.RequireAdmin(ctx); err != nil {
		return nil, err
	}
	if err := s.services.Content.Delete(ctx, input.ID); err != nil {
		return nil, err
	}
	return nil, nil
}

// === Helpers ===

// checkVisible hides drafts from everyone but admins.
func (s *Server) checkVisible(ctx context.Context, p *domain.Post) error {
	if p.IsPublished || s.isAdmin(ctx) {
		return nil
	}
	return domainerrors.NotFound("post not found")
}

// decodeContent converts a decoded JSON document into a rich text tree.
// nil means absent.
func decodeContent(v any) (*richtext.Node, error) {
	if v == nil {
		return nil, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, domainerrors.Validation("content is not a valid document")
	}
	n, err := richtext.Parse(data)
	if err != nil {
		return nil, domainerrors.Validationf("content is not a valid document: %v", err)
	}
	return n, nil
}

func toPostResponse(p *domain.Post) PostResponse {
	tags := p.Tags
	if tags == nil {
		tags = []string{}
	}
	return PostResponse{
		ID:             p.ID,
		Slug:           p.Slug,
		Title:          p.Title,
		Excerpt:        p.Excerpt,
		Content:        p.Content,
		HeaderImage:    p.HeaderImage,
		HeaderBlurHash: p.HeaderBlurHash,
		Tags:           tags,
		IsPublished:    p.IsPublished,
		PublishDate:    p.PublishDate,
		LastModified:   p.LastModified,
		CreatedAt:      p.CreatedAt,
		AuthorID:       p.AuthorID,
		AuthorName:     p.AuthorName,
		ReadTime:       p.ReadTime,
		Views:          p.Views,
		Likes:          p.Likes,
	}
}

func toPostListResponse(list *domain.PostList) PostListResponse {
	posts := make([]PostResponse, len(list.Posts))
	for i, p := range list.Posts {
		posts[i] = toPostResponse(p)
	}
	return PostListResponse{Posts: posts, Total: list.Total, Stale: list.Stale}
}
