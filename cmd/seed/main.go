// Package main seeds a fresh blog with the sample duck posts.
//
// It opens the database and search index directly, so the server must be
// stopped while it runs. Posts whose slug already exists are skipped.
//
// Usage:
//
//	DATA_DIR=~/.quackblog go run ./cmd/seed
//	DATA_DIR=~/.quackblog go run ./cmd/seed --counters  # Also add random views and likes
package main

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"math/rand/v2"

	"github.com/Sarcastic-Soul/blog-app/internal/config"
	"github.com/Sarcastic-Soul/blog-app/internal/domain"
	domainerrors "github.com/Sarcastic-Soul/blog-app/internal/errors"
	"github.com/Sarcastic-Soul/blog-app/internal/logger"
	"github.com/Sarcastic-Soul/blog-app/internal/richtext"
	"github.com/Sarcastic-Soul/blog-app/internal/search"
	"github.com/Sarcastic-Soul/blog-app/internal/service"
	"github.com/Sarcastic-Soul/blog-app/internal/store/sqlite"
)

//go:embed posts.json
var samplePosts []byte

var (
	counters   = flag.Bool("counters", false, "Give seeded posts random view and like counts")
	authorID   = flag.String("author-id", "seed", "Author ID recorded on seeded posts")
	authorName = flag.String("author-name", "Quack Admin", "Author name shown on seeded posts")
)

// samplePost is a seed post authored in markdown.
type samplePost struct {
	Title       string   `json:"title"`
	Excerpt     string   `json:"excerpt"`
	HeaderImage string   `json:"headerImage"`
	Tags        []string `json:"tags"`
	Markdown    string   `json:"markdown"`
}

func main() {
	flag.Parse()

	// Server flags are not accepted here; settings come from the environment.
	cfg, err := config.LoadConfig(nil)
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	slogger := logger.Discard()

	inputs, err := loadPosts(samplePosts)
	if err != nil {
		log.Fatalf("Failed to load sample posts: %v", err)
	}

	fmt.Printf("Opening database at: %s\n", cfg.Storage.DatabasePath())
	db, err := sqlite.Open(cfg.Storage.DatabasePath(), slogger)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer db.Close()

	index, err := search.NewSearchIndex(search.Options{DataPath: cfg.Storage.SearchPath(), Logger: slogger})
	if err != nil {
		log.Fatalf("Failed to open search index: %v", err)
	}
	defer index.Close()

	searchService := service.NewSearchService(index, db, slogger)
	db.SetSearchIndexer(searchService)

	ctx := context.Background()

	teams := service.NewTeamService(db, slogger)
	if _, err := teams.EnsureTeam(ctx, cfg.Content.AdminTeamID, "Admins"); err != nil {
		log.Fatalf("Failed to ensure admin team: %v", err)
	}

	content := service.NewContentService(db, nil, slogger)

	var created, skipped int
	for _, in := range inputs {
		p, err := content.Create(ctx, in, *authorID, *authorName)
		if errors.Is(err, domainerrors.ErrConflict) {
			fmt.Printf("  skip    %s (already exists)\n", in.Title)
			skipped++
			continue
		}
		if err != nil {
			log.Fatalf("Failed to create %q: %v", in.Title, err)
		}
		fmt.Printf("  created %s -> /%s\n", p.Title, p.Slug)
		created++

		if *counters {
			addCounters(ctx, content, p.ID)
		}
	}

	fmt.Printf("\nDone: %d created, %d skipped\n", created, skipped)
}

// loadPosts decodes the embedded sample posts into publishable inputs.
func loadPosts(data []byte) ([]domain.PostInput, error) {
	var samples []samplePost
	if err := json.Unmarshal(data, &samples); err != nil {
		return nil, fmt.Errorf("decode sample posts: %w", err)
	}

	inputs := make([]domain.PostInput, 0, len(samples))
	for _, s := range samples {
		inputs = append(inputs, domain.PostInput{
			Title:       s.Title,
			Excerpt:     s.Excerpt,
			Content:     richtext.FromMarkdown(s.Markdown),
			HeaderImage: s.HeaderImage,
			Tags:        s.Tags,
			IsPublished: true,
		})
	}
	return inputs, nil
}

func addCounters(ctx context.Context, content *service.ContentService, postID string) {
	for range rand.IntN(100) {
		content.IncrementViews(ctx, postID)
	}
	for range rand.IntN(20) {
		if _, err := content.IncrementLikes(ctx, postID); err != nil {
			log.Printf("Failed to like %s: %v", postID, err)
			return
		}
	}
}
