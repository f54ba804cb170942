// Package main inspects the snapshot cache the server falls back to while
// the store is unavailable.
//
// Usage:
//
//	DATA_DIR=~/.quackblog go run ./cmd/dbinspect          # list cached entries
//	DATA_DIR=~/.quackblog go run ./cmd/dbinspect <slug>   # show one cached post
package main

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/Sarcastic-Soul/blog-app/internal/config"
	"github.com/Sarcastic-Soul/blog-app/internal/snapshot"
)

func main() {
	cfg, err := config.LoadConfig(nil)
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	cache, err := snapshot.Open(snapshot.Options{Dir: cfg.Storage.SnapshotPath(), ReadOnly: true})
	if err != nil {
		log.Fatalf("Failed to open snapshot cache: %v", err)
	}
	defer cache.Close()

	if len(os.Args) > 1 {
		showPost(cache, os.Args[1])
		return
	}

	entries, err := cache.Entries()
	if err != nil {
		log.Fatalf("Error iterating snapshot cache: %v", err)
	}

	fmt.Println("=== Snapshot Inspection ===")
	fmt.Println()

	var pages, posts int
	var oldest time.Time
	for _, e := range entries {
		switch {
		case strings.HasPrefix(e.Key, "page:"):
			pages++
		case strings.HasPrefix(e.Key, "post:"):
			posts++
		}
		if oldest.IsZero() || e.CapturedAt.Before(oldest) {
			oldest = e.CapturedAt
		}

		expires := "never"
		if !e.ExpiresAt.IsZero() {
			expires = e.ExpiresAt.Local().Format(time.DateTime)
		}
		fmt.Printf("%-40s %7d B  captured %s  expires %s\n",
			e.Key, e.Size, e.CapturedAt.Local().Format(time.DateTime), expires)
	}

	fmt.Println()
	fmt.Println("=== Summary ===")
	fmt.Printf("Cached pages: %d\n", pages)
	fmt.Printf("Cached posts: %d\n", posts)
	if !oldest.IsZero() {
		fmt.Printf("Oldest capture: %s (%s ago)\n",
			oldest.Local().Format(time.DateTime), time.Since(oldest).Round(time.Second))
	}
}

func showPost(cache *snapshot.Cache, slug string) {
	p, at, err := cache.GetPostBySlug(slug)
	if errors.Is(err, snapshot.ErrMiss) {
		fmt.Printf("No snapshot for %q\n", slug)
		os.Exit(1)
	}
	if err != nil {
		log.Fatalf("Failed to read snapshot: %v", err)
	}

	fmt.Printf("Post: %s\n", p.Title)
	fmt.Printf("  ID: %s\n", p.ID)
	fmt.Printf("  Slug: %s\n", p.Slug)
	fmt.Printf("  Published: %t\n", p.IsPublished)
	fmt.Printf("  Tags: %s\n", strings.Join(p.Tags, ", "))
	fmt.Printf("  Views: %d  Likes: %d\n", p.Views, p.Likes)
	fmt.Printf("  Captured: %s\n", at.Local().Format(time.DateTime))
}
