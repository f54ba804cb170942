// Package snapshot keeps the last successfully read pages and posts in an
// embedded Badger database so reads can be served while the store is down.
package snapshot

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/Sarcastic-Soul/blog-app/internal/domain"
)

// Key prefixes.
const (
	pagePrefix = "page:published:"
	slugPrefix = "post:slug:"
)

// DefaultMaxAge bounds how stale a snapshot may be before it is dropped.
const DefaultMaxAge = 7 * 24 * time.Hour

// ErrMiss is returned when no snapshot exists for a key.
var ErrMiss = errors.New("snapshot miss")

// Options configures the cache.
type Options struct {
	// Dir is the Badger directory. Empty opens an in-memory cache.
	Dir    string
	MaxAge time.Duration
	// ReadOnly opens an existing directory without taking the write lock.
	ReadOnly bool
}

// Cache is a last-known-good snapshot cache.
type Cache struct {
	db     *badger.DB
	maxAge time.Duration
}

// entry wraps a cached value with the time it was captured.
type entry[T any] struct {
	CapturedAt time.Time `json:"captured_at"`
	Value      T         `json:"value"`
}

// Open opens or creates the cache.
func Open(opts Options) (*Cache, error) {
	bopts := badger.DefaultOptions(opts.Dir).WithLogger(nil)
	if opts.Dir == "" {
		bopts = bopts.WithInMemory(true)
	}
	if opts.ReadOnly {
		bopts = bopts.WithReadOnly(true)
	}

	db, err := badger.Open(bopts)
	if err != nil {
		return nil, fmt.Errorf("open snapshot cache: %w", err)
	}

	maxAge := opts.MaxAge
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}
	return &Cache{db: db, maxAge: maxAge}, nil
}

// Close closes the cache.
func (c *Cache) Close() error {
	return c.db.Close()
}

func pageKey(limit, offset int) []byte {
	return fmt.Appendf(nil, "%s%d:%d", pagePrefix, limit, offset)
}

func slugKey(slug string) []byte {
	return []byte(slugPrefix + slug)
}

// PutPage records a page of published posts.
func (c *Cache) PutPage(limit, offset int, list *domain.PostList) error {
	return put(c, pageKey(limit, offset), *list)
}

// GetPage returns the last recorded page for limit and offset, marked Stale.
func (c *Cache) GetPage(limit, offset int) (*domain.PostList, time.Time, error) {
	list, at, err := get[domain.PostList](c, pageKey(limit, offset))
	if err != nil {
		return nil, time.Time{}, err
	}
	list.Stale = true
	return &list, at, nil
}

// PutPost records a published post under its slug. A draft drops any
// existing snapshot for its slug instead.
func (c *Cache) PutPost(p *domain.Post) error {
	if !p.IsPublished {
		return c.ForgetPost(p.Slug)
	}
	return put(c, slugKey(p.Slug), *p)
}

// GetPostBySlug returns the last recorded post for slug.
func (c *Cache) GetPostBySlug(slug string) (*domain.Post, time.Time, error) {
	p, at, err := get[domain.Post](c, slugKey(slug))
	if err != nil {
		return nil, time.Time{}, err
	}
	return &p, at, nil
}

// ForgetPost drops a post snapshot, used when a post is deleted or unpublished.
func (c *Cache) ForgetPost(slug string) error {
	return c.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(slugKey(slug))
	})
}

// ForgetPages drops every cached page. Any post write can change which posts
// a page holds, so pages are recaptured on the next successful read.
func (c *Cache) ForgetPages() error {
	return c.db.Update(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(pagePrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		var keys [][]byte
		for it.Rewind(); it.Valid(); it.Next() {
			keys = append(keys, it.Item().KeyCopy(nil))
		}
		for _, k := range keys {
			if err := txn.Delete(k); err != nil {
				return err
			}
		}
		return nil
	})
}

// Keys lists every cached key.
func (c *Cache) Keys() ([]string, error) {
	var keys []string
	err := c.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			keys = append(keys, string(it.Item().KeyCopy(nil)))
		}
		return nil
	})
	return keys, err
}

// Entry describes one cached value.
type Entry struct {
	Key        string
	CapturedAt time.Time
	ExpiresAt  time.Time
	Size       int64
}

// Entries lists every cached value with its capture and expiry times.
func (c *Cache) Entries() ([]Entry, error) {
	var entries []Entry
	err := c.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			e := Entry{Key: string(item.KeyCopy(nil)), Size: item.ValueSize()}
			if exp := item.ExpiresAt(); exp > 0 {
				e.ExpiresAt = time.Unix(int64(exp), 0).UTC()
			}
			err := item.Value(func(val []byte) error {
				var head struct {
					CapturedAt time.Time `json:"captured_at"`
				}
				if err := json.Unmarshal(val, &head); err != nil {
					return fmt.Errorf("decode %s: %w", e.Key, err)
				}
				e.CapturedAt = head.CapturedAt
				return nil
			})
			if err != nil {
				return err
			}
			entries = append(entries, e)
		}
		return nil
	})
	return entries, err
}

func put[T any](c *Cache, key []byte, v T) error {
	data, err := json.Marshal(entry[T]{CapturedAt: time.Now().UTC(), Value: v})
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	return c.db.Update(func(txn *badger.Txn) error {
		return txn.SetEntry(badger.NewEntry(key, data).WithTTL(c.maxAge))
	})
}

func get[T any](c *Cache, key []byte) (T, time.Time, error) {
	var e entry[T]
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &e)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return e.Value, time.Time{}, ErrMiss
	}
	if err != nil {
		return e.Value, time.Time{}, fmt.Errorf("read snapshot: %w", err)
	}
	return e.Value, e.CapturedAt, nil
}
