// Package session implements the process-lifetime result cache that
// memoizes a completed ingest pass so repeated queries against the same
// file and parameters skip re-reading and re-clustering.
//
// The cache is bounded by recency via an LRU (github.com/hashicorp/golang-
// lru/v2) rather than left to grow without bound for the life of a long
// agent session, and concurrent requests for the same key are collapsed
// into a single ingest via golang.org/x/sync/singleflight.
package session

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/fidde/logexplorer/internal/cluster"
	"github.com/fidde/logexplorer/internal/timestamp"
)

// DefaultCapacity bounds the number of distinct (file, params) results the
// cache retains at once.
const DefaultCapacity = 32

// Key identifies one cached ingest result.
type Key struct {
	FileIdentity FileIdentity
	MaxClusters  int
	Threshold    float64
	Filter       string
}

// FileIdentity is a cheap stand-in for a content hash: the file's path,
// modification time, and size at the moment it was ingested. A file
// rewritten in place with an unchanged size and modtime within the same
// clock tick is the one case this cannot detect; the engine makes no
// guarantees about results across file changes between passes, so this
// is an acceptable gap rather than a bug to chase.
type FileIdentity struct {
	Path    string
	ModTime time.Time
	Size    int64
}

// Stat builds a FileIdentity for the file at path.
func Stat(path string) (FileIdentity, error) {
	info, err := os.Stat(path)
	if err != nil {
		return FileIdentity{}, err
	}
	return FileIdentity{Path: path, ModTime: info.ModTime(), Size: info.Size()}, nil
}

// Entry is the memoized result of one completed ingest pass.
type Entry struct {
	TotalLines    int
	Clusterer     *cluster.Clusterer
	Timestamps    []time.Time
	Recognizer    timestamp.Recognizer
	HasRecognizer bool
	CompletedAt   time.Time
	CorrelationID uuid.UUID
}

// Cache is the session-lifetime memo, explicit and single-owner: it is
// constructed once (in cmd/logexplorer/main.go) and threaded through tool
// handlers rather than kept as a package-scope global.
type Cache struct {
	lru   *lru.Cache[Key, *Entry]
	group singleflight.Group
}

// New creates a Cache bounded at capacity entries.
func New(capacity int) (*Cache, error) {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	c, err := lru.New[Key, *Entry](capacity)
	if err != nil {
		return nil, fmt.Errorf("session: creating LRU cache: %w", err)
	}
	return &Cache{lru: c}, nil
}

// Lookup returns the cached entry for key, if present.
func (c *Cache) Lookup(key Key) (*Entry, bool) {
	return c.lru.Get(key)
}

// GetOrIngest returns the cached entry for key, or runs ingest to produce
// one and caches it on success. Concurrent callers for the same key share
// a single in-flight ingest. forceRefresh bypasses the cache lookup (but
// the result, once the pass completes, still overwrites the cache entry).
// An ingest that returns an error, or whose ctx is cancelled mid-pass,
// never reaches the cache: the cache only ever holds a pass that ran to
// completion.
func (c *Cache) GetOrIngest(ctx context.Context, key Key, forceRefresh bool, ingest func(context.Context) (*Entry, error)) (*Entry, error) {
	if !forceRefresh {
		if entry, ok := c.lru.Get(key); ok {
			return entry, nil
		}
	}

	sfKey := fmt.Sprintf("%+v", key)
	result, err, _ := c.group.Do(sfKey, func() (interface{}, error) {
		correlationID := uuid.New()
		log.Printf("session: ingest %s start correlation_id=%s", key.FileIdentity.Path, correlationID)

		entry, err := ingest(ctx)
		if err != nil {
			log.Printf("session: ingest %s failed correlation_id=%s err=%v", key.FileIdentity.Path, correlationID, err)
			return nil, err
		}
		if ctx.Err() != nil {
			log.Printf("session: ingest %s cancelled correlation_id=%s, discarding partial result", key.FileIdentity.Path, correlationID)
			return nil, ctx.Err()
		}

		entry.CompletedAt = time.Now()
		entry.CorrelationID = correlationID
		c.lru.Add(key, entry)
		log.Printf("session: ingest %s complete correlation_id=%s lines=%d clusters=%d", key.FileIdentity.Path, correlationID, entry.TotalLines, entry.Clusterer.Len())
		return entry, nil
	})
	if err != nil {
		return nil, err
	}

	return result.(*Entry), nil
}

// Len reports the number of entries currently cached.
func (c *Cache) Len() int { return c.lru.Len() }

// KeyedEntry pairs a cached entry with the key it was stored under, for
// callers that need to recover which parameters produced it.
type KeyedEntry struct {
	Key   Key
	Entry *Entry
}

// EntriesForFile returns every cached entry whose key's FileIdentity
// matches ident, in no particular order. Used by the drill-down and
// timeline operations to locate the pass that produced a given cluster id
// without the caller having to remember which (max_clusters, threshold,
// filter) tuple it was ingested under.
func (c *Cache) EntriesForFile(ident FileIdentity) []KeyedEntry {
	var matches []KeyedEntry
	for _, key := range c.lru.Keys() {
		if key.FileIdentity != ident {
			continue
		}
		if entry, ok := c.lru.Peek(key); ok {
			matches = append(matches, KeyedEntry{Key: key, Entry: entry})
		}
	}
	return matches
}
