// Package translate caches remote translations and falls back to a local
// glossary when the remote service is unavailable or over budget.
package translate

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/text/unicode/norm"

	"github.com/lysyi3m/dino-relay/app/budget"
	"github.com/lysyi3m/dino-relay/app/state"
)

const (
	cacheVersion      = 1
	DefaultMaxAge     = 30 * 24 * time.Hour
	DefaultFlushEvery = 10
	DefaultKeyRunes   = 200
)

// Outcomes reported to the observer.
const (
	OutcomeHit      = "hit"
	OutcomeRemote   = "remote"
	OutcomeFallback = "fallback"
)

type Translation struct {
	Text string
	Cost float64
}

type TranslateFunc func(ctx context.Context, text string) (Translation, error)

type Entry struct {
	Result    string    `json:"result"`
	Timestamp time.Time `json:"timestamp"`
}

type cacheFile struct {
	Version int              `json:"version"`
	Entries map[string]Entry `json:"entries"`
}

type CacheConfig struct {
	Path       string
	MaxAge     time.Duration
	FlushEvery int
	KeyRunes   int
	// Observe, when set, is called with the outcome of every lookup.
	Observe func(outcome string)
}

type Cache struct {
	mu       sync.Mutex
	cfg      CacheConfig
	entries  map[string]Entry
	unsaved  int
	budget   *budget.Counter
	glossary *Glossary
	now      func() time.Time
}

func NewCache(cfg CacheConfig, counter *budget.Counter, glossary *Glossary) *Cache {
	if cfg.MaxAge <= 0 {
		cfg.MaxAge = DefaultMaxAge
	}
	if cfg.FlushEvery <= 0 {
		cfg.FlushEvery = DefaultFlushEvery
	}
	if cfg.KeyRunes <= 0 {
		cfg.KeyRunes = DefaultKeyRunes
	}

	c := &Cache{
		cfg:      cfg,
		entries:  make(map[string]Entry),
		budget:   counter,
		glossary: glossary,
		now:      time.Now,
	}
	c.load()
	return c
}

func (c *Cache) load() {
	if c.cfg.Path == "" {
		return
	}

	var file cacheFile
	found, err := state.ReadJSON(c.cfg.Path, &file)
	if err != nil {
		slog.Warn("Translation cache unreadable, starting empty", "path", c.cfg.Path, "error", err)
		return
	}
	if !found {
		return
	}
	if file.Version > cacheVersion {
		slog.Warn("Translation cache has unsupported version, starting empty", "version", file.Version)
		return
	}

	now := c.now()
	expired := 0
	for key, entry := range file.Entries {
		if now.Sub(entry.Timestamp) >= c.cfg.MaxAge {
			expired++
			continue
		}
		c.entries[key] = entry
	}

	slog.Info("Translation cache loaded", "entries", len(c.entries), "expired", expired)
}

// GetOrTranslate returns a cached translation of text, or translates it with
// fn. It never fails: without a usable remote result it returns the glossary
// fallback.
func (c *Cache) GetOrTranslate(ctx context.Context, text, kind string, fn TranslateFunc) string {
	text = normalize(text)
	if text == "" {
		return ""
	}

	key := c.key(text, kind)

	c.mu.Lock()
	entry, ok := c.entries[key]
	if ok && c.now().Sub(entry.Timestamp) < c.cfg.MaxAge {
		c.mu.Unlock()
		c.observe(OutcomeHit)
		return entry.Result
	}
	c.mu.Unlock()

	if fn == nil {
		return c.fallback(text)
	}

	if c.budget != nil && !c.budget.Allow() {
		slog.Warn("Translation budget exhausted, using glossary fallback", "kind", kind)
		return c.fallback(text)
	}

	translation, err := fn(ctx, text)
	if c.budget != nil && (err == nil || translation.Cost > 0) {
		c.budget.Record(translation.Cost)
	}
	if err != nil {
		slog.Warn("Remote translation failed, using glossary fallback", "kind", kind, "error", err)
		return c.fallback(text)
	}

	c.store(key, translation.Text)
	c.observe(OutcomeRemote)

	return translation.Text
}

func (c *Cache) fallback(text string) string {
	c.observe(OutcomeFallback)
	return c.glossary.Apply(text)
}

func (c *Cache) observe(outcome string) {
	if c.cfg.Observe != nil {
		c.cfg.Observe(outcome)
	}
}

func (c *Cache) store(key, result string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = Entry{Result: result, Timestamp: c.now()}
	c.unsaved++

	if c.unsaved >= c.cfg.FlushEvery {
		if err := c.flushLocked(); err != nil {
			slog.Error("Failed to flush translation cache", "error", err)
		}
	}
}

func (c *Cache) key(text, kind string) string {
	hash := sha256.Sum256([]byte(kind + ":" + truncateRunes(text, c.cfg.KeyRunes)))
	return hex.EncodeToString(hash[:])
}

// Flush writes the cache to disk when there are unsaved entries.
func (c *Cache) Flush() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.flushLocked()
}

func (c *Cache) flushLocked() error {
	if c.cfg.Path == "" || c.unsaved == 0 {
		return nil
	}

	if err := state.WriteJSON(c.cfg.Path, cacheFile{Version: cacheVersion, Entries: c.entries}); err != nil {
		return err
	}
	c.unsaved = 0
	return nil
}

func (c *Cache) Close() error {
	return c.Flush()
}

func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// normalize applies NFKC and collapses runs of whitespace.
func normalize(text string) string {
	return strings.Join(strings.Fields(norm.NFKC.String(text)), " ")
}
