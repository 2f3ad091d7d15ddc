package translate

import (
	"sync"
	"time"

	"github.com/subsight/subsight/internal/textnorm"
)

// Key addresses a cached translation by normalized source text and language
// pair. Case is preserved; only whitespace is normalized.
type Key struct {
	Text       string
	SourceLang string
	TargetLang string
}

// NewKey builds a cache key from raw recognized text.
func NewKey(text, sourceLang, targetLang string) Key {
	return Key{
		Text:       textnorm.Normalize(text),
		SourceLang: sourceLang,
		TargetLang: targetLang,
	}
}

// Entry is one cached translation.
type Entry struct {
	Translated string
	CreatedAt  time.Time
	HitCount   int
}

// Cache stores translations for the lifetime of a session. There is no TTL
// and no eviction: subtitle text for a given line is assumed stable across
// replays, so a hit stays valid until an explicit clear or process restart.
type Cache struct {
	mu      sync.Mutex
	entries map[Key]*Entry
}

// NewCache creates an empty cache.
func NewCache() *Cache {
	return &Cache{entries: make(map[Key]*Entry)}
}

// Get returns the cached translation and records the hit.
func (c *Cache) Get(key Key) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return "", false
	}
	e.HitCount++
	return e.Translated, true
}

// Put stores a translation, overwriting any live entry for the key.
func (c *Cache) Put(key Key, translated string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = &Entry{Translated: translated, CreatedAt: time.Now()}
}

// Len returns the number of live entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Clear drops every entry. Only explicit user action calls this.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[Key]*Entry)
}
