// Package cache implements the persistent proof cache of spec.md §6:
// binary, keyed per input path, storing (function_name, source_hash,
// outcome) triples plus a hit/miss counter. A load error is non-fatal
// and yields a fresh empty cache (spec.md §4.4.8).
package cache

import (
	"bytes"
	"encoding/gob"
	"os"

	deadlock "github.com/sasha-s/go-deadlock"
	"golang.org/x/crypto/blake2b"

	"bmbc/internal/verify"
)

// Entry is one cached verification outcome for a single function.
type Entry struct {
	Function   string
	SourceHash [blake2b.Size256]byte
	Outcome    verify.Outcome
}

// Cache is the in-memory, gob-serializable proof cache for one input
// file. Its private binary format is the reason this is built on the
// standard library's encoding/gob rather than a pack library: no
// example repo in the corpus carries a serialization library suited to
// a process-private cache file (the wire-facing libraries in the
// corpus — JSON-RPC, websocket — are for messages crossing a process
// boundary, not this).
type Cache struct {
	Entries map[string]Entry // keyed by function name

	// mu guards Entries/hits/misses so that Lookup/Store are safe to call
	// concurrently; the verification gate itself calls them sequentially,
	// one function at a time. go-deadlock stands in for
	// sync.Mutex so a lock-ordering mistake here surfaces as a report
	// instead of a silent hang. Plain Mutex rather than RWMutex: every
	// Lookup also mutates the hit/miss counters, so there is no
	// read-only path to split off. Unexported, so it never enters the
	// gob stream.
	mu deadlock.Mutex

	hits   int
	misses int
}

// New returns an empty cache.
func New() *Cache {
	return &Cache{Entries: make(map[string]Entry)}
}

// Load reads a cache file. Any error (missing file, corrupt gob stream)
// is swallowed and a fresh empty cache is returned instead, per
// spec.md's "Load errors are non-fatal and trigger a fresh empty cache."
func Load(path string) *Cache {
	data, err := os.ReadFile(path)
	if err != nil {
		return New()
	}
	var c Cache
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&c); err != nil {
		return New()
	}
	if c.Entries == nil {
		c.Entries = make(map[string]Entry)
	}
	return &c
}

// Save writes the cache to path. The caller is responsible for treating
// a non-nil error as a warning, never a build failure (spec.md §4.4.8:
// "Proof-cache write error: warn in verbose mode; never fail the build").
func (c *Cache) Save(path string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(c); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}

// HashSource computes the cache key material for a function's source
// text via blake2b-256.
func HashSource(src string) [blake2b.Size256]byte {
	return blake2b.Sum256([]byte(src))
}

// Lookup returns the cached outcome for function, if present and its
// source hash still matches. A miss (absent, or hash mismatch because
// the source changed) increments the miss counter; a hit increments the
// hit counter.
func (c *Cache) Lookup(function string, hash [blake2b.Size256]byte) (verify.Outcome, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.Entries[function]
	if !ok || e.SourceHash != hash {
		c.misses++
		return verify.Outcome{}, false
	}
	c.hits++
	return e.Outcome, true
}

// Store records function's verification outcome under its current
// source hash.
func (c *Cache) Store(function string, hash [blake2b.Size256]byte, outcome verify.Outcome) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Entries[function] = Entry{Function: function, SourceHash: hash, Outcome: outcome}
}

// Stats returns the hit/miss counters accumulated since the cache was
// created or loaded.
func (c *Cache) Stats() (hits, misses int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}
