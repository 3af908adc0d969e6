package cache

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"

	"bmbc/internal/verify"
)

func TestLookupMissOnEmptyCache(t *testing.T) {
	c := New()
	_, ok := c.Lookup("f", HashSource("fn f() {}"))
	assert.False(t, ok)
	hits, misses := c.Stats()
	assert.Equal(t, 0, hits)
	assert.Equal(t, 1, misses)
}

func TestStoreThenLookupHits(t *testing.T) {
	c := New()
	h := HashSource("fn f() {}")
	c.Store("f", h, verify.Outcome{Kind: verify.Verified})

	got, ok := c.Lookup("f", h)
	assert.True(t, ok)
	assert.Equal(t, verify.Verified, got.Kind)
}

func TestLookupMissesOnSourceHashChange(t *testing.T) {
	c := New()
	c.Store("f", HashSource("fn f() { return 1; }"), verify.Outcome{Kind: verify.Verified})

	_, ok := c.Lookup("f", HashSource("fn f() { return 2; }"))
	assert.False(t, ok, "a changed source hash must not reuse the stale outcome")
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "proofs.cache")

	c := New()
	h := HashSource("fn f() {}")
	c.Store("f", h, verify.Outcome{Kind: verify.Verified, Reason: "ok"})
	assert.NoError(t, c.Save(path))

	loaded := Load(path)
	got, ok := loaded.Lookup("f", h)
	assert.True(t, ok)
	assert.Equal(t, "ok", got.Reason)
}

func TestLoadMissingFileReturnsFreshCache(t *testing.T) {
	loaded := Load(filepath.Join(t.TempDir(), "absent.cache"))
	assert.NotNil(t, loaded.Entries)
	assert.Empty(t, loaded.Entries)
}

func TestLoadCorruptFileReturnsFreshCache(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "corrupt.cache")
	assert.NoError(t, os.WriteFile(path, []byte("not a gob stream"), 0o644))

	loaded := Load(path)
	assert.NotNil(t, loaded.Entries)
	assert.Empty(t, loaded.Entries)
}
