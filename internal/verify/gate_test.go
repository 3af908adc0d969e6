package verify

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"golang.org/x/crypto/blake2b"

	"bmbc/internal/cir"
	"bmbc/internal/prop"
)

// countingClient is a SolverClient test double that always verifies and
// counts how many times Check was actually called, so cache hits can be
// distinguished from cache misses without a real solver.
type countingClient struct {
	calls int
}

func (c *countingClient) Available(ctx context.Context) bool { return true }

func (c *countingClient) Check(ctx context.Context, fn string, obligations []prop.Proposition) (Outcome, error) {
	c.calls++
	return Outcome{Kind: Verified, Reason: "ok"}, nil
}

// memCache is an in-memory Cache test double mirroring cache.Cache's
// Lookup/Store contract without importing internal/cache (which would
// cycle back into this package).
type memCache struct {
	entries map[string][blake2b.Size256]byte
	outcome map[string]Outcome
	hits    int
	misses  int
}

func newMemCache() *memCache {
	return &memCache{
		entries: map[string][blake2b.Size256]byte{},
		outcome: map[string]Outcome{},
	}
}

func (c *memCache) Lookup(function string, hash [blake2b.Size256]byte) (Outcome, bool) {
	if h, ok := c.entries[function]; ok && h == hash {
		c.hits++
		return c.outcome[function], true
	}
	c.misses++
	return Outcome{}, false
}

func (c *memCache) Store(function string, hash [blake2b.Size256]byte, outcome Outcome) {
	c.entries[function] = hash
	c.outcome[function] = outcome
}

func sampleProgram() *cir.Program {
	return &cir.Program{
		Functions: []*cir.Function{
			{
				Name:           "f",
				Preconditions:  []prop.Proposition{prop.True{}},
				Postconditions: []prop.Proposition{prop.Compare{Lhs: "result", Op: prop.OpEq, Rhs: "x"}},
			},
		},
	}
}

func TestVerifyProgramMissesThenHitsCache(t *testing.T) {
	client := &countingClient{}
	cache := newMemCache()
	prog := sampleProgram()

	rep, err := VerifyProgram(context.Background(), prog, ModeCheck, client, cache, 0, nil)
	require.NoError(t, err)
	assert.True(t, rep.VerifiedSet()["f"])
	assert.Equal(t, 1, client.calls)
	assert.Equal(t, 0, cache.hits)
	assert.Equal(t, 1, cache.misses)

	rep, err = VerifyProgram(context.Background(), prog, ModeCheck, client, cache, 0, nil)
	require.NoError(t, err)
	assert.True(t, rep.VerifiedSet()["f"])
	assert.Equal(t, 1, client.calls, "second run should be served from the cache, not the solver")
	assert.Equal(t, 1, cache.hits)
}

func TestVerifyProgramWorksWithNilCache(t *testing.T) {
	client := &countingClient{}
	prog := sampleProgram()

	rep, err := VerifyProgram(context.Background(), prog, ModeCheck, client, nil, 0, nil)
	require.NoError(t, err)
	assert.True(t, rep.VerifiedSet()["f"])
	assert.Equal(t, 1, client.calls)
}
