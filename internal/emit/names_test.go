package emit

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNameTableUniqueFirstUse(t *testing.T) {
	nt := NewNameTable()
	assert.Equal(t, "x", nt.Unique("x"))
}

func TestNameTableUniqueSuffixesRepeats(t *testing.T) {
	nt := NewNameTable()
	assert.Equal(t, "x", nt.Unique("x"))
	assert.Equal(t, "x_1", nt.Unique("x"))
	assert.Equal(t, "x_2", nt.Unique("x"))
}

func TestNameTableScopesByBase(t *testing.T) {
	nt := NewNameTable()
	assert.Equal(t, "a", nt.Unique("a"))
	assert.Equal(t, "b", nt.Unique("b"))
	assert.Equal(t, "a_1", nt.Unique("a"))
}
