package emit

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"bmbc/internal/mir"
)

func TestResolveTargetDefaultsToX86Linux(t *testing.T) {
	def := ResolveTarget("")
	assert.Equal(t, targets[defaultTargetKey], def)
}

func TestResolveTargetUnknownKeyFallsBack(t *testing.T) {
	assert.Equal(t, targets[defaultTargetKey], ResolveTarget("risc-v-plan9"))
}

func TestResolveTargetKnownKey(t *testing.T) {
	got := ResolveTarget("aarch64-darwin")
	assert.Equal(t, "arm64-apple-macosx11.0.0", got.Triple)
}

func TestEmitPrologueIncludesStructsAndStrings(t *testing.T) {
	prog := &mir.Program{
		Structs:     map[string]*mir.StructT{"Point": {Name: "Point", Fields: []mir.Type{mir.I64{}, mir.I64{}}}},
		StructOrder: []string{"Point"},
	}
	strs := NewStringTable()
	strs.Intern("hi")

	out := EmitPrologue(prog, "", strs)
	assert.Contains(t, out, "%struct.Point = type { i64, i64 }")
	assert.Contains(t, out, "@.str.0")
	assert.Contains(t, out, "@.str.0.bmb")
	assert.Contains(t, out, "target triple")
	assert.Contains(t, out, "declare void @bmb_println_i64(i64)")
}
