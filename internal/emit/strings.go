package emit

import (
	"fmt"
	"sort"

	"bmbc/internal/mir"
)

// StringTable implements spec.md §4.4.6's string interning: a whole
// program scan collects every distinct string content once, assigning it
// a stable `@.str.N` byte-array global and a paired `@.str.N.bmb`
// pre-initialized %BmbString{ptr,i64,i64} header global. A content
// appearing N >= 1 times in the source still gets exactly one pair
// (spec.md §8 testable property 5).
type StringTable struct {
	order   []string
	index   map[string]int
	literal map[string]string // content -> ConstInst's declared Type name, if any
}

// NewStringTable creates an empty table.
func NewStringTable() *StringTable {
	return &StringTable{index: make(map[string]int)}
}

// Intern records content if unseen and returns its interned index.
func (t *StringTable) Intern(content string) int {
	if i, ok := t.index[content]; ok {
		return i
	}
	i := len(t.order)
	t.index[content] = i
	t.order = append(t.order, content)
	return i
}

// Lookup returns the interned index for content, or -1 if never interned.
func (t *StringTable) Lookup(content string) int {
	if i, ok := t.index[content]; ok {
		return i
	}
	return -1
}

// ByteGlobal returns the `@.str.N` symbol for an interned index.
func (t *StringTable) ByteGlobal(i int) string {
	return fmt.Sprintf("@.str.%d", i)
}

// HeaderGlobal returns the `@.str.N.bmb` symbol for an interned index.
func (t *StringTable) HeaderGlobal(i int) string {
	return fmt.Sprintf("@.str.%d.bmb", i)
}

// Len reports how many distinct strings were interned.
func (t *StringTable) Len() int { return len(t.order) }

// Contents returns the interned strings in assignment order (stable,
// insertion-order, for deterministic emission).
func (t *StringTable) Contents() []string {
	out := make([]string, len(t.order))
	copy(out, t.order)
	return out
}

// CollectStrings scans every string-producing position in prog per
// spec.md §4.4.6: ConstInst values, CallInst args, PhiInst incomings
// (string constants only reach a phi through a prior ConstInst, so a
// direct value scan suffices there), BinOp operands (string
// concatenation/comparison), and ReturnTerm values are all Places, not
// literal content — the only position a raw string *content* appears is
// a ConstInst's StringConst value. This walks every function's blocks in
// a stable order and interns each StringConst exactly once.
func CollectStrings(prog *mir.Program) *StringTable {
	t := NewStringTable()
	names := make([]string, len(prog.Functions))
	byName := map[string]*mir.Function{}
	for i, fn := range prog.Functions {
		names[i] = fn.Name
		byName[fn.Name] = fn
	}
	sort.Strings(names)
	for _, name := range names {
		fn := byName[name]
		for _, b := range fn.Blocks {
			for _, inst := range b.Instructions {
				if c, ok := inst.(mir.ConstInst); ok {
					if s, ok := c.Value.(mir.StringConst); ok {
						t.Intern(string(s))
					}
				}
			}
		}
	}
	return t
}

// byteGlobalLines renders the `@.str.N` byte-array global definitions,
// each a private unnamed_addr constant `[K x i8]` holding content's bytes
// plus a trailing NUL (spec.md §4.4.6).
func byteGlobalLines(t *StringTable) []string {
	lines := make([]string, 0, t.Len())
	for i, content := range t.Contents() {
		bytes := []byte(content)
		size := len(bytes) + 1
		lines = append(lines, fmt.Sprintf(
			"%s = private unnamed_addr constant [%d x i8] c%s, align 1",
			t.ByteGlobal(i), size, llvmByteArrayLiteral(bytes),
		))
	}
	return lines
}

// headerGlobalLines renders the `@.str.N.bmb` %BmbString header globals,
// each pre-initialized with {ptr to the byte global, length, capacity}.
func headerGlobalLines(t *StringTable) []string {
	lines := make([]string, 0, t.Len())
	for i, content := range t.Contents() {
		n := len(content)
		lines = append(lines, fmt.Sprintf(
			"%s = private unnamed_addr constant %%BmbString { ptr %s, i64 %d, i64 %d }, align 8",
			t.HeaderGlobal(i), t.ByteGlobal(i), n, n,
		))
	}
	return lines
}

// llvmByteArrayLiteral renders bytes (plus a trailing NUL) as an LLVM
// `c"..."` string constant, escaping every byte outside printable ASCII
// and the quote/backslash characters as \XX.
func llvmByteArrayLiteral(bytes []byte) string {
	out := []byte{'"'}
	emit := func(b byte) {
		switch {
		case b == '"' || b == '\\':
			out = append(out, '\\')
			out = append(out, hexDigit(b>>4), hexDigit(b&0xF))
		case b >= 0x20 && b < 0x7f:
			out = append(out, b)
		default:
			out = append(out, '\\', hexDigit(b>>4), hexDigit(b&0xF))
		}
	}
	for _, b := range bytes {
		emit(b)
	}
	emit(0)
	out = append(out, '"')
	return string(out)
}

func hexDigit(n byte) byte {
	const digits = "0123456789ABCDEF"
	return digits[n&0xF]
}
