package scan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mystor/cppbind/internal/token"
	"github.com/mystor/cppbind/internal/walker"
)

func TestFileFindsClosureInvocation(t *testing.T) {
	src := []byte(`
fn next(x: i32) -> i32 {
    unsafe { cpp!((x as "int") -> i32 as "int" { return x + 1; }) }
}
`)
	invs, err := File("lib.rs", src)
	require.NoError(t, err)
	require.Len(t, invs, 1)

	inv := invs[0]
	assert.Equal(t, MacroClosure, inv.Kind)
	assert.Equal(t, 3, inv.Line)
	assert.Equal(t, `(x as "int") -> i32 as "int" { return x + 1; }`, inv.Raw)
	assert.Equal(t, string(src[inv.Lo:inv.Hi]), inv.Raw)
}

func TestFileFindsAllThreeForms(t *testing.T) {
	src := []byte(`
cpp! {{ #include <vector> }}
cpp_class!(pub struct Widget as "Widget" : destructible);
cpp_mirror!(struct Point { x: i32 as "int", y: i32 as "int" });
`)
	invs, err := File("lib.rs", src)
	require.NoError(t, err)
	require.Len(t, invs, 3)
	assert.Equal(t, MacroClosure, invs[0].Kind)
	assert.Equal(t, MacroClass, invs[1].Kind)
	assert.Equal(t, MacroMirror, invs[2].Kind)
}

func TestFileNestedDelimiters(t *testing.T) {
	// Braces inside the body must not close the invocation early.
	src := []byte(`cpp!((v as "std::vector<int>") { if (v.empty()) { v.push_back(0); } })`)
	invs, err := File("lib.rs", src)
	require.NoError(t, err)
	require.Len(t, invs, 1)
	assert.Contains(t, invs[0].Raw, "push_back")
}

func TestFileBraceInsideStringLiteral(t *testing.T) {
	// A stray close-brace inside a C++ string must not unbalance the scan.
	src := []byte(`cpp!((x as "int") { printf("}"); })  fn after() {}`)
	invs, err := File("lib.rs", src)
	require.NoError(t, err)
	require.Len(t, invs, 1)
	assert.Contains(t, invs[0].Raw, `printf`)
}

func TestFileIgnoresCommentedAndQuotedInvocations(t *testing.T) {
	src := []byte(`
// cpp!((x as "int") { return x; })
/* cpp_class!(pub struct Nope as "Nope"); */
let s = "cpp_mirror!(struct No {})";
`)
	invs, err := File("lib.rs", src)
	require.NoError(t, err)
	assert.Empty(t, invs)
}

func TestFileIgnoresUnrelatedMacros(t *testing.T) {
	src := []byte(`println!("cpp is great"); vec![1, 2, 3];`)
	invs, err := File("lib.rs", src)
	require.NoError(t, err)
	assert.Empty(t, invs)
}

func TestFileMultipleInvocationsKeepSourceOrder(t *testing.T) {
	src := []byte(`
cpp!((a as "int") { f(a); })
cpp!((b as "int") { g(b); })
`)
	invs, err := File("lib.rs", src)
	require.NoError(t, err)
	require.Len(t, invs, 2)
	assert.Less(t, invs[0].Lo, invs[1].Lo)
}

func TestFileUnbalancedInvocation(t *testing.T) {
	src := []byte(`cpp!((x as "int") { return x;`)
	_, err := File("lib.rs", src)
	require.Error(t, err)

	var se *token.ScanError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, token.ErrCodeUnbalancedDelimiter, se.Code)
}

func TestFilesConcatenatesInWalkOrder(t *testing.T) {
	files := []walker.SourceFile{
		{Path: "lib.rs", Src: []byte(`cpp!((a as "int") { f(a); })`)},
		{Path: "inner.rs", Src: []byte(`cpp!((b as "int") { g(b); })`)},
	}
	invs, err := Files(files)
	require.NoError(t, err)
	require.Len(t, invs, 2)
	assert.Equal(t, "lib.rs", invs[0].File)
	assert.Equal(t, "inner.rs", invs[1].File)
}
