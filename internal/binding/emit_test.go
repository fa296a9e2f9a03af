package binding

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mystor/cppbind/internal/block"
	"github.com/mystor/cppbind/internal/scan"
	"github.com/mystor/cppbind/internal/shim"
	"github.com/mystor/cppbind/internal/store"
)

func newStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "cppbind.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	require.NoError(t, st.Reset(context.Background()))
	return st
}

func planOne(t *testing.T, kind scan.Kind, raw string) []Entry {
	t.Helper()
	parsed, err := block.ParseAll([]scan.Invocation{
		{File: "src/lib.rs", Kind: kind, Line: 1, Raw: raw},
	})
	require.NoError(t, err)
	return Plan(parsed)
}

// recordFor writes the build-time record an entry would have produced.
func recordFor(t *testing.T, st *store.Store, e Entry, size, align, flags int) {
	t.Helper()
	err := st.WriteRecord(context.Background(), store.Record{
		Fingerprint: string(e.Fingerprint),
		Kind:        string(e.Parsed.Inv.Kind),
		Scope:       e.Parsed.Inv.File,
		Line:        e.Parsed.Inv.Line,
		Size:        size,
		Align:       align,
		Flags:       flags,
	})
	require.NoError(t, err)
}

func TestPlanMatchesBuildPass(t *testing.T) {
	invs := []scan.Invocation{
		{File: "src/lib.rs", Kind: scan.MacroClosure, Line: 3, Raw: `(x as "int") -> i32 { return x; }`},
		{File: "src/lib.rs", Kind: scan.MacroClosure, Line: 9, Raw: `() { ping(); }`},
		{File: "src/util.rs", Kind: scan.MacroClass, Line: 2, Raw: `struct W as "W" : destructible`},
	}
	parsed, err := block.ParseAll(invs)
	require.NoError(t, err)

	buildSide := shim.Plan(parsed)
	hostSide := Plan(parsed)
	require.Len(t, hostSide, len(buildSide))
	for i := range buildSide {
		assert.Equal(t, buildSide[i].Fingerprint, hostSide[i].Fingerprint,
			"both passes must re-derive identical fingerprints from the same source")
	}
}

func TestEmitClosure(t *testing.T) {
	st := newStore(t)
	entries := planOne(t, scan.MacroClosure,
		`[n: usize as "size_t", mut buf: Vec<u8> as "std::vector<uint8_t>"] -> i32 { return 0; }`)
	recordFor(t, st, entries[0], 0, 0, 0)

	out, err := NewEmitter(st).Emit(context.Background(), entries)
	require.NoError(t, err)
	text := string(out)

	sym := entries[0].Fingerprint.ClosureSymbol()
	assert.Contains(t, text, "fn "+sym+"(n: *const u8, buf: *mut u8) -> i32;")
	assert.Contains(t, text, "pub unsafe fn cpp_closure_"+entries[0].Fingerprint.Short())
	assert.Contains(t, text, "n: &usize")
	assert.Contains(t, text, "buf: &mut Vec<u8>")
	assert.Contains(t, text, "n as *const usize as *const u8")
	assert.Contains(t, text, "buf as *mut Vec<u8> as *mut u8")
}

func TestEmitClosureUntypedCapture(t *testing.T) {
	st := newStore(t)
	entries := planOne(t, scan.MacroClosure, `(x as "int") { use_it(x); }`)
	recordFor(t, st, entries[0], 0, 0, 0)

	out, err := NewEmitter(st).Emit(context.Background(), entries)
	require.NoError(t, err)

	// Without a host type the wrapper takes the raw pointer as-is.
	assert.Contains(t, string(out), "x: *const u8")
}

func TestEmitFingerprintMismatch(t *testing.T) {
	st := newStore(t)
	entries := planOne(t, scan.MacroClosure, `() { never_recorded(); }`)

	_, err := NewEmitter(st).Emit(context.Background(), entries)
	require.Error(t, err)
	assert.True(t, IsBindingError(err, ErrFingerprintMismatch))

	var be *BindingError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, "src/lib.rs", be.File)
	assert.Equal(t, string(entries[0].Fingerprint), be.Fingerprint)
	assert.Contains(t, be.Message, "macro expansion")
}

func TestEmitVersionMismatch(t *testing.T) {
	// A store that was never reset carries no version stamp.
	st, err := store.Open(filepath.Join(t.TempDir(), "cppbind.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	entries := planOne(t, scan.MacroClosure, `() { f(); }`)
	_, err = NewEmitter(st).Emit(context.Background(), entries)
	require.Error(t, err)
	assert.True(t, IsBindingError(err, ErrVersionMismatch))
}

func TestEmitClass(t *testing.T) {
	st := newStore(t)
	entries := planOne(t, scan.MacroClass, `pub struct Widget as "ns::Widget" : destructible, copyable`)
	recordFor(t, st, entries[0], 24, 8, store.FlagDestructible|store.FlagCopyable)

	out, err := NewEmitter(st).Emit(context.Background(), entries)
	require.NoError(t, err)
	text := string(out)

	fp := entries[0].Fingerprint
	assert.Contains(t, text, "#[repr(C, align(8))]\npub struct Widget {\n    _data: [u8; 24],\n}")
	assert.Contains(t, text, "impl Drop for Widget")
	assert.Contains(t, text, fp.DestructorSymbol())
	assert.Contains(t, text, "impl Clone for Widget")
	assert.Contains(t, text, fp.CopySymbol())
	assert.NotContains(t, text, "impl PartialEq")
	assert.NotContains(t, text, "impl Default")
}

func TestEmitClassComparableAndDefault(t *testing.T) {
	st := newStore(t)
	entries := planOne(t, scan.MacroClass, `struct Key as "Key" : comparable, default`)
	recordFor(t, st, entries[0], 16, 8, store.FlagComparable|store.FlagDefaultConstructible)

	out, err := NewEmitter(st).Emit(context.Background(), entries)
	require.NoError(t, err)
	text := string(out)

	assert.Contains(t, text, "impl PartialEq for Key")
	assert.Contains(t, text, "impl Default for Key")
	assert.NotContains(t, text, "impl Drop")
	assert.NotContains(t, text, "pub struct Key", "no pub keyword means private wrapper")
}

func TestEmitClassMissingLayout(t *testing.T) {
	st := newStore(t)
	entries := planOne(t, scan.MacroClass, `struct Widget as "ns::Widget" : destructible`)
	recordFor(t, st, entries[0], 0, 0, store.FlagDestructible)

	_, err := NewEmitter(st).Emit(context.Background(), entries)
	require.Error(t, err)
	assert.True(t, IsBindingError(err, ErrMissingLayout))
}

func TestEmitClassCapabilityMismatch(t *testing.T) {
	st := newStore(t)
	entries := planOne(t, scan.MacroClass, `struct Widget as "ns::Widget" : destructible, copyable`)
	// Recorded artifact predates the copyable capability.
	recordFor(t, st, entries[0], 24, 8, store.FlagDestructible)

	_, err := NewEmitter(st).Emit(context.Background(), entries)
	require.Error(t, err)
	assert.True(t, IsBindingError(err, ErrCapabilityMismatch))
}

func TestEmitMirrorStruct(t *testing.T) {
	st := newStore(t)
	entries := planOne(t, scan.MacroMirror,
		`struct Point as "geom::point" { x: i32 as "int32_t", y: i32 as "int32_t" }`)
	recordFor(t, st, entries[0], 0, 0, 0)

	out, err := NewEmitter(st).Emit(context.Background(), entries)
	require.NoError(t, err)
	text := string(out)

	assert.Contains(t, text, "#[repr(C)]")
	assert.Contains(t, text, "pub struct Point {\n    pub x: i32,\n    pub y: i32,\n}")
}

func TestEmitMirrorEnum(t *testing.T) {
	st := newStore(t)
	entries := planOne(t, scan.MacroMirror, `enum Color : scoped { Red, Green, Blue }`)
	recordFor(t, st, entries[0], 0, 0, 0)

	out, err := NewEmitter(st).Emit(context.Background(), entries)
	require.NoError(t, err)
	text := string(out)

	// Ordinals are written out explicitly, matching the native side.
	assert.Contains(t, text, "pub enum Color {\n    Red = 0,\n    Green = 1,\n    Blue = 2,\n}")
}
