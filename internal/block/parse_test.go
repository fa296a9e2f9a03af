package block

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mystor/cppbind/internal/scan"
)

func inv(kind scan.Kind, raw string) scan.Invocation {
	return scan.Invocation{File: "src/lib.rs", Kind: kind, Line: 1, Raw: raw}
}

func TestParseClosure(t *testing.T) {
	p, err := Parse(inv(scan.MacroClosure, `(x as "int") -> i32 { return x + 1; }`))
	require.NoError(t, err)
	require.Len(t, p.Items, 1)

	cl, ok := p.Items[0].(Closure)
	require.True(t, ok)
	require.Len(t, cl.Captures, 1)
	assert.Equal(t, "x", cl.Captures[0].Name)
	assert.Equal(t, "int", cl.Captures[0].NativeType)
	assert.Empty(t, cl.Captures[0].HostType)
	assert.False(t, cl.Captures[0].Mut)

	require.NotNil(t, cl.Ret)
	assert.Equal(t, "i32", cl.Ret.HostType)
	// No annotation: the host spelling doubles as the native spelling.
	assert.Equal(t, "i32", cl.Ret.NativeType)
	assert.Equal(t, " return x + 1; ", cl.Body)
}

func TestParseClosureBracketListAndMut(t *testing.T) {
	raw := `[mut buf: Vec<u8> as "std::vector<uint8_t>", n: usize as "size_t"] -> () as "void" {
    buf.push_back(n);
}`
	p, err := Parse(inv(scan.MacroClosure, raw))
	require.NoError(t, err)

	cl := p.Items[0].(Closure)
	require.Len(t, cl.Captures, 2)

	assert.True(t, cl.Captures[0].Mut)
	assert.Equal(t, "buf", cl.Captures[0].Name)
	assert.Equal(t, "Vec<u8>", cl.Captures[0].HostType)
	assert.Equal(t, "std::vector<uint8_t>", cl.Captures[0].NativeType)

	assert.False(t, cl.Captures[1].Mut)
	assert.Equal(t, "usize", cl.Captures[1].HostType)
	assert.Equal(t, "size_t", cl.Captures[1].NativeType)

	require.NotNil(t, cl.Ret)
	assert.Equal(t, "()", cl.Ret.HostType)
	assert.Equal(t, "void", cl.Ret.NativeType)
}

func TestParseClosureVoidAndUnsafe(t *testing.T) {
	p, err := Parse(inv(scan.MacroClosure, `unsafe [] { abort(); }`))
	require.NoError(t, err)

	cl := p.Items[0].(Closure)
	assert.Empty(t, cl.Captures)
	assert.Nil(t, cl.Ret, "absence of -> means no return value")
}

func TestParseSelfCapture(t *testing.T) {
	p, err := Parse(inv(scan.MacroClosure, `(self as "ns::Widget const*") { self->poke(); }`))
	require.NoError(t, err)

	cl := p.Items[0].(Closure)
	require.Len(t, cl.Captures, 1)
	assert.Equal(t, "self", cl.Captures[0].Name)
}

func TestParseItemSequence(t *testing.T) {
	raw := `include <vector>
include "local.h"
raw {
static int counter = 0;
}
(x as "int") -> i32 { return x; }`
	p, err := Parse(inv(scan.MacroClosure, raw))
	require.NoError(t, err)
	require.Len(t, p.Items, 4)

	assert.Equal(t, Include{Angle: true, Path: "vector"}, p.Items[0])
	assert.Equal(t, Include{Angle: false, Path: "local.h"}, p.Items[1])

	rawItem := p.Items[2].(Raw)
	assert.Equal(t, "\nstatic int counter = 0;\n", rawItem.Text)
	assert.Equal(t, 3, rawItem.Line)

	_, ok := p.Items[3].(Closure)
	assert.True(t, ok)
}

func TestParseBodyLineIsHostRelative(t *testing.T) {
	in := inv(scan.MacroClosure, "() -> i32 {\n    return 0;\n}")
	in.Line = 40
	p, err := Parse(in)
	require.NoError(t, err)

	cl := p.Items[0].(Closure)
	assert.Equal(t, 40, cl.BodyLine)
}

func TestParseClass(t *testing.T) {
	p, err := Parse(inv(scan.MacroClass, `pub struct Widget as "ns::Widget" : destructible, copyable;`))
	require.NoError(t, err)

	cls := p.Items[0].(Class)
	assert.Equal(t, "Widget", cls.Name)
	assert.Equal(t, "ns::Widget", cls.NativeType)
	assert.True(t, cls.Public)
	assert.True(t, cls.Caps.Destructible)
	assert.True(t, cls.Caps.Copyable)
	assert.False(t, cls.Caps.Comparable)
	assert.False(t, cls.Caps.DefaultConstructible)
}

func TestParseClassNoCapabilities(t *testing.T) {
	p, err := Parse(inv(scan.MacroClass, `struct Token as "lex::Token"`))
	require.NoError(t, err)

	cls := p.Items[0].(Class)
	assert.False(t, cls.Public)
	assert.Equal(t, CapabilitySet{}, cls.Caps)
}

func TestParseMirrorStruct(t *testing.T) {
	raw := `struct Point as "geom::point" {
    x: i32 as "int32_t",
    y: i32 as "int32_t",
}`
	p, err := Parse(inv(scan.MacroMirror, raw))
	require.NoError(t, err)

	st := p.Items[0].(Struct)
	assert.Equal(t, "Point", st.Name)
	assert.Equal(t, "geom::point", st.NativeType)
	require.Len(t, st.Fields, 2)
	assert.Equal(t, Field{Name: "x", HostType: "i32", NativeType: "int32_t"}, st.Fields[0])
}

func TestParseMirrorEnum(t *testing.T) {
	raw := `enum Color as "ui::Color" : scoped {
    Red,
    Green as "Verde",
    Blue,
}`
	p, err := Parse(inv(scan.MacroMirror, raw))
	require.NoError(t, err)

	en := p.Items[0].(Enum)
	assert.Equal(t, "Color", en.Name)
	assert.Equal(t, "ui::Color", en.NativeType)
	assert.Equal(t, DisciplineScoped, en.Discipline)
	require.Len(t, en.Variants, 3)
	assert.Equal(t, Variant{Name: "Red", NativeName: "Red", Ordinal: 0}, en.Variants[0])
	assert.Equal(t, Variant{Name: "Green", NativeName: "Verde", Ordinal: 1}, en.Variants[1])
	assert.Equal(t, 2, en.Variants[2].Ordinal)
}

func TestParseEnumDefaultDiscipline(t *testing.T) {
	p, err := Parse(inv(scan.MacroMirror, `enum Mode { A, B }`))
	require.NoError(t, err)

	en := p.Items[0].(Enum)
	assert.Equal(t, DisciplineFlat, en.Discipline)
	assert.Equal(t, "Mode", en.NativeType)
}

func TestParseGrammarErrors(t *testing.T) {
	cases := []struct {
		name string
		kind scan.Kind
		raw  string
		code string
	}{
		{"unknown item", scan.MacroClosure, `frobnicate { }`, ErrUnknownItem},
		{"unclosed body", scan.MacroClosure, `() -> i32 { return 0;`, ErrUnexpectedToken},
		{"duplicate capture", scan.MacroClosure, `(x as "int", x as "int") { }`, ErrDuplicateCapture},
		{"capture missing annotation", scan.MacroClosure, `(x) { }`, ErrMissingAnnotation},
		{"return annotation not a string", scan.MacroClosure, `() -> i32 as int { }`, ErrMissingAnnotation},
		{"class missing annotation", scan.MacroClass, `struct Widget`, ErrMissingAnnotation},
		{"unknown capability", scan.MacroClass, `struct W as "W" : indestructible`, ErrUnknownCapability},
		{"unknown discipline", scan.MacroMirror, `enum E : shouty { A }`, ErrUnknownDiscipline},
		{"empty struct", scan.MacroMirror, `struct S { }`, ErrEmptyAggregate},
		{"empty enum", scan.MacroMirror, `enum E { }`, ErrEmptyAggregate},
		{"duplicate field", scan.MacroMirror, `struct S { a: i32 as "int", a: i32 as "int" }`, ErrDuplicateField},
		{"duplicate variant", scan.MacroMirror, `enum E { A, A }`, ErrDuplicateVariant},
		{"mirror wrong keyword", scan.MacroMirror, `union U { }`, ErrUnexpectedToken},
		{"trailing garbage", scan.MacroClass, `struct W as "W" ; extra`, ErrUnexpectedToken},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse(inv(tc.kind, tc.raw))
			require.Error(t, err)

			var ge *GrammarError
			require.ErrorAs(t, err, &ge)
			assert.Equal(t, tc.code, ge.Code)
			assert.Equal(t, "src/lib.rs", ge.File)
			assert.Positive(t, ge.Line)
		})
	}
}

func TestParseErrorLineAttribution(t *testing.T) {
	in := inv(scan.MacroMirror, "enum E {\n    A,\n    A,\n}")
	in.Line = 12
	_, err := Parse(in)
	require.Error(t, err)

	var ge *GrammarError
	require.ErrorAs(t, err, &ge)
	assert.Equal(t, ErrDuplicateVariant, ge.Code)
	assert.Equal(t, 14, ge.Line, "duplicate is on the third line of an invocation starting at 12")
}

func TestParseAllFailsFast(t *testing.T) {
	invs := []scan.Invocation{
		inv(scan.MacroClosure, `include <vector>`),
		inv(scan.MacroClosure, `frobnicate { }`),
	}
	_, err := ParseAll(invs)
	require.Error(t, err)
	assert.True(t, IsGrammarError(err))
}
