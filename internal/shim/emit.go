package shim

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/mystor/cppbind/internal/block"
	"github.com/mystor/cppbind/internal/fingerprint"
	"github.com/mystor/cppbind/internal/layout"
)

// Entry pairs one parsed invocation with its assigned fingerprint.
// Entries must be in scan order; the emitter never reorders them.
type Entry struct {
	Parsed      *block.Parsed
	Fingerprint fingerprint.Fingerprint
}

// Plan assigns fingerprints to parsed invocations in scan order.
func Plan(parsed []*block.Parsed) []Entry {
	entries := make([]Entry, len(parsed))
	assigner := fingerprint.NewAssigner()
	for i, p := range parsed {
		entries[i] = Entry{Parsed: p, Fingerprint: assigner.Assign(p.Inv).Fingerprint}
	}
	return entries
}

// Unit is the ordered collection of emitted native top-level items.
type Unit struct {
	items []string
}

// Bytes renders the translation unit.
func (u *Unit) Bytes() []byte {
	return []byte(strings.Join(u.items, "\n"))
}

// FileName is the well-known name of the generated translation unit.
const FileName = "cppbind_generated.cpp"

const preamble = `// Generated by cppbind. Do not edit.
#include <cstdint>
#include <new>
#include <type_traits>
`

// Emit assembles the translation unit for all entries against the given
// layout table.
func Emit(entries []Entry, tbl *layout.Table) *Unit {
	u := &Unit{}
	u.items = append(u.items, preamble)

	u.emitIncludes(entries)
	u.emitRaws(entries)
	u.emitAggregates(entries, tbl)
	u.emitFunctions(entries, tbl)

	return u
}

func (u *Unit) emitIncludes(entries []Entry) {
	type incKey struct {
		angle bool
		path  string
	}
	seen := make(map[incKey]bool)
	for _, e := range entries {
		for _, item := range e.Parsed.Items {
			inc, ok := item.(block.Include)
			if !ok {
				continue
			}
			key := incKey{angle: inc.Angle, path: inc.Path}
			if seen[key] {
				continue
			}
			seen[key] = true
			if inc.Angle {
				u.items = append(u.items, fmt.Sprintf("#include <%s>", inc.Path))
			} else {
				u.items = append(u.items, fmt.Sprintf("#include %q", inc.Path))
			}
		}
	}
}

func (u *Unit) emitRaws(entries []Entry) {
	for _, e := range entries {
		for _, item := range e.Parsed.Items {
			raw, ok := item.(block.Raw)
			if !ok {
				continue
			}
			u.items = append(u.items, fmt.Sprintf("%s\n%s",
				lineDirective(e.Parsed.Inv.File, raw.Line), raw.Text))
		}
	}
}

func (u *Unit) emitAggregates(entries []Entry, tbl *layout.Table) {
	for _, e := range entries {
		for _, item := range e.Parsed.Items {
			switch agg := item.(type) {
			case block.Struct:
				u.emitStruct(agg, tbl)
			case block.Enum:
				u.emitEnum(agg, tbl)
			}
		}
	}
}

func (u *Unit) emitStruct(st block.Struct, tbl *layout.Table) {
	var b strings.Builder
	fmt.Fprintf(&b, "struct %s {\n", st.NativeType)
	for _, f := range st.Fields {
		fmt.Fprintf(&b, "    %s %s;\n", f.NativeType, f.Name)
	}
	b.WriteString("};")
	u.items = append(u.items, b.String())

	for _, f := range st.Fields {
		u.emitAssert(tbl, f.HostType, f.NativeType,
			fmt.Sprintf("field `%s.%s`", st.Name, f.Name))
	}
	u.emitAssert(tbl, st.Name, st.NativeType, fmt.Sprintf("struct `%s`", st.Name))
}

func (u *Unit) emitEnum(en block.Enum, tbl *layout.Table) {
	var b strings.Builder
	switch en.Discipline {
	case block.DisciplineScoped:
		fmt.Fprintf(&b, "enum class %s {\n", en.NativeType)
	default:
		fmt.Fprintf(&b, "enum %s {\n", en.NativeType)
	}
	for _, v := range en.Variants {
		name := v.NativeName
		if en.Discipline == block.DisciplinePrefixed {
			name = en.NativeType + "_" + name
		}
		// Ordinals are always spelled out: discipline changes names only.
		fmt.Fprintf(&b, "    %s = %d,\n", name, v.Ordinal)
	}
	b.WriteString("};")
	u.items = append(u.items, b.String())

	u.emitAssert(tbl, en.Name, en.NativeType, fmt.Sprintf("enum `%s`", en.Name))
}

func (u *Unit) emitFunctions(entries []Entry, tbl *layout.Table) {
	for _, e := range entries {
		for _, item := range e.Parsed.Items {
			switch it := item.(type) {
			case block.Closure:
				u.emitClosure(e, it, tbl)
			case block.Class:
				u.emitClass(e, it, tbl)
			}
		}
	}
}

func (u *Unit) emitClosure(e Entry, cl block.Closure, tbl *layout.Table) {
	for _, c := range cl.Captures {
		u.emitAssert(tbl, c.HostType, c.NativeType, fmt.Sprintf("capture `%s`", c.Name))
	}

	ret := "void"
	if cl.Ret != nil {
		ret = cl.Ret.NativeType
		u.emitAssert(tbl, cl.Ret.HostType, cl.Ret.NativeType, "return type")
	}

	params := make([]string, len(cl.Captures))
	for i, c := range cl.Captures {
		if c.Mut {
			params[i] = fmt.Sprintf("%s & %s", c.NativeType, c.Name)
		} else {
			params[i] = fmt.Sprintf("%s const & %s", c.NativeType, c.Name)
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "extern \"C\" %s %s(%s) {\n", ret, e.Fingerprint.ClosureSymbol(), strings.Join(params, ", "))
	fmt.Fprintf(&b, "%s\n", lineDirective(e.Parsed.Inv.File, cl.BodyLine))
	b.WriteString(cl.Body)
	b.WriteString("\n}")
	u.items = append(u.items, b.String())
}

func (u *Unit) emitClass(e Entry, cls block.Class, tbl *layout.Table) {
	ty := cls.NativeType
	fp := e.Fingerprint

	u.emitAssert(tbl, cls.Name, ty, fmt.Sprintf("class `%s`", cls.Name))

	if cls.Caps.Destructible {
		u.items = append(u.items, fmt.Sprintf(
			"extern \"C\" void %s(%s *self) {\n    self->~%s();\n}",
			fp.DestructorSymbol(), ty, destructorName(ty)))
	}
	if cls.Caps.Copyable {
		u.items = append(u.items, fmt.Sprintf(
			"static_assert(std::is_copy_constructible<%s>::value,\n"+
				"              \"cppbind: `%s` declared copyable but %s is not copy-constructible\");",
			ty, cls.Name, ty))
		u.items = append(u.items, fmt.Sprintf(
			"extern \"C\" void %s(%s const *src, %s *dst) {\n    new (dst) %s(*src);\n}",
			fp.CopySymbol(), ty, ty, ty))
	}
	if cls.Caps.Comparable {
		u.items = append(u.items, fmt.Sprintf(
			"extern \"C\" bool %s(%s const *a, %s const *b) {\n    return *a == *b;\n}",
			fp.EqSymbol(), ty, ty))
	}
	if cls.Caps.DefaultConstructible {
		u.items = append(u.items, fmt.Sprintf(
			"extern \"C\" void %s(%s *dst) {\n    new (dst) %s();\n}",
			fp.DefaultSymbol(), ty, ty))
	}
}

// emitAssert emits the size/alignment static assertion for one
// (host, native) type pair, when the host layout is known. An unknown host
// spelling simply has no host-side layout claim to check.
func (u *Unit) emitAssert(tbl *layout.Table, hostType, nativeType, what string) {
	if hostType == "" {
		return
	}
	l, ok := tbl.Lookup(hostType)
	if !ok {
		return
	}
	u.items = append(u.items, fmt.Sprintf(
		"static_assert(sizeof(%s) == %d && alignof(%s) == %d,\n"+
			"              \"cppbind: %s layout mismatch: host `%s` is %d/%d bytes\");",
		nativeType, l.Size, nativeType, l.Align, what, hostType, l.Size, l.Align))
}

// destructorName strips namespace qualifiers: `ns::Widget` destructs via
// `self->~Widget()`.
func destructorName(nativeType string) string {
	if i := strings.LastIndex(nativeType, "::"); i >= 0 {
		return nativeType[i+2:]
	}
	return nativeType
}

func lineDirective(file string, line int) string {
	if line < 1 {
		line = 1
	}
	return fmt.Sprintf("#line %d %q", line, filepath.ToSlash(file))
}
