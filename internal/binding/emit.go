package binding

import (
	"context"
	"fmt"
	"strings"

	"github.com/mystor/cppbind/internal/block"
	"github.com/mystor/cppbind/internal/fingerprint"
	"github.com/mystor/cppbind/internal/store"
)

// Entry pairs one parsed invocation with its re-derived fingerprint.
type Entry struct {
	Parsed      *block.Parsed
	Fingerprint fingerprint.Fingerprint
}

// Plan re-derives fingerprints for the in-process pass. It deliberately
// mirrors the build-time assignment rather than importing it: the two
// passes converge through the fingerprint function alone, and nothing else.
func Plan(parsed []*block.Parsed) []Entry {
	entries := make([]Entry, len(parsed))
	assigner := fingerprint.NewAssigner()
	for i, p := range parsed {
		entries[i] = Entry{Parsed: p, Fingerprint: assigner.Assign(p.Inv).Fingerprint}
	}
	return entries
}

// FileName is the well-known name of the generated host source file.
const FileName = "cppbind_bindings.rs"

// Emitter produces host-side bindings, checking every invocation against
// the build-time metadata store.
type Emitter struct {
	store *store.Store
}

// NewEmitter wraps an open metadata store.
func NewEmitter(st *store.Store) *Emitter {
	return &Emitter{store: st}
}

const hostPreamble = `// Generated by cppbind. Do not edit.
#![allow(non_snake_case, dead_code)]
`

// Emit renders bindings for all entries. The store's version stamp is
// checked once up front; every entry must then resolve to a record.
func (e *Emitter) Emit(ctx context.Context, entries []Entry) ([]byte, error) {
	if err := e.store.CheckVersion(ctx); err != nil {
		return nil, &BindingError{
			Code:    ErrVersionMismatch,
			Message: err.Error(),
		}
	}

	items := []string{hostPreamble}
	for _, entry := range entries {
		rec, ok, err := e.store.ReadRecord(ctx, string(entry.Fingerprint))
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, missError(entry)
		}

		for _, item := range entry.Parsed.Items {
			switch it := item.(type) {
			case block.Closure:
				items = append(items, emitClosure(entry.Fingerprint, it))
			case block.Class:
				piece, err := emitClass(entry, it, rec)
				if err != nil {
					return nil, err
				}
				items = append(items, piece)
			case block.Struct:
				items = append(items, emitStruct(it))
			case block.Enum:
				items = append(items, emitEnum(it))
			}
			// Include and Raw items shape the shim only; they have no
			// host-side surface.
		}
	}
	return []byte(strings.Join(items, "\n")), nil
}

// missError is the macro-expansion hard failure: an invocation visible to
// the host compiler that the build-time scan never recorded.
func missError(entry Entry) *BindingError {
	return &BindingError{
		Code:        ErrFingerprintMismatch,
		File:        entry.Parsed.Inv.File,
		Line:        entry.Parsed.Inv.Line,
		Fingerprint: string(entry.Fingerprint),
		Message: "invocation not found in build-time metadata; only invocations " +
			"written directly in source are visible to the build-time scan — " +
			"invocations produced by macro expansion cannot be embedded",
	}
}

func emitClosure(fp fingerprint.Fingerprint, cl block.Closure) string {
	externParams := make([]string, len(cl.Captures))
	wrapParams := make([]string, len(cl.Captures))
	args := make([]string, len(cl.Captures))
	for i, c := range cl.Captures {
		if c.Mut {
			externParams[i] = fmt.Sprintf("%s: *mut u8", c.Name)
		} else {
			externParams[i] = fmt.Sprintf("%s: *const u8", c.Name)
		}
		switch {
		case c.HostType == "" && c.Mut:
			wrapParams[i] = fmt.Sprintf("%s: *mut u8", c.Name)
			args[i] = c.Name
		case c.HostType == "":
			wrapParams[i] = fmt.Sprintf("%s: *const u8", c.Name)
			args[i] = c.Name
		case c.Mut:
			wrapParams[i] = fmt.Sprintf("%s: &mut %s", c.Name, c.HostType)
			args[i] = fmt.Sprintf("%s as *mut %s as *mut u8", c.Name, c.HostType)
		default:
			wrapParams[i] = fmt.Sprintf("%s: &%s", c.Name, c.HostType)
			args[i] = fmt.Sprintf("%s as *const %s as *const u8", c.Name, c.HostType)
		}
	}

	externRet := ""
	wrapRet := ""
	if cl.Ret != nil {
		host := cl.Ret.HostType
		externRet = " -> " + host
		wrapRet = " -> " + host
	}

	var b strings.Builder
	fmt.Fprintf(&b, "extern \"C\" {\n    fn %s(%s)%s;\n}\n",
		fp.ClosureSymbol(), strings.Join(externParams, ", "), externRet)
	fmt.Fprintf(&b, "#[inline(always)]\npub unsafe fn cpp_closure_%s(%s)%s {\n",
		fp.Short(), strings.Join(wrapParams, ", "), wrapRet)
	fmt.Fprintf(&b, "    %s(%s)\n}", fp.ClosureSymbol(), strings.Join(args, ", "))
	return b.String()
}

// flagsFor folds a parsed capability set into the store's flag bitset.
func flagsFor(caps block.CapabilitySet) int {
	flags := 0
	if caps.Destructible {
		flags |= store.FlagDestructible
	}
	if caps.Copyable {
		flags |= store.FlagCopyable
	}
	if caps.Comparable {
		flags |= store.FlagComparable
	}
	if caps.DefaultConstructible {
		flags |= store.FlagDefaultConstructible
	}
	return flags
}

func emitClass(entry Entry, cls block.Class, rec store.Record) (string, error) {
	fp := entry.Fingerprint
	if rec.Size <= 0 || rec.Align <= 0 {
		return "", &BindingError{
			Code:        ErrMissingLayout,
			File:        entry.Parsed.Inv.File,
			Line:        entry.Parsed.Inv.Line,
			Fingerprint: string(fp),
			Message: fmt.Sprintf("no size/alignment recorded for `%s`; declare its layout "+
				"in the project manifest", cls.Name),
		}
	}
	if flagsFor(cls.Caps) != rec.Flags {
		return "", &BindingError{
			Code:        ErrCapabilityMismatch,
			File:        entry.Parsed.Inv.File,
			Line:        entry.Parsed.Inv.Line,
			Fingerprint: string(fp),
			Message: fmt.Sprintf("capabilities of `%s` differ from the recorded build; "+
				"the build-time artifact is stale", cls.Name),
		}
	}

	vis := ""
	if cls.Public {
		vis = "pub "
	}

	var b strings.Builder
	fmt.Fprintf(&b, "#[repr(C, align(%d))]\n%sstruct %s {\n    _data: [u8; %d],\n}\n",
		rec.Align, vis, cls.Name, rec.Size)

	if cls.Caps.Destructible {
		fmt.Fprintf(&b, "extern \"C\" {\n    fn %s(this: *mut %s);\n}\n",
			fp.DestructorSymbol(), cls.Name)
		fmt.Fprintf(&b, "impl Drop for %s {\n    fn drop(&mut self) {\n        unsafe { %s(self) }\n    }\n}\n",
			cls.Name, fp.DestructorSymbol())
	}
	if cls.Caps.Copyable {
		fmt.Fprintf(&b, "extern \"C\" {\n    fn %s(src: *const %s, dst: *mut %s);\n}\n",
			fp.CopySymbol(), cls.Name, cls.Name)
		fmt.Fprintf(&b, "impl Clone for %s {\n    fn clone(&self) -> %s {\n        unsafe {\n"+
			"            let mut out = core::mem::MaybeUninit::<%s>::uninit();\n"+
			"            %s(self, out.as_mut_ptr());\n"+
			"            out.assume_init()\n        }\n    }\n}\n",
			cls.Name, cls.Name, cls.Name, fp.CopySymbol())
	}
	if cls.Caps.Comparable {
		fmt.Fprintf(&b, "extern \"C\" {\n    fn %s(a: *const %s, b: *const %s) -> bool;\n}\n",
			fp.EqSymbol(), cls.Name, cls.Name)
		fmt.Fprintf(&b, "impl PartialEq for %s {\n    fn eq(&self, other: &%s) -> bool {\n"+
			"        unsafe { %s(self, other) }\n    }\n}\n",
			cls.Name, cls.Name, fp.EqSymbol())
	}
	if cls.Caps.DefaultConstructible {
		fmt.Fprintf(&b, "extern \"C\" {\n    fn %s(dst: *mut %s);\n}\n",
			fp.DefaultSymbol(), cls.Name)
		fmt.Fprintf(&b, "impl Default for %s {\n    fn default() -> %s {\n        unsafe {\n"+
			"            let mut out = core::mem::MaybeUninit::<%s>::uninit();\n"+
			"            %s(out.as_mut_ptr());\n"+
			"            out.assume_init()\n        }\n    }\n}\n",
			cls.Name, cls.Name, cls.Name, fp.DefaultSymbol())
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

func emitStruct(st block.Struct) string {
	var b strings.Builder
	b.WriteString("#[repr(C)]\n#[derive(Clone, Copy)]\n")
	fmt.Fprintf(&b, "pub struct %s {\n", st.Name)
	for _, f := range st.Fields {
		fmt.Fprintf(&b, "    pub %s: %s,\n", f.Name, f.HostType)
	}
	b.WriteString("}")
	return b.String()
}

func emitEnum(en block.Enum) string {
	var b strings.Builder
	b.WriteString("#[repr(C)]\n#[derive(Clone, Copy, PartialEq, Eq)]\n")
	fmt.Fprintf(&b, "pub enum %s {\n", en.Name)
	for _, v := range en.Variants {
		// Ordinals are spelled out so both sides agree by construction.
		fmt.Fprintf(&b, "    %s = %d,\n", v.Name, v.Ordinal)
	}
	b.WriteString("}")
	return b.String()
}
