package block

import "github.com/mystor/cppbind/internal/scan"

// Item is one parsed entry of an invocation body.
// Implementations: Include, Raw, Closure, Class, Struct, Enum.
type Item interface {
	item()
}

// Include is a verbatim include directive, order-preserving.
type Include struct {
	// Angle is true for include <path>, false for include "path".
	Angle bool
	Path  string
}

// Raw is verbatim native text inserted into the shim, unparsed.
type Raw struct {
	Text string
	// Line is the 1-indexed line of the text's first byte in the host file.
	Line int
}

// Capture describes one value flowing across the boundary into a closure.
// NativeType is opaque text, never type-checked here; only size and
// alignment are ever asserted, and only when HostType is spelled out.
type Capture struct {
	Mut  bool
	Name string
	// HostType is the host-side type expression, empty when the source
	// leaves it to host-compiler inference.
	HostType string
	// NativeType is the annotated native spelling. Always present.
	NativeType string
}

// Return is a closure's declared return type. A nil *Return means void.
type Return struct {
	HostType   string
	NativeType string
}

// Closure is a typed native function body with a capture list.
type Closure struct {
	Captures []Capture
	Ret      *Return
	// Body is the opaque native text between the body braces, verbatim.
	Body string
	// BodyLine is the 1-indexed host-file line of the body's first byte,
	// used for #line attribution in the shim.
	BodyLine int
}

// CapabilitySet records which lifecycle wrapper operations a class form
// requests. Each capability independently determines one synthesized
// operation; there is no base-object hierarchy.
type CapabilitySet struct {
	Destructible         bool
	Copyable             bool
	Comparable           bool
	DefaultConstructible bool
}

// Class is a host wrapper over an opaque native type.
type Class struct {
	Name string
	// NativeType is the native spelling, required for class forms.
	NativeType string
	Public     bool
	Caps       CapabilitySet
}

// Field is one struct member carrying a (host-type, native-type) pair.
type Field struct {
	Name       string
	HostType   string
	NativeType string
}

// Struct is a mirrored plain aggregate.
type Struct struct {
	Name string
	// NativeType defaults to Name when not annotated.
	NativeType string
	Fields     []Field
}

// Discipline selects how enum variant names are spelled on the native side.
// It never affects ordinal values, which follow declaration order from 0.
type Discipline string

const (
	// DisciplineFlat emits plain C-style enumerators.
	DisciplineFlat Discipline = "flat"
	// DisciplineScoped emits an `enum class`.
	DisciplineScoped Discipline = "scoped"
	// DisciplinePrefixed emits enumerators prefixed with the enum name.
	DisciplinePrefixed Discipline = "prefixed"
)

// Variant is one enum member. Ordinal is assigned by declaration order
// starting at 0 on both sides, regardless of discipline.
type Variant struct {
	Name string
	// NativeName defaults to Name when not annotated.
	NativeName string
	Ordinal    int
}

// Enum is a mirrored enum.
type Enum struct {
	Name       string
	NativeType string
	Discipline Discipline
	Variants   []Variant
}

func (Include) item() {}
func (Raw) item()     {}
func (Closure) item() {}
func (Class) item()   {}
func (Struct) item()  {}
func (Enum) item()    {}

// Parsed pairs an invocation with its parsed items.
type Parsed struct {
	Inv   scan.Invocation
	Items []Item
}
