package layout

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Layout is one host type's size and alignment in bytes.
type Layout struct {
	Size  int `json:"size" yaml:"size"`
	Align int `json:"align" yaml:"align"`
}

// Table maps host type spellings to layouts.
type Table struct {
	Types map[string]Layout `yaml:"types"`
}

// Builtin returns the layout table for host primitive types on 64-bit
// targets. Pointer-sized types assume an 8-byte word; cross-compilation to
// 32-bit targets overrides these through the project manifest.
func Builtin() *Table {
	return &Table{Types: map[string]Layout{
		"i8":    {Size: 1, Align: 1},
		"u8":    {Size: 1, Align: 1},
		"i16":   {Size: 2, Align: 2},
		"u16":   {Size: 2, Align: 2},
		"i32":   {Size: 4, Align: 4},
		"u32":   {Size: 4, Align: 4},
		"i64":   {Size: 8, Align: 8},
		"u64":   {Size: 8, Align: 8},
		"isize": {Size: 8, Align: 8},
		"usize": {Size: 8, Align: 8},
		"f32":   {Size: 4, Align: 4},
		"f64":   {Size: 8, Align: 8},
		"bool":  {Size: 1, Align: 1},
		"char":  {Size: 4, Align: 4},
		"()":    {Size: 0, Align: 1},
	}}
}

// Lookup returns the layout for a host type spelling.
func (t *Table) Lookup(hostType string) (Layout, bool) {
	l, ok := t.Types[hostType]
	return l, ok
}

// Merge overlays entries onto the table, replacing existing spellings.
func (t *Table) Merge(overrides map[string]Layout) {
	if t.Types == nil {
		t.Types = make(map[string]Layout, len(overrides))
	}
	for name, l := range overrides {
		t.Types[name] = l
	}
}

// WriteFile serializes the table as the layout.yaml build artifact.
// Regenerated on every build; never an incremental cache. Output is
// deterministic: the yaml encoder emits map keys in sorted order.
func (t *Table) WriteFile(path string) error {
	data, err := yaml.Marshal(t)
	if err != nil {
		return fmt.Errorf("marshal layout table: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write layout table: %w", err)
	}
	return nil
}

// ReadFile loads a serialized table.
func ReadFile(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read layout table: %w", err)
	}
	var t Table
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("parse layout table: %w", err)
	}
	return &t, nil
}
