package harness

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/mystor/cppbind/internal/layout"
)

// Scenario defines one conformance scenario.
type Scenario struct {
	// Name uniquely identifies this scenario.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Entry is the crate root, relative to the project root.
	// Empty defaults to src/lib.rs.
	Entry string `yaml:"entry,omitempty"`

	// Files maps relative paths to file contents; the harness materializes
	// them into a fresh project directory.
	Files map[string]string `yaml:"files"`

	// Layout declares size/alignment overrides for opaque native types,
	// standing in for the project manifest's layout section.
	Layout map[string]layout.Layout `yaml:"layout,omitempty"`

	// Edits, when present, are applied to the project between the
	// build-time pass and the in-process pass. This models stale-artifact
	// situations: source changed, metadata did not.
	Edits map[string]string `yaml:"edits,omitempty"`

	// Expect holds the scenario's expectations.
	Expect Expect `yaml:"expect"`
}

// Expect describes what a scenario's run must produce.
type Expect struct {
	// Invocations is the number of embedded invocations; <0 skips the check.
	Invocations *int `yaml:"invocations,omitempty"`

	// ShimContains are substrings the shim translation unit must contain.
	ShimContains []string `yaml:"shim_contains,omitempty"`

	// ShimOmits are substrings the shim must not contain.
	ShimOmits []string `yaml:"shim_omits,omitempty"`

	// BindingsContains are substrings the host bindings must contain.
	BindingsContains []string `yaml:"bindings_contains,omitempty"`

	// BindingsOmits are substrings the bindings must not contain.
	BindingsOmits []string `yaml:"bindings_omits,omitempty"`

	// BuildError, when set, is an error-code substring the build-time
	// pass must fail with. No further stages run.
	BuildError string `yaml:"build_error,omitempty"`

	// BindingError, when set, is an error-code substring the in-process
	// pass must fail with.
	BindingError string `yaml:"binding_error,omitempty"`
}

// LoadScenario reads one scenario from a YAML file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}
	var s Scenario
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse scenario %s: %w", path, err)
	}
	if s.Name == "" {
		return nil, fmt.Errorf("scenario %s has no name", path)
	}
	if len(s.Files) == 0 {
		return nil, fmt.Errorf("scenario %q has no files", s.Name)
	}
	return &s, nil
}

// LoadScenarios reads every *.yaml scenario under dir, sorted by file name.
func LoadScenarios(dir string) ([]*Scenario, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return nil, err
	}
	sort.Strings(matches)

	out := make([]*Scenario, 0, len(matches))
	for _, path := range matches {
		s, err := LoadScenario(path)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}
