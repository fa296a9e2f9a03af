package harness

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Assert checks a run's result against the scenario's expectations.
func Assert(t *testing.T, s *Scenario, res *Result) {
	t.Helper()

	if s.Expect.BuildError != "" {
		require.Error(t, res.BuildErr, "scenario %q: build pass was expected to fail", s.Name)
		assert.Contains(t, res.BuildErr.Error(), s.Expect.BuildError)
		return
	}
	require.NoError(t, res.BuildErr, "scenario %q: build pass failed", s.Name)

	if s.Expect.Invocations != nil {
		assert.Equal(t, *s.Expect.Invocations, res.Invocations,
			"scenario %q: invocation count", s.Name)
	}

	shim := string(res.Shim)
	for _, want := range s.Expect.ShimContains {
		assert.Contains(t, shim, want, "scenario %q: shim", s.Name)
	}
	for _, not := range s.Expect.ShimOmits {
		assert.NotContains(t, shim, not, "scenario %q: shim", s.Name)
	}

	if s.Expect.BindingError != "" {
		require.Error(t, res.BindingErr, "scenario %q: binding pass was expected to fail", s.Name)
		assert.Contains(t, res.BindingErr.Error(), s.Expect.BindingError)
		return
	}
	require.NoError(t, res.BindingErr, "scenario %q: binding pass failed", s.Name)

	bindings := string(res.Bindings)
	for _, want := range s.Expect.BindingsContains {
		assert.Contains(t, bindings, want, "scenario %q: bindings", s.Name)
	}
	for _, not := range s.Expect.BindingsOmits {
		assert.NotContains(t, bindings, not, "scenario %q: bindings", s.Name)
	}
}

// sharedSymbols extracts the generated symbol names present in both outputs.
// Every symbol the bindings reference must exist in the shim; this is the
// convergence property the fingerprint protocol guarantees.
func sharedSymbols(res *Result) (missing []string) {
	shim := string(res.Shim)
	for _, line := range strings.Split(string(res.Bindings), "\n") {
		idx := strings.Index(line, "__cpp_")
		if idx < 0 {
			continue
		}
		sym := line[idx:]
		if end := strings.IndexAny(sym, "( ;:"); end > 0 {
			sym = sym[:end]
		}
		if !strings.Contains(shim, sym) {
			missing = append(missing, sym)
		}
	}
	return missing
}

// AssertConvergence fails if the bindings reference any symbol the shim does
// not define.
func AssertConvergence(t *testing.T, s *Scenario, res *Result) {
	t.Helper()
	if res.BuildErr != nil || res.BindingErr != nil {
		return
	}
	assert.Empty(t, sharedSymbols(res),
		"scenario %q: bindings reference symbols missing from the shim", s.Name)
}
