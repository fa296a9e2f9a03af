package harness

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mystor/cppbind/internal/block"
	"github.com/mystor/cppbind/internal/layout"
	"github.com/mystor/cppbind/internal/scan"
	"github.com/mystor/cppbind/internal/shim"
	"github.com/mystor/cppbind/internal/store"
)

func TestScenarios(t *testing.T) {
	scenarios, err := LoadScenarios("testdata")
	require.NoError(t, err)
	require.NotEmpty(t, scenarios)

	for _, s := range scenarios {
		s := s
		t.Run(s.Name, func(t *testing.T) {
			res, err := Run(s)
			require.NoError(t, err)
			Assert(t, s, res)
			AssertConvergence(t, s, res)
		})
	}
}

func TestLoadScenarioRejectsIncomplete(t *testing.T) {
	_, err := LoadScenario("testdata/does-not-exist.yaml")
	require.Error(t, err)
}

// Repeated same-kind invocations in one file must land as distinct store
// rows; the schema keys them by (scope, kind, ordinal).
func TestWriteStoreAssignsOrdinals(t *testing.T) {
	invs := []scan.Invocation{
		{File: "src/lib.rs", Kind: scan.MacroClosure, Line: 1, Raw: `include <cstdio>`},
		{File: "src/lib.rs", Kind: scan.MacroClosure, Line: 6, Raw: `(x as "int") -> i32 { return x + 1; }`},
	}
	parsed, err := block.ParseAll(invs)
	require.NoError(t, err)

	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "cppbind.db")
	require.NoError(t, writeStore(ctx, path, shim.Plan(parsed), layout.Builtin()))

	st, err := store.Open(path)
	require.NoError(t, err)
	defer st.Close()

	recs, err := st.ListRecords(ctx)
	require.NoError(t, err)
	require.Len(t, recs, 2)

	ords := []int{recs[0].Ordinal, recs[1].Ordinal}
	assert.ElementsMatch(t, []int{0, 1}, ords)
	for _, rec := range recs {
		assert.Equal(t, "src/lib.rs", rec.Scope)
		assert.Equal(t, string(scan.MacroClosure), rec.Kind)
	}
}

func TestScenarioDefaults(t *testing.T) {
	s := &Scenario{Name: "x", Files: map[string]string{"src/lib.rs": ""}}
	assert.Equal(t, "src/lib.rs", s.entry())
}
