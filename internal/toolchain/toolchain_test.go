package toolchain

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompileArgs(t *testing.T) {
	cfg := &Config{
		Std:         "c++20",
		IncludeDirs: []string{"vendor/include"},
		Defines:     map[string]string{"NDEBUG": "", "VERSION": "3"},
		ExtraFlags:  []string{"-O2"},
	}
	args := cfg.CompileArgs("shim.cpp", "shim.o")

	assert.Equal(t, []string{
		"-std=c++20", "-c", "-fPIC",
		"-I", "vendor/include",
		"-DNDEBUG", "-DVERSION=3",
		"-O2",
		"-o", "shim.o", "shim.cpp",
	}, args)
}

func TestCompileArgsDeterministic(t *testing.T) {
	cfg := &Config{Defines: map[string]string{"B": "2", "A": "1", "C": ""}}
	for i := 0; i < 10; i++ {
		args := cfg.CompileArgs("x.cpp", "x.o")
		assert.Equal(t, cfg.CompileArgs("x.cpp", "x.o"), args)
	}
}

func TestConfigDefaults(t *testing.T) {
	t.Setenv("CXX", "")
	cfg := &Config{}
	assert.Equal(t, "c++", cfg.compiler())
	assert.Equal(t, "c++17", cfg.std())
	assert.Positive(t, cfg.parallel())

	t.Setenv("CXX", "clang++")
	assert.Equal(t, "clang++", cfg.compiler())
	assert.Equal(t, "clang++", (&Config{Compiler: "clang++"}).compiler())
}

func TestSession(t *testing.T) {
	root := t.TempDir()
	a, err := NewSession(root)
	require.NoError(t, err)
	b, err := NewSession(root)
	require.NoError(t, err)

	assert.NotEqual(t, a.Dir, b.Dir)
	assert.DirExists(t, a.Dir)

	require.NoError(t, a.Close())
	assert.NoDirExists(t, a.Dir)
	require.NoError(t, b.Close())
}

func TestCompileFailureCarriesDiagnostics(t *testing.T) {
	sess, err := NewSession(t.TempDir())
	require.NoError(t, err)
	defer sess.Close()

	src := filepath.Join(sess.Dir, "bad.cpp")
	require.NoError(t, os.WriteFile(src, []byte("int main("), 0o644))

	// A "compiler" that always fails stands in for a real one.
	cfg := &Config{Compiler: "/bin/false"}
	_, err = Compile(context.Background(), cfg, sess, []string{src})
	require.Error(t, err)
	assert.True(t, IsToolchainError(err))

	var te *ToolchainError
	require.ErrorAs(t, err, &te)
	assert.Contains(t, te.Stage, "bad.cpp")
}

func TestCompileSuccessReturnsObjectPaths(t *testing.T) {
	sess, err := NewSession(t.TempDir())
	require.NoError(t, err)
	defer sess.Close()

	srcs := []string{
		filepath.Join(sess.Dir, "a.cpp"),
		filepath.Join(sess.Dir, "b.cpp"),
	}
	for _, s := range srcs {
		require.NoError(t, os.WriteFile(s, nil, 0o644))
	}

	// /bin/true accepts anything; only the path plumbing is under test.
	cfg := &Config{Compiler: "/bin/true", Parallel: 2}
	objs, err := Compile(context.Background(), cfg, sess, srcs)
	require.NoError(t, err)
	require.Len(t, objs, 2)
	assert.Contains(t, objs[0], "a.")
	assert.Contains(t, objs[1], "b.")
}
