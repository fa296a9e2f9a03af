package toolchain

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Config describes how to invoke the native compiler.
type Config struct {
	// Compiler is the C++ compiler binary. Empty falls back to $CXX,
	// then to "c++".
	Compiler string
	// Std is the language standard, e.g. "c++17". Empty means c++17.
	Std string
	IncludeDirs []string
	// Defines maps macro names to values; an empty value defines the
	// macro without one.
	Defines map[string]string
	ExtraFlags []string
	// Parallel bounds concurrent compile jobs; <= 0 means GOMAXPROCS.
	Parallel int
}

func (c *Config) compiler() string {
	if c.Compiler != "" {
		return c.Compiler
	}
	if env := os.Getenv("CXX"); env != "" {
		return env
	}
	return "c++"
}

func (c *Config) std() string {
	if c.Std != "" {
		return c.Std
	}
	return "c++17"
}

func (c *Config) parallel() int {
	if c.Parallel > 0 {
		return c.Parallel
	}
	return runtime.GOMAXPROCS(0)
}

// CompileArgs builds the argument vector for one translation unit.
// Defines are sorted so the command line is deterministic.
func (c *Config) CompileArgs(src, obj string) []string {
	args := []string{"-std=" + c.std(), "-c", "-fPIC"}
	for _, dir := range c.IncludeDirs {
		args = append(args, "-I", dir)
	}
	names := make([]string, 0, len(c.Defines))
	for name := range c.Defines {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if v := c.Defines[name]; v != "" {
			args = append(args, "-D"+name+"="+v)
		} else {
			args = append(args, "-D"+name)
		}
	}
	args = append(args, c.ExtraFlags...)
	args = append(args, "-o", obj, src)
	return args
}

// ToolchainError carries the native compiler's own diagnostics, verbatim.
type ToolchainError struct {
	Stage  string
	Args   []string
	Output string
	Err    error
}

func (e *ToolchainError) Error() string {
	if e.Output != "" {
		return fmt.Sprintf("%s failed: %v\n%s", e.Stage, e.Err, e.Output)
	}
	return fmt.Sprintf("%s failed: %v", e.Stage, e.Err)
}

func (e *ToolchainError) Unwrap() error { return e.Err }

// IsToolchainError reports whether err is or wraps a *ToolchainError.
func IsToolchainError(err error) bool {
	var te *ToolchainError
	return errors.As(err, &te)
}

// Session is a scratch directory for one build's intermediate artifacts.
type Session struct {
	Dir string
}

// NewSession creates a uniquely named scratch directory under root
// (os.TempDir when empty).
func NewSession(root string) (*Session, error) {
	if root == "" {
		root = os.TempDir()
	}
	dir := filepath.Join(root, "cppbind-"+uuid.NewString())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create build session dir: %w", err)
	}
	return &Session{Dir: dir}, nil
}

// Close removes the session directory and everything in it.
func (s *Session) Close() error {
	return os.RemoveAll(s.Dir)
}

// Compile compiles each source to an object file in the session directory,
// bounded-parallel. Object paths are returned in source order. The first
// failing unit cancels the rest.
func Compile(ctx context.Context, cfg *Config, sess *Session, sources []string) ([]string, error) {
	objs := make([]string, len(sources))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.parallel())

	for i, src := range sources {
		obj := filepath.Join(sess.Dir, fmt.Sprintf("%s.%d.o",
			strings.TrimSuffix(filepath.Base(src), filepath.Ext(src)), i))
		objs[i] = obj

		src := src
		g.Go(func() error {
			args := cfg.CompileArgs(src, obj)
			cmd := exec.CommandContext(ctx, cfg.compiler(), args...)
			out, err := cmd.CombinedOutput()
			if err != nil {
				return &ToolchainError{
					Stage:  "compile " + src,
					Args:   args,
					Output: string(out),
					Err:    err,
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return objs, nil
}

// Archive bundles object files into a static library.
func Archive(ctx context.Context, objs []string, out string) error {
	args := append([]string{"rcs", out}, objs...)
	cmd := exec.CommandContext(ctx, "ar", args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return &ToolchainError{
			Stage:  "archive " + out,
			Args:   args,
			Output: string(output),
			Err:    err,
		}
	}
	return nil
}
