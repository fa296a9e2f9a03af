package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/mystor/cppbind/internal/block"
	"github.com/mystor/cppbind/internal/fingerprint"
	"github.com/mystor/cppbind/internal/shim"
	"github.com/mystor/cppbind/internal/store"
	"github.com/mystor/cppbind/internal/toolchain"
)

// Well-known artifact names inside the build output directory.
const (
	StoreName   = "cppbind.db"
	LayoutName  = "layout.yaml"
	ArchiveName = "libcppbind.a"
)

// BuildResult is the build command's payload.
type BuildResult struct {
	Invocations int    `json:"invocations"`
	ShimPath    string `json:"shim_path"`
	StorePath   string `json:"store_path"`
	ArchivePath string `json:"archive_path,omitempty"`
}

func (r BuildResult) String() string {
	s := fmt.Sprintf("embedded %d invocation(s)\nshim:  %s\nstore: %s", r.Invocations, r.ShimPath, r.StorePath)
	if r.ArchivePath != "" {
		s += "\nlib:   " + r.ArchivePath
	}
	return s
}

// NewBuildCommand creates the build command: the build-time pass.
func NewBuildCommand(rootOpts *RootOptions) *cobra.Command {
	var outDir string
	var compile bool

	cmd := &cobra.Command{
		Use:   "build <project-dir>",
		Short: "Run the build-time pass: generate and optionally compile the shim",
		Long: `Scan the project for invocations, emit the native shim translation unit,
and record per-invocation metadata for the in-process binding pass.

With --compile the shim is also compiled and archived into a static
library; native compiler diagnostics pass through verbatim, attributed to
host source positions via #line directives.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuild(rootOpts, args[0], outDir, compile, cmd)
		},
	}

	cmd.Flags().StringVar(&outDir, "out", "cppbind-out", "build output directory (relative to project dir)")
	cmd.Flags().BoolVar(&compile, "compile", false, "compile the shim and archive a static library")
	return cmd
}

func runBuild(opts *RootOptions, dir, outDir string, compile bool, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	m, err := LoadManifest(dir)
	if err != nil {
		return reportLoadError(formatter, err)
	}

	parsed, err := analyze(m, dir)
	if err != nil {
		return reportPassError(formatter, err)
	}
	formatter.VerboseLog("scanned %d invocation(s)", len(parsed))

	out := filepath.Join(dir, outDir)
	if err := os.MkdirAll(out, 0o755); err != nil {
		f := &LoadError{Code: ErrCodeWriteFailed, Message: fmt.Sprintf("create output directory: %v", err)}
		return reportLoadError(formatter, f)
	}

	entries := shim.Plan(parsed)
	tbl := m.LayoutTable()

	shimPath := filepath.Join(out, shim.FileName)
	if err := os.WriteFile(shimPath, shim.Emit(entries, tbl).Bytes(), 0o644); err != nil {
		f := &LoadError{Code: ErrCodeWriteFailed, Message: fmt.Sprintf("write shim: %v", err)}
		return reportLoadError(formatter, f)
	}

	if err := tbl.WriteFile(filepath.Join(out, LayoutName)); err != nil {
		f := &LoadError{Code: ErrCodeWriteFailed, Message: fmt.Sprintf("write layout table: %v", err)}
		return reportLoadError(formatter, f)
	}

	storePath := filepath.Join(out, StoreName)
	if err := writeStore(ctx, storePath, entries, m); err != nil {
		return reportPassError(formatter, err)
	}

	result := BuildResult{
		Invocations: len(entries),
		ShimPath:    shimPath,
		StorePath:   storePath,
	}

	if compile {
		archivePath, err := compileShim(ctx, m, shimPath, out)
		if err != nil {
			return reportPassError(formatter, err)
		}
		result.ArchivePath = archivePath
	}

	return formatter.Success(result)
}

// writeStore resets the metadata artifact and records every invocation.
// Classes carry their layout and capability flags; everything else records
// identity only.
func writeStore(ctx context.Context, path string, entries []shim.Entry, m *Manifest) error {
	st, err := store.Open(path)
	if err != nil {
		return err
	}
	defer st.Close()

	if err := st.Reset(ctx); err != nil {
		return err
	}

	tbl := m.LayoutTable()
	assigner := fingerprint.NewAssigner()
	for _, e := range entries {
		a := assigner.Assign(e.Parsed.Inv)
		rec := store.Record{
			Fingerprint: string(e.Fingerprint),
			Kind:        string(e.Parsed.Inv.Kind),
			Scope:       e.Parsed.Inv.File,
			Ordinal:     a.Ordinal,
			Line:        e.Parsed.Inv.Line,
		}

		for _, item := range e.Parsed.Items {
			cls, ok := item.(block.Class)
			if !ok {
				continue
			}
			if l, found := tbl.Lookup(cls.Name); found {
				rec.Size = l.Size
				rec.Align = l.Align
			}
			if cls.Caps.Destructible {
				rec.Flags |= store.FlagDestructible
			}
			if cls.Caps.Copyable {
				rec.Flags |= store.FlagCopyable
			}
			if cls.Caps.Comparable {
				rec.Flags |= store.FlagComparable
			}
			if cls.Caps.DefaultConstructible {
				rec.Flags |= store.FlagDefaultConstructible
			}
		}

		if err := st.WriteRecord(ctx, rec); err != nil {
			return err
		}
	}
	return nil
}

// compileShim compiles the generated translation unit and archives it.
func compileShim(ctx context.Context, m *Manifest, shimPath, out string) (string, error) {
	sess, err := toolchain.NewSession("")
	if err != nil {
		return "", err
	}
	defer sess.Close()

	objs, err := toolchain.Compile(ctx, m.ToolchainConfig(), sess, []string{shimPath})
	if err != nil {
		return "", err
	}

	archivePath := filepath.Join(out, ArchiveName)
	if err := toolchain.Archive(ctx, objs, archivePath); err != nil {
		return "", err
	}
	return archivePath, nil
}
