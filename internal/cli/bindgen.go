package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/mystor/cppbind/internal/binding"
	"github.com/mystor/cppbind/internal/store"
)

// BindgenResult is the bindgen command's payload.
type BindgenResult struct {
	Invocations int    `json:"invocations"`
	OutputPath  string `json:"output_path"`
}

func (r BindgenResult) String() string {
	return fmt.Sprintf("bound %d invocation(s)\nbindings: %s", r.Invocations, r.OutputPath)
}

// NewBindgenCommand creates the bindgen command: the in-process pass.
func NewBindgenCommand(rootOpts *RootOptions) *cobra.Command {
	var outDir string
	var stdout bool

	cmd := &cobra.Command{
		Use:   "bindgen <project-dir>",
		Short: "Run the in-process pass: generate host-side bindings",
		Long: `Re-scan the project, re-derive every invocation's fingerprint, and emit
host-side bindings against the build pass's metadata artifact.

An invocation with no recorded fingerprint is a hard failure: it was
invisible to the build-time scan, so no native symbol exists for it.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBindgen(rootOpts, args[0], outDir, stdout, cmd)
		},
	}

	cmd.Flags().StringVar(&outDir, "out", "cppbind-out", "build output directory (relative to project dir)")
	cmd.Flags().BoolVar(&stdout, "stdout", false, "write bindings to stdout instead of a file")
	return cmd
}

func runBindgen(opts *RootOptions, dir, outDir string, stdout bool, cmd *cobra.Command) error {
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

	storePath := filepath.Join(dir, outDir, StoreName)
	if _, err := os.Stat(storePath); os.IsNotExist(err) {
		f := &LoadError{Code: ErrCodeNotFound,
			Message: fmt.Sprintf("no build metadata at %s; run `cppbind build` first", storePath)}
		return reportLoadError(formatter, f)
	}
	st, err := store.Open(storePath)
	if err != nil {
		return reportLoadError(formatter, err)
	}
	defer st.Close()

	entries := binding.Plan(parsed)
	out, err := binding.NewEmitter(st).Emit(ctx, entries)
	if err != nil {
		return reportPassError(formatter, err)
	}

	if stdout {
		if _, err := formatter.Writer.Write(out); err != nil {
			return WrapExitError(ExitCommandError, "write bindings", err)
		}
		return nil
	}

	outputPath := filepath.Join(dir, outDir, binding.FileName)
	if err := os.WriteFile(outputPath, out, 0o644); err != nil {
		f := &LoadError{Code: ErrCodeWriteFailed, Message: fmt.Sprintf("write bindings: %v", err)}
		return reportLoadError(formatter, f)
	}

	return formatter.Success(BindgenResult{
		Invocations: len(entries),
		OutputPath:  outputPath,
	})
}
