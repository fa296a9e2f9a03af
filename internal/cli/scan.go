package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mystor/cppbind/internal/fingerprint"
)

// ScanRow is one discovered invocation in scan output.
type ScanRow struct {
	File        string `json:"file"`
	Line        int    `json:"line"`
	Kind        string `json:"kind"`
	Ordinal     int    `json:"ordinal"`
	Fingerprint string `json:"fingerprint"`
}

// ScanResult is the scan command's payload.
type ScanResult struct {
	Invocations []ScanRow `json:"invocations"`
	Count       int       `json:"count"`
}

// NewScanCommand creates the scan command.
func NewScanCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan <project-dir>",
		Short: "List every invocation reachable from the project entry point",
		Long: `Walk the module tree from the manifest entry point and list every
cpp!, cpp_class! and cpp_mirror! invocation with its assigned fingerprint.

The listing is exactly what the build pass will embed; a missing entry here
means the invocation is invisible to the build (for example because it is
produced by macro expansion).`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScan(rootOpts, args[0], cmd)
		},
	}
	return cmd
}

func runScan(opts *RootOptions, dir string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	m, err := LoadManifest(dir)
	if err != nil {
		return reportLoadError(formatter, err)
	}

	parsed, err := analyze(m, dir)
	if err != nil {
		return reportPassError(formatter, err)
	}

	assigner := fingerprint.NewAssigner()
	result := ScanResult{Invocations: make([]ScanRow, 0, len(parsed))}
	for _, p := range parsed {
		a := assigner.Assign(p.Inv)
		result.Invocations = append(result.Invocations, ScanRow{
			File:        p.Inv.File,
			Line:        p.Inv.Line,
			Kind:        string(p.Inv.Kind),
			Ordinal:     a.Ordinal,
			Fingerprint: string(a.Fingerprint),
		})
	}
	result.Count = len(result.Invocations)

	if opts.Format == "json" {
		return formatter.Success(result)
	}
	for _, row := range result.Invocations {
		fmt.Fprintf(formatter.Writer, "%s:%d %s!#%d %s\n",
			row.File, row.Line, row.Kind, row.Ordinal, row.Fingerprint[:16])
	}
	fmt.Fprintf(formatter.Writer, "%d invocation(s)\n", result.Count)
	return nil
}
