package cli

import (
	"path/filepath"

	"github.com/mystor/cppbind/internal/block"
	"github.com/mystor/cppbind/internal/scan"
	"github.com/mystor/cppbind/internal/walker"
)

// analyze runs the shared front half of both passes: walk the module tree
// from the manifest's entry point, scan for invocations, and parse them.
//
// File paths are re-rooted relative to the project directory before anything
// downstream sees them. Fingerprint scopes derive from these paths, so they
// must not depend on where the project happens to be checked out.
func analyze(m *Manifest, dir string) ([]*block.Parsed, error) {
	files, err := walker.Walk(m.EntryPath(dir))
	if err != nil {
		return nil, err
	}

	for i := range files {
		if rel, relErr := filepath.Rel(dir, files[i].Path); relErr == nil {
			files[i].Path = rel
		}
	}

	invs, err := scan.Files(files)
	if err != nil {
		return nil, err
	}
	return block.ParseAll(invs)
}
