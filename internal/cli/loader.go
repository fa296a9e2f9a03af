package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"

	"github.com/mystor/cppbind/internal/layout"
	"github.com/mystor/cppbind/internal/toolchain"
)

// Loader error codes.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeNoManifest  = "E002" // No cppbind.cue found
	ErrCodeLoadFailed  = "E003" // CUE load failed
	ErrCodeNotFound    = "E004" // Path not found
	ErrCodeBuildFailed = "E005" // CUE build failed
	ErrCodeWriteFailed = "E006" // File write error
)

// ManifestName is the well-known project manifest file name.
const ManifestName = "cppbind.cue"

// LoadError represents an error that occurred during manifest loading.
type LoadError struct {
	Code    string
	Message string
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Manifest is the decoded project manifest.
type Manifest struct {
	Project struct {
		Name string `json:"name"`
		// Entry is the crate root, relative to the manifest directory.
		Entry string `json:"entry"`
	} `json:"project"`

	Toolchain struct {
		Compiler string            `json:"compiler"`
		Std      string            `json:"std"`
		Include  []string          `json:"include"`
		Defines  map[string]string `json:"defines"`
		Flags    []string          `json:"flags"`
		Parallel int               `json:"parallel"`
	} `json:"toolchain"`

	// Layout declares size/alignment for opaque native types that the
	// builtin table cannot know.
	Layout map[string]layout.Layout `json:"layout"`
}

// ToolchainConfig converts the manifest's toolchain section.
func (m *Manifest) ToolchainConfig() *toolchain.Config {
	return &toolchain.Config{
		Compiler:    m.Toolchain.Compiler,
		Std:         m.Toolchain.Std,
		IncludeDirs: m.Toolchain.Include,
		Defines:     m.Toolchain.Defines,
		ExtraFlags:  m.Toolchain.Flags,
		Parallel:    m.Toolchain.Parallel,
	}
}

// LayoutTable merges the manifest's layout overrides onto the builtin
// primitives.
func (m *Manifest) LayoutTable() *layout.Table {
	tbl := layout.Builtin()
	tbl.Merge(m.Layout)
	return tbl
}

// EntryPath resolves the crate root against the manifest directory.
func (m *Manifest) EntryPath(dir string) string {
	entry := m.Project.Entry
	if entry == "" {
		entry = filepath.Join("src", "lib.rs")
	}
	return filepath.Join(dir, entry)
}

// LoadManifest loads and decodes cppbind.cue from a project directory.
func LoadManifest(dir string) (*Manifest, error) {
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("project directory not found: %s", dir)}
	}
	if err != nil {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing project directory: %v", err)}
	}
	if !info.IsDir() {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("not a directory: %s", dir)}
	}

	manifestPath := filepath.Join(dir, ManifestName)
	if _, err := os.Stat(manifestPath); os.IsNotExist(err) {
		return nil, &LoadError{Code: ErrCodeNoManifest, Message: fmt.Sprintf("no %s in %s", ManifestName, dir)}
	}

	ctx := cuecontext.New()
	cfg := &load.Config{Dir: dir}
	instances := load.Instances([]string{ManifestName}, cfg)
	if len(instances) == 0 {
		return nil, &LoadError{Code: ErrCodeLoadFailed, Message: "no CUE instances loaded"}
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, &LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("loading %s: %v", ManifestName, inst.Err)}
	}

	value := ctx.BuildInstance(inst)
	if err := value.Err(); err != nil {
		return nil, &LoadError{Code: ErrCodeBuildFailed, Message: fmt.Sprintf("building manifest: %v", err)}
	}

	var m Manifest
	if err := value.Decode(&m); err != nil {
		return nil, &LoadError{Code: ErrCodeBuildFailed, Message: fmt.Sprintf("decoding manifest: %v", err)}
	}
	return &m, nil
}
