package walker

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mystor/cppbind/internal/token"
)

// SourceFile pairs a resolved file path with its exact source bytes.
type SourceFile struct {
	// Path is the path as resolved on disk, relative to the walk root where
	// possible.
	Path string

	// Src is the file's exact content.
	Src []byte
}

// Walk reads the crate entry file and every file reachable from it through
// module declarations, in depth-first declaration order.
//
// Fails with *token.ScanError when a file is missing, a module path cannot be
// resolved, or a file fails to tokenize.
func Walk(entry string) ([]SourceFile, error) {
	w := &walk{visited: make(map[string]bool)}
	if err := w.file(entry, true); err != nil {
		return nil, err
	}
	return w.files, nil
}

type walk struct {
	files   []SourceFile
	visited map[string]bool
}

// inlineMod tracks an inline `mod name { ... }` the walker is currently
// inside. Nested file-backed modules resolve relative to the inline path.
type inlineMod struct {
	name  string
	depth int
}

func (w *walk) file(path string, isRoot bool) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	if w.visited[abs] {
		return nil
	}
	w.visited[abs] = true

	src, err := os.ReadFile(path)
	if err != nil {
		return &token.ScanError{
			Code:    token.ErrCodeFileNotFound,
			Path:    path,
			Message: fmt.Sprintf("cannot read source file: %v", err),
			Err:     err,
		}
	}

	toks, err := token.Tokenize(path, src)
	if err != nil {
		return err
	}

	w.files = append(w.files, SourceFile{Path: path, Src: src})

	// The directory that file-backed children of this file resolve against.
	// Crate roots and mod.rs files own their directory; foo.rs owns foo/.
	base := filepath.Dir(path)
	if !isRoot && filepath.Base(path) != "mod.rs" {
		stem := strings.TrimSuffix(filepath.Base(path), ".rs")
		base = filepath.Join(base, stem)
	}

	var inlines []inlineMod
	depth := 0
	for i := 0; i < len(toks); i++ {
		tok := toks[i]
		switch tok.Kind {
		case token.OpenDelim:
			if tok.Text == "{" {
				depth++
			}
		case token.CloseDelim:
			if tok.Text == "}" {
				depth--
				for len(inlines) > 0 && inlines[len(inlines)-1].depth > depth {
					inlines = inlines[:len(inlines)-1]
				}
			}
		case token.Ident:
			if tok.Text != "mod" || i+2 >= len(toks) {
				continue
			}
			name := toks[i+1]
			after := toks[i+2]
			if name.Kind != token.Ident {
				continue
			}
			switch {
			case after.Kind == token.Punct && after.Text == ";":
				dir := base
				for _, im := range inlines {
					dir = filepath.Join(dir, im.name)
				}
				child, err := resolveModule(dir, name.Text)
				if err != nil {
					return &token.ScanError{
						Code:    token.ErrCodeModuleNotFound,
						Path:    path,
						Line:    name.Line,
						Message: fmt.Sprintf("module %q not found under %s", name.Text, dir),
						Err:     err,
					}
				}
				if err := w.file(child, false); err != nil {
					return err
				}
				i += 2
			case after.Kind == token.OpenDelim && after.Text == "{":
				inlines = append(inlines, inlineMod{name: name.Text, depth: depth + 1})
				// The { itself is processed on the next iteration.
				i++
			}
		}
	}

	return nil
}

// resolveModule maps a module name to a file: dir/name.rs wins over
// dir/name/mod.rs, matching the host toolchain's preference.
func resolveModule(dir, name string) (string, error) {
	flat := filepath.Join(dir, name+".rs")
	if fileExists(flat) {
		return flat, nil
	}
	nested := filepath.Join(dir, name, "mod.rs")
	if fileExists(nested) {
		return nested, nil
	}
	return "", fmt.Errorf("neither %s nor %s exists", flat, nested)
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
