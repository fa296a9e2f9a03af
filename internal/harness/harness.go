package harness

import (
	"context"
	"os"
	"path/filepath"

	"github.com/mystor/cppbind/internal/binding"
	"github.com/mystor/cppbind/internal/block"
	"github.com/mystor/cppbind/internal/fingerprint"
	"github.com/mystor/cppbind/internal/layout"
	"github.com/mystor/cppbind/internal/scan"
	"github.com/mystor/cppbind/internal/shim"
	"github.com/mystor/cppbind/internal/store"
	"github.com/mystor/cppbind/internal/toolchain"
	"github.com/mystor/cppbind/internal/walker"
)

// Result collects everything a scenario run produced.
type Result struct {
	// Invocations is the number of embedded invocations.
	Invocations int

	// Shim is the generated translation unit.
	Shim []byte

	// Bindings is the generated host source, nil when a pass failed.
	Bindings []byte

	// BuildErr is the build-time pass failure, if any.
	BuildErr error

	// BindingErr is the in-process pass failure, if any.
	BindingErr error
}

// Run materializes the scenario's project and executes both passes against
// it. Pipeline failures are captured in the Result rather than returned;
// the returned error covers harness-level problems only (I/O, bad scenario).
func Run(s *Scenario) (*Result, error) {
	sess, err := toolchain.NewSession("")
	if err != nil {
		return nil, err
	}
	defer sess.Close()
	root := sess.Dir

	if err := materialize(root, s.Files); err != nil {
		return nil, err
	}

	ctx := context.Background()
	res := &Result{}

	tbl := layout.Builtin()
	tbl.Merge(s.Layout)

	// Build-time pass.
	entries, err := analyze(root, s.entry())
	if err != nil {
		res.BuildErr = err
		return res, nil
	}
	res.Invocations = len(entries)
	res.Shim = shim.Emit(entries, tbl).Bytes()

	storePath := filepath.Join(root, "cppbind.db")
	if err := writeStore(ctx, storePath, entries, tbl); err != nil {
		res.BuildErr = err
		return res, nil
	}

	// Source edits between the passes, modelling a stale artifact.
	if len(s.Edits) > 0 {
		if err := materialize(root, s.Edits); err != nil {
			return nil, err
		}
	}

	// In-process pass: everything re-derived from source, nothing shared
	// with the build pass except the store.
	hostEntries, err := analyze(root, s.entry())
	if err != nil {
		res.BindingErr = err
		return res, nil
	}

	st, err := store.Open(storePath)
	if err != nil {
		return nil, err
	}
	defer st.Close()

	bindings, err := binding.NewEmitter(st).Emit(ctx, toBindingEntries(hostEntries))
	if err != nil {
		res.BindingErr = err
		return res, nil
	}
	res.Bindings = bindings
	return res, nil
}

func (s *Scenario) entry() string {
	if s.Entry != "" {
		return s.Entry
	}
	return filepath.Join("src", "lib.rs")
}

func materialize(root string, files map[string]string) error {
	for rel, content := range files {
		path := filepath.Join(root, rel)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return err
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			return err
		}
	}
	return nil
}

// analyze walks, scans, parses and fingerprints one pass's view of the
// project, with file paths rooted at the project directory.
func analyze(root, entry string) ([]shim.Entry, error) {
	files, err := walker.Walk(filepath.Join(root, entry))
	if err != nil {
		return nil, err
	}
	for i := range files {
		if rel, relErr := filepath.Rel(root, files[i].Path); relErr == nil {
			files[i].Path = rel
		}
	}
	invs, err := scan.Files(files)
	if err != nil {
		return nil, err
	}
	parsed, err := block.ParseAll(invs)
	if err != nil {
		return nil, err
	}
	return shim.Plan(parsed), nil
}

func toBindingEntries(entries []shim.Entry) []binding.Entry {
	out := make([]binding.Entry, len(entries))
	for i, e := range entries {
		out[i] = binding.Entry{Parsed: e.Parsed, Fingerprint: e.Fingerprint}
	}
	return out
}

func writeStore(ctx context.Context, path string, entries []shim.Entry, tbl *layout.Table) error {
	st, err := store.Open(path)
	if err != nil {
		return err
	}
	defer st.Close()

	if err := st.Reset(ctx); err != nil {
		return err
	}

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
