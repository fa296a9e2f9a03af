package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/mystor/cppbind/internal/scan"
)

// Domain prefix for content-addressed identity.
// Version suffix enables future algorithm migration; bumping it is a
// breaking protocol change and must happen on both passes at once.
const DomainInvocation = "cppbind/invocation/v1"

// Fingerprint is the fixed-width digest identifying one invocation.
// 64 lowercase hex characters (SHA-256).
type Fingerprint string

// Short returns the 16-character prefix used in generated symbol names.
func (f Fingerprint) Short() string {
	if len(f) < 16 {
		return string(f)
	}
	return string(f[:16])
}

// Generated symbol names. Both emitters spell symbols through these helpers
// and nowhere else.

// ClosureSymbol names the extern "C" function generated for a closure.
func (f Fingerprint) ClosureSymbol() string { return "__cpp_closure_" + f.Short() }

// DestructorSymbol names the generated teardown routine for a class.
func (f Fingerprint) DestructorSymbol() string { return "__cpp_destructor_" + f.Short() }

// CopySymbol names the generated copy routine for a class.
func (f Fingerprint) CopySymbol() string { return "__cpp_copy_" + f.Short() }

// EqSymbol names the generated comparison routine for a class.
func (f Fingerprint) EqSymbol() string { return "__cpp_eq_" + f.Short() }

// DefaultSymbol names the generated default-construction routine for a class.
func (f Fingerprint) DefaultSymbol() string { return "__cpp_default_" + f.Short() }

// Normalize canonicalizes invocation text for hashing: NFC normalization,
// CRLF and CR line endings folded to LF, leading/trailing whitespace
// trimmed per line, and surrounding blank lines dropped. Reformatting an
// invocation without changing content leaves its normalized text — and so
// its fingerprint — unchanged.
func Normalize(raw string) string {
	s := norm.NFC.String(raw)
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// Compute is the fingerprint function itself: a total, pure function of
// scope, kind, ordinal, and normalized text. No other input may ever
// participate.
//
// Layout: SHA256(domain 0x00 scope 0x00 kind 0x00 ordinal 0x00 normalized).
// The null separators prevent field-boundary ambiguity.
func Compute(scope string, kind scan.Kind, ordinal int, normalized string) Fingerprint {
	h := sha256.New()
	h.Write([]byte(DomainInvocation))
	h.Write([]byte{0x00})
	h.Write([]byte(scope))
	h.Write([]byte{0x00})
	h.Write([]byte(kind))
	h.Write([]byte{0x00})
	fmt.Fprintf(h, "%d", ordinal)
	h.Write([]byte{0x00})
	h.Write([]byte(normalized))
	return Fingerprint(hex.EncodeToString(h.Sum(nil)))
}

// Scope derives an invocation's file-relative scope: the file path with
// separators canonicalized to forward slashes. Both passes walk the same
// tree from the same root, so the spelling agrees by construction.
func Scope(file string) string {
	return filepath.ToSlash(file)
}

// Assigned pairs an invocation with its fingerprint and ordinal.
type Assigned struct {
	Inv         scan.Invocation
	Ordinal     int
	Fingerprint Fingerprint
}

// Assigner threads per-(scope, kind) ordinal counters through one scan pass.
// Counters are local to the Assigner: a fresh scan gets a fresh Assigner,
// and nothing is ever shared across passes or goroutines.
type Assigner struct {
	counters map[counterKey]int
}

type counterKey struct {
	scope string
	kind  scan.Kind
}

// NewAssigner creates an Assigner with all counters at zero.
func NewAssigner() *Assigner {
	return &Assigner{counters: make(map[counterKey]int)}
}

// Assign computes the fingerprint for the next invocation in scan order and
// advances the matching ordinal counter. Must be called in file-declaration
// order; that ordering is what both passes share.
func (a *Assigner) Assign(inv scan.Invocation) Assigned {
	scope := Scope(inv.File)
	key := counterKey{scope: scope, kind: inv.Kind}
	ord := a.counters[key]
	a.counters[key]++

	return Assigned{
		Inv:         inv,
		Ordinal:     ord,
		Fingerprint: Compute(scope, inv.Kind, ord, Normalize(inv.Raw)),
	}
}

// AssignAll runs a fresh Assigner over a full scan in order.
func AssignAll(invs []scan.Invocation) []Assigned {
	a := NewAssigner()
	out := make([]Assigned, len(invs))
	for i, inv := range invs {
		out[i] = a.Assign(inv)
	}
	return out
}
