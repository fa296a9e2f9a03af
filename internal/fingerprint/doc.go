// Package fingerprint computes the content-derived identifier shared by the
// two generation passes.
//
// This is a protocol contract, not an implementation detail: the build-time
// pass and the in-process pass run in different processes with no shared
// state, and converge on byte-identical symbol names only because both
// compute the same pure function of (file-relative scope, kind, ordinal,
// normalized text). Any change here is a wire-format change.
//
// Ordinal assignment is defined per lexical scan order: within one file, the
// Nth same-kind invocation encountered top-to-bottom gets ordinal N, counting
// from 0. Invocations nested in conditional-compilation or generic contexts
// count exactly like any other — the scan sees literal text only.
package fingerprint
