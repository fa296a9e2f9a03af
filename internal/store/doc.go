// Package store persists build-time invocation metadata for the in-process
// pass.
//
// The build-time pass records every invocation it saw — fingerprint, kind,
// scope, ordinal, measured layout, capability flags — and the in-process
// pass looks its own invocations up by fingerprint. A miss is the one hard
// failure mode of the protocol: the invocation was invisible at build time
// (typically produced by macro expansion) and must abort host compilation
// rather than limp into an unresolved-symbol linker error.
//
// The store is regenerated from scratch on every build-time pass; it is a
// build artifact, not an incremental cache.
package store
