// Package layout holds the size/alignment constant table: the only
// cross-boundary type information this system ever checks.
//
// The table maps host type spellings to (size, alignment) in bytes. It is
// produced during the build-time pass, serialized as a YAML build artifact,
// and consumed by the shim emitter to generate static assertions. It is
// deliberately conservative — it catches layout mismatches, never semantic
// ones.
package layout
