// Package shim assembles the single native translation unit from all parsed
// invocations.
//
// Emission order is stable across repeated builds: preamble, includes
// (deduplicated, first-occurrence order), raw blocks, mirrored aggregates,
// then generated functions in scan order. Re-running the build-time scan on
// unchanged source produces a byte-identical unit, so the native toolchain
// sees no spurious recompilation.
//
// The only cross-boundary type check in the whole system lives here: a
// static_assert per capture, return, field, and aggregate whose host layout
// the constant table knows. Assertion failures surface as native compiler
// diagnostics, untouched.
package shim
