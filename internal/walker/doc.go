// Package walker enumerates every source file reachable from a crate entry
// file through the host's module-declaration syntax.
//
// Both file-backed declarations (`mod name;`) and inline declarations
// (`mod name { ... }`) are followed. Files are visited depth-first in
// declaration order, which is what makes fingerprint ordinals deterministic:
// the scan order is a pure function of the source tree.
package walker
