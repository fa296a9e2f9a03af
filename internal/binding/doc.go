// Package binding emits the host-side half of every invocation: extern
// declarations, call-site marshaling, mirrored types, and capability-driven
// lifecycle wrappers.
//
// This pass runs during host compilation, in a different process from the
// build-time scan, and shares nothing with it at runtime. It re-derives each
// invocation's fingerprint from the same source text and uses it to look up
// the build-time metadata artifact. A lookup miss means the build-time pass
// never saw this invocation — usually because macro expansion produced it —
// and is a hard build failure. The alternative is an unresolved symbol deep
// in the linker with no attribution to source.
package binding
