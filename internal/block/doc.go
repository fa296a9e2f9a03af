// Package block parses the mini-language inside a macro invocation.
//
// The grammar deliberately stops at the native-language boundary: closure and
// raw bodies are opaque text blobs tagged with their source position, never
// parsed as C++. Native syntax errors are the native toolchain's to report,
// at shim-compile time, where its diagnostics are better than anything this
// package could produce.
//
// Items form a tagged variant set: Include, Raw, Closure, Class, Struct,
// Enum. Validation here covers structure only — duplicate names, missing
// annotations, malformed nesting, unknown keywords — and fails with
// *GrammarError carrying file/line attribution.
package block
