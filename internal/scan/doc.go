// Package scan finds embedded-code invocations syntactically, without macro
// expansion.
//
// The scanner sees only literal source text. An invocation produced by
// expansion of an unrelated host macro is invisible here — deliberately so.
// Such invocations later fail the in-process pass with a fingerprint
// mismatch instead of silently compiling without a native counterpart.
package scan
