// Package token re-tokenizes raw host source text independently of the host
// compiler's own parser.
//
// The host parser discards exact byte spans and literal text once macro
// expansion starts; this lexer preserves both, which is what lets the
// build-time pass and the in-process pass agree on invocation content.
//
// Key constraints:
//   - Every token carries its exact byte span [Lo, Hi) into the source.
//   - Comment and string/raw-string contents are consumed atomically, so an
//     invocation-looking fragment inside either is never surfaced as tokens.
//   - Block comments nest, matching the host language.
package token
