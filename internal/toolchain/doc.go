// Package toolchain drives the native compiler over the generated shim.
//
// Compiler selection and flags come from the project manifest plus the
// conventional environment variables (CXX). Diagnostics are passed through
// verbatim: when the native compiler rejects the shim — including the
// static_assert layout checks — its output IS the error message, with
// #line directives already attributing positions back to host source.
package toolchain
