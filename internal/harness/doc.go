// Package harness runs end-to-end conformance scenarios over the full
// dual-pass pipeline: materialize a host project from a YAML scenario file,
// run the build-time pass, then the in-process pass, and check the
// scenario's expectations against both outputs.
//
// Scenarios live in testdata/ as YAML. Each one is a complete miniature
// project; the harness never shares state between the two passes except
// through the metadata artifact, exactly as real builds do.
package harness
