package binding

import (
	"errors"
	"fmt"
)

// Error codes attached to BindingError.
const (
	// ErrFingerprintMismatch means an invocation parsed in-process has no
	// record in the build-time metadata store.
	ErrFingerprintMismatch = "FINGERPRINT_MISMATCH"

	// ErrVersionMismatch means the metadata store was written by a
	// different version of the build-time pass.
	ErrVersionMismatch = "VERSION_MISMATCH"

	// ErrMissingLayout means an opaque class record carries no size or
	// alignment, so no storage can be reserved for it on the host side.
	ErrMissingLayout = "MISSING_LAYOUT"

	// ErrCapabilityMismatch means the capabilities parsed in-process
	// disagree with the flags recorded at build time. The artifact is
	// stale relative to the source.
	ErrCapabilityMismatch = "CAPABILITY_MISMATCH"
)

// BindingError reports a failure to produce host bindings for a single
// invocation.
type BindingError struct {
	Code        string
	File        string
	Line        int
	Fingerprint string
	Message     string
}

func (e *BindingError) Error() string {
	if e.Fingerprint != "" {
		return fmt.Sprintf("%s:%d: %s: %s (fingerprint %s)", e.File, e.Line, e.Code, e.Message, e.Fingerprint)
	}
	return fmt.Sprintf("%s:%d: %s: %s", e.File, e.Line, e.Code, e.Message)
}

// IsBindingError reports whether err is a BindingError with the given code.
func IsBindingError(err error, code string) bool {
	var be *BindingError
	return errors.As(err, &be) && be.Code == code
}
