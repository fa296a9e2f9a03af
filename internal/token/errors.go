package token

import (
	"errors"
	"fmt"
)

// ScanError reports a failure while reading or tokenizing host source.
//
// Scan errors abort the build-time pass immediately. The in-process pass has
// no equivalent failure mode: it consumes a syntax tree the host compiler
// already accepted.
type ScanError struct {
	// Code identifies the error category.
	Code ScanErrorCode

	// Path is the source file being scanned.
	Path string

	// Line is the 1-indexed line where scanning failed (0 if unknown).
	Line int

	// Message is a human-readable description.
	Message string

	// Err is the underlying error, if any (e.g. an *fs.PathError).
	Err error
}

// ScanErrorCode categorizes scan errors.
type ScanErrorCode string

const (
	// ErrCodeFileNotFound indicates a source file could not be opened.
	ErrCodeFileNotFound ScanErrorCode = "FILE_NOT_FOUND"

	// ErrCodeModuleNotFound indicates a module declaration resolved to no
	// file on disk.
	ErrCodeModuleNotFound ScanErrorCode = "MODULE_NOT_FOUND"

	// ErrCodeUnterminatedLiteral indicates a string, raw string, or char
	// literal ran past end of file.
	ErrCodeUnterminatedLiteral ScanErrorCode = "UNTERMINATED_LITERAL"

	// ErrCodeUnterminatedComment indicates a block comment ran past end of
	// file.
	ErrCodeUnterminatedComment ScanErrorCode = "UNTERMINATED_COMMENT"

	// ErrCodeUnbalancedDelimiter indicates delimiter depth tracking ran past
	// end of file without closing.
	ErrCodeUnbalancedDelimiter ScanErrorCode = "UNBALANCED_DELIMITER"
)

// Error implements the error interface.
func (e *ScanError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s:%d: %s: %s", e.Path, e.Line, e.Code, e.Message)
	}
	if e.Path != "" {
		return fmt.Sprintf("%s: %s: %s", e.Path, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *ScanError) Unwrap() error { return e.Err }

// IsScanError returns true if err is or wraps a *ScanError.
func IsScanError(err error) bool {
	var se *ScanError
	return errors.As(err, &se)
}
