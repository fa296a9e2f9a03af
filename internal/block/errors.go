package block

import (
	"errors"
	"fmt"
)

// Grammar error codes (E100-E199).
const (
	// ErrUnexpectedToken is malformed structure: bad nesting, a missing
	// delimiter, or a token where none was expected.
	ErrUnexpectedToken = "E100"

	// ErrUnknownItem is an unrecognized item keyword inside a cpp! body.
	ErrUnknownItem = "E101"

	// ErrDuplicateCapture is a capture name bound twice in one closure.
	ErrDuplicateCapture = "E102"

	// ErrMissingAnnotation is a capture, field, or return type without its
	// native-type-string annotation.
	ErrMissingAnnotation = "E103"

	// ErrDuplicateField is a field name declared twice in one struct.
	ErrDuplicateField = "E104"

	// ErrDuplicateVariant is a variant name declared twice in one enum.
	ErrDuplicateVariant = "E105"

	// ErrUnknownCapability is an unrecognized class capability name.
	ErrUnknownCapability = "E106"

	// ErrUnknownDiscipline is an unrecognized enum emission discipline.
	ErrUnknownDiscipline = "E107"

	// ErrEmptyAggregate is a struct with no fields or an enum with no
	// variants.
	ErrEmptyAggregate = "E108"
)

// GrammarError reports a malformed invocation body.
// Grammar errors abort the build-time pass immediately with file/span
// attribution.
type GrammarError struct {
	Code    string
	File    string
	Line    int
	Message string
}

// Error implements the error interface.
func (e *GrammarError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s:%d: [%s] %s", e.File, e.Line, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: [%s] %s", e.File, e.Code, e.Message)
}

// IsGrammarError returns true if err is or wraps a *GrammarError.
func IsGrammarError(err error) bool {
	var ge *GrammarError
	return errors.As(err, &ge)
}
