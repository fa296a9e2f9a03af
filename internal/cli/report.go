package cli

import (
	"errors"

	"github.com/mystor/cppbind/internal/binding"
	"github.com/mystor/cppbind/internal/block"
	"github.com/mystor/cppbind/internal/token"
	"github.com/mystor/cppbind/internal/toolchain"
)

// reportLoadError prints a manifest/loader failure and maps it to the
// command-error exit code.
func reportLoadError(f *OutputFormatter, err error) error {
	var le *LoadError
	if errors.As(err, &le) {
		f.Error(le.Code, le.Message, nil)
		return WrapExitError(ExitCommandError, le.Message, err)
	}
	f.Error(ErrCodeGeneric, err.Error(), nil)
	return WrapExitError(ExitCommandError, err.Error(), err)
}

// reportPassError prints a scan/grammar/binding/toolchain failure with its
// own error code and maps it to the build-failure exit code.
func reportPassError(f *OutputFormatter, err error) error {
	code := ErrCodeGeneric

	var se *token.ScanError
	var ge *block.GrammarError
	var be *binding.BindingError
	var te *toolchain.ToolchainError
	switch {
	case errors.As(err, &se):
		code = string(se.Code)
	case errors.As(err, &ge):
		code = ge.Code
	case errors.As(err, &be):
		code = be.Code
	case errors.As(err, &te):
		code = "TOOLCHAIN"
	}

	f.Error(code, err.Error(), nil)
	return WrapExitError(ExitFailure, err.Error(), err)
}
