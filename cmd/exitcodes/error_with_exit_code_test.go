package exitcodes

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestGetInnerErrorAndExitCode(t *testing.T) {
	err, code := GetInnerErrorAndExitCode(nil)
	assert.NoError(t, err)
	assert.Equal(t, ExitCodeSuccess, code)

	generic := errors.New("generic")
	err, code = GetInnerErrorAndExitCode(generic)
	assert.Equal(t, generic, err)
	assert.Equal(t, ExitCodeGeneralError, code)

	inner := errors.New("trial failed")
	err, code = GetInnerErrorAndExitCode(NewErrorWithExitCode(inner, ExitCodeTestFailed))
	assert.Equal(t, inner, err)
	assert.Equal(t, ExitCodeTestFailed, code)

	// Wrapped errors keep their exit code
	err, code = GetInnerErrorAndExitCode(errors.WithMessage(NewErrorWithExitCode(inner, ExitCodeFuzzerError), "campaign"))
	assert.Equal(t, inner, err)
	assert.Equal(t, ExitCodeFuzzerError, code)
}

func TestErrorWithExitCodeUnwrap(t *testing.T) {
	inner := errors.New("inner")
	err := NewErrorWithExitCode(inner, ExitCodeHandledError)
	assert.ErrorIs(t, err, inner)
	assert.Equal(t, "inner", err.Error())
	assert.Equal(t, ExitCodeHandledError, err.ExitCode())
	assert.Equal(t, "", NewErrorWithExitCode(nil, ExitCodeTestFailed).Error())
}
