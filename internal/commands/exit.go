package commands

import (
	"errors"
	"fmt"
	"io"

	"shoplist/internal/exitcode"
	"shoplist/internal/list"
)

// ExitCode maps an error returned by the list controller to an exit code.
func ExitCode(err error) int {
	var ve *list.ValidationError
	switch {
	case err == nil:
		return exitcode.Success
	case errors.As(err, &ve),
		errors.Is(err, list.ErrItemNotFound),
		errors.Is(err, list.ErrNothingSelected),
		errors.Is(err, list.ErrUnknownFilter):
		return exitcode.UserError
	case errors.Is(err, list.ErrAuthRequired),
		errors.Is(err, list.ErrInvalidCredential):
		return exitcode.AuthError
	default:
		return exitcode.BackendError
	}
}

// Fail prints err to errOut and returns its exit code.
func Fail(errOut io.Writer, err error) int {
	var se *list.StoreError
	switch {
	case errors.As(err, &se):
		fmt.Fprintf(errOut, "error: backend error: %v\n", err)
	case errors.Is(err, list.ErrAuthRequired):
		fmt.Fprintln(errOut, "error: not logged in (run: shoplist login)")
	default:
		fmt.Fprintf(errOut, "error: %v\n", err)
	}
	return ExitCode(err)
}
