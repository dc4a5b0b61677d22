package timing

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound means the referenced entry, timing point or event does
	// not exist; the caller should refresh its view.
	ErrNotFound = errors.New("not found")

	// ErrValidation means a required field is missing or malformed; the
	// caller must correct the input, retrying does not help.
	ErrValidation = errors.New("validation failed")
)

func validationf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrValidation}, args...)...)
}

func notFoundf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrNotFound}, args...)...)
}
