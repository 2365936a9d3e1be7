package exodus

import (
	"errors"
	"fmt"

	"github.com/reconquest/karma-go"
)

// Error kinds, match them with errors.Is.
var (
	ErrNotFound = errors.New("not found")
	ErrFormat   = errors.New("invalid exodus file")
	ErrLookup   = errors.New("lookup failed")
	ErrClosed   = errors.New("reader is closed")
)

type Error struct {
	Kind    error
	Message string
	Reason  error
}

func newError(kind error, reason error, format string, args ...interface{}) *Error {
	return &Error{
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
		Reason:  reason,
	}
}

func (err *Error) Error() string {
	if err.Reason == nil {
		return err.Message
	}

	return karma.Format(err.Reason, "%s", err.Message).Error()
}

func (err *Error) Unwrap() []error {
	if err.Reason == nil {
		return []error{err.Kind}
	}

	return []error{err.Kind, err.Reason}
}
