package response

import (
	"errors"
	"net/http"
)

type Error struct {
	Code int
	Err  error
}

func (e *Error) Error() string {
	return e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	var t *Error
	ok := errors.As(target, &t)
	if !ok {
		return false
	}
	return e.Code == t.Code && e.Err.Error() == t.Err.Error()
}

func NewError(code int, err string) error {
	return &Error{code, errors.New(err)}
}

// StatusCode returns the code carried by err, or 500 when err is not a response error.
func StatusCode(err error) int {
	var respErr *Error
	if errors.As(err, &respErr) {
		return respErr.Code
	}
	return http.StatusInternalServerError
}
