// ABOUTME: Error values returned by the decoder
// ABOUTME: Wraps codec failures in a path-carrying Error that matches ErrDecode
package decode

import (
	"errors"
	"fmt"
)

var (
	// ErrDecode matches every *Error with errors.Is
	ErrDecode = errors.New("decode failed")

	ErrNotFound          = errors.New("file not found")
	ErrUnsupportedFormat = errors.New("unsupported audio format")
	ErrEmptyStream       = errors.New("no audio frames decoded")
)

// Error describes a failed decode of one file
type Error struct {
	Path string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("decode %s: %v", e.Path, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is lets errors.Is(err, ErrDecode) match any decode failure
func (e *Error) Is(target error) bool {
	return target == ErrDecode
}

func newError(path string, err error) *Error {
	return &Error{Path: path, Err: err}
}
