package dropbox

import (
	"errors"
	"fmt"
)

// ErrorKind classifies drop-box failures.
type ErrorKind string

const (
	// KindDirectory indicates a configured path is missing or not a directory.
	// Raised only during construction.
	KindDirectory ErrorKind = "DIRECTORY_INVALID"
	// KindPattern indicates the filename filter did not compile.
	KindPattern ErrorKind = "PATTERN_INVALID"
	// KindIO indicates a listing, enumeration or rename failure.
	KindIO ErrorKind = "IO"
	// KindClock indicates the system time could not be used to build a
	// disambiguation suffix.
	KindClock ErrorKind = "CLOCK_UNAVAILABLE"
	// KindInvalid indicates an internal precondition failed, such as a
	// path with no file name.
	KindInvalid ErrorKind = "INVALID"
)

// Error is returned by every drop-box operation.
type Error struct {
	Kind ErrorKind
	Path string
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Path != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Path, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	default:
		return fmt.Sprintf("%s: %s", e.Kind, e.Path)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsKind reports whether any error in err's chain is an *Error of kind.
func IsKind(err error, kind ErrorKind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}
