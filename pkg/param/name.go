package param

import (
	"errors"
	"fmt"
	"strings"
)

// MaxNameLen matches NAME_MAX on the common Linux filesystems.
const MaxNameLen = 255

// ErrInvalidName is returned for names that are not a single path element.
var ErrInvalidName = errors.New("invalid parameter name")

// ValidName reports whether name can be used as a parameter name, that is
// as a plain file name directly inside the base directory. Hidden names
// such as ".a.swp" are allowed.
func ValidName(name string) error {
	switch {
	case name == "":
		return fmt.Errorf("%w: empty", ErrInvalidName)
	case len(name) > MaxNameLen:
		return fmt.Errorf("%w: longer than %d bytes", ErrInvalidName, MaxNameLen)
	case name == "." || name == "..":
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	case strings.ContainsAny(name, "/\\\x00"):
		return fmt.Errorf("%w: %q contains a path separator or NUL", ErrInvalidName, name)
	}
	return nil
}
