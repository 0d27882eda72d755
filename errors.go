// errors.go
package pgformula

import (
	"github.com/arc-language/pgformula/pkg/fetch"
	"github.com/arc-language/pgformula/pkg/platform"
	"github.com/arc-language/pgformula/pkg/registry"
)

// Failures callers commonly branch on. They are the package-level errors
// of the steps that produce them, so errors.Is works on either name.
var (
	ErrFormulaNotFound      = registry.ErrNotFound
	ErrHashMismatch         = fetch.ErrHashMismatch
	ErrPlatformNotSupported = platform.ErrUnsupportedOS
)

// Error records which Manager step failed, and for which formula
type Error struct {
	Op      string // step name such as "fetch" or "build"
	Formula string // empty when the step is not tied to one formula
	Err     error
}

// Error formats as "formula: op: cause", leaving out empty parts
func (e *Error) Error() string {
	msg := e.Op
	if e.Formula != "" {
		msg = e.Formula + ": " + msg
	}
	if e.Err == nil {
		return msg + " failed"
	}
	return msg + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }
