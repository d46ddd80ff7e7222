package flac

import "github.com/coreflac/flac/internal/ferr"

// Kind categorizes a decode error.
type Kind = ferr.Kind

// Error kinds surfaced by this package. See internal/ferr for the
// meaning of each.
const (
	UnexpectedEOF      = ferr.UnexpectedEOF
	InvalidData        = ferr.InvalidData
	InvariantViolation = ferr.InvariantViolation
	IOError            = ferr.IOError
)

// Error is the single error type this package raises: a Kind tag plus a
// human-readable message and, for IOError, the underlying cause.
type Error = ferr.Error

// IsKind reports whether err is a decode *Error of the given Kind.
func IsKind(err error, kind Kind) bool {
	return ferr.Is(err, kind)
}
