// Package fat32err defines the closed error taxonomy every operation in this
// module reports failures through.
//
// It follows the same shape as the teacher's top-level DriverError: a
// sentinel kind plus an optional message, rather than one Go type per
// variant. That keeps call sites uniform (errors.Is against a package-level
// sentinel) while still letting InvalidCluster carry the offending cluster
// number in the message.
package fat32err

import (
	"errors"
	"fmt"

	"github.com/arlowen/fat32ro/blockdev"
)

// Kind is one member of the closed set of failures this module can return.
type Kind int

const (
	IO Kind = iota
	OutOfBounds
	InvalidBootSector
	NotFat32
	InvalidCluster
	InvalidPath
	NotFound
	IsDirectory
	IsNotDirectory
	BufferTooSmall
)

func (k Kind) String() string {
	switch k {
	case IO:
		return "I/O error"
	case OutOfBounds:
		return "out of bounds"
	case InvalidBootSector:
		return "invalid boot sector"
	case NotFat32:
		return "not a FAT32 volume"
	case InvalidCluster:
		return "invalid cluster"
	case InvalidPath:
		return "invalid path"
	case NotFound:
		return "not found"
	case IsDirectory:
		return "is a directory"
	case IsNotDirectory:
		return "is not a directory"
	case BufferTooSmall:
		return "buffer too small"
	default:
		return "unknown error"
	}
}

// Error wraps a Kind with an optional message, the way the teacher's
// DriverError wraps a syscall.Errno.
type Error struct {
	Kind    Kind
	message string
}

func (e *Error) Error() string {
	if e.message != "" {
		return e.message
	}
	return e.Kind.String()
}

// Is lets errors.Is(err, fat32err.ErrNotFat32) work against a constructed
// *Error that carries extra message detail, e.g. fat32err.Newf(InvalidCluster, ...).
func (e *Error) Is(target error) bool {
	other, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == other.Kind
}

// New creates an *Error of the given kind with a default message derived
// from the kind.
func New(kind Kind) *Error {
	return &Error{Kind: kind, message: kind.String()}
}

// Newf creates an *Error of the given kind with a custom formatted message.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, message: fmt.Sprintf("%s: %s", kind, fmt.Sprintf(format, args...))}
}

// Sentinels for errors.Is comparisons against a bare kind, e.g.
// errors.Is(err, fat32err.ErrNotFound).
var (
	ErrIO                = New(IO)
	ErrOutOfBounds       = New(OutOfBounds)
	ErrInvalidBootSector = New(InvalidBootSector)
	ErrNotFat32          = New(NotFat32)
	ErrInvalidCluster    = New(InvalidCluster)
	ErrInvalidPath       = New(InvalidPath)
	ErrNotFound          = New(NotFound)
	ErrIsDirectory       = New(IsDirectory)
	ErrIsNotDirectory    = New(IsNotDirectory)
	ErrBufferTooSmall    = New(BufferTooSmall)
)

// InvalidClusterError builds the InvalidCluster variant carrying the
// offending cluster number, as spec.md §4.2 requires.
func InvalidClusterError(cluster uint32, reason string) *Error {
	return Newf(InvalidCluster, "cluster %d: %s", cluster, reason)
}

// FromBlockDeviceError converts a blockdev.Error into the matching taxonomy
// member, mirroring original_source's impl From<BlockDeviceError> for
// Fat32Error.
func FromBlockDeviceError(err error) error {
	if err == nil {
		return nil
	}

	var bdErr *blockdev.Error
	if errors.As(err, &bdErr) {
		switch bdErr.Kind {
		case blockdev.OutOfBoundsError:
			return Newf(OutOfBounds, "%s", bdErr.Error())
		default:
			return Newf(IO, "%s", bdErr.Error())
		}
	}
	return Newf(IO, "%s", err.Error())
}
