// Package fs provides the FUSE view over the backing store.
//
// This file contains error types and error handling utilities.
package fs

import (
	"errors"
	"fmt"
	"os"
	"syscall"

	"nlinkfs/internal/logging"
)

var (
	errLogger = logging.GetLogger().WithPrefix("error")

	// ErrNotALink indicates a link-target query on a path that is not an
	// emulated link
	ErrNotALink = errors.New("not an emulated link")

	// ErrShortWrite indicates a sentinel file was only partially written
	ErrShortWrite = errors.New("short write on sentinel file")
)

// Error wraps filesystem errors with context about the operation and
// affected path.
type Error struct {
	Op   string // Operation that failed (e.g., "readlink", "symlink")
	Path string // Affected virtual path
	Err  error  // Underlying error
}

// Error implements the error interface, providing a formatted error message
func (e *Error) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("operation %s failed: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("operation %s on %s failed: %v", e.Op, e.Path, e.Err)
}

// Unwrap implements error unwrapping for the errors.Is/As functions
func (e *Error) Unwrap() error {
	return e.Err
}

// ToFuseError converts an error into the errno the FUSE layer should report.
// Storage errors carry their operating-system error code through verbatim;
// only errors with no errno anywhere in their chain collapse to EIO.
func ToFuseError(err error) error {
	if err == nil {
		return nil
	}

	var errno syscall.Errno
	if errors.As(err, &errno) {
		errLogger.Trace("Propagating storage errno: %v", errno)
		return errno
	}

	switch {
	case errors.Is(err, ErrNotALink):
		return syscall.EINVAL
	case errors.Is(err, ErrShortWrite):
		return syscall.EIO
	case errors.Is(err, os.ErrNotExist):
		return syscall.ENOENT
	case errors.Is(err, os.ErrPermission):
		return syscall.EACCES
	case errors.Is(err, os.ErrExist):
		return syscall.EEXIST
	default:
		errLogger.Debug("Unknown error type, returning EIO: %v", err)
		return syscall.EIO
	}
}

// NewFSError creates a new Error with the given operation, path, and
// underlying error
func NewFSError(op string, path string, err error) *Error {
	fsErr := &Error{
		Op:   op,
		Path: path,
		Err:  err,
	}
	errLogger.Debug("Created new error: %v", fsErr)
	return fsErr
}

// Common operation names for consistent logging and error reporting
const (
	OpLookup   = "lookup"   // Looking up a path
	OpReadDir  = "readdir"  // Reading directory contents
	OpReadlink = "readlink" // Reading a link target
	OpSymlink  = "symlink"  // Creating an emulated link
	OpOpen     = "open"     // Opening a file
	OpRemove   = "remove"   // Removing a file, link, or directory
	OpRename   = "rename"   // Renaming/moving an entry
	OpSetattr  = "setattr"  // Setting attributes
	OpGetattr  = "getattr"  // Getting attributes
)
