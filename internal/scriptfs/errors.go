package scriptfs

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"syscall"
)

// Sentinel errors for the classified failure modes of the scripts filesystem.
// Operations wrap these with %w so callers can test with errors.Is.
var (
	// ErrNotFound indicates the path does not exist.
	ErrNotFound = errors.New("file not found")
	// ErrIsDirectory indicates a file operation was attempted on a directory.
	ErrIsDirectory = errors.New("path is a directory")
	// ErrExists indicates the target already exists and overwrite was not permitted.
	ErrExists = errors.New("file already exists")
	// ErrPermission indicates the operation was denied by the OS.
	ErrPermission = errors.New("permission denied")
)

// Classify maps an OS-level error to one of the sentinel errors above,
// preserving the original error in the chain. Errors that do not match a
// known class pass through unchanged.
func Classify(path string, err error) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, fs.ErrNotExist) || errors.Is(err, syscall.ENOENT):
		return fmt.Errorf("%w: %s (%v)", ErrNotFound, path, err)
	case errors.Is(err, syscall.EISDIR):
		return fmt.Errorf("%w: %s (%v)", ErrIsDirectory, path, err)
	case errors.Is(err, fs.ErrExist) || errors.Is(err, syscall.EEXIST) || errors.Is(err, syscall.ENOTEMPTY):
		return fmt.Errorf("%w: %s (%v)", ErrExists, path, err)
	case errors.Is(err, fs.ErrPermission) || errors.Is(err, syscall.EACCES) || errors.Is(err, syscall.EPERM):
		return fmt.Errorf("%w: %s (%v)", ErrPermission, path, err)
	default:
		return err
	}
}

// ErrorKind returns the wire name for a classified error, used by the host
// bridge when reporting failures to the editor frontend.
func ErrorKind(err error) string {
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, os.ErrNotExist):
		return "not_found"
	case errors.Is(err, ErrIsDirectory):
		return "is_directory"
	case errors.Is(err, ErrExists):
		return "exists"
	case errors.Is(err, ErrPermission):
		return "permission"
	default:
		return "unknown"
	}
}
