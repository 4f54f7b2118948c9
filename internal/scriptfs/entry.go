// Package scriptfs implements the scripts folder filesystem: stat and
// read/write operations with classified errors, recursive delete, idempotent
// directory creation, rename with overwrite semantics, and a change watcher.
//
// The package is the native side of an editor file-system provider: the
// editor's generic filesystem layer calls into these operations so the
// scripts root can be browsed and edited as if it were a mounted filesystem.
package scriptfs

import (
	"io/fs"
	"time"
)

// EntryType is the coarse classification of a filesystem object.
type EntryType int

const (
	// TypeUnknown is anything that is not a file, directory, or symlink.
	TypeUnknown EntryType = iota
	// TypeFile is a regular file.
	TypeFile
	// TypeDirectory is a directory.
	TypeDirectory
	// TypeSymbolicLink is a symbolic link.
	TypeSymbolicLink
)

// String returns a human-readable representation of the entry type.
func (t EntryType) String() string {
	switch t {
	case TypeFile:
		return "file"
	case TypeDirectory:
		return "directory"
	case TypeSymbolicLink:
		return "symlink"
	default:
		return "unknown"
	}
}

// classifyMode maps a file mode to an EntryType. Symlinks win over the
// underlying target type because listings use Lstat.
func classifyMode(mode fs.FileMode) EntryType {
	switch {
	case mode&fs.ModeSymlink != 0:
		return TypeSymbolicLink
	case mode.IsDir():
		return TypeDirectory
	case mode.IsRegular():
		return TypeFile
	default:
		return TypeUnknown
	}
}

// Entry is one filesystem object as shown in the scripts tree: a path plus a
// coarse type tag. Entries are constructed fresh on each listing and never
// mutated; the next listing supersedes them.
type Entry struct {
	// Name is the base name of the entry.
	Name string `json:"name"`
	// Path is the absolute path of the entry.
	Path string `json:"path"`
	// Type is the coarse classification.
	Type EntryType `json:"type"`
}

// IsDir reports whether the entry is a directory.
func (e Entry) IsDir() bool {
	return e.Type == TypeDirectory
}

// Stat is a read-only snapshot of one path's metadata. It is recomputed on
// every query and never cached across calls.
type Stat struct {
	// Type is the coarse classification.
	Type EntryType `json:"type"`
	// Size is the file size in bytes (0 for directories on some platforms).
	Size int64 `json:"size"`
	// Ctime is the creation (or status-change) time.
	Ctime time.Time `json:"ctime"`
	// Mtime is the last modification time.
	Mtime time.Time `json:"mtime"`
}
