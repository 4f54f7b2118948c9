package scriptfs

import (
	"fmt"
	"os"
	"path/filepath"
)

// WriteOptions controls how WriteFile treats missing and existing targets.
type WriteOptions struct {
	// Create permits writing to a path that does not exist yet.
	Create bool
	// Overwrite permits replacing a path that already exists.
	Overwrite bool
}

// RenameOptions controls how Rename treats an existing target.
type RenameOptions struct {
	// Overwrite permits replacing an existing target, deleting it first.
	Overwrite bool
}

// StatPath returns a metadata snapshot for path. Symlinks are reported as
// symlinks, not followed. A missing path fails with ErrNotFound.
func StatPath(path string) (Stat, error) {
	info, err := os.Lstat(path)
	if err != nil {
		return Stat{}, Classify(path, err)
	}

	// Creation time is not portably available; mtime stands in for both,
	// which matches what the editor displays anyway.
	return Stat{
		Type:  classifyMode(info.Mode()),
		Size:  info.Size(),
		Ctime: info.ModTime(),
		Mtime: info.ModTime(),
	}, nil
}

// List returns the immediate children of dir as entries, statting each child
// individually. A per-child stat failure propagates; there is no
// partial-result suppression. The returned order is the directory order of
// the OS; callers that need the presentation order sort via tree.
func List(dir string) ([]Entry, error) {
	names, err := os.ReadDir(dir)
	if err != nil {
		return nil, Classify(dir, err)
	}

	entries := make([]Entry, 0, len(names))
	for _, de := range names {
		childPath := filepath.Join(dir, de.Name())
		info, err := os.Lstat(childPath)
		if err != nil {
			return nil, Classify(childPath, err)
		}
		entries = append(entries, Entry{
			Name: de.Name(),
			Path: childPath,
			Type: classifyMode(info.Mode()),
		})
	}
	return entries, nil
}

// ReadFile returns the contents of path. Reading a directory fails with
// ErrIsDirectory, a missing path with ErrNotFound.
func ReadFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, Classify(path, err)
	}
	return data, nil
}

// WriteFile writes data to path, honoring the create/overwrite permissions:
// a missing target without Create fails with ErrNotFound, an existing target
// without Overwrite fails with ErrExists. Parent directories are created on
// demand before the write.
func WriteFile(path string, data []byte, opts WriteOptions) error {
	info, err := os.Lstat(path)
	switch {
	case err == nil:
		if info.IsDir() {
			return fmt.Errorf("%w: %s", ErrIsDirectory, path)
		}
		if !opts.Overwrite {
			return fmt.Errorf("%w: %s", ErrExists, path)
		}
	case os.IsNotExist(err):
		if !opts.Create {
			return fmt.Errorf("%w: %s", ErrNotFound, path)
		}
	default:
		return Classify(path, err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return Classify(path, err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return Classify(path, err)
	}
	return nil
}

// CreateDirectory creates path and any missing intermediate directories. An
// existing directory is success (idempotent); an existing non-directory fails
// with ErrExists.
func CreateDirectory(path string) error {
	info, err := os.Lstat(path)
	if err == nil {
		if info.IsDir() {
			return nil
		}
		return fmt.Errorf("%w: %s is not a directory", ErrExists, path)
	}
	if !os.IsNotExist(err) {
		return Classify(path, err)
	}

	if err := os.MkdirAll(path, 0755); err != nil {
		return Classify(path, err)
	}
	return nil
}

// Delete removes path. Files are unlinked directly; directories are deleted
// depth-first, children before the directory itself. Sibling order does not
// matter for a clean subtree. A child that disappears between listing and
// deletion surfaces as ErrNotFound; this race is a known edge, not swallowed.
func Delete(path string) error {
	info, err := os.Lstat(path)
	if err != nil {
		return Classify(path, err)
	}

	if !info.IsDir() {
		if err := os.Remove(path); err != nil {
			return Classify(path, err)
		}
		return nil
	}

	children, err := os.ReadDir(path)
	if err != nil {
		return Classify(path, err)
	}
	for _, child := range children {
		if err := Delete(filepath.Join(path, child.Name())); err != nil {
			return err
		}
	}

	if err := os.Remove(path); err != nil {
		return Classify(path, err)
	}
	return nil
}

// Rename moves oldPath to newPath. An existing target without Overwrite fails
// with ErrExists and leaves both paths unchanged; with Overwrite the target's
// entire subtree is deleted first. The target's parent directory is created
// if missing before the low-level rename.
func Rename(oldPath, newPath string, opts RenameOptions) error {
	if _, err := os.Lstat(oldPath); err != nil {
		return Classify(oldPath, err)
	}

	if _, err := os.Lstat(newPath); err == nil {
		if !opts.Overwrite {
			return fmt.Errorf("%w: %s", ErrExists, newPath)
		}
		if err := Delete(newPath); err != nil {
			return err
		}
	} else if !os.IsNotExist(err) {
		return Classify(newPath, err)
	}

	if err := os.MkdirAll(filepath.Dir(newPath), 0755); err != nil {
		return Classify(newPath, err)
	}
	if err := os.Rename(oldPath, newPath); err != nil {
		return Classify(newPath, err)
	}
	return nil
}
