package fs

import (
	"os"
	"time"
)

// Exists reports whether a path names any cluster object. The root always
// exists.
func (f *FileSystem) Exists(p string) (ok bool, err error) {
	const op = "exists"
	start := time.Now()
	defer func() { f.observe(op, start, err) }()

	if err = f.ensureReady(op); err != nil {
		return false, err
	}
	abs := f.resolvePath(p)
	if abs == Root {
		return true, nil
	}
	return f.client.Exists(abs), nil
}

// IsFile reports whether a path names a regular file. The root is never a
// file.
func (f *FileSystem) IsFile(p string) (ok bool, err error) {
	const op = "isFile"
	start := time.Now()
	defer func() { f.observe(op, start, err) }()

	if err = f.ensureReady(op); err != nil {
		return false, err
	}
	abs := f.resolvePath(p)
	if abs == Root {
		return false, nil
	}
	return f.client.IsFile(abs), nil
}

// IsDirectory reports whether a path names a directory. The root always is.
func (f *FileSystem) IsDirectory(p string) (ok bool, err error) {
	const op = "isDirectory"
	start := time.Now()
	defer func() { f.observe(op, start, err) }()

	if err = f.ensureReady(op); err != nil {
		return false, err
	}
	abs := f.resolvePath(p)
	if abs == Root {
		return true, nil
	}
	return f.client.IsDirectory(abs), nil
}

// Mkdirs creates a directory and any missing parents in one native call.
//
// Any portion of the chain may already exist without error; the native
// client resolves the chain internally, so the adapter offers no atomicity
// across it. Returns true on success (including "already fully exists" from
// a repeated call reported as success by the client), false otherwise.
func (f *FileSystem) Mkdirs(p string, perm os.FileMode) (ok bool, err error) {
	const op = "mkdirs"
	start := time.Now()
	defer func() { f.observe(op, start, err) }()

	if err = f.ensureReady(op); err != nil {
		return false, err
	}
	abs := f.resolvePath(p)

	rc := f.client.Mkdirs(abs, uint32(perm.Perm()))
	f.debugf("mkdirs: %s -> %d", abs, rc)
	return rc == 0, nil
}

// ListStatus returns the status of every entry of a directory.
//
// The native listing excludes "." and "..". Each raw entry (relative or
// already absolute) is converted to a canonical path and stat'ed.
//
// When the native listing refuses because the path is not a directory, the
// call falls back to a file check: a regular file yields (nil, nil) - the
// "single file, not a directory" signal, deliberately not an error - while
// a path that is neither file nor directory yields ErrNotFound. An empty
// directory yields an empty, non-nil slice.
func (f *FileSystem) ListStatus(p string) (statuses []FileStatus, err error) {
	const op = "listStatus"
	start := time.Now()
	defer func() { f.observe(op, start, err) }()

	if err = f.ensureReady(op); err != nil {
		return nil, err
	}
	abs := f.resolvePath(p)

	entries := f.client.ListDirectory(abs)
	if entries == nil {
		if abs != Root && f.client.IsFile(abs) {
			return nil, nil
		}
		return nil, newError(ErrNotFound, op, abs, "path does not exist")
	}

	statuses = make([]FileStatus, 0, len(entries))
	for _, name := range entries {
		child := childPath(abs, name)
		status, statErr := f.Stat(child)
		if statErr != nil {
			return nil, statErr
		}
		statuses = append(statuses, *status)
	}
	return statuses, nil
}

// ListStatusRecursive returns the status of every descendant of a
// directory, parents before children.
//
// The walk is iterative (explicit work list, no recursion) and stops on the
// first failure. The single-file and not-found signals match ListStatus.
// The walk is not fenced against concurrent mutation; a subtree changing
// underneath it can produce partial results.
func (f *FileSystem) ListStatusRecursive(p string) (statuses []FileStatus, err error) {
	const op = "listStatusRecursive"
	start := time.Now()
	defer func() { f.observe(op, start, err) }()

	if err = f.ensureReady(op); err != nil {
		return nil, err
	}
	abs := f.resolvePath(p)

	first, err := f.ListStatus(abs)
	if err != nil {
		return nil, err
	}
	if first == nil {
		return nil, nil
	}

	statuses = make([]FileStatus, 0, len(first))
	queue := make([]FileStatus, 0, len(first))
	queue = append(queue, first...)

	for len(queue) > 0 {
		entry := queue[0]
		queue = queue[1:]
		statuses = append(statuses, entry)

		if !entry.IsDir {
			continue
		}
		children, listErr := f.ListStatus(entry.Path)
		if listErr != nil {
			return nil, listErr
		}
		queue = append(queue, children...)
	}
	return statuses, nil
}

// Delete removes a path, and optionally its descendants.
//
// Deleting the root is refused with ErrIllegalOperation. A missing path
// returns false without error. A file is unlinked directly. A directory
// requires recursive=true (ErrNotEmpty otherwise) and is walked with an
// explicit post-order stack: children are deleted in listing order and the
// walk returns false on the first failure - no rollback, no continuation.
// Concurrent external mutation during the walk can leave partial deletions
// behind; that is a documented limitation, not a recoverable state.
func (f *FileSystem) Delete(p string, recursive bool) (ok bool, err error) {
	const op = "delete"
	start := time.Now()
	defer func() { f.observe(op, start, err) }()

	if err = f.ensureReady(op); err != nil {
		return false, err
	}
	abs := f.resolvePath(p)

	if abs == Root {
		return false, newError(ErrIllegalOperation, op, abs, "refusing to delete the root directory")
	}

	if !f.client.Exists(abs) {
		return false, nil
	}

	if f.client.IsFile(abs) {
		removed := f.client.Unlink(abs)
		if !removed {
			f.debugf("delete: failed to unlink %s", abs)
		}
		return removed, nil
	}

	if !recursive {
		return false, newError(ErrNotEmpty, op, abs, "directories must be deleted recursively")
	}

	// Post-order walk with an explicit stack: a directory is expanded
	// once, its children deleted first, then the directory itself.
	type frame struct {
		path     string
		expanded bool
	}
	stack := []frame{{path: abs}}

	for len(stack) > 0 {
		top := len(stack) - 1
		cur := stack[top]

		if f.client.IsFile(cur.path) {
			if !f.client.Unlink(cur.path) {
				f.debugf("delete: failed to unlink %s under %s", cur.path, abs)
				return false, nil
			}
			stack = stack[:top]
			continue
		}

		if !cur.expanded {
			stack[top].expanded = true
			children := f.client.ListDirectory(cur.path)
			if children == nil {
				f.debugf("delete: failed to list %s under %s", cur.path, abs)
				return false, nil
			}
			// Reverse push keeps deletion in listing order.
			for i := len(children) - 1; i >= 0; i-- {
				stack = append(stack, frame{path: childPath(cur.path, children[i])})
			}
			continue
		}

		if !f.client.Rmdir(cur.path) {
			f.debugf("delete: failed to remove directory %s", cur.path)
			return false, nil
		}
		stack = stack[:top]
	}

	return true, nil
}
