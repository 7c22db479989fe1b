package fs

import (
	"math"
	"os"
	"time"

	"github.com/clusterfs/clusterfs/pkg/native"
)

// CreateFlag controls Create behavior.
type CreateFlag int

const (
	// CreateOverwrite allows Create to truncate an existing file.
	CreateOverwrite CreateFlag = 1 << iota
)

// Progress is an optional callback invoked by Create at each phase
// (pre-open, post-parent-creation, post-open). It exists purely for caller
// feedback and affects no control flow.
type Progress func()

// Create creates a file and returns a Writer connected to it.
//
// An existing directory at the path fails with ErrIsDirectory; an existing
// file without CreateOverwrite fails with ErrAlreadyExists. A missing
// parent chain is created first, tolerating a concurrent "already exists"
// outcome from the native client but failing on any other non-zero result.
// The native handle is opened in overwrite mode; a negative handle fails
// with ErrOperationFailed.
func (f *FileSystem) Create(p string, perm os.FileMode, flags CreateFlag, progress Progress) (w *Writer, err error) {
	const op = "create"
	start := time.Now()
	defer func() { f.observe(op, start, err) }()

	if err = f.ensureReady(op); err != nil {
		return nil, err
	}
	abs := f.resolvePath(p)

	if progress != nil {
		progress()
	}

	exists := abs == Root || f.client.Exists(abs)
	if exists {
		if abs == Root || f.client.IsDirectory(abs) {
			return nil, newError(ErrIsDirectory, op, abs, "cannot overwrite a directory with a file")
		}
		if flags&CreateOverwrite == 0 {
			return nil, newError(ErrAlreadyExists, op, abs, "file exists and overwrite flag is absent")
		}
	}

	mode := uint32(perm.Perm())

	if !exists {
		if parent := parentPath(abs); parent != "" {
			rc := f.client.Mkdirs(parent, mode)
			// A concurrent creator of the same chain is tolerated.
			if rc != 0 && rc != -native.EEXIST {
				return nil, newErrno(ErrOperationFailed, op, parent, "failed to create parent directories", -rc)
			}
		}
		if progress != nil {
			progress()
		}
	}

	fd := f.client.OpenForOverwrite(abs, mode)
	if progress != nil {
		progress()
	}
	if fd < 0 {
		return nil, newErrno(ErrOperationFailed, op, abs, "open for overwrite failed", -fd)
	}
	f.handleOpened()

	f.debugf("create: opened %s with fd %d", abs, fd)
	return newWriter(f, fd, abs), nil
}

// Append opens an existing file for appending and returns a Writer.
//
// Any negative handle - missing file or a cluster that cannot append -
// fails with ErrOperationFailed.
func (f *FileSystem) Append(p string) (w *Writer, err error) {
	const op = "append"
	start := time.Now()
	defer func() { f.observe(op, start, err) }()

	if err = f.ensureReady(op); err != nil {
		return nil, err
	}
	abs := f.resolvePath(p)

	fd := f.client.OpenForAppend(abs)
	if fd < 0 {
		return nil, newErrno(ErrOperationFailed, op, abs, "open for append failed", -fd)
	}
	f.handleOpened()

	return newWriter(f, fd, abs), nil
}

// Open opens a file for reading and returns a Reader that knows the file
// size.
//
// A missing path fails with ErrNotFound; any other negative handle with
// ErrOperationFailed. The native client permits opening directories but the
// abstraction forbids it: a directory detected after the open is closed
// again before ErrIsDirectory is surfaced, so the handle never leaks. A
// file that opens but reports a negative size is treated as an invariant
// violation (ErrOperationFailed), not a normal error.
func (f *FileSystem) Open(p string) (r *Reader, err error) {
	const op = "open"
	start := time.Now()
	defer func() { f.observe(op, start, err) }()

	if err = f.ensureReady(op); err != nil {
		return nil, err
	}
	abs := f.resolvePath(p)

	fd := f.client.OpenForRead(abs)
	if fd < 0 {
		if fd == -native.ENOENT {
			return nil, newErrno(ErrNotFound, op, abs, "path does not exist", native.ENOENT)
		}
		return nil, newErrno(ErrOperationFailed, op, abs, "open for read failed", -fd)
	}
	f.handleOpened()

	// Scoped release: the handle is closed on every error path below;
	// only a successful return hands it off to the Reader.
	handedOff := false
	defer func() {
		if !handedOff {
			f.client.Close(fd)
			f.handleClosed()
		}
	}()

	if abs == Root || f.client.IsDirectory(abs) {
		return nil, newError(ErrIsDirectory, op, abs, "path is a directory")
	}

	var st native.Stat
	if !f.client.Stat(abs, &st) || st.Size < 0 {
		return nil, newError(ErrOperationFailed, op, abs, "file opened but size unknown")
	}

	handedOff = true
	f.debugf("open: %s fd %d size %d", abs, fd, st.Size)
	return newReader(f, fd, abs, st.Size), nil
}

// Rename moves a file or directory.
//
// Both paths are resolved and one native rename is issued; its boolean
// result is returned directly. The adapter validates nothing about the
// src/dst relationship beyond what the native client itself enforces.
func (f *FileSystem) Rename(src, dst string) (ok bool, err error) {
	const op = "rename"
	start := time.Now()
	defer func() { f.observe(op, start, err) }()

	if err = f.ensureReady(op); err != nil {
		return false, err
	}
	absSrc := f.resolvePath(src)
	absDst := f.resolvePath(dst)

	return f.client.Rename(absSrc, absDst), nil
}

// SetPermission changes the permission bits of a path. A native refusal
// fails with ErrOperationFailed.
func (f *FileSystem) SetPermission(p string, perm os.FileMode) (err error) {
	const op = "setPermission"
	start := time.Now()
	defer func() { f.observe(op, start, err) }()

	if err = f.ensureReady(op); err != nil {
		return err
	}
	abs := f.resolvePath(p)

	if !f.client.SetPermission(abs, uint32(perm.Perm())) {
		return newError(ErrOperationFailed, op, abs, "failed to set permission")
	}
	return nil
}

// SetTimes updates the modification and access times of a path. A negative
// native result fails with ErrOperationFailed carrying the native code.
func (f *FileSystem) SetTimes(p string, mtime, atime time.Time) (err error) {
	const op = "setTimes"
	start := time.Now()
	defer func() { f.observe(op, start, err) }()

	if err = f.ensureReady(op); err != nil {
		return err
	}
	abs := f.resolvePath(p)

	if rc := f.client.SetTimes(abs, mtime.UnixMilli(), atime.UnixMilli()); rc < 0 {
		return newErrno(ErrOperationFailed, op, abs, "failed to set times", -rc)
	}
	return nil
}

// BlockLocations returns one BlockLocation per block of the given file
// within [start, start+length).
//
// A fresh handle is opened on the file and closed before returning, on
// every path; a negative open yields an empty result, not an error. The
// block count is ceil((length-start)/blockSize) - the count subtracts start
// from length rather than treating length as a pure span, and each location
// reports a full block length. Callers relying on exact trailing-block
// extents must derive them from the file size.
func (f *FileSystem) BlockLocations(file *FileStatus, start, length int64) (locations []BlockLocation, err error) {
	const op = "getFileBlockLocations"
	opStart := time.Now()
	defer func() { f.observe(op, opStart, err) }()

	if err = f.ensureReady(op); err != nil {
		return nil, err
	}
	if file == nil {
		return nil, newError(ErrOperationFailed, op, "", "file status is required")
	}
	abs := f.resolvePath(file.Path)

	fd := f.client.OpenForRead(abs)
	if fd < 0 {
		return []BlockLocation{}, nil
	}
	f.handleOpened()
	defer func() {
		f.client.Close(fd)
		f.handleClosed()
	}()

	blockSize := f.client.GetBlockSize(abs)
	if blockSize <= 0 {
		return nil, newError(ErrOperationFailed, op, abs, "native client reported a non-positive block size")
	}

	count := int(math.Ceil(float64(length-start) / float64(blockSize)))
	if count < 0 {
		count = 0
	}

	locations = make([]BlockLocation, 0, count)
	for i := 0; i < count; i++ {
		offset := start + int64(i)*blockSize
		host := f.client.HostsForBlock(fd, offset)
		locations = append(locations, BlockLocation{
			Hosts:  []string{host},
			Offset: offset,
			Length: blockSize,
		})
	}
	return locations, nil
}
