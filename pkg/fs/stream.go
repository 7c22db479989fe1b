package fs

import (
	"io"
	"sync"
)

// Reader is a sequential byte stream over an open native handle.
//
// A Reader owns its handle exclusively: it is created only around a handle
// the adapter has already validated, and Close releases the handle exactly
// once regardless of how many times it is called. The cluster does its own
// read-ahead and buffering, so the Reader adds none.
type Reader struct {
	fs   *FileSystem
	fd   int
	path string
	size int64

	mu     sync.Mutex
	pos    int64
	closed bool
}

func newReader(f *FileSystem, fd int, path string, size int64) *Reader {
	return &Reader{fs: f, fd: fd, path: path, size: size}
}

// Size returns the file size captured at open time.
func (r *Reader) Size() int64 {
	return r.size
}

// Path returns the canonical path the Reader was opened on.
func (r *Reader) Path() string {
	return r.path
}

// Read implements io.Reader. A negative native result translates to
// ErrOperationFailed; a zero-byte native read reports io.EOF.
func (r *Reader) Read(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return 0, newError(ErrOperationFailed, "read", r.path, "stream is closed")
	}
	if len(p) == 0 {
		return 0, nil
	}

	n := r.fs.client.Read(r.fd, p)
	if n < 0 {
		return 0, newErrno(ErrOperationFailed, "read", r.path, "native read failed", -n)
	}
	if n == 0 {
		return 0, io.EOF
	}
	r.pos += int64(n)
	return n, nil
}

// Close releases the native handle. Safe to call more than once; the
// handle is closed exactly the first time.
func (r *Reader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	r.closed = true

	rc := r.fs.client.Close(r.fd)
	r.fs.handleClosed()
	if rc < 0 {
		return newErrno(ErrOperationFailed, "close", r.path, "native close failed", -rc)
	}
	return nil
}

// Writer is a sequential byte sink over an open native handle, used for
// both create (overwrite) and append streams.
//
// Ownership matches Reader: one handle, closed exactly once.
type Writer struct {
	fs   *FileSystem
	fd   int
	path string

	mu      sync.Mutex
	written int64
	closed  bool
}

func newWriter(f *FileSystem, fd int, path string) *Writer {
	return &Writer{fs: f, fd: fd, path: path}
}

// Path returns the canonical path the Writer was opened on.
func (w *Writer) Path() string {
	return w.path
}

// Written returns the number of bytes accepted so far.
func (w *Writer) Written() int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.written
}

// Write implements io.Writer. A short or negative native write translates
// to ErrOperationFailed.
func (w *Writer) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return 0, newError(ErrOperationFailed, "write", w.path, "stream is closed")
	}
	if len(p) == 0 {
		return 0, nil
	}

	n := w.fs.client.Write(w.fd, p)
	if n < 0 {
		return 0, newErrno(ErrOperationFailed, "write", w.path, "native write failed", -n)
	}
	w.written += int64(n)
	if n < len(p) {
		return n, newError(ErrOperationFailed, "write", w.path, "short native write")
	}
	return n, nil
}

// Close releases the native handle. Safe to call more than once; the
// handle is closed exactly the first time.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true

	rc := w.fs.client.Close(w.fd)
	w.fs.handleClosed()
	if rc < 0 {
		return newErrno(ErrOperationFailed, "close", w.path, "native close failed", -rc)
	}
	return nil
}

// Interface assertions: streams are handed to I/O collaborators as plain
// reader/writer values.
var (
	_ io.ReadCloser  = (*Reader)(nil)
	_ io.WriteCloser = (*Writer)(nil)
)
