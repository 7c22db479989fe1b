// Package native defines the call surface of the cluster's native client.
//
// The interface is deliberately low-level and C-flavored: operations return
// raw booleans and negative errno codes instead of Go errors. The adapter in
// pkg/fs owns the translation of these raw results into typed errors; nothing
// above that layer should ever see a raw code.
//
// Implementations in pkg/native/memory and pkg/native/badger provide an
// in-memory test/development cluster and an embedded persistent cluster.
// A cgo binding to a real cluster client library satisfies the same
// interface.
package native

// Errno values reported by the native client. Calls that return a file
// descriptor or a status code report failures as the negated errno
// (e.g. OpenForRead on a missing path returns -ENOENT).
const (
	ENOENT  = 2  // no such file or directory
	EIO     = 5  // input/output error
	EBADF   = 9  // bad file descriptor
	EEXIST  = 17 // file already exists
	ENOTDIR = 20 // not a directory
	EISDIR  = 21 // is a directory
	ENOTSUP = 95 // operation not supported
)

// Stat is the flat metadata record the native client fills on a stat call.
// Times are milliseconds since the Unix epoch.
type Stat struct {
	Size       int64
	IsDir      bool
	BlockSize  int64
	ModTime    int64
	AccessTime int64
	Mode       uint32
}

// StatFS is the flat filesystem-usage record filled by a statfs call.
// All values are bytes.
type StatFS struct {
	Capacity  int64
	Used      int64
	Remaining int64
}

// Client is one logical session with the storage cluster.
//
// A process holds at most one live session; the adapter's lifecycle manager
// owns it exclusively and every other component borrows it. Unless noted,
// path arguments are expected to be cluster-absolute; relative paths are
// resolved against the session's current working directory.
//
// Thread safety: implementations must tolerate concurrent calls on distinct
// file descriptors. The adapter never shares one descriptor across
// concurrent operations.
type Client interface {
	// Init starts the session. args is the assembled startup argument
	// string; blockSize is the default block size hint in bytes.
	// Returns false if the session could not be established.
	Init(args string, blockSize int64) bool

	// Shutdown terminates the session. All descriptors become invalid.
	Shutdown() bool

	// GetCwd returns the session's current working directory.
	GetCwd() string

	// SetCwd changes the session's current working directory.
	SetCwd(path string) bool

	// Mkdir creates a single directory. The parent must exist.
	Mkdir(path string, mode uint32) bool

	// Mkdirs creates a directory and any missing parents. Returns 0 on
	// success, -EEXIST if the full path already exists, or another
	// negated errno.
	Mkdirs(path string, mode uint32) int

	// Rmdir removes an empty directory.
	Rmdir(path string) bool

	// Unlink removes a file. Directories are refused.
	Unlink(path string) bool

	// Rename moves a file or directory tree.
	Rename(oldPath, newPath string) bool

	// Exists reports whether the path names any object.
	Exists(path string) bool

	// IsDirectory reports whether the path names a directory.
	IsDirectory(path string) bool

	// IsFile reports whether the path names a regular file.
	IsFile(path string) bool

	// GetBlockSize returns the block size in bytes for the path, or a
	// negative value if it cannot be determined.
	GetBlockSize(path string) int64

	// ListDirectory returns the entry names of a directory, excluding
	// "." and "..". Returns nil if the path is missing or not a
	// directory.
	ListDirectory(path string) []string

	// OpenForRead opens a file (or, in some clusters, a directory) for
	// sequential reads. Returns a descriptor >= 0 or a negated errno.
	OpenForRead(path string) int

	// OpenForAppend opens an existing file positioned at its end.
	// Returns a descriptor >= 0 or a negated errno.
	OpenForAppend(path string) int

	// OpenForOverwrite creates or truncates a file for writing. Returns
	// a descriptor >= 0 or a negated errno.
	OpenForOverwrite(path string, mode uint32) int

	// Read reads up to len(buf) bytes from the descriptor's current
	// position. Returns the byte count (0 at end of file) or a negated
	// errno.
	Read(fd int, buf []byte) int

	// Write writes len(buf) bytes at the descriptor's current position.
	// Returns the byte count or a negated errno.
	Write(fd int, buf []byte) int

	// Close releases a descriptor. Returns 0 or a negated errno.
	Close(fd int) int

	// SetPermission changes the permission bits of a path.
	SetPermission(path string, mode uint32) bool

	// Stat fills st with the path's metadata. Returns false if the path
	// cannot be resolved.
	Stat(path string, st *Stat) bool

	// StatFS fills st with cluster usage totals. Returns 0 or a negated
	// errno. The path argument is accepted for compatibility; clusters
	// may ignore it.
	StatFS(path string, st *StatFS) int

	// Replication returns the number of copies the cluster maintains
	// for the path.
	Replication(path string) int

	// HostsForBlock returns the host serving the block containing
	// offset of the open descriptor.
	HostsForBlock(fd int, offset int64) string

	// SetTimes updates modification and access times, in milliseconds
	// since the Unix epoch. Returns 0 or a negated errno.
	SetTimes(path string, mtimeMillis, atimeMillis int64) int
}
