// Package fs exposes a distributed storage cluster's native client through a
// hierarchical filesystem API.
//
// The native client speaks a flat, C-style surface (raw booleans, negative
// errno codes, integer file descriptors); this package bridges that surface
// to the richer contract a data-processing framework expects: canonical
// paths, typed errors, composite operations (create with missing parents,
// recursive delete and listing) and strict native-handle lifetime.
//
// The package performs no storage, replication or network logic itself, and
// caches no metadata: every query hits the native client.
package fs

import (
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/clusterfs/clusterfs/internal/logger"
	"github.com/clusterfs/clusterfs/pkg/metrics"
	"github.com/clusterfs/clusterfs/pkg/native"
)

// State is the lifecycle state of a FileSystem.
type State int

const (
	// StateUninitialized is the state before Initialize succeeds
	StateUninitialized State = iota

	// StateReady accepts operations
	StateReady

	// StateClosed is terminal; no operation is accepted
	StateClosed
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateReady:
		return "ready"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Root is the canonical root path. It always exists and is a directory.
const Root = "/"

// startupTag is the leading token of the native startup argument string.
const startupTag = "clusterfs"

// FileSystem adapts one native client session to the hierarchical
// filesystem API.
//
// A FileSystem owns the process's single native session exclusively: it is
// created Uninitialized, moves to Ready on Initialize and to the terminal
// Closed on Close. Every operation other than Initialize requires Ready.
//
// Concurrency: the state machine is guarded by a mutex, so concurrent
// Initialize/Close calls serialize. Operations themselves are synchronous
// and run their native calls outside the lock; composite operations
// (recursive delete, recursive listing) are not fenced against concurrent
// mutation of the same subtree, so partial results are an accepted risk.
type FileSystem struct {
	mu     sync.Mutex
	state  State
	client native.Client
	cfg    Config

	metrics metrics.FilesystemMetrics
}

// New creates a FileSystem around the given native client.
//
// The client session is not started; call Initialize before any other
// operation. m may be nil to disable metrics collection.
func New(client native.Client, m metrics.FilesystemMetrics) *FileSystem {
	return &FileSystem{
		state:   StateUninitialized,
		client:  client,
		metrics: m,
	}
}

// State returns the current lifecycle state.
func (f *FileSystem) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Initialize starts the native client session and moves the filesystem to
// Ready.
//
// The startup argument string is assembled from cfg in priority order: the
// command-line passthrough, the client debug level, the messenger debug
// level, the monitor address, and the read-ahead parameter. Initialize is a
// no-op when already Ready (guarded, not re-validated).
//
// Returns:
//   - ErrConfiguration if neither a monitor address nor an embedded
//     config-file flag is present in the configuration
//   - ErrInitialization if the native client reports startup failure
//   - ErrIllegalOperation if the filesystem was already closed
func (f *FileSystem) Initialize(cfg *Config) error {
	const op = "initialize"

	f.mu.Lock()
	defer f.mu.Unlock()

	switch f.state {
	case StateReady:
		return nil
	case StateClosed:
		return newError(ErrIllegalOperation, op, "", "filesystem is closed")
	}

	if cfg == nil {
		return newError(ErrConfiguration, op, "", "configuration is required")
	}

	// The native client needs either an explicit monitor address or a
	// monitor/config-file flag embedded in the passthrough string. The
	// check runs on the raw passthrough, not the assembled string: the
	// assembled string always carries the readahead flag, whose literal
	// contains both "-m" and "-c".
	if cfg.MonitorAddr == "" &&
		!strings.Contains(cfg.CommandLine, "-m") &&
		!strings.Contains(cfg.CommandLine, "-c") {
		return newError(ErrConfiguration, op, "",
			"a monitor address or config file flag is required")
	}

	args := assembleArguments(cfg)

	blockSize := cfg.BlockSize
	if blockSize == 0 {
		blockSize = DefaultBlockSize
	}

	if cfg.Debug {
		logger.Debug("initialize: starting native client with args %q block size %d", args, blockSize)
	}

	if !f.client.Init(args, blockSize) {
		return newError(ErrInitialization, op, "", "native client initialization failed")
	}

	f.cfg = *cfg
	f.cfg.BlockSize = blockSize
	f.client.SetCwd(Root)
	f.state = StateReady

	logger.Info("filesystem initialized (uri=%s)", cfg.URI)
	return nil
}

// assembleArguments builds the native startup argument string from cfg, in
// the documented priority order.
func assembleArguments(cfg *Config) string {
	var sb strings.Builder
	sb.WriteString(startupTag)

	if cfg.CommandLine != "" {
		sb.WriteString(" ")
		sb.WriteString(cfg.CommandLine)
	}
	if cfg.ClientDebug != "" {
		sb.WriteString(" --debug_client ")
		sb.WriteString(cfg.ClientDebug)
	}
	if cfg.MessengerDebug != "" {
		sb.WriteString(" --debug_ms ")
		sb.WriteString(cfg.MessengerDebug)
	}
	if cfg.MonitorAddr != "" {
		sb.WriteString(" -m ")
		sb.WriteString(cfg.MonitorAddr)
	}

	readahead := cfg.Readahead
	if readahead == 0 {
		readahead = DefaultReadahead
	}
	sb.WriteString(" --client-readahead-max-periods=")
	sb.WriteString(strconv.Itoa(readahead))

	return sb.String()
}

// Close terminates the native session and moves the filesystem to Closed.
//
// Returns ErrNotInitialized unless the filesystem is Ready. Closed is
// terminal: a closed filesystem cannot be re-initialized.
func (f *FileSystem) Close() error {
	const op = "close"

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.state != StateReady {
		return newError(ErrNotInitialized, op, "", "filesystem is not ready")
	}

	// Adapter-side resources first, then the native session.
	f.state = StateClosed
	if !f.client.Shutdown() {
		logger.Warn("native client shutdown reported failure")
	}

	logger.Info("filesystem closed")
	return nil
}

// ensureReady returns ErrNotInitialized unless the filesystem is Ready.
func (f *FileSystem) ensureReady(op string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state != StateReady {
		return newError(ErrNotInitialized, op, "", "filesystem is not ready")
	}
	return nil
}

// DefaultReplication returns the advertised default replication factor.
// The actual factor is controlled by cluster configuration, not by this
// layer.
func (f *FileSystem) DefaultReplication() int {
	return 1
}

// DefaultBlockSize returns the configured default block size in bytes.
func (f *FileSystem) DefaultBlockSize() int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.cfg.BlockSize == 0 {
		return DefaultBlockSize
	}
	return f.cfg.BlockSize
}

// WorkingDirectory returns the session's current working directory,
// qualified with the filesystem's URI prefix.
func (f *FileSystem) WorkingDirectory() (string, error) {
	if err := f.ensureReady("getWorkingDirectory"); err != nil {
		return "", err
	}
	return f.cfg.URI + f.client.GetCwd(), nil
}

// SetWorkingDirectory changes the session's current working directory.
// All relative paths resolve against it. A native refusal is logged, not
// surfaced, matching the advisory nature of the call.
func (f *FileSystem) SetWorkingDirectory(dir string) error {
	if err := f.ensureReady("setWorkingDirectory"); err != nil {
		return err
	}
	abs := f.resolvePath(dir)
	if !f.client.SetCwd(abs) {
		logger.Warn("setWorkingDirectory: native client refused cwd %s", abs)
	}
	return nil
}

// resolvePath canonicalizes a caller-supplied path.
//
// Resolution order: empty input means the root; a path carrying the
// filesystem's own URI prefix is stripped down to the remainder (a literal
// string-prefix match, kept for compatibility with fully-qualified
// callers); an absolute path passes through; anything else is joined onto
// the native client's current working directory. No "."/".." collapsing is
// performed here - the native client resolves those.
func (f *FileSystem) resolvePath(p string) string {
	if p == "" {
		return Root
	}

	if f.cfg.URI != "" && strings.HasPrefix(p, f.cfg.URI) {
		p = p[len(f.cfg.URI):]
		if p == "" {
			return Root
		}
		return p
	}

	if strings.HasPrefix(p, "/") {
		return p
	}

	cwd := f.client.GetCwd()
	if cwd == "" || cwd == Root {
		return Root + p
	}
	return cwd + "/" + p
}

// parentPath returns the parent of a canonical path, or "" for the root.
func parentPath(p string) string {
	if p == Root {
		return ""
	}
	p = strings.TrimSuffix(p, "/")
	idx := strings.LastIndex(p, "/")
	if idx <= 0 {
		return Root
	}
	return p[:idx]
}

// childPath joins an entry name onto a canonical directory path. Entries
// the native listing already reports as absolute pass through unchanged.
func childPath(dir, name string) string {
	if strings.HasPrefix(name, "/") {
		return name
	}
	if dir == Root {
		return Root + name
	}
	return dir + "/" + name
}

// observe records one completed operation.
func (f *FileSystem) observe(op string, start time.Time, err error) {
	if f.metrics != nil {
		f.metrics.RecordOperation(op, time.Since(start), err)
	}
}

func (f *FileSystem) handleOpened() {
	if f.metrics != nil {
		f.metrics.RecordHandleOpened()
	}
}

func (f *FileSystem) handleClosed() {
	if f.metrics != nil {
		f.metrics.RecordHandleClosed()
	}
}

// debugf traces when the layer-local debug flag is set.
func (f *FileSystem) debugf(format string, v ...any) {
	if f.cfg.Debug {
		logger.Debug(format, v...)
	}
}
