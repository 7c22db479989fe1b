// Package badger implements the native client surface on an embedded
// BadgerDB metadata store plus a pluggable content store.
//
// Metadata (the namespace, permissions, sizes, times) lives in BadgerDB
// under namespaced keys; file bytes live in a content.Store keyed by
// minted content IDs. This gives a single-process cluster that survives
// restarts: badger for the tree, memory or S3 for the bytes.
//
// The raw C-flavored results of the native surface are preserved exactly;
// internal storage errors surface as -EIO or boolean false, never as Go
// errors, because nothing above this layer can consume them.
package badger

import (
	"strings"
	"sync"

	badgerdb "github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"

	"github.com/clusterfs/clusterfs/internal/logger"
	"github.com/clusterfs/clusterfs/pkg/content"
	"github.com/clusterfs/clusterfs/pkg/native"
)

const defaultBlockSize = 1 << 26

// reportedCapacity is the capacity advertised by StatFS. The embedded
// cluster has no real notion of capacity; a stable figure keeps capacity
// arithmetic meaningful for callers.
const reportedCapacity = 1 << 40

// Config holds the settings for an embedded badger cluster client.
type Config struct {
	// Dir is the directory holding the BadgerDB files.
	Dir string

	// Content stores the file bytes.
	Content content.Store

	// Host is the host name reported for every block.
	Host string

	// Replication is the replication factor reported for every path.
	Replication int
}

// Client is the embedded persistent native client.
type Client struct {
	mu          sync.Mutex
	db          *badgerdb.DB
	store       content.Store
	dir         string
	host        string
	replication int

	initialized bool
	blockSize   int64
	cwd         string
	nextFD      int
	handles     map[int]*handle
}

type openMode int

const (
	modeRead openMode = iota
	modeAppend
	modeOverwrite
)

// handle is one open descriptor. Read handles carry the full content
// loaded at open time; write handles buffer bytes until Close flushes
// them to the content store.
type handle struct {
	path      string
	mode      openMode
	dir       bool
	data      []byte
	pos       int64
	contentID content.ID
}

// New opens the BadgerDB at cfg.Dir and returns a client. The session
// still has to be started with Init.
func New(cfg Config) (*Client, error) {
	opts := badgerdb.DefaultOptions(cfg.Dir)
	opts = opts.WithLoggingLevel(badgerdb.WARNING)
	opts = opts.WithCompression(options.None)

	db, err := badgerdb.Open(opts)
	if err != nil {
		return nil, err
	}

	host := cfg.Host
	if host == "" {
		host = "localhost"
	}
	replication := cfg.Replication
	if replication <= 0 {
		replication = 1
	}

	return &Client{
		db:          db,
		store:       cfg.Content,
		dir:         cfg.Dir,
		host:        host,
		replication: replication,
		handles:     make(map[int]*handle),
	}, nil
}

// Init starts the session: ensures the root record exists and fixes the
// block size for the session's lifetime.
func (c *Client) Init(args string, blockSize int64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.initialized {
		return true
	}
	if blockSize <= 0 {
		blockSize = defaultBlockSize
	}
	if err := c.ensureRoot(); err != nil {
		logger.Error("badger client: failed to initialize root: %v", err)
		return false
	}
	c.blockSize = blockSize
	c.cwd = "/"
	c.initialized = true
	return true
}

// Shutdown ends the session and closes the database. Open descriptors are
// discarded; buffered writes that were never closed are lost.
func (c *Client) Shutdown() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.initialized {
		return false
	}
	c.handles = make(map[int]*handle)
	c.initialized = false
	if err := c.db.Close(); err != nil {
		logger.Error("badger client: failed to close database: %v", err)
		return false
	}
	return true
}

func (c *Client) GetCwd() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cwd
}

func (c *Client) SetCwd(path string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	abs := c.canonical(path)
	rec, err := c.getRecord(abs)
	if err != nil || rec == nil || !rec.IsDir {
		return false
	}
	c.cwd = abs
	return true
}

func (c *Client) HostsForBlock(fd int, offset int64) string {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.handles[fd]; !ok {
		return ""
	}
	return c.host
}

// ============================================================================
// Path handling
// ============================================================================

// splitPath resolves a path against the cwd and returns its components,
// collapsing "." and "..".
func (c *Client) splitPath(path string) []string {
	if !strings.HasPrefix(path, "/") {
		path = c.cwd + "/" + path
	}
	var parts []string
	for _, part := range strings.Split(path, "/") {
		switch part {
		case "", ".":
		case "..":
			if len(parts) > 0 {
				parts = parts[:len(parts)-1]
			}
		default:
			parts = append(parts, part)
		}
	}
	return parts
}

// canonical returns the cluster-absolute form of a path.
func (c *Client) canonical(path string) string {
	parts := c.splitPath(path)
	if len(parts) == 0 {
		return "/"
	}
	return "/" + strings.Join(parts, "/")
}

// parentOf returns the canonical parent of an already-canonical path and
// the final component name. The root has no parent.
func parentOf(abs string) (string, string) {
	if abs == "/" {
		return "", ""
	}
	idx := strings.LastIndexByte(abs, '/')
	name := abs[idx+1:]
	if idx == 0 {
		return "/", name
	}
	return abs[:idx], name
}

var _ native.Client = (*Client)(nil)
