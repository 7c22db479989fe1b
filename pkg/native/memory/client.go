// Package memory provides an in-memory implementation of the native client
// call surface.
//
// It behaves like a tiny single-host cluster: a tree of nodes, a current
// working directory, an integer descriptor table and C-style raw results.
// It backs the adapter's test suite and local development; nothing is
// persisted.
package memory

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/clusterfs/clusterfs/pkg/native"
)

const defaultBlockSize = 1 << 26

// capacity reported by StatFS: 1 TiB, an arbitrary but stable figure for a
// development cluster.
const reportedCapacity = 1 << 40

type openMode int

const (
	modeRead openMode = iota
	modeAppend
	modeOverwrite
)

// node is one object in the tree.
type node struct {
	name     string
	dir      bool
	children map[string]*node
	data     []byte
	mode     uint32
	mtime    int64
	atime    int64
}

// handle is one open descriptor.
type handle struct {
	node *node
	path string
	mode openMode
	pos  int64
}

// Client is the in-memory native client.
//
// All operations are guarded by one mutex; raw results mirror what a real
// cluster client reports (booleans, negated errnos, descriptors).
type Client struct {
	mu          sync.Mutex
	initialized bool
	blockSize   int64
	host        string
	replication int
	root        *node
	cwd         string
	nextFD      int
	handles     map[int]*handle
}

// Option tweaks a Client at construction time.
type Option func(*Client)

// WithHost sets the host name reported for every block.
func WithHost(host string) Option {
	return func(c *Client) { c.host = host }
}

// WithReplication sets the replication factor reported for every path.
func WithReplication(n int) Option {
	return func(c *Client) { c.replication = n }
}

// New creates an empty in-memory cluster client. The session still has to
// be started with Init, like any native client.
func New(opts ...Option) *Client {
	c := &Client{
		host:        "localhost",
		replication: 1,
		handles:     make(map[int]*handle),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// OpenHandles returns the number of live descriptors. Tests use it to
// verify the adapter never leaks a handle.
func (c *Client) OpenHandles() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.handles)
}

// ============================================================================
// Session lifecycle
// ============================================================================

func (c *Client) Init(args string, blockSize int64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.initialized {
		return true
	}
	if blockSize <= 0 {
		blockSize = defaultBlockSize
	}
	now := time.Now().UnixMilli()
	c.blockSize = blockSize
	c.root = &node{
		name:     "/",
		dir:      true,
		children: make(map[string]*node),
		mode:     0755,
		mtime:    now,
		atime:    now,
	}
	c.cwd = "/"
	c.initialized = true
	return true
}

func (c *Client) Shutdown() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.initialized {
		return false
	}
	c.handles = make(map[int]*handle)
	c.initialized = false
	return true
}

// ============================================================================
// Working directory
// ============================================================================

func (c *Client) GetCwd() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cwd
}

func (c *Client) SetCwd(path string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := c.lookup(path)
	if n == nil || !n.dir {
		return false
	}
	c.cwd = c.canonical(path)
	return true
}

// ============================================================================
// Namespace operations
// ============================================================================

func (c *Client) Mkdir(path string, mode uint32) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	parent, name := c.lookupParent(path)
	if parent == nil || !parent.dir || name == "" {
		return false
	}
	if _, ok := parent.children[name]; ok {
		return false
	}
	parent.children[name] = newDirNode(name, mode)
	parent.mtime = time.Now().UnixMilli()
	return true
}

func (c *Client) Mkdirs(path string, mode uint32) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	parts := c.splitPath(path)
	cur := c.root
	for i, part := range parts {
		next, ok := cur.children[part]
		if !ok {
			next = newDirNode(part, mode)
			cur.children[part] = next
			cur.mtime = time.Now().UnixMilli()
		} else if !next.dir {
			// A file is squatting on a chain component.
			if i == len(parts)-1 {
				return -native.EEXIST
			}
			return -native.ENOTDIR
		}
		cur = next
	}
	// Creating an already-complete chain is not an error.
	return 0
}

func (c *Client) Rmdir(path string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	parent, name := c.lookupParent(path)
	if parent == nil || name == "" {
		return false
	}
	n, ok := parent.children[name]
	if !ok || !n.dir || len(n.children) > 0 {
		return false
	}
	delete(parent.children, name)
	parent.mtime = time.Now().UnixMilli()
	return true
}

func (c *Client) Unlink(path string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	parent, name := c.lookupParent(path)
	if parent == nil || name == "" {
		return false
	}
	n, ok := parent.children[name]
	if !ok || n.dir {
		return false
	}
	delete(parent.children, name)
	parent.mtime = time.Now().UnixMilli()
	return true
}

func (c *Client) Rename(oldPath, newPath string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	srcParent, srcName := c.lookupParent(oldPath)
	if srcParent == nil || srcName == "" {
		return false
	}
	src, ok := srcParent.children[srcName]
	if !ok {
		return false
	}

	dstParent, dstName := c.lookupParent(newPath)
	if dstParent == nil || !dstParent.dir || dstName == "" {
		return false
	}
	if existing, ok := dstParent.children[dstName]; ok {
		// Files may be replaced; directories may not.
		if existing.dir {
			return false
		}
		delete(dstParent.children, dstName)
	}

	delete(srcParent.children, srcName)
	src.name = dstName
	dstParent.children[dstName] = src
	now := time.Now().UnixMilli()
	srcParent.mtime = now
	dstParent.mtime = now
	return true
}

// ============================================================================
// Predicates and metadata
// ============================================================================

func (c *Client) Exists(path string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lookup(path) != nil
}

func (c *Client) IsDirectory(path string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := c.lookup(path)
	return n != nil && n.dir
}

func (c *Client) IsFile(path string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := c.lookup(path)
	return n != nil && !n.dir
}

func (c *Client) GetBlockSize(path string) int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.lookup(path) == nil {
		return -native.ENOENT
	}
	return c.blockSize
}

func (c *Client) ListDirectory(path string) []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := c.lookup(path)
	if n == nil || !n.dir {
		return nil
	}
	names := make([]string, 0, len(n.children))
	for name := range n.children {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (c *Client) Stat(path string, st *native.Stat) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := c.lookup(path)
	if n == nil {
		return false
	}
	st.Size = int64(len(n.data))
	st.IsDir = n.dir
	st.BlockSize = c.blockSize
	st.ModTime = n.mtime
	st.AccessTime = n.atime
	st.Mode = n.mode
	return true
}

func (c *Client) StatFS(path string, st *native.StatFS) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.initialized {
		return -native.EBADF
	}
	used := usedBytes(c.root)
	st.Capacity = reportedCapacity
	st.Used = used
	st.Remaining = reportedCapacity - used
	return 0
}

func (c *Client) Replication(path string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.lookup(path) == nil {
		return 0
	}
	return c.replication
}

func (c *Client) SetPermission(path string, mode uint32) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := c.lookup(path)
	if n == nil {
		return false
	}
	n.mode = mode & 0777
	return true
}

func (c *Client) SetTimes(path string, mtimeMillis, atimeMillis int64) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := c.lookup(path)
	if n == nil {
		return -native.ENOENT
	}
	if mtimeMillis >= 0 {
		n.mtime = mtimeMillis
	}
	if atimeMillis >= 0 {
		n.atime = atimeMillis
	}
	return 0
}

// ============================================================================
// Descriptors and I/O
// ============================================================================

func (c *Client) OpenForRead(path string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := c.lookup(path)
	if n == nil {
		return -native.ENOENT
	}
	// Directories open fine here; refusing them is the adapter's job.
	n.atime = time.Now().UnixMilli()
	return c.newHandle(n, path, modeRead)
}

func (c *Client) OpenForAppend(path string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := c.lookup(path)
	if n == nil {
		return -native.ENOENT
	}
	if n.dir {
		return -native.EISDIR
	}
	h := c.newHandle(n, path, modeAppend)
	c.handles[h].pos = int64(len(n.data))
	return h
}

func (c *Client) OpenForOverwrite(path string, mode uint32) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	parent, name := c.lookupParent(path)
	if parent == nil || !parent.dir || name == "" {
		return -native.ENOENT
	}
	n, ok := parent.children[name]
	if ok {
		if n.dir {
			return -native.EISDIR
		}
		n.data = nil
		n.mode = mode & 0777
	} else {
		n = &node{name: name, mode: mode & 0777}
		parent.children[name] = n
		parent.mtime = time.Now().UnixMilli()
	}
	n.mtime = time.Now().UnixMilli()
	return c.newHandle(n, path, modeOverwrite)
}

func (c *Client) Read(fd int, buf []byte) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	h, ok := c.handles[fd]
	if !ok {
		return -native.EBADF
	}
	if h.node.dir {
		return -native.EISDIR
	}
	if h.pos >= int64(len(h.node.data)) {
		return 0
	}
	n := copy(buf, h.node.data[h.pos:])
	h.pos += int64(n)
	return n
}

func (c *Client) Write(fd int, buf []byte) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	h, ok := c.handles[fd]
	if !ok {
		return -native.EBADF
	}
	if h.mode == modeRead || h.node.dir {
		return -native.EBADF
	}
	data := h.node.data
	if h.pos < int64(len(data)) {
		data = data[:h.pos]
	}
	h.node.data = append(data, buf...)
	h.pos += int64(len(buf))
	h.node.mtime = time.Now().UnixMilli()
	return len(buf)
}

func (c *Client) Close(fd int) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.handles[fd]; !ok {
		return -native.EBADF
	}
	delete(c.handles, fd)
	return 0
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
// Internals
// ============================================================================

func newDirNode(name string, mode uint32) *node {
	now := time.Now().UnixMilli()
	return &node{
		name:     name,
		dir:      true,
		children: make(map[string]*node),
		mode:     mode & 0777,
		mtime:    now,
		atime:    now,
	}
}

func (c *Client) newHandle(n *node, path string, mode openMode) int {
	fd := c.nextFD
	c.nextFD++
	c.handles[fd] = &handle{node: n, path: path, mode: mode}
	return fd
}

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

// lookup walks to the node named by path, or nil.
func (c *Client) lookup(path string) *node {
	if c.root == nil {
		return nil
	}
	cur := c.root
	for _, part := range c.splitPath(path) {
		if !cur.dir {
			return nil
		}
		next, ok := cur.children[part]
		if !ok {
			return nil
		}
		cur = next
	}
	return cur
}

// lookupParent walks to the parent of path and returns it with the final
// component name. The root has no parent: ("", nil) for "/".
func (c *Client) lookupParent(path string) (*node, string) {
	parts := c.splitPath(path)
	if len(parts) == 0 {
		return nil, ""
	}
	cur := c.root
	for _, part := range parts[:len(parts)-1] {
		if cur == nil || !cur.dir {
			return nil, ""
		}
		next, ok := cur.children[part]
		if !ok {
			return nil, ""
		}
		cur = next
	}
	if cur == nil || !cur.dir {
		return nil, ""
	}
	return cur, parts[len(parts)-1]
}

func usedBytes(n *node) int64 {
	if n == nil {
		return 0
	}
	total := int64(len(n.data))
	for _, child := range n.children {
		total += usedBytes(child)
	}
	return total
}

var _ native.Client = (*Client)(nil)
