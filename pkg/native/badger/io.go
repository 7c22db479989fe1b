package badger

import (
	"context"
	"io"
	"time"

	badgerdb "github.com/dgraph-io/badger/v4"

	"github.com/clusterfs/clusterfs/internal/logger"
	"github.com/clusterfs/clusterfs/pkg/content"
	"github.com/clusterfs/clusterfs/pkg/native"
)

// ============================================================================
// Descriptors and I/O
// ============================================================================
//
// Read handles load the full content at open time; write handles buffer in
// memory and flush to the content store on Close. Content objects are
// immutable once written, so an overwrite or append mints nothing until the
// handle closes and then replaces the record's content ID atomically with
// its size.

func (c *Client) OpenForRead(path string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	abs := c.canonical(path)
	rec, err := c.getRecord(abs)
	if err != nil {
		return -native.EIO
	}
	if rec == nil {
		return -native.ENOENT
	}
	// Directories open fine here; refusing them is the adapter's job.
	if rec.IsDir {
		return c.newHandle(&handle{path: abs, mode: modeRead, dir: true})
	}
	data, err := c.loadContent(rec.ContentID)
	if err != nil {
		logger.Error("badger client: failed to load content for %s: %v", abs, err)
		return -native.EIO
	}
	return c.newHandle(&handle{path: abs, mode: modeRead, data: data, contentID: rec.ContentID})
}

func (c *Client) OpenForAppend(path string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	abs := c.canonical(path)
	rec, err := c.getRecord(abs)
	if err != nil {
		return -native.EIO
	}
	if rec == nil {
		return -native.ENOENT
	}
	if rec.IsDir {
		return -native.EISDIR
	}
	data, err := c.loadContent(rec.ContentID)
	if err != nil {
		logger.Error("badger client: failed to load content for %s: %v", abs, err)
		return -native.EIO
	}
	h := &handle{path: abs, mode: modeAppend, data: data, contentID: rec.ContentID}
	h.pos = int64(len(data))
	return c.newHandle(h)
}

func (c *Client) OpenForOverwrite(path string, mode uint32) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	abs := c.canonical(path)
	if abs == "/" {
		return -native.EISDIR
	}
	parent, name := parentOf(abs)

	var contentID content.ID
	rc := 0
	err := c.db.Update(func(txn *badgerdb.Txn) error {
		parentRec, err := getRecordTxn(txn, parent)
		if err != nil {
			return err
		}
		if parentRec == nil || !parentRec.IsDir {
			rc = -native.ENOENT
			return errRefused
		}
		rec, err := getRecordTxn(txn, abs)
		if err != nil {
			return err
		}
		if rec != nil {
			if rec.IsDir {
				rc = -native.EISDIR
				return errRefused
			}
			// Truncation is recorded immediately; the bytes follow when
			// the handle closes.
			contentID = rec.ContentID
			rec.Size = 0
			rec.Mode = mode & 0777
			rec.MtimeMillis = time.Now().UnixMilli()
			return putRecordTxn(txn, abs, rec)
		}
		if err := putRecordTxn(txn, abs, newFileRecord(mode, c.replication)); err != nil {
			return err
		}
		return txn.Set(childKey(parent, name), nil)
	})
	if err != nil {
		if rc != 0 {
			return rc
		}
		logger.Error("badger client: open for overwrite %s failed: %v", abs, err)
		return -native.EIO
	}
	return c.newHandle(&handle{path: abs, mode: modeOverwrite, contentID: contentID})
}

func (c *Client) Read(fd int, buf []byte) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	h, ok := c.handles[fd]
	if !ok {
		return -native.EBADF
	}
	if h.dir {
		return -native.EISDIR
	}
	if h.pos >= int64(len(h.data)) {
		return 0
	}
	n := copy(buf, h.data[h.pos:])
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
	if h.mode == modeRead || h.dir {
		return -native.EBADF
	}
	data := h.data
	if h.pos < int64(len(data)) {
		data = data[:h.pos]
	}
	h.data = append(data, buf...)
	h.pos += int64(len(buf))
	return len(buf)
}

func (c *Client) Close(fd int) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	h, ok := c.handles[fd]
	if !ok {
		return -native.EBADF
	}
	delete(c.handles, fd)

	if h.mode == modeRead {
		return 0
	}
	if err := c.flushHandle(h); err != nil {
		logger.Error("badger client: failed to flush %s on close: %v", h.path, err)
		return -native.EIO
	}
	return 0
}

// flushHandle commits a write handle's buffered bytes: content first, then
// the metadata record. A crash between the two leaks a content object; the
// record still points at consistent bytes.
func (c *Client) flushHandle(h *handle) error {
	id := h.contentID
	if id == "" {
		id = content.NewID()
	}
	if err := c.store.Write(context.Background(), id, h.data); err != nil {
		return err
	}
	return c.updateRecord(h.path, func(rec *fileRecord) {
		rec.Size = int64(len(h.data))
		rec.ContentID = id
		rec.MtimeMillis = time.Now().UnixMilli()
	})
}

// loadContent fetches the full bytes of a content object. An empty ID is a
// file that was never written: zero bytes.
func (c *Client) loadContent(id content.ID) ([]byte, error) {
	if id == "" {
		return nil, nil
	}
	reader, err := c.store.Read(context.Background(), id)
	if err != nil {
		return nil, err
	}
	defer func() { _ = reader.Close() }()
	return io.ReadAll(reader)
}

func (c *Client) newHandle(h *handle) int {
	fd := c.nextFD
	c.nextFD++
	c.handles[fd] = h
	return fd
}
