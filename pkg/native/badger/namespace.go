package badger

import (
	"context"
	"strings"
	"time"

	badgerdb "github.com/dgraph-io/badger/v4"

	"github.com/clusterfs/clusterfs/internal/logger"
	"github.com/clusterfs/clusterfs/pkg/content"
	"github.com/clusterfs/clusterfs/pkg/native"
)

// ============================================================================
// Namespace operations
// ============================================================================

func (c *Client) Mkdir(path string, mode uint32) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	abs := c.canonical(path)
	if abs == "/" {
		return false
	}
	parent, name := parentOf(abs)

	err := c.db.Update(func(txn *badgerdb.Txn) error {
		parentRec, err := getRecordTxn(txn, parent)
		if err != nil {
			return err
		}
		if parentRec == nil || !parentRec.IsDir {
			return errRefused
		}
		existing, err := getRecordTxn(txn, abs)
		if err != nil {
			return err
		}
		if existing != nil {
			return errRefused
		}
		if err := putRecordTxn(txn, abs, newDirRecord(mode, c.replication)); err != nil {
			return err
		}
		if err := txn.Set(childKey(parent, name), nil); err != nil {
			return err
		}
		parentRec.MtimeMillis = time.Now().UnixMilli()
		return putRecordTxn(txn, parent, parentRec)
	})
	return err == nil
}

func (c *Client) Mkdirs(path string, mode uint32) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	parts := c.splitPath(path)
	rc := 0
	err := c.db.Update(func(txn *badgerdb.Txn) error {
		cur := "/"
		for i, part := range parts {
			next := joinAbs(cur, part)
			rec, err := getRecordTxn(txn, next)
			if err != nil {
				return err
			}
			if rec == nil {
				if err := putRecordTxn(txn, next, newDirRecord(mode, c.replication)); err != nil {
					return err
				}
				if err := txn.Set(childKey(cur, part), nil); err != nil {
					return err
				}
			} else if !rec.IsDir {
				// A file is squatting on a chain component.
				if i == len(parts)-1 {
					rc = -native.EEXIST
				} else {
					rc = -native.ENOTDIR
				}
				return errRefused
			}
			cur = next
		}
		return nil
	})
	if err != nil && rc == 0 {
		logger.Error("badger client: mkdirs %s failed: %v", path, err)
		rc = -native.EIO
	}
	return rc
}

func (c *Client) Rmdir(path string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	abs := c.canonical(path)
	if abs == "/" {
		return false
	}
	parent, name := parentOf(abs)

	err := c.db.Update(func(txn *badgerdb.Txn) error {
		rec, err := getRecordTxn(txn, abs)
		if err != nil {
			return err
		}
		if rec == nil || !rec.IsDir || hasChildrenTxn(txn, abs) {
			return errRefused
		}
		if err := txn.Delete(recordKey(abs)); err != nil {
			return err
		}
		return txn.Delete(childKey(parent, name))
	})
	return err == nil
}

func (c *Client) Unlink(path string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	abs := c.canonical(path)
	if abs == "/" {
		return false
	}
	parent, name := parentOf(abs)

	var orphaned content.ID
	err := c.db.Update(func(txn *badgerdb.Txn) error {
		rec, err := getRecordTxn(txn, abs)
		if err != nil {
			return err
		}
		if rec == nil || rec.IsDir {
			return errRefused
		}
		orphaned = rec.ContentID
		if err := txn.Delete(recordKey(abs)); err != nil {
			return err
		}
		return txn.Delete(childKey(parent, name))
	})
	if err != nil {
		return false
	}
	c.deleteContent(orphaned)
	return true
}

func (c *Client) Rename(oldPath, newPath string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	oldAbs := c.canonical(oldPath)
	newAbs := c.canonical(newPath)
	if oldAbs == "/" || newAbs == "/" || oldAbs == newAbs {
		return false
	}
	// Moving a directory into itself would orbit forever.
	if strings.HasPrefix(newAbs, oldAbs+"/") {
		return false
	}
	newParent, newName := parentOf(newAbs)

	var orphaned content.ID
	err := c.db.Update(func(txn *badgerdb.Txn) error {
		src, err := getRecordTxn(txn, oldAbs)
		if err != nil {
			return err
		}
		if src == nil {
			return errRefused
		}
		dstParent, err := getRecordTxn(txn, newParent)
		if err != nil {
			return err
		}
		if dstParent == nil || !dstParent.IsDir {
			return errRefused
		}
		dst, err := getRecordTxn(txn, newAbs)
		if err != nil {
			return err
		}
		if dst != nil {
			// Files may be replaced; directories may not.
			if dst.IsDir {
				return errRefused
			}
			orphaned = dst.ContentID
			if err := txn.Delete(recordKey(newAbs)); err != nil {
				return err
			}
			if err := txn.Delete(childKey(newParent, newName)); err != nil {
				return err
			}
		}

		// Move the node itself, then every descendant record and child
		// index entry to its rewritten path.
		moves := append([]string{oldAbs}, subtreePathsTxn(txn, oldAbs)...)
		for _, from := range moves {
			rec, err := getRecordTxn(txn, from)
			if err != nil {
				return err
			}
			if rec == nil {
				continue
			}
			to := newAbs + from[len(oldAbs):]
			if err := putRecordTxn(txn, to, rec); err != nil {
				return err
			}
			if err := txn.Delete(recordKey(from)); err != nil {
				return err
			}
			fromParent, fromName := parentOf(from)
			toParent, toName := parentOf(to)
			if err := txn.Delete(childKey(fromParent, fromName)); err != nil {
				return err
			}
			if err := txn.Set(childKey(toParent, toName), nil); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return false
	}
	c.deleteContent(orphaned)
	return true
}

// ============================================================================
// Predicates and metadata
// ============================================================================

func (c *Client) Exists(path string) bool {
	rec, err := c.lockedRecord(path)
	return err == nil && rec != nil
}

func (c *Client) IsDirectory(path string) bool {
	rec, err := c.lockedRecord(path)
	return err == nil && rec != nil && rec.IsDir
}

func (c *Client) IsFile(path string) bool {
	rec, err := c.lockedRecord(path)
	return err == nil && rec != nil && !rec.IsDir
}

func (c *Client) GetBlockSize(path string) int64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	rec, err := c.getRecord(c.canonical(path))
	if err != nil || rec == nil {
		return -native.ENOENT
	}
	return c.blockSize
}

func (c *Client) ListDirectory(path string) []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	abs := c.canonical(path)
	var names []string
	err := c.db.View(func(txn *badgerdb.Txn) error {
		rec, err := getRecordTxn(txn, abs)
		if err != nil {
			return err
		}
		if rec == nil || !rec.IsDir {
			return errRefused
		}
		names = listChildrenTxn(txn, abs)
		return nil
	})
	if err != nil {
		return nil
	}
	return names
}

func (c *Client) Stat(path string, st *native.Stat) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	rec, err := c.getRecord(c.canonical(path))
	if err != nil || rec == nil {
		return false
	}
	st.Size = rec.Size
	st.IsDir = rec.IsDir
	st.BlockSize = c.blockSize
	st.ModTime = rec.MtimeMillis
	st.AccessTime = rec.AtimeMillis
	st.Mode = rec.Mode
	return true
}

func (c *Client) StatFS(path string, st *native.StatFS) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.initialized {
		return -native.EBADF
	}
	var used int64
	err := c.db.View(func(txn *badgerdb.Txn) error {
		opts := badgerdb.DefaultIteratorOptions
		opts.Prefix = []byte(recordPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			rec := &fileRecord{}
			err := it.Item().Value(func(val []byte) error {
				return unmarshalRecord(val, rec)
			})
			if err != nil {
				return err
			}
			used += rec.Size
		}
		return nil
	})
	if err != nil {
		logger.Error("badger client: statfs scan failed: %v", err)
		return -native.EIO
	}
	st.Capacity = reportedCapacity
	st.Used = used
	st.Remaining = reportedCapacity - used
	return 0
}

func (c *Client) Replication(path string) int {
	rec, err := c.lockedRecord(path)
	if err != nil || rec == nil {
		return 0
	}
	if rec.Replication <= 0 {
		return c.replication
	}
	return rec.Replication
}

func (c *Client) SetPermission(path string, mode uint32) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	err := c.updateRecord(c.canonical(path), func(rec *fileRecord) {
		rec.Mode = mode & 0777
	})
	return err == nil
}

func (c *Client) SetTimes(path string, mtimeMillis, atimeMillis int64) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	err := c.updateRecord(c.canonical(path), func(rec *fileRecord) {
		if mtimeMillis >= 0 {
			rec.MtimeMillis = mtimeMillis
		}
		if atimeMillis >= 0 {
			rec.AtimeMillis = atimeMillis
		}
	})
	if err != nil {
		return -native.ENOENT
	}
	return 0
}

// ============================================================================
// Internals
// ============================================================================

func (c *Client) lockedRecord(path string) (*fileRecord, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.getRecord(c.canonical(path))
}

// deleteContent drops orphaned bytes after a successful metadata commit.
// Best effort: a leaked object costs space, not correctness.
func (c *Client) deleteContent(id content.ID) {
	if id == "" || c.store == nil {
		return
	}
	if err := c.store.Delete(context.Background(), id); err != nil {
		logger.Warn("badger client: failed to delete content %s: %v", id, err)
	}
}

func joinAbs(parent, name string) string {
	if parent == "/" {
		return "/" + name
	}
	return parent + "/" + name
}
