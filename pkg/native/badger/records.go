package badger

import (
	"encoding/json"
	"errors"
	"time"

	badgerdb "github.com/dgraph-io/badger/v4"

	"github.com/clusterfs/clusterfs/pkg/content"
)

// Key Namespace
// =============
//
// Data Type     Prefix  Key Format                      Value
// ------------------------------------------------------------------
// Node Record   "f:"    f:<canonical path>              fileRecord (JSON)
// Child Index   "c:"    c:<parent path>\x00<name>       (empty)
//
// Records are keyed by canonical absolute path, so point lookups are O(1)
// and a rename rewrites the affected subtree's keys. The child index makes
// directory listings a single prefix scan; the NUL separator cannot occur
// in a path component, so prefixes never collide with sibling names.
const (
	recordPrefix = "f:"
	childPrefix  = "c:"
	childSep     = "\x00"
)

// errRefused aborts a transaction whose precondition failed. It never
// escapes the package; callers translate it to the surface's raw results.
var errRefused = errors.New("operation refused")

func unmarshalRecord(val []byte, rec *fileRecord) error {
	return json.Unmarshal(val, rec)
}

func recordKey(abs string) []byte {
	return []byte(recordPrefix + abs)
}

func childKey(parent, name string) []byte {
	return []byte(childPrefix + parent + childSep + name)
}

func childScanPrefix(parent string) []byte {
	return []byte(childPrefix + parent + childSep)
}

// fileRecord is the persisted metadata of one node.
type fileRecord struct {
	IsDir       bool       `json:"is_dir"`
	Mode        uint32     `json:"mode"`
	Size        int64      `json:"size"`
	MtimeMillis int64      `json:"mtime_millis"`
	AtimeMillis int64      `json:"atime_millis"`
	ContentID   content.ID `json:"content_id,omitempty"`
	Replication int        `json:"replication"`
}

func newDirRecord(mode uint32, replication int) *fileRecord {
	now := time.Now().UnixMilli()
	return &fileRecord{
		IsDir:       true,
		Mode:        mode & 0777,
		MtimeMillis: now,
		AtimeMillis: now,
		Replication: replication,
	}
}

func newFileRecord(mode uint32, replication int) *fileRecord {
	now := time.Now().UnixMilli()
	return &fileRecord{
		Mode:        mode & 0777,
		MtimeMillis: now,
		AtimeMillis: now,
		Replication: replication,
	}
}

// ============================================================================
// Transaction helpers
// ============================================================================

func getRecordTxn(txn *badgerdb.Txn, abs string) (*fileRecord, error) {
	item, err := txn.Get(recordKey(abs))
	if errors.Is(err, badgerdb.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var rec fileRecord
	if err := item.Value(func(val []byte) error {
		return json.Unmarshal(val, &rec)
	}); err != nil {
		return nil, err
	}
	return &rec, nil
}

func putRecordTxn(txn *badgerdb.Txn, abs string, rec *fileRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return txn.Set(recordKey(abs), data)
}

// getRecord reads one record outside any caller transaction. Returns
// (nil, nil) for a missing path.
func (c *Client) getRecord(abs string) (*fileRecord, error) {
	var rec *fileRecord
	err := c.db.View(func(txn *badgerdb.Txn) error {
		var err error
		rec, err = getRecordTxn(txn, abs)
		return err
	})
	return rec, err
}

// updateRecord applies fn to an existing record and writes it back.
// Returns badgerdb.ErrKeyNotFound if the path has no record.
func (c *Client) updateRecord(abs string, fn func(*fileRecord)) error {
	return c.db.Update(func(txn *badgerdb.Txn) error {
		rec, err := getRecordTxn(txn, abs)
		if err != nil {
			return err
		}
		if rec == nil {
			return badgerdb.ErrKeyNotFound
		}
		fn(rec)
		return putRecordTxn(txn, abs, rec)
	})
}

// ensureRoot creates the root directory record on first use.
func (c *Client) ensureRoot() error {
	return c.db.Update(func(txn *badgerdb.Txn) error {
		rec, err := getRecordTxn(txn, "/")
		if err != nil {
			return err
		}
		if rec != nil {
			return nil
		}
		return putRecordTxn(txn, "/", newDirRecord(0755, c.replication))
	})
}

// hasChildrenTxn reports whether any child index entry exists for a
// directory.
func hasChildrenTxn(txn *badgerdb.Txn, abs string) bool {
	opts := badgerdb.DefaultIteratorOptions
	opts.PrefetchValues = false
	opts.Prefix = childScanPrefix(abs)
	it := txn.NewIterator(opts)
	defer it.Close()

	it.Rewind()
	return it.Valid()
}

// listChildrenTxn returns the child names of a directory in key order,
// which badger keeps lexicographic.
func listChildrenTxn(txn *badgerdb.Txn, abs string) []string {
	prefix := childScanPrefix(abs)
	opts := badgerdb.DefaultIteratorOptions
	opts.PrefetchValues = false
	opts.Prefix = prefix
	it := txn.NewIterator(opts)
	defer it.Close()

	names := make([]string, 0)
	for it.Rewind(); it.Valid(); it.Next() {
		key := it.Item().Key()
		names = append(names, string(key[len(prefix):]))
	}
	return names
}

// subtreePaths returns the canonical paths of every record under abs,
// excluding abs itself.
func subtreePathsTxn(txn *badgerdb.Txn, abs string) []string {
	scan := abs
	if scan != "/" {
		scan += "/"
	}
	prefix := []byte(recordPrefix + scan)
	opts := badgerdb.DefaultIteratorOptions
	opts.PrefetchValues = false
	opts.Prefix = prefix
	it := txn.NewIterator(opts)
	defer it.Close()

	paths := make([]string, 0)
	for it.Rewind(); it.Valid(); it.Next() {
		key := it.Item().Key()
		paths = append(paths, string(key[len(recordPrefix):]))
	}
	return paths
}
