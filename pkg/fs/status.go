package fs

import (
	"os"
	"time"

	"github.com/clusterfs/clusterfs/pkg/native"
)

// FileStatus is the abstract status record for one cluster object.
//
// Owner and group are intentionally absent - the cluster has no equivalent
// concept. A FileStatus is produced fresh on every query and never cached.
type FileStatus struct {
	// Path is the canonical path of the object
	Path string

	// Size is the object size in bytes (0 for directories)
	Size int64

	// IsDir reports whether the object is a directory
	IsDir bool

	// Replication is the number of copies the cluster maintains
	Replication int

	// BlockSize is the object's block size in bytes
	BlockSize int64

	// ModTime is the last modification time
	ModTime time.Time

	// AccessTime is the last access time
	AccessTime time.Time

	// Mode holds the permission bits derived from the native mode field
	Mode os.FileMode
}

// FsStatus reports cluster-wide usage, in bytes.
type FsStatus struct {
	Capacity  int64
	Used      int64
	Remaining int64
}

// BlockLocation describes which cluster host(s) hold one byte range of a
// file. Computed on demand, never persisted.
type BlockLocation struct {
	Hosts  []string
	Offset int64
	Length int64
}

// Stat returns the status of a path.
//
// The root is synthesized without a native call: it always exists and is a
// directory. For any other path the native stat call is issued, followed by
// a replication lookup; a stat refusal translates to ErrNotFound.
func (f *FileSystem) Stat(p string) (status *FileStatus, err error) {
	const op = "getFileStatus"
	start := time.Now()
	defer func() { f.observe(op, start, err) }()

	if err = f.ensureReady(op); err != nil {
		return nil, err
	}
	abs := f.resolvePath(p)

	if abs == Root {
		return &FileStatus{
			Path:        Root,
			IsDir:       true,
			Replication: f.DefaultReplication(),
			BlockSize:   f.DefaultBlockSize(),
			Mode:        os.ModeDir | 0755,
		}, nil
	}

	var st native.Stat
	if !f.client.Stat(abs, &st) {
		return nil, newError(ErrNotFound, op, abs, "path does not exist or could not be accessed")
	}

	return f.statusFromStat(abs, &st), nil
}

// statusFromStat assembles a FileStatus from a filled native stat record,
// issuing the second native call for the replication factor.
func (f *FileSystem) statusFromStat(abs string, st *native.Stat) *FileStatus {
	mode := os.FileMode(st.Mode & 0777)
	if st.IsDir {
		mode |= os.ModeDir
	}
	return &FileStatus{
		Path:        abs,
		Size:        st.Size,
		IsDir:       st.IsDir,
		Replication: f.client.Replication(abs),
		BlockSize:   st.BlockSize,
		ModTime:     time.UnixMilli(st.ModTime),
		AccessTime:  time.UnixMilli(st.AccessTime),
		Mode:        mode,
	}
}

// StatFS returns cluster capacity, usage and remaining space.
//
// The path is forwarded for compatibility; current clusters ignore it. Any
// non-zero native status translates to ErrOperationFailed.
func (f *FileSystem) StatFS(p string) (status *FsStatus, err error) {
	const op = "getStatus"
	start := time.Now()
	defer func() { f.observe(op, start, err) }()

	if err = f.ensureReady(op); err != nil {
		return nil, err
	}
	abs := f.resolvePath(p)

	var st native.StatFS
	if rc := f.client.StatFS(abs, &st); rc != 0 {
		return nil, newErrno(ErrOperationFailed, op, abs, "statfs failed", -rc)
	}

	return &FsStatus{
		Capacity:  st.Capacity,
		Used:      st.Used,
		Remaining: st.Remaining,
	}, nil
}
