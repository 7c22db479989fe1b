package fs

import (
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, f *FileSystem, path, content string) {
	t.Helper()
	w, err := f.Create(path, 0644, CreateOverwrite, nil)
	require.NoError(t, err)
	_, err = w.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, w.Close())
}

func readFile(t *testing.T, f *FileSystem, path string) string {
	t.Helper()
	r, err := f.Open(path)
	require.NoError(t, err)
	defer func() { require.NoError(t, r.Close()) }()
	data, err := io.ReadAll(r)
	require.NoError(t, err)
	return string(data)
}

func TestCreateWriteReadRoundTrip(t *testing.T) {
	f, client := newTestFS(t)

	w, err := f.Create("/data/hello.txt", 0644, CreateOverwrite, nil)
	require.NoError(t, err)
	_, err = w.Write([]byte("hello, "))
	require.NoError(t, err)
	_, err = w.Write([]byte("cluster"))
	require.NoError(t, err)
	assert.Equal(t, int64(14), w.Written())
	require.NoError(t, w.Close())

	assert.Equal(t, "hello, cluster", readFile(t, f, "/data/hello.txt"))

	status, err := f.Stat("/data/hello.txt")
	require.NoError(t, err)
	assert.Equal(t, int64(14), status.Size)
	assert.False(t, status.IsDir)

	// Every handle was released.
	assert.Equal(t, 0, client.OpenHandles())
}

func TestCreateRefusals(t *testing.T) {
	f, _ := newTestFS(t)

	writeFile(t, f, "/file.txt", "v1")
	_, err := f.Mkdirs("/dir", 0755)
	require.NoError(t, err)

	// Existing file without the overwrite flag.
	_, err = f.Create("/file.txt", 0644, 0, nil)
	assert.True(t, IsCode(err, ErrAlreadyExists))

	// Existing directory, overwrite flag or not.
	_, err = f.Create("/dir", 0644, CreateOverwrite, nil)
	assert.True(t, IsCode(err, ErrIsDirectory))
	_, err = f.Create("/", 0644, CreateOverwrite, nil)
	assert.True(t, IsCode(err, ErrIsDirectory))

	// Overwrite flag replaces content.
	writeFile(t, f, "/file.txt", "v2")
	assert.Equal(t, "v2", readFile(t, f, "/file.txt"))
}

func TestCreateMissingParentsAndProgress(t *testing.T) {
	f, _ := newTestFS(t)

	calls := 0
	w, err := f.Create("/deep/nested/file.txt", 0644, 0, func() { calls++ })
	require.NoError(t, err)
	require.NoError(t, w.Close())

	// Pre-open, post-parent-creation, post-open.
	assert.Equal(t, 3, calls)

	isDir, err := f.IsDirectory("/deep/nested")
	require.NoError(t, err)
	assert.True(t, isDir)

	// Existing file path skips the parent phase.
	calls = 0
	w, err = f.Create("/deep/nested/file.txt", 0644, CreateOverwrite, func() { calls++ })
	require.NoError(t, err)
	require.NoError(t, w.Close())
	assert.Equal(t, 2, calls)
}

func TestOpenRefusals(t *testing.T) {
	f, client := newTestFS(t)

	_, err := f.Open("/missing.txt")
	assert.True(t, IsCode(err, ErrNotFound))

	// Directories open natively but the abstraction refuses them, and the
	// briefly-open handle must not leak.
	_, err = f.Mkdirs("/dir", 0755)
	require.NoError(t, err)
	_, err = f.Open("/dir")
	assert.True(t, IsCode(err, ErrIsDirectory))
	assert.Equal(t, 0, client.OpenHandles())

	_, err = f.Open("/")
	assert.True(t, IsCode(err, ErrIsDirectory))
	assert.Equal(t, 0, client.OpenHandles())
}

func TestAppend(t *testing.T) {
	f, client := newTestFS(t)

	writeFile(t, f, "/log.txt", "first\n")

	w, err := f.Append("/log.txt")
	require.NoError(t, err)
	_, err = w.Write([]byte("second\n"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	assert.Equal(t, "first\nsecond\n", readFile(t, f, "/log.txt"))
	assert.Equal(t, 0, client.OpenHandles())

	// Appending to a missing file fails.
	_, err = f.Append("/missing.txt")
	assert.True(t, IsCode(err, ErrOperationFailed))
}

func TestStreamCloseIsIdempotent(t *testing.T) {
	f, client := newTestFS(t)

	writeFile(t, f, "/f.txt", "data")

	r, err := f.Open("/f.txt")
	require.NoError(t, err)
	require.NoError(t, r.Close())
	require.NoError(t, r.Close())
	assert.Equal(t, 0, client.OpenHandles())

	// Reading after close is an error.
	buf := make([]byte, 4)
	_, err = r.Read(buf)
	assert.Error(t, err)

	w, err := f.Append("/f.txt")
	require.NoError(t, err)
	require.NoError(t, w.Close())
	require.NoError(t, w.Close())
	_, err = w.Write([]byte("x"))
	assert.Error(t, err)
	assert.Equal(t, 0, client.OpenHandles())
}

func TestReaderMetadata(t *testing.T) {
	f, _ := newTestFS(t)

	writeFile(t, f, "/sized.txt", "0123456789")

	r, err := f.Open("/sized.txt")
	require.NoError(t, err)
	defer func() { _ = r.Close() }()

	assert.Equal(t, int64(10), r.Size())
	assert.Equal(t, "/sized.txt", r.Path())
}

func TestRename(t *testing.T) {
	f, _ := newTestFS(t)

	writeFile(t, f, "/old.txt", "content")

	ok, err := f.Rename("/old.txt", "/new.txt")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "content", readFile(t, f, "/new.txt"))

	exists, err := f.Exists("/old.txt")
	require.NoError(t, err)
	assert.False(t, exists)

	// The raw boolean refusal passes through without an error.
	ok, err = f.Rename("/missing", "/anywhere")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSetPermissionAndTimes(t *testing.T) {
	f, _ := newTestFS(t)

	writeFile(t, f, "/perm.txt", "x")

	require.NoError(t, f.SetPermission("/perm.txt", 0600))
	status, err := f.Stat("/perm.txt")
	require.NoError(t, err)
	assert.Equal(t, "-rw-------", status.Mode.String())

	mtime := time.UnixMilli(1700000000000)
	atime := time.UnixMilli(1700000001000)
	require.NoError(t, f.SetTimes("/perm.txt", mtime, atime))

	status, err = f.Stat("/perm.txt")
	require.NoError(t, err)
	assert.Equal(t, mtime, status.ModTime)
	assert.Equal(t, atime, status.AccessTime)

	err = f.SetPermission("/missing", 0600)
	assert.True(t, IsCode(err, ErrOperationFailed))
	err = f.SetTimes("/missing", mtime, atime)
	assert.True(t, IsCode(err, ErrOperationFailed))
}

func TestBlockLocations(t *testing.T) {
	f, client := newTestFS(t)

	// 100 bytes over a 64-byte block size.
	writeFile(t, f, "/blocks.bin", string(make([]byte, 100)))
	status, err := f.Stat("/blocks.bin")
	require.NoError(t, err)

	locations, err := f.BlockLocations(status, 0, 100)
	require.NoError(t, err)
	require.Len(t, locations, 2)
	assert.Equal(t, int64(0), locations[0].Offset)
	assert.Equal(t, int64(64), locations[0].Length)
	assert.Equal(t, []string{"localhost"}, locations[0].Hosts)
	assert.Equal(t, int64(64), locations[1].Offset)
	assert.Equal(t, int64(64), locations[1].Length)

	// The count subtracts start from length, so a range starting at 40
	// spanning 100 yields one block, not two.
	locations, err = f.BlockLocations(status, 40, 100)
	require.NoError(t, err)
	require.Len(t, locations, 1)
	assert.Equal(t, int64(40), locations[0].Offset)

	// Missing file: empty result, no error.
	missing := &FileStatus{Path: "/missing.bin"}
	locations, err = f.BlockLocations(missing, 0, 100)
	require.NoError(t, err)
	assert.Empty(t, locations)

	// Every probe handle was released.
	assert.Equal(t, 0, client.OpenHandles())
}

func TestStatFS(t *testing.T) {
	f, _ := newTestFS(t)

	writeFile(t, f, "/usage.txt", "0123456789")

	status, err := f.StatFS("/")
	require.NoError(t, err)
	assert.Positive(t, status.Capacity)
	assert.Equal(t, int64(10), status.Used)
	assert.Equal(t, status.Capacity-status.Used, status.Remaining)
}

func TestStatMissing(t *testing.T) {
	f, _ := newTestFS(t)

	_, err := f.Stat("/nope")
	assert.True(t, IsCode(err, ErrNotFound))
}
