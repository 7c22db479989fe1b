package fs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootProperties(t *testing.T) {
	f, _ := newTestFS(t)

	ok, err := f.Exists("/")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = f.IsDirectory("/")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = f.IsFile("/")
	require.NoError(t, err)
	assert.False(t, ok)

	// Root stat is synthesized without a native lookup.
	status, err := f.Stat("/")
	require.NoError(t, err)
	assert.Equal(t, "/", status.Path)
	assert.True(t, status.IsDir)
	assert.Equal(t, int64(64), status.BlockSize)
	assert.Equal(t, 1, status.Replication)
}

func TestMkdirsIdempotent(t *testing.T) {
	f, _ := newTestFS(t)

	ok, err := f.Mkdirs("/a/b/c", 0755)
	require.NoError(t, err)
	assert.True(t, ok)

	isDir, err := f.IsDirectory("/a/b/c")
	require.NoError(t, err)
	assert.True(t, isDir)

	// The chain already exists: still success.
	ok, err = f.Mkdirs("/a/b/c", 0755)
	require.NoError(t, err)
	assert.True(t, ok)

	// A file squatting on the target refuses the chain.
	w, err := f.Create("/a/b/file", 0644, 0, nil)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	ok, err = f.Mkdirs("/a/b/file", 0755)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestListStatus(t *testing.T) {
	f, _ := newTestFS(t)

	_, err := f.Mkdirs("/dir/sub", 0755)
	require.NoError(t, err)
	w, err := f.Create("/dir/file.txt", 0644, 0, nil)
	require.NoError(t, err)
	_, err = w.Write([]byte("hello"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	statuses, err := f.ListStatus("/dir")
	require.NoError(t, err)
	require.Len(t, statuses, 2)

	// Listing order follows the native listing (lexicographic here).
	assert.Equal(t, "/dir/file.txt", statuses[0].Path)
	assert.False(t, statuses[0].IsDir)
	assert.Equal(t, int64(5), statuses[0].Size)
	assert.Equal(t, "/dir/sub", statuses[1].Path)
	assert.True(t, statuses[1].IsDir)
}

func TestListStatusSignals(t *testing.T) {
	f, _ := newTestFS(t)

	w, err := f.Create("/plain.txt", 0644, 0, nil)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	_, err = f.Mkdirs("/empty", 0755)
	require.NoError(t, err)

	// A single file is signalled with nil statuses and nil error.
	statuses, err := f.ListStatus("/plain.txt")
	require.NoError(t, err)
	assert.Nil(t, statuses)

	// An empty directory is an empty, non-nil slice.
	statuses, err = f.ListStatus("/empty")
	require.NoError(t, err)
	require.NotNil(t, statuses)
	assert.Empty(t, statuses)

	// A missing path is an error.
	_, err = f.ListStatus("/missing")
	assert.True(t, IsCode(err, ErrNotFound))
}

func TestListStatusRecursive(t *testing.T) {
	f, _ := newTestFS(t)

	_, err := f.Mkdirs("/tree/a/deep", 0755)
	require.NoError(t, err)
	for _, p := range []string{"/tree/top.txt", "/tree/a/mid.txt", "/tree/a/deep/leaf.txt"} {
		w, err := f.Create(p, 0644, 0, nil)
		require.NoError(t, err)
		require.NoError(t, w.Close())
	}

	statuses, err := f.ListStatusRecursive("/tree")
	require.NoError(t, err)

	paths := make([]string, 0, len(statuses))
	for _, s := range statuses {
		paths = append(paths, s.Path)
	}
	assert.Equal(t, []string{
		"/tree/a",
		"/tree/top.txt",
		"/tree/a/deep",
		"/tree/a/mid.txt",
		"/tree/a/deep/leaf.txt",
	}, paths)

	// Parents always precede their children.
	index := make(map[string]int, len(paths))
	for i, p := range paths {
		index[p] = i
	}
	assert.Less(t, index["/tree/a"], index["/tree/a/mid.txt"])
	assert.Less(t, index["/tree/a/deep"], index["/tree/a/deep/leaf.txt"])
}

func TestDelete(t *testing.T) {
	f, _ := newTestFS(t)

	// Missing path: no error, not removed.
	ok, err := f.Delete("/missing", false)
	require.NoError(t, err)
	assert.False(t, ok)

	// Root is refused outright.
	_, err = f.Delete("/", true)
	assert.True(t, IsCode(err, ErrIllegalOperation))

	// Plain file.
	w, err := f.Create("/doomed.txt", 0644, 0, nil)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	ok, err = f.Delete("/doomed.txt", false)
	require.NoError(t, err)
	assert.True(t, ok)

	// Non-recursive delete of a directory.
	_, err = f.Mkdirs("/dir", 0755)
	require.NoError(t, err)
	_, err = f.Delete("/dir", false)
	assert.True(t, IsCode(err, ErrNotEmpty))

	// Recursive delete of a populated tree.
	_, err = f.Mkdirs("/dir/a/b", 0755)
	require.NoError(t, err)
	for _, p := range []string{"/dir/f1", "/dir/a/f2", "/dir/a/b/f3"} {
		w, err := f.Create(p, 0644, 0, nil)
		require.NoError(t, err)
		require.NoError(t, w.Close())
	}
	ok, err = f.Delete("/dir", true)
	require.NoError(t, err)
	assert.True(t, ok)

	exists, err := f.Exists("/dir")
	require.NoError(t, err)
	assert.False(t, exists)
}
