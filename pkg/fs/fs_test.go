package fs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clusterfs/clusterfs/pkg/native"
	nativeMemory "github.com/clusterfs/clusterfs/pkg/native/memory"
)

// newTestFS returns an initialized filesystem over a fresh in-memory
// cluster, plus the client for white-box assertions.
func newTestFS(t *testing.T) (*FileSystem, *nativeMemory.Client) {
	t.Helper()

	client := nativeMemory.New()
	f := New(client, nil)
	err := f.Initialize(&Config{
		URI:         "clusterfs://test",
		MonitorAddr: "localhost",
		BlockSize:   64,
	})
	require.NoError(t, err)
	return f, client
}

func TestInitializeLifecycle(t *testing.T) {
	client := nativeMemory.New()
	f := New(client, nil)

	assert.Equal(t, StateUninitialized, f.State())

	// Operations before Initialize are refused.
	_, err := f.Exists("/anything")
	assert.True(t, IsCode(err, ErrNotInitialized))

	require.NoError(t, f.Initialize(&Config{MonitorAddr: "localhost"}))
	assert.Equal(t, StateReady, f.State())

	// Re-initialization is a guarded no-op.
	require.NoError(t, f.Initialize(&Config{MonitorAddr: "localhost"}))

	require.NoError(t, f.Close())
	assert.Equal(t, StateClosed, f.State())

	// Closed is terminal.
	err = f.Initialize(&Config{MonitorAddr: "localhost"})
	assert.True(t, IsCode(err, ErrIllegalOperation))

	err = f.Close()
	assert.True(t, IsCode(err, ErrNotInitialized))
}

func TestInitializeRequiresMonitorOrConfigFlag(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{
			name:    "monitor address present",
			cfg:     Config{MonitorAddr: "mon1:6789"},
			wantErr: false,
		},
		{
			name:    "embedded -m flag",
			cfg:     Config{CommandLine: "-m mon1:6789"},
			wantErr: false,
		},
		{
			name:    "embedded -c flag",
			cfg:     Config{CommandLine: "-c /etc/cluster.conf"},
			wantErr: false,
		},
		{
			name:    "nothing",
			cfg:     Config{},
			wantErr: true,
		},
		{
			// The assembled string always ends with the readahead flag,
			// whose literal contains "-m" and "-c"; it must not satisfy
			// the guard.
			name:    "readahead alone",
			cfg:     Config{Readahead: 4},
			wantErr: true,
		},
		{
			name:    "unrelated passthrough",
			cfg:     Config{CommandLine: "--keyring /etc/keyring"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := New(nativeMemory.New(), nil)
			err := f.Initialize(&tt.cfg)
			if tt.wantErr {
				assert.True(t, IsCode(err, ErrConfiguration))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

// initFailClient wraps a working client but refuses to start.
type initFailClient struct {
	native.Client
}

func (c initFailClient) Init(args string, blockSize int64) bool { return false }

func TestInitializeNativeFailure(t *testing.T) {
	f := New(initFailClient{nativeMemory.New()}, nil)
	err := f.Initialize(&Config{MonitorAddr: "localhost"})
	assert.True(t, IsCode(err, ErrInitialization))
	assert.Equal(t, StateUninitialized, f.State())
}

func TestAssembleArguments(t *testing.T) {
	cfg := &Config{
		CommandLine:    "-c /etc/cluster.conf",
		ClientDebug:    "20",
		MessengerDebug: "1",
		MonitorAddr:    "mon1:6789",
		Readahead:      4,
	}
	args := assembleArguments(cfg)
	assert.Equal(t,
		"clusterfs -c /etc/cluster.conf --debug_client 20 --debug_ms 1 -m mon1:6789 --client-readahead-max-periods=4",
		args)

	// Defaults: readahead falls back to 1.
	args = assembleArguments(&Config{MonitorAddr: "mon1:6789"})
	assert.Equal(t, "clusterfs -m mon1:6789 --client-readahead-max-periods=1", args)
}

func TestResolvePath(t *testing.T) {
	f, _ := newTestFS(t)
	require.NoError(t, f.SetWorkingDirectory("/work"))

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty means root", "", "/"},
		{"absolute passes through", "/a/b", "/a/b"},
		{"uri prefix stripped", "clusterfs://test/a/b", "/a/b"},
		{"uri prefix alone means root", "clusterfs://test", "/"},
		{"relative joins cwd", "data/file.txt", "/data/file.txt"},
		{"no dot collapsing", "/a/../b", "/a/../b"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, f.resolvePath(tt.in))
		})
	}
}

func TestResolvePathRelativeToCwd(t *testing.T) {
	f, _ := newTestFS(t)
	ok, err := f.Mkdirs("/work", 0755)
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, f.SetWorkingDirectory("/work"))

	assert.Equal(t, "/work/file.txt", f.resolvePath("file.txt"))

	wd, err := f.WorkingDirectory()
	require.NoError(t, err)
	assert.Equal(t, "clusterfs://test/work", wd)
}

func TestSetWorkingDirectoryRefusalIsAdvisory(t *testing.T) {
	f, _ := newTestFS(t)

	// A missing directory is refused natively but surfaces no error.
	require.NoError(t, f.SetWorkingDirectory("/missing"))

	wd, err := f.WorkingDirectory()
	require.NoError(t, err)
	assert.Equal(t, "clusterfs://test/", wd)
}

func TestParentAndChildPath(t *testing.T) {
	assert.Equal(t, "", parentPath("/"))
	assert.Equal(t, "/", parentPath("/a"))
	assert.Equal(t, "/a", parentPath("/a/b"))

	assert.Equal(t, "/a", childPath("/", "a"))
	assert.Equal(t, "/a/b", childPath("/a", "b"))
	assert.Equal(t, "/x/y", childPath("/a", "/x/y"))
}

func TestDefaultBlockSize(t *testing.T) {
	f, _ := newTestFS(t)
	assert.Equal(t, int64(64), f.DefaultBlockSize())

	unconfigured := New(nativeMemory.New(), nil)
	assert.Equal(t, int64(DefaultBlockSize), unconfigured.DefaultBlockSize())

	assert.Equal(t, 1, f.DefaultReplication())
}
