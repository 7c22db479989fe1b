package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/clusterfs/clusterfs/pkg/fs"
)

func TestLoadDefaults(t *testing.T) {
	// An empty config file still yields a working memory-backed setup.
	cfg, err := loadFromContent(t, "")
	require.NoError(t, err)

	assert.Equal(t, "INFO", cfg.Logging.Level)
	assert.Equal(t, "stdout", cfg.Logging.Output)
	assert.Equal(t, 9090, cfg.Metrics.Port)
	assert.Equal(t, "memory", cfg.Native.Type)
	assert.Equal(t, "memory", cfg.Native.Content.Type)
	assert.Equal(t, "clusterfs://main", cfg.Filesystem.URI)
	assert.Equal(t, int64(fs.DefaultBlockSize), cfg.Filesystem.BlockSize)
	assert.Equal(t, fs.DefaultReadahead, cfg.Filesystem.Readahead)
	assert.NotEmpty(t, cfg.Filesystem.MonitorAddr)
}

func loadFromContent(t *testing.T, content string) (*Config, error) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return Load(path)
}

func TestLoadFromFile(t *testing.T) {
	cfg, err := loadFromContent(t, `
logging:
  level: debug
  output: stderr
metrics:
  enabled: true
  port: 9191
filesystem:
  uri: clusterfs://prod
  monitor_addr: mon1:6789
  block_size: 1048576
  readahead: 4
native:
  type: badger
  badger:
    dir: /var/lib/clusterfs
  content:
    type: memory
`)
	require.NoError(t, err)

	// Level is normalized to uppercase.
	assert.Equal(t, "DEBUG", cfg.Logging.Level)
	assert.Equal(t, "stderr", cfg.Logging.Output)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, 9191, cfg.Metrics.Port)
	assert.Equal(t, "clusterfs://prod", cfg.Filesystem.URI)
	assert.Equal(t, "mon1:6789", cfg.Filesystem.MonitorAddr)
	assert.Equal(t, int64(1048576), cfg.Filesystem.BlockSize)
	assert.Equal(t, 4, cfg.Filesystem.Readahead)
	assert.Equal(t, "badger", cfg.Native.Type)
	assert.Equal(t, "/var/lib/clusterfs", cfg.Native.Badger["dir"])
}

func TestLoadMarshaledFixture(t *testing.T) {
	fixture := map[string]any{
		"logging": map[string]any{"level": "warn", "output": "stdout"},
		"native": map[string]any{
			"type":   "memory",
			"memory": map[string]any{"host": "node7", "replication": 3},
		},
	}
	data, err := yaml.Marshal(fixture)
	require.NoError(t, err)

	cfg, err := loadFromContent(t, string(data))
	require.NoError(t, err)

	assert.Equal(t, "WARN", cfg.Logging.Level)
	assert.Equal(t, "node7", cfg.Native.Memory["host"])
	assert.Equal(t, 3, cfg.Native.Memory["replication"])
}

func TestValidation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "valid defaults",
			mutate: func(cfg *Config) {},
		},
		{
			name:    "bad log level",
			mutate:  func(cfg *Config) { cfg.Logging.Level = "VERBOSE" },
			wantErr: "oneof",
		},
		{
			name:    "bad native type",
			mutate:  func(cfg *Config) { cfg.Native.Type = "zookeeper" },
			wantErr: "oneof",
		},
		{
			name:    "badger without dir",
			mutate:  func(cfg *Config) { cfg.Native.Type = "badger" },
			wantErr: "dir is required",
		},
		{
			name: "s3 without bucket",
			mutate: func(cfg *Config) {
				cfg.Native.Content.Type = "s3"
			},
			wantErr: "bucket is required",
		},
		{
			name: "s3 without region",
			mutate: func(cfg *Config) {
				cfg.Native.Content.Type = "s3"
				cfg.Native.Content.S3["bucket"] = "data"
			},
			wantErr: "region is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{}
			ApplyDefaults(cfg)
			tt.mutate(cfg)

			err := Validate(cfg)
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestCreateNativeClientMemory(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	client, err := CreateNativeClient(t.Context(), &cfg.Native)
	require.NoError(t, err)
	assert.True(t, client.Init("test", 0))
	assert.True(t, client.Shutdown())
}

func TestCreateNativeClientBadger(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)
	cfg.Native.Type = "badger"
	cfg.Native.Badger["dir"] = t.TempDir()

	client, err := CreateNativeClient(t.Context(), &cfg.Native)
	require.NoError(t, err)
	assert.True(t, client.Init("test", 0))
	assert.True(t, client.Shutdown())
}

func TestCreateNativeClientUnknown(t *testing.T) {
	cfg := &NativeConfig{Type: "external"}
	_, err := CreateNativeClient(t.Context(), cfg)
	assert.Error(t, err)
}
