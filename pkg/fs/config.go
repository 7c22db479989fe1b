package fs

// DefaultBlockSize is the block size hint used when none is configured:
// 64 MiB.
const DefaultBlockSize = 1 << 26

// DefaultReadahead is the read-ahead period count forwarded to the native
// client when none is configured.
const DefaultReadahead = 1

// Config holds the filesystem-level configuration consumed at
// initialization.
//
// The fields mirror the native client's startup knobs: everything here is
// assembled into a single argument string and handed to the client's init
// call. Only URI, BlockSize and Debug affect the adapter itself.
type Config struct {
	// URI is this filesystem's own URI prefix (e.g. "clusterfs://main").
	// Caller-supplied paths carrying this prefix are stripped down to
	// their cluster-absolute remainder.
	URI string `mapstructure:"uri"`

	// MonitorAddr is the cluster entry point. Required unless
	// CommandLine embeds a -m or -c flag.
	MonitorAddr string `mapstructure:"monitor_addr"`

	// LibraryDir is where the native client libraries live. Recorded
	// for the loader; not interpreted by the adapter.
	LibraryDir string `mapstructure:"library_dir"`

	// CommandLine is a raw passthrough merged into the startup
	// argument string ahead of the explicit flags.
	CommandLine string `mapstructure:"command_line"`

	// ClientDebug, when set, is forwarded as the native client debug
	// level.
	ClientDebug string `mapstructure:"client_debug"`

	// MessengerDebug, when set, is forwarded as the native messenger
	// debug level.
	MessengerDebug string `mapstructure:"messenger_debug"`

	// BlockSize is the default block size hint in bytes. Zero selects
	// DefaultBlockSize.
	BlockSize int64 `mapstructure:"block_size" validate:"gte=0"`

	// Readahead is forwarded as the client read-ahead period count.
	// Zero selects DefaultReadahead.
	Readahead int `mapstructure:"readahead" validate:"gte=0"`

	// Debug enables verbose tracing in this layer only.
	Debug bool `mapstructure:"debug"`
}
