package loggerprotocol

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// SinkFactory opens the destination for a downloaded file.
type SinkFactory func(filename string) (io.WriteCloser, error)

// Config holds the client configuration.
type Config struct {
	// Logger receives protocol diagnostics. Defaults to discarding.
	Logger *slog.Logger

	// MaxPolls caps the transport reads spent waiting for one prompt, and
	// the consecutive empty reads tolerated during a transfer.
	MaxPolls int

	// CommandTimeout is the overall budget for one command.
	CommandTimeout time.Duration

	// ChunkSize is the largest raw read per ConsumeChunk.
	ChunkSize int

	// DownloadDir is where the default sink writes files.
	DownloadDir string

	// Sink overrides how download destinations are opened.
	Sink SinkFactory

	// DeleteAfterDownload removes each file from the logger once it has
	// been received intact.
	DeleteAfterDownload bool

	// Now is the local clock used for time synchronization.
	Now func() time.Time
}

// defaultConfig returns the default configuration.
func defaultConfig() Config {
	return Config{
		Logger:              slog.New(slog.DiscardHandler),
		MaxPolls:            DefaultMaxPolls,
		CommandTimeout:      DefaultCommandTimeout,
		ChunkSize:           DefaultChunkSize,
		DownloadDir:         ".",
		DeleteAfterDownload: true,
		Now:                 time.Now,
	}
}

// sink returns the configured sink factory, or one creating files in
// DownloadDir.
func (c Config) sink() SinkFactory {
	if c.Sink != nil {
		return c.Sink
	}
	dir := c.DownloadDir
	return func(filename string) (io.WriteCloser, error) {
		return os.Create(filepath.Join(dir, filepath.Base(filename)))
	}
}

// Option is a functional option for configuring the Client.
type Option func(*Config)

// WithLogger sets the logger for protocol diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Config) {
		if logger != nil {
			c.Logger = logger
		}
	}
}

// WithMaxPolls sets the poll ceiling for one command.
func WithMaxPolls(n int) Option {
	return func(c *Config) {
		if n > 0 {
			c.MaxPolls = n
		}
	}
}

// WithCommandTimeout sets the overall budget for one command.
func WithCommandTimeout(d time.Duration) Option {
	return func(c *Config) {
		if d > 0 {
			c.CommandTimeout = d
		}
	}
}

// WithChunkSize sets the largest raw read per ConsumeChunk.
//
// Example:
//
//	client := loggerprotocol.NewClient(loggerprotocol.WithChunkSize(1024))
func WithChunkSize(size int) Option {
	return func(c *Config) {
		if size > 0 {
			c.ChunkSize = size
		}
	}
}

// WithDownloadDir sets the directory downloads are written to.
func WithDownloadDir(dir string) Option {
	return func(c *Config) {
		if dir != "" {
			c.DownloadDir = dir
		}
	}
}

// WithSinkFactory replaces the file-creating download sink.
func WithSinkFactory(f SinkFactory) Option {
	return func(c *Config) {
		c.Sink = f
	}
}

// WithDeleteAfterDownload controls whether downloaded files are removed
// from the logger. Default is true.
func WithDeleteAfterDownload(del bool) Option {
	return func(c *Config) {
		c.DeleteAfterDownload = del
	}
}

// WithClock sets the local clock used by TimeDelta and SyncTime.
func WithClock(now func() time.Time) Option {
	return func(c *Config) {
		if now != nil {
			c.Now = now
		}
	}
}
