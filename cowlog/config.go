// =============================================================================
// config.go - YAML Configuration File
// =============================================================================
//
// Settings that rarely change live in ~/.cowlog.yaml:
//
//	port: /dev/ttyUSB0
//	dir: ~/coweeta/data
//	keep: false
//	read_timeout: 200ms
//	chunk_size: 5000
//
// Command-line flags override the file. A missing default file is not an
// error; a missing file named with --config is.
//
// =============================================================================

package main

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/goccy/go-yaml"

	"github.com/Coweeta/datalogger-tools/loggerprotocol"
)

// configFileName is the config file in the user's home directory.
const configFileName = ".cowlog.yaml"

// fileConfig is the contents of the config file merged with the flags.
type fileConfig struct {
	Port           string        `yaml:"port"`
	Baud           int           `yaml:"baud"`
	Dir            string        `yaml:"dir"`
	Keep           bool          `yaml:"keep"`
	Plain          bool          `yaml:"plain"`
	ReadTimeout    time.Duration `yaml:"read_timeout"`
	CommandTimeout time.Duration `yaml:"command_timeout"`
	ChunkSize      int           `yaml:"chunk_size"`
	MaxPolls       int           `yaml:"max_polls"`
}

// defaultConfigPath returns ~/.cowlog.yaml.
func defaultConfigPath() string {
	return filepath.Join(homeDir(), configFileName)
}

// loadConfig reads the config file at path, or the default file when path
// is empty.
func loadConfig(path string) (fileConfig, error) {
	var cfg fileConfig

	explicit := path != ""
	if !explicit {
		path = defaultConfigPath()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config: %w", err)
	}

	if err := yaml.UnmarshalWithOptions(data, &cfg, yaml.Strict()); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}
	if cfg.Baud < 0 || cfg.ChunkSize < 0 || cfg.MaxPolls < 0 {
		return cfg, fmt.Errorf("parse %s: negative values are not allowed", path)
	}
	cfg.Dir = expandHome(cfg.Dir)
	return cfg, nil
}

// apply overrides the file settings with the given flags.
func (c *fileConfig) apply(args arguments) {
	if args.port != "" {
		c.Port = args.port
	}
	if args.baud != 0 {
		c.Baud = args.baud
	}
	if args.dir != "" {
		c.Dir = args.dir
	}
	if args.keep {
		c.Keep = true
	}
	if args.plain {
		c.Plain = true
	}
	if c.Dir == "" {
		c.Dir = "."
	}
}

// serialConfig returns the serial line settings.
func (c fileConfig) serialConfig() loggerprotocol.SerialConfig {
	return loggerprotocol.SerialConfig{
		BaudRate:    c.Baud,
		ReadTimeout: c.ReadTimeout,
	}
}

// clientOptions returns the client options for these settings. Zero values
// keep the library defaults.
func (c fileConfig) clientOptions(logger *slog.Logger) []loggerprotocol.Option {
	return []loggerprotocol.Option{
		loggerprotocol.WithLogger(logger),
		loggerprotocol.WithDownloadDir(c.Dir),
		loggerprotocol.WithDeleteAfterDownload(!c.Keep),
		loggerprotocol.WithChunkSize(c.ChunkSize),
		loggerprotocol.WithMaxPolls(c.MaxPolls),
		loggerprotocol.WithCommandTimeout(c.CommandTimeout),
	}
}

// expandHome replaces a leading ~/ with the home directory.
func expandHome(path string) string {
	if path == "~" {
		return homeDir()
	}
	if rest, ok := strings.CutPrefix(path, "~/"); ok {
		return filepath.Join(homeDir(), rest)
	}
	return path
}
