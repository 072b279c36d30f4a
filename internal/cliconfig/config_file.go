package cliconfig

import (
	"os"
	"path/filepath"

	toml "github.com/pelletier/go-toml/v2"
)

// FileConfig mirrors Config but uses strings for durations to make TOML friendly.
type FileConfig struct {
	Addr             string `toml:"addr"`
	PoolSize         int    `toml:"pool_size"`
	DialTimeout      string `toml:"dial_timeout"`
	RequestTimeout   string `toml:"request_timeout"`
	FailFast         *bool  `toml:"fail_fast"`
	ChunkSize        int    `toml:"chunk_size"`
	BatchSize        int    `toml:"batch_size"`
	Compression      *bool  `toml:"compression"`
	CompressionLevel int    `toml:"compression_level"`
	Hash             string `toml:"hash"`
	LogLevel         string `toml:"log_level"`
	LogFormat        string `toml:"log_format"`
	MetricsAddr      string `toml:"metrics_addr"`
}

// LoadFileConfig reads and parses a TOML config file from the given path.
// Unknown keys are rejected.
func LoadFileConfig(path string) (FileConfig, error) {
	var fc FileConfig
	f, err := os.Open(path)
	if err != nil {
		return fc, err
	}
	defer f.Close()

	dec := toml.NewDecoder(f).DisallowUnknownFields()
	if err := dec.Decode(&fc); err != nil {
		return fc, err
	}
	return fc, nil
}

// DefaultConfigPath returns ~/.rsp/config.toml, or "" when the home directory
// is unknown.
func DefaultConfigPath() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".rsp", "config.toml")
	}
	return ""
}

// ApplyFileConfig applies configuration from a file to the Config struct.
// It respects flags that have been explicitly set (changed map).
func ApplyFileConfig(cfg *Config, fc FileConfig, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("addr", fc.Addr, &cfg.Addr)
	s.setString("hash", fc.Hash, &cfg.Hash)
	s.setString("log-level", fc.LogLevel, &cfg.LogLevel)
	s.setString("log-format", fc.LogFormat, &cfg.LogFormat)
	s.setString("metrics-addr", fc.MetricsAddr, &cfg.MetricsAddr)

	if err := s.setDuration("dial-timeout", fc.DialTimeout, &cfg.DialTimeout); err != nil {
		return err
	}
	if err := s.setDuration("timeout", fc.RequestTimeout, &cfg.RequestTimeout); err != nil {
		return err
	}

	s.setInt("pool-size", fc.PoolSize, &cfg.PoolSize)
	s.setInt("chunk-size", fc.ChunkSize, &cfg.ChunkSize)
	s.setInt("batch-size", fc.BatchSize, &cfg.BatchSize)
	s.setInt("compression-level", fc.CompressionLevel, &cfg.CompressionLevel)

	s.setBool("fail-fast", fc.FailFast, &cfg.FailFast)
	s.setBool("compress", fc.Compression, &cfg.Compression)

	return nil
}

// FileExists checks if a file exists at the given path.
func FileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}
