package cliconfig

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/pior/rsp"
	"github.com/pior/rsp/frame"
)

// Config holds CLI configuration for rsp.
type Config struct {
	Addr string

	PoolSize       int
	DialTimeout    time.Duration
	RequestTimeout time.Duration
	FailFast       bool

	ChunkSize        int
	BatchSize        int
	Compression      bool
	CompressionLevel int
	Hash             string

	LogLevel    string
	LogFormat   string
	MetricsAddr string
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		Addr:             "localhost:7468",
		PoolSize:         rsp.DefaultPoolSize,
		DialTimeout:      rsp.DefaultDialTimeout,
		RequestTimeout:   30 * time.Second,
		ChunkSize:        rsp.DefaultChunkSize,
		BatchSize:        rsp.DefaultBatchSize,
		CompressionLevel: frame.DefaultCompressionLevel,
		Hash:             "murmur3",
		LogLevel:         "info",
		LogFormat:        "console",
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("addr is required")
	}
	if c.PoolSize <= 0 || c.PoolSize > math.MaxInt32 {
		return fmt.Errorf("pool size must be positive")
	}
	if c.DialTimeout <= 0 {
		return fmt.Errorf("dial timeout must be positive")
	}
	if c.RequestTimeout < 0 {
		return fmt.Errorf("request timeout must not be negative")
	}
	if c.ChunkSize <= 0 || c.ChunkSize > frame.MaxBlockSize {
		return fmt.Errorf("chunk size must be between 1 and %d", frame.MaxBlockSize)
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("batch size must be positive")
	}
	if _, err := c.streamHash(); err != nil {
		return err
	}

	c.LogFormat = strings.ToLower(c.LogFormat)
	if c.LogFormat != "json" && c.LogFormat != "console" {
		return fmt.Errorf("log format must be json or console, got %q", c.LogFormat)
	}
	if _, err := zerolog.ParseLevel(strings.ToLower(c.LogLevel)); err != nil {
		return fmt.Errorf("log level: %w", err)
	}
	return nil
}

func (c *Config) streamHash() (frame.NameHash, error) {
	switch strings.ToLower(c.Hash) {
	case "", "murmur3":
		return frame.Murmur3Hash, nil
	case "xxh3":
		return frame.XXH3Hash, nil
	default:
		return nil, fmt.Errorf("unknown hash %q (murmur3 or xxh3)", c.Hash)
	}
}

// ClientConfig converts the CLI configuration into the client configuration.
// The configuration must be valid.
func (c *Config) ClientConfig(logger *zerolog.Logger) rsp.Config {
	hash, _ := c.streamHash()

	return rsp.Config{
		PoolSize:         int32(c.PoolSize),
		DialTimeout:      c.DialTimeout,
		RequestTimeout:   c.RequestTimeout,
		FailFast:         c.FailFast,
		ChunkSize:        c.ChunkSize,
		BatchSize:        c.BatchSize,
		Compression:      c.Compression,
		CompressionLevel: c.CompressionLevel,
		StreamHash:       hash,
		Logger:           logger,
		NewCircuitBreaker: rsp.NewCircuitBreakerConfig(
			3,              // maxRequests in half-open state
			time.Minute,    // interval to reset counts
			10*time.Second, // timeout before half-open
		),
	}
}

// configSetter applies configuration values while respecting flag precedence.
// It only applies values if the corresponding flag hasn't been explicitly set.
type configSetter struct {
	changed map[string]bool
}

func newConfigSetter(changed map[string]bool) *configSetter {
	return &configSetter{changed: changed}
}

func (s *configSetter) setString(flag, value string, dst *string) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value
}

// setInt sets an int value if positive and flag not changed.
func (s *configSetter) setInt(flag string, value int, dst *int) {
	if value <= 0 || s.changed[flag] {
		return
	}
	*dst = value
}

func (s *configSetter) setDuration(flag, value string, dst *time.Duration) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = d
	return nil
}

func (s *configSetter) setBool(flag string, value *bool, dst *bool) {
	if value == nil || s.changed[flag] {
		return
	}
	*dst = *value
}

// setIntFromString parses a string to int and sets the destination if positive.
// Used for environment variables.
func (s *configSetter) setIntFromString(flag, value string, dst *int) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	if i <= 0 {
		return nil
	}
	*dst = i
	return nil
}

// setBoolFromString accepts "true" and "1" as true, anything else as false.
func (s *configSetter) setBoolFromString(flag, value string, dst *bool) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value == "true" || value == "1"
}
