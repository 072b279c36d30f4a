package cliconfig

import "os"

// ApplyEnvConfig applies RSP_* environment variables to cfg.
// Flags that have been explicitly set (changed map) take precedence.
func ApplyEnvConfig(cfg *Config, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("addr", os.Getenv("RSP_ADDR"), &cfg.Addr)
	s.setString("hash", os.Getenv("RSP_HASH"), &cfg.Hash)
	s.setString("log-level", os.Getenv("RSP_LOG_LEVEL"), &cfg.LogLevel)
	s.setString("log-format", os.Getenv("RSP_LOG_FORMAT"), &cfg.LogFormat)
	s.setString("metrics-addr", os.Getenv("RSP_METRICS_ADDR"), &cfg.MetricsAddr)

	if err := s.setDuration("dial-timeout", os.Getenv("RSP_DIAL_TIMEOUT"), &cfg.DialTimeout); err != nil {
		return err
	}
	if err := s.setDuration("timeout", os.Getenv("RSP_REQUEST_TIMEOUT"), &cfg.RequestTimeout); err != nil {
		return err
	}

	if err := s.setIntFromString("pool-size", os.Getenv("RSP_POOL_SIZE"), &cfg.PoolSize); err != nil {
		return err
	}
	if err := s.setIntFromString("chunk-size", os.Getenv("RSP_CHUNK_SIZE"), &cfg.ChunkSize); err != nil {
		return err
	}
	if err := s.setIntFromString("batch-size", os.Getenv("RSP_BATCH_SIZE"), &cfg.BatchSize); err != nil {
		return err
	}
	if err := s.setIntFromString("compression-level", os.Getenv("RSP_COMPRESSION_LEVEL"), &cfg.CompressionLevel); err != nil {
		return err
	}

	s.setBoolFromString("fail-fast", os.Getenv("RSP_FAIL_FAST"), &cfg.FailFast)
	s.setBoolFromString("compress", os.Getenv("RSP_COMPRESSION"), &cfg.Compression)

	return nil
}
