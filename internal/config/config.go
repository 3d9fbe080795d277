/*
 * Copyright 2018 The Trickster Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package config loads the daemon's TOML configuration: logging, metrics,
// and the set of named caches the expiry engine and its backends serve.
package config

import (
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// Config is the root of the parsed configuration file.
type Config struct {
	Main    MainConfig               `toml:"main"`
	Logging LoggingConfig            `toml:"logging"`
	Metrics MetricsConfig            `toml:"metrics"`
	Caches  map[string]CachingConfig `toml:"caches"`
}

// MainConfig carries process-wide knobs that don't belong to any one cache.
type MainConfig struct {
	InstanceID int `toml:"instance_id"`
}

// LoggingConfig controls where and how verbosely the daemon logs.
type LoggingConfig struct {
	LogFile  string `toml:"log_file"`
	LogLevel string `toml:"log_level"`
}

// MetricsConfig controls the Prometheus listener.
type MetricsConfig struct {
	ListenAddress string `toml:"listen_address"`
	ListenPort    int    `toml:"listen_port"`
}

// CachingConfig describes one named cache: its backend type, its expiry
// engine knobs, and the backend-specific connection options.
type CachingConfig struct {
	Name      string          `toml:"-"`
	CacheType string          `toml:"cache_type"`
	Index     CacheIndexConfig `toml:"index"`
	Timer     TimerConfig      `toml:"timer"`

	Redis      RedisCacheConfig      `toml:"redis"`
	Filesystem FilesystemCacheConfig `toml:"filesystem"`
	BBolt      BBoltCacheConfig      `toml:"bbolt"`
	Badger     BadgerCacheConfig     `toml:"badger"`
}

// CacheIndexConfig governs a backend's index metadata and the size limits
// its budget loop enforces by calling NukeOne.
type CacheIndexConfig struct {
	// HousekeepIntervalSecs sets how often a backend's budget loop checks
	// the index and calls NukeOne while the cache is over its limits.
	HousekeepIntervalSecs int `toml:"housekeep_interval_secs"`
	// FlushIntervalSecs sets how often index metadata is persisted to the
	// backend's own storage under the reserved "cache.index" key.
	FlushIntervalSecs int `toml:"flush_interval_secs"`
	// MaxSizeBytes/MaxSizeObjects are enforced by the backend calling
	// NukeOne, not by the engine itself (the engine has no notion of
	// aggregate size). The backoff values are carried in configuration
	// but are not read by the index or the backends.
	MaxSizeBytes          int64 `toml:"max_size_bytes"`
	MaxSizeBackoffBytes    int64 `toml:"max_size_backoff_bytes"`
	MaxSizeObjects        int64 `toml:"max_size_objects"`
	MaxSizeBackoffObjects int64 `toml:"max_size_backoff_objects"`

	HousekeepInterval time.Duration `toml:"-"`
	FlushInterval     time.Duration `toml:"-"`
}

// TimerConfig supplies the default ttl/grace/keep windows a backend applies
// to an object when the caller doesn't specify its own, plus the actor's
// long-nap constant used when nothing on the heap needs attention soon.
type TimerConfig struct {
	DefaultTTLSecs   int64 `toml:"default_ttl_secs"`
	DefaultGraceSecs int64 `toml:"default_grace_secs"`
	DefaultKeepSecs  int64 `toml:"default_keep_secs"`
	LongNapSecs      int64 `toml:"long_nap_secs"`

	DefaultTTL   time.Duration `toml:"-"`
	DefaultGrace time.Duration `toml:"-"`
	DefaultKeep  time.Duration `toml:"-"`
	LongNap      time.Duration `toml:"-"`
}

// RedisCacheConfig configures the go-redis client. Redis manages its own
// TTL/eviction and is not index-managed (no DontMove/LRU domain applies).
type RedisCacheConfig struct {
	Protocol string `toml:"protocol"`
	Endpoint string `toml:"endpoint"`
	Password string `toml:"password"`
	DB       int    `toml:"db"`
}

// FilesystemCacheConfig configures the on-disk object store.
type FilesystemCacheConfig struct {
	CachePath   string `toml:"cache_path"`
	Compression bool   `toml:"compression"`
	// CompressionCodec selects "snappy" (cheap, the default) or "brotli"
	// (higher ratio, more CPU) when Compression is enabled.
	CompressionCodec string `toml:"compression_codec"`
}

// BBoltCacheConfig configures the go.etcd.io/bbolt-backed store.
type BBoltCacheConfig struct {
	Filename string `toml:"filename"`
	Bucket   string `toml:"bucket"`
}

// BadgerCacheConfig configures the dgraph-io/badger-backed store.
type BadgerCacheConfig struct {
	Directory string `toml:"directory"`
}

// Default returns the built-in configuration used when no file is loaded.
func Default() *Config {
	return &Config{
		Logging: LoggingConfig{LogLevel: defaultLogLevel},
		Metrics: MetricsConfig{ListenAddress: defaultMetricsListenAddress, ListenPort: defaultMetricsListenPort},
		Caches: map[string]CachingConfig{
			"default": defaultCachingConfig("default"),
		},
	}
}

func defaultCachingConfig(name string) CachingConfig {
	return CachingConfig{
		Name:      name,
		CacheType: defaultCacheType,
		Index: CacheIndexConfig{
			HousekeepIntervalSecs: defaultHousekeepIntervalSecs,
			FlushIntervalSecs:     defaultFlushIntervalSecs,
			MaxSizeBytes:          defaultMaxSizeBytes,
			MaxSizeBackoffBytes:   defaultMaxSizeBackoffBytes,
			MaxSizeObjects:        defaultMaxSizeObjects,
			MaxSizeBackoffObjects: defaultMaxSizeBackoffObjects,
		},
		Timer: TimerConfig{
			DefaultTTLSecs:   defaultTTLSecs,
			DefaultGraceSecs: defaultGraceSecs,
			DefaultKeepSecs:  defaultKeepSecs,
			LongNapSecs:      defaultLongNapSecs,
		},
		Filesystem: FilesystemCacheConfig{CachePath: defaultCachePath, Compression: defaultCacheCompression, CompressionCodec: defaultCompressionCodec},
		BBolt:      BBoltCacheConfig{Filename: defaultBBoltFile, Bucket: defaultBBoltBucket},
		Badger:     BadgerCacheConfig{Directory: defaultBadgerDirectory},
		Redis:      RedisCacheConfig{Protocol: defaultRedisProtocol, Endpoint: defaultRedisEndpoint},
	}
}

// Load parses the TOML file at path into a Config seeded with defaults, and
// resolves every *Secs field into its time.Duration counterpart.
func Load(path string) (*Config, error) {
	c := Default()
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if _, err := toml.DecodeFile(path, c); err != nil {
				return nil, err
			}
		}
	}
	for k, v := range c.Caches {
		v.Name = k
		resolveDurations(&v)
		c.Caches[k] = v
	}
	return c, nil
}

func resolveDurations(cc *CachingConfig) {
	cc.Index.HousekeepInterval = time.Duration(cc.Index.HousekeepIntervalSecs) * time.Second
	cc.Index.FlushInterval = time.Duration(cc.Index.FlushIntervalSecs) * time.Second
	cc.Timer.DefaultTTL = time.Duration(cc.Timer.DefaultTTLSecs) * time.Second
	cc.Timer.DefaultGrace = time.Duration(cc.Timer.DefaultGraceSecs) * time.Second
	cc.Timer.DefaultKeep = time.Duration(cc.Timer.DefaultKeepSecs) * time.Second
	cc.Timer.LongNap = time.Duration(cc.Timer.LongNapSecs) * time.Second
}
