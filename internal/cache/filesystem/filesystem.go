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

// Package filesystem implements an on-disk cache backend. Bodies are
// compressed before they hit disk with either snappy (cheap, the
// default) or brotli (higher ratio, more CPU), per the backend's
// configured codec.
package filesystem

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/golang/snappy"

	"github.com/ewqasd200g/varnish-cache/internal/cache"
	"github.com/ewqasd200g/varnish-cache/internal/cache/index"
	"github.com/ewqasd200g/varnish-cache/internal/config"
	"github.com/ewqasd200g/varnish-cache/internal/expire"
	"github.com/ewqasd200g/varnish-cache/internal/util/log"
)

// Cache is an on-disk object store whose retention is driven by the
// expiry engine, with object metadata persisted through an Index.
type Cache struct {
	Name   string
	Config *config.CachingConfig
	Logger *log.Logger

	idx    *index.Index
	lru    *expire.LRU
	engine *expire.Engine
	stop   func()

	mu        sync.Mutex
	accessors map[string]*fsAccessor

	budgetStop chan struct{}
}

// Configuration returns the Configuration for the Cache object.
func (c *Cache) Configuration() *config.CachingConfig {
	return c.Config
}

// Connect creates the cache directory and brings up the expiry engine.
func (c *Cache) Connect() error {
	log.Info(c.Logger, "filesystem cache setup", log.Pairs{"name": c.Name, "cachePath": c.Config.Filesystem.CachePath})

	if err := os.MkdirAll(c.Config.Filesystem.CachePath, 0755); err != nil {
		return fmt.Errorf("%s directory is not writeable: %w", c.Config.Filesystem.CachePath, err)
	}

	c.accessors = make(map[string]*fsAccessor)
	c.lru = expire.NewLRU(c.Name, false)
	c.idx = index.NewIndex(c.Name, "filesystem", nil, c.Config.Index, nil, c.Logger)

	stats := cache.NewEngineStats(c.Name, "filesystem", c.Logger)
	c.engine, c.stop = expire.Init(stats, c.idx, expire.DefaultConfig())

	c.budgetStop = make(chan struct{})
	go c.enforceBudget()

	return nil
}

// Store compresses data and writes it to disk under cacheKey.
func (c *Cache) Store(cacheKey string, data []byte, ttl time.Duration) error {
	if cacheKey == "" {
		return fmt.Errorf("cacheKey required")
	}
	if ttl <= 0 {
		ttl = c.Config.Timer.DefaultTTL
	}

	now := time.Now()
	payload := c.compress(data)

	c.mu.Lock()
	acc, ok := c.accessors[cacheKey]
	c.mu.Unlock()

	if ok {
		acc.mu.Lock()
	}
	err := os.WriteFile(c.fileName(cacheKey), payload, 0644)
	if ok {
		acc.mu.Unlock()
	}
	if err != nil {
		return err
	}

	if ok {
		acc.setTimers(now, ttl)
		expire.Rearm(c.engine, acc.oc, now)
	} else {
		acc = newFSAccessor(now, ttl)
		oc := expire.NewObjectCore(cacheKey, acc, func() {
			os.Remove(c.fileName(cacheKey))
			c.mu.Lock()
			delete(c.accessors, cacheKey)
			c.mu.Unlock()
			c.idx.RemoveObject(cacheKey)
		})
		acc.oc = oc

		c.mu.Lock()
		c.accessors[cacheKey] = acc
		c.mu.Unlock()

		expire.Insert(c.engine, oc, c.lru, now)
	}

	when := expire.ExpWhen(now, ttl, 0, 0)
	c.idx.UpdateObject(cacheKey, int64(len(payload)), when)
	cache.ObserveCacheOperation(c.Name, "filesystem", "set", "none", float64(len(data)))
	log.Debug(c.Logger, "filesystem cache store", log.Pairs{"key": cacheKey, "length": len(data)})
	return nil
}

// Retrieve reads and decompresses the object at cacheKey.
func (c *Cache) Retrieve(cacheKey string) ([]byte, error) {
	payload, err := os.ReadFile(c.fileName(cacheKey))
	if err != nil {
		cache.ObserveCacheOperation(c.Name, "filesystem", "get", "miss", 0)
		return nil, fmt.Errorf("value for key [%s] not in cache", cacheKey)
	}

	c.mu.Lock()
	acc, ok := c.accessors[cacheKey]
	c.mu.Unlock()
	if ok {
		expire.Touch(c.engine, acc.oc, time.Now())
	}
	c.idx.UpdateObjectAccessTime(cacheKey)

	data, err := c.decompress(payload)
	if err != nil {
		return nil, err
	}
	cache.ObserveCacheOperation(c.Name, "filesystem", "get", "hit", float64(len(data)))
	log.Debug(c.Logger, "filesystem cache retrieve", log.Pairs{"key": cacheKey})
	return data, nil
}

// Remove evicts the object at cacheKey immediately, if present.
func (c *Cache) Remove(cacheKey string) {
	c.mu.Lock()
	acc, ok := c.accessors[cacheKey]
	c.mu.Unlock()
	if !ok {
		return
	}
	acc.setTimers(time.Now().Add(-time.Hour), time.Second)
	expire.Rearm(c.engine, acc.oc, time.Now())
}

// Close stops the expiry engine and budget loop.
func (c *Cache) Close() error {
	if c.budgetStop != nil {
		close(c.budgetStop)
	}
	if c.stop != nil {
		c.stop()
	}
	return nil
}

func (c *Cache) enforceBudget() {
	interval := c.Config.Index.HousekeepInterval
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-c.budgetStop:
			return
		case <-ticker.C:
			for c.idx.OverBudget() {
				if !expire.NukeOne(c.engine, c.lru) {
					break
				}
			}
		}
	}
}

func (c *Cache) compress(data []byte) []byte {
	if !c.Config.Filesystem.Compression {
		return data
	}
	if strings.EqualFold(c.Config.Filesystem.CompressionCodec, "brotli") {
		var buf bytes.Buffer
		w := brotli.NewWriter(&buf)
		w.Write(data)
		w.Close()
		return buf.Bytes()
	}
	return snappy.Encode(nil, data)
}

func (c *Cache) decompress(payload []byte) ([]byte, error) {
	if !c.Config.Filesystem.Compression {
		return payload, nil
	}
	if strings.EqualFold(c.Config.Filesystem.CompressionCodec, "brotli") {
		return io.ReadAll(brotli.NewReader(bytes.NewReader(payload)))
	}
	return snappy.Decode(nil, payload)
}

func (c *Cache) fileName(cacheKey string) string {
	return filepath.Join(c.Config.Filesystem.CachePath, cacheKey+".data")
}
