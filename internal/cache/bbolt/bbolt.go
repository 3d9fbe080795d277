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

// Package bbolt implements a cache backend over a go.etcd.io/bbolt
// key/value store, with retention driven by the expiry engine rather
// than polling.
package bbolt

import (
	"fmt"
	"sync"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/ewqasd200g/varnish-cache/internal/cache"
	"github.com/ewqasd200g/varnish-cache/internal/cache/index"
	"github.com/ewqasd200g/varnish-cache/internal/config"
	"github.com/ewqasd200g/varnish-cache/internal/expire"
	"github.com/ewqasd200g/varnish-cache/internal/util/log"
)

// Cache is a bbolt-backed object store.
type Cache struct {
	Name   string
	Config *config.CachingConfig
	Logger *log.Logger

	dbh    *bolt.DB
	bucket []byte

	idx    *index.Index
	lru    *expire.LRU
	engine *expire.Engine
	stop   func()

	mu        sync.Mutex
	accessors map[string]*bboltAccessor

	budgetStop chan struct{}
}

// Configuration returns the Configuration for the Cache object.
func (c *Cache) Configuration() *config.CachingConfig {
	return c.Config
}

// Connect opens the configured bbolt file and creates its bucket.
func (c *Cache) Connect() error {
	log.Info(c.Logger, "bbolt cache setup", log.Pairs{"cacheFile": c.Config.BBolt.Filename})

	var err error
	c.dbh, err = bolt.Open(c.Config.BBolt.Filename, 0644, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return err
	}

	c.bucket = []byte(c.Config.BBolt.Bucket)
	if err := c.dbh.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(c.bucket)
		return err
	}); err != nil {
		return err
	}

	c.accessors = make(map[string]*bboltAccessor)
	c.lru = expire.NewLRU(c.Name, false)
	c.idx = index.NewIndex(c.Name, "bbolt", nil, c.Config.Index, c.flush, c.Logger)

	stats := cache.NewEngineStats(c.Name, "bbolt", c.Logger)
	c.engine, c.stop = expire.Init(stats, c.idx, expire.DefaultConfig())

	c.budgetStop = make(chan struct{})
	go c.enforceBudget()

	return nil
}

// Store places an object in the cache using the specified key and ttl.
func (c *Cache) Store(cacheKey string, data []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = c.Config.Timer.DefaultTTL
	}
	now := time.Now()

	if err := c.dbh.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(c.bucket).Put([]byte(cacheKey), data)
	}); err != nil {
		return err
	}

	c.mu.Lock()
	acc, ok := c.accessors[cacheKey]
	c.mu.Unlock()

	if ok {
		acc.setTimers(now, ttl)
		expire.Rearm(c.engine, acc.oc, now)
	} else {
		acc = newBBoltAccessor(now, ttl)
		oc := expire.NewObjectCore(cacheKey, acc, func() {
			c.dbh.Update(func(tx *bolt.Tx) error {
				return tx.Bucket(c.bucket).Delete([]byte(cacheKey))
			})
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
	c.idx.UpdateObject(cacheKey, int64(len(data)), when)
	log.Debug(c.Logger, "bbolt cache store", log.Pairs{"key": cacheKey})
	return nil
}

// Retrieve looks for an object in cache and returns it.
func (c *Cache) Retrieve(cacheKey string) ([]byte, error) {
	var data []byte
	err := c.dbh.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(c.bucket).Get([]byte(cacheKey))
		if v == nil {
			return fmt.Errorf("value for key [%s] not in cache", cacheKey)
		}
		data = append([]byte(nil), v...)
		return nil
	})
	if err != nil {
		log.Debug(c.Logger, "bbolt cache miss", log.Pairs{"key": cacheKey})
		return nil, err
	}

	c.mu.Lock()
	acc, ok := c.accessors[cacheKey]
	c.mu.Unlock()
	if ok {
		expire.Touch(c.engine, acc.oc, time.Now())
	}
	c.idx.UpdateObjectAccessTime(cacheKey)
	log.Debug(c.Logger, "bbolt cache retrieve", log.Pairs{"key": cacheKey})
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

// Close stops the expiry engine and closes the bbolt file.
func (c *Cache) Close() error {
	if c.budgetStop != nil {
		close(c.budgetStop)
	}
	if c.stop != nil {
		c.stop()
	}
	return c.dbh.Close()
}

// flush persists the index snapshot into the same bucket, under the
// reserved cache.index key, rather than a second file.
func (c *Cache) flush(indexKey string, data []byte) {
	c.dbh.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(c.bucket).Put([]byte(indexKey), data)
	})
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
