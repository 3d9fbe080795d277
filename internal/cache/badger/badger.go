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

// Package badger implements a cache backend over a dgraph-io/badger
// store. Badger is given its own TTL on every Store as a belt-and-braces
// expiry mechanism underneath the engine's heap-driven one: if the
// engine ever falls behind, badger's compaction still reclaims the key.
package badger

import (
	"sync"
	"time"

	"github.com/dgraph-io/badger"

	"github.com/ewqasd200g/varnish-cache/internal/cache"
	"github.com/ewqasd200g/varnish-cache/internal/cache/index"
	"github.com/ewqasd200g/varnish-cache/internal/config"
	"github.com/ewqasd200g/varnish-cache/internal/expire"
	"github.com/ewqasd200g/varnish-cache/internal/util/log"
)

// Cache is a badger-backed object store.
type Cache struct {
	Name   string
	Config *config.CachingConfig
	Logger *log.Logger

	dbh *badger.DB

	idx    *index.Index
	lru    *expire.LRU
	engine *expire.Engine
	stop   func()

	mu        sync.Mutex
	accessors map[string]*badgerAccessor

	budgetStop chan struct{}
}

// Configuration returns the Configuration for the Cache object.
func (c *Cache) Configuration() *config.CachingConfig {
	return c.Config
}

// Connect opens the configured badger key-value store.
func (c *Cache) Connect() error {
	log.Info(c.Logger, "badger cache setup", log.Pairs{"cacheDir": c.Config.Badger.Directory})

	opts := badger.DefaultOptions(c.Config.Badger.Directory)
	var err error
	c.dbh, err = badger.Open(opts)
	if err != nil {
		return err
	}

	c.accessors = make(map[string]*badgerAccessor)
	c.lru = expire.NewLRU(c.Name, false)
	c.idx = index.NewIndex(c.Name, "badger", nil, c.Config.Index, nil, c.Logger)

	stats := cache.NewEngineStats(c.Name, "badger", c.Logger)
	c.engine, c.stop = expire.Init(stats, c.idx, expire.DefaultConfig())

	c.budgetStop = make(chan struct{})
	go c.enforceBudget()

	return nil
}

// Store places data in the cache under cacheKey with two independent
// expiry paths: badger's own native TTL, and the engine's heap.
func (c *Cache) Store(cacheKey string, data []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = c.Config.Timer.DefaultTTL
	}
	now := time.Now()

	if err := c.dbh.Update(func(txn *badger.Txn) error {
		return txn.SetEntry(badger.NewEntry([]byte(cacheKey), data).WithTTL(ttl))
	}); err != nil {
		return err
	}
	cache.ObserveCacheOperation(c.Name, "badger", "set", "none", float64(len(data)))

	c.mu.Lock()
	acc, ok := c.accessors[cacheKey]
	c.mu.Unlock()

	if ok {
		acc.setTimers(now, ttl)
		expire.Rearm(c.engine, acc.oc, now)
	} else {
		acc = newBadgerAccessor(now, ttl)
		oc := expire.NewObjectCore(cacheKey, acc, func() {
			c.dbh.Update(func(txn *badger.Txn) error {
				return txn.Delete([]byte(cacheKey))
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
	log.Debug(c.Logger, "badger cache store", log.Pairs{"key": cacheKey, "ttl": ttl})
	return nil
}

// Retrieve gets data from the cache using the provided key.
func (c *Cache) Retrieve(cacheKey string) ([]byte, error) {
	var data []byte
	err := c.dbh.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(cacheKey))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		log.Debug(c.Logger, "badger cache miss", log.Pairs{"key": cacheKey})
		return nil, err
	}

	c.mu.Lock()
	acc, ok := c.accessors[cacheKey]
	c.mu.Unlock()
	if ok {
		expire.Touch(c.engine, acc.oc, time.Now())
	}
	c.idx.UpdateObjectAccessTime(cacheKey)
	log.Debug(c.Logger, "badger cache retrieve", log.Pairs{"key": cacheKey})
	cache.ObserveCacheOperation(c.Name, "badger", "get", "hit", float64(len(data)))
	return data, nil
}

// Remove evicts the object at cacheKey immediately, if present. The
// engine's own teardown also issues the badger delete, so calling Remove
// on a key badger already expired out-of-band is harmless.
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

// Close stops the expiry engine and closes the badger store.
func (c *Cache) Close() error {
	if c.budgetStop != nil {
		close(c.budgetStop)
	}
	if c.stop != nil {
		c.stop()
	}
	return c.dbh.Close()
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
