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

// Package memory implements an in-process cache backend whose retention
// is driven entirely by the expiry engine instead of a polling reaper.
package memory

import (
	"fmt"
	"sync"
	"time"

	"github.com/ewqasd200g/varnish-cache/internal/cache"
	"github.com/ewqasd200g/varnish-cache/internal/cache/index"
	"github.com/ewqasd200g/varnish-cache/internal/config"
	"github.com/ewqasd200g/varnish-cache/internal/expire"
	"github.com/ewqasd200g/varnish-cache/internal/util/log"
)

// Cache is a sync.Map-backed store. Every entry carries an
// *expire.ObjectCore registered with a shared expiry engine on Store, so
// TTL and LRU-driven eviction happen off the actor's own goroutine rather
// than a per-cache time.Sleep loop.
type Cache struct {
	Name   string
	Config *config.CachingConfig
	Logger *log.Logger

	client sync.Map // cacheKey -> *entry
	idx    *index.Index
	lru    *expire.LRU
	engine *expire.Engine
	stop   func()

	budgetStop chan struct{}
}

type entry struct {
	data     []byte
	oc       *expire.ObjectCore
	accessor *memAccessor
}

// Configuration returns the Configuration for the Cache object.
func (c *Cache) Configuration() *config.CachingConfig {
	return c.Config
}

// Connect initializes the backing map, the metadata index, and the
// expiry engine, and starts the size-budget enforcement loop.
func (c *Cache) Connect() error {
	log.Info(c.Logger, "memory cache setup", log.Pairs{"name": c.Name})

	c.client = sync.Map{}
	c.lru = expire.NewLRU(c.Name, false)
	c.idx = index.NewIndex(c.Name, "memory", nil, c.Config.Index, nil, c.Logger)

	stats := cache.NewEngineStats(c.Name, "memory", c.Logger)
	cfg := expire.DefaultConfig()
	if c.Config.Timer.LongNap > 0 {
		cfg.LongNap = c.Config.Timer.LongNap
	}
	c.engine, c.stop = expire.Init(stats, c.idx, cfg)

	c.budgetStop = make(chan struct{})
	go c.enforceBudget()

	return nil
}

// Store places an object in the cache using the specified key and ttl. A
// ttl of zero falls back to the cache's configured default.
func (c *Cache) Store(cacheKey string, data []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = c.Config.Timer.DefaultTTL
	}
	now := time.Now()

	if v, ok := c.client.Load(cacheKey); ok {
		e := v.(*entry)
		e.accessor.mu.Lock()
		e.data = data
		e.accessor.mu.Unlock()
		e.accessor.setTimers(now, ttl)
		expire.Rearm(c.engine, e.oc, now)
		c.idx.UpdateObject(cacheKey, int64(len(data)), e.oc.TimerWhen)
		cache.ObserveCacheOperation(c.Name, "memory", "set", "update", float64(len(data)))
		return nil
	}

	accessor := newMemAccessor(now, ttl, time.Duration(c.Config.Timer.DefaultGraceSecs)*time.Second, time.Duration(c.Config.Timer.DefaultKeepSecs)*time.Second)
	e := &entry{data: data, accessor: accessor}
	e.oc = expire.NewObjectCore(cacheKey, accessor, func() {
		c.client.Delete(cacheKey)
		c.idx.RemoveObject(cacheKey)
	})

	c.client.Store(cacheKey, e)
	expire.Insert(c.engine, e.oc, c.lru, now)
	c.idx.UpdateObject(cacheKey, int64(len(data)), e.oc.TimerWhen)
	cache.ObserveCacheOperation(c.Name, "memory", "set", "new", float64(len(data)))

	log.Debug(c.Logger, "memory cache store", log.Pairs{"key": cacheKey, "length": len(data), "ttl": ttl})
	return nil
}

// Retrieve looks for an object in cache and returns it, touching its LRU
// position on a hit.
func (c *Cache) Retrieve(cacheKey string) ([]byte, error) {
	v, ok := c.client.Load(cacheKey)
	if !ok {
		cache.ObserveCacheOperation(c.Name, "memory", "get", "miss", 0)
		return nil, fmt.Errorf("value for key [%s] not in cache", cacheKey)
	}
	e := v.(*entry)
	expire.Touch(c.engine, e.oc, time.Now())
	c.idx.UpdateObjectAccessTime(cacheKey)
	cache.ObserveCacheOperation(c.Name, "memory", "get", "hit", float64(len(e.data)))
	log.Debug(c.Logger, "memory cache retrieve", log.Pairs{"key": cacheKey})
	return e.data, nil
}

// Remove evicts an object immediately, if present, by rearming its
// deadline into the past; the engine's Inbox then tears it down.
func (c *Cache) Remove(cacheKey string) {
	v, ok := c.client.Load(cacheKey)
	if !ok {
		return
	}
	e := v.(*entry)
	e.accessor.setTimers(time.Now().Add(-time.Hour), time.Second)
	expire.Rearm(c.engine, e.oc, time.Now())
	log.Debug(c.Logger, "memory cache remove", log.Pairs{"key": cacheKey})
}

// enforceBudget calls NukeOne against the cache's own LRU domain whenever
// the index reports the cache is over its configured size/object budget.
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

// Close stops the expiry engine and the budget-enforcement loop.
func (c *Cache) Close() error {
	if c.budgetStop != nil {
		close(c.budgetStop)
	}
	if c.stop != nil {
		c.stop()
	}
	return nil
}
