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

// Package index maintains per-cache metadata — size, object count, and
// per-key expiration/access timestamps — for backends whose retention is
// managed internally (memory, filesystem, bbolt, badger). It is the
// metadata-persistence collaborator the expiry engine calls into
// whenever an object's timer_when changes, and the source of truth a
// backend consults to decide when to start calling expire.NukeOne.
//
// Redis is not index-managed: it owns its own TTL and eviction, so no
// Index is constructed for it.
package index

import (
	"sync"
	"time"

	"github.com/ewqasd200g/varnish-cache/internal/cache"
	"github.com/ewqasd200g/varnish-cache/internal/config"
	"github.com/ewqasd200g/varnish-cache/internal/expire"
	"github.com/ewqasd200g/varnish-cache/internal/util/log"
)

//go:generate msgp

// IndexKey is the key under which a backend's Index snapshot is stored
// inside that backend's own storage.
const IndexKey = "cache.index"

// Index maintains metadata about a Cache when retention is managed
// internally. It is not used for independently managed caches like Redis.
type Index struct {
	// CacheSize represents the size of the cache in bytes.
	CacheSize int64 `msg:"cache_size"`
	// ObjectCount represents the count of objects in the Cache.
	ObjectCount int64 `msg:"object_count"`
	// Objects is a map of Objects in the Cache, keyed by cache key.
	Objects map[string]*Object `msg:"objects"`

	mu sync.Mutex `msg:"-"`

	name          string        `msg:"-"`
	cacheType     string        `msg:"-"`
	cfg           config.CacheIndexConfig `msg:"-"`
	flushFunc     func(cacheKey string, data []byte) `msg:"-"`
	logger        *log.Logger   `msg:"-"`
	lastWrite     time.Time     `msg:"-"`
}

// Object contains metadata about an item in the Cache, mirroring the
// fields the expiry engine's ObjectCore tracks in memory.
type Object struct {
	// Key is the cache key this Object describes.
	Key string `msg:"key"`
	// Expiration is the engine's timer_when for this object.
	Expiration time.Time `msg:"expiration"`
	// LastWrite is when the object was last stored.
	LastWrite time.Time `msg:"lastwrite"`
	// LastAccess is the engine's last_lru for this object.
	LastAccess time.Time `msg:"lastaccess"`
	// Size is the size of the object's value in bytes.
	Size int64 `msg:"size"`
}

// ToBytes returns a serialized byte slice representing the Index.
func (idx *Index) ToBytes() []byte {
	b, _ := idx.MarshalMsg(nil)
	return b
}

// NewIndex constructs an Index, seeding it from a previously persisted
// snapshot (indexData) if one is supplied, and starts its flusher
// goroutine when flushFunc and cfg.FlushInterval are both set.
func NewIndex(cacheName, cacheType string, indexData []byte, cfg config.CacheIndexConfig, flushFunc func(string, []byte), logger *log.Logger) *Index {
	idx := &Index{name: cacheName, cacheType: cacheType, cfg: cfg, flushFunc: flushFunc, logger: logger}

	if len(indexData) > 0 {
		if _, err := idx.UnmarshalMsg(indexData); err != nil {
			log.Warn(logger, "unable to load persisted cache index, starting empty", log.Pairs{"cacheName": cacheName, "detail": err.Error()})
			idx.Objects = make(map[string]*Object)
		}
	}
	if idx.Objects == nil {
		idx.Objects = make(map[string]*Object)
	}

	if flushFunc != nil {
		if cfg.FlushInterval > 0 {
			go idx.flusher()
		} else {
			log.Warn(logger, "cache index flusher did not start", log.Pairs{"cacheName": cacheName, "flushInterval": cfg.FlushInterval})
		}
	}

	return idx
}

// UpdateObject writes or updates the metadata for a stored object and
// reports the new cache occupancy to the metrics package.
func (idx *Index) UpdateObject(key string, size int64, expiration time.Time) {
	if key == "" {
		return
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	now := time.Now()
	idx.lastWrite = now

	if o, ok := idx.Objects[key]; ok {
		idx.CacheSize += size - o.Size
		o.Size = size
		o.Expiration = expiration
		o.LastWrite = now
		o.LastAccess = now
	} else {
		idx.CacheSize += size
		idx.ObjectCount++
		idx.Objects[key] = &Object{Key: key, Size: size, Expiration: expiration, LastWrite: now, LastAccess: now}
	}

	cache.ObserveCacheSizeChange(idx.name, idx.cacheType, idx.CacheSize, idx.ObjectCount)
}

// UpdateObjectAccessTime records a read against key, mirroring the
// engine's last_lru without requiring a full metadata rewrite.
func (idx *Index) UpdateObjectAccessTime(key string) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if o, ok := idx.Objects[key]; ok {
		o.LastAccess = time.Now()
	}
}

// RemoveObject removes key's metadata, if present.
func (idx *Index) RemoveObject(key string) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.removeLocked(key)
}

func (idx *Index) removeLocked(key string) {
	o, ok := idx.Objects[key]
	if !ok {
		return
	}
	idx.CacheSize -= o.Size
	idx.ObjectCount--
	delete(idx.Objects, key)
	idx.lastWrite = time.Now()
	cache.ObserveCacheSizeChange(idx.name, idx.cacheType, idx.CacheSize, idx.ObjectCount)
}

// PersistTimer implements expire.MetadataPersister: it records oc's new
// wake time against the metadata entry for oc.Key.
func (idx *Index) PersistTimer(oc *expire.ObjectCore, when time.Time) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if o, ok := idx.Objects[oc.Key]; ok {
		o.Expiration = when
		idx.lastWrite = time.Now()
	}
}

// OverBudget reports whether the cache has exceeded its configured
// size or object-count limit. It reports only that, not by how much; the
// configured backoff margins are not applied, so reclamation stops as soon
// as the cache is back at its limit. A backend calls expire.NukeOne
// against its own LRU domain until OverBudget reports false.
func (idx *Index) OverBudget() bool {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if idx.cfg.MaxSizeBytes > 0 && idx.CacheSize > idx.cfg.MaxSizeBytes {
		return true
	}
	if idx.cfg.MaxSizeObjects > 0 && idx.ObjectCount > idx.cfg.MaxSizeObjects {
		return true
	}
	return false
}

// flusher periodically persists the index snapshot via flushFunc,
// skipping the write when nothing has changed since the last flush.
func (idx *Index) flusher() {
	var lastFlush time.Time
	for {
		time.Sleep(idx.cfg.FlushInterval)
		idx.mu.Lock()
		dirty := idx.lastWrite.After(lastFlush)
		idx.mu.Unlock()
		if !dirty {
			continue
		}
		idx.flushOnce()
		lastFlush = time.Now()
	}
}

func (idx *Index) flushOnce() {
	idx.mu.Lock()
	b, err := idx.MarshalMsg(nil)
	idx.mu.Unlock()
	if err != nil {
		log.Warn(idx.logger, "unable to serialize cache index for flushing", log.Pairs{"cacheName": idx.name, "detail": err.Error()})
		return
	}
	idx.flushFunc(IndexKey, b)
}
