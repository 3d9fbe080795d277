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

// Package cache defines the interface every storage backend implements
// and the observability helpers (Prometheus counters/gauges) every
// backend reports through.
package cache

import (
	"time"

	"github.com/ewqasd200g/varnish-cache/internal/config"
	"github.com/ewqasd200g/varnish-cache/internal/util/metrics"
)

// Cache is the interface every supported storage backend implements. A
// Retrieve on a missing or expired key must return an error; callers
// treat any error as a cache miss.
type Cache interface {
	Connect() error
	Store(cacheKey string, data []byte, ttl time.Duration) error
	Retrieve(cacheKey string) ([]byte, error)
	Remove(cacheKey string)
	Close() error
	Configuration() *config.CachingConfig
}

// ObserveCacheOperation records a get/set against a named cache.
func ObserveCacheOperation(cacheName, cacheType, operation, status string, bytes float64) {
	metrics.CacheEvents.WithLabelValues(cacheName, cacheType, "operation", operation+"_"+status).Inc()
	_ = bytes
}

// ObserveCacheEvent records an eviction-relevant event (expiration, lru
// eviction, nuke) against a named cache.
func ObserveCacheEvent(cacheName, cacheType, event, reason string) {
	metrics.CacheEvents.WithLabelValues(cacheName, cacheType, event, reason).Inc()
}

// ObserveCacheSizeChange updates the occupancy gauges for a named cache.
func ObserveCacheSizeChange(cacheName, cacheType string, byteCount, objectCount int64) {
	metrics.CacheBytes.WithLabelValues(cacheName, cacheType).Set(float64(byteCount))
	metrics.CacheObjects.WithLabelValues(cacheName, cacheType).Set(float64(objectCount))
}
