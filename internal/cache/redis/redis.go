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

// Package redis implements a cache backend over go-redis/redis. Redis
// manages its own TTL and eviction; no expire.LRU domain or ObjectCore
// is registered for it, so there is no index-managed metadata here.
package redis

import (
	"time"

	goredis "github.com/go-redis/redis"

	"github.com/ewqasd200g/varnish-cache/internal/cache"
	"github.com/ewqasd200g/varnish-cache/internal/config"
	"github.com/ewqasd200g/varnish-cache/internal/util/log"
)

// Cache is a go-redis-backed object store.
type Cache struct {
	Name   string
	Config *config.CachingConfig
	Logger *log.Logger

	client *goredis.Client
}

// Configuration returns the Configuration for the Cache object.
func (c *Cache) Configuration() *config.CachingConfig {
	return c.Config
}

// Connect connects to the configured Redis endpoint.
func (c *Cache) Connect() error {
	log.Info(c.Logger, "connecting to redis", log.Pairs{"protocol": c.Config.Redis.Protocol, "endpoint": c.Config.Redis.Endpoint})
	c.client = goredis.NewClient(&goredis.Options{
		Network:  c.Config.Redis.Protocol,
		Addr:     c.Config.Redis.Endpoint,
		Password: c.Config.Redis.Password,
		DB:       c.Config.Redis.DB,
	})
	return c.client.Ping().Err()
}

// Store places data into Redis under cacheKey with the given ttl.
func (c *Cache) Store(cacheKey string, data []byte, ttl time.Duration) error {
	log.Debug(c.Logger, "redis cache store", log.Pairs{"key": cacheKey})
	err := c.client.Set(cacheKey, data, ttl).Err()
	if err == nil {
		cache.ObserveCacheOperation(c.Name, "redis", "set", "none", float64(len(data)))
	}
	return err
}

// Retrieve gets data from Redis using the provided key.
func (c *Cache) Retrieve(cacheKey string) ([]byte, error) {
	log.Debug(c.Logger, "redis cache retrieve", log.Pairs{"key": cacheKey})
	res, err := c.client.Get(cacheKey).Bytes()
	if err != nil {
		cache.ObserveCacheOperation(c.Name, "redis", "get", "miss", 0)
		return nil, err
	}
	cache.ObserveCacheOperation(c.Name, "redis", "get", "hit", float64(len(res)))
	return res, nil
}

// Remove removes an object from Redis, if present.
func (c *Cache) Remove(cacheKey string) {
	log.Debug(c.Logger, "redis cache remove", log.Pairs{"key": cacheKey})
	c.client.Del(cacheKey)
}

// Close disconnects from Redis.
func (c *Cache) Close() error {
	log.Info(c.Logger, "closing redis connection", log.Pairs{})
	return c.client.Close()
}
