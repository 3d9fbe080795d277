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

// Package registration constructs and tracks the set of named caches a
// running daemon serves, one per [caches.<name>] block in configuration.
package registration

import (
	"fmt"

	"github.com/ewqasd200g/varnish-cache/internal/cache"
	"github.com/ewqasd200g/varnish-cache/internal/cache/badger"
	"github.com/ewqasd200g/varnish-cache/internal/cache/bbolt"
	"github.com/ewqasd200g/varnish-cache/internal/cache/filesystem"
	"github.com/ewqasd200g/varnish-cache/internal/cache/memory"
	"github.com/ewqasd200g/varnish-cache/internal/cache/redis"
	"github.com/ewqasd200g/varnish-cache/internal/config"
	"github.com/ewqasd200g/varnish-cache/internal/util/log"
)

// Caches maintains the set of active, connected caches, keyed by name.
var Caches = make(map[string]cache.Cache)

// GetCache returns the Cache named cacheName, if it has been registered.
func GetCache(cacheName string) (cache.Cache, error) {
	if c, ok := Caches[cacheName]; ok {
		return c, nil
	}
	return nil, fmt.Errorf("could not find cache named [%s]", cacheName)
}

// LoadCachesFromConfig connects and registers every cache named in cfg.
func LoadCachesFromConfig(cfg *config.Config, logger *log.Logger) error {
	for name, cc := range cfg.Caches {
		cc := cc
		cc.Name = name
		c, err := NewCache(&cc, logger)
		if err != nil {
			return fmt.Errorf("cache [%s]: %w", name, err)
		}
		Caches[name] = c
	}
	return nil
}

// NewCache constructs and connects a Cache for the backend named in
// cfg.CacheType, defaulting to memory when the type is unrecognized.
func NewCache(cfg *config.CachingConfig, logger *log.Logger) (cache.Cache, error) {
	var c cache.Cache

	switch cfg.CacheType {
	case "filesystem":
		c = &filesystem.Cache{Name: cfg.Name, Config: cfg, Logger: logger}
	case "redis":
		c = &redis.Cache{Name: cfg.Name, Config: cfg, Logger: logger}
	case "bbolt":
		c = &bbolt.Cache{Name: cfg.Name, Config: cfg, Logger: logger}
	case "badger":
		c = &badger.Cache{Name: cfg.Name, Config: cfg, Logger: logger}
	default:
		c = &memory.Cache{Name: cfg.Name, Config: cfg, Logger: logger}
	}

	if err := c.Connect(); err != nil {
		return nil, err
	}
	return c, nil
}

// CloseAll closes every registered cache, e.g. during daemon shutdown or
// ahead of a configuration reload, and removes it from Caches.
func CloseAll(logger *log.Logger) {
	for name, c := range Caches {
		if err := c.Close(); err != nil {
			log.Error(logger, "error closing cache", log.Pairs{"cacheName": name, "detail": err.Error()})
		}
		delete(Caches, name)
	}
}
