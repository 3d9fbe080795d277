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

package cache

import (
	"time"

	"github.com/ewqasd200g/varnish-cache/internal/expire"
	"github.com/ewqasd200g/varnish-cache/internal/util/log"
	"github.com/ewqasd200g/varnish-cache/internal/util/metrics"
)

// engineStats adapts a named cache's Prometheus counters and structured
// logger to the expire.Stats interface, so every index-managed backend
// can pass the same kind of collaborator into expire.Init.
type engineStats struct {
	name      string
	cacheType string
	logger    *log.Logger
}

// NewEngineStats returns an expire.Stats that reports n_expired,
// n_lru_moved, and n_lru_nuked for the named cache and logs one Kill
// event per expiry/nuke/DYING-rearm transition.
func NewEngineStats(cacheName, cacheType string, logger *log.Logger) expire.Stats {
	return &engineStats{name: cacheName, cacheType: cacheType, logger: logger}
}

func (s *engineStats) IncExpired() {
	metrics.NExpired.WithLabelValues(s.name).Inc()
	ObserveCacheEvent(s.name, s.cacheType, "eviction", "ttl")
}

func (s *engineStats) IncLRUMoved() {
	metrics.NLRUMoved.WithLabelValues(s.name).Inc()
}

func (s *engineStats) IncLRUNuked() {
	metrics.NLRUNuked.WithLabelValues(s.name).Inc()
	ObserveCacheEvent(s.name, s.cacheType, "eviction", "lru")
}

func (s *engineStats) LogKill(oc *expire.ObjectCore, when time.Time, flags expire.Flags, residualTTL time.Duration) {
	log.Debug(s.logger, "object killed", log.Pairs{
		"cacheName":   s.name,
		"key":         oc.Key,
		"when":        when.String(),
		"residualTTL": residualTTL.String(),
	})
}
