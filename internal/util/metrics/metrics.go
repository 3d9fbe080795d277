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

// Package metrics registers and serves the daemon's Prometheus metrics:
// cache occupancy gauges plus counters for expiry, LRU movement, and
// LRU reclamation events.
package metrics

import (
	"fmt"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ewqasd200g/varnish-cache/internal/config"
	"github.com/ewqasd200g/varnish-cache/internal/util/log"
)

const (
	namespace      = "varnishd"
	cacheSubsystem = "cache"
)

var defaultBuckets = []float64{0.05, 0.1, 0.5, 1, 5, 10, 20}

// CacheObjects is a Gauge of objects currently resident in a cache.
var CacheObjects *prometheus.GaugeVec

// CacheBytes is a Gauge of bytes currently resident in a cache.
var CacheBytes *prometheus.GaugeVec

// CacheMaxObjects is a Gauge of the configured object-count eviction threshold.
var CacheMaxObjects *prometheus.GaugeVec

// CacheMaxBytes is a Gauge of the configured byte-size eviction threshold.
var CacheMaxBytes *prometheus.GaugeVec

// CacheEvents counts eviction-relevant events by reason (ttl, lru, nuke).
var CacheEvents *prometheus.CounterVec

// ExpiryActorWakeDuration is a Histogram of actor tick durations, useful for
// spotting a mailbox or heap that is falling behind.
var ExpiryActorWakeDuration *prometheus.HistogramVec

// NExpired counts objects the actor has expired via Expire.
var NExpired *prometheus.CounterVec

// NLRUMoved counts successful Touch-driven LRU reorderings (n_lru_moved).
var NLRUMoved *prometheus.CounterVec

// NLRUNuked counts objects reclaimed via NukeOne (n_lru_nuked).
var NLRUNuked *prometheus.CounterVec

func init() {
	CacheObjects = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace, Subsystem: cacheSubsystem,
		Name: "usage_objects", Help: "Number of objects resident in a cache.",
	}, []string{"cache_name", "cache_type"})

	CacheBytes = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace, Subsystem: cacheSubsystem,
		Name: "usage_bytes", Help: "Number of bytes resident in a cache.",
	}, []string{"cache_name", "cache_type"})

	CacheMaxObjects = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace, Subsystem: cacheSubsystem,
		Name: "max_usage_objects", Help: "Configured object-count eviction threshold.",
	}, []string{"cache_name", "cache_type"})

	CacheMaxBytes = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace, Subsystem: cacheSubsystem,
		Name: "max_usage_bytes", Help: "Configured byte-size eviction threshold.",
	}, []string{"cache_name", "cache_type"})

	CacheEvents = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: cacheSubsystem,
		Name: "events_total", Help: "Count of eviction-relevant events on a cache.",
	}, []string{"cache_name", "cache_type", "event", "reason"})

	ExpiryActorWakeDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace, Subsystem: "expire",
		Name: "actor_tick_duration_seconds", Help: "Time spent in one expiry actor tick.",
		Buckets: defaultBuckets,
	}, []string{"cache_name"})

	NExpired = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "expire",
		Name: "expired_total", Help: "Count of objects expired by the expiry actor.",
	}, []string{"cache_name"})

	NLRUMoved = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "expire",
		Name: "lru_moved_total", Help: "Count of successful Touch-driven LRU reorderings.",
	}, []string{"cache_name"})

	NLRUNuked = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "expire",
		Name: "lru_nuked_total", Help: "Count of objects reclaimed via NukeOne.",
	}, []string{"cache_name"})

	prometheus.MustRegister(
		CacheObjects, CacheBytes, CacheMaxObjects, CacheMaxBytes,
		CacheEvents, ExpiryActorWakeDuration, NExpired, NLRUMoved, NLRUNuked,
	)
}

// Init starts the /metrics HTTP listener in the background if
// cfg.ListenPort is set. Metric collectors themselves are registered at
// package init time, so cache backends can record against them even in
// tests that never call Init.
func Init(cfg *config.MetricsConfig, logger *log.Logger) {
	if cfg != nil && cfg.ListenPort > 0 {
		go func() {
			log.Info(logger, "metrics http endpoint starting",
				log.Pairs{"address": cfg.ListenAddress, "port": fmt.Sprintf("%d", cfg.ListenPort)})
			http.Handle("/metrics", promhttp.Handler())
			addr := fmt.Sprintf("%s:%d", cfg.ListenAddress, cfg.ListenPort)
			if err := http.ListenAndServe(addr, nil); err != nil {
				log.Error(logger, "unable to start metrics http server", log.Pairs{"detail": err.Error()})
				os.Exit(1)
			}
		}()
	}
}
