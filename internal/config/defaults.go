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

package config

const (
	defaultLogLevel = "info"

	defaultMetricsListenPort    = 8082
	defaultMetricsListenAddress = ""

	defaultCacheType        = "memory"
	defaultCacheCompression = true
	defaultCachePath        = "/tmp/varnishd"
	defaultCompressionCodec = "snappy"

	defaultBadgerDirectory = "/tmp/varnishd/badger"

	defaultRedisProtocol = "tcp"
	defaultRedisEndpoint = "redis:6379"

	defaultBBoltFile   = "varnishd.db"
	defaultBBoltBucket = "varnishd"

	defaultHousekeepIntervalSecs = 3
	defaultFlushIntervalSecs     = 5
	defaultMaxSizeBytes          = 536870912
	defaultMaxSizeBackoffBytes   = 16777216
	defaultMaxSizeObjects        = 0
	defaultMaxSizeBackoffObjects = 100

	defaultTTLSecs      = 120
	defaultGraceSecs     = 10
	defaultKeepSecs      = 0
	defaultLongNapSecs   = 3600
)
