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

// Package types enumerates the storage backends a named cache can run on.
package types

import "strconv"

// CacheType enumerates the storage backends a named cache can run on.
type CacheType int

const (
	// CacheTypeMemory indicates an in-process sync.Map-backed cache.
	CacheTypeMemory = CacheType(iota)
	// CacheTypeFilesystem indicates an on-disk object store.
	CacheTypeFilesystem
	// CacheTypeRedis indicates a Redis-backed cache.
	CacheTypeRedis
	// CacheTypeBbolt indicates a go.etcd.io/bbolt-backed cache.
	CacheTypeBbolt
	// CacheTypeBadgerDB indicates a dgraph-io/badger-backed cache.
	CacheTypeBadgerDB
)

// Names maps configuration strings to CacheType values.
var Names = map[string]CacheType{
	"memory":     CacheTypeMemory,
	"filesystem": CacheTypeFilesystem,
	"redis":      CacheTypeRedis,
	"bbolt":      CacheTypeBbolt,
	"badger":     CacheTypeBadgerDB,
}

// Values maps CacheType values back to their configuration string.
var Values = make(map[CacheType]string)

func init() {
	for k, v := range Names {
		Values[v] = k
	}
}

func (t CacheType) String() string {
	if v, ok := Values[t]; ok {
		return v
	}
	return strconv.Itoa(int(t))
}

// IndexManaged reports whether a backend of this type owns an expire.LRU
// domain. Redis manages its own TTL/eviction out of band and is excluded.
func (t CacheType) IndexManaged() bool {
	return t != CacheTypeRedis
}
