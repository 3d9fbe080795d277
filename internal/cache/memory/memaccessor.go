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

package memory

import (
	"sync"
	"time"
)

// memAccessor is the expire.ObjectAccessor for an in-process entry: its
// timers, plus the object-head mutex a Store holds while replacing the
// entry's bytes (so NukeOne can't reclaim mid-write).
type memAccessor struct {
	mu sync.Mutex

	tmu    sync.Mutex
	origin time.Time
	ttl    time.Duration
	grace  time.Duration
	keep   time.Duration
}

func newMemAccessor(origin time.Time, ttl, grace, keep time.Duration) *memAccessor {
	return &memAccessor{origin: origin, ttl: ttl, grace: grace, keep: keep}
}

func (a *memAccessor) Timers() (time.Time, time.Duration, time.Duration, time.Duration) {
	a.tmu.Lock()
	defer a.tmu.Unlock()
	return a.origin, a.ttl, a.grace, a.keep
}

func (a *memAccessor) setTimers(origin time.Time, ttl time.Duration) {
	a.tmu.Lock()
	a.origin, a.ttl = origin, ttl
	a.tmu.Unlock()
}

func (a *memAccessor) TryLock() bool { return a.mu.TryLock() }
func (a *memAccessor) Unlock()       { a.mu.Unlock() }
