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

package filesystem

import (
	"sync"
	"time"

	"github.com/ewqasd200g/varnish-cache/internal/expire"
)

// fsAccessor backs expire.ObjectAccessor for an on-disk entry. The
// object-head mutex it exposes guards the underlying file while a Store
// rewrites it, the same contention NukeOne avoids by try-locking rather
// than blocking.
type fsAccessor struct {
	mu sync.Mutex

	tmu    sync.Mutex
	origin time.Time
	ttl    time.Duration

	oc *expire.ObjectCore
}

func newFSAccessor(origin time.Time, ttl time.Duration) *fsAccessor {
	return &fsAccessor{origin: origin, ttl: ttl}
}

func (a *fsAccessor) Timers() (time.Time, time.Duration, time.Duration, time.Duration) {
	a.tmu.Lock()
	defer a.tmu.Unlock()
	return a.origin, a.ttl, 0, 0
}

func (a *fsAccessor) setTimers(origin time.Time, ttl time.Duration) {
	a.tmu.Lock()
	a.origin, a.ttl = origin, ttl
	a.tmu.Unlock()
}

func (a *fsAccessor) TryLock() bool { return a.mu.TryLock() }
func (a *fsAccessor) Unlock()       { a.mu.Unlock() }
