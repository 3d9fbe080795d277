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

package bbolt

import (
	"sync"
	"time"

	"github.com/ewqasd200g/varnish-cache/internal/expire"
)

type bboltAccessor struct {
	mu sync.Mutex

	tmu    sync.Mutex
	origin time.Time
	ttl    time.Duration

	oc *expire.ObjectCore
}

func newBBoltAccessor(origin time.Time, ttl time.Duration) *bboltAccessor {
	return &bboltAccessor{origin: origin, ttl: ttl}
}

func (a *bboltAccessor) Timers() (time.Time, time.Duration, time.Duration, time.Duration) {
	a.tmu.Lock()
	defer a.tmu.Unlock()
	return a.origin, a.ttl, 0, 0
}

func (a *bboltAccessor) setTimers(origin time.Time, ttl time.Duration) {
	a.tmu.Lock()
	a.origin, a.ttl = origin, ttl
	a.tmu.Unlock()
}

func (a *bboltAccessor) TryLock() bool { return a.mu.TryLock() }
func (a *bboltAccessor) Unlock()       { a.mu.Unlock() }
