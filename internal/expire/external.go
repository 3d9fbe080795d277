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

package expire

import "time"

// ObjectAccessor is the external collaborator owning the full
// cached Object behind an ObjectCore: its timers, and the object-head
// mutex a fetch holds while filling it. TryLock must be non-blocking —
// NukeOne's candidate scan relies on that.
type ObjectAccessor interface {
	// Timers returns the object's time of origin and its ttl/grace/keep
	// windows, as currently recorded (a Rearm may have changed them).
	Timers() (origin time.Time, ttl, grace, keep time.Duration)
	// TryLock attempts to acquire the object-head mutex without blocking.
	TryLock() bool
	// Unlock releases a lock acquired via TryLock.
	Unlock()
}

// MetadataPersister is invoked whenever an ObjectCore's TimerWhen changes,
// so an external index/persistence layer can record the new deadline.
type MetadataPersister interface {
	PersistTimer(oc *ObjectCore, when time.Time)
}

// NopPersister discards PersistTimer calls. Useful for tests and for
// backends, such as Redis, that manage their own expiry out-of-band.
type NopPersister struct{}

// PersistTimer implements MetadataPersister by doing nothing.
func (NopPersister) PersistTimer(*ObjectCore, time.Time) {}

// Stats collects the non-blocking eviction counters and the Kill log,
// carrying (oc, timer_when, flags, xid, residual_ttl).
type Stats interface {
	IncExpired()
	IncLRUMoved()
	IncLRUNuked()
	LogKill(oc *ObjectCore, when time.Time, flags Flags, residualTTL time.Duration)
}

// NopStats discards every stat and log call. Useful for tests that only
// care about heap/LRU/mailbox mechanics.
type NopStats struct{}

// IncExpired implements Stats by doing nothing.
func (NopStats) IncExpired() {}

// IncLRUMoved implements Stats by doing nothing.
func (NopStats) IncLRUMoved() {}

// IncLRUNuked implements Stats by doing nothing.
func (NopStats) IncLRUNuked() {}

// LogKill implements Stats by doing nothing.
func (NopStats) LogKill(*ObjectCore, time.Time, Flags, time.Duration) {}
