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

// Package expire implements the object expiry and LRU engine: a
// priority-ordered timer wheel over the cached population, a per-domain
// recency list for on-demand reclamation, and a single expiry actor that
// serializes mutations from arbitrary worker goroutines through a mailbox.
package expire

import (
	"sync/atomic"
	"time"
)

// Flags is the ObjectCore state bitset.
type Flags uint32

const (
	// OFFLRU is set iff the ObjectCore is not linked into its LRU list.
	OFFLRU Flags = 1 << iota
	// INSERT marks a mail as a first-time heap insertion.
	INSERT
	// MOVE marks a mail as a heap reorder (timer_when changed in place).
	MOVE
	// DYING marks an ObjectCore scheduled for destruction.
	DYING
	// BUSY marks an ObjectCore whose backing Object is being written by a
	// fetch in progress; it must not be expired or nuked while set.
	BUSY
)

// noIndex is the timer_idx sentinel meaning "not in the heap".
const noIndex = -1

// ObjectCore is the minimal, always-resident handle for a cached object.
// Workers never touch lPrev/lNext/mNext/timerIdx directly; they go
// through LRU, the heap helpers, and the public operations in ops.go.
type ObjectCore struct {
	// TimerWhen is the absolute wall-clock time the actor should next
	// examine this object. Inject sets it, and Rearm may update it while
	// the INSERT mail is still pending; from then on only the actor
	// mutates it.
	TimerWhen time.Time
	timerIdx  int

	// LastLRU is the wall-clock time of the last LRU position update.
	LastLRU time.Time

	flags  atomic.Uint32
	refcnt int32

	lPrev, lNext *ObjectCore // LRU list links, valid only while OFFLRU is clear
	mNext        *ObjectCore // mailbox FIFO link, valid only while mailed

	domain *LRU

	// Accessor is the external collaborator owning the full Object this
	// core fronts: its timers and its busy-writer mutex. Nil is allowed
	// in tests that exercise the heap/LRU/mailbox in isolation.
	Accessor ObjectAccessor

	// Key identifies the object for logging. A real xid is assigned by
	// the fetch layer and is out of scope here; Key stands in for it in
	// this engine's own logs.
	Key string

	teardown func()
}

// NewObjectCore returns an unlinked, unheaped ObjectCore with OFFLRU set
// and refcnt 1, ready to be handed to Inject or Insert. teardown, if
// non-nil, runs exactly once when the last reference is dropped.
func NewObjectCore(key string, accessor ObjectAccessor, teardown func()) *ObjectCore {
	oc := &ObjectCore{
		Key:      key,
		Accessor: accessor,
		teardown: teardown,
		refcnt:   1,
		timerIdx: noIndex,
	}
	oc.flags.Store(uint32(OFFLRU))
	return oc
}

// TimerIdx reports the object's current heap index, or -1 if not in the heap.
func (oc *ObjectCore) TimerIdx() int { return oc.timerIdx }

// RefCount reports the current reference count.
func (oc *ObjectCore) RefCount() int32 { return atomic.LoadInt32(&oc.refcnt) }

// Ref takes a reference on oc.
func (oc *ObjectCore) Ref() { atomic.AddInt32(&oc.refcnt, 1) }

// Deref drops a reference. When the count reaches zero it invokes the
// teardown callback exactly once and reports true.
func (oc *ObjectCore) Deref() bool {
	if atomic.AddInt32(&oc.refcnt, -1) == 0 {
		if oc.teardown != nil {
			oc.teardown()
		}
		return true
	}
	return false
}

func (oc *ObjectCore) testFlag(f Flags) bool {
	return Flags(oc.flags.Load())&f != 0
}

func (oc *ObjectCore) hasAny(f Flags) bool { return oc.testFlag(f) }

func (oc *ObjectCore) setFlags(f Flags) {
	for {
		old := oc.flags.Load()
		next := old | uint32(f)
		if next == old {
			return
		}
		if oc.flags.CompareAndSwap(old, next) {
			return
		}
	}
}

func (oc *ObjectCore) clearFlags(f Flags) {
	for {
		old := oc.flags.Load()
		next := old &^ uint32(f)
		if next == old {
			return
		}
		if oc.flags.CompareAndSwap(old, next) {
			return
		}
	}
}

// snapshotFlags returns the current flag bitset for logging/testing.
func (oc *ObjectCore) snapshotFlags() Flags { return Flags(oc.flags.Load()) }

// ExpWhen computes the effective wake time: t_origin + ttl + grace + keep.
// The caller (a backend) supplies the timers; this engine only combines
// them.
func ExpWhen(origin time.Time, ttl, grace, keep time.Duration) time.Time {
	return origin.Add(ttl).Add(grace).Add(keep)
}
