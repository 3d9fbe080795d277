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

import (
	"sync"
	"sync/atomic"
	"time"
)

// LRU is a per-storage-domain doubly-linked recency list. Head is
// least-recently-used; Link appends to the tail. DontMove mirrors
// backends (e.g. a write-once filesystem cache) for which recency
// reordering is pointless.
type LRU struct {
	mu    sync.Mutex
	head  *ObjectCore
	tail  *ObjectCore
	count int64

	// DontMove makes Touch a permanent no-op.
	DontMove bool

	// Name identifies the domain in logs and metrics.
	Name string
}

// NewLRU returns an empty LRU set for the named domain.
func NewLRU(name string, dontMove bool) *LRU {
	return &LRU{Name: name, DontMove: dontMove}
}

// Count returns the number of ObjectCores currently linked into the list.
func (l *LRU) Count() int64 { return atomic.LoadInt64(&l.count) }

// Link appends oc to the tail. oc must have OFFLRU set on entry; Link
// clears it on exit.
func (l *LRU) Link(oc *ObjectCore) {
	l.mu.Lock()
	l.linkLocked(oc)
	l.mu.Unlock()
}

func (l *LRU) linkLocked(oc *ObjectCore) {
	oc.lPrev = l.tail
	oc.lNext = nil
	if l.tail != nil {
		l.tail.lNext = oc
	} else {
		l.head = oc
	}
	l.tail = oc
	oc.domain = l
	oc.clearFlags(OFFLRU)
	atomic.AddInt64(&l.count, 1)
}

// Unlink removes oc from wherever it currently sits in the list. A no-op
// if oc already has OFFLRU set.
func (l *LRU) Unlink(oc *ObjectCore) {
	l.mu.Lock()
	l.unlinkLocked(oc)
	l.mu.Unlock()
}

func (l *LRU) unlinkLocked(oc *ObjectCore) {
	if oc.testFlag(OFFLRU) {
		return
	}
	if oc.lPrev != nil {
		oc.lPrev.lNext = oc.lNext
	} else {
		l.head = oc.lNext
	}
	if oc.lNext != nil {
		oc.lNext.lPrev = oc.lPrev
	} else {
		l.tail = oc.lPrev
	}
	oc.lPrev, oc.lNext = nil, nil
	oc.setFlags(OFFLRU)
	atomic.AddInt64(&l.count, -1)
}

// Touch moves oc to the tail if it is currently linked, returning whether
// a move happened. It never blocks: DontMove short-circuits
// to a no-op, and a busy LRU mutex is treated as a no-op rather than
// waited on, trading perfect recency order for freedom from contention.
func (l *LRU) Touch(oc *ObjectCore, now time.Time, stats Stats) bool {
	if l.DontMove {
		return false
	}
	if !l.mu.TryLock() {
		return false
	}
	defer l.mu.Unlock()

	if oc.testFlag(OFFLRU) {
		return false
	}
	if oc == l.tail {
		oc.LastLRU = now
		return false
	}
	l.unlinkLocked(oc)
	l.linkLocked(oc)
	oc.LastLRU = now
	if stats != nil {
		stats.IncLRUMoved()
	}
	return true
}

// TryReclaim scans head-to-tail for the first ObjectCore that is not BUSY,
// has refcnt == 1, and whose object-head mutex can be acquired via
// try-lock. On success it marks the
// candidate DYING, donates a reference to the caller (who is expected to
// mail it to the actor), unlinks it, and returns it. It returns nil if no
// candidate exists ("cannot reclaim").
//
// The whole scan runs under l.mu, which is also the mutex every
// refcnt-affecting transition on an LRU-resident ObjectCore takes before
// mutating it (Inbox, Expire, Rearm-while-linked); that shared mutex is
// what makes the refcnt==1 check race-free without a separate scan-time
// pin on the candidate.
func (l *LRU) TryReclaim() *ObjectCore {
	l.mu.Lock()
	defer l.mu.Unlock()

	for oc := l.head; oc != nil; oc = oc.lNext {
		if oc.testFlag(BUSY) {
			continue
		}
		if atomic.LoadInt32(&oc.refcnt) != 1 {
			continue
		}
		if oc.Accessor != nil && !oc.Accessor.TryLock() {
			continue
		}

		l.unlinkLocked(oc)
		oc.setFlags(DYING)
		oc.Ref()

		if oc.Accessor != nil {
			oc.Accessor.Unlock()
		}
		return oc
	}
	return nil
}
