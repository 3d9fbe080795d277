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

// Config bundles the expiry actor's tunables.
type Config struct {
	// LongNap is the sleep Expire returns when the heap is empty; a long,
	// finite nap whose exact value is cosmetic.
	LongNap time.Duration
	// BusyRetry is the sleep Expire returns when the heap root is BUSY.
	BusyRetry time.Duration
	// YieldRetry is the sleep Expire returns when it loses a race for an
	// already-OFFLRU root to a concurrent Rearm.
	YieldRetry time.Duration
	// Housekeep, if non-nil, runs on the actor's own goroutine whenever it
	// is about to sleep rather than drain a mail, to flush logs or roll
	// up stats. It must not block.
	Housekeep func(now time.Time)
}

// DefaultConfig returns the engine's default tunables.
func DefaultConfig() Config {
	return Config{
		LongNap:    time.Hour,
		BusyRetry:  10 * time.Millisecond,
		YieldRetry: time.Millisecond,
	}
}

// Engine is the expiry actor: a single long-running loop that owns the
// min-heap and drains the Mailbox. It is the only
// agent that inserts into, reorders, or removes heap entries. Construct
// one with Init per process (or one per shard, for a deployment that
// wants several actors each owning a disjoint set of domains) and drive
// it with Run from its own goroutine.
type Engine struct {
	mbox  *Mailbox
	heap  ocHeap
	tnext time.Time

	stats   Stats
	persist MetadataPersister
	cfg     Config
}

// NewEngine constructs an Engine. stats and persist may be nil, in which
// case they default to NopStats{} and NopPersister{}.
func NewEngine(stats Stats, persist MetadataPersister, cfg Config) *Engine {
	if stats == nil {
		stats = NopStats{}
	}
	if persist == nil {
		persist = NopPersister{}
	}
	return &Engine{mbox: NewMailbox(), stats: stats, persist: persist, cfg: cfg}
}

// Mailbox exposes the actor's mailbox so the public operations in ops.go
// can mail ObjectCores to it.
func (e *Engine) Mailbox() *Mailbox { return e.mbox }

// Run drives the actor loop until stop is closed.
func (e *Engine) Run(stop <-chan struct{}) {
	for {
		if oc := e.mbox.drain(); oc != nil {
			e.tnext = time.Time{}
			e.inbox(oc, time.Now())
			continue
		}

		now := time.Now()
		if !e.tnext.IsZero() && e.tnext.After(now) {
			if e.cfg.Housekeep != nil {
				e.cfg.Housekeep(now)
			}
			timer := time.NewTimer(e.tnext.Sub(now))
			select {
			case <-stop:
				timer.Stop()
				return
			case <-e.mbox.notify:
				timer.Stop()
			case <-timer.C:
			}
			continue
		}

		select {
		case <-stop:
			return
		default:
		}
		e.tnext = e.expire(time.Now())
	}
}

// inbox processes one freshly-drained mail.
func (e *Engine) inbox(oc *ObjectCore, now time.Time) {
	dom := oc.domain

	dom.mu.Lock()
	flags := oc.snapshotFlags()
	oc.clearFlags(INSERT | MOVE)
	oc.LastLRU = now
	if flags&DYING == 0 {
		// linkLocked clears OFFLRU as part of linking. A DYING object is
		// deliberately left with OFFLRU set (it was never linked) rather
		// than cleared-then-skipped, so a concurrent Touch arriving the
		// instant dom.mu is released can't mistake it for list-resident.
		dom.linkLocked(oc)
	}
	dom.mu.Unlock()

	if flags&DYING != 0 {
		e.heap.delete(oc)
		var residual time.Duration
		if oc.Accessor != nil {
			origin, ttl, _, _ := oc.Accessor.Timers()
			residual = ttl - now.Sub(origin)
		}
		e.stats.LogKill(oc, oc.TimerWhen, flags, residual)
		oc.Deref()
		return
	}

	if flags&MOVE != 0 {
		if oc.Accessor != nil {
			origin, ttl, grace, keep := oc.Accessor.Timers()
			oc.TimerWhen = ExpWhen(origin, ttl, grace, keep)
		}
		e.persist.PersistTimer(oc, oc.TimerWhen)
	}

	switch {
	case flags&INSERT != 0:
		e.heap.insert(oc)
	case flags&MOVE != 0:
		e.heap.reorder(oc)
	default:
		panic("expire: malformed mail: neither INSERT, MOVE, nor DYING set")
	}
}

// expire runs one pass over the heap's due objects, looping internally
// while it can keep retiring them instead of bouncing back out through
// Run.
func (e *Engine) expire(now time.Time) time.Time {
	for {
		oc := e.heap.peek()
		if oc == nil {
			return now.Add(e.cfg.LongNap)
		}
		if oc.TimerWhen.After(now) {
			return oc.TimerWhen
		}
		if oc.testFlag(BUSY) {
			return now.Add(e.cfg.BusyRetry)
		}

		dom := oc.domain
		dom.mu.Lock()
		if oc.testFlag(OFFLRU) {
			// Another agent (a racing Rearm) has already pulled this OC
			// toward the mailbox; back off and let that mail resolve it.
			dom.mu.Unlock()
			return now.Add(e.cfg.YieldRetry)
		}
		dom.unlinkLocked(oc)
		oc.setFlags(DYING)
		dom.mu.Unlock()

		e.heap.delete(oc)
		e.stats.IncExpired()

		var residual time.Duration
		if oc.Accessor != nil {
			origin, ttl, _, _ := oc.Accessor.Timers()
			residual = ttl - now.Sub(origin)
		}
		e.stats.LogKill(oc, oc.TimerWhen, oc.snapshotFlags(), residual)

		oc.Deref()
	}
}
