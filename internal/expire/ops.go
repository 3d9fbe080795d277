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

// Init constructs an Engine and starts its actor loop on a new goroutine,
// returning the Engine and a func that stops it. This, plus the five
// operations below, is the entirety of the core's public surface.
func Init(stats Stats, persist MetadataPersister, cfg Config) (*Engine, func()) {
	e := NewEngine(stats, persist, cfg)
	stop := make(chan struct{})
	go e.Run(stop)
	return e, func() { close(stop) }
}

// Inject records a pre-computed wake time for oc and mails it to the
// actor. Reference ownership of oc transfers to the engine.
func Inject(e *Engine, oc *ObjectCore, lru *LRU, when time.Time) {
	lru.mu.Lock()
	oc.domain = lru
	oc.setFlags(OFFLRU | INSERT)
	oc.TimerWhen = when
	lru.mu.Unlock()

	e.Mailbox().Mail(oc)
}

// Insert is Inject, but derives when from oc's own Accessor timers via
// ExpWhen, persists the metadata immediately, and stamps LastLRU. oc is
// expected to carry the fresh reference NewObjectCore grants at
// construction.
func Insert(e *Engine, oc *ObjectCore, lru *LRU, now time.Time) {
	var when time.Time
	if oc.Accessor != nil {
		origin, ttl, grace, keep := oc.Accessor.Timers()
		when = ExpWhen(origin, ttl, grace, keep)
	} else {
		when = now
	}
	e.persist.PersistTimer(oc, when)
	oc.LastLRU = now
	Inject(e, oc, lru, when)
}

// Touch moves oc to the tail of its LRU without blocking, returning
// whether a move happened.
func Touch(e *Engine, oc *ObjectCore, now time.Time) bool {
	dom := oc.domain
	if dom == nil {
		return false
	}
	return dom.Touch(oc, now, e.stats)
}

// Rearm recomputes oc's wake time from its current Accessor timers and,
// if it changed, schedules the actor to act on the new value. A negative
// effective wake marks oc DYING instead of rescheduling it. If oc is
// already off its LRU — a prior mail is in flight — Rearm folds the
// update into that pending mail's flags instead of mailing again.
func Rearm(e *Engine, oc *ObjectCore, now time.Time) {
	if oc.Accessor == nil {
		return
	}
	origin, ttl, grace, keep := oc.Accessor.Timers()
	when := ExpWhen(origin, ttl, grace, keep)
	if when.Equal(oc.TimerWhen) {
		return
	}

	dom := oc.domain
	dom.mu.Lock()

	if oc.testFlag(OFFLRU) {
		if oc.testFlag(DYING) {
			dom.mu.Unlock()
			return
		}
		if when.Before(now) {
			oc.clearFlags(INSERT | MOVE)
			oc.setFlags(DYING)
		} else if oc.testFlag(INSERT) {
			// Inbox's INSERT branch heap-inserts oc.TimerWhen verbatim;
			// updating it in place is picked up on arrival.
			oc.TimerWhen = when
		} else {
			oc.setFlags(MOVE)
		}
		dom.mu.Unlock()
		return
	}

	if when.Before(now) {
		oc.setFlags(DYING)
	} else {
		oc.setFlags(MOVE)
	}
	dom.unlinkLocked(oc)
	dom.mu.Unlock()

	e.Mailbox().Mail(oc)
}

// NukeOne evicts the least-recently-used reclaimable object in lru, if
// any, mailing it to the actor for teardown and reporting whether a
// candidate was found. This is the only space-pressure entry point; a
// caller that gets false fails its triggering fetch with an out-of-space
// condition.
func NukeOne(e *Engine, lru *LRU) bool {
	oc := lru.TryReclaim()
	if oc == nil {
		return false
	}
	e.stats.IncLRUNuked()
	e.Mailbox().Mail(oc)
	oc.Deref()
	return true
}
