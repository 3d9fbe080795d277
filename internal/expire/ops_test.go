package expire

import (
	"sync"
	"testing"
	"time"
)

// TestEngineRunExpiresInBackground drives the actor for real, on its own
// goroutine, rather than single-stepping Inbox/Expire by hand.
func TestEngineRunExpiresInBackground(t *testing.T) {
	stats := &fakeStats{}
	cfg := DefaultConfig()
	cfg.BusyRetry = time.Millisecond
	cfg.YieldRetry = time.Millisecond
	e, stop := Init(stats, nil, cfg)
	defer stop()

	lru := NewLRU("d", false)
	accessor := newFakeAccessor(time.Now(), 20*time.Millisecond, 0, 0)
	oc := NewObjectCore("o", accessor, nil)
	Insert(e, oc, lru, time.Now())

	deadline := time.Now().Add(2 * time.Second)
	for stats.expiredCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if stats.expiredCount() != 1 {
		t.Fatalf("expected the object to expire within 2s, expiredCount=%d", stats.expiredCount())
	}
}

// concurrent Touch/Touch/Rearm on one object leaves
// it linked into exactly one of {LRU, mailbox}, with timer_idx consistent
// with heap membership and refcount intact.
func TestConcurrentTouchAndRearmPreserveInvariants(t *testing.T) {
	stats := &fakeStats{}
	cfg := DefaultConfig()
	cfg.BusyRetry = time.Millisecond
	cfg.YieldRetry = time.Millisecond
	e, stop := Init(stats, nil, cfg)
	defer stop()

	lru := NewLRU("d", false)
	accessor := newFakeAccessor(time.Now(), time.Hour, 0, 0)
	oc := NewObjectCore("o", accessor, nil)
	Insert(e, oc, lru, time.Now())

	// Give the actor a moment to drain the initial Insert mail so the
	// object starts out heap+LRU resident, as the later racers expect.
	waitUntilLinked(t, lru, oc)

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				Touch(e, oc, time.Now())
			}
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		for j := 0; j < 200; j++ {
			accessor.setTimers(time.Now(), time.Hour, 0, 0)
			Rearm(e, oc, time.Now())
		}
	}()
	wg.Wait()

	// Let any in-flight mail settle.
	time.Sleep(50 * time.Millisecond)

	// With no mail left in flight the object must be back on its LRU,
	// linked exactly once, and still heap-resident.
	if oc.testFlag(OFFLRU) {
		t.Fatalf("object is off its LRU after every mail settled")
	}
	if lru.Count() != 1 {
		t.Fatalf("expected the object linked into the LRU exactly once, count=%d", lru.Count())
	}
	if oc.TimerIdx() == noIndex {
		t.Fatalf("LRU-resident object is missing from the heap")
	}
	if oc.RefCount() < 1 {
		t.Fatalf("refcount underflowed: %d", oc.RefCount())
	}
}

func waitUntilLinked(t *testing.T, lru *LRU, oc *ObjectCore) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if !oc.testFlag(OFFLRU) {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("object never became LRU-resident")
}

func TestNukeOneReportsFailureWhenNothingReclaimable(t *testing.T) {
	stats := &fakeStats{}
	e, stop := Init(stats, nil, DefaultConfig())
	defer stop()

	lru := NewLRU("d", false)
	oc := NewObjectCore("o", nil, nil)
	oc.Ref() // refcnt 2: not reclaimable
	lru.Link(oc)

	if NukeOne(e, lru) {
		t.Fatalf("expected NukeOne to fail with only a multiply-referenced object")
	}
	if stats.lruNuked != 0 {
		t.Fatalf("expected no IncLRUNuked call, got %d", stats.lruNuked)
	}
}

func TestNukeOneMailsReclaimedObjectToActor(t *testing.T) {
	stats := &fakeStats{}
	e, stop := Init(stats, nil, DefaultConfig())
	defer stop()

	lru := NewLRU("d", false)
	var torndown bool
	oc := NewObjectCore("o", nil, func() { torndown = true })
	lru.Link(oc)

	if !NukeOne(e, lru) {
		t.Fatalf("expected NukeOne to reclaim the only candidate")
	}
	if stats.lruNuked != 1 {
		t.Fatalf("expected IncLRUNuked to be called once, got %d", stats.lruNuked)
	}

	deadline := time.Now().Add(time.Second)
	for !torndown && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if !torndown {
		t.Fatalf("expected the actor to drain the mail and drop its reference")
	}
}
