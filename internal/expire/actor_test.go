package expire

import (
	"testing"
	"time"
)

func newTestEngine() (*Engine, *fakeStats) {
	stats := &fakeStats{}
	e := NewEngine(stats, nil, DefaultConfig())
	return e, stats
}

// drainAndInbox pulls the single mail the test expects to be waiting and
// runs it through Inbox, exactly as one Run() iteration would.
func drainAndInbox(t *testing.T, e *Engine, now time.Time) *ObjectCore {
	t.Helper()
	oc := e.mbox.drain()
	if oc == nil {
		t.Fatalf("expected a pending mail, found none")
	}
	e.inbox(oc, now)
	return oc
}

// a single OC with ttl=10s, grace=keep=0 must not
// fire before its deadline and must fire exactly once just after it.
func TestSingleObjectFiresOnce(t *testing.T) {
	e, stats := newTestEngine()
	lru := NewLRU("d", false)
	base := time.Unix(100, 0)

	var torndown bool
	accessor := newFakeAccessor(base, 10*time.Second, 0, 0)
	oc := NewObjectCore("o1", accessor, func() { torndown = true })

	Insert(e, oc, lru, base)
	drainAndInbox(t, e, base)

	if lru.Count() != 1 {
		t.Fatalf("expected 1 linked object, got %d", lru.Count())
	}

	tooSoon := base.Add(9999 * time.Millisecond)
	next := e.expire(tooSoon)
	if stats.expiredCount() != 0 {
		t.Fatalf("object fired before its deadline")
	}
	if !next.Equal(oc.TimerWhen) {
		t.Fatalf("expected next wake == timer_when, got %v want %v", next, oc.TimerWhen)
	}

	due := base.Add(10001 * time.Millisecond)
	e.expire(due)
	if stats.expiredCount() != 1 {
		t.Fatalf("expected exactly one expiry, got %d", stats.expiredCount())
	}
	if oc.TimerIdx() != noIndex {
		t.Fatalf("object still in heap after expiry")
	}
	if lru.Count() != 0 {
		t.Fatalf("object still linked into LRU after expiry")
	}
	if oc.RefCount() != 0 {
		t.Fatalf("expected refcount 0 after expiry, got %d", oc.RefCount())
	}
	if !torndown {
		t.Fatalf("teardown was not invoked when refcount reached zero")
	}
}

// of two OCs, the one with the earlier deadline
// expires first and the other remains the heap root.
func TestEarlierDeadlineExpiresFirst(t *testing.T) {
	e, stats := newTestEngine()
	lru := NewLRU("d", false)
	base := time.Unix(0, 0)

	a := NewObjectCore("a", nil, nil)
	b := NewObjectCore("b", nil, nil)

	Inject(e, a, lru, base.Add(200*time.Second))
	drainAndInbox(t, e, base)
	Inject(e, b, lru, base.Add(150*time.Second))
	drainAndInbox(t, e, base)

	next := e.expire(base.Add(160 * time.Second))
	if stats.expiredCount() != 1 {
		t.Fatalf("expected exactly one expiry at t=160, got %d", stats.expiredCount())
	}
	if b.TimerIdx() != noIndex {
		t.Fatalf("B should have been removed from the heap")
	}
	if a.TimerIdx() == noIndex {
		t.Fatalf("A should remain in the heap")
	}
	if root := e.heap.peek(); root != a {
		t.Fatalf("expected A to be the new heap root")
	}
	if !next.Equal(a.TimerWhen) {
		t.Fatalf("expected next wake == A's timer_when, got %v", next)
	}
}

// rearming to an earlier deadline makes the object
// fire at the new deadline, not the original one, and only once.
func TestRearmToEarlierDeadline(t *testing.T) {
	e, stats := newTestEngine()
	lru := NewLRU("d", false)
	base := time.Unix(0, 0)

	accessor := newFakeAccessor(base, 500*time.Second, 0, 0)
	oc := NewObjectCore("o", accessor, nil)

	Insert(e, oc, lru, base)
	drainAndInbox(t, e, base)
	if !oc.TimerWhen.Equal(base.Add(500 * time.Second)) {
		t.Fatalf("expected initial deadline at +500s, got %v", oc.TimerWhen)
	}

	accessor.setTimers(base, 300*time.Second, 0, 0)
	Rearm(e, oc, base)
	drainAndInbox(t, e, base)

	if !oc.TimerWhen.Equal(base.Add(300 * time.Second)) {
		t.Fatalf("expected rearmed deadline at +300s, got %v", oc.TimerWhen)
	}

	next := e.expire(base.Add(301 * time.Second))
	if stats.expiredCount() != 1 {
		t.Fatalf("expected exactly one expiry, got %d", stats.expiredCount())
	}
	_ = next
}

// rearming to a negative effective deadline kills
// the object without ever counting as an "expired" stat.
func TestRearmNegativeDeadlineKillsSilently(t *testing.T) {
	e, stats := newTestEngine()
	lru := NewLRU("d", false)
	base := time.Unix(0, 0)

	accessor := newFakeAccessor(base, 500*time.Second, 0, 0)
	var torndown bool
	oc := NewObjectCore("o", accessor, func() { torndown = true })

	Insert(e, oc, lru, base)
	drainAndInbox(t, e, base)

	accessor.setTimers(base, -1000*time.Second, 0, 0)
	Rearm(e, oc, base)
	drainAndInbox(t, e, base)

	if stats.expiredCount() != 0 {
		t.Fatalf("a DYING rearm must not count as an expiry, got %d", stats.expiredCount())
	}
	if oc.TimerIdx() != noIndex {
		t.Fatalf("object should have been removed from the heap")
	}
	if oc.RefCount() != 0 {
		t.Fatalf("expected refcount 0, got %d", oc.RefCount())
	}
	if !torndown {
		t.Fatalf("teardown was not invoked")
	}
}
