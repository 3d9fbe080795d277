package expire

import (
	"sync"
	"time"
)

// fakeAccessor is a minimal ObjectAccessor for tests: a mutable set of
// timers plus a real mutex backing TryLock/Unlock, so tests can exercise
// BUSY-equivalent contention without a real fetch in progress.
type fakeAccessor struct {
	mu sync.Mutex

	tmu    sync.Mutex
	origin time.Time
	ttl    time.Duration
	grace  time.Duration
	keep   time.Duration
}

func newFakeAccessor(origin time.Time, ttl, grace, keep time.Duration) *fakeAccessor {
	return &fakeAccessor{origin: origin, ttl: ttl, grace: grace, keep: keep}
}

func (f *fakeAccessor) Timers() (time.Time, time.Duration, time.Duration, time.Duration) {
	f.tmu.Lock()
	defer f.tmu.Unlock()
	return f.origin, f.ttl, f.grace, f.keep
}

func (f *fakeAccessor) setTimers(origin time.Time, ttl, grace, keep time.Duration) {
	f.tmu.Lock()
	defer f.tmu.Unlock()
	f.origin, f.ttl, f.grace, f.keep = origin, ttl, grace, keep
}

func (f *fakeAccessor) TryLock() bool { return f.mu.TryLock() }
func (f *fakeAccessor) Unlock()       { f.mu.Unlock() }

// fakeStats records every call for assertions instead of talking to
// Prometheus/logging.
type fakeStats struct {
	mu sync.Mutex

	expired  int
	lruMoved int
	lruNuked int
	kills    []killRecord
}

type killRecord struct {
	oc        *ObjectCore
	when      time.Time
	flags     Flags
	residual  time.Duration
}

func (s *fakeStats) IncExpired() {
	s.mu.Lock()
	s.expired++
	s.mu.Unlock()
}

func (s *fakeStats) IncLRUMoved() {
	s.mu.Lock()
	s.lruMoved++
	s.mu.Unlock()
}

func (s *fakeStats) IncLRUNuked() {
	s.mu.Lock()
	s.lruNuked++
	s.mu.Unlock()
}

func (s *fakeStats) LogKill(oc *ObjectCore, when time.Time, flags Flags, residual time.Duration) {
	s.mu.Lock()
	s.kills = append(s.kills, killRecord{oc, when, flags, residual})
	s.mu.Unlock()
}

func (s *fakeStats) expiredCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.expired
}
