package index

import (
	"testing"
	"time"

	"github.com/ewqasd200g/varnish-cache/internal/config"
	"github.com/ewqasd200g/varnish-cache/internal/expire"
	"github.com/ewqasd200g/varnish-cache/internal/util/log"
)

func TestUpdateAndRemoveObject(t *testing.T) {
	idx := NewIndex("test", "memory", nil, config.CacheIndexConfig{}, nil, log.ConsoleLogger("error"))

	idx.UpdateObject("a", 10, time.Now().Add(time.Minute))
	if idx.CacheSize != 10 || idx.ObjectCount != 1 {
		t.Fatalf("expected size=10 count=1, got size=%d count=%d", idx.CacheSize, idx.ObjectCount)
	}

	idx.UpdateObject("a", 20, time.Now().Add(time.Minute))
	if idx.CacheSize != 20 || idx.ObjectCount != 1 {
		t.Fatalf("expected overwrite to keep count at 1 and size at 20, got size=%d count=%d", idx.CacheSize, idx.ObjectCount)
	}

	idx.RemoveObject("a")
	if idx.CacheSize != 0 || idx.ObjectCount != 0 {
		t.Fatalf("expected size=0 count=0 after remove, got size=%d count=%d", idx.CacheSize, idx.ObjectCount)
	}
}

func TestOverBudgetByBytesAndObjects(t *testing.T) {
	idx := NewIndex("test", "memory", nil, config.CacheIndexConfig{MaxSizeBytes: 15}, nil, log.ConsoleLogger("error"))
	idx.UpdateObject("a", 10, time.Time{})
	if idx.OverBudget() {
		t.Fatalf("expected not over budget at size 10 with limit 15")
	}
	idx.UpdateObject("b", 10, time.Time{})
	if !idx.OverBudget() {
		t.Fatalf("expected over budget at size 20 with limit 15")
	}

	idx2 := NewIndex("test2", "memory", nil, config.CacheIndexConfig{MaxSizeObjects: 1}, nil, log.ConsoleLogger("error"))
	idx2.UpdateObject("a", 1, time.Time{})
	if idx2.OverBudget() {
		t.Fatalf("expected not over budget at 1 object with limit 1")
	}
	idx2.UpdateObject("b", 1, time.Time{})
	if !idx2.OverBudget() {
		t.Fatalf("expected over budget at 2 objects with limit 1")
	}
}

func TestPersistTimerUpdatesExpiration(t *testing.T) {
	idx := NewIndex("test", "memory", nil, config.CacheIndexConfig{}, nil, log.ConsoleLogger("error"))
	idx.UpdateObject("a", 5, time.Time{})

	oc := expire.NewObjectCore("a", nil, nil)
	when := time.Now().Add(time.Hour)
	idx.PersistTimer(oc, when)

	if !idx.Objects["a"].Expiration.Equal(when) {
		t.Fatalf("expected PersistTimer to update the recorded expiration")
	}
}

func TestToBytesRoundTrip(t *testing.T) {
	idx := NewIndex("test", "memory", nil, config.CacheIndexConfig{}, nil, log.ConsoleLogger("error"))
	idx.UpdateObject("a", 5, time.Now().Add(time.Minute))

	b := idx.ToBytes()
	restored := NewIndex("test", "memory", b, config.CacheIndexConfig{}, nil, log.ConsoleLogger("error"))

	if restored.CacheSize != idx.CacheSize || restored.ObjectCount != idx.ObjectCount {
		t.Fatalf("expected restored index to match: got size=%d count=%d, want size=%d count=%d",
			restored.CacheSize, restored.ObjectCount, idx.CacheSize, idx.ObjectCount)
	}
	if _, ok := restored.Objects["a"]; !ok {
		t.Fatalf("expected restored index to contain key %q", "a")
	}
}

func TestFlusherSkipsWhenNotDirty(t *testing.T) {
	var flushed int
	idx := NewIndex("test", "memory", nil, config.CacheIndexConfig{FlushInterval: 10 * time.Millisecond},
		func(string, []byte) { flushed++ }, log.ConsoleLogger("error"))

	idx.UpdateObject("a", 1, time.Time{})
	time.Sleep(40 * time.Millisecond)
	if flushed == 0 {
		t.Fatalf("expected at least one flush after a dirty write")
	}

	seenAfterDirty := flushed
	time.Sleep(40 * time.Millisecond)
	if flushed != seenAfterDirty {
		t.Fatalf("expected no further flushes once the index is clean, got %d additional", flushed-seenAfterDirty)
	}
}
