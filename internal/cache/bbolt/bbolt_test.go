package bbolt

import (
	"path/filepath"
	"testing"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/ewqasd200g/varnish-cache/internal/config"
	"github.com/ewqasd200g/varnish-cache/internal/util/log"
)

func newTestCache(t *testing.T) *Cache {
	t.Helper()
	path := filepath.Join(t.TempDir(), "varnishd-bbolt-test.db")
	cfg := &config.CachingConfig{
		Name:      "test",
		CacheType: "bbolt",
		Index: config.CacheIndexConfig{
			HousekeepInterval: time.Millisecond,
			MaxSizeObjects:    2,
		},
		Timer: config.TimerConfig{DefaultTTL: time.Hour},
		BBolt: config.BBoltCacheConfig{
			Filename: path,
			Bucket:   "varnishd",
		},
	}
	c := &Cache{Name: "test", Config: cfg, Logger: log.ConsoleLogger("error")}
	if err := c.Connect(); err != nil {
		t.Fatalf("unexpected Connect error: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func TestBBoltStoreAndRetrieve(t *testing.T) {
	c := newTestCache(t)
	if err := c.Store("a", []byte("hello"), time.Minute); err != nil {
		t.Fatalf("unexpected store error: %v", err)
	}
	got, err := c.Retrieve("a")
	if err != nil {
		t.Fatalf("unexpected retrieve error: %v", err)
	}
	if string(got) != "hello" {
		t.Fatalf("expected %q, got %q", "hello", got)
	}
}

func TestBBoltRetrieveMiss(t *testing.T) {
	c := newTestCache(t)
	if _, err := c.Retrieve("missing"); err == nil {
		t.Fatalf("expected a cache-miss error")
	}
}

func TestBBoltStoreOverwritesAndRearms(t *testing.T) {
	c := newTestCache(t)
	c.Store("a", []byte("v1"), time.Minute)
	first := c.accessors["a"]
	c.Store("a", []byte("v2"), 2*time.Minute)
	second := c.accessors["a"]

	if first != second {
		t.Fatalf("expected Store to reuse the existing accessor/ObjectCore on overwrite")
	}
	got, _ := c.Retrieve("a")
	if string(got) != "v2" {
		t.Fatalf("expected updated value v2, got %q", got)
	}
}

func TestBBoltRemoveEventuallyEvicts(t *testing.T) {
	c := newTestCache(t)
	c.Store("a", []byte("v1"), time.Minute)
	c.Remove("a")

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		c.mu.Lock()
		_, ok := c.accessors["a"]
		c.mu.Unlock()
		if !ok {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("expected Remove to eventually tear down the entry")
}

func TestBBoltOverBudgetTriggersEviction(t *testing.T) {
	c := newTestCache(t)
	c.Store("a", []byte("v1"), time.Minute)
	c.Store("b", []byte("v2"), time.Minute)
	c.Store("c", []byte("v3"), time.Minute)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if !c.idx.OverBudget() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("expected the budget loop to reclaim down to the configured object limit")
}

func TestBBoltFlushPersistsIndexSnapshot(t *testing.T) {
	c := newTestCache(t)
	c.Store("a", []byte("v1"), time.Minute)
	snapshot := c.idx.ToBytes()
	c.flush("cache.index", snapshot)

	var got []byte
	err := c.dbh.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(c.bucket).Get([]byte("cache.index"))
		got = append([]byte(nil), v...)
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error reading back the snapshot: %v", err)
	}
	if len(got) == 0 {
		t.Fatalf("expected the flushed index snapshot to be stored under cache.index")
	}
}
