package filesystem

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ewqasd200g/varnish-cache/internal/config"
	"github.com/ewqasd200g/varnish-cache/internal/util/log"
)

func newTestCache(t *testing.T, codec string) *Cache {
	t.Helper()
	dir := filepath.Join(os.TempDir(), "varnishd-fs-test")
	cfg := &config.CachingConfig{
		Name:      "test",
		CacheType: "filesystem",
		Index: config.CacheIndexConfig{
			HousekeepInterval: time.Millisecond,
		},
		Timer: config.TimerConfig{DefaultTTL: time.Hour},
		Filesystem: config.FilesystemCacheConfig{
			CachePath:        dir,
			Compression:      codec != "",
			CompressionCodec: codec,
		},
	}
	c := &Cache{Name: "test", Config: cfg, Logger: log.ConsoleLogger("error")}
	if err := c.Connect(); err != nil {
		t.Fatalf("unexpected Connect error: %v", err)
	}
	t.Cleanup(func() {
		c.Close()
		os.RemoveAll(dir)
	})
	return c
}

func TestStoreAndRetrieveUncompressed(t *testing.T) {
	c := newTestCache(t, "")
	if err := c.Store("a", []byte("hello world"), time.Minute); err != nil {
		t.Fatalf("unexpected store error: %v", err)
	}
	got, err := c.Retrieve("a")
	if err != nil {
		t.Fatalf("unexpected retrieve error: %v", err)
	}
	if string(got) != "hello world" {
		t.Fatalf("expected %q, got %q", "hello world", got)
	}
}

func TestStoreAndRetrieveSnappy(t *testing.T) {
	c := newTestCache(t, "snappy")
	if err := c.Store("a", []byte("hello world"), time.Minute); err != nil {
		t.Fatalf("unexpected store error: %v", err)
	}
	got, err := c.Retrieve("a")
	if err != nil {
		t.Fatalf("unexpected retrieve error: %v", err)
	}
	if string(got) != "hello world" {
		t.Fatalf("expected %q, got %q", "hello world", got)
	}
}

func TestStoreAndRetrieveBrotli(t *testing.T) {
	c := newTestCache(t, "brotli")
	if err := c.Store("a", []byte("hello world"), time.Minute); err != nil {
		t.Fatalf("unexpected store error: %v", err)
	}
	got, err := c.Retrieve("a")
	if err != nil {
		t.Fatalf("unexpected retrieve error: %v", err)
	}
	if string(got) != "hello world" {
		t.Fatalf("expected %q, got %q", "hello world", got)
	}
}

func TestRetrieveMiss(t *testing.T) {
	c := newTestCache(t, "")
	if _, err := c.Retrieve("missing"); err == nil {
		t.Fatalf("expected a cache-miss error")
	}
}

func TestRemoveDeletesFile(t *testing.T) {
	c := newTestCache(t, "")
	c.Store("a", []byte("hello"), time.Minute)
	c.Remove("a")

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if _, err := os.Stat(c.fileName("a")); os.IsNotExist(err) {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("expected Remove to eventually delete the backing file")
}
