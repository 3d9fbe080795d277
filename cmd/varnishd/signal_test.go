package main

import (
	"os"
	"path/filepath"
	"syscall"
	"testing"
	"time"

	"github.com/ewqasd200g/varnish-cache/internal/util/log"
)

func reloadableTestArgs(t *testing.T) []string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "varnishd.toml")
	body := "[metrics]\nlisten_port = 0\n\n[caches.default]\ncache_type = \"memory\"\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("unable to write test config: %v", err)
	}
	return []string{"-config", path}
}

func TestAwaitShutdownReturnsOnSigterm(t *testing.T) {
	logger := log.ConsoleLogger("error")
	done := make(chan struct{})
	go func() {
		awaitShutdown(logger, nil)
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	if err := syscall.Kill(os.Getpid(), syscall.SIGTERM); err != nil {
		t.Fatalf("unexpected error sending SIGTERM: %v", err)
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("expected awaitShutdown to return after SIGTERM")
	}
}

func TestAwaitShutdownReloadsOnSighupInsteadOfReturning(t *testing.T) {
	logger := log.ConsoleLogger("error")
	args := reloadableTestArgs(t)
	done := make(chan struct{})
	go func() {
		awaitShutdown(logger, args)
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	if err := syscall.Kill(os.Getpid(), syscall.SIGHUP); err != nil {
		t.Fatalf("unexpected error sending SIGHUP: %v", err)
	}
	time.Sleep(50 * time.Millisecond)

	select {
	case <-done:
		t.Fatalf("expected SIGHUP to trigger a reload rather than a shutdown")
	default:
	}

	if err := syscall.Kill(os.Getpid(), syscall.SIGTERM); err != nil {
		t.Fatalf("unexpected error sending SIGTERM: %v", err)
	}
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("expected awaitShutdown to return after SIGTERM")
	}
}
