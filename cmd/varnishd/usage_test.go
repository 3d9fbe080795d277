package main

import (
	"bytes"
	"io"
	"os"
	"strings"
	"testing"
)

func captureStdout(t *testing.T, fn func()) string {
	t.Helper()
	old := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("unexpected error creating pipe: %v", err)
	}
	os.Stdout = w
	fn()
	w.Close()
	os.Stdout = old

	var buf bytes.Buffer
	io.Copy(&buf, r)
	return buf.String()
}

func TestPrintVersion(t *testing.T) {
	out := captureStdout(t, printVersion)
	if !strings.Contains(out, applicationVersion) {
		t.Fatalf("expected version output to contain %q, got %q", applicationVersion, out)
	}
}

func TestPrintUsage(t *testing.T) {
	out := captureStdout(t, printUsage)
	if !strings.Contains(out, "varnishd Usage:") {
		t.Fatalf("expected usage output to contain the usage header, got %q", out)
	}
	if !strings.Contains(out, "-metrics-port") {
		t.Fatalf("expected usage output to mention -metrics-port, got %q", out)
	}
}
