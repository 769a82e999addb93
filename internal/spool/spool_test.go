package spool

import (
	"os"
	"strings"
	"testing"
	"time"
)

func TestWrite_AppendsNewlineTerminatedRecords(t *testing.T) {
	dir := t.TempDir()
	w, err := New(dir, "records")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer w.Close()

	if err := w.Write([]byte("first")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := w.Write([]byte("second")); err != nil {
		t.Fatalf("Write: %v", err)
	}

	data, err := os.ReadFile(w.CurrentFile())
	if err != nil {
		t.Fatalf("read spool file: %v", err)
	}
	if string(data) != "first\nsecond\n" {
		t.Errorf("unexpected file contents: %q", data)
	}
}

func TestCurrentFile_NamedAfterUTCDay(t *testing.T) {
	dir := t.TempDir()
	w, err := New(dir, "records")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer w.Close()

	if w.CurrentFile() != "" {
		t.Errorf("expected empty path before first write, got %q", w.CurrentFile())
	}

	if err := w.Write([]byte("x")); err != nil {
		t.Fatalf("Write: %v", err)
	}

	day := time.Now().UTC().Format("2006-01-02")
	want := "records-" + day + ".ndjson"
	if !strings.HasSuffix(w.CurrentFile(), want) {
		t.Errorf("expected file %q, got %q", want, w.CurrentFile())
	}
}

func TestNew_CreatesDirectory(t *testing.T) {
	dir := t.TempDir() + "/nested/spool"
	if _, err := New(dir, "records"); err != nil {
		t.Fatalf("New should create the directory: %v", err)
	}
	if _, err := os.Stat(dir); err != nil {
		t.Errorf("directory not created: %v", err)
	}
}

func TestClose_WithoutWrites(t *testing.T) {
	w, err := New(t.TempDir(), "records")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Errorf("Close before any write should succeed: %v", err)
	}
}
