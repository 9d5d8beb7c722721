package book

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTemp(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sample.txt")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	return path
}

func TestOpen_UTF8(t *testing.T) {
	path := writeTemp(t, "hello, world")

	b, err := Open(path, "")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	if b.EncodingName != "utf-8" {
		t.Errorf("EncodingName = %q, want utf-8", b.EncodingName)
	}
	if b.CanonicalText != "hello, world" {
		t.Errorf("CanonicalText = %q", b.CanonicalText)
	}
	if b.ID == "" {
		t.Error("ID should not be empty")
	}
	if len(b.ContentHash) != 64 {
		t.Errorf("ContentHash length = %d, want 64 (sha256 hex)", len(b.ContentHash))
	}
	if b.FileSize != int64(len("hello, world")) {
		t.Errorf("FileSize = %d, want %d", b.FileSize, len("hello, world"))
	}
}

func TestOpen_ContentHashDeterministic(t *testing.T) {
	path1 := writeTemp(t, "same text")
	path2 := writeTemp(t, "same text")

	b1, err := Open(path1, "")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	b2, err := Open(path2, "")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	if b1.ContentHash != b2.ContentHash {
		t.Errorf("ContentHash mismatch for identical content: %q vs %q", b1.ContentHash, b2.ContentHash)
	}
	if b1.ID == b2.ID {
		t.Error("ID should differ between two opens even with identical content")
	}
}

func TestOpen_NonExistentFile(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing.txt"), "")
	if err == nil {
		t.Error("expected error for nonexistent file")
	}
}
