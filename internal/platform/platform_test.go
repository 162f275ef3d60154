package platform

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFreeDiskSpace(t *testing.T) {
	free, err := FreeDiskSpace(t.TempDir())
	if err != nil {
		t.Fatalf("FreeDiskSpace failed: %v", err)
	}
	if free == 0 {
		t.Error("FreeDiskSpace() = 0, want a positive value for a writable temp dir")
	}
}

func TestFreeDiskSpace_NotADirectory(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "file")
	if err := os.WriteFile(file, []byte("x"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	if _, err := FreeDiskSpace(file); err == nil {
		t.Error("FreeDiskSpace on a file should fail")
	}
	if _, err := FreeDiskSpace(filepath.Join(dir, "missing")); err == nil {
		t.Error("FreeDiskSpace on a missing path should fail")
	}
}
