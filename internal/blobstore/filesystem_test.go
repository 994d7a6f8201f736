package blobstore

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestFileSystemStore(t *testing.T) {
	s, err := NewFileSystemStore(filepath.Join(t.TempDir(), "images"))
	if err != nil {
		t.Fatalf("NewFileSystemStore() error = %v", err)
	}
	exerciseStore(t, s)
}

func TestFileSystemStore_NoTempFilesLeft(t *testing.T) {
	root := t.TempDir()
	s, err := NewFileSystemStore(root)
	if err != nil {
		t.Fatalf("NewFileSystemStore() error = %v", err)
	}

	if err := s.Put("image-ok", strings.NewReader("abc"), 3); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if err := s.Put("image-short", strings.NewReader("abc"), 99); err == nil {
		t.Fatal("Put() with wrong size should fail")
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Name() != "image-ok" {
		var names []string
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Errorf("directory contents = %v, want [image-ok]", names)
	}
}

func TestFileSystemStore_ValidateSetup_RootRemoved(t *testing.T) {
	root := filepath.Join(t.TempDir(), "gone")
	s, err := NewFileSystemStore(root)
	if err != nil {
		t.Fatalf("NewFileSystemStore() error = %v", err)
	}
	if err := os.RemoveAll(root); err != nil {
		t.Fatal(err)
	}
	if err := s.ValidateSetup(); err == nil {
		t.Error("ValidateSetup() should fail when root is missing")
	}
}
