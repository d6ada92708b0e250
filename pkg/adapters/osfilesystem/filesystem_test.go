package osfilesystem

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

func TestFileSystem_WriteFile_CreatesParents(t *testing.T) {
	fs := New()
	path := filepath.Join(t.TempDir(), "out", "nested", "clip.m1v")

	if err := fs.WriteFile(path, []byte{0, 0, 1, 0xB3}); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	data, err := fs.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if len(data) != 4 || data[3] != 0xB3 {
		t.Errorf("ReadFile() = %x", data)
	}

	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("directory holds %d entries, want only the output", len(entries))
	}
}

func TestFileSystem_WriteFile_Replaces(t *testing.T) {
	fs := New()
	path := filepath.Join(t.TempDir(), "clip.m1v")
	if err := fs.WriteFile(path, []byte("first")); err != nil {
		t.Fatal(err)
	}
	if err := fs.WriteFile(path, []byte("second")); err != nil {
		t.Fatal(err)
	}
	data, _ := fs.ReadFile(path)
	if string(data) != "second" {
		t.Errorf("ReadFile() = %q, want second", data)
	}
}

func TestFileSystem_ExistsAndRemove(t *testing.T) {
	fs := New()
	dir := t.TempDir()
	path := filepath.Join(dir, "a.txt")

	if ok, err := fs.Exists(path); err != nil || ok {
		t.Fatalf("Exists() before write = %v, %v", ok, err)
	}
	if err := fs.WriteFile(path, []byte("x")); err != nil {
		t.Fatal(err)
	}
	if ok, _ := fs.Exists(path); !ok {
		t.Error("Exists() = false after write")
	}
	if ok, _ := fs.Exists(dir); !ok {
		t.Error("Exists() = false for a directory")
	}
	if err := fs.Remove(path); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	if ok, _ := fs.Exists(path); ok {
		t.Error("Exists() = true after Remove")
	}
}

func TestFileSystem_Glob_SortedFilesOnly(t *testing.T) {
	fs := New()
	dir := t.TempDir()
	for _, i := range []int{10, 2, 1} {
		if err := fs.WriteFile(filepath.Join(dir, fmt.Sprintf("frame-%03d.png", i)), []byte("x")); err != nil {
			t.Fatal(err)
		}
	}
	if err := fs.MkdirAll(filepath.Join(dir, "frame-999.png")); err != nil {
		t.Fatal(err)
	}

	got, err := fs.Glob(filepath.Join(dir, "frame-*.png"))
	if err != nil {
		t.Fatalf("Glob() error = %v", err)
	}
	want := []string{"frame-001.png", "frame-002.png", "frame-010.png"}
	if len(got) != len(want) {
		t.Fatalf("Glob() = %v", got)
	}
	for i := range want {
		if filepath.Base(got[i]) != want[i] {
			t.Errorf("Glob()[%d] = %s, want %s", i, got[i], want[i])
		}
	}

	if _, err := fs.Glob("["); err == nil {
		t.Error("expected error for malformed pattern")
	}
}
