package fileutil

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestCopyFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.txt")
	dst := filepath.Join(dir, "dst.txt")

	content := []byte("hello world")
	if err := os.WriteFile(src, content, 0o644); err != nil {
		t.Fatal(err)
	}

	if err := CopyFile(src, dst); err != nil {
		t.Fatal(err)
	}

	got, err := os.ReadFile(dst)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != string(content) {
		t.Fatalf("content mismatch: got %q, want %q", got, content)
	}
}

func TestCopyFileVerifiedOverwritesAndLeavesNoTemp(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.bin")
	dst := filepath.Join(dir, "dst.bin")

	if err := os.WriteFile(src, []byte("new"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(dst, []byte("old content"), 0o644); err != nil {
		t.Fatal(err)
	}

	digest, err := CopyFileVerified(src, dst)
	if err != nil {
		t.Fatal(err)
	}
	want, err := HashFile(src)
	if err != nil {
		t.Fatal(err)
	}
	if digest != want {
		t.Fatalf("digest mismatch: %s vs %s", digest, want)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), ".tmp") {
			t.Fatalf("temporary file left behind: %s", entry.Name())
		}
	}
}

func TestCopyFileVerifiedMissingSource(t *testing.T) {
	dir := t.TempDir()
	if _, err := CopyFileVerified(filepath.Join(dir, "missing"), filepath.Join(dir, "dst")); err == nil {
		t.Fatal("expected error for missing source")
	}
}

func TestSameContent(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a")
	b := filepath.Join(dir, "b")
	c := filepath.Join(dir, "c")
	for path, data := range map[string]string{a: "same", b: "same", c: "diff"} {
		if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	if same, err := SameContent(a, b); err != nil || !same {
		t.Fatalf("expected identical files, got %v %v", same, err)
	}
	if same, err := SameContent(a, c); err != nil || same {
		t.Fatalf("expected different files, got %v %v", same, err)
	}
}

func TestWriteFileAtomic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "meta.yaml")
	if err := WriteFileAtomic(path, []byte("a: 1\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	ok, err := Exists(path)
	if err != nil || !ok {
		t.Fatalf("expected file to exist, got %v %v", ok, err)
	}
	missing, err := Exists(filepath.Join(filepath.Dir(path), "nope"))
	if err != nil || missing {
		t.Fatalf("expected missing file, got %v %v", missing, err)
	}
}
