package fileutil

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"lukechampine.com/blake3"
)

func newHasher() *blake3.Hasher {
	return blake3.New(32, nil)
}

// CopyFile copies src to dst atomically with default permissions (0o644).
func CopyFile(src, dst string) error {
	_, err := CopyFileVerified(src, dst)
	return err
}

// CopyFileVerified streams src into a temporary file beside dst with BLAKE3 +
// size integrity verification, then renames it over dst. The temporary file is
// removed on any failure so dst is either the old file or a complete copy.
// The returned digest is the hex BLAKE3 hash of the copied content.
func CopyFileVerified(src, dst string) (string, error) {
	srcInfo, err := os.Stat(src)
	if err != nil {
		return "", fmt.Errorf("stat source: %w", err)
	}
	if srcInfo.IsDir() {
		return "", fmt.Errorf("copy source %s is a directory", src)
	}

	in, err := os.Open(src)
	if err != nil {
		return "", err
	}
	defer in.Close()

	tmp, err := os.CreateTemp(filepath.Dir(dst), ".atelier-copy-*.tmp")
	if err != nil {
		return "", err
	}
	tmpPath := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = tmp.Close()
			_ = os.Remove(tmpPath)
		}
	}()

	srcHasher := newHasher()
	dstHasher := newHasher()
	tee := io.TeeReader(in, srcHasher)
	multi := io.MultiWriter(tmp, dstHasher)

	written, err := io.Copy(multi, tee)
	if err != nil {
		return "", err
	}
	if err := tmp.Chmod(0o644); err != nil {
		return "", err
	}
	if err := tmp.Close(); err != nil {
		return "", err
	}

	if written != srcInfo.Size() {
		return "", fmt.Errorf("copy size mismatch: source %d bytes, copied %d bytes", srcInfo.Size(), written)
	}
	sum := srcHasher.Sum(nil)
	if !bytes.Equal(sum, dstHasher.Sum(nil)) {
		return "", errors.New("copy hash mismatch: file corrupted during copy")
	}

	if err := os.Rename(tmpPath, dst); err != nil {
		return "", err
	}
	committed = true
	return hex.EncodeToString(sum), nil
}

// WriteFileAtomic writes data to a temporary file in the target directory and
// renames it into place.
func WriteFileAtomic(path string, data []byte, mode os.FileMode) error {
	dir := filepath.Dir(path)
	tmp := filepath.Join(dir, fmt.Sprintf(".%s-%d.tmp", filepath.Base(path), time.Now().UnixNano()))
	if err := os.WriteFile(tmp, data, mode); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}

// HashFile returns the hex BLAKE3 digest of the file at path.
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := newHasher()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// SameContent reports whether two files hold identical bytes. Sizes are
// compared first so differing files are usually rejected without hashing.
func SameContent(a, b string) (bool, error) {
	infoA, err := os.Stat(a)
	if err != nil {
		return false, err
	}
	infoB, err := os.Stat(b)
	if err != nil {
		return false, err
	}
	if infoA.Size() != infoB.Size() {
		return false, nil
	}
	hashA, err := HashFile(a)
	if err != nil {
		return false, err
	}
	hashB, err := HashFile(b)
	if err != nil {
		return false, err
	}
	return hashA == hashB, nil
}

// Exists reports whether path names an existing regular file.
func Exists(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	return !info.IsDir(), nil
}
