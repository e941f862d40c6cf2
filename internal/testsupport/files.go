package testsupport

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// WriteFile creates path (and its parents) with the given content.
func WriteFile(t testing.TB, path, content string) string {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

// ReadFile returns the content of path.
func ReadFile(t testing.TB, path string) string {
	t.Helper()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return string(data)
}

// Age sets the modification time of path to now minus age.
func Age(t testing.TB, path string, age time.Duration) {
	t.Helper()

	when := time.Now().Add(-age)
	if err := os.Chtimes(path, when, when); err != nil {
		t.Fatalf("chtimes %s: %v", path, err)
	}
}

// ListDir returns the sorted file names in dir, or nil when it is missing.
func ListDir(t testing.TB, dir string) []string {
	t.Helper()

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		t.Fatalf("read dir %s: %v", dir, err)
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			names = append(names, entry.Name())
		}
	}
	return names
}

// StepDir builds the conventional step folder of an asset under root and
// returns its path.
func StepDir(t testing.TB, root, project, asset, step string) string {
	t.Helper()

	dir := filepath.Join(root, project, "04-ASSETS", project+"_A_"+asset, project+"_A_"+asset+"_"+step)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", dir, err)
	}
	return dir
}
