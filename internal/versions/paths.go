package versions

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"

	"atelier/internal/naming"
	"atelier/internal/ops"
)

// working resolves the canonical working path of any file in a lineage and
// its decoded identity (unversioned, without restored marker).
func (s *Store) working(path string) (string, naming.Identity, error) {
	id, err := s.codec.DecomposeFilePath(path)
	if err != nil {
		return "", naming.Identity{}, err
	}
	id = id.Canonical()
	id.Resource = s.codec.StripRestored(id.Resource)
	name, err := naming.ComposeFileName(id)
	if err != nil {
		return "", naming.Identity{}, err
	}
	return filepath.Join(s.outsideReserved(filepath.Dir(filepath.Clean(path))), name), id, nil
}

// outsideReserved returns the parent of the outermost reserved folder in dir,
// or dir itself when it is not inside one.
func (s *Store) outsideReserved(dir string) string {
	out := dir
	for current := dir; ; {
		if s.codec.IsReserved(filepath.Base(current)) {
			out = filepath.Dir(current)
		}
		parent := filepath.Dir(current)
		if parent == current {
			return out
		}
		current = parent
	}
}

// SaveFilePath returns the canonical working path for path: version, state,
// and restored marker are dropped and the file is moved out of any reserved
// folder.
func (s *Store) SaveFilePath(path string) (string, error) {
	working, _, err := s.working(path)
	return working, err
}

// VersionsFolder returns the versions folder of path's lineage.
func (s *Store) VersionsFolder(path string) (string, error) {
	return s.siblingFolder(path, s.versionsFolder)
}

// PublishFolder returns the publish folder of path's lineage.
func (s *Store) PublishFolder(path string) (string, error) {
	return s.siblingFolder(path, s.publishFolder)
}

// PreviewFolder returns the preview folder of path's lineage.
func (s *Store) PreviewFolder(path string) (string, error) {
	return s.siblingFolder(path, s.previewFolder)
}

func (s *Store) siblingFolder(path, name string) (string, error) {
	working, _, err := s.working(path)
	if err != nil {
		return "", err
	}
	return filepath.Join(filepath.Dir(working), name), nil
}

// IsRestoredFilePath reports whether path was produced by RestoreVersionFile.
func (s *Store) IsRestoredFilePath(path string) bool {
	id, err := naming.DecomposeFileName(filepath.Base(path))
	if err != nil {
		return false
	}
	_, ok := s.codec.RestoredVersion(id.Resource)
	return ok
}

// InReservedFolder reports whether any folder above path is reserved.
func (s *Store) InReservedFolder(path string) bool {
	dir := filepath.Dir(filepath.Clean(path))
	return s.outsideReserved(dir) != dir
}

// InVersionsFolder reports whether path sits directly in a versions folder.
func (s *Store) InVersionsFolder(path string) bool {
	return filepath.Base(filepath.Dir(filepath.Clean(path))) == s.versionsFolder
}

// FindWorkingFiles lists canonical working files under root matching the
// doublestar pattern (for example "**/*.ma"). Files inside reserved folders,
// snapshots, and names outside the grammar are skipped.
func (s *Store) FindWorkingFiles(root, pattern string) ([]string, error) {
	if !doublestar.ValidatePattern(pattern) {
		return nil, ops.Wrap(ops.ErrValidation, "versions", "find", "invalid pattern "+pattern, nil)
	}
	matches, err := doublestar.Glob(os.DirFS(root), pattern)
	if err != nil {
		return nil, ops.Wrap(ops.ErrIO, "versions", "find", root, err)
	}
	var out []string
	for _, match := range matches {
		full := filepath.Join(root, filepath.FromSlash(match))
		if s.InReservedFolder(full) {
			continue
		}
		info, err := os.Stat(full)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, ops.Wrap(ops.ErrIO, "versions", "find", full, err)
		}
		if info.IsDir() {
			continue
		}
		id, err := naming.DecomposeFileName(info.Name())
		if err != nil || id.Versioned() {
			continue
		}
		out = append(out, full)
	}
	sort.Strings(out)
	return out, nil
}
