package versions

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"atelier/internal/config"
	"atelier/internal/fileutil"
	"atelier/internal/logging"
	"atelier/internal/naming"
	"atelier/internal/ops"
)

// Entry is one snapshot in a versions folder.
type Entry struct {
	Path     string
	Identity naming.Identity
	ModTime  time.Time
}

// Version returns the snapshot's version number.
func (e Entry) Version() int { return e.Identity.Version }

// State returns the state code embedded in the snapshot's name.
func (e Entry) State() string { return e.Identity.State }

// Store manages the version history kept beside each working file.
//
// There is no cross-process lock on a lineage: two sessions saving the same
// working file at once may both read the same latest version and the last
// snapshot written wins.
type Store struct {
	codec          *naming.Codec
	versionsFolder string
	publishFolder  string
	previewFolder  string
	defaultState   string
	hashMirror     bool
	logger         *slog.Logger
}

// NewStore constructs a Store from the naming and versions configuration.
func NewStore(cfg *config.Config, logger *slog.Logger) *Store {
	s := &Store{
		codec:          naming.NewCodec(cfg.ReservedFolders(), cfg.Naming.RestoredMarker),
		versionsFolder: cfg.Naming.VersionsFolder,
		publishFolder:  cfg.Naming.PublishFolder,
		previewFolder:  cfg.Naming.PreviewFolder,
		defaultState:   cfg.Naming.DefaultState,
		hashMirror:     cfg.Versions.HashMirror,
	}
	s.SetLogger(logger)
	return s
}

// SetLogger swaps the logger used for version operations.
func (s *Store) SetLogger(logger *slog.Logger) {
	s.logger = logging.NewComponentLogger(logger, "versions")
}

// Codec exposes the path codec configured with this store's reserved folders.
func (s *Store) Codec() *naming.Codec {
	return s.codec
}

// DefaultState returns the state used for a lineage's first snapshot.
func (s *Store) DefaultState() string {
	return s.defaultState
}

// VersionFiles lists the snapshots of path's lineage, newest first.
func (s *Store) VersionFiles(path string) ([]Entry, error) {
	working, id, err := s.working(path)
	if err != nil {
		return nil, err
	}
	entries, err := s.scan(filepath.Join(filepath.Dir(working), s.versionsFolder), id)
	if err != nil {
		return nil, err
	}
	sort.Slice(entries, func(i, j int) bool { return newer(entries[i], entries[j]) })
	return entries, nil
}

// LatestVersion returns the highest snapshot of path's lineage. Ties on the
// version number are broken by the larger file name so the answer is
// deterministic. When excludeCurrent is set, snapshots that mirror the working
// file on disk are skipped, answering whether any version other than the one
// about to be written exists.
func (s *Store) LatestVersion(path string, excludeCurrent bool) (Entry, bool, error) {
	entries, err := s.VersionFiles(path)
	if err != nil {
		return Entry{}, false, err
	}
	if excludeCurrent {
		working, _, err := s.working(path)
		if err != nil {
			return Entry{}, false, err
		}
		entries, err = s.excludeMirror(working, entries)
		if err != nil {
			return Entry{}, false, err
		}
	}
	if len(entries) == 0 {
		return Entry{}, false, nil
	}
	return entries[0], true, nil
}

func (s *Store) excludeMirror(working string, entries []Entry) ([]Entry, error) {
	if len(entries) == 0 {
		return entries, nil
	}
	exists, err := fileutil.Exists(working)
	if err != nil {
		return nil, ops.Wrap(ops.ErrIO, "versions", "latest", working, err)
	}
	if !exists {
		return entries, nil
	}
	if !s.hashMirror {
		// Without content comparison the newest snapshot is assumed to mirror
		// the working file.
		return entries[1:], nil
	}
	kept := make([]Entry, 0, len(entries))
	for _, entry := range entries {
		same, err := fileutil.SameContent(working, entry.Path)
		if err != nil {
			return nil, ops.Wrap(ops.ErrIO, "versions", "latest", entry.Path, err)
		}
		if !same {
			kept = append(kept, entry)
		}
	}
	return kept, nil
}

// CopyToVersion snapshots the on-disk content of path into its lineage's
// versions folder and returns the snapshot path.
//
// With increment set, or when the lineage has no snapshots, a new entry is
// created at latest+1 (or 1). Otherwise the latest entry is overwritten in
// place and keeps its number, unless it was saved in a different format. An empty state keeps the previous snapshot's
// state, falling back to the default state for the first snapshot.
func (s *Store) CopyToVersion(ctx context.Context, path string, increment bool, state string) (string, error) {
	working, id, err := s.working(path)
	if err != nil {
		return "", err
	}
	if ok, err := fileutil.Exists(path); err != nil || !ok {
		if err == nil {
			err = fs.ErrNotExist
		}
		return "", ops.Wrap(ops.ErrIO, "versions", "copy", "read working file "+path, err)
	}

	latest, hasLatest, err := s.LatestVersion(working, false)
	if err != nil {
		return "", err
	}

	// A snapshot in another file format is never replaced; it gets a
	// successor instead.
	overwrite := hasLatest && !increment && latest.Identity.Extension == id.Extension
	version := 1
	previousState := s.defaultState
	if hasLatest {
		previousState = latest.State()
		version = latest.Version()
		if !overwrite {
			version++
		}
	}
	if state == "" {
		state = previousState
	}

	name, err := naming.ComposeFileName(id.WithVersion(version, state))
	if err != nil {
		return "", err
	}
	folder := filepath.Join(filepath.Dir(working), s.versionsFolder)
	if err := os.MkdirAll(folder, 0o755); err != nil {
		return "", ops.Wrap(ops.ErrIO, "versions", "copy", "create versions folder", err)
	}
	target := filepath.Join(folder, name)
	if _, err := fileutil.CopyFileVerified(path, target); err != nil {
		return "", ops.Wrap(ops.ErrIO, "versions", "copy", "write snapshot "+name, err)
	}

	if overwrite && latest.Path != target {
		if err := os.Remove(latest.Path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return "", ops.Wrap(ops.ErrIO, "versions", "copy", "replace snapshot "+filepath.Base(latest.Path), err)
		}
	}

	s.logger.DebugContext(ctx, "snapshot written",
		logging.String("snapshot", target),
		logging.Int("version", version),
		logging.String("state", state),
		logging.Bool("overwrite", overwrite),
	)
	return target, nil
}

// RestoreVersionFile copies a snapshot back beside its working file under a
// restored name, e.g. proj_mod_hero+restored-v003+.ma. The snapshot itself is
// kept.
func (s *Store) RestoreVersionFile(ctx context.Context, versionPath string) (string, error) {
	id, err := s.codec.DecomposeFilePath(versionPath)
	if err != nil {
		return "", err
	}
	if !id.Versioned() {
		return "", ops.Wrap(ops.ErrMalformedName, "versions", "restore", filepath.Base(versionPath)+" is not a snapshot", nil)
	}
	working, _, err := s.working(versionPath)
	if err != nil {
		return "", err
	}
	restored := s.codec.MarkRestored(id.Canonical(), id.Version)
	name, err := naming.ComposeFileName(restored)
	if err != nil {
		return "", err
	}
	target := filepath.Join(filepath.Dir(working), name)
	if _, err := fileutil.CopyFileVerified(versionPath, target); err != nil {
		return "", ops.Wrap(ops.ErrIO, "versions", "restore", "copy "+filepath.Base(versionPath), err)
	}
	s.logger.InfoContext(ctx, "version restored",
		logging.String("snapshot", versionPath),
		logging.String("restored", target),
	)
	return target, nil
}

// CopyToPublish copies the working file of path into the publish folder under
// its canonical unversioned name.
func (s *Store) CopyToPublish(ctx context.Context, path string) (string, error) {
	working, _, err := s.working(path)
	if err != nil {
		return "", err
	}
	folder := filepath.Join(filepath.Dir(working), s.publishFolder)
	if err := os.MkdirAll(folder, 0o755); err != nil {
		return "", ops.Wrap(ops.ErrIO, "versions", "publish", "create publish folder", err)
	}
	target := filepath.Join(folder, filepath.Base(working))
	if _, err := fileutil.CopyFileVerified(working, target); err != nil {
		return "", ops.Wrap(ops.ErrIO, "versions", "publish", "copy "+filepath.Base(working), err)
	}
	s.logger.DebugContext(ctx, "working file published", logging.String("published", target))
	return target, nil
}

func (s *Store) scan(folder string, id naming.Identity) ([]Entry, error) {
	dirEntries, err := os.ReadDir(folder)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, ops.Wrap(ops.ErrIO, "versions", "scan", folder, err)
	}
	var entries []Entry
	for _, de := range dirEntries {
		if de.IsDir() {
			continue
		}
		candidate, err := naming.DecomposeFileName(de.Name())
		if err != nil || !candidate.Versioned() || !candidate.SameLineage(id) {
			continue
		}
		info, err := de.Info()
		if err != nil {
			continue
		}
		candidate.ItemType = id.ItemType
		candidate.ItemShortName = id.ItemShortName
		entries = append(entries, Entry{
			Path:     filepath.Join(folder, de.Name()),
			Identity: candidate,
			ModTime:  info.ModTime(),
		})
	}
	return entries, nil
}

func newer(a, b Entry) bool {
	if a.Version() != b.Version() {
		return a.Version() > b.Version()
	}
	return filepath.Base(a.Path) > filepath.Base(b.Path)
}
