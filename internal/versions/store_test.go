package versions_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"atelier/internal/logging"
	"atelier/internal/ops"
	"atelier/internal/testsupport"
	"atelier/internal/versions"
)

func newStore(t *testing.T) (*versions.Store, string) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	dir := testsupport.StepDir(t, cfg.Paths.ProjectsRoot, "PROJ", "tree", "MOD")
	return versions.NewStore(cfg, logging.NewNop()), dir
}

func TestCopyToVersionIncrementsFromOne(t *testing.T) {
	store, dir := newStore(t)
	ctx := context.Background()
	working := testsupport.WriteFile(t, filepath.Join(dir, "PROJ_MOD_tree.ma"), "v1")

	first, err := store.CopyToVersion(ctx, working, true, "")
	if err != nil {
		t.Fatalf("first copy: %v", err)
	}
	testsupport.WriteFile(t, working, "v2")
	second, err := store.CopyToVersion(ctx, working, true, "")
	if err != nil {
		t.Fatalf("second copy: %v", err)
	}

	if filepath.Base(first) != "PROJ_MOD_tree_WIP_v001.ma" || filepath.Base(second) != "PROJ_MOD_tree_WIP_v002.ma" {
		t.Fatalf("unexpected snapshots %s, %s", first, second)
	}
	names := testsupport.ListDir(t, filepath.Join(dir, "_versions"))
	if len(names) != 2 {
		t.Fatalf("expected two snapshots, got %v", names)
	}
	if got := testsupport.ReadFile(t, first); got != "v1" {
		t.Fatalf("first snapshot content changed: %q", got)
	}
}

func TestCopyToVersionMonotonic(t *testing.T) {
	store, dir := newStore(t)
	ctx := context.Background()
	working := testsupport.WriteFile(t, filepath.Join(dir, "PROJ_MOD.ma"), "x")

	last := 0
	for i := 0; i < 12; i++ {
		path, err := store.CopyToVersion(ctx, working, true, "")
		if err != nil {
			t.Fatalf("copy %d: %v", i, err)
		}
		entry, ok, err := store.LatestVersion(working, false)
		if err != nil || !ok {
			t.Fatalf("latest after copy %d: %v %v", i, ok, err)
		}
		if entry.Path != path || entry.Version() != last+1 {
			t.Fatalf("expected version %d at %s, got %+v", last+1, path, entry)
		}
		last = entry.Version()
	}
}

func TestCopyToVersionOverwritesInPlace(t *testing.T) {
	store, dir := newStore(t)
	ctx := context.Background()
	working := testsupport.WriteFile(t, filepath.Join(dir, "PROJ_MOD.ma"), "one")

	if _, err := store.CopyToVersion(ctx, working, false, ""); err != nil {
		t.Fatalf("initial copy: %v", err)
	}
	if _, err := store.CopyToVersion(ctx, working, true, ""); err != nil {
		t.Fatalf("increment: %v", err)
	}
	testsupport.WriteFile(t, working, "two")
	path, err := store.CopyToVersion(ctx, working, false, "")
	if err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	if filepath.Base(path) != "PROJ_MOD_WIP_v002.ma" {
		t.Fatalf("expected overwrite of v002, got %s", path)
	}
	if got := testsupport.ReadFile(t, path); got != "two" {
		t.Fatalf("expected new content, got %q", got)
	}
	if names := testsupport.ListDir(t, filepath.Join(dir, "_versions")); len(names) != 2 {
		t.Fatalf("expected two snapshots, got %v", names)
	}
}

func TestCopyToVersionKeepsSnapshotOfOtherFormat(t *testing.T) {
	store, dir := newStore(t)
	ctx := context.Background()
	binary := testsupport.WriteFile(t, filepath.Join(dir, "PROJ_MOD_tree.mb"), "binary")
	ascii := testsupport.WriteFile(t, filepath.Join(dir, "PROJ_MOD_tree.ma"), "ascii")

	first, err := store.CopyToVersion(ctx, binary, true, "")
	if err != nil {
		t.Fatalf("snapshot mb: %v", err)
	}
	second, err := store.CopyToVersion(ctx, ascii, false, "")
	if err != nil {
		t.Fatalf("snapshot ma: %v", err)
	}
	if filepath.Base(second) != "PROJ_MOD_tree_WIP_v002.ma" {
		t.Fatalf("expected a new version for the other format, got %s", second)
	}
	if got := testsupport.ReadFile(t, first); got != "binary" {
		t.Fatalf("expected mb snapshot kept, got %q", got)
	}
	if names := testsupport.ListDir(t, filepath.Join(dir, "_versions")); len(names) != 2 {
		t.Fatalf("expected both snapshots, got %v", names)
	}
}

func TestCopyToVersionStateHandling(t *testing.T) {
	store, dir := newStore(t)
	ctx := context.Background()
	working := testsupport.WriteFile(t, filepath.Join(dir, "PROJ_MOD.ma"), "x")

	first, err := store.CopyToVersion(ctx, working, true, "CHK")
	if err != nil {
		t.Fatalf("copy: %v", err)
	}
	if filepath.Base(first) != "PROJ_MOD_CHK_v001.ma" {
		t.Fatalf("unexpected snapshot %s", first)
	}
	second, err := store.CopyToVersion(ctx, working, true, "")
	if err != nil {
		t.Fatalf("copy: %v", err)
	}
	if filepath.Base(second) != "PROJ_MOD_CHK_v002.ma" {
		t.Fatalf("expected state preserved, got %s", second)
	}
	renamed, err := store.CopyToVersion(ctx, working, false, "OK")
	if err != nil {
		t.Fatalf("copy: %v", err)
	}
	if filepath.Base(renamed) != "PROJ_MOD_OK_v002.ma" {
		t.Fatalf("expected state change in place, got %s", renamed)
	}
	if _, err := os.Stat(second); !os.IsNotExist(err) {
		t.Fatalf("expected old state entry removed, got %v", err)
	}
}

func TestCopyToVersionFailsWhenFolderUnwritable(t *testing.T) {
	store, dir := newStore(t)
	working := testsupport.WriteFile(t, filepath.Join(dir, "PROJ_MOD.ma"), "x")
	// A regular file where the versions folder should be.
	testsupport.WriteFile(t, filepath.Join(dir, "_versions"), "blocker")

	_, err := store.CopyToVersion(context.Background(), working, true, "")
	if !errors.Is(err, ops.ErrIO) {
		t.Fatalf("expected io failure, got %v", err)
	}
}

func TestCopyToVersionMissingWorkingFile(t *testing.T) {
	store, dir := newStore(t)
	_, err := store.CopyToVersion(context.Background(), filepath.Join(dir, "PROJ_MOD.ma"), true, "")
	if !errors.Is(err, ops.ErrIO) {
		t.Fatalf("expected io failure, got %v", err)
	}
}

func TestCopyToVersionMalformedName(t *testing.T) {
	store, dir := newStore(t)
	working := testsupport.WriteFile(t, filepath.Join(dir, "scene.ma"), "x")
	_, err := store.CopyToVersion(context.Background(), working, true, "")
	if !errors.Is(err, ops.ErrMalformedName) {
		t.Fatalf("expected malformed name, got %v", err)
	}
}

func TestLatestVersionPicksNumericMaximum(t *testing.T) {
	store, dir := newStore(t)
	versionsDir := filepath.Join(dir, "_versions")
	for _, name := range []string{
		"PROJ_MOD_WIP_v001.ma",
		"PROJ_MOD_WIP_v002.ma",
		"PROJ_MOD_WIP_v010.ma",
		"PROJ_MOD_WIP_v100.ma",
		"PROJ_MOD_WIP_v999.ma",
		"PROJ_MOD_WIP_v1000.ma",
		"PROJ_MOD_other_WIP_v5000.ma",
		"PROJ_RIG_WIP_v2000.ma",
	} {
		testsupport.WriteFile(t, filepath.Join(versionsDir, name), name)
	}
	working := filepath.Join(dir, "PROJ_MOD.ma")

	entry, ok, err := store.LatestVersion(working, false)
	if err != nil || !ok {
		t.Fatalf("latest: %v %v", ok, err)
	}
	if entry.Version() != 1000 {
		t.Fatalf("expected numeric maximum 1000, got %d (%s)", entry.Version(), entry.Path)
	}

	entries, err := store.VersionFiles(working)
	if err != nil {
		t.Fatalf("version files: %v", err)
	}
	if len(entries) != 6 {
		t.Fatalf("expected six entries of the lineage, got %d", len(entries))
	}
	if entries[len(entries)-1].Version() != 1 {
		t.Fatalf("expected oldest last, got %+v", entries[len(entries)-1])
	}
}

func TestLatestVersionTieBreaksByName(t *testing.T) {
	store, dir := newStore(t)
	versionsDir := filepath.Join(dir, "_versions")
	testsupport.WriteFile(t, filepath.Join(versionsDir, "PROJ_MOD_OK_v003.ma"), "a")
	testsupport.WriteFile(t, filepath.Join(versionsDir, "PROJ_MOD_WIP_v003.ma"), "b")

	for i := 0; i < 3; i++ {
		entry, ok, err := store.LatestVersion(filepath.Join(dir, "PROJ_MOD.ma"), false)
		if err != nil || !ok {
			t.Fatalf("latest: %v %v", ok, err)
		}
		if entry.State() != "WIP" {
			t.Fatalf("expected lexical tie break to pick WIP, got %s", entry.Path)
		}
	}
}

func TestLatestVersionExcludeCurrent(t *testing.T) {
	store, dir := newStore(t)
	ctx := context.Background()
	working := testsupport.WriteFile(t, filepath.Join(dir, "PROJ_MOD.ma"), "first")

	if _, err := store.CopyToVersion(ctx, working, true, ""); err != nil {
		t.Fatalf("copy: %v", err)
	}
	if _, ok, err := store.LatestVersion(working, true); err != nil || ok {
		t.Fatalf("expected mirror to be excluded, got %v %v", ok, err)
	}

	testsupport.WriteFile(t, working, "second")
	entry, ok, err := store.LatestVersion(working, true)
	if err != nil || !ok {
		t.Fatalf("latest: %v %v", ok, err)
	}
	if entry.Version() != 1 {
		t.Fatalf("expected v001 once the working file diverged, got %d", entry.Version())
	}
}

func TestLatestVersionNone(t *testing.T) {
	store, dir := newStore(t)
	if _, ok, err := store.LatestVersion(filepath.Join(dir, "PROJ_MOD.ma"), false); err != nil || ok {
		t.Fatalf("expected no versions, got %v %v", ok, err)
	}
}

func TestRestoreVersionFile(t *testing.T) {
	store, dir := newStore(t)
	ctx := context.Background()
	working := testsupport.WriteFile(t, filepath.Join(dir, "PROJ_MOD_hero.ma"), "old")
	snapshot, err := store.CopyToVersion(ctx, working, true, "")
	if err != nil {
		t.Fatalf("copy: %v", err)
	}
	testsupport.WriteFile(t, working, "new")

	restored, err := store.RestoreVersionFile(ctx, snapshot)
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	if restored != filepath.Join(dir, "PROJ_MOD_hero+restored-v001+.ma") {
		t.Fatalf("unexpected restored path %s", restored)
	}
	if got := testsupport.ReadFile(t, restored); got != "old" {
		t.Fatalf("unexpected restored content %q", got)
	}
	if _, err := os.Stat(snapshot); err != nil {
		t.Fatalf("expected snapshot kept: %v", err)
	}
	if !store.IsRestoredFilePath(restored) {
		t.Fatal("expected restored path to be detected")
	}
	save, err := store.SaveFilePath(restored)
	if err != nil || save != working {
		t.Fatalf("expected restored file to save to %s, got %s %v", working, save, err)
	}
}

func TestPathPredicates(t *testing.T) {
	store, dir := newStore(t)
	inVersions := filepath.Join(dir, "_versions", "PROJ_MOD_WIP_v003.ma")
	inPreview := filepath.Join(dir, "_preview", "nested", "PROJ_MOD.mp4")
	plain := filepath.Join(dir, "PROJ_MOD.ma")

	if store.IsRestoredFilePath(inVersions) {
		t.Fatal("snapshot is not a restored file")
	}
	if !store.InVersionsFolder(inVersions) || !store.InReservedFolder(inVersions) {
		t.Fatal("expected snapshot to be in versions and reserved folders")
	}
	if store.InVersionsFolder(inPreview) || !store.InReservedFolder(inPreview) {
		t.Fatal("expected nested preview path to be reserved but not versions")
	}
	if store.InReservedFolder(plain) || store.InVersionsFolder(plain) {
		t.Fatal("expected working path to be outside reserved folders")
	}

	save, err := store.SaveFilePath(inVersions)
	if err != nil || save != plain {
		t.Fatalf("expected %s, got %s %v", plain, save, err)
	}
	save, err = store.SaveFilePath(inPreview)
	if err != nil || save != plain[:len(plain)-2]+"mp4" {
		t.Fatalf("unexpected save path from preview: %s %v", save, err)
	}
	publish, err := store.PublishFolder(inVersions)
	if err != nil || publish != filepath.Join(dir, "_published") {
		t.Fatalf("unexpected publish folder %s %v", publish, err)
	}
}

func TestCopyToPublish(t *testing.T) {
	store, dir := newStore(t)
	working := testsupport.WriteFile(t, filepath.Join(dir, "PROJ_MOD_hero.ma"), "content")
	published, err := store.CopyToPublish(context.Background(), working)
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if published != filepath.Join(dir, "_published", "PROJ_MOD_hero.ma") {
		t.Fatalf("unexpected publish path %s", published)
	}
	if testsupport.ReadFile(t, published) != "content" {
		t.Fatal("unexpected published content")
	}
}

func TestFindWorkingFiles(t *testing.T) {
	store, dir := newStore(t)
	root := filepath.Dir(filepath.Dir(filepath.Dir(dir)))
	testsupport.WriteFile(t, filepath.Join(dir, "PROJ_MOD.ma"), "a")
	testsupport.WriteFile(t, filepath.Join(dir, "PROJ_MOD_body.ma"), "a")
	testsupport.WriteFile(t, filepath.Join(dir, "_versions", "PROJ_MOD_WIP_v001.ma"), "a")
	testsupport.WriteFile(t, filepath.Join(dir, "notes.ma"), "a")
	testsupport.WriteFile(t, filepath.Join(dir, "PROJ_MOD.txt"), "a")

	found, err := store.FindWorkingFiles(root, "**/*.ma")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if len(found) != 2 {
		t.Fatalf("expected two working files, got %v", found)
	}
	if _, err := store.FindWorkingFiles(root, "[abc"); !errors.Is(err, ops.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestEntryModTime(t *testing.T) {
	store, dir := newStore(t)
	snapshot := testsupport.WriteFile(t, filepath.Join(dir, "_versions", "PROJ_MOD_WIP_v001.ma"), "a")
	testsupport.Age(t, snapshot, 3*time.Hour)
	entry, ok, err := store.LatestVersion(filepath.Join(dir, "PROJ_MOD.ma"), false)
	if err != nil || !ok {
		t.Fatalf("latest: %v %v", ok, err)
	}
	if time.Since(entry.ModTime) < 2*time.Hour {
		t.Fatalf("expected aged mod time, got %v", entry.ModTime)
	}
}
