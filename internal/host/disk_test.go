package host_test

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"atelier/internal/host"
	"atelier/internal/logging"
	"atelier/internal/ops"
	"atelier/internal/testsupport"
)

func TestDiskSaveCopiesAndSwitchesScene(t *testing.T) {
	dir := t.TempDir()
	src := testsupport.WriteFile(t, filepath.Join(dir, "scene.ma"), "scene")
	d := host.NewDisk(src, logging.NewNop())
	ctx := context.Background()

	target := filepath.Join(dir, "sub", "PROJ_MOD.ma")
	if err := d.Save(ctx, target); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if got := testsupport.ReadFile(t, target); got != "scene" {
		t.Fatalf("unexpected content %q", got)
	}
	if d.CurrentFile() != target {
		t.Fatalf("expected current file to follow save, got %q", d.CurrentFile())
	}
	if err := d.Save(ctx, target); err != nil {
		t.Fatalf("save onto itself: %v", err)
	}
}

func TestDiskSaveWithoutScene(t *testing.T) {
	d := host.NewDisk("", logging.NewNop())
	if err := d.Save(context.Background(), filepath.Join(t.TempDir(), "a.ma")); !errors.Is(err, ops.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestDiskOpenMissing(t *testing.T) {
	d := host.NewDisk("", logging.NewNop())
	if err := d.Open(context.Background(), filepath.Join(t.TempDir(), "missing.ma")); !errors.Is(err, ops.ErrIO) {
		t.Fatalf("expected ErrIO, got %v", err)
	}
}

func TestDiskImportAndAttributes(t *testing.T) {
	dir := t.TempDir()
	src := testsupport.WriteFile(t, filepath.Join(dir, "PROJ_MOD.ma"), "geo")
	d := host.NewDisk("", logging.NewNop())
	ctx := context.Background()

	imported, err := d.Import(ctx, host.ImportRequest{Path: src, Namespace: "hero", Group: "ASSETS_chars"})
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if len(imported.Nodes) != 1 || imported.Nodes[0] != "ASSETS_chars|hero:PROJ_MOD" {
		t.Fatalf("unexpected nodes %v", imported.Nodes)
	}
	node := imported.Nodes[0]
	if res := d.SetAttribute(ctx, node, "ramVersion", 3); !res.Applied {
		t.Fatalf("expected applied, got %s", res)
	}
	res := d.SetAttribute(ctx, "ghost", "ramVersion", 3)
	if res.Applied || !strings.Contains(res.Reason, "ghost") {
		t.Fatalf("expected skip naming the node, got %s", res)
	}
	if got := d.Attributes(node)["ramVersion"]; got != 3 {
		t.Fatalf("unexpected attribute %v", got)
	}
}

func TestDiskPlayblastSequence(t *testing.T) {
	frames := t.TempDir()
	testsupport.WriteFile(t, filepath.Join(frames, "f0002.png"), "2")
	testsupport.WriteFile(t, filepath.Join(frames, "f0001.png"), "1")
	testsupport.WriteFile(t, filepath.Join(frames, "notes.txt"), "x")
	d := host.NewDisk("", logging.NewNop(), host.WithFrames(frames), host.WithSound("/s.wav"), host.WithFramerate(25))

	out := t.TempDir()
	pb, err := d.Playblast(context.Background(), host.PlayblastRequest{Dir: out, Name: "blast"})
	if err != nil {
		t.Fatalf("Playblast: %v", err)
	}
	if pb.Frames != 2 || pb.Pattern != filepath.Join(out, "blast.%05d.png") || pb.Sound != "/s.wav" || pb.Framerate != 25 {
		t.Fatalf("unexpected playblast %+v", pb)
	}
	if got := testsupport.ReadFile(t, filepath.Join(out, "blast.00001.png")); got != "1" {
		t.Fatalf("expected frames in order, first is %q", got)
	}
}

func TestDiskPlayblastThumbnail(t *testing.T) {
	frames := t.TempDir()
	testsupport.WriteFile(t, filepath.Join(frames, "a.png"), "first")
	d := host.NewDisk("", logging.NewNop(), host.WithFrames(frames))
	output := filepath.Join(t.TempDir(), "_preview", "PROJ_MOD.png")
	if _, err := d.Playblast(context.Background(), host.PlayblastRequest{Thumbnail: true, Output: output}); err != nil {
		t.Fatalf("thumbnail: %v", err)
	}
	if got := testsupport.ReadFile(t, output); got != "first" {
		t.Fatalf("unexpected thumbnail %q", got)
	}
}

func TestDiskPlayblastWithoutFrames(t *testing.T) {
	d := host.NewDisk("", logging.NewNop())
	if _, err := d.Playblast(context.Background(), host.PlayblastRequest{Dir: t.TempDir()}); !errors.Is(err, ops.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestResultString(t *testing.T) {
	if host.Applied().String() != "applied" {
		t.Fatal("unexpected applied string")
	}
	if got := host.Skipped("no scene").String(); got != "skipped(no scene)" {
		t.Fatalf("unexpected skipped string %q", got)
	}
}
