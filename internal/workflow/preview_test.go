package workflow_test

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"atelier/internal/host"
	"atelier/internal/ops"
	"atelier/internal/testsupport"
	"atelier/internal/workflow"
)

func framesDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	testsupport.WriteFile(t, filepath.Join(dir, "shot.0001.png"), "f1")
	testsupport.WriteFile(t, filepath.Join(dir, "shot.0002.png"), "f2")
	return dir
}

func TestPreviewThumbnail(t *testing.T) {
	e := newEnv(t, withDiskOptions(host.WithFrames(framesDir(t))))
	ctx := context.Background()
	saved, err := e.mgr.Save(ctx, workflow.SaveOptions{SetComment: true, Comment: "blocking"})
	if err != nil {
		t.Fatalf("Save: %v", err)
	}

	e.answers.Render = &workflow.PreviewOptions{Comment: "First pass!", Thumbnail: true}
	result, err := e.mgr.Preview(ctx)
	if err != nil {
		t.Fatalf("Preview: %v", err)
	}
	want := filepath.Join(e.stepDir, "_preview", "PROJ_MOD_First-pass.png")
	if result.Path != want {
		t.Fatalf("unexpected preview path %s", result.Path)
	}
	if got := testsupport.ReadFile(t, result.Path); got != "f1" {
		t.Fatalf("thumbnail should be the first frame, got %q", got)
	}
	link, err := e.meta.VersionFilePath(ctx, result.Path)
	if err != nil || link != saved.VersionFile {
		t.Fatalf("preview not linked to snapshot: %q %v", link, err)
	}
	if got := e.comment(t, result.Path); got != "blocking" {
		t.Fatalf("expected snapshot comment on preview, got %q", got)
	}
	if len(e.encoder.requests) != 0 {
		t.Fatal("thumbnails must not be encoded")
	}
}

func TestPreviewMovie(t *testing.T) {
	e := newEnv(t, withDiskOptions(host.WithFrames(framesDir(t)), host.WithFramerate(25)))
	ctx := context.Background()
	e.mustSave(t)

	e.answers.Render = &workflow.PreviewOptions{}
	result, err := e.mgr.Preview(ctx)
	if err != nil {
		t.Fatalf("Preview: %v", err)
	}
	if filepath.Base(result.Path) != "PROJ_MOD.mp4" || result.Frames != 2 {
		t.Fatalf("unexpected preview %+v", result)
	}
	if len(e.encoder.requests) != 1 {
		t.Fatalf("expected one encode, got %d", len(e.encoder.requests))
	}
	req := e.encoder.requests[0]
	if !strings.HasSuffix(req.Pattern, "blast.%05d.png") || req.Framerate != 25 || req.Output != result.Path {
		t.Fatalf("unexpected encode request %+v", req)
	}
	version, err := e.meta.Version(ctx, result.Path)
	if err != nil || version != 1 {
		t.Fatalf("unexpected preview version %d %v", version, err)
	}
}

func TestPreviewPreconditions(t *testing.T) {
	e := newEnv(t, withDiskOptions(host.WithFrames(framesDir(t))))
	ctx := context.Background()
	e.answers.Render = &workflow.PreviewOptions{}

	if _, err := e.mgr.Preview(ctx); !errors.Is(err, ops.ErrNoVersionsFound) {
		t.Fatalf("expected ErrNoVersionsFound before any save, got %v", err)
	}

	e.mustSave(t)
	bare := workflow.NewManager(e.cfg, e.store, e.meta, e.reg, e.disk, e.answers, nil)
	if _, err := bare.Preview(ctx); !errors.Is(err, ops.ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration without an encoder, got %v", err)
	}

	e.answers.Render = nil
	if _, err := e.mgr.Preview(ctx); !errors.Is(err, ops.ErrCanceled) {
		t.Fatalf("expected ErrCanceled, got %v", err)
	}
}
