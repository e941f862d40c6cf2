package workflow_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"atelier/internal/host"
	"atelier/internal/ops"
	"atelier/internal/testsupport"
	"atelier/internal/workflow"
)

func publishedGeo(t *testing.T, e *env, ext string) string {
	t.Helper()
	path := testsupport.WriteFile(t, filepath.Join(e.stepDir, "_published", "PROJ_MOD."+ext), "geo")
	if err := e.meta.SetValues(context.Background(), path, map[string]any{"version": 3, "state": "OK"}); err != nil {
		t.Fatalf("SetValues: %v", err)
	}
	return path
}

func TestImportDefaultPublishedFile(t *testing.T) {
	e := newEnv(t, withCurrent(""))
	published := publishedGeo(t, e, "mb")
	item, err := e.reg.ItemFromPath(e.working)
	if err != nil {
		t.Fatalf("ItemFromPath: %v", err)
	}
	e.answers.Selection = &workflow.ImportSelection{Item: item, Step: "MOD"}

	result, err := e.mgr.Import(context.Background())
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if len(result.Files) != 1 {
		t.Fatalf("expected one imported file, got %d", len(result.Files))
	}
	file := result.Files[0]
	if file.Path != published {
		t.Fatalf("expected fallback to the .mb publish, got %s", file.Path)
	}
	if file.Namespace != "hero" || file.Group != "ASSETS_04-ASSETS" {
		t.Fatalf("unexpected namespace/group %q %q", file.Namespace, file.Group)
	}
	if result.Skipped() != 0 {
		t.Fatalf("expected every attribute applied, got %d skipped", result.Skipped())
	}

	attrs := e.disk.Attributes(file.Nodes[0])
	if attrs[workflow.AttrManaged] != true || attrs[workflow.AttrSourceFile] != published {
		t.Fatalf("unexpected origin attributes %v", attrs)
	}
	if attrs[workflow.AttrVersion] != 3 || attrs[workflow.AttrState] != "OK" {
		t.Fatalf("unexpected version attributes %v", attrs)
	}
	if attrs[workflow.AttrItem] != "hero" || attrs[workflow.AttrItemType] != "A" || attrs[workflow.AttrStep] != "MOD" {
		t.Fatalf("unexpected item attributes %v", attrs)
	}
}

func TestImportReportsSkippedAttributes(t *testing.T) {
	e := newEnv(t, withHost(func(h host.Host) host.Host { return ghostNodeHost{h} }))
	published := publishedGeo(t, e, "ma")
	e.answers.Selection = &workflow.ImportSelection{Files: []string{published}}

	result, err := e.mgr.Import(context.Background())
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	file := result.Files[0]
	if len(file.Nodes) != 2 {
		t.Fatalf("expected the ghost node to be reported, got %v", file.Nodes)
	}
	ghost := file.Attributes["ghost"]
	res := ghost[workflow.AttrManaged]
	if res.Applied || res.Reason != "node ghost is not in the scene" {
		t.Fatalf("unexpected result %s", res)
	}
	if result.Skipped() != len(ghost) {
		t.Fatalf("expected only ghost writes skipped, got %d", result.Skipped())
	}
}

func TestImportWithoutSelection(t *testing.T) {
	e := newEnv(t)
	if _, err := e.mgr.Import(context.Background()); !errors.Is(err, ops.ErrCanceled) {
		t.Fatalf("expected ErrCanceled, got %v", err)
	}

	item, err := e.reg.ItemFromPath(e.working)
	if err != nil {
		t.Fatalf("ItemFromPath: %v", err)
	}
	e.answers.Selection = &workflow.ImportSelection{Item: item, Step: "MOD"}
	if _, err := e.mgr.Import(context.Background()); !errors.Is(err, ops.ErrValidation) {
		t.Fatalf("expected ErrValidation without a published file, got %v", err)
	}
}
