package workflow

import (
	"testing"

	"atelier/internal/naming"
	"atelier/internal/registry"
)

func TestImportNamespace(t *testing.T) {
	tests := []struct {
		name     string
		item     registry.Item
		resource string
		want     string
	}{
		{"asset", registry.Item{Type: naming.ItemAsset, ShortName: "hero"}, "", "hero"},
		{"numeric shot", registry.Item{Type: naming.ItemShot, ShortName: "010"}, "", "S010"},
		{"general uses resource", registry.Item{Type: naming.ItemGeneral, ShortName: "lib"}, "lights", "lights"},
		{"general without resource", registry.Item{Type: naming.ItemGeneral, ShortName: "lib"}, "", "lib"},
		{"no item", registry.Item{}, "rock", "rock"},
		{"nothing", registry.Item{}, "", "imported"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := importNamespace(tc.item, tc.resource); got != tc.want {
				t.Fatalf("importNamespace = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestImportGroup(t *testing.T) {
	if got := importGroup(registry.Item{Type: naming.ItemAsset, Group: "chars"}); got != "ASSETS_chars" {
		t.Fatalf("unexpected asset group %q", got)
	}
	if got := importGroup(registry.Item{Type: naming.ItemShot}); got != "SHOTS" {
		t.Fatalf("unexpected shot group %q", got)
	}
	if got := importGroup(registry.Item{}); got != "ITEMS" {
		t.Fatalf("unexpected default group %q", got)
	}
}

func TestPreviewResource(t *testing.T) {
	if got := previewResource("hero", "Blocking pass"); got != "hero-Blocking-pass" {
		t.Fatalf("unexpected resource %q", got)
	}
	if got := previewResource("", "  "); got != "" {
		t.Fatalf("expected empty resource, got %q", got)
	}
}
