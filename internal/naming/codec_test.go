package naming_test

import (
	"errors"
	"path/filepath"
	"sort"
	"testing"

	"atelier/internal/naming"
	"atelier/internal/ops"
)

func TestDecomposeFileNameScenario(t *testing.T) {
	id, err := naming.DecomposeFileName("myproj_mod_char01_wip_v007.ma")
	if err != nil {
		t.Fatalf("decompose: %v", err)
	}
	want := naming.Identity{Project: "myproj", Step: "mod", Resource: "char01", State: "wip", Version: 7, Extension: "ma"}
	if id != want {
		t.Fatalf("unexpected identity: %+v", id)
	}
	name, err := naming.ComposeFileName(id)
	if err != nil {
		t.Fatalf("compose: %v", err)
	}
	if name != "myproj_mod_char01_wip_v007.ma" {
		t.Fatalf("unexpected round trip: %q", name)
	}
}

func TestDecomposeFileNameForms(t *testing.T) {
	tests := []struct {
		name string
		want naming.Identity
	}{
		{"proj_rig.mb", naming.Identity{Project: "proj", Step: "rig", Version: -1, Extension: "mb"}},
		{"proj_rig_WIP_v001.mb", naming.Identity{Project: "proj", Step: "rig", State: "WIP", Version: 1, Extension: "mb"}},
		{"proj_rig_body_left_WIP_v012.ma", naming.Identity{Project: "proj", Step: "rig", Resource: "body_left", State: "WIP", Version: 12, Extension: "ma"}},
		{"proj_rig_body_CHK.ma", naming.Identity{Project: "proj", Step: "rig", Resource: "body_CHK", Version: -1, Extension: "ma"}},
		{"proj_rig_WIP_v1000.ma", naming.Identity{Project: "proj", Step: "rig", State: "WIP", Version: 1000, Extension: "ma"}},
		{"proj_rig_hero+restored-v003+.ma", naming.Identity{Project: "proj", Step: "rig", Resource: "hero+restored-v003+", Version: -1, Extension: "ma"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := naming.DecomposeFileName(tc.name)
			if err != nil {
				t.Fatalf("decompose: %v", err)
			}
			if got != tc.want {
				t.Fatalf("got %+v want %+v", got, tc.want)
			}
		})
	}
}

func TestDecomposeFileNameRejectsMalformed(t *testing.T) {
	for _, name := range []string{
		"",
		"scene.ma",
		"proj_rig",
		"proj_rig.",
		"proj_rig_v001.ma",
		"proj_rig_WIP_v000.ma",
		"pr oj_rig.ma",
		"proj_ri.g_x.ma",
		"proj__rig.ma",
		"proj_rig__x.ma",
		"proj_rig_W!P_v001.ma",
		"dir/proj_rig.ma",
	} {
		if _, err := naming.DecomposeFileName(name); !errors.Is(err, ops.ErrMalformedName) {
			t.Fatalf("expected malformed name for %q, got %v", name, err)
		}
	}
}

func TestComposeRoundTrip(t *testing.T) {
	identities := []naming.Identity{
		{Project: "P1", Step: "MOD", Version: -1, Extension: "ma"},
		{Project: "P1", Step: "MOD", Resource: "a", Version: -1, Extension: "ma"},
		{Project: "P1", Step: "MOD", Resource: "a_b-c", State: "OK", Version: 3, Extension: "ma"},
		{Project: "P1", Step: "MOD", State: "WIP", Version: 999, Extension: "abc"},
		{Project: "P1", Step: "MOD", Resource: "v12", Version: -1, Extension: "ma"},
		{Project: "P1", Step: "MOD", Resource: "x+restored-v002+", Version: -1, Extension: "ma"},
	}
	for _, id := range identities {
		name, err := naming.ComposeFileName(id)
		if err != nil {
			t.Fatalf("compose %+v: %v", id, err)
		}
		back, err := naming.DecomposeFileName(name)
		if err != nil {
			t.Fatalf("decompose %q: %v", name, err)
		}
		if back != id {
			t.Fatalf("round trip mismatch for %q: %+v vs %+v", name, back, id)
		}
	}
}

func TestComposeUnversionedOmitsVersionAndState(t *testing.T) {
	name, err := naming.ComposeFileName(naming.Identity{Project: "p", Step: "s", State: "WIP", Version: -1, Extension: "ma"})
	if err != nil {
		t.Fatalf("compose: %v", err)
	}
	if name != "p_s.ma" {
		t.Fatalf("unexpected name %q", name)
	}
}

func TestComposeRejectsInvalidIdentity(t *testing.T) {
	bad := []naming.Identity{
		{Project: "p_x", Step: "s", Version: -1, Extension: "ma"},
		{Project: "p", Step: "", Version: -1, Extension: "ma"},
		{Project: "p", Step: "s", Version: 0, State: "WIP", Extension: "ma"},
		{Project: "p", Step: "s", Version: 2, Extension: "ma"},
		{Project: "p", Step: "s", Version: -1, Extension: ""},
		{Project: "p", Step: "s", Resource: "v001", Version: -1, Extension: "ma"},
		{Project: "p", Step: "s", Resource: "a.b", Version: -1, Extension: "ma"},
		{Project: "p", Step: "s", Version: -1, Extension: "ma", ItemShortName: "bad name"},
	}
	for _, id := range bad {
		if _, err := naming.ComposeFileName(id); !errors.Is(err, ops.ErrMalformedName) {
			t.Fatalf("expected malformed name for %+v, got %v", id, err)
		}
	}
}

func TestVersionPaddingSortsLexically(t *testing.T) {
	versions := []int{100, 2, 10, 1}
	names := make([]string, 0, len(versions))
	for _, v := range versions {
		name, err := naming.ComposeFileName(naming.Identity{Project: "p", Step: "s", State: "WIP", Version: v, Extension: "ma"})
		if err != nil {
			t.Fatalf("compose: %v", err)
		}
		names = append(names, name)
	}
	sort.Strings(names)
	want := []string{"p_s_WIP_v001.ma", "p_s_WIP_v002.ma", "p_s_WIP_v010.ma", "p_s_WIP_v100.ma"}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("lexical order %v does not match numeric order %v", names, want)
		}
	}

	// Past three digits the padding no longer orders lexically.
	wide, _ := naming.ComposeFileName(naming.Identity{Project: "p", Step: "s", State: "WIP", Version: 1000, Extension: "ma"})
	narrow, _ := naming.ComposeFileName(naming.Identity{Project: "p", Step: "s", State: "WIP", Version: 999, Extension: "ma"})
	if !(wide < narrow) {
		t.Fatalf("expected %q to sort before %q lexically", wide, narrow)
	}
}

func TestBuildPath(t *testing.T) {
	got := naming.BuildPath("root", "", "a//b", "c.ma")
	if got != filepath.Join("root", "a", "b", "c.ma") {
		t.Fatalf("unexpected path %q", got)
	}
	if naming.BuildPath() != "" {
		t.Fatal("expected empty path")
	}
}
