package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"atelier/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Paths.ProjectsRoot = filepath.Join(base, "projects")
	cfgVal.Metadata.DBPath = filepath.Join(base, "state", "metadata.db")
	cfgVal.Registry.ProjectsFile = filepath.Join(base, "projects.yaml")

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithMetadataBackend selects the metadata backend on the test config.
func WithMetadataBackend(backend string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Metadata.Backend = backend
	}
}

// WithStubbedBinaries writes stub executables for the provided names and
// prepends them to PATH. If names is empty, ffmpeg is stubbed. The stubs
// append their arguments to <name>.args in the bin directory.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(b *configBuilder) {
		if len(names) == 0 {
			names = []string{"ffmpeg"}
		}
		binDir := filepath.Join(b.baseDir, "bin")
		if err := os.MkdirAll(binDir, 0o755); err != nil {
			b.t.Fatalf("mkdir bin dir: %v", err)
		}
		for _, name := range names {
			target := filepath.Join(binDir, name)
			script := []byte("#!/bin/sh\necho \"$@\" >> \"" + target + ".args\"\nexit 0\n")
			if err := os.WriteFile(target, script, 0o755); err != nil {
				b.t.Fatalf("write stub %s: %v", name, err)
			}
		}
		b.t.Setenv("PATH", binDir+string(os.PathListSeparator)+os.Getenv("PATH"))
	}
}
