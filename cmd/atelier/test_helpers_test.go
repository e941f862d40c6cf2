package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"atelier/internal/config"
	"atelier/internal/testsupport"
)

const testProjects = `
current: PROJ
default_state: WIP
states: [WIP, CHK, OK]
projects:
  - code: PROJ
    steps:
      - code: MOD
        output_pipes:
          - name: GEO
`

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
	stepDir    string
	scene      string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	homeDir := filepath.Join(base, "home")
	if err := os.MkdirAll(homeDir, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", homeDir)
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries())
	testsupport.WriteFile(t, cfg.Registry.ProjectsFile, testProjects)
	stepDir := testsupport.StepDir(t, cfg.Paths.ProjectsRoot, "PROJ", "hero", "MOD")
	scene := testsupport.WriteFile(t, filepath.Join(stepDir, "PROJ_MOD.ma"), "scene")

	configPath := filepath.Join(homeDir, ".config", "atelier", "config.toml")
	writeTestConfig(t, configPath, cfg)

	return &cliTestEnv{
		cfg:        cfg,
		configPath: configPath,
		stepDir:    stepDir,
		scene:      scene,
	}
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	testsupport.WriteFile(t, path, string(data))
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
