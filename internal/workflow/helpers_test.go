package workflow_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"atelier/internal/config"
	"atelier/internal/host"
	"atelier/internal/logging"
	"atelier/internal/metadata"
	"atelier/internal/naming"
	"atelier/internal/registry"
	"atelier/internal/testsupport"
	"atelier/internal/transcode"
	"atelier/internal/versions"
	"atelier/internal/workflow"
)

const projectsYAML = `
current: PROJ
default_state: WIP
states: [WIP, CHK, OK]
projects:
  - code: PROJ
    name: Project
    steps:
      - code: MOD
        output_pipes:
          - name: GEO
            to: RIG
      - code: RIG
`

type env struct {
	cfg     *config.Config
	store   *versions.Store
	meta    *metadata.Store
	reg     *registry.FileRegistry
	disk    *host.Disk
	answers *workflow.Answers
	encoder *recordingEncoder
	mgr     *workflow.Manager
	stepDir string
	working string
}

type envOption func(*envSetup)

type envSetup struct {
	current  string
	diskOpts []host.DiskOption
	hostWrap func(host.Host) host.Host
}

func withDiskOptions(opts ...host.DiskOption) envOption {
	return func(s *envSetup) { s.diskOpts = append(s.diskOpts, opts...) }
}

func withCurrent(path string) envOption {
	return func(s *envSetup) { s.current = path }
}

func withHost(wrap func(host.Host) host.Host) envOption {
	return func(s *envSetup) { s.hostWrap = wrap }
}

// newEnv builds a manager over an asset step folder PROJ_A_hero_MOD holding
// the working file PROJ_MOD.ma, opened in a Disk host.
func newEnv(t *testing.T, opts ...envOption) *env {
	t.Helper()

	cfg := testsupport.NewConfig(t)
	testsupport.WriteFile(t, cfg.Registry.ProjectsFile, projectsYAML)
	stepDir := testsupport.StepDir(t, cfg.Paths.ProjectsRoot, "PROJ", "hero", "MOD")
	working := testsupport.WriteFile(t, filepath.Join(stepDir, "PROJ_MOD.ma"), "scene v1")

	setup := &envSetup{current: working}
	for _, opt := range opts {
		opt(setup)
	}

	store := versions.NewStore(cfg, logging.NewNop())
	reg, err := registry.NewFileRegistry(cfg, naming.NewCodec(cfg.ReservedFolders(), cfg.Naming.RestoredMarker), logging.NewNop())
	if err != nil {
		t.Fatalf("NewFileRegistry: %v", err)
	}
	meta := testsupport.MustOpenMetadata(t, cfg)
	disk := host.NewDisk(setup.current, logging.NewNop(), setup.diskOpts...)
	var h host.Host = disk
	if setup.hostWrap != nil {
		h = setup.hostWrap(disk)
	}
	answers := &workflow.Answers{}
	encoder := &recordingEncoder{}
	mgr := workflow.NewManager(cfg, store, meta, reg, h, answers, logging.NewNop(), workflow.WithEncoder(encoder))

	return &env{
		cfg:     cfg,
		store:   store,
		meta:    meta,
		reg:     reg,
		disk:    disk,
		answers: answers,
		encoder: encoder,
		mgr:     mgr,
		stepDir: stepDir,
		working: working,
	}
}

func (e *env) versionsDir() string {
	return filepath.Join(e.stepDir, e.cfg.Naming.VersionsFolder)
}

func (e *env) snapshot(name string) string {
	return filepath.Join(e.versionsDir(), name)
}

func (e *env) mustSave(t *testing.T) workflow.SaveResult {
	t.Helper()
	result, err := e.mgr.Save(context.Background(), workflow.SaveOptions{})
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	return result
}

func (e *env) comment(t *testing.T, path string) string {
	t.Helper()
	comment, err := e.meta.Comment(context.Background(), path)
	if err != nil {
		t.Fatalf("Comment(%s): %v", path, err)
	}
	return comment
}

func stringPtr(s string) *string { return &s }

// recordingEncoder writes a placeholder movie and remembers each request.
type recordingEncoder struct {
	requests []transcode.Request
}

func (r *recordingEncoder) Encode(_ context.Context, req transcode.Request) error {
	r.requests = append(r.requests, req)
	if err := os.MkdirAll(filepath.Dir(req.Output), 0o755); err != nil {
		return err
	}
	return os.WriteFile(req.Output, []byte("mp4"), 0o644)
}

// ghostNodeHost reports an extra imported node that never reaches the scene.
type ghostNodeHost struct {
	host.Host
}

func (g ghostNodeHost) Import(ctx context.Context, req host.ImportRequest) (host.Imported, error) {
	imported, err := g.Host.Import(ctx, req)
	if err != nil {
		return imported, err
	}
	imported.Nodes = append(imported.Nodes, "ghost")
	return imported, nil
}
