package registry

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"atelier/internal/config"
	"atelier/internal/fileutil"
	"atelier/internal/logging"
	"atelier/internal/naming"
	"atelier/internal/ops"
)

const statusFileName = "status.yaml"

type projectsFile struct {
	Current      string    `yaml:"current,omitempty"`
	DefaultState string    `yaml:"default_state,omitempty"`
	States       []string  `yaml:"states,omitempty"`
	Projects     []Project `yaml:"projects"`
}

type statusFile struct {
	Statuses     map[string]Status `yaml:"statuses"`
	Publications []Publication     `yaml:"publications,omitempty"`
}

// FileRegistry is an offline Registry read from a YAML projects file. When the
// file does not exist the registry knows no projects and resolves everything
// from path conventions alone.
type FileRegistry struct {
	path         string
	statusPath   string
	projectsRoot string
	codec        *naming.Codec
	logger       *slog.Logger
	now          func() time.Time

	mu           sync.RWMutex
	projects     map[string]Project
	current      string
	defaultState string
	states       []string
	statuses     map[string]Status
	publications []Publication
}

// NewFileRegistry loads cfg.Registry.ProjectsFile and the persisted statuses.
func NewFileRegistry(cfg *config.Config, codec *naming.Codec, logger *slog.Logger) (*FileRegistry, error) {
	logger = logging.NewComponentLogger(logger, "registry")
	r := &FileRegistry{
		path:         cfg.Registry.ProjectsFile,
		projectsRoot: cfg.Paths.ProjectsRoot,
		codec:        codec,
		logger:       logger,
		now:          time.Now,
		projects:     make(map[string]Project),
		defaultState: cfg.Naming.DefaultState,
		statuses:     make(map[string]Status),
	}
	if cfg.Paths.StateDir != "" {
		r.statusPath = filepath.Join(cfg.Paths.StateDir, statusFileName)
	}

	if err := r.loadProjects(); err != nil {
		return nil, ops.Wrap(ops.ErrConfiguration, "registry", "load", r.path, err)
	}
	if cfg.Registry.CurrentProject != "" {
		r.current = cfg.Registry.CurrentProject
	}
	if len(r.states) == 0 {
		r.states = []string{r.defaultState}
	}

	if err := r.loadStatuses(); err != nil {
		logger.Warn("failed to load status file",
			logging.String(logging.FieldEventType, "registry_status_load_failed"),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "delete the status file to start over"),
			logging.String(logging.FieldImpact, "previous statuses are not shown"))
	}
	return r, nil
}

func (r *FileRegistry) loadProjects() error {
	if r.path == "" {
		return nil
	}
	data, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			r.logger.Debug("no projects file, running offline", logging.String("path", r.path))
			return nil
		}
		return fmt.Errorf("read projects file: %w", err)
	}
	var doc projectsFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("parse projects file: %w", err)
	}
	for _, project := range doc.Projects {
		project.Code = strings.TrimSpace(project.Code)
		if !naming.ValidToken(project.Code) {
			return fmt.Errorf("invalid project code %q", project.Code)
		}
		for _, step := range project.Steps {
			if !naming.ValidToken(step.Code) {
				return fmt.Errorf("project %s: invalid step code %q", project.Code, step.Code)
			}
		}
		if project.Folder == "" && r.projectsRoot != "" {
			project.Folder = filepath.Join(r.projectsRoot, project.Code)
		}
		r.projects[strings.ToUpper(project.Code)] = project
	}
	r.current = doc.Current
	if doc.DefaultState != "" {
		r.defaultState = doc.DefaultState
	}
	r.states = doc.States

	r.logger.Debug("loaded projects file",
		logging.Int("project_count", len(r.projects)),
		logging.String("path", r.path))
	return nil
}

func (r *FileRegistry) loadStatuses() error {
	if r.statusPath == "" {
		return nil
	}
	data, err := os.ReadFile(r.statusPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read status file: %w", err)
	}
	var doc statusFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("parse status file: %w", err)
	}
	if doc.Statuses != nil {
		r.statuses = doc.Statuses
	}
	r.publications = doc.Publications
	return nil
}

// saveStatuses writes the given statuses and publications to the status
// file. Callers hold r.mu and swap the new values in only on success.
func (r *FileRegistry) saveStatuses(statuses map[string]Status, publications []Publication) error {
	if r.statusPath == "" {
		return nil
	}
	data, err := yaml.Marshal(statusFile{Statuses: statuses, Publications: publications})
	if err != nil {
		return fmt.Errorf("marshal status file: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(r.statusPath), 0o755); err != nil {
		return fmt.Errorf("create status directory: %w", err)
	}
	return fileutil.WriteFileAtomic(r.statusPath, data, 0o644)
}

func (r *FileRegistry) offline() bool {
	return len(r.projects) == 0
}

// Projects lists the known projects sorted by code.
func (r *FileRegistry) Projects() []Project {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Project, 0, len(r.projects))
	for _, project := range r.projects {
		out = append(out, project)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

func (r *FileRegistry) Project(code string) (Project, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.project(code)
}

func (r *FileRegistry) project(code string) (Project, error) {
	if project, ok := r.projects[strings.ToUpper(code)]; ok {
		return project, nil
	}
	if r.offline() && naming.ValidToken(code) {
		project := Project{Code: code}
		if r.projectsRoot != "" {
			project.Folder = filepath.Join(r.projectsRoot, code)
		}
		return project, nil
	}
	return Project{}, ops.Wrap(ops.ErrNotAnItem, "registry", "project", fmt.Sprintf("unknown project %q", code), nil)
}

func (r *FileRegistry) CurrentProject() (Project, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.current == "" {
		return Project{}, false
	}
	project, err := r.project(r.current)
	if err != nil {
		return Project{}, false
	}
	return project, true
}

func (r *FileRegistry) SetCurrentProject(code string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	project, err := r.project(code)
	if err != nil {
		return err
	}
	r.current = project.Code
	return nil
}

// Step resolves code in the current project. Offline, or without a current
// project, any valid code resolves to a bare step.
func (r *FileRegistry) Step(code string) (Step, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if !naming.ValidToken(code) {
		return Step{}, ops.Wrap(ops.ErrNotAnItem, "registry", "step", fmt.Sprintf("invalid step %q", code), nil)
	}
	if r.current == "" || r.offline() {
		return Step{Code: code}, nil
	}
	project, err := r.project(r.current)
	if err != nil {
		return Step{}, err
	}
	if step, ok := project.Step(code); ok {
		return step, nil
	}
	if len(project.Steps) == 0 {
		return Step{Code: code}, nil
	}
	return Step{}, ops.Wrap(ops.ErrNotAnItem, "registry", "step",
		fmt.Sprintf("project %s has no step %q", project.Code, code), nil)
}

// ItemFromPath resolves the item owning path from its item or step folder.
func (r *FileRegistry) ItemFromPath(path string) (Item, error) {
	id, err := r.codec.DecomposeFilePath(path)
	if err != nil {
		return Item{}, err
	}
	if id.ItemType == naming.ItemNone {
		return Item{}, ops.Wrap(ops.ErrNotAnItem, "registry", "item from path", path, nil)
	}
	r.mu.RLock()
	_, known := r.projects[strings.ToUpper(id.Project)]
	offline := r.offline()
	r.mu.RUnlock()
	if !known && !offline {
		return Item{}, ops.Wrap(ops.ErrNotAnItem, "registry", "item from path",
			fmt.Sprintf("%s: unknown project %s", path, id.Project), nil)
	}

	item := Item{Project: id.Project, Type: id.ItemType, ShortName: id.ItemShortName}
	item.Folder = r.itemFolder(filepath.Dir(filepath.Clean(path)))
	if item.Type == naming.ItemAsset && item.Folder != "" {
		item.Group = filepath.Base(filepath.Dir(item.Folder))
	}
	return item, nil
}

// itemFolder walks up from dir to the item folder. A step folder whose parent
// is not its item folder counts as the item folder itself.
func (r *FileRegistry) itemFolder(dir string) string {
	for {
		name := filepath.Base(dir)
		if !r.codec.IsReserved(name) {
			if folder, ok := naming.ParseFolderName(name); ok {
				if folder.Step == "" {
					return dir
				}
				parent := filepath.Dir(dir)
				if pf, ok := naming.ParseFolderName(filepath.Base(parent)); ok && pf.Step == "" && pf.ShortName == folder.ShortName {
					return parent
				}
				return dir
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

func statusKey(item Item, step string) string {
	return item.Key() + "|" + strings.ToUpper(step)
}

func (r *FileRegistry) CurrentStatus(item Item, step string) (Status, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	status, ok := r.statuses[statusKey(item, step)]
	return status, ok
}

func (r *FileRegistry) UpdateStatus(ctx context.Context, item Item, step string, status Status) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	status.UpdatedAt = r.now().UTC()
	statuses := make(map[string]Status, len(r.statuses)+1)
	maps.Copy(statuses, r.statuses)
	statuses[statusKey(item, step)] = status
	if err := r.saveStatuses(statuses, r.publications); err != nil {
		return ops.Wrap(ops.ErrIO, "registry", "update status", r.statusPath, err)
	}
	r.statuses = statuses
	r.logger.InfoContext(ctx, "status updated",
		logging.String("item", item.Key()),
		logging.String("step", step),
		logging.String("state", status.State),
		logging.Int("completion", status.Completion))
	return nil
}

func (r *FileRegistry) NotifyPublish(ctx context.Context, item Item, step, path string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	publications := append(slices.Clip(r.publications), Publication{
		Item:        item.Key(),
		Step:        step,
		Path:        path,
		PublishedAt: r.now().UTC(),
	})
	if err := r.saveStatuses(r.statuses, publications); err != nil {
		return ops.Wrap(ops.ErrIO, "registry", "notify publish", r.statusPath, err)
	}
	r.publications = publications
	r.logger.InfoContext(ctx, "publish recorded",
		logging.String("item", item.Key()),
		logging.String("step", step),
		logging.String("published", path))
	return nil
}

// Publications returns the recorded publish notifications, oldest first.
func (r *FileRegistry) Publications() []Publication {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Publication, len(r.publications))
	copy(out, r.publications)
	return out
}

func (r *FileRegistry) DefaultState() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.defaultState
}

func (r *FileRegistry) States() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.states))
	copy(out, r.states)
	return out
}

var _ Registry = (*FileRegistry)(nil)
