package workflow

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"atelier/internal/config"
	"atelier/internal/host"
	"atelier/internal/logging"
	"atelier/internal/metadata"
	"atelier/internal/naming"
	"atelier/internal/ops"
	"atelier/internal/registry"
	"atelier/internal/transcode"
	"atelier/internal/versions"
)

// Encoder turns a playblast sequence into a movie.
type Encoder interface {
	Encode(ctx context.Context, req transcode.Request) error
}

// Manager coordinates the naming codec, version store, metadata store,
// registry, and host for each workflow operation.
type Manager struct {
	cfg      *config.Config
	versions *versions.Store
	meta     *metadata.Store
	registry registry.Registry
	host     host.Host
	dialogs  Dialogs
	encoder  Encoder
	logger   *slog.Logger
	now      func() time.Time
}

// ManagerOption configures optional Manager behavior.
type ManagerOption func(*Manager)

// WithEncoder sets the movie encoder used by Preview.
func WithEncoder(encoder Encoder) ManagerOption {
	return func(m *Manager) { m.encoder = encoder }
}

// WithClock replaces the clock used for the staleness check.
func WithClock(now func() time.Time) ManagerOption {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// NewManager constructs a workflow manager from its collaborators.
func NewManager(
	cfg *config.Config,
	store *versions.Store,
	meta *metadata.Store,
	reg registry.Registry,
	h host.Host,
	dialogs Dialogs,
	logger *slog.Logger,
	opts ...ManagerOption,
) *Manager {
	m := &Manager{
		cfg:      cfg,
		versions: store,
		meta:     meta,
		registry: reg,
		host:     h,
		dialogs:  dialogs,
		logger:   logging.NewComponentLogger(logger, "workflow"),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// begin tags ctx with the operation and returns a logger carrying it.
func (m *Manager) begin(ctx context.Context, operation, path string) (context.Context, *slog.Logger) {
	ctx = ops.Begin(ctx, operation, path)
	return ctx, logging.WithContext(ctx, m.logger)
}

// currentFile returns the open scene or fails when nothing is open.
func (m *Manager) currentFile(operation string) (string, error) {
	current := m.host.CurrentFile()
	if current == "" {
		return "", ops.Wrap(ops.ErrValidation, "workflow", operation, "no scene is open", nil)
	}
	return current, nil
}

// saveTarget resolves the canonical working path of current. A name outside
// the grammar is reported so the user can save it under a correct name.
func (m *Manager) saveTarget(ctx context.Context, logger *slog.Logger, current string) (string, naming.Identity, error) {
	saveFilePath, err := m.versions.SaveFilePath(current)
	if err != nil {
		logger.WarnContext(ctx, "scene name is not canonical",
			logging.String(logging.FieldEventType, "malformed_name"),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "use save-as to give the scene a canonical name"))
		return "", naming.Identity{}, err
	}
	id, err := m.versions.Codec().DecomposeFilePath(saveFilePath)
	if err != nil {
		return "", naming.Identity{}, err
	}
	return saveFilePath, id, nil
}

// resolveItem looks up the item owning path. A path that does not resolve is
// logged and reported as ok=false so callers can continue without it.
func (m *Manager) resolveItem(ctx context.Context, logger *slog.Logger, path string) (registry.Item, bool, error) {
	item, err := m.registry.ItemFromPath(path)
	if err == nil {
		if project, perr := m.registry.Project(item.Project); perr == nil {
			_ = m.registry.SetCurrentProject(project.Code)
		}
		return item, true, nil
	}
	if errors.Is(err, ops.ErrNotAnItem) {
		logger.WarnContext(ctx, "scene does not belong to a registry item",
			logging.String(logging.FieldEventType, "not_an_item"),
			logging.Error(err),
			logging.String(logging.FieldImpact, "status and publish notifications are skipped"))
		return registry.Item{}, false, nil
	}
	return registry.Item{}, false, err
}

// versionOf decodes the version number of a snapshot path.
func versionOf(snapshot string) int {
	id, err := naming.DecomposeFileName(baseName(snapshot))
	if err != nil {
		return naming.Unversioned
	}
	return id.Version
}
