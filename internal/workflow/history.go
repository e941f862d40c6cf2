package workflow

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"

	"atelier/internal/logging"
	"atelier/internal/ops"
	"atelier/internal/versions"
)

// VersionInfo is a snapshot with its recorded comment.
type VersionInfo struct {
	Entry   versions.Entry
	Comment string
}

// VersionHistory lists the snapshots of path's lineage, newest first. An empty
// path uses the open scene.
func (m *Manager) VersionHistory(ctx context.Context, path string) ([]VersionInfo, error) {
	if path == "" {
		current, err := m.currentFile("versions")
		if err != nil {
			return nil, err
		}
		path = current
	}
	entries, err := m.versions.VersionFiles(path)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, ops.Wrap(ops.ErrNoVersionsFound, "workflow", "versions", "No other version found.", nil)
	}
	history := make([]VersionInfo, 0, len(entries))
	for _, entry := range entries {
		comment, err := m.meta.Comment(ctx, entry.Path)
		if err != nil {
			return nil, err
		}
		history = append(history, VersionInfo{Entry: entry, Comment: comment})
	}
	return history, nil
}

// RetrieveVersion lets the user pick a snapshot of the open scene, restores it
// beside the working file, and opens the restored copy. The next save of that
// copy increments the version.
func (m *Manager) RetrieveVersion(ctx context.Context) (string, error) {
	current, err := m.currentFile("restore")
	if err != nil {
		return "", err
	}
	ctx, logger := m.begin(ctx, "restore", current)

	history, err := m.VersionHistory(ctx, current)
	if err != nil {
		return "", err
	}
	chosen, err := m.dialogs.ChooseVersion(ctx, history)
	if err != nil {
		return "", err
	}
	restored, err := m.versions.RestoreVersionFile(ctx, chosen.Path)
	if err != nil {
		return "", err
	}
	if err := m.host.Open(ctx, restored); err != nil {
		return "", err
	}
	logger.InfoContext(ctx, "version retrieved",
		logging.Int("version", chosen.Version()),
		logging.String("restored", restored))
	return restored, nil
}

// Open opens path in the host, asking the Dialogs when path is empty. A
// snapshot from a versions folder is restored first so it is never edited in
// place.
func (m *Manager) Open(ctx context.Context, path string) (string, error) {
	ctx, logger := m.begin(ctx, "open", path)
	if strings.TrimSpace(path) == "" {
		project, _ := m.registry.CurrentProject()
		chosen, err := m.dialogs.OpenTarget(ctx, project)
		if err != nil {
			return "", err
		}
		path = chosen
	}
	path = filepath.Clean(path)

	if m.versions.InVersionsFolder(path) {
		restored, err := m.versions.RestoreVersionFile(ctx, path)
		if err != nil {
			return "", err
		}
		path = restored
	}
	if err := m.host.Open(ctx, path); err != nil {
		return "", err
	}
	if id, err := m.versions.Codec().DecomposeFilePath(path); err == nil {
		m.selectProject(ctx, logger, id.Project)
	}
	logger.InfoContext(ctx, "scene opened", logging.String("opened", path))
	return path, nil
}

func (m *Manager) selectProject(ctx context.Context, logger *slog.Logger, code string) {
	project, err := m.registry.Project(code)
	if err != nil {
		logger.DebugContext(ctx, "project not in registry", logging.String("project", code))
		return
	}
	if err := m.registry.SetCurrentProject(project.Code); err != nil {
		logger.DebugContext(ctx, "current project not changed", logging.Error(err))
	}
}
