package workflow

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"atelier/internal/fileutil"
	"atelier/internal/logging"
	"atelier/internal/metadata"
	"atelier/internal/naming"
	"atelier/internal/ops"
)

const overwrittenComment = "Overwritten by an external file."

// SaveOptions controls a plain save.
type SaveOptions struct {
	// SetComment records a comment on the version. Without Comment the
	// Dialogs are asked for one, prefilled with the latest version's comment.
	SetComment bool
	Comment    string
}

// SaveResult describes the version a save produced.
type SaveResult struct {
	Path        string
	VersionFile string
	Version     int
	State       string
	Decision    IncrementDecision
	Comment     string
}

// Save writes the open scene to its canonical working path and snapshots it,
// incrementing the version when the auto-increment policy asks for it.
func (m *Manager) Save(ctx context.Context, opts SaveOptions) (SaveResult, error) {
	current, err := m.currentFile("save")
	if err != nil {
		return SaveResult{}, err
	}
	ctx, logger := m.begin(ctx, "save", current)

	saveFilePath, _, err := m.saveTarget(ctx, logger, current)
	if err != nil {
		return SaveResult{}, err
	}

	comment := strings.TrimSpace(opts.Comment)
	if opts.SetComment && comment == "" {
		previous := ""
		if latest, ok, err := m.versions.LatestVersion(saveFilePath, false); err == nil && ok {
			previous, _ = m.meta.Comment(ctx, latest.Path)
		}
		comment, err = m.dialogs.Comment(ctx, previous)
		if err != nil {
			return SaveResult{}, err
		}
	}

	decision, err := m.DecideIncrement(ctx, current, saveFilePath)
	if err != nil {
		return SaveResult{}, err
	}

	if err := m.host.Save(ctx, saveFilePath); err != nil {
		return SaveResult{}, err
	}
	versionFile, err := m.versions.CopyToVersion(ctx, saveFilePath, decision.Increment, "")
	if err != nil {
		return SaveResult{}, err
	}

	switch {
	case opts.SetComment && comment != "":
	case decision.Increment:
		comment = decision.Reason.AutoComment()
	default:
		comment = ""
	}
	result := SaveResult{
		Path:        saveFilePath,
		VersionFile: versionFile,
		Version:     versionOf(versionFile),
		State:       stateOf(versionFile),
		Decision:    decision,
		Comment:     comment,
	}
	if err := m.recordVersion(ctx, result); err != nil {
		return SaveResult{}, err
	}

	attrs := append(
		logging.DecisionAttrs("auto_increment", incrementResult(decision), string(decision.Reason)),
		logging.String("snapshot", versionFile),
		logging.Int("version", result.Version),
	)
	logger.InfoContext(ctx, "scene saved", logging.Args(attrs...)...)
	return result, nil
}

// recordVersion stores version, state, and comment on a fresh snapshot. An
// empty comment leaves any existing comment untouched.
func (m *Manager) recordVersion(ctx context.Context, result SaveResult) error {
	values := map[string]any{
		metadata.KeyVersion: result.Version,
		metadata.KeyState:   result.State,
	}
	if result.Comment != "" {
		values[metadata.KeyComment] = result.Comment
	}
	return m.meta.SetValues(ctx, result.VersionFile, values)
}

func incrementResult(decision IncrementDecision) string {
	if decision.Increment {
		return "increment"
	}
	return "overwrite"
}

func stateOf(snapshot string) string {
	id, err := naming.DecomposeFileName(baseName(snapshot))
	if err != nil {
		return ""
	}
	return id.State
}

func baseName(path string) string {
	return filepath.Base(path)
}

// SaveAs saves the open scene under a new canonical path chosen through the
// Dialogs. An existing file at the target is snapshotted first so it is never
// lost, then the scene gets a fresh version.
func (m *Manager) SaveAs(ctx context.Context) (SaveResult, error) {
	current := m.host.CurrentFile()
	ctx, logger := m.begin(ctx, "save-as", current)

	prompt := SaveAsPrompt{Current: current}
	if current != "" {
		if id, err := m.versions.Codec().DecomposeFilePath(current); err == nil {
			if project, err := m.registry.Project(id.Project); err == nil {
				prompt.Project = project
				_ = m.registry.SetCurrentProject(project.Code)
			}
			if step, err := m.registry.Step(id.Step); err == nil {
				prompt.Step = step
			}
		}
		if item, err := m.registry.ItemFromPath(current); err == nil {
			prompt.Item = item
		}
	} else if project, ok := m.registry.CurrentProject(); ok {
		prompt.Project = project
	}

	target, err := m.dialogs.SaveAsTarget(ctx, prompt)
	if err != nil {
		return SaveResult{}, err
	}
	target = filepath.Clean(strings.TrimSpace(target))
	id, err := m.versions.Codec().DecomposeFilePath(target)
	if err != nil {
		return SaveResult{}, err
	}
	if id.Versioned() || m.versions.InReservedFolder(target) {
		return SaveResult{}, ops.Wrap(ops.ErrMalformedName, "workflow", "save-as",
			target+" is not a working file path", nil)
	}

	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return SaveResult{}, ops.Wrap(ops.ErrIO, "workflow", "save-as", "create folder", err)
	}
	exists, err := fileutil.Exists(target)
	if err != nil {
		return SaveResult{}, ops.Wrap(ops.ErrIO, "workflow", "save-as", target, err)
	}
	if exists && filepath.Clean(current) != target {
		backup, err := m.versions.CopyToVersion(ctx, target, true, "")
		if err != nil {
			return SaveResult{}, err
		}
		if err := m.recordVersion(ctx, SaveResult{
			VersionFile: backup,
			Version:     versionOf(backup),
			State:       stateOf(backup),
			Comment:     overwrittenComment,
		}); err != nil {
			return SaveResult{}, err
		}
		logger.InfoContext(ctx, "existing file kept as a version",
			logging.String("snapshot", backup))
	}

	if err := m.host.Save(ctx, target); err != nil {
		return SaveResult{}, err
	}
	versionFile, err := m.versions.CopyToVersion(ctx, target, true, "")
	if err != nil {
		return SaveResult{}, err
	}
	result := SaveResult{
		Path:        target,
		VersionFile: versionFile,
		Version:     versionOf(versionFile),
		State:       stateOf(versionFile),
		Decision:    IncrementDecision{Increment: true},
	}
	if err := m.recordVersion(ctx, result); err != nil {
		return SaveResult{}, err
	}
	logger.InfoContext(ctx, "scene saved as", logging.String("target", target), logging.Int("version", result.Version))
	return result, nil
}
