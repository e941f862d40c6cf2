package workflow

import (
	"context"
	"log/slog"

	"atelier/internal/fileutil"
	"atelier/internal/logging"
	"atelier/internal/metadata"
	"atelier/internal/naming"
	"atelier/internal/ops"
	"atelier/internal/registry"
)

// SaveVersionOptions controls an incremental save.
type SaveVersionOptions struct {
	// UpdateStatus asks the Dialogs for a new status before saving.
	UpdateStatus bool
	// Publish publishes the new version. The status dialog may change it.
	Publish bool
}

// SaveVersionResult describes an incremental save.
type SaveVersionResult struct {
	SaveResult
	Status    *registry.Status
	Published string
}

// SaveVersion saves the open scene as a new version, optionally updating the
// step status and publishing the result.
func (m *Manager) SaveVersion(ctx context.Context, opts SaveVersionOptions) (SaveVersionResult, error) {
	current, err := m.currentFile("save-version")
	if err != nil {
		return SaveVersionResult{}, err
	}
	ctx, logger := m.begin(ctx, "save-version", current)

	saveFilePath, id, err := m.saveTarget(ctx, logger, current)
	if err != nil {
		return SaveVersionResult{}, err
	}
	item, hasItem, err := m.resolveItem(ctx, logger, saveFilePath)
	if err != nil {
		return SaveVersionResult{}, err
	}
	var currentStatus registry.Status
	hasStatus := false
	if hasItem {
		currentStatus, hasStatus = m.registry.CurrentStatus(item, id.Step)
	}

	publish := opts.Publish
	var status *registry.Status
	if opts.UpdateStatus {
		answer, err := m.dialogs.Status(ctx, StatusPrompt{
			Current:    currentStatus,
			HasCurrent: hasStatus,
			Publish:    opts.Publish,
			States:     m.registry.States(),
		})
		if err != nil {
			return SaveVersionResult{}, err
		}
		if answer.Update {
			if !naming.ValidToken(answer.State) {
				return SaveVersionResult{}, ops.Wrap(ops.ErrValidation, "workflow", "save-version",
					"invalid state "+answer.State, nil)
			}
			if answer.Completion < 0 || answer.Completion > 100 {
				return SaveVersionResult{}, ops.Wrap(ops.ErrValidation, "workflow", "save-version",
					"completion must be between 0 and 100", nil)
			}
			status = &registry.Status{
				State:      answer.State,
				Comment:    answer.Comment,
				Completion: answer.Completion,
			}
			publish = answer.Publish
		}
	}

	state := m.registry.DefaultState()
	switch {
	case status != nil:
		state = status.State
	case hasStatus && currentStatus.State != "":
		state = currentStatus.State
	}

	if err := m.host.Save(ctx, saveFilePath); err != nil {
		return SaveVersionResult{}, err
	}
	versionFile, err := m.versions.CopyToVersion(ctx, saveFilePath, true, state)
	if err != nil {
		return SaveVersionResult{}, err
	}
	result := SaveVersionResult{SaveResult: SaveResult{
		Path:        saveFilePath,
		VersionFile: versionFile,
		Version:     versionOf(versionFile),
		State:       state,
		Decision:    IncrementDecision{Increment: true},
	}}
	if status != nil {
		result.Comment = status.Comment
	}
	if err := m.recordVersion(ctx, result.SaveResult); err != nil {
		return SaveVersionResult{}, err
	}
	logger.InfoContext(ctx, "incremental save", logging.Int("version", result.Version), logging.String("state", state))

	if status != nil && hasItem {
		status.Version = result.Version
		status.Published = publish
		if _, err := m.registry.Step(id.Step); err != nil {
			logger.WarnContext(ctx, "step not found, status not updated",
				logging.String(logging.FieldEventType, "status_skipped"),
				logging.Error(err))
		} else if err := m.registry.UpdateStatus(ctx, item, id.Step, *status); err != nil {
			return SaveVersionResult{}, err
		}
		result.Status = status
	}

	if publish {
		published, err := m.publishVersion(ctx, logger, saveFilePath, id, versionFile, item, hasItem)
		if err != nil {
			return SaveVersionResult{}, err
		}
		result.Published = published
	}
	return result, nil
}

// PublishResult describes a publish.
type PublishResult struct {
	Published   string
	VersionFile string
	Version     int
	// Snapshotted is set when a new version had to be taken because no
	// existing one matched the working file.
	Snapshotted bool
}

// Publish saves the open scene and copies its working file into the publish
// folder, linked to the snapshot holding the same content. A new snapshot is
// taken when the latest one differs from the working file.
func (m *Manager) Publish(ctx context.Context) (PublishResult, error) {
	current, err := m.currentFile("publish")
	if err != nil {
		return PublishResult{}, err
	}
	ctx, logger := m.begin(ctx, "publish", current)

	saveFilePath, id, err := m.saveTarget(ctx, logger, current)
	if err != nil {
		return PublishResult{}, err
	}
	item, hasItem, err := m.resolveItem(ctx, logger, saveFilePath)
	if err != nil {
		return PublishResult{}, err
	}
	if err := m.host.Save(ctx, saveFilePath); err != nil {
		return PublishResult{}, err
	}

	result := PublishResult{}
	latest, ok, err := m.versions.LatestVersion(saveFilePath, false)
	if err != nil {
		return PublishResult{}, err
	}
	if ok {
		same, err := fileutil.SameContent(saveFilePath, latest.Path)
		if err != nil {
			return PublishResult{}, ops.Wrap(ops.ErrIO, "workflow", "publish", latest.Path, err)
		}
		if same {
			result.VersionFile = latest.Path
		}
	}
	if result.VersionFile == "" {
		versionFile, err := m.versions.CopyToVersion(ctx, saveFilePath, true, "")
		if err != nil {
			return PublishResult{}, err
		}
		if err := m.recordVersion(ctx, SaveResult{
			VersionFile: versionFile,
			Version:     versionOf(versionFile),
			State:       stateOf(versionFile),
		}); err != nil {
			return PublishResult{}, err
		}
		result.VersionFile = versionFile
		result.Snapshotted = true
	}
	result.Version = versionOf(result.VersionFile)

	published, err := m.publishVersion(ctx, logger, saveFilePath, id, result.VersionFile, item, hasItem)
	if err != nil {
		return PublishResult{}, err
	}
	result.Published = published
	return result, nil
}

// publishVersion copies the working file to the publish folder and links it
// to versionFile. The link is written before the registry is notified; a
// failure at any step fails the publish.
func (m *Manager) publishVersion(
	ctx context.Context,
	logger *slog.Logger,
	saveFilePath string,
	id naming.Identity,
	versionFile string,
	item registry.Item,
	hasItem bool,
) (string, error) {
	published, err := m.versions.CopyToPublish(ctx, saveFilePath)
	if err != nil {
		return "", err
	}
	values := map[string]any{
		metadata.KeyVersion:         versionOf(versionFile),
		metadata.KeyVersionFilePath: versionFile,
		metadata.KeyState:           stateOf(versionFile),
	}
	if step, err := m.registry.Step(id.Step); err == nil {
		if pipes := step.OutputPipes(); len(pipes) == 1 {
			values[metadata.KeyPipeType] = pipes[0].Name
		}
	}
	if err := m.meta.SetValues(ctx, published, values); err != nil {
		return "", err
	}

	if hasItem {
		if err := m.registry.NotifyPublish(ctx, item, id.Step, saveFilePath); err != nil {
			return "", err
		}
	}
	logger.InfoContext(ctx, "version published",
		logging.String("published", published),
		logging.String("snapshot", versionFile),
		logging.Int("version", versionOf(versionFile)))
	return published, nil
}
