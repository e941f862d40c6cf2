package workflow

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"atelier/internal/logging"
	"atelier/internal/naming"
	"atelier/internal/ops"
	"atelier/internal/registry"
)

const defaultTemplateName = "template"

// TemplateResult describes a published template.
type TemplateResult struct {
	Path        string
	VersionFile string
	Published   string
}

// PublishTemplate saves the open scene as a template of its step in the
// folder chosen through the Dialogs, then publishes it so it can be imported.
// The template is named project_step_<name>.ext.
func (m *Manager) PublishTemplate(ctx context.Context) (TemplateResult, error) {
	current, err := m.currentFile("publish-template")
	if err != nil {
		return TemplateResult{}, err
	}
	ctx, logger := m.begin(ctx, "publish-template", current)

	_, id, err := m.saveTarget(ctx, logger, current)
	if err != nil {
		return TemplateResult{}, err
	}
	prompt := TemplatePrompt{}
	if project, err := m.registry.Project(id.Project); err == nil {
		prompt.Project = project
	}
	if step, err := m.registry.Step(id.Step); err == nil {
		prompt.Step = step
	}
	answer, err := m.dialogs.TemplateTarget(ctx, prompt)
	if err != nil {
		return TemplateResult{}, err
	}

	name := strings.TrimSpace(answer.Name)
	if name == "" {
		name = defaultTemplateName
	}
	fileName, err := naming.ComposeFileName(naming.Identity{
		Project:   id.Project,
		Step:      id.Step,
		Resource:  name,
		Version:   naming.Unversioned,
		Extension: id.Extension,
	})
	if err != nil {
		return TemplateResult{}, err
	}
	if _, err := naming.DecomposeFileName(fileName); err != nil {
		return TemplateResult{}, err
	}
	folder := filepath.Clean(answer.Folder)
	if m.versions.Codec().IsReserved(filepath.Base(folder)) {
		return TemplateResult{}, ops.Wrap(ops.ErrValidation, "workflow", "publish-template",
			folder+" is a reserved folder", nil)
	}
	if err := os.MkdirAll(folder, 0o755); err != nil {
		return TemplateResult{}, ops.Wrap(ops.ErrIO, "workflow", "publish-template", "create folder", err)
	}
	target := filepath.Join(folder, fileName)

	if err := m.host.Save(ctx, target); err != nil {
		return TemplateResult{}, err
	}
	versionFile, err := m.versions.CopyToVersion(ctx, target, true, "")
	if err != nil {
		return TemplateResult{}, err
	}
	if err := m.recordVersion(ctx, SaveResult{
		VersionFile: versionFile,
		Version:     versionOf(versionFile),
		State:       stateOf(versionFile),
		Comment:     "Template published from " + filepath.Base(current) + ".",
	}); err != nil {
		return TemplateResult{}, err
	}
	published, err := m.publishVersion(ctx, logger, target, id, versionFile, registry.Item{}, false)
	if err != nil {
		return TemplateResult{}, err
	}
	logger.InfoContext(ctx, "template published", logging.String("template", target))
	return TemplateResult{Path: target, VersionFile: versionFile, Published: published}, nil
}
