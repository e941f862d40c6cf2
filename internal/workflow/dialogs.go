package workflow

import (
	"context"

	"atelier/internal/registry"
	"atelier/internal/versions"
)

// Dialogs supplies every user decision an operation needs. Each method returns
// plain data, or an error wrapping ops.ErrCanceled when the user backs out.
type Dialogs interface {
	// Comment asks for a save comment, prefilled with the current one.
	Comment(ctx context.Context, current string) (string, error)
	// SaveAsTarget asks where to save the scene.
	SaveAsTarget(ctx context.Context, prompt SaveAsPrompt) (string, error)
	// Status asks for the new production status of the scene's step.
	Status(ctx context.Context, prompt StatusPrompt) (StatusAnswer, error)
	// ChooseVersion picks one snapshot out of history, newest first.
	ChooseVersion(ctx context.Context, history []VersionInfo) (versions.Entry, error)
	// OpenTarget asks which file to open.
	OpenTarget(ctx context.Context, project registry.Project) (string, error)
	// PreviewOptions asks how to render a preview.
	PreviewOptions(ctx context.Context) (PreviewOptions, error)
	// TemplateTarget asks where to publish a template.
	TemplateTarget(ctx context.Context, prompt TemplatePrompt) (TemplateAnswer, error)
	// ImportSelection asks what to import.
	ImportSelection(ctx context.Context, project registry.Project) (ImportSelection, error)
}

// SaveAsPrompt is the context shown when choosing a save-as target.
type SaveAsPrompt struct {
	Current string
	Project registry.Project
	Step    registry.Step
	Item    registry.Item
}

// StatusPrompt is the context shown when updating a status.
type StatusPrompt struct {
	Current    registry.Status
	HasCurrent bool
	Publish    bool
	States     []string
}

// StatusAnswer is the outcome of the status dialog. Update false saves a new
// version without touching the status.
type StatusAnswer struct {
	Update     bool
	State      string
	Comment    string
	Completion int
	Publish    bool
}

// PreviewOptions describes a preview render.
type PreviewOptions struct {
	Comment   string
	Camera    string
	Scale     float64
	Thumbnail bool
}

// TemplatePrompt is the context shown when publishing a template.
type TemplatePrompt struct {
	Project registry.Project
	Step    registry.Step
}

// TemplateAnswer locates a template file.
type TemplateAnswer struct {
	Folder string
	Name   string
}

// ImportSelection is what the user picked for import. An empty file path
// stands for the default published file of the step.
type ImportSelection struct {
	Item     registry.Item
	Step     string
	Files    []string
	Resource string
}
