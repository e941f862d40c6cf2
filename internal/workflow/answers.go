package workflow

import (
	"context"
	"fmt"

	"atelier/internal/ops"
	"atelier/internal/registry"
	"atelier/internal/versions"
)

// Answers is a non-interactive Dialogs filled in advance, as the command line
// does from its flags. A dialog without a preset answer cancels.
type Answers struct {
	SaveComment *string
	SaveAs      string
	NewStatus   *StatusAnswer
	// PickVersion selects a snapshot by number; zero picks the newest.
	PickVersion int
	OpenFile    string
	Render      *PreviewOptions
	Template    *TemplateAnswer
	Selection   *ImportSelection
}

func canceled(dialog string) error {
	return ops.Wrap(ops.ErrCanceled, "dialogs", dialog, "no answer given", nil)
}

func (a *Answers) Comment(_ context.Context, current string) (string, error) {
	if a.SaveComment == nil {
		return "", canceled("comment")
	}
	return *a.SaveComment, nil
}

func (a *Answers) SaveAsTarget(_ context.Context, _ SaveAsPrompt) (string, error) {
	if a.SaveAs == "" {
		return "", canceled("save as")
	}
	return a.SaveAs, nil
}

func (a *Answers) Status(_ context.Context, prompt StatusPrompt) (StatusAnswer, error) {
	if a.NewStatus == nil {
		return StatusAnswer{}, canceled("status")
	}
	answer := *a.NewStatus
	if answer.Update && answer.State == "" && prompt.HasCurrent {
		answer.State = prompt.Current.State
	}
	return answer, nil
}

func (a *Answers) ChooseVersion(_ context.Context, history []VersionInfo) (versions.Entry, error) {
	if len(history) == 0 {
		return versions.Entry{}, canceled("choose version")
	}
	if a.PickVersion == 0 {
		return history[0].Entry, nil
	}
	for _, info := range history {
		if info.Entry.Version() == a.PickVersion {
			return info.Entry, nil
		}
	}
	return versions.Entry{}, ops.Wrap(ops.ErrValidation, "dialogs", "choose version",
		fmt.Sprintf("version %d does not exist", a.PickVersion), nil)
}

func (a *Answers) OpenTarget(_ context.Context, _ registry.Project) (string, error) {
	if a.OpenFile == "" {
		return "", canceled("open")
	}
	return a.OpenFile, nil
}

func (a *Answers) PreviewOptions(_ context.Context) (PreviewOptions, error) {
	if a.Render == nil {
		return PreviewOptions{}, canceled("preview")
	}
	return *a.Render, nil
}

func (a *Answers) TemplateTarget(_ context.Context, _ TemplatePrompt) (TemplateAnswer, error) {
	if a.Template == nil || a.Template.Folder == "" {
		return TemplateAnswer{}, canceled("publish template")
	}
	return *a.Template, nil
}

func (a *Answers) ImportSelection(_ context.Context, _ registry.Project) (ImportSelection, error) {
	if a.Selection == nil {
		return ImportSelection{}, canceled("import")
	}
	return *a.Selection, nil
}

var _ Dialogs = (*Answers)(nil)
