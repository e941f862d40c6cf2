package registry

import "context"

// Registry is the production database the orchestrator consults. Lookups
// that do not resolve fail with ops.ErrNotAnItem.
type Registry interface {
	Project(code string) (Project, error)
	CurrentProject() (Project, bool)
	SetCurrentProject(code string) error
	Step(code string) (Step, error)
	ItemFromPath(path string) (Item, error)
	CurrentStatus(item Item, step string) (Status, bool)
	UpdateStatus(ctx context.Context, item Item, step string, status Status) error
	NotifyPublish(ctx context.Context, item Item, step, path string) error
	DefaultState() string
	States() []string
}
