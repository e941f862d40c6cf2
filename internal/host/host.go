package host

import (
	"context"
	"fmt"
)

// Result is the outcome of a best-effort host operation.
type Result struct {
	Applied bool
	Reason  string
}

// Applied reports a write that took effect.
func Applied() Result { return Result{Applied: true} }

// Skipped reports a write that was not performed and why.
func Skipped(reason string) Result { return Result{Reason: reason} }

func (r Result) String() string {
	if r.Applied {
		return "applied"
	}
	return fmt.Sprintf("skipped(%s)", r.Reason)
}

// ImportRequest describes a file to bring into the current scene.
type ImportRequest struct {
	Path      string
	Namespace string
	Group     string
}

// Imported describes what an import created.
type Imported struct {
	// Nodes are the root nodes created by the import.
	Nodes []string
}

// PlayblastRequest asks the host to render the viewport.
type PlayblastRequest struct {
	// Dir receives the numbered image sequence for movie previews.
	Dir string
	// Name prefixes the sequence frames.
	Name string
	// Camera is the camera to render through, empty for the active one.
	Camera string
	// Scale multiplies the scene resolution.
	Scale float64
	// Thumbnail renders a single still image to Output instead of a sequence.
	Thumbnail bool
	Output    string
}

// Playblast describes a rendered viewport capture.
type Playblast struct {
	// Pattern is the printf-style frame pattern, numbered from 1.
	Pattern   string
	Frames    int
	Sound     string
	Framerate float64
}

// Host is the application command layer.
type Host interface {
	// CurrentFile returns the scene currently open, empty when untitled.
	CurrentFile() string
	Save(ctx context.Context, path string) error
	Open(ctx context.Context, path string) error
	Import(ctx context.Context, req ImportRequest) (Imported, error)
	Playblast(ctx context.Context, req PlayblastRequest) (Playblast, error)
	SetAttribute(ctx context.Context, node, name string, value any) Result
}
