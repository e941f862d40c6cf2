package host

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"

	"atelier/internal/fileutil"
	"atelier/internal/logging"
	"atelier/internal/ops"
)

const framePattern = "*.{png,jpg,jpeg,tif,tiff,exr}"

// DiskOption configures a Disk host.
type DiskOption func(*Disk)

// WithFrames points playblasts at a folder of already rendered frames.
func WithFrames(dir string) DiskOption {
	return func(d *Disk) { d.frames = dir }
}

// WithSound attaches a soundtrack to movie playblasts.
func WithSound(path string) DiskOption {
	return func(d *Disk) { d.sound = path }
}

// WithFramerate sets the framerate reported with playblasts.
func WithFramerate(fps float64) DiskOption {
	return func(d *Disk) { d.framerate = fps }
}

// Disk is the host used outside any application. The scene is the file on
// disk: saving copies it to the target path, and imports only keep track of
// the nodes they would have created so attribute writes can be checked.
type Disk struct {
	logger    *slog.Logger
	frames    string
	sound     string
	framerate float64

	mu      sync.Mutex
	current string
	nodes   map[string]map[string]any
}

// NewDisk returns a Disk host with current as the open scene.
func NewDisk(current string, logger *slog.Logger, opts ...DiskOption) *Disk {
	d := &Disk{
		logger:  logging.NewComponentLogger(logger, "host"),
		current: cleanPath(current),
		nodes:   make(map[string]map[string]any),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func cleanPath(path string) string {
	if strings.TrimSpace(path) == "" {
		return ""
	}
	return filepath.Clean(path)
}

func (d *Disk) CurrentFile() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.current
}

// Save writes the current scene to path. Saving onto itself only checks the
// file is there.
func (d *Disk) Save(ctx context.Context, path string) error {
	path = cleanPath(path)
	if path == "" {
		return ops.Wrap(ops.ErrValidation, "host", "save", "target path required", nil)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.current == "" {
		return ops.Wrap(ops.ErrValidation, "host", "save", "no scene is open", nil)
	}
	if d.current != path {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return ops.Wrap(ops.ErrIO, "host", "save", path, err)
		}
		if _, err := fileutil.CopyFileVerified(d.current, path); err != nil {
			return ops.Wrap(ops.ErrIO, "host", "save", path, err)
		}
	} else if ok, err := fileutil.Exists(path); err != nil || !ok {
		return ops.Wrap(ops.ErrIO, "host", "save", fmt.Sprintf("%s is missing", path), err)
	}
	d.logger.DebugContext(ctx, "scene saved", logging.String("from", d.current), logging.String("to", path))
	d.current = path
	return nil
}

func (d *Disk) Open(ctx context.Context, path string) error {
	path = cleanPath(path)
	ok, err := fileutil.Exists(path)
	if err != nil || !ok {
		return ops.Wrap(ops.ErrIO, "host", "open", fmt.Sprintf("%s does not exist", path), err)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.current = path
	d.nodes = make(map[string]map[string]any)
	d.logger.DebugContext(ctx, "scene opened", logging.String("path", path))
	return nil
}

// Import registers the root node the import would create, named
// "<group>|<namespace>:<file>".
func (d *Disk) Import(ctx context.Context, req ImportRequest) (Imported, error) {
	ok, err := fileutil.Exists(req.Path)
	if err != nil || !ok {
		return Imported{}, ops.Wrap(ops.ErrIO, "host", "import", fmt.Sprintf("%s does not exist", req.Path), err)
	}
	base := strings.TrimSuffix(filepath.Base(req.Path), filepath.Ext(req.Path))
	node := base
	if req.Namespace != "" {
		node = req.Namespace + ":" + node
	}
	if req.Group != "" {
		node = req.Group + "|" + node
	}
	d.mu.Lock()
	d.nodes[node] = make(map[string]any)
	d.mu.Unlock()
	d.logger.InfoContext(ctx, "file imported", logging.String("source", req.Path), logging.String("node", node))
	return Imported{Nodes: []string{node}}, nil
}

func (d *Disk) SetAttribute(_ context.Context, node, name string, value any) Result {
	d.mu.Lock()
	defer d.mu.Unlock()
	attrs, ok := d.nodes[node]
	if !ok {
		return Skipped(fmt.Sprintf("node %s is not in the scene", node))
	}
	if strings.TrimSpace(name) == "" {
		return Skipped("empty attribute name")
	}
	attrs[name] = value
	return Applied()
}

// Attributes returns a copy of the attributes set on node.
func (d *Disk) Attributes(node string) map[string]any {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make(map[string]any, len(d.nodes[node]))
	for k, v := range d.nodes[node] {
		out[k] = v
	}
	return out
}

// Playblast copies the frames folder into a sequence numbered from 1, or its
// first frame to req.Output for thumbnails.
func (d *Disk) Playblast(ctx context.Context, req PlayblastRequest) (Playblast, error) {
	if d.frames == "" {
		return Playblast{}, ops.Wrap(ops.ErrValidation, "host", "playblast", "no rendered frames available", nil)
	}
	frames, err := doublestar.Glob(os.DirFS(d.frames), framePattern)
	if err != nil {
		return Playblast{}, ops.Wrap(ops.ErrIO, "host", "playblast", d.frames, err)
	}
	if len(frames) == 0 {
		return Playblast{}, ops.Wrap(ops.ErrValidation, "host", "playblast", fmt.Sprintf("no frames in %s", d.frames), nil)
	}
	sort.Strings(frames)

	if req.Thumbnail {
		if err := os.MkdirAll(filepath.Dir(req.Output), 0o755); err != nil {
			return Playblast{}, ops.Wrap(ops.ErrIO, "host", "thumbnail", req.Output, err)
		}
		if err := fileutil.CopyFile(filepath.Join(d.frames, frames[0]), req.Output); err != nil {
			return Playblast{}, ops.Wrap(ops.ErrIO, "host", "thumbnail", req.Output, err)
		}
		return Playblast{Frames: 1}, nil
	}

	name := req.Name
	if name == "" {
		name = "blast"
	}
	ext := strings.ToLower(filepath.Ext(frames[0]))
	if err := os.MkdirAll(req.Dir, 0o755); err != nil {
		return Playblast{}, ops.Wrap(ops.ErrIO, "host", "playblast", req.Dir, err)
	}
	count := 0
	for _, frame := range frames {
		if strings.ToLower(filepath.Ext(frame)) != ext {
			continue
		}
		count++
		target := filepath.Join(req.Dir, fmt.Sprintf("%s.%05d%s", name, count, ext))
		if err := fileutil.CopyFile(filepath.Join(d.frames, frame), target); err != nil {
			return Playblast{}, ops.Wrap(ops.ErrIO, "host", "playblast", target, err)
		}
	}
	d.logger.DebugContext(ctx, "playblast rendered", logging.Int("frames", count), logging.String("dir", req.Dir))
	return Playblast{
		Pattern:   filepath.Join(req.Dir, name+".%05d"+ext),
		Frames:    count,
		Sound:     d.sound,
		Framerate: d.framerate,
	}, nil
}

var _ Host = (*Disk)(nil)
