package workflow

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"atelier/internal/host"
	"atelier/internal/logging"
	"atelier/internal/metadata"
	"atelier/internal/naming"
	"atelier/internal/ops"
	"atelier/internal/transcode"
)

// PreviewResult describes a rendered preview.
type PreviewResult struct {
	Path        string
	VersionFile string
	Version     int
	Frames      int
}

// Preview renders the open scene to the preview folder, as an mp4 movie or a
// png thumbnail, and links it to the latest snapshot. The comment, when given,
// becomes part of the preview name.
func (m *Manager) Preview(ctx context.Context) (PreviewResult, error) {
	current, err := m.currentFile("preview")
	if err != nil {
		return PreviewResult{}, err
	}
	ctx, logger := m.begin(ctx, "preview", current)

	saveFilePath, id, err := m.saveTarget(ctx, logger, current)
	if err != nil {
		return PreviewResult{}, err
	}
	latest, ok, err := m.versions.LatestVersion(saveFilePath, false)
	if err != nil {
		return PreviewResult{}, err
	}
	if !ok {
		return PreviewResult{}, ops.Wrap(ops.ErrNoVersionsFound, "workflow", "preview",
			"save the scene before rendering a preview", nil)
	}

	options, err := m.dialogs.PreviewOptions(ctx)
	if err != nil {
		return PreviewResult{}, err
	}
	if !options.Thumbnail && m.encoder == nil {
		return PreviewResult{}, ops.Wrap(ops.ErrConfiguration, "workflow", "preview", "no movie encoder configured", nil)
	}

	folder, err := m.versions.PreviewFolder(saveFilePath)
	if err != nil {
		return PreviewResult{}, err
	}
	target, err := previewPath(folder, id, options)
	if err != nil {
		return PreviewResult{}, err
	}

	result := PreviewResult{
		Path:        target,
		VersionFile: latest.Path,
		Version:     latest.Version(),
	}
	if options.Thumbnail {
		blast, err := m.host.Playblast(ctx, host.PlayblastRequest{
			Camera:    options.Camera,
			Scale:     options.Scale,
			Thumbnail: true,
			Output:    target,
		})
		if err != nil {
			return PreviewResult{}, err
		}
		result.Frames = blast.Frames
	} else {
		frames, err := m.renderMovie(ctx, options, target)
		if err != nil {
			return PreviewResult{}, err
		}
		result.Frames = frames
	}

	comment, err := m.meta.Comment(ctx, latest.Path)
	if err != nil {
		return PreviewResult{}, err
	}
	values := map[string]any{
		metadata.KeyVersion:         latest.Version(),
		metadata.KeyVersionFilePath: latest.Path,
	}
	if comment != "" {
		values[metadata.KeyComment] = comment
	}
	if err := m.meta.SetValues(ctx, target, values); err != nil {
		return PreviewResult{}, err
	}
	logger.InfoContext(ctx, "preview rendered",
		logging.String("preview", target),
		logging.Int("version", result.Version),
		logging.Int("frames", result.Frames))
	return result, nil
}

// renderMovie playblasts into a scratch folder and encodes the sequence.
func (m *Manager) renderMovie(ctx context.Context, options PreviewOptions, target string) (int, error) {
	scratch, err := os.MkdirTemp("", "atelier-playblast-")
	if err != nil {
		return 0, ops.Wrap(ops.ErrIO, "workflow", "preview", "create playblast folder", err)
	}
	defer os.RemoveAll(scratch)

	blast, err := m.host.Playblast(ctx, host.PlayblastRequest{
		Dir:    scratch,
		Name:   "blast",
		Camera: options.Camera,
		Scale:  options.Scale,
	})
	if err != nil {
		return 0, err
	}
	if err := m.encoder.Encode(ctx, transcode.Request{
		Pattern:   blast.Pattern,
		Sound:     blast.Sound,
		Framerate: blast.Framerate,
		Output:    target,
	}); err != nil {
		return 0, err
	}
	return blast.Frames, nil
}

// previewPath names a preview after the working file, with the comment folded
// into the resource: proj_anim_sh010-blocking-pass.mp4.
func previewPath(folder string, id naming.Identity, options PreviewOptions) (string, error) {
	preview := id.Canonical()
	preview.Resource = previewResource(preview.Resource, options.Comment)
	preview.Extension = "mp4"
	if options.Thumbnail {
		preview.Extension = "png"
	}
	name, err := naming.ComposeFileName(preview)
	if err != nil {
		return "", err
	}
	return filepath.Join(folder, name), nil
}

func previewResource(resource, comment string) string {
	token := naming.SuggestToken(comment)
	switch {
	case token == "":
		return resource
	case strings.TrimSpace(resource) == "":
		return token
	default:
		return resource + "-" + token
	}
}
