package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"atelier/internal/host"
	"atelier/internal/logging"
	"atelier/internal/naming"
	"atelier/internal/ops"
	"atelier/internal/registry"
)

// attributePrefix namespaces the attributes stamped on imported nodes.
const attributePrefix = "atelier"

// Attribute names stamped on imported root nodes.
const (
	AttrManaged    = attributePrefix + "Managed"
	AttrSourceFile = attributePrefix + "SourceFile"
	AttrTimeStamp  = attributePrefix + "TimeStamp"
	AttrVersion    = attributePrefix + "Version"
	AttrState      = attributePrefix + "State"
	AttrStep       = attributePrefix + "Step"
	AttrItem       = attributePrefix + "Item"
	AttrItemType   = attributePrefix + "ItemType"
	AttrAssetGroup = attributePrefix + "AssetGroup"
	AttrResource   = attributePrefix + "Resource"
)

// defaultImportExtensions are tried in order when resolving a step's default
// published file.
var defaultImportExtensions = []string{"ma", "mb"}

// ImportedFile describes one imported file and the attributes stamped on its
// nodes.
type ImportedFile struct {
	Path      string
	Namespace string
	Group     string
	Nodes     []string
	// Attributes holds the outcome of every attribute write, per node.
	Attributes map[string]map[string]host.Result
}

// ImportResult lists every file brought into the scene.
type ImportResult struct {
	Files []ImportedFile
}

// Skipped counts attribute writes the host did not apply.
func (r ImportResult) Skipped() int {
	n := 0
	for _, file := range r.Files {
		for _, attrs := range file.Attributes {
			for _, res := range attrs {
				if !res.Applied {
					n++
				}
			}
		}
	}
	return n
}

// Import brings the selected published files into the open scene. Without an
// explicit file list the step's default published file is used. Every root
// node created is tagged with its origin; tagging is best effort.
func (m *Manager) Import(ctx context.Context) (ImportResult, error) {
	current := m.host.CurrentFile()
	ctx, logger := m.begin(ctx, "import", current)

	project, _ := m.registry.CurrentProject()
	selection, err := m.dialogs.ImportSelection(ctx, project)
	if err != nil {
		return ImportResult{}, err
	}

	files := selection.Files
	if len(files) == 0 {
		if selection.Item.Folder == "" || selection.Step == "" {
			return ImportResult{}, ops.Wrap(ops.ErrValidation, "workflow", "import",
				"select files or an item and step", nil)
		}
		file, err := m.defaultImportFile(selection.Item, selection.Step)
		if err != nil {
			return ImportResult{}, err
		}
		files = []string{file}
	}

	var result ImportResult
	for _, file := range files {
		imported, err := m.importFile(ctx, logger, filepath.Clean(file), selection)
		if err != nil {
			return result, err
		}
		result.Files = append(result.Files, imported)
	}
	logger.InfoContext(ctx, "import complete",
		logging.Int("files", len(result.Files)),
		logging.Int("skipped_attributes", result.Skipped()))
	return result, nil
}

// defaultImportFile finds project_step.ma (or .mb) in the publish folder of
// the item's step folder.
func (m *Manager) defaultImportFile(item registry.Item, step string) (string, error) {
	stepFolder, err := item.StepFolder(step)
	if err != nil {
		return "", err
	}
	folder := filepath.Join(stepFolder, m.cfg.Naming.PublishFolder)
	for _, ext := range defaultImportExtensions {
		name, err := naming.ComposeFileName(naming.Identity{
			Project:   item.Project,
			Step:      step,
			Version:   naming.Unversioned,
			Extension: ext,
		})
		if err != nil {
			return "", err
		}
		candidate := filepath.Join(folder, name)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, nil
		}
	}
	return "", ops.Wrap(ops.ErrValidation, "workflow", "import",
		fmt.Sprintf("no published file for step %s in %s", step, folder), nil)
}

func (m *Manager) importFile(ctx context.Context, logger *slog.Logger, file string, selection ImportSelection) (ImportedFile, error) {
	info, err := os.Stat(file)
	if err != nil {
		return ImportedFile{}, ops.Wrap(ops.ErrIO, "workflow", "import", file, err)
	}
	id, err := m.versions.Codec().DecomposeFilePath(file)
	if err != nil {
		return ImportedFile{}, err
	}

	item := selection.Item
	if item.ShortName == "" {
		resolved, err := m.registry.ItemFromPath(file)
		switch {
		case err == nil:
			item = resolved
		case errors.Is(err, ops.ErrNotAnItem):
			logger.WarnContext(ctx, "imported file does not belong to an item",
				logging.String(logging.FieldEventType, "not_an_item"),
				logging.String("file", file))
		default:
			return ImportedFile{}, err
		}
	}
	resource := selection.Resource
	if resource == "" {
		resource = id.Resource
	}

	imported := ImportedFile{
		Path:       file,
		Namespace:  importNamespace(item, resource),
		Group:      importGroup(item),
		Attributes: make(map[string]map[string]host.Result),
	}
	nodes, err := m.host.Import(ctx, host.ImportRequest{
		Path:      file,
		Namespace: imported.Namespace,
		Group:     imported.Group,
	})
	if err != nil {
		return ImportedFile{}, err
	}
	imported.Nodes = nodes.Nodes

	version, err := m.meta.Version(ctx, file)
	if err != nil {
		return ImportedFile{}, err
	}
	state, err := m.meta.State(ctx, file)
	if err != nil {
		return ImportedFile{}, err
	}
	if state == "" {
		state = id.State
	}
	attributes := []struct {
		name  string
		value any
	}{
		{AttrManaged, true},
		{AttrSourceFile, file},
		{AttrTimeStamp, info.ModTime().Unix()},
		{AttrVersion, version},
		{AttrState, state},
		{AttrStep, id.Step},
		{AttrItem, item.ShortName},
		{AttrItemType, string(item.Type)},
		{AttrAssetGroup, item.Group},
		{AttrResource, resource},
	}
	for _, node := range imported.Nodes {
		results := make(map[string]host.Result, len(attributes))
		for _, attr := range attributes {
			res := m.host.SetAttribute(ctx, node, attr.name, attr.value)
			if !res.Applied {
				logger.WarnContext(ctx, "attribute not set",
					logging.String("node", node),
					logging.String("attribute", attr.name),
					logging.String("reason", res.Reason))
			}
			results[attr.name] = res
		}
		imported.Attributes[node] = results
	}
	return imported, nil
}

// importNamespace names the namespace of an import after the item. A purely
// numeric short name gets the item type letter in front since namespaces may
// not start with a digit. General items are namespaced by resource.
func importNamespace(item registry.Item, resource string) string {
	name := item.ShortName
	if item.Type == naming.ItemGeneral && resource != "" {
		name = resource
	}
	if name == "" {
		name = resource
	}
	if name == "" {
		return "imported"
	}
	if strings.Trim(name, "0123456789") == "" && item.Type != naming.ItemNone {
		name = string(item.Type) + name
	}
	return name
}

// importGroup names the scene group holding an import.
func importGroup(item registry.Item) string {
	switch item.Type {
	case naming.ItemAsset:
		if item.Group != "" {
			return "ASSETS_" + item.Group
		}
		return "ASSETS"
	case naming.ItemShot:
		return "SHOTS"
	default:
		return "ITEMS"
	}
}
