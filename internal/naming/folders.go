package naming

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"atelier/internal/ops"
)

// Codec decodes full paths. It knows which folder names are reserved by the
// pipeline so item inference can look past them, and how restored working
// files are marked.
type Codec struct {
	reserved       map[string]struct{}
	restoredMarker string
	restoredRe     *regexp.Regexp
}

// NewCodec builds a Codec. restoredMarker is the text between the '+' signs of
// a restored resource suffix, before the version digits (e.g. "restored-v").
func NewCodec(reservedFolders []string, restoredMarker string) *Codec {
	c := &Codec{
		reserved:       make(map[string]struct{}, len(reservedFolders)),
		restoredMarker: restoredMarker,
	}
	for _, name := range reservedFolders {
		if name = strings.TrimSpace(name); name != "" {
			c.reserved[name] = struct{}{}
		}
	}
	c.restoredRe = regexp.MustCompile(`\+` + regexp.QuoteMeta(restoredMarker) + `(\d+)\+$`)
	return c
}

// IsReserved reports whether a single folder name belongs to the pipeline.
func (c *Codec) IsReserved(folder string) bool {
	_, ok := c.reserved[folder]
	return ok
}

// DecomposeFilePath parses the file name of path and infers the owning item
// from the nearest item or step folder above it. Reserved folders are skipped
// while walking up. A file with no item folder decodes with ItemNone; a folder
// naming a different project is a malformed path.
func (c *Codec) DecomposeFilePath(path string) (Identity, error) {
	id, err := DecomposeFileName(filepath.Base(path))
	if err != nil {
		return Identity{}, err
	}

	dir := filepath.Dir(filepath.Clean(path))
	for {
		name := filepath.Base(dir)
		if !c.IsReserved(name) {
			if folder, ok := ParseFolderName(name); ok {
				if !strings.EqualFold(folder.Project, id.Project) {
					return Identity{}, malformed("decompose", "%s belongs to project %s, not %s", path, folder.Project, id.Project)
				}
				id.ItemType = folder.ItemType
				id.ItemShortName = folder.ShortName
				return id, nil
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return id, nil
		}
		dir = parent
	}
}

// Folder is the decoded form of an item or step folder name.
type Folder struct {
	Project   string
	ItemType  ItemType
	ShortName string
	Step      string
}

// ParseFolderName decodes `<project>_<A|S|G>_<short>` item folders and
// `<project>_<A|S|G>_<short>_<step>` step folders.
func ParseFolderName(name string) (Folder, bool) {
	tokens := strings.Split(name, separator)
	if len(tokens) != 3 && len(tokens) != 4 {
		return Folder{}, false
	}
	itemType, ok := ParseItemType(tokens[1])
	if !ok || len(tokens[1]) != 1 {
		return Folder{}, false
	}
	folder := Folder{Project: tokens[0], ItemType: itemType, ShortName: tokens[2]}
	if len(tokens) == 4 {
		folder.Step = tokens[3]
		if !ValidToken(folder.Step) {
			return Folder{}, false
		}
	}
	if !ValidToken(folder.Project) || !ValidToken(folder.ShortName) {
		return Folder{}, false
	}
	return folder, true
}

// ItemFolderName composes the folder name of an item.
func ItemFolderName(project string, itemType ItemType, shortName string) (string, error) {
	if !ValidToken(project) || !ValidToken(shortName) || itemType == ItemNone {
		return "", ops.Wrap(ops.ErrMalformedName, "naming", "item folder", project+"/"+shortName, nil)
	}
	return strings.Join([]string{project, string(itemType), shortName}, separator), nil
}

// StepFolderName composes the folder name of an item's step.
func StepFolderName(project string, itemType ItemType, shortName, step string) (string, error) {
	item, err := ItemFolderName(project, itemType, shortName)
	if err != nil {
		return "", err
	}
	if !ValidToken(step) {
		return "", ops.Wrap(ops.ErrMalformedName, "naming", "step folder", step, nil)
	}
	return item + separator + step, nil
}

// MarkRestored appends the restored suffix for version to the resource,
// replacing any earlier suffix.
func (c *Codec) MarkRestored(id Identity, version int) Identity {
	resource := c.StripRestored(id.Resource)
	id.Resource = fmt.Sprintf("%s+%s%0*d+", resource, c.restoredMarker, versionWidth, version)
	return id
}

// RestoredVersion returns the version a restored resource was taken from.
func (c *Codec) RestoredVersion(resource string) (int, bool) {
	m := c.restoredRe.FindStringSubmatch(resource)
	if m == nil {
		return 0, false
	}
	version, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return version, true
}

// StripRestored removes a restored suffix from resource.
func (c *Codec) StripRestored(resource string) string {
	return c.restoredRe.ReplaceAllString(resource, "")
}
