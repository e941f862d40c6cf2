package naming

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"atelier/internal/ops"
)

const (
	separator     = "_"
	versionPrefix = "v"
	versionWidth  = 3
)

var (
	tokenPattern     = regexp.MustCompile(`^[A-Za-z0-9-]+$`)
	resourcePattern  = regexp.MustCompile(`^[A-Za-z0-9+-]+$`)
	extensionPattern = regexp.MustCompile(`^[A-Za-z0-9]+$`)
	versionPattern   = regexp.MustCompile(`^v(\d{3,})$`)
)

func malformed(operation, format string, args ...any) error {
	return ops.Wrap(ops.ErrMalformedName, "naming", operation, fmt.Sprintf(format, args...), nil)
}

// ValidToken reports whether s may be used as a project, step, state, or item
// short name.
func ValidToken(s string) bool {
	return tokenPattern.MatchString(s)
}

// DecomposeFileName parses a bare file name against the canonical grammar:
//
//	project_step[_resource...]_state_vNNN.ext
//	project_step[_resource...].ext
//
// Item context is left empty; use Codec.DecomposeFilePath to infer it.
func DecomposeFileName(name string) (Identity, error) {
	name = strings.TrimSpace(name)
	if name == "" || strings.ContainsAny(name, `/\`) {
		return Identity{}, malformed("decompose", "%q is not a file name", name)
	}
	dot := strings.LastIndex(name, ".")
	if dot <= 0 || dot == len(name)-1 {
		return Identity{}, malformed("decompose", "%q has no extension", name)
	}
	base, ext := name[:dot], name[dot+1:]
	if !extensionPattern.MatchString(ext) {
		return Identity{}, malformed("decompose", "%q has an invalid extension", name)
	}

	tokens := strings.Split(base, separator)
	if len(tokens) < 2 {
		return Identity{}, malformed("decompose", "%q is missing project or step", name)
	}
	id := Identity{
		Project:   tokens[0],
		Step:      tokens[1],
		Version:   Unversioned,
		Extension: ext,
	}
	if !ValidToken(id.Project) || !ValidToken(id.Step) {
		return Identity{}, malformed("decompose", "%q has an invalid project or step", name)
	}

	rest := tokens[2:]
	if n := len(rest); n > 0 {
		if m := versionPattern.FindStringSubmatch(rest[n-1]); m != nil {
			if n < 2 {
				return Identity{}, malformed("decompose", "%q has a version but no state", name)
			}
			version, err := strconv.Atoi(m[1])
			if err != nil || version < 1 {
				return Identity{}, malformed("decompose", "%q has an invalid version", name)
			}
			id.Version = version
			id.State = rest[n-2]
			if !ValidToken(id.State) {
				return Identity{}, malformed("decompose", "%q has an invalid state", name)
			}
			rest = rest[:n-2]
		}
	}
	for _, token := range rest {
		if !resourcePattern.MatchString(token) {
			return Identity{}, malformed("decompose", "%q has an invalid resource", name)
		}
	}
	id.Resource = strings.Join(rest, separator)
	return id, nil
}

// ComposeFileName is the inverse of DecomposeFileName. The version token is
// omitted for unversioned identities and the resource when it is empty.
// Versions are zero padded to three digits.
func ComposeFileName(id Identity) (string, error) {
	if !ValidToken(id.Project) {
		return "", malformed("compose", "invalid project %q", id.Project)
	}
	if !ValidToken(id.Step) {
		return "", malformed("compose", "invalid step %q", id.Step)
	}
	if !extensionPattern.MatchString(id.Extension) {
		return "", malformed("compose", "invalid extension %q", id.Extension)
	}
	if id.ItemShortName != "" && !ValidToken(id.ItemShortName) {
		return "", malformed("compose", "invalid item short name %q", id.ItemShortName)
	}

	parts := []string{id.Project, id.Step}
	if id.Resource != "" {
		resourceTokens := strings.Split(id.Resource, separator)
		for _, token := range resourceTokens {
			if !resourcePattern.MatchString(token) {
				return "", malformed("compose", "invalid resource %q", id.Resource)
			}
		}
		if !id.Versioned() && versionPattern.MatchString(resourceTokens[len(resourceTokens)-1]) {
			return "", malformed("compose", "resource %q would read as a version", id.Resource)
		}
		parts = append(parts, id.Resource)
	}

	if id.Versioned() {
		if id.Version < 1 {
			return "", malformed("compose", "invalid version %d", id.Version)
		}
		if !ValidToken(id.State) {
			return "", malformed("compose", "invalid state %q", id.State)
		}
		parts = append(parts, id.State, FormatVersion(id.Version))
	}
	return strings.Join(parts, separator) + "." + id.Extension, nil
}

// FormatVersion renders the version token, e.g. v007.
func FormatVersion(version int) string {
	return fmt.Sprintf("%s%0*d", versionPrefix, versionWidth, version)
}

// BuildPath joins path segments with the platform separator, dropping empty
// segments and collapsing duplicate separators.
func BuildPath(segments ...string) string {
	kept := make([]string, 0, len(segments))
	for _, segment := range segments {
		if segment != "" {
			kept = append(kept, segment)
		}
	}
	if len(kept) == 0 {
		return ""
	}
	return filepath.Join(kept...)
}
