package naming

import (
	"fmt"
	"strings"
)

// Unversioned marks an identity whose file name carries no version token.
const Unversioned = -1

// ItemType classifies the production item that owns a file.
type ItemType string

const (
	ItemNone    ItemType = ""
	ItemAsset   ItemType = "A"
	ItemShot    ItemType = "S"
	ItemGeneral ItemType = "G"
)

// String returns a human readable item type.
func (t ItemType) String() string {
	switch t {
	case ItemAsset:
		return "asset"
	case ItemShot:
		return "shot"
	case ItemGeneral:
		return "item"
	default:
		return "none"
	}
}

// ParseItemType maps the single-letter folder code to an ItemType.
func ParseItemType(code string) (ItemType, bool) {
	switch ItemType(strings.ToUpper(code)) {
	case ItemAsset:
		return ItemAsset, true
	case ItemShot:
		return ItemShot, true
	case ItemGeneral:
		return ItemGeneral, true
	default:
		return ItemNone, false
	}
}

// Identity is the decoded form of a canonical file name plus the item
// context inferred from its folders.
type Identity struct {
	Project       string
	Step          string
	Resource      string
	Version       int
	State         string
	ItemType      ItemType
	ItemShortName string
	Extension     string
}

// Versioned reports whether the identity carries a version token.
func (id Identity) Versioned() bool {
	return id.Version != Unversioned
}

// SameLineage reports whether two identities describe snapshots of the same
// working file. Extensions are ignored so a .ma and .mb history share numbers.
func (id Identity) SameLineage(other Identity) bool {
	return strings.EqualFold(id.Project, other.Project) &&
		strings.EqualFold(id.Step, other.Step) &&
		id.Resource == other.Resource
}

// WithVersion returns a copy carrying the given version and state.
func (id Identity) WithVersion(version int, state string) Identity {
	id.Version = version
	id.State = state
	if version == Unversioned {
		id.State = ""
	}
	return id
}

// Canonical returns the unversioned working identity.
func (id Identity) Canonical() Identity {
	return id.WithVersion(Unversioned, "")
}

func (id Identity) String() string {
	name, err := ComposeFileName(id)
	if err != nil {
		return fmt.Sprintf("%s_%s(invalid)", id.Project, id.Step)
	}
	return name
}
