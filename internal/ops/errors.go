package ops

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrMalformedName marks paths that do not follow the naming grammar.
	ErrMalformedName = errors.New("malformed name")
	// ErrNotAnItem marks paths that do not resolve to a registry item.
	ErrNotAnItem = errors.New("not an item")
	// ErrIO marks version or metadata writes that failed.
	ErrIO = errors.New("io failure")
	// ErrNoVersionsFound is informational: the file has no version history.
	ErrNoVersionsFound = errors.New("no versions found")
	// ErrCanceled reports that the user dismissed a dialog.
	ErrCanceled      = errors.New("canceled")
	ErrExternalTool  = errors.New("external tool error")
	ErrConfiguration = errors.New("configuration error")
	ErrValidation    = errors.New("validation error")
)

// Wrap builds an error message that includes component context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrIO
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Kind maps an error to the short name of its marker for CLI and log output.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrCanceled):
		return "canceled"
	case errors.Is(err, ErrMalformedName):
		return "malformed_name"
	case errors.Is(err, ErrNotAnItem):
		return "not_an_item"
	case errors.Is(err, ErrNoVersionsFound):
		return "no_versions_found"
	case errors.Is(err, ErrExternalTool):
		return "external_tool"
	case errors.Is(err, ErrConfiguration):
		return "configuration"
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrIO):
		return "io_failure"
	default:
		return "unknown"
	}
}

// Informational reports errors that should be shown to the user as a notice
// instead of a failure.
func Informational(err error) bool {
	return errors.Is(err, ErrNoVersionsFound) || errors.Is(err, ErrCanceled)
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "operation failure"
	}
	return strings.Join(parts, ": ")
}
