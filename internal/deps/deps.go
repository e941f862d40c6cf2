package deps

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Status reports the availability of a dependency or directory.
type Status struct {
	Name        string
	Command     string
	Description string
	Available   bool
	Detail      string
}

// CheckDirectory reports whether dir exists and accepts new files. The probe
// file is removed again.
func CheckDirectory(name, dir string) Status {
	status := Status{Name: name, Command: dir, Description: "directory"}
	if strings.TrimSpace(dir) == "" {
		status.Detail = "not configured"
		return status
	}
	info, err := os.Stat(dir)
	if err != nil {
		status.Detail = err.Error()
		return status
	}
	if !info.IsDir() {
		status.Detail = "not a directory"
		return status
	}
	probe, err := os.CreateTemp(dir, ".atelier-probe-*")
	if err != nil {
		status.Detail = fmt.Sprintf("not writable: %v", err)
		return status
	}
	probePath := probe.Name()
	_ = probe.Close()
	_ = os.Remove(filepath.Clean(probePath))
	status.Available = true
	return status
}
