package deps

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
)

// ResolveFFmpeg reports the ffmpeg binary previews will execute.
//
// An explicit path is used as is. A bare command name is looked up on PATH,
// then next to the atelier executable, which is where bundled installs ship it.
func ResolveFFmpeg(configured string) Status {
	result := Status{
		Name:        "FFmpeg",
		Description: "Transcodes playblasts into previews",
	}
	command := strings.TrimSpace(configured)
	if command == "" {
		command = "ffmpeg"
	}

	if strings.ContainsRune(command, os.PathSeparator) {
		result.Command = command
		info, err := os.Stat(command)
		if err != nil || !isExecutable(info) {
			result.Detail = fmt.Sprintf("binary %q is not executable", command)
			return result
		}
		result.Available = true
		return result
	}

	if resolved, err := exec.LookPath(command); err == nil {
		result.Command = resolved
		result.Available = true
		return result
	}

	if self, err := os.Executable(); err == nil {
		if candidate, ok := bundledCandidate(self, command); ok {
			if info, statErr := os.Stat(candidate); statErr == nil && isExecutable(info) {
				result.Command = candidate
				result.Available = true
				return result
			}
		}
	}

	result.Command = command
	result.Detail = fmt.Sprintf("binary %q not found", command)
	return result
}

func bundledCandidate(executable, name string) (string, bool) {
	if executable == "" {
		return "", false
	}
	if runtime.GOOS == "windows" && !strings.HasSuffix(name, ".exe") {
		name += ".exe"
	}
	return filepath.Join(filepath.Dir(executable), name), true
}

func isExecutable(info os.FileInfo) bool {
	if info == nil || info.IsDir() {
		return false
	}
	if runtime.GOOS == "windows" {
		return true
	}
	return info.Mode().Perm()&0o111 != 0
}
