package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"atelier/internal/fileutil"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	LogDir       string `toml:"log_dir"`
	StateDir     string `toml:"state_dir"`
	ProjectsRoot string `toml:"projects_root"`
}

// Naming contains the conventional folder names and codes used by the file
// naming scheme.
type Naming struct {
	VersionsFolder string `toml:"versions_folder"`
	PublishFolder  string `toml:"publish_folder"`
	PreviewFolder  string `toml:"preview_folder"`
	DefaultState   string `toml:"default_state"`
	RestoredMarker string `toml:"restored_marker"`
}

// Versions contains configuration for the version history.
type Versions struct {
	// AutoIncrementTimeout is the age in minutes after which a save forces a
	// new version instead of overwriting the latest one.
	AutoIncrementTimeout int `toml:"auto_increment_timeout"`
	// HashMirror enables content comparison when excluding the working file's
	// mirror from the latest-version query.
	HashMirror bool `toml:"hash_mirror"`
}

// Metadata contains configuration for the out-of-band metadata store.
type Metadata struct {
	Backend     string `toml:"backend"`
	SidecarName string `toml:"sidecar_name"`
	DBPath      string `toml:"db_path"`
}

// Registry contains configuration for the offline project registry.
type Registry struct {
	ProjectsFile   string `toml:"projects_file"`
	CurrentProject string `toml:"current_project"`
}

// Preview contains configuration for preview rendering.
type Preview struct {
	FFmpegBinary string `toml:"ffmpeg_binary"`
	Framerate    int    `toml:"framerate"`
	CRF          int    `toml:"crf"`
	Preset       string `toml:"preset"`
	Timeout      int    `toml:"timeout"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for Atelier.
//
// Configuration sections by subsystem:
//   - Paths: log, state and project directories
//   - Naming: reserved folder names, default state and restored marker
//   - Versions: auto-increment timeout
//   - Metadata: sidecar or sqlite backend selection
//   - Registry: offline projects file
//   - Preview: ffmpeg settings for playblast transcoding
//   - Logging: log format and level
type Config struct {
	Paths    Paths    `toml:"paths"`
	Naming   Naming   `toml:"naming"`
	Versions Versions `toml:"versions"`
	Metadata Metadata `toml:"metadata"`
	Registry Registry `toml:"registry"`
	Preview  Preview  `toml:"preview"`
	Logging  Logging  `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/atelier/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

// projectConfigName is a per-show override searched from the working
// directory upwards.
const projectConfigName = "atelier.toml"

// resolveConfigPath picks the config file in order: the explicit path,
// $ATELIER_CONFIG, the nearest atelier.toml above the working directory, then
// the user config. Only the last may be missing without being an error later.
func resolveConfigPath(path string) (string, bool, error) {
	if path == "" {
		path = strings.TrimSpace(os.Getenv("ATELIER_CONFIG"))
	}
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		exists, err := fileutil.Exists(expanded)
		if err != nil {
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, exists, nil
	}

	if wd, err := os.Getwd(); err == nil {
		if local, ok := findUpward(wd, projectConfigName); ok {
			return local, true, nil
		}
	}

	userPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}
	exists, err := fileutil.Exists(userPath)
	if err != nil {
		return "", false, fmt.Errorf("stat config: %w", err)
	}
	return userPath, exists, nil
}

func findUpward(dir, name string) (string, bool) {
	for {
		candidate := filepath.Join(dir, name)
		if ok, _ := fileutil.Exists(candidate); ok {
			return candidate, true
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false
		}
		dir = parent
	}
}

// EnsureDirectories creates the log and state directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.LogDir, c.Paths.StateDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// ReservedFolders lists the folder names owned by the pipeline. Working files
// never live inside them.
func (c *Config) ReservedFolders() []string {
	return []string{c.Naming.VersionsFolder, c.Naming.PublishFolder, c.Naming.PreviewFolder}
}

// AutoIncrementTimeout returns the staleness timeout as a duration.
func (c *Config) AutoIncrementTimeout() time.Duration {
	return time.Duration(c.Versions.AutoIncrementTimeout) * time.Minute
}

// PreviewTimeout returns the transcoder timeout as a duration.
func (c *Config) PreviewTimeout() time.Duration {
	return time.Duration(c.Preview.Timeout) * time.Second
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
