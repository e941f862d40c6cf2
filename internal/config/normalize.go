package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeNaming()
	if err := c.normalizeMetadata(); err != nil {
		return err
	}
	if err := c.normalizeRegistry(); err != nil {
		return err
	}
	c.normalizePreview()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if c.Paths.ProjectsRoot == "" {
		if value, ok := os.LookupEnv("ATELIER_PROJECTS_ROOT"); ok {
			c.Paths.ProjectsRoot = value
		}
	}
	if c.Paths.ProjectsRoot, err = expandPath(strings.TrimSpace(c.Paths.ProjectsRoot)); err != nil {
		return fmt.Errorf("paths.projects_root: %w", err)
	}
	return nil
}

func (c *Config) normalizeNaming() {
	c.Naming.VersionsFolder = strings.TrimSpace(c.Naming.VersionsFolder)
	if c.Naming.VersionsFolder == "" {
		c.Naming.VersionsFolder = defaultVersionsFolder
	}
	c.Naming.PublishFolder = strings.TrimSpace(c.Naming.PublishFolder)
	if c.Naming.PublishFolder == "" {
		c.Naming.PublishFolder = defaultPublishFolder
	}
	c.Naming.PreviewFolder = strings.TrimSpace(c.Naming.PreviewFolder)
	if c.Naming.PreviewFolder == "" {
		c.Naming.PreviewFolder = defaultPreviewFolder
	}
	c.Naming.DefaultState = strings.TrimSpace(c.Naming.DefaultState)
	if c.Naming.DefaultState == "" {
		c.Naming.DefaultState = defaultState
	}
	c.Naming.RestoredMarker = strings.TrimSpace(c.Naming.RestoredMarker)
	if c.Naming.RestoredMarker == "" {
		c.Naming.RestoredMarker = defaultRestoredMarker
	}
}

func (c *Config) normalizeMetadata() error {
	c.Metadata.Backend = strings.ToLower(strings.TrimSpace(c.Metadata.Backend))
	if c.Metadata.Backend == "" {
		c.Metadata.Backend = defaultMetadataBackend
	}
	c.Metadata.SidecarName = strings.TrimSpace(c.Metadata.SidecarName)
	if c.Metadata.SidecarName == "" {
		c.Metadata.SidecarName = defaultSidecarName
	}
	if strings.TrimSpace(c.Metadata.DBPath) == "" {
		c.Metadata.DBPath = filepath.Join(c.Paths.StateDir, defaultMetadataDBName)
	}
	var err error
	if c.Metadata.DBPath, err = expandPath(c.Metadata.DBPath); err != nil {
		return fmt.Errorf("metadata.db_path: %w", err)
	}
	return nil
}

func (c *Config) normalizeRegistry() error {
	if strings.TrimSpace(c.Registry.ProjectsFile) == "" {
		c.Registry.ProjectsFile = defaultProjectsFile
	}
	var err error
	if c.Registry.ProjectsFile, err = expandPath(c.Registry.ProjectsFile); err != nil {
		return fmt.Errorf("registry.projects_file: %w", err)
	}
	c.Registry.CurrentProject = strings.TrimSpace(c.Registry.CurrentProject)
	return nil
}

func (c *Config) normalizePreview() {
	c.Preview.FFmpegBinary = strings.TrimSpace(c.Preview.FFmpegBinary)
	if c.Preview.FFmpegBinary == "" {
		c.Preview.FFmpegBinary = defaultFFmpegBinary
	}
	c.Preview.Preset = strings.TrimSpace(c.Preview.Preset)
	if c.Preview.Preset == "" {
		c.Preview.Preset = defaultPreviewPreset
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
