package config

import (
	"errors"
	"fmt"
	"strings"

	"atelier/internal/naming"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateNaming(); err != nil {
		return err
	}
	if err := c.validateVersions(); err != nil {
		return err
	}
	if err := c.validateMetadata(); err != nil {
		return err
	}
	if err := c.validatePreview(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateNaming() error {
	folders := map[string]string{
		"naming.versions_folder": c.Naming.VersionsFolder,
		"naming.publish_folder":  c.Naming.PublishFolder,
		"naming.preview_folder":  c.Naming.PreviewFolder,
	}
	seen := make(map[string]string, len(folders))
	for key, value := range folders {
		if strings.ContainsAny(value, `/\`) {
			return fmt.Errorf("%s must be a single folder name", key)
		}
		if other, ok := seen[value]; ok {
			return fmt.Errorf("%s and %s must differ", other, key)
		}
		seen[value] = key
	}
	if !naming.ValidToken(c.Naming.DefaultState) {
		return fmt.Errorf("naming.default_state must use letters, digits or '-', got %q", c.Naming.DefaultState)
	}
	if !naming.ValidToken(c.Naming.RestoredMarker) {
		return fmt.Errorf("naming.restored_marker must use letters, digits or '-', got %q", c.Naming.RestoredMarker)
	}
	return nil
}

func (c *Config) validateVersions() error {
	if c.Versions.AutoIncrementTimeout <= 0 {
		return errors.New("versions.auto_increment_timeout must be positive")
	}
	return nil
}

func (c *Config) validateMetadata() error {
	switch c.Metadata.Backend {
	case "sidecar", "sqlite":
	default:
		return fmt.Errorf("metadata.backend must be sidecar or sqlite, got %q", c.Metadata.Backend)
	}
	if strings.ContainsAny(c.Metadata.SidecarName, `/\`) {
		return errors.New("metadata.sidecar_name must be a file name")
	}
	return nil
}

func (c *Config) validatePreview() error {
	if c.Preview.Framerate <= 0 {
		return errors.New("preview.framerate must be positive")
	}
	if c.Preview.CRF < 0 || c.Preview.CRF > 51 {
		return errors.New("preview.crf must be between 0 and 51")
	}
	if c.Preview.Timeout <= 0 {
		return errors.New("preview.timeout must be positive")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}
	return nil
}
