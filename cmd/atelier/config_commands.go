package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"

	"atelier/internal/config"
)

// skipConfig marks commands that must work before a valid config exists.
var skipConfig = map[string]string{"skipConfigLoad": "true"}

func newConfigCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Create, check, or print the configuration",
	}
	cmd.AddCommand(newConfigInitCommand(), newConfigValidateCommand(ctx), newConfigShowCommand(ctx))
	return cmd
}

func newConfigInitCommand() *cobra.Command {
	var target string
	var overwrite bool

	cmd := &cobra.Command{
		Use:         "init",
		Short:       "Write a commented sample configuration",
		Annotations: skipConfig,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := configTarget(target)
			if err != nil {
				return err
			}
			if _, err := os.Stat(path); err == nil && !overwrite {
				return fmt.Errorf("config file already exists at %s (use --overwrite to replace it)", path)
			} else if err != nil && !errors.Is(err, fs.ErrNotExist) {
				return fmt.Errorf("check config path: %w", err)
			}
			if err := config.CreateSample(path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote sample configuration to %s\n", path)
			fmt.Fprintf(cmd.OutOrStdout(), "Next: set paths.projects_root and list your projects in %s\n",
				filepath.Join(filepath.Dir(path), "projects.yaml"))
			return nil
		},
	}
	cmd.Flags().StringVarP(&target, "path", "p", "", "Destination for the configuration file")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Replace an existing configuration file")
	return cmd
}

// configTarget resolves the init destination, defaulting to the user config
// location.
func configTarget(flag string) (string, error) {
	if flag = strings.TrimSpace(flag); flag != "" {
		path, err := config.ExpandPath(flag)
		if err != nil {
			return "", fmt.Errorf("resolve config path: %w", err)
		}
		return path, nil
	}
	path, err := config.DefaultConfigPath()
	if err != nil {
		return "", fmt.Errorf("determine default config path: %w", err)
	}
	return path, nil
}

func newConfigValidateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:         "validate",
		Short:       "Load the configuration and report problems",
		Annotations: skipConfig,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, resolved, exists, err := config.Load(strings.TrimSpace(*ctx.configFlag))
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if err := cfg.EnsureDirectories(); err != nil {
				return fmt.Errorf("ensure directories: %w", err)
			}
			source := resolved
			if !exists {
				source += " (missing, defaults used)"
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Setting", "Value"}, [][]string{
				{"config", source},
				{"projects root", orNone(cfg.Paths.ProjectsRoot)},
				{"projects file", cfg.Registry.ProjectsFile},
				{"metadata", cfg.Metadata.Backend},
				{"reserved folders", strings.Join(cfg.ReservedFolders(), ", ")},
				{"auto-increment after", cfg.AutoIncrementTimeout().String()},
			}))
			fmt.Fprintln(cmd.OutOrStdout(), "Configuration valid")
			return nil
		},
	}
}

func newConfigShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration as TOML",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			data, err := toml.Marshal(cfg)
			if err != nil {
				return fmt.Errorf("encode config: %w", err)
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
}

func orNone(value string) string {
	if value == "" {
		return "(none)"
	}
	return value
}
