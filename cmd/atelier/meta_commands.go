package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"atelier/internal/metadata"
)

func newMetaCommand(ctx *commandContext) *cobra.Command {
	metaCmd := &cobra.Command{
		Use:   "meta",
		Short: "Inspect and edit artifact metadata",
	}
	metaCmd.AddCommand(newMetaGetCommand(ctx))
	metaCmd.AddCommand(newMetaSetCommand(ctx))
	metaCmd.AddCommand(newMetaMigrateCommand(ctx))
	return metaCmd
}

func withMetadata(ctx *commandContext, fn func(*metadata.Store) error) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	store, err := metadata.Open(cfg, ctx.loggerValue())
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(store)
}

func absPath(path string) (string, error) {
	abs, err := filepath.Abs(strings.TrimSpace(path))
	if err != nil {
		return "", fmt.Errorf("resolve %q: %w", path, err)
	}
	return abs, nil
}

func newMetaGetCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "get <path> [key]",
		Short: "Show the metadata of an artifact",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := absPath(args[0])
			if err != nil {
				return err
			}
			return withMetadata(ctx, func(store *metadata.Store) error {
				reqCtx := requestContext(cmd)
				if len(args) == 2 {
					value, err := store.Value(reqCtx, path, args[1], nil)
					if err != nil {
						return err
					}
					if asJSON {
						return writeJSON(cmd, value)
					}
					if value != nil {
						fmt.Fprintln(cmd.OutOrStdout(), value)
					}
					return nil
				}

				record, ok, err := store.Record(reqCtx, path)
				if err != nil {
					return err
				}
				if !ok {
					record = metadata.Record{}
				}
				if asJSON {
					return writeJSON(cmd, record)
				}
				if !ok {
					fmt.Fprintf(cmd.OutOrStdout(), "No metadata for %s\n", path)
					return nil
				}
				rows := make([][]string, 0, len(record))
				for _, key := range record.Keys() {
					rows = append(rows, []string{key, fmt.Sprint(record[key])})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Key", "Value"}, rows))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func newMetaSetCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "set <path> <key> <value>",
		Short: "Set one metadata value; the value is read as YAML (3, true, text)",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := absPath(args[0])
			if err != nil {
				return err
			}
			value := parseValue(args[2])
			return withMetadata(ctx, func(store *metadata.Store) error {
				if err := store.SetValue(requestContext(cmd), path, args[1], value); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Set %s on %s\n", args[1], filepath.Base(path))
				return nil
			})
		},
	}
}

// parseValue decodes raw as a YAML scalar so numbers and booleans keep their
// type. Anything that does not decode to a scalar stays a string.
func parseValue(raw string) any {
	var value any
	if err := yaml.Unmarshal([]byte(raw), &value); err != nil {
		return raw
	}
	switch value.(type) {
	case int, bool, float64, string:
		return value
	default:
		return raw
	}
}

func newMetaMigrateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate <from> <to>",
		Short: "Move the metadata of a renamed artifact to its new path",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			from, err := absPath(args[0])
			if err != nil {
				return err
			}
			to, err := absPath(args[1])
			if err != nil {
				return err
			}
			return withMetadata(ctx, func(store *metadata.Store) error {
				if err := store.Migrate(requestContext(cmd), from, to); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Moved metadata from %s to %s\n", filepath.Base(from), filepath.Base(to))
				return nil
			})
		},
	}
}
