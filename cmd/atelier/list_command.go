package main

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"atelier/internal/metadata"
	"atelier/internal/versions"
)

func newListCommand(ctx *commandContext) *cobra.Command {
	var pattern string

	cmd := &cobra.Command{
		Use:   "ls [root]",
		Short: "List working files with their latest version",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			root := cfg.Paths.ProjectsRoot
			if len(args) == 1 {
				if root, err = absPath(args[0]); err != nil {
					return err
				}
			}
			if strings.TrimSpace(root) == "" {
				return fmt.Errorf("no root given and paths.projects_root is not set")
			}

			store := versions.NewStore(cfg, ctx.loggerValue())
			files, err := store.FindWorkingFiles(root, pattern)
			if err != nil {
				return err
			}
			return withMetadata(ctx, func(meta *metadata.Store) error {
				reqCtx := requestContext(cmd)
				rows := make([][]string, 0, len(files))
				for _, file := range files {
					rel, err := filepath.Rel(root, file)
					if err != nil {
						rel = file
					}
					row := []string{rel, "-", "", "", ""}
					latest, ok, err := store.LatestVersion(file, false)
					if err != nil {
						return err
					}
					if ok {
						comment, err := meta.Comment(reqCtx, latest.Path)
						if err != nil {
							return err
						}
						row[1] = strconv.Itoa(latest.Version())
						row[2] = latest.State()
						row[3] = latest.ModTime.Format(time.DateTime)
						row[4] = comment
					}
					rows = append(rows, row)
				}
				out := cmd.OutOrStdout()
				if len(rows) == 0 {
					fmt.Fprintf(out, "No working files under %s\n", root)
					return nil
				}
				fmt.Fprintln(out, renderTable(
					[]string{"File", "Latest", "State", "Modified", "Comment"},
					rows, 1,
				))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&pattern, "pattern", "**/*.{ma,mb}", "Glob of working files, relative to root")
	return cmd
}
