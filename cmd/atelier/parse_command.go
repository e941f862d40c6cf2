package main

import (
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"atelier/internal/naming"
	"atelier/internal/ops"
)

type parsedName struct {
	Input      string `json:"input"`
	Valid      bool   `json:"valid"`
	Project    string `json:"project,omitempty"`
	Step       string `json:"step,omitempty"`
	Resource   string `json:"resource,omitempty"`
	State      string `json:"state,omitempty"`
	Version    int    `json:"version"`
	Extension  string `json:"extension,omitempty"`
	ItemType   string `json:"item_type,omitempty"`
	Item       string `json:"item,omitempty"`
	Suggestion string `json:"suggestion,omitempty"`
	Error      string `json:"error,omitempty"`
}

func newParseCommand(ctx *commandContext) *cobra.Command {
	var fix bool
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "parse <name|path>...",
		Short: "Decode file names against the naming scheme",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			codec := naming.NewCodec(cfg.ReservedFolders(), cfg.Naming.RestoredMarker)

			results := make([]parsedName, 0, len(args))
			malformed := 0
			for _, arg := range args {
				parsed := parseName(codec, arg, fix)
				if !parsed.Valid && parsed.Suggestion == "" {
					malformed++
				}
				results = append(results, parsed)
			}

			if asJSON {
				if err := writeJSON(cmd, results); err != nil {
					return err
				}
			} else {
				rows := make([][]string, 0, len(results))
				for _, p := range results {
					version := ""
					if p.Valid && p.Version != naming.Unversioned {
						version = strconv.Itoa(p.Version)
					}
					note := p.Error
					if p.Suggestion != "" {
						note = "rename to " + p.Suggestion
					}
					rows = append(rows, []string{filepath.Base(p.Input), p.Project, p.Step, p.Resource, p.State, version, p.Extension, p.Item, note})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"Name", "Project", "Step", "Resource", "State", "Version", "Ext", "Item", "Note"},
					rows, 5,
				))
			}
			if malformed > 0 {
				return ops.Wrap(ops.ErrMalformedName, "parse", "", fmt.Sprintf("%d of %d names are not canonical", malformed, len(args)), nil)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&fix, "fix", false, "Suggest canonical names for malformed input")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func parseName(codec *naming.Codec, input string, fix bool) parsedName {
	parsed := parsedName{Input: input, Version: naming.Unversioned}
	id, err := codec.DecomposeFilePath(input)
	if err != nil {
		parsed.Error = err.Error()
		if fix {
			if suggestion, ok := naming.SuggestFileName(filepath.Base(input)); ok {
				parsed.Suggestion = suggestion
			}
		}
		return parsed
	}
	parsed.Valid = true
	parsed.Project = id.Project
	parsed.Step = id.Step
	parsed.Resource = id.Resource
	parsed.State = id.State
	parsed.Version = id.Version
	parsed.Extension = id.Extension
	if id.ItemType != naming.ItemNone {
		parsed.ItemType = id.ItemType.String()
		parsed.Item = id.ItemShortName
	}
	return parsed
}
