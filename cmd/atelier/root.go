package main

import (
	"github.com/spf13/cobra"
)

const (
	groupScene = "scene"
	groupTools = "tools"
)

func newRootCommand() *cobra.Command {
	var configFlag string
	ctx := newCommandContext(&configFlag)

	root := &cobra.Command{
		Use:   "atelier",
		Short: "Versioned scene saving and publishing for production folders",
		Long: "Atelier saves working scenes under the project naming scheme, keeps a\n" +
			"numbered history in _versions, and publishes, previews, and imports\n" +
			"scenes between pipeline steps.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if shouldSkipConfig(cmd) {
				return nil
			}
			_, err := ctx.ensureConfig()
			return err
		},
	}
	root.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path")
	root.AddGroup(
		&cobra.Group{ID: groupScene, Title: "Scene commands:"},
		&cobra.Group{ID: groupTools, Title: "Pipeline tools:"},
	)

	for _, cmd := range newSceneCommands(ctx) {
		cmd.GroupID = groupScene
		root.AddCommand(cmd)
	}
	for _, cmd := range []*cobra.Command{
		newParseCommand(ctx),
		newMetaCommand(ctx),
		newListCommand(ctx),
		newConfigCommand(ctx),
		newDoctorCommand(ctx),
	} {
		cmd.GroupID = groupTools
		root.AddCommand(cmd)
	}
	return root
}
