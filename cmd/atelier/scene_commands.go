package main

import (
	"fmt"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"atelier/internal/host"
	"atelier/internal/workflow"
)

func newSceneCommands(ctx *commandContext) []*cobra.Command {
	return []*cobra.Command{
		newSaveCommand(ctx),
		newSaveAsCommand(ctx),
		newSaveVersionCommand(ctx),
		newPublishCommand(ctx),
		newVersionsCommand(ctx),
		newRestoreCommand(ctx),
		newOpenCommand(ctx),
		newPreviewCommand(ctx),
		newImportCommand(ctx),
		newPublishTemplateCommand(ctx),
	}
}

// withSession runs fn against a session on scene and closes it afterwards.
func withSession(ctx *commandContext, scene string, answers *workflow.Answers, fn func(*session) error, diskOpts ...host.DiskOption) error {
	s, err := ctx.openSession(scene, answers, diskOpts...)
	if err != nil {
		return err
	}
	defer s.Close()
	return fn(s)
}

func newSaveCommand(ctx *commandContext) *cobra.Command {
	var comment string

	cmd := &cobra.Command{
		Use:   "save <scene>",
		Short: "Save a scene and snapshot it into its version history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			setComment := cmd.Flags().Changed("comment")
			answers := &workflow.Answers{}
			if setComment {
				answers.SaveComment = &comment
			}
			return withSession(ctx, args[0], answers, func(s *session) error {
				result, err := s.manager.Save(requestContext(cmd), workflow.SaveOptions{SetComment: setComment, Comment: comment})
				if err != nil {
					return err
				}
				printSaveResult(cmd, result)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&comment, "comment", "m", "", "Comment recorded on the version")
	return cmd
}

func printSaveResult(cmd *cobra.Command, result workflow.SaveResult) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Saved %s\n", result.Path)
	action := "updated"
	if result.Decision.Increment {
		action = "created"
	}
	fmt.Fprintf(out, "Version v%03d %s (%s)\n", result.Version, action, result.State)
	if result.Decision.Reason != workflow.ReasonNone {
		fmt.Fprintf(out, "Auto-increment: %s\n", result.Decision.Reason)
	}
	if result.Comment != "" {
		fmt.Fprintf(out, "Comment: %s\n", result.Comment)
	}
}

func newSaveAsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "save-as <scene> <target>",
		Short: "Save a scene under a new canonical path",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			answers := &workflow.Answers{SaveAs: args[1]}
			return withSession(ctx, args[0], answers, func(s *session) error {
				result, err := s.manager.SaveAs(requestContext(cmd))
				if err != nil {
					return err
				}
				printSaveResult(cmd, result)
				return nil
			})
		},
	}
}

func newSaveVersionCommand(ctx *commandContext) *cobra.Command {
	var (
		state      string
		comment    string
		completion int
		publish    bool
	)

	cmd := &cobra.Command{
		Use:   "save-version <scene>",
		Short: "Save a new version, optionally updating the step status",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			update := flags.Changed("state") || flags.Changed("comment") || flags.Changed("completion")
			answers := &workflow.Answers{}
			if update {
				answers.NewStatus = &workflow.StatusAnswer{
					Update:     true,
					State:      state,
					Comment:    comment,
					Completion: completion,
					Publish:    publish,
				}
			}
			return withSession(ctx, args[0], answers, func(s *session) error {
				result, err := s.manager.SaveVersion(requestContext(cmd), workflow.SaveVersionOptions{
					UpdateStatus: update,
					Publish:      publish,
				})
				if err != nil {
					return err
				}
				printSaveResult(cmd, result.SaveResult)
				out := cmd.OutOrStdout()
				if result.Status != nil {
					fmt.Fprintf(out, "Status: %s (%d%%)\n", result.Status.State, result.Status.Completion)
				}
				if result.Published != "" {
					fmt.Fprintf(out, "Published %s\n", result.Published)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&state, "state", "s", "", "New production state")
	cmd.Flags().StringVarP(&comment, "comment", "m", "", "Status comment")
	cmd.Flags().IntVar(&completion, "completion", 0, "Completion ratio in percent")
	cmd.Flags().BoolVarP(&publish, "publish", "p", false, "Publish the new version")
	return cmd
}

func newPublishCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "publish <scene>",
		Short: "Publish a scene linked to the version it was made from",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(ctx, args[0], nil, func(s *session) error {
				result, err := s.manager.Publish(requestContext(cmd))
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Published %s\n", result.Published)
				fmt.Fprintf(out, "From version v%03d (%s)\n", result.Version, filepath.Base(result.VersionFile))
				return nil
			})
		},
	}
}

func newVersionsCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "versions <scene>",
		Short: "List the version history of a scene",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(ctx, args[0], nil, func(s *session) error {
				history, err := s.manager.VersionHistory(requestContext(cmd), "")
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, versionRows(history))
				}
				rows := make([][]string, 0, len(history))
				for _, info := range history {
					rows = append(rows, []string{
						strconv.Itoa(info.Entry.Version()),
						info.Entry.State(),
						info.Entry.ModTime.Format(time.DateTime),
						info.Comment,
						filepath.Base(info.Entry.Path),
					})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"Version", "State", "Modified", "Comment", "File"},
					rows, 0,
				))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

type versionRow struct {
	Version  int       `json:"version"`
	State    string    `json:"state"`
	Modified time.Time `json:"modified"`
	Comment  string    `json:"comment,omitempty"`
	Path     string    `json:"path"`
}

func versionRows(history []workflow.VersionInfo) []versionRow {
	rows := make([]versionRow, 0, len(history))
	for _, info := range history {
		rows = append(rows, versionRow{
			Version:  info.Entry.Version(),
			State:    info.Entry.State(),
			Modified: info.Entry.ModTime,
			Comment:  info.Comment,
			Path:     info.Entry.Path,
		})
	}
	return rows
}

func newRestoreCommand(ctx *commandContext) *cobra.Command {
	var version int

	cmd := &cobra.Command{
		Use:   "restore <scene>",
		Short: "Restore a version beside the working file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			answers := &workflow.Answers{PickVersion: version}
			return withSession(ctx, args[0], answers, func(s *session) error {
				restored, err := s.manager.RetrieveVersion(requestContext(cmd))
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Restored %s\n", restored)
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&version, "version", "v", 0, "Version number to restore (default newest)")
	return cmd
}

func newOpenCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "open <path>",
		Short: "Open a scene, restoring it first when it is a version",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(ctx, "", nil, func(s *session) error {
				path, err := filepath.Abs(args[0])
				if err != nil {
					return err
				}
				opened, err := s.manager.Open(requestContext(cmd), path)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Opened %s\n", opened)
				return nil
			})
		},
	}
}

func newPreviewCommand(ctx *commandContext) *cobra.Command {
	var (
		options workflow.PreviewOptions
		frames  string
		sound   string
		fps     float64
	)

	cmd := &cobra.Command{
		Use:   "preview <scene>",
		Short: "Render a movie or thumbnail preview from rendered frames",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			answers := &workflow.Answers{Render: &options}
			diskOpts := []host.DiskOption{host.WithFrames(frames), host.WithSound(sound), host.WithFramerate(fps)}
			return withSession(ctx, args[0], answers, func(s *session) error {
				result, err := s.manager.Preview(requestContext(cmd))
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Preview %s (%d frames, version v%03d)\n", result.Path, result.Frames, result.Version)
				return nil
			}, diskOpts...)
		},
	}
	cmd.Flags().StringVarP(&options.Comment, "comment", "m", "", "Comment added to the preview name")
	cmd.Flags().StringVar(&options.Camera, "camera", "", "Camera to render through")
	cmd.Flags().Float64Var(&options.Scale, "scale", 1, "Resolution scale")
	cmd.Flags().BoolVar(&options.Thumbnail, "thumbnail", false, "Render a png thumbnail instead of a movie")
	cmd.Flags().StringVar(&frames, "frames", "", "Folder holding the rendered frames")
	cmd.Flags().StringVar(&sound, "sound", "", "Soundtrack for the movie")
	cmd.Flags().Float64Var(&fps, "fps", 0, "Frame rate override")
	_ = cmd.MarkFlagRequired("frames")
	return cmd
}

func newImportCommand(ctx *commandContext) *cobra.Command {
	var (
		scene    string
		itemPath string
		step     string
		resource string
	)

	cmd := &cobra.Command{
		Use:   "import [file...]",
		Short: "Import published files and tag them with their origin",
		RunE: func(cmd *cobra.Command, args []string) error {
			selection := &workflow.ImportSelection{Files: args, Step: step, Resource: resource}
			answers := &workflow.Answers{Selection: selection}
			return withSession(ctx, scene, answers, func(s *session) error {
				if len(args) == 0 && itemPath != "" {
					path, err := filepath.Abs(itemPath)
					if err != nil {
						return err
					}
					item, err := s.reg.ItemFromPath(path)
					if err != nil {
						return err
					}
					selection.Item = item
				}
				result, err := s.manager.Import(requestContext(cmd))
				if err != nil {
					return err
				}
				rows := make([][]string, 0, len(result.Files))
				for _, file := range result.Files {
					applied, skipped := 0, 0
					for _, attrs := range file.Attributes {
						for _, res := range attrs {
							if res.Applied {
								applied++
							} else {
								skipped++
							}
						}
					}
					rows = append(rows, []string{
						filepath.Base(file.Path),
						file.Group,
						file.Namespace,
						strconv.Itoa(applied),
						strconv.Itoa(skipped),
					})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"File", "Group", "Namespace", "Applied", "Skipped"},
					rows, 3, 4,
				))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&scene, "into", "", "Scene receiving the import")
	cmd.Flags().StringVar(&itemPath, "item", "", "Any path inside the item to import from")
	cmd.Flags().StringVar(&step, "step", "", "Step whose default published file is imported")
	cmd.Flags().StringVar(&resource, "resource", "", "Resource used for namespacing")
	return cmd
}

func newPublishTemplateCommand(ctx *commandContext) *cobra.Command {
	var answer workflow.TemplateAnswer

	cmd := &cobra.Command{
		Use:   "publish-template <scene>",
		Short: "Publish a scene as a step template",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			answers := &workflow.Answers{}
			if answer.Folder != "" {
				folder, err := filepath.Abs(answer.Folder)
				if err != nil {
					return err
				}
				answers.Template = &workflow.TemplateAnswer{Folder: folder, Name: answer.Name}
			}
			return withSession(ctx, args[0], answers, func(s *session) error {
				result, err := s.manager.PublishTemplate(requestContext(cmd))
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Template %s\n", result.Path)
				fmt.Fprintf(out, "Published %s\n", result.Published)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&answer.Folder, "folder", "", "Template folder")
	cmd.Flags().StringVar(&answer.Name, "name", "", "Template name (default \"template\")")
	return cmd
}
