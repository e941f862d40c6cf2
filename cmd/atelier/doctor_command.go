package main

import (
	"fmt"
	"io"
	"os"

	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"atelier/internal/deps"
	"atelier/internal/metadata"
	"atelier/internal/naming"
	"atelier/internal/ops"
	"atelier/internal/registry"
)

func newDoctorCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check external tools, folders, registry, and metadata storage",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			r := newCheckReport(cmd.OutOrStdout())

			r.section("Tools")
			ffmpeg := deps.ResolveFFmpeg(cfg.Preview.FFmpegBinary)
			if ffmpeg.Available {
				r.add("ffmpeg", checkOK, ffmpeg.Command)
			} else {
				r.add("ffmpeg", checkWarn, ffmpeg.Detail+"; movie previews disabled")
			}

			r.section("Folders")
			for _, dir := range []struct{ name, path string }{
				{"projects root", cfg.Paths.ProjectsRoot},
				{"state dir", cfg.Paths.StateDir},
				{"log dir", cfg.Paths.LogDir},
			} {
				status := deps.CheckDirectory(dir.name, dir.path)
				switch {
				case status.Available:
					r.add(dir.name, checkOK, dir.path)
				case dir.path == "":
					r.add(dir.name, checkWarn, status.Detail)
				default:
					r.add(dir.name, checkFail, status.Detail)
				}
			}

			r.section("Registry")
			codec := naming.NewCodec(cfg.ReservedFolders(), cfg.Naming.RestoredMarker)
			reg, err := registry.NewFileRegistry(cfg, codec, ctx.loggerValue())
			switch {
			case err != nil:
				r.add("projects", checkFail, err.Error())
			case len(reg.Projects()) == 0:
				if _, statErr := os.Stat(cfg.Registry.ProjectsFile); statErr != nil {
					r.add("projects", checkWarn, "offline, no projects file at "+cfg.Registry.ProjectsFile)
				} else {
					r.add("projects", checkWarn, "projects file lists no projects")
				}
			default:
				current := "none"
				if project, ok := reg.CurrentProject(); ok {
					current = project.Code
				}
				r.add("projects", checkOK, fmt.Sprintf("%d projects, current %s", len(reg.Projects()), current))
			}

			r.section("Metadata")
			store, err := metadata.Open(cfg, ctx.loggerValue())
			if err != nil {
				r.add(cfg.Metadata.Backend, checkFail, err.Error())
			} else {
				_ = store.Close()
				r.add(cfg.Metadata.Backend, checkOK, "store opened")
			}

			if r.failures > 0 {
				return ops.Wrap(ops.ErrConfiguration, "doctor", "", fmt.Sprintf("%d checks failed", r.failures), nil)
			}
			return nil
		},
	}
}

type checkResult int

const (
	checkOK checkResult = iota
	checkWarn
	checkFail
)

var checkLabels = map[checkResult]struct {
	tag    string
	colors text.Colors
}{
	checkOK:   {"ok", text.Colors{text.FgGreen}},
	checkWarn: {"warn", text.Colors{text.FgYellow}},
	checkFail: {"FAIL", text.Colors{text.FgRed, text.Bold}},
}

// checkReport prints doctor results grouped in sections and counts failures.
type checkReport struct {
	out      io.Writer
	color    bool
	failures int
}

func newCheckReport(out io.Writer) *checkReport {
	return &checkReport{out: out, color: isTerminal(out)}
}

func (r *checkReport) section(title string) {
	heading := title
	if r.color {
		heading = text.Colors{text.Bold, text.Underline}.Sprint(title)
	}
	fmt.Fprintln(r.out, heading)
}

func (r *checkReport) add(subject string, result checkResult, detail string) {
	if result == checkFail {
		r.failures++
	}
	label := checkLabels[result]
	tag := fmt.Sprintf("%-4s", label.tag)
	if r.color {
		tag = label.colors.Sprint(tag)
	}
	fmt.Fprintf(r.out, "  %s  %-14s %s\n", tag, subject, detail)
}
