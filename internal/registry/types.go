package registry

import (
	"path/filepath"
	"strings"
	"time"

	"atelier/internal/naming"
)

// Pipe is a named output a step hands over to a downstream step.
type Pipe struct {
	Name     string `yaml:"name"`
	To       string `yaml:"to,omitempty"`
	FileType string `yaml:"file_type,omitempty"`
}

// Step is a pipeline step of a project.
type Step struct {
	Code         string `yaml:"code"`
	Name         string `yaml:"name,omitempty"`
	ColorHex     string `yaml:"color,omitempty"`
	DefaultState string `yaml:"default_state,omitempty"`
	Pipes        []Pipe `yaml:"output_pipes,omitempty"`
}

func (s Step) ShortName() string { return s.Code }

func (s Step) OutputPipes() []Pipe {
	out := make([]Pipe, len(s.Pipes))
	copy(out, s.Pipes)
	return out
}

// Color returns the display colour of the step, grey when unset.
func (s Step) Color() string {
	if s.ColorHex == "" {
		return "#808080"
	}
	return s.ColorHex
}

// Project is a production.
type Project struct {
	Code   string `yaml:"code"`
	Name   string `yaml:"name,omitempty"`
	Folder string `yaml:"folder,omitempty"`
	Steps  []Step `yaml:"steps,omitempty"`
}

// Step returns the project step with the given code, case-insensitively.
func (p Project) Step(code string) (Step, bool) {
	for _, step := range p.Steps {
		if strings.EqualFold(step.Code, code) {
			return step, true
		}
	}
	return Step{}, false
}

// Item is an asset, shot, or general item resolved from a path.
type Item struct {
	Project   string
	Type      naming.ItemType
	ShortName string
	// Group is the asset group, the folder holding the item folder.
	Group string
	// Folder is the item folder on disk.
	Folder string
}

// Key identifies the item across registry calls.
func (i Item) Key() string {
	return strings.Join([]string{i.Project, string(i.Type), i.ShortName}, "/")
}

// StepFolder returns the folder of step inside the item folder.
func (i Item) StepFolder(step string) (string, error) {
	name, err := naming.StepFolderName(i.Project, i.Type, i.ShortName, step)
	if err != nil {
		return "", err
	}
	return filepath.Join(i.Folder, name), nil
}

// Status is the production status of an item's step.
type Status struct {
	State      string    `yaml:"state"`
	Comment    string    `yaml:"comment,omitempty"`
	Completion int       `yaml:"completion"`
	Version    int       `yaml:"version,omitempty"`
	Published  bool      `yaml:"published,omitempty"`
	UpdatedAt  time.Time `yaml:"updated_at"`
}

// Publication records a publish notification.
type Publication struct {
	Item        string    `yaml:"item"`
	Step        string    `yaml:"step"`
	Path        string    `yaml:"path"`
	PublishedAt time.Time `yaml:"published_at"`
}
