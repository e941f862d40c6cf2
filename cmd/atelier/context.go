package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"atelier/internal/config"
	"atelier/internal/host"
	"atelier/internal/logging"
	"atelier/internal/metadata"
	"atelier/internal/ops"
	"atelier/internal/registry"
	"atelier/internal/transcode"
	"atelier/internal/versions"
	"atelier/internal/workflow"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) configValue() *config.Config {
	cfg, _ := c.ensureConfig()
	return cfg
}

// loggerValue returns the configured logger, falling back to console output
// when the log directory cannot be used.
func (c *commandContext) loggerValue() *slog.Logger {
	c.loggerOnce.Do(func() {
		logger, err := logging.NewFromConfig(c.configValue())
		if err != nil {
			logger, _ = logging.New(logging.Options{Level: "info", Format: "console"})
		}
		c.logger = logger
	})
	return c.logger
}

// requestContext tags the command context with a fresh request id.
func requestContext(cmd *cobra.Command) context.Context {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return ops.WithRequestID(ctx, ops.NewRequestID())
}

// session bundles the collaborators of one scene command.
type session struct {
	cfg     *config.Config
	store   *versions.Store
	meta    *metadata.Store
	reg     *registry.FileRegistry
	disk    *host.Disk
	answers *workflow.Answers
	manager *workflow.Manager
}

func (s *session) Close() error {
	if s.meta == nil {
		return nil
	}
	return s.meta.Close()
}

// openSession opens scene in a disk host and builds a workflow manager around
// it. The ffmpeg encoder is optional: without it only thumbnails render.
func (c *commandContext) openSession(scene string, answers *workflow.Answers, diskOpts ...host.DiskOption) (*session, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger := c.loggerValue()

	if scene != "" {
		if scene, err = config.ExpandPath(scene); err != nil {
			return nil, fmt.Errorf("resolve scene path: %w", err)
		}
	}

	store := versions.NewStore(cfg, logger)
	reg, err := registry.NewFileRegistry(cfg, store.Codec(), logger)
	if err != nil {
		return nil, err
	}
	meta, err := metadata.Open(cfg, logger)
	if err != nil {
		return nil, err
	}
	if answers == nil {
		answers = &workflow.Answers{}
	}
	disk := host.NewDisk(scene, logger, diskOpts...)

	var opts []workflow.ManagerOption
	if encoder, err := transcode.NewFromConfig(cfg, logger); err == nil {
		opts = append(opts, workflow.WithEncoder(encoder))
	} else if !errors.Is(err, ops.ErrExternalTool) {
		_ = meta.Close()
		return nil, err
	} else {
		logger.Debug("movie previews unavailable", logging.Error(err))
	}

	return &session{
		cfg:     cfg,
		store:   store,
		meta:    meta,
		reg:     reg,
		disk:    disk,
		answers: answers,
		manager: workflow.NewManager(cfg, store, meta, reg, disk, answers, logger, opts...),
	}, nil
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
