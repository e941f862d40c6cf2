package transcode

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"atelier/internal/config"
	"atelier/internal/deps"
	"atelier/internal/logging"
	"atelier/internal/ops"
)

// audioBitrate keeps preview soundtracks small.
const audioBitrate = "131072"

// Executor abstracts command execution for testability.
type Executor interface {
	Run(ctx context.Context, binary string, args []string) ([]byte, error)
}

// Option configures the client.
type Option func(*Client)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec Executor) Option {
	return func(c *Client) {
		if exec != nil {
			c.exec = exec
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logging.NewComponentLogger(logger, "transcode")
	}
}

// Settings are the encoder knobs exposed in configuration.
type Settings struct {
	Framerate int
	CRF       int
	Preset    string
	Timeout   time.Duration
}

// Request describes one encode.
type Request struct {
	// Pattern is the printf-style image sequence, numbered from 1.
	Pattern string
	// Sound is an optional file whose second stream is used as audio.
	Sound string
	// Framerate overrides Settings.Framerate when positive.
	Framerate float64
	Output    string
}

// Client wraps ffmpeg invocations.
type Client struct {
	binary   string
	settings Settings
	exec     Executor
	logger   *slog.Logger
}

// New constructs a client for binary.
func New(binary string, settings Settings, opts ...Option) (*Client, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		return nil, errors.New("ffmpeg binary required")
	}
	if settings.Framerate <= 0 {
		return nil, errors.New("framerate must be positive")
	}
	if settings.Preset == "" {
		settings.Preset = "ultrafast"
	}
	client := &Client{
		binary:   binary,
		settings: settings,
		exec:     commandExecutor{},
		logger:   logging.NewComponentLogger(nil, "transcode"),
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// NewFromConfig resolves the configured ffmpeg binary and builds a client.
// An unresolved binary is reported as ErrExternalTool.
func NewFromConfig(cfg *config.Config, logger *slog.Logger, opts ...Option) (*Client, error) {
	status := deps.ResolveFFmpeg(cfg.Preview.FFmpegBinary)
	if !status.Available {
		return nil, ops.Wrap(ops.ErrExternalTool, "transcode", "resolve ffmpeg", status.Detail, nil)
	}
	settings := Settings{
		Framerate: cfg.Preview.Framerate,
		CRF:       cfg.Preview.CRF,
		Preset:    cfg.Preview.Preset,
		Timeout:   cfg.PreviewTimeout(),
	}
	opts = append([]Option{WithLogger(logger)}, opts...)
	return New(status.Command, settings, opts...)
}

// Binary returns the ffmpeg path the client runs.
func (c *Client) Binary() string { return c.binary }

// Args builds the ffmpeg command line for req: an h264 baseline mp4 made of
// intra frames so editors can scrub it frame by frame.
func (c *Client) Args(req Request) []string {
	framerate := strconv.Itoa(c.settings.Framerate)
	if req.Framerate > 0 {
		framerate = strconv.FormatFloat(req.Framerate, 'f', -1, 64)
	}
	args := []string{
		"-loglevel", "error",
		"-y",
		"-start_number", "1",
		"-framerate", framerate,
		"-i", req.Pattern,
	}
	if req.Sound != "" {
		args = append(args,
			"-i", req.Sound,
			"-map", "0:0",
			"-map", "1:1",
			"-b:a", audioBitrate,
		)
	}
	return append(args,
		"-f", "mp4",
		"-c:v", "h264",
		"-level", "3.0",
		"-crf", strconv.Itoa(c.settings.CRF),
		"-preset", c.settings.Preset,
		"-tune", "fastdecode",
		"-profile:v", "baseline",
		"-x264opts", "b_pyramid=0",
		"-pix_fmt", "yuv420p",
		"-intra",
		req.Output,
	)
}

// Encode runs ffmpeg for req and waits for it to exit.
func (c *Client) Encode(ctx context.Context, req Request) error {
	if strings.TrimSpace(req.Pattern) == "" || strings.TrimSpace(req.Output) == "" {
		return ops.Wrap(ops.ErrValidation, "transcode", "encode", "pattern and output are required", nil)
	}
	if err := os.MkdirAll(filepath.Dir(req.Output), 0o755); err != nil {
		return ops.Wrap(ops.ErrIO, "transcode", "encode", "create output folder", err)
	}

	runCtx := ctx
	if c.settings.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, c.settings.Timeout)
		defer cancel()
	}

	args := c.Args(req)
	c.logger.DebugContext(ctx, "ffmpeg args", logging.String("args", strings.Join(args, " ")))

	start := time.Now()
	output, err := c.exec.Run(runCtx, c.binary, args)
	c.logOutput(ctx, output)
	if err != nil {
		detail := lastLine(output)
		if detail == "" {
			detail = "ffmpeg failed"
		}
		return ops.Wrap(ops.ErrExternalTool, "transcode", "encode", detail, err)
	}
	c.logger.InfoContext(ctx, "preview encoded",
		logging.String("output", req.Output),
		logging.Duration("elapsed", time.Since(start)))
	return nil
}

func (c *Client) logOutput(ctx context.Context, output []byte) {
	scanner := bufio.NewScanner(bytes.NewReader(output))
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			c.logger.DebugContext(ctx, "ffmpeg output", logging.String("line", line))
		}
	}
}

func lastLine(output []byte) string {
	lines := strings.Split(strings.TrimSpace(string(output)), "\n")
	return strings.TrimSpace(lines[len(lines)-1])
}

type commandExecutor struct{}

func (commandExecutor) Run(ctx context.Context, binary string, args []string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec
	var buf bytes.Buffer
	cmd.Stdout = &buf
	cmd.Stderr = &buf
	if err := cmd.Run(); err != nil {
		return buf.Bytes(), fmt.Errorf("run %s: %w", filepath.Base(binary), err)
	}
	return buf.Bytes(), nil
}
