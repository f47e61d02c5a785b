package converter

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strings"

	"sbsconv/internal/config"
	"sbsconv/internal/fileutil"
	"sbsconv/internal/services"
	"sbsconv/internal/shot"
)

// Executor abstracts command execution for testability. Run returns the
// captured stderr alongside any error.
type Executor interface {
	Run(ctx context.Context, binary string, args []string) (string, error)
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

// Settings are the per-run conversion parameters.
type Settings struct {
	Compression string
	PixelType   string
}

// Client runs the converter binary.
type Client struct {
	binary   string
	settings Settings
	exec     Executor
}

// New constructs a converter client for an already resolved binary.
func New(binary string, settings Settings, opts ...Option) (*Client, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		return nil, services.Wrap(services.ErrConfiguration, "converter", "init", "converter binary required", nil)
	}
	if !slices.Contains(config.Compressions, settings.Compression) {
		return nil, services.Wrap(services.ErrValidation, "converter", "init",
			fmt.Sprintf("unsupported compression %q", settings.Compression), nil)
	}
	if !slices.Contains(config.PixelTypes, settings.PixelType) {
		return nil, services.Wrap(services.ErrValidation, "converter", "init",
			fmt.Sprintf("unsupported pixel type %q", settings.PixelType), nil)
	}
	client := &Client{
		binary:   binary,
		settings: settings,
		exec:     commandExecutor{},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// Binary returns the converter executable path.
func (c *Client) Binary() string {
	return c.binary
}

// Args builds the converter command line for one frame.
func (c *Client) Args(src, dst string) []string {
	return []string{
		src,
		"--fullpixels",
		"-d", c.settings.PixelType,
		"--compression", c.settings.Compression,
		"-o", dst,
	}
}

// Convert converts src into dst. The tool writes to a temp file in dst's
// directory which is renamed to dst on success and removed otherwise.
func (c *Client) Convert(ctx context.Context, src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return services.Wrap(services.ErrTransient, "converter", "prepare output", "create output directory", err)
	}
	tmp := fileutil.TempName(dst, shot.ConvertedSuffix+filepath.Ext(dst))

	stderr, err := c.exec.Run(ctx, c.binary, c.Args(src, tmp))
	if err != nil {
		_ = os.Remove(tmp)
		message := strings.TrimSpace(stderr)
		if message == "" {
			message = "converter failed"
		}
		return services.Wrap(services.ErrExternalTool, "converter", "convert frame", message, err)
	}
	if _, statErr := os.Stat(tmp); statErr != nil {
		return services.Wrap(services.ErrExternalTool, "converter", "convert frame", "converter produced no output", statErr)
	}
	if err := os.Rename(tmp, dst); err != nil {
		_ = os.Remove(tmp)
		return services.Wrap(services.ErrTransient, "converter", "commit output", "rename converted frame", err)
	}
	return nil
}

// ConvertBeside converts a single frame to <stem>_SBS<ext> in the same
// directory and returns the output path.
func (c *Client) ConvertBeside(ctx context.Context, src string) (string, error) {
	if !shot.IsFrame(src) {
		return "", services.Wrap(services.ErrValidation, "converter", "convert frame",
			fmt.Sprintf("%s is not an EXR frame", filepath.Base(src)), nil)
	}
	if shot.IsConvertedTagged(filepath.Base(src)) {
		return "", services.Wrap(services.ErrValidation, "converter", "convert frame",
			fmt.Sprintf("%s is already converted", filepath.Base(src)), nil)
	}
	if _, err := os.Stat(src); err != nil {
		return "", services.Wrap(services.ErrNotFound, "converter", "convert frame", "source frame missing", err)
	}
	dst := filepath.Join(filepath.Dir(src), shot.ConvertedFrameName(src))
	if err := c.Convert(ctx, src, dst); err != nil {
		return "", err
	}
	return dst, nil
}

type commandExecutor struct{}

func (commandExecutor) Run(ctx context.Context, binary string, args []string) (string, error) {
	cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	err := cmd.Run()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return stderr.String(), fmt.Errorf("exit status %d: %w", exitErr.ExitCode(), err)
		}
		return stderr.String(), fmt.Errorf("run converter: %w", err)
	}
	return stderr.String(), nil
}
