package ffmpeg

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
)

var commandContext = exec.CommandContext

// Client defines transcoding behaviour.
type Client interface {
	Transcode(ctx context.Context, inputPath, outputPath string) error
}

// Option configures the CLI client.
type Option func(*CLI)

// WithBinary overrides the default binary name.
func WithBinary(binary string) Option {
	return func(c *CLI) {
		if binary != "" {
			c.binary = binary
		}
	}
}

// CLI wraps the ffmpeg command-line encoder.
type CLI struct {
	binary string
}

// NewCLI constructs a CLI client using defaults.
func NewCLI(opts ...Option) *CLI {
	cli := &CLI{binary: "ffmpeg"}
	for _, opt := range opts {
		opt(cli)
	}
	return cli
}

// Transcode re-encodes the input into an mp4 container (h264/aac,
// faststart) at outputPath, overwriting any existing file.
func (c *CLI) Transcode(ctx context.Context, inputPath, outputPath string) error {
	if inputPath == "" {
		return errors.New("input path required")
	}
	if outputPath == "" {
		return errors.New("output path required")
	}

	args := []string{
		"-i", inputPath,
		"-c:v", "libx264",
		"-preset", "fast",
		"-crf", "23",
		"-c:a", "aac",
		"-b:a", "128k",
		"-movflags", "+faststart",
		"-y",
		outputPath,
	}
	cmd := commandContext(ctx, c.binary, args...) //nolint:gosec
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("ffmpeg transcode failed: %w: %s", err, out)
	}
	return nil
}

var _ Client = (*CLI)(nil)
