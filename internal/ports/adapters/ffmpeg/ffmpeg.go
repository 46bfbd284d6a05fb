package ffmpeg

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
)

// ErrToolMissing is returned when the ffmpeg binary cannot be found.
var ErrToolMissing = errors.New("ffmpeg not found on PATH")

// ExtractError reports a nonzero exit from a frame extraction run.
type ExtractError struct {
	ExitCode int
	Output   string
}

func (e *ExtractError) Error() string {
	return fmt.Sprintf("ffmpeg frame extraction exited with status %d\n%s", e.ExitCode, e.Output)
}

// ConcatError reports a nonzero exit from a concatenation run.
type ConcatError struct {
	ExitCode int
	Output   string
}

func (e *ConcatError) Error() string {
	return fmt.Sprintf("ffmpeg concatenation exited with status %d\n%s", e.ExitCode, e.Output)
}

type Adapter struct {
	ffmpeg string
}

func New(ffmpegPath string) *Adapter {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	return &Adapter{ffmpeg: ffmpegPath}
}

// ExtractLastFrame writes the final frame of videoPath to framePath as a
// single still image.
func (a *Adapter) ExtractLastFrame(ctx context.Context, videoPath, framePath string) error {
	cmd := exec.CommandContext(ctx, a.ffmpeg,
		"-v", "error",
		"-i", videoPath,
		"-vf", "reverse",
		"-frames:v", "1",
		"-y", framePath,
	)
	b, err := cmd.CombinedOutput()
	if err != nil {
		if code, ok := classify(err); ok {
			return &ExtractError{ExitCode: code, Output: string(b)}
		}
		return fmt.Errorf("run %s: %w", a.ffmpeg, ErrToolMissing)
	}
	return nil
}

// Concat joins the files listed in the concat-demuxer manifest into
// outputPath without re-encoding.
func (a *Adapter) Concat(ctx context.Context, manifestPath, outputPath string) error {
	cmd := exec.CommandContext(ctx, a.ffmpeg,
		"-y",
		"-f", "concat",
		"-safe", "0",
		"-i", manifestPath,
		"-c", "copy",
		outputPath,
	)
	b, err := cmd.CombinedOutput()
	if err != nil {
		if code, ok := classify(err); ok {
			return &ConcatError{ExitCode: code, Output: string(b)}
		}
		return fmt.Errorf("run %s: %w", a.ffmpeg, ErrToolMissing)
	}
	return nil
}

// classify separates nonzero exits from failures to start the binary at all.
func classify(err error) (exitCode int, exited bool) {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode(), true
	}
	return 0, false
}
