package ffmpeg

import (
	"context"
	"errors"
	"path/filepath"
	"runtime"
	"testing"
)

func TestMissingBinaryIsToolMissing(t *testing.T) {
	a := New(filepath.Join(t.TempDir(), "definitely-not-ffmpeg"))

	if err := a.ExtractLastFrame(context.Background(), "in.mp4", "out.png"); !errors.Is(err, ErrToolMissing) {
		t.Errorf("extract: expected ErrToolMissing, got %v", err)
	}
	if err := a.Concat(context.Background(), "manifest.txt", "out.mp4"); !errors.Is(err, ErrToolMissing) {
		t.Errorf("concat: expected ErrToolMissing, got %v", err)
	}
}

func TestNonzeroExitIsClassified(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("relies on the POSIX false binary")
	}
	// `false` ignores its arguments and exits 1, standing in for a failed run.
	a := New("false")

	var extractErr *ExtractError
	if err := a.ExtractLastFrame(context.Background(), "in.mp4", "out.png"); !errors.As(err, &extractErr) {
		t.Fatalf("expected ExtractError, got %v", err)
	} else if extractErr.ExitCode != 1 {
		t.Errorf("exit code = %d, want 1", extractErr.ExitCode)
	}

	var concatErr *ConcatError
	if err := a.Concat(context.Background(), "manifest.txt", "out.mp4"); !errors.As(err, &concatErr) {
		t.Fatalf("expected ConcatError, got %v", err)
	} else if concatErr.ExitCode != 1 {
		t.Errorf("exit code = %d, want 1", concatErr.ExitCode)
	}
}

func TestNewDefaultsToPathLookup(t *testing.T) {
	if got := New("").ffmpeg; got != "ffmpeg" {
		t.Errorf("default binary = %q, want ffmpeg", got)
	}
}
