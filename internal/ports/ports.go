package ports

import (
	"context"

	"github.com/clipchain/clipchain/internal/types"
)

// RenderBackend drives one remote rendering service through a uniform
// lifecycle: submit, wait until terminal, materialize the clip at the
// requested path. Backends own no durable state.
type RenderBackend interface {
	Render(ctx context.Context, req types.RenderRequest) (types.RenderOutcome, error)
	Download(ctx context.Context, remoteID string, variant types.Variant, outputPath string) error
	Defaults() types.RenderDefaults
	Kind() types.BackendKind
}

// FrameExtractor pulls a single still image from the last frame of a clip
// file, for use as the next clip's conditioning image.
type FrameExtractor interface {
	ExtractLastFrame(ctx context.Context, videoPath, framePath string) error
}

// Concatenator losslessly joins the clip files listed in a manifest into one
// output file.
type Concatenator interface {
	Concat(ctx context.Context, manifestPath, outputPath string) error
}
