package cli

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/clipchain/clipchain/internal/manager"
	"github.com/clipchain/clipchain/internal/ports"
	"github.com/clipchain/clipchain/internal/ports/adapters/ffmpeg"
	"github.com/clipchain/clipchain/internal/ports/adapters/sora"
	"github.com/clipchain/clipchain/internal/ports/adapters/veo"
	"github.com/clipchain/clipchain/internal/types"
	"github.com/spf13/cobra"
)

// buildManager wires the selected backend and the media tool into a manager
// from the global flags, with environment fallbacks for credentials.
func buildManager(cmd *cobra.Command) (*manager.Manager, error) {
	flags := cmd.Flags()

	verbose, _ := flags.GetBool("verbose")
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	model, _ := flags.GetString("model")
	size, _ := flags.GetString("size")
	seconds, _ := flags.GetInt("seconds")
	defaults := types.RenderDefaults{Model: model, Size: size, Seconds: seconds}

	kind, _ := flags.GetString("backend")
	var backend ports.RenderBackend
	switch types.BackendKind(kind) {
	case types.BackendSora:
		apiKey, _ := flags.GetString("api-key")
		if apiKey == "" {
			apiKey = os.Getenv("OPENAI_API_KEY")
		}
		if apiKey == "" {
			return nil, errors.New("OPENAI_API_KEY is required for the sora backend (set it in .env or pass --api-key)")
		}
		backend = sora.New(apiKey, "", defaults, logger)

	case types.BackendVeo:
		project, _ := flags.GetString("gcp-project")
		if project == "" {
			project = os.Getenv("GOOGLE_CLOUD_PROJECT")
		}
		location, _ := flags.GetString("gcp-location")
		if location == "" {
			location = os.Getenv("GOOGLE_CLOUD_LOCATION")
		}
		token, _ := flags.GetString("gcp-access-token")
		if token == "" {
			token = os.Getenv("GOOGLE_CLOUD_ACCESS_TOKEN")
		}
		var tokens veo.TokenSource = veo.GcloudToken{}
		if token != "" {
			tokens = veo.StaticToken(token)
		}
		storageURI, _ := flags.GetString("gcp-storage-uri")
		generateAudio, _ := flags.GetBool("gcp-generate-audio")
		resolution, _ := flags.GetString("gcp-resolution")
		enhancePrompt, _ := flags.GetBool("gcp-enhance-prompt")

		var err error
		backend, err = veo.New(veo.Config{
			Project:       project,
			Location:      location,
			Tokens:        tokens,
			Defaults:      defaults,
			GenerateAudio: generateAudio,
			EnhancePrompt: enhancePrompt,
			StorageURI:    storageURI,
			Resolution:    resolution,
			Logger:        logger,
		})
		if err != nil {
			return nil, err
		}

	default:
		return nil, fmt.Errorf("unknown backend %q (want sora or veo)", kind)
	}

	media := ffmpeg.New(getenvDefault("FFMPEG_PATH", "ffmpeg"))

	dataDir, _ := flags.GetString("data-dir")
	pollMs, _ := flags.GetInt("poll-interval-ms")

	return manager.New(manager.Config{
		DataDir:      dataDir,
		PollInterval: time.Duration(pollMs) * time.Millisecond,
		Logger:       logger,
	}, manager.Deps{
		Backend:      backend,
		Extractor:    media,
		Concatenator: media,
	})
}

func parseVariant(s string) (types.Variant, error) {
	switch types.Variant(s) {
	case types.VariantVideo, types.VariantThumbnail, types.VariantSpritesheet:
		return types.Variant(s), nil
	default:
		return "", fmt.Errorf("unknown variant %q (want video, thumbnail, or spritesheet)", s)
	}
}

// ensure the ffmpeg adapter satisfies both media ports
var (
	_ ports.FrameExtractor = (*ffmpeg.Adapter)(nil)
	_ ports.Concatenator   = (*ffmpeg.Adapter)(nil)
)
