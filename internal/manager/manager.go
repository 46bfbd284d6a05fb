// Package manager orchestrates the clip lifecycle: it owns the data
// directory and the local identity store, resolves render parameters, and
// drives one render backend plus the external media tool.
package manager

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/clipchain/clipchain/internal/ports"
	"github.com/clipchain/clipchain/internal/types"
)

const (
	mediaExt            = ".mp4"
	defaultDataDir      = "videos"
	defaultPollInterval = 5 * time.Second
)

var (
	// ErrClipExists guards local id uniqueness within a data directory.
	ErrClipExists = errors.New("local id already exists")
	// ErrMetadataNotFound means no record is stored under the id.
	ErrMetadataNotFound = errors.New("metadata not found")
	// ErrClipNotFound means the record exists but its media file is gone.
	ErrClipNotFound = errors.New("clip media file not found")
	// ErrNoInputClips rejects a stitch call with an empty input list.
	ErrNoInputClips = errors.New("stitch requires at least one input clip")
)

// Deps are the collaborators the manager drives. All are required.
type Deps struct {
	Backend      ports.RenderBackend
	Extractor    ports.FrameExtractor
	Concatenator ports.Concatenator
}

type Config struct {
	// DataDir holds clip media and metadata; defaults to "videos".
	DataDir string
	// PollInterval is the wait between remote status checks; defaults to 5s.
	PollInterval time.Duration
	Logger       *slog.Logger
}

type Manager struct {
	d            Deps
	dataDir      string
	pollInterval time.Duration
	log          *slog.Logger
}

func New(cfg Config, d Deps) (*Manager, error) {
	if d.Backend == nil {
		return nil, errors.New("manager: render backend is required")
	}
	if d.Extractor == nil {
		return nil, errors.New("manager: frame extractor is required")
	}
	if d.Concatenator == nil {
		return nil, errors.New("manager: concatenator is required")
	}
	dataDir := cfg.DataDir
	if dataDir == "" {
		dataDir = defaultDataDir
	}
	interval := cfg.PollInterval
	if interval <= 0 {
		interval = defaultPollInterval
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{d: d, dataDir: dataDir, pollInterval: interval, log: logger}, nil
}

// CreateRequest asks for a brand-new clip. Model, Size and Seconds are
// optional overrides; zero values fall back to the backend defaults.
type CreateRequest struct {
	LocalID string
	Prompt  string
	Model   string
	Size    string
	Seconds int
}

// ContinueRequest asks for a clip conditioned on the last frame of an
// existing one. Unset overrides inherit from the parent clip first, then
// from the backend defaults.
type ContinueRequest struct {
	ParentLocalID string
	LocalID       string
	Prompt        string
	Model         string
	Size          string
	Seconds       int
}

// Create renders a new clip and persists its metadata. Metadata is written
// last so a failed render leaves no record behind.
func (m *Manager) Create(ctx context.Context, req CreateRequest) (types.ClipMetadata, error) {
	if err := m.ensureDataDir(); err != nil {
		return types.ClipMetadata{}, err
	}
	if m.metadataExists(req.LocalID) {
		return types.ClipMetadata{}, fmt.Errorf("clip %q: %w", req.LocalID, ErrClipExists)
	}

	defaults := m.d.Backend.Defaults()
	render := types.RenderRequest{
		Prompt:       req.Prompt,
		Model:        resolve(req.Model, "", defaults.Model),
		Size:         resolve(req.Size, "", defaults.Size),
		Seconds:      resolveInt(req.Seconds, 0, defaults.Seconds),
		OutputPath:   m.clipPath(req.LocalID),
		PollInterval: m.pollInterval,
	}

	m.log.Info("rendering clip", "id", req.LocalID, "model", render.Model, "size", render.Size, "seconds", render.Seconds)
	outcome, err := m.d.Backend.Render(ctx, render)
	if err != nil {
		return types.ClipMetadata{}, err
	}

	md := m.buildMetadata(req.LocalID, req.Prompt, "", render, outcome)
	if err := m.saveMetadata(md); err != nil {
		return types.ClipMetadata{}, err
	}
	m.log.Info("clip created", "id", md.LocalID, "remote_id", md.RemoteID, "file", md.FilePath)
	return md, nil
}

// Continue renders a continuation of an existing clip. The conditioning
// frame is a scoped resource: extracted before the render and removed on
// every exit path afterwards, best-effort.
func (m *Manager) Continue(ctx context.Context, req ContinueRequest) (types.ClipMetadata, error) {
	if err := m.ensureDataDir(); err != nil {
		return types.ClipMetadata{}, err
	}
	if m.metadataExists(req.LocalID) {
		return types.ClipMetadata{}, fmt.Errorf("clip %q: %w", req.LocalID, ErrClipExists)
	}

	parent, err := m.loadMetadata(req.ParentLocalID)
	if err != nil {
		return types.ClipMetadata{}, err
	}
	parentClip := m.clipPath(req.ParentLocalID)
	if _, err := os.Stat(parentClip); err != nil {
		return types.ClipMetadata{}, fmt.Errorf("clip %q: %w", req.ParentLocalID, ErrClipNotFound)
	}

	framePath := m.seedFramePath(req.LocalID)
	if err := m.d.Extractor.ExtractLastFrame(ctx, parentClip, framePath); err != nil {
		return types.ClipMetadata{}, err
	}
	defer func() {
		if err := os.Remove(framePath); err != nil {
			m.log.Debug("could not remove seed frame", "path", framePath, "error", err)
		}
	}()

	defaults := m.d.Backend.Defaults()
	render := types.RenderRequest{
		Prompt:        req.Prompt,
		Model:         resolve(req.Model, parent.Model, defaults.Model),
		Size:          resolve(req.Size, parent.Size, defaults.Size),
		Seconds:       resolveInt(req.Seconds, parent.Seconds, defaults.Seconds),
		OutputPath:    m.clipPath(req.LocalID),
		SeedImagePath: framePath,
		PollInterval:  m.pollInterval,
	}

	m.log.Info("rendering continuation", "id", req.LocalID, "from", req.ParentLocalID, "model", render.Model)
	outcome, err := m.d.Backend.Render(ctx, render)
	if err != nil {
		return types.ClipMetadata{}, err
	}

	md := m.buildMetadata(req.LocalID, req.Prompt, parent.LocalID, render, outcome)
	if err := m.saveMetadata(md); err != nil {
		return types.ClipMetadata{}, err
	}
	m.log.Info("continuation created", "id", md.LocalID, "parent", md.Parent, "remote_id", md.RemoteID)
	return md, nil
}

// List returns every readable clip record, sorted by local id.
func (m *Manager) List(ctx context.Context) ([]types.ClipMetadata, error) {
	if err := m.ensureDataDir(); err != nil {
		return nil, err
	}
	return m.listMetadata()
}

// Metadata fetches the stored record for one clip.
func (m *Manager) Metadata(localID string) (types.ClipMetadata, error) {
	return m.loadMetadata(localID)
}

// DownloadAsset materializes a variant of a rendered clip at outputPath.
// For backends without a content endpoint the primary video is copied from
// the local file instead of a remote round trip.
func (m *Manager) DownloadAsset(ctx context.Context, localID string, variant types.Variant, outputPath string) error {
	md, err := m.loadMetadata(localID)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(outputPath); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir %s: %w", dir, err)
		}
	}

	if md.Backend == types.BackendVeo && (variant == types.VariantVideo || variant == "") {
		if err := copyFile(md.FilePath, outputPath); err != nil {
			if os.IsNotExist(err) {
				return fmt.Errorf("clip %q: %w", localID, ErrClipNotFound)
			}
			return err
		}
		return nil
	}

	return m.d.Backend.Download(ctx, md.RemoteID, variant, outputPath)
}

// Stitch joins the listed clips, in order, into <data_dir>/<outputID>.mp4
// without re-encoding. The concat manifest is a temporary file removed
// regardless of outcome.
func (m *Manager) Stitch(ctx context.Context, outputID string, inputIDs []string) (string, error) {
	if len(inputIDs) == 0 {
		return "", ErrNoInputClips
	}
	if err := m.ensureDataDir(); err != nil {
		return "", err
	}

	var manifest strings.Builder
	for _, id := range inputIDs {
		md, err := m.loadMetadata(id)
		if err != nil {
			return "", err
		}
		if _, err := os.Stat(md.FilePath); err != nil {
			return "", fmt.Errorf("clip %q: %w", id, ErrClipNotFound)
		}
		abs, err := filepath.Abs(md.FilePath)
		if err != nil {
			return "", fmt.Errorf("resolve path for %q: %w", id, err)
		}
		fmt.Fprintf(&manifest, "file '%s'\n", abs)
	}

	manifestPath := filepath.Join(m.dataDir, ".concat-"+outputID+".txt")
	if err := os.WriteFile(manifestPath, []byte(manifest.String()), 0o644); err != nil {
		return "", fmt.Errorf("write concat manifest: %w", err)
	}
	defer os.Remove(manifestPath)

	outputPath := m.clipPath(outputID)
	m.log.Info("stitching clips", "output", outputID, "inputs", len(inputIDs))
	if err := m.d.Concatenator.Concat(ctx, manifestPath, outputPath); err != nil {
		return "", err
	}
	return outputPath, nil
}

func (m *Manager) buildMetadata(localID, prompt, parent string, req types.RenderRequest, outcome types.RenderOutcome) types.ClipMetadata {
	return types.ClipMetadata{
		LocalID:   localID,
		RemoteID:  outcome.RemoteID,
		Prompt:    prompt,
		Model:     outcome.Model,
		Seconds:   outcome.Seconds,
		Size:      outcome.Size,
		CreatedAt: outcome.CreatedAt,
		FilePath:  req.OutputPath,
		Parent:    parent,
		Backend:   m.d.Backend.Kind(),
	}
}

// seedFramePath is deterministic per new clip id so a crashed run leaves at
// most one stray frame to find.
func (m *Manager) seedFramePath(localID string) string {
	return filepath.Join(os.TempDir(), "clipchain-"+localID+"-seed.png")
}

// resolve is the precedence chain for render parameters: explicit override,
// then the parent clip's value, then the backend default.
func resolve(override, parent, fallback string) string {
	if override != "" {
		return override
	}
	if parent != "" {
		return parent
	}
	return fallback
}

func resolveInt(override, parent, fallback int) int {
	if override != 0 {
		return override
	}
	if parent != 0 {
		return parent
	}
	return fallback
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
