package types

import "time"

// BackendKind identifies which render backend produced a clip. The set of
// backends is closed; metadata records carry the kind so download requests
// can be routed the same way the clip was rendered.
type BackendKind string

const (
	BackendSora BackendKind = "sora"
	BackendVeo  BackendKind = "veo"
)

// Variant names a downloadable artifact for a rendered clip.
type Variant string

const (
	VariantVideo       Variant = "video"
	VariantThumbnail   Variant = "thumbnail"
	VariantSpritesheet Variant = "spritesheet"
)

// ClipMetadata is the durable record kept for each local clip, one JSON file
// per clip in the data directory. Written only after a successful
// render+download; immutable afterwards.
type ClipMetadata struct {
	LocalID   string      `json:"local_id"`
	RemoteID  string      `json:"remote_id"`
	Prompt    string      `json:"prompt"`
	Model     string      `json:"model"`
	Seconds   int         `json:"seconds"`
	Size      string      `json:"size"`
	CreatedAt int64       `json:"created_at,omitempty"` // Unix seconds; 0 = backend did not report one
	FilePath  string      `json:"file_path"`
	Parent    string      `json:"parent,omitempty"` // local_id of the clip this one continues
	Backend   BackendKind `json:"backend"`
}

// RenderDefaults are the backend-specific fallbacks used when a request does
// not pin model, size, or duration.
type RenderDefaults struct {
	Model   string
	Size    string
	Seconds int
}

// RenderRequest carries fully resolved parameters from the manager to a
// backend. SeedImagePath, when non-empty, points at a still image the new
// clip should be conditioned on.
type RenderRequest struct {
	Prompt        string
	Model         string
	Size          string
	Seconds       int
	OutputPath    string
	SeedImagePath string
	PollInterval  time.Duration
}

// RenderOutcome reports what the backend actually rendered; model, size and
// seconds may differ from the request when the remote service rewrites them.
type RenderOutcome struct {
	RemoteID  string
	Model     string
	Size      string
	Seconds   int
	CreatedAt int64
}
