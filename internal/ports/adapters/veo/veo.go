package veo

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/clipchain/clipchain/internal/ports"
	"github.com/clipchain/clipchain/internal/types"
)

const (
	DefaultModel   = "veo-3.0-generate-preview"
	DefaultSize    = "1280x720"
	DefaultSeconds = 8
)

var (
	ErrMissingProject  = errors.New("missing Google Cloud project id")
	ErrMissingLocation = errors.New("missing Google Cloud location")
)

// UnsupportedDurationError reports a clip duration outside the API's
// allow-list, caught before any network call.
type UnsupportedDurationError struct {
	Seconds int
}

func (e *UnsupportedDurationError) Error() string {
	return fmt.Sprintf("veo requires a duration of 4, 6, or 8 seconds (got %d)", e.Seconds)
}

// Config carries everything the operation-style backend needs. Endpoint is
// injectable for tests; empty means the regional production endpoint.
type Config struct {
	Project  string
	Location string
	Endpoint string

	Tokens   TokenSource
	Defaults types.RenderDefaults

	GenerateAudio bool
	EnhancePrompt bool
	StorageURI    string
	// Resolution overrides the class derived from the request size.
	Resolution string

	Logger *slog.Logger
}

// Backend drives the operation-style video API: submit starts a long-running
// operation, completion is awaited via a fetch-operation endpoint, and the
// clip arrives inline in the final response.
type Backend struct {
	cfg      Config
	endpoint string
	client   *http.Client
	log      *slog.Logger
}

func New(cfg Config) (*Backend, error) {
	if cfg.Project == "" {
		return nil, ErrMissingProject
	}
	if cfg.Location == "" {
		return nil, ErrMissingLocation
	}
	if cfg.Tokens == nil {
		cfg.Tokens = GcloudToken{}
	}
	if cfg.Defaults.Model == "" {
		cfg.Defaults.Model = DefaultModel
	}
	if cfg.Defaults.Size == "" {
		cfg.Defaults.Size = DefaultSize
	}
	if cfg.Defaults.Seconds == 0 {
		cfg.Defaults.Seconds = DefaultSeconds
	}

	endpoint := strings.TrimRight(cfg.Endpoint, "/")
	if endpoint == "" {
		endpoint = fmt.Sprintf("https://%s-aiplatform.googleapis.com", cfg.Location)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Backend{
		cfg:      cfg,
		endpoint: endpoint,
		client:   &http.Client{},
		log:      logger,
	}, nil
}

func (b *Backend) Kind() types.BackendKind { return types.BackendVeo }

func (b *Backend) Defaults() types.RenderDefaults { return b.cfg.Defaults }

// Download is structurally unsupported: the remote protocol only ever
// returns full clip payloads, there is no per-variant content endpoint.
func (b *Backend) Download(ctx context.Context, remoteID string, variant types.Variant, outputPath string) error {
	return fmt.Errorf("veo backend cannot download variant %q: %w", variant, ports.ErrUnsupported)
}

// Render validates the duration, submits the long-running operation, polls
// until done, and writes the inline video payload to req.OutputPath.
func (b *Backend) Render(ctx context.Context, req types.RenderRequest) (types.RenderOutcome, error) {
	if err := validateDuration(req.Seconds); err != nil {
		return types.RenderOutcome{}, err
	}

	resolution := b.cfg.Resolution
	if resolution == "" {
		resolution = ResolutionForSize(req.Size)
	}
	aspectRatio := AspectRatioForSize(req.Size)

	instance := predictInstance{Prompt: req.Prompt}
	if req.SeedImagePath != "" {
		data, err := os.ReadFile(req.SeedImagePath)
		if err != nil {
			return types.RenderOutcome{}, fmt.Errorf("read seed image: %w", err)
		}
		instance.Image = &inlineImage{
			BytesBase64Encoded: base64.StdEncoding.EncodeToString(data),
			MimeType:           "image/png",
		}
	}

	payload := predictRequest{
		Instances: []predictInstance{instance},
		Parameters: predictParameters{
			DurationSeconds: req.Seconds,
			GenerateAudio:   b.cfg.GenerateAudio,
			StorageURI:      b.cfg.StorageURI,
			Resolution:      resolution,
			AspectRatio:     aspectRatio,
			EnhancePrompt:   b.cfg.EnhancePrompt,
		},
	}

	operation, err := b.submit(ctx, req.Model, payload)
	if err != nil {
		return types.RenderOutcome{}, err
	}

	result, err := b.awaitOperation(ctx, req.Model, operation, req.PollInterval)
	if err != nil {
		return types.RenderOutcome{}, err
	}

	if err := b.materialize(result, operation, req.OutputPath); err != nil {
		return types.RenderOutcome{}, err
	}

	return types.RenderOutcome{
		RemoteID: operation,
		Model:    req.Model,
		Seconds:  req.Seconds,
		Size:     req.Size,
	}, nil
}

func (b *Backend) submit(ctx context.Context, model string, payload predictRequest) (string, error) {
	var envelope struct {
		Name string `json:"name"`
	}
	if err := b.post(ctx, b.modelURL(model, "predictLongRunning"), payload, &envelope); err != nil {
		return "", err
	}
	if envelope.Name == "" {
		return "", fmt.Errorf("submit returned no operation name: %w", ports.ErrInvalidResponse)
	}
	return envelope.Name, nil
}

func (b *Backend) awaitOperation(ctx context.Context, model, operation string, interval time.Duration) (*operationResult, error) {
	url := b.modelURL(model, "fetchPredictOperation")
	for {
		var status struct {
			Done     bool             `json:"done"`
			Error    *operationError  `json:"error"`
			Response *operationResult `json:"response"`
		}
		body := map[string]string{"operationName": operation}
		if err := b.post(ctx, url, body, &status); err != nil {
			return nil, err
		}

		if status.Error != nil {
			msg := status.Error.Message
			if msg == "" {
				msg = "unknown error"
			}
			return nil, &ports.JobFailedError{RemoteID: operation, Message: msg}
		}
		if status.Done {
			if status.Response == nil {
				return nil, fmt.Errorf("operation completed without response payload: %w", ports.ErrInvalidResponse)
			}
			return status.Response, nil
		}

		b.log.Debug("polling render operation", "operation", operation)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(interval):
		}
	}
}

// materialize writes the finished clip to disk. Only inline base64 payloads
// can be turned into a local file; a storage-location-only result succeeded
// remotely but cannot be fetched from here.
func (b *Backend) materialize(result *operationResult, operation, outputPath string) error {
	var encoded string
	var sawStorageRef bool
	for _, v := range result.Videos {
		if v.BytesBase64Encoded != "" {
			encoded = v.BytesBase64Encoded
			break
		}
		if v.GcsURI != "" {
			sawStorageRef = true
		}
	}

	if encoded == "" {
		if sawStorageRef {
			return fmt.Errorf("operation %s returned only storage references; set a storage URI and download manually: %w",
				operation, ports.ErrUnsupported)
		}
		return fmt.Errorf("response missing video payload: %w", ports.ErrInvalidResponse)
	}

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return fmt.Errorf("invalid base64 video payload: %w", ports.ErrInvalidResponse)
	}
	return os.WriteFile(outputPath, data, 0o644)
}

func (b *Backend) post(ctx context.Context, url string, payload, out any) error {
	token, err := b.cfg.Tokens.Token(ctx)
	if err != nil {
		return err
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		rb, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("status %d: %s", resp.StatusCode, truncate(string(rb), 400))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (b *Backend) modelURL(model, verb string) string {
	return fmt.Sprintf("%s/v1/projects/%s/locations/%s/publishers/google/models/%s:%s",
		b.endpoint, b.cfg.Project, b.cfg.Location, model, verb)
}

func validateDuration(seconds int) error {
	switch seconds {
	case 4, 6, 8:
		return nil
	default:
		return &UnsupportedDurationError{Seconds: seconds}
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

type inlineImage struct {
	BytesBase64Encoded string `json:"bytesBase64Encoded,omitempty"`
	GcsURI             string `json:"gcsUri,omitempty"`
	MimeType           string `json:"mimeType"`
}

type predictInstance struct {
	Prompt string       `json:"prompt"`
	Image  *inlineImage `json:"image,omitempty"`
}

type predictParameters struct {
	DurationSeconds int    `json:"durationSeconds"`
	GenerateAudio   bool   `json:"generateAudio"`
	StorageURI      string `json:"storageUri,omitempty"`
	Resolution      string `json:"resolution,omitempty"`
	AspectRatio     string `json:"aspectRatio,omitempty"`
	EnhancePrompt   bool   `json:"enhancePrompt"`
	SampleCount     int    `json:"sampleCount,omitempty"`
}

type predictRequest struct {
	Instances  []predictInstance `json:"instances"`
	Parameters predictParameters `json:"parameters"`
}

type operationError struct {
	Message string `json:"message"`
}

type generatedVideo struct {
	GcsURI             string `json:"gcsUri"`
	BytesBase64Encoded string `json:"bytesBase64Encoded"`
	MimeType           string `json:"mimeType"`
}

type operationResult struct {
	Videos []generatedVideo `json:"videos"`
}
