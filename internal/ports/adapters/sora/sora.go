package sora

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/clipchain/clipchain/internal/ports"
	"github.com/clipchain/clipchain/internal/types"
)

const (
	defaultBaseURL = "https://api.openai.com/v1"

	DefaultModel   = "sora-2"
	DefaultSize    = "1280x720"
	DefaultSeconds = 12
)

// Backend drives the job-style video API: one multipart submit creates a
// remote job, completion is awaited by polling the job by id, and the
// finished clip is fetched from a separate content endpoint.
type Backend struct {
	apiKey   string
	baseURL  string
	defaults types.RenderDefaults
	client   *http.Client
	log      *slog.Logger
}

func New(apiKey, baseURL string, defaults types.RenderDefaults, logger *slog.Logger) *Backend {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if defaults.Model == "" {
		defaults.Model = DefaultModel
	}
	if defaults.Size == "" {
		defaults.Size = DefaultSize
	}
	if defaults.Seconds == 0 {
		defaults.Seconds = DefaultSeconds
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Backend{
		apiKey:   apiKey,
		baseURL:  baseURL,
		defaults: defaults,
		client:   &http.Client{},
		log:      logger,
	}
}

func (b *Backend) Kind() types.BackendKind { return types.BackendSora }

func (b *Backend) Defaults() types.RenderDefaults { return b.defaults }

// Render submits the job, polls until a terminal status, and downloads the
// primary video to req.OutputPath. There is no attempt bound; the context is
// the only way to abort a job that never settles.
func (b *Backend) Render(ctx context.Context, req types.RenderRequest) (types.RenderOutcome, error) {
	job, err := b.createVideo(ctx, req)
	if err != nil {
		return types.RenderOutcome{}, err
	}

	job, err = b.waitForCompletion(ctx, job.ID, req.PollInterval)
	if err != nil {
		return types.RenderOutcome{}, err
	}

	if err := b.Download(ctx, job.ID, types.VariantVideo, req.OutputPath); err != nil {
		return types.RenderOutcome{}, err
	}

	outcome := types.RenderOutcome{
		RemoteID:  job.ID,
		Model:     job.Model,
		Seconds:   int(job.Seconds),
		Size:      job.Size,
		CreatedAt: job.CreatedAt,
	}
	// The job echo may omit fields the request pinned; fall back to what was asked.
	if outcome.Model == "" {
		outcome.Model = req.Model
	}
	if outcome.Seconds == 0 {
		outcome.Seconds = req.Seconds
	}
	if outcome.Size == "" {
		outcome.Size = req.Size
	}
	return outcome, nil
}

// Download fetches a variant of an already-rendered clip into outputPath.
// The query parameter is omitted for the primary video.
func (b *Backend) Download(ctx context.Context, remoteID string, variant types.Variant, outputPath string) error {
	url := fmt.Sprintf("%s/videos/%s/content", b.baseURL, remoteID)
	switch variant {
	case types.VariantVideo, "":
	default:
		url += "?variant=" + string(variant)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+b.apiKey)

	resp, err := b.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return b.statusError("download content", resp)
	}

	f, err := os.Create(outputPath)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, resp.Body); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", filepath.Base(outputPath), err)
	}
	return f.Close()
}

func (b *Backend) createVideo(ctx context.Context, req types.RenderRequest) (Job, error) {
	body, contentType, err := buildCreateForm(req)
	if err != nil {
		return Job{}, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+"/videos", body)
	if err != nil {
		return Job{}, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+b.apiKey)
	httpReq.Header.Set("Content-Type", contentType)

	resp, err := b.client.Do(httpReq)
	if err != nil {
		return Job{}, err
	}
	defer resp.Body.Close()

	return b.decodeJob("create video", resp)
}

func (b *Backend) retrieveVideo(ctx context.Context, remoteID string) (Job, error) {
	url := fmt.Sprintf("%s/videos/%s", b.baseURL, remoteID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Job{}, err
	}
	req.Header.Set("Authorization", "Bearer "+b.apiKey)

	resp, err := b.client.Do(req)
	if err != nil {
		return Job{}, err
	}
	defer resp.Body.Close()

	return b.decodeJob("retrieve video", resp)
}

func (b *Backend) waitForCompletion(ctx context.Context, remoteID string, interval time.Duration) (Job, error) {
	for {
		job, err := b.retrieveVideo(ctx, remoteID)
		if err != nil {
			return Job{}, err
		}

		switch job.Status {
		case StatusCompleted:
			return job, nil
		case StatusFailed:
			msg := "unknown error"
			if job.Error != nil && job.Error.Message != "" {
				msg = job.Error.Message
			}
			return Job{}, &ports.JobFailedError{RemoteID: remoteID, Message: msg}
		case StatusCanceled:
			return Job{}, &ports.JobFailedError{RemoteID: remoteID, Message: "job was canceled"}
		default:
			b.log.Debug("polling render job",
				"id", remoteID,
				"status", string(job.Status),
				"progress", job.Progress,
			)
			select {
			case <-ctx.Done():
				return Job{}, ctx.Err()
			case <-time.After(interval):
			}
		}
	}
}

func (b *Backend) decodeJob(op string, resp *http.Response) (Job, error) {
	if resp.StatusCode == http.StatusNoContent {
		return Job{}, fmt.Errorf("%s: %w: empty response from server", op, ports.ErrInvalidResponse)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Job{}, b.statusError(op, resp)
	}

	var job Job
	if err := json.NewDecoder(resp.Body).Decode(&job); err != nil {
		return Job{}, fmt.Errorf("%s: decode job: %w", op, err)
	}
	return job, nil
}

func (b *Backend) statusError(op string, resp *http.Response) error {
	rb, readErr := io.ReadAll(resp.Body)
	if readErr != nil {
		return fmt.Errorf("%s: status %d and read body failed: %v", op, resp.StatusCode, readErr)
	}
	return fmt.Errorf("%s: status %d: %s", op, resp.StatusCode,
		truncate(redactSecrets(string(rb), b.apiKey), 400))
}

func buildCreateForm(req types.RenderRequest) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	fields := map[string]string{
		"model":   req.Model,
		"prompt":  req.Prompt,
		"seconds": strconv.Itoa(req.Seconds),
		"size":    req.Size,
	}
	for name, value := range fields {
		if err := w.WriteField(name, value); err != nil {
			return nil, "", err
		}
	}

	if req.SeedImagePath != "" {
		data, err := os.ReadFile(req.SeedImagePath)
		if err != nil {
			return nil, "", fmt.Errorf("read seed image: %w", err)
		}
		hdr := make(textproto.MIMEHeader)
		hdr.Set("Content-Disposition", `form-data; name="input_reference"; filename="input.png"`)
		hdr.Set("Content-Type", "image/png")
		part, err := w.CreatePart(hdr)
		if err != nil {
			return nil, "", err
		}
		if _, err := part.Write(data); err != nil {
			return nil, "", err
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}
