package sora

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/clipchain/clipchain/internal/ports"
	"github.com/clipchain/clipchain/internal/types"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testBackend(url string) *Backend {
	return New("test-key", url, types.RenderDefaults{}, testLogger())
}

func renderRequest(outputPath string) types.RenderRequest {
	return types.RenderRequest{
		Prompt:       "a dog runs",
		Model:        "sora-2",
		Size:         "1280x720",
		Seconds:      12,
		OutputPath:   outputPath,
		PollInterval: time.Millisecond,
	}
}

func TestRender_PollsUntilCompletedAndDownloads(t *testing.T) {
	payload := []byte("0123456789")
	statuses := []string{"queued", "in_progress", "mysterious_new_state", "completed"}
	polls := 0

	var createdForm map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if auth := r.Header.Get("Authorization"); auth != "Bearer test-key" {
			t.Errorf("auth = %q", auth)
		}
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/videos":
			if err := r.ParseMultipartForm(1 << 20); err != nil {
				t.Errorf("parse multipart: %v", err)
			}
			createdForm = map[string]string{}
			for k, vs := range r.MultipartForm.Value {
				createdForm[k] = vs[0]
			}
			json.NewEncoder(w).Encode(map[string]any{"id": "video_123", "status": "queued", "model": "sora-2"})
		case r.Method == http.MethodGet && r.URL.Path == "/videos/video_123":
			status := statuses[polls]
			if polls < len(statuses)-1 {
				polls++
			}
			json.NewEncoder(w).Encode(map[string]any{
				"id": "video_123", "status": status, "model": "sora-2",
				"seconds": "12", "size": "1280x720", "created_at": 1700000000,
			})
		case r.Method == http.MethodGet && r.URL.Path == "/videos/video_123/content":
			w.Write(payload)
		default:
			t.Errorf("unexpected request: %s %s", r.Method, r.URL)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	out := filepath.Join(t.TempDir(), "c1.mp4")
	outcome, err := testBackend(server.URL).Render(context.Background(), renderRequest(out))
	if err != nil {
		t.Fatalf("render: %v", err)
	}

	if outcome.RemoteID != "video_123" {
		t.Errorf("remote id = %q", outcome.RemoteID)
	}
	if outcome.Seconds != 12 || outcome.Size != "1280x720" {
		t.Errorf("outcome = %+v", outcome)
	}
	if outcome.CreatedAt != 1700000000 {
		t.Errorf("created_at = %d", outcome.CreatedAt)
	}
	if createdForm["prompt"] != "a dog runs" || createdForm["seconds"] != "12" {
		t.Errorf("submitted form = %v", createdForm)
	}
	got, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if string(got) != string(payload) {
		t.Errorf("output = %q, want %q", got, payload)
	}
}

func TestRender_SeedImageUploadedAsMultipartPart(t *testing.T) {
	seed := filepath.Join(t.TempDir(), "seed.png")
	if err := os.WriteFile(seed, []byte("png-bytes"), 0o644); err != nil {
		t.Fatalf("write seed: %v", err)
	}

	var gotSeed []byte
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/videos":
			if err := r.ParseMultipartForm(1 << 20); err != nil {
				t.Errorf("parse multipart: %v", err)
			}
			f, hdr, err := r.FormFile("input_reference")
			if err != nil {
				t.Errorf("missing input_reference part: %v", err)
			} else {
				gotSeed, _ = io.ReadAll(f)
				f.Close()
				if ct := hdr.Header.Get("Content-Type"); ct != "image/png" {
					t.Errorf("seed content type = %q", ct)
				}
			}
			json.NewEncoder(w).Encode(map[string]any{"id": "v2", "status": "completed", "model": "sora-2"})
		case strings.HasSuffix(r.URL.Path, "/content"):
			w.Write([]byte("x"))
		default:
			json.NewEncoder(w).Encode(map[string]any{"id": "v2", "status": "completed", "model": "sora-2"})
		}
	}))
	defer server.Close()

	req := renderRequest(filepath.Join(t.TempDir(), "c2.mp4"))
	req.SeedImagePath = seed
	if _, err := testBackend(server.URL).Render(context.Background(), req); err != nil {
		t.Fatalf("render: %v", err)
	}
	if string(gotSeed) != "png-bytes" {
		t.Errorf("seed bytes = %q", gotSeed)
	}
}

func TestRender_FailedJobCarriesRemoteMessage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			json.NewEncoder(w).Encode(map[string]any{"id": "v3", "status": "queued", "model": "sora-2"})
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"id": "v3", "status": "failed", "model": "sora-2",
			"error": map[string]any{"message": "content policy violation"},
		})
	}))
	defer server.Close()

	_, err := testBackend(server.URL).Render(context.Background(), renderRequest(filepath.Join(t.TempDir(), "c3.mp4")))
	var jobErr *ports.JobFailedError
	if !errors.As(err, &jobErr) {
		t.Fatalf("expected JobFailedError, got %v", err)
	}
	if jobErr.Message != "content policy violation" {
		t.Errorf("message = %q", jobErr.Message)
	}
}

func TestRender_CanceledJobFails(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			json.NewEncoder(w).Encode(map[string]any{"id": "v4", "status": "queued", "model": "sora-2"})
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"id": "v4", "status": "canceled", "model": "sora-2"})
	}))
	defer server.Close()

	_, err := testBackend(server.URL).Render(context.Background(), renderRequest(filepath.Join(t.TempDir(), "c4.mp4")))
	var jobErr *ports.JobFailedError
	if !errors.As(err, &jobErr) {
		t.Fatalf("expected JobFailedError, got %v", err)
	}
	if !strings.Contains(jobErr.Message, "canceled") {
		t.Errorf("message = %q", jobErr.Message)
	}
}

func TestDownload_VariantQuery(t *testing.T) {
	var gotQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		w.Write([]byte("thumb"))
	}))
	defer server.Close()

	out := filepath.Join(t.TempDir(), "thumb.webp")
	b := testBackend(server.URL)

	if err := b.Download(context.Background(), "v5", types.VariantThumbnail, out); err != nil {
		t.Fatalf("download: %v", err)
	}
	if gotQuery != "variant=thumbnail" {
		t.Errorf("query = %q", gotQuery)
	}

	if err := b.Download(context.Background(), "v5", types.VariantVideo, out); err != nil {
		t.Fatalf("download: %v", err)
	}
	if gotQuery != "" {
		t.Errorf("primary video should omit the variant query, got %q", gotQuery)
	}
}

func TestDownload_Non2xxIsError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"error":"no such video"}`)
	}))
	defer server.Close()

	err := testBackend(server.URL).Download(context.Background(), "nope", types.VariantVideo, filepath.Join(t.TempDir(), "x.mp4"))
	if err == nil {
		t.Fatalf("expected error for 404 response")
	}
	if !strings.Contains(err.Error(), "404") {
		t.Errorf("error should carry the status code: %v", err)
	}
}

func TestRedactSecrets(t *testing.T) {
	apiKey := "sk-super-secret"
	in := `status 401; Authorization: Bearer sk-super-secret; api_key=sk-super-secret`
	got := redactSecrets(in, apiKey)

	if strings.Contains(got, apiKey) {
		t.Fatalf("expected API key to be redacted, got: %q", got)
	}
	if !strings.Contains(got, "Authorization: [REDACTED]") {
		t.Fatalf("expected authorization header to be redacted, got: %q", got)
	}
}
