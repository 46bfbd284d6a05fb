package veo

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os/exec"
	"strings"
)

// ErrMissingToken is returned when no bearer token can be obtained, either
// because the credential helper is not installed or because it printed
// nothing.
var ErrMissingToken = errors.New("unable to obtain access token")

// TokenSource yields a bearer token for one request. Tokens are fetched per
// call; long poll loops outlive short-lived credentials otherwise.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken is a pre-obtained access token.
type StaticToken string

func (t StaticToken) Token(context.Context) (string, error) {
	return string(t), nil
}

// GcloudToken shells out to the gcloud CLI and uses its trimmed stdout as
// the bearer token.
type GcloudToken struct {
	// Path of the gcloud binary; empty means "gcloud" on PATH.
	Path string
}

func (g GcloudToken) Token(ctx context.Context) (string, error) {
	bin := g.Path
	if bin == "" {
		bin = "gcloud"
	}
	out, err := exec.CommandContext(ctx, bin, "auth", "print-access-token").Output()
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) || errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%s not found: %w", bin, ErrMissingToken)
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return "", fmt.Errorf("gcloud auth print-access-token: %w\n%s", err, string(exitErr.Stderr))
		}
		return "", fmt.Errorf("gcloud auth print-access-token: %w", err)
	}
	token := strings.TrimSpace(string(out))
	if token == "" {
		return "", fmt.Errorf("gcloud printed no token: %w", ErrMissingToken)
	}
	return token, nil
}
