// Package huggingface implements the Describer interface on the HuggingFace
// inference API, using an image captioning model (BLIP by default).
package huggingface

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/nadzzz/agrisaarthi/internal/config"
	"github.com/nadzzz/agrisaarthi/internal/describer"
)

// ErrModelLoading is returned while the hosted model is cold-starting (HTTP 503).
var ErrModelLoading = errors.New("huggingface model is loading, try again shortly")

// Describer posts raw image bytes to a captioning model.
type Describer struct {
	token    string
	endpoint string
	client   *http.Client
}

// New creates a HuggingFace describer from config.
func New(cfg config.HuggingFaceDescriberConfig) *Describer {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Describer{
		token:    cfg.Token,
		endpoint: cfg.Endpoint,
		client:   &http.Client{Timeout: timeout},
	}
}

// Name returns the backend identifier.
func (d *Describer) Name() string { return "huggingface" }

// Describe returns the model's caption for img.
func (d *Describer) Describe(ctx context.Context, img describer.Image) (string, error) {
	if len(img.Data) == 0 {
		return "", fmt.Errorf("empty image payload")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.endpoint, bytes.NewReader(img.Data))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", img.MIMEType())
	if d.token != "" {
		req.Header.Set("Authorization", "Bearer "+d.token)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("huggingface request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusServiceUnavailable {
		return "", ErrModelLoading
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return "", fmt.Errorf("huggingface error (status %d): %s", resp.StatusCode, body)
	}

	var captions []struct {
		GeneratedText string `json:"generated_text"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&captions); err != nil {
		return "", fmt.Errorf("decoding huggingface response: %w", err)
	}
	if len(captions) == 0 || strings.TrimSpace(captions[0].GeneratedText) == "" {
		return "", fmt.Errorf("huggingface returned no caption")
	}

	text := strings.TrimSpace(captions[0].GeneratedText)
	slog.Debug("image described", "backend", "huggingface", "length", len(text))
	return text, nil
}
