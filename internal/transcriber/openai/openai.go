// Package openai implements the Transcriber interface on OpenAI's Whisper API.
package openai

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/nadzzz/agrisaarthi/internal/config"
	"github.com/nadzzz/agrisaarthi/internal/transcriber"
)

// Transcriber uploads audio to the Whisper transcription or translation API.
type Transcriber struct {
	client    *openai.Client
	model     string
	translate bool
}

// New creates a new Whisper transcriber from config.
func New(cfg config.OpenAITranscriberConfig) *Transcriber {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	clientConfig.HTTPClient = &http.Client{Timeout: timeout}

	model := cfg.Model
	if model == "" {
		model = openai.Whisper1
	}
	return &Transcriber{
		client:    openai.NewClientWithConfig(clientConfig),
		model:     model,
		translate: cfg.Translate,
	}
}

// Name returns the backend identifier.
func (t *Transcriber) Name() string { return "openai" }

// Transcribe writes the audio to a request-scoped temp file and sends it to
// Whisper. With translation enabled the transcript comes back in English.
// The temp file is removed on every path.
func (t *Transcriber) Transcribe(ctx context.Context, audio transcriber.Audio, opts transcriber.Opts) (*transcriber.Result, error) {
	if len(audio.Data) == 0 {
		return nil, fmt.Errorf("empty audio payload")
	}

	path, err := writeTemp(audio)
	if err != nil {
		return nil, err
	}
	defer os.Remove(path)

	req := openai.AudioRequest{
		Model:    t.model,
		FilePath: path,
		Prompt:   opts.Prompt,
		Format:   openai.AudioResponseFormatVerboseJSON,
	}

	var resp openai.AudioResponse
	if t.translate {
		resp, err = t.client.CreateTranslation(ctx, req)
	} else {
		req.Language = opts.Language
		resp, err = t.client.CreateTranscription(ctx, req)
	}
	if err != nil {
		return nil, fmt.Errorf("whisper request: %w", err)
	}

	lang := transcriber.NormalizeLanguage(resp.Language)
	slog.Debug("transcription complete", "text_length", len(resp.Text), "language", lang, "translated", t.translate)
	return &transcriber.Result{
		Text:     strings.TrimSpace(resp.Text),
		Language: lang,
	}, nil
}

func writeTemp(audio transcriber.Audio) (string, error) {
	f, err := os.CreateTemp("", "agrisaarthi-audio-*"+transcriber.ExtFromContentType(audio.ContentType))
	if err != nil {
		return "", fmt.Errorf("creating temp audio file: %w", err)
	}
	if _, err := f.Write(audio.Data); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("writing temp audio file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("closing temp audio file: %w", err)
	}
	return f.Name(), nil
}
