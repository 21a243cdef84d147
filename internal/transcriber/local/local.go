// Package local implements the Transcriber interface on a self-hosted whisper server.
//
// It supports any Whisper-compatible transcription endpoint (e.g., whisper.cpp
// server, faster-whisper) and ahmetoner/whisper-asr-webservice.
package local

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"time"

	"github.com/nadzzz/agrisaarthi/internal/config"
	"github.com/nadzzz/agrisaarthi/internal/transcriber"
)

// Transcriber uses a self-hosted whisper server.
type Transcriber struct {
	endpoint    string
	whisperType string // "openai" or "asr"
	vadFilter   bool
	client      *http.Client
}

// New creates a new local transcriber from config.
func New(cfg config.LocalTranscriberConfig) *Transcriber {
	wt := cfg.WhisperType
	if wt == "" {
		wt = "openai"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Transcriber{
		endpoint:    cfg.WhisperEndpoint,
		whisperType: wt,
		vadFilter:   cfg.VADFilter,
		client:      &http.Client{Timeout: timeout},
	}
}

// Name returns the backend identifier.
func (t *Transcriber) Name() string { return "local" }

// Transcribe sends audio to the local whisper endpoint.
// Supports two flavors:
//   - "openai": OpenAI-compatible API (whisper.cpp server, faster-whisper)
//   - "asr":    ahmetoner/whisper-asr-webservice (POST /asr with query params)
func (t *Transcriber) Transcribe(ctx context.Context, audio transcriber.Audio, opts transcriber.Opts) (*transcriber.Result, error) {
	if len(audio.Data) == 0 {
		return nil, fmt.Errorf("empty audio payload")
	}
	switch t.whisperType {
	case "asr":
		return t.transcribeASR(ctx, audio, opts)
	default:
		return t.transcribeOpenAI(ctx, audio, opts)
	}
}

// transcribeASR handles the whisper-asr-webservice format.
// API: POST /asr?task=transcribe&language=ta&output=json&vad_filter=true
// Body: multipart/form-data with field "audio_file"
func (t *Transcriber) transcribeASR(ctx context.Context, audio transcriber.Audio, opts transcriber.Opts) (*transcriber.Result, error) {
	body, contentType, err := multipartAudio("audio_file", audio, nil)
	if err != nil {
		return nil, err
	}

	q := make(url.Values)
	q.Set("task", "transcribe")
	q.Set("output", "json")
	q.Set("encode", "true")
	if opts.Language != "" {
		q.Set("language", opts.Language)
	}
	if opts.Prompt != "" {
		q.Set("initial_prompt", opts.Prompt)
	}
	if t.vadFilter {
		q.Set("vad_filter", "true")
	}

	reqURL := t.endpoint + "?" + q.Encode()
	slog.Debug("whisper-asr request", "url", reqURL)
	return t.post(ctx, reqURL, body, contentType)
}

// transcribeOpenAI handles OpenAI-compatible whisper endpoints.
func (t *Transcriber) transcribeOpenAI(ctx context.Context, audio transcriber.Audio, opts transcriber.Opts) (*transcriber.Result, error) {
	fields := map[string]string{"response_format": "verbose_json"}
	if opts.Language != "" {
		fields["language"] = opts.Language
	}
	if opts.Prompt != "" {
		fields["prompt"] = opts.Prompt
	}
	body, contentType, err := multipartAudio("file", audio, fields)
	if err != nil {
		return nil, err
	}
	return t.post(ctx, t.endpoint, body, contentType)
}

func (t *Transcriber) post(ctx context.Context, reqURL string, body *bytes.Buffer, contentType string) (*transcriber.Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("local transcription request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, fmt.Errorf("local transcription failed (status %d): %s", resp.StatusCode, respBody)
	}

	var result struct {
		Text     string `json:"text"`
		Language string `json:"language"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decoding transcription: %w", err)
	}

	lang := transcriber.NormalizeLanguage(result.Language)
	slog.Debug("local transcription complete", "text_length", len(result.Text), "language", lang)
	return &transcriber.Result{Text: result.Text, Language: lang}, nil
}

func multipartAudio(field string, audio transcriber.Audio, fields map[string]string) (*bytes.Buffer, string, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile(field, "audio"+transcriber.ExtFromContentType(audio.ContentType))
	if err != nil {
		return nil, "", fmt.Errorf("creating form file: %w", err)
	}
	if _, err := part.Write(audio.Data); err != nil {
		return nil, "", fmt.Errorf("writing audio: %w", err)
	}
	for k, v := range fields {
		if err := writer.WriteField(k, v); err != nil {
			return nil, "", fmt.Errorf("writing field %s: %w", k, err)
		}
	}
	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("closing multipart body: %w", err)
	}
	return body, writer.FormDataContentType(), nil
}
