// Package gemini implements the Describer interface on Google's Gemini vision models.
package gemini

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/nadzzz/agrisaarthi/internal/config"
	"github.com/nadzzz/agrisaarthi/internal/describer"
)

// DefaultPrompt asks for a plain-language disease explanation.
const DefaultPrompt = "You are a helpful crop expert who speaks simply for rural farmers.\n" +
	"This is a plant with... " +
	"In very simple and short sentences, explain what this disease is, how it happens, " +
	"and how a farmer can treat and stop it. Use easy words any farmer can understand."

// Describer sends crop photos to Gemini for diagnosis.
type Describer struct {
	client  *genai.Client
	model   string
	prompt  string
	timeout time.Duration
}

// New creates a Gemini describer. The client is built once and reused.
func New(ctx context.Context, cfg config.GeminiDescriberConfig) (*Describer, error) {
	return newWithClientConfig(ctx, cfg, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
}

func newWithClientConfig(ctx context.Context, cfg config.GeminiDescriberConfig, cc *genai.ClientConfig) (*Describer, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if cc.HTTPClient == nil {
		cc.HTTPClient = &http.Client{Timeout: timeout}
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}

	model := cfg.Model
	if model == "" {
		model = "gemini-1.5-flash"
	}
	p := cfg.Prompt
	if p == "" {
		p = DefaultPrompt
	}
	return &Describer{client: client, model: model, prompt: p, timeout: timeout}, nil
}

// Name returns the backend identifier.
func (d *Describer) Name() string { return "gemini" }

// Describe asks Gemini to diagnose the crop in img.
func (d *Describer) Describe(ctx context.Context, img describer.Image) (string, error) {
	if len(img.Data) == 0 {
		return "", fmt.Errorf("empty image payload")
	}

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	parts := []*genai.Part{
		genai.NewPartFromText(d.prompt),
		{InlineData: &genai.Blob{MIMEType: img.MIMEType(), Data: img.Data}},
	}
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}

	resp, err := d.client.Models.GenerateContent(ctx, d.model, contents, generationConfig())
	if err != nil {
		return "", fmt.Errorf("gemini generate content: %w", err)
	}

	text := responseText(resp)
	if text == "" {
		return "", fmt.Errorf("gemini returned no text")
	}
	slog.Debug("image described", "backend", "gemini", "model", d.model, "length", len(text))
	return text, nil
}

func generationConfig() *genai.GenerateContentConfig {
	return &genai.GenerateContentConfig{
		Temperature:     genai.Ptr[float32](0.4),
		TopP:            genai.Ptr[float32](1),
		TopK:            genai.Ptr[float32](32),
		MaxOutputTokens: 4096,
		SafetySettings: []*genai.SafetySetting{
			{Category: "HARM_CATEGORY_HARASSMENT", Threshold: "BLOCK_MEDIUM_AND_ABOVE"},
			{Category: "HARM_CATEGORY_HATE_SPEECH", Threshold: "BLOCK_MEDIUM_AND_ABOVE"},
			{Category: "HARM_CATEGORY_DANGEROUS_CONTENT", Threshold: "BLOCK_MEDIUM_AND_ABOVE"},
		},
	}
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part != nil && part.Text != "" && !part.Thought {
			sb.WriteString(part.Text)
		}
	}
	return strings.TrimSpace(sb.String())
}
