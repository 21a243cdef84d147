// Package openai implements the Advisor interface on an OpenAI-compatible
// Chat Completions API. The default base URL points at OpenRouter.
package openai

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/nadzzz/agrisaarthi/internal/advisor"
	"github.com/nadzzz/agrisaarthi/internal/config"
	"github.com/nadzzz/agrisaarthi/internal/prompt"
)

const backendName = "openai"

// Advisor generates advisories through a chat completion endpoint.
type Advisor struct {
	client      *openai.Client
	model       string
	maxTokens   int
	temperature float32
}

// New creates a new chat advisor from config.
func New(cfg config.OnlineAdvisorConfig) *Advisor {
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
		model = "deepseek/deepseek-chat"
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 512
	}
	return &Advisor{
		client:      openai.NewClientWithConfig(clientConfig),
		model:       model,
		maxTokens:   maxTokens,
		temperature: cfg.Temperature,
	}
}

// Name returns the backend identifier.
func (a *Advisor) Name() string { return backendName }

// Advise sends the prompt with the language's system instruction. Single attempt.
func (a *Advisor) Advise(ctx context.Context, req advisor.Request) (*advisor.Result, error) {
	chatReq := openai.ChatCompletionRequest{
		Model: a.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: prompt.SystemInstruction(req.Language)},
			{Role: openai.ChatMessageRoleUser, Content: req.Prompt},
		},
		Temperature: a.temperature,
		MaxTokens:   a.maxTokens,
	}

	resp, err := a.client.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		return nil, classify(err)
	}
	if len(resp.Choices) == 0 {
		return nil, advisor.EmptyError(backendName)
	}

	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return nil, advisor.EmptyError(backendName)
	}

	slog.Debug("chat completion complete", "model", resp.Model, "finish_reason", resp.Choices[0].FinishReason)
	return &advisor.Result{Text: text, Backend: backendName, Model: a.model}, nil
}

// classify maps go-openai errors onto advisor error kinds.
func classify(err error) *advisor.Error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode != 0 {
		return advisor.StatusError(backendName, apiErr.HTTPStatusCode, apiErr.Message)
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode != 0 {
		body := ""
		if reqErr.Err != nil {
			body = reqErr.Err.Error()
		}
		return advisor.StatusError(backendName, reqErr.HTTPStatusCode, body)
	}

	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	// A truncated 200 body surfaces as io.ErrUnexpectedEOF from the decoder.
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) || errors.Is(err, io.ErrUnexpectedEOF) {
		return advisor.MalformedError(backendName, err)
	}

	return advisor.TransportError(backendName, err)
}
