// Package local implements the Advisor interface on a self-hosted model.
//
// It speaks Ollama's /api/generate and any OpenAI-compatible chat endpoint
// (Ollama's /v1/chat/completions, vLLM, llama.cpp server).
package local

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

	"github.com/nadzzz/agrisaarthi/internal/advisor"
	"github.com/nadzzz/agrisaarthi/internal/config"
	"github.com/nadzzz/agrisaarthi/internal/prompt"
)

const backendName = "local"

// Advisor uses a self-hosted LLM for advisory generation.
type Advisor struct {
	endpoint    string
	model       string
	maxTokens   int
	temperature float32
	client      *http.Client
}

// New creates a new local advisor from config.
func New(cfg config.OfflineAdvisorConfig) *Advisor {
	model := cfg.LLMModel
	if model == "" {
		model = "gemma:2b"
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 512
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Advisor{
		endpoint:    cfg.LLMEndpoint,
		model:       model,
		maxTokens:   maxTokens,
		temperature: cfg.Temperature,
		client:      &http.Client{Timeout: timeout},
	}
}

// Name returns the backend identifier.
func (a *Advisor) Name() string { return backendName }

type generateRequest struct {
	Model   string          `json:"model"`
	System  string          `json:"system"`
	Prompt  string          `json:"prompt"`
	Stream  bool            `json:"stream"`
	Options generateOptions `json:"options"`
}

type generateOptions struct {
	Temperature float32 `json:"temperature"`
	NumPredict  int     `json:"num_predict"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float32       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
	Stream      bool          `json:"stream"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Advise sends the prompt to the local LLM endpoint. An endpoint ending in
// /api/generate gets Ollama's native format; anything else gets chat format.
func (a *Advisor) Advise(ctx context.Context, req advisor.Request) (*advisor.Result, error) {
	system := prompt.SystemInstruction(req.Language)

	var payload any
	if a.isGenerate() {
		payload = generateRequest{
			Model:   a.model,
			System:  system,
			Prompt:  req.Prompt,
			Stream:  false,
			Options: generateOptions{Temperature: a.temperature, NumPredict: a.maxTokens},
		}
	} else {
		payload = chatRequest{
			Model: a.model,
			Messages: []chatMessage{
				{Role: "system", Content: system},
				{Role: "user", Content: req.Prompt},
			},
			Temperature: a.temperature,
			MaxTokens:   a.maxTokens,
			Stream:      false,
		}
	}

	bodyBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, &advisor.Error{Kind: advisor.KindTransport, Backend: backendName, Err: fmt.Errorf("marshalling request: %w", err)}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, advisor.TransportError(backendName, fmt.Errorf("creating request: %w", err))
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(httpReq)
	if err != nil {
		return nil, advisor.TransportError(backendName, fmt.Errorf("local LLM request: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, advisor.StatusError(backendName, resp.StatusCode, string(respBody))
	}

	respData, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, advisor.TransportError(backendName, fmt.Errorf("reading LLM response: %w", err))
	}

	content, err := extractContent(respData)
	if err != nil {
		return nil, advisor.MalformedError(backendName, err)
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, advisor.EmptyError(backendName)
	}

	slog.Debug("local advisory complete", "model", a.model, "length", len(content))
	return &advisor.Result{Text: content, Backend: backendName, Model: a.model}, nil
}

func (a *Advisor) isGenerate() bool {
	return strings.HasSuffix(strings.TrimRight(a.endpoint, "/"), "/api/generate")
}

// extractContent reads the generated text from either response format.
func extractContent(data []byte) (string, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return "", fmt.Errorf("decoding LLM response: %w", err)
	}

	// OpenAI-compatible: {"choices": [{"message": {"content": "..."}}]}
	if _, ok := raw["choices"]; ok {
		var chatResp struct {
			Choices []struct {
				Message struct {
					Content string `json:"content"`
				} `json:"message"`
			} `json:"choices"`
		}
		if err := json.Unmarshal(data, &chatResp); err != nil {
			return "", fmt.Errorf("decoding chat response: %w", err)
		}
		if len(chatResp.Choices) == 0 {
			return "", nil
		}
		return chatResp.Choices[0].Message.Content, nil
	}

	// Ollama: {"response": "..."}
	if _, ok := raw["response"]; ok {
		var ollamaResp struct {
			Response string `json:"response"`
		}
		if err := json.Unmarshal(data, &ollamaResp); err != nil {
			return "", fmt.Errorf("decoding generate response: %w", err)
		}
		return ollamaResp.Response, nil
	}

	if msg, ok := raw["error"]; ok {
		return "", fmt.Errorf("LLM error: %s", msg)
	}
	return "", errors.New("response has neither choices nor response field")
}
