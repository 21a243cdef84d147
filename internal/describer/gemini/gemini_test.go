package gemini

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/nadzzz/agrisaarthi/internal/config"
	"github.com/nadzzz/agrisaarthi/internal/describer"
)

func newTestDescriber(t *testing.T, handler http.HandlerFunc) *Describer {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	d, err := newWithClientConfig(context.Background(),
		config.GeminiDescriberConfig{APIKey: "g-key", Timeout: time.Second},
		&genai.ClientConfig{
			APIKey:      "g-key",
			Backend:     genai.BackendGeminiAPI,
			HTTPOptions: genai.HTTPOptions{BaseURL: srv.URL + "/"},
		})
	require.NoError(t, err)
	return d
}

func TestDescribe(t *testing.T) {
	d := newTestDescriber(t, func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/models/gemini-1.5-flash:generateContent"), r.URL.Path)
		assert.Equal(t, "g-key", r.Header.Get("x-goog-api-key"))

		var body struct {
			Contents []struct {
				Role  string `json:"role"`
				Parts []struct {
					Text       string `json:"text"`
					InlineData *struct {
						MIMEType string `json:"mimeType"`
						Data     string `json:"data"`
					} `json:"inlineData"`
				} `json:"parts"`
			} `json:"contents"`
			GenerationConfig struct {
				Temperature     float64 `json:"temperature"`
				TopK            float64 `json:"topK"`
				MaxOutputTokens int     `json:"maxOutputTokens"`
			} `json:"generationConfig"`
			SafetySettings []struct {
				Category  string `json:"category"`
				Threshold string `json:"threshold"`
			} `json:"safetySettings"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Len(t, body.Contents, 1)
		assert.Equal(t, "user", body.Contents[0].Role)
		require.Len(t, body.Contents[0].Parts, 2)
		assert.Equal(t, DefaultPrompt, body.Contents[0].Parts[0].Text)
		require.NotNil(t, body.Contents[0].Parts[1].InlineData)
		assert.Equal(t, "image/png", body.Contents[0].Parts[1].InlineData.MIMEType)
		assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("png-bytes")), body.Contents[0].Parts[1].InlineData.Data)
		assert.InDelta(t, 0.4, body.GenerationConfig.Temperature, 1e-6)
		assert.InDelta(t, 32, body.GenerationConfig.TopK, 1e-6)
		assert.Equal(t, 4096, body.GenerationConfig.MaxOutputTokens)
		assert.Len(t, body.SafetySettings, 3)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"role":"model","parts":[{"text":"This is leaf blight. "},{"text":"Remove sick leaves."}]}}]}`))
	})

	got, err := d.Describe(context.Background(), describer.Image{Data: []byte("png-bytes"), ContentType: "image/png"})
	require.NoError(t, err)
	assert.Equal(t, "This is leaf blight. Remove sick leaves.", got)
}

func TestDescribe_Failures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{name: "quota", status: http.StatusTooManyRequests, body: `{"error":{"code":429,"message":"quota exceeded","status":"RESOURCE_EXHAUSTED"}}`},
		{name: "no candidates", status: http.StatusOK, body: `{"candidates":[],"promptFeedback":{"blockReason":"SAFETY"}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newTestDescriber(t, func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			got, err := d.Describe(context.Background(), describer.Image{Data: []byte("jpeg"), ContentType: "image/jpeg"})
			assert.Error(t, err)
			assert.Empty(t, got)
		})
	}
}

func TestDescribe_EmptyImage(t *testing.T) {
	d := newTestDescriber(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("provider must not be called")
	})
	_, err := d.Describe(context.Background(), describer.Image{})
	assert.Error(t, err)
}

func TestResponseText_SkipsThoughts(t *testing.T) {
	resp := &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
		Content: &genai.Content{Parts: []*genai.Part{
			{Text: "thinking...", Thought: true},
			{Text: " Rust disease. "},
		}},
	}}}
	assert.Equal(t, "Rust disease.", responseText(resp))
	assert.Empty(t, responseText(nil))
}
