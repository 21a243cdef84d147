// Package message defines the core data types flowing through the advisory pipeline.
package message

import (
	"encoding/base64"
	"strings"
	"time"

	"github.com/nadzzz/agrisaarthi/internal/weather"
)

// ResponseMode controls what natural-language output the caller wants.
// The caller declares desired output in the request, and the server
// populates or omits response fields accordingly.
type ResponseMode string

const (
	// ResponseModeText returns the advisory as text.
	ResponseModeText ResponseMode = "text"

	// ResponseModeAudio returns TTS-synthesized audio only (no text).
	ResponseModeAudio ResponseMode = "audio"

	// ResponseModeTextAudio returns both text and synthesized audio.
	ResponseModeTextAudio ResponseMode = "text+audio"
)

// Valid reports whether m is a known mode. The empty mode is valid and
// means "server default".
func (m ResponseMode) Valid() bool {
	switch m {
	case "", ResponseModeText, ResponseModeAudio, ResponseModeTextAudio:
		return true
	}
	return false
}

// Request is a farmer query from any transport.
type Request struct {
	// ID is a unique identifier for this request (UUID). Assigned by the
	// dispatcher when empty.
	ID string `json:"id,omitempty"`

	// Text is the typed question.
	Text string `json:"text,omitempty"`

	// City selects the weather location. Empty means the default city.
	City string `json:"city,omitempty"`

	// Language is an explicit ISO-639-1 response language (e.g., "ta").
	Language string `json:"lang,omitempty"`

	// Audio is a voice note. Nil if absent.
	Audio []byte `json:"audio,omitempty"`

	// AudioContentType is the MIME type of Audio (e.g., "audio/wav").
	AudioContentType string `json:"audio_content_type,omitempty"`

	// Image is a crop photo. Nil if absent.
	Image []byte `json:"image,omitempty"`

	// ImageContentType is the MIME type of Image (e.g., "image/jpeg").
	ImageContentType string `json:"image_content_type,omitempty"`

	// ResponseMode is "text", "audio" or "text+audio".
	// Defaults to "text" when TTS is disabled, "text+audio" when TTS is enabled.
	ResponseMode ResponseMode `json:"response_mode,omitempty"`

	// Timestamp is when the request was received.
	Timestamp time.Time `json:"timestamp,omitempty"`
}

// HasText returns true if the request carries non-blank text.
func (r *Request) HasText() bool { return strings.TrimSpace(r.Text) != "" }

// HasAudio returns true if the request contains an audio payload.
func (r *Request) HasAudio() bool { return len(r.Audio) > 0 }

// HasImage returns true if the request contains an image payload.
func (r *Request) HasImage() bool { return len(r.Image) > 0 }

// HasInput returns true if at least one modality is present.
func (r *Request) HasInput() bool { return r.HasText() || r.HasAudio() || r.HasImage() }

// InputUsed echoes the exact strings the prompt was built from.
type InputUsed struct {
	Text             string `json:"text"`
	AudioText        string `json:"audio_text"`
	ImageDescription string `json:"image_description"`
}

// Advisory generation outcomes.
const (
	AdvisoryOK     = "ok"
	AdvisoryFailed = "failed"
)

// AdvisoryError describes a failed LLM call.
type AdvisoryError struct {
	Kind    string `json:"kind"`
	Backend string `json:"backend"`
	Status  int    `json:"status,omitempty"`
	Message string `json:"message"`
}

// Degradation records an extractor that fell back to an empty value.
type Degradation struct {
	Stage string `json:"stage"` // "audio", "image" or "weather"
	Error string `json:"error"`
}

// AgentResult is the response envelope of the farmer agent.
type AgentResult struct {
	RequestID string           `json:"request_id"`
	City      string           `json:"city"`
	Weather   weather.Snapshot `json:"weather"`

	// AIResponse is the advisory text. Empty when generation failed or
	// when only audio was requested.
	AIResponse string    `json:"ai_response"`
	InputUsed  InputUsed `json:"input_used"`

	// Language is the resolved response language.
	Language string `json:"language"`

	// Backend is the advisor that served the request ("openai" or "local").
	Backend        string         `json:"backend"`
	AdvisoryStatus string         `json:"advisory_status"`
	AdvisoryError  *AdvisoryError `json:"advisory_error,omitempty"`
	Degraded       []Degradation  `json:"degraded,omitempty"`

	// ResponseAudio is the TTS-synthesized advisory as a base64-encoded string.
	// Populated when response_mode is "audio" or "text+audio".
	ResponseAudio string `json:"response_audio,omitempty"`

	// ResponseContentType is the MIME type of ResponseAudio (e.g., "audio/wav").
	ResponseContentType string `json:"response_content_type,omitempty"`
}

// SetResponseAudioBytes base64-encodes raw audio bytes into ResponseAudio.
func (r *AgentResult) SetResponseAudioBytes(audio []byte) {
	if len(audio) > 0 {
		r.ResponseAudio = base64.StdEncoding.EncodeToString(audio)
	}
}

// AdvisoryRequest asks for rule-based crop advice.
type AdvisoryRequest struct {
	Crop string `json:"crop"`
	City string `json:"city,omitempty"`

	// Question, when set, also gets an LLM answer.
	Question string `json:"question,omitempty"`
	Language string `json:"lang,omitempty"`
}

// AdvisoryResult is the response of the crop advisory route.
type AdvisoryResult struct {
	Crop       string           `json:"crop"`
	City       string           `json:"city"`
	Weather    weather.Snapshot `json:"weather"`
	Advisory   string           `json:"advisory"`
	ClimateTip string           `json:"climate_tip"`

	// Populated only when a question was asked.
	AIResponse     string         `json:"ai_response,omitempty"`
	Language       string         `json:"language,omitempty"`
	Backend        string         `json:"backend,omitempty"`
	AdvisoryStatus string         `json:"advisory_status,omitempty"`
	AdvisoryError  *AdvisoryError `json:"advisory_error,omitempty"`
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
}
