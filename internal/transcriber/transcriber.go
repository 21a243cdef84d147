// Package transcriber defines the interface for speech-to-text backends.
//
// AgriSaarthi ships with two backends: OpenAI Whisper (cloud, optionally
// translating to English) and Local (self-hosted whisper server).
package transcriber

import (
	"context"
	"strings"
)

// Audio is an uploaded voice note.
type Audio struct {
	Data        []byte
	ContentType string // e.g. "audio/wav", "audio/ogg"
}

// Opts controls transcription behavior.
type Opts struct {
	// Language is the ISO-639-1 code (e.g., "ta", "hi") to guide transcription.
	Language string

	// Prompt provides context to improve recognition of domain-specific terms.
	Prompt string
}

// Result holds the transcript and the language the backend detected.
type Result struct {
	Text string

	// Language is the ISO-639-1 code of the spoken audio, when known.
	Language string
}

// Transcriber converts audio to text.
type Transcriber interface {
	// Name returns the backend identifier (e.g., "openai", "local").
	Name() string

	Transcribe(ctx context.Context, audio Audio, opts Opts) (*Result, error)
}

// ExtFromContentType maps an audio MIME type to a file extension.
func ExtFromContentType(ct string) string {
	switch {
	case strings.Contains(ct, "wav"):
		return ".wav"
	case strings.Contains(ct, "ogg"):
		return ".ogg"
	case strings.Contains(ct, "mp3"), strings.Contains(ct, "mpeg"):
		return ".mp3"
	case strings.Contains(ct, "flac"):
		return ".flac"
	case strings.Contains(ct, "webm"):
		return ".webm"
	case strings.Contains(ct, "m4a"), strings.Contains(ct, "mp4"):
		return ".m4a"
	default:
		return ".wav"
	}
}

// NormalizeLanguage converts full language names (as returned by Whisper) to ISO-639-1 codes.
func NormalizeLanguage(lang string) string {
	if len(lang) == 2 {
		return strings.ToLower(lang)
	}
	known := map[string]string{
		"english":   "en",
		"tamil":     "ta",
		"hindi":     "hi",
		"telugu":    "te",
		"malayalam": "ml",
		"kannada":   "kn",
		"marathi":   "mr",
		"bengali":   "bn",
		"gujarati":  "gu",
		"punjabi":   "pa",
		"urdu":      "ur",
		"odia":      "or",
	}
	if code, ok := known[strings.ToLower(lang)]; ok {
		return code
	}
	return strings.ToLower(lang)
}
