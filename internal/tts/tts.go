// Package tts defines the interface for text-to-speech synthesis.
//
// AgriSaarthi can read the advisory aloud in the farmer's language, for
// users who cannot comfortably read the text reply.
package tts

import (
	"context"
	"errors"
)

// ErrNoVoice is returned when no voice is configured for the requested language.
var ErrNoVoice = errors.New("no voice for language")

// SynthesizeOpts controls synthesis behavior.
type SynthesizeOpts struct {
	// Language is the ISO-639-1 code (e.g., "hi", "ml") to select the voice.
	Language string

	// Voice overrides automatic language-based voice selection.
	Voice string
}

// Synthesizer converts text to audio.
type Synthesizer interface {
	// Synthesize generates a WAV file from the given text.
	Synthesize(ctx context.Context, text string, opts SynthesizeOpts) (*SynthesizeResult, error)

	// Close releases any resources held by the synthesizer.
	Close() error
}

// SynthesizeResult holds the output of TTS synthesis.
type SynthesizeResult struct {
	Audio       []byte
	ContentType string // "audio/wav"
	SampleRate  int
	Channels    int
}
