// Package dispatch implements the request orchestrator.
//
// The dispatcher receives farmer requests from transports, extracts text
// from every modality (speech, photo, weather), resolves the response
// language, composes the prompt and asks exactly one advisor backend for
// the advisory. Extractor failures degrade to empty values; only a request
// with no input at all is rejected.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/nadzzz/agrisaarthi/internal/advisor"
	"github.com/nadzzz/agrisaarthi/internal/connectivity"
	"github.com/nadzzz/agrisaarthi/internal/describer"
	"github.com/nadzzz/agrisaarthi/internal/lang"
	"github.com/nadzzz/agrisaarthi/internal/message"
	"github.com/nadzzz/agrisaarthi/internal/metrics"
	"github.com/nadzzz/agrisaarthi/internal/prompt"
	"github.com/nadzzz/agrisaarthi/internal/transcriber"
	"github.com/nadzzz/agrisaarthi/internal/tts"
	"github.com/nadzzz/agrisaarthi/internal/weather"
	"github.com/nadzzz/agrisaarthi/internal/weather/crop"
)

var (
	// ErrInvalidRequest marks requests rejected before any provider is called.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrNoInput is returned for requests without text, audio or image.
	ErrNoInput = fmt.Errorf("%w: request has no text, audio or image", ErrInvalidRequest)

	// ErrWeatherUnavailable is returned by Advisory when the weather lookup fails.
	ErrWeatherUnavailable = errors.New("Weather fetch failed")
)

// Extraction stages, as reported in degraded entries and metrics.
const (
	StageAudio   = "audio"
	StageImage   = "image"
	StageWeather = "weather"
)

// Deps are the collaborators of a Dispatcher. Clients are built once at
// startup and shared by all requests.
type Deps struct {
	Transcriber   transcriber.Transcriber // nil disables audio input
	Describer     describer.Describer     // nil disables image input
	WeatherLookup weather.Lookup
	Resolver      *lang.Resolver
	Connectivity  connectivity.Checker
	Responder     *advisor.Responder
	Crops         crop.Table
	Synthesizer   tts.Synthesizer // nil if TTS is disabled

	DefaultCity    string
	ExtractTimeout time.Duration
}

// Dispatcher is the request orchestrator.
type Dispatcher struct {
	Deps
}

// New creates a Dispatcher.
func New(deps Deps) *Dispatcher {
	if deps.ExtractTimeout <= 0 {
		deps.ExtractTimeout = 30 * time.Second
	}
	if deps.DefaultCity == "" {
		deps.DefaultCity = "Coimbatore"
	}
	if deps.Resolver == nil {
		deps.Resolver = lang.NewResolver("en", nil)
	}
	if deps.Crops == nil {
		deps.Crops = crop.Default()
	}
	return &Dispatcher{Deps: deps}
}

// resolveResponseMode determines the effective ResponseMode for a request.
// If the caller didn't specify one, the default depends on whether TTS is available.
func (d *Dispatcher) resolveResponseMode(mode message.ResponseMode) message.ResponseMode {
	switch mode {
	case message.ResponseModeText, message.ResponseModeAudio, message.ResponseModeTextAudio:
		return mode
	default:
		if d.Synthesizer != nil {
			return message.ResponseModeTextAudio
		}
		return message.ResponseModeText
	}
}

func wantText(mode message.ResponseMode) bool {
	return mode == message.ResponseModeText || mode == message.ResponseModeTextAudio
}

func wantAudio(mode message.ResponseMode) bool {
	return mode == message.ResponseModeAudio || mode == message.ResponseModeTextAudio
}

func (d *Dispatcher) city(c string) string {
	if c = strings.TrimSpace(c); c != "" {
		return c
	}
	return d.DefaultCity
}

// extraction is the output of the concurrent extraction stage.
type extraction struct {
	audioText string
	imageText string
	weather   weather.Snapshot
	degraded  []message.Degradation
}

// extract runs the audio, image and weather extractors concurrently. No
// extractor can fail the request; failures become degraded entries.
func (d *Dispatcher) extract(ctx context.Context, logger *slog.Logger, req *message.Request, city string) extraction {
	ctx, cancel := context.WithTimeout(ctx, d.ExtractTimeout)
	defer cancel()

	var (
		out  = extraction{weather: weather.Unavailable()}
		mu   sync.Mutex
		errs = map[string]error{}
		g    errgroup.Group
		hint = explicitHint(req.Language)
	)
	fail := func(stage string, err error) {
		mu.Lock()
		errs[stage] = err
		mu.Unlock()
	}

	if req.HasAudio() {
		g.Go(func() error {
			if d.Transcriber == nil {
				fail(StageAudio, errors.New("no transcriber configured"))
				return nil
			}
			res, err := d.Transcriber.Transcribe(ctx, transcriber.Audio{Data: req.Audio, ContentType: req.AudioContentType}, transcriber.Opts{Language: hint})
			if err != nil {
				fail(StageAudio, err)
				return nil
			}
			out.audioText = strings.TrimSpace(res.Text)
			logger.Debug("audio transcribed", "backend", d.Transcriber.Name(), "text_length", len(out.audioText), "language", res.Language)
			return nil
		})
	}

	if req.HasImage() {
		g.Go(func() error {
			if d.Describer == nil {
				fail(StageImage, errors.New("no image describer configured"))
				return nil
			}
			text, err := d.Describer.Describe(ctx, describer.Image{Data: req.Image, ContentType: req.ImageContentType})
			if err != nil {
				fail(StageImage, err)
				return nil
			}
			out.imageText = strings.TrimSpace(text)
			logger.Debug("image described", "backend", d.Describer.Name(), "text_length", len(out.imageText))
			return nil
		})
	}

	g.Go(func() error {
		snap, err := d.WeatherLookup.Current(ctx, city)
		if err != nil {
			fail(StageWeather, err)
			return nil
		}
		out.weather = snap
		logger.Debug("weather fetched", "city", city, "complete", snap.Available())
		return nil
	})

	_ = g.Wait()

	for _, stage := range []string{StageAudio, StageImage, StageWeather} {
		err, ok := errs[stage]
		if !ok {
			continue
		}
		metrics.ExtractorFailures.WithLabelValues(stage).Inc()
		logger.Warn("extractor degraded", "stage", stage, "error", err)
		out.degraded = append(out.degraded, message.Degradation{Stage: stage, Error: err.Error()})
	}
	return out
}

// explicitHint returns the normalized explicit language when it is supported.
func explicitHint(explicit string) string {
	if c := lang.Normalize(explicit); lang.IsSupported(c) {
		return string(c)
	}
	return ""
}

// FarmerAgent runs one request through the full pipeline:
// extract modalities, resolve language, compose prompt, generate advisory.
func (d *Dispatcher) FarmerAgent(ctx context.Context, req *message.Request) (*message.AgentResult, error) {
	start := time.Now()
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	logger := slog.With("request_id", req.ID)

	if !req.HasInput() {
		logger.Info("request rejected", "reason", "no input")
		return nil, ErrNoInput
	}
	if !req.ResponseMode.Valid() {
		return nil, fmt.Errorf("%w: unknown response_mode %q", ErrInvalidRequest, req.ResponseMode)
	}

	respMode := d.resolveResponseMode(req.ResponseMode)
	city := d.city(req.City)
	logger.Info("farmer agent started",
		"city", city, "has_text", req.HasText(), "has_audio", req.HasAudio(), "has_image", req.HasImage(), "response_mode", respMode)

	ex := d.extract(ctx, logger, req, city)

	code := d.Resolver.Resolve(req.Language, req.Text, ex.audioText)
	input := prompt.Input{Text: req.Text, AudioText: ex.audioText, ImageText: ex.imageText}
	composed := prompt.Compose(input, ex.weather, code)
	logger.Debug("prompt composed", "language", code, "prompt_length", len(composed))

	result := &message.AgentResult{
		RequestID: req.ID,
		City:      city,
		Weather:   ex.weather,
		InputUsed: message.InputUsed{
			Text:             req.Text,
			AudioText:        ex.audioText,
			ImageDescription: ex.imageText,
		},
		Language: string(code),
		Degraded: ex.degraded,
	}

	out := d.advise(ctx, logger, composed, code)
	result.Backend = out.backend
	result.AdvisoryStatus = out.status
	result.AdvisoryError = out.err
	text := out.text

	audioSent := false
	if wantAudio(respMode) && d.Synthesizer != nil && text != "" {
		synth, err := d.Synthesizer.Synthesize(ctx, text, tts.SynthesizeOpts{Language: string(code)})
		if err != nil {
			logger.Warn("TTS synthesis failed, continuing without audio", "error", err)
		} else {
			result.SetResponseAudioBytes(synth.Audio)
			result.ResponseContentType = synth.ContentType
			audioSent = true
			logger.Debug("TTS synthesis complete", "audio_bytes", len(synth.Audio))
		}
	}
	// Text is kept whenever audio could not be delivered.
	if wantText(respMode) || !audioSent {
		result.AIResponse = text
	}

	logger.Info("farmer agent complete",
		"duration", time.Since(start), "language", code, "language_name", lang.Name(code), "backend", result.Backend,
		"advisory_status", result.AdvisoryStatus, "degraded", len(result.Degraded))
	return result, nil
}

type outcome struct {
	text    string
	backend string
	status  string
	err     *message.AdvisoryError
}

// advise probes connectivity and calls the selected backend. A failed
// generation is reported in the outcome, never as an error.
func (d *Dispatcher) advise(ctx context.Context, logger *slog.Logger, composed string, code lang.Code) outcome {
	online := d.Connectivity.IsOnline(ctx)
	logger.Debug("connectivity probed", "online", online)

	res, err := d.Responder.Advise(ctx, composed, online, code)
	if err != nil {
		ae := &message.AdvisoryError{Kind: string(advisor.KindTransport), Message: err.Error()}
		var aerr *advisor.Error
		if errors.As(err, &aerr) {
			ae.Kind = string(aerr.Kind)
			ae.Backend = aerr.Backend
			ae.Status = aerr.StatusCode
		}
		return outcome{backend: ae.Backend, status: message.AdvisoryFailed, err: ae}
	}
	return outcome{text: res.Text, backend: res.Backend, status: message.AdvisoryOK}
}

// Weather returns the current snapshot for city, or the all-sentinel
// snapshot when the lookup fails.
func (d *Dispatcher) Weather(ctx context.Context, city string) weather.Snapshot {
	city = d.city(city)
	snap, err := d.WeatherLookup.Current(ctx, city)
	if err != nil {
		slog.Warn("weather lookup failed", "city", city, "error", err)
		metrics.ExtractorFailures.WithLabelValues(StageWeather).Inc()
		return weather.Unavailable()
	}
	return snap
}

// Advisory returns rule-based advice for a crop plus a climate tip. When a
// question is included it is also answered by the advisor. The weather is
// required here; a failed lookup returns ErrWeatherUnavailable.
func (d *Dispatcher) Advisory(ctx context.Context, req message.AdvisoryRequest) (*message.AdvisoryResult, error) {
	cropName := strings.TrimSpace(req.Crop)
	if cropName == "" {
		return nil, fmt.Errorf("%w: crop is required", ErrInvalidRequest)
	}
	city := d.city(req.City)
	logger := slog.With("request_id", uuid.NewString(), "crop", cropName, "city", city)

	snap, err := d.WeatherLookup.Current(ctx, city)
	if err != nil {
		logger.Warn("advisory weather lookup failed", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrWeatherUnavailable, err)
	}

	result := &message.AdvisoryResult{
		Crop:       cropName,
		City:       city,
		Weather:    snap,
		Advisory:   d.Crops.Advice(cropName, snap),
		ClimateTip: crop.ClimateTip(snap),
	}
	if result.Advisory == crop.NoData {
		logger.Info("no crop rules for request", "known_crops", d.Crops.Crops())
	}

	question := strings.TrimSpace(req.Question)
	if question != "" {
		code := d.Resolver.Resolve(req.Language, question, "")
		composed := prompt.Compose(prompt.Input{Text: cropName + ": " + question}, snap, code)
		out := d.advise(ctx, logger, composed, code)
		result.Language = string(code)
		result.AIResponse = out.text
		result.Backend = out.backend
		result.AdvisoryStatus = out.status
		result.AdvisoryError = out.err
	}

	logger.Info("advisory complete", "has_question", question != "", "advisory_status", result.AdvisoryStatus)
	return result, nil
}
