package dispatch

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nadzzz/agrisaarthi/internal/advisor"
	"github.com/nadzzz/agrisaarthi/internal/describer"
	"github.com/nadzzz/agrisaarthi/internal/lang"
	"github.com/nadzzz/agrisaarthi/internal/message"
	"github.com/nadzzz/agrisaarthi/internal/transcriber"
	"github.com/nadzzz/agrisaarthi/internal/tts"
	"github.com/nadzzz/agrisaarthi/internal/weather"
	"github.com/nadzzz/agrisaarthi/internal/weather/crop"
)

// --- fakes ---

type fakeTranscriber struct {
	text string
	err  error
	opts transcriber.Opts
}

func (f *fakeTranscriber) Name() string { return "fake-stt" }

func (f *fakeTranscriber) Transcribe(_ context.Context, _ transcriber.Audio, opts transcriber.Opts) (*transcriber.Result, error) {
	f.opts = opts
	if f.err != nil {
		return nil, f.err
	}
	return &transcriber.Result{Text: f.text}, nil
}

type fakeDescriber struct {
	text string
	err  error
}

func (f *fakeDescriber) Name() string { return "fake-vision" }

func (f *fakeDescriber) Describe(_ context.Context, _ describer.Image) (string, error) {
	return f.text, f.err
}

type fakeLookup struct {
	snaps map[string]weather.Snapshot
}

func (f *fakeLookup) Current(_ context.Context, city string) (weather.Snapshot, error) {
	if s, ok := f.snaps[strings.ToLower(city)]; ok {
		return s, nil
	}
	return weather.Unavailable(), errors.New("weather API returned 404: city not found")
}

type fixedChecker bool

func (c fixedChecker) IsOnline(context.Context) bool { return bool(c) }

type fakeAdvisor struct {
	name string
	text string
	err  error

	mu    sync.Mutex
	calls []advisor.Request
}

func (f *fakeAdvisor) Name() string { return f.name }

func (f *fakeAdvisor) Advise(_ context.Context, req advisor.Request) (*advisor.Result, error) {
	f.mu.Lock()
	f.calls = append(f.calls, req)
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return &advisor.Result{Text: f.text, Backend: f.name, Model: "fake"}, nil
}

func (f *fakeAdvisor) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fakeSynth struct {
	err  error
	lang string
}

func (f *fakeSynth) Synthesize(_ context.Context, _ string, opts tts.SynthesizeOpts) (*tts.SynthesizeResult, error) {
	f.lang = opts.Language
	if f.err != nil {
		return nil, f.err
	}
	return &tts.SynthesizeResult{Audio: []byte("RIFF"), ContentType: "audio/wav"}, nil
}

func (f *fakeSynth) Close() error { return nil }

// --- helpers ---

var chennai = weather.Snapshot{Temp: weather.Value(31.5), Humidity: weather.Value(70), Condition: "clear sky"}

type harness struct {
	d       *Dispatcher
	online  *fakeAdvisor
	offline *fakeAdvisor
	stt     *fakeTranscriber
	vision  *fakeDescriber
}

func newHarness(t *testing.T, online bool, detect lang.Detector) *harness {
	t.Helper()
	h := &harness{
		online:  &fakeAdvisor{name: "openai", text: "Plant groundnut now."},
		offline: &fakeAdvisor{name: "local", text: "Offline advice."},
		stt:     &fakeTranscriber{text: "my paddy leaves are yellow"},
		vision:  &fakeDescriber{text: "Leaf blast on rice."},
	}
	h.d = New(Deps{
		Transcriber: h.stt,
		Describer:   h.vision,
		WeatherLookup: &fakeLookup{snaps: map[string]weather.Snapshot{
			"chennai":    chennai,
			"coimbatore": chennai,
			"jaipur":     {Temp: weather.Value(41), Humidity: weather.Value(20), Condition: "haze"},
		}},
		Resolver:     lang.NewResolver("en", detect),
		Connectivity: fixedChecker(online),
		Responder:    &advisor.Responder{Online: h.online, Offline: h.offline},
	})
	return h
}

func detectAs(code lang.Code) lang.Detector {
	return func(string) (lang.Code, bool) { return code, true }
}

// --- FarmerAgent ---

func TestFarmerAgent_NoInput(t *testing.T) {
	h := newHarness(t, true, nil)
	_, err := h.d.FarmerAgent(context.Background(), &message.Request{Text: "   ", City: "Chennai"})
	require.ErrorIs(t, err, ErrNoInput)
	assert.ErrorIs(t, err, ErrInvalidRequest)
	assert.Zero(t, h.online.count())
	assert.Zero(t, h.offline.count())
}

func TestFarmerAgent_InvalidResponseMode(t *testing.T) {
	h := newHarness(t, true, nil)
	_, err := h.d.FarmerAgent(context.Background(), &message.Request{Text: "hi", ResponseMode: "video"})
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestFarmerAgent_TamilText(t *testing.T) {
	h := newHarness(t, true, detectAs(lang.Tamil))

	res, err := h.d.FarmerAgent(context.Background(), &message.Request{
		Text: "என் நெல் பயிரில் மஞ்சள் இலைகள் உள்ளன",
		City: "Chennai",
	})
	require.NoError(t, err)

	assert.NotEmpty(t, res.RequestID)
	assert.Equal(t, "Chennai", res.City)
	assert.Equal(t, "ta", res.Language)
	assert.Equal(t, chennai, res.Weather)
	assert.Equal(t, "openai", res.Backend)
	assert.Equal(t, message.AdvisoryOK, res.AdvisoryStatus)
	assert.Equal(t, "Plant groundnut now.", res.AIResponse)
	assert.Empty(t, res.Degraded)
	assert.Equal(t, message.InputUsed{Text: "என் நெல் பயிரில் மஞ்சள் இலைகள் உள்ளன"}, res.InputUsed)

	require.Equal(t, 1, h.online.count())
	assert.Zero(t, h.offline.count())
	call := h.online.calls[0]
	assert.Equal(t, lang.Tamil, call.Language)
	assert.Contains(t, call.Prompt, "[கேள்வி] என் நெல் பயிரில் மஞ்சள் இலைகள் உள்ளன")
	assert.Contains(t, call.Prompt, "31.5°C")
}

func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	buf := &bytes.Buffer{}
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	t.Cleanup(func() { slog.SetDefault(prev) })
	return buf
}

func TestFarmerAgent_DetectsHindi(t *testing.T) {
	logs := captureLogs(t)
	h := newHarness(t, true, nil)

	res, err := h.d.FarmerAgent(context.Background(), &message.Request{
		Text: "मुझे इस मौसम में कौन सी फसल बोनी चाहिए?",
		City: "Jaipur",
	})
	require.NoError(t, err)
	assert.Equal(t, "hi", res.Language)
	require.Equal(t, 1, h.online.count())
	assert.Equal(t, lang.Hindi, h.online.calls[0].Language)

	assert.Contains(t, logs.String(), `"language_name":"Hindi"`)
	assert.Contains(t, logs.String(), `"msg":"weather fetched"`)
	assert.Contains(t, logs.String(), `"complete":true`)
}

func TestFarmerAgent_UnknownCityDegrades(t *testing.T) {
	h := newHarness(t, true, nil)

	res, err := h.d.FarmerAgent(context.Background(), &message.Request{Text: "What should I plant?", City: "Atlantis"})
	require.NoError(t, err)

	assert.Equal(t, weather.Unavailable(), res.Weather)
	require.Len(t, res.Degraded, 1)
	assert.Equal(t, StageWeather, res.Degraded[0].Stage)
	assert.Equal(t, message.AdvisoryOK, res.AdvisoryStatus)

	require.Equal(t, 1, h.online.count())
	assert.Contains(t, h.online.calls[0].Prompt, "NA°C")
}

func TestFarmerAgent_DefaultCity(t *testing.T) {
	h := newHarness(t, true, nil)
	res, err := h.d.FarmerAgent(context.Background(), &message.Request{Text: "hello"})
	require.NoError(t, err)
	assert.Equal(t, "Coimbatore", res.City)
	assert.Empty(t, res.Degraded)
}

func TestFarmerAgent_OfflineUsesLocalOnly(t *testing.T) {
	h := newHarness(t, false, nil)

	res, err := h.d.FarmerAgent(context.Background(), &message.Request{Text: "Is it time to sow?", City: "Chennai"})
	require.NoError(t, err)

	assert.Equal(t, "local", res.Backend)
	assert.Equal(t, "Offline advice.", res.AIResponse)
	assert.Equal(t, 1, h.offline.count())
	assert.Zero(t, h.online.count())
}

func TestFarmerAgent_AudioFailureDegrades(t *testing.T) {
	h := newHarness(t, true, nil)
	h.stt.err = errors.New("whisper API returned 500")

	res, err := h.d.FarmerAgent(context.Background(), &message.Request{
		Text:  "Check my crop",
		Audio: []byte("not really audio"),
		City:  "Chennai",
	})
	require.NoError(t, err)

	assert.Equal(t, "", res.InputUsed.AudioText)
	assert.Equal(t, "Check my crop", res.InputUsed.Text)
	assert.Equal(t, message.AdvisoryOK, res.AdvisoryStatus)
	require.Len(t, res.Degraded, 1)
	assert.Equal(t, StageAudio, res.Degraded[0].Stage)
	assert.Contains(t, res.Degraded[0].Error, "500")
}

func TestFarmerAgent_AllModalities(t *testing.T) {
	h := newHarness(t, true, nil)

	res, err := h.d.FarmerAgent(context.Background(), &message.Request{
		Text:     "What is wrong?",
		Audio:    []byte("RIFF"),
		Image:    []byte{0xff, 0xd8, 0xff},
		City:     "Chennai",
		Language: "HI",
	})
	require.NoError(t, err)

	assert.Equal(t, message.InputUsed{
		Text:             "What is wrong?",
		AudioText:        "my paddy leaves are yellow",
		ImageDescription: "Leaf blast on rice.",
	}, res.InputUsed)
	assert.Equal(t, "hi", res.Language)
	assert.Equal(t, "hi", h.stt.opts.Language)

	p := h.online.calls[0].Prompt
	assert.Contains(t, p, "[किसान का प्रश्न] What is wrong?")
	assert.Contains(t, p, "[आवाज़ संदेश] my paddy leaves are yellow")
	assert.Contains(t, p, "[तस्वीर विश्लेषण] Leaf blast on rice.")
}

func TestFarmerAgent_ImageOnlyWithoutDescriber(t *testing.T) {
	h := newHarness(t, true, nil)
	h.d.Describer = nil

	res, err := h.d.FarmerAgent(context.Background(), &message.Request{Image: []byte{1, 2, 3}, City: "Chennai"})
	require.NoError(t, err)
	require.Len(t, res.Degraded, 1)
	assert.Equal(t, StageImage, res.Degraded[0].Stage)
	assert.Equal(t, "en", res.Language)
	assert.Contains(t, h.online.calls[0].Prompt, "[No input provided]")
}

func TestFarmerAgent_AdvisorFailure(t *testing.T) {
	h := newHarness(t, true, nil)
	h.online.err = advisor.StatusError("openai", 429, `{"error":"rate limited"}`)

	res, err := h.d.FarmerAgent(context.Background(), &message.Request{Text: "Help", City: "Chennai"})
	require.NoError(t, err)

	assert.Equal(t, message.AdvisoryFailed, res.AdvisoryStatus)
	assert.Empty(t, res.AIResponse)
	require.NotNil(t, res.AdvisoryError)
	assert.Equal(t, string(advisor.KindHTTPStatus), res.AdvisoryError.Kind)
	assert.Equal(t, "openai", res.AdvisoryError.Backend)
	assert.Equal(t, 429, res.AdvisoryError.Status)
	assert.Equal(t, "openai", res.Backend)
	assert.Zero(t, h.offline.count())
}

func TestFarmerAgent_UntypedAdvisorError(t *testing.T) {
	h := newHarness(t, false, nil)
	h.offline.err = context.DeadlineExceeded

	res, err := h.d.FarmerAgent(context.Background(), &message.Request{Text: "Help"})
	require.NoError(t, err)
	require.NotNil(t, res.AdvisoryError)
	assert.Equal(t, string(advisor.KindTimeout), res.AdvisoryError.Kind)
	assert.Equal(t, "local", res.AdvisoryError.Backend)
}

func TestFarmerAgent_ResponseModes(t *testing.T) {
	tests := []struct {
		name      string
		mode      message.ResponseMode
		synth     *fakeSynth
		wantText  bool
		wantAudio bool
	}{
		{"default without tts", "", nil, true, false},
		{"default with tts", "", &fakeSynth{}, true, true},
		{"text only", message.ResponseModeText, &fakeSynth{}, true, false},
		{"audio only", message.ResponseModeAudio, &fakeSynth{}, false, true},
		{"audio failed keeps text", message.ResponseModeAudio, &fakeSynth{err: tts.ErrNoVoice}, true, false},
		{"audio without tts keeps text", message.ResponseModeAudio, nil, true, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, true, nil)
			if tt.synth != nil {
				h.d.Synthesizer = tt.synth
			}

			res, err := h.d.FarmerAgent(context.Background(), &message.Request{Text: "Help", ResponseMode: tt.mode})
			require.NoError(t, err)

			assert.Equal(t, tt.wantText, res.AIResponse != "")
			assert.Equal(t, tt.wantAudio, res.ResponseAudio != "")
			if tt.wantAudio {
				assert.Equal(t, "audio/wav", res.ResponseContentType)
				assert.Equal(t, "en", tt.synth.lang)
			}
		})
	}
}

// --- Weather ---

func TestWeather(t *testing.T) {
	h := newHarness(t, true, nil)
	assert.Equal(t, chennai, h.d.Weather(context.Background(), " Chennai "))
	assert.Equal(t, weather.Unavailable(), h.d.Weather(context.Background(), "Atlantis"))
}

// --- Advisory ---

func TestAdvisory_RuleBased(t *testing.T) {
	h := newHarness(t, true, nil)

	res, err := h.d.Advisory(context.Background(), message.AdvisoryRequest{Crop: "Rice", City: "Jaipur"})
	require.NoError(t, err)

	rice := crop.Default()["rice"]
	assert.Equal(t, "Rice", res.Crop)
	assert.Equal(t, "Jaipur", res.City)
	assert.Equal(t, rice.DefaultAdvice+" "+rice.HeatTip, res.Advisory)
	assert.Equal(t, crop.TipHeat, res.ClimateTip)
	assert.Empty(t, res.AIResponse)
	assert.Empty(t, res.AdvisoryStatus)
	assert.Zero(t, h.online.count())
}

func TestAdvisory_UnknownCrop(t *testing.T) {
	h := newHarness(t, true, nil)
	res, err := h.d.Advisory(context.Background(), message.AdvisoryRequest{Crop: "dragonfruit", City: "Chennai"})
	require.NoError(t, err)
	assert.Equal(t, crop.NoData, res.Advisory)
	assert.Equal(t, crop.TipFavorable, res.ClimateTip)
}

func TestAdvisory_UnknownCropLogsKnownCrops(t *testing.T) {
	logs := captureLogs(t)
	h := newHarness(t, true, nil)

	_, err := h.d.Advisory(context.Background(), message.AdvisoryRequest{Crop: "dragonfruit", City: "Chennai"})
	require.NoError(t, err)
	assert.Contains(t, logs.String(), `"known_crops":["banana","chilli","cotton"`)
}

func TestAdvisory_MissingCrop(t *testing.T) {
	h := newHarness(t, true, nil)
	_, err := h.d.Advisory(context.Background(), message.AdvisoryRequest{Crop: " "})
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestAdvisory_WeatherFailure(t *testing.T) {
	h := newHarness(t, true, nil)
	_, err := h.d.Advisory(context.Background(), message.AdvisoryRequest{Crop: "rice", City: "Atlantis"})
	require.ErrorIs(t, err, ErrWeatherUnavailable)
	assert.NotErrorIs(t, err, ErrInvalidRequest)
}

func TestAdvisory_Question(t *testing.T) {
	h := newHarness(t, true, detectAs(lang.Telugu))

	res, err := h.d.Advisory(context.Background(), message.AdvisoryRequest{
		Crop:     "cotton",
		City:     "Chennai",
		Question: "ఎప్పుడు పిచికారీ చేయాలి?",
	})
	require.NoError(t, err)

	assert.Equal(t, "te", res.Language)
	assert.Equal(t, "Plant groundnut now.", res.AIResponse)
	assert.Equal(t, message.AdvisoryOK, res.AdvisoryStatus)
	require.Equal(t, 1, h.online.count())
	assert.Contains(t, h.online.calls[0].Prompt, "cotton: ఎప్పుడు పిచికారీ చేయాలి?")
}
