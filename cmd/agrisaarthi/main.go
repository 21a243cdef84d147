// AgriSaarthi is a multilingual farmer advisory service. It accepts typed
// questions, voice notes and crop photos, combines them with the current
// weather and answers in the farmer's language.
//
// Usage:
//
//	agrisaarthi [flags]
//	agrisaarthi --config /path/to/agrisaarthi.yaml
//
// @title       AgriSaarthi API
// @version     1.0
// @description Multilingual farmer advisory: text, voice and crop photos in, weather-aware advice out.
// @BasePath    /
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	_ "github.com/nadzzz/agrisaarthi/docs"
	"github.com/nadzzz/agrisaarthi/internal/advisor"
	localadvisor "github.com/nadzzz/agrisaarthi/internal/advisor/local"
	openaiadvisor "github.com/nadzzz/agrisaarthi/internal/advisor/openai"
	"github.com/nadzzz/agrisaarthi/internal/config"
	"github.com/nadzzz/agrisaarthi/internal/connectivity"
	"github.com/nadzzz/agrisaarthi/internal/describer"
	"github.com/nadzzz/agrisaarthi/internal/describer/gemini"
	"github.com/nadzzz/agrisaarthi/internal/describer/huggingface"
	"github.com/nadzzz/agrisaarthi/internal/dispatch"
	"github.com/nadzzz/agrisaarthi/internal/health"
	"github.com/nadzzz/agrisaarthi/internal/lang"
	"github.com/nadzzz/agrisaarthi/internal/transcriber"
	localstt "github.com/nadzzz/agrisaarthi/internal/transcriber/local"
	openaistt "github.com/nadzzz/agrisaarthi/internal/transcriber/openai"
	"github.com/nadzzz/agrisaarthi/internal/transport"
	grpctransport "github.com/nadzzz/agrisaarthi/internal/transport/grpc"
	httptransport "github.com/nadzzz/agrisaarthi/internal/transport/http"
	mqtttransport "github.com/nadzzz/agrisaarthi/internal/transport/mqtt"
	"github.com/nadzzz/agrisaarthi/internal/tts"
	"github.com/nadzzz/agrisaarthi/internal/tts/piper"
	"github.com/nadzzz/agrisaarthi/internal/weather"
	"github.com/nadzzz/agrisaarthi/internal/weather/crop"
)

// version is set at build time via ldflags.
var version = "dev"

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	configFile := flag.String("config", "", "path to config file (e.g. configs/agrisaarthi.yaml)")
	flag.Parse()

	if *showVersion {
		fmt.Printf("agrisaarthi %s\n", version)
		os.Exit(0)
	}

	// Load configuration.
	cfg, err := config.Load(*configFile)
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Setup structured logging.
	config.SetupLogging(cfg.Logging)
	slog.Info("agrisaarthi starting", "version", version)

	// Create root context with signal handling for graceful shutdown.
	ctx, cancel := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	deps, err := buildDeps(ctx, cfg)
	if err != nil {
		slog.Error("failed to initialize providers", "error", err)
		os.Exit(1)
	}
	if deps.Synthesizer != nil {
		defer deps.Synthesizer.Close()
	}
	dispatcher := dispatch.New(deps)

	// Initialize enabled transports.
	var transports []transport.Transport

	if cfg.Transports.GRPC.Enabled {
		transports = append(transports, grpctransport.New(cfg.Transports.GRPC.Port))
	}
	if cfg.Transports.HTTP.Enabled {
		transports = append(transports, httptransport.New(cfg.Transports.HTTP.Port, cfg.Dispatch.MaxUploadBytes))
	}
	if cfg.Transports.MQTT.Enabled {
		transports = append(transports, mqtttransport.New(cfg.Transports.MQTT))
	}

	if len(transports) == 0 {
		slog.Error("no transports enabled, enable at least one in config")
		os.Exit(1)
	}

	// Start health check server.
	healthServer := health.New(cfg.Server.HealthPort)
	go func() {
		if err := healthServer.ListenAndServe(ctx); err != nil {
			slog.Error("health server failed", "error", err)
		}
	}()

	// Start all transports.
	var wg sync.WaitGroup
	for _, t := range transports {
		wg.Add(1)
		go func(t transport.Transport) {
			defer wg.Done()
			slog.Info("starting transport", "name", t.Name())
			if err := t.Listen(ctx, dispatcher); err != nil {
				slog.Error("transport failed", "name", t.Name(), "error", err)
			}
		}(t)
	}

	// Mark as ready once all transports are started.
	healthServer.SetReady(true)
	slog.Info("agrisaarthi ready",
		"transports", len(transports),
		"health_port", cfg.Server.HealthPort)

	// Block until shutdown signal.
	<-ctx.Done()
	slog.Info("shutdown signal received, draining...")
	healthServer.SetReady(false)

	// Close all transports gracefully.
	for _, t := range transports {
		if err := t.Close(); err != nil {
			slog.Error("transport close error", "name", t.Name(), "error", err)
		}
	}

	wg.Wait()
	slog.Info("agrisaarthi stopped")
}

// buildDeps creates every provider client once. They are shared by all
// requests for the lifetime of the process.
func buildDeps(ctx context.Context, cfg *config.Config) (dispatch.Deps, error) {
	var deps dispatch.Deps

	// Speech-to-text.
	var stt transcriber.Transcriber
	switch cfg.Transcriber.Backend {
	case "openai":
		stt = openaistt.New(cfg.Transcriber.OpenAI)
		slog.Info("using OpenAI transcriber",
			"model", cfg.Transcriber.OpenAI.Model, "translate", cfg.Transcriber.OpenAI.Translate)
	case "local":
		stt = localstt.New(cfg.Transcriber.Local)
		slog.Info("using local transcriber", "whisper", cfg.Transcriber.Local.WhisperEndpoint)
	}
	deps.Transcriber = stt

	// Image diagnosis.
	var vision describer.Describer
	switch cfg.Describer.Backend {
	case "gemini":
		g, err := gemini.New(ctx, cfg.Describer.Gemini)
		if err != nil {
			return deps, fmt.Errorf("gemini describer: %w", err)
		}
		vision = g
		slog.Info("using Gemini describer", "model", cfg.Describer.Gemini.Model)
	case "huggingface":
		vision = huggingface.New(cfg.Describer.HuggingFace)
		slog.Info("using HuggingFace describer", "endpoint", cfg.Describer.HuggingFace.Endpoint)
	}
	deps.Describer = vision

	// Weather, cached per city.
	owm := weather.NewOpenWeather(cfg.Weather)
	deps.WeatherLookup = weather.NewCachedLookup(owm, cfg.Weather.CacheSize, cfg.Weather.CacheTTL)
	deps.DefaultCity = owm.DefaultCity()

	// Advisory backends: exactly one is used per request.
	deps.Responder = &advisor.Responder{
		Online:  openaiadvisor.New(cfg.Advisor.Online),
		Offline: localadvisor.New(cfg.Advisor.Offline),
	}
	slog.Info("advisor backends configured",
		"online_model", cfg.Advisor.Online.Model,
		"offline_model", cfg.Advisor.Offline.LLMModel,
		"connectivity_mode", cfg.Connectivity.Mode)

	deps.Connectivity = connectivity.New(cfg.Connectivity)
	deps.Resolver = lang.NewResolver(cfg.Language.Default, lang.DetectScript)
	deps.Crops = crop.Default()
	deps.ExtractTimeout = cfg.Dispatch.ExtractTimeout

	// Optional spoken reply.
	if cfg.TTS.Enabled {
		var synth tts.Synthesizer
		switch cfg.TTS.Backend {
		case "piper":
			synth = piper.New(cfg.TTS.Piper)
			slog.Info("using Piper TTS", "endpoint", cfg.TTS.Piper.Endpoint)
		default:
			return deps, fmt.Errorf("unknown tts backend %q", cfg.TTS.Backend)
		}
		deps.Synthesizer = synth
	}
	return deps, nil
}
