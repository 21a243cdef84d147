// Package config handles loading and validating the agrisaarthi configuration.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config is the root configuration for the agrisaarthi daemon.
type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	Transports   TransportsConfig   `mapstructure:"transports"`
	Connectivity ConnectivityConfig `mapstructure:"connectivity"`
	Weather      WeatherConfig      `mapstructure:"weather"`
	Transcriber  TranscriberConfig  `mapstructure:"transcriber"`
	Describer    DescriberConfig    `mapstructure:"describer"`
	Advisor      AdvisorConfig      `mapstructure:"advisor"`
	Language     LanguageConfig     `mapstructure:"language"`
	Dispatch     DispatchConfig     `mapstructure:"dispatch"`
	TTS          TTSConfig          `mapstructure:"tts"`
	Logging      LoggingConfig      `mapstructure:"logging"`
}

// ServerConfig holds the health check server settings.
type ServerConfig struct {
	HealthPort int `mapstructure:"health_port"`
}

// TransportsConfig holds the configuration for each transport layer.
type TransportsConfig struct {
	GRPC GRPCConfig `mapstructure:"grpc"`
	HTTP HTTPConfig `mapstructure:"http"`
	MQTT MQTTConfig `mapstructure:"mqtt"`
}

// GRPCConfig configures the gRPC transport.
type GRPCConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

// HTTPConfig configures the HTTP transport.
type HTTPConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

// MQTTConfig configures the MQTT transport.
type MQTTConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	Broker         string `mapstructure:"broker"`
	Topic          string `mapstructure:"topic"`           // subscription filter, e.g. "agrisaarthi/requests/+"
	ResponsePrefix string `mapstructure:"response_prefix"` // default reply topic prefix
	ClientID       string `mapstructure:"client_id"`
}

// ConnectivityConfig controls how the online/offline advisor is chosen.
type ConnectivityConfig struct {
	Mode     string        `mapstructure:"mode"` // "auto", "online" or "offline"
	ProbeURL string        `mapstructure:"probe_url"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// WeatherConfig configures the weather lookup.
type WeatherConfig struct {
	APIKey      string        `mapstructure:"api_key"`
	BaseURL     string        `mapstructure:"base_url"`
	DefaultCity string        `mapstructure:"default_city"`
	Timeout     time.Duration `mapstructure:"timeout"`
	CacheTTL    time.Duration `mapstructure:"cache_ttl"` // 0 disables caching
	CacheSize   int           `mapstructure:"cache_size"`
}

// TranscriberConfig selects and configures the speech-to-text backend.
type TranscriberConfig struct {
	Backend string                  `mapstructure:"backend"` // "openai" or "local"
	OpenAI  OpenAITranscriberConfig `mapstructure:"openai"`
	Local   LocalTranscriberConfig  `mapstructure:"local"`
}

// OpenAITranscriberConfig holds Whisper API settings.
type OpenAITranscriberConfig struct {
	APIKey    string        `mapstructure:"api_key"`
	BaseURL   string        `mapstructure:"base_url"`
	Model     string        `mapstructure:"model"`
	Translate bool          `mapstructure:"translate"` // translate speech to English instead of transcribing
	Timeout   time.Duration `mapstructure:"timeout"`
}

// LocalTranscriberConfig holds self-hosted whisper settings.
type LocalTranscriberConfig struct {
	WhisperEndpoint string        `mapstructure:"whisper_endpoint"`
	WhisperType     string        `mapstructure:"whisper_type"` // "openai" (default) or "asr" (ahmetoner/whisper-asr-webservice)
	VADFilter       bool          `mapstructure:"vad_filter"`
	Timeout         time.Duration `mapstructure:"timeout"`
}

// DescriberConfig selects and configures the image describer backend.
type DescriberConfig struct {
	Backend     string                     `mapstructure:"backend"` // "gemini" or "huggingface"
	Gemini      GeminiDescriberConfig      `mapstructure:"gemini"`
	HuggingFace HuggingFaceDescriberConfig `mapstructure:"huggingface"`
}

// GeminiDescriberConfig holds Gemini vision settings.
type GeminiDescriberConfig struct {
	APIKey  string        `mapstructure:"api_key"`
	Model   string        `mapstructure:"model"`
	Prompt  string        `mapstructure:"prompt"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// HuggingFaceDescriberConfig holds HuggingFace inference settings.
type HuggingFaceDescriberConfig struct {
	Token    string        `mapstructure:"token"`
	Endpoint string        `mapstructure:"endpoint"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// AdvisorConfig configures the online and offline LLM backends.
type AdvisorConfig struct {
	Online  OnlineAdvisorConfig  `mapstructure:"online"`
	Offline OfflineAdvisorConfig `mapstructure:"offline"`
}

// OnlineAdvisorConfig holds the OpenAI-compatible chat API settings (OpenRouter by default).
type OnlineAdvisorConfig struct {
	APIKey      string        `mapstructure:"api_key"`
	BaseURL     string        `mapstructure:"base_url"`
	Model       string        `mapstructure:"model"`
	MaxTokens   int           `mapstructure:"max_tokens"`
	Temperature float32       `mapstructure:"temperature"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// OfflineAdvisorConfig holds the self-hosted LLM settings.
type OfflineAdvisorConfig struct {
	LLMEndpoint string        `mapstructure:"llm_endpoint"`
	LLMModel    string        `mapstructure:"llm_model"` // Ollama model name (e.g., "gemma:2b")
	MaxTokens   int           `mapstructure:"max_tokens"`
	Temperature float32       `mapstructure:"temperature"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// LanguageConfig holds the response language fallback.
type LanguageConfig struct {
	Default string `mapstructure:"default"`
}

// DispatchConfig bounds the orchestrator.
type DispatchConfig struct {
	ExtractTimeout time.Duration `mapstructure:"extract_timeout"`
	MaxUploadBytes int64         `mapstructure:"max_upload_bytes"`
}

// TTSConfig selects and configures the text-to-speech backend.
type TTSConfig struct {
	Enabled bool        `mapstructure:"enabled"`
	Backend string      `mapstructure:"backend"` // "piper"
	Piper   PiperConfig `mapstructure:"piper"`
}

// PiperConfig holds Piper TTS settings (Wyoming protocol).
//
// For a single Piper instance that serves all languages, set Endpoint.
// For per-language instances, set Endpoints which maps ISO-639-1 codes to
// individual Wyoming TCP endpoints. Endpoints takes precedence.
type PiperConfig struct {
	Endpoint  string            `mapstructure:"endpoint"`
	Endpoints map[string]string `mapstructure:"endpoints"`
	Voices    map[string]string `mapstructure:"voices"`
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json, text
}

// Load reads the configuration from file, environment variables, and defaults.
// If configFile is non-empty it is used directly; otherwise the standard
// search order applies: ./agrisaarthi.yaml, ./configs/agrisaarthi.yaml, /etc/agrisaarthi/agrisaarthi.yaml.
func Load(configFile string) (*Config, error) {
	loadDotEnv()

	v := viper.New()
	setDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("agrisaarthi")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/agrisaarthi")
	}

	// Environment variables: AGRISAARTHI_WEATHER_API_KEY, AGRISAARTHI_CONNECTIVITY_MODE, etc.
	v.SetEnvPrefix("AGRISAARTHI")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file (optional; env vars and defaults are sufficient)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		slog.Info("no config file found, using defaults and environment variables")
	} else {
		slog.Info("loaded config file", "path", v.ConfigFileUsed())
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	// Resolve env var references in sensitive fields (e.g., "${OPENROUTER_API_KEY}")
	cfg.Weather.APIKey = resolveEnvRef(cfg.Weather.APIKey)
	cfg.Transcriber.OpenAI.APIKey = resolveEnvRef(cfg.Transcriber.OpenAI.APIKey)
	cfg.Describer.Gemini.APIKey = resolveEnvRef(cfg.Describer.Gemini.APIKey)
	cfg.Describer.HuggingFace.Token = resolveEnvRef(cfg.Describer.HuggingFace.Token)
	cfg.Advisor.Online.APIKey = resolveEnvRef(cfg.Advisor.Online.APIKey)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.health_port", 8081)
	v.SetDefault("transports.grpc.enabled", false)
	v.SetDefault("transports.grpc.port", 50051)
	v.SetDefault("transports.http.enabled", true)
	v.SetDefault("transports.http.port", 5000)
	v.SetDefault("transports.mqtt.enabled", false)
	v.SetDefault("transports.mqtt.broker", "tcp://localhost:1883")
	v.SetDefault("transports.mqtt.topic", "agrisaarthi/requests/+")
	v.SetDefault("transports.mqtt.response_prefix", "agrisaarthi/responses")
	v.SetDefault("transports.mqtt.client_id", "agrisaarthi")
	v.SetDefault("connectivity.mode", "auto")
	v.SetDefault("connectivity.probe_url", "https://www.google.com")
	v.SetDefault("connectivity.timeout", 3*time.Second)
	v.SetDefault("weather.api_key", "${OPENWEATHER_API_KEY}")
	v.SetDefault("weather.base_url", "https://api.openweathermap.org")
	v.SetDefault("weather.default_city", "Coimbatore")
	v.SetDefault("weather.timeout", 10*time.Second)
	v.SetDefault("weather.cache_ttl", 10*time.Minute)
	v.SetDefault("weather.cache_size", 256)
	v.SetDefault("transcriber.backend", "openai")
	v.SetDefault("transcriber.openai.api_key", "${OPENAI_API_KEY}")
	v.SetDefault("transcriber.openai.base_url", "https://api.openai.com/v1")
	v.SetDefault("transcriber.openai.model", "whisper-1")
	v.SetDefault("transcriber.openai.translate", true)
	v.SetDefault("transcriber.openai.timeout", 30*time.Second)
	v.SetDefault("transcriber.local.whisper_endpoint", "http://localhost:8000/v1/audio/transcriptions")
	v.SetDefault("transcriber.local.whisper_type", "openai")
	v.SetDefault("transcriber.local.vad_filter", false)
	v.SetDefault("transcriber.local.timeout", 30*time.Second)
	v.SetDefault("describer.backend", "gemini")
	v.SetDefault("describer.gemini.api_key", "${GOOGLE_API_KEY}")
	v.SetDefault("describer.gemini.model", "gemini-1.5-flash")
	v.SetDefault("describer.gemini.timeout", 30*time.Second)
	v.SetDefault("describer.huggingface.token", "${HUGGINGFACE_TOKEN}")
	v.SetDefault("describer.huggingface.endpoint", "https://api-inference.huggingface.co/models/Salesforce/blip-image-captioning-large")
	v.SetDefault("describer.huggingface.timeout", 30*time.Second)
	v.SetDefault("advisor.online.api_key", "${OPENROUTER_API_KEY}")
	v.SetDefault("advisor.online.base_url", "https://openrouter.ai/api/v1")
	v.SetDefault("advisor.online.model", "deepseek/deepseek-chat")
	v.SetDefault("advisor.online.max_tokens", 512)
	v.SetDefault("advisor.online.temperature", 0.7)
	v.SetDefault("advisor.online.timeout", 30*time.Second)
	v.SetDefault("advisor.offline.llm_endpoint", "http://localhost:11434/api/generate")
	v.SetDefault("advisor.offline.llm_model", "gemma:2b")
	v.SetDefault("advisor.offline.max_tokens", 512)
	v.SetDefault("advisor.offline.temperature", 0.7)
	v.SetDefault("advisor.offline.timeout", 60*time.Second)
	v.SetDefault("language.default", "en")
	v.SetDefault("dispatch.extract_timeout", 30*time.Second)
	v.SetDefault("dispatch.max_upload_bytes", 25<<20)
	v.SetDefault("tts.enabled", false)
	v.SetDefault("tts.backend", "piper")
	v.SetDefault("tts.piper.endpoint", "localhost:10200")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// Validate rejects settings the daemon cannot start with.
func (c *Config) Validate() error {
	switch c.Connectivity.Mode {
	case "auto", "online", "offline":
	default:
		return fmt.Errorf("invalid connectivity.mode %q (want auto, online or offline)", c.Connectivity.Mode)
	}
	switch c.Transcriber.Backend {
	case "openai", "local":
	default:
		return fmt.Errorf("invalid transcriber.backend %q", c.Transcriber.Backend)
	}
	switch c.Describer.Backend {
	case "gemini", "huggingface":
	default:
		return fmt.Errorf("invalid describer.backend %q", c.Describer.Backend)
	}
	if c.Dispatch.MaxUploadBytes <= 0 {
		return fmt.Errorf("dispatch.max_upload_bytes must be positive")
	}
	return nil
}

// loadDotEnv loads the first .env found walking up from the working
// directory to the module root. Existing environment variables win.
func loadDotEnv() {
	dir, err := os.Getwd()
	if err != nil {
		return
	}
	for {
		path := filepath.Join(dir, ".env")
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err != nil {
				slog.Warn("failed to load .env", "path", path, "error", err)
			} else {
				slog.Info("loaded .env", "path", path)
			}
			return
		}
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return
		}
		dir = parent
	}
}

// resolveEnvRef replaces "${VAR_NAME}" patterns with the corresponding env var value.
// An unset variable resolves to the empty string so placeholders never leak as credentials.
func resolveEnvRef(val string) string {
	if strings.HasPrefix(val, "${") && strings.HasSuffix(val, "}") {
		return os.Getenv(val[2 : len(val)-1])
	}
	return val
}

// SetupLogging configures the global slog logger based on config.
func SetupLogging(cfg LoggingConfig) {
	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if strings.ToLower(cfg.Format) == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	slog.SetDefault(slog.New(handler))
}
