package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/nadzzz/agrisaarthi/internal/config"
)

// OpenWeather queries the OpenWeatherMap current weather API.
type OpenWeather struct {
	apiKey      string
	baseURL     string
	defaultCity string
	client      *http.Client
}

// NewOpenWeather creates an OpenWeatherMap client from config.
func NewOpenWeather(cfg config.WeatherConfig) *OpenWeather {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = "https://api.openweathermap.org"
	}
	city := cfg.DefaultCity
	if city == "" {
		city = "Coimbatore"
	}
	return &OpenWeather{
		apiKey:      cfg.APIKey,
		baseURL:     base,
		defaultCity: city,
		client:      &http.Client{Timeout: timeout},
	}
}

// DefaultCity is used when a request names no city.
func (o *OpenWeather) DefaultCity() string {
	return o.defaultCity
}

// owmResponse mirrors the parts of /data/2.5/weather we use.
type owmResponse struct {
	Main *struct {
		Temp     *float64 `json:"temp"`
		Humidity *float64 `json:"humidity"`
	} `json:"main"`
	Weather []struct {
		Description string `json:"description"`
	} `json:"weather"`
}

// Current fetches the weather for city, falling back to the default city
// when city is blank.
func (o *OpenWeather) Current(ctx context.Context, city string) (Snapshot, error) {
	city = strings.TrimSpace(city)
	if city == "" {
		city = o.defaultCity
	}

	q := url.Values{}
	q.Set("q", city)
	q.Set("appid", o.apiKey)
	q.Set("units", "metric")
	endpoint := o.baseURL + "/data/2.5/weather?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Unavailable(), fmt.Errorf("creating weather request: %w", err)
	}

	resp, err := o.client.Do(req)
	if err != nil {
		return Unavailable(), fmt.Errorf("weather request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return Unavailable(), fmt.Errorf("weather API error (status %d): %s", resp.StatusCode, string(body))
	}

	var data owmResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return Unavailable(), fmt.Errorf("decoding weather response: %w", err)
	}
	if data.Main == nil || data.Main.Temp == nil || data.Main.Humidity == nil || len(data.Weather) == 0 {
		return Unavailable(), fmt.Errorf("weather response for %q is missing fields", city)
	}

	snap := Snapshot{
		Temp:      Value(*data.Main.Temp),
		Humidity:  Value(*data.Main.Humidity),
		Condition: data.Weather[0].Description,
	}
	slog.Debug("weather fetched", "city", city, "temp", snap.Temp.String(), "condition", snap.Condition)
	return snap, nil
}
