// Package http implements the REST transport for AgriSaarthi.
//
// This transport serves the web and mobile front ends: a multipart
// farmer-agent endpoint for text, voice notes and crop photos, a weather
// lookup and a rule-based crop advisory. It also serves the Swagger UI.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"time"

	httpSwagger "github.com/swaggo/http-swagger/v2"

	"github.com/nadzzz/agrisaarthi/internal/dispatch"
	"github.com/nadzzz/agrisaarthi/internal/message"
	"github.com/nadzzz/agrisaarthi/internal/metrics"
	"github.com/nadzzz/agrisaarthi/internal/transport"
)

// DefaultMaxUpload bounds a farmer-agent request body.
const DefaultMaxUpload = 25 << 20

// Transport implements transport.Transport over HTTP.
type Transport struct {
	port      int
	maxUpload int64
	server    *http.Server
}

// New creates a new HTTP transport on the given port. A non-positive
// maxUpload uses DefaultMaxUpload.
func New(port int, maxUpload int64) *Transport {
	if maxUpload <= 0 {
		maxUpload = DefaultMaxUpload
	}
	return &Transport{port: port, maxUpload: maxUpload}
}

// Name returns the transport identifier.
func (t *Transport) Name() string { return "http" }

// Handler returns the routes served for svc.
func (t *Transport) Handler(svc transport.Service) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /farmer-agent", func(w http.ResponseWriter, r *http.Request) {
		t.handleFarmerAgent(w, r, svc)
	})
	mux.HandleFunc("GET /weather/", func(w http.ResponseWriter, r *http.Request) {
		handleWeather(w, r, svc)
	})
	mux.HandleFunc("POST /advisory/", func(w http.ResponseWriter, r *http.Request) {
		handleAdvisory(w, r, svc)
	})

	// Swagger UI serves the generated OpenAPI docs.
	mux.Handle("GET /swagger/", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))
	return mux
}

// Listen starts the HTTP server and routes incoming requests to svc.
func (t *Transport) Listen(ctx context.Context, svc transport.Service) error {
	t.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", t.port),
		Handler:           t.Handler(svc),
		ReadHeaderTimeout: 10 * time.Second,
	}

	slog.Info("http transport listening", "port", t.port)

	go func() {
		<-ctx.Done()
		slog.Info("http transport shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = t.server.Shutdown(shutdownCtx)
	}()

	if err := t.server.ListenAndServe(); err != http.ErrServerClosed {
		return fmt.Errorf("http listen: %w", err)
	}
	return nil
}

// Close gracefully shuts down the HTTP server.
func (t *Transport) Close() error {
	if t.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return t.server.Shutdown(ctx)
	}
	return nil
}

// handleFarmerAgent processes a POST /farmer-agent request.
//
// @Summary     Ask the farmer agent
// @Description Accepts any combination of typed text, a voice note and a crop photo. Speech is transcribed,
// @Description the photo is diagnosed and the current weather is fetched; the advisor then answers in the
// @Description farmer's language. Extractor failures are listed under "degraded" instead of failing the request.
// @Description A JSON body with base64 "audio" and "image" fields is accepted as well.
// @Tags        advisory
// @Accept      multipart/form-data
// @Accept      json
// @Produce     json
// @Param       text           formData  string  false  "Typed question"
// @Param       city           formData  string  false  "City for the weather lookup (default Coimbatore)"
// @Param       lang           formData  string  false  "Response language: ta, hi, te or ml"
// @Param       response_mode  formData  string  false  "text, audio or text+audio"
// @Param       audio          formData  file    false  "Voice note"
// @Param       image          formData  file    false  "Crop photo"
// @Success     200  {object}  message.AgentResult
// @Failure     400  {object}  message.ErrorResponse  "No input or malformed request"
// @Failure     500  {object}  message.ErrorResponse  "Internal processing error"
// @Router      /farmer-agent [post]
func (t *Transport) handleFarmerAgent(w http.ResponseWriter, r *http.Request, svc transport.Service) {
	const route = "farmer-agent"
	start := time.Now()
	r.Body = http.MaxBytesReader(w, r.Body, t.maxUpload)

	req, err := decodeFarmerRequest(r, t.maxUpload)
	var result *message.AgentResult
	if err == nil {
		req.Timestamp = start
		result, err = svc.FarmerAgent(r.Context(), req)
	}
	observe(route, start, err)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func decodeFarmerRequest(r *http.Request, maxUpload int64) (*message.Request, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	if mediaType == "application/json" {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			return nil, fmt.Errorf("%w: reading body: %v", dispatch.ErrInvalidRequest, err)
		}
		var req message.Request
		if err := transport.DecodeFarmerRequest(body, &req); err != nil {
			return nil, err
		}
		return &req, nil
	}

	// Plain url-encoded forms carry text only.
	if err := r.ParseMultipartForm(maxUpload); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		return nil, fmt.Errorf("%w: parsing form: %v", dispatch.ErrInvalidRequest, err)
	}
	if r.MultipartForm != nil {
		defer r.MultipartForm.RemoveAll()
	}

	req := &message.Request{
		Text:         r.FormValue("text"),
		City:         r.FormValue("city"),
		Language:     r.FormValue("lang"),
		ResponseMode: message.ResponseMode(r.FormValue("response_mode")),
	}

	var err error
	if req.Audio, req.AudioContentType, err = formFile(r, "audio"); err != nil {
		return nil, err
	}
	if req.Image, req.ImageContentType, err = formFile(r, "image"); err != nil {
		return nil, err
	}
	return req, nil
}

// formFile reads an optional upload. A missing part returns nil data.
func formFile(r *http.Request, field string) ([]byte, string, error) {
	f, fh, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
		return nil, "", nil
	}
	if err != nil {
		return nil, "", fmt.Errorf("%w: reading %s: %v", dispatch.ErrInvalidRequest, field, err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, "", fmt.Errorf("%w: reading %s: %v", dispatch.ErrInvalidRequest, field, err)
	}
	return data, fh.Header.Get("Content-Type"), nil
}

// handleWeather processes a GET /weather/ request.
//
// @Summary     Current weather
// @Description Returns temperature (°C), humidity (%) and condition for a city. Unavailable values are "NA".
// @Tags        weather
// @Produce     json
// @Param       city  query     string  false  "City name (default Coimbatore)"
// @Success     200   {object}  weather.Snapshot
// @Router      /weather/ [get]
func handleWeather(w http.ResponseWriter, r *http.Request, svc transport.Service) {
	start := time.Now()
	snap := svc.Weather(r.Context(), r.URL.Query().Get("city"))
	observe("weather", start, nil)
	writeJSON(w, http.StatusOK, snap)
}

// handleAdvisory processes a POST /advisory/ request.
//
// @Summary     Crop advisory
// @Description Rule-based advice for a crop under the current weather, plus a climate tip.
// @Description When "question" is set the advisor also answers it in the farmer's language.
// @Tags        advisory
// @Accept      json
// @Produce     json
// @Param       request  body      message.AdvisoryRequest  true  "Crop, city and optional question"
// @Success     200      {object}  message.AdvisoryResult
// @Failure     400      {object}  message.ErrorResponse  "Missing crop or malformed body"
// @Failure     500      {object}  message.ErrorResponse  "Weather fetch failed"
// @Router      /advisory/ [post]
func handleAdvisory(w http.ResponseWriter, r *http.Request, svc transport.Service) {
	const route = "advisory"
	start := time.Now()

	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		err = fmt.Errorf("%w: reading body: %v", dispatch.ErrInvalidRequest, err)
	}
	var result *message.AdvisoryResult
	if err == nil {
		var req message.AdvisoryRequest
		if req, err = transport.DecodeAdvisory(body); err == nil {
			result, err = svc.Advisory(r.Context(), req)
		}
	}
	observe(route, start, err)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func observe(route string, start time.Time, err error) {
	metrics.RequestsTotal.WithLabelValues(route, transport.Outcome(err)).Inc()
	metrics.RequestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
}

// writeError maps pipeline errors to status codes. Rejected requests get
// 400; a failed advisory weather lookup gets the fixed message.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	msg := err.Error()
	switch {
	case errors.Is(err, dispatch.ErrInvalidRequest):
		status = http.StatusBadRequest
	case errors.Is(err, dispatch.ErrWeatherUnavailable):
		msg = dispatch.ErrWeatherUnavailable.Error()
	default:
		slog.Error("request failed", "error", err)
	}
	writeJSON(w, status, message.ErrorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
