// Package connectivity decides whether the cloud advisor is reachable.
//
// The probe is a single best-effort GET against a well-known endpoint. Any
// failure (DNS, TLS, timeout, 4xx/5xx) means "offline"; the probe never
// returns an error to its caller.
package connectivity

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/nadzzz/agrisaarthi/internal/config"
	"github.com/nadzzz/agrisaarthi/internal/metrics"
)

// Mode values accepted in configuration.
const (
	ModeAuto    = "auto"
	ModeOnline  = "online"
	ModeOffline = "offline"
)

// Checker reports whether outbound network access is currently available.
type Checker interface {
	IsOnline(ctx context.Context) bool
}

// Probe implements Checker with an HTTP reachability check.
type Probe struct {
	mode    string
	url     string
	timeout time.Duration
	client  *http.Client
}

// New creates a probe from config.
func New(cfg config.ConnectivityConfig) *Probe {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	mode := cfg.Mode
	if mode == "" {
		mode = ModeAuto
	}
	return &Probe{
		mode:    mode,
		url:     cfg.ProbeURL,
		timeout: timeout,
		client:  &http.Client{Timeout: timeout},
	}
}

// IsOnline performs one reachability check bounded by the configured timeout.
// Forced modes answer without touching the network.
func (p *Probe) IsOnline(ctx context.Context) bool {
	online := p.check(ctx)
	if online {
		metrics.ConnectivityOnline.Set(1)
	} else {
		metrics.ConnectivityOnline.Set(0)
	}
	return online
}

func (p *Probe) check(ctx context.Context) bool {
	switch p.mode {
	case ModeOnline:
		return true
	case ModeOffline:
		return false
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		slog.Debug("connectivity probe request invalid", "url", p.url, "error", err)
		return false
	}

	resp, err := p.client.Do(req)
	if err != nil {
		slog.Debug("connectivity probe failed", "url", p.url, "error", err)
		return false
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	return resp.StatusCode < http.StatusBadRequest
}
