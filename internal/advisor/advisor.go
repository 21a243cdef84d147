// Package advisor defines the interface for LLM-backed advisory generation.
//
// An advisor takes a composed prompt and a target language and produces the
// advisory text. AgriSaarthi ships with two backends: OpenAI-compatible chat
// (cloud, OpenRouter by default) and Local (self-hosted via Ollama).
package advisor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"

	"github.com/nadzzz/agrisaarthi/internal/lang"
	"github.com/nadzzz/agrisaarthi/internal/metrics"
)

// Request is a single advisory generation request.
type Request struct {
	// Prompt is the composed user message.
	Prompt string

	// Language selects the system instruction.
	Language lang.Code
}

// Result holds the generated advisory.
type Result struct {
	Text    string
	Backend string
	Model   string
}

// Advisor is the interface for LLM advisory backends.
type Advisor interface {
	// Name returns the backend identifier (e.g., "openai", "local").
	Name() string

	// Advise generates advisory text. Every failure is an *Error.
	Advise(ctx context.Context, req Request) (*Result, error)
}

// ErrorKind classifies advisory failures.
type ErrorKind string

const (
	KindHTTPStatus        ErrorKind = "http_status"
	KindMalformedResponse ErrorKind = "malformed_response"
	KindTransport         ErrorKind = "transport"
	KindTimeout           ErrorKind = "timeout"
	KindEmptyResponse     ErrorKind = "empty_response"
)

// maxBodyLen bounds the provider body kept on an Error.
const maxBodyLen = 2048

// Error is a classified backend failure.
type Error struct {
	Kind       ErrorKind
	Backend    string
	StatusCode int    // set for KindHTTPStatus
	Body       string // provider response, truncated
	Err        error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindHTTPStatus:
		return fmt.Sprintf("%s advisor: HTTP %d: %s", e.Backend, e.StatusCode, e.Body)
	case KindEmptyResponse:
		return fmt.Sprintf("%s advisor: empty response", e.Backend)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s advisor: %s: %v", e.Backend, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s advisor: %s", e.Backend, e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// StatusError builds a KindHTTPStatus error.
func StatusError(backend string, status int, body string) *Error {
	return &Error{Kind: KindHTTPStatus, Backend: backend, StatusCode: status, Body: Truncate(body)}
}

// MalformedError builds a KindMalformedResponse error.
func MalformedError(backend string, err error) *Error {
	return &Error{Kind: KindMalformedResponse, Backend: backend, Err: err}
}

// EmptyError builds a KindEmptyResponse error.
func EmptyError(backend string) *Error {
	return &Error{Kind: KindEmptyResponse, Backend: backend}
}

// TransportError classifies a failed round trip as a timeout or a transport error.
func TransportError(backend string, err error) *Error {
	kind := KindTransport
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		kind = KindTimeout
	}
	return &Error{Kind: kind, Backend: backend, Err: err}
}

// Truncate shortens a provider body to the retained maximum.
func Truncate(s string) string {
	if len(s) <= maxBodyLen {
		return s
	}
	return s[:maxBodyLen]
}

// Responder selects exactly one backend per request from the online flag.
// There is no failover between backends.
type Responder struct {
	Online  Advisor
	Offline Advisor
}

// Advise dispatches to Online when online is true, otherwise to Offline.
func (r *Responder) Advise(ctx context.Context, prompt string, online bool, code lang.Code) (*Result, error) {
	backend := r.Offline
	if online {
		backend = r.Online
	}
	if backend == nil {
		return nil, &Error{Kind: KindTransport, Backend: "none", Err: errors.New("no advisor configured")}
	}

	res, err := backend.Advise(ctx, Request{Prompt: prompt, Language: code})
	if err != nil {
		metrics.AdvisoriesTotal.WithLabelValues(backend.Name(), "failed").Inc()
		var aerr *Error
		if !errors.As(err, &aerr) {
			err = TransportError(backend.Name(), err)
		}
		slog.Warn("advisory generation failed", "backend", backend.Name(), "error", err)
		return nil, err
	}

	metrics.AdvisoriesTotal.WithLabelValues(backend.Name(), "ok").Inc()
	slog.Debug("advisory generated", "backend", res.Backend, "model", res.Model, "length", len(res.Text))
	return res, nil
}
