// Package describer defines the interface for crop image analysis backends.
package describer

import (
	"context"
	"net/http"
	"strings"
)

// Image is an uploaded crop photo.
type Image struct {
	Data        []byte
	ContentType string // e.g. "image/jpeg"
}

// MIMEType returns the declared type, sniffing the payload when it is
// missing or generic.
func (i Image) MIMEType() string {
	ct := strings.TrimSpace(i.ContentType)
	if ct == "" || ct == "application/octet-stream" {
		return http.DetectContentType(i.Data)
	}
	return ct
}

// Describer turns an image into a short caption or disease diagnosis.
type Describer interface {
	// Name returns the backend identifier (e.g., "gemini", "huggingface").
	Name() string

	Describe(ctx context.Context, img Image) (string, error)
}
