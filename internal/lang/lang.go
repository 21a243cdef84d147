// Package lang resolves the language an advisory should be written in.
//
// Only a fixed set of Indian languages gets a localized template; every
// other language, and every detection failure, resolves to the default.
package lang

import (
	"strings"

	"github.com/abadojack/whatlanggo"
	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// Code is an ISO-639-1 language code.
type Code string

// Supported codes.
const (
	Tamil     Code = "ta"
	Hindi     Code = "hi"
	Telugu    Code = "te"
	Malayalam Code = "ml"
	English   Code = "en"
)

var supported = map[Code]bool{
	Tamil:     true,
	Hindi:     true,
	Telugu:    true,
	Malayalam: true,
}

// IsSupported reports whether c has a localized template.
func IsSupported(c Code) bool {
	return supported[c]
}

// Normalize canonicalizes a BCP-47 tag to its base ISO-639-1 code
// ("ta-IN" -> "ta", " HI " -> "hi"). It returns "" for unparseable input.
func Normalize(s string) Code {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	tag, err := language.Parse(s)
	if err != nil {
		return ""
	}
	base, conf := tag.Base()
	if conf == language.No {
		return ""
	}
	return Code(base.String())
}

// Name returns the English display name of c, or c itself if unknown.
func Name(c Code) string {
	tag, err := language.Parse(string(c))
	if err != nil {
		return string(c)
	}
	if name := display.English.Languages().Name(tag); name != "" {
		return name
	}
	return string(c)
}

// Detector guesses the language of a text. ok is false when it cannot.
type Detector func(text string) (code Code, ok bool)

// candidates restricts detection to languages with a template plus English.
// Unrestricted Devanagari detection often lands on Bihari or Marathi.
var candidates = whatlanggo.Options{
	Whitelist: map[whatlanggo.Lang]bool{
		whatlanggo.Tam: true,
		whatlanggo.Hin: true,
		whatlanggo.Tel: true,
		whatlanggo.Mal: true,
		whatlanggo.Eng: true,
	},
}

// DetectScript uses whatlanggo trigram and script detection over the
// supported languages.
func DetectScript(text string) (Code, bool) {
	info := whatlanggo.DetectWithOptions(text, candidates)
	iso := info.Lang.Iso6391()
	if iso == "" {
		return "", false
	}
	return Code(iso), true
}

// Resolver picks the response language for a request.
type Resolver struct {
	fallback Code
	detect   Detector
}

// NewResolver creates a resolver. An empty or unsupported fallback is
// replaced by English. A nil detector uses DetectScript.
func NewResolver(fallback string, detect Detector) *Resolver {
	fb := Normalize(fallback)
	if fb == "" || (!IsSupported(fb) && fb != English) {
		fb = English
	}
	if detect == nil {
		detect = DetectScript
	}
	return &Resolver{fallback: fb, detect: detect}
}

// Default is the fallback language.
func (r *Resolver) Default() Code {
	return r.fallback
}

// Resolve returns the explicit code when it is supported, otherwise the
// language detected from text and audioText, otherwise the default.
// An explicit but unsupported code resolves to the default without detection.
func (r *Resolver) Resolve(explicit, text, audioText string) Code {
	if strings.TrimSpace(explicit) != "" {
		if c := Normalize(explicit); IsSupported(c) {
			return c
		}
		return r.fallback
	}

	sample := strings.TrimSpace(strings.TrimSpace(text) + " " + strings.TrimSpace(audioText))
	if sample == "" {
		return r.fallback
	}
	c, ok := r.detect(sample)
	if !ok {
		return r.fallback
	}
	if c = Normalize(string(c)); IsSupported(c) {
		return c
	}
	return r.fallback
}
