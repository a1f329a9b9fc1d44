// Package lang provides language identification and language-code handling
// for the chat pipeline.
//
// Detection is statistical (trigram-based via whatlanggo) and therefore
// unreliable for very short inputs; callers must treat ErrAmbiguous as a
// normal outcome and fall back to the session's last known language.
package lang

import (
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/abadojack/whatlanggo"
	"golang.org/x/text/language"
)

// Pivot is the internal language all text is normalized into before
// retrieval and generation.
const Pivot = "en"

// ErrAmbiguous indicates the input was empty, too short, or too mixed for a
// confident classification. Non-fatal: callers fall back to the session's
// last known language or the configured default.
var ErrAmbiguous = errors.New("language detection ambiguous")

// ErrUnsupported indicates a language code outside the configured set with
// no known fallback.
var ErrUnsupported = errors.New("unsupported language")

// Names maps supported language codes to display names.
var Names = map[string]string{
	"en": "English",
	"hi": "Hindi",
	"gu": "Gujarati",
	"mr": "Marathi",
	"pa": "Punjabi",
	"ta": "Tamil",
	"bn": "Bengali",
	"te": "Telugu",
	"kn": "Kannada",
	"ml": "Malayalam",
	"or": "Odia",
}

// fallbacks maps codes we accept from clients but answer in a close
// supported language. Rajasthani has no translation-model coverage and is
// served in Hindi.
var fallbacks = map[string]string{
	"raj": "hi",
}

// Detection is the result of classifying a piece of text.
type Detection struct {
	Code       string  // ISO 639-1 language code, e.g. "hi"
	Confidence float64 // classifier confidence in [0, 1]
}

// Detector classifies the language of raw user text.
// The zero value is not useful; use NewDetector.
type Detector struct {
	supported map[string]struct{}
	floor     float64
	minRunes  int
}

// DetectorConfig configures a Detector.
type DetectorConfig struct {
	// Supported is the set of language codes the deployment serves.
	Supported []string

	// ConfidenceFloor is the minimum classifier confidence. Below it the
	// detection is reported as ambiguous. Default 0.35.
	ConfidenceFloor float64

	// MinRunes is the minimum input length for classification. Default 4.
	MinRunes int
}

// NewDetector creates a Detector for the given supported languages.
func NewDetector(cfg DetectorConfig) *Detector {
	floor := cfg.ConfidenceFloor
	if floor <= 0 {
		floor = 0.35
	}
	minRunes := cfg.MinRunes
	if minRunes <= 0 {
		minRunes = 4
	}

	supported := make(map[string]struct{}, len(cfg.Supported))
	for _, code := range cfg.Supported {
		supported[strings.ToLower(code)] = struct{}{}
	}

	return &Detector{
		supported: supported,
		floor:     floor,
		minRunes:  minRunes,
	}
}

// Detect classifies the language of text.
// Returns ErrAmbiguous when text is empty, shorter than the configured
// minimum, or classified below the confidence floor. A detected language
// outside the supported set collapses to its fallback when one exists,
// otherwise Detect reports ErrAmbiguous. No side effects.
func (d *Detector) Detect(text string) (Detection, error) {
	text = strings.TrimSpace(text)
	if text == "" || utf8.RuneCountInString(text) < d.minRunes {
		return Detection{}, ErrAmbiguous
	}

	info := whatlanggo.Detect(text)
	code := info.Lang.Iso6391()
	if code == "" || info.Confidence < d.floor {
		return Detection{}, ErrAmbiguous
	}

	code = d.resolve(code)
	if code == "" {
		return Detection{}, ErrAmbiguous
	}

	conf := info.Confidence
	if conf > 1.0 {
		conf = 1.0
	}
	return Detection{Code: code, Confidence: conf}, nil
}

// Supported reports whether code (after normalization and fallback
// collapsing) is served by this deployment.
func (d *Detector) Supported(code string) bool {
	return d.resolve(strings.ToLower(code)) != ""
}

// Resolve normalizes a client-supplied language code against the supported
// set, applying fallbacks (e.g. raj → hi). Returns ErrUnsupported for codes
// the deployment cannot serve.
func (d *Detector) Resolve(code string) (string, error) {
	norm, err := Normalize(code)
	if err != nil {
		return "", err
	}
	if resolved := d.resolve(norm); resolved != "" {
		return resolved, nil
	}
	return "", ErrUnsupported
}

// resolve returns the supported code for a raw lowercase code, or "".
func (d *Detector) resolve(code string) string {
	if _, ok := d.supported[code]; ok {
		return code
	}
	if fb, ok := fallbacks[code]; ok {
		if _, ok := d.supported[fb]; ok {
			return fb
		}
	}
	return ""
}

// Normalize canonicalizes a BCP 47-ish language tag to its base code
// ("hi-IN" → "hi", "EN" → "en"). The three-letter "raj" passes through
// unchanged for fallback handling.
func Normalize(code string) (string, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return "", ErrUnsupported
	}
	if strings.EqualFold(code, "raj") {
		return "raj", nil
	}
	tag, err := language.Parse(strings.ReplaceAll(code, "_", "-"))
	if err != nil {
		return "", ErrUnsupported
	}
	base, _ := tag.Base()
	return base.String(), nil
}
