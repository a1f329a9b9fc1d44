package lang

import (
	"errors"
	"testing"
)

func newTestDetector() *Detector {
	return NewDetector(DetectorConfig{
		Supported: []string{"en", "hi", "gu", "mr", "pa", "ta", "bn", "te", "kn", "ml", "or"},
	})
}

func TestDetect_English(t *testing.T) {
	t.Parallel()

	d := newTestDetector()
	det, err := d.Detect("What are the library opening hours during the examination period?")
	if err != nil {
		t.Fatalf("Detect() error: %v", err)
	}
	if det.Code != "en" {
		t.Errorf("Code = %q, want en", det.Code)
	}
	if det.Confidence <= 0 || det.Confidence > 1 {
		t.Errorf("Confidence = %v, want (0, 1]", det.Confidence)
	}
}

func TestDetect_Hindi(t *testing.T) {
	t.Parallel()

	d := newTestDetector()
	det, err := d.Detect("पुस्तकालय कितने बजे खुलता है और कब बंद होता है?")
	if err != nil {
		t.Fatalf("Detect() error: %v", err)
	}
	if det.Code != "hi" {
		t.Errorf("Code = %q, want hi", det.Code)
	}
}

func TestDetect_Ambiguous(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		text string
	}{
		{"empty", ""},
		{"whitespace only", "   \t\n"},
		{"too short", "ok"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			d := newTestDetector()
			if _, err := d.Detect(tt.text); !errors.Is(err, ErrAmbiguous) {
				t.Errorf("Detect(%q) = %v, want ErrAmbiguous", tt.text, err)
			}
		})
	}
}

func TestDetect_UnsupportedLanguageIsAmbiguous(t *testing.T) {
	t.Parallel()

	// Deployment serving only English: Hindi input cannot be resolved.
	d := NewDetector(DetectorConfig{Supported: []string{"en"}})
	if _, err := d.Detect("पुस्तकालय कितने बजे खुलता है और कब बंद होता है?"); !errors.Is(err, ErrAmbiguous) {
		t.Errorf("Detect() = %v, want ErrAmbiguous", err)
	}
}

func TestResolve(t *testing.T) {
	t.Parallel()

	d := newTestDetector()

	tests := []struct {
		in      string
		want    string
		wantErr error
	}{
		{"en", "en", nil},
		{"EN", "en", nil},
		{"hi-IN", "hi", nil},
		{"raj", "hi", nil}, // Rajasthani served in Hindi
		{"fr", "", ErrUnsupported},
		{"", "", ErrUnsupported},
		{"not a tag!!", "", ErrUnsupported},
	}
	for _, tt := range tests {
		got, err := d.Resolve(tt.in)
		if !errors.Is(err, tt.wantErr) {
			t.Errorf("Resolve(%q) error = %v, want %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("Resolve(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNormalize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{"hi-IN", "hi"},
		{"en_US", "en"},
		{"Ta", "ta"},
		{"raj", "raj"},
	}
	for _, tt := range tests {
		got, err := Normalize(tt.in)
		if err != nil {
			t.Errorf("Normalize(%q) error: %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSupported(t *testing.T) {
	t.Parallel()

	d := newTestDetector()
	if !d.Supported("hi") {
		t.Error("hi should be supported")
	}
	if !d.Supported("raj") {
		t.Error("raj should resolve via fallback")
	}
	if d.Supported("fr") {
		t.Error("fr should not be supported")
	}
}
