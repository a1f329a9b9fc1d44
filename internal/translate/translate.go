// Package translate converts text between a user language and the pivot
// language used internally for retrieval and generation.
//
// The upstream service is a Bhashini-style translation pipeline reached over
// HTTP. All failures collapse into ErrUnavailable: the pipeline treats
// translation as best-effort and passes original text through on failure.
package translate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// ErrUnavailable indicates an unsupported language pair or an upstream
// failure. Callers fall back to the untranslated text and mark the turn
// degraded; this error must never abort a chat request.
var ErrUnavailable = errors.New("translation unavailable")

// Translator converts text between two languages.
// Implementations return the input unchanged when source equals target.
type Translator interface {
	Translate(ctx context.Context, text, source, target string) (string, error)
}

// Noop is an identity Translator for pivot-only deployments and tests.
type Noop struct{}

// Translate returns text unchanged.
func (Noop) Translate(_ context.Context, text, _, _ string) (string, error) {
	return text, nil
}

// Config configures a Client.
type Config struct {
	// Endpoint is the translation pipeline compute URL.
	Endpoint string

	// APIKey authenticates requests. Sent as Authorization header.
	APIKey string

	// Languages is the set of codes the upstream models cover. A pair with
	// either side outside the set is reported ErrUnavailable without a call.
	Languages []string

	// Timeout bounds each translation call. Default 8s.
	Timeout time.Duration
}

// Client calls the upstream translation service.
type Client struct {
	endpoint  string
	apiKey    string
	hc        *http.Client
	supported map[string]struct{}
	logger    *slog.Logger
}

// NewClient creates a translation client.
// logger may be nil (defaults to slog.Default()).
func NewClient(cfg Config, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 8 * time.Second
	}

	supported := make(map[string]struct{}, len(cfg.Languages))
	for _, code := range cfg.Languages {
		supported[strings.ToLower(code)] = struct{}{}
	}

	return &Client{
		endpoint:  cfg.Endpoint,
		apiKey:    cfg.APIKey,
		hc:        &http.Client{Timeout: timeout},
		supported: supported,
		logger:    logger,
	}
}

// request is the wire format sent to the translation pipeline.
type request struct {
	Input          string `json:"input"`
	SourceLanguage string `json:"source_language"`
	TargetLanguage string `json:"target_language"`
}

// response is the wire format returned by the translation pipeline.
type response struct {
	Output string `json:"output"`
}

// Translate converts text from source to target.
// Identity when source == target. Returns ErrUnavailable for unsupported
// pairs, transport failures, non-2xx statuses, and malformed responses.
func (c *Client) Translate(ctx context.Context, text, source, target string) (string, error) {
	source = strings.ToLower(source)
	target = strings.ToLower(target)
	if source == target {
		return text, nil
	}
	if c.endpoint == "" {
		return "", fmt.Errorf("%w: no endpoint configured", ErrUnavailable)
	}
	if !c.pairSupported(source, target) {
		return "", fmt.Errorf("%w: unsupported pair %s>%s", ErrUnavailable, source, target)
	}

	body, err := json.Marshal(request{
		Input:          text,
		SourceLanguage: source,
		TargetLanguage: target,
	})
	if err != nil {
		return "", fmt.Errorf("%w: encoding request: %w", ErrUnavailable, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("%w: building request: %w", ErrUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", c.apiKey)
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Warn("translation upstream returned error status",
			"status", resp.StatusCode, "pair", source+">"+target)
		return "", fmt.Errorf("%w: upstream status %d", ErrUnavailable, resp.StatusCode)
	}

	var out response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("%w: decoding response: %w", ErrUnavailable, err)
	}
	if out.Output == "" {
		return "", fmt.Errorf("%w: empty translation", ErrUnavailable)
	}
	return out.Output, nil
}

// pairSupported reports whether both sides of a pair are covered.
// An empty configured set accepts any pair.
func (c *Client) pairSupported(source, target string) bool {
	if len(c.supported) == 0 {
		return true
	}
	_, srcOK := c.supported[source]
	_, tgtOK := c.supported[target]
	return srcOK && tgtOK
}
