package tts

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
)

// Synthesizer turns text into spoken audio.
type Synthesizer interface {
	Synthesize(ctx context.Context, text, voice string) ([]byte, error)
}

// HTTPProvider calls an upstream synthesis service speaking the same JSON
// contract as this API: POST {"text":..., "voice":...} returning audio bytes.
type HTTPProvider struct {
	client *resty.Client
}

// NewHTTPProvider builds a provider for the given base URL with a hard
// per-request timeout.
func NewHTTPProvider(baseURL string, timeout time.Duration) *HTTPProvider {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout)
	return &HTTPProvider{client: client}
}

// Synthesize posts the synthesis request upstream and returns the raw audio.
func (p *HTTPProvider) Synthesize(ctx context.Context, text, voice string) ([]byte, error) {
	resp, err := p.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(map[string]string{"text": text, "voice": voice}).
		Post("/tts")
	if err != nil {
		return nil, fmt.Errorf("tts: upstream request: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("tts: upstream status %d", resp.StatusCode())
	}
	return resp.Body(), nil
}
