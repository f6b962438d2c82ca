package summary

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

const defaultElevenLabsBaseURL = "https://api.elevenlabs.io/v1"

// ElevenLabsConfig holds credentials for the text-to-speech API.
type ElevenLabsConfig struct {
	APIKey  string
	VoiceID string
	// BaseURL overrides the API host; tests point it at a mock.
	BaseURL string
}

// ElevenLabsClient renders text to German speech audio.
type ElevenLabsClient struct {
	cfg    ElevenLabsConfig
	client *http.Client
}

func NewElevenLabsClient(cfg ElevenLabsConfig) *ElevenLabsClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultElevenLabsBaseURL
	}
	return &ElevenLabsClient{cfg: cfg, client: http.DefaultClient}
}

// Synthesize streams MPEG audio for the given text. The caller owns the
// returned reader and must close it.
func (c *ElevenLabsClient) Synthesize(ctx context.Context, text string) (io.ReadCloser, error) {
	payload := map[string]string{
		"text":          text,
		"model_id":      "eleven_flash_v2_5",
		"language_code": "de",
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal tts payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.cfg.BaseURL+"/text-to-speech/"+c.cfg.VoiceID, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build tts request: %w", err)
	}
	req.Header.Set("xi-api-key", c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/mpeg")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tts request: %w", err)
	}
	if resp.StatusCode >= 300 {
		resp.Body.Close()
		return nil, fmt.Errorf("tts returned status %d", resp.StatusCode)
	}
	return resp.Body, nil
}
