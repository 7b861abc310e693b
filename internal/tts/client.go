// Package tts implements the speech-synthesis capability on the ElevenLabs streaming API.
package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/spherical/lecturecast/internal/domain"
	"github.com/spherical/lecturecast/internal/observability"
	"github.com/spherical/lecturecast/internal/retry"
)

const (
	defaultBaseURL      = "https://api.elevenlabs.io"
	defaultVoiceID      = "fJE3lSefh7YI494JMYYz"
	defaultModelID      = "eleven_multilingual_v2"
	defaultOutputFormat = "mp3_44100_128"
	defaultTimeout      = 2 * time.Minute

	readBufferSize = 32 * 1024
)

// Config configures the ElevenLabs client.
type Config struct {
	APIKey         string
	BaseURL        string
	VoiceID        string
	ModelID        string
	OutputFormat   string
	RequestTimeout time.Duration
	MaxRetries     int
	Retry          *retry.Config
}

// Client streams synthesized speech from ElevenLabs.
type Client struct {
	apiKey       string
	baseURL      string
	voiceID      string
	modelID      string
	outputFormat string
	timeout      time.Duration
	retry        retry.Config
	httpClient   *http.Client
	logger       *observability.Logger
}

type synthesisRequest struct {
	Text    string `json:"text"`
	ModelID string `json:"model_id"`
}

// NewClient creates a new ElevenLabs client, filling unset fields with the fixed narration voice.
func NewClient(cfg Config, logger *observability.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.VoiceID == "" {
		cfg.VoiceID = defaultVoiceID
	}
	if cfg.ModelID == "" {
		cfg.ModelID = defaultModelID
	}
	if cfg.OutputFormat == "" {
		cfg.OutputFormat = defaultOutputFormat
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = defaultTimeout
	}
	if logger == nil {
		logger = observability.Nop()
	}

	rc := retry.DefaultConfig().WithMaxRetries(cfg.MaxRetries)
	if cfg.Retry != nil {
		rc = *cfg.Retry
	}

	return &Client{
		apiKey:       cfg.APIKey,
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		voiceID:      cfg.VoiceID,
		modelID:      cfg.ModelID,
		outputFormat: cfg.OutputFormat,
		timeout:      cfg.RequestTimeout,
		retry:        rc,
		httpClient:   &http.Client{},
		logger:       logger.WithComponent("tts"),
	}
}

// Stream synthesizes text and sends the audio body to chunks as it arrives.
// It never closes chunks.
func (c *Client) Stream(ctx context.Context, text string, chunks chan<- []byte) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	body, err := json.Marshal(synthesisRequest{Text: text, ModelID: c.modelID})
	if err != nil {
		return domain.SynthesisError("failed to marshal request", err)
	}

	endpoint := fmt.Sprintf("%s/v1/text-to-speech/%s/stream?output_format=%s",
		c.baseURL, url.PathEscape(c.voiceID), url.QueryEscape(c.outputFormat))

	resp, err := retry.Do(ctx, c.retry, c.logger, func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}

		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "audio/mpeg")
		req.Header.Set("xi-api-key", c.apiKey)

		return c.httpClient.Do(req)
	})
	if err != nil {
		return domain.AsTimeout(domain.SynthesisError("failed to send request", err), "speech synthesis timed out")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return domain.SynthesisError(fmt.Sprintf("API returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(bodyBytes))), nil)
	}

	var total int64
	buf := make([]byte, readBufferSize)
	for {
		n, readErr := resp.Body.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			select {
			case chunks <- chunk:
				total += int64(n)
			case <-ctx.Done():
				return domain.AsTimeout(domain.SynthesisError("audio stream interrupted", ctx.Err()), "speech synthesis timed out")
			}
		}
		if errors.Is(readErr, io.EOF) {
			break
		}
		if readErr != nil {
			return domain.AsTimeout(domain.SynthesisError("failed to read audio stream", readErr), "speech synthesis timed out")
		}
	}

	c.logger.Debug().
		Str("voice_id", c.voiceID).
		Int64("bytes", total).
		Msg("audio stream drained")

	return nil
}
