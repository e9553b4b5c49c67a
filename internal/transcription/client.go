package transcription

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/amauricunha/smartnlp/internal/metrics"
	"github.com/amauricunha/smartnlp/internal/objectstore"
)

// Error reports a transcription that failed after every attempt. The
// Detail carries the last failure verbatim so callers can see what the
// speech service actually answered.
type Error struct {
	Attempts int
	Detail   string
}

func (e *Error) Error() string {
	return fmt.Sprintf("transcription failed after %d attempts: %s", e.Attempts, e.Detail)
}

// Config contains the speech service client configuration.
type Config struct {
	BaseURL    string
	Language   string
	Timeout    time.Duration
	MaxRetries int
	RetryDelay time.Duration
}

// Client talks to the Whisper ASR HTTP service. The service runs in a
// sidecar container that can take a while to come up, so every request
// goes through a bounded retry loop with a fixed delay.
type Client struct {
	cfg        Config
	httpClient *http.Client
	blobs      objectstore.Store
	converter  Converter
	metrics    *metrics.Metrics
}

// NewClient creates a transcription client. converter may be nil, in
// which case the normalization fallback is skipped entirely.
func NewClient(cfg Config, blobs objectstore.Store, converter Converter, m *metrics.Metrics) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("speech service URL cannot be empty")
	}
	if cfg.Language == "" {
		cfg.Language = "pt"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 180 * time.Second
	}
	if cfg.MaxRetries < 1 {
		cfg.MaxRetries = 5
	}
	if cfg.RetryDelay < 0 {
		cfg.RetryDelay = 3 * time.Second
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		blobs:      blobs,
		converter:  converter,
		metrics:    m,
	}, nil
}

// whisperResponse is the structured body the speech service answers
// with when output=json is requested.
type whisperResponse struct {
	Text string `json:"text"`
}

// Transcribe fetches the stored audio and converts it to text. It
// retries on any failure, and for container formats Whisper handles
// poorly it normalizes the audio with ffmpeg before one final attempt.
// A failed pipeline comes back as *Error, never as a success value.
func (c *Client) Transcribe(ctx context.Context, audioRef string) (string, error) {
	audio, err := c.blobs.GetBytes(ctx, audioRef)
	if err != nil {
		return "", fmt.Errorf("failed to load audio %s: %w", audioRef, err)
	}
	filename := filepath.Base(audioRef)

	text, lastErr := c.transcribeWithRetries(ctx, filename, audio)
	if lastErr == nil {
		return text, nil
	}
	if ctx.Err() != nil {
		return "", lastErr
	}
	attempts := c.cfg.MaxRetries

	ext := strings.ToLower(filepath.Ext(filename))
	if (ext == ".m4a" || ext == ".aac") && c.converter != nil {
		converted, convErr := c.converter.NormalizeToWAV(ctx, filename, audio)
		if convErr != nil {
			// The converter is optional tooling: its absence or
			// failure never masks the retry loop's own verdict.
			log.Warn().Err(convErr).Str("audio", audioRef).Msg("audio normalization unavailable, keeping transcription failure")
		} else {
			wavName := strings.TrimSuffix(filename, ext) + ".wav"
			log.Info().Str("audio", audioRef).Msg("retrying transcription with normalized audio")
			start := time.Now()
			text, err := c.attempt(ctx, wavName, converted)
			c.metrics.RecordTranscriptionAttempt(true, time.Since(start).Seconds())
			if err == nil {
				return text, nil
			}
			attempts++
			lastErr = err
		}
	}

	c.metrics.RecordTranscriptionFailure()
	return "", &Error{Attempts: attempts, Detail: lastErr.Error()}
}

func (c *Client) transcribeWithRetries(ctx context.Context, filename string, audio []byte) (string, error) {
	var lastErr error
	for attempt := 1; attempt <= c.cfg.MaxRetries; attempt++ {
		start := time.Now()
		text, err := c.attempt(ctx, filename, audio)
		c.metrics.RecordTranscriptionAttempt(attempt > 1, time.Since(start).Seconds())
		if err == nil {
			return text, nil
		}
		lastErr = err
		log.Warn().Err(err).Int("attempt", attempt).Int("max_attempts", c.cfg.MaxRetries).Msg("transcription attempt failed")

		if attempt < c.cfg.MaxRetries {
			select {
			case <-time.After(c.cfg.RetryDelay):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}
	}
	return "", lastErr
}

// attempt performs a single request against the speech service.
func (c *Client) attempt(ctx context.Context, filename string, audio []byte) (string, error) {
	reqURL, err := url.Parse(c.cfg.BaseURL)
	if err != nil {
		return "", fmt.Errorf("failed to parse speech service URL: %w", err)
	}
	query := reqURL.Query()
	query.Set("encode", "true")
	query.Set("task", "transcribe")
	query.Set("language", c.cfg.Language)
	query.Set("output", "json")
	reqURL.RawQuery = query.Encode()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("audio_file", filename)
	if err != nil {
		return "", fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := part.Write(audio); err != nil {
		return "", fmt.Errorf("failed to write audio data: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("failed to close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL.String(), &buf)
	if err != nil {
		return "", fmt.Errorf("failed to create speech service request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("speech service request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read speech service response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("speech service returned status %d: %s", resp.StatusCode, string(body))
	}

	raw := strings.TrimSpace(string(body))
	if raw == "" {
		return "", fmt.Errorf("speech service returned an empty body")
	}

	var parsed whisperResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		// Non-conforming but non-empty bodies are accepted as the
		// transcription itself; some Whisper builds answer plain text.
		log.Warn().Str("body", truncate(raw, 200)).Msg("speech service answered non-JSON body, accepting raw text")
		return raw, nil
	}
	text := strings.TrimSpace(parsed.Text)
	if text == "" {
		return "", fmt.Errorf("speech service returned an empty transcription: %s", raw)
	}
	return text, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
