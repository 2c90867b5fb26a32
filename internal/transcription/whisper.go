package transcription

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/MimeLyc/media-subtitle-translator/pkg/log"
)

const (
	DefaultAPIURL = "https://api.openai.com/v1"
	DefaultModel  = "whisper-1"
)

// Config configures a WhisperClient.
type Config struct {
	APIKey string
	APIURL string
	Model  string
	// Language is an optional ISO-639-1 hint ("en", "fr"). Empty lets the
	// service auto-detect.
	Language string
	// Timeout bounds one request. Zero means no timeout.
	Timeout time.Duration
}

// WhisperClient talks to an OpenAI-compatible /audio/transcriptions endpoint.
type WhisperClient struct {
	cfg    Config
	client *http.Client
}

// NewWhisperClient creates a client, filling defaults for URL and model.
func NewWhisperClient(cfg Config) (*WhisperClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("transcription API key is required")
	}
	if cfg.Timeout < 0 {
		return nil, fmt.Errorf("transcription timeout must not be negative")
	}
	if cfg.APIURL == "" {
		cfg.APIURL = DefaultAPIURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	cfg.APIURL = strings.TrimRight(cfg.APIURL, "/")

	return &WhisperClient{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

type whisperResponse struct {
	Text  string        `json:"text"`
	Error *whisperError `json:"error,omitempty"`
}

type whisperError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

// Transcribe uploads the audio and returns the recognized text.
func (c *WhisperClient) Transcribe(ctx context.Context, audio Audio) (string, error) {
	name := audio.Name
	if name == "" {
		name = "audio.wav"
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("file", name)
	if err != nil {
		return "", fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(audio.Data); err != nil {
		return "", fmt.Errorf("write audio data: %w", err)
	}
	_ = writer.WriteField("model", c.cfg.Model)
	if c.cfg.Language != "" {
		_ = writer.WriteField("language", c.cfg.Language)
	}
	_ = writer.WriteField("response_format", "json")
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("close multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.APIURL+"/audio/transcriptions", &buf)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	log.Debug("Uploading %d bytes of audio for transcription (model %s)", len(audio.Data), c.cfg.Model)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("transcription request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read transcription response: %w", err)
	}

	var result whisperResponse
	decodeErr := json.Unmarshal(body, &result)
	if decodeErr == nil && result.Error != nil && result.Error.Message != "" {
		return "", fmt.Errorf("transcription API error (status %d): %s", resp.StatusCode, result.Error.Message)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("transcription API error (status %d): %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if decodeErr != nil {
		return "", fmt.Errorf("decode transcription response: %w", decodeErr)
	}

	return result.Text, nil
}
